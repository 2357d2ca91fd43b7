package models

import "github.com/shopspring/decimal"

// Money is a fixed-point amount that always serializes with exactly two
// fractional digits, so a whole-dollar total renders as "99.00" rather
// than "99".
type Money struct {
	decimal.Decimal
}

// NewMoney wraps a decimal amount as Money
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MoneyFromString parses a decimal string into Money
func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	return Money{Decimal: d}, err
}

// MarshalJSON renders the amount as a quoted string with two fractional
// digits
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}

// UnmarshalJSON accepts the quoted and bare number forms decimal accepts
func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Decimal.UnmarshalJSON(data)
}
