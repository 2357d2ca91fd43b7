package models

// Item represents a catalog item with its available stock
type Item struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    Money  `json:"price"`
	Quantity int    `json:"quantity"`
}

// ItemSummary is the item shape nested inside order line items
type ItemSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price Money  `json:"price"`
}

// Summary returns the nested representation of the item
func (i *Item) Summary() ItemSummary {
	return ItemSummary{ID: i.ID, Name: i.Name, Price: i.Price}
}
