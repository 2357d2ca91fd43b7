// Package config loads service configuration from the environment.
package config

import "os"

// Config holds the service configuration
type Config struct {
	Addr             string
	DBPath           string
	APIToken         string
	AuthServiceURL   string
	NotifyServiceURL string
	SeedCatalog      bool
	LogLevel         string
}

// Load reads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Addr:             getEnv("ADDR", ":8080"),
		DBPath:           getEnv("DB_PATH", "orders.db"),
		APIToken:         getEnv("API_TOKEN", ""),
		AuthServiceURL:   getEnv("AUTH_SERVICE_URL", ""),
		NotifyServiceURL: getEnv("NOTIFY_SERVICE_URL", ""),
		SeedCatalog:      getEnv("SEED_CATALOG", "") == "true",
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
