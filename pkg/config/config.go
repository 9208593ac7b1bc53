package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all application configuration values
type Config struct {
	SmartwaiverAPIKey  string
	SmartwaiverBaseURL string
	ShopifyStore       string
	ShopifyAccessToken string
	ShopifyBaseURL     string
	SyncWindow         time.Duration
	PlaceholderDomain  string
	TagMapFile         string
	WebhookSecret      string
}

// LoadConfig reads configuration from environment variables
func LoadConfig() *Config {
	cfg := &Config{
		SmartwaiverAPIKey:  os.Getenv("SMARTWAIVER_API_KEY"),
		SmartwaiverBaseURL: os.Getenv("SMARTWAIVER_BASE_URL"),
		ShopifyStore:       os.Getenv("SHOPIFY_STORE"),
		ShopifyAccessToken: os.Getenv("SHOPIFY_ACCESS_TOKEN"),
		ShopifyBaseURL:     os.Getenv("SHOPIFY_BASE_URL"),
		PlaceholderDomain:  os.Getenv("PLACEHOLDER_EMAIL_DOMAIN"),
		TagMapFile:         os.Getenv("TAG_MAP_FILE"),
		WebhookSecret:      os.Getenv("WEBHOOK_SECRET"),
		SyncWindow:         5 * time.Minute,
	}

	if cfg.SmartwaiverBaseURL == "" {
		cfg.SmartwaiverBaseURL = "https://api.smartwaiver.com"
	}
	if cfg.ShopifyBaseURL == "" && cfg.ShopifyStore != "" {
		cfg.ShopifyBaseURL = fmt.Sprintf("https://%s.myshopify.com/admin/api/2024-01", cfg.ShopifyStore)
	}
	if cfg.PlaceholderDomain == "" {
		cfg.PlaceholderDomain = "smartwaiver.com"
	}
	if w := os.Getenv("SYNC_WINDOW"); w != "" {
		if d, err := time.ParseDuration(w); err == nil && d > 0 {
			cfg.SyncWindow = d
		}
	}

	return cfg
}
