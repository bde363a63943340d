package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultRelays are queried when RELAYS is not configured.
var DefaultRelays = []string{
	"wss://relay.damus.io",
	"wss://nos.lol",
	"wss://relay.nostr.band",
}

// Config holds all configuration for the application
type Config struct {
	// NostrSecretKey signs every wishlist event. Accepts hex or nsec bech32.
	NostrSecretKey string
	Relays         []string

	DatabasePath string
	LogLevel     string
	Port         string

	// TelegramToken enables the Telegram surface when set.
	TelegramToken  string
	TelegramChatID int64

	// MetadataProxy is an optional CORS/readability proxy prefix for product
	// page scraping.
	MetadataProxy string
}

// Load loads configuration from the environment, with an optional .env file.
func Load() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment.
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:  getEnvOrDefault("DATABASE_PATH", "satslist.db"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		Port:          getEnvOrDefault("PORT", "8080"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		MetadataProxy: os.Getenv("METADATA_PROXY"),
	}

	// Required environment variables
	if cfg.NostrSecretKey = os.Getenv("NOSTR_SECRET_KEY"); cfg.NostrSecretKey == "" {
		return nil, fmt.Errorf("NOSTR_SECRET_KEY environment variable is required")
	}

	cfg.Relays = splitRelays(os.Getenv("RELAYS"))
	if len(cfg.Relays) == 0 {
		cfg.Relays = DefaultRelays
	}

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be an integer: %w", err)
		}
		cfg.TelegramChatID = chatID
	}

	return cfg, nil
}

func splitRelays(raw string) []string {
	var relays []string
	for _, part := range strings.Split(raw, ",") {
		if r := strings.TrimSpace(part); r != "" {
			relays = append(relays, r)
		}
	}
	return relays
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
