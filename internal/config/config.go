// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Refresh interval bounds enforced by Load.
const (
	MinRefreshInterval = 5 * time.Minute
	MaxRefreshInterval = 24 * time.Hour
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Username        string
	Password        string
	BaseURL         string
	RefreshInterval time.Duration
	HTTPTimeout     time.Duration
	ListenAddr      string
	DBPath          string
	SecretKey       []byte
}

// HasCredentials returns true when both Username and Password are non-empty.
// Used by the composition root to decide whether refresh cycles can
// authenticate at startup or must wait for credentials over the API.
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. Credentials (HIDROPANEL_USERNAME, HIDROPANEL_PASSWORD) are optional;
// if absent, the app starts but refreshing is inactive until credentials are
// provided over the API. Optional variables with defaults:
// HIDROPANEL_BASE_URL (production backend), HIDROPANEL_REFRESH_INTERVAL (1h,
// clamped to 5m..24h), HIDROPANEL_HTTP_TIMEOUT (10s), HIDROPANEL_LISTEN_ADDR
// (127.0.0.1:8080), HIDROPANEL_DB_PATH (hidropanel.db). HIDROPANEL_SECRET_KEY
// must be 32 raw bytes or 64 hex characters when set; without it credential
// persistence is disabled.
func Load() (*Config, error) {
	username := os.Getenv("HIDROPANEL_USERNAME")
	password := os.Getenv("HIDROPANEL_PASSWORD")
	baseURL := os.Getenv("HIDROPANEL_BASE_URL")

	refreshInterval := time.Hour
	if v, ok := os.LookupEnv("HIDROPANEL_REFRESH_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("HIDROPANEL_REFRESH_INTERVAL has invalid duration %q: %w", v, err)
		}
		refreshInterval = parsed
	}
	if refreshInterval < MinRefreshInterval {
		refreshInterval = MinRefreshInterval
	}
	if refreshInterval > MaxRefreshInterval {
		refreshInterval = MaxRefreshInterval
	}

	httpTimeout := 10 * time.Second
	if v, ok := os.LookupEnv("HIDROPANEL_HTTP_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("HIDROPANEL_HTTP_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("HIDROPANEL_HTTP_TIMEOUT must be positive, got %q", v)
		}
		httpTimeout = parsed
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("HIDROPANEL_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "hidropanel.db"
	if v, ok := os.LookupEnv("HIDROPANEL_DB_PATH"); ok {
		dbPath = v
	}

	secretKey, err := parseSecretKey(os.Getenv("HIDROPANEL_SECRET_KEY"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Username:        username,
		Password:        password,
		BaseURL:         baseURL,
		RefreshInterval: refreshInterval,
		HTTPTimeout:     httpTimeout,
		ListenAddr:      listenAddr,
		DBPath:          dbPath,
		SecretKey:       secretKey,
	}, nil
}

// parseSecretKey accepts a 32-byte raw key or its 64-character hex encoding.
// An empty value disables credential encryption.
func parseSecretKey(raw string) ([]byte, error) {
	switch len(raw) {
	case 0:
		return nil, nil
	case 32:
		return []byte(raw), nil
	case 64:
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("HIDROPANEL_SECRET_KEY is not valid hex: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("HIDROPANEL_SECRET_KEY must be 32 raw bytes or 64 hex chars, got %d chars", len(raw))
	}
}
