package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every HIDROPANEL_ env var that Load() reads.
var allConfigKeys = []string{
	"HIDROPANEL_USERNAME",
	"HIDROPANEL_PASSWORD",
	"HIDROPANEL_BASE_URL",
	"HIDROPANEL_REFRESH_INTERVAL",
	"HIDROPANEL_HTTP_TIMEOUT",
	"HIDROPANEL_LISTEN_ADDR",
	"HIDROPANEL_DB_PATH",
	"HIDROPANEL_SECRET_KEY",
}

// isolateConfigEnv saves and unsets all HIDROPANEL_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("HIDROPANEL_USERNAME", "ion.popescu")
	t.Setenv("HIDROPANEL_PASSWORD", "parola")
	t.Setenv("HIDROPANEL_BASE_URL", "https://backend.test")
	t.Setenv("HIDROPANEL_REFRESH_INTERVAL", "30m")
	t.Setenv("HIDROPANEL_HTTP_TIMEOUT", "20s")
	t.Setenv("HIDROPANEL_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("HIDROPANEL_DB_PATH", "/tmp/test.db")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ion.popescu", cfg.Username)
	assert.Equal(t, "parola", cfg.Password)
	assert.True(t, cfg.HasCredentials())
	assert.Equal(t, "https://backend.test", cfg.BaseURL)
	assert.Equal(t, 30*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 20*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.HasCredentials())
	assert.Equal(t, time.Hour, cfg.RefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "hidropanel.db", cfg.DBPath)
	assert.Empty(t, cfg.BaseURL)
}

func TestLoad_IntervalClampedToBounds(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("HIDROPANEL_REFRESH_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MinRefreshInterval, cfg.RefreshInterval)

	t.Setenv("HIDROPANEL_REFRESH_INTERVAL", "48h")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, MaxRefreshInterval, cfg.RefreshInterval)
}

func TestLoad_InvalidRefreshInterval(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("HIDROPANEL_REFRESH_INTERVAL", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HIDROPANEL_REFRESH_INTERVAL")
}

func TestLoad_InvalidHTTPTimeout(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("HIDROPANEL_HTTP_TIMEOUT", "-5s")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HIDROPANEL_HTTP_TIMEOUT")
}

func TestLoad_SecretKey_Absent(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Nil(t, cfg.SecretKey)
}

func TestLoad_SecretKey_Hex(t *testing.T) {
	isolateConfigEnv(t)
	// 64 hex chars = 32 bytes
	t.Setenv("HIDROPANEL_SECRET_KEY", "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Len(t, cfg.SecretKey, 32)
}

func TestLoad_SecretKey_Raw(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("HIDROPANEL_SECRET_KEY", "abcdefghijklmnopqrstuvwxyz012345")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Len(t, cfg.SecretKey, 32)
}

func TestLoad_SecretKey_TooShort(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("HIDROPANEL_SECRET_KEY", "deadbeef")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HIDROPANEL_SECRET_KEY")
}

func TestLoad_SecretKey_NotHex(t *testing.T) {
	isolateConfigEnv(t)
	// 64 chars but not valid hex
	t.Setenv("HIDROPANEL_SECRET_KEY", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HIDROPANEL_SECRET_KEY")
}
