package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFiles()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.True(t, cfg.Local())
	assert.Equal(t, "/chat", cfg.ChatNamespace)
	assert.Equal(t, 50, cfg.ChatHistoryLimit)
	assert.Equal(t, 10*time.Second, cfg.ChatAckTimeout)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.ChatReconnectBackoff)
	assert.Equal(t, UploadModeAPI, cfg.UploadMode)
	assert.Equal(t, cfg.S3Endpoint, cfg.S3PublicEndpoint)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("API_BASE_URL", "https://api.recyclemart.test/api/v1/")
	t.Setenv("SOCKET_BASE_URL", "wss://api.recyclemart.test")
	t.Setenv("CHAT_NAMESPACE", "support")
	t.Setenv("CHAT_RECONNECT_BACKOFF", "500ms,2s")
	t.Setenv("UPLOAD_MODE", "S3")

	cfg, err := LoadFiles()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.False(t, cfg.Local())
	assert.Equal(t, "https://api.recyclemart.test/api/v1", cfg.APIBaseURL)
	assert.Equal(t, "/support", cfg.ChatNamespace)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 2 * time.Second}, cfg.ChatReconnectBackoff)
	assert.Equal(t, UploadModeS3, cfg.UploadMode)
}

func TestLoadDotenvDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BRIDGE_ADDR=127.0.0.1:9999\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("BRIDGE_ADDR", "")
	os.Unsetenv("BRIDGE_ADDR")

	cfg, err := LoadFiles(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.BridgeAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"relative api url":  {"API_BASE_URL", "/api/v1"},
		"bad socket scheme": {"SOCKET_BASE_URL", "ftp://host"},
		"zero history":      {"CHAT_HISTORY_LIMIT", "0"},
		"bad duration":      {"CHAT_ACK_TIMEOUT", "soon"},
		"negative timeout":  {"HTTP_TIMEOUT", "-1s"},
		"bad backoff":       {"CHAT_RECONNECT_BACKOFF", "1s,-2s"},
		"unknown upload":    {"UPLOAD_MODE", "ftp"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := LoadFiles()
			require.Error(t, err)
		})
	}
}
