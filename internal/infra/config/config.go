package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	UploadModeAPI = "api"
	UploadModeS3  = "s3"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string `envconfig:"APP_ENV" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE"`

	APIBaseURL    string        `envconfig:"API_BASE_URL" default:"http://localhost:5000/api/v1"`
	SocketBaseURL string        `envconfig:"SOCKET_BASE_URL" default:"http://localhost:5000"`
	HTTPTimeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`

	ChatNamespace        string          `envconfig:"CHAT_NAMESPACE" default:"/chat"`
	ChatHistoryLimit     int             `envconfig:"CHAT_HISTORY_LIMIT" default:"50"`
	ChatAckTimeout       time.Duration   `envconfig:"CHAT_ACK_TIMEOUT" default:"10s"`
	ChatDialTimeout      time.Duration   `envconfig:"CHAT_DIAL_TIMEOUT" default:"5s"`
	ChatReconnectBackoff []time.Duration `envconfig:"CHAT_RECONNECT_BACKOFF" default:"1s,5s,30s"`

	UploadMode     string `envconfig:"UPLOAD_MODE" default:"api"`
	ChatUploadPath string `envconfig:"CHAT_UPLOAD_PATH" default:"/chat/upload-image"`

	S3Endpoint       string `envconfig:"S3_ENDPOINT" default:"http://localhost:9000"`
	S3PublicEndpoint string `envconfig:"S3_PUBLIC_ENDPOINT"`
	S3AccessKey      string `envconfig:"S3_ACCESS_KEY" default:"minioadmin"`
	S3SecretKey      string `envconfig:"S3_SECRET_KEY" default:"minioadmin"`
	S3Bucket         string `envconfig:"S3_BUCKET" default:"recyclemart-chat"`
	S3UseSSL         bool   `envconfig:"S3_USE_SSL" default:"false"`

	SessionFile string `envconfig:"SESSION_FILE"`
	BridgeAddr  string `envconfig:"BRIDGE_ADDR" default:"127.0.0.1:8090"`
}

// Load reads .env when present, then parses configuration from the
// environment. Variables already set win over .env entries.
func Load() (Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv files. Missing files are skipped.
func LoadFiles(files ...string) (Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			slog.Debug("dotenv file not loaded", "file", f, "error", err)
		}
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.UploadMode = strings.ToLower(strings.TrimSpace(c.UploadMode))
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	c.SocketBaseURL = strings.TrimRight(strings.TrimSpace(c.SocketBaseURL), "/")
	if c.ChatNamespace != "" && !strings.HasPrefix(c.ChatNamespace, "/") {
		c.ChatNamespace = "/" + c.ChatNamespace
	}
	if c.S3PublicEndpoint == "" {
		c.S3PublicEndpoint = c.S3Endpoint
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := validateURL("API_BASE_URL", c.APIBaseURL, "http", "https"); err != nil {
		return err
	}
	if err := validateURL("SOCKET_BASE_URL", c.SocketBaseURL, "http", "https", "ws", "wss"); err != nil {
		return err
	}
	if c.ChatHistoryLimit <= 0 {
		return fmt.Errorf("config: CHAT_HISTORY_LIMIT must be positive, got %d", c.ChatHistoryLimit)
	}
	for name, d := range map[string]time.Duration{
		"HTTP_TIMEOUT":      c.HTTPTimeout,
		"CHAT_ACK_TIMEOUT":  c.ChatAckTimeout,
		"CHAT_DIAL_TIMEOUT": c.ChatDialTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive", name)
		}
	}
	for _, d := range c.ChatReconnectBackoff {
		if d <= 0 {
			return errors.New("config: CHAT_RECONNECT_BACKOFF entries must be positive")
		}
	}
	switch c.UploadMode {
	case UploadModeAPI:
	case UploadModeS3:
		if c.S3Bucket == "" {
			return errors.New("config: S3_BUCKET is required when UPLOAD_MODE=s3")
		}
	default:
		return fmt.Errorf("config: unknown UPLOAD_MODE %q", c.UploadMode)
	}
	return nil
}

// Local reports whether the environment is a developer machine.
func (c Config) Local() bool {
	return c.Env == "dev" || c.Env == "local"
}

func validateURL(name, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("config: %s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: invalid %s: %w", name, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("config: %s must be an absolute %s url", name, strings.Join(schemes, "/"))
}
