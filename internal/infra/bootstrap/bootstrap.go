// Package bootstrap assembles the client from configuration.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	authapp "recyclemart/internal/app/auth"
	chatapp "recyclemart/internal/app/chat"
	domainauth "recyclemart/internal/domain/auth"
	"recyclemart/internal/infra/api"
	"recyclemart/internal/infra/config"
	"recyclemart/internal/infra/messaging"
	"recyclemart/internal/infra/storage/file"
	"recyclemart/internal/infra/storage/memory"
	"recyclemart/internal/infra/storage/s3"
)

// MemorySessions selects the in-process session store.
const MemorySessions = "memory"

type App struct {
	Config   config.Config
	Logger   *slog.Logger
	API      *api.Client
	Sessions domainauth.SessionStore
	Auth     *authapp.Service
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := api.NewClient(api.Config{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.HTTPTimeout,
		UploadPath: cfg.ChatUploadPath,
	}, logger.With("component", "api"))
	if err != nil {
		return nil, err
	}
	sessions, err := SessionStore(cfg)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:   cfg,
		Logger:   logger,
		API:      client,
		Sessions: sessions,
		Auth:     &authapp.Service{Store: sessions, API: client, Logger: logger.With("component", "auth")},
	}, nil
}

// SessionStore picks the file store at SESSION_FILE, the default config
// path when unset, or memory when SESSION_FILE=memory.
func SessionStore(cfg config.Config) (domainauth.SessionStore, error) {
	if cfg.SessionFile == MemorySessions {
		return memory.NewSessionStore(), nil
	}
	path := cfg.SessionFile
	if path == "" {
		var err error
		if path, err = file.DefaultSessionPath(); err != nil {
			return nil, err
		}
	}
	return file.NewSessionStore(path)
}

// ImageStore returns the upload backend selected by UPLOAD_MODE.
func (a *App) ImageStore() (chatapp.ImageStore, error) {
	switch a.Config.UploadMode {
	case config.UploadModeS3:
		return s3.NewImageStore(s3.Config{
			Endpoint:       a.Config.S3Endpoint,
			PublicEndpoint: a.Config.S3PublicEndpoint,
			AccessKey:      a.Config.S3AccessKey,
			SecretKey:      a.Config.S3SecretKey,
			Bucket:         a.Config.S3Bucket,
			UseSSL:         a.Config.S3UseSSL,
		}, a.Logger.With("component", "s3"))
	case config.UploadModeAPI, "":
		return a.API, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown upload mode %q", a.Config.UploadMode)
	}
}

func (a *App) Dialer() messaging.Dialer {
	return messaging.Dialer{
		Config: messaging.Config{
			URL:              a.Config.SocketBaseURL,
			Namespace:        a.Config.ChatNamespace,
			DialTimeout:      a.Config.ChatDialTimeout,
			CallTimeout:      a.Config.ChatAckTimeout,
			ReconnectBackoff: a.Config.ChatReconnectBackoff,
		},
		Logger: a.Logger.With("component", "socket"),
	}
}

// ChatSession builds a chat session authenticated through the auth service.
func (a *App) ChatSession(notifier chatapp.Notifier, loc *chatapp.Location) (*chatapp.Session, error) {
	images, err := a.ImageStore()
	if err != nil {
		return nil, err
	}
	return chatapp.NewSession(chatapp.SessionDeps{
		Dialer:       a.Dialer(),
		Tokens:       a.Auth,
		Images:       images,
		Notifier:     notifier,
		Logger:       a.Logger.With("component", "chat"),
		HistoryLimit: a.Config.ChatHistoryLimit,
		Location:     loc,
	}), nil
}

// LogPath is LOG_FILE or chat.log next to the default session file.
func LogPath(cfg config.Config) string {
	if cfg.LogFile != "" {
		return cfg.LogFile
	}
	if p, err := file.DefaultSessionPath(); err == nil {
		return filepath.Join(filepath.Dir(p), "chat.log")
	}
	return filepath.Join(os.TempDir(), "recyclemart-chat.log")
}
