package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chatapp "recyclemart/internal/app/chat"
	"recyclemart/internal/infra/bootstrap"
	"recyclemart/internal/infra/config"
	ginserver "recyclemart/internal/infra/http/gin"
	"recyclemart/internal/infra/notify"
	"recyclemart/internal/infra/obs"
)

func main() {
	link := flag.String("link", "", "chat location to open, e.g. /chat?adId=A1&participantId=U2")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("prod", "info", os.Stderr).Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel, os.Stderr)

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	loc, err := chatapp.NewLocation(*link)
	if err != nil {
		logger.Error("invalid chat link", "error", err, "link", *link)
		os.Exit(1)
	}

	notices := notify.NewRecorder(100)
	session, err := app.ChatSession(notify.Fanout{notices, notify.NewConsole(os.Stdout)}, loc)
	if err != nil {
		logger.Error("chat session setup failed", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	go func() {
		if err := session.Start(ctx); err != nil {
			logger.Warn("chat session not started", "error", err)
		}
	}()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Checks: []obs.Check{{Name: "chat", Probe: session.Conn.Ready}},
	}, ginserver.Handlers{
		Chat: ginserver.ChatHandler{
			Session: session,
			Notices: notices,
			Logger:  logger.With("component", "bridge"),
		},
		Catalog: ginserver.CatalogHandler{
			API:    app.API,
			Logger: logger.With("component", "bridge"),
		},
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("chat bridge starting", "addr", cfg.BridgeAddr, "location", loc.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("chat bridge stopped")
}
