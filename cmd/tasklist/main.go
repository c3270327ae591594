package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/tasklist/internal/config"
	"github.com/dukerupert/tasklist/internal/database"
	"github.com/dukerupert/tasklist/internal/keepalive"
	"github.com/dukerupert/tasklist/internal/logging"
	"github.com/dukerupert/tasklist/internal/server"
)

func main() {
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		logging.Setup("info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, server.Options{
		Dialect:    cfg.DBDriver,
		JWTSecret:  []byte(cfg.JWTSecret),
		ClientURL:  cfg.ClientURL,
		Production: cfg.Production(),
		TrustProxy: cfg.TrustProxy,
	}, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go srv.RateLimiter().RunCleanup(ctx, 5*time.Minute)

	var pinger *keepalive.Pinger
	if cfg.BaseURL != "" {
		pinger = keepalive.NewPinger(cfg.BaseURL, cfg.KeepaliveInterval, logger.With("component", "keepalive"))
		pinger.Start(ctx)
	}

	go func() {
		logger.Info("tasklist listening",
			"port", cfg.Port,
			"env", cfg.Env,
			"db", cfg.DBDriver,
			"client_url", cfg.ClientURL,
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	if pinger != nil {
		pinger.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
