// Package main is the entry point for the literary diary API server.
//
// main stays minimal:
//  1. Read configuration (flags, YAML, .env, environment)
//  2. Create dependencies (logger, store, token and password services)
//  3. Start the server and block until SIGINT/SIGTERM
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/literary-diary/internal/auth"
	"github.com/sakif/literary-diary/internal/config"
	"github.com/sakif/literary-diary/internal/logging"
	"github.com/sakif/literary-diary/internal/repository/sqlstore"
	"github.com/sakif/literary-diary/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: $CONFIG_FILE)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string) error {
	// === 1. CONFIGURATION ===
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		return err
	}

	// === 2. LOGGING ===
	// SetDefault so code without an injected logger still writes in the
	// configured format.
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)

	// === 3. SHUTDOWN SIGNAL ===
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === 4. DEPENDENCIES ===
	store, err := sqlstore.Open(ctx, sqlstore.Options{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		return err
	}
	logger.Info("database ready",
		slog.String("driver", store.Driver()),
	)

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		store.Close()
		return err
	}

	// === 5. SERVE ===
	// Start owns the store from here on and closes it on the way out.
	srv := server.New(server.Config{
		Port:                   cfg.Port,
		StaticDir:              cfg.StaticDir,
		AuthRateLimitPerMinute: cfg.AuthRateLimitPerMinute,
		PopularWindow:          cfg.PopularWindow,
	}, store, tokens, auth.NewPasswordService(), logger)

	return srv.Start(ctx)
}
