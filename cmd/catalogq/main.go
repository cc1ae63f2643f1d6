package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogq/internal/app"
	"github.com/kailas-cloud/catalogq/internal/config"
	logpkg "github.com/kailas-cloud/catalogq/internal/logger"
	chiTransport "github.com/kailas-cloud/catalogq/internal/transport/chi"
	"github.com/kailas-cloud/catalogq/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting catalogq API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("namespaces", cfg.NamespaceNames()),
	)

	ctx := context.Background()
	a, err := app.New(ctx, &cfg, logger, app.Options{Instrument: true})
	if err != nil {
		logger.Fatal("Failed to wire catalog services", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Failed to close catalog storage", zap.Error(err))
		}
	}()
	a.Start(ctx)

	server := chiTransport.NewServer(a.Search, a.Catalog, a.Health, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: chiTransport.NewRouter(server, chiTransport.Auth{
			APIKeys:     cfg.Auth.APIKeys,
			PublicReads: cfg.Auth.PublicReads,
		}),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
