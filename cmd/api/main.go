package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nomnomhub/internal/api"
	"nomnomhub/internal/app"
	"nomnomhub/internal/config"
)

// Standalone local API server; "nomnom serve" runs the same handler
func main() {
	cfg, err := config.Load()
	logger := app.NewLogger(os.Stderr, cfg.LogLevel, false)
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}

	appCtx, err := app.Open(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open application state", "error", err)
	}

	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           api.NewServer(appCtx, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed", "error", err)
		}
	}()

	logger.Info("API server starting", "addr", cfg.APIAddr, "editors", cfg.EditorsPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed", "error", err)
	}
}
