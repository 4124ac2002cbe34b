package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calebwray/interest-radar/internal/config"
	"github.com/calebwray/interest-radar/internal/domain"
	"github.com/calebwray/interest-radar/internal/httpserver"
	"github.com/calebwray/interest-radar/internal/postgres"
	"github.com/calebwray/interest-radar/internal/redisgeo"
	"github.com/calebwray/interest-radar/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer startupCancel()

	// Interest store
	repo, err := postgres.NewRepository(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	defer repo.Close()
	if err := repo.EnsureSchema(startupCtx); err != nil {
		return err
	}
	logger.Info("connected to database")

	// Spatial index / user directory
	geo, err := redisgeo.NewStore(startupCtx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("create spatial store: %w", err)
	}
	defer geo.Close()
	logger.Info("connected to redis", "addr", cfg.RedisAddr)

	// Fanout engine
	registry := domain.NewRegistry()
	dispatcher := domain.NewDispatcher(geo, registry, cfg.NotifyRadiusMeters, cfg.SpatialTimeout, logger)

	wsHandler := ws.NewHandler(registry, cfg.AllowedOrigin, logger)
	server := httpserver.NewServer(cfg, repo, geo, dispatcher, wsHandler, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port, "radius_meters", cfg.NotifyRadiusMeters)

	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}
