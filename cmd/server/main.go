package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/ImageFinder/internal/bus"
	"github.com/JonMunkholm/ImageFinder/internal/config"
	"github.com/JonMunkholm/ImageFinder/internal/core"
	"github.com/JonMunkholm/ImageFinder/internal/imagegen"
	"github.com/JonMunkholm/ImageFinder/internal/logging"
	"github.com/JonMunkholm/ImageFinder/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	closeLog, err := logging.Setup(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer closeLog()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"provider", cfg.Generation.ResolvedProvider(),
		"window_size", cfg.Batch.WindowSize,
		"images_per_item", cfg.Generation.ImagesPerItem,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"events", cfg.Events.NATSURL != "",
	)
	slog.Debug("configuration", "config", cfg.String())

	gen, err := newGenerator(&cfg.Generation)
	if err != nil {
		slog.Error("failed to create image generator", "error", err)
		os.Exit(1)
	}

	service := core.NewService(imagegen.NewClient(gen, cfg.Generation.ImagesPerItem), core.ServiceConfig{
		WindowSize:    cfg.Batch.WindowSize,
		SessionTTL:    cfg.Session.TTL,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxUploadWait: cfg.Upload.MaxWaitTime,
		PreviewRows:   cfg.Upload.PreviewRows,
	})

	if cfg.Events.NATSURL != "" {
		nc, err := bus.Connect(cfg.Events.NATSURL)
		if err != nil {
			slog.Error("failed to connect to NATS", "url", cfg.Events.NATSURL, "error", err)
			os.Exit(1)
		}
		defer nc.Close()
		service.WithEventSink(bus.NewItemEvents(nc, cfg.Events.Subject))
		slog.Info("publishing item events", "subject", cfg.Events.Subject)
	}

	server, err := web.NewServer(cfg, service)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	go service.StartSessionJanitor(jobCtx, cfg.Session.JanitorInterval)

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let windows in flight settle so their events reach open streams
		if err := service.Wait(shutdownCtx); err != nil {
			slog.Warn("windows did not complete in time", "error", err)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}

func newGenerator(cfg *config.GenerationConfig) (imagegen.Generator, error) {
	if cfg.ResolvedProvider() == config.ProviderPlaceholder {
		slog.Warn("no image API key configured, generating placeholder images")
		return imagegen.NewPlaceholder(cfg.PlaceholderSize), nil
	}
	return imagegen.NewGemini(imagegen.GeminiConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.RequestTimeout,
	})
}
