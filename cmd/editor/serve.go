package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-editor/internal/api"
	"github.com/heimdex/heimdex-editor/internal/assets"
	"github.com/heimdex/heimdex-editor/internal/cloud"
	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/project"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/session"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the editor API on the loopback interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return serve(cfg)
		},
	}
}

func serve(cfg config.Config) error {
	startTime := time.Now()

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting heimdex editor", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := project.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Heimdex Editor %s\n", config.Version)
	fmt.Printf("  API URL:    http://127.0.0.1:%d\n", cfg.Port())
	fmt.Printf("  Auth Token: %s\n", authToken)
	fmt.Println()

	client := newCloudClient(cfg, logger)

	registry := assets.NewRegistry(repo)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := registry.Load(ctx); err != nil {
		return fmt.Errorf("failed to load assets: %w", err)
	}

	storage, err := assets.NewLocalStorage(cfg.MediaDir())
	if err != nil {
		return fmt.Errorf("failed to prepare media dir: %w", err)
	}
	prober := assets.NewFFprobe(cfg.FFprobePath())
	if !prober.Available() {
		logger.Warn("ffprobe not found, video uploads will be rejected", "path", cfg.FFprobePath())
	}
	ingestor := assets.NewIngestor(registry, repo, storage, prober, client,
		assets.IngestConfig{QuotaBytes: cfg.QuotaBytes()}, logging.WithComponent(logger, "assets"))

	projects := project.NewService(repo, client, registry.Get, logging.WithComponent(logger, "project"))
	exporter := render.NewExporter(client, repo, render.ExporterOptions{
		PollInterval: cfg.ExportPollInterval(),
		Logger:       logging.WithComponent(logger, "render"),
	})
	defer exporter.Close()

	sessions := session.NewManager(session.Deps{
		Assets:         registry.Get,
		Projects:       projects,
		Exporter:       exporter,
		AutosaveDelay:  cfg.AutosaveDelay(),
		DriftThreshold: cfg.DriftThreshold(),
		MediaPath:      mediaPathFunc(registry),
		Logger:         logger,
	})

	apiServer := api.NewServer(api.ServerConfig{
		Port:      cfg.Port(),
		Sessions:  sessions,
		Projects:  projects,
		Assets:    registry,
		Ingest:    ingestor,
		Media:     playback.NewMediaServer(registry, logging.WithComponent(logger, "media")),
		Config:    repo,
		Remote:    client.Remote(),
		Logger:    logger,
		StartTime: startTime,
		Version:   config.Version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("HTTP server error", "error", serveErr)
		}
	}

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	// Closing sessions writes any edits still waiting for autosave.
	if err := sessions.CloseAll(shutdownCtx); err != nil {
		logger.Error("failed to close sessions", "error", err)
	}

	logger.Info("shutdown complete")
	return serveErr
}

func newCloudClient(cfg config.Config, logger *slog.Logger) cloud.Client {
	if cfg.PlatformURL() == "" && cfg.RenderURL() == "" {
		logger.Info("no platform configured, running offline")
		return cloud.NewStubClient(logging.WithComponent(logger, "cloud"))
	}
	logger.Info("platform sync enabled",
		"platform_url", cfg.PlatformURL(),
		"render_url", cfg.RenderURL(),
		"token", logging.SanitizeToken(cfg.PlatformToken()))
	return cloud.NewHTTPClient(
		cloud.Endpoint{BaseURL: cfg.PlatformURL(), Token: cfg.PlatformToken()},
		cloud.Endpoint{BaseURL: cfg.RenderURL(), Token: cfg.RenderToken()},
		logging.WithComponent(logger, "cloud"),
	)
}

func mediaPathFunc(registry *assets.Registry) render.MediaPathFunc {
	return func(assetID string) string {
		path, err := registry.MediaPath(assetID)
		if err != nil {
			return ""
		}
		return path
	}
}

func ensureAuthToken(repo project.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}

	return token, nil
}
