package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-editor/internal/assets"
	"github.com/heimdex/heimdex-editor/internal/cloud"
	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/project"
	"github.com/heimdex/heimdex-editor/internal/render"
)

func newEDLCmd() *cobra.Command {
	var (
		outDir    string
		frameRate float64
	)

	cmd := &cobra.Command{
		Use:   "edl <project-id>",
		Short: "Write a saved project's timeline as a CMX3600 EDL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			path, err := writeEDL(cmd.Context(), cfg, args[0], outDir, frameRate)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write the EDL into")
	cmd.Flags().Float64Var(&frameRate, "fps", render.DefaultFrameRate, "timecode frame rate")
	return cmd
}

func writeEDL(ctx context.Context, cfg config.Config, projectID, outDir string, frameRate float64) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	outDir = filepath.Clean(outDir)
	if err := render.ValidateOutputDir(outDir); err != nil {
		return "", err
	}

	// stdout carries the written path.
	logger := logging.NewLoggerTo(os.Stderr, cfg.LogLevel())
	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	repo := project.NewRepository(database.Conn())
	registry := assets.NewRegistry(repo)
	if err := registry.Load(ctx); err != nil {
		return "", fmt.Errorf("failed to load assets: %w", err)
	}

	svc := project.NewService(repo, cloud.NewStubClient(logger), registry.Get, logger)
	p, tl, err := svc.Open(ctx, projectID)
	if err != nil {
		return "", err
	}

	body := render.GenerateEDL(tl.Document(), p.Name, frameRate, mediaPathFunc(registry))
	path, err := render.EDLPath(outDir, p.Name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		return "", fmt.Errorf("failed to write EDL: %w", err)
	}
	logger.Info("wrote EDL", "project_id", projectID, "path", logging.SanitizePath(path), "clips", len(tl.Document().Clips))
	return path, nil
}
