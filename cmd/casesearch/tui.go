package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"casesearch/config"
	"casesearch/internal/app"
	"casesearch/internal/lib/logger/sl"
	"casesearch/internal/services/cui"

	"github.com/spf13/cobra"
)

func tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoad(configPath)

			// The terminal belongs to the UI, so logs go to a file.
			logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer logFile.Close()

			log := setupLogger(cfg.Env, logFile)
			log.Info("casesearch tui", slog.String("env", cfg.Env), slog.String("api", cfg.API.BaseURL))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.New(log, cfg, nil)
			if err != nil {
				return err
			}
			defer func() {
				if err := application.Stop(); err != nil {
					log.Error("Failed to close case cache", sl.Err(err))
				}
			}()

			ui, err := cui.New(ctx, log, application)
			if err != nil {
				return err
			}
			defer ui.Close()

			if err := ui.Start(); err != nil {
				return err
			}

			log.Info("Gracefully stopped")
			return nil
		},
	}
}
