package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casesearch/config"
	"casesearch/internal/app"
	"casesearch/internal/lib/logger/sl"
	"casesearch/internal/services/form"
	"casesearch/internal/services/notify"
	"casesearch/internal/services/web"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser search UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoad(configPath)

			log := setupLogger(cfg.Env, os.Stdout)
			log.Info("casesearch serve", slog.String("env", cfg.Env), slog.String("api", cfg.API.BaseURL))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.New(log, cfg, notify.NewLog(log))
			if err != nil {
				return err
			}
			defer func() {
				if err := application.Stop(); err != nil {
					log.Error("Failed to close case cache", sl.Err(err))
				}
			}()

			handler := web.NewHandler(log, web.Deps{
				Client:   application.Client,
				PageSize: cfg.Search.PageSize,
				Form: form.Config{
					RequireText:     cfg.Search.RequireText,
					AutoSubmitDelay: cfg.Search.AutoSubmitDelay,
				},
				Language:    cfg.Search.HighlightLanguage,
				VoiceLocale: cfg.Voice.Locale,
			})
			srv := web.New(log, cfg.HTTPServer, handler)

			g, gCtx := errgroup.WithContext(ctx)

			g.Go(srv.Start)

			if application.StorageApp != nil {
				g.Go(func() error { return application.StorageApp.RunPurge(gCtx, cfg.Cache.TTL) })
			}

			g.Go(func() error {
				<-gCtx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil {
				log.Error("Server stopped with error", sl.Err(err))
				return err
			}

			log.Info("Gracefully stopped")
			return nil
		},
	}
}
