package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"casesearch/config"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	log     *slog.Logger
	e       *echo.Echo
	address string
}

func New(log *slog.Logger, cfg config.HTTPServerConfig, h *Handler) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = NewTemplate()

	e.Server.ReadTimeout = cfg.Timeout
	e.Server.WriteTimeout = cfg.Timeout
	e.Server.IdleTimeout = cfg.IdleTimeout

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogError:     true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Int64("latency_ms", v.Latency.Milliseconds()),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				log.Error("request failed", append(attrs, slog.String("error", v.Error.Error()))...)
				return nil
			}
			log.Info("request completed", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/", h.Search)
	e.GET("/cases/:id", h.Case)
	e.GET("/statistics", h.Statistics)
	e.GET("/healthz", h.Health)

	return &Server{log: log, e: e, address: cfg.Address}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.e }

// Start blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) Start() error {
	const op = "web.Start"

	s.log.Info("starting http server", slog.String("address", s.address))

	if err := s.e.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	const op = "web.Shutdown"

	s.log.Info("shutting down http server")

	if err := s.e.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
