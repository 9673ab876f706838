// Package api exposes the suggestion engine over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marloweh/suggestd/internal/engine"
	"github.com/marloweh/suggestd/internal/ledger"
	"github.com/marloweh/suggestd/internal/rollout"
	"github.com/marloweh/suggestd/internal/service"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server serves the suggestion endpoints and metrics exposition.
type Server struct {
	echo         *echo.Echo
	engine       *engine.Engine
	tracker      *ledger.Tracker
	transactions service.TransactionStore
	rollout      *rollout.Controller
	config       Config
	scorerInfo   func() string
}

// NewServer creates the HTTP server and registers routes.
func NewServer(eng *engine.Engine, tracker *ledger.Tracker, txns service.TransactionStore, ctrl *rollout.Controller, scorerVersion func() string, cfg Config) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if tracker == nil {
		return nil, fmt.Errorf("tracker cannot be nil")
	}
	if ctrl == nil {
		return nil, fmt.Errorf("rollout controller cannot be nil")
	}
	if txns == nil {
		return nil, fmt.Errorf("transaction store cannot be nil")
	}
	if cfg.Port == 0 {
		cfg.Port = 8900
	}
	if scorerVersion == nil {
		scorerVersion = func() string { return "none" }
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			slog.Info("http request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID))

			return err
		}
	})

	s := &Server{
		echo:         e,
		engine:       eng,
		tracker:      tracker,
		transactions: txns,
		rollout:      ctrl,
		config:       cfg,
		scorerInfo:   scorerVersion,
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ml := s.echo.Group("/ml")
	ml.POST("/suggestions", s.handleSuggestions)
	ml.POST("/suggestions/:id/accept", s.handleAccept)
	ml.GET("/status", s.handleStatus)
}

// Start runs the server until the context is canceled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	slog.Info("HTTP server listening", "addr", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
