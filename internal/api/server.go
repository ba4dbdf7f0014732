// Package api exposes the template service over HTTP.
//
// Routes:
//
//	GET    /api/templates?id=|active=|name_s=|name=  query the catalog
//	POST   /api/templates/:template                  create from a declared schema
//	POST   /api/templates/live/:template             create from a sample object
//	DELETE /api/templates/:template                  drop a template
//	GET    /metrics                                  when a metrics handler is set
//
// Every other path answers 404 {"reason": "The requested resource was not found."}.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/TomascpMarques/to-orderly/internal/templates"
)

// Config controls server startup.
type Config struct {
	Addr string
	// BodyLimit caps request bodies ("1M", "512K"); empty disables the cap.
	BodyLimit       string
	ShutdownTimeout time.Duration
	// Metrics, when non-nil, is served at /metrics.
	Metrics http.Handler
}

// Server wraps an echo instance bound to a templates.Service.
type Server struct {
	cfg Config
	e   *echo.Echo
	svc *templates.Service
	log *slog.Logger
}

// NewServer constructs a Server with its middleware and routes.
func NewServer(cfg Config, svc *templates.Service, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}

	s := &Server{cfg: cfg, e: e, svc: svc, log: log}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.observe)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.log.Error("api: panic", "path", c.Path(), "err", err, "stack", string(stack))
			return err
		},
	}))
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	g := s.e.Group("/api/templates")
	g.GET("", s.handleQuery)
	g.GET("/", s.handleQuery)
	g.POST("/live/:template", s.handleCreateLive)
	g.POST("/:template", s.handleCreate)
	g.DELETE("/:template", s.handleDrop)

	if s.cfg.Metrics != nil {
		s.e.GET("/metrics", echo.WrapHandler(s.cfg.Metrics))
	}
}

// Handler returns the server's root http.Handler.
func (s *Server) Handler() http.Handler { return s.e }

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	errCh := make(chan error, 1)
	s.e.Listener = l
	go func() {
		s.log.Info("api: listening", "addr", l.Addr().String())
		errCh <- s.e.Start("")
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: serve: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("api: shutting down", "timeout", timeout)
	if err := s.e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: serve: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, l)
}
