package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/TomascpMarques/to-orderly/internal/logging"
	"github.com/TomascpMarques/to-orderly/internal/metrics"
)

// observe attaches a request-scoped logger and records one log line and one
// request metric per request.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()
		rid := c.Response().Header().Get(echo.HeaderXRequestID)

		log := s.log.With("request_id", rid)
		c.SetRequest(req.WithContext(logging.WithLogger(req.Context(), log)))

		err := next(c)
		if err != nil {
			// Commit the error response now so its status is what gets logged.
			c.Error(err)
		}

		status := c.Response().Status
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		d := time.Since(start)
		metrics.RecordRequest(req.Method, route, status, d)

		attrs := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"route", route,
			"status", status,
			"duration_ms", d.Milliseconds(),
			"remote_addr", c.RealIP(),
		}
		switch {
		case status >= 500:
			log.Error("api: request", attrs...)
		default:
			log.Info("api: request", attrs...)
		}
		return nil
	}
}
