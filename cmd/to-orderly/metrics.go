package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/TomascpMarques/to-orderly/internal/config"
	"github.com/TomascpMarques/to-orderly/internal/metrics"
	"github.com/TomascpMarques/to-orderly/internal/metrics/datadog"
	"github.com/TomascpMarques/to-orderly/internal/metrics/prom"
)

// setupMetrics installs the configured metrics backend. It returns the
// scrape handler (Prometheus only) and a function that flushes and releases
// the backend.
func setupMetrics(cfg config.Metrics, log *slog.Logger) (http.Handler, func(), error) {
	flush := func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush error", "err", err)
		}
	}

	switch cfg.Backend {
	case "prometheus":
		b, err := prom.NewBackend(prom.Config{
			Job:               cfg.Job,
			GatewayURL:        cfg.PushgatewayURL,
			ProcessCollectors: true,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("metrics: prometheus: %w", err)
		}
		metrics.SetBackend(b)
		log.Info("metrics: enabled", "backend", cfg.Backend, "job", cfg.Job, "pushgateway", cfg.PushgatewayURL)
		return b.Handler(), flush, nil

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       cfg.DatadogAddr,
			Namespace:  cfg.Namespace,
			GlobalTags: cfg.Tags,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("metrics: datadog: %w", err)
		}
		metrics.SetBackend(b)
		log.Info("metrics: enabled", "backend", cfg.Backend, "addr", cfg.DatadogAddr)
		return nil, func() {
			flush()
			if err := b.Close(); err != nil {
				log.Warn("metrics: close error", "err", err)
			}
		}, nil

	case "", "none":
		log.Debug("metrics: disabled")
		return nil, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("metrics: unknown backend %q", cfg.Backend)
	}
}
