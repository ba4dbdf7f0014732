// Package prom implements a Prometheus backend for the metrics package.
//
// This package adapts the generic metrics.Backend interface to Prometheus by:
//
//   - Using client_golang CounterVec and SummaryVec collectors on a private
//     registry.
//   - Exposing that registry for scraping through Handler.
//   - Optionally pushing it to a Pushgateway on Flush, for short-lived
//     processes such as the compile command.
package prom

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/TomascpMarques/to-orderly/internal/metrics"
)

// Config holds Prometheus backend configuration.
type Config struct {
	// Job is the Pushgateway "job" grouping key. Defaults to "to-orderly".
	Job string
	// GatewayURL is the Pushgateway base URL, e.g. http://pushgateway:9091.
	// When empty Flush is a no-op and metrics are only scraped.
	GatewayURL string
	// ProcessCollectors adds the Go runtime and process collectors.
	ProcessCollectors bool
}

// Backend is a Prometheus metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	opCounter   *prometheus.CounterVec // templates_operations_total
	opDuration  *prometheus.SummaryVec // templates_operation_duration_seconds
	rejections  *prometheus.CounterVec // templates_rejections_total
	reqCounter  *prometheus.CounterVec // templates_http_requests_total
	reqDuration *prometheus.SummaryVec // templates_http_request_duration_seconds
}

var objectives = map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}

// NewBackend constructs a Prometheus backend with its own registry.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Job == "" {
		cfg.Job = "to-orderly"
	}

	b := &Backend{
		gatewayURL: cfg.GatewayURL,
		jobName:    cfg.Job,
		reg:        prometheus.NewRegistry(),
		opCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.OperationsTotal,
				Help: "Template operations, partitioned by operation and status.",
			},
			[]string{"op", "status"},
		),
		opDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       metrics.OperationDuration,
				Help:       "Duration of template operations in seconds.",
				Objectives: objectives,
			},
			[]string{"op", "status"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.RejectionsTotal,
				Help: "Template inputs rejected before reaching storage, by error code.",
			},
			[]string{"kind"},
		),
		reqCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.RequestsTotal,
				Help: "HTTP requests served, by method, route and status code.",
			},
			[]string{"method", "route", "code"},
		),
		reqDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       metrics.RequestDuration,
				Help:       "HTTP request latency in seconds.",
				Objectives: objectives,
			},
			[]string{"method", "route", "code"},
		),
	}

	cs := []prometheus.Collector{b.opCounter, b.opDuration, b.rejections, b.reqCounter, b.reqDuration}
	if cfg.ProcessCollectors {
		cs = append(cs,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	for _, c := range cs {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prom: register collector: %w", err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.OperationsTotal:
		if b.opCounter != nil {
			b.opCounter.WithLabelValues(labels["op"], labels["status"]).Add(delta)
		}
	case metrics.RejectionsTotal:
		if b.rejections != nil {
			b.rejections.WithLabelValues(labels["kind"]).Add(delta)
		}
	case metrics.RequestsTotal:
		if b.reqCounter != nil {
			b.reqCounter.WithLabelValues(labels["method"], labels["route"], labels["code"]).Add(delta)
		}
	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	switch name {
	case metrics.OperationDuration:
		if b.opDuration != nil {
			b.opDuration.WithLabelValues(labels["op"], labels["status"]).Observe(value)
		}
	case metrics.RequestDuration:
		if b.reqDuration != nil {
			b.reqDuration.WithLabelValues(labels["method"], labels["route"], labels["code"]).Observe(value)
		}
	}
}

// Handler serves the backend's registry in the Prometheus exposition format.
func (b *Backend) Handler() http.Handler {
	return promhttp.HandlerFor(b.reg, promhttp.HandlerOpts{Registry: b.reg})
}

// Registry returns the backend's private registry.
func (b *Backend) Registry() *prometheus.Registry { return b.reg }

// Flush pushes the current registry to the Pushgateway when one is
// configured.
func (b *Backend) Flush() error {
	if b.gatewayURL == "" {
		return nil
	}
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
