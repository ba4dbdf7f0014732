// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the template service.
//
// The package is intentionally minimal:
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data (histograms).
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - Concrete metric systems (Prometheus, Datadog) live in subpackages, the
//     same way storage backends live under internal/storage.
package metrics

import (
	"strconv"
	"sync"
	"time"
)

// Metric names shared by every backend.
const (
	OperationsTotal   = "templates_operations_total"
	OperationDuration = "templates_operation_duration_seconds"
	RejectionsTotal   = "templates_rejections_total"
	RequestsTotal     = "templates_http_requests_total"
	RequestDuration   = "templates_http_request_duration_seconds"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
// It is intentionally generic so we can plug in Prometheus, Datadog, etc.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStep counts one template operation (create, create_live, drop,
// query...) and records how long it took.
func RecordStep(op string, err error, d time.Duration) {
	lbls := Labels{
		"op":     op,
		"status": status(err),
	}
	b := current()
	b.IncCounter(OperationsTotal, 1, lbls)
	b.ObserveHistogram(OperationDuration, d.Seconds(), lbls)
}

// RecordRejection counts an input rejected before reaching storage. kind is
// the error code reported to the client, e.g. "duplicate_field".
func RecordRejection(kind string) {
	current().IncCounter(RejectionsTotal, 1, Labels{"kind": kind})
}

// RecordRequest counts one served HTTP request. route is the matched route
// pattern, not the raw path, to keep cardinality bounded.
func RecordRequest(method, route string, code int, d time.Duration) {
	lbls := Labels{
		"method": method,
		"route":  route,
		"code":   strconv.Itoa(code),
	}
	b := current()
	b.IncCounter(RequestsTotal, 1, lbls)
	b.ObserveHistogram(RequestDuration, d.Seconds(), lbls)
}
