package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "storage.kind"). Message is
// human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Err joins the error-severity issues into one error, or returns nil when
// there are none. Warnings are left for the caller to log.
func Err(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	return errors.Join(errs...)
}

var (
	knownStorageKinds = map[string]bool{"sqlite": true, "postgres": true}
	knownBackends     = map[string]bool{"": true, "none": true, "prometheus": true, "datadog": true}
	knownLevels       = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	knownFormats      = map[string]bool{"json": true, "text": true}
)

// Validate performs static validation of a Config. It does not mutate c.
//
//	c, err := config.Load(path, nil)
//	if err != nil { ... }
//	issues := config.Validate(c)
//	if err := config.Err(issues); err != nil { ... }
func Validate(c Config) []Issue {
	var issues []Issue
	issues = append(issues, validateServer(c.Server)...)
	issues = append(issues, validateStorage(c.Storage)...)
	issues = append(issues, validateMetrics(c.Metrics)...)
	issues = append(issues, validateLog(c.Log)...)
	return issues
}

func validateServer(s Server) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Addr) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "server.addr",
			Message:  "server.addr must not be empty",
		})
	}
	switch {
	case s.ShutdownTimeout < 0:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "server.shutdown_timeout",
			Message:  "server.shutdown_timeout must not be negative",
		})
	case s.ShutdownTimeout == 0:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "server.shutdown_timeout",
			Message:  "server.shutdown_timeout is 0; in-flight requests are cut off on shutdown",
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	kind := strings.TrimSpace(s.Kind)
	switch {
	case kind == "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
	case !knownStorageKinds[kind]:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; want sqlite or postgres", s.Kind),
		})
	}

	dsn := strings.TrimSpace(s.DSN)
	if dsn == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  "storage.dsn must not be empty",
		})
	} else {
		switch kind {
		case "sqlite":
			if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     "storage.dsn",
					Message:  "in-memory sqlite database; templates are lost on shutdown",
				})
			}
		case "postgres":
			if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") && !strings.Contains(dsn, "=") {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     "storage.dsn",
					Message:  "storage.dsn is neither a postgres URL nor a keyword/value string",
				})
			}
		}
	}

	if s.MaxConns < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.max_conns",
			Message:  "storage.max_conns must not be negative",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	if !knownBackends[m.Backend] {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; want none, prometheus or datadog", m.Backend),
		})
		return issues
	}

	switch m.Backend {
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires metrics.datadog_addr",
			})
		}
	case "prometheus":
		if m.PushgatewayURL != "" {
			u, err := url.Parse(m.PushgatewayURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     "metrics.pushgateway_url",
					Message:  fmt.Sprintf("metrics.pushgateway_url %q is not an http(s) URL", m.PushgatewayURL),
				})
			}
		}
	}

	for i, tag := range m.Tags {
		if !strings.Contains(tag, ":") {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     fmt.Sprintf("metrics.tags[%d]", i),
				Message:  fmt.Sprintf("tag %q is not in key:value form", tag),
			})
		}
	}
	return issues
}

func validateLog(l Log) []Issue {
	var issues []Issue
	if !knownLevels[strings.ToLower(l.Level)] {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "log.level",
			Message:  fmt.Sprintf("unknown log level %q", l.Level),
		})
	}
	if !knownFormats[strings.ToLower(l.Format)] {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "log.format",
			Message:  fmt.Sprintf("unknown log format %q; want json or text", l.Format),
		})
	}
	return issues
}
