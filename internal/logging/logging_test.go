package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New("info", "json", &buf)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("templates: created", "table", "readings")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "templates: created", rec["msg"])
	assert.Equal(t, "readings", rec["table"])
	assert.Equal(t, "INFO", rec["level"])

	ts, ok := rec["time"].(string)
	require.True(t, ok)
	assert.NotContains(t, ts, ".", "RFC3339 timestamps carry no fractional seconds")
}

func TestNew_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New("debug", "text", &buf)
	require.NoError(t, err)

	l.Debug("api: request", "status", 200)
	assert.Contains(t, buf.String(), `msg="api: request"`)
	assert.Contains(t, buf.String(), "status=200")
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := New("info", "xml", &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown format")

	_, err = New("loud", "json", &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown level")
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New("info", "json", &buf)
	require.NoError(t, err)

	fallback := Discard()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))
	assert.NotNil(t, FromContext(context.Background(), nil))

	ctx := WithLogger(context.Background(), l.With("request_id", "abc"))
	FromContext(ctx, fallback).Info("x")
	assert.Contains(t, buf.String(), `"request_id":"abc"`)
}
