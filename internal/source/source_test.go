package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	if _, ok := Resolve("-", strings.NewReader(""), nil).(*Stdin); !ok {
		t.Fatalf("Resolve(-) is not *Stdin")
	}
	if _, ok := Resolve("", strings.NewReader(""), nil).(*Stdin); !ok {
		t.Fatalf("Resolve(\"\") is not *Stdin")
	}
	if _, ok := Resolve("https://example.com/s.json", nil, nil).(*Remote); !ok {
		t.Fatalf("Resolve(https) is not *Remote")
	}
	if _, ok := Resolve("schema.yaml", nil, nil).(*Local); !ok {
		t.Fatalf("Resolve(path) is not *Local")
	}
}

func TestLocal(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "schema.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o600); err != nil {
		t.Fatal(err)
	}

	data, err := ReadAll(context.Background(), NewLocal(path), 0)
	if err != nil || string(data) != "[]" {
		t.Fatalf("ReadAll() = (%q, %v), want ([], nil)", data, err)
	}

	_, err = NewLocal(filepath.Join(t.TempDir(), "missing")).Open(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Open(missing) error = %v, want os.ErrNotExist", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocal(path).Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Open(canceled) error = %v, want context.Canceled", err)
	}
}

func TestReadAll_Limit(t *testing.T) {
	t.Parallel()

	src := NewStdin(strings.NewReader("0123456789"))
	if _, err := ReadAll(context.Background(), src, 4); err == nil {
		t.Fatalf("ReadAll over limit = nil error, want error")
	}

	src = NewStdin(strings.NewReader("0123"))
	data, err := ReadAll(context.Background(), src, 4)
	if err != nil || string(data) != "0123" {
		t.Fatalf("ReadAll at limit = (%q, %v)", data, err)
	}
}

func fastClient(retries int) *Client {
	return NewClient(Config{
		MaxRetries:     retries,
		Timeout:        2 * time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
}

func TestRemote_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `[{"name":"a","type":"text"}]`)
	}))
	defer srv.Close()

	data, err := ReadAll(context.Background(), fastClient(3).Remote(srv.URL), 0)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != `[{"name":"a","type":"text"}]` {
		t.Fatalf("body = %q", data)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("hits = %d, want 3", got)
	}
}

func TestRemote_GivesUp(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := fastClient(2).Remote(srv.URL).Open(context.Background())
	if err == nil || !strings.Contains(err.Error(), "retryable status 429") {
		t.Fatalf("Open() error = %v, want retryable status 429", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("hits = %d, want 3", got)
	}
}

func TestRemote_NonRetryableStatus(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := fastClient(3).Remote(srv.URL).Open(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("Open() error = %v, want status 404", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("hits = %d, want 1", got)
	}
}

func TestBackoffDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{5, time.Second},
		{80, time.Second},
	}
	for _, tt := range tests {
		if got := backoffDuration(100*time.Millisecond, tt.attempt, time.Second); got != tt.want {
			t.Fatalf("backoffDuration(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestSleepWithContext_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepWithContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("sleepWithContext() = %v, want context.Canceled", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{MaxRetries: -3})
	if c.http.Timeout != defaultTimeout {
		t.Fatalf("Timeout = %v, want %v", c.http.Timeout, defaultTimeout)
	}
	if c.retries != 0 {
		t.Fatalf("retries = %d, want 0", c.retries)
	}
	if c.base != defaultInitialBackoff || c.ceiling != defaultMaxBackoff {
		t.Fatalf("backoff = %v..%v, want %v..%v", c.base, c.ceiling, defaultInitialBackoff, defaultMaxBackoff)
	}
}
