// Package source resolves a schema input reference ("-" for stdin, a local
// path, or an http(s) URL) to a reader.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source opens schema bytes for reading.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Stdin reads from an already open stream. Close does not close it.
type Stdin struct{ r io.Reader }

func NewStdin(r io.Reader) *Stdin { return &Stdin{r: r} }

func (s *Stdin) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(s.r), nil
}

// Local opens a file from the local disk.
type Local struct{ path string }

func NewLocal(path string) *Local { return &Local{path: path} }

// Open returns the context error without touching the filesystem when ctx is
// already done. Filesystem errors keep their cause for errors.Is.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Resolve picks the Source for ref. URLs are fetched with client, which may
// be nil for a default client.
func Resolve(ref string, stdin io.Reader, client *Client) Source {
	switch {
	case ref == "" || ref == "-":
		return NewStdin(stdin)
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		if client == nil {
			client = NewClient(Config{MaxRetries: 2})
		}
		return client.Remote(ref)
	default:
		return NewLocal(ref)
	}
}

// ReadAll opens src and reads at most limit bytes from it; a larger input is
// an error. A limit <= 0 means no cap.
func ReadAll(ctx context.Context, src Source, limit int64) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if limit <= 0 {
		return io.ReadAll(rc)
	}
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("source: input exceeds %d bytes", limit)
	}
	return data, nil
}
