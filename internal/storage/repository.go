// Package storage defines the backend-agnostic template catalog contract and
// a small registry of backend constructors.
//
// Backends (sqlite, postgres) register a Factory for their kind in init.
// Callers import internal/storage/all for the side effects and then obtain a
// Repository through New without naming a backend:
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: "file:templates.db"})
//	if err != nil { ... }
//	defer repo.Close()
//	if err := repo.Migrate(ctx); err != nil { ... }
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/TomascpMarques/to-orderly/internal/schema"
)

var (
	// ErrNotFound is returned when no template matches a lookup.
	ErrNotFound = errors.New("template not found")
	// ErrAlreadyExists is returned when a template's table is already
	// registered in the catalog.
	ErrAlreadyExists = errors.New("template already exists")
	// ErrBadSchema is returned when the database rejects a compiled template
	// table (duplicate column after lower-casing, clashing table, bad seed
	// row).
	ErrBadSchema = errors.New("template schema rejected by database")
)

// Template is one row of the template catalog.
type Template struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	Table       string `json:"table"`
	Fingerprint string `json:"fingerprint"`
}

// Seed is a single row inserted into a freshly created template table.
// Values line up with Fields.
type Seed struct {
	Fields []schema.Field
	Values []any
}

// NewTemplate is everything CreateTemplate needs: catalog metadata, the
// compiled CREATE TABLE statement and an optional first row.
type NewTemplate struct {
	Name        string
	Description string
	Available   bool
	Table       string
	DDL         string
	Fingerprint string
	Seed        *Seed
}

// Repository is the template catalog plus the template tables it owns.
type Repository interface {
	// Migrate creates the catalog table and its indices if missing.
	Migrate(ctx context.Context) error

	// CreateTemplate records the template in the catalog, executes its DDL
	// and inserts the optional seed row in one transaction.
	CreateTemplate(ctx context.Context, t NewTemplate) (Template, error)

	TemplateByID(ctx context.Context, id int64) (Template, error)
	// TemplateByName returns the oldest template with exactly this name.
	TemplateByName(ctx context.Context, name string) (Template, error)
	TemplatesByStatus(ctx context.Context, available bool) ([]Template, error)
	// SearchTemplates returns templates whose name contains fragment,
	// ignoring case.
	SearchTemplates(ctx context.Context, fragment string) ([]Template, error)

	// DropTemplate removes the catalog row for table and drops the table.
	DropTemplate(ctx context.Context, table string) error

	Exec(ctx context.Context, sql string) error
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
	// MaxConns caps the connection pool; zero keeps the backend default.
	MaxConns int
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the Factory for kind.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the Factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LikePattern turns fragment into a LIKE pattern matching any string that
// contains it. Wildcards in fragment are escaped with '\'.
func LikePattern(fragment string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(fragment) + "%"
}
