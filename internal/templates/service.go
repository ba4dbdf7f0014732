// Package templates coordinates template creation, lookup and removal: it
// compiles schemas with package ddl and hands the result to a
// storage.Repository, logging and recording metrics for every operation.
package templates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/TomascpMarques/to-orderly/internal/ddl"
	"github.com/TomascpMarques/to-orderly/internal/metrics"
	"github.com/TomascpMarques/to-orderly/internal/schema"
	"github.com/TomascpMarques/to-orderly/internal/storage"
)

// ErrInvalidTable is returned for an empty or blank template table name.
var ErrInvalidTable = errors.New("invalid template table name")

// Meta is the caller-supplied catalog metadata of a template.
type Meta struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	// Available defaults to true when omitted.
	Available *bool `json:"available,omitempty" yaml:"available,omitempty"`
}

func (m Meta) available() bool {
	if m.Available == nil {
		return true
	}
	return *m.Available
}

// Service is safe for concurrent use when its Repository is.
type Service struct {
	repo storage.Repository
	log  *slog.Logger
}

// NewService returns a Service backed by repo. A nil logger discards output.
func NewService(repo storage.Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, log: log}
}

// Code classifies err into the stable code reported to clients and used as
// the rejection metric label. It returns "" for errors without a code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, schema.ErrDuplicateField):
		return "duplicate_field"
	case errors.Is(err, schema.ErrUnimplementedConversion):
		return "unimplemented_conversion"
	case errors.Is(err, schema.ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, ErrInvalidTable):
		return "invalid_table"
	case errors.Is(err, storage.ErrBadSchema):
		return "bad_template_schema"
	case errors.Is(err, storage.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	default:
		return ""
	}
}

// Reject records a schema parse failure that happened before the service was
// reached (typically while decoding a request body).
func (s *Service) Reject(op string, err error) {
	if code := Code(err); code != "" {
		metrics.RecordRejection(code)
	}
	s.log.Info("templates: rejected", "op", op, "err", err)
}

func (s *Service) finish(op string, start time.Time, err error, attrs ...any) {
	metrics.RecordStep(op, err, time.Since(start))
	if err == nil {
		s.log.Debug("templates: "+op, attrs...)
		return
	}
	code := Code(err)
	switch code {
	case "duplicate_field", "unimplemented_conversion", "malformed_input", "invalid_table", "bad_template_schema":
		metrics.RecordRejection(code)
	}
	attrs = append(attrs, "err", err)
	if code == "" {
		s.log.Error("templates: "+op+" failed", attrs...)
		return
	}
	s.log.Info("templates: "+op+" failed", attrs...)
}

func normalizeTable(table string) (string, error) {
	t := ddl.Normalize(strings.TrimSpace(table))
	if t == "" {
		return "", fmt.Errorf("templates: %w", ErrInvalidTable)
	}
	return t, nil
}

// Compile renders the CREATE TABLE statement for src under table, along with
// its fingerprint.
func Compile(src ddl.FieldSource, table string) (stmt, fingerprint string, err error) {
	t, err := normalizeTable(table)
	if err != nil {
		return "", "", err
	}
	stmt = ddl.CreateTableStatement(src, t)
	return stmt, ddl.Fingerprint(stmt), nil
}

func (s *Service) create(ctx context.Context, op, table string, meta Meta, src ddl.FieldSource, seed *storage.Seed) (tpl storage.Template, err error) {
	start := time.Now()
	defer func() { s.finish(op, start, err, "table", table, "id", tpl.ID, "fingerprint", tpl.Fingerprint) }()

	name, err := normalizeTable(table)
	if err != nil {
		return storage.Template{}, err
	}
	stmt := ddl.CreateTableStatement(src, name)

	if strings.TrimSpace(meta.Name) == "" {
		meta.Name = table
	}
	return s.repo.CreateTemplate(ctx, storage.NewTemplate{
		Name:        meta.Name,
		Description: meta.Description,
		Available:   meta.available(),
		Table:       name,
		DDL:         stmt,
		Fingerprint: ddl.Fingerprint(stmt),
		Seed:        seed,
	})
}

// Create registers a template from a declared schema and creates its table.
func (s *Service) Create(ctx context.Context, table string, meta Meta, sch schema.Schema) (storage.Template, error) {
	return s.create(ctx, "create", table, meta, sch, nil)
}

// CreateLive registers a template from a sample object, creates its table and
// stores the sample as the table's first row.
func (s *Service) CreateLive(ctx context.Context, table string, meta Meta, live schema.LiveSchema) (storage.Template, error) {
	seed := &storage.Seed{Fields: live.Fields(), Values: live.Values()}
	return s.create(ctx, "create_live", table, meta, live, seed)
}

func (s *Service) ByID(ctx context.Context, id int64) (tpl storage.Template, err error) {
	start := time.Now()
	defer func() { s.finish("by_id", start, err, "id", id) }()
	return s.repo.TemplateByID(ctx, id)
}

// ByName returns the oldest template whose name is exactly name.
func (s *Service) ByName(ctx context.Context, name string) (tpl storage.Template, err error) {
	start := time.Now()
	defer func() { s.finish("by_name", start, err, "name", name) }()
	return s.repo.TemplateByName(ctx, name)
}

func (s *Service) ByStatus(ctx context.Context, available bool) (tpls []storage.Template, err error) {
	start := time.Now()
	defer func() { s.finish("by_status", start, err, "available", available, "count", len(tpls)) }()
	return s.repo.TemplatesByStatus(ctx, available)
}

// Search returns templates whose name contains fragment, ignoring case.
func (s *Service) Search(ctx context.Context, fragment string) (tpls []storage.Template, err error) {
	start := time.Now()
	defer func() { s.finish("search", start, err, "fragment", fragment, "count", len(tpls)) }()
	return s.repo.SearchTemplates(ctx, fragment)
}

// Drop removes the template registered for table and drops its table.
func (s *Service) Drop(ctx context.Context, table string) (err error) {
	start := time.Now()
	defer func() { s.finish("drop", start, err, "table", table) }()

	name, err := normalizeTable(table)
	if err != nil {
		return err
	}
	return s.repo.DropTemplate(ctx, name)
}
