// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql and the pure-Go modernc driver. Template tables are created
// from the compiled DDL verbatim; their "id" column is an alias of the rowid
// and so numbers rows automatically.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TomascpMarques/to-orderly/internal/ddl"
	"github.com/TomascpMarques/to-orderly/internal/storage"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db *sql.DB
}

// Open opens a SQLite database with the pool settings the repository
// expects.
func Open(dsn string, maxOpen int) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if maxOpen <= 0 {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	return db, nil
}

// New wraps an open database. The caller keeps ownership of db.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := Open(cfg.DSN, cfg.MaxOpenConns)
	if err != nil {
		return nil, nil, err
	}

	// Apply a basic ping with context to fail fast on invalid DSNs.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys = ON;")

	closeFn := func() { db.Close() }
	return &Repository{db: db}, closeFn, nil
}

var migrations = []string{
	`create table if not exists template (
		id integer not null primary key,
		name text not null,
		description text not null,
		available boolean not null default true,
		table_name text not null unique,
		fingerprint text not null
	)`,
	`create index if not exists "idx-template_name" on template (name)`,
}

// Migrate creates the template catalog if it does not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := r.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}

// CreateTemplate inserts the catalog row, runs the template DDL and the
// optional seed insert inside one transaction. Nothing is left behind when
// any step fails.
func (r *Repository) CreateTemplate(ctx context.Context, nt storage.NewTemplate) (storage.Template, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Template{}, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`insert into template (name, description, available, table_name, fingerprint) values (?, ?, ?, ?, ?)`,
		nt.Name, nt.Description, nt.Available, nt.Table, nt.Fingerprint,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.Template{}, fmt.Errorf("sqlite: template %q: %w", nt.Table, storage.ErrAlreadyExists)
		}
		return storage.Template{}, fmt.Errorf("sqlite: insert template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storage.Template{}, fmt.Errorf("sqlite: template id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, nt.DDL); err != nil {
		return storage.Template{}, fmt.Errorf("sqlite: create table %q: %w: %w", nt.Table, storage.ErrBadSchema, err)
	}

	if s := nt.Seed; s != nil {
		stmt := ddl.InsertStatement(nt.Table, s.Fields, ddl.QuestionMark)
		if _, err := tx.ExecContext(ctx, stmt, s.Values...); err != nil {
			return storage.Template{}, fmt.Errorf("sqlite: seed %q: %w: %w", nt.Table, storage.ErrBadSchema, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storage.Template{}, fmt.Errorf("sqlite: commit: %w", err)
	}

	return storage.Template{
		ID:          id,
		Name:        nt.Name,
		Description: nt.Description,
		Available:   nt.Available,
		Table:       nt.Table,
		Fingerprint: nt.Fingerprint,
	}, nil
}

const selectTemplates = `select id, name, description, available, table_name, fingerprint from template`

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(s scanner) (storage.Template, error) {
	var t storage.Template
	err := s.Scan(&t.ID, &t.Name, &t.Description, &t.Available, &t.Table, &t.Fingerprint)
	return t, err
}

func (r *Repository) one(ctx context.Context, what string, query string, args ...any) (storage.Template, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Template{}, fmt.Errorf("sqlite: %s: %w", what, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Template{}, fmt.Errorf("sqlite: %s: %w", what, err)
	}
	return t, nil
}

func (r *Repository) many(ctx context.Context, query string, args ...any) ([]storage.Template, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query templates: %w", err)
	}
	defer rows.Close()

	out := make([]storage.Template, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: query templates: %w", err)
	}
	return out, nil
}

func (r *Repository) TemplateByID(ctx context.Context, id int64) (storage.Template, error) {
	return r.one(ctx, fmt.Sprintf("template id %d", id), selectTemplates+` where id = ?`, id)
}

func (r *Repository) TemplateByName(ctx context.Context, name string) (storage.Template, error) {
	return r.one(ctx, fmt.Sprintf("template name %q", name), selectTemplates+` where name = ? order by id limit 1`, name)
}

func (r *Repository) TemplatesByStatus(ctx context.Context, available bool) ([]storage.Template, error) {
	return r.many(ctx, selectTemplates+` where available = ? order by id`, available)
}

func (r *Repository) SearchTemplates(ctx context.Context, fragment string) ([]storage.Template, error) {
	return r.many(ctx, selectTemplates+` where lower(name) like lower(?) escape '\' order by id`, storage.LikePattern(fragment))
}

// DropTemplate deletes the catalog row and drops the template table.
func (r *Repository) DropTemplate(ctx context.Context, table string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `delete from template where table_name = ?`, table)
	if err != nil {
		return fmt.Errorf("sqlite: delete template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete template: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("sqlite: template %q: %w", table, storage.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, ddl.DropTableStatement(table)); err != nil {
		return fmt.Errorf("sqlite: drop table %q: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Exec executes an arbitrary SQL statement (typically DDL) using the underlying
// database/sql connection.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
		(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE"))
}
