// Package postgres implements a Postgres-backed storage.Repository using pgx
// v5. Template tables run the compiled DDL verbatim; an identity is attached
// to their "id" column afterwards, in the same transaction, so rows are
// numbered the way SQLite's rowid alias numbers them.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TomascpMarques/to-orderly/internal/ddl"
	"github.com/TomascpMarques/to-orderly/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN      string // connection string for pgxpool
	MaxConns int32  // pool size; zero keeps the pgxpool default
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	close := func() { pool.Close() }
	return &Repository{pool: pool}, close, nil
}

var migrations = []string{
	`create table if not exists template (
		id integer generated by default as identity primary key,
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
		if _, err := r.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}

// IdentityStatement renders the statement that turns the implicit id column
// of table into an auto-numbered identity.
func IdentityStatement(table string) string {
	return fmt.Sprintf("alter table %s alter column %s add generated by default as identity",
		ddl.Quote(table), ddl.Quote(ddl.IDColumn))
}

// CreateTemplate inserts the catalog row, runs the template DDL, attaches the
// id identity and inserts the optional seed row inside one transaction.
func (r *Repository) CreateTemplate(ctx context.Context, nt storage.NewTemplate) (storage.Template, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storage.Template{}, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx,
		`insert into template (name, description, available, table_name, fingerprint) values ($1, $2, $3, $4, $5) returning id`,
		nt.Name, nt.Description, nt.Available, nt.Table, nt.Fingerprint,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.Template{}, fmt.Errorf("postgres: template %q: %w", nt.Table, storage.ErrAlreadyExists)
		}
		return storage.Template{}, fmt.Errorf("postgres: insert template: %w", err)
	}

	if _, err := tx.Exec(ctx, nt.DDL); err != nil {
		return storage.Template{}, fmt.Errorf("postgres: create table %q: %w: %w", nt.Table, storage.ErrBadSchema, describe(err))
	}
	if _, err := tx.Exec(ctx, IdentityStatement(nt.Table)); err != nil {
		return storage.Template{}, fmt.Errorf("postgres: identity %q: %w", nt.Table, describe(err))
	}

	if s := nt.Seed; s != nil {
		stmt := ddl.InsertStatement(nt.Table, s.Fields, ddl.Dollar)
		if _, err := tx.Exec(ctx, stmt, s.Values...); err != nil {
			return storage.Template{}, fmt.Errorf("postgres: seed %q: %w: %w", nt.Table, storage.ErrBadSchema, describe(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.Template{}, fmt.Errorf("postgres: commit: %w", err)
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

func scanTemplate(row pgx.Row) (storage.Template, error) {
	var t storage.Template
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Available, &t.Table, &t.Fingerprint)
	return t, err
}

func (r *Repository) one(ctx context.Context, what string, query string, args ...any) (storage.Template, error) {
	t, err := scanTemplate(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Template{}, fmt.Errorf("postgres: %s: %w", what, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Template{}, fmt.Errorf("postgres: %s: %w", what, err)
	}
	return t, nil
}

func (r *Repository) many(ctx context.Context, query string, args ...any) ([]storage.Template, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query templates: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.Template, error) {
		return scanTemplate(row)
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: query templates: %w", err)
	}
	if out == nil {
		out = []storage.Template{}
	}
	return out, nil
}

func (r *Repository) TemplateByID(ctx context.Context, id int64) (storage.Template, error) {
	return r.one(ctx, fmt.Sprintf("template id %d", id), selectTemplates+` where id = $1`, id)
}

func (r *Repository) TemplateByName(ctx context.Context, name string) (storage.Template, error) {
	return r.one(ctx, fmt.Sprintf("template name %q", name), selectTemplates+` where name = $1 order by id limit 1`, name)
}

func (r *Repository) TemplatesByStatus(ctx context.Context, available bool) ([]storage.Template, error) {
	return r.many(ctx, selectTemplates+` where available = $1 order by id`, available)
}

func (r *Repository) SearchTemplates(ctx context.Context, fragment string) ([]storage.Template, error) {
	return r.many(ctx, selectTemplates+` where name ilike $1 escape '\' order by id`, storage.LikePattern(fragment))
}

// DropTemplate deletes the catalog row and drops the template table.
func (r *Repository) DropTemplate(ctx context.Context, table string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `delete from template where table_name = $1`, table)
	if err != nil {
		return fmt.Errorf("postgres: delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: template %q: %w", table, storage.ErrNotFound)
	}
	if _, err := tx.Exec(ctx, ddl.DropTableStatement(table)); err != nil {
		return fmt.Errorf("postgres: drop table %q: %w", table, describe(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// Exec executes a single SQL statement on a pooled connection.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", describe(err))
	}
	return nil
}

const sqlStateUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation
}

// describe folds the server's detail line into the error text while keeping
// the *pgconn.PgError reachable through errors.As.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s)", err, pgErr.Detail)
	}
	return err
}
