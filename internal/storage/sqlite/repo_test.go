package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/TomascpMarques/to-orderly/internal/ddl"
	"github.com/TomascpMarques/to-orderly/internal/schema"
	"github.com/TomascpMarques/to-orderly/internal/storage"
)

/*
Package-level test helpers (TB-aware)
*/

func newMemDB(tb testing.TB) *sql.DB {
	tb.Helper()
	db, err := Open(":memory:", 1)
	if err != nil {
		tb.Fatalf("open sqlite :memory:: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	return db
}

func newRepo(tb testing.TB) *Repository {
	tb.Helper()
	r := New(newMemDB(tb))
	if err := r.Migrate(context.Background()); err != nil {
		tb.Fatalf("Migrate: %v", err)
	}
	return r
}

func declaredTemplate(tb testing.TB, table, decl string) storage.NewTemplate {
	tb.Helper()
	s, err := schema.ParseDeclared([]byte(decl))
	if err != nil {
		tb.Fatalf("ParseDeclared(%s): %v", decl, err)
	}
	stmt := ddl.CreateTableStatement(s, table)
	return storage.NewTemplate{
		Name:        table + " template",
		Description: "test",
		Available:   true,
		Table:       ddl.Normalize(table),
		DDL:         stmt,
		Fingerprint: ddl.Fingerprint(stmt),
	}
}

func tableColumns(tb testing.TB, r *Repository, table string) []string {
	tb.Helper()
	rows, err := r.db.QueryContext(context.Background(), fmt.Sprintf("select name from pragma_table_info('%s') order by cid", table))
	if err != nil {
		tb.Fatalf("table_info: %v", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			tb.Fatalf("scan: %v", err)
		}
		cols = append(cols, c)
	}
	return cols
}

/*
Unit tests
*/

// TestMigrateIsIdempotent runs Migrate twice on the same database.
func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	if err := r.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

// TestCreateTemplate verifies the catalog row and the template table are both
// created, and that the compiled DDL runs natively.
func TestCreateTemplate(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()

	nt := declaredTemplate(t, "test_t", `[{"name":"temperature","type":"integer","nullable":true},{"name":"device","type":"text"}]`)
	got, err := r.CreateTemplate(ctx, nt)
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if got.ID == 0 {
		t.Fatalf("CreateTemplate returned zero id")
	}
	if got.Table != "test_t" || got.Fingerprint != nt.Fingerprint {
		t.Fatalf("CreateTemplate = %+v", got)
	}

	cols := tableColumns(t, r, "test_t")
	want := []string{"temperature", "device", "id"}
	if strings.Join(cols, ",") != strings.Join(want, ",") {
		t.Fatalf("columns = %v, want %v", cols, want)
	}

	// id is a rowid alias: rows inserted without it are numbered.
	for i := 0; i < 2; i++ {
		if err := r.Exec(ctx, `insert into "test_t" ("temperature", "device") values (1, 'x')`); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	var maxID int64
	if err := r.db.QueryRowContext(ctx, `select max(id) from "test_t"`).Scan(&maxID); err != nil {
		t.Fatalf("select max(id): %v", err)
	}
	if maxID != 2 {
		t.Fatalf("max(id) = %d, want 2", maxID)
	}

	byID, err := r.TemplateByID(ctx, got.ID)
	if err != nil {
		t.Fatalf("TemplateByID: %v", err)
	}
	if byID != got {
		t.Fatalf("TemplateByID = %+v, want %+v", byID, got)
	}
}

// TestCreateTemplateWithSeed checks that the seed row is stored with the
// sampled values.
func TestCreateTemplateWithSeed(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()

	live, err := schema.ParseLive([]byte(`{"temperature":23.2,"active":false,"device":"AmberRoomTemp","count":4}`))
	if err != nil {
		t.Fatalf("ParseLive: %v", err)
	}
	stmt := ddl.CreateTableStatement(live, "room")
	_, err = r.CreateTemplate(ctx, storage.NewTemplate{
		Name:        "room",
		Available:   true,
		Table:       "room",
		DDL:         stmt,
		Fingerprint: ddl.Fingerprint(stmt),
		Seed:        &storage.Seed{Fields: live.Fields(), Values: live.Values()},
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	var (
		temp   float64
		active bool
		device string
		count  int64
		id     int64
	)
	row := r.db.QueryRowContext(ctx, `select "temperature", "active", "device", "count", "id" from "room"`)
	if err := row.Scan(&temp, &active, &device, &count, &id); err != nil {
		t.Fatalf("scan seed row: %v", err)
	}
	if temp != 23.2 || active || device != "AmberRoomTemp" || count != 4 || id != 1 {
		t.Fatalf("seed row = (%v, %v, %q, %d, %d)", temp, active, device, count, id)
	}
}

// TestCreateTemplateDuplicateTable verifies that a second template for the
// same table is rejected and leaves the first intact.
func TestCreateTemplateDuplicateTable(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()

	if _, err := r.CreateTemplate(ctx, declaredTemplate(t, "dup", `[{"name":"a","type":"text"}]`)); err != nil {
		t.Fatalf("first CreateTemplate: %v", err)
	}
	_, err := r.CreateTemplate(ctx, declaredTemplate(t, "DUP", `[{"name":"b","type":"bool"}]`))
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("second CreateTemplate error = %v, want ErrAlreadyExists", err)
	}

	if cols := tableColumns(t, r, "dup"); strings.Join(cols, ",") != "a,id" {
		t.Fatalf("columns after rejected duplicate = %v", cols)
	}
}

// TestCreateTemplateBadSchemaRollsBack covers DDL the database refuses: the
// catalog row must not survive.
func TestCreateTemplateBadSchemaRollsBack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		decl string
	}{
		{name: "case-insensitive duplicate column", decl: `[{"name":"Temp","type":"integer"},{"name":"temp","type":"text"}]`},
		{name: "declared id column", decl: `[{"name":"id","type":"text"}]`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newRepo(t)
			ctx := context.Background()

			_, err := r.CreateTemplate(ctx, declaredTemplate(t, "bad", tt.decl))
			if !errors.Is(err, storage.ErrBadSchema) {
				t.Fatalf("CreateTemplate error = %v, want ErrBadSchema", err)
			}

			list, err := r.SearchTemplates(ctx, "")
			if err != nil {
				t.Fatalf("SearchTemplates: %v", err)
			}
			if len(list) != 0 {
				t.Fatalf("catalog not rolled back: %+v", list)
			}
		})
	}
}

// TestTemplateQueries covers lookups by id, name, status and fragment.
func TestTemplateQueries(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()

	seed := []struct {
		table     string
		name      string
		available bool
	}{
		{table: "t1", name: "First", available: true},
		{table: "t2", name: "Second", available: false},
		{table: "t3", name: "Third template", available: true},
		{table: "t4", name: "First", available: true},
		{table: "t5", name: "100% real_data", available: false},
	}
	ids := make([]int64, len(seed))
	for i, s := range seed {
		nt := declaredTemplate(t, s.table, `[]`)
		nt.Name = s.name
		nt.Available = s.available
		got, err := r.CreateTemplate(ctx, nt)
		if err != nil {
			t.Fatalf("CreateTemplate(%s): %v", s.table, err)
		}
		ids[i] = got.ID
	}

	t.Run("by id", func(t *testing.T) {
		got, err := r.TemplateByID(ctx, ids[2])
		if err != nil {
			t.Fatalf("TemplateByID: %v", err)
		}
		if got.Table != "t3" {
			t.Fatalf("TemplateByID table = %q, want t3", got.Table)
		}
		if _, err := r.TemplateByID(ctx, 9999); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("TemplateByID(9999) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("by name returns oldest", func(t *testing.T) {
		got, err := r.TemplateByName(ctx, "First")
		if err != nil {
			t.Fatalf("TemplateByName: %v", err)
		}
		if got.ID != ids[0] {
			t.Fatalf("TemplateByName id = %d, want %d", got.ID, ids[0])
		}
		if _, err := r.TemplateByName(ctx, "first"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("TemplateByName(first) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("by status", func(t *testing.T) {
		got, err := r.TemplatesByStatus(ctx, false)
		if err != nil {
			t.Fatalf("TemplatesByStatus: %v", err)
		}
		if len(got) != 2 || got[0].Table != "t2" || got[1].Table != "t5" {
			t.Fatalf("TemplatesByStatus(false) = %+v", got)
		}
	})

	t.Run("search", func(t *testing.T) {
		cases := []struct {
			fragment string
			want     []string
		}{
			{fragment: "first", want: []string{"t1", "t4"}},
			{fragment: "TEMPLATE", want: []string{"t3"}},
			{fragment: "%", want: []string{"t5"}},
			{fragment: "_", want: []string{"t5"}},
			{fragment: "nothing", want: nil},
		}
		for _, c := range cases {
			got, err := r.SearchTemplates(ctx, c.fragment)
			if err != nil {
				t.Fatalf("SearchTemplates(%q): %v", c.fragment, err)
			}
			var tables []string
			for _, tpl := range got {
				tables = append(tables, tpl.Table)
			}
			if strings.Join(tables, ",") != strings.Join(c.want, ",") {
				t.Fatalf("SearchTemplates(%q) = %v, want %v", c.fragment, tables, c.want)
			}
		}
	})
}

// TestDropTemplate removes both the catalog row and the table.
func TestDropTemplate(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()

	got, err := r.CreateTemplate(ctx, declaredTemplate(t, "gone", `[{"name":"a","type":"float"}]`))
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if err := r.DropTemplate(ctx, "gone"); err != nil {
		t.Fatalf("DropTemplate: %v", err)
	}
	if _, err := r.TemplateByID(ctx, got.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("TemplateByID after drop error = %v, want ErrNotFound", err)
	}
	if cols := tableColumns(t, r, "gone"); len(cols) != 0 {
		t.Fatalf("table still present with columns %v", cols)
	}
	if err := r.DropTemplate(ctx, "gone"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second DropTemplate error = %v, want ErrNotFound", err)
	}
}

// TestNewRepositoryRejectsEmptyDSN mirrors the constructor's validation.
func TestNewRepositoryRejectsEmptyDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{DSN: "  "}); err == nil {
		t.Fatalf("NewRepository with empty DSN: want error")
	}
}

func BenchmarkSqlite_CreateTemplate(b *testing.B) {
	r := newRepo(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		nt := declaredTemplate(b, fmt.Sprintf("bench_%d", i), `[{"name":"a","type":"integer"},{"name":"b","type":"text","nullable":true}]`)
		if _, err := r.CreateTemplate(ctx, nt); err != nil {
			b.Fatal(err)
		}
	}
}
