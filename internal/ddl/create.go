// Package ddl compiles template schemas into SQL statements.
//
// The rendered dialect is deliberately small: every identifier is quoted and
// lower-cased, column types come from a closed mapping, and each table gets an
// implicit trailing "id" key:
//
//	create table "test_t" ( "temperature" integer null, "id" integer not null primary key )
//
// Storage backends execute these statements verbatim and add whatever they
// need around them (identity columns, transactions).
package ddl

import "strings"

// TableFor builds the column model for src stored under table. Columns keep
// the source's field order and the id key is appended last.
func TableFor(src FieldSource, table string) TableDef {
	fields := src.Fields()
	cols := make([]ColumnDef, 0, len(fields)+1)
	for _, f := range fields {
		cols = append(cols, ColumnDef{
			Name:     f.Name,
			SQLType:  SQLType(f.Type),
			Nullable: f.Nullable,
		})
	}
	cols = append(cols, ColumnDef{
		Name:       IDColumn,
		SQLType:    "integer",
		PrimaryKey: true,
	})
	return TableDef{Name: table, Columns: cols}
}

// CreateStatement renders the table as a single-line CREATE TABLE statement.
//
// A column is rendered as:
//
//	"<name>" <type>[ null]
//
// and a primary key column as:
//
//	"<name>" <type> not null primary key
func (t TableDef) CreateStatement() string {
	var sb strings.Builder
	sb.Grow(32 + 24*len(t.Columns))

	sb.WriteString("create table ")
	sb.WriteString(string(Quote(t.Name)))
	sb.WriteString(" ( ")
	for i, c := range t.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(string(Quote(c.Name)))
		sb.WriteByte(' ')
		sb.WriteString(c.SQLType)
		switch {
		case c.PrimaryKey:
			sb.WriteString(" not null primary key")
		case c.Nullable:
			sb.WriteString(" null")
		}
	}
	sb.WriteString(" )")
	return sb.String()
}

// CreateTableStatement compiles src into the CREATE TABLE statement for
// table. It never fails; invalid schemas are rejected by the parsers in
// package schema.
func CreateTableStatement(src FieldSource, table string) string {
	return TableFor(src, table).CreateStatement()
}
