package ddl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/TomascpMarques/to-orderly/internal/schema"
	"github.com/zeebo/xxh3"
)

// Placeholder renders the bind parameter for the n-th value (1-based).
type Placeholder func(n int) string

// QuestionMark is the placeholder style of SQLite and MySQL.
func QuestionMark(int) string { return "?" }

// Dollar is the placeholder style of Postgres.
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// InsertStatement renders an insert of one row into table covering fields in
// order. With no fields it inserts a row of defaults.
func InsertStatement(table string, fields []schema.Field, ph Placeholder) string {
	if len(fields) == 0 {
		return "insert into " + string(Quote(table)) + " default values"
	}

	cols := make([]string, len(fields))
	vals := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = string(Quote(f.Name))
		vals[i] = ph(i + 1)
	}
	return fmt.Sprintf("insert into %s ( %s ) values ( %s )",
		Quote(table), strings.Join(cols, ", "), strings.Join(vals, ", "))
}

// DropTableStatement renders the statement removing table.
func DropTableStatement(table string) string {
	return "drop table " + string(Quote(table))
}

// Fingerprint returns a short stable hash of a compiled statement. Two
// templates with the same fingerprint have the same shape.
func Fingerprint(stmt string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(stmt))
}
