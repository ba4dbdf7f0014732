package ddl

import "github.com/TomascpMarques/to-orderly/internal/schema"

// IDColumn is the implicit surrogate key appended to every template table.
const IDColumn = "id"

// FieldSource is anything that can list the ordered fields of a schema.
// Both schema.Schema and schema.LiveSchema satisfy it.
type FieldSource interface {
	Fields() []schema.Field
}

// ColumnDef describes a single column of a template table.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (integer, real, text, boolean)
//   - Nullable: whether NULL is explicitly allowed
//   - PrimaryKey: whether the column is the table's key
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
}

// TableDef holds the table name and its ordered list of columns. The last
// column is always the implicit id key.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

var sqlTypes = [...]string{
	schema.Integer: "integer",
	schema.Float:   "real",
	schema.Text:    "text",
	schema.Boolean: "boolean",
}

// Fails to compile when a schema.Type has no SQL mapping.
var _ = [1]struct{}{}[schema.NumTypes-len(sqlTypes)]

// SQLType returns the column type a schema type compiles to. It panics on a
// Type outside the schema enum.
func SQLType(t schema.Type) string {
	return sqlTypes[t]
}
