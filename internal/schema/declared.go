package schema

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Schema is a declared schema: an ordered list of fields with pairwise
// distinct names. The zero value is a valid, empty schema.
type Schema struct {
	fields []Field
}

// fieldDecl is one raw entry of a declared schema before validation. Pointers
// distinguish an absent key from its zero value.
type fieldDecl struct {
	Name     *string `json:"name" yaml:"name"`
	Type     *Type   `json:"type" yaml:"type"`
	Nullable *bool   `json:"nullable" yaml:"nullable"`
}

// NewSchema builds a declared schema from fields in order. It fails with
// ErrDuplicateField when two fields share a name.
func NewSchema(fields ...Field) (Schema, error) {
	decls := make([]fieldDecl, len(fields))
	for i := range fields {
		f := fields[i]
		decls[i] = fieldDecl{Name: &f.Name, Type: &f.Type, Nullable: &f.Nullable}
	}
	return buildSchema(decls)
}

// ParseDeclared parses a JSON array of field declarations:
//
//	[{"name": "temperature", "type": "integer", "nullable": true}, ...]
//
// name and type are required, nullable defaults to false and unknown keys are
// ignored. The whole input is rejected on the first problem; a partially
// built schema is never returned.
func ParseDeclared(data []byte) (Schema, error) {
	if b := bytes.TrimSpace(data); len(b) == 0 || b[0] != '[' {
		return Schema{}, fmt.Errorf("schema: declared schema must be a JSON array: %w", ErrMalformedInput)
	}
	var decls []fieldDecl
	if err := json.Unmarshal(data, &decls); err != nil {
		return Schema{}, fmt.Errorf("schema: decode declared schema: %w: %w", ErrMalformedInput, err)
	}
	return buildSchema(decls)
}

// ParseDeclaredYAML is ParseDeclared for a YAML sequence of the same shape.
func ParseDeclaredYAML(data []byte) (Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Schema{}, fmt.Errorf("schema: decode declared schema: %w: %w", ErrMalformedInput, err)
	}
	if len(doc.Content) != 1 || doc.Content[0].Kind != yaml.SequenceNode {
		return Schema{}, fmt.Errorf("schema: declared schema must be a YAML sequence: %w", ErrMalformedInput)
	}
	var decls []fieldDecl
	if err := doc.Content[0].Decode(&decls); err != nil {
		return Schema{}, fmt.Errorf("schema: decode declared schema: %w: %w", ErrMalformedInput, err)
	}
	return buildSchema(decls)
}

func buildSchema(decls []fieldDecl) (Schema, error) {
	seen := make(map[string]struct{}, len(decls))
	fields := make([]Field, 0, len(decls))

	for i, d := range decls {
		if d.Name == nil || *d.Name == "" {
			return Schema{}, fmt.Errorf("schema: entry %d: missing name: %w", i, ErrMalformedInput)
		}
		name := *d.Name
		if d.Type == nil {
			return Schema{}, fmt.Errorf("schema: field %q: missing type: %w", name, ErrMalformedInput)
		}
		if !d.Type.valid() {
			return Schema{}, fmt.Errorf("schema: field %q: invalid type %d: %w", name, *d.Type, ErrMalformedInput)
		}
		if _, dup := seen[name]; dup {
			return Schema{}, fmt.Errorf("schema: field %q at index %d: %w", name, i, ErrDuplicateField)
		}
		seen[name] = struct{}{}

		f := Field{Name: name, Type: *d.Type}
		if d.Nullable != nil {
			f.Nullable = *d.Nullable
		}
		fields = append(fields, f)
	}

	return Schema{fields: fields}, nil
}

// Fields returns a copy of the schema's fields in declaration order.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of declared fields.
func (s Schema) Len() int { return len(s.fields) }

// MarshalJSON encodes the schema in its declaration form.
func (s Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Fields())
}

// UnmarshalJSON parses data with ParseDeclared.
func (s *Schema) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDeclared(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
