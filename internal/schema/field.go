package schema

// Field is one named, typed column descriptor.
type Field struct {
	Name     string `json:"name" yaml:"name"`
	Type     Type   `json:"type" yaml:"type"`
	Nullable bool   `json:"nullable" yaml:"nullable"`
}

// Equal reports whether f and o name the same column. Type and Nullable are
// not compared: two fields with one name are duplicates whatever their shape.
func (f Field) Equal(o Field) bool {
	return f.Name == o.Name
}
