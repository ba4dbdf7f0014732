// Package schema models the shape of a template record: the scalar column
// types, the named fields that carry them, and the two ways a caller can
// describe a record (a declared field list or a single sample document).
//
// Both schema kinds are validated when they are parsed and are immutable
// afterwards, so a value of either type is always safe to compile into DDL.
package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Type is the closed set of scalar column types a field can have.
type Type uint8

const (
	Integer Type = iota
	Float
	Text
	Boolean

	numTypes
)

// NumTypes is the number of Type variants. Tables indexed by Type assert
// their length against it so a new variant cannot be added without a mapping.
const NumTypes = int(numTypes)

var typeTags = [...]string{
	Integer: "integer",
	Float:   "float",
	Text:    "text",
	Boolean: "bool",
}

var _ = [1]struct{}{}[NumTypes-len(typeTags)]

// Types returns every Type in declaration order.
func Types() []Type {
	out := make([]Type, 0, NumTypes)
	for t := Type(0); t < numTypes; t++ {
		out = append(out, t)
	}
	return out
}

// ParseType maps a wire tag ("integer", "float", "text", "bool") to a Type.
// Matching is exact; tags are case-sensitive.
func ParseType(tag string) (Type, error) {
	for i, s := range typeTags {
		if s == tag {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("schema: unknown type tag %q (want one of %s): %w",
		tag, strings.Join(typeTags[:], ", "), ErrMalformedInput)
}

// String returns the wire tag of t.
func (t Type) String() string {
	if t < numTypes {
		return typeTags[t]
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

func (t Type) valid() bool { return t < numTypes }

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("schema: invalid type %d", t)
	}
	return []byte(typeTags[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// UnmarshalYAML decodes a scalar tag node.
func (t *Type) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("schema: line %d: type must be a scalar: %w", node.Line, ErrMalformedInput)
	}
	return t.UnmarshalText([]byte(node.Value))
}

// Infer derives the column type of a single decoded JSON value.
//
//	integral number -> Integer
//	other number    -> Float
//	string          -> Text
//	bool            -> Boolean
//
// Null, arrays and objects have no column type and yield an error wrapping
// ErrUnimplementedConversion. A json.Number is integral when it parses as a
// base-10 int64, so "1.0" and "1e3" are Float.
func Infer(v any) (Type, error) {
	switch x := v.(type) {
	case json.Number:
		if _, err := strconv.ParseInt(x.String(), 10, 64); err == nil {
			return Integer, nil
		}
		if _, err := x.Float64(); err != nil {
			return 0, fmt.Errorf("schema: invalid number %q: %w", x.String(), ErrMalformedInput)
		}
		return Float, nil
	case float64:
		if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
			return Integer, nil
		}
		return Float, nil
	case float32:
		return Infer(float64(x))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Integer, nil
	case string:
		return Text, nil
	case bool:
		return Boolean, nil
	case nil:
		return 0, fmt.Errorf("schema: null: %w", ErrUnimplementedConversion)
	case []any:
		return 0, fmt.Errorf("schema: array: %w", ErrUnimplementedConversion)
	case map[string]any:
		return 0, fmt.Errorf("schema: object: %w", ErrUnimplementedConversion)
	default:
		return 0, fmt.Errorf("schema: %T: %w", v, ErrUnimplementedConversion)
	}
}
