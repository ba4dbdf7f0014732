package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// Sample pairs an inferred field with the value it was inferred from.
// Value is one of int64, float64, string or bool.
type Sample struct {
	Field Field
	Value any
}

// LiveSchema is a schema inferred from one sample record. Samples keep the
// key order of the source document and every field is non-nullable: a single
// sample says nothing about which columns may be absent.
type LiveSchema struct {
	samples []Sample
}

// ParseLive infers a live schema from a JSON object whose values are all
// scalars:
//
//	{"temperature": 23.2, "active": false, "device": "AmberRoomTemp"}
//
// A null, array or object value rejects the whole sample with
// ErrUnimplementedConversion. Input that is not exactly one object is
// ErrMalformedInput, as is an empty key; a repeated key is ErrDuplicateField.
func ParseLive(data []byte) (LiveSchema, error) {
	// Decoder.Token does not check separators.
	if !json.Valid(data) {
		return LiveSchema{}, fmt.Errorf("schema: live sample is not valid JSON: %w", ErrMalformedInput)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return LiveSchema{}, fmt.Errorf("schema: decode live sample: %w: %w", ErrMalformedInput, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return LiveSchema{}, fmt.Errorf("schema: live sample must be a JSON object: %w", ErrMalformedInput)
	}

	var samples []Sample
	seen := make(map[string]struct{})

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return LiveSchema{}, fmt.Errorf("schema: decode live sample: %w: %w", ErrMalformedInput, err)
		}
		key, ok := tok.(string)
		if !ok {
			return LiveSchema{}, fmt.Errorf("schema: live sample: expected object key, got %v: %w", tok, ErrMalformedInput)
		}
		if key == "" {
			return LiveSchema{}, fmt.Errorf("schema: live sample: empty field name: %w", ErrMalformedInput)
		}
		if _, dup := seen[key]; dup {
			return LiveSchema{}, fmt.Errorf("schema: field %q: %w", key, ErrDuplicateField)
		}
		seen[key] = struct{}{}

		tok, err = dec.Token()
		if err != nil {
			return LiveSchema{}, fmt.Errorf("schema: field %q: %w: %w", key, ErrMalformedInput, err)
		}
		value, typ, err := scalar(tok)
		if err != nil {
			return LiveSchema{}, fmt.Errorf("schema: field %q: %w", key, err)
		}
		samples = append(samples, Sample{
			Field: Field{Name: key, Type: typ},
			Value: value,
		})
	}

	if _, err := dec.Token(); err != nil {
		return LiveSchema{}, fmt.Errorf("schema: decode live sample: %w: %w", ErrMalformedInput, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return LiveSchema{}, fmt.Errorf("schema: live sample: trailing data after object: %w", ErrMalformedInput)
	}

	return LiveSchema{samples: samples}, nil
}

// scalar converts one value token into its Go value and column type.
func scalar(tok any) (any, Type, error) {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '[':
			return nil, 0, fmt.Errorf("array value: %w", ErrUnimplementedConversion)
		case '{':
			return nil, 0, fmt.Errorf("object value: %w", ErrUnimplementedConversion)
		}
		return nil, 0, fmt.Errorf("unexpected %q: %w", rune(v), ErrMalformedInput)
	case nil:
		return nil, 0, fmt.Errorf("null value: %w", ErrUnimplementedConversion)
	case json.Number:
		typ, err := Infer(v)
		if err != nil {
			return nil, 0, err
		}
		if typ == Integer {
			n, _ := v.Int64()
			return n, Integer, nil
		}
		f, _ := v.Float64()
		return f, Float, nil
	case float64:
		if typ, _ := Infer(v); typ == Integer {
			return int64(v), Integer, nil
		}
		return v, Float, nil
	default:
		typ, err := Infer(v)
		if err != nil {
			return nil, 0, err
		}
		return v, typ, nil
	}
}

// Fields returns the inferred fields in sample key order.
func (l LiveSchema) Fields() []Field {
	out := make([]Field, len(l.samples))
	for i, s := range l.samples {
		out[i] = s.Field
	}
	return out
}

// Samples returns a copy of the field/value pairs in sample key order.
func (l LiveSchema) Samples() []Sample {
	out := make([]Sample, len(l.samples))
	copy(out, l.samples)
	return out
}

// Values returns the sample values in field order.
func (l LiveSchema) Values() []any {
	out := make([]any, len(l.samples))
	for i, s := range l.samples {
		out[i] = s.Value
	}
	return out
}

// Len returns the number of sampled fields.
func (l LiveSchema) Len() int { return len(l.samples) }

type sampleJSON struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Nullable bool   `json:"nullable"`
	Value    any    `json:"value"`
}

// MarshalJSON encodes the schema as an ordered array of fields, each carrying
// its sample value.
func (l LiveSchema) MarshalJSON() ([]byte, error) {
	out := make([]sampleJSON, len(l.samples))
	for i, s := range l.samples {
		out[i] = sampleJSON{
			Name:     s.Field.Name,
			Type:     s.Field.Type,
			Nullable: s.Field.Nullable,
			Value:    s.Value,
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses a sample object with ParseLive.
func (l *LiveSchema) UnmarshalJSON(data []byte) error {
	parsed, err := ParseLive(data)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
