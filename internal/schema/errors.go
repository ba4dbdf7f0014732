package schema

import "errors"

// Parse failures. Every error returned by this package wraps exactly one of
// these, so callers can classify with errors.Is.
var (
	// ErrDuplicateField reports a field name that appears twice.
	ErrDuplicateField = errors.New("duplicate field")

	// ErrUnimplementedConversion reports a sample value (null, array or
	// object) that has no column type.
	ErrUnimplementedConversion = errors.New("unimplemented conversion for given type")

	// ErrMalformedInput reports input that does not have the expected shape.
	ErrMalformedInput = errors.New("malformed input")
)
