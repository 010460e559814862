package schema

import "fmt"

// DuplicateFieldError is returned by Define when two fields share a name.
type DuplicateFieldError struct {
	Name   string
	First  int // position of the first declaration
	Second int // position of the repeated declaration
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("duplicate field %q at positions %d and %d", e.Name, e.First, e.Second)
}

// InvalidFieldError is returned by Define for a field that cannot be declared:
// an empty name, an unknown type, or a malformed predicate.
type InvalidFieldError struct {
	Name   string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Name, e.Reason)
}

// MissingFieldError is returned by Generate when a field has neither an input
// value nor a declared default.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("field %q: no value and no default", e.Field)
}

// ValidationError is returned when a coerced value is rejected by the field's predicate.
type ValidationError struct {
	Field     string
	Predicate string
	Value     any
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: value %v rejected by %s: %v", e.Field, e.Value, e.Predicate, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// TypeCoercionError is returned when a raw value cannot be converted to the
// field's declared type.
type TypeCoercionError struct {
	Field string
	Type  Type
	Value any
	Err   error
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("field %q: cannot convert %#v to %s: %v", e.Field, e.Value, e.Type, e.Err)
}

func (e *TypeCoercionError) Unwrap() error { return e.Err }
