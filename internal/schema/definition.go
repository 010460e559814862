// Package schema turns declarative field definitions into validated,
// immutable settings. A Definition is built once with Define; Generate applies
// it to raw input (environment variables, .env files, YAML documents) and
// either returns a fully valid Settings or fails as a whole.
package schema

import "fmt"

// Type is the declared type of a field's resolved value.
type Type string

// Supported field types and the Go type each resolves to.
const (
	String   Type = "string"   // string
	Int      Type = "int"      // int
	Float    Type = "float"    // float64
	Bool     Type = "bool"     // bool
	Duration Type = "duration" // time.Duration
	List     Type = "list"     // []string
)

func (t Type) valid() bool {
	switch t {
	case String, Int, Float, Bool, Duration, List:
		return true
	}
	return false
}

// Field declares one setting. A nil Default means the field is required.
type Field struct {
	Name        string
	Type        Type
	Default     any
	Predicate   *Predicate
	Description string
}

// Definition is an ordered, immutable set of uniquely named fields.
type Definition struct {
	fields   []Field
	index    map[string]int
	defaults map[string]any // coerced defaults, keyed by field name
}

// Define validates field declarations and returns a Definition preserving
// their order. Declared defaults are coerced and checked against the field's
// predicate here, so a Definition never carries an invalid default.
func Define(fields ...Field) (*Definition, error) {
	def := &Definition{
		fields:   make([]Field, 0, len(fields)),
		index:    make(map[string]int, len(fields)),
		defaults: make(map[string]any),
	}

	for i, f := range fields {
		if f.Name == "" {
			return nil, &InvalidFieldError{Name: f.Name, Reason: fmt.Sprintf("empty name at position %d", i)}
		}
		if first, ok := def.index[f.Name]; ok {
			return nil, &DuplicateFieldError{Name: f.Name, First: first, Second: i}
		}
		if !f.Type.valid() {
			return nil, &InvalidFieldError{Name: f.Name, Reason: fmt.Sprintf("unknown type %q", f.Type)}
		}
		if f.Predicate != nil {
			if err := f.Predicate.wellFormed(zeroValue(f.Type)); err != nil {
				return nil, &InvalidFieldError{Name: f.Name, Reason: err.Error()}
			}
		}

		if f.Default != nil {
			v, err := resolve(f, f.Default)
			if err != nil {
				return nil, fmt.Errorf("default for field %q: %w", f.Name, err)
			}
			def.defaults[f.Name] = v
		}

		def.index[f.Name] = i
		def.fields = append(def.fields, f)
	}

	return def, nil
}

// Fields returns the declared fields in order.
func (d *Definition) Fields() []Field {
	out := make([]Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Field returns the field declared under name.
func (d *Definition) Field(name string) (Field, bool) {
	i, ok := d.index[name]
	if !ok {
		return Field{}, false
	}
	return d.fields[i], true
}

// Len returns the number of declared fields.
func (d *Definition) Len() int {
	return len(d.fields)
}

// Default returns the coerced default of the named field.
func (d *Definition) Default(name string) (any, bool) {
	v, ok := d.defaults[name]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// resolve coerces raw to the field's type and applies its predicate.
func resolve(f Field, raw any) (any, error) {
	v, err := coerce(f.Type, raw)
	if err != nil {
		return nil, &TypeCoercionError{Field: f.Name, Type: f.Type, Value: raw, Err: err}
	}

	if f.Predicate != nil {
		if err := f.Predicate.Check(v); err != nil {
			return nil, &ValidationError{Field: f.Name, Predicate: f.Predicate.Name(), Value: v, Err: err}
		}
	}

	return v, nil
}
