package schema

import (
	"errors"
	"time"
)

// Settings is the validated, defaulted result of applying a Definition to raw
// input. It is immutable: accessors never expose internal slices.
type Settings struct {
	names  []string
	values map[string]any
}

// Generate applies def to raw. For each field in declaration order the raw
// value is coerced to the field's type and checked against its predicate; an
// absent (or nil) value falls back to the declared default, which is checked
// the same way. Keys in raw that def does not declare are ignored.
//
// Generate is all-or-nothing: on failure it returns the zero Settings and an
// error joining one *MissingFieldError, *TypeCoercionError or *ValidationError
// per failing field.
func Generate(def *Definition, raw map[string]any) (Settings, error) {
	if def == nil {
		return Settings{}, errors.New("generate settings: nil definition")
	}

	values := make(map[string]any, len(def.fields))
	names := make([]string, 0, len(def.fields))
	var errs []error

	for _, f := range def.fields {
		input, ok := raw[f.Name]
		if !ok || input == nil {
			d, hasDefault := def.defaults[f.Name]
			if !hasDefault {
				errs = append(errs, &MissingFieldError{Field: f.Name})
				continue
			}
			input = cloneValue(d)
		}

		v, err := resolve(f, input)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		values[f.Name] = v
		names = append(names, f.Name)
	}

	if len(errs) > 0 {
		return Settings{}, errors.Join(errs...)
	}

	return Settings{names: names, values: values}, nil
}

// Names returns field names in declaration order.
func (s Settings) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of resolved fields.
func (s Settings) Len() int {
	return len(s.names)
}

// Get returns the resolved value of name.
func (s Settings) Get(name string) (any, bool) {
	v, ok := s.values[name]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// Map returns a copy of all resolved values.
func (s Settings) Map() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = cloneValue(v)
	}
	return out
}

// String returns the named string field, or "" if it is absent or not a string.
func (s Settings) String(name string) string {
	v, _ := s.values[name].(string)
	return v
}

// Int returns the named int field, or 0.
func (s Settings) Int(name string) int {
	v, _ := s.values[name].(int)
	return v
}

// Float returns the named float field, or 0.
func (s Settings) Float(name string) float64 {
	v, _ := s.values[name].(float64)
	return v
}

// Bool returns the named bool field, or false.
func (s Settings) Bool(name string) bool {
	v, _ := s.values[name].(bool)
	return v
}

// Duration returns the named duration field, or 0.
func (s Settings) Duration(name string) time.Duration {
	v, _ := s.values[name].(time.Duration)
	return v
}

// List returns a copy of the named list field, or nil.
func (s Settings) List(name string) []string {
	v, ok := s.values[name].([]string)
	if !ok {
		return nil
	}
	return cloneValue(v).([]string)
}
