package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

const draft202012 = "https://json-schema.org/draft/2020-12/schema"

// JSONSchema describes the Definition as a JSON Schema object. Fields without
// a default are listed as required; predicate bounds and enums are exported
// where the predicate declares them.
func (d *Definition) JSONSchema(title string) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Schema:     draft202012,
		Title:      title,
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(d.fields)),
	}

	for _, f := range d.fields {
		prop := &jsonschema.Schema{Description: f.Description}

		switch f.Type {
		case Int:
			prop.Type = "integer"
		case Float:
			prop.Type = "number"
		case Bool:
			prop.Type = "boolean"
		case List:
			prop.Type = "array"
			prop.Items = &jsonschema.Schema{Type: "string"}
		default:
			prop.Type = "string"
		}

		if p := f.Predicate; p != nil {
			if f.Type == Int || f.Type == Float {
				prop.Minimum = p.minimum
				prop.Maximum = p.maximum
			}
			if f.Type == String && len(p.enum) > 0 {
				for _, v := range p.enum {
					prop.Enum = append(prop.Enum, v)
				}
			}
		}

		if v, ok := d.defaults[f.Name]; ok {
			if dur, isDur := v.(time.Duration); isDur {
				v = dur.String()
			}
			if encoded, err := json.Marshal(v); err == nil {
				prop.Default = encoded
			}
		} else {
			s.Required = append(s.Required, f.Name)
		}

		s.Properties[f.Name] = prop
	}

	return s
}

// ValidateDocument validates a decoded JSON or YAML document against s. The
// document is normalized through JSON first so YAML-decoded values compare
// the same way JSON values do.
func ValidateDocument(s *jsonschema.Schema, doc any) error {
	normalized, err := normalizeJSON(doc, false)
	if err != nil {
		return err
	}

	resolved, err := s.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolve schema: %w", err)
	}

	if err := resolved.Validate(normalized); err != nil {
		return fmt.Errorf("validate document: %w", err)
	}
	return nil
}

// InferJSONSchema derives a JSON Schema describing data. Every key present in
// a mapping is required; array item schemas come from the first element.
func InferJSONSchema(data any) (*jsonschema.Schema, error) {
	normalized, err := normalizeJSON(data, true)
	if err != nil {
		return nil, err
	}

	s := infer(normalized)
	s.Schema = draft202012
	return s, nil
}

func infer(v any) *jsonschema.Schema {
	switch val := v.(type) {
	case map[string]any:
		s := &jsonschema.Schema{
			Type:       "object",
			Properties: make(map[string]*jsonschema.Schema, len(val)),
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.Properties[k] = infer(val[k])
		}
		s.Required = keys
		return s
	case []any:
		s := &jsonschema.Schema{Type: "array"}
		if len(val) > 0 {
			s.Items = infer(val[0])
		}
		return s
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return &jsonschema.Schema{Type: "integer"}
		}
		return &jsonschema.Schema{Type: "number"}
	case string:
		return &jsonschema.Schema{Type: "string"}
	case bool:
		return &jsonschema.Schema{Type: "boolean"}
	default:
		return &jsonschema.Schema{Type: "null"}
	}
}

// normalizeJSON round-trips v through encoding/json. With useNumber, numbers
// decode as json.Number so integers stay distinguishable from floats.
func normalizeJSON(v any, useNumber bool) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if useNumber {
		dec.UseNumber()
	}

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}
