package schema

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvKey returns the environment variable that carries field under prefix:
// EnvKey("REPOMETA", "github_token") is "REPOMETA_GITHUB_TOKEN". Dots and
// dashes in field names become underscores.
func EnvKey(prefix, field string) string {
	key := strings.NewReplacer(".", "_", "-", "_").Replace(field)
	if prefix != "" {
		key = prefix + "_" + key
	}
	return strings.ToUpper(key)
}

// FromLookup collects raw values for every field of def using lookup on the
// field's EnvKey. Unset keys are omitted so Generate applies defaults.
func FromLookup(def *Definition, prefix string, lookup func(string) (string, bool)) map[string]any {
	raw := make(map[string]any)
	for _, f := range def.fields {
		if v, ok := lookup(EnvKey(prefix, f.Name)); ok {
			raw[f.Name] = v
		}
	}
	return raw
}

// FromEnv collects raw values for def from the process environment.
func FromEnv(def *Definition, prefix string) map[string]any {
	return FromLookup(def, prefix, os.LookupEnv)
}

// FromDotenv reads a key-value file in .env format and collects raw values for
// def the same way FromEnv does. The process environment is not modified.
func FromDotenv(def *Definition, prefix, path string) (map[string]any, error) {
	kv, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return FromLookup(def, prefix, func(k string) (string, bool) {
		v, ok := kv[k]
		return v, ok
	}), nil
}

// FromYAML reads a YAML mapping. Nested mappings are flattened into dotted
// keys, so {github: {token: x}} yields "github.token". An empty file yields
// an empty map.
func FromYAML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read yaml file %s: %w", path, err)
	}
	return ParseYAML(data)
}

// ParseYAML is FromYAML over an in-memory document.
func ParseYAML(data []byte) (map[string]any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		return map[string]any{}, nil
	}

	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse yaml: content must be a mapping, got %T", doc)
	}

	raw := make(map[string]any)
	flatten("", m, raw)
	return raw, nil
}

func flatten(prefix string, m map[string]any, out map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// Merge combines raw sources left to right; later sources win.
func Merge(sources ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, src := range sources {
		for k, v := range src {
			out[k] = v
		}
	}
	return out
}
