// Package yamlfile persists the owner-grouped access snapshot as a YAML file,
// alongside a JSON Schema inferred from its contents.
package yamlfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/repometa/internal/domain/model"
	"github.com/ericfisherdev/repometa/internal/domain/port/driven"
	"github.com/ericfisherdev/repometa/internal/schema"
)

// Compile-time interface satisfaction check.
var _ driven.AccessSnapshotStore = (*Store)(nil)

// Store reads and writes an AccessSnapshot at a fixed path.
type Store struct {
	path       string
	schemaPath string
}

// NewStore creates a Store for path. When schemaPath is non-empty, every
// Write also stores the JSON Schema inferred from the snapshot there.
func NewStore(path, schemaPath string) *Store {
	return &Store{path: path, schemaPath: schemaPath}
}

// Write replaces the snapshot file. The file is written to a temporary name
// in the same directory and renamed, so readers never see a partial file.
func (s *Store) Write(snap model.AccessSnapshot) error {
	if snap == nil {
		snap = model.AccessSnapshot{}
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("write snapshot %s: %w", s.path, err)
	}

	if s.schemaPath == "" {
		return nil
	}

	inferred, err := schema.InferJSONSchema(snap)
	if err != nil {
		return fmt.Errorf("infer snapshot schema: %w", err)
	}
	encoded, err := json.MarshalIndent(inferred, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot schema: %w", err)
	}
	if err := writeAtomic(s.schemaPath, append(encoded, '\n')); err != nil {
		return fmt.Errorf("write snapshot schema %s: %w", s.schemaPath, err)
	}

	return nil
}

// Read loads the snapshot file. When the Store has a schema path the document
// must also validate against the schema stored there. The returned error wraps
// fs.ErrNotExist when either file has not been written.
func (s *Store) Read() (model.AccessSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if s.schemaPath != "" {
		if err := s.validate(data); err != nil {
			return nil, err
		}
	}

	snap := model.AccessSnapshot{}
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", s.path, err)
	}

	// Owner and name are map keys in the file, not entry fields.
	for owner, repos := range snap {
		if repos == nil {
			snap[owner] = map[string]model.RepositoryAccess{}
			continue
		}
		for name, entry := range repos {
			entry.Owner = owner
			entry.Name = name
			repos[name] = entry
		}
	}

	return snap, nil
}

// validate checks the raw snapshot document against the stored JSON Schema.
func (s *Store) validate(data []byte) error {
	raw, err := os.ReadFile(s.schemaPath)
	if err != nil {
		return fmt.Errorf("read snapshot schema: %w", err)
	}

	var stored jsonschema.Schema
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("parse snapshot schema %s: %w", s.schemaPath, err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse snapshot %s: %w", s.path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	if err := schema.ValidateDocument(&stored, doc); err != nil {
		return fmt.Errorf("snapshot %s does not match %s: %w", s.path, s.schemaPath, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
