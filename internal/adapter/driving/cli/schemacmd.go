package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/repometa/internal/schema"
)

func newSchemaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Infer and check JSON Schemas for YAML or JSON documents",
		// Schema commands read local files only and need no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}
	cmd.AddCommand(newSchemaInferCmd(a), newSchemaValidateCmd(a))
	return cmd
}

func newSchemaInferCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "infer FILE",
		Short: "Infer a JSON Schema from a YAML or JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}

			s, err := schema.InferJSONSchema(doc)
			if err != nil {
				return err
			}
			return printStructured(a.stdout, "json", s, nil)
		},
	}
}

func newSchemaValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate SCHEMA_FILE FILE",
		Short: "Validate a YAML or JSON document against a JSON Schema",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read schema: %w", err)
			}
			var s jsonschema.Schema
			if err := json.Unmarshal(data, &s); err != nil {
				return fmt.Errorf("parse schema %s: %w", args[0], err)
			}

			doc, err := readDocument(args[1])
			if err != nil {
				return err
			}

			if err := schema.ValidateDocument(&s, doc); err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "%s: valid\n", args[1])
			return err
		},
	}
}

// readDocument decodes a YAML file; JSON documents parse as YAML too.
func readDocument(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document %s: %w", path, err)
	}
	return doc, nil
}
