package cli

import (
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/repometa/internal/config"
	"github.com/ericfisherdev/repometa/internal/schema"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
	}
	cmd.AddCommand(newConfigShowCmd(a), newConfigSchemaCmd(a))
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved settings with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			shown := a.cfg.Redacted()

			t := &table{header: []string{"SETTING", "ENV", "VALUE"}}
			for _, name := range a.cfg.Settings.Names() {
				t.add(name, schema.EnvKey(config.EnvPrefix, name), shown[name])
			}

			return printStructured(a.stdout, output, shown, t)
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func newConfigSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the configuration as a JSON Schema",
		Args:  cobra.NoArgs,
		// Works even when the current environment does not validate.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(_ *cobra.Command, _ []string) error {
			def, err := config.Schema()
			if err != nil {
				return err
			}
			return printStructured(a.stdout, "json", def.JSONSchema("repometa configuration"), nil)
		},
	}
}
