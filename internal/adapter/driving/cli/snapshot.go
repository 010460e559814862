package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/repometa/internal/domain/model"
)

func newSnapshotCmd(a *app) *cobra.Command {
	var (
		output  string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Show every repository the token can access, grouped by owner",
		Long: "Reads the access snapshot from REPOMETA_SNAPSHOT_PATH, generating it from\n" +
			"the GitHub API when the file does not exist. --refresh always regenerates it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.wire(cmd.Context()); err != nil {
				return err
			}

			load := a.snapshots.LoadOrGenerate
			if refresh {
				load = a.snapshots.Generate
			}

			snap, err := load(cmd.Context())
			if err != nil {
				return err
			}

			return printStructured(a.stdout, output, snap, snapshotTable(snap))
		},
	}
	addOutputFlag(cmd, &output)
	cmd.Flags().BoolVar(&refresh, "refresh", false, "regenerate the snapshot from the API")
	return cmd
}

func snapshotTable(snap model.AccessSnapshot) *table {
	t := &table{header: []string{"OWNER", "REPOSITORY", "VISIBILITY", "PERMISSION"}}

	owners := make([]string, 0, len(snap))
	for owner := range snap {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	for _, owner := range owners {
		names := make([]string, 0, len(snap[owner]))
		for name := range snap[owner] {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			r := snap[owner][name]
			t.add(owner, name, r.Visibility, permissionLevel(r.Permissions))
		}
	}
	return t
}

func permissionLevel(p model.Permissions) string {
	switch {
	case p.Admin:
		return "admin"
	case p.Push:
		return "push"
	case p.Pull:
		return "pull"
	default:
		return "none"
	}
}
