package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	githubadapter "github.com/ericfisherdev/repometa/internal/adapter/driven/github"
	"github.com/ericfisherdev/repometa/internal/domain/model"
)

func newRepoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Read repository metadata",
	}
	cmd.AddCommand(newRepoGetCmd(a), newRepoContributorsCmd(a), newRepoHistoryCmd(a))
	return cmd
}

// repoArgs accepts "owner/repo" or "owner repo".
func repoArgs(args []string) (string, string, error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}
	return githubadapter.SplitFullName(args[0])
}

func newRepoGetCmd(a *app) *cobra.Command {
	var (
		output string
		cached bool
	)

	cmd := &cobra.Command{
		Use:   "get OWNER/REPO",
		Short: "Fetch metadata for a repository",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := repoArgs(args)
			if err != nil {
				return err
			}
			if err := a.wire(cmd.Context()); err != nil {
				return err
			}

			if cached {
				snap, err := a.metadata.CachedRepository(cmd.Context(), owner, repo)
				if err != nil {
					return err
				}
				t := repositoryTable(snap.Metadata)
				t.add("recorded_at", timestamp(snap.RecordedAt))
				return printStructured(a.stdout, output, toSnapshotView(*snap), t)
			}

			meta, err := a.metadata.Repository(cmd.Context(), owner, repo)
			if err != nil {
				return err
			}
			return printStructured(a.stdout, output, toRepositoryView(*meta), repositoryTable(*meta))
		},
	}
	addOutputFlag(cmd, &output)
	cmd.Flags().BoolVar(&cached, "cached", false, "show the last recorded snapshot instead of calling GitHub (requires REPOMETA_DB_PATH)")
	return cmd
}

func repositoryTable(meta model.RepositoryMetadata) *table {
	t := &table{header: []string{"FIELD", "VALUE"}}
	t.add("full_name", meta.FullName)
	t.add("default_branch", meta.DefaultBranch)
	t.add("visibility", meta.Visibility)
	t.add("private", meta.Private)
	t.add("stars", meta.Stars)
	t.add("pushed_at", timestamp(meta.PushedAt))
	if meta.Archived {
		t.add("archived", true)
	}
	return t
}

func newRepoContributorsCmd(a *app) *cobra.Command {
	var (
		output string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "contributors OWNER/REPO",
		Short: "List the top contributors of a repository",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := repoArgs(args)
			if err != nil {
				return err
			}
			if err := a.wire(cmd.Context()); err != nil {
				return err
			}

			contributors, err := a.metadata.Contributors(cmd.Context(), owner, repo, limit)
			if err != nil {
				return err
			}

			views := make([]contributorView, 0, len(contributors))
			t := &table{header: []string{"LOGIN", "CONTRIBUTIONS", "BOT"}}
			for _, c := range contributors {
				views = append(views, contributorView{Login: c.Login, Contributions: c.Contributions, Bot: c.IsBot()})
				t.add(c.Login, c.Contributions, c.IsBot())
			}

			return printStructured(a.stdout, output, views, t)
		},
	}
	addOutputFlag(cmd, &output)
	cmd.Flags().IntVar(&limit, "limit", 30, "maximum number of contributors (1-100)")
	return cmd
}

func newRepoHistoryCmd(a *app) *cobra.Command {
	var (
		output string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history OWNER/REPO",
		Short: "List recorded metadata snapshots, newest first",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := repoArgs(args)
			if err != nil {
				return err
			}
			if err := a.wire(cmd.Context()); err != nil {
				return err
			}

			snaps, err := a.metadata.History(cmd.Context(), fmt.Sprintf("%s/%s", owner, repo), limit)
			if err != nil {
				return err
			}

			views := make([]snapshotView, 0, len(snaps))
			t := &table{header: []string{"RECORDED", "STARS", "DEFAULT_BRANCH", "VISIBILITY", "PUSHED"}}
			for _, s := range snaps {
				views = append(views, toSnapshotView(s))
				t.add(timestamp(s.RecordedAt), s.Metadata.Stars, s.Metadata.DefaultBranch,
					s.Metadata.Visibility, timestamp(s.Metadata.PushedAt))
			}

			return printStructured(a.stdout, output, views, t)
		},
	}
	addOutputFlag(cmd, &output)
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of snapshots; 0 lists all")
	return cmd
}
