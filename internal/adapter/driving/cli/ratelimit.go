package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newRateLimitCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Show the remaining GitHub API quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.wire(cmd.Context()); err != nil {
				return err
			}

			status, err := a.metadata.RateLimit(cmd.Context())
			if err != nil {
				return err
			}

			t := &table{header: []string{"RESOURCE", "LIMIT", "REMAINING", "USED", "RESETS_IN"}}
			t.add(status.Resource, status.Limit, status.Remaining, status.Used,
				status.ResetIn(time.Now()).Round(time.Second))

			return printStructured(a.stdout, output, toRateLimitView(*status), t)
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}
