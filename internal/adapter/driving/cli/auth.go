package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the GitHub token stored in the database",
	}
	cmd.AddCommand(newAuthSetTokenCmd(a), newAuthClearCmd(a), newAuthListCmd(a))
	return cmd
}

func newAuthSetTokenCmd(a *app) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "set-token",
		Short: "Encrypt and store a GitHub token (read from stdin unless --token is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.HasDatabase() {
				return errDatabaseRequired
			}

			if token == "" {
				read, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				token = read
			}

			if err := a.wire(cmd.Context()); err != nil {
				return err
			}
			if err := a.metadata.SetToken(cmd.Context(), token); err != nil {
				return err
			}

			_, err := fmt.Fprintln(a.stdout, "token stored")
			return err
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token value; prefer stdin to keep it out of shell history")
	return cmd
}

func newAuthClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored GitHub token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.HasDatabase() {
				return errDatabaseRequired
			}
			if err := a.wire(cmd.Context()); err != nil {
				return err
			}
			if err := a.metadata.ClearToken(cmd.Context()); err != nil {
				return err
			}

			_, err := fmt.Fprintln(a.stdout, "token cleared")
			return err
		},
	}
}

func newAuthListCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List services with a stored credential (values are never shown)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.HasDatabase() {
				return errDatabaseRequired
			}
			if err := a.wire(cmd.Context()); err != nil {
				return err
			}

			creds, err := a.metadata.StoredCredentials(cmd.Context())
			if err != nil {
				return err
			}

			views := make([]credentialView, 0, len(creds))
			t := &table{header: []string{"SERVICE", "UPDATED"}}
			for _, c := range creds {
				views = append(views, credentialView{Service: c.Service, UpdatedAt: timestamp(c.UpdatedAt)})
				t.add(c.Service, timestamp(c.UpdatedAt))
			}
			return printStructured(a.stdout, output, views, t)
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
