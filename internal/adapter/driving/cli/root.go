package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/repometa/internal/application"
	"github.com/ericfisherdev/repometa/internal/domain/port/driven"
	"github.com/ericfisherdev/repometa/internal/schema"
)

// Execute runs the repometa command line with args, writing command output to
// stdout and logs to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{stdout: stdout, stderr: stderr}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "repometa",
		Short:         "Query GitHub repository metadata and generate validated settings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.loadConfig()
		},
	}

	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newRepoCmd(a),
		newRateLimitCmd(a),
		newSnapshotCmd(a),
		newConfigCmd(a),
		newSchemaCmd(a),
		newAuthCmd(a),
		newServeCmd(a),
		newHealthcheckCmd(a),
	)

	return root
}

// ErrorKind classifies err for display: the failure category a user acts on.
func ErrorKind(err error) string {
	var (
		rateErr     *driven.RateLimitError
		dupErr      *schema.DuplicateFieldError
		missingErr  *schema.MissingFieldError
		validErr    *schema.ValidationError
		coercionErr *schema.TypeCoercionError
	)

	switch {
	case errors.As(err, &rateErr):
		return "rate_limit"
	case errors.Is(err, driven.ErrNotFound):
		return "not_found"
	case errors.Is(err, driven.ErrAuth):
		return "auth"
	case errors.Is(err, driven.ErrTransport), errors.Is(err, driven.ErrUnexpectedResponse):
		return "transport"
	case errors.Is(err, driven.ErrInvalidArgument):
		return "invalid_argument"
	case errors.As(err, &dupErr):
		return "duplicate_field"
	case errors.As(err, &missingErr):
		return "missing_field"
	case errors.As(err, &coercionErr):
		return "type_coercion"
	case errors.As(err, &validErr):
		return "validation"
	case errors.Is(err, driven.ErrEncryptionKeyNotSet), errors.Is(err, application.ErrHistoryDisabled),
		errors.Is(err, errDatabaseRequired):
		return "not_configured"
	default:
		return "error"
	}
}
