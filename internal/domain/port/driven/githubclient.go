package driven

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/repometa/internal/domain/model"
)

// Sentinel errors returned by MetadataClient implementations. Callers match
// them with errors.Is; adapters wrap them with request context.
var (
	// ErrInvalidArgument indicates an empty owner or repository name. No
	// request is issued.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates the repository does not exist or is not visible
	// to the credential.
	ErrNotFound = errors.New("not found")

	// ErrAuth indicates a missing, invalid, or insufficiently scoped credential.
	ErrAuth = errors.New("authentication failed")

	// ErrTransport indicates a network failure or transport timeout.
	ErrTransport = errors.New("transport error")

	// ErrUnexpectedResponse indicates an HTTP status the client does not classify.
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// RateLimitError is returned when the GitHub quota is exhausted. Status holds
// the quota as reported by GitHub so the caller can decide when to retry.
// RetryAfter is set for secondary (abuse) limits that carry a Retry-After header.
type RateLimitError struct {
	Status     model.RateLimitStatus
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded: %s (retry after %s)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded: %s (remaining %d, resets %s)",
		e.Message, e.Status.Remaining, e.Status.Reset.UTC().Format(time.RFC3339))
}

// MetadataClient defines the driven port for reading repository metadata from GitHub.
// Each call issues its own request(s); nothing is retried or cached by contract.
type MetadataClient interface {
	FetchRepositoryMetadata(ctx context.Context, owner, repo string) (*model.RepositoryMetadata, error)
	FetchRateLimitStatus(ctx context.Context) (*model.RateLimitStatus, error)

	// FetchContributors returns at most limit contributors (one page, limit <= 100).
	FetchContributors(ctx context.Context, owner, repo string, limit int) ([]model.Contributor, error)
	// FetchUserRepositories returns every repository the authenticated user can access.
	FetchUserRepositories(ctx context.Context) ([]model.RepositoryAccess, error)

	// LastRateLimit returns the quota observed on the most recent response, if any.
	LastRateLimit() (model.RateLimitStatus, bool)
}
