package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/repometa/internal/domain/model"
	"github.com/ericfisherdev/repometa/internal/domain/port/driven"
)

// CredentialService is the service name under which the GitHub token is stored.
const CredentialService = "github"

// defaultLowQuota is the remaining-call count below which a warning is logged.
const defaultLowQuota = 100

var (
	// ErrNoClient indicates no metadata client has been configured.
	ErrNoClient = errors.New("no GitHub client configured")

	// ErrHistoryDisabled indicates snapshot history was requested without a SnapshotStore.
	ErrHistoryDisabled = errors.New("snapshot history is not configured")
)

// ClientFactory builds a metadata client authenticated with token.
type ClientFactory func(token string) (driven.MetadataClient, error)

// MetadataService reads repository metadata through the current client and
// optionally records every fetch in a SnapshotStore. It depends only on port
// interfaces.
type MetadataService struct {
	clients     *ClientProvider
	snapshots   driven.SnapshotStore
	credentials driven.CredentialStore
	newClient   ClientFactory
	lowQuota    int
}

// MetadataOption configures optional MetadataService dependencies.
type MetadataOption func(*MetadataService)

// WithSnapshotStore records each fetched repository in store.
func WithSnapshotStore(store driven.SnapshotStore) MetadataOption {
	return func(s *MetadataService) { s.snapshots = store }
}

// WithCredentials enables SetToken and ClearToken. factory builds the
// replacement client after a token is stored.
func WithCredentials(store driven.CredentialStore, factory ClientFactory) MetadataOption {
	return func(s *MetadataService) {
		s.credentials = store
		s.newClient = factory
	}
}

// WithLowQuotaThreshold sets the remaining-call count below which a warning is logged.
func WithLowQuotaThreshold(n int) MetadataOption {
	return func(s *MetadataService) { s.lowQuota = n }
}

// NewMetadataService creates a MetadataService reading through clients.
func NewMetadataService(clients *ClientProvider, opts ...MetadataOption) *MetadataService {
	s := &MetadataService{clients: clients, lowQuota: defaultLowQuota}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HistoryEnabled reports whether fetched metadata is being recorded.
func (s *MetadataService) HistoryEnabled() bool {
	return s.snapshots != nil
}

// Repository fetches metadata for owner/repo. When a SnapshotStore is
// configured the result is recorded; a failed write is logged and does not
// fail the fetch.
func (s *MetadataService) Repository(ctx context.Context, owner, repo string) (*model.RepositoryMetadata, error) {
	client, err := s.client()
	if err != nil {
		return nil, err
	}

	meta, err := client.FetchRepositoryMetadata(ctx, owner, repo)
	s.checkQuota(client)
	if err != nil {
		return nil, err
	}

	if s.snapshots != nil {
		if _, err := s.snapshots.Save(ctx, *meta); err != nil {
			slog.Warn("failed to record repository snapshot", "repo", meta.FullName, "error", err)
		}
	}

	return meta, nil
}

// Contributors returns up to limit contributors of owner/repo.
func (s *MetadataService) Contributors(ctx context.Context, owner, repo string, limit int) ([]model.Contributor, error) {
	client, err := s.client()
	if err != nil {
		return nil, err
	}

	contributors, err := client.FetchContributors(ctx, owner, repo, limit)
	s.checkQuota(client)
	return contributors, err
}

// RateLimit returns the current core quota.
func (s *MetadataService) RateLimit(ctx context.Context) (*model.RateLimitStatus, error) {
	client, err := s.client()
	if err != nil {
		return nil, err
	}
	return client.FetchRateLimitStatus(ctx)
}

// History returns up to limit recorded snapshots of fullName ("owner/repo"), newest first.
func (s *MetadataService) History(ctx context.Context, fullName string, limit int) ([]model.Snapshot, error) {
	if s.snapshots == nil {
		return nil, ErrHistoryDisabled
	}

	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("%w: repository must be owner/name, got %q", driven.ErrInvalidArgument, fullName)
	}

	return s.snapshots.List(ctx, fullName, limit)
}

// CachedRepository returns the most recently recorded snapshot of owner/repo
// without calling GitHub. It wraps driven.ErrNotFound when nothing has been
// recorded yet.
func (s *MetadataService) CachedRepository(ctx context.Context, owner, repo string) (*model.Snapshot, error) {
	if s.snapshots == nil {
		return nil, ErrHistoryDisabled
	}
	if owner == "" || repo == "" || strings.Contains(owner, "/") || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("%w: repository must be owner/name, got %q/%q", driven.ErrInvalidArgument, owner, repo)
	}

	fullName := owner + "/" + repo
	snap, err := s.snapshots.Latest(ctx, fullName)
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("no recorded snapshot of %s: %w", fullName, driven.ErrNotFound)
	}
	return snap, nil
}

// StoredCredentials lists the services that have a stored credential. Values
// are never returned.
func (s *MetadataService) StoredCredentials(ctx context.Context) ([]model.Credential, error) {
	if s.credentials == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	creds, err := s.credentials.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	for i := range creds {
		creds[i].Value = ""
	}
	return creds, nil
}

// SetToken stores token and swaps in a client authenticated with it.
func (s *MetadataService) SetToken(ctx context.Context, token string) error {
	if s.credentials == nil || s.newClient == nil {
		return driven.ErrEncryptionKeyNotSet
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token must not be empty", driven.ErrInvalidArgument)
	}

	client, err := s.newClient(token)
	if err != nil {
		return fmt.Errorf("build client: %w", err)
	}

	if err := s.credentials.Set(ctx, CredentialService, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	s.clients.Replace(client)
	slog.Info("GitHub token updated")
	return nil
}

// ClearToken removes the stored token and swaps in an unauthenticated client.
func (s *MetadataService) ClearToken(ctx context.Context) error {
	if s.credentials == nil || s.newClient == nil {
		return driven.ErrEncryptionKeyNotSet
	}

	if err := s.credentials.Delete(ctx, CredentialService); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}

	client, err := s.newClient("")
	if err != nil {
		return fmt.Errorf("build client: %w", err)
	}

	s.clients.Replace(client)
	slog.Info("GitHub token cleared")
	return nil
}

func (s *MetadataService) client() (driven.MetadataClient, error) {
	client := s.clients.Get()
	if client == nil {
		return nil, ErrNoClient
	}
	return client, nil
}

// checkQuota logs a warning when the quota observed on the last response is low.
func (s *MetadataService) checkQuota(client driven.MetadataClient) {
	status, ok := client.LastRateLimit()
	if !ok || status.Remaining >= s.lowQuota {
		return
	}
	slog.Warn("GitHub API quota low",
		"resource", status.Resource,
		"remaining", status.Remaining,
		"limit", status.Limit,
		"reset", status.Reset,
	)
}

// ResolveToken picks the token to authenticate with: configured wins, then a
// token held in store. A store without an encryption key, or a stored token
// sealed with a different key, counts as empty so that auth commands can still
// replace or clear it.
func ResolveToken(ctx context.Context, configured string, store driven.CredentialStore) (string, error) {
	if configured != "" || store == nil {
		return configured, nil
	}

	token, err := store.Get(ctx, CredentialService)
	if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		return "", nil
	}
	if errors.Is(err, driven.ErrCredentialUnreadable) {
		slog.Warn("ignoring stored GitHub token", "error", err)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load stored token: %w", err)
	}
	return token, nil
}
