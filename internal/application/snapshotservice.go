package application

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/ericfisherdev/repometa/internal/domain/model"
	"github.com/ericfisherdev/repometa/internal/domain/port/driven"
)

// maxLoadAttempts bounds LoadOrGenerate: one read, one generate, one re-read.
const maxLoadAttempts = 2

// SnapshotService produces the owner-grouped snapshot of every repository the
// authenticated user can access.
type SnapshotService struct {
	clients *ClientProvider
	store   driven.AccessSnapshotStore
}

// NewSnapshotService creates a SnapshotService writing to store.
func NewSnapshotService(clients *ClientProvider, store driven.AccessSnapshotStore) *SnapshotService {
	return &SnapshotService{clients: clients, store: store}
}

// Generate fetches the accessible repositories, groups them by owner and
// writes the result to the store.
func (s *SnapshotService) Generate(ctx context.Context) (model.AccessSnapshot, error) {
	client := s.clients.Get()
	if client == nil {
		return nil, ErrNoClient
	}

	repos, err := client.FetchUserRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch user repositories: %w", err)
	}

	snap := model.GroupByOwner(repos)
	if err := s.store.Write(snap); err != nil {
		return nil, err
	}

	slog.Info("access snapshot generated", "owners", len(snap), "repositories", snap.Count())
	return snap, nil
}

// LoadOrGenerate reads the stored snapshot. A missing snapshot is generated
// and read again; any other failure is returned immediately. At most
// maxLoadAttempts reads are made.
func (s *SnapshotService) LoadOrGenerate(ctx context.Context) (model.AccessSnapshot, error) {
	var lastErr error

	for attempt := 1; attempt <= maxLoadAttempts; attempt++ {
		snap, err := s.store.Read()
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		lastErr = err

		if attempt == maxLoadAttempts {
			break
		}

		slog.Info("access snapshot missing, generating", "attempt", attempt)
		if _, err := s.Generate(ctx); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("access snapshot unavailable after %d attempts: %w", maxLoadAttempts, lastErr)
}
