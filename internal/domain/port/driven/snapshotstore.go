package driven

import (
	"context"

	"github.com/ericfisherdev/repometa/internal/domain/model"
)

// SnapshotStore defines the driven port for repository metadata history.
type SnapshotStore interface {
	// Save records meta and returns the stored snapshot.
	Save(ctx context.Context, meta model.RepositoryMetadata) (model.Snapshot, error)
	// Latest returns the most recent snapshot for fullName, or nil, nil if none exists.
	Latest(ctx context.Context, fullName string) (*model.Snapshot, error)
	// List returns up to limit snapshots for fullName, newest first. limit <= 0 means no limit.
	List(ctx context.Context, fullName string, limit int) ([]model.Snapshot, error)
}

// AccessSnapshotStore defines the driven port for the owner-grouped access snapshot.
// Read wraps fs.ErrNotExist when no snapshot has been written yet.
type AccessSnapshotStore interface {
	Write(snap model.AccessSnapshot) error
	Read() (model.AccessSnapshot, error)
}
