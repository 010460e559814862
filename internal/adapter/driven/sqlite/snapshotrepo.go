package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/repometa/internal/domain/model"
	"github.com/ericfisherdev/repometa/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SnapshotStore = (*SnapshotRepo)(nil)

// timeLayout is fixed-width so stored timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const snapshotColumns = `id, repo_id, full_name, owner, name, description, default_branch,
	private, visibility, fork, archived, stars, html_url, pushed_at, fetched_at, recorded_at`

// SnapshotRepo is the SQLite implementation of the SnapshotStore port interface.
type SnapshotRepo struct {
	db  *DB
	now func() time.Time
}

// NewSnapshotRepo creates a new SnapshotRepo backed by the given DB.
func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db, now: time.Now}
}

// Save appends meta to the snapshot history. Snapshots are never updated in place.
func (r *SnapshotRepo) Save(ctx context.Context, meta model.RepositoryMetadata) (model.Snapshot, error) {
	const query = `INSERT INTO repository_snapshots (
		repo_id, full_name, owner, name, description, default_branch,
		private, visibility, fork, archived, stars, html_url, pushed_at, fetched_at, recorded_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	fullName := meta.FullName
	if fullName == "" {
		fullName = meta.Owner + "/" + meta.Name
	}
	recordedAt := r.now().UTC()

	result, err := r.db.Writer.ExecContext(ctx, query,
		meta.ID, fullName, meta.Owner, meta.Name, meta.Description, meta.DefaultBranch,
		meta.Private, meta.Visibility, meta.Fork, meta.Archived, meta.Stars, meta.HTMLURL,
		formatTime(meta.PushedAt), formatTime(meta.FetchedAt), formatTime(recordedAt),
	)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("save snapshot %s: %w", fullName, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read snapshot id: %w", err)
	}

	meta.FullName = fullName
	return model.Snapshot{ID: id, Metadata: meta, RecordedAt: recordedAt}, nil
}

// Latest returns the most recent snapshot for fullName (case-insensitive).
// Returns nil, nil if none has been recorded.
func (r *SnapshotRepo) Latest(ctx context.Context, fullName string) (*model.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM repository_snapshots
		WHERE full_name = ? ORDER BY recorded_at DESC, id DESC LIMIT 1`

	snap, err := scanSnapshot(r.db.Reader.QueryRowContext(ctx, query, fullName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest snapshot %s: %w", fullName, err)
	}

	return snap, nil
}

// List returns up to limit snapshots for fullName, newest first.
func (r *SnapshotRepo) List(ctx context.Context, fullName string, limit int) ([]model.Snapshot, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded.
	}

	query := `SELECT ` + snapshotColumns + ` FROM repository_snapshots
		WHERE full_name = ? ORDER BY recorded_at DESC, id DESC LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, fullName, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots %s: %w", fullName, err)
	}
	defer rows.Close()

	snaps := []model.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, *snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}

	return snaps, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(s scanner) (*model.Snapshot, error) {
	var snap model.Snapshot
	var pushedAt, fetchedAt, recordedAt string
	m := &snap.Metadata

	err := s.Scan(&snap.ID, &m.ID, &m.FullName, &m.Owner, &m.Name, &m.Description, &m.DefaultBranch,
		&m.Private, &m.Visibility, &m.Fork, &m.Archived, &m.Stars, &m.HTMLURL,
		&pushedAt, &fetchedAt, &recordedAt)
	if err != nil {
		return nil, err
	}

	if m.PushedAt, err = parseTime(pushedAt); err != nil {
		return nil, fmt.Errorf("parse pushed_at: %w", err)
	}
	if m.FetchedAt, err = parseTime(fetchedAt); err != nil {
		return nil, fmt.Errorf("parse fetched_at: %w", err)
	}
	if snap.RecordedAt, err = parseTime(recordedAt); err != nil {
		return nil, fmt.Errorf("parse recorded_at: %w", err)
	}

	return &snap, nil
}

// formatTime stores t in UTC with the fixed-width layout; the zero time is stored as "".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// parseTime accepts the fixed-width layout and the formats SQLite's own
// datetime functions produce. An empty string is the zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	formats := []string{
		timeLayout,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
