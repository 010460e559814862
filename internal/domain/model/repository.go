package model

import "time"

// RepositoryMetadata is a point-in-time snapshot of a GitHub repository's
// descriptive attributes. It is a value record; nothing mutates it after the
// client maps it from an API response.
type RepositoryMetadata struct {
	ID            int64
	Owner         string
	Name          string
	FullName      string
	Description   string
	DefaultBranch string
	Private       bool
	Visibility    string // "public", "private" or "internal"
	Fork          bool
	Archived      bool
	Stars         int
	HTMLURL       string
	PushedAt      time.Time
	FetchedAt     time.Time
}

// Contributor is a single entry of a repository's contributor list.
type Contributor struct {
	Login         string
	Contributions int
	Type          string // "User" or "Bot"
}

// IsBot reports whether GitHub classifies the contributor as a bot account.
func (c Contributor) IsBot() bool {
	return c.Type == "Bot"
}

// Snapshot is a RepositoryMetadata record persisted at RecordedAt.
type Snapshot struct {
	ID         int64
	Metadata   RepositoryMetadata
	RecordedAt time.Time
}
