package application_test

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"github.com/ericfisherdev/repometa/internal/domain/model"
	"github.com/ericfisherdev/repometa/internal/domain/port/driven"
)

// mockMetadataClient returns canned responses and counts calls.
type mockMetadataClient struct {
	mu sync.Mutex

	metadata     *model.RepositoryMetadata
	rateLimit    *model.RateLimitStatus
	contributors []model.Contributor
	userRepos    []model.RepositoryAccess
	lastRate     *model.RateLimitStatus
	err          error

	metadataCalls  int
	userRepoCalls  int
	requestedLimit int
}

func (m *mockMetadataClient) FetchRepositoryMetadata(_ context.Context, owner, repo string) (*model.RepositoryMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadataCalls++
	if m.err != nil {
		return nil, m.err
	}
	if m.metadata != nil {
		meta := *m.metadata
		return &meta, nil
	}
	return &model.RepositoryMetadata{Owner: owner, Name: repo, FullName: owner + "/" + repo}, nil
}

func (m *mockMetadataClient) FetchRateLimitStatus(context.Context) (*model.RateLimitStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rateLimit, nil
}

func (m *mockMetadataClient) FetchContributors(_ context.Context, _, _ string, limit int) ([]model.Contributor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestedLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.contributors, nil
}

func (m *mockMetadataClient) FetchUserRepositories(context.Context) ([]model.RepositoryAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userRepoCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.userRepos, nil
}

func (m *mockMetadataClient) LastRateLimit() (model.RateLimitStatus, bool) {
	if m.lastRate == nil {
		return model.RateLimitStatus{}, false
	}
	return *m.lastRate, true
}

// mockSnapshotStore keeps snapshots in memory, newest last.
type mockSnapshotStore struct {
	saved   []model.Snapshot
	saveErr error
}

func (m *mockSnapshotStore) Save(_ context.Context, meta model.RepositoryMetadata) (model.Snapshot, error) {
	if m.saveErr != nil {
		return model.Snapshot{}, m.saveErr
	}
	snap := model.Snapshot{ID: int64(len(m.saved) + 1), Metadata: meta}
	m.saved = append(m.saved, snap)
	return snap, nil
}

func (m *mockSnapshotStore) Latest(_ context.Context, fullName string) (*model.Snapshot, error) {
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Metadata.FullName == fullName {
			snap := m.saved[i]
			return &snap, nil
		}
	}
	return nil, nil
}

func (m *mockSnapshotStore) List(_ context.Context, fullName string, limit int) ([]model.Snapshot, error) {
	out := []model.Snapshot{}
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Metadata.FullName != fullName {
			continue
		}
		out = append(out, m.saved[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// mockCredentialStore keeps plaintext credentials in memory.
type mockCredentialStore struct {
	values map[string]string
	getErr error
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{values: map[string]string{}}
}

func (m *mockCredentialStore) Set(_ context.Context, service, plaintext string) error {
	m.values[service] = plaintext
	return nil
}

func (m *mockCredentialStore) Get(_ context.Context, service string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.values[service], nil
}

func (m *mockCredentialStore) List(context.Context) ([]model.Credential, error) {
	var creds []model.Credential
	for service, value := range m.values {
		creds = append(creds, model.Credential{Service: service, Value: value})
	}
	return creds, nil
}

func (m *mockCredentialStore) Delete(_ context.Context, service string) error {
	delete(m.values, service)
	return nil
}

// mockAccessStore is an in-memory AccessSnapshotStore. readErr, when set,
// is returned by every Read regardless of stored content.
type mockAccessStore struct {
	snap      model.AccessSnapshot
	written   bool
	readErr   error
	writeErr  error
	reads     int
	dropWrite bool // accept writes without persisting them
}

func (m *mockAccessStore) Write(snap model.AccessSnapshot) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	if !m.dropWrite {
		m.snap = snap
		m.written = true
	}
	return nil
}

func (m *mockAccessStore) Read() (model.AccessSnapshot, error) {
	m.reads++
	if m.readErr != nil {
		return nil, m.readErr
	}
	if !m.written {
		return nil, fmt.Errorf("read snapshot: %w", fs.ErrNotExist)
	}
	return m.snap, nil
}

var (
	_ driven.MetadataClient      = (*mockMetadataClient)(nil)
	_ driven.SnapshotStore       = (*mockSnapshotStore)(nil)
	_ driven.CredentialStore     = (*mockCredentialStore)(nil)
	_ driven.AccessSnapshotStore = (*mockAccessStore)(nil)
)
