package application_test

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/repometa/internal/application"
	"github.com/ericfisherdev/repometa/internal/domain/model"
	"github.com/ericfisherdev/repometa/internal/domain/port/driven"
)

func userRepos() []model.RepositoryAccess {
	return []model.RepositoryAccess{
		{ID: 1, Owner: "octocat", Name: "Hello-World", Visibility: "public"},
		{ID: 2, Owner: "octocat", Name: "Spoon-Knife", Visibility: "public"},
		{ID: 3, Owner: "github", Name: "docs", Visibility: "private"},
	}
}

func TestSnapshotService_Generate(t *testing.T) {
	client := &mockMetadataClient{userRepos: userRepos()}
	store := &mockAccessStore{}
	svc := application.NewSnapshotService(application.NewClientProvider(client), store)

	snap, err := svc.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Count())
	assert.Len(t, snap["octocat"], 2)
	assert.Equal(t, int64(3), snap["github"]["docs"].ID)
	assert.Equal(t, snap, store.snap)
}

func TestSnapshotService_GenerateErrors(t *testing.T) {
	ctx := context.Background()

	noClient := application.NewSnapshotService(application.NewClientProvider(nil), &mockAccessStore{})
	_, err := noClient.Generate(ctx)
	assert.ErrorIs(t, err, application.ErrNoClient)

	authFail := &mockMetadataClient{err: driven.ErrAuth}
	store := &mockAccessStore{}
	svc := application.NewSnapshotService(application.NewClientProvider(authFail), store)
	_, err = svc.Generate(ctx)
	assert.ErrorIs(t, err, driven.ErrAuth)
	assert.False(t, store.written)

	writeFail := &mockAccessStore{writeErr: errors.New("read-only fs")}
	svc = application.NewSnapshotService(application.NewClientProvider(&mockMetadataClient{}), writeFail)
	_, err = svc.Generate(ctx)
	assert.EqualError(t, err, "read-only fs")
}

func TestSnapshotService_LoadOrGenerate_Existing(t *testing.T) {
	client := &mockMetadataClient{userRepos: userRepos()}
	store := &mockAccessStore{}
	require.NoError(t, store.Write(model.GroupByOwner(userRepos()[:1])))
	svc := application.NewSnapshotService(application.NewClientProvider(client), store)

	snap, err := svc.LoadOrGenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Count())
	assert.Equal(t, 0, client.userRepoCalls, "existing snapshot is not regenerated")
	assert.Equal(t, 1, store.reads)
}

func TestSnapshotService_LoadOrGenerate_Missing(t *testing.T) {
	client := &mockMetadataClient{userRepos: userRepos()}
	store := &mockAccessStore{}
	svc := application.NewSnapshotService(application.NewClientProvider(client), store)

	snap, err := svc.LoadOrGenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Count())
	assert.Equal(t, 1, client.userRepoCalls)
	assert.Equal(t, 2, store.reads)
}

func TestSnapshotService_LoadOrGenerate_GivesUpAfterTwoAttempts(t *testing.T) {
	client := &mockMetadataClient{userRepos: userRepos()}
	store := &mockAccessStore{dropWrite: true}
	svc := application.NewSnapshotService(application.NewClientProvider(client), store)

	_, err := svc.LoadOrGenerate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, 2, store.reads)
	assert.Equal(t, 1, client.userRepoCalls)
}

func TestSnapshotService_LoadOrGenerate_OtherReadErrorNotRetried(t *testing.T) {
	client := &mockMetadataClient{userRepos: userRepos()}
	store := &mockAccessStore{readErr: errors.New("parse snapshot: bad yaml")}
	svc := application.NewSnapshotService(application.NewClientProvider(client), store)

	_, err := svc.LoadOrGenerate(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, store.reads)
	assert.Equal(t, 0, client.userRepoCalls)
}

func TestSnapshotService_LoadOrGenerate_GenerateError(t *testing.T) {
	client := &mockMetadataClient{err: driven.ErrTransport}
	store := &mockAccessStore{}
	svc := application.NewSnapshotService(application.NewClientProvider(client), store)

	_, err := svc.LoadOrGenerate(context.Background())
	assert.ErrorIs(t, err, driven.ErrTransport)
	assert.Equal(t, 1, store.reads)
}
