package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collab-engine/internal/docstore"
	"collab-engine/internal/domain"
	"collab-engine/internal/repository"
	"collab-engine/internal/repository/mocks"
	"collab-engine/internal/service"
)

func newSnapshotService(t *testing.T) (*service.SnapshotService, *mocks.SnapshotRepository, *docstore.Store) {
	t.Helper()
	snapshotRepo := new(mocks.SnapshotRepository)
	fileRepo := new(mocks.FileRepository)
	opRepo := new(mocks.OperationRepository)
	fileRepo.On("FindByID", mock.Anything, mock.AnythingOfType("string")).Return(nil, repository.ErrFileNotFound)
	fileRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.FileVersion")).Return(nil)
	opRepo.On("SaveBatch", mock.Anything, mock.AnythingOfType("[]domain.EditOperation")).Return(nil)
	store := docstore.NewStore(fileRepo, opRepo, 0)
	return service.NewSnapshotService(snapshotRepo, store), snapshotRepo, store
}

func TestSnapshotService_Create_CapturesCurrentState(t *testing.T) {
	svc, snapshotRepo, store := newSnapshotService(t)
	ctx := context.Background()

	ops := []domain.EditOperation{{Kind: domain.OpInsert, UserID: "alice", OperationID: "op-1", Position: 0, Content: "package main"}}
	_, err := store.Apply(ctx, "main.go", 1, ops, 0)
	require.NoError(t, err)

	snapshotRepo.On("Save", ctx, mock.MatchedBy(func(s *domain.RoomSnapshot) bool {
		return s.Content == "package main" && s.Version == 1 && s.ID != ""
	})).Return(nil).Once()

	snapshot, err := svc.Create(ctx, 1, "main.go", "alice", "  before refactor  ")
	require.NoError(t, err)
	assert.Equal(t, "before refactor", snapshot.Description)
	assert.Equal(t, "alice", snapshot.CreatorID)
	snapshotRepo.AssertExpectations(t)
}

func TestSnapshotService_Create_RequiresFileID(t *testing.T) {
	svc, snapshotRepo, _ := newSnapshotService(t)

	_, err := svc.Create(context.Background(), 1, "", "alice", "")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	snapshotRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSnapshotService_Get_MapsNotFound(t *testing.T) {
	svc, snapshotRepo, _ := newSnapshotService(t)
	snapshotRepo.On("FindByID", mock.Anything, "snap-1").Return(nil, repository.ErrSnapshotNotFound).Once()

	_, err := svc.Get(context.Background(), "snap-1")
	assert.ErrorIs(t, err, service.ErrSnapshotNotFound)
}
