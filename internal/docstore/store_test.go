package docstore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collab-engine/internal/docstore"
	"collab-engine/internal/domain"
	"collab-engine/internal/repository"
	"collab-engine/internal/repository/mocks"
)

const (
	testFileID = "main.go"
	testRoomID = uint(7)
)

// newStore wires a store over mocks for a file that does not exist yet, so
// every test starts from empty content at version 0.
func newStore(t *testing.T, window int) (*docstore.Store, *mocks.FileRepository, *mocks.OperationRepository) {
	t.Helper()
	fileRepo := new(mocks.FileRepository)
	opRepo := new(mocks.OperationRepository)
	fileRepo.On("FindByID", mock.Anything, testFileID).Return(nil, repository.ErrFileNotFound).Once()
	return docstore.NewStore(fileRepo, opRepo, window), fileRepo, opRepo
}

func allowPersistence(fileRepo *mocks.FileRepository, opRepo *mocks.OperationRepository) {
	fileRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.FileVersion")).Return(nil)
	opRepo.On("SaveBatch", mock.Anything, mock.AnythingOfType("[]domain.EditOperation")).Return(nil)
	opRepo.On("ExistsByOperationID", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)
}

func insertOp(user, opID string, pos int, text string) domain.EditOperation {
	return domain.EditOperation{
		Kind:        domain.OpInsert,
		UserID:      user,
		OperationID: opID,
		Position:    pos,
		Content:     text,
	}
}

func TestApply_FastPathAdvancesVersion(t *testing.T) {
	store, fileRepo, opRepo := newStore(t, 0)
	allowPersistence(fileRepo, opRepo)
	ctx := context.Background()

	result, err := store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{insertOp("alice", "op-1", 0, "hello")}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.NewVersion)
	assert.Equal(t, "hello", result.Content)

	content, version, err := store.Get(ctx, testFileID, testRoomID)
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
	assert.Equal(t, int64(1), version)
}

func TestApply_VersionIsMonotonic(t *testing.T) {
	store, fileRepo, opRepo := newStore(t, 0)
	allowPersistence(fileRepo, opRepo)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		op := insertOp("alice", fmt.Sprintf("op-%d", i), i, "x")
		result, err := store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{op}, int64(i))
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), result.NewVersion)
	}
}

func TestApply_ConcurrentEditsConverge(t *testing.T) {
	store, fileRepo, opRepo := newStore(t, 0)
	allowPersistence(fileRepo, opRepo)
	ctx := context.Background()

	_, err := store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{insertOp("alice", "op-base", 0, "abcdef")}, 0)
	require.NoError(t, err)

	// Both clients edit against version 1. Alice lands first.
	_, err = store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{insertOp("alice", "op-a", 3, "AAA")}, 1)
	require.NoError(t, err)

	// Bob's insert at the same position is transformed behind Alice's
	// because her user ID sorts lower.
	result, err := store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{insertOp("bob", "op-b", 3, "B")}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.NewVersion)
	assert.Equal(t, "abcAAABdef", result.Content)
	require.Len(t, result.Ops, 1)
	assert.Equal(t, 6, result.Ops[0].Position)
}

func TestApply_StaleInsertShiftedPastConcurrentInsert(t *testing.T) {
	store, fileRepo, opRepo := newStore(t, 0)
	allowPersistence(fileRepo, opRepo)
	ctx := context.Background()

	_, err := store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{insertOp("alice", "op-base", 0, "world")}, 0)
	require.NoError(t, err)

	_, err = store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{insertOp("alice", "op-a", 0, "hello ")}, 1)
	require.NoError(t, err)

	// Bob appends "!" at position 5 of "world"; transformed against the
	// concurrent prefix insert it must land at the end.
	result, err := store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{insertOp("bob", "op-b", 5, "!")}, 1)
	require.NoError(t, err)
	assert.Equal(t, "hello world!", result.Content)
}

func TestApply_BaseOutsideWindowForcesResync(t *testing.T) {
	store, fileRepo, opRepo := newStore(t, 2)
	allowPersistence(fileRepo, opRepo)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		op := insertOp("alice", fmt.Sprintf("op-%d", i), i, "x")
		_, err := store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{op}, int64(i))
		require.NoError(t, err)
	}

	// Base version 1 is older than the retained window of 2 operations.
	_, err := store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{insertOp("bob", "op-stale", 0, "y")}, 1)
	var resync *docstore.ResyncError
	require.ErrorAs(t, err, &resync)
	assert.Equal(t, int64(4), resync.Version)
	assert.Equal(t, "xxxx", resync.Content)
}

func TestApply_FutureBaseVersionRejected(t *testing.T) {
	store, fileRepo, opRepo := newStore(t, 0)
	allowPersistence(fileRepo, opRepo)

	_, err := store.Apply(context.Background(), testFileID, testRoomID, []domain.EditOperation{insertOp("alice", "op-1", 0, "x")}, 9)
	assert.ErrorIs(t, err, docstore.ErrFutureBaseVersion)
}

func TestApply_DuplicateBatchReturnsFirstOutcome(t *testing.T) {
	store, fileRepo, opRepo := newStore(t, 0)
	fileRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.FileVersion")).Return(nil).Once()
	opRepo.On("SaveBatch", mock.Anything, mock.AnythingOfType("[]domain.EditOperation")).Return(nil).Once()
	ctx := context.Background()

	batch := []domain.EditOperation{insertOp("alice", "op-dup", 0, "hello")}
	first, err := store.Apply(ctx, testFileID, testRoomID, batch, 0)
	require.NoError(t, err)

	// A retried submission must not re-apply or re-persist; the mocks above
	// only allow one write each.
	second, err := store.Apply(ctx, testFileID, testRoomID, batch, 0)
	require.NoError(t, err)
	assert.Equal(t, first.NewVersion, second.NewVersion)
	assert.Equal(t, first.Content, second.Content)

	_, version, err := store.Get(ctx, testFileID, testRoomID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	fileRepo.AssertExpectations(t)
	opRepo.AssertExpectations(t)
}

func TestApply_PersistenceFailureLeavesVersionUntouched(t *testing.T) {
	store, fileRepo, opRepo := newStore(t, 0)
	fileRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.FileVersion")).Return(errors.New("disk full")).Once()
	fileRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.FileVersion")).Return(nil).Once()
	opRepo.On("SaveBatch", mock.Anything, mock.AnythingOfType("[]domain.EditOperation")).Return(nil)
	ctx := context.Background()

	_, err := store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{insertOp("alice", "op-1", 0, "x")}, 0)
	require.Error(t, err)

	_, version, err := store.Get(ctx, testFileID, testRoomID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	// The client retries the same batch; it must succeed at the same base.
	result, err := store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{insertOp("alice", "op-1", 0, "x")}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.NewVersion)
}

func TestApply_RejectsMalformedBatches(t *testing.T) {
	store, _, _ := newStore(t, 0)
	ctx := context.Background()

	_, err := store.Apply(ctx, testFileID, testRoomID, nil, 0)
	assert.Error(t, err)

	bad := domain.EditOperation{Kind: "scribble", Position: 0}
	_, err = store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{bad}, 0)
	assert.Error(t, err)
}

func TestApply_ReplayWindowSurvivesRestart(t *testing.T) {
	fileRepo := new(mocks.FileRepository)
	opRepo := new(mocks.OperationRepository)
	ctx := context.Background()

	// A fresh store finds durable state from a previous process: content at
	// version 2 plus the persisted operation log.
	fileRepo.On("FindByID", mock.Anything, testFileID).Return(&domain.FileVersion{
		FileID:  testFileID,
		RoomID:  testRoomID,
		Content: "abcdef",
		Version: 2,
	}, nil).Once()
	opRepo.On("RecentByFile", mock.Anything, testFileID, docstore.DefaultWindow).Return([]domain.EditOperation{
		{Kind: domain.OpInsert, UserID: "alice", OperationID: "op-1", Position: 0, Content: "abc", Version: 1},
		{Kind: domain.OpInsert, UserID: "alice", OperationID: "op-2", Position: 3, Content: "def", Version: 2},
	}, nil).Once()
	allowPersistence(fileRepo, opRepo)
	store := docstore.NewStore(fileRepo, opRepo, 0)

	// Bob edits against version 1; his insert must be transformed past
	// Alice's reloaded version-2 insert at the same position.
	result, err := store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{insertOp("bob", "op-3", 3, "X")}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.NewVersion)
	assert.Equal(t, "abcdefX", result.Content)
	require.Len(t, result.Ops, 1)
	assert.Equal(t, 6, result.Ops[0].Position)
}

func TestApply_DuplicateAcrossRestartReturnsCurrentState(t *testing.T) {
	fileRepo := new(mocks.FileRepository)
	opRepo := new(mocks.OperationRepository)
	ctx := context.Background()

	fileRepo.On("FindByID", mock.Anything, testFileID).Return(&domain.FileVersion{
		FileID:  testFileID,
		RoomID:  testRoomID,
		Content: "hello",
		Version: 1,
	}, nil).Once()
	opRepo.On("RecentByFile", mock.Anything, testFileID, docstore.DefaultWindow).Return([]domain.EditOperation{
		{Kind: domain.OpInsert, UserID: "alice", OperationID: "op-1", Position: 0, Content: "hello", Version: 1},
	}, nil).Once()
	opRepo.On("ExistsByOperationID", mock.Anything, "op-1").Return(true, nil).Once()
	store := docstore.NewStore(fileRepo, opRepo, 0)

	// The retried batch was accepted before the restart; the durable log
	// remembers it even though the in-memory dedup set was lost.
	result, err := store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{insertOp("alice", "op-1", 0, "hello")}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.NewVersion)
	assert.Equal(t, "hello", result.Content)
	fileRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	opRepo.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
}

func TestReleaseRoom_DropsInMemoryState(t *testing.T) {
	fileRepo := new(mocks.FileRepository)
	opRepo := new(mocks.OperationRepository)
	fileRepo.On("FindByID", mock.Anything, testFileID).Return(nil, repository.ErrFileNotFound).Twice()
	allowPersistence(fileRepo, opRepo)
	store := docstore.NewStore(fileRepo, opRepo, 0)
	ctx := context.Background()

	_, err := store.Apply(ctx, testFileID, testRoomID, []domain.EditOperation{insertOp("alice", "op-1", 0, "x")}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, store.TrackedFiles())

	store.ReleaseRoom(testRoomID)
	assert.Equal(t, 0, store.TrackedFiles())

	// The next access reloads from the repository (second FindByID above).
	_, _, err = store.Get(ctx, testFileID, testRoomID)
	require.NoError(t, err)
}
