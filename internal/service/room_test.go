package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collab-engine/internal/domain"
	"collab-engine/internal/repository"
	"collab-engine/internal/repository/mocks"
	"collab-engine/internal/service"
)

func newRoomService() (*service.RoomService, *mocks.RoomRepository, *mocks.ChatRepository, *mocks.FileRepository) {
	roomRepo := new(mocks.RoomRepository)
	chatRepo := new(mocks.ChatRepository)
	fileRepo := new(mocks.FileRepository)
	return service.NewRoomService(roomRepo, chatRepo, fileRepo), roomRepo, chatRepo, fileRepo
}

func TestRoomService_CreateRoom_Defaults(t *testing.T) {
	svc, roomRepo, _, _ := newRoomService()
	ctx := context.Background()

	roomRepo.On("Save", ctx, mock.MatchedBy(func(room *domain.Room) bool {
		assert.Equal(t, "proj-1", room.ProjectID)
		assert.Equal(t, "Untitled room", room.Name)
		assert.Equal(t, domain.DefaultRoomCapacity, room.Capacity)
		assert.Equal(t, domain.VisibilityPrivate, room.Visibility)
		return true
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Room).ID = 42
	}).Return(nil).Once()

	room, err := svc.CreateRoom(ctx, "proj-1", "", "alice", "", 0)
	require.NoError(t, err)
	assert.Equal(t, uint(42), room.ID)
	roomRepo.AssertExpectations(t)
}

func TestRoomService_CreateRoom_RequiresProjectAndOwner(t *testing.T) {
	svc, roomRepo, _, _ := newRoomService()

	_, err := svc.CreateRoom(context.Background(), "", "name", "alice", "", 0)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = svc.CreateRoom(context.Background(), "proj-1", "name", "  ", "", 0)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	roomRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRoomService_GetRoom_NotFound(t *testing.T) {
	svc, roomRepo, _, _ := newRoomService()
	roomRepo.On("FindByID", mock.Anything, uint(99)).Return(nil, repository.ErrRoomNotFound).Once()

	_, err := svc.GetRoom(context.Background(), 99)
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
}

func TestRoomService_GetRoom_WrapsInfraErrors(t *testing.T) {
	svc, roomRepo, _, _ := newRoomService()
	roomRepo.On("FindByID", mock.Anything, uint(1)).Return(nil, errors.New("connection reset")).Once()

	_, err := svc.GetRoom(context.Background(), 1)
	assert.ErrorIs(t, err, service.ErrInternalServer)
}

func TestRoomService_RoomStats(t *testing.T) {
	svc, roomRepo, chatRepo, fileRepo := newRoomService()
	ctx := context.Background()

	roomRepo.On("FindByID", ctx, uint(7)).Return(&domain.Room{ID: 7, Capacity: 10}, nil).Once()
	fileRepo.On("FindByRoom", ctx, uint(7)).Return([]domain.FileVersion{{FileID: "a"}, {FileID: "b"}}, nil).Once()
	chatRepo.On("CountByRoom", ctx, uint(7)).Return(int64(25), nil).Once()

	stats, err := svc.RoomStats(ctx, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, uint(7), stats.RoomID)
	assert.Equal(t, 3, stats.ActiveUsers)
	assert.Equal(t, 10, stats.Capacity)
	assert.Equal(t, 2, stats.TrackedFiles)
	assert.Equal(t, int64(25), stats.ChatMessages)
}
