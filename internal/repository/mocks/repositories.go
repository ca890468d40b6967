// Package mocks holds testify mocks for the repository interfaces, used by
// service and docstore tests.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"collab-engine/internal/domain"
)

// RoomRepository is a mock of repository.RoomRepository.
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	args := m.Called(ctx, id)
	if room, ok := args.Get(0).(*domain.Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) FindByProject(ctx context.Context, projectID string) ([]domain.Room, error) {
	args := m.Called(ctx, projectID)
	if rooms, ok := args.Get(0).([]domain.Room); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) Save(ctx context.Context, room *domain.Room) error {
	return m.Called(ctx, room).Error(0)
}

func (m *RoomRepository) TouchLastActive(ctx context.Context, id uint, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *RoomRepository) FindIdleBefore(ctx context.Context, cutoff time.Time) ([]domain.Room, error) {
	args := m.Called(ctx, cutoff)
	if rooms, ok := args.Get(0).([]domain.Room); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

// ChatRepository is a mock of repository.ChatRepository.
type ChatRepository struct {
	mock.Mock
}

func (m *ChatRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *ChatRepository) History(ctx context.Context, roomID uint, limit int, before time.Time) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID, limit, before)
	if msgs, ok := args.Get(0).([]domain.ChatMessage); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChatRepository) SoftDelete(ctx context.Context, roomID uint, messageID, userID string) error {
	return m.Called(ctx, roomID, messageID, userID).Error(0)
}

func (m *ChatRepository) CountByRoom(ctx context.Context, roomID uint) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

// FileRepository is a mock of repository.FileRepository.
type FileRepository struct {
	mock.Mock
}

func (m *FileRepository) FindByID(ctx context.Context, fileID string) (*domain.FileVersion, error) {
	args := m.Called(ctx, fileID)
	if file, ok := args.Get(0).(*domain.FileVersion); ok {
		return file, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *FileRepository) Save(ctx context.Context, file *domain.FileVersion) error {
	return m.Called(ctx, file).Error(0)
}

func (m *FileRepository) FindByRoom(ctx context.Context, roomID uint) ([]domain.FileVersion, error) {
	args := m.Called(ctx, roomID)
	if files, ok := args.Get(0).([]domain.FileVersion); ok {
		return files, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *FileRepository) CountAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// OperationRepository is a mock of repository.OperationRepository.
type OperationRepository struct {
	mock.Mock
}

func (m *OperationRepository) SaveBatch(ctx context.Context, ops []domain.EditOperation) error {
	return m.Called(ctx, ops).Error(0)
}

func (m *OperationRepository) ExistsByOperationID(ctx context.Context, operationID string) (bool, error) {
	args := m.Called(ctx, operationID)
	return args.Bool(0), args.Error(1)
}

func (m *OperationRepository) RecentByFile(ctx context.Context, fileID string, limit int) ([]domain.EditOperation, error) {
	args := m.Called(ctx, fileID, limit)
	if ops, ok := args.Get(0).([]domain.EditOperation); ok {
		return ops, args.Error(1)
	}
	return nil, args.Error(1)
}

// PresenceRepository is a mock of repository.PresenceRepository.
type PresenceRepository struct {
	mock.Mock
}

func (m *PresenceRepository) Upsert(ctx context.Context, p domain.UserPresence) error {
	return m.Called(ctx, p).Error(0)
}

func (m *PresenceRepository) Remove(ctx context.Context, roomID uint, userID string) error {
	return m.Called(ctx, roomID, userID).Error(0)
}

func (m *PresenceRepository) ListByRoom(ctx context.Context, roomID uint) ([]domain.UserPresence, error) {
	args := m.Called(ctx, roomID)
	if ps, ok := args.Get(0).([]domain.UserPresence); ok {
		return ps, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PresenceRepository) PurgeRoom(ctx context.Context, roomID uint) error {
	return m.Called(ctx, roomID).Error(0)
}

// SnapshotRepository is a mock of repository.SnapshotRepository.
type SnapshotRepository struct {
	mock.Mock
}

func (m *SnapshotRepository) Save(ctx context.Context, snapshot *domain.RoomSnapshot) error {
	return m.Called(ctx, snapshot).Error(0)
}

func (m *SnapshotRepository) FindByID(ctx context.Context, id string) (*domain.RoomSnapshot, error) {
	args := m.Called(ctx, id)
	if snapshot, ok := args.Get(0).(*domain.RoomSnapshot); ok {
		return snapshot, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SnapshotRepository) FindByRoom(ctx context.Context, roomID uint) ([]domain.RoomSnapshot, error) {
	args := m.Called(ctx, roomID)
	if snapshots, ok := args.Get(0).([]domain.RoomSnapshot); ok {
		return snapshots, args.Error(1)
	}
	return nil, args.Error(1)
}

// AuditRepository is a mock of repository.AuditRepository.
type AuditRepository struct {
	mock.Mock
}

func (m *AuditRepository) Save(ctx context.Context, event *domain.AuditEvent) error {
	return m.Called(ctx, event).Error(0)
}
