package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"collab-engine/internal/docstore"
	"collab-engine/internal/domain"
	"collab-engine/internal/repository"
)

// SnapshotService creates and serves immutable point-in-time document
// copies.
type SnapshotService struct {
	snapshotRepo repository.SnapshotRepository
	store        *docstore.Store
}

// NewSnapshotService creates a SnapshotService.
func NewSnapshotService(snapshotRepo repository.SnapshotRepository, store *docstore.Store) *SnapshotService {
	if snapshotRepo == nil || store == nil {
		panic("SnapshotRepository and docstore must be non-nil for SnapshotService")
	}
	return &SnapshotService{snapshotRepo: snapshotRepo, store: store}
}

// Create captures the current file content verbatim.
func (s *SnapshotService) Create(ctx context.Context, roomID uint, fileID, creatorID, description string) (*domain.RoomSnapshot, error) {
	if fileID == "" {
		return nil, ErrInvalidInput
	}
	content, version, err := s.store.Get(ctx, fileID, roomID)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"room_id": roomID, "file_id": fileID}).Error("Failed to read file for snapshot")
		return nil, ErrInternalServer
	}

	snapshot := &domain.RoomSnapshot{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		FileID:      fileID,
		CreatorID:   creatorID,
		Description: strings.TrimSpace(description),
		Content:     content,
		Version:     version,
	}
	if err := s.snapshotRepo.Save(ctx, snapshot); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"room_id": roomID, "file_id": fileID}).Error("Failed to save snapshot")
		return nil, ErrInternalServer
	}

	logrus.WithFields(logrus.Fields{"room_id": roomID, "snapshot_id": snapshot.ID, "version": version}).Info("Snapshot created")
	return snapshot, nil
}

// Get returns one snapshot by ID.
func (s *SnapshotService) Get(ctx context.Context, id string) (*domain.RoomSnapshot, error) {
	snapshot, err := s.snapshotRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			return nil, ErrSnapshotNotFound
		}
		logrus.WithError(err).WithField("snapshot_id", id).Error("Failed to load snapshot")
		return nil, ErrInternalServer
	}
	return snapshot, nil
}

// List returns all snapshots for a room, newest first.
func (s *SnapshotService) List(ctx context.Context, roomID uint) ([]domain.RoomSnapshot, error) {
	snapshots, err := s.snapshotRepo.FindByRoom(ctx, roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to list snapshots")
		return nil, ErrInternalServer
	}
	return snapshots, nil
}
