package repository

import (
	"context"

	"collab-engine/internal/domain"
)

// SnapshotRepository stores immutable point-in-time document copies.
type SnapshotRepository interface {
	// Save stores a new snapshot.
	Save(ctx context.Context, snapshot *domain.RoomSnapshot) error

	// FindByID returns the snapshot or ErrSnapshotNotFound.
	FindByID(ctx context.Context, id string) (*domain.RoomSnapshot, error)

	// FindByRoom lists snapshots for a room, newest first.
	FindByRoom(ctx context.Context, roomID uint) ([]domain.RoomSnapshot, error)
}
