package repository

import (
	"context"
	"time"

	"collab-engine/internal/domain"
)

// RoomRepository stores durable room records. Live session state (members,
// transport handles) is owned by the hub, not persisted here.
type RoomRepository interface {
	// FindByID returns the room or ErrRoomNotFound.
	FindByID(ctx context.Context, id uint) (*domain.Room, error)

	// FindByProject lists rooms bound to one project, newest first.
	FindByProject(ctx context.Context, projectID string) ([]domain.Room, error)

	// Save creates the room when ID is zero, updates it otherwise.
	Save(ctx context.Context, room *domain.Room) error

	// TouchLastActive bumps the room's last_active timestamp.
	TouchLastActive(ctx context.Context, id uint, at time.Time) error

	// FindIdleBefore lists rooms whose last_active is older than cutoff,
	// used by the housekeeping sweep.
	FindIdleBefore(ctx context.Context, cutoff time.Time) ([]domain.Room, error)

	// Delete removes the durable record.
	Delete(ctx context.Context, id uint) error
}
