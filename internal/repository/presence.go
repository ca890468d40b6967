package repository

import (
	"context"

	"collab-engine/internal/domain"
)

// PresenceRepository mirrors ephemeral presence records outside process
// memory (Redis) for crash recovery and cross-instance visibility. It is a
// mirror, not the source of truth: the in-memory tracker stays authoritative
// for the local instance.
type PresenceRepository interface {
	// Upsert overwrites the presence record for (room, user).
	Upsert(ctx context.Context, p domain.UserPresence) error

	// Remove deletes the presence record for (room, user).
	Remove(ctx context.Context, roomID uint, userID string) error

	// ListByRoom returns all mirrored presence records for a room.
	ListByRoom(ctx context.Context, roomID uint) ([]domain.UserPresence, error)

	// PurgeRoom drops all presence records for a room.
	PurgeRoom(ctx context.Context, roomID uint) error
}
