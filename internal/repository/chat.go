package repository

import (
	"context"
	"time"

	"collab-engine/internal/domain"
)

// ChatRepository is the append-only room chat log.
type ChatRepository interface {
	// Append stores a new message.
	Append(ctx context.Context, msg *domain.ChatMessage) error

	// History returns up to limit of the newest non-deleted messages older
	// than before (zero before means "now"), in chronological ascending
	// order within the returned page.
	History(ctx context.Context, roomID uint, limit int, before time.Time) ([]domain.ChatMessage, error)

	// SoftDelete flags a message as deleted without removing the row.
	// Returns ErrMessageNotFound when no matching message exists for the
	// given author.
	SoftDelete(ctx context.Context, roomID uint, messageID, userID string) error

	// CountByRoom counts non-deleted messages in a room.
	CountByRoom(ctx context.Context, roomID uint) (int64, error)
}
