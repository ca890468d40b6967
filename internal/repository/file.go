package repository

import (
	"context"

	"collab-engine/internal/domain"
)

// FileRepository persists authoritative file content and version counters.
// The document store writes here before acknowledging an edit.
type FileRepository interface {
	// FindByID returns the file or ErrFileNotFound.
	FindByID(ctx context.Context, fileID string) (*domain.FileVersion, error)

	// Save upserts content and version for a file.
	Save(ctx context.Context, file *domain.FileVersion) error

	// FindByRoom lists file versions belonging to a room.
	FindByRoom(ctx context.Context, roomID uint) ([]domain.FileVersion, error)

	// CountAll counts tracked file versions, reported by the stats endpoint.
	CountAll(ctx context.Context) (int64, error)
}
