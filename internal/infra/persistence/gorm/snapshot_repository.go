package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"collab-engine/internal/domain"
	"collab-engine/internal/repository"
)

// GormSnapshotRepository is the GORM implementation of SnapshotRepository.
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a GormSnapshotRepository.
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	if db == nil {
		panic("database connection cannot be nil for GormSnapshotRepository")
	}
	return &GormSnapshotRepository{db: db}
}

// Save stores a new snapshot.
func (r *GormSnapshotRepository) Save(ctx context.Context, snapshot *domain.RoomSnapshot) error {
	if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

// FindByID returns the snapshot or repository.ErrSnapshotNotFound.
func (r *GormSnapshotRepository) FindByID(ctx context.Context, id string) (*domain.RoomSnapshot, error) {
	var snapshot domain.RoomSnapshot
	err := r.db.WithContext(ctx).First(&snapshot, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("gorm: find snapshot %q: %w", id, err)
	}
	return &snapshot, nil
}

// FindByRoom lists snapshots for a room, newest first.
func (r *GormSnapshotRepository) FindByRoom(ctx context.Context, roomID uint) ([]domain.RoomSnapshot, error) {
	var snapshots []domain.RoomSnapshot
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find snapshots for room %d: %w", roomID, err)
	}
	return snapshots, nil
}
