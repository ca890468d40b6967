package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"collab-engine/internal/domain"
	"collab-engine/internal/repository"
)

// GormFileRepository is the GORM implementation of FileRepository.
type GormFileRepository struct {
	db *gorm.DB
}

// NewGormFileRepository creates a GormFileRepository.
func NewGormFileRepository(db *gorm.DB) *GormFileRepository {
	if db == nil {
		panic("database connection cannot be nil for GormFileRepository")
	}
	return &GormFileRepository{db: db}
}

// FindByID returns the file or repository.ErrFileNotFound.
func (r *GormFileRepository) FindByID(ctx context.Context, fileID string) (*domain.FileVersion, error) {
	var file domain.FileVersion
	err := r.db.WithContext(ctx).First(&file, "file_id = ?", fileID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrFileNotFound
		}
		return nil, fmt.Errorf("gorm: find file %q: %w", fileID, err)
	}
	return &file, nil
}

// Save upserts content and version keyed by file_id.
func (r *GormFileRepository) Save(ctx context.Context, file *domain.FileVersion) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "file_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "version", "updated_at"}),
		}).
		Create(file).Error
	if err != nil {
		return fmt.Errorf("gorm: save file %q version %d: %w", file.FileID, file.Version, err)
	}
	return nil
}

// FindByRoom lists file versions belonging to a room.
func (r *GormFileRepository) FindByRoom(ctx context.Context, roomID uint) ([]domain.FileVersion, error) {
	var files []domain.FileVersion
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("file_id ASC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find files for room %d: %w", roomID, err)
	}
	return files, nil
}

// CountAll counts tracked file versions.
func (r *GormFileRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.FileVersion{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("gorm: count files: %w", err)
	}
	return count, nil
}
