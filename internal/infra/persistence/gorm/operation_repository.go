package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"collab-engine/internal/domain"
	"collab-engine/internal/repository"
)

// GormOperationRepository is the GORM implementation of OperationRepository.
type GormOperationRepository struct {
	db *gorm.DB
}

// NewGormOperationRepository creates a GormOperationRepository.
func NewGormOperationRepository(db *gorm.DB) *GormOperationRepository {
	if db == nil {
		panic("database connection cannot be nil for GormOperationRepository")
	}
	return &GormOperationRepository{db: db}
}

// SaveBatch appends accepted operations in acceptance order.
func (r *GormOperationRepository) SaveBatch(ctx context.Context, ops []domain.EditOperation) error {
	if len(ops) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&ops).Error; err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save operation batch (size %d): %w", len(ops), err)
	}
	return nil
}

// ExistsByOperationID reports whether an operation ID was already accepted.
func (r *GormOperationRepository) ExistsByOperationID(ctx context.Context, operationID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.EditOperation{}).
		Where("operation_id = ?", operationID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: check operation id %q: %w", operationID, err)
	}
	return count > 0, nil
}

// RecentByFile returns the last limit operations for a file in ascending
// server version order.
func (r *GormOperationRepository) RecentByFile(ctx context.Context, fileID string, limit int) ([]domain.EditOperation, error) {
	var ops []domain.EditOperation
	err := r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("version DESC, id DESC").
		Limit(limit).
		Find(&ops).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: recent operations for file %q: %w", fileID, err)
	}
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}
	return ops, nil
}
