package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"collab-engine/internal/domain"
)

// GormAuditRepository is the GORM implementation of AuditRepository.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a GormAuditRepository.
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	if db == nil {
		panic("database connection cannot be nil for GormAuditRepository")
	}
	return &GormAuditRepository{db: db}
}

// Save stores one audit event.
func (r *GormAuditRepository) Save(ctx context.Context, event *domain.AuditEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("gorm: save audit event: %w", err)
	}
	return nil
}
