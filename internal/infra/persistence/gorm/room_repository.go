// Package gormpersistence implements the repository interfaces on GORM with
// MySQL. Driver errors are mapped to repository sentinels here; callers
// never see gorm or mysql error types.
package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"collab-engine/internal/domain"
	"collab-engine/internal/repository"
)

// mysqlDuplicateEntry is the MySQL error number for unique key violations.
const mysqlDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// GormRoomRepository is the GORM implementation of RoomRepository.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a GormRoomRepository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

// FindByID returns the room or repository.ErrRoomNotFound.
func (r *GormRoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %d: %w", id, err)
	}
	return &room, nil
}

// FindByProject lists rooms for a project, newest first.
func (r *GormRoomRepository) FindByProject(ctx context.Context, projectID string) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find rooms by project %q: %w", projectID, err)
	}
	return rooms, nil
}

// Save creates or updates a room record.
func (r *GormRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	if err := r.db.WithContext(ctx).Save(room).Error; err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save room %d: %w", room.ID, err)
	}
	return nil
}

// TouchLastActive bumps last_active without loading the record.
func (r *GormRoomRepository) TouchLastActive(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("id = ?", id).
		Update("last_active", at).Error
	if err != nil {
		return fmt.Errorf("gorm: touch room %d last_active: %w", id, err)
	}
	return nil
}

// FindIdleBefore lists rooms with last_active older than cutoff.
func (r *GormRoomRepository) FindIdleBefore(ctx context.Context, cutoff time.Time) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).
		Where("last_active < ?", cutoff).
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find idle rooms before %v: %w", cutoff, err)
	}
	return rooms, nil
}

// Delete removes the durable room record.
func (r *GormRoomRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Room{}, id).Error; err != nil {
		return fmt.Errorf("gorm: delete room %d: %w", id, err)
	}
	return nil
}
