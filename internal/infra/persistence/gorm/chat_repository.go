package gormpersistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"collab-engine/internal/domain"
	"collab-engine/internal/repository"
)

// GormChatRepository is the GORM implementation of ChatRepository.
type GormChatRepository struct {
	db *gorm.DB
}

// NewGormChatRepository creates a GormChatRepository.
func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	if db == nil {
		panic("database connection cannot be nil for GormChatRepository")
	}
	return &GormChatRepository{db: db}
}

// Append stores a new chat message.
func (r *GormChatRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: append chat message %s: %w", msg.ID, err)
	}
	return nil
}

// History pages backwards from before, returning the page in chronological
// ascending order. The query fetches newest-first and reverses in memory so
// the index on (room_id, created_at) serves both directions.
func (r *GormChatRepository) History(ctx context.Context, roomID uint, limit int, before time.Time) ([]domain.ChatMessage, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}
	var msgs []domain.ChatMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND deleted = ? AND created_at < ?", roomID, false, before).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: chat history for room %d: %w", roomID, err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// SoftDelete flags a message as deleted when it belongs to userID.
func (r *GormChatRepository) SoftDelete(ctx context.Context, roomID uint, messageID, userID string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("id = ? AND room_id = ? AND user_id = ? AND deleted = ?", messageID, roomID, userID, false).
		Update("deleted", true)
	if result.Error != nil {
		return fmt.Errorf("gorm: soft-delete chat message %s: %w", messageID, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrMessageNotFound
	}
	return nil
}

// CountByRoom counts non-deleted messages in a room.
func (r *GormChatRepository) CountByRoom(ctx context.Context, roomID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("room_id = ? AND deleted = ?", roomID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count chat messages for room %d: %w", roomID, err)
	}
	return count, nil
}
