package domain

import "time"

// Chat message kinds.
const (
	ChatKindText   = "text"
	ChatKindSystem = "system"
)

// ChatMessage is a room-scoped message. Never mutated after creation except
// for the soft-delete flag.
type ChatMessage struct {
	ID        string    `gorm:"primaryKey;size:191" json:"id"`
	RoomID    uint      `gorm:"index;not null" json:"room_id"`
	UserID    string    `gorm:"size:191;index;not null" json:"user_id"`
	Body      string    `gorm:"type:text;not null" json:"message"`
	Kind      string    `gorm:"size:32;not null" json:"message_type"`
	ReplyTo   string    `gorm:"size:191" json:"reply_to,omitempty"`
	Metadata  string    `gorm:"type:text" json:"metadata,omitempty"`
	Deleted   bool      `gorm:"index" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"timestamp"`
}
