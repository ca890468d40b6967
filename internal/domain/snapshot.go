package domain

import "time"

// RoomSnapshot is a named point-in-time copy of a document. Immutable.
type RoomSnapshot struct {
	ID          string    `gorm:"primaryKey;size:191" json:"id"`
	RoomID      uint      `gorm:"index;not null" json:"room_id"`
	FileID      string    `gorm:"size:191;index;not null" json:"file_id"`
	CreatorID   string    `gorm:"size:191;not null" json:"creator_id"`
	Description string    `gorm:"size:255" json:"description"`
	Content     string    `gorm:"type:longtext" json:"content"`
	Version     int64     `gorm:"not null" json:"version"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
