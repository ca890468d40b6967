package domain

import "time"

// FileVersion is the authoritative state of one editable file. Version
// increases by exactly 1 per accepted operation batch and is only mutated
// through the document store's apply path.
type FileVersion struct {
	FileID    string    `gorm:"primaryKey;size:191" json:"file_id"`
	RoomID    uint      `gorm:"index;not null" json:"room_id"`
	Content   string    `gorm:"type:longtext" json:"content"`
	Version   int64     `gorm:"not null" json:"version"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
