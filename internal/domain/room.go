package domain

import "time"

// Room visibility values.
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// DefaultRoomCapacity is used when a room is created without an explicit limit.
const DefaultRoomCapacity = 10

// Room is a collaboration space bound to one project. The durable record
// outlives the in-memory session state, which is released when the room
// empties.
type Room struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProjectID  string    `gorm:"size:191;index;not null" json:"project_id"`
	OwnerID    string    `gorm:"size:191;index;not null" json:"owner_id"`
	Name       string    `gorm:"size:191;not null" json:"name"`
	Capacity   int       `gorm:"not null" json:"capacity"`
	Visibility string    `gorm:"size:32;not null" json:"visibility"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	LastActive time.Time `gorm:"index" json:"last_active"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"-"`
}

// Participant is a user's live membership in a room. It exists only while a
// transport session is registered and is not persisted on its own.
type Participant struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Color       string    `json:"color"`
	Anonymous   bool      `json:"anonymous"`
	JoinedAt    time.Time `json:"joined_at"`
}
