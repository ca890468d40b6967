package domain

import "time"

// Audit event kinds emitted by the collaboration hot path.
const (
	AuditEditApplied = "edit_applied"
	AuditUserJoined  = "user_joined"
	AuditUserLeft    = "user_left"
)

// AuditEvent is a fire-and-forget analytics record. Emission never blocks
// collaboration; events are queued and drained by a background worker.
type AuditEvent struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	RoomID    uint      `gorm:"index;not null" json:"room_id"`
	UserID    string    `gorm:"size:191;index" json:"user_id"`
	Kind      string    `gorm:"size:32;not null" json:"kind"`
	Detail    string    `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
