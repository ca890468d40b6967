package domain

import "time"

// UserPresence is ephemeral, non-authoritative activity state for one
// participant in a room. It lives in memory and in Redis (for crash recovery
// and cross-instance visibility), never in the primary database.
type UserPresence struct {
	UserID         string    `json:"user_id"`
	RoomID         uint      `json:"room_id"`
	FileID         string    `json:"current_file,omitempty"`
	CursorPosition int       `json:"cursor_position"`
	SelectionStart int       `json:"selection_start"`
	SelectionEnd   int       `json:"selection_end"`
	Typing         bool      `json:"typing"`
	LastSeen       time.Time `json:"last_seen"`
}

// StaleAfter reports whether the record has not been touched within d as of
// now. Stale records are purged and excluded from room state snapshots.
func (p UserPresence) StaleAfter(d time.Duration, now time.Time) bool {
	return now.Sub(p.LastSeen) > d
}
