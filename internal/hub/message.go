package hub

import (
	"encoding/json"

	"collab-engine/internal/domain"
)

// Transport message types, discriminated by the "type" field. Unknown types
// are logged and dropped without terminating the session.
const (
	MsgOperation = "operation"
	MsgPresence  = "presence"
	MsgChat      = "chat_message"
	MsgCursor    = "cursor"
	MsgPing      = "ping"
	MsgPong      = "pong"
	MsgKeepalive = "keepalive"

	// Server to client only.
	MsgRoomState       = "room_state"
	MsgUserJoined      = "user_joined"
	MsgUserLeft        = "user_left"
	MsgOperationResult = "operation_result"
	MsgEditApplied     = "edit_applied"
	MsgError           = "error"
)

// SelectionRange is a half-open [start, end) text selection.
type SelectionRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Activity is the presence payload carried by a "presence" message.
type Activity struct {
	CursorPosition   int             `json:"cursor_position"`
	CurrentSelection *SelectionRange `json:"current_selection,omitempty"`
	CurrentFile      string          `json:"current_file,omitempty"`
	Typing           bool            `json:"typing,omitempty"`
}

// Envelope is the bidirectional wire message. Fields are populated per type;
// decoding never fails on extra fields so clients can evolve independently.
type Envelope struct {
	Type string `json:"type"`

	// operation
	FileID     string                 `json:"file_id,omitempty"`
	Operation  *domain.EditOperation  `json:"operation,omitempty"`
	Operations []domain.EditOperation `json:"operations,omitempty"`

	// presence / cursor
	UserID   string    `json:"user_id,omitempty"`
	Activity *Activity `json:"activity,omitempty"`
	Position int       `json:"position,omitempty"`

	// chat_message
	Message     string          `json:"message,omitempty"`
	MessageType string          `json:"message_type,omitempty"`
	ReplyTo     string          `json:"reply_to,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// roomStatePayload is the full snapshot pushed to a joining client only.
type roomStatePayload struct {
	Type         string                `json:"type"`
	Room         *domain.Room          `json:"room"`
	Participants []domain.Participant  `json:"participants"`
	Presences    []domain.UserPresence `json:"presences"`
	ChatHistory  []domain.ChatMessage  `json:"chat_history"`
	Files        []domain.FileVersion  `json:"files"`
}

// operationResultPayload acknowledges an edit to its sender. On a resync,
// Success is false and the full current state rides along so the client can
// rebase locally.
type operationResultPayload struct {
	Type       string `json:"type"`
	Success    bool   `json:"success"`
	FileID     string `json:"file_id"`
	NewVersion int64  `json:"new_version,omitempty"`
	Resync     bool   `json:"resync,omitempty"`
	Version    int64  `json:"current_version,omitempty"`
	Content    string `json:"content,omitempty"`
}

// editAppliedPayload fans an accepted batch out to the room.
type editAppliedPayload struct {
	Type       string                 `json:"type"`
	FileID     string                 `json:"file_id"`
	UserID     string                 `json:"user_id"`
	NewVersion int64                  `json:"new_version"`
	Operations []domain.EditOperation `json:"operations"`
}

// presencePayload fans a presence update out to the room, sender excluded.
type presencePayload struct {
	Type     string              `json:"type"`
	UserID   string              `json:"user_id"`
	Presence domain.UserPresence `json:"activity"`
}

type userJoinedPayload struct {
	Type        string             `json:"type"`
	RoomID      uint               `json:"room_id"`
	Participant domain.Participant `json:"participant"`
}

type userLeftPayload struct {
	Type   string `json:"type"`
	RoomID uint   `json:"room_id"`
	UserID string `json:"user_id"`
}

type cursorPayload struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Position int    `json:"position"`
}

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type pongPayload struct {
	Type string `json:"type"`
}

type chatPayload struct {
	Type    string              `json:"type"`
	Message *domain.ChatMessage `json:"message"`
}
