package domain

import "time"

// OperationKind is the closed set of edit operation variants. Unknown kinds
// are rejected at the transport boundary.
type OperationKind string

const (
	OpInsert OperationKind = "insert"
	OpDelete OperationKind = "delete"
	OpRetain OperationKind = "retain"
)

// Valid reports whether k is one of the known operation kinds.
func (k OperationKind) Valid() bool {
	switch k {
	case OpInsert, OpDelete, OpRetain:
		return true
	}
	return false
}

// EditOperation is a single atomic edit against one file. Immutable once
// accepted; the server assigns Version when the batch is applied.
type EditOperation struct {
	ID          uint          `gorm:"primaryKey" json:"-"`
	OperationID string        `gorm:"size:191;uniqueIndex;not null" json:"operation_id"`
	FileID      string        `gorm:"size:191;index;not null" json:"file_id"`
	RoomID      uint          `gorm:"index" json:"room_id,omitempty"`
	UserID      string        `gorm:"size:191;index;not null" json:"user_id"`
	Kind        OperationKind `gorm:"size:16;not null" json:"operation_type"`
	Position    int           `gorm:"not null" json:"position"`
	Content     string        `gorm:"type:text" json:"content,omitempty"`
	Length      int           `json:"length,omitempty"`
	BaseVersion int64         `gorm:"not null" json:"document_version"`
	Version     int64         `gorm:"index" json:"server_version"`
	Timestamp   time.Time     `gorm:"index" json:"timestamp"`
}

// LengthDelta is the net change in document length caused by the operation.
func (op EditOperation) LengthDelta() int {
	switch op.Kind {
	case OpInsert:
		return len(op.Content)
	case OpDelete:
		return -op.Length
	}
	return 0
}
