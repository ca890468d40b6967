package service

import "errors"

// Business errors returned to handlers. HTTP and WebSocket layers map these
// to status codes and error envelopes; anything else is an internal error.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is at capacity")
	ErrFileNotFound     = errors.New("file not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidOperation = errors.New("invalid edit operation")
	ErrInternalServer   = errors.New("internal server error")
)
