package repository

import "errors"

// Common repository errors. Infra implementations map driver errors onto
// these so services never inspect gorm or redis errors directly.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry indicates a unique constraint violation.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

// Per-resource aliases, kept distinct names for readable call sites.
var (
	ErrRoomNotFound     = ErrNotFound
	ErrFileNotFound     = ErrNotFound
	ErrSnapshotNotFound = ErrNotFound
	ErrMessageNotFound  = ErrNotFound
)
