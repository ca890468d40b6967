package repository

import (
	"context"

	"collab-engine/internal/domain"
)

// OperationRepository is the durable edit operation log, kept for audit and
// replay. The in-memory transform window lives in the document store.
type OperationRepository interface {
	// SaveBatch appends accepted operations in acceptance order.
	SaveBatch(ctx context.Context, ops []domain.EditOperation) error

	// ExistsByOperationID reports whether an operation ID was already
	// accepted, used for idempotent re-submission after restarts.
	ExistsByOperationID(ctx context.Context, operationID string) (bool, error)

	// RecentByFile returns the last limit accepted operations for a file in
	// ascending server version order.
	RecentByFile(ctx context.Context, fileID string, limit int) ([]domain.EditOperation, error)
}
