package repository

import (
	"context"

	"collab-engine/internal/domain"
)

// AuditRepository stores analytics events drained from the background queue.
type AuditRepository interface {
	// Save stores one audit event.
	Save(ctx context.Context, event *domain.AuditEvent) error
}
