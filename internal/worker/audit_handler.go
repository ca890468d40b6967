package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collab-engine/internal/repository"
	"collab-engine/internal/tasks"
)

// AuditEventHandler persists drained audit events.
type AuditEventHandler struct {
	auditRepo repository.AuditRepository
}

// NewAuditEventHandler creates an AuditEventHandler.
func NewAuditEventHandler(auditRepo repository.AuditRepository) *AuditEventHandler {
	if auditRepo == nil {
		panic("AuditRepository cannot be nil for AuditEventHandler")
	}
	return &AuditEventHandler{auditRepo: auditRepo}
}

// ProcessTask implements asynq.Handler.
func (h *AuditEventHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.AuditEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal audit event payload")
		return fmt.Errorf("unmarshal audit payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.auditRepo.Save(ctx, &payload.Event); err != nil {
		return fmt.Errorf("save audit event: %w", err)
	}
	logrus.WithFields(logrus.Fields{"room_id": payload.Event.RoomID, "kind": payload.Event.Kind}).Debug("Audit event persisted")
	return nil
}
