// Package tasks defines the asynq task types and payload codecs shared by
// the emitter side and the worker side.
package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"collab-engine/internal/domain"
)

// Task type names.
const (
	TypeAuditEvent   = "audit:event"
	TypeHousekeeping = "housekeeping:sweep"
)

// AuditEventPayload carries one audit event to the worker.
type AuditEventPayload struct {
	Event domain.AuditEvent `json:"event"`
}

// NewAuditEventTask builds the task for one audit event.
func NewAuditEventTask(event domain.AuditEvent) (*asynq.Task, error) {
	payload, err := json.Marshal(AuditEventPayload{Event: event})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAuditEvent, payload, asynq.Queue("low")), nil
}

// NewHousekeepingTask builds the periodic sweep task. It carries no payload;
// the handler derives everything from live state.
func NewHousekeepingTask() *asynq.Task {
	return asynq.NewTask(TypeHousekeeping, nil, asynq.Queue("default"))
}
