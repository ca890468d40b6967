package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collab-engine/internal/domain"
	"collab-engine/internal/metrics"
	"collab-engine/internal/tasks"
)

// emitterQueueSize bounds the in-process buffer between the collaboration
// hot path and the asynq client. Overflow drops events; audit is best-effort
// and must never slow an edit.
const emitterQueueSize = 1024

// QueueAuditEmitter buffers audit events in memory and drains them to asynq
// on a single background goroutine.
type QueueAuditEmitter struct {
	client *asynq.Client
	queue  chan domain.AuditEvent
	done   chan struct{}
}

// NewQueueAuditEmitter creates the emitter and starts its drain goroutine.
func NewQueueAuditEmitter(client *asynq.Client) *QueueAuditEmitter {
	if client == nil {
		panic("asynq client cannot be nil for QueueAuditEmitter")
	}
	e := &QueueAuditEmitter{
		client: client,
		queue:  make(chan domain.AuditEvent, emitterQueueSize),
		done:   make(chan struct{}),
	}
	go e.drain()
	return e
}

// Emit implements service.AuditEmitter. Non-blocking; a full buffer drops
// the event.
func (e *QueueAuditEmitter) Emit(event domain.AuditEvent) {
	select {
	case e.queue <- event:
	default:
		metrics.MessagesDropped.Inc()
		logrus.WithFields(logrus.Fields{"room_id": event.RoomID, "kind": event.Kind}).Warn("Audit queue full, dropping event")
	}
}

// Close stops the drain goroutine after the buffer empties.
func (e *QueueAuditEmitter) Close() {
	close(e.queue)
	<-e.done
}

func (e *QueueAuditEmitter) drain() {
	defer close(e.done)
	for event := range e.queue {
		task, err := tasks.NewAuditEventTask(event)
		if err != nil {
			logrus.WithError(err).Error("Failed to build audit event task")
			continue
		}
		if _, err := e.client.EnqueueContext(context.Background(), task); err != nil {
			logrus.WithError(err).WithField("kind", event.Kind).Warn("Failed to enqueue audit event")
		}
	}
}
