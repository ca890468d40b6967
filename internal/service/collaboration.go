package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"collab-engine/internal/docstore"
	"collab-engine/internal/domain"
)

// AuditEmitter receives fire-and-forget analytics events from the
// collaboration hot path. Implementations must never block; dropping an
// event under pressure is acceptable, delaying an edit is not.
type AuditEmitter interface {
	Emit(event domain.AuditEvent)
}

// NopAuditEmitter discards events. Used in tests and when the queue is
// disabled.
type NopAuditEmitter struct{}

// Emit implements AuditEmitter.
func (NopAuditEmitter) Emit(domain.AuditEvent) {}

// CollaborationService is the edit pipeline: validate a client batch, hand
// it to the document store for reconciliation, and emit the audit event.
type CollaborationService struct {
	store   *docstore.Store
	roomSvc *RoomService
	auditor AuditEmitter
}

// NewCollaborationService creates a CollaborationService.
func NewCollaborationService(store *docstore.Store, roomSvc *RoomService, auditor AuditEmitter) *CollaborationService {
	if store == nil || roomSvc == nil {
		panic("docstore and RoomService must be non-nil for CollaborationService")
	}
	if auditor == nil {
		auditor = NopAuditEmitter{}
	}
	return &CollaborationService{store: store, roomSvc: roomSvc, auditor: auditor}
}

// ApplyEdit reconciles and applies one edit batch on behalf of userID.
//
// Outcomes: a result with the new version, a *docstore.ResyncError telling
// the caller to push full state, ErrInvalidOperation for malformed batches,
// or a retryable internal error when persistence refused the write.
func (s *CollaborationService) ApplyEdit(ctx context.Context, roomID uint, fileID, userID string, ops []domain.EditOperation, baseVersion int64) (*docstore.Result, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "file_id": fileID, "user_id": userID, "base_version": baseVersion})

	if fileID == "" || len(ops) == 0 {
		return nil, ErrInvalidOperation
	}
	for i := range ops {
		if !ops[i].Kind.Valid() {
			logCtx.WithField("kind", ops[i].Kind).Warn("Rejected edit batch with unknown operation kind")
			return nil, ErrInvalidOperation
		}
		if ops[i].Position < 0 {
			return nil, ErrInvalidOperation
		}
		ops[i].UserID = userID
		ops[i].BaseVersion = baseVersion
		if ops[i].OperationID == "" {
			ops[i].OperationID = uuid.NewString()
		}
	}

	result, err := s.store.Apply(ctx, fileID, roomID, ops, baseVersion)
	if err != nil {
		var resync *docstore.ResyncError
		switch {
		case errors.As(err, &resync):
			logCtx.WithField("current_version", resync.Version).Info("Edit base outside replay window, resync issued")
			return nil, err
		case errors.Is(err, docstore.ErrFutureBaseVersion):
			logCtx.Warn("Edit declared a future base version")
			return nil, ErrInvalidOperation
		default:
			logCtx.WithError(err).Error("Edit batch failed")
			return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
		}
	}

	s.roomSvc.TouchActive(ctx, roomID)
	s.auditor.Emit(domain.AuditEvent{
		RoomID:    roomID,
		UserID:    userID,
		Kind:      domain.AuditEditApplied,
		Detail:    fmt.Sprintf(`{"file_id":%q,"new_version":%d,"ops":%d}`, fileID, result.NewVersion, len(result.Ops)),
		CreatedAt: time.Now().UTC(),
	})

	logCtx.WithField("new_version", result.NewVersion).Debug("Edit batch applied")
	return result, nil
}

// FileState returns current content and version, used for resync pushes and
// room state assembly.
func (s *CollaborationService) FileState(ctx context.Context, fileID string, roomID uint) (string, int64, error) {
	content, version, err := s.store.Get(ctx, fileID, roomID)
	if err != nil {
		logrus.WithError(err).WithField("file_id", fileID).Error("Failed to load file state")
		return "", 0, ErrInternalServer
	}
	return content, version, nil
}

// ReleaseRoom drops in-memory file state for an emptied room.
func (s *CollaborationService) ReleaseRoom(roomID uint) {
	s.store.ReleaseRoom(roomID)
}

// TrackedFiles reports live in-memory file entries for the stats endpoint.
func (s *CollaborationService) TrackedFiles() int {
	return s.store.TrackedFiles()
}

// EmitAudit forwards a non-edit audit event (join/leave) to the queue.
func (s *CollaborationService) EmitAudit(event domain.AuditEvent) {
	s.auditor.Emit(event)
}
