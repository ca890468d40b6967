package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collab-engine/internal/hub"
	"collab-engine/internal/repository"
	"collab-engine/internal/service"
)

// DefaultIdleRoomRetention is how long a room may stay inactive before the
// sweep removes its durable record.
const DefaultIdleRoomRetention = 24 * time.Hour

// HousekeepingHandler runs the periodic sweep: purge stale presence records
// and garbage-collect rooms that have been idle past retention.
type HousekeepingHandler struct {
	presenceSvc *service.PresenceService
	roomRepo    repository.RoomRepository
	liveHub     *hub.Hub
	retention   time.Duration
}

// NewHousekeepingHandler creates a HousekeepingHandler. retention <= 0
// selects DefaultIdleRoomRetention.
func NewHousekeepingHandler(presenceSvc *service.PresenceService, roomRepo repository.RoomRepository, liveHub *hub.Hub, retention time.Duration) *HousekeepingHandler {
	if presenceSvc == nil || roomRepo == nil || liveHub == nil {
		panic("PresenceService, RoomRepository and Hub cannot be nil for HousekeepingHandler")
	}
	if retention <= 0 {
		retention = DefaultIdleRoomRetention
	}
	return &HousekeepingHandler{
		presenceSvc: presenceSvc,
		roomRepo:    roomRepo,
		liveHub:     liveHub,
		retention:   retention,
	}
}

// ProcessTask implements asynq.Handler.
func (h *HousekeepingHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	purged := h.presenceSvc.PurgeStale(ctx)

	cutoff := time.Now().UTC().Add(-h.retention)
	idle, err := h.roomRepo.FindIdleBefore(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Error("Housekeeping: failed to list idle rooms")
		return err
	}

	live := make(map[uint]bool)
	for _, id := range h.liveHub.ActiveRoomIDs() {
		live[id] = true
	}

	removed := 0
	for _, room := range idle {
		// A room with live sessions is never collected, regardless of its
		// last_active timestamp.
		if live[room.ID] {
			continue
		}
		if err := h.roomRepo.Delete(ctx, room.ID); err != nil {
			logrus.WithError(err).WithField("room_id", room.ID).Warn("Housekeeping: failed to delete idle room")
			continue
		}
		removed++
	}

	logrus.WithFields(logrus.Fields{
		"presence_purged": purged,
		"rooms_removed":   removed,
		"idle_candidates": len(idle),
	}).Info("Housekeeping sweep completed")
	return nil
}
