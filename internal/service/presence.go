package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"collab-engine/internal/domain"
	"collab-engine/internal/repository"
)

// DefaultPresenceTTL is how long a presence record stays authoritative
// without updates before the sweep discards it.
const DefaultPresenceTTL = 5 * time.Minute

// PresenceService tracks per-user ephemeral editing state scoped to a room.
// Memory is authoritative for this instance; every write is mirrored to the
// presence repository (Redis) for crash recovery and cross-instance reads.
// Mirror failures are logged, never surfaced: presence is best-effort.
type PresenceService struct {
	mu    sync.RWMutex
	rooms map[uint]map[string]domain.UserPresence

	presenceRepo repository.PresenceRepository
	ttl          time.Duration
}

// NewPresenceService creates a PresenceService. ttl <= 0 selects
// DefaultPresenceTTL.
func NewPresenceService(presenceRepo repository.PresenceRepository, ttl time.Duration) *PresenceService {
	if presenceRepo == nil {
		panic("PresenceRepository cannot be nil for PresenceService")
	}
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &PresenceService{
		rooms:        make(map[uint]map[string]domain.UserPresence),
		presenceRepo: presenceRepo,
		ttl:          ttl,
	}
}

// Update overwrites the presence record for (room, user) and returns the
// stored snapshot for broadcast. The state lock is released before the
// mirror write.
func (s *PresenceService) Update(ctx context.Context, p domain.UserPresence) domain.UserPresence {
	p.LastSeen = time.Now().UTC()

	s.mu.Lock()
	room, ok := s.rooms[p.RoomID]
	if !ok {
		room = make(map[string]domain.UserPresence)
		s.rooms[p.RoomID] = room
	}
	room[p.UserID] = p
	s.mu.Unlock()

	if err := s.presenceRepo.Upsert(ctx, p); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"room_id": p.RoomID, "user_id": p.UserID}).Warn("Failed to mirror presence update")
	}
	return p
}

// UpdateCursor moves only the cursor for an existing record, keeping the
// rest of the activity state. Unknown users get a fresh record.
func (s *PresenceService) UpdateCursor(ctx context.Context, roomID uint, userID string, position int) domain.UserPresence {
	s.mu.RLock()
	p, ok := s.rooms[roomID][userID]
	s.mu.RUnlock()
	if !ok {
		p = domain.UserPresence{UserID: userID, RoomID: roomID}
	}
	p.CursorPosition = position
	return s.Update(ctx, p)
}

// Rehydrate merges mirrored presence records for a room back into memory.
// Called when a room's live state is recreated, so presence written by a
// previous process or another instance survives. In-memory records win over
// the mirror; stale mirror entries are skipped.
func (s *PresenceService) Rehydrate(ctx context.Context, roomID uint) {
	records, err := s.presenceRepo.ListByRoom(ctx, roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to read mirrored presence")
		return
	}
	if len(records) == 0 {
		return
	}
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		room = make(map[string]domain.UserPresence)
		s.rooms[roomID] = room
	}
	for _, p := range records {
		if p.StaleAfter(s.ttl, now) {
			continue
		}
		if _, exists := room[p.UserID]; !exists {
			room[p.UserID] = p
		}
	}
}

// Remove deletes the presence record for (room, user). Idempotent.
func (s *PresenceService) Remove(ctx context.Context, roomID uint, userID string) {
	s.mu.Lock()
	if room, ok := s.rooms[roomID]; ok {
		delete(room, userID)
		if len(room) == 0 {
			delete(s.rooms, roomID)
		}
	}
	s.mu.Unlock()

	if err := s.presenceRepo.Remove(ctx, roomID, userID); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).Warn("Failed to remove mirrored presence")
	}
}

// ListActive returns non-stale presence records for a room. Stale entries
// are filtered here so a snapshot taken between sweeps never reports them.
func (s *PresenceService) ListActive(roomID uint) []domain.UserPresence {
	now := time.Now().UTC()

	s.mu.RLock()
	defer s.mu.RUnlock()
	room := s.rooms[roomID]
	out := make([]domain.UserPresence, 0, len(room))
	for _, p := range room {
		if !p.StaleAfter(s.ttl, now) {
			out = append(out, p)
		}
	}
	return out
}

// PurgeStale removes records whose last-seen exceeds the TTL. Called by the
// periodic housekeeping task, never from the hot path.
func (s *PresenceService) PurgeStale(ctx context.Context) int {
	now := time.Now().UTC()
	type key struct {
		roomID uint
		userID string
	}
	var stale []key

	s.mu.Lock()
	for roomID, room := range s.rooms {
		for userID, p := range room {
			if p.StaleAfter(s.ttl, now) {
				delete(room, userID)
				stale = append(stale, key{roomID, userID})
			}
		}
		if len(room) == 0 {
			delete(s.rooms, roomID)
		}
	}
	s.mu.Unlock()

	for _, k := range stale {
		if err := s.presenceRepo.Remove(ctx, k.roomID, k.userID); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"room_id": k.roomID, "user_id": k.userID}).Warn("Failed to remove stale mirrored presence")
		}
	}
	if len(stale) > 0 {
		logrus.WithField("purged", len(stale)).Info("Stale presence records purged")
	}
	return len(stale)
}

// ReleaseRoom drops all presence for a room, memory and mirror.
func (s *PresenceService) ReleaseRoom(ctx context.Context, roomID uint) {
	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()

	if err := s.presenceRepo.PurgeRoom(ctx, roomID); err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to purge mirrored room presence")
	}
}
