// Package redisstate holds the Redis-backed ephemeral state: the presence
// mirror and the rate limit counters. Nothing here is the source of truth.
package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"collab-engine/internal/domain"
)

// presenceTTL caps how long a room's mirror hash survives without writes,
// so crashed instances do not leak keys.
const presenceTTL = 10 * time.Minute

// RedisPresenceRepository mirrors presence records into one Redis hash per
// room, field per user.
type RedisPresenceRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisPresenceRepository creates a RedisPresenceRepository. An empty
// keyPrefix defaults to "collab:".
func NewRedisPresenceRepository(client *redis.Client, keyPrefix string) *RedisPresenceRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisPresenceRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "collab:"
	}
	return &RedisPresenceRepository{client: client, keyPrefix: keyPrefix}
}

func (r *RedisPresenceRepository) roomPresenceKey(roomID uint) string {
	return fmt.Sprintf("%sroom:%d:presence", r.keyPrefix, roomID)
}

// Upsert overwrites the mirrored record for (room, user) and refreshes the
// hash TTL.
func (r *RedisPresenceRepository) Upsert(ctx context.Context, p domain.UserPresence) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis: marshal presence for user %s: %w", p.UserID, err)
	}
	key := r.roomPresenceKey(p.RoomID)
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, p.UserID, data)
	pipe.Expire(ctx, key, presenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: upsert presence on %s: %w", key, err)
	}
	return nil
}

// Remove deletes the mirrored record for (room, user).
func (r *RedisPresenceRepository) Remove(ctx context.Context, roomID uint, userID string) error {
	key := r.roomPresenceKey(roomID)
	if err := r.client.HDel(ctx, key, userID).Err(); err != nil {
		return fmt.Errorf("redis: remove presence field %s on %s: %w", userID, key, err)
	}
	return nil
}

// ListByRoom returns all mirrored records for a room. Unparseable fields are
// logged and skipped rather than failing the whole read.
func (r *RedisPresenceRepository) ListByRoom(ctx context.Context, roomID uint) ([]domain.UserPresence, error) {
	key := r.roomPresenceKey(roomID)
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list presence on %s: %w", key, err)
	}
	out := make([]domain.UserPresence, 0, len(fields))
	for userID, raw := range fields {
		var p domain.UserPresence
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).WithError(err).Warn("Skipping unparseable mirrored presence record")
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// PurgeRoom drops the whole presence hash for a room.
func (r *RedisPresenceRepository) PurgeRoom(ctx context.Context, roomID uint) error {
	key := r.roomPresenceKey(roomID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: purge presence on %s: %w", key, err)
	}
	return nil
}
