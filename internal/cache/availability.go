// Package cache keeps a short-lived copy of each session's seat map for
// display reads. Entries may be stale; the hold path never reads them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cinema-ticketing/internal/data/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "availability:"

type AvailabilityCache interface {
	// Get returns the cached seat map, or nil with no error on a miss.
	Get(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]entity.SlotState, error)
	Set(ctx context.Context, sessionID uuid.UUID, seats map[uuid.UUID]entity.SlotState) error
	Invalidate(ctx context.Context, sessionID uuid.UUID) error
}

type availabilityCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
	log *zap.Logger
}

func NewAvailabilityCache(rdb redis.UniversalClient, ttl time.Duration, log *zap.Logger) AvailabilityCache {
	return &availabilityCache{
		rdb: rdb,
		ttl: ttl,
		log: log.With(zap.String("component", "availability_cache")),
	}
}

func availabilityKey(sessionID uuid.UUID) string {
	return keyPrefix + sessionID.String()
}

func (c *availabilityCache) Get(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]entity.SlotState, error) {
	raw, err := c.rdb.Get(ctx, availabilityKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get availability for session %s: %w", sessionID.String(), err)
	}

	var seats map[uuid.UUID]entity.SlotState
	if err := json.Unmarshal(raw, &seats); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next Set.
		c.log.Warn("Discarding unreadable availability entry",
			zap.Error(err),
			zap.String("session_id", sessionID.String()),
		)
		return nil, nil
	}
	return seats, nil
}

func (c *availabilityCache) Set(ctx context.Context, sessionID uuid.UUID, seats map[uuid.UUID]entity.SlotState) error {
	if c.ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(seats)
	if err != nil {
		return fmt.Errorf("encode availability for session %s: %w", sessionID.String(), err)
	}
	if err := c.rdb.Set(ctx, availabilityKey(sessionID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set availability for session %s: %w", sessionID.String(), err)
	}
	return nil
}

func (c *availabilityCache) Invalidate(ctx context.Context, sessionID uuid.UUID) error {
	if err := c.rdb.Del(ctx, availabilityKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("invalidate availability for session %s: %w", sessionID.String(), err)
	}
	return nil
}

// Nop is used when no Redis is configured.
type Nop struct{}

func (Nop) Get(context.Context, uuid.UUID) (map[uuid.UUID]entity.SlotState, error) { return nil, nil }
func (Nop) Set(context.Context, uuid.UUID, map[uuid.UUID]entity.SlotState) error    { return nil }
func (Nop) Invalidate(context.Context, uuid.UUID) error                              { return nil }
