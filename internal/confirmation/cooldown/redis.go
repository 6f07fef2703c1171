package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "deicer/pkg/domain"
)

// RedisGate implements Gate on Redis key TTLs, sharing cooldown state across
// replicas. Keys expire on their own; nothing is ever cleaned up manually.
type RedisGate struct {
	client *redis.Client
}

func NewRedisGate(client *redis.Client) *RedisGate {
	return &RedisGate{client: client}
}

func key(markerID id.MarkerID, deviceID string) string {
	return fmt.Sprintf("deicer:cooldown:%s:%s", markerID, deviceID)
}

func (g *RedisGate) Remaining(ctx context.Context, markerID id.MarkerID, deviceID string, now time.Time) (time.Duration, error) {
	ttl, err := g.client.PTTL(ctx, key(markerID, deviceID)).Result()
	if err != nil {
		return 0, fmt.Errorf("cooldown pttl: %w", err)
	}
	// PTTL returns negative durations for missing keys and keys without
	// an expiry; both mean no active window.
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

func (g *RedisGate) Mark(ctx context.Context, markerID id.MarkerID, deviceID string, window time.Duration, now time.Time) error {
	if err := g.client.Set(ctx, key(markerID, deviceID), 1, window).Err(); err != nil {
		return fmt.Errorf("cooldown set: %w", err)
	}
	return nil
}
