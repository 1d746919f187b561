// Package cooldown guards actions that may only happen once per window,
// across instances when Redis is available.
package cooldown

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Guard interface {
	// Acquire claims key for window. It returns false, with the time left,
	// when the key is already held.
	Acquire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error)
	Release(ctx context.Context, key string) error
}

// UserKey scopes an action to one user.
func UserKey(userID uuid.UUID, action string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)
}

type redisGuard struct {
	rdb *redis.Client
}

func NewRedisGuard(rdb *redis.Client) Guard {
	return &redisGuard{rdb: rdb}
}

func (g *redisGuard) Acquire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	wasSet, err := g.rdb.SetNX(ctx, key, "locked", window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check cooldown in redis: %w", err)
	}
	if wasSet {
		return true, 0, nil
	}

	ttl, err := g.rdb.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to read cooldown ttl: %w", err)
	}
	return false, ttl, nil
}

func (g *redisGuard) Release(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, key).Err()
}

type memoryGuard struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryGuard holds keys in process memory.
func NewMemoryGuard() Guard {
	return &memoryGuard{expires: make(map[string]time.Time), now: time.Now}
}

func (g *memoryGuard) Acquire(_ context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if until, ok := g.expires[key]; ok && now.Before(until) {
		return false, until.Sub(now), nil
	}
	g.expires[key] = now.Add(window)
	return true, 0, nil
}

func (g *memoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.expires, key)
	return nil
}
