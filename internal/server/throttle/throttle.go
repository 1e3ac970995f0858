// Package throttle caps how often a user may perform expensive or abusable
// operations, such as creating budgets, sending invitations and guessing
// one-time codes.
package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/clock"
	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/redis/go-redis/v9"
)

// Counter increments key and (re)arms its expiry, returning the new count.
// Implementations must be safe for concurrent use.
type Counter interface {
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// Key builds the counter key for one action of one subject.
func Key(action, subject string) string {
	return fmt.Sprintf("throttle:%s:%s", action, subject)
}

// Limiter enforces fixed-window limits on top of a Counter.
type Limiter struct {
	counter Counter
}

func NewLimiter(c Counter) *Limiter {
	return &Limiter{counter: c}
}

// Enforce records one attempt and returns common.ErrThrottled once more than
// limit attempts fall inside the window.
func (l *Limiter) Enforce(ctx context.Context, key string, limit int, window time.Duration) error {
	n, err := l.counter.IncrWithExpiry(ctx, key, window)
	if err != nil {
		return fmt.Errorf("throttle counter: %w", err)
	}
	if n > int64(limit) {
		return common.ErrThrottled
	}
	return nil
}

// RedisCounter keeps counters in Redis so limits hold across replicas.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a RedisCounter from a Redis URL.
func NewRedisCounter(redisURL string) (*RedisCounter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCounter{client: redis.NewClient(opts)}, nil
}

func (c *RedisCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCounter) Close() error {
	return c.client.Close()
}

// IncrWithExpiry only arms the expiry on the first hit so the window does
// not slide with every attempt.
func (c *RedisCounter) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// MemoryCounter is a single-process Counter for development and tests.
// Expired windows are swept at most once per sweepInterval, so keys chosen
// by callers cannot grow the map without bound.
type MemoryCounter struct {
	mu        sync.Mutex
	clock     clock.Clock
	windows   map[string]window
	nextSweep time.Time
}

const sweepInterval = time.Minute

type window struct {
	count   int64
	expires time.Time
}

func NewMemoryCounter(c clock.Clock) *MemoryCounter {
	return &MemoryCounter{clock: c, windows: make(map[string]window)}
}

func (m *MemoryCounter) IncrWithExpiry(_ context.Context, key string, expiry time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if !now.Before(m.nextSweep) {
		m.sweep(now)
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.expires) {
		w = window{expires: now.Add(expiry)}
	}
	w.count++
	m.windows[key] = w
	return w.count, nil
}

func (m *MemoryCounter) sweep(now time.Time) {
	for k, w := range m.windows {
		if !now.Before(w.expires) {
			delete(m.windows, k)
		}
	}
	m.nextSweep = now.Add(sweepInterval)
}
