package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

var ErrGuildRateLimited = errors.New("guild query limit exceeded")

// ExemptFunc reports whether a guild may skip the guild cooldown, typically
// because it has registered its own API key.
type ExemptFunc func(ctx context.Context, guildID string) (bool, error)

type window struct {
	count   int
	resetAt time.Time
}

// GuildCooldown allows a fixed number of requests per guild per window. The
// window opens with the guild's first request, like a command cooldown bucket.
type GuildCooldown struct {
	limit   int
	window  time.Duration
	mu      sync.Mutex
	buckets *cache.Cache
	now     func() time.Time
}

func NewGuildCooldown(limit int, per time.Duration) *GuildCooldown {
	return &GuildCooldown{
		limit:   limit,
		window:  per,
		buckets: cache.New(per, per),
		now:     time.Now,
	}
}

// Allow consumes one request from the guild's bucket. When the bucket is
// empty it returns false and the time until it refills.
func (c *GuildCooldown) Allow(guildID string) (bool, time.Duration) {
	if c.limit <= 0 {
		return true, 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var w *window
	if v, ok := c.buckets.Get(guildID); ok {
		w = v.(*window)
	}
	if w == nil || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(c.window)}
		c.buckets.Set(guildID, w, c.window)
	}

	if w.count >= c.limit {
		return false, w.resetAt.Sub(now)
	}
	w.count++
	return true, 0
}

// Admit runs the guild cooldown check. A guild over its limit is admitted
// anyway, once, if exempt says so at that moment; otherwise it gets
// ErrGuildRateLimited.
func (c *GuildCooldown) Admit(ctx context.Context, guildID string, exempt ExemptFunc) error {
	if ok, _ := c.Allow(guildID); ok {
		return nil
	}
	if exempt != nil {
		ok, err := exempt(ctx, guildID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return ErrGuildRateLimited
}
