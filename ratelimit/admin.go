package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AdminCooldown is a per-guild burst limiter for administrative commands,
// e.g. 5 invocations per 30 minutes. Tokens refill evenly over the period.
type AdminCooldown struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

func NewAdminCooldown(burst int, per time.Duration) *AdminCooldown {
	return &AdminCooldown{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(per / time.Duration(burst)),
		burst:    burst,
	}
}

func (a *AdminCooldown) limiter(guildID string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.limiters[guildID]
	if !ok {
		l = rate.NewLimiter(a.every, a.burst)
		a.limiters[guildID] = l
	}
	return l
}

// Allow consumes one invocation for the guild.
func (a *AdminCooldown) Allow(guildID string) bool {
	return a.limiter(guildID).Allow()
}

// AllowAt is Allow with an explicit clock.
func (a *AdminCooldown) AllowAt(guildID string, now time.Time) bool {
	return a.limiter(guildID).AllowN(now, 1)
}
