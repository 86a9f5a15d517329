// Package stats holds usage counters derived from the query log. They are
// recomputed when stale instead of being maintained on every query.
package stats

import (
	"context"
	"sync"
	"time"

	"saucebot/utils/database"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

// DefaultRefreshInterval is how long a computed snapshot is served.
const DefaultRefreshInterval = 15 * time.Minute

// GuildCounter reports how many guilds the bot is in.
type GuildCounter interface {
	GuildCount() int
}

type Snapshot struct {
	Guilds           int
	RegisteredGuilds int
	Members          int
	Queries          int
	CacheEntries     int
	ComputedAt       time.Time
}

type Counters struct {
	db       *sqlx.DB
	guilds   GuildCounter
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	snapshot Snapshot
	expires  time.Time
}

func New(db *sqlx.DB, guilds GuildCounter, interval time.Duration) *Counters {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Counters{db: db, guilds: guilds, interval: interval, now: time.Now}
}

// Get returns the current snapshot, recomputing it first if it expired.
func (c *Counters) Get(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.now().Before(c.expires) {
		s := c.snapshot
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// Refresh recomputes the snapshot unconditionally.
func (c *Counters) Refresh(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.RegisteredGuilds, err = database.CountRegisteredGuilds(gctx, c.db)
		return err
	})
	g.Go(func() (err error) {
		s.Members, err = database.CountDistinctMembers(gctx, c.db)
		return err
	})
	g.Go(func() (err error) {
		s.Queries, err = database.CountSauceQueries(gctx, c.db)
		return err
	})
	g.Go(func() (err error) {
		s.CacheEntries, err = database.CountSauceCacheEntries(gctx, c.db)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	if c.guilds != nil {
		s.Guilds = c.guilds.GuildCount()
	}

	now := c.now()
	s.ComputedAt = now

	c.mu.Lock()
	c.snapshot = s
	c.expires = now.Add(c.interval)
	c.mu.Unlock()
	return s, nil
}
