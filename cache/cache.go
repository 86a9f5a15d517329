// Package cache is the content-addressed result cache and the append-only
// query log the member quota is computed from.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"saucebot/metrics"
	"saucebot/model"
	"saucebot/sauce"
	"saucebot/utils/database"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// DefaultCutoff is how long an entry lives before the purge sweep removes it.
const DefaultCutoff = 24 * time.Hour

// DefaultPurgeInterval is how often RunPurgeLoop sweeps when no interval is given.
const DefaultPurgeInterval = 6 * time.Hour

type Cache struct {
	db  *sqlx.DB
	log zerolog.Logger
	now func() time.Time
}

func New(db *sqlx.DB, logger zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		log: logger.With().Str("component", "cache").Logger(),
		now: time.Now,
	}
}

// Fetch returns the stored entry for ref, or nil on a miss.
func (c *Cache) Fetch(ctx context.Context, ref string) (*model.SauceCacheEntry, error) {
	return database.GetSauceCacheEntry(ctx, c.db, sauce.Hash(ref))
}

// Lookup is Fetch followed by reconstruction of the stored result. It returns
// nil, nil on a miss.
func (c *Cache) Lookup(ctx context.Context, ref string) (sauce.Source, error) {
	entry, err := c.Fetch(ctx, ref)
	if err != nil || entry == nil {
		return nil, err
	}
	v, err := sauce.ParseVariant(entry.ResultVariant)
	if err != nil {
		return nil, fmt.Errorf("cache entry %s: %w", entry.URLHash, err)
	}
	src, err := sauce.Rebuild(v, []byte(entry.Result))
	if err != nil {
		return nil, fmt.Errorf("cache entry %s: %w", entry.URLHash, err)
	}
	return src, nil
}

// Store replaces any entry for ref with src, stamped with the current time.
func (c *Cache) Store(ctx context.Context, ref string, header json.RawMessage, src sauce.Source) error {
	if len(header) == 0 {
		header = json.RawMessage("{}")
	}
	entry := model.SauceCacheEntry{
		URLHash:       sauce.Hash(ref),
		CreatedAt:     c.now().Unix(),
		Header:        string(header),
		Result:        string(src.Info().Payload()),
		ResultVariant: string(src.Variant()),
	}
	if err := database.ReplaceSauceCacheEntry(ctx, c.db, entry); err != nil {
		return err
	}
	c.log.Debug().Str("url_hash", entry.URLHash).Str("variant", entry.ResultVariant).Msg("Cached sauce result")
	return nil
}

// Purge deletes entries created before now minus cutoff. An entry created
// exactly at the boundary is kept.
func (c *Cache) Purge(ctx context.Context, cutoff time.Duration) (int64, error) {
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	before := c.now().Add(-cutoff).Unix()
	return database.PurgeSauceCache(ctx, c.db, before)
}

// Count returns the number of live entries.
func (c *Cache) Count(ctx context.Context) (int, error) {
	return database.CountSauceCacheEntries(ctx, c.db)
}

// RunPurgeLoop purges once immediately and then on every tick until ctx is
// done. Failed iterations are logged and the loop keeps going.
func (c *Cache) RunPurgeLoop(ctx context.Context, interval, cutoff time.Duration) {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		c.purgeOnce(ctx, cutoff)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Cache) purgeOnce(ctx context.Context, cutoff time.Duration) {
	n, err := c.Purge(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Error().Err(err).Msg("Cache purge failed")
		}
		return
	}
	metrics.CachePurgedTotal.Add(float64(n))
	c.log.Info().Int64("purged", n).Msg("Purged expired sauce cache entries")
}
