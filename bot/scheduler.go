package bot

import (
	"context"
	"sync"
	"time"

	"saucebot/stats"

	"github.com/rs/zerolog"
)

type purger interface {
	RunPurgeLoop(ctx context.Context, interval, cutoff time.Duration)
}

type refresher interface {
	Refresh(ctx context.Context) (stats.Snapshot, error)
}

// Scheduler runs the periodic cache purge and stats refresh for the lifetime
// of the process.
type Scheduler struct {
	purge         purger
	stats         refresher
	purgeInterval time.Duration
	cacheTTL      time.Duration
	statsInterval time.Duration
	log           zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(b *Bot) *Scheduler {
	cfg := b.GetConfig()
	return newScheduler(b.Cache, b.Stats, cfg.Cache.PurgeInterval, cfg.Cache.TTL, cfg.Stats.RefreshInterval, b.Log)
}

func newScheduler(p purger, r refresher, purgeInterval, cacheTTL, statsInterval time.Duration, logger zerolog.Logger) *Scheduler {
	if statsInterval <= 0 {
		statsInterval = stats.DefaultRefreshInterval
	}
	return &Scheduler{
		purge:         p,
		stats:         r,
		purgeInterval: purgeInterval,
		cacheTTL:      cacheTTL,
		statsInterval: statsInterval,
		log:           logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start launches the background tasks.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(2)

	go func() {
		defer s.wg.Done()
		s.purge.RunPurgeLoop(ctx, s.purgeInterval, s.cacheTTL)
	}()

	go func() {
		defer s.wg.Done()
		s.refreshStats(ctx)
	}()
}

// Stop cancels the background tasks without waiting for a cycle to finish
// and returns once they have exited.
func (s *Scheduler) Stop() {
	s.log.Info().Msg("Stopping scheduler...")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info().Msg("Scheduler stopped.")
}

func (s *Scheduler) refreshStats(ctx context.Context) {
	ticker := time.NewTicker(s.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.stats.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.log.Error().Err(err).Msg("Failed to refresh statistics")
			}
		}
	}
}
