package bot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"saucebot/stats"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type fakePurger struct {
	interval, cutoff atomic.Int64
}

func (f *fakePurger) RunPurgeLoop(ctx context.Context, interval, cutoff time.Duration) {
	f.interval.Store(int64(interval))
	f.cutoff.Store(int64(cutoff))
	<-ctx.Done()
}

type fakeRefresher struct {
	calls atomic.Int32
}

func (f *fakeRefresher) Refresh(context.Context) (stats.Snapshot, error) {
	f.calls.Add(1)
	return stats.Snapshot{}, assert.AnError
}

func TestSchedulerRunsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &fakePurger{}
	r := &fakeRefresher{}
	s := newScheduler(p, r, 6*time.Hour, 24*time.Hour, 5*time.Millisecond, zerolog.Nop())

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return r.calls.Load() >= 2 }, time.Second, 5*time.Millisecond,
		"stats refresh keeps running after failures")

	s.Stop()
	assert.Equal(t, int64(6*time.Hour), p.interval.Load())
	assert.Equal(t, int64(24*time.Hour), p.cutoff.Load())
}

func TestSchedulerDefaultsNonPositiveStatsInterval(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newScheduler(&fakePurger{}, &fakeRefresher{}, time.Hour, time.Hour, 0, zerolog.Nop())
	assert.Equal(t, stats.DefaultRefreshInterval, s.statsInterval)

	assert.NotPanics(t, func() { s.Start(context.Background()) })
	s.Stop()
}
