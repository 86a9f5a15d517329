package lookup

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"saucebot/apikeys"
	"saucebot/cache"
	"saucebot/ratelimit"
	"saucebot/sauce"
	"saucebot/saucenao"
	"saucebot/tracemoe"
	"saucebot/utils/database"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sharedKey = "shared-key"
	guildKey  = "0123456789abcdefghij0123456789abcdefghij"
)

const pixivMatch = `{
  "header": {"similarity": "80.00", "thumbnail": "https://img1.saucenao.com/a.jpg", "index_id": 5, "index_name": "Index #5: Pixiv Images"},
  "data": {"ext_urls": ["https://www.pixiv.net/artworks/1"], "title": "Sunset", "member_name": "artist", "member_id": 4242}
}`

const animeMatch = `{
  "header": {"similarity": "93.10", "thumbnail": "https://img3.saucenao.com/frames/a.jpg", "index_id": 21, "index_name": "Index #21: Anime"},
  "data": {"ext_urls": ["https://anilist.co/anime/9253/"], "source": "Steins;Gate", "part": "3", "est_time": "00:05:00"}
}`

type fakeProvider struct {
	calls   atomic.Int32
	payload string
	err     error
	keys    []string
	mu      sync.Mutex
	delay   time.Duration
	// gate, when set, holds every call until it is closed.
	gate    chan struct{}
	keyErrs map[string]error
}

func (f *fakeProvider) usedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func (f *fakeProvider) Search(_ context.Context, _, apiKey string, _ float64) (*saucenao.Response, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.keys = append(f.keys, apiKey)
	f.mu.Unlock()
	time.Sleep(f.delay)
	if f.gate != nil {
		<-f.gate
	}

	if err := f.keyErrs[apiKey]; err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	res := &saucenao.Response{Header: json.RawMessage(`{"status":0}`), ShortRemaining: 3, LongRemaining: 99}
	if f.payload != "" {
		src, err := sauce.New([]byte(f.payload))
		if err != nil {
			return nil, err
		}
		res.Results = []sauce.Source{src}
	}
	return res, nil
}

type fakePreviews struct {
	matches []tracemoe.Match
	fetched int
}

func (f *fakePreviews) Search(context.Context, string) ([]tracemoe.Match, error) {
	return f.matches, nil
}

func (f *fakePreviews) Preview(context.Context, tracemoe.Match) ([]byte, error) {
	f.fetched++
	return []byte("clip"), nil
}

type harness struct {
	db       *sqlx.DB
	provider *fakeProvider
	previews *fakePreviews
	keys     *apikeys.Registry
	orch     *Orchestrator
}

func newHarness(t *testing.T, memberLimit int) *harness {
	t.Helper()
	db, err := database.Init(filepath.Join(t.TempDir(), "lookup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	queries := cache.NewQueryLog(db)
	h := &harness{
		db:       db,
		provider: &fakeProvider{payload: pixivMatch},
		previews: &fakePreviews{},
		keys:     apikeys.New(db, zerolog.Nop()),
	}
	h.orch = New(
		h.provider,
		h.previews,
		cache.New(db, zerolog.Nop()),
		queries,
		h.keys,
		ratelimit.NewMemberQuota(queries, memberLimit, 5*time.Minute),
		Options{DefaultAPIKey: sharedKey, MinSimilarity: 50},
		zerolog.Nop(),
	)
	return h
}

func request(ref string) Request {
	return Request{GuildID: "g", MemberID: "m", Reference: ref}
}

func TestResolveCachesFirstResult(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)

	first, err := h.orch.Resolve(ctx, request("https://x/a.png"))
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.InDelta(t, 80.0, first.Source.Info().Similarity, 1e-9)
	assert.Equal(t, int32(1), h.provider.calls.Load())

	second, err := h.orch.Resolve(ctx, request("https://x/a.png"))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Source, second.Source)
	assert.Equal(t, first.Source.Variant(), second.Source.Variant())
	assert.Equal(t, int32(1), h.provider.calls.Load(), "second lookup is served from cache")

	total, err := database.CountMemberQueries(ctx, h.db, "m")
	require.NoError(t, err)
	assert.Equal(t, 2, total, "cache hits are still logged")
}

func TestResolveNotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	h.provider.payload = ""

	_, err := h.orch.Resolve(ctx, request("https://x/none.png"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.orch.Resolve(ctx, request("https://x/none.png"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(2), h.provider.calls.Load())

	count, err := database.CountSauceCacheEntries(ctx, h.db)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestResolveUsesGuildKey(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)

	_, err := h.orch.Resolve(ctx, request("https://x/1.png"))
	require.NoError(t, err)
	require.NoError(t, h.keys.Register(ctx, "g", guildKey))
	_, err = h.orch.Resolve(ctx, request("https://x/2.png"))
	require.NoError(t, err)

	assert.Equal(t, []string{sharedKey, guildKey}, h.provider.keys)
}

func TestResolveMemberQuota(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 3)

	for i := 0; i < 3; i++ {
		_, err := h.orch.Resolve(ctx, request("https://x/a.png"))
		require.NoError(t, err, "query %d", i+1)
	}
	_, err := h.orch.Resolve(ctx, request("https://x/a.png"))
	assert.ErrorIs(t, err, ErrMemberRateLimited)

	other := request("https://x/a.png")
	other.MemberID = "someone-else"
	_, err = h.orch.Resolve(ctx, other)
	assert.NoError(t, err)
}

func TestResolveMapsProviderErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		err  error
		want error
	}{
		"short": {saucenao.ErrShortLimitReached, ErrProviderQuotaExceeded},
		"daily": {saucenao.ErrDailyLimitReached, ErrProviderQuotaExceeded},
		"key":   {saucenao.ErrInvalidKey, ErrProviderKeyRejected},
		"image": {saucenao.ErrInvalidImage, ErrProviderInvalidImage},
		"other": {saucenao.ErrUnavailable, ErrProviderUnavailable},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, 0)
			h.provider.err = tc.err

			_, err := h.orch.Resolve(context.Background(), request("https://x/a.png"))
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestResolveCollapsesConcurrentLookups(t *testing.T) {
	h := newHarness(t, 0)
	h.provider.delay = 50 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.orch.Resolve(context.Background(), request("https://x/same.png"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), h.provider.calls.Load())
	assert.Equal(t, []string{sharedKey}, h.provider.usedKeys())
}

func TestResolveDoesNotShareLookupsAcrossKeys(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	require.NoError(t, h.keys.Register(ctx, "keyed", guildKey))
	h.provider.gate = make(chan struct{})
	h.provider.keyErrs = map[string]error{guildKey: saucenao.ErrInvalidKey}

	var keyedErr, plainErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, keyedErr = h.orch.Resolve(ctx, Request{GuildID: "keyed", MemberID: "m1", Reference: "https://x/a.png"})
	}()
	go func() {
		defer wg.Done()
		_, plainErr = h.orch.Resolve(ctx, Request{GuildID: "plain", MemberID: "m2", Reference: "https://x/a.png"})
	}()

	// Both keys must reach the provider while neither call has finished.
	require.Eventually(t, func() bool { return h.provider.calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	close(h.provider.gate)
	wg.Wait()

	assert.ErrorIs(t, keyedErr, ErrProviderKeyRejected)
	assert.NoError(t, plainErr)
	assert.ElementsMatch(t, []string{sharedKey, guildKey}, h.provider.usedKeys())
}

func TestResolveWaiterCancellationLeavesLookupRunning(t *testing.T) {
	h := newHarness(t, 0)
	h.provider.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.orch.Resolve(ctx, request("https://x/a.png"))
		done <- err
	}()
	require.Eventually(t, func() bool { return h.provider.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting on the provider")
	}

	other := make(chan error, 1)
	go func() {
		_, err := h.orch.Resolve(context.Background(), request("https://x/a.png"))
		other <- err
	}()
	close(h.provider.gate)
	require.NoError(t, <-other)
	assert.Equal(t, int32(1), h.provider.calls.Load())
}

func TestResolveAnimePreview(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	h.provider.payload = animeMatch

	req := request("https://x/anime.png")
	req.WantPreview = true

	h.previews.matches = []tracemoe.Match{{Anilist: tracemoe.Anilist{ID: 9253, Adult: true}, Similarity: 0.95, Video: "https://v"}}
	res, err := h.orch.Resolve(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, res.Preview)
	assert.Equal(t, []byte("clip"), res.Preview.Video)
	assert.True(t, res.Preview.Adult)

	h.previews.matches = []tracemoe.Match{{Anilist: tracemoe.Anilist{ID: 1}, Similarity: 0.99, Video: "https://v"}}
	res, err = h.orch.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, res.Preview, "mismatched series is skipped")

	h.previews.matches = []tracemoe.Match{{Anilist: tracemoe.Anilist{ID: 9253}, Similarity: 0.5, Video: "https://v"}}
	res, err = h.orch.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, res.Preview, "weak match is skipped")

	assert.Equal(t, 1, h.previews.fetched)
}

func TestSameSeries(t *testing.T) {
	anime := &sauce.AnimeSource{AnilistID: 10, MALID: 20}
	assert.True(t, SameSeries(anime, tracemoe.Anilist{ID: 10}))
	assert.False(t, SameSeries(anime, tracemoe.Anilist{ID: 11, MALID: 20}))
	assert.True(t, SameSeries(&sauce.AnimeSource{MALID: 20}, tracemoe.Anilist{ID: 11, MALID: 20}))
	assert.False(t, SameSeries(&sauce.AnimeSource{}, tracemoe.Anilist{ID: 11}))
}
