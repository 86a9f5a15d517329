// Package lookup turns an image reference into sauce: it enforces the member
// quota, logs the query, answers from the result cache when it can and asks
// SauceNao otherwise.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"saucebot/metrics"
	"saucebot/sauce"
	"saucebot/saucenao"
	"saucebot/tracemoe"
	"saucebot/utils"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var (
	ErrMemberRateLimited     = errors.New("member query limit exceeded")
	ErrNotFound              = errors.New("no sauce found")
	ErrProviderQuotaExceeded = errors.New("provider search limit exceeded")
	ErrProviderKeyRejected   = errors.New("provider rejected the api key")
	ErrProviderInvalidImage  = errors.New("provider could not read the image")
	ErrProviderUnavailable   = errors.New("provider unavailable")
)

// PreviewMinSimilarity is the least trace.moe similarity a preview is
// accepted at.
const PreviewMinSimilarity = 0.9

type SauceProvider interface {
	Search(ctx context.Context, imageURL, apiKey string, minSimilarity float64) (*saucenao.Response, error)
}

type PreviewProvider interface {
	Search(ctx context.Context, imageURL string) ([]tracemoe.Match, error)
	Preview(ctx context.Context, m tracemoe.Match) ([]byte, error)
}

type ResultCache interface {
	Lookup(ctx context.Context, ref string) (sauce.Source, error)
	Store(ctx context.Context, ref string, header json.RawMessage, src sauce.Source) error
}

type QueryRecorder interface {
	Record(ctx context.Context, guildID, memberID, ref string) error
}

type KeyLookup interface {
	Lookup(ctx context.Context, guildID string) (string, error)
}

type MemberLimiter interface {
	Exceeded(ctx context.Context, memberID string) (bool, error)
}

type Options struct {
	DefaultAPIKey string
	MinSimilarity float64
}

type Request struct {
	GuildID   string
	MemberID  string
	Reference string
	// WantPreview asks for a video preview when the result is an anime.
	WantPreview bool
}

type Preview struct {
	Video []byte
	// Adult previews must only be shown in age-restricted channels.
	Adult bool
	Match tracemoe.Match
}

type Result struct {
	Source  sauce.Source
	Cached  bool
	Preview *Preview
}

type Orchestrator struct {
	provider SauceProvider
	previews PreviewProvider
	cache    ResultCache
	queries  QueryRecorder
	keys     KeyLookup
	quota    MemberLimiter
	opts     Options
	log      zerolog.Logger
	flights  singleflight.Group
}

// New wires an orchestrator. previews and quota may be nil.
func New(
	provider SauceProvider,
	previews PreviewProvider,
	cache ResultCache,
	queries QueryRecorder,
	keys KeyLookup,
	quota MemberLimiter,
	opts Options,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		previews: previews,
		cache:    cache,
		queries:  queries,
		keys:     keys,
		quota:    quota,
		opts:     opts,
		log:      logger.With().Str("component", "lookup").Logger(),
	}
}

type flightResult struct {
	src    sauce.Source
	cached bool
}

// fetch collapses concurrent provider calls for the same reference and key.
// The shared call outlives any single caller; each caller stops waiting when
// its own ctx is done.
func (o *Orchestrator) fetch(ctx context.Context, log zerolog.Logger, ref, apiKey string) (*flightResult, error) {
	key := sauce.Hash(ref) + "\x00" + apiKey
	ch := o.flights.DoChan(key, func() (any, error) {
		flightCtx := context.WithoutCancel(ctx)
		// A flight that just finished may have cached the answer already.
		if src, err := o.cache.Lookup(flightCtx, ref); err == nil && src != nil {
			return &flightResult{src: src, cached: true}, nil
		}
		return o.search(flightCtx, log, ref, apiKey)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*flightResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Resolve finds the sauce for req.Reference.
func (o *Orchestrator) Resolve(ctx context.Context, req Request) (*Result, error) {
	log := o.log.With().Str("guild_id", req.GuildID).Str("member_id", req.MemberID).Logger()

	if o.quota != nil {
		limited, err := o.quota.Exceeded(ctx, req.MemberID)
		if err != nil {
			return nil, fmt.Errorf("failed to check member quota: %w", err)
		}
		if limited {
			metrics.RateLimitedTotal.WithLabelValues("member").Inc()
			return nil, ErrMemberRateLimited
		}
	}

	apiKey, err := o.keys.Lookup(ctx, req.GuildID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up guild api key: %w", err)
	}
	if apiKey == "" {
		apiKey = o.opts.DefaultAPIKey
	}

	if err := o.queries.Record(ctx, req.GuildID, req.MemberID, req.Reference); err != nil {
		return nil, fmt.Errorf("failed to log sauce query: %w", err)
	}

	res := &Result{}
	cached, err := o.cache.Lookup(ctx, req.Reference)
	if err != nil {
		log.Warn().Err(err).Msg("Ignoring unreadable cache entry")
	}
	if cached != nil {
		log.Info().Str("title", cached.Info().Title).Msg("Cache entry found")
		metrics.CacheHitsTotal.Inc()
		res.Source, res.Cached = cached, true
	} else {
		flight, err := o.fetch(ctx, log, req.Reference, apiKey)
		if err != nil {
			metrics.LookupsTotal.WithLabelValues(outcome(err)).Inc()
			return nil, err
		}
		res.Source, res.Cached = flight.src, flight.cached
		if flight.cached {
			metrics.CacheHitsTotal.Inc()
		}
	}
	metrics.LookupsTotal.WithLabelValues("found").Inc()

	if anime, ok := res.Source.(*sauce.AnimeSource); ok && req.WantPreview && o.previews != nil {
		res.Preview = o.preview(ctx, log, req.Reference, anime)
	}
	return res, nil
}

func (o *Orchestrator) search(ctx context.Context, log zerolog.Logger, ref, apiKey string) (*flightResult, error) {
	started := time.Now()
	resp, err := o.provider.Search(ctx, ref, apiKey, o.opts.MinSimilarity)
	metrics.ObserveProvider("saucenao", started, err)
	if err != nil {
		mapped := mapProviderError(err)
		if errors.Is(mapped, ErrProviderUnavailable) {
			log.Error().Err(err).Str("reference", ref).Msg("SauceNao lookup failed")
		} else {
			log.Warn().Err(err).Str("api_key", utils.MaskKey(apiKey)).Msg("SauceNao refused the lookup")
		}
		return nil, mapped
	}

	log.Debug().Int("short_remaining", resp.ShortRemaining).Str("api_key", utils.MaskKey(apiKey)).Msg("Short API queries remaining")
	log.Info().Int("long_remaining", resp.LongRemaining).Str("api_key", utils.MaskKey(apiKey)).Msg("Daily API queries remaining")
	if apiKey == o.opts.DefaultAPIKey {
		metrics.ProviderQuotaRemaining.WithLabelValues("short").Set(float64(resp.ShortRemaining))
		metrics.ProviderQuotaRemaining.WithLabelValues("daily").Set(float64(resp.LongRemaining))
	}

	if len(resp.Results) == 0 {
		log.Info().Msg("No image sources found")
		return nil, ErrNotFound
	}

	top := resp.Results[0]
	if err := o.cache.Store(ctx, ref, resp.Header, top); err != nil {
		log.Error().Err(err).Msg("Failed to cache sauce result")
	}
	return &flightResult{src: top}, nil
}

// preview fetches a clip for an anime result. Any failure or identity
// mismatch just means no preview.
func (o *Orchestrator) preview(ctx context.Context, log zerolog.Logger, ref string, anime *sauce.AnimeSource) *Preview {
	started := time.Now()
	matches, err := o.previews.Search(ctx, ref)
	metrics.ObserveProvider("tracemoe", started, err)
	if err != nil {
		log.Warn().Err(err).Msg("Preview search failed")
		return nil
	}
	if len(matches) == 0 {
		return nil
	}

	top := matches[0]
	if top.Similarity < PreviewMinSimilarity || !SameSeries(anime, top.Anilist) {
		log.Debug().
			Float64("similarity", top.Similarity).
			Int("anilist_id", top.Anilist.ID).
			Int("expected_anilist_id", anime.AnilistID).
			Msg("Preview match does not agree with the sauce result")
		return nil
	}

	video, err := o.previews.Preview(ctx, top)
	if err != nil {
		log.Warn().Err(err).Msg("Preview download failed")
		return nil
	}
	if len(video) == 0 {
		return nil
	}
	return &Preview{Video: video, Adult: top.Anilist.Adult || anime.Adult, Match: top}
}

// SameSeries reports whether a trace.moe match names the same series as a
// SauceNao anime result, by anilist id or else by MyAnimeList id.
func SameSeries(anime *sauce.AnimeSource, a tracemoe.Anilist) bool {
	if anime.AnilistID > 0 && a.ID > 0 {
		return anime.AnilistID == a.ID
	}
	if anime.MALID > 0 && a.MALID > 0 {
		return anime.MALID == a.MALID
	}
	return false
}

func mapProviderError(err error) error {
	switch {
	case errors.Is(err, saucenao.ErrShortLimitReached), errors.Is(err, saucenao.ErrDailyLimitReached):
		return fmt.Errorf("%w: %w", ErrProviderQuotaExceeded, err)
	case errors.Is(err, saucenao.ErrInvalidKey):
		return fmt.Errorf("%w: %w", ErrProviderKeyRejected, err)
	case errors.Is(err, saucenao.ErrInvalidImage):
		return fmt.Errorf("%w: %w", ErrProviderInvalidImage, err)
	default:
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrProviderQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrProviderKeyRejected):
		return "key_rejected"
	case errors.Is(err, ErrProviderInvalidImage):
		return "invalid_image"
	default:
		return "provider_error"
	}
}
