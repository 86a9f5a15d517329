package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Sauce lookup metrics
var (
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "saucebot",
			Subsystem: "lookup",
			Name:      "total",
			Help:      "Sauce lookups by outcome",
		},
		[]string{"outcome"},
	)

	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "saucebot",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Lookups answered from the result cache",
		},
	)

	CachePurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "saucebot",
			Subsystem: "cache",
			Name:      "purged_total",
			Help:      "Cache entries removed by the purge sweep",
		},
	)

	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "saucebot",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Calls to external search providers",
		},
		[]string{"provider", "status"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "saucebot",
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "External search provider latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	ProviderQuotaRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "saucebot",
			Subsystem: "provider",
			Name:      "quota_remaining",
			Help:      "Remaining SauceNao searches reported for the shared key",
		},
		[]string{"window"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "saucebot",
			Subsystem: "ratelimit",
			Name:      "rejections_total",
			Help:      "Requests rejected by a rate limit",
		},
		[]string{"axis"},
	)
)

// ObserveProvider records one provider call.
func ObserveProvider(provider string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ProviderRequestsTotal.WithLabelValues(provider, status).Inc()
	ProviderDuration.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
