package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ⭐ SSOT: 모든 Prometheus 메트릭은 여기서만 등록

var (
	// Provider HTTP attempts by outcome (ok, retryable, rejected, network)
	ProviderAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "topmover_provider_attempts_total",
		Help: "HTTP attempts against the market data provider",
	}, []string{"outcome"})

	ProviderLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "topmover_provider_request_duration_seconds",
		Help:    "Latency of single provider HTTP attempts",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
	})

	// Ingestion runs by mode and outcome
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "topmover_runs_total",
		Help: "Ingestion runs by mode and outcome",
	}, []string{"mode", "outcome"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "topmover_run_duration_seconds",
		Help:    "Wall time of ingestion runs",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"mode"})

	WinnersStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topmover_winners_stored_total",
		Help: "Winner records written",
	})

	DatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topmover_dates_skipped_total",
		Help: "Target dates that produced no eligible mover",
	})

	TickerFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "topmover_ticker_fetch_failures_total",
		Help: "Per-ticker fetch failures",
	}, []string{"ticker"})

	ExpiredPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topmover_expired_records_purged_total",
		Help: "Winner records removed after their expiration timestamp",
	})
)

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
