package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/topmover/backend/internal/contracts"
	"github.com/wonny/topmover/backend/pkg/config"
	"github.com/wonny/topmover/backend/pkg/logger"
	"github.com/wonny/topmover/backend/pkg/metrics"
)

// Router validates a payload and runs one of the three ingestion modes
// ⭐ SSOT: 수집 모드 분기는 여기서만
type Router struct {
	client         contracts.MarketDataClient
	store          contracts.WinnerStore
	fetcher        *SeriesFetcher
	selector       *Selector
	writer         *Writer
	watchlist      []string
	reconcileLimit int
	logger         *logger.Logger
	now            func() time.Time
}

// NewRouter wires the pipeline from config
func NewRouter(cfg *config.Config, client contracts.MarketDataClient, store contracts.WinnerStore, log *logger.Logger) *Router {
	log = log.Module("ingest")
	writer := NewWriter(store, cfg.Store.PartitionKey, cfg.Store.TTLDays, log)

	limit := cfg.Store.ReconcileLimit
	if limit <= 0 {
		limit = 90
	}

	return &Router{
		client:         client,
		store:          store,
		fetcher:        NewSeriesFetcher(client, cfg.Watchlist, log),
		selector:       NewSelector(cfg.Watchlist, writer, log),
		writer:         writer,
		watchlist:      cfg.Watchlist,
		reconcileLimit: limit,
		logger:         log,
		now:            time.Now,
	}
}

// WithClock overrides the wall clock used for "today"
func (r *Router) WithClock(now func() time.Time) *Router {
	r.now = now
	return r
}

// WithCacheInvalidation forwards to the writer
func (r *Router) WithCacheInvalidation(cache CacheInvalidator, keys ...string) *Router {
	r.writer.WithCacheInvalidation(cache, keys...)
	return r
}

// Run executes one invocation and returns its summary
func (r *Router) Run(ctx context.Context, payload Payload) (*contracts.RunSummary, error) {
	started := time.Now()
	runID := uuid.New().String()
	log := r.logger.WithField("run_id", runID)

	p, err := payload.resolve(r.today())
	if err != nil {
		metrics.Runs.WithLabelValues("invalid", "failed").Inc()
		log.WithError(err).Warn("Rejected invocation payload")
		return nil, err
	}

	log = log.WithField("mode", p.mode)
	log.Info("Ingestion run started")

	var summary *contracts.RunSummary
	switch p.mode {
	case contracts.ModeBackfill:
		summary, err = r.runBackfill(ctx, p.start, p.end)
	case contracts.ModeDailySingle:
		summary, err = r.runSingleDate(ctx, p.tradingDate)
	default:
		summary, err = r.runCatchUp(ctx)
	}

	elapsed := time.Since(started)
	metrics.RunDuration.WithLabelValues(p.mode).Observe(elapsed.Seconds())

	if err != nil {
		metrics.Runs.WithLabelValues(p.mode, "failed").Inc()
		log.WithError(err).Error("Ingestion run failed")
		return nil, err
	}

	metrics.Runs.WithLabelValues(p.mode, "succeeded").Inc()
	summary.RunID = runID
	summary.DurationMs = elapsed.Milliseconds()

	log.WithFields(map[string]interface{}{
		"stored":      summary.StoredRecords,
		"failed":      len(summary.FailedTickerFetches),
		"duration_ms": summary.DurationMs,
	}).Info(summary.Message)

	return summary, nil
}

func (r *Router) today() time.Time {
	return utcDate(r.now())
}

// runBackfill recomputes every weekday in [start, end] from one range fetch per ticker
func (r *Router) runBackfill(ctx context.Context, start, end time.Time) (*contracts.RunSummary, error) {
	startDate, endDate := contracts.FormatDate(start), contracts.FormatDate(end)
	targets := Weekdays(start, end)
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s..%s contains no weekdays", ErrNoWinner, startDate, endDate)
	}

	seriesByTicker, failed := r.fetcher.FetchAll(ctx, targets[0], targets[len(targets)-1])
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if seriesByTicker.AllEmpty() {
		return nil, fmt.Errorf("%w: no ticker returned aggregate data for %s..%s", ErrNoData, startDate, endDate)
	}

	stored, skipped, err := r.selector.SelectWinnersForDates(ctx, targets, seriesByTicker)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: backfill found no valid market dates with watchlist data", ErrNoWinner)
	}

	return &contracts.RunSummary{
		Message:             "Backfill completed",
		Mode:                contracts.ModeBackfill,
		StartDate:           startDate,
		EndDate:             endDate,
		StoredRecords:       len(stored),
		StoredDates:         stored,
		SkippedDates:        skipped,
		FailedTickerFetches: failed,
	}, nil
}

// runSingleDate fetches one point per ticker and stores that day's winner
func (r *Router) runSingleDate(ctx context.Context, date string) (*contracts.RunSummary, error) {
	movers := make([]contracts.Mover, 0, len(r.watchlist))
	failed := make([]string, 0)

	for _, ticker := range r.watchlist {
		log := r.logger.WithFields(map[string]interface{}{"ticker": ticker, "date": date})

		candle, err := r.client.FetchPoint(ctx, ticker, date)
		if err != nil {
			log.WithError(err).Error("Failed to fetch open/close")
			metrics.TickerFetchFailures.WithLabelValues(ticker).Inc()
			failed = append(failed, ticker)
			continue
		}
		if candle == nil {
			log.Warn("No open/close data")
			continue
		}

		mover, ok := contracts.NewMover(ticker, *candle)
		if !ok {
			log.Warn("Skipping ticker with zero open price")
			continue
		}
		movers = append(movers, mover)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	winner, ok := Largest(movers)
	if !ok {
		return nil, fmt.Errorf("%w: no valid stock data retrieved for watchlist on %s", ErrNoData, date)
	}

	record, err := r.writer.Write(ctx, date, winner)
	if err != nil {
		return nil, err
	}

	return &contracts.RunSummary{
		Message:     "Top mover stored",
		Mode:        contracts.ModeDailySingle,
		TradingDate: date,
		Winner: &contracts.WinnerSummary{
			Ticker:        record.Ticker,
			PercentChange: record.PercentChange.InexactFloat64(),
			ClosingPrice:  record.ClosingPrice.InexactFloat64(),
		},
		EvaluatedTickers:    len(movers),
		StoredRecords:       1,
		StoredDates:         []string{date},
		FailedTickerFetches: failed,
	}, nil
}

// runCatchUp fills stored gaps among the most recent market dates
func (r *Router) runCatchUp(ctx context.Context) (*contracts.RunSummary, error) {
	yesterday := r.today().AddDate(0, 0, -1)
	start := contracts.FormatDate(yesterday.AddDate(0, 0, -CatchUpLookbackDays))
	end := contracts.FormatDate(yesterday)

	seriesByTicker, failed := r.fetcher.FetchAll(ctx, start, end)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if seriesByTicker.AllEmpty() {
		return nil, fmt.Errorf("%w: no ticker returned aggregate data for recent market dates", ErrNoData)
	}

	targets := LastNTradingDates(seriesByTicker, end, CatchUpTradingDays)
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: could not determine recent market dates from watchlist data", ErrNoData)
	}
	latest := targets[len(targets)-1]

	existing, err := r.store.RecentDates(ctx, r.reconcileLimit)
	if err != nil {
		return nil, fmt.Errorf("read stored dates: %w", err)
	}

	missing := missingDates(targets, existing)
	if len(missing) == 0 {
		return &contracts.RunSummary{
			Message:             "No missing daily records",
			Mode:                contracts.ModeDailyCatchUp,
			LatestMarketDate:    latest,
			TargetDates:         targets,
			StoredRecords:       0,
			FailedTickerFetches: failed,
		}, nil
	}

	stored, skipped, err := r.selector.SelectWinnersForDates(ctx, missing, seriesByTicker)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: daily catch-up failed to store any missing records", ErrNoWinner)
	}

	return &contracts.RunSummary{
		Message:             "Daily catch-up completed",
		Mode:                contracts.ModeDailyCatchUp,
		LatestMarketDate:    latest,
		TargetDates:         targets,
		MissingDates:        missing,
		StoredRecords:       len(stored),
		StoredDates:         stored,
		SkippedDates:        skipped,
		FailedTickerFetches: failed,
	}, nil
}
