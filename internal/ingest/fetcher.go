package ingest

import (
	"context"

	"github.com/wonny/topmover/backend/internal/contracts"
	"github.com/wonny/topmover/backend/pkg/logger"
	"github.com/wonny/topmover/backend/pkg/metrics"
)

// SeriesFetcher pulls one date window for every watchlist ticker
type SeriesFetcher struct {
	client    contracts.MarketDataClient
	watchlist []string
	logger    *logger.Logger
}

// NewSeriesFetcher creates a fetcher over an ordered watchlist
func NewSeriesFetcher(client contracts.MarketDataClient, watchlist []string, log *logger.Logger) *SeriesFetcher {
	return &SeriesFetcher{
		client:    client,
		watchlist: watchlist,
		logger:    log,
	}
}

// FetchAll calls FetchRange once per ticker, one at a time.
// A failing ticker is recorded and gets an empty series; the rest still run.
func (f *SeriesFetcher) FetchAll(ctx context.Context, start, end string) (contracts.SeriesByTicker, []string) {
	seriesByTicker := make(contracts.SeriesByTicker, len(f.watchlist))
	failed := make([]string, 0)

	for _, ticker := range f.watchlist {
		series, err := f.client.FetchRange(ctx, ticker, start, end)
		if err != nil {
			f.logger.WithError(err).WithFields(map[string]interface{}{
				"ticker": ticker,
				"start":  start,
				"end":    end,
			}).Error("Failed to fetch aggregate series")
			metrics.TickerFetchFailures.WithLabelValues(ticker).Inc()
			failed = append(failed, ticker)
			series = contracts.Series{}
		}
		if series == nil {
			series = contracts.Series{}
		}
		seriesByTicker[ticker] = series
	}

	return seriesByTicker, failed
}
