package ingest

import (
	"context"
	"math"

	"github.com/wonny/topmover/backend/internal/contracts"
	"github.com/wonny/topmover/backend/pkg/logger"
	"github.com/wonny/topmover/backend/pkg/metrics"
)

// Largest returns the mover with the greatest absolute percent change.
// Exact ties keep the earlier entry, so input order must be watchlist order.
func Largest(movers []contracts.Mover) (contracts.Mover, bool) {
	if len(movers) == 0 {
		return contracts.Mover{}, false
	}

	best := movers[0]
	for _, m := range movers[1:] {
		if math.Abs(m.PercentChange) > math.Abs(best.PercentChange) {
			best = m
		}
	}
	return best, true
}

// Selector picks and stores the daily winner across the watchlist
// ⭐ SSOT: 일별 승자 선정은 여기서만
type Selector struct {
	watchlist []string
	writer    *Writer
	logger    *logger.Logger
}

// NewSelector creates a selector writing through w
func NewSelector(watchlist []string, w *Writer, log *logger.Logger) *Selector {
	return &Selector{
		watchlist: watchlist,
		writer:    w,
		logger:    log,
	}
}

// SelectWinner evaluates every watchlist ticker's candle for date.
// Tickers without a candle or with a zero open are skipped.
func (s *Selector) SelectWinner(date string, seriesByTicker contracts.SeriesByTicker) (contracts.Mover, bool) {
	movers := make([]contracts.Mover, 0, len(s.watchlist))
	for _, ticker := range s.watchlist {
		candle, ok := seriesByTicker[ticker][date]
		if !ok {
			continue
		}
		mover, ok := contracts.NewMover(ticker, candle)
		if !ok {
			continue
		}
		movers = append(movers, mover)
	}
	return Largest(movers)
}

// SelectWinnersForDates stores a winner for each date that has one.
// Dates are processed ascending and de-duplicated. A store error aborts the batch.
func (s *Selector) SelectWinnersForDates(ctx context.Context, dates []string, seriesByTicker contracts.SeriesByTicker) ([]string, []string, error) {
	stored := make([]string, 0)
	skipped := make([]string, 0)

	for _, date := range uniqueSorted(dates) {
		winner, ok := s.SelectWinner(date, seriesByTicker)
		if !ok {
			s.logger.WithField("date", date).Warn("No eligible movers, skipping date")
			metrics.DatesSkipped.Inc()
			skipped = append(skipped, date)
			continue
		}

		if _, err := s.writer.Write(ctx, date, winner); err != nil {
			return stored, skipped, err
		}
		stored = append(stored, date)
	}

	return stored, skipped, nil
}
