package ingest

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonny/topmover/backend/internal/contracts"
	"github.com/wonny/topmover/backend/pkg/logger"
	"github.com/wonny/topmover/backend/pkg/metrics"
)

// storedPlaces is the precision of percent change and closing price
const storedPlaces = 4

// CacheInvalidator drops cached read-side responses
type CacheInvalidator interface {
	Delete(ctx context.Context, key string) error
}

// Writer persists winner records with a derived expiry
// ⭐ SSOT: 승자 레코드 생성은 여기서만
type Writer struct {
	store     contracts.WinnerStore
	partition string
	ttlDays   int
	logger    *logger.Logger

	cache     CacheInvalidator
	cacheKeys []string
}

// NewWriter creates a writer for one partition
func NewWriter(store contracts.WinnerStore, partition string, ttlDays int, log *logger.Logger) *Writer {
	return &Writer{
		store:     store,
		partition: partition,
		ttlDays:   ttlDays,
		logger:    log,
	}
}

// WithCacheInvalidation deletes keys from cache after every stored winner
func (w *Writer) WithCacheInvalidation(cache CacheInvalidator, keys ...string) *Writer {
	w.cache = cache
	w.cacheKeys = keys
	return w
}

// Record builds the stored form of a winner
func (w *Writer) Record(date string, winner contracts.Mover) (contracts.WinnerRecord, error) {
	day, err := contracts.ParseDate(date)
	if err != nil {
		return contracts.WinnerRecord{}, err
	}

	return contracts.WinnerRecord{
		Partition:     w.partition,
		Date:          date,
		Ticker:        winner.Ticker,
		PercentChange: Round(winner.PercentChange),
		ClosingPrice:  Round(winner.Close),
		ExpiresAt:     day.AddDate(0, 0, w.ttlDays).Unix(),
	}, nil
}

// Write upserts the winner for date. Rewriting the same input is a no-op.
func (w *Writer) Write(ctx context.Context, date string, winner contracts.Mover) (contracts.WinnerRecord, error) {
	record, err := w.Record(date, winner)
	if err != nil {
		return contracts.WinnerRecord{}, err
	}

	if err := w.store.PutWinner(ctx, record); err != nil {
		return contracts.WinnerRecord{}, fmt.Errorf("store winner for %s: %w", date, err)
	}
	metrics.WinnersStored.Inc()
	w.invalidate(ctx)

	w.logger.WithFields(map[string]interface{}{
		"date":           date,
		"ticker":         record.Ticker,
		"percent_change": record.PercentChange.String(),
		"closing_price":  record.ClosingPrice.String(),
	}).Info("Stored winner")

	return record, nil
}

// invalidate is best effort; the cached response expires on its own
func (w *Writer) invalidate(ctx context.Context) {
	if w.cache == nil {
		return
	}
	for _, key := range w.cacheKeys {
		if err := w.cache.Delete(ctx, key); err != nil {
			w.logger.WithError(err).WithField("key", key).Warn("Failed to invalidate cache")
		}
	}
}

// Round rounds half away from zero to the stored precision
func Round(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(storedPlaces)
}
