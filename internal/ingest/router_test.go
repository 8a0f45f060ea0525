package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/topmover/backend/internal/contracts"
	"github.com/wonny/topmover/backend/pkg/config"
	"github.com/wonny/topmover/backend/pkg/logger"
)

func newTestRouter(provider *fakeProvider, store *memoryStore, today time.Time, watchlist ...string) *Router {
	cfg := &config.Config{
		Watchlist: watchlist,
		Store: config.StoreConfig{
			PartitionKey:   "WATCHLIST",
			TTLDays:        365,
			ReconcileLimit: 90,
		},
	}
	return NewRouter(cfg, provider, store, logger.Nop()).
		WithClock(func() time.Time { return today.Add(15 * time.Hour) })
}

func TestRun_BackfillSkipsWeekends(t *testing.T) {
	// Fri 2024-01-05 .. Mon 2024-01-08; provider also returns weekend bars
	provider := &fakeProvider{ranges: map[string]contracts.Series{
		"AAPL": series(
			candle("2024-01-05", 100, 101),
			candle("2024-01-06", 100, 150),
			candle("2024-01-07", 100, 150),
			candle("2024-01-08", 100, 98),
		),
		"MSFT": series(candle("2024-01-05", 100, 103)),
	}}
	store := newMemoryStore()
	router := newTestRouter(provider, store, testToday, "AAPL", "MSFT")

	summary, err := router.Run(context.Background(), Payload{Mode: "backfill", StartDate: "2024-01-05", EndDate: "2024-01-08"})
	require.NoError(t, err)

	assert.Equal(t, "Backfill completed", summary.Message)
	assert.Equal(t, contracts.ModeBackfill, summary.Mode)
	assert.Equal(t, "2024-01-05", summary.StartDate)
	assert.Equal(t, "2024-01-08", summary.EndDate)
	assert.Equal(t, []string{"2024-01-05", "2024-01-08"}, summary.StoredDates)
	assert.Equal(t, 2, summary.StoredRecords)
	assert.Empty(t, summary.SkippedDates)
	assert.Empty(t, summary.FailedTickerFetches)
	assert.NotEmpty(t, summary.RunID)

	assert.Equal(t, []string{"2024-01-05", "2024-01-08"}, store.dates())
	assert.Equal(t, "MSFT", store.records["2024-01-05"].Ticker)
	assert.Equal(t, "AAPL", store.records["2024-01-08"].Ticker)

	// one range fetch per ticker, over the weekday span only
	assert.Equal(t, []rangeCall{
		{"AAPL", "2024-01-05", "2024-01-08"},
		{"MSFT", "2024-01-05", "2024-01-08"},
	}, provider.rangeCalls)
}

func TestRun_BackfillStartingOnWeekend(t *testing.T) {
	provider := &fakeProvider{ranges: map[string]contracts.Series{
		"AAPL": series(candle("2024-01-08", 100, 101)),
	}}
	router := newTestRouter(provider, newMemoryStore(), testToday, "AAPL")

	summary, err := router.Run(context.Background(), Payload{Mode: "backfill", StartDate: "2024-01-06", EndDate: "2024-01-08"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-08"}, summary.StoredDates)
	assert.Equal(t, []rangeCall{{"AAPL", "2024-01-08", "2024-01-08"}}, provider.rangeCalls)
}

func TestRun_BackfillOverwritesExisting(t *testing.T) {
	provider := &fakeProvider{ranges: map[string]contracts.Series{
		"AAPL": series(candle("2024-01-05", 100, 110)),
	}}
	store := newMemoryStore("2024-01-05")
	router := newTestRouter(provider, store, testToday, "AAPL")

	_, err := router.Run(context.Background(), Payload{Mode: "backfill", StartDate: "2024-01-05", EndDate: "2024-01-05"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", store.records["2024-01-05"].Ticker)
}

func TestRun_BackfillRangeTooLarge(t *testing.T) {
	provider := &fakeProvider{}
	store := newMemoryStore()
	router := newTestRouter(provider, store, testToday, "AAPL")

	_, err := router.Run(context.Background(), Payload{Mode: "backfill", StartDate: "2023-01-01", EndDate: "2024-01-03"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Empty(t, provider.rangeCalls)
	assert.Empty(t, provider.pointCalls)
	assert.Zero(t, store.puts)
}

func TestRun_BackfillPartialFailure(t *testing.T) {
	provider := &fakeProvider{
		ranges: map[string]contracts.Series{
			"MSFT": series(candle("2024-01-05", 100, 102)),
		},
		rangeErrs: map[string]error{"AAPL": errProvider},
	}
	router := newTestRouter(provider, newMemoryStore(), testToday, "AAPL", "MSFT")

	summary, err := router.Run(context.Background(), Payload{Mode: "backfill", StartDate: "2024-01-04", EndDate: "2024-01-05"})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, summary.FailedTickerFetches)
	assert.Equal(t, []string{"2024-01-05"}, summary.StoredDates)
	assert.Equal(t, []string{"2024-01-04"}, summary.SkippedDates)
	assert.Len(t, provider.rangeCalls, 2)
}

func TestRun_BackfillNoData(t *testing.T) {
	provider := &fakeProvider{rangeErrs: map[string]error{"AAPL": errProvider, "MSFT": errProvider}}
	router := newTestRouter(provider, newMemoryStore(), testToday, "AAPL", "MSFT")

	_, err := router.Run(context.Background(), Payload{Mode: "backfill", StartDate: "2024-01-04", EndDate: "2024-01-05"})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRun_BackfillOnlyWeekend(t *testing.T) {
	provider := &fakeProvider{}
	router := newTestRouter(provider, newMemoryStore(), testToday, "AAPL")

	_, err := router.Run(context.Background(), Payload{Mode: "backfill", StartDate: "2024-01-06", EndDate: "2024-01-07"})
	assert.ErrorIs(t, err, ErrNoWinner)
	assert.Empty(t, provider.rangeCalls)
}

func TestRun_SingleDate(t *testing.T) {
	provider := &fakeProvider{
		points: map[string]*contracts.Candle{
			"AAPL": {Date: "2024-06-11", Open: 100, Close: 104.123456},
			"ZERO": {Date: "2024-06-11", Open: 0, Close: 10},
		},
		pointErrs: map[string]error{"MSFT": errProvider},
	}
	store := newMemoryStore()
	router := newTestRouter(provider, store, testToday, "AAPL", "MSFT", "NONE", "ZERO")

	summary, err := router.Run(context.Background(), Payload{TradingDate: "2024-06-11"})
	require.NoError(t, err)

	assert.Equal(t, "Top mover stored", summary.Message)
	assert.Equal(t, contracts.ModeDailySingle, summary.Mode)
	assert.Equal(t, "2024-06-11", summary.TradingDate)
	assert.Equal(t, 1, summary.EvaluatedTickers)
	assert.Equal(t, []string{"MSFT"}, summary.FailedTickerFetches)
	require.NotNil(t, summary.Winner)
	assert.Equal(t, "AAPL", summary.Winner.Ticker)
	assert.Equal(t, 4.1235, summary.Winner.PercentChange)
	assert.Equal(t, 104.1235, summary.Winner.ClosingPrice)

	assert.Len(t, provider.pointCalls, 4)
	assert.Empty(t, provider.rangeCalls)
	assert.Equal(t, []string{"2024-06-11"}, store.dates())
}

func TestRun_SingleDateInFuture(t *testing.T) {
	provider := &fakeProvider{}
	router := newTestRouter(provider, newMemoryStore(), testToday, "AAPL")

	_, err := router.Run(context.Background(), Payload{TradingDate: "2024-06-13"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Empty(t, provider.pointCalls)
}

func TestRun_SingleDateNoMovers(t *testing.T) {
	provider := &fakeProvider{pointErrs: map[string]error{"AAPL": errProvider}}
	store := newMemoryStore()
	router := newTestRouter(provider, store, testToday, "AAPL", "MSFT")

	_, err := router.Run(context.Background(), Payload{Date: "2024-06-11"})
	assert.ErrorIs(t, err, ErrNoData)
	assert.Zero(t, store.puts)
}

// catchUpProvider has data for Dec 28 2023 .. Jan 10 2024 (Jan 1 closed)
func catchUpProvider() *fakeProvider {
	days := []string{
		"2023-12-28", "2023-12-29", "2024-01-02", "2024-01-03",
		"2024-01-04", "2024-01-05", "2024-01-08", "2024-01-09", "2024-01-10",
	}
	aapl, msft := contracts.Series{}, contracts.Series{}
	for i, d := range days {
		aapl[d] = candle(d, 100, 100+float64(i))
		msft[d] = candle(d, 100, 100-float64(2*i))
	}
	return &fakeProvider{ranges: map[string]contracts.Series{"AAPL": aapl, "MSFT": msft}}
}

func TestRun_CatchUpFillsMissing(t *testing.T) {
	// today is Wed 2024-01-10, so yesterday is 2024-01-09
	today := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	provider := catchUpProvider()
	store := newMemoryStore("2023-12-29", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05")
	router := newTestRouter(provider, store, today, "AAPL", "MSFT")

	summary, err := router.Run(context.Background(), Payload{})
	require.NoError(t, err)

	assert.Equal(t, "Daily catch-up completed", summary.Message)
	assert.Equal(t, contracts.ModeDailyCatchUp, summary.Mode)
	assert.Equal(t, []string{
		"2023-12-29", "2024-01-02", "2024-01-03", "2024-01-04",
		"2024-01-05", "2024-01-08", "2024-01-09",
	}, summary.TargetDates)
	assert.Equal(t, "2024-01-09", summary.LatestMarketDate)
	assert.Equal(t, []string{"2024-01-08", "2024-01-09"}, summary.MissingDates)
	assert.Equal(t, []string{"2024-01-08", "2024-01-09"}, summary.StoredDates)
	assert.Equal(t, 2, summary.StoredRecords)

	assert.Equal(t, []rangeCall{
		{"AAPL", "2023-11-25", "2024-01-09"},
		{"MSFT", "2023-11-25", "2024-01-09"},
	}, provider.rangeCalls)

	assert.Equal(t, "MSFT", store.records["2024-01-09"].Ticker)
	assert.Equal(t, "OLD", store.records["2024-01-05"].Ticker, "existing dates are not rewritten")
	assert.NotContains(t, store.records, "2024-01-10")
}

func TestRun_CatchUpRerunStoresNothing(t *testing.T) {
	today := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	router := newTestRouter(catchUpProvider(), store, today, "AAPL", "MSFT")

	first, err := router.Run(context.Background(), Payload{})
	require.NoError(t, err)
	assert.Equal(t, 7, first.StoredRecords)

	second, err := router.Run(context.Background(), Payload{})
	require.NoError(t, err)
	assert.Equal(t, "No missing daily records", second.Message)
	assert.Equal(t, 0, second.StoredRecords)
	assert.Empty(t, second.MissingDates)
	assert.Len(t, second.TargetDates, 7)
	assert.Equal(t, 7, store.puts)
}

func TestRun_CatchUpAllTickersFail(t *testing.T) {
	provider := &fakeProvider{rangeErrs: map[string]error{"AAPL": errProvider, "MSFT": errProvider}}
	router := newTestRouter(provider, newMemoryStore(), testToday, "AAPL", "MSFT")

	_, err := router.Run(context.Background(), Payload{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRun_CatchUpNoWinnerForMissing(t *testing.T) {
	today := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	provider := &fakeProvider{ranges: map[string]contracts.Series{
		"AAPL": series(candle("2024-01-08", 0, 5), candle("2024-01-09", 0, 7)),
	}}
	router := newTestRouter(provider, newMemoryStore(), today, "AAPL")

	_, err := router.Run(context.Background(), Payload{})
	assert.ErrorIs(t, err, ErrNoWinner)
}

func TestRun_CatchUpReconcileError(t *testing.T) {
	today := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	store.recentErr = errors.New("query timeout")
	router := newTestRouter(catchUpProvider(), store, today, "AAPL", "MSFT")

	_, err := router.Run(context.Background(), Payload{})
	assert.ErrorIs(t, err, store.recentErr)
	assert.Zero(t, store.puts)
}
