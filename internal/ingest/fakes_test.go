package ingest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wonny/topmover/backend/internal/contracts"
)

var errProvider = errors.New("provider unavailable")

type rangeCall struct {
	ticker, start, end string
}

// fakeProvider serves canned candles and records every call
type fakeProvider struct {
	ranges     map[string]contracts.Series
	rangeErrs  map[string]error
	points     map[string]*contracts.Candle
	pointErrs  map[string]error
	rangeCalls []rangeCall
	pointCalls []string
}

func (f *fakeProvider) FetchPoint(ctx context.Context, ticker, date string) (*contracts.Candle, error) {
	f.pointCalls = append(f.pointCalls, ticker+"@"+date)
	if err := f.pointErrs[ticker]; err != nil {
		return nil, err
	}
	return f.points[ticker], nil
}

func (f *fakeProvider) FetchRange(ctx context.Context, ticker, start, end string) (contracts.Series, error) {
	f.rangeCalls = append(f.rangeCalls, rangeCall{ticker, start, end})
	if err := f.rangeErrs[ticker]; err != nil {
		return nil, err
	}
	out := contracts.Series{}
	for date, c := range f.ranges[ticker] {
		if date >= start && date <= end {
			out[date] = c
		}
	}
	return out, nil
}

// memoryStore is an in-memory WinnerStore keyed by date
type memoryStore struct {
	mu        sync.Mutex
	records   map[string]contracts.WinnerRecord
	puts      int
	putErr    error
	recentErr error
}

func newMemoryStore(existing ...string) *memoryStore {
	s := &memoryStore{records: make(map[string]contracts.WinnerRecord)}
	for _, d := range existing {
		s.records[d] = contracts.WinnerRecord{Partition: "WATCHLIST", Date: d, Ticker: "OLD"}
	}
	return s
}

func (s *memoryStore) PutWinner(ctx context.Context, record contracts.WinnerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	s.records[record.Date] = record
	return nil
}

func (s *memoryStore) RecentDates(ctx context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	dates := make([]string, 0, len(s.records))
	for d := range s.records {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > limit {
		dates = dates[:limit]
	}
	return dates, nil
}

func (s *memoryStore) Latest(ctx context.Context, limit int) ([]contracts.WinnerRecord, error) {
	dates, err := s.RecentDates(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]contracts.WinnerRecord, 0, len(dates))
	for _, d := range dates {
		out = append(out, s.records[d])
	}
	return out, nil
}

func (s *memoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for d, r := range s.records {
		if r.ExpiresAt < now.Unix() {
			delete(s.records, d)
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) dates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for d := range s.records {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func candle(date string, open, closePrice float64) contracts.Candle {
	return contracts.Candle{Date: date, Open: open, Close: closePrice}
}

func series(candles ...contracts.Candle) contracts.Series {
	s := contracts.Series{}
	for _, c := range candles {
		s[c.Date] = c
	}
	return s
}

// recordingCache remembers deleted keys
type recordingCache struct {
	deleted []string
	err     error
}

func (c *recordingCache) Delete(ctx context.Context, key string) error {
	c.deleted = append(c.deleted, key)
	return c.err
}
