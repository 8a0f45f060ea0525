package contracts

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used on the wire and as map keys.
// ISO dates sort lexically in calendar order.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date as UTC midnight
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate renders t's UTC calendar date
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Candle is one ticker's open/close pair for one trading date
// ⭐ SSOT: 시세 데이터 단위
type Candle struct {
	Date  string  `json:"date"`
	Open  float64 `json:"open"`
	Close float64 `json:"close"`
}

// Series maps a trading date to that day's candle for one ticker
type Series map[string]Candle

// SeriesByTicker maps a ticker to its series. Built per run, never persisted.
type SeriesByTicker map[string]Series

// AllEmpty reports whether no ticker returned any candle
func (s SeriesByTicker) AllEmpty() bool {
	for _, series := range s {
		if len(series) > 0 {
			return false
		}
	}
	return true
}

// Mover is one ticker's open-to-close move on one date
type Mover struct {
	Ticker        string  `json:"ticker"`
	Open          float64 `json:"open"`
	Close         float64 `json:"close"`
	PercentChange float64 `json:"percentChange"`
}

// NewMover computes the percent change of a candle.
// Returns false when open is zero.
func NewMover(ticker string, c Candle) (Mover, bool) {
	if c.Open == 0 {
		return Mover{}, false
	}
	return Mover{
		Ticker:        ticker,
		Open:          c.Open,
		Close:         c.Close,
		PercentChange: (c.Close - c.Open) / c.Open * 100,
	}, true
}
