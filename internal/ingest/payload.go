package ingest

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/wonny/topmover/backend/internal/contracts"
)

const (
	// MaxBackfillDays is the largest inclusive backfill span
	MaxBackfillDays = 366

	// CatchUpTradingDays is how many recent market dates catch-up keeps filled
	CatchUpTradingDays = 7

	// CatchUpLookbackDays is the calendar window searched for those dates
	CatchUpLookbackDays = 45
)

// Payload is the invocation input. No mode-selecting field means daily catch-up.
type Payload struct {
	Mode        string `json:"mode,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	TradingDate string `json:"tradingDate,omitempty"`
	Date        string `json:"date,omitempty"`
}

// ParsePayload decodes a JSON payload. Empty input is a catch-up request.
func ParsePayload(raw []byte) (Payload, error) {
	var p Payload
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, invalid("payload", "must be a JSON object with string fields: %v", err)
	}
	return p, nil
}

// plan is a validated payload
type plan struct {
	mode        string
	start       time.Time
	end         time.Time
	tradingDate string
}

// Validate checks the payload against the UTC date of now without running it
func (p Payload) Validate(now time.Time) error {
	_, err := p.resolve(utcDate(now))
	return err
}

func utcDate(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// resolve validates the payload against today (UTC) and picks the mode.
// Precedence: backfill, then single-date, then catch-up.
func (p Payload) resolve(today time.Time) (plan, error) {
	if strings.ToLower(strings.TrimSpace(p.Mode)) == contracts.ModeBackfill {
		return p.resolveBackfill(today)
	}

	requested := p.TradingDate
	if requested == "" {
		requested = p.Date
	}
	if requested != "" {
		day, err := contracts.ParseDate(requested)
		if err != nil {
			return plan{}, invalid("tradingDate", "invalid format, use YYYY-MM-DD")
		}
		if day.After(today) {
			return plan{}, invalid("tradingDate", "cannot be in the future")
		}
		return plan{mode: contracts.ModeDailySingle, tradingDate: contracts.FormatDate(day)}, nil
	}

	return plan{mode: contracts.ModeDailyCatchUp}, nil
}

func (p Payload) resolveBackfill(today time.Time) (plan, error) {
	if p.StartDate == "" || p.EndDate == "" {
		return plan{}, invalid("", "backfill mode requires startDate and endDate (YYYY-MM-DD)")
	}

	start, err := contracts.ParseDate(p.StartDate)
	if err != nil {
		return plan{}, invalid("startDate", "invalid format, use YYYY-MM-DD")
	}
	end, err := contracts.ParseDate(p.EndDate)
	if err != nil {
		return plan{}, invalid("endDate", "invalid format, use YYYY-MM-DD")
	}

	if end.Before(start) {
		return plan{}, invalid("endDate", "must be on or after startDate")
	}

	span := int(end.Sub(start).Hours()/24) + 1
	if span > MaxBackfillDays {
		return plan{}, invalid("", "backfill range too large (%d days), max is %d", span, MaxBackfillDays)
	}

	if end.After(today) {
		return plan{}, invalid("endDate", "cannot be in the future")
	}

	return plan{mode: contracts.ModeBackfill, start: start, end: end}, nil
}
