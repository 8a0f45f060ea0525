package ingest

import (
	"sort"
	"time"

	"github.com/wonny/topmover/backend/internal/contracts"
)

// LastNTradingDates infers market days from the data itself: the union of
// every ticker's dates up to notAfter, ascending, keeping the final n.
func LastNTradingDates(seriesByTicker contracts.SeriesByTicker, notAfter string, n int) []string {
	seen := make(map[string]struct{})
	for _, series := range seriesByTicker {
		for date := range series {
			if date <= notAfter {
				seen[date] = struct{}{}
			}
		}
	}

	dates := make([]string, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	if n >= 0 && len(dates) > n {
		dates = dates[len(dates)-n:]
	}
	return dates
}

// Weekdays lists every Monday-Friday date in [start, end]
func Weekdays(start, end time.Time) []string {
	dates := make([]string, 0)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
			continue
		}
		dates = append(dates, contracts.FormatDate(d))
	}
	return dates
}

// uniqueSorted returns dates de-duplicated in ascending order
func uniqueSorted(dates []string) []string {
	seen := make(map[string]struct{}, len(dates))
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// missingDates keeps targets that are not in existing, preserving order
func missingDates(targets, existing []string) []string {
	have := make(map[string]struct{}, len(existing))
	for _, d := range existing {
		have[d] = struct{}{}
	}

	missing := make([]string, 0)
	for _, d := range targets {
		if _, ok := have[d]; !ok {
			missing = append(missing, d)
		}
	}
	return missing
}
