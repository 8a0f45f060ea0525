package polygon

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/wonny/topmover/backend/internal/contracts"
)

// fieldPairs lists the open/close key spellings the provider uses, in lookup order
var fieldPairs = [][2]string{
	{"open", "close"},
	{"o", "c"},
	{"O", "C"},
}

// extractOpenClose returns the first pair where both values are usable
func extractOpenClose(payload gjson.Result) (float64, float64, bool) {
	for _, pair := range fieldPairs {
		open, okOpen := price(payload.Get(pair[0]))
		closePrice, okClose := price(payload.Get(pair[1]))
		if okOpen && okClose {
			return open, closePrice, true
		}
	}
	return 0, 0, false
}

// parseAggregateRow decodes one range row {o, c, t}
func parseAggregateRow(row gjson.Result) (contracts.Candle, bool) {
	if !row.IsObject() {
		return contracts.Candle{}, false
	}

	open, ok := price(row.Get("o"))
	if !ok {
		return contracts.Candle{}, false
	}
	closePrice, ok := price(row.Get("c"))
	if !ok {
		return contracts.Candle{}, false
	}
	date, ok := epochMillisDate(row.Get("t"))
	if !ok {
		return contracts.Candle{}, false
	}

	return contracts.Candle{Date: date, Open: open, Close: closePrice}, true
}

// price accepts a finite non-negative number, or a string holding one
func price(v gjson.Result) (float64, bool) {
	n, ok := number(v)
	if !ok || n < 0 {
		return 0, false
	}
	return n, true
}

func number(v gjson.Result) (float64, bool) {
	var n float64
	switch v.Type {
	case gjson.Number:
		n = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// 0001-01-01 and 9999-12-31 in epoch milliseconds
const (
	minEpochMillis = -62135596800000
	maxEpochMillis = 253402300799999
)

// epochMillisDate converts a millisecond timestamp to its UTC calendar date
func epochMillisDate(v gjson.Result) (string, bool) {
	ms, ok := number(v)
	if !ok || ms < minEpochMillis || ms > maxEpochMillis {
		return "", false
	}
	return contracts.FormatDate(time.UnixMilli(int64(ms))), true
}
