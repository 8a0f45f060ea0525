package contracts

// Run modes as reported in RunSummary.Mode
const (
	ModeBackfill     = "backfill"
	ModeDailySingle  = "daily-single"
	ModeDailyCatchUp = "daily-catchup"
)

// RunSummary describes what one ingestion run did. Returned to the caller, never stored.
type RunSummary struct {
	RunID               string         `json:"runId"`
	Message             string         `json:"message"`
	Mode                string         `json:"mode"`
	StartDate           string         `json:"startDate,omitempty"`
	EndDate             string         `json:"endDate,omitempty"`
	TradingDate         string         `json:"tradingDate,omitempty"`
	LatestMarketDate    string         `json:"latestMarketDate,omitempty"`
	TargetDates         []string       `json:"targetDates,omitempty"`
	MissingDates        []string       `json:"missingDates,omitempty"`
	StoredRecords       int            `json:"storedRecords"`
	StoredDates         []string       `json:"storedDates,omitempty"`
	SkippedDates        []string       `json:"skippedDates,omitempty"`
	FailedTickerFetches []string       `json:"failedTickerFetches"`
	Winner              *WinnerSummary `json:"winner,omitempty"`
	EvaluatedTickers    int            `json:"evaluatedTickers,omitempty"`
	DurationMs          int64          `json:"durationMs"`
}

// WinnerSummary is the single-date winner with 4-place rounded values
type WinnerSummary struct {
	Ticker        string  `json:"ticker"`
	PercentChange float64 `json:"percentChange"`
	ClosingPrice  float64 `json:"closingPrice"`
}
