package contracts

import "github.com/shopspring/decimal"

// WinnerRecord is the persisted top mover for one date.
// Keyed by (Partition, Date); a second write for the same key overwrites.
// ⭐ SSOT: 저장되는 일별 승자 레코드
type WinnerRecord struct {
	Partition     string          `json:"-"`
	Date          string          `json:"date"`
	Ticker        string          `json:"ticker"`
	PercentChange decimal.Decimal `json:"percentChange"`
	ClosingPrice  decimal.Decimal `json:"closingPrice"`
	ExpiresAt     int64           `json:"expiresAt"` // epoch seconds
}
