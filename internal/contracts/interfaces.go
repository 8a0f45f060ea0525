package contracts

import (
	"context"
	"time"
)

// MarketDataClient fetches daily open/close data from the provider
// ⭐ SSOT: 시세 제공자 인터페이스
type MarketDataClient interface {
	// FetchPoint returns nil, nil when the provider has no usable data for the date.
	FetchPoint(ctx context.Context, ticker, date string) (*Candle, error)

	// FetchRange returns every well-formed daily candle in [start, end].
	FetchRange(ctx context.Context, ticker, start, end string) (Series, error)
}

// WinnerStore persists and reads daily winners for one partition
// ⭐ SSOT: 승자 저장소 인터페이스
type WinnerStore interface {
	PutWinner(ctx context.Context, record WinnerRecord) error

	// RecentDates returns up to limit stored dates, newest first.
	RecentDates(ctx context.Context, limit int) ([]string, error)

	// Latest returns up to limit records, newest first.
	Latest(ctx context.Context, limit int) ([]WinnerRecord, error)

	// DeleteExpired removes records whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
