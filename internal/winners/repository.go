package winners

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wonny/topmover/backend/internal/contracts"
	"github.com/wonny/topmover/backend/pkg/config"
	"github.com/wonny/topmover/backend/pkg/database"
)

// Repository stores daily winners in PostgreSQL, one row per (pk, trade_date)
// ⭐ SSOT: 승자 테이블 접근은 여기서만
type Repository struct {
	db        *pgxpool.Pool
	ident     pgx.Identifier
	table     string
	partition string
}

var _ contracts.WinnerStore = (*Repository)(nil)

// NewRepository creates a repository for the configured table and partition.
// Table may be schema-qualified ("movers.daily_winners").
func NewRepository(db *pgxpool.Pool, cfg config.StoreConfig) *Repository {
	ident := tableIdentifier(cfg.Table)
	return &Repository{
		db:        db,
		ident:     ident,
		table:     ident.Sanitize(),
		partition: cfg.PartitionKey,
	}
}

func tableIdentifier(name string) pgx.Identifier {
	return pgx.Identifier(strings.SplitN(name, ".", 2))
}

// Migration returns the schema for the winners table
func (r *Repository) Migration() database.Migration {
	stmts := make([]string, 0, 3)
	if len(r.ident) == 2 {
		stmts = append(stmts, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pgx.Identifier{r.ident[0]}.Sanitize()))
	}

	index := pgx.Identifier{r.ident[len(r.ident)-1] + "_expires_at_idx"}.Sanitize()
	stmts = append(stmts,
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			pk             TEXT          NOT NULL,
			trade_date     DATE          NOT NULL,
			ticker         TEXT          NOT NULL,
			percent_change NUMERIC(18,4) NOT NULL,
			closing_price  NUMERIC(18,4) NOT NULL,
			expires_at     BIGINT        NOT NULL,
			updated_at     TIMESTAMPTZ   NOT NULL DEFAULT now(),
			PRIMARY KEY (pk, trade_date)
		)`, r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (expires_at)`, index, r.table),
	)

	return database.Migration{Name: "winners_table", Statements: stmts}
}

// PutWinner upserts the record; the last write for a date wins
func (r *Repository) PutWinner(ctx context.Context, record contracts.WinnerRecord) error {
	day, err := contracts.ParseDate(record.Date)
	if err != nil {
		return err
	}

	partition := record.Partition
	if partition == "" {
		partition = r.partition
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (pk, trade_date, ticker, percent_change, closing_price, expires_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, now())
		ON CONFLICT (pk, trade_date) DO UPDATE SET
			ticker = EXCLUDED.ticker,
			percent_change = EXCLUDED.percent_change,
			closing_price = EXCLUDED.closing_price,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
	`, r.table)

	_, err = r.db.Exec(ctx, query,
		partition,
		day,
		record.Ticker,
		record.PercentChange.String(),
		record.ClosingPrice.String(),
		record.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert winner %s: %w", record.Date, err)
	}
	return nil
}

// RecentDates returns up to limit stored dates, newest first
func (r *Repository) RecentDates(ctx context.Context, limit int) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT trade_date
		FROM %s
		WHERE pk = $1
		ORDER BY trade_date DESC
		LIMIT $2
	`, r.table)

	rows, err := r.db.Query(ctx, query, r.partition, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent dates: %w", err)
	}

	dates, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var d time.Time
		if err := row.Scan(&d); err != nil {
			return "", err
		}
		return contracts.FormatDate(d), nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan recent dates: %w", err)
	}
	return dates, nil
}

// Latest returns up to limit records, newest first
func (r *Repository) Latest(ctx context.Context, limit int) ([]contracts.WinnerRecord, error) {
	query := fmt.Sprintf(`
		SELECT trade_date, ticker, percent_change::text, closing_price::text, expires_at
		FROM %s
		WHERE pk = $1
		ORDER BY trade_date DESC
		LIMIT $2
	`, r.table)

	rows, err := r.db.Query(ctx, query, r.partition, limit)
	if err != nil {
		return nil, fmt.Errorf("query latest winners: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (contracts.WinnerRecord, error) {
		var (
			day           time.Time
			pct, closeStr string
			rec           = contracts.WinnerRecord{Partition: r.partition}
		)
		if err := row.Scan(&day, &rec.Ticker, &pct, &closeStr, &rec.ExpiresAt); err != nil {
			return rec, err
		}

		var err error
		if rec.PercentChange, err = decimal.NewFromString(pct); err != nil {
			return rec, err
		}
		if rec.ClosingPrice, err = decimal.NewFromString(closeStr); err != nil {
			return rec, err
		}
		rec.Date = contracts.FormatDate(day)
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan latest winners: %w", err)
	}
	return records, nil
}

// DeleteExpired removes rows whose expires_at is before now, across all partitions
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at < $1`, r.table)

	tag, err := r.db.Exec(ctx, query, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired winners: %w", err)
	}
	return tag.RowsAffected(), nil
}
