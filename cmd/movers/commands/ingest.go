package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/topmover/backend/internal/ingest"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion invocation",
	Long: `Runs the ingestion pipeline once and prints the run summary as JSON.

Modes:
  (no flags)                          daily catch-up of the last 7 market dates
  --date YYYY-MM-DD                   single trading date
  --mode backfill --start .. --end .. weekday backfill (max 366 days)

A raw JSON payload may be passed instead of flags:
  --payload '{"mode":"backfill","startDate":"2024-01-01","endDate":"2024-01-31"}'`,
	RunE: runIngest,
}

var (
	ingestPayload string
	ingestMode    string
	ingestStart   string
	ingestEnd     string
	ingestDate    string
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestPayload, "payload", "", "JSON invocation payload")
	ingestCmd.Flags().StringVar(&ingestMode, "mode", "", "run mode (backfill)")
	ingestCmd.Flags().StringVar(&ingestStart, "start", "", "backfill start date (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&ingestEnd, "end", "", "backfill end date (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&ingestDate, "date", "", "single trading date (YYYY-MM-DD)")
}

// buildPayload prefers --payload over the individual flags
func buildPayload(raw, mode, start, end, date string) (ingest.Payload, error) {
	if raw != "" {
		return ingest.ParsePayload([]byte(raw))
	}
	return ingest.Payload{
		Mode:        mode,
		StartDate:   start,
		EndDate:     end,
		TradingDate: date,
	}, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	payload, err := buildPayload(ingestPayload, ingestMode, ingestStart, ingestEnd, ingestDate)
	if err != nil {
		return err
	}
	if err := payload.Validate(time.Now()); err != nil {
		return err
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	router, err := a.pipeline()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	summary, err := router.Run(ctx, payload)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	return printJSON(cmd.OutOrStdout(), summary)
}
