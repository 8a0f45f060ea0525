package jobs

import (
	"context"

	"github.com/wonny/topmover/backend/internal/contracts"
	"github.com/wonny/topmover/backend/internal/ingest"
	"github.com/wonny/topmover/backend/pkg/logger"
)

// Runner runs one ingestion invocation
type Runner interface {
	Run(ctx context.Context, payload ingest.Payload) (*contracts.RunSummary, error)
}

// CatchUpJob fills any missing recent daily winners
type CatchUpJob struct {
	runner   Runner
	schedule string
	logger   *logger.Logger
}

// NewCatchUpJob creates a new daily catch-up job
func NewCatchUpJob(runner Runner, schedule string, log *logger.Logger) *CatchUpJob {
	return &CatchUpJob{
		runner:   runner,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *CatchUpJob) Name() string {
	return "daily_catchup"
}

// Schedule returns the cron schedule (default 06:30 UTC, Tuesday to Saturday)
func (j *CatchUpJob) Schedule() string {
	return j.schedule
}

// Run executes catch-up with an empty payload
func (j *CatchUpJob) Run(ctx context.Context) error {
	summary, err := j.runner.Run(ctx, ingest.Payload{})
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":             summary.RunID,
		"latest_market_date": summary.LatestMarketDate,
		"stored":             summary.StoredRecords,
		"missing":            summary.MissingDates,
	}).Info(summary.Message)

	return nil
}
