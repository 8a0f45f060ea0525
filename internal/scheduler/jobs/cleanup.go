package jobs

import (
	"context"
	"time"

	"github.com/wonny/topmover/backend/internal/contracts"
	"github.com/wonny/topmover/backend/pkg/logger"
	"github.com/wonny/topmover/backend/pkg/metrics"
)

// ExpiryCleanupJob deletes winner records past their expiration timestamp.
// Postgres has no row TTL, so this stands in for storage-side expiry.
type ExpiryCleanupJob struct {
	store    contracts.WinnerStore
	schedule string
	logger   *logger.Logger
	now      func() time.Time
}

// NewExpiryCleanupJob creates a new expiry cleanup job
func NewExpiryCleanupJob(store contracts.WinnerStore, schedule string, log *logger.Logger) *ExpiryCleanupJob {
	return &ExpiryCleanupJob{
		store:    store,
		schedule: schedule,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *ExpiryCleanupJob) Name() string {
	return "expiry_cleanup"
}

// Schedule returns the cron schedule (default 03:00 UTC daily)
func (j *ExpiryCleanupJob) Schedule() string {
	return j.schedule
}

// Run executes the cleanup
func (j *ExpiryCleanupJob) Run(ctx context.Context) error {
	removed, err := j.store.DeleteExpired(ctx, j.now())
	if err != nil {
		return err
	}

	metrics.ExpiredPurged.Add(float64(removed))
	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Expired winners purged")
	}
	return nil
}
