package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/topmover/backend/internal/contracts"
	"github.com/wonny/topmover/backend/internal/ingest"
	"github.com/wonny/topmover/backend/pkg/logger"
)

type stubRunner struct {
	payloads []ingest.Payload
	err      error
}

func (r *stubRunner) Run(ctx context.Context, payload ingest.Payload) (*contracts.RunSummary, error) {
	r.payloads = append(r.payloads, payload)
	if r.err != nil {
		return nil, r.err
	}
	return &contracts.RunSummary{Message: "No missing daily records", Mode: contracts.ModeDailyCatchUp}, nil
}

type expiringStore struct {
	contracts.WinnerStore
	cutoff  time.Time
	removed int64
	err     error
}

func (s *expiringStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.cutoff = now
	return s.removed, s.err
}

func TestCatchUpJob(t *testing.T) {
	runner := &stubRunner{}
	job := NewCatchUpJob(runner, "0 30 6 * * TUE-SAT", logger.Nop())

	assert.Equal(t, "daily_catchup", job.Name())
	assert.Equal(t, "0 30 6 * * TUE-SAT", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []ingest.Payload{{}}, runner.payloads)
}

func TestCatchUpJob_PropagatesFailure(t *testing.T) {
	runner := &stubRunner{err: ingest.ErrNoData}
	job := NewCatchUpJob(runner, "@daily", logger.Nop())

	assert.ErrorIs(t, job.Run(context.Background()), ingest.ErrNoData)
}

func TestExpiryCleanupJob(t *testing.T) {
	now := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	store := &expiringStore{removed: 4}
	job := NewExpiryCleanupJob(store, "0 0 3 * * *", logger.Nop())
	job.now = func() time.Time { return now }

	assert.Equal(t, "expiry_cleanup", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now, store.cutoff)

	store.err = errors.New("deadlock detected")
	assert.Error(t, job.Run(context.Background()))
}
