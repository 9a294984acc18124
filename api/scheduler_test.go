package api

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/store/idempotency"
	"github.com/warp/leave-ledger/store/memory"
	"github.com/warp/leave-ledger/timeoff"
)

// =============================================================================
// JOB QUEUE TESTS
// =============================================================================

func TestJobQueue_RunNowRecordsResult(t *testing.T) {
	q := NewJobQueue(1, 10)

	run, err := q.RunNow(context.Background(), "demo", func(context.Context) (any, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, JobSucceeded, run.Status)
	assert.Equal(t, 42, run.Result)
	assert.False(t, run.FinishedAt.IsZero())
}

func TestJobQueue_FailedJob(t *testing.T) {
	q := NewJobQueue(1, 10)

	run, err := q.RunNow(context.Background(), "demo", func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, JobFailed, run.Status)
	assert.Equal(t, "boom", run.Error)
}

func TestJobQueue_FullBuffer(t *testing.T) {
	// GIVEN: A one-slot queue with no worker
	q := NewJobQueue(1, 10)
	noop := func(context.Context) (any, error) { return nil, nil }

	// WHEN: Enqueueing twice
	_, err := q.Enqueue("demo", noop)
	require.NoError(t, err)
	_, err = q.Enqueue("demo", noop)

	// THEN: The second is refused and recorded as failed
	assert.ErrorIs(t, err, ErrQueueFull)
	runs := q.List()
	require.Len(t, runs, 2)
	assert.Equal(t, JobFailed, runs[0].Status)
	assert.Equal(t, JobQueued, runs[1].Status)
	assert.True(t, q.Pending("demo"))
}

func TestJobQueue_HistoryIsBounded(t *testing.T) {
	q := NewJobQueue(1, 2)
	for i := 0; i < 3; i++ {
		_, err := q.RunNow(context.Background(), "demo", func(context.Context) (any, error) { return i, nil })
		require.NoError(t, err)
	}

	runs := q.List()
	require.Len(t, runs, 2)
	assert.Equal(t, 2, runs[0].Result)
}

// =============================================================================
// ROLLOVER SCHEDULER TESTS
// =============================================================================

func newSchedulerFixture(t *testing.T, fiscal int, now time.Time) (*RolloverScheduler, *memory.Memory) {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.SetFiscalYear(context.Background(), fiscal))
	svc := timeoff.NewService(store, nil, generic.DefaultAnnualAllotment)

	rs := NewRolloverScheduler(svc, NewJobQueue(4, 10))
	rs.Now = func() time.Time { return now }
	return rs, store
}

func TestScheduler_CurrentYearDoesNothing(t *testing.T) {
	rs, _ := newSchedulerFixture(t, 2024, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))

	assert.False(t, rs.CheckAndEnqueue(context.Background()))
	assert.Empty(t, rs.Jobs.List())
}

func TestScheduler_EnqueuesOnceWhenYearChanges(t *testing.T) {
	// GIVEN: Fiscal year 2024 on 2025-01-02
	rs, _ := newSchedulerFixture(t, 2024, time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC))

	// WHEN: Checking twice before the worker runs
	first := rs.CheckAndEnqueue(context.Background())
	second := rs.CheckAndEnqueue(context.Background())

	// THEN: A single rollover is queued
	assert.True(t, first)
	assert.False(t, second)
	assert.Len(t, rs.Jobs.List(), 1)
}

func TestScheduler_RolloverAdvancesFiscalYear(t *testing.T) {
	// GIVEN: A running worker and an employee
	rs, store := newSchedulerFixture(t, 2024, time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	rs.Jobs.Start(ctx)
	_, err := rs.Service.Onboard(ctx, timeoff.Employee{Name: "Alice"}, nil)
	require.NoError(t, err)

	// WHEN: The check fires
	require.True(t, rs.CheckAndEnqueue(ctx))

	// THEN: The fiscal year moves to 2025
	require.Eventually(t, func() bool {
		year, err := store.FiscalYear(ctx)
		return err == nil && year == 2025
	}, 2*time.Second, 10*time.Millisecond)

	run := rs.Jobs.List()[0]
	require.Eventually(t, func() bool {
		got, _ := rs.Jobs.Get(run.ID)
		return got.Status == JobSucceeded
	}, 2*time.Second, 10*time.Millisecond)
	got, _ := rs.Jobs.Get(run.ID)
	assert.Equal(t, RolloverDTO{FromYear: 2024, ToYear: 2025, ExpiredYear: 2022, Employees: 1}, got.Result)
}

func TestScheduler_DisabledDoesNotStart(t *testing.T) {
	rs, _ := newSchedulerFixture(t, 2020, time.Now())
	rs.Enabled = false

	rs.Start()
	rs.Stop()

	assert.Empty(t, rs.Jobs.List())
}

func TestScheduler_PurgesExpiredIdempotencyKeys(t *testing.T) {
	// GIVEN: An idempotency store holding one stale and one fresh key
	rs, _ := newSchedulerFixture(t, 2024, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	idem, err := idempotency.Open(filepath.Join(t.TempDir(), "idem.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idem.Close() })
	hash := idempotency.RequestHash([]byte("a"))
	require.NoError(t, idem.Save("stale", idempotency.Entry{RequestHash: hash, Status: 200, Body: json.RawMessage(`{}`), CreatedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, idem.Save("fresh", idempotency.Entry{RequestHash: hash, Status: 200, Body: json.RawMessage(`{}`)}))

	rs.Enabled = false
	rs.Idempotency = idem
	rs.IdempotencyTTL = 24 * time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	rs.Jobs.Start(ctx)

	// WHEN: The scheduler starts
	rs.Start()
	t.Cleanup(rs.Stop)

	// THEN: The stale key is purged and the fresh one kept
	require.Eventually(t, func() bool {
		entry, err := idem.Check("stale", hash)
		return err == nil && entry == nil
	}, 2*time.Second, 10*time.Millisecond)
	entry, err := idem.Check("fresh", hash)
	require.NoError(t, err)
	assert.NotNil(t, entry)

	// AND: The rollover check stayed off
	for _, run := range rs.Jobs.List() {
		assert.Equal(t, JobIdempotencyPurge, run.Type)
	}
}

func TestScheduler_PurgeNotEnqueuedTwice(t *testing.T) {
	rs, _ := newSchedulerFixture(t, 2024, time.Now())
	idem, err := idempotency.Open(filepath.Join(t.TempDir(), "idem.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idem.Close() })
	rs.Idempotency = idem

	assert.True(t, rs.EnqueuePurge())
	assert.False(t, rs.EnqueuePurge())
	assert.Len(t, rs.Jobs.List(), 1)
}
