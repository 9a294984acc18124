/*
scheduler.go - Automated annual rollover and housekeeping scheduler

PURPOSE:
  Periodically compares the calendar year with the stored fiscal year and
  enqueues the annual rollover when the calendar has moved past it. On the
  same ticker it enqueues a purge of Idempotency-Key entries older than
  IdempotencyTTL.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Enqueues at most one rollover at a time on the JobQueue
  - A store several years behind catches up one year per check, since each
    rollover advances the fiscal year by exactly one

CONFIGURATION:
  - CheckInterval: How often to check (ROLLOVER_CHECK_INTERVAL, default 1h)
  - Enabled: Whether the rollover check runs (ROLLOVER_AUTO, default false)
  - Idempotency: Store to purge; nil skips the purge
  - IdempotencyTTL: Age at which entries are purged (IDEMPOTENCY_TTL, default 24h)

USAGE:
  scheduler := NewRolloverScheduler(svc, jobs)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRollover endpoint (manual rollover)
  - timeoff/service.go: AnnualRollover
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/leave-ledger/store/idempotency"
	"github.com/warp/leave-ledger/timeoff"
)

// RolloverScheduler triggers the annual rollover automatically and keeps
// the idempotency store from growing without bound.
type RolloverScheduler struct {
	Service        *timeoff.Service
	Jobs           *JobQueue
	CheckInterval  time.Duration
	Enabled        bool
	Idempotency    *idempotency.Store
	IdempotencyTTL time.Duration
	Now            func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewRolloverScheduler(svc *timeoff.Service, jobs *JobQueue) *RolloverScheduler {
	return &RolloverScheduler{
		Service:       svc,
		Jobs:          jobs,
		CheckInterval:  1 * time.Hour,
		Enabled:        true,
		IdempotencyTTL: 24 * time.Hour,
		Now:            time.Now,
		stop:           make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *RolloverScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled && rs.Idempotency == nil {
		slog.Info("rollover scheduler disabled")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	slog.Info("rollover scheduler started", "interval", rs.CheckInterval, "rollover", rs.Enabled, "idempotency_purge", rs.Idempotency != nil)
}

// Stop stops the scheduler.
func (rs *RolloverScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		slog.Info("rollover scheduler stopped")
	}
}

func (rs *RolloverScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.tick(context.Background())

	for {
		select {
		case <-rs.ticker.C:
			rs.tick(context.Background())
		case <-rs.stop:
			return
		}
	}
}

func (rs *RolloverScheduler) tick(ctx context.Context) {
	if rs.Enabled {
		rs.CheckAndEnqueue(ctx)
	}
	if rs.Idempotency != nil {
		rs.EnqueuePurge()
	}
}

// EnqueuePurge enqueues a purge of expired Idempotency-Key entries unless
// one is already pending. It reports whether it did.
func (rs *RolloverScheduler) EnqueuePurge() bool {
	if rs.Idempotency == nil || rs.Jobs.Pending(JobIdempotencyPurge) {
		return false
	}
	if _, err := rs.Jobs.Enqueue(JobIdempotencyPurge, rs.purge); err != nil {
		slog.Error("idempotency purge: enqueue", "err", err)
		return false
	}
	return true
}

func (rs *RolloverScheduler) purge(context.Context) (any, error) {
	n, err := rs.Idempotency.Purge(rs.IdempotencyTTL)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		slog.Info("idempotency keys purged", "removed", n, "ttl", rs.IdempotencyTTL)
	}
	return n, nil
}

// CheckAndEnqueue enqueues a rollover when the calendar year is past the
// fiscal year and none is already pending. It reports whether it did.
func (rs *RolloverScheduler) CheckAndEnqueue(ctx context.Context) bool {
	fiscal, err := rs.Service.Store.FiscalYear(ctx)
	if err != nil {
		slog.Error("rollover check: read fiscal year", "err", err)
		return false
	}
	year := rs.Now().Year()
	if year <= fiscal {
		slog.Debug("rollover check: fiscal year is current", "fiscal_year", fiscal)
		return false
	}
	if rs.Jobs.Pending(JobAnnualRollover) {
		return false
	}

	run, err := rs.Jobs.Enqueue(JobAnnualRollover, rs.rollover)
	if err != nil {
		slog.Error("rollover check: enqueue", "err", err)
		return false
	}
	slog.Info("rollover enqueued", "fiscal_year", fiscal, "calendar_year", year, "job", run.ID)
	return true
}

func (rs *RolloverScheduler) rollover(ctx context.Context) (any, error) {
	res, err := rs.Service.AnnualRollover(ctx)
	if err != nil {
		return nil, err
	}
	return toRolloverDTO(res), nil
}

func toRolloverDTO(res *timeoff.RolloverResult) RolloverDTO {
	return RolloverDTO{
		FromYear:    res.FromYear,
		ToYear:      res.ToYear,
		ExpiredYear: res.ExpiredYear,
		Employees:   res.Employees,
	}
}
