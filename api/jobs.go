package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// JOB QUEUE - Background runner for long administrative operations
// =============================================================================

const (
	JobAnnualRollover   = "annual_rollover"
	JobIdempotencyPurge = "idempotency_purge"
)

// ErrQueueFull is returned by Enqueue when the buffer is full.
var ErrQueueFull = errors.New("job queue full")

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// JobRun is one execution of a job, kept in a bounded history.
type JobRun struct {
	ID         string
	Type       string
	Status     JobStatus
	QueuedAt   time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
	Result     any
}

type job struct {
	id  string
	typ string
	run func(context.Context) (any, error)
}

// JobQueue runs jobs one at a time on a single worker.
type JobQueue struct {
	queue   chan job
	mu      sync.Mutex
	runs    map[string]*JobRun
	order   []string
	history int
}

func NewJobQueue(size, history int) *JobQueue {
	if size <= 0 {
		size = 128
	}
	if history <= 0 {
		history = 100
	}
	return &JobQueue{
		queue:   make(chan job, size),
		runs:    make(map[string]*JobRun),
		history: history,
	}
}

// Start runs the worker until ctx is cancelled.
func (q *JobQueue) Start(ctx context.Context) {
	go q.worker(ctx)
}

// Enqueue schedules run and returns its queued JobRun.
func (q *JobQueue) Enqueue(jobType string, run func(context.Context) (any, error)) (JobRun, error) {
	j := job{id: uuid.NewString(), typ: jobType, run: run}
	rec := q.record(j)

	select {
	case q.queue <- j:
		return rec, nil
	default:
		slog.Warn("job queue full", "jobType", jobType)
		q.finish(j.id, nil, ErrQueueFull)
		return JobRun{}, ErrQueueFull
	}
}

// RunNow executes run inline and records it like a queued job.
func (q *JobQueue) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (JobRun, error) {
	j := job{id: uuid.NewString(), typ: jobType, run: run}
	q.record(j)
	err := q.runJob(ctx, j)
	got, _ := q.Get(j.id)
	return got, err
}

// Get returns a copy of the run with the given id.
func (q *JobQueue) Get(id string) (JobRun, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	run, ok := q.runs[id]
	if !ok {
		return JobRun{}, false
	}
	return *run, true
}

// List returns the recorded runs, newest first.
func (q *JobQueue) List() []JobRun {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]JobRun, 0, len(q.order))
	for i := len(q.order) - 1; i >= 0; i-- {
		out = append(out, *q.runs[q.order[i]])
	}
	return out
}

// Pending reports whether a job of jobType is queued or running.
func (q *JobQueue) Pending(jobType string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, run := range q.runs {
		if run.Type == jobType && (run.Status == JobQueued || run.Status == JobRunning) {
			return true
		}
	}
	return false
}

func (q *JobQueue) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-q.queue:
			if err := q.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.typ, "jobId", j.id, "err", err)
			}
		}
	}
}

func (q *JobQueue) runJob(ctx context.Context, j job) error {
	q.mu.Lock()
	if run, ok := q.runs[j.id]; ok {
		run.Status = JobRunning
		run.StartedAt = time.Now().UTC()
	}
	q.mu.Unlock()

	result, err := j.run(ctx)
	q.finish(j.id, result, err)
	return err
}

func (q *JobQueue) record(j job) JobRun {
	q.mu.Lock()
	defer q.mu.Unlock()

	run := &JobRun{ID: j.id, Type: j.typ, Status: JobQueued, QueuedAt: time.Now().UTC()}
	q.runs[j.id] = run
	q.order = append(q.order, j.id)
	for len(q.order) > q.history {
		delete(q.runs, q.order[0])
		q.order = q.order[1:]
	}
	return *run
}

func (q *JobQueue) finish(id string, result any, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	run, ok := q.runs[id]
	if !ok {
		return
	}
	run.FinishedAt = time.Now().UTC()
	run.Result = result
	if err != nil {
		run.Status = JobFailed
		run.Error = err.Error()
		return
	}
	run.Status = JobSucceeded
}
