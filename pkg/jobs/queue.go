package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the lifecycle stage of a queued job.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is one unit of background gateway work, such as fetching an export for a teacher.
type Job struct {
	ID       string
	Kind     string
	Payload  interface{}
	Enqueued time.Time
}

// Result reports where a job is in its lifecycle.
type Result struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Status   Status    `json:"status"`
	Attempts int       `json:"attempts"`
	Error    string    `json:"error,omitempty"`
	Updated  time.Time `json:"updated_at"`
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig tunes a Queue. MaxRetries of zero runs each job once; Retain bounds how long
// finished results stay queryable.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Retain     time.Duration
	Logger     *zap.Logger
}

// Queue runs jobs on a fixed pool of goroutines and remembers their outcome.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger
	jobs    chan Job

	mu      sync.Mutex
	results map[string]*Result
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewQueue builds a stopped queue; call Start before Enqueue.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 8
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Retain <= 0 {
		cfg.Retain = time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
		results: make(map[string]*Result),
	}
}

// Start launches the workers. Calling it on a running queue does nothing.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ctx != nil {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work(q.ctx)
	}
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop cancels the workers and waits for them. Jobs still buffered are abandoned.
func (q *Queue) Stop() {
	q.mu.Lock()
	cancel := q.cancel
	q.ctx, q.cancel = nil, nil
	q.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	q.wg.Wait()
	q.logger.Info("queue stopped")
}

// Enqueue registers job as pending and hands it to a worker. It blocks while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	ctx := q.ctx
	if ctx == nil {
		q.mu.Unlock()
		return fmt.Errorf("queue %s not started", q.name)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	q.pruneLocked(job.Enqueued)
	q.results[job.ID] = &Result{ID: job.ID, Kind: job.Kind, Status: StatusPending, Updated: job.Enqueued}
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		q.finish(job.ID, ctx.Err())
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	}
}

// Status returns the last known state of the job with id.
func (q *Queue) Status(id string) (Result, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.results[id]
	if !ok {
		return Result{}, false
	}
	return *r, true
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.run(ctx, job)
		}
	}
}

// run executes job, retrying in place up to MaxRetries times.
func (q *Queue) run(ctx context.Context, job Job) {
	var err error
	for attempt := 1; attempt <= q.cfg.MaxRetries+1; attempt++ {
		q.update(job.ID, func(r *Result) {
			r.Status = StatusRunning
			r.Attempts = attempt
		})
		if err = q.handler(ctx, job); err == nil {
			break
		}
		if attempt > q.cfg.MaxRetries {
			break
		}
		q.logger.Warn("job failed, retrying", zap.String("job_id", job.ID), zap.String("kind", job.Kind), zap.Int("attempt", attempt), zap.Error(err))

		timer := time.NewTimer(q.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			q.finish(job.ID, ctx.Err())
			return
		case <-timer.C:
		}
	}
	if err != nil {
		q.logger.Error("job failed", zap.String("job_id", job.ID), zap.String("kind", job.Kind), zap.Error(err))
	}
	q.finish(job.ID, err)
}

func (q *Queue) finish(id string, err error) {
	q.update(id, func(r *Result) {
		if err != nil {
			r.Status = StatusFailed
			r.Error = err.Error()
			return
		}
		r.Status = StatusDone
	})
}

func (q *Queue) update(id string, fn func(*Result)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if r, ok := q.results[id]; ok {
		fn(r)
		r.Updated = time.Now().UTC()
	}
}

func (q *Queue) pruneLocked(now time.Time) {
	for id, r := range q.results {
		if (r.Status == StatusDone || r.Status == StatusFailed) && now.Sub(r.Updated) > q.cfg.Retain {
			delete(q.results, id)
		}
	}
}
