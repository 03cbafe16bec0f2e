package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"taskgate/internal/pkg/logger"
	"taskgate/internal/platform/config"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusRetrying  Status = "retrying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var (
	ErrQueueFull      = errors.New("job queue is full")
	ErrQueueStopped   = errors.New("job queue is stopped")
	ErrUnknownJobType = errors.New("no handler registered for job type")
)

type Job struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Payload   map[string]string `json:"payload,omitempty"`
	Attempts  int               `json:"attempts"`
	Status    Status            `json:"status"`
	LastError string            `json:"last_error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type Handler interface {
	Handle(ctx context.Context, job *Job) error
}

type HandlerFunc func(ctx context.Context, job *Job) error

func (f HandlerFunc) Handle(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

type Observer interface {
	ObserveJob(jobType, status string)
}

// Queue is an in-memory FIFO drained by a single worker. Failed jobs are
// retried in place with exponential backoff, so a retrying job holds the
// worker until it succeeds or runs out of attempts.
type Queue struct {
	mu       sync.Mutex
	handlers map[string]Handler
	jobs     chan *Job
	policy   RetryPolicy
	observer Observer
	stopped  bool
	started  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    zerolog.Logger
}

func NewQueue(cfg config.JobsConfig, observer Observer) *Queue {
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		handlers: make(map[string]Handler),
		jobs:     make(chan *Job, size),
		policy:   NewRetryPolicy(cfg.MaxAttempts, cfg.BaseBackoff, cfg.MaxBackoff),
		observer: observer,
		ctx:      ctx,
		cancel:   cancel,
		log:      logger.Component("jobs"),
	}
}

func (q *Queue) Register(jobType string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = h
}

// Start launches the worker. Calling it more than once is a no-op.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopped {
		return
	}
	q.started = true

	q.wg.Add(1)
	go q.worker()
	q.log.Info().Int("max_attempts", q.policy.MaxAttempts).Msg("job queue started")
}

// Stop cancels the running job and waits for the worker to exit. Jobs still
// queued are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
	q.log.Info().Int("dropped", len(q.jobs)).Msg("job queue stopped")
}

// Enqueue hands the job to the worker and returns a snapshot of it as
// queued. The worker's later progress is reported through the Observer, not
// through the returned value.
func (q *Queue) Enqueue(jobType string, payload map[string]string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return nil, ErrQueueStopped
	}
	if _, ok := q.handlers[jobType]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}

	job := &Job{
		ID:        "job_" + uuid.New().String(),
		Type:      jobType,
		Payload:   copyPayload(payload),
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	snapshot := *job
	snapshot.Payload = copyPayload(payload)

	select {
	case q.jobs <- job:
		return &snapshot, nil
	default:
		return nil, ErrQueueFull
	}
}

func copyPayload(payload map[string]string) map[string]string {
	if payload == nil {
		return nil
	}
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.process(job)
		}
	}
}

func (q *Queue) process(job *Job) {
	q.mu.Lock()
	h := q.handlers[job.Type]
	q.mu.Unlock()

	for {
		job.Attempts++
		job.Status = StatusRunning

		err := q.run(h, job)
		if err == nil {
			job.Status = StatusCompleted
			q.observe(job)
			q.log.Debug().Str("job_id", job.ID).Str("type", job.Type).Int("attempts", job.Attempts).Msg("job completed")
			return
		}

		job.LastError = err.Error()
		if !q.policy.ShouldRetry(job.Attempts) {
			job.Status = StatusFailed
			q.observe(job)
			q.log.Error().Err(err).Str("job_id", job.ID).Str("type", job.Type).Int("attempts", job.Attempts).Msg("job failed")
			return
		}

		job.Status = StatusRetrying
		q.observe(job)
		delay := q.policy.Delay(job.Attempts)
		q.log.Warn().Err(err).Str("job_id", job.ID).Dur("backoff", delay).Msg("job failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-q.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (q *Queue) run(h Handler, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Handle(q.ctx, job)
}

func (q *Queue) observe(job *Job) {
	if q.observer != nil {
		q.observer.ObserveJob(job.Type, string(job.Status))
	}
}
