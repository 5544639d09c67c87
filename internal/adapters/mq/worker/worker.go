// Package worker runs interaction jobs one at a time off a queue.
//
// A figure has a single event loop, so jobs never overlap: each one owns the
// canvas until its Run returns.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ginput/pkg/logger"
	"github.com/okian/ginput/pkg/metrics"
)

const defaultMaxResults = 256

// ErrStopped is returned by Submit once the worker is shutting down.
var ErrStopped = errors.New("worker stopped")

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is a unit of interaction run against the canvas.
type Job struct {
	ID   string
	Mode string
	Run  func(ctx context.Context) (any, error)
}

// Result is the observable state of a submitted job.
type Result struct {
	ID       string    `json:"id"`
	Mode     string    `json:"mode"`
	Status   Status    `json:"status"`
	Value    any       `json:"value,omitempty"`
	Err      string    `json:"error,omitempty"`
	Queued   time.Time `json:"queued"`
	Started  time.Time `json:"started,omitzero"`
	Finished time.Time `json:"finished,omitzero"`
}

// Queue defines how the worker receives jobs.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) <-chan Job
}

// Worker runs jobs serially.
type Worker interface {
	// Submit queues a job and returns its id.
	Submit(ctx context.Context, mode string, run func(ctx context.Context) (any, error)) (string, error)

	// Run starts the worker loop until ctx is canceled or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown stops the loop after the running job returns.
	Shutdown(ctx context.Context) error

	// Result looks up a job by id.
	Result(id string) (Result, bool)
}

// InMemoryWorker implements Worker and keeps results in memory.
type InMemoryWorker struct {
	queue      Queue
	name       string
	maxResults int
	onFinish   func(Result)

	mu       sync.RWMutex
	results  map[string]*Result
	finished []string
	stopped  bool

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      queue,
		name:       "worker",
		maxResults: defaultMaxResults,
		results:    make(map[string]*Result),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Submit queues a job. The returned id can be passed to Result.
func (w *InMemoryWorker) Submit(ctx context.Context, mode string, run func(ctx context.Context) (any, error)) (string, error) {
	if run == nil {
		return "", fmt.Errorf("submit %s: nil job", mode)
	}

	job := Job{ID: uuid.NewString(), Mode: mode, Run: run}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return "", ErrStopped
	}
	w.results[job.ID] = &Result{ID: job.ID, Mode: mode, Status: StatusQueued, Queued: time.Now()}
	w.mu.Unlock()

	if err := w.queue.Enqueue(ctx, job); err != nil {
		w.mu.Lock()
		delete(w.results, job.ID)
		w.mu.Unlock()
		return "", fmt.Errorf("submit %s: %w", mode, err)
	}

	w.logger.Debug(ctx, "job queued", logger.String("job_id", job.ID), logger.String("mode", mode))
	return job.ID, nil
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		w.mu.Unlock()
		close(w.shutdown)
	})

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Result returns a copy of the job's current state.
func (w *InMemoryWorker) Result(id string) (Result, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	r, ok := w.results[id]
	if !ok {
		return Result{}, false
	}
	return *r, true
}

// Counts reports how many known jobs are in each status.
func (w *InMemoryWorker) Counts() map[Status]int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	counts := make(map[Status]int, 4)
	for _, r := range w.results {
		counts[r.Status]++
	}
	return counts
}

// process runs a single job and records its outcome.
func (w *InMemoryWorker) process(ctx context.Context, job Job) {
	start := time.Now()
	w.update(job.ID, func(r *Result) {
		r.Status = StatusRunning
		r.Started = start
	})

	value, err := w.call(ctx, job)

	status := StatusDone
	if err != nil {
		status = StatusFailed
		w.logger.Error(ctx, "job failed",
			logger.String("job_id", job.ID),
			logger.String("mode", job.Mode),
			logger.Error(err),
		)
	} else {
		w.logger.Info(ctx, "job finished",
			logger.String("job_id", job.ID),
			logger.String("mode", job.Mode),
			logger.Duration("took", time.Since(start)),
		)
	}
	metrics.RecordJob(job.Mode, string(status), time.Since(start))

	var final Result
	w.update(job.ID, func(r *Result) {
		r.Status = status
		r.Value = value
		if err != nil {
			r.Err = err.Error()
		}
		r.Finished = time.Now()
		final = *r
	})
	w.retire(job.ID)

	if w.onFinish != nil {
		w.onFinish(final)
	}
}

// call runs the job, turning a panic into an error.
func (w *InMemoryWorker) call(ctx context.Context, job Job) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", job.ID, p)
		}
	}()
	return job.Run(ctx)
}

func (w *InMemoryWorker) update(id string, fn func(*Result)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r, ok := w.results[id]; ok {
		fn(r)
	}
}

// retire forgets the oldest finished results beyond maxResults.
func (w *InMemoryWorker) retire(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.finished = append(w.finished, id)
	for len(w.finished) > w.maxResults {
		delete(w.results, w.finished[0])
		w.finished = w.finished[1:]
	}
}
