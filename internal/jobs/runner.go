package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rt0111/onayformukontrol/internal/logging"
	"github.com/rt0111/onayformukontrol/internal/metrics"
	"github.com/rt0111/onayformukontrol/internal/models"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by Submit when no worker slot is available
var ErrQueueFull = errors.New("job queue is full")

// ErrStopped is returned by Submit after Stop
var ErrStopped = errors.New("job runner stopped")

// AnalyzeFunc analyzes one uploaded document
type AnalyzeFunc func(ctx context.Context, name string, data []byte) (*models.AnalysisResult, error)

type task struct {
	job  *Job
	data []byte
}

// Runner executes submitted jobs on a fixed pool of workers
type Runner struct {
	store   Store
	analyze AnalyzeFunc
	workers int
	queue   chan task
	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewRunner creates a runner; call Start before Submit
func NewRunner(store Store, analyze AnalyzeFunc, workers, queueSize int, logger *logging.Logger, m *metrics.Metrics) *Runner {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		store:   store,
		analyze: analyze,
		workers: workers,
		queue:   make(chan task, queueSize),
		logger:  logger.Named("jobs"),
		metrics: m,
		now:     time.Now,
	}
}

// Start launches the workers. They exit when the queue is closed by Stop.
func (r *Runner) Start(ctx context.Context) {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for t := range r.queue {
				r.run(ctx, t)
			}
		}()
	}
}

// Submit stores a queued job and hands it to a worker
func (r *Runner) Submit(ctx context.Context, name string, data []byte) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return nil, ErrStopped
	}

	job := New(name, r.now().UTC())
	if err := r.store.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to store job: %w", err)
	}

	queued := *job
	if r.metrics != nil {
		r.metrics.JobsInFlight.Inc()
	}

	select {
	case r.queue <- task{job: job, data: data}:
	default:
		if r.metrics != nil {
			r.metrics.JobsInFlight.Dec()
		}
		job.Status = StatusFailed
		job.Error = ErrQueueFull.Error()
		job.UpdatedAt = r.now().UTC()
		if err := r.store.Put(ctx, job); err != nil {
			r.logger.Warn(ctx, "Failed to record rejected job", zap.String("job_id", job.ID.String()), zap.Error(err))
		}
		return nil, ErrQueueFull
	}

	r.logger.Info(ctx, "Job queued", zap.String("job_id", queued.ID.String()), zap.String("name", name))

	return &queued, nil
}

// Stop rejects new jobs and waits for queued ones to finish
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.queue)
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, t task) {
	job := t.job
	ctx = logging.WithFields(ctx, zap.String("job_id", job.ID.String()))

	defer func() {
		if r.metrics != nil {
			r.metrics.JobsInFlight.Dec()
		}
	}()

	job.Status = StatusRunning
	job.UpdatedAt = r.now().UTC()
	if err := r.store.Put(ctx, job); err != nil {
		r.logger.Warn(ctx, "Failed to mark job running", zap.Error(err))
	}

	result, err := r.safeAnalyze(ctx, job.Name, t.data)
	job.UpdatedAt = r.now().UTC()
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		r.logger.Warn(ctx, "Job failed", zap.Error(err))
	} else {
		job.Status = StatusSucceeded
		job.Result = result
		r.logger.Info(ctx, "Job succeeded")
	}

	if err := r.store.Put(ctx, job); err != nil {
		r.logger.Error(ctx, "Failed to store job outcome", zap.Error(err))
	}
}

// safeAnalyze turns a panic in the pipeline into a job failure
func (r *Runner) safeAnalyze(ctx context.Context, name string, data []byte) (result *models.AnalysisResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("analysis panicked: %v", rec)
		}
	}()
	return r.analyze(ctx, name, data)
}
