// Package inmemory is a channel-backed job queue for single-process use.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/jobs"
	"github.com/dvloznov/finance-ingest/internal/logger"
	"github.com/google/uuid"
)

// ErrQueueClosed is returned when publishing to a stopped queue.
var ErrQueueClosed = errors.New("queue is closed")

// Options configures a Queue.
type Options struct {
	// BufferSize is how many jobs can wait before publishing blocks.
	BufferSize int
	// Workers is the number of jobs processed concurrently.
	Workers int
	// MaxRetries applies to jobs published without their own limit.
	MaxRetries int
	// Backoff is multiplied by the retry count before re-enqueueing.
	Backoff time.Duration
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{BufferSize: 64, Workers: 4, MaxRetries: 3, Backoff: time.Second}
}

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
type Queue struct {
	opts      Options
	jobChan   chan *jobs.ValidateDocumentJob
	closeChan chan struct{}
	wg        sync.WaitGroup // workers
	pending   sync.WaitGroup // published jobs not yet completed or failed
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool
}

// NewQueue creates a new in-memory job queue.
func NewQueue(opts Options, store jobs.JobStore) *Queue {
	if opts.BufferSize < 0 {
		opts.BufferSize = 0
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Queue{
		opts:      opts,
		jobChan:   make(chan *jobs.ValidateDocumentJob, opts.BufferSize),
		closeChan: make(chan struct{}),
		store:     store,
	}
}

func (q *Queue) isClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// PublishValidateDocument enqueues a validation job for asynchronous
// processing.
func (q *Queue) PublishValidateDocument(ctx context.Context, job *jobs.ValidateDocumentJob) error {
	if q.isClosed() {
		return ErrQueueClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.opts.MaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	q.pending.Add(1)
	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		q.pending.Done()
		return ctx.Err()
	case <-q.closeChan:
		q.pending.Done()
		return ErrQueueClosed
	}
}

// Start starts opts.Workers goroutines that process jobs with handler.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	if q.isClosed() {
		return ErrQueueClosed
	}
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job. Only retryable errors are re-enqueued.
func (q *Queue) processJob(ctx context.Context, job *jobs.ValidateDocumentJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Str("uri", job.URI).Logger()

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	q.save(ctx, job)

	result, err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err == nil {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		job.Result = result
		q.save(ctx, job)
		q.pending.Done()
		return
	}

	job.Error = err.Error()
	if !domain.IsRetryable(err) || job.RetryCount >= job.MaxRetries {
		log.Error().Err(err).Int("retry_count", job.RetryCount).Msg("job failed")
		job.Status = jobs.JobStatusFailed
		q.save(ctx, job)
		q.pending.Done()
		return
	}

	job.RetryCount++
	job.Status = jobs.JobStatusRetrying
	q.save(ctx, job)
	log.Warn().Err(err).Int("retry_count", job.RetryCount).Msg("job failed, retrying")

	backoff := time.Duration(job.RetryCount) * q.opts.Backoff
	time.AfterFunc(backoff, func() {
		job.Status = jobs.JobStatusPending
		job.StartedAt = nil
		job.CompletedAt = nil
		q.requeue(ctx, job)
	})
}

// requeue puts a retried job back on the channel. A job that cannot be
// re-enqueued is marked failed so Wait does not block on it.
func (q *Queue) requeue(ctx context.Context, job *jobs.ValidateDocumentJob) {
	if !q.isClosed() {
		q.save(ctx, job)
		select {
		case q.jobChan <- job:
			return
		case <-ctx.Done():
		case <-q.closeChan:
		}
	}
	job.Status = jobs.JobStatusFailed
	q.save(context.WithoutCancel(ctx), job)
	q.pending.Done()
}

func (q *Queue) save(ctx context.Context, job *jobs.ValidateDocumentJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("job_id", job.JobID).Msg("failed to save job state")
	}
}

// Wait blocks until every published job has completed or failed.
func (q *Queue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
