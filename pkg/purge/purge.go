// Package purge deletes blobs in the background. Callers hand over locators and
// move on; failed deletes are persisted and retried by Reconcile.
package purge

import (
	"context"
	"errors"
	"sync"
	"time"

	"bucketfs/pkg/blob"
	"bucketfs/pkg/log"
	"bucketfs/pkg/metadata"
	"bucketfs/pkg/metrics"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 1024
	deleteTimeout    = 30 * time.Second
)

// Recorder persists purges that could not be completed.
type Recorder interface {
	AddPendingPurge(ctx context.Context, purge *metadata.PendingPurge) error
	ListPendingPurges(ctx context.Context, limit int) ([]metadata.PendingPurge, error)
	DeletePendingPurge(ctx context.Context, id int64) error
	MarkPurgeAttempt(ctx context.Context, id int64, lastErr string) error
}

// Job is one blob to delete.
type Job struct {
	BucketID int64
	Locator  blob.Locator
}

// Options size the worker pool.
type Options struct {
	Workers   int
	QueueSize int
	Metrics   *metrics.Metrics
}

// Queue runs blob deletes on a bounded pool of workers.
type Queue struct {
	blobs    blob.Store
	recorder Recorder
	metrics  *metrics.Metrics

	jobs    chan Job
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	baseCtx context.Context
	cancel  context.CancelFunc
}

// ReconcileResult summarizes one Reconcile pass.
type ReconcileResult struct {
	Attempted int `json:"attempted"`
	Purged    int `json:"purged"`
	Failed    int `json:"failed"`
}

// New starts the workers. Close must be called to stop them.
func New(blobs blob.Store, recorder Recorder, opts Options) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		blobs:    blobs,
		recorder: recorder,
		metrics:  opts.Metrics,
		jobs:     make(chan Job, opts.QueueSize),
		baseCtx:  ctx,
		cancel:   cancel,
	}

	for range opts.Workers {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue hands jobs to the workers without blocking. When the queue is full or
// closed the job is recorded for reconciliation instead.
func (q *Queue) Enqueue(jobs ...Job) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, job := range jobs {
		if job.Locator == "" {
			continue
		}
		if q.metrics != nil {
			q.metrics.PurgesQueued.Inc()
		}
		if q.closed {
			q.record(job, errors.New("purge queue closed"))
			continue
		}
		select {
		case q.jobs <- job:
		default:
			q.record(job, errors.New("purge queue full"))
		}
	}
}

// Close stops accepting jobs and waits for queued ones to finish or ctx to expire.
// Jobs still queued when ctx expires are recorded for reconciliation.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for job := range q.jobs {
		if q.baseCtx.Err() != nil {
			q.record(job, q.baseCtx.Err())
			continue
		}
		if err := q.delete(q.baseCtx, job.Locator); err != nil {
			log.Warn().Err(err).Int64("bucket_id", job.BucketID).Str("locator", string(job.Locator)).Msg("Blob purge failed")
			q.record(job, err)
		}
	}
}

// delete treats an already missing blob as success.
func (q *Queue) delete(ctx context.Context, loc blob.Locator) error {
	ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()

	err := q.blobs.Delete(ctx, loc)
	if err == nil || errors.Is(err, blob.ErrNotFound) {
		if q.metrics != nil {
			q.metrics.PurgesCompleted.Inc()
		}
		return nil
	}
	return err
}

func (q *Queue) record(job Job, cause error) {
	if q.metrics != nil {
		q.metrics.PurgesFailed.Inc()
	}

	purge := &metadata.PendingPurge{
		BucketID:  job.BucketID,
		Locator:   string(job.Locator),
		LastError: cause.Error(),
		CreatedAt: time.Now().UTC(),
	}
	if err := q.recorder.AddPendingPurge(context.Background(), purge); err != nil {
		log.Error().Err(err).Str("locator", purge.Locator).Msg("Failed to record pending purge")
	}
}

// Reconcile retries up to limit recorded purges (all when limit <= 0).
func (q *Queue) Reconcile(ctx context.Context, limit int) (*ReconcileResult, error) {
	pending, err := q.recorder.ListPendingPurges(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	for _, purge := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Attempted++

		if err := q.delete(ctx, blob.Locator(purge.Locator)); err != nil {
			result.Failed++
			log.Warn().Err(err).Str("locator", purge.Locator).Int("attempts", purge.Attempts+1).Msg("Blob purge retry failed")
			if markErr := q.recorder.MarkPurgeAttempt(ctx, purge.ID, err.Error()); markErr != nil {
				return result, markErr
			}
			continue
		}

		if err := q.recorder.DeletePendingPurge(ctx, purge.ID); err != nil {
			return result, err
		}
		result.Purged++
	}

	log.Info().Int("attempted", result.Attempted).Int("purged", result.Purged).Int("failed", result.Failed).Msg("Purge reconciliation finished")
	return result, nil
}
