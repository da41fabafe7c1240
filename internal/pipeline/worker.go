package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docscrub/internal/document"
)

var (
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("job queue is full")
	// ErrQueueStopped is returned by Submit after Stop.
	ErrQueueStopped = errors.New("job queue is stopped")
)

// QueueConfig sizes the asynchronous job queue.
type QueueConfig struct {
	Workers      int
	MaxQueueSize int
	JobTTL       time.Duration
	// CleanupInterval defaults to five minutes.
	CleanupInterval time.Duration
}

// Queue runs batches in the background on a fixed pool of workers.
type Queue struct {
	jobs  *JobStore
	queue chan *Job
	orch  *Orchestrator
	cfg   QueueConfig
	log   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards stopped and the close of queue against Submit's send.
	mu      sync.Mutex
	stopped bool
}

func NewQueue(cfg QueueConfig, orch *Orchestrator, log *slog.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 1
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		orch:  orch,
		cfg:   cfg,
		log:   log.With("component", "queue"),
	}
}

// Start launches worker goroutines and the job store cleanup loop.
func (q *Queue) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for range q.cfg.Workers {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-q.queue:
					if !ok {
						return
					}
					q.process(workerCtx, job)
				}
			}
		}()
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(q.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				q.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels the workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	if q.cancel != nil {
		q.cancel()
	}
	close(q.queue)
	q.mu.Unlock()

	q.wg.Wait()
}

// Submit queues a batch and returns its job.
func (q *Queue) Submit(docs []document.Document) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return nil, ErrQueueStopped
	}

	job := NewJob(uuid.NewString(), docs)
	q.jobs.Put(job)
	select {
	case q.queue <- job:
		q.log.Info("job queued", "job_id", job.ID, "documents", len(docs))
		return job, nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return job, fmt.Errorf("%w (%d)", ErrQueueFull, q.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID, or nil.
func (q *Queue) GetJob(id string) *Job {
	return q.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (q *Queue) QueueDepth() int {
	return len(q.queue)
}

func (q *Queue) process(ctx context.Context, job *Job) {
	log := q.log.With("job_id", job.ID)
	job.SetStatus(StatusProcessing, "processing")
	start := time.Now()

	outcomes := q.orch.ProcessBatch(ctx, job.takeDocuments())
	job.Complete(outcomes)
	log.Info("job finished", "status", job.Snapshot().Status, "summary", Describe(outcomes),
		"duration_ms", time.Since(start).Milliseconds())
}
