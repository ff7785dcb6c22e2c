package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cobalthq/respimg/core"
	apperrors "github.com/cobalthq/respimg/errors"
)

// Pool runs manifest generation jobs asynchronously so the host can hand an
// upload off without blocking its own request handling. The queue applies
// backpressure instead of growing without bound; each job's internal
// fan-out stays bounded by the orchestrator's worker limit.
type Pool struct {
	orch       *Orchestrator
	jobQueue   chan core.Job
	workers    int
	jobTimeout time.Duration

	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.Mutex
	stopped bool

	processedCount atomic.Int64
	errorCount     atomic.Int64
}

// NewPool creates a Pool over the orchestrator. Call Start before
// submitting jobs and Stop when done.
func NewPool(orch *Orchestrator, workers, queueSize int, jobTimeout time.Duration) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pool{
		orch:       orch,
		jobQueue:   make(chan core.Job, queueSize),
		workers:    workers,
		jobTimeout: jobTimeout,
	}
}

// Start launches the worker goroutines. Idempotent.
func (p *Pool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Stop closes the queue and waits for the workers to finish every job
// already accepted, so no submitted job is left without a result. Idempotent.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobQueue)
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit enqueues an async job. Returns ErrQueueFull when the queue is at
// capacity rather than blocking the caller, and ErrPoolStopped after Stop.
func (p *Pool) Submit(job core.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return apperrors.New(apperrors.CategoryPipeline, "submit", apperrors.ErrPoolStopped)
	}
	select {
	case p.jobQueue <- job:
		return nil
	default:
		return apperrors.New(apperrors.CategoryPipeline, "submit", apperrors.ErrQueueFull)
	}
}

// Stats returns the running totals of completed and failed jobs.
func (p *Pool) Stats() (processed, failed int64) {
	return p.processedCount.Load(), p.errorCount.Load()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobQueue {
		p.processJob(job)
	}
}

func (p *Pool) processJob(job core.Job) {
	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	m, err := p.orch.GenerateManifest(ctx, job.Asset, job.Category, job.Options)
	if err != nil {
		p.errorCount.Add(1)
	} else {
		p.processedCount.Add(1)
	}
	if job.ResultCh != nil {
		job.ResultCh <- core.JobResult{JobID: job.ID, Manifest: m, Err: err}
	}
}
