// Package worker runs the bounded pool that drains the upload queue.
// The pool caps concurrent transfers so uploads never starve the
// inbound event loop of bandwidth.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iconidentify/vidbridge/internal/domain"
	"github.com/iconidentify/vidbridge/internal/queue"
)

// ErrShutdownTimeout is returned when workers don't stop within timeout.
var ErrShutdownTimeout = errors.New("worker pool shutdown timed out")

// Processor executes one upload job.
type Processor interface {
	ProcessJob(ctx context.Context, job *domain.Job)
}

// Pool manages a fixed set of workers draining the job queue.
type Pool struct {
	workers      int
	pollInterval time.Duration
	jobs         queue.JobQueue
	processor    Processor
	logger       *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds worker pool configuration.
type Config struct {
	Workers      int
	PollInterval time.Duration
}

// NewPool creates a new worker pool.
func NewPool(cfg Config, jobs queue.JobQueue, processor Processor, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:      cfg.Workers,
		pollInterval: cfg.PollInterval,
		jobs:         jobs,
		processor:    processor,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches all workers.
func (p *Pool) Start() {
	p.logger.Info("starting worker pool", "workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop(timeout time.Duration) error {
	p.logger.Info("stopping worker pool")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker_id", id)
	logger.Info("worker started")

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			logger.Info("worker stopping")
			return
		case <-ticker.C:
			p.processNext(logger)
		}
	}
}

func (p *Pool) processNext(logger *slog.Logger) {
	// Drain everything pending before going back to sleep.
	for {
		job, err := p.jobs.Dequeue(p.ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNoJobs) {
				logger.Error("failed to dequeue job", "error", err)
			}
			return
		}

		logger.Info("processing job", "job_id", job.ID, "item", job.Item.Key())

		job.MarkProcessing()
		if err := p.jobs.Update(p.ctx, job); err != nil {
			logger.Error("failed to update job status", "error", err)
		}

		p.processor.ProcessJob(p.ctx, job)

		if p.ctx.Err() != nil {
			return
		}
	}
}
