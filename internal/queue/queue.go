// Package queue holds the in-process FIFO of upload jobs handed from
// the inbound event loop to the upload worker pool.
package queue

import (
	"context"
	"sync"

	"github.com/iconidentify/vidbridge/internal/domain"
)

// JobQueue manages pending upload jobs.
type JobQueue interface {
	// Enqueue adds a job to the queue.
	Enqueue(ctx context.Context, job *domain.Job) error

	// Dequeue retrieves the next queued job (FIFO). Returns
	// domain.ErrNoJobs when nothing is pending.
	Dequeue(ctx context.Context) (*domain.Job, error)

	// Update modifies job state.
	Update(ctx context.Context, job *domain.Job) error

	// Get retrieves a job by ID.
	Get(ctx context.Context, id domain.JobID) (*domain.Job, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*Stats, error)
}

// Stats contains job queue statistics.
type Stats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// InMemoryQueue implements JobQueue using in-memory storage. Jobs are
// copied at the boundary: callers mutate their own copy and publish it
// back via Update, so Stats and Get never observe a half-written job.
type InMemoryQueue struct {
	mu      sync.RWMutex
	jobs    map[domain.JobID]*domain.Job
	pending []domain.JobID // FIFO of queued job IDs
}

// NewInMemoryQueue creates a new in-memory job queue.
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		jobs:    make(map[domain.JobID]*domain.Job),
		pending: make([]domain.JobID, 0),
	}
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, job *domain.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	j := *job
	q.jobs[job.ID] = &j
	q.pending = append(q.pending, job.ID)
	return nil
}

// Dequeue retrieves the next queued job (FIFO).
func (q *InMemoryQueue) Dequeue(ctx context.Context) (*domain.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, id := range q.pending {
		job, ok := q.jobs[id]
		if !ok {
			continue
		}
		if job.Status == domain.JobStatusQueued {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			j := *job
			return &j, nil
		}
	}
	return nil, domain.ErrNoJobs
}

// Update modifies job state.
func (q *InMemoryQueue) Update(ctx context.Context, job *domain.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}
	j := *job
	q.jobs[job.ID] = &j
	return nil
}

// Get retrieves a job by ID.
func (q *InMemoryQueue) Get(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	j := *job
	return &j, nil
}

// Stats returns queue statistics.
func (q *InMemoryQueue) Stats(ctx context.Context) (*Stats, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := &Stats{}
	for _, job := range q.jobs {
		switch job.Status {
		case domain.JobStatusQueued:
			stats.Queued++
		case domain.JobStatusProcessing:
			stats.Processing++
		case domain.JobStatusCompleted:
			stats.Completed++
		case domain.JobStatusSkipped:
			stats.Skipped++
		case domain.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}
