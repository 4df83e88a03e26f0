package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/iconidentify/vidbridge/internal/domain"
	"github.com/iconidentify/vidbridge/internal/queue"
)

type recordingProcessor struct {
	mu   sync.Mutex
	seen []domain.JobID
}

func (p *recordingProcessor) ProcessJob(ctx context.Context, job *domain.Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, job.ID)
	job.MarkCompleted()
}

func (p *recordingProcessor) processed() []domain.JobID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.JobID, len(p.seen))
	copy(out, p.seen)
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPool_ProcessesQueuedJobs(t *testing.T) {
	q := queue.NewInMemoryQueue()
	proc := &recordingProcessor{}
	ctx := context.Background()

	for _, id := range []domain.JobID{"job_a", "job_b", "job_c"} {
		job := domain.NewJob(id, domain.Item{MessageID: 1, ChatID: 1}, "/tmp/x.mp4")
		if err := q.Enqueue(ctx, job); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	pool := NewPool(Config{Workers: 2, PollInterval: 5 * time.Millisecond}, q, proc, discardLogger())
	pool.Start()

	deadline := time.After(2 * time.Second)
	for len(proc.processed()) < 3 {
		select {
		case <-deadline:
			t.Fatalf("timed out; processed %d of 3 jobs", len(proc.processed()))
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := pool.Stop(time.Second); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	seen := make(map[domain.JobID]bool)
	for _, id := range proc.processed() {
		if seen[id] {
			t.Errorf("job %s processed more than once", id)
		}
		seen[id] = true
	}
}

func TestPool_StopWithoutJobs(t *testing.T) {
	q := queue.NewInMemoryQueue()
	pool := NewPool(Config{Workers: 1, PollInterval: 5 * time.Millisecond}, q, &recordingProcessor{}, discardLogger())
	pool.Start()

	if err := pool.Stop(time.Second); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

type blockingProcessor struct {
	release chan struct{}
}

func (p *blockingProcessor) ProcessJob(ctx context.Context, job *domain.Job) {
	<-p.release
}

func TestPool_StopTimeout(t *testing.T) {
	q := queue.NewInMemoryQueue()
	proc := &blockingProcessor{release: make(chan struct{})}
	ctx := context.Background()

	job := domain.NewJob("job_stuck", domain.Item{MessageID: 1, ChatID: 1}, "/tmp/x.mp4")
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	pool := NewPool(Config{Workers: 1, PollInterval: time.Millisecond}, q, proc, discardLogger())
	pool.Start()

	// Wait for the worker to pick up the job.
	deadline := time.After(2 * time.Second)
	for {
		got, err := q.Get(ctx, "job_stuck")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Status == domain.JobStatusProcessing {
			break
		}
		select {
		case <-deadline:
			t.Fatal("worker never picked up the job")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := pool.Stop(50 * time.Millisecond); err != ErrShutdownTimeout {
		t.Errorf("expected ErrShutdownTimeout, got %v", err)
	}
	close(proc.release)
}

func TestNewPool_Defaults(t *testing.T) {
	pool := NewPool(Config{}, queue.NewInMemoryQueue(), &recordingProcessor{}, discardLogger())
	if pool.workers != 2 {
		t.Errorf("default workers = %d, want 2", pool.workers)
	}
	if pool.pollInterval != time.Second {
		t.Errorf("default poll interval = %v, want 1s", pool.pollInterval)
	}
}
