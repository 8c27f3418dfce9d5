package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

type recordingProcessor struct {
	mu      sync.Mutex
	seen    []uuid.UUID
	running atomic.Int32
	peak    atomic.Int32
	delay   time.Duration
}

func (p *recordingProcessor) ProcessDocument(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	n := p.running.Add(1)
	defer p.running.Add(-1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	p.mu.Lock()
	p.seen = append(p.seen, id)
	p.mu.Unlock()
	policyID := uuid.New()
	return &policyID, nil
}

func TestQueueProcessesAllJobs(t *testing.T) {
	proc := &recordingProcessor{delay: 5 * time.Millisecond}
	q := NewProcessorQueue(proc, slog.New(slog.DiscardHandler), WithWorkers(2), WithQueueSize(1))

	const jobs = 6
	for i := 0; i < jobs; i++ {
		if err := q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	q.Shutdown(context.Background())

	proc.mu.Lock()
	defer proc.mu.Unlock()
	if len(proc.seen) != jobs {
		t.Errorf("processed %d jobs, want %d", len(proc.seen), jobs)
	}
	if peak := proc.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency %d exceeds 2 workers", peak)
	}
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&recordingProcessor{}, slog.New(slog.DiscardHandler), WithWorkers(1))
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	if err := q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("err = %v, want ErrQueueClosed", err)
	}
}

func TestProcessTimeoutCancelsJob(t *testing.T) {
	proc := &recordingProcessor{delay: time.Hour}
	q := NewProcessorQueue(proc, slog.New(slog.DiscardHandler), WithWorkers(1), WithProcessTimeout(10*time.Millisecond))
	if err := q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)
	if ctx.Err() != nil {
		t.Fatalf("shutdown did not drain after job timeout")
	}
	proc.mu.Lock()
	defer proc.mu.Unlock()
	if len(proc.seen) != 0 {
		t.Errorf("timed-out job recorded as processed")
	}
}
