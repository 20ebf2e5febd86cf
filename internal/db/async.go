package db

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AsyncWriter runs persistence work off the gameplay path on a bounded
// worker pool. Failures are logged, never propagated: in-memory state is
// the source of truth between saves. When the queue is full the job is
// dropped; a later write for the same entity supersedes it.
type AsyncWriter struct {
	jobs    chan asyncJob
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type asyncJob struct {
	op string
	fn func(ctx context.Context) error
}

// NewAsyncWriter starts workers draining a queue of queueSize jobs.
// Each job gets its own timeout context.
func NewAsyncWriter(workers, queueSize int, timeout time.Duration) *AsyncWriter {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	w := &AsyncWriter{
		jobs:    make(chan asyncJob, queueSize),
		timeout: timeout,
	}
	w.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go w.worker()
	}
	return w
}

func (w *AsyncWriter) worker() {
	defer w.wg.Done()
	for job := range w.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		if err := job.fn(ctx); err != nil {
			slog.Error("async write failed", "op", job.op, "err", err)
		}
		cancel()
	}
}

// Submit schedules fn on the pool. Never blocks: when the queue is full
// or the writer is closed, the job is dropped with a warning.
func (w *AsyncWriter) Submit(op string, fn func(ctx context.Context) error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		slog.Warn("async writer closed, dropping write", "op", op)
		return
	}
	select {
	case w.jobs <- asyncJob{op: op, fn: fn}:
	default:
		slog.Warn("async write queue full, dropping write", "op", op)
	}
}

// Close stops accepting jobs and drains the queue before returning, so a
// clean shutdown loses nothing that was already scheduled.
func (w *AsyncWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()

	w.wg.Wait()
}
