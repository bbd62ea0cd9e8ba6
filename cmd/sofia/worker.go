package main

import (
	"context"
	"sync"
	"time"

	"github.com/semiekhin/sofia-bot/dialog"
)

type chatJob struct {
	Text       string
	ClientName string
	Version    uint64
}

// chatWorker serializes replies for one chat. The version increments on
// every newly enqueued message and on /reset; a job whose version lags
// behind is stale and must never produce a delivery.
type chatWorker struct {
	mu      sync.Mutex
	jobs    chan chatJob
	version uint64
	cancel  context.CancelFunc
}

func newChatWorker() *chatWorker {
	return &chatWorker{jobs: make(chan chatJob, 16)}
}

// supersede invalidates every queued and in-flight job, cancelling a
// running generation, and returns the version the next job must carry.
func (w *chatWorker) supersede() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.version++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	return w.version
}

// enqueue reports false when the job buffer is full.
func (w *chatWorker) enqueue(job chatJob) bool {
	select {
	case w.jobs <- job:
		return true
	default:
		return false
	}
}

// run consumes jobs until the channel closes. generate runs under a bounded
// context that supersede cancels; deliver runs only when the job is still
// current afterwards, so the newest message always wins. dropped observes
// jobs discarded at pickup or after generation.
func (w *chatWorker) run(
	sem chan struct{},
	timeout time.Duration,
	generate func(ctx context.Context, job chatJob) (string, dialog.Trace),
	deliver func(job chatJob, reply string, trace dialog.Trace),
	dropped func(job chatJob),
) {
	for job := range w.jobs {
		sem <- struct{}{}
		func() {
			defer func() { <-sem }()

			w.mu.Lock()
			if job.Version != w.version {
				w.mu.Unlock()
				if dropped != nil {
					dropped(job)
				}
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			w.cancel = cancel
			w.mu.Unlock()
			defer cancel()

			reply, trace := generate(ctx, job)

			w.mu.Lock()
			stale := job.Version != w.version
			w.mu.Unlock()
			if stale {
				if dropped != nil {
					dropped(job)
				}
				return
			}
			deliver(job, reply, trace)
		}()
	}
}
