package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor drains whatever work is currently queued. Implementations
// must be safe to call repeatedly; an empty queue is not an error.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls a JobProcessor on a fixed interval until stopped. Processing
// errors are logged and the loop keeps going; the queue itself tracks
// per-job retry state.
type Worker struct {
	proc     JobProcessor
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewWorker creates a polling worker around the given processor.
func NewWorker(proc JobProcessor, interval time.Duration) *Worker {
	return &Worker{
		proc:     proc,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the polling loop until the context is cancelled or Stop is
// called. The queue is drained once immediately so a fresh deploy does not
// wait a full interval before picking up backlog.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	log.Printf("ingestion worker polling every %v", w.interval)
	w.drain(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("ingestion worker stopping: context cancelled")
			return
		case <-w.stop:
			log.Println("ingestion worker stopping")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	if err := w.proc.ProcessJobs(ctx); err != nil {
		log.Printf("ingestion worker: %v", err)
	}
}

// Stop signals the loop to exit and blocks until it has.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}
