// Package worker drains queue partitions and hands each frame to the
// session pipeline.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/kinetica/internal/adapters/mq/queue"
	"github.com/okian/kinetica/pkg/logger"
	"github.com/okian/kinetica/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Processor runs one frame through its session.
type Processor interface {
	Process(ctx context.Context, e queue.Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context, partition int) <-chan queue.Event
	Partitions() int
}

// Worker processes events from a single partition.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the partition closes.
	Run(ctx context.Context)
	// Shutdown waits for the worker to drain its partition.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for one partition.
type InMemoryWorker struct {
	queue     Queue
	partition int
	processor Processor
	name      string
	active    *atomic.Int64

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker bound to partition.
func NewInMemoryWorker(q Queue, partition int, p Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		partition: partition,
		processor: p,
		name:      "worker",
		active:    &atomic.Int64{},
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run drains the partition. It returns when the queue is closed and every
// buffered event has been processed, or when ctx is canceled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx, w.partition)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing frame", logger.Error(err))
			}
		}
	}
}

// Shutdown waits for Run to return.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) processEvent(ctx context.Context, event queue.Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.processor.Process(ctx, event); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "process_error")
		return fmt.Errorf("session %s frame %s: %w", event.SessionID, event.Frame.ID, err)
	}
	return nil
}

// Pool runs one worker per queue partition.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  atomic.Int64

	logger logger.Logger
}

// NewPool creates one worker for every partition of q.
func NewPool(q Queue, p Processor) *Pool {
	pool := &Pool{
		workers: make([]*InMemoryWorker, q.Partitions()),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range pool.workers {
		w := NewInMemoryWorker(q, i, p, WithName("worker-"+strconv.Itoa(i)))
		w.active = &pool.active
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(len(pool.workers))
	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for every worker to drain its
// partition, bounded by ctx and an internal ceiling.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	metrics.UpdateWorkerCount(0)
	return firstErr
}
