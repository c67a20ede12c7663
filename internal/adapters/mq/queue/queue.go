// Package queue routes frames to partitions keyed by session so that every
// frame of a session is consumed, in order, by a single worker.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/kinetica/internal/domain/model"
	"github.com/okian/kinetica/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
	defaultPartitions    = 1
)

// Event is a frame addressed to a session.
type Event struct {
	SessionID  string
	Frame      model.Frame
	EnqueuedAt time.Time
}

// Queue provides non-blocking enqueue and per-partition channel dequeue.
type Queue interface {
	// Enqueue adds an event to its session's partition.
	// Returns false if the partition is full or the queue is closed.
	Enqueue(ctx context.Context, e Event) bool

	// Dequeue returns the channel for one partition. The channel is closed
	// when the queue is closed and the partition drained.
	Dequeue(ctx context.Context, partition int) <-chan Event

	// Partitions returns the number of partitions.
	Partitions() int

	// Len returns the current number of queued events across partitions.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue with one buffered channel per partition.
type InMemoryQueue struct {
	parts      []chan Event
	capacity   int
	partitions int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		partitions: defaultPartitions,
	}
	for _, opt := range opts {
		opt(q)
	}

	per := (q.capacity + q.partitions - 1) / q.partitions
	q.parts = make([]chan Event, q.partitions)
	for i := range q.parts {
		q.parts[i] = make(chan Event, per)
	}

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// PartitionFor returns the partition a session's frames are routed to.
func (q *InMemoryQueue) PartitionFor(sessionID string) int {
	return int(xxhash.Sum64String(sessionID) % uint64(q.partitions))
}

// Enqueue adds an event to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) bool { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}
	if e.EnqueuedAt.IsZero() {
		e.EnqueuedAt = time.Now()
	}

	select {
	case q.parts[q.PartitionFor(e.SessionID)] <- e:
		metrics.RecordQueueEnqueue()
		q.updateSizeMetrics()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that receives the partition's events in order.
func (q *InMemoryQueue) Dequeue(ctx context.Context, partition int) <-chan Event {
	out := make(chan Event)
	if partition < 0 || partition >= len(q.parts) {
		close(out)
		return out
	}
	src := q.parts[partition]
	go func() {
		defer close(out)
		for event := range src {
			select {
			case out <- event:
				metrics.RecordQueueDequeue()
				q.updateSizeMetrics()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Partitions returns the number of partitions.
func (q *InMemoryQueue) Partitions() int {
	return q.partitions
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.updateSizeMetrics()
}

func (q *InMemoryQueue) updateSizeMetrics() int {
	size := 0
	for _, p := range q.parts {
		size += len(p)
	}
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue. Buffered events remain readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	for _, p := range q.parts {
		close(p)
	}
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
