package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the total capacity shared by all partitions.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithPartitions sets the number of independent partitions. Each partition
// is drained by exactly one consumer.
func WithPartitions(n int) Option {
	return func(q *InMemoryQueue) {
		if n > 0 {
			q.partitions = n
		}
	}
}
