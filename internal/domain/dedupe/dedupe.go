// Package dedupe tracks which frames have already been accepted so that
// retried submissions are processed at most once.
package dedupe

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxSize is the number of frame keys remembered by default.
const DefaultMaxSize = 50000

// Deduper records seen frame keys to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so that the frame can be resubmitted, for example
	// after queue backpressure.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// Key scopes a frame id to its session.
func Key(sessionID, frameID string) string {
	return sessionID + "/" + frameID
}

// inMemoryDeduper evicts the least recently seen key once maxSize is reached.
// A non-positive maxSize keeps every key.
type inMemoryDeduper struct {
	maxSize int

	cache *lru.Cache[string, struct{}]

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxSize > 0 {
		// lru.New only fails for non-positive sizes.
		d.cache, _ = lru.New[string, struct{}](d.maxSize)
	} else {
		d.seen = make(map[string]struct{})
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	if d.cache != nil {
		found, _ := d.cache.ContainsOrAdd(id, struct{}{})
		return found
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	if d.cache != nil {
		d.cache.Remove(id)
		return
	}
	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
}

func (d *inMemoryDeduper) Size() int64 {
	if d.cache != nil {
		return int64(d.cache.Len())
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
