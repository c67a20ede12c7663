package repository

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/okian/kinetica/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then sessionID ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the
// leaderboard from best to worst.

// scoreScale fixes scores to 1e-9 so that float noise never splits a tie.
const scoreScale = 1_000_000_000

type scoreFP int64

// toFixedPoint maps a 0–100 rep score to fixed point. NaN and infinities
// are rejected before they reach the tree.
func toFixedPoint(x float64) scoreFP {
	return scoreFP(math.Round(x * scoreScale))
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

// record stores the fixed-point score plus row metadata for a session.
type record struct {
	score    scoreFP
	exercise string
	reps     int
}

// treap node
type node struct {
	id    string
	score scoreFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) should appear before (bScore, bID).
func less(aScore scoreFP, aID string, bScore scoreFP, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score scoreFP, prio uint64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: prio, size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score scoreFP) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// walk visits nodes in rank order until visit returns false.
func walk(n *node, visit func(*node) bool) bool {
	if n == nil {
		return true
	}
	if !walk(n.left, visit) {
		return false
	}
	if !visit(n) {
		return false
	}
	return walk(n.right, visit)
}

// TreapStore is an order-statistic treap keyed by (score desc, session id asc).
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[string]record
	rng  *rand.Rand
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID: make(map[string]record),
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateLeaderboardSize(0)
	return s
}

// Upsert implements Store.Upsert with O(log n) expected time.
func (s *TreapStore) Upsert(_ context.Context, e Entry) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if strings.TrimSpace(e.SessionID) == "" || math.IsNaN(e.Score) || math.IsInf(e.Score, 0) {
		metrics.RecordErrorByComponent("repository", "invalid_entry")
		return false, ErrInvalidEntry
	}

	ns := toFixedPoint(e.Score)
	rec := record{score: ns, exercise: e.Exercise, reps: e.Reps}

	s.mu.Lock()
	old, ok := s.byID[e.SessionID]
	if ok && old == rec {
		s.mu.Unlock()
		return false, nil
	}
	if ok && old.score != ns {
		s.root = deleteNode(s.root, e.SessionID, old.score)
	}
	if !ok || old.score != ns {
		s.root = insert(s.root, e.SessionID, ns, s.rng.Uint64())
	}
	s.byID[e.SessionID] = rec
	size := len(s.byID)
	s.mu.Unlock()

	metrics.RecordLeaderboardUpdate()
	metrics.UpdateLeaderboardSize(size)
	return true, nil
}

// Remove implements Store.Remove.
func (s *TreapStore) Remove(_ context.Context, sessionID string) bool {
	s.mu.Lock()
	old, ok := s.byID[sessionID]
	if ok {
		s.root = deleteNode(s.root, sessionID, old.score)
		delete(s.byID, sessionID)
	}
	size := len(s.byID)
	s.mu.Unlock()

	if ok {
		metrics.UpdateLeaderboardSize(size)
	}
	return ok
}

// Rank walks the tree up to the session, counting distinct scores so that
// tied sessions share a rank.
func (s *TreapStore) Rank(_ context.Context, sessionID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[sessionID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}

	rank := 0
	var prev scoreFP
	walk(s.root, func(n *node) bool {
		if rank == 0 || n.score != prev {
			rank++
			prev = n.score
		}
		return n.score != rec.score
	})
	return s.entry(sessionID, rec, rank), nil
}

// TopN returns the top N entries ordered by score desc.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byID)))
	walk(s.root, func(nd *node) bool {
		out = append(out, s.entry(nd.id, s.byID[nd.id], 0))
		return len(out) < n
	})
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the total number of ranked sessions.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *TreapStore) entry(id string, rec record, rank int) Entry {
	return Entry{
		Rank:      rank,
		SessionID: id,
		Exercise:  rec.exercise,
		Score:     toFloat(rec.score),
		Reps:      rec.reps,
	}
}

// assignRanksWithTies assigns dense ranks: equal scores share a rank and
// the next distinct score takes the following rank.
func assignRanksWithTies(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Score != entries[i-1].Score {
			rank++
		}
		entries[i].Rank = rank
	}
}
