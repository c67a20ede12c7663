// Package repository holds the cross-session leaderboard.
package repository

import (
	"context"

	"github.com/okian/kinetica/internal/domain/types"
)

// Entry is a ranked leaderboard row.
type Entry = types.Entry

// Store provides read/write access to the ranking state.
type Store interface {
	// Upsert places a session at its current average score. Scores may move
	// in either direction; the previous position is replaced.
	// Returns true if the stored row changed.
	Upsert(ctx context.Context, e Entry) (bool, error)

	// Remove drops a session from the leaderboard. Returns false if the
	// session was not ranked.
	Remove(ctx context.Context, sessionID string) bool

	// Rank returns the current rank and score for a session.
	// Returns ErrNotFound if the session is unknown.
	Rank(ctx context.Context, sessionID string) (Entry, error)

	// TopN returns the top-N entries ordered by score desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of sessions tracked in the leaderboard.
	Count(ctx context.Context) int
}
