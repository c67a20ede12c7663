// Package types contains common types used across the application
package types

// Entry represents a leaderboard row: one session ranked by the average
// overall score of its completed repetitions.
type Entry struct {
	Rank      int     `json:"rank"`
	SessionID string  `json:"session_id"`
	Exercise  string  `json:"exercise"`
	Score     float64 `json:"score"`
	Reps      int     `json:"reps"`
}

// Less reports whether e ranks ahead of o: higher score first, then session
// id ascending.
func (e Entry) Less(o Entry) bool {
	if e.Score != o.Score {
		return e.Score > o.Score
	}
	return e.SessionID < o.SessionID
}
