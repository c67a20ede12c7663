package model

import "time"

// Phase is a repetition phase.
type Phase string

const (
	PhaseStart      Phase = "START"
	PhaseEccentric  Phase = "ECCENTRIC"
	PhaseTurn       Phase = "TURN"
	PhaseConcentric Phase = "CONCENTRIC"
)

// Next returns the phase that follows p in the rep cycle.
func (p Phase) Next() Phase {
	switch p {
	case PhaseStart:
		return PhaseEccentric
	case PhaseEccentric:
		return PhaseTurn
	case PhaseTurn:
		return PhaseConcentric
	default:
		return PhaseStart
	}
}

// IssueSeverity grades a rep issue.
type IssueSeverity string

const (
	IssueLow    IssueSeverity = "low"
	IssueMedium IssueSeverity = "medium"
	IssueHigh   IssueSeverity = "high"
)

// Rank orders issue severities.
func (s IssueSeverity) Rank() int {
	switch s {
	case IssueLow:
		return 1
	case IssueMedium:
		return 2
	case IssueHigh:
		return 3
	default:
		return 0
	}
}

// IssueSeverityFor maps a compensation severity to an issue severity.
func IssueSeverityFor(s Severity) IssueSeverity {
	switch s {
	case SeveritySevere:
		return IssueHigh
	case SeverityModerate:
		return IssueMedium
	default:
		return IssueLow
	}
}

// Issue is a movement fault accumulated during a rep.
type Issue struct {
	Joint    JointName        `json:"joint"`
	Type     CompensationType `json:"type"`
	Severity IssueSeverity    `json:"severity"`
	Message  string           `json:"message"`
}

// ScoreBreakdown holds the five component scores, each 0–100.
type ScoreBreakdown struct {
	ROM       float64 `json:"rom"`
	Tempo     float64 `json:"tempo"`
	Symmetry  float64 `json:"symmetry"`
	Stability float64 `json:"stability"`
	Depth     float64 `json:"depth"`
}

// RepScore is the immutable result of one completed repetition.
type RepScore struct {
	Overall       float64        `json:"overall"`
	Breakdown     ScoreBreakdown `json:"breakdown"`
	Issues        []Issue        `json:"issues"`
	Timestamp     time.Time      `json:"timestamp"`
	Duration      time.Duration  `json:"duration"`
	RangeOfMotion float64        `json:"rangeOfMotion"`
	MinAngle      float64        `json:"minAngle"`
	MaxAngle      float64        `json:"maxAngle"`
}

// FeedbackPriority ranks coaching feedback.
type FeedbackPriority string

const (
	PriorityCritical      FeedbackPriority = "critical"
	PriorityCorrective    FeedbackPriority = "corrective"
	PriorityEncouragement FeedbackPriority = "encouragement"
)

// FeedbackItem is a coaching message emitted on phase or rep events.
type FeedbackItem struct {
	Text      string           `json:"text"`
	Priority  FeedbackPriority `json:"priority"`
	Timestamp time.Time        `json:"timestamp"`
}
