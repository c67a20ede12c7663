// Package repscore tracks repetition phases with a hysteresis state machine
// and scores each completed repetition.
package repscore

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/kinetica/internal/domain/exercise"
	"github.com/okian/kinetica/internal/domain/model"
)

// Scoring constants.
const (
	DefaultHysteresisFrames = 3

	maxNeutralShift    = 15.0
	maxScore           = 100.0
	stabilityDivisor   = 10.0
	tempoPenaltyPerTol = 25.0

	praiseThreshold        = 85.0
	encouragementThreshold = 60.0
)

// Component weights before exercise-specific scaling.
const (
	weightROM       = 0.25
	weightTempo     = 0.15
	weightSymmetry  = 0.20
	weightStability = 0.15
	weightDepth     = 0.25
)

// Input is one frame's worth of scorer input.
type Input struct {
	Angles        model.JointAngles
	Symmetry      float64
	Compensations []model.CompensationPattern
	Timestamp     time.Time
}

// Update is the scorer's reaction to one frame.
type Update struct {
	Phase    model.Phase          `json:"phase"`
	Previous model.Phase          `json:"previous"`
	Changed  bool                 `json:"changed"`
	Tracked  bool                 `json:"tracked"` // false when no primary joint angle was present
	Angle    float64              `json:"angle"`
	Score    *model.RepScore      `json:"score,omitempty"`
	Feedback []model.FeedbackItem `json:"feedback,omitempty"`
}

type issueKey struct {
	joint model.JointName
	kind  model.CompensationType
}

// repState is the live state of the current repetition.
type repState struct {
	phase     model.Phase
	candidate model.Phase
	count     int

	startedAt time.Time
	minAngle  float64
	maxAngle  float64
	angles    []float64
	symmetry  []float64

	issues []model.Issue
	index  map[issueKey]int
	cued   map[issueKey]bool
}

func newRepState() repState {
	return repState{
		phase:    model.PhaseStart,
		minAngle: math.Inf(1),
		maxAngle: math.Inf(-1),
		index:    make(map[issueKey]int),
		cued:     make(map[issueKey]bool),
	}
}

// Scorer is the per-session repetition state machine. It is not safe for
// concurrent use.
type Scorer struct {
	cfg        exercise.Config
	profile    model.CalibrationProfile
	hysteresis int
	picker     MessagePicker
	now        func() time.Time

	start float64
	dir   float64

	state  repState
	scores []model.RepScore
}

// New creates a Scorer for one exercise and calibration profile.
func New(cfg exercise.Config, profile model.CalibrationProfile, opts ...Option) *Scorer {
	s := &Scorer{
		hysteresis: DefaultHysteresisFrames,
		picker:     FirstPicker{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reconfigure(cfg, profile)
	return s
}

// Reconfigure binds the scorer to a new exercise and profile and clears the
// live repetition. Completed scores are kept.
func (s *Scorer) Reconfigure(cfg exercise.Config, profile model.CalibrationProfile) {
	s.cfg = cfg
	s.profile = profile
	s.dir = 1
	if cfg.Ascending() {
		s.dir = -1
	}

	var shift float64
	var n int
	for _, j := range cfg.PrimaryJoints {
		shift += profile.NeutralOffset(j)
		n++
	}
	if n > 0 {
		shift /= float64(n)
	}
	s.start = cfg.StartAngle + model.Clamp(shift, -maxNeutralShift, maxNeutralShift)
	s.state = newRepState()
}

// Reset clears the live repetition and every completed score.
func (s *Scorer) Reset() {
	s.state = newRepState()
	s.scores = nil
}

// Config returns the active exercise configuration.
func (s *Scorer) Config() exercise.Config { return s.cfg }

// StartThreshold returns the calibration-adjusted start angle.
func (s *Scorer) StartThreshold() float64 { return s.start }

// Phase returns the current phase.
func (s *Scorer) Phase() model.Phase { return s.state.phase }

// RepCount returns the number of completed repetitions.
func (s *Scorer) RepCount() int { return len(s.scores) }

// Scores returns a copy of the completed repetition scores.
func (s *Scorer) Scores() []model.RepScore {
	out := make([]model.RepScore, len(s.scores))
	copy(out, s.scores)
	return out
}

// AverageScore returns the mean overall score, or 0 without repetitions.
func (s *Scorer) AverageScore() float64 {
	if len(s.scores) == 0 {
		return 0
	}
	vals := make([]float64, len(s.scores))
	for i, sc := range s.scores {
		vals[i] = sc.Overall
	}
	return stat.Mean(vals, nil)
}

// primaryAngle averages the primary joints present in the frame.
func (s *Scorer) primaryAngle(a model.JointAngles) (float64, bool) {
	var sum float64
	var n int
	for _, j := range s.cfg.PrimaryJoints {
		if v, ok := a.Value(j); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// towardBottom is how far angle has travelled from the start threshold
// towards the bottom, in degrees.
func (s *Scorer) towardBottom(angle float64) float64 {
	return s.dir * (s.start - angle)
}

// pastBottom is how far angle still is from the bottom threshold; negative
// values are beyond it.
func (s *Scorer) pastBottom(angle float64) float64 {
	return s.dir * (angle - s.cfg.BottomAngle)
}

// candidate returns the phase this angle argues for, if any.
func (s *Scorer) candidate(angle float64) (model.Phase, bool) {
	tol := s.cfg.Tolerance
	var advance bool
	switch s.state.phase {
	case model.PhaseStart:
		advance = s.towardBottom(angle) > tol
	case model.PhaseEccentric:
		advance = s.pastBottom(angle) <= tol
	case model.PhaseTurn:
		advance = s.pastBottom(angle) > tol
	case model.PhaseConcentric:
		advance = s.towardBottom(angle) <= tol
	}
	if !advance {
		return "", false
	}
	return s.state.phase.Next(), true
}

// Update advances the state machine by one frame.
func (s *Scorer) Update(in Input) Update {
	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	st := &s.state
	out := Update{Phase: st.phase, Previous: st.phase}

	angle, ok := s.primaryAngle(in.Angles)
	if !ok {
		st.candidate, st.count = "", 0
		return out
	}
	out.Angle, out.Tracked = angle, true

	cand, hasCand := s.candidate(angle)
	switch {
	case !hasCand:
		st.candidate, st.count = "", 0
	case cand != st.candidate:
		st.candidate, st.count = cand, 1
	default:
		st.count++
	}

	if st.phase == model.PhaseStart && st.count == 0 {
		// Idle at the start position: the repetition begins with the most
		// recent resting frame.
		st.angles, st.symmetry = st.angles[:0], st.symmetry[:0]
		st.minAngle, st.maxAngle = math.Inf(1), math.Inf(-1)
		st.issues = st.issues[:0]
		clear(st.index)
		clear(st.cued)
		st.startedAt = ts
	}
	s.record(angle, in)

	if !hasCand || st.count < s.hysteresis {
		return out
	}

	prev := st.phase
	st.phase = cand
	st.candidate, st.count = "", 0
	out.Phase, out.Previous, out.Changed = st.phase, prev, true

	if cand == model.PhaseStart {
		score := s.complete(ts)
		out.Score = &score
		out.Feedback = s.repFeedback(score, ts)
		s.state = newRepState()
		s.state.startedAt = ts
		s.record(angle, in)
		return out
	}
	if fb, ok := s.criticalCue(ts); ok {
		out.Feedback = append(out.Feedback, fb)
	}
	return out
}

func (s *Scorer) record(angle float64, in Input) {
	st := &s.state
	st.minAngle = math.Min(st.minAngle, angle)
	st.maxAngle = math.Max(st.maxAngle, angle)
	st.angles = append(st.angles, angle)
	st.symmetry = append(st.symmetry, in.Symmetry)
	for _, c := range in.Compensations {
		s.addIssue(c)
	}
}

// addIssue records a compensation, keeping the highest severity per joint and type.
func (s *Scorer) addIssue(c model.CompensationPattern) {
	st := &s.state
	issue := model.Issue{
		Joint:    IssueJoint(c.Type, c.Side),
		Type:     c.Type,
		Severity: model.IssueSeverityFor(c.Severity),
		Message:  c.Correction,
	}
	key := issueKey{issue.Joint, issue.Type}
	if i, ok := st.index[key]; ok {
		if issue.Severity.Rank() > st.issues[i].Severity.Rank() {
			st.issues[i] = issue
		}
		return
	}
	st.index[key] = len(st.issues)
	st.issues = append(st.issues, issue)
}

// IssueJoint names the body part a compensation is attributed to.
func IssueJoint(t model.CompensationType, side model.Side) model.JointName {
	switch t {
	case model.CompensationTrunkLean:
		return model.JointTrunk
	case model.CompensationKneeValgus:
		switch side {
		case model.SideLeft:
			return model.JointLeftKnee
		case model.SideRight:
			return model.JointRightKnee
		default:
			return model.JointKnee
		}
	case model.CompensationWeightShift:
		return model.JointCenterOfMass
	case model.CompensationShoulderHike:
		return model.JointShoulderGirdle
	case model.CompensationHipDrop:
		return model.JointPelvis
	case model.CompensationForwardHead:
		return model.JointHead
	default:
		return model.JointTrunk
	}
}

// criticalCue returns a correction for the first high-severity issue of the
// current repetition that has not been cued yet.
func (s *Scorer) criticalCue(ts time.Time) (model.FeedbackItem, bool) {
	st := &s.state
	for _, is := range st.issues {
		key := issueKey{is.Joint, is.Type}
		if is.Severity != model.IssueHigh || st.cued[key] {
			continue
		}
		st.cued[key] = true
		return model.FeedbackItem{Text: is.Message, Priority: model.PriorityCritical, Timestamp: ts}, true
	}
	return model.FeedbackItem{}, false
}

func (s *Scorer) complete(end time.Time) model.RepScore {
	st := &s.state
	b := model.ScoreBreakdown{
		ROM:       s.romScore(),
		Tempo:     s.tempoScore(end.Sub(st.startedAt)),
		Symmetry:  symmetryScore(st.symmetry),
		Stability: stabilityScore(st.angles),
		Depth:     s.depthScore(),
	}

	symW := weightSymmetry * s.cfg.SymmetryWeight
	depthW := weightDepth * s.cfg.DepthWeight
	total := weightROM + weightTempo + symW + weightStability + depthW
	overall := (weightROM*b.ROM + weightTempo*b.Tempo + symW*b.Symmetry +
		weightStability*b.Stability + depthW*b.Depth) / total

	issues := make([]model.Issue, len(st.issues))
	copy(issues, st.issues)

	score := model.RepScore{
		Overall:       model.Clamp(overall, 0, maxScore),
		Breakdown:     b,
		Issues:        issues,
		Timestamp:     end,
		Duration:      end.Sub(st.startedAt),
		RangeOfMotion: st.maxAngle - st.minAngle,
		MinAngle:      st.minAngle,
		MaxAngle:      st.maxAngle,
	}
	s.scores = append(s.scores, score)
	return score
}

func (s *Scorer) romScore() float64 {
	if s.cfg.TargetROM <= 0 {
		return maxScore
	}
	rom := s.state.maxAngle - s.state.minAngle
	return model.Clamp(rom/s.cfg.TargetROM*maxScore, 0, maxScore)
}

// tempoScore is full marks within tolerance of the ideal duration and loses a
// fixed amount per further tolerance unit.
func (s *Scorer) tempoScore(d time.Duration) float64 {
	tol := s.cfg.TempoTolerance
	dev := d - s.cfg.IdealTempo
	if dev < 0 {
		dev = -dev
	}
	if dev <= tol {
		return maxScore
	}
	if tol <= 0 {
		return 0
	}
	excess := float64(dev-tol) / float64(tol)
	return model.Clamp(maxScore-tempoPenaltyPerTol*excess, 0, maxScore)
}

func symmetryScore(values []float64) float64 {
	if len(values) == 0 {
		return maxScore
	}
	return model.Clamp(stat.Mean(values, nil), 0, maxScore)
}

// stabilityScore penalizes jerky motion: the spread of frame-to-frame changes.
func stabilityScore(angles []float64) float64 {
	if len(angles) < 3 {
		return maxScore
	}
	deltas := make([]float64, len(angles)-1)
	for i := 1; i < len(angles); i++ {
		deltas[i-1] = angles[i] - angles[i-1]
	}
	sd := stat.StdDev(deltas, nil)
	return maxScore / (1 + sd/stabilityDivisor)
}

// depthScore is full marks once the extreme angle reaches the bottom threshold
// and falls off linearly across the start-to-bottom span.
func (s *Scorer) depthScore() float64 {
	extreme := s.state.minAngle
	if s.dir < 0 {
		extreme = s.state.maxAngle
	}
	short := s.pastBottom(extreme)
	if short <= 0 {
		return maxScore
	}
	span := math.Abs(s.start - s.cfg.BottomAngle)
	if span == 0 {
		return 0
	}
	return model.Clamp(maxScore*(1-short/span), 0, maxScore)
}

// repFeedback tiers the completion message by score; a high-severity issue
// overrides the tier with its correction.
func (s *Scorer) repFeedback(score model.RepScore, ts time.Time) []model.FeedbackItem {
	for _, is := range score.Issues {
		if is.Severity == model.IssueHigh {
			return []model.FeedbackItem{{Text: is.Message, Priority: model.PriorityCritical, Timestamp: ts}}
		}
	}
	switch {
	case score.Overall >= praiseThreshold:
		return []model.FeedbackItem{{Text: s.picker.Pick(praiseMessages), Priority: model.PriorityEncouragement, Timestamp: ts}}
	case score.Overall >= encouragementThreshold:
		return []model.FeedbackItem{{Text: s.picker.Pick(encouragementMessages), Priority: model.PriorityEncouragement, Timestamp: ts}}
	default:
		text := s.picker.Pick(correctiveMessages)
		if len(score.Issues) > 0 && score.Issues[0].Message != "" {
			text = score.Issues[0].Message
		}
		return []model.FeedbackItem{{Text: text, Priority: model.PriorityCorrective, Timestamp: ts}}
	}
}
