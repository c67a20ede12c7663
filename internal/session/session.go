// Package session wires the per-frame analysis pipeline for one user and
// owns every stateful component of that pipeline.
package session

import (
	"math"
	"slices"
	"sync"
	"time"

	"github.com/okian/kinetica/internal/domain/calibration"
	"github.com/okian/kinetica/internal/domain/compensation"
	"github.com/okian/kinetica/internal/domain/constraint"
	"github.com/okian/kinetica/internal/domain/exercise"
	"github.com/okian/kinetica/internal/domain/kinetic"
	"github.com/okian/kinetica/internal/domain/model"
	"github.com/okian/kinetica/internal/domain/pose"
	"github.com/okian/kinetica/internal/domain/repscore"
)

// A compensation must show up in this share of the history window to take
// part in the kinetic chain analysis.
const persistentShare = 0.2

// Status describes how a frame was handled.
type Status string

const (
	StatusInsufficientData Status = "insufficient_data"
	StatusCalibrating      Status = "calibrating"
	StatusCalibrated       Status = "calibrated"
	StatusScored           Status = "scored"
)

// FrameResult is everything the pipeline produced for one frame.
type FrameResult struct {
	SessionID     string                      `json:"session_id"`
	FrameID       string                      `json:"frame_id,omitempty"`
	Timestamp     time.Time                   `json:"ts"`
	Status        Status                      `json:"status"`
	Calibration   *calibration.Progress       `json:"calibration,omitempty"`
	Angles        model.JointAngles           `json:"angles,omitempty"`
	Symmetry      float64                     `json:"symmetry"`
	Possible      bool                        `json:"isAnatomicallyPossible"`
	Confidence    float64                     `json:"confidence"`
	Violations    []constraint.Violation      `json:"violations,omitempty"`
	Compensations []model.CompensationPattern `json:"compensations,omitempty"`
	Cues          []model.CompensationPattern `json:"cues,omitempty"` // most severe first, capped
	Rep           repscore.Update             `json:"rep"`
}

// Summary is a read-only view of a session.
type Summary struct {
	ID           string                   `json:"id"`
	Exercise     string                   `json:"exercise"`
	Requested    string                   `json:"requested_exercise"`
	Category     model.ExerciseCategory   `json:"category"`
	KnownConfig  bool                     `json:"known_exercise"`
	Calibrating  bool                     `json:"calibrating"`
	Calibration  calibration.Progress     `json:"calibration"`
	Profile      model.CalibrationProfile `json:"profile"`
	Phase        model.Phase              `json:"phase"`
	RepCount     int                      `json:"rep_count"`
	AverageScore float64                  `json:"average_score"`
	Frames       int                      `json:"frames"`
	Skipped      int                      `json:"skipped_frames"`
	CreatedAt    time.Time                `json:"created_at"`
	LastFrameAt  time.Time                `json:"last_frame_at,omitzero"`
}

// CalibrationState is the calibration view of a session.
type CalibrationState struct {
	Calibrating bool                     `json:"calibrating"`
	Progress    calibration.Progress     `json:"progress"`
	Profile     model.CalibrationProfile `json:"profile"`
	Default     bool                     `json:"default_profile"`
}

// Session owns one Calibrator, one Reconstructor and one Scorer. Frames must
// be fed from a single goroutine; accessors may run concurrently.
type Session struct {
	mu sync.RWMutex

	id        string
	createdAt time.Time
	now       func() time.Time

	exerciseName string
	cfg          exercise.Config
	known        bool

	calibrator  *calibration.Calibrator
	calibrating bool
	recon       *pose.Reconstructor
	scorer      *repscore.Scorer

	catalog   *exercise.Catalog
	validator *constraint.Validator
	detector  *compensation.Detector
	analyzer  *kinetic.Analyzer

	historySize int
	topN        int
	history     [][]model.CompensationPattern

	// deepest frame of the rep in progress and of the last completed rep
	deepest      model.JointAngles
	deepestAngle float64
	bottom       model.JointAngles
	last         model.JointAngles

	frames      int
	skipped     int
	lastFrameAt time.Time
}

// New creates a session. With skipCalibration the default profile is used
// straight away; otherwise the first frames calibrate the user.
func New(id, exerciseName string, skipCalibration bool, opts ...Option) *Session {
	st := newSettings(opts)
	cfg, known := st.catalog.Lookup(exerciseName)
	profile := model.DefaultCalibrationProfile()
	scorerOpts := st.scorer
	if st.seeded {
		seed := st.seed
		if seed == 0 {
			seed = st.now().UnixNano()
		}
		scorerOpts = append(slices.Clone(scorerOpts), repscore.WithMessagePicker(repscore.NewRandomPicker(seed)))
	}

	s := &Session{
		id:           id,
		createdAt:    st.now(),
		now:          st.now,
		exerciseName: exerciseName,
		cfg:          cfg,
		known:        known,
		calibrator:   calibration.New(st.calibration...),
		calibrating:  !skipCalibration,
		recon:        pose.New(profile, st.pose...),
		scorer:       repscore.New(cfg, profile, scorerOpts...),
		catalog:      st.catalog,
		validator:    st.validator,
		detector:     st.detector,
		analyzer:     st.analyzer,
		historySize:  st.historySize,
		topN:         st.topN,
		deepestAngle: math.NaN(),
	}
	if skipCalibration {
		s.calibrator.Cancel()
	}
	return s
}

// ID returns the session key.
func (s *Session) ID() string { return s.id }

// Process runs one frame through the pipeline.
func (s *Session) Process(f model.Frame) FrameResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := f.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	s.frames++
	s.lastFrameAt = ts
	out := FrameResult{SessionID: s.id, FrameID: f.ID, Timestamp: ts, Rep: repscore.Update{Phase: s.scorer.Phase(), Previous: s.scorer.Phase()}}

	if !f.Landmarks.Complete() {
		// A dropout still breaks the calibration streak and the hysteresis run.
		s.skipped++
		out.Status = StatusInsufficientData
		if s.calibrating {
			p := s.calibrator.AddFrame(f.Landmarks)
			out.Calibration = &p
			return out
		}
		out.Rep = s.scorer.Update(repscore.Input{Timestamp: ts})
		return out
	}

	if s.calibrating {
		p := s.calibrator.AddFrame(f.Landmarks)
		out.Calibration = &p
		out.Status = StatusCalibrating
		if profile, ok := s.calibrator.Profile(); ok {
			s.calibrating = false
			s.install(profile)
			out.Status = StatusCalibrated
		}
		return out
	}

	angles := s.recon.CalculateJointAngles(f.Landmarks)
	res := s.validator.ValidateJointCombination(angles)
	angles = res.CorrectedAngles
	sym := pose.CalculateSymmetry(angles)
	var comps []model.CompensationPattern
	if len(angles) > 0 {
		comps = s.detector.DetectCompensations(f.Landmarks, angles, s.cfg.Category)
	}
	upd := s.scorer.Update(repscore.Input{
		Angles:        angles,
		Symmetry:      sym,
		Compensations: comps,
		Timestamp:     ts,
	})

	s.remember(comps)
	s.trackBottom(angles, upd)
	if len(angles) > 0 {
		s.last = angles
	}

	out.Status = StatusScored
	out.Angles = angles
	out.Symmetry = sym
	out.Possible = res.IsAnatomicallyPossible
	out.Confidence = res.Confidence
	out.Violations = res.Violations
	out.Compensations = comps
	out.Cues = compensation.GetTopCompensations(comps, s.topN)
	out.Rep = upd
	return out
}

func (s *Session) remember(comps []model.CompensationPattern) {
	s.history = append(s.history, comps)
	if over := len(s.history) - s.historySize; over > 0 {
		s.history = slices.Delete(s.history, 0, over)
	}
}

// trackBottom keeps the frame closest to the bottom of the live repetition.
// Frames without a primary angle never qualify.
func (s *Session) trackBottom(angles model.JointAngles, upd repscore.Update) {
	if upd.Tracked && (upd.Phase != model.PhaseStart || upd.Changed) {
		deeper := upd.Angle < s.deepestAngle
		if s.cfg.Ascending() {
			deeper = upd.Angle > s.deepestAngle
		}
		if math.IsNaN(s.deepestAngle) || deeper {
			s.deepest, s.deepestAngle = angles, upd.Angle
		}
	}
	if upd.Score != nil {
		s.bottom = s.deepest
		s.deepest, s.deepestAngle = nil, math.NaN()
	}
}

func (s *Session) install(profile model.CalibrationProfile) {
	s.recon.SetProfile(profile)
	s.recon.ResetSmoothing()
	s.scorer.Reconfigure(s.cfg, profile)
	s.clearRep()
}

func (s *Session) clearRep() {
	s.history = nil
	s.deepest, s.deepestAngle = nil, math.NaN()
	s.bottom, s.last = nil, nil
}

// SetExercise switches the exercise. Smoothing and the live repetition are
// cleared; completed scores are kept. The boolean is false when the name is
// not in the catalogue and a fallback configuration is used.
func (s *Session) SetExercise(name string) (exercise.Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exerciseName = name
	s.cfg, s.known = s.catalog.Lookup(name)
	s.recon.ResetSmoothing()
	s.scorer.Reconfigure(s.cfg, s.recon.Profile())
	s.clearRep()
	return s.cfg, s.known
}

// SkipCalibration stops calibrating and scores with the default profile.
func (s *Session) SkipCalibration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calibrator.Cancel()
	if s.calibrating {
		s.calibrating = false
		s.install(model.DefaultCalibrationProfile())
	}
}

// CancelCalibration stops calibrating and keeps whatever profile is in use.
func (s *Session) CancelCalibration() calibration.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calibrator.Cancel()
	s.calibrating = false
	return s.calibrator.Progress()
}

// ResetCalibration discards the captured profile and starts calibrating again.
func (s *Session) ResetCalibration() calibration.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calibrator.Reset()
	s.calibrating = true
	s.install(model.DefaultCalibrationProfile())
	return s.calibrator.Progress()
}

// Calibration returns the calibration state.
func (s *Session) Calibration() CalibrationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile := s.recon.Profile()
	return CalibrationState{
		Calibrating: s.calibrating,
		Progress:    s.calibrator.Progress(),
		Profile:     profile,
		Default:     profile.IsDefault(),
	}
}

// Analyze runs the kinetic chain analysis over the compensation history and
// the deepest frame of the last repetition.
func (s *Session) Analyze() model.KineticChainAnalysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	angles := s.bottom
	if angles == nil {
		angles = s.deepest
	}
	if angles == nil {
		angles = s.last
	}
	return s.analyzer.AnalyzeKineticChain(persistent(s.history), angles)
}

type compKey struct {
	kind model.CompensationType
	side model.Side
}

// persistent keeps the worst instance of every compensation seen often enough
// in the history window, worst first.
func persistent(history [][]model.CompensationPattern) []model.CompensationPattern {
	if len(history) == 0 {
		return nil
	}
	minCount := max(1, int(math.Ceil(persistentShare*float64(len(history)))))
	counts := make(map[compKey]int)
	worst := make(map[compKey]model.CompensationPattern)
	var order []compKey
	for _, frame := range history {
		for _, c := range frame {
			k := compKey{kind: c.Type, side: c.Side}
			prev, seen := worst[k]
			if !seen {
				order = append(order, k)
			}
			counts[k]++
			if !seen || c.Severity.Rank() > prev.Severity.Rank() {
				worst[k] = c
			}
		}
	}
	var out []model.CompensationPattern
	for _, k := range order {
		if counts[k] >= minCount {
			out = append(out, worst[k])
		}
	}
	slices.SortStableFunc(out, func(a, b model.CompensationPattern) int {
		return b.Severity.Rank() - a.Severity.Rank()
	})
	return out
}

// Scores returns all completed repetitions.
func (s *Session) Scores() []model.RepScore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scorer.Scores()
}

// AverageScore returns the running average overall score.
func (s *Session) AverageScore() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scorer.AverageScore()
}

// Snapshot returns a summary of the session.
func (s *Session) Snapshot() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Summary{
		ID:           s.id,
		Exercise:     s.cfg.Name,
		Requested:    s.exerciseName,
		Category:     s.cfg.Category,
		KnownConfig:  s.known,
		Calibrating:  s.calibrating,
		Calibration:  s.calibrator.Progress(),
		Profile:      s.recon.Profile(),
		Phase:        s.scorer.Phase(),
		RepCount:     s.scorer.RepCount(),
		AverageScore: s.scorer.AverageScore(),
		Frames:       s.frames,
		Skipped:      s.skipped,
		CreatedAt:    s.createdAt,
		LastFrameAt:  s.lastFrameAt,
	}
}
