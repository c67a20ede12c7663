package session

import (
	"time"

	"github.com/okian/kinetica/internal/domain/calibration"
	"github.com/okian/kinetica/internal/domain/compensation"
	"github.com/okian/kinetica/internal/domain/constraint"
	"github.com/okian/kinetica/internal/domain/exercise"
	"github.com/okian/kinetica/internal/domain/kinetic"
	"github.com/okian/kinetica/internal/domain/pose"
	"github.com/okian/kinetica/internal/domain/repscore"
)

// DefaultHistorySize is the number of frames of compensations kept for analysis.
const DefaultHistorySize = 90

// DefaultTopCompensations is how many of a frame's compensations become cues.
const DefaultTopCompensations = 3

// Option configures sessions and the manager that creates them.
type Option func(*settings)

type settings struct {
	calibration []calibration.Option
	pose        []pose.Option
	scorer      []repscore.Option
	historySize int
	topN        int
	now         func() time.Time
	seeded      bool
	seed        int64

	catalog   *exercise.Catalog
	validator *constraint.Validator
	detector  *compensation.Detector
	analyzer  *kinetic.Analyzer
}

func newSettings(opts []Option) settings {
	s := settings{
		historySize: DefaultHistorySize,
		topN:        DefaultTopCompensations,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.catalog == nil {
		s.catalog = exercise.Default()
	}
	if s.validator == nil {
		s.validator = constraint.New()
	}
	if s.detector == nil {
		s.detector = compensation.New()
	}
	if s.analyzer == nil {
		s.analyzer = kinetic.New()
	}
	return s
}

// WithCalibrationOptions configures each session's calibrator.
func WithCalibrationOptions(opts ...calibration.Option) Option {
	return func(s *settings) {
		s.calibration = append(s.calibration, opts...)
	}
}

// WithPoseOptions configures each session's pose reconstructor.
func WithPoseOptions(opts ...pose.Option) Option {
	return func(s *settings) {
		s.pose = append(s.pose, opts...)
	}
}

// WithScorerOptions configures each session's rep scorer.
func WithScorerOptions(opts ...repscore.Option) Option {
	return func(s *settings) {
		s.scorer = append(s.scorer, opts...)
	}
}

// WithHistorySize sets how many frames of compensations are kept.
func WithHistorySize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.historySize = n
		}
	}
}

// WithTopCompensations sets how many compensations per frame are surfaced as cues.
func WithTopCompensations(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithClock overrides the time source used for session bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCatalog sets the shared exercise catalogue.
func WithCatalog(c *exercise.Catalog) Option {
	return func(s *settings) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithValidator sets the shared constraint validator.
func WithValidator(v *constraint.Validator) Option {
	return func(s *settings) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithDetector sets the shared compensation detector.
func WithDetector(d *compensation.Detector) Option {
	return func(s *settings) {
		if d != nil {
			s.detector = d
		}
	}
}

// WithAnalyzer sets the shared kinetic chain analyzer.
func WithAnalyzer(a *kinetic.Analyzer) Option {
	return func(s *settings) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithMessageSeed gives every session its own random feedback picker seeded
// with seed. A zero seed draws from the clock.
func WithMessageSeed(seed int64) Option {
	return func(s *settings) {
		s.seeded = true
		s.seed = seed
	}
}
