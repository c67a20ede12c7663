// Package calibration captures a per-user baseline profile from a short
// window of stable standing frames.
package calibration

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/kinetica/internal/domain/geometry"
	"github.com/okian/kinetica/internal/domain/model"
)

// Default calibration parameters.
const (
	DefaultTargetFrames      = 30
	DefaultConsecutiveFrames = 5
	DefaultMinVisibility     = 0.5
)

// Status describes what happened to the last frame.
type Status string

const (
	StatusRejected    Status = "rejected"
	StatusStabilizing Status = "stabilizing"
	StatusAccepted    Status = "accepted"
	StatusComplete    Status = "complete"
	StatusCancelled   Status = "cancelled"
)

// Progress reports the calibration state after a frame.
type Progress struct {
	Accepted int    `json:"accepted"`
	Target   int    `json:"target"`
	Status   Status `json:"status"`
	Complete bool   `json:"complete"`
}

// keyLandmarks must all be visible for a frame to count.
var keyLandmarks = []model.LandmarkIndex{
	model.Nose,
	model.LeftShoulder, model.RightShoulder,
	model.LeftElbow, model.RightElbow,
	model.LeftWrist, model.RightWrist,
	model.LeftHip, model.RightHip,
	model.LeftKnee, model.RightKnee,
	model.LeftAnkle, model.RightAnkle,
}

// sample holds the measurements of one accepted frame.
type sample struct {
	height, shoulderWidth, arm, leg float64
	angles                          map[model.JointName]float64
}

// Calibrator accumulates stable frames and produces a CalibrationProfile.
// It is owned by a single session and is not safe for concurrent use.
type Calibrator struct {
	targetFrames      int
	consecutiveFrames int
	minVisibility     float64
	now               func() time.Time

	streak    int
	samples   []sample
	profile   *model.CalibrationProfile
	cancelled bool
	last      Status
}

// New creates a Calibrator.
func New(opts ...Option) *Calibrator {
	c := &Calibrator{
		targetFrames:      DefaultTargetFrames,
		consecutiveFrames: DefaultConsecutiveFrames,
		minVisibility:     DefaultMinVisibility,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.samples = make([]sample, 0, c.targetFrames)
	c.last = StatusStabilizing
	return c
}

// AddFrame feeds one landmark frame. Frames whose key landmarks are not all
// visible reset the stability streak; frames are only buffered once the
// streak reaches the configured length.
func (c *Calibrator) AddFrame(lm model.Landmarks) Progress {
	switch {
	case c.profile != nil:
		c.last = StatusComplete
		return c.Progress()
	case c.cancelled:
		c.last = StatusCancelled
		return c.Progress()
	}

	if !lm.Complete() || !lm.Visible(c.minVisibility, keyLandmarks...) {
		c.streak = 0
		c.last = StatusRejected
		return c.Progress()
	}

	c.streak++
	if c.streak < c.consecutiveFrames {
		c.last = StatusStabilizing
		return c.Progress()
	}

	c.samples = append(c.samples, measure(lm))
	c.last = StatusAccepted
	if len(c.samples) >= c.targetFrames {
		p := c.compute()
		c.profile = &p
		c.last = StatusComplete
	}
	return c.Progress()
}

// Progress returns the current calibration state.
func (c *Calibrator) Progress() Progress {
	return Progress{
		Accepted: len(c.samples),
		Target:   c.targetFrames,
		Status:   c.last,
		Complete: c.profile != nil,
	}
}

// Profile returns the captured profile. The boolean is false until the target
// frame count has been reached.
func (c *Calibrator) Profile() (model.CalibrationProfile, bool) {
	if c.profile == nil {
		return model.CalibrationProfile{}, false
	}
	return *c.profile, true
}

// Cancel stops the calibration and discards buffered frames. A completed
// profile is kept.
func (c *Calibrator) Cancel() {
	if c.profile != nil {
		return
	}
	c.cancelled = true
	c.streak = 0
	c.samples = c.samples[:0]
	c.last = StatusCancelled
}

// Reset discards everything, including a completed profile.
func (c *Calibrator) Reset() {
	c.cancelled = false
	c.streak = 0
	c.samples = c.samples[:0]
	c.profile = nil
	c.last = StatusStabilizing
}

func measure(lm model.Landmarks) sample {
	return sample{
		height:        geometry.StandingHeight(lm),
		shoulderWidth: geometry.ShoulderWidth(lm),
		arm:           (geometry.ArmLength(lm, geometry.Left) + geometry.ArmLength(lm, geometry.Right)) / 2,
		leg:           (geometry.LegLength(lm, geometry.Left) + geometry.LegLength(lm, geometry.Right)) / 2,
		angles: map[model.JointName]float64{
			model.JointLeftElbow:     geometry.ElbowAngle(lm, geometry.Left),
			model.JointRightElbow:    geometry.ElbowAngle(lm, geometry.Right),
			model.JointLeftShoulder:  geometry.ShoulderAbduction(lm, geometry.Left),
			model.JointRightShoulder: geometry.ShoulderAbduction(lm, geometry.Right),
			model.JointLeftHip:       geometry.HipAngle(lm, geometry.Left),
			model.JointRightHip:      geometry.HipAngle(lm, geometry.Right),
			model.JointLeftKnee:      geometry.KneeAngle(lm, geometry.Left),
			model.JointRightKnee:     geometry.KneeAngle(lm, geometry.Right),
		},
	}
}

func (c *Calibrator) compute() model.CalibrationProfile {
	n := len(c.samples)
	heights := make([]float64, n)
	widths := make([]float64, n)
	arms := make([]float64, n)
	legs := make([]float64, n)
	for i, s := range c.samples {
		heights[i], widths[i], arms[i], legs[i] = s.height, s.shoulderWidth, s.arm, s.leg
	}

	neutral := make(map[model.JointName]float64, len(model.NeutralJoints))
	values := make([]float64, n)
	for _, j := range model.NeutralJoints {
		for i, s := range c.samples {
			values[i] = s.angles[j]
		}
		neutral[j] = stat.Mean(values, nil)
	}

	return model.CalibrationProfile{
		StandingHeight:     stat.Mean(heights, nil),
		ShoulderWidth:      stat.Mean(widths, nil),
		ArmLength:          stat.Mean(arms, nil),
		LegLength:          stat.Mean(legs, nil),
		NeutralJointAngles: neutral,
		CapturedAt:         c.now(),
	}
}
