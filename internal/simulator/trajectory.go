package simulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kinetica/internal/domain/model"
)

// Fault is a movement error injected into generated squats.
type Fault string

const (
	FaultNone         Fault = "none"
	FaultKneeValgus   Fault = "knee_valgus"
	FaultTrunkLean    Fault = "trunk_lean"
	FaultHipDrop      Fault = "hip_drop"
	FaultShoulderHike Fault = "shoulder_hike"
	FaultWeightShift  Fault = "weight_shift"
	FaultForwardHead  Fault = "forward_head"
)

// Faults lists every fault accepted by ParseFault.
var Faults = []Fault{
	FaultNone, FaultKneeValgus, FaultTrunkLean, FaultHipDrop,
	FaultShoulderHike, FaultWeightShift, FaultForwardHead,
}

// ErrInvalidTrajectory is returned for configurations that cannot produce frames.
var ErrInvalidTrajectory = errors.New("invalid trajectory")

// ParseFault resolves a fault name. The empty string means no fault.
func ParseFault(s string) (Fault, error) {
	n := Fault(strings.ToLower(strings.TrimSpace(s)))
	if n == "" {
		return FaultNone, nil
	}
	for _, f := range Faults {
		if f == n {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown fault %q", ErrInvalidTrajectory, s)
}

// Trajectory describes a run of synthetic squats.
type Trajectory struct {
	Reps         int
	FramesPerRep int     // frames spent moving, excluding holds
	HoldFrames   int     // standing frames before every rep and after the last
	FPS          float64
	StartKnee    float64
	BottomKnee   float64
	Fault        Fault
	Severity     float64 // 0..1 scale of the fault
	Jitter       float64 // uniform landmark noise in normalized units
	Seed         uint64
	Start        time.Time
}

// DefaultTrajectory is five clean three-second squats at 10 fps.
func DefaultTrajectory() Trajectory {
	return Trajectory{
		Reps:         5,
		FramesPerRep: 30,
		HoldFrames:   6,
		FPS:          10,
		StartKnee:    175,
		BottomKnee:   82,
		Fault:        FaultNone,
		Severity:     1,
		Seed:         1,
	}
}

// Validate reports whether the trajectory can be generated.
func (t Trajectory) Validate() error {
	switch {
	case t.Reps < 1:
		return fmt.Errorf("%w: reps must be positive", ErrInvalidTrajectory)
	case t.FramesPerRep < 4:
		return fmt.Errorf("%w: frames per rep must be at least 4", ErrInvalidTrajectory)
	case t.HoldFrames < 0:
		return fmt.Errorf("%w: hold frames must not be negative", ErrInvalidTrajectory)
	case t.FPS <= 0:
		return fmt.Errorf("%w: fps must be positive", ErrInvalidTrajectory)
	case t.BottomKnee >= t.StartKnee || t.BottomKnee <= 0 || t.StartKnee > 180:
		return fmt.Errorf("%w: knee angles must satisfy 0 < bottom < start <= 180", ErrInvalidTrajectory)
	case t.Severity < 0 || t.Severity > 1:
		return fmt.Errorf("%w: severity must be in [0,1]", ErrInvalidTrajectory)
	case t.Jitter < 0:
		return fmt.Errorf("%w: jitter must not be negative", ErrInvalidTrajectory)
	}
	_, err := ParseFault(string(t.Fault))
	return err
}

// Len returns the number of frames Generate produces.
func (t Trajectory) Len() int {
	return t.Reps*(t.HoldFrames+t.FramesPerRep) + t.HoldFrames
}

// Generate renders the trajectory. Frame ids are derived from the seed so a
// trajectory always produces the same ids.
func (t Trajectory) Generate() ([]model.Frame, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	start := t.Start
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	rng := rand.New(rand.NewPCG(t.Seed, t.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // synthetic noise
	step := time.Duration(float64(time.Second) / t.FPS)
	ns := uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "kinetica/simulator/%d", t.Seed))

	frames := make([]model.Frame, 0, t.Len())
	emit := func(depth float64) {
		i := len(frames)
		lm := t.pose(depth).Landmarks()
		if t.Jitter > 0 {
			for j := range lm {
				lm[j].X += (rng.Float64()*2 - 1) * t.Jitter
				lm[j].Y += (rng.Float64()*2 - 1) * t.Jitter
				lm[j].Z += (rng.Float64()*2 - 1) * t.Jitter
			}
		}
		frames = append(frames, model.Frame{
			ID:        uuid.NewSHA1(ns, fmt.Appendf(nil, "%d", i)).String(),
			Timestamp: start.Add(time.Duration(i) * step),
			Landmarks: lm,
		})
	}

	for range t.Reps {
		for range t.HoldFrames {
			emit(0)
		}
		for k := range t.FramesPerRep {
			phase := float64(k) / float64(t.FramesPerRep)
			emit((1 - math.Cos(2*math.Pi*phase)) / 2)
		}
	}
	for range t.HoldFrames {
		emit(0)
	}
	return frames, nil
}

// pose builds the posture at depth, 0 standing and 1 at the bottom.
func (t Trajectory) pose(depth float64) Pose {
	p := Squat(t.StartKnee - (t.StartKnee-t.BottomKnee)*depth)
	s := t.Severity
	switch t.Fault {
	case FaultKneeValgus:
		p.ValgusLeft = 0.07 * s * depth
		p.ValgusRight = 0.07 * s * depth
	case FaultTrunkLean:
		p.TrunkLean = 20 * s * depth
	case FaultHipDrop:
		p.HipDrop = 0.05 * s * depth
	case FaultShoulderHike:
		p.ShoulderHike = 0.05 * s
	case FaultWeightShift:
		p.WeightShift = 0.06 * s * depth
	case FaultForwardHead:
		p.HeadForward = 35 * s
	case FaultNone:
	}
	return p
}
