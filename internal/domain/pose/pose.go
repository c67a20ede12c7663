// Package pose reconstructs smoothed joint angles from raw landmarks.
package pose

import (
	"math"

	"github.com/okian/kinetica/internal/domain/geometry"
	"github.com/okian/kinetica/internal/domain/model"
)

// Default reconstruction parameters.
const (
	DefaultSmoothingWindow = 5
	DefaultValgusScale     = 300.0
	DefaultMinVisibility   = 0.1

	minShoulderWidth = 0.02
	symmetryMaxDiff  = 30.0
	perfectSymmetry  = 100.0
)

// Reconstructor turns landmark frames into joint angles. It keeps a smoothing
// history per joint and must be owned by a single session.
type Reconstructor struct {
	profile       model.CalibrationProfile
	window        int
	valgusScale   float64
	minVisibility float64
	history       map[model.JointName][]float64
}

// New creates a Reconstructor bound to a calibration profile.
func New(profile model.CalibrationProfile, opts ...Option) *Reconstructor {
	r := &Reconstructor{
		profile:       profile,
		window:        DefaultSmoothingWindow,
		valgusScale:   DefaultValgusScale,
		minVisibility: DefaultMinVisibility,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.history = make(map[model.JointName][]float64)
	return r
}

// Profile returns the active calibration profile.
func (r *Reconstructor) Profile() model.CalibrationProfile {
	return r.profile
}

// SetProfile replaces the calibration profile.
func (r *Reconstructor) SetProfile(p model.CalibrationProfile) {
	r.profile = p
}

// NeutralOffset returns the calibrated minus default neutral angle of joint.
func (r *Reconstructor) NeutralOffset(joint model.JointName) float64 {
	return r.profile.NeutralOffset(joint)
}

// ResetSmoothing clears the per-joint history. Call it when the exercise changes.
func (r *Reconstructor) ResetSmoothing() {
	clear(r.history)
}

// SanityCheck reports whether the landmarks look like an upright body:
// shoulders apart and hips below shoulders in image space.
func SanityCheck(lm model.Landmarks) bool {
	if !lm.Complete() {
		return false
	}
	if geometry.ShoulderWidth(lm) < minShoulderWidth {
		return false
	}
	return geometry.HipMid(lm).Y > geometry.ShoulderMid(lm).Y
}

// CalculateJointAngles returns smoothed joint angles for one frame. Frames
// failing the sanity check yield an empty map and leave the history untouched.
func (r *Reconstructor) CalculateJointAngles(lm model.Landmarks) model.JointAngles {
	out := make(model.JointAngles)
	if !SanityCheck(lm) {
		return out
	}
	for _, raw := range r.raw(lm) {
		if raw.Confidence < r.minVisibility {
			continue
		}
		raw.Angle = r.smooth(raw.Joint, raw.Angle)
		out[raw.Joint] = raw
	}
	return out
}

func (r *Reconstructor) raw(lm model.Landmarks) []model.JointAngle {
	vis := lm.MinVisibility
	angles := make([]model.JointAngle, 0, 18)
	add := func(j model.JointName, deg float64, plane model.Plane, conf float64) {
		angles = append(angles, model.JointAngle{Joint: j, Angle: deg, Confidence: model.Clamp01(conf), Plane: plane})
	}

	for _, side := range []struct {
		limb                              geometry.Limb
		elbow, shoulder, hip, knee, ankle model.JointName
		valgus                            model.JointName
	}{
		{geometry.Left, model.JointLeftElbow, model.JointLeftShoulder, model.JointLeftHip, model.JointLeftKnee, model.JointLeftAnkle, model.JointLeftKneeValgus},
		{geometry.Right, model.JointRightElbow, model.JointRightShoulder, model.JointRightHip, model.JointRightKnee, model.JointRightAnkle, model.JointRightKneeValgus},
	} {
		l := side.limb
		add(side.elbow, geometry.ElbowAngle(lm, l), model.PlaneSagittal, vis(l.Shoulder, l.Elbow, l.Wrist))
		add(side.shoulder, geometry.ShoulderAbduction(lm, l), model.PlaneFrontal, vis(l.Elbow, l.Shoulder, l.Hip))
		add(side.hip, geometry.HipAngle(lm, l), model.PlaneSagittal, vis(l.Shoulder, l.Hip, l.Knee))
		add(side.knee, geometry.KneeAngle(lm, l), model.PlaneSagittal, vis(l.Hip, l.Knee, l.Ankle))
		add(side.ankle, geometry.AnkleDorsiflexion(lm, l), model.PlaneSagittal, vis(l.Knee, l.Ankle, l.Foot))
		add(side.valgus, r.valgus(lm, l), model.PlaneFrontal, vis(l.Hip, l.Knee, l.Ankle))
	}

	trunk := vis(model.LeftShoulder, model.RightShoulder, model.LeftHip, model.RightHip)
	hipMid, shoulderMid := geometry.HipMid(lm), geometry.ShoulderMid(lm)
	add(model.JointTrunkLean, geometry.PlanarFromVertical(hipMid, shoulderMid), model.PlaneFrontal, trunk)
	add(model.JointLumbarFlexion, geometry.SagittalFromVertical(hipMid, shoulderMid), model.PlaneSagittal, trunk)
	add(model.JointLumbarRotation, geometry.TransverseAngle(
		lm.At(model.RightShoulder), lm.At(model.LeftShoulder),
		lm.At(model.RightHip), lm.At(model.LeftHip),
	), model.PlaneTransverse, trunk)
	add(model.JointNeck, geometry.Angle(geometry.EarMid(lm), shoulderMid, hipMid), model.PlaneSagittal,
		math.Min(trunk, vis(model.LeftEar, model.RightEar)))

	return angles
}

// valgus converts the medial knee offset into a pseudo-angle. Positive values
// are valgus, negative varus.
func (r *Reconstructor) valgus(lm model.Landmarks, l geometry.Limb) float64 {
	leg := r.profile.LegLength
	if leg <= 0 {
		leg = geometry.LegLength(lm, l)
	}
	if leg <= 0 {
		return 0
	}
	return geometry.MedialKneeOffset(lm, l) / leg * r.valgusScale
}

// smooth records v and returns the weighted moving average of the history,
// weights 1..n with the newest value weighted highest.
func (r *Reconstructor) smooth(joint model.JointName, v float64) float64 {
	h := append(r.history[joint], v)
	if len(h) > r.window {
		h = h[len(h)-r.window:]
	}
	r.history[joint] = h

	var sum, weights float64
	for i, x := range h {
		w := float64(i + 1)
		sum += w * x
		weights += w
	}
	return sum / weights
}

// CalculateSymmetry scores left/right agreement over the canonical pairs:
// 100 at zero difference, 0 at 30 degrees or more. Pairs missing a side are
// skipped; with no usable pair the score is 100.
func CalculateSymmetry(angles model.JointAngles) float64 {
	var total float64
	var pairs int
	for _, p := range model.SymmetryPairs {
		l, okL := angles.Value(p.Left)
		rv, okR := angles.Value(p.Right)
		if !okL || !okR {
			continue
		}
		total += PairSymmetry(l, rv)
		pairs++
	}
	if pairs == 0 {
		return perfectSymmetry
	}
	return total / float64(pairs)
}

// PairSymmetry scores one left/right pair.
func PairSymmetry(left, right float64) float64 {
	diff := math.Abs(left - right)
	if diff >= symmetryMaxDiff {
		return 0
	}
	return perfectSymmetry * (1 - diff/symmetryMaxDiff)
}
