// Package compensation detects movement compensations in a single frame.
package compensation

import (
	"cmp"
	"math"
	"slices"

	"github.com/okian/kinetica/internal/domain/exercise"
	"github.com/okian/kinetica/internal/domain/geometry"
	"github.com/okian/kinetica/internal/domain/model"
)

// DefaultMinVisibility is the landmark visibility detectors require.
const DefaultMinVisibility = 0.5

// thresholds are the mild, moderate and severe cut-offs of one detector.
type thresholds [3]float64

var (
	trunkLeanThresholds    = thresholds{15, 25, 35}
	kneeValgusThresholds   = thresholds{0.05, 0.10, 0.15}
	weightShiftThresholds  = thresholds{0.15, 0.30, 0.45}
	shoulderHikeThresholds = thresholds{0.08, 0.15, 0.25}
	hipDropThresholds      = thresholds{0.08, 0.15, 0.25}
	forwardHeadThresholds  = thresholds{15, 25, 35}
)

// grade maps a metric to a severity and the threshold it crossed. ok is false
// below the mild threshold.
func (t thresholds) grade(v float64) (model.Severity, float64, bool) {
	switch {
	case v >= t[2]:
		return model.SeveritySevere, t[2], true
	case v >= t[1]:
		return model.SeverityModerate, t[1], true
	case v >= t[0]:
		return model.SeverityMild, t[0], true
	default:
		return "", 0, false
	}
}

// Detector runs the fixed set of compensation detectors. It holds no per-frame
// state and is safe for concurrent use.
type Detector struct {
	minVisibility float64
}

// New creates a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{minVisibility: DefaultMinVisibility}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Applies reports whether a detector runs for an exercise category.
func Applies(t model.CompensationType, c model.ExerciseCategory) bool {
	switch t {
	case model.CompensationKneeValgus:
		return c == model.CategoryLegs || c == model.CategoryBalance || c == model.CategoryGeneral
	case model.CompensationHipDrop:
		return c != model.CategoryUpper
	case model.CompensationShoulderHike, model.CompensationForwardHead:
		return c != model.CategoryLegs
	case model.CompensationTrunkLean, model.CompensationWeightShift:
		return true
	default:
		return false
	}
}

// DetectCompensations runs every detector that applies to category and returns
// the findings sorted severe-first, then by metric value. Frames without the
// full landmark layout yield nil.
func (d *Detector) DetectCompensations(lm model.Landmarks, angles model.JointAngles, category model.ExerciseCategory) []model.CompensationPattern {
	if !lm.Complete() {
		return nil
	}
	var out []model.CompensationPattern
	emit := func(t model.CompensationType, side model.Side, value float64, th thresholds) {
		sev, limit, ok := th.grade(value)
		if !ok {
			return
		}
		out = append(out, model.CompensationPattern{
			Type:       t,
			Severity:   sev,
			Side:       side,
			Value:      value,
			Threshold:  limit,
			Correction: Correction(t),
		})
	}

	for _, t := range model.CompensationTypes {
		if !Applies(t, category) {
			continue
		}
		switch t {
		case model.CompensationTrunkLean:
			if v, side, ok := d.trunkLean(lm, angles); ok {
				emit(t, side, v, trunkLeanThresholds)
			}
		case model.CompensationKneeValgus:
			for _, s := range []struct {
				limb geometry.Limb
				side model.Side
			}{{geometry.Left, model.SideLeft}, {geometry.Right, model.SideRight}} {
				if v, ok := d.kneeValgus(lm, s.limb); ok {
					emit(t, s.side, v, kneeValgusThresholds)
				}
			}
		case model.CompensationWeightShift:
			if v, side, ok := d.weightShift(lm); ok {
				emit(t, side, v, weightShiftThresholds)
			}
		case model.CompensationShoulderHike:
			if v, side, ok := d.shoulderHike(lm); ok {
				emit(t, side, v, shoulderHikeThresholds)
			}
		case model.CompensationHipDrop:
			if v, side, ok := d.hipDrop(lm); ok {
				emit(t, side, v, hipDropThresholds)
			}
		case model.CompensationForwardHead:
			if v, ok := d.forwardHead(lm, angles); ok {
				emit(t, model.SideNone, v, forwardHeadThresholds)
			}
		}
	}

	slices.SortStableFunc(out, func(a, b model.CompensationPattern) int {
		if c := cmp.Compare(b.Severity.Rank(), a.Severity.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(b.Value, a.Value)
	})
	return out
}

func (d *Detector) visible(lm model.Landmarks, idx ...model.LandmarkIndex) bool {
	return lm.Visible(d.minVisibility, idx...)
}

// sideOf names the subject side lying at larger image X when dx > 0.
func sideOf(dx float64) model.Side {
	switch {
	case dx > 0:
		return model.SideLeft
	case dx < 0:
		return model.SideRight
	default:
		return model.SideNone
	}
}

func (d *Detector) trunkLean(lm model.Landmarks, angles model.JointAngles) (float64, model.Side, bool) {
	if !d.visible(lm, model.LeftShoulder, model.RightShoulder, model.LeftHip, model.RightHip) {
		return 0, "", false
	}
	hipMid, shoulderMid := geometry.HipMid(lm), geometry.ShoulderMid(lm)
	v, ok := angles.Value(model.JointTrunkLean)
	if !ok {
		v = geometry.PlanarFromVertical(hipMid, shoulderMid)
	}
	return v, sideOf(shoulderMid.X - hipMid.X), true
}

// kneeValgus returns the medial knee offset as a ratio of the leg length.
func (d *Detector) kneeValgus(lm model.Landmarks, l geometry.Limb) (float64, bool) {
	if !d.visible(lm, l.Hip, l.Knee, l.Ankle) {
		return 0, false
	}
	leg := geometry.LegLength(lm, l)
	if leg <= 0 {
		return 0, false
	}
	return geometry.MedialKneeOffset(lm, l) / leg, true
}

// weightShift is the lateral pelvis offset over the ankles as a ratio of hip width.
func (d *Detector) weightShift(lm model.Landmarks) (float64, model.Side, bool) {
	if !d.visible(lm, model.LeftHip, model.RightHip, model.LeftAnkle, model.RightAnkle) {
		return 0, "", false
	}
	width := geometry.HipWidth(lm)
	if width <= 0 {
		return 0, "", false
	}
	dx := geometry.HipMid(lm).X - geometry.AnkleMid(lm).X
	return math.Abs(dx) / width, sideOf(dx), true
}

// shoulderHike is the shoulder height difference as a ratio of shoulder width.
// The side is the raised shoulder.
func (d *Detector) shoulderHike(lm model.Landmarks) (float64, model.Side, bool) {
	if !d.visible(lm, model.LeftShoulder, model.RightShoulder) {
		return 0, "", false
	}
	width := geometry.ShoulderWidth(lm)
	if width <= 0 {
		return 0, "", false
	}
	dy := lm.At(model.RightShoulder).Y - lm.At(model.LeftShoulder).Y
	return math.Abs(dy) / width, sideOf(dy), true
}

// hipDrop is the hip height difference as a ratio of hip width. The side is
// the lower hip.
func (d *Detector) hipDrop(lm model.Landmarks) (float64, model.Side, bool) {
	if !d.visible(lm, model.LeftHip, model.RightHip) {
		return 0, "", false
	}
	width := geometry.HipWidth(lm)
	if width <= 0 {
		return 0, "", false
	}
	dy := lm.At(model.LeftHip).Y - lm.At(model.RightHip).Y
	return math.Abs(dy) / width, sideOf(dy), true
}

// forwardHead is how far the shoulder-to-ear line tips away from the trunk axis.
func (d *Detector) forwardHead(lm model.Landmarks, angles model.JointAngles) (float64, bool) {
	if !d.visible(lm, model.LeftEar, model.RightEar, model.LeftShoulder, model.RightShoulder) {
		return 0, false
	}
	if neck, ok := angles.Value(model.JointNeck); ok {
		return math.Max(0, 180-neck), true
	}
	neck := geometry.Angle(geometry.EarMid(lm), geometry.ShoulderMid(lm), geometry.HipMid(lm))
	return math.Max(0, 180-neck), true
}

// Correction is the coaching cue for a compensation type.
func Correction(t model.CompensationType) string {
	switch t {
	case model.CompensationTrunkLean:
		return "Keep your chest up and your torso centered over your hips"
	case model.CompensationKneeValgus:
		return "Push your knees out in line with your toes"
	case model.CompensationWeightShift:
		return "Spread your weight evenly across both feet"
	case model.CompensationShoulderHike:
		return "Relax your shoulders down and away from your ears"
	case model.CompensationHipDrop:
		return "Keep your hips level by engaging your glutes"
	case model.CompensationForwardHead:
		return "Tuck your chin and keep your head stacked over your shoulders"
	default:
		return ""
	}
}

// GetTopCompensations returns at most n patterns from an already sorted list.
func GetTopCompensations(list []model.CompensationPattern, n int) []model.CompensationPattern {
	if n <= 0 || len(list) == 0 {
		return nil
	}
	if n > len(list) {
		n = len(list)
	}
	return slices.Clone(list[:n])
}

// GetExerciseCategory classifies a free-text exercise name.
func GetExerciseCategory(name string) model.ExerciseCategory {
	return exercise.Classify(name)
}
