package constraint

import (
	"math"

	"github.com/okian/kinetica/internal/domain/model"
)

// Rule thresholds in degrees.
const (
	fullHipExtension     = 170.0
	fullKneeExtension    = 170.0
	fullAnklePlantarflex = -45.0
	plantarflexCap       = -30.0

	kneeHyperextension = 185.0
	deepHipFlexion     = 70.0

	shoulderIRLimit        = 60.0
	shoulderAbductionLimit = 120.0
	shoulderIRCap          = 30.0

	lumbarRotationLimit = 30.0
	lumbarFlexionLimit  = 50.0

	trunkLeanLimit    = 45.0
	straightHipLimit  = 170.0
	dorsiflexionLimit = 40.0
	straightKneeLimit = 160.0
)

// Rule is a coupled-motion constraint. Check reports a violation; Correct, when
// set, adjusts the angles in place after a violation.
type Rule struct {
	Name     string
	Severity Severity
	Joints   []model.JointName
	Message  string
	Check    func(a map[model.JointName]float64) bool
	Correct  func(a map[model.JointName]float64)
}

// all reports whether every joint is present and satisfies pred.
func all(a map[model.JointName]float64, pred func(float64) bool, joints ...model.JointName) bool {
	for _, j := range joints {
		v, ok := a[j]
		if !ok || !pred(v) {
			return false
		}
	}
	return true
}

func atLeast(t float64) func(float64) bool { return func(v float64) bool { return v >= t } }
func atMost(t float64) func(float64) bool  { return func(v float64) bool { return v <= t } }
func above(t float64) func(float64) bool   { return func(v float64) bool { return v > t } }
func below(t float64) func(float64) bool   { return func(v float64) bool { return v < t } }

// capAt lowers present joints to at most hi.
func capAt(a map[model.JointName]float64, hi float64, joints ...model.JointName) {
	for _, j := range joints {
		if v, ok := a[j]; ok {
			a[j] = math.Min(v, hi)
		}
	}
}

// floorAt raises present joints to at least lo.
func floorAt(a map[model.JointName]float64, lo float64, joints ...model.JointName) {
	for _, j := range joints {
		if v, ok := a[j]; ok {
			a[j] = math.Max(v, lo)
		}
	}
}

// sideRule builds the same coupled check for the left and right side.
func sideRule(name string, sev Severity, msg string,
	first, second [2]model.JointName,
	p1, p2 func(float64) bool,
	fix func(a map[model.JointName]float64, side int),
) []Rule {
	rules := make([]Rule, 0, 2)
	for side, suffix := range []string{"_left", "_right"} {
		a, b := first[side], second[side]
		r := Rule{
			Name:     name + suffix,
			Severity: sev,
			Joints:   []model.JointName{a, b},
			Message:  msg,
			Check: func(m map[model.JointName]float64) bool {
				return all(m, p1, a) && all(m, p2, b)
			},
		}
		if fix != nil {
			r.Correct = func(m map[model.JointName]float64) { fix(m, side) }
		}
		rules = append(rules, r)
	}
	return rules
}

var (
	hips   = [2]model.JointName{model.JointLeftHip, model.JointRightHip}
	knees  = [2]model.JointName{model.JointLeftKnee, model.JointRightKnee}
	ankles = [2]model.JointName{model.JointLeftAnkle, model.JointRightAnkle}
	shIR   = [2]model.JointName{model.JointLeftShoulderIR, model.JointRightShoulderIR}
	shAbd  = [2]model.JointName{model.JointLeftShoulder, model.JointRightShoulder}
)

// DefaultRules returns the built-in coupled-motion rule set.
func DefaultRules() []Rule {
	rules := []Rule{
		{
			Name:     "bilateral_full_extension",
			Severity: SeverityImpossible,
			Joints:   []model.JointName{hips[0], hips[1], knees[0], knees[1], ankles[0], ankles[1]},
			Message:  "hips, knees and ankles cannot all be fully extended on both legs",
			Check: func(a map[model.JointName]float64) bool {
				return all(a, atLeast(fullHipExtension), hips[:]...) &&
					all(a, atLeast(fullKneeExtension), knees[:]...) &&
					all(a, atMost(fullAnklePlantarflex), ankles[:]...)
			},
			Correct: func(a map[model.JointName]float64) {
				floorAt(a, plantarflexCap, ankles[:]...)
			},
		},
	}
	rules = append(rules, sideRule("knee_hyperextension_hip_flexion", SeverityImpossible,
		"knee hyperextension cannot occur with deep hip flexion",
		knees, hips, above(kneeHyperextension), below(deepHipFlexion),
		func(a map[model.JointName]float64, side int) { capAt(a, 180, knees[side]) },
	)...)
	rules = append(rules, sideRule("shoulder_rotation_abduction", SeverityImpossible,
		"shoulder internal rotation is blocked above 120 degrees of abduction",
		shIR, shAbd, above(shoulderIRLimit), above(shoulderAbductionLimit),
		func(a map[model.JointName]float64, side int) { capAt(a, shoulderIRCap, shIR[side]) },
	)...)
	rules = append(rules,
		Rule{
			Name:     "lumbar_rotation_flexion",
			Severity: SeverityHighlyUnlikely,
			Joints:   []model.JointName{model.JointLumbarRotation, model.JointLumbarFlexion},
			Message:  "lumbar rotation is restricted under heavy flexion",
			Check: func(a map[model.JointName]float64) bool {
				return all(a, above(lumbarRotationLimit), model.JointLumbarRotation) &&
					all(a, above(lumbarFlexionLimit), model.JointLumbarFlexion)
			},
			Correct: func(a map[model.JointName]float64) {
				capAt(a, lumbarRotationLimit, model.JointLumbarRotation)
			},
		},
		Rule{
			Name:     "trunk_lean_straight_hips",
			Severity: SeverityHighlyUnlikely,
			Joints:   []model.JointName{model.JointTrunkLean, hips[0], hips[1]},
			Message:  "a large trunk lean with both hips straight is unlikely",
			Check: func(a map[model.JointName]float64) bool {
				return all(a, above(trunkLeanLimit), model.JointTrunkLean) &&
					all(a, above(straightHipLimit), hips[:]...)
			},
			Correct: func(a map[model.JointName]float64) {
				capAt(a, trunkLeanLimit, model.JointTrunkLean)
			},
		},
	)
	rules = append(rules, sideRule("ankle_dorsiflexion_straight_knee", SeverityUnusual,
		"deep ankle dorsiflexion with a straight knee is unusual",
		ankles, knees, above(dorsiflexionLimit), above(straightKneeLimit),
		func(a map[model.JointName]float64, side int) { capAt(a, dorsiflexionLimit, ankles[side]) },
	)...)
	return rules
}

// DefaultRanges returns the static anatomical range per joint.
func DefaultRanges() map[model.JointName]Range {
	return map[model.JointName]Range{
		model.JointLeftElbow:       {0, 185},
		model.JointRightElbow:      {0, 185},
		model.JointLeftShoulder:    {0, 180},
		model.JointRightShoulder:   {0, 180},
		model.JointLeftHip:         {20, 190},
		model.JointRightHip:        {20, 190},
		model.JointLeftKnee:        {20, 190},
		model.JointRightKnee:       {20, 190},
		model.JointLeftAnkle:       {-50, 40},
		model.JointRightAnkle:      {-50, 40},
		model.JointTrunkLean:       {0, 60},
		model.JointLeftKneeValgus:  {-45, 45},
		model.JointRightKneeValgus: {-45, 45},
		model.JointNeck:            {100, 185},
		model.JointLumbarFlexion:   {0, 100},
		model.JointLumbarRotation:  {0, 45},
		model.JointLeftShoulderIR:  {-90, 90},
		model.JointRightShoulderIR: {-90, 90},
	}
}
