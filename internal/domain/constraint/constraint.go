// Package constraint checks reconstructed joint angles for anatomical
// plausibility and corrects implausible combinations.
package constraint

import (
	"fmt"
	"maps"
	"slices"

	"github.com/okian/kinetica/internal/domain/model"
)

// Severity grades a violation.
type Severity string

const (
	SeverityImpossible     Severity = "impossible"
	SeverityHighlyUnlikely Severity = "highly_unlikely"
	SeverityUnusual        Severity = "unusual"
)

// Penalty is the confidence deducted for one violation of this severity.
func (s Severity) Penalty() float64 {
	switch s {
	case SeverityImpossible:
		return 0.4
	case SeverityHighlyUnlikely:
		return 0.2
	case SeverityUnusual:
		return 0.1
	default:
		return 0
	}
}

const quickConfidence = 0.7

// Range is a static anatomical angle range in degrees.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Violation is one failed rule.
type Violation struct {
	Rule     string            `json:"rule"`
	Severity Severity          `json:"severity"`
	Joints   []model.JointName `json:"joints"`
	Message  string            `json:"message"`
}

// Result is the outcome of validating one frame's angles.
type Result struct {
	IsAnatomicallyPossible bool              `json:"isAnatomicallyPossible"`
	Confidence             float64           `json:"confidence"`
	Violations             []Violation       `json:"violations"`
	CorrectedAngles        model.JointAngles `json:"correctedAngles"`
}

// Validator evaluates a fixed, extensible rule set. It is immutable after
// construction and safe for concurrent use.
type Validator struct {
	rules  []Rule
	ranges map[model.JointName]Range
}

// New creates a Validator with the built-in rules and ranges.
func New(opts ...Option) *Validator {
	v := &Validator{
		rules:  DefaultRules(),
		ranges: DefaultRanges(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Ranges returns a copy of the static ranges.
func (v *Validator) Ranges() map[model.JointName]Range {
	return maps.Clone(v.ranges)
}

// ValidateJointCombination evaluates every rule and range. When violations
// exist the returned angles are corrected: rule heuristics are applied, flagged
// joints are clamped to their ranges and every confidence carries the penalty.
func (v *Validator) ValidateJointCombination(angles model.JointAngles) Result {
	deg := angles.Degrees()
	res := Result{IsAnatomicallyPossible: true, Confidence: 1}

	var fired []Rule
	for _, r := range v.rules {
		if !r.Check(deg) {
			continue
		}
		fired = append(fired, r)
		res.Violations = append(res.Violations, Violation{
			Rule: r.Name, Severity: r.Severity, Joints: r.Joints, Message: r.Message,
		})
	}

	var outOfRange []model.JointName
	for _, j := range slices.Sorted(maps.Keys(deg)) {
		rg, ok := v.ranges[j]
		if !ok {
			continue
		}
		if a := deg[j]; a < rg.Min || a > rg.Max {
			outOfRange = append(outOfRange, j)
			res.Violations = append(res.Violations, Violation{
				Rule:     "range_" + string(j),
				Severity: SeverityUnusual,
				Joints:   []model.JointName{j},
				Message:  fmt.Sprintf("%s at %.1f outside [%.0f, %.0f]", j, a, rg.Min, rg.Max),
			})
		}
	}

	for _, viol := range res.Violations {
		if viol.Severity == SeverityImpossible {
			res.IsAnatomicallyPossible = false
		}
		res.Confidence -= viol.Severity.Penalty()
	}
	res.Confidence = model.Clamp01(res.Confidence)

	if len(res.Violations) == 0 {
		res.CorrectedAngles = angles.Clone()
		return res
	}

	for _, r := range fired {
		if r.Correct != nil {
			r.Correct(deg)
		}
	}
	for _, j := range outOfRange {
		rg := v.ranges[j]
		deg[j] = model.Clamp(deg[j], rg.Min, rg.Max)
	}

	res.CorrectedAngles = make(model.JointAngles, len(angles))
	for j, ja := range angles {
		ja.Angle = deg[j]
		ja.Confidence = model.Clamp01(ja.Confidence * res.Confidence)
		res.CorrectedAngles[j] = ja
	}
	return res
}

// QuickValidateJoints is a cheap real-time gate. It fails on any impossible
// rule and otherwise passes when confidence exceeds 0.7 or nothing fired.
func (v *Validator) QuickValidateJoints(angles model.JointAngles) bool {
	deg := angles.Degrees()
	for _, r := range v.rules {
		if r.Severity == SeverityImpossible && r.Check(deg) {
			return false
		}
	}
	res := v.ValidateJointCombination(angles)
	return len(res.Violations) == 0 || res.Confidence > quickConfidence
}
