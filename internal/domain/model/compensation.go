package model

// CompensationType is the closed set of detectable compensations.
type CompensationType string

const (
	CompensationTrunkLean    CompensationType = "trunk_lean"
	CompensationKneeValgus   CompensationType = "knee_valgus"
	CompensationWeightShift  CompensationType = "weight_shift"
	CompensationShoulderHike CompensationType = "shoulder_hike"
	CompensationHipDrop      CompensationType = "hip_drop"
	CompensationForwardHead  CompensationType = "forward_head"
)

// CompensationTypes lists every compensation type in detection order.
var CompensationTypes = []CompensationType{
	CompensationTrunkLean,
	CompensationKneeValgus,
	CompensationWeightShift,
	CompensationShoulderHike,
	CompensationHipDrop,
	CompensationForwardHead,
}

// Severity grades a compensation. The zero value is below every grade.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Rank orders severities: mild=1, moderate=2, severe=3, unknown=0.
func (s Severity) Rank() int {
	switch s {
	case SeverityMild:
		return 1
	case SeverityModerate:
		return 2
	case SeveritySevere:
		return 3
	default:
		return 0
	}
}

// Side is the body side a compensation applies to. Empty means bilateral/central.
type Side string

const (
	SideNone  Side = ""
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// CompensationPattern is one detected compensation for a frame.
type CompensationPattern struct {
	Type       CompensationType `json:"type"`
	Severity   Severity         `json:"severity"`
	Side       Side             `json:"side,omitempty"`
	Value      float64          `json:"value"`
	Threshold  float64          `json:"threshold"`
	Correction string           `json:"correction"`
}

// ExerciseCategory scopes which compensation detectors run.
type ExerciseCategory string

const (
	CategoryLegs    ExerciseCategory = "LEGS"
	CategoryUpper   ExerciseCategory = "UPPER"
	CategoryCore    ExerciseCategory = "CORE"
	CategoryBalance ExerciseCategory = "BALANCE"
	CategoryGeneral ExerciseCategory = "GENERAL"
)

// ParseCategory maps a string to a category, defaulting to GENERAL.
func ParseCategory(s string) ExerciseCategory {
	switch ExerciseCategory(s) {
	case CategoryLegs, CategoryUpper, CategoryCore, CategoryBalance:
		return ExerciseCategory(s)
	default:
		return CategoryGeneral
	}
}
