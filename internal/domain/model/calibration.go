package model

import "time"

// Default profile values used until a session completes calibration.
// Lengths are in normalized image units, angles in degrees.
const (
	DefaultStandingHeight = 0.75
	DefaultShoulderWidth  = 0.20
	DefaultArmLength      = 0.32
	DefaultLegLength      = 0.45

	DefaultNeutralElbow    = 170.0
	DefaultNeutralShoulder = 10.0
	DefaultNeutralHip      = 175.0
	DefaultNeutralKnee     = 175.0
)

// NeutralJoints are the eight joints captured during calibration.
var NeutralJoints = []JointName{
	JointLeftElbow, JointRightElbow,
	JointLeftShoulder, JointRightShoulder,
	JointLeftHip, JointRightHip,
	JointLeftKnee, JointRightKnee,
}

// CalibrationProfile is a per-user baseline. It is never mutated after
// capture; a new calibration replaces it entirely.
type CalibrationProfile struct {
	StandingHeight     float64               `json:"standingHeight"`
	ShoulderWidth      float64               `json:"shoulderWidth"`
	ArmLength          float64               `json:"armLength"`
	LegLength          float64               `json:"legLength"`
	NeutralJointAngles map[JointName]float64 `json:"neutralJointAngles"`
	CapturedAt         time.Time             `json:"capturedAt"`
}

// DefaultCalibrationProfile returns the documented fallback profile.
func DefaultCalibrationProfile() CalibrationProfile {
	return CalibrationProfile{
		StandingHeight: DefaultStandingHeight,
		ShoulderWidth:  DefaultShoulderWidth,
		ArmLength:      DefaultArmLength,
		LegLength:      DefaultLegLength,
		NeutralJointAngles: map[JointName]float64{
			JointLeftElbow:     DefaultNeutralElbow,
			JointRightElbow:    DefaultNeutralElbow,
			JointLeftShoulder:  DefaultNeutralShoulder,
			JointRightShoulder: DefaultNeutralShoulder,
			JointLeftHip:       DefaultNeutralHip,
			JointRightHip:      DefaultNeutralHip,
			JointLeftKnee:      DefaultNeutralKnee,
			JointRightKnee:     DefaultNeutralKnee,
		},
	}
}

// IsDefault reports whether p is the uncaptured fallback profile.
func (p CalibrationProfile) IsDefault() bool {
	return p.CapturedAt.IsZero()
}

// Neutral returns the neutral angle for joint, falling back to the default profile.
func (p CalibrationProfile) Neutral(joint JointName) (float64, bool) {
	if v, ok := p.NeutralJointAngles[joint]; ok {
		return v, true
	}
	v, ok := DefaultCalibrationProfile().NeutralJointAngles[joint]
	return v, ok
}

// NeutralOffset is the calibrated neutral angle minus the default neutral angle.
func (p CalibrationProfile) NeutralOffset(joint JointName) float64 {
	def, ok := DefaultCalibrationProfile().NeutralJointAngles[joint]
	if !ok {
		return 0
	}
	v, _ := p.Neutral(joint)
	return v - def
}
