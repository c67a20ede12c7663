package model

// JointName identifies a reconstructed joint angle.
type JointName string

const (
	JointLeftElbow       JointName = "left_elbow"
	JointRightElbow      JointName = "right_elbow"
	JointLeftShoulder    JointName = "left_shoulder"
	JointRightShoulder   JointName = "right_shoulder"
	JointLeftHip         JointName = "left_hip"
	JointRightHip        JointName = "right_hip"
	JointLeftKnee        JointName = "left_knee"
	JointRightKnee       JointName = "right_knee"
	JointLeftAnkle       JointName = "left_ankle"
	JointRightAnkle      JointName = "right_ankle"
	JointTrunkLean       JointName = "trunk_lean"
	JointLeftKneeValgus  JointName = "left_knee_valgus"
	JointRightKneeValgus JointName = "right_knee_valgus"
	JointNeck            JointName = "neck"
	JointLumbarFlexion   JointName = "lumbar_flexion"
	JointLumbarRotation  JointName = "lumbar_rotation"
	JointLeftShoulderIR  JointName = "left_shoulder_internal_rotation"
	JointRightShoulderIR JointName = "right_shoulder_internal_rotation"
)

// Body regions referenced by issues and corrections. They never carry angles.
const (
	JointTrunk          JointName = "trunk"
	JointHead           JointName = "head"
	JointPelvis         JointName = "pelvis"
	JointShoulderGirdle JointName = "shoulder_girdle"
	JointKnee           JointName = "knee"
	JointHip            JointName = "hip"
	JointAnkle          JointName = "ankle"
	JointThoracicSpine  JointName = "thoracic_spine"
	JointScapula        JointName = "scapula"
	JointCervicalSpine  JointName = "cervical_spine"
	JointLumbarSpine    JointName = "lumbar_spine"
	JointCenterOfMass   JointName = "center_of_mass"
)

// Plane is the anatomical plane a joint angle is measured in.
type Plane string

const (
	PlaneSagittal   Plane = "sagittal"
	PlaneFrontal    Plane = "frontal"
	PlaneTransverse Plane = "transverse"
)

// JointAngle is a single reconstructed angle for one frame.
type JointAngle struct {
	Joint      JointName `json:"joint"`
	Angle      float64   `json:"angle"`
	Confidence float64   `json:"confidence"`
	Plane      Plane     `json:"plane"`
}

// JointAngles maps joint names to their per-frame angle.
type JointAngles map[JointName]JointAngle

// Value returns the angle for joint and whether it is present.
func (a JointAngles) Value(joint JointName) (float64, bool) {
	ja, ok := a[joint]
	if !ok {
		return 0, false
	}
	return ja.Angle, true
}

// Clone returns an independent copy.
func (a JointAngles) Clone() JointAngles {
	out := make(JointAngles, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Degrees flattens the map to joint -> degrees.
func (a JointAngles) Degrees() map[JointName]float64 {
	out := make(map[JointName]float64, len(a))
	for k, v := range a {
		out[k] = v.Angle
	}
	return out
}

// JointPair is a canonical left/right pair used for symmetry.
type JointPair struct {
	Left  JointName
	Right JointName
}

// SymmetryPairs are the five canonical bilateral pairs.
var SymmetryPairs = []JointPair{
	{Left: JointLeftElbow, Right: JointRightElbow},
	{Left: JointLeftShoulder, Right: JointRightShoulder},
	{Left: JointLeftHip, Right: JointRightHip},
	{Left: JointLeftKnee, Right: JointRightKnee},
	{Left: JointLeftAnkle, Right: JointRightAnkle},
}
