package simulator

import (
	"math"

	"github.com/okian/kinetica/internal/domain/model"
)

// Body segment lengths in normalized image units.
const (
	thighLength    = 0.22
	shankLength    = 0.22
	torsoLength    = 0.26
	upperArmLength = 0.15
	forearmLength  = 0.14
	neckLength     = 0.10
	footLength     = 0.08
	heelOffset     = 0.03

	defaultShoulderWidth = 0.20
	defaultHipWidth      = 0.16
	defaultVisibility    = 0.95
	floorY               = 0.90
	centerX              = 0.5
)

// Pose describes a synthetic body posture. Angles are in degrees; the zero
// value of every fault field means a clean movement.
type Pose struct {
	KneeAngle         float64 // 180 is a straight leg
	TorsoForward      float64 // sagittal torso tilt
	TrunkLean         float64 // lateral torso tilt, positive towards the subject's left
	ShoulderAbduction float64
	ElbowAngle        float64 // 180 is a straight arm
	HeadForward       float64
	Plantarflexion    float64
	ValgusLeft        float64 // medial knee drift in normalized units
	ValgusRight       float64
	ShoulderHike      float64 // left shoulder raised by this amount
	HipDrop           float64 // right hip lowered by this amount
	WeightShift       float64 // pelvis shifted towards the subject's left
	Visibility        float64
}

// Standing is an upright neutral pose.
func Standing() Pose {
	return Pose{KneeAngle: 180, ElbowAngle: 175, ShoulderAbduction: 8}
}

// Squat returns a clean squat posture at the given knee angle. The torso
// tilts forward with depth.
func Squat(kneeAngle float64) Pose {
	p := Standing()
	p.KneeAngle = kneeAngle
	p.TorsoForward = (180 - kneeAngle) / 3
	return p
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

// Landmarks renders the pose as a full 33-point landmark array. The subject
// faces the camera, so their left side appears at larger X. Y grows downwards
// and negative Z points towards the camera.
func (p Pose) Landmarks() model.Landmarks {
	vis := p.Visibility
	if vis == 0 {
		vis = defaultVisibility
	}
	lm := make(model.Landmarks, model.MinLandmarks)
	for i := range lm {
		lm[i].Visibility = vis
	}
	set := func(idx model.LandmarkIndex, x, y, z float64) {
		lm[idx] = model.Landmark{X: x, Y: y, Z: z, Visibility: vis}
	}

	knee := p.KneeAngle
	if knee == 0 {
		knee = 180
	}
	// The shank takes 40% of the flexion and the thigh the rest, which keeps
	// the ankle within its normal dorsiflexion range at full depth.
	flex := 180 - knee
	shank, thigh := rad(flex*0.4), rad(flex*0.6)
	hipY := floorY - shankLength*math.Cos(shank) - thighLength*math.Cos(thigh)
	hipZ := thighLength*math.Sin(thigh) - shankLength*math.Sin(shank)
	pelvisX := centerX + p.WeightShift

	for _, side := range []struct {
		sx                     float64
		hip, knee, ankle, heel model.LandmarkIndex
		foot                   model.LandmarkIndex
		valgus, drop           float64
	}{
		{1, model.LeftHip, model.LeftKnee, model.LeftAnkle, model.LeftHeel, model.LeftFootIndex, p.ValgusLeft, 0},
		{-1, model.RightHip, model.RightKnee, model.RightAnkle, model.RightHeel, model.RightFootIndex, p.ValgusRight, p.HipDrop},
	} {
		hx := pelvisX + side.sx*defaultHipWidth/2
		ax := centerX + side.sx*defaultHipWidth/2
		set(side.hip, hx, hipY+side.drop, hipZ)
		kx := (hx+ax)/2 - side.sx*side.valgus
		set(side.knee, kx, floorY-shankLength*math.Cos(shank), -shankLength*math.Sin(shank))
		set(side.ankle, ax, floorY, 0)
		pf := rad(p.Plantarflexion)
		set(side.foot, ax, floorY+footLength*math.Sin(pf), -footLength*math.Cos(pf))
		set(side.heel, ax, floorY+0.01, heelOffset)
	}

	lean, fwd := rad(p.TrunkLean), rad(p.TorsoForward)
	hipMidY := hipY + p.HipDrop/2
	shoulderMidX := pelvisX + torsoLength*math.Sin(lean)
	shoulderMidY := hipMidY - torsoLength*math.Cos(lean)*math.Cos(fwd)
	shoulderMidZ := hipZ - torsoLength*math.Cos(lean)*math.Sin(fwd)

	leftShoulder := [3]float64{shoulderMidX + defaultShoulderWidth/2, shoulderMidY - p.ShoulderHike, shoulderMidZ}
	rightShoulder := [3]float64{shoulderMidX - defaultShoulderWidth/2, shoulderMidY, shoulderMidZ}
	set(model.LeftShoulder, leftShoulder[0], leftShoulder[1], leftShoulder[2])
	set(model.RightShoulder, rightShoulder[0], rightShoulder[1], rightShoulder[2])

	abd := rad(p.ShoulderAbduction)
	elbowBend := rad(180 - p.ElbowAngle)
	for _, arm := range []struct {
		sx                  float64
		origin              [3]float64
		elbow, wrist        model.LandmarkIndex
		pinky, index, thumb model.LandmarkIndex
	}{
		{1, leftShoulder, model.LeftElbow, model.LeftWrist, model.LeftPinky, model.LeftIndex, model.LeftThumb},
		{-1, rightShoulder, model.RightElbow, model.RightWrist, model.RightPinky, model.RightIndex, model.RightThumb},
	} {
		dx, dy := arm.sx*math.Sin(abd), math.Cos(abd)
		ex := arm.origin[0] + upperArmLength*dx
		ey := arm.origin[1] + upperArmLength*dy
		ez := arm.origin[2]
		set(arm.elbow, ex, ey, ez)
		fx := math.Cos(elbowBend) * dx
		fy := math.Cos(elbowBend) * dy
		fz := -math.Sin(elbowBend)
		wx, wy, wz := ex+forearmLength*fx, ey+forearmLength*fy, ez+forearmLength*fz
		set(arm.wrist, wx, wy, wz)
		set(arm.pinky, wx+arm.sx*0.01, wy+0.02, wz)
		set(arm.index, wx, wy+0.025, wz)
		set(arm.thumb, wx-arm.sx*0.01, wy+0.015, wz)
	}

	// The head follows the torso tilt plus any forward head carriage.
	head := rad(p.HeadForward) + fwd
	earX := shoulderMidX + neckLength*math.Sin(lean)
	earY := shoulderMidY - p.ShoulderHike/2 - neckLength*math.Cos(lean)*math.Cos(head)
	earZ := shoulderMidZ - neckLength*math.Cos(lean)*math.Sin(head)
	set(model.LeftEar, earX+0.035, earY, earZ)
	set(model.RightEar, earX-0.035, earY, earZ)
	set(model.Nose, earX, earY+0.005, earZ-0.04)
	set(model.LeftEyeInner, earX+0.01, earY-0.01, earZ-0.035)
	set(model.LeftEye, earX+0.017, earY-0.01, earZ-0.035)
	set(model.LeftEyeOuter, earX+0.024, earY-0.01, earZ-0.03)
	set(model.RightEyeInner, earX-0.01, earY-0.01, earZ-0.035)
	set(model.RightEye, earX-0.017, earY-0.01, earZ-0.035)
	set(model.RightEyeOuter, earX-0.024, earY-0.01, earZ-0.03)
	set(model.MouthLeft, earX+0.012, earY+0.025, earZ-0.035)
	set(model.MouthRight, earX-0.012, earY+0.025, earZ-0.035)

	return lm
}
