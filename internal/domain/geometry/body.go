package geometry

import (
	"math"

	"github.com/okian/kinetica/internal/domain/model"
)

// Limb groups the landmarks of one side of the body.
type Limb struct {
	Ear, Shoulder, Elbow, Wrist, Hip, Knee, Ankle, Heel, Foot model.LandmarkIndex
}

// Left and Right are the landmark layouts of each body side.
var (
	Left = Limb{
		Ear: model.LeftEar, Shoulder: model.LeftShoulder, Elbow: model.LeftElbow, Wrist: model.LeftWrist,
		Hip: model.LeftHip, Knee: model.LeftKnee, Ankle: model.LeftAnkle, Heel: model.LeftHeel, Foot: model.LeftFootIndex,
	}
	Right = Limb{
		Ear: model.RightEar, Shoulder: model.RightShoulder, Elbow: model.RightElbow, Wrist: model.RightWrist,
		Hip: model.RightHip, Knee: model.RightKnee, Ankle: model.RightAnkle, Heel: model.RightHeel, Foot: model.RightFootIndex,
	}
)

// ElbowAngle is the shoulder-elbow-wrist angle.
func ElbowAngle(lm model.Landmarks, s Limb) float64 {
	return Angle(lm.At(s.Shoulder), lm.At(s.Elbow), lm.At(s.Wrist))
}

// ShoulderAbduction is the angle between the upper arm and the trunk:
// 0 with the arm at the side, 180 overhead.
func ShoulderAbduction(lm model.Landmarks, s Limb) float64 {
	return Angle(lm.At(s.Elbow), lm.At(s.Shoulder), lm.At(s.Hip))
}

// HipAngle is the shoulder-hip-knee angle.
func HipAngle(lm model.Landmarks, s Limb) float64 {
	return Angle(lm.At(s.Shoulder), lm.At(s.Hip), lm.At(s.Knee))
}

// KneeAngle is the hip-knee-ankle angle. A knee pushed behind the hip-ankle
// line reads past 180 as hyperextension.
func KneeAngle(lm model.Landmarks, s Limb) float64 {
	hip, knee, ankle := lm.At(s.Hip), lm.At(s.Knee), lm.At(s.Ankle)
	deg := Angle(hip, knee, ankle)
	if SagittalOffset(knee, hip, ankle) > 0 {
		return 360 - deg
	}
	return deg
}

// AnkleDorsiflexion is 90 minus the knee-ankle-foot angle: positive when the
// shin moves over the toes, negative in plantarflexion.
func AnkleDorsiflexion(lm model.Landmarks, s Limb) float64 {
	return 90 - Angle(lm.At(s.Knee), lm.At(s.Ankle), lm.At(s.Foot))
}

// ArmLength sums the upper arm and forearm segments.
func ArmLength(lm model.Landmarks, s Limb) float64 {
	return Distance(lm.At(s.Shoulder), lm.At(s.Elbow)) + Distance(lm.At(s.Elbow), lm.At(s.Wrist))
}

// LegLength sums the thigh and shank segments.
func LegLength(lm model.Landmarks, s Limb) float64 {
	return Distance(lm.At(s.Hip), lm.At(s.Knee)) + Distance(lm.At(s.Knee), lm.At(s.Ankle))
}

// ShoulderWidth is the distance between the shoulders.
func ShoulderWidth(lm model.Landmarks) float64 {
	return Distance(lm.At(model.LeftShoulder), lm.At(model.RightShoulder))
}

// HipWidth is the distance between the hips.
func HipWidth(lm model.Landmarks) float64 {
	return Distance(lm.At(model.LeftHip), lm.At(model.RightHip))
}

// StandingHeight is the vertical extent from the nose to the lowest ankle.
func StandingHeight(lm model.Landmarks) float64 {
	lowest := math.Max(lm.At(model.LeftAnkle).Y, lm.At(model.RightAnkle).Y)
	return math.Abs(lowest - lm.At(model.Nose).Y)
}

// ShoulderMid returns the midpoint of the shoulders.
func ShoulderMid(lm model.Landmarks) model.Landmark {
	return Midpoint(lm.At(model.LeftShoulder), lm.At(model.RightShoulder))
}

// HipMid returns the midpoint of the hips.
func HipMid(lm model.Landmarks) model.Landmark {
	return Midpoint(lm.At(model.LeftHip), lm.At(model.RightHip))
}

// AnkleMid returns the midpoint of the ankles.
func AnkleMid(lm model.Landmarks) model.Landmark {
	return Midpoint(lm.At(model.LeftAnkle), lm.At(model.RightAnkle))
}

// EarMid returns the midpoint of the ears.
func EarMid(lm model.Landmarks) model.Landmark {
	return Midpoint(lm.At(model.LeftEar), lm.At(model.RightEar))
}

// MedialKneeOffset is the knee's distance from the hip-ankle line, positive
// when the knee falls towards the body midline.
func MedialKneeOffset(lm model.Landmarks, s Limb) float64 {
	hip, ankle := lm.At(s.Hip), lm.At(s.Ankle)
	off := LateralOffset(lm.At(s.Knee), hip, ankle)
	if LateralOffset(HipMid(lm), hip, ankle) < 0 {
		off = -off
	}
	return off
}
