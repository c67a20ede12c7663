// Package model contains domain models passed between layers.
package model

import "time"

// MinLandmarks is the number of landmarks a frame must carry.
const MinLandmarks = 33

// LandmarkIndex identifies a body part in the fixed 33-point pose layout.
// Indices follow the MediaPipe pose convention.
type LandmarkIndex int

const (
	Nose LandmarkIndex = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex
)

// Landmark is a tracked anatomical point in normalized image space.
// Y grows downwards, as produced by pose trackers.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Landmarks is an ordered landmark array indexed by LandmarkIndex.
type Landmarks []Landmark

// Complete reports whether the array carries the full body layout.
func (l Landmarks) Complete() bool {
	return len(l) >= MinLandmarks
}

// At returns the landmark at idx, or a zero landmark when idx is out of range.
func (l Landmarks) At(idx LandmarkIndex) Landmark {
	if int(idx) < 0 || int(idx) >= len(l) {
		return Landmark{}
	}
	return l[idx]
}

// Visible reports whether every listed landmark meets the visibility threshold.
func (l Landmarks) Visible(minVisibility float64, idx ...LandmarkIndex) bool {
	for _, i := range idx {
		if int(i) >= len(l) || l[i].Visibility < minVisibility {
			return false
		}
	}
	return true
}

// MinVisibility returns the lowest visibility among the listed landmarks.
func (l Landmarks) MinVisibility(idx ...LandmarkIndex) float64 {
	lowest := 1.0
	for _, i := range idx {
		v := l.At(i).Visibility
		if v < lowest {
			lowest = v
		}
	}
	return Clamp01(lowest)
}

// Frame is one landmark sample delivered by the external tracker.
type Frame struct {
	ID        string    `json:"frame_id"`
	Timestamp time.Time `json:"ts"`
	Landmarks Landmarks `json:"landmarks"`
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Clamp bounds v to [lo,hi].
func Clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
