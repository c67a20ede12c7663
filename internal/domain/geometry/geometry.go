// Package geometry holds the vector helpers used to turn landmarks into angles.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/okian/kinetica/internal/domain/model"
)

// up points towards the top of the image; landmark Y grows downwards.
var up = r3.Vec{Y: -1}

// Vec converts a landmark to a 3D vector.
func Vec(l model.Landmark) r3.Vec {
	return r3.Vec{X: l.X, Y: l.Y, Z: l.Z}
}

// Planar converts a landmark to a vector in the image plane.
func Planar(l model.Landmark) r3.Vec {
	return r3.Vec{X: l.X, Y: l.Y}
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Midpoint returns the landmark halfway between a and b. Visibility is the lower of the two.
func Midpoint(a, b model.Landmark) model.Landmark {
	return model.Landmark{
		X:          (a.X + b.X) / 2,
		Y:          (a.Y + b.Y) / 2,
		Z:          (a.Z + b.Z) / 2,
		Visibility: math.Min(a.Visibility, b.Visibility),
	}
}

// Distance is the image-plane distance between a and b.
func Distance(a, b model.Landmark) float64 {
	return r3.Norm(r3.Sub(Planar(a), Planar(b)))
}

// Angle returns the angle at vertex b formed by a-b-c, in degrees [0,180].
// Degenerate segments yield 0.
func Angle(a, b, c model.Landmark) float64 {
	return vecAngle(r3.Sub(Vec(a), Vec(b)), r3.Sub(Vec(c), Vec(b)))
}

// PlanarFromVertical returns the angle of the segment from -> to against
// straight up in the image plane, in degrees [0,180].
func PlanarFromVertical(from, to model.Landmark) float64 {
	return vecAngle(r3.Sub(Planar(to), Planar(from)), up)
}

// SagittalFromVertical is the forward/backward tilt of from -> to, measured in
// the Y-Z plane.
func SagittalFromVertical(from, to model.Landmark) float64 {
	d := r3.Sub(Vec(to), Vec(from))
	d.X = 0
	return vecAngle(d, up)
}

// TransverseAngle is the angle between two lines projected on the X-Z plane,
// in degrees [0,90].
func TransverseAngle(a1, a2, b1, b2 model.Landmark) float64 {
	da := r3.Sub(Vec(a2), Vec(a1))
	db := r3.Sub(Vec(b2), Vec(b1))
	da.Y, db.Y = 0, 0
	ang := vecAngle(da, db)
	if ang > 90 {
		ang = 180 - ang
	}
	return ang
}

// LateralOffset returns the signed image-plane distance of p from the line a -> b.
// Positive values lie to the right of the direction of travel in image coordinates.
func LateralOffset(p, a, b model.Landmark) float64 {
	ab := r3.Sub(Planar(b), Planar(a))
	n := r3.Norm(ab)
	if n == 0 {
		return 0
	}
	ap := r3.Sub(Planar(p), Planar(a))
	return r3.Cross(ab, ap).Z / n
}

// SagittalOffset returns the signed distance of p from the line a -> b in the
// Y-Z plane. Positive values lie behind the line, away from the camera, when
// the line runs downwards.
func SagittalOffset(p, a, b model.Landmark) float64 {
	dy, dz := b.Y-a.Y, b.Z-a.Z
	n := math.Hypot(dy, dz)
	if n == 0 {
		return 0
	}
	return (dy*(p.Z-a.Z) - dz*(p.Y-a.Y)) / n
}

func vecAngle(u, v r3.Vec) float64 {
	if r3.Norm(u) == 0 || r3.Norm(v) == 0 {
		return 0
	}
	cos := r3.Cos(u, v)
	return Degrees(math.Acos(math.Max(-1, math.Min(1, cos))))
}
