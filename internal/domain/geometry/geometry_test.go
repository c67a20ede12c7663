package geometry_test

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kinetica/internal/domain/geometry"
	"github.com/okian/kinetica/internal/domain/model"
)

func pt(x, y float64) model.Landmark {
	return model.Landmark{X: x, Y: y, Visibility: 1}
}

func TestAngle(t *testing.T) {
	Convey("Given three points", t, func() {
		Convey("A straight line is 180 degrees", func() {
			So(geometry.Angle(pt(0, 0), pt(0, 1), pt(0, 2)), ShouldAlmostEqual, 180, 1e-9)
		})

		Convey("A right angle is 90 degrees", func() {
			So(geometry.Angle(pt(0, 0), pt(0, 1), pt(1, 1)), ShouldAlmostEqual, 90, 1e-9)
		})

		Convey("A degenerate segment yields zero", func() {
			So(geometry.Angle(pt(1, 1), pt(1, 1), pt(2, 2)), ShouldEqual, 0)
		})
	})
}

func TestFromVertical(t *testing.T) {
	Convey("Segments are measured against straight up", t, func() {
		So(geometry.PlanarFromVertical(pt(0.5, 0.6), pt(0.5, 0.3)), ShouldAlmostEqual, 0, 1e-9)
		So(geometry.PlanarFromVertical(pt(0.5, 0.6), pt(0.8, 0.3)), ShouldAlmostEqual, 45, 1e-9)
		So(geometry.PlanarFromVertical(pt(0.5, 0.6), pt(0.8, 0.6)), ShouldAlmostEqual, 90, 1e-9)
	})

	Convey("Forward tilt only shows up outside the image plane", t, func() {
		from := model.Landmark{X: 0.5, Y: 0.6}
		to := model.Landmark{X: 0.5, Y: 0.3, Z: -0.3}
		So(geometry.PlanarFromVertical(from, to), ShouldAlmostEqual, 0, 1e-9)
		So(geometry.SagittalFromVertical(from, to), ShouldAlmostEqual, 45, 1e-9)
	})

	Convey("Sagittal tilt ignores sideways lean", t, func() {
		from := model.Landmark{X: 0.5, Y: 0.6}
		to := model.Landmark{X: 0.9, Y: 0.3, Z: -0.3}
		So(geometry.SagittalFromVertical(from, to), ShouldAlmostEqual, 45, 1e-9)
	})
}

func TestKneeAngle(t *testing.T) {
	Convey("Given a leg from hip to ankle", t, func() {
		lm := make(model.Landmarks, model.MinLandmarks)
		lm[model.LeftHip] = model.Landmark{X: 0.5, Y: 0.4}
		lm[model.LeftAnkle] = model.Landmark{X: 0.5, Y: 0.8}
		knee := func(z float64) float64 {
			lm[model.LeftKnee] = model.Landmark{X: 0.5, Y: 0.6, Z: z}
			return geometry.KneeAngle(lm, geometry.Left)
		}
		bend := geometry.Degrees(2 * math.Atan(0.02/0.2))

		Convey("A straight leg is 180 degrees", func() {
			So(knee(0), ShouldAlmostEqual, 180, 1e-9)
		})

		Convey("A knee in front of the line flexes below 180", func() {
			So(knee(-0.02), ShouldAlmostEqual, 180-bend, 1e-9)
		})

		Convey("A knee behind the line reads as hyperextension past 180", func() {
			So(knee(0.02), ShouldAlmostEqual, 180+bend, 1e-9)
		})

		Convey("The sagittal offset is signed by side", func() {
			So(geometry.SagittalOffset(lm[model.LeftHip], lm[model.LeftHip], lm[model.LeftAnkle]), ShouldEqual, 0)
			So(geometry.SagittalOffset(model.Landmark{Y: 0.6, Z: 0.02}, lm[model.LeftHip], lm[model.LeftAnkle]), ShouldAlmostEqual, 0.02, 1e-9)
			So(geometry.SagittalOffset(model.Landmark{Y: 0.6, Z: -0.02}, lm[model.LeftHip], lm[model.LeftAnkle]), ShouldAlmostEqual, -0.02, 1e-9)
		})
	})
}

func TestTransverseAngle(t *testing.T) {
	Convey("Parallel lines have no rotation", t, func() {
		a1, a2 := model.Landmark{X: 0.4}, model.Landmark{X: 0.6}
		b1, b2 := model.Landmark{X: 0.4, Y: 0.5}, model.Landmark{X: 0.6, Y: 0.5}
		So(geometry.TransverseAngle(a1, a2, b1, b2), ShouldAlmostEqual, 0, 1e-9)
	})

	Convey("Twisted lines report the rotation", t, func() {
		a1, a2 := model.Landmark{X: 0.4, Z: -0.1}, model.Landmark{X: 0.6, Z: 0.1}
		b1, b2 := model.Landmark{X: 0.4, Y: 0.5}, model.Landmark{X: 0.6, Y: 0.5}
		So(geometry.TransverseAngle(a1, a2, b1, b2), ShouldAlmostEqual, 45, 1e-9)
	})
}

func TestLateralOffset(t *testing.T) {
	Convey("Offsets are signed by side of the line", t, func() {
		a, b := pt(0.5, 0.4), pt(0.5, 0.8)
		left := geometry.LateralOffset(pt(0.45, 0.6), a, b)
		right := geometry.LateralOffset(pt(0.55, 0.6), a, b)

		So(math.Abs(left), ShouldAlmostEqual, 0.05, 1e-9)
		So(left, ShouldAlmostEqual, -right, 1e-9)
		So(geometry.LateralOffset(pt(0.5, 0.6), a, b), ShouldAlmostEqual, 0, 1e-9)
		So(geometry.LateralOffset(pt(0.5, 0.6), a, a), ShouldEqual, 0)
	})

	Convey("Midpoint and distance", t, func() {
		m := geometry.Midpoint(model.Landmark{X: 0, Y: 0, Visibility: 0.4}, model.Landmark{X: 1, Y: 1, Visibility: 0.9})
		So(m.X, ShouldEqual, 0.5)
		So(m.Visibility, ShouldEqual, 0.4)
		So(geometry.Distance(pt(0, 0), pt(0.3, 0.4)), ShouldAlmostEqual, 0.5, 1e-9)
	})
}
