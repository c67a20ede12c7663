package pose_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kinetica/internal/domain/geometry"
	"github.com/okian/kinetica/internal/domain/model"
	"github.com/okian/kinetica/internal/domain/pose"
	"github.com/okian/kinetica/internal/simulator"
)

func TestCalculateJointAngles(t *testing.T) {
	Convey("Given a reconstructor with the default profile", t, func() {
		r := pose.New(model.DefaultCalibrationProfile())

		Convey("A standing frame yields an extended posture", func() {
			a := r.CalculateJointAngles(simulator.Standing().Landmarks())

			So(a[model.JointLeftKnee].Angle, ShouldAlmostEqual, 180, 1e-6)
			So(a[model.JointRightKnee].Angle, ShouldAlmostEqual, 180, 1e-6)
			So(a[model.JointLeftHip].Angle, ShouldBeGreaterThan, 170)
			So(a[model.JointTrunkLean].Angle, ShouldAlmostEqual, 0, 1e-6)
			So(a[model.JointLumbarFlexion].Angle, ShouldAlmostEqual, 0, 1e-6)
			So(a[model.JointLumbarRotation].Angle, ShouldAlmostEqual, 0, 1e-6)
			So(a[model.JointNeck].Angle, ShouldAlmostEqual, 180, 1e-6)
			So(a[model.JointLeftAnkle].Angle, ShouldAlmostEqual, 0, 1e-6)
			So(a[model.JointLeftKneeValgus].Angle, ShouldAlmostEqual, 0, 1e-6)
			So(a[model.JointLeftKnee].Plane, ShouldEqual, model.PlaneSagittal)
			So(a[model.JointLumbarRotation].Plane, ShouldEqual, model.PlaneTransverse)
			So(a[model.JointLeftKnee].Confidence, ShouldAlmostEqual, 0.95, 1e-9)
			So(pose.CalculateSymmetry(a), ShouldAlmostEqual, 100, 1e-6)
		})

		Convey("A squat frame yields the knee angle it was built with", func() {
			lm := simulator.Squat(90).Landmarks()
			var a model.JointAngles
			for range pose.DefaultSmoothingWindow {
				a = r.CalculateJointAngles(lm)
			}
			So(a[model.JointLeftKnee].Angle, ShouldAlmostEqual, 90, 1e-6)
			So(a[model.JointLeftAnkle].Angle, ShouldAlmostEqual, 36, 1e-6)
			So(a[model.JointLumbarFlexion].Angle, ShouldAlmostEqual, 30, 1e-6)
		})

		Convey("A knee locked back past straight reads above 180", func() {
			p := simulator.Standing()
			p.KneeAngle = 186
			a := r.CalculateJointAngles(p.Landmarks())
			So(a[model.JointLeftKnee].Angle, ShouldAlmostEqual, 186, 1e-6)
			So(a[model.JointRightKnee].Angle, ShouldAlmostEqual, 186, 1e-6)
		})

		Convey("Knee drift towards the midline reads as valgus", func() {
			p := simulator.Standing()
			p.ValgusLeft = 0.03
			p.ValgusRight = 0.03
			a := r.CalculateJointAngles(p.Landmarks())

			want := 0.03 / model.DefaultLegLength * pose.DefaultValgusScale
			So(a[model.JointLeftKneeValgus].Angle, ShouldAlmostEqual, want, 1e-6)
			So(a[model.JointRightKneeValgus].Angle, ShouldAlmostEqual, want, 1e-6)
		})

		Convey("The valgus scale is tunable", func() {
			scaled := pose.New(model.DefaultCalibrationProfile(), pose.WithValgusScale(100))
			p := simulator.Standing()
			p.ValgusLeft = 0.045
			a := scaled.CalculateJointAngles(p.Landmarks())
			So(a[model.JointLeftKneeValgus].Angle, ShouldAlmostEqual, 10, 1e-6)
		})

		Convey("An upside-down body fails the sanity check", func() {
			lm := simulator.Standing().Landmarks()
			for i := range lm {
				lm[i].Y = 1 - lm[i].Y
			}
			So(r.CalculateJointAngles(lm), ShouldBeEmpty)
		})

		Convey("Collapsed shoulders fail the sanity check", func() {
			lm := simulator.Standing().Landmarks()
			lm[model.RightShoulder] = lm[model.LeftShoulder]
			So(pose.SanityCheck(lm), ShouldBeFalse)
			So(r.CalculateJointAngles(lm), ShouldBeEmpty)
		})

		Convey("Too few landmarks yield an empty map", func() {
			So(r.CalculateJointAngles(simulator.Standing().Landmarks()[:12]), ShouldBeEmpty)
		})

		Convey("Joints below the visibility floor are omitted", func() {
			lm := simulator.Standing().Landmarks()
			lm[model.LeftWrist].Visibility = 0.05
			a := r.CalculateJointAngles(lm)
			_, ok := a[model.JointLeftElbow]
			So(ok, ShouldBeFalse)
			_, ok = a[model.JointRightElbow]
			So(ok, ShouldBeTrue)
		})
	})
}

func TestSmoothing(t *testing.T) {
	Convey("Given a reconstructor that has seen a deep squat", t, func() {
		r := pose.New(model.DefaultCalibrationProfile())
		deep := simulator.Squat(90).Landmarks()
		for range 3 {
			r.CalculateJointAngles(deep)
		}
		standing := simulator.Standing().Landmarks()
		raw := geometry.KneeAngle(standing, geometry.Left)

		Convey("A single standing frame is pulled towards the history", func() {
			a := r.CalculateJointAngles(standing)
			So(a[model.JointLeftKnee].Angle, ShouldBeLessThan, raw-1)
		})

		Convey("Repeating the standing frame converges on the raw angle", func() {
			var prev float64
			for i := range pose.DefaultSmoothingWindow {
				a := r.CalculateJointAngles(standing)
				if i > 0 {
					So(a[model.JointLeftKnee].Angle, ShouldBeGreaterThanOrEqualTo, prev)
				}
				prev = a[model.JointLeftKnee].Angle
			}
			So(prev, ShouldAlmostEqual, raw, 1e-9)
		})

		Convey("ResetSmoothing forgets the history", func() {
			r.ResetSmoothing()
			a := r.CalculateJointAngles(standing)
			So(a[model.JointLeftKnee].Angle, ShouldAlmostEqual, raw, 1e-9)
		})
	})
}

func TestCalculateSymmetry(t *testing.T) {
	pair := func(l, r float64) model.JointAngles {
		return model.JointAngles{
			model.JointLeftKnee:  {Joint: model.JointLeftKnee, Angle: l},
			model.JointRightKnee: {Joint: model.JointRightKnee, Angle: r},
		}
	}

	Convey("Symmetry scoring", t, func() {
		So(pose.CalculateSymmetry(pair(120, 120)), ShouldEqual, 100.0)
		So(pose.CalculateSymmetry(pair(120, 90)), ShouldEqual, 0.0)
		So(pose.CalculateSymmetry(pair(150, 90)), ShouldEqual, 0.0)
		So(pose.CalculateSymmetry(pair(120, 105)), ShouldAlmostEqual, 50, 1e-9)

		Convey("It decreases monotonically with the difference", func() {
			prev := 101.0
			for d := 0.0; d <= 35; d += 2.5 {
				s := pose.CalculateSymmetry(pair(100+d, 100))
				So(s, ShouldBeLessThanOrEqualTo, prev)
				prev = s
			}
		})

		Convey("Pairs missing a side are skipped", func() {
			a := pair(120, 120)
			a[model.JointLeftElbow] = model.JointAngle{Angle: 10}
			So(pose.CalculateSymmetry(a), ShouldEqual, 100.0)
		})

		Convey("No pairs at all is perfectly symmetric", func() {
			So(pose.CalculateSymmetry(model.JointAngles{}), ShouldEqual, 100.0)
		})
	})
}

func TestProfile(t *testing.T) {
	Convey("Neutral offsets follow the installed profile", t, func() {
		r := pose.New(model.DefaultCalibrationProfile())
		So(r.NeutralOffset(model.JointLeftKnee), ShouldEqual, 0.0)

		p := model.DefaultCalibrationProfile()
		p.NeutralJointAngles[model.JointLeftKnee] = 170
		r.SetProfile(p)
		So(r.NeutralOffset(model.JointLeftKnee), ShouldEqual, -5.0)
		So(r.Profile().NeutralJointAngles[model.JointLeftKnee], ShouldEqual, 170.0)
	})
}
