package calibration_test

import (
	"math"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kinetica/internal/domain/calibration"
	"github.com/okian/kinetica/internal/domain/geometry"
	"github.com/okian/kinetica/internal/domain/model"
	"github.com/okian/kinetica/internal/simulator"
)

func standing(i int) model.Landmarks {
	p := simulator.Standing()
	// Small deterministic sway so the measurements differ between frames.
	p.TrunkLean = math.Sin(float64(i)) * 2
	p.KneeAngle = 178 + math.Cos(float64(i))
	p.ShoulderAbduction = 8 + float64(i%3)
	return p.Landmarks()
}

func occluded() model.Landmarks {
	lm := simulator.Standing().Landmarks()
	lm[model.LeftAnkle].Visibility = 0.1
	return lm
}

func TestCalibrator(t *testing.T) {
	Convey("Given a calibrator with a short target", t, func() {
		captured := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		c := calibration.New(
			calibration.WithTargetFrames(10),
			calibration.WithConsecutiveFrames(3),
			calibration.WithClock(func() time.Time { return captured }),
		)

		Convey("Frames are only accepted after a stable streak", func() {
			So(c.AddFrame(standing(0)).Status, ShouldEqual, calibration.StatusStabilizing)
			So(c.AddFrame(standing(1)).Status, ShouldEqual, calibration.StatusStabilizing)
			p := c.AddFrame(standing(2))
			So(p.Status, ShouldEqual, calibration.StatusAccepted)
			So(p.Accepted, ShouldEqual, 1)

			Convey("An occluded frame resets the streak", func() {
				p := c.AddFrame(occluded())
				So(p.Status, ShouldEqual, calibration.StatusRejected)
				So(p.Accepted, ShouldEqual, 1)
				So(c.AddFrame(standing(3)).Status, ShouldEqual, calibration.StatusStabilizing)
			})
		})

		Convey("Short frames are rejected", func() {
			So(c.AddFrame(standing(0)[:20]).Status, ShouldEqual, calibration.StatusRejected)
		})

		Convey("No profile exists before the target is reached", func() {
			_, ok := c.Profile()
			So(ok, ShouldBeFalse)
		})

		Convey("When the target frame count is reached", func() {
			var frames []model.Landmarks
			var last calibration.Progress
			for i := 0; !last.Complete; i++ {
				lm := standing(i)
				last = c.AddFrame(lm)
				if i >= 2 {
					frames = append(frames, lm)
				}
			}
			So(last.Status, ShouldEqual, calibration.StatusComplete)
			So(last.Accepted, ShouldEqual, 10)
			So(frames, ShouldHaveLength, 10)

			profile, ok := c.Profile()
			So(ok, ShouldBeTrue)
			So(profile.CapturedAt, ShouldEqual, captured)
			So(profile.IsDefault(), ShouldBeFalse)
			So(profile.NeutralJointAngles, ShouldHaveLength, len(model.NeutralJoints))

			Convey("Every measurement lies within the range of the accepted frames", func() {
				within := func(v float64, f func(model.Landmarks) float64) {
					lo, hi := math.Inf(1), math.Inf(-1)
					for _, lm := range frames {
						x := f(lm)
						lo, hi = math.Min(lo, x), math.Max(hi, x)
					}
					So(v, ShouldBeGreaterThanOrEqualTo, lo-1e-9)
					So(v, ShouldBeLessThanOrEqualTo, hi+1e-9)
				}
				within(profile.StandingHeight, geometry.StandingHeight)
				within(profile.ShoulderWidth, geometry.ShoulderWidth)
				within(profile.NeutralJointAngles[model.JointLeftKnee], func(lm model.Landmarks) float64 {
					return geometry.KneeAngle(lm, geometry.Left)
				})
				within(profile.NeutralJointAngles[model.JointRightShoulder], func(lm model.Landmarks) float64 {
					return geometry.ShoulderAbduction(lm, geometry.Right)
				})
			})

			Convey("Further frames do not change the profile", func() {
				So(c.AddFrame(standing(99)).Status, ShouldEqual, calibration.StatusComplete)
				again, _ := c.Profile()
				So(again.StandingHeight, ShouldEqual, profile.StandingHeight)
			})

			Convey("Cancel keeps a completed profile", func() {
				c.Cancel()
				_, ok := c.Profile()
				So(ok, ShouldBeTrue)
			})

			Convey("Reset discards it", func() {
				c.Reset()
				_, ok := c.Profile()
				So(ok, ShouldBeFalse)
				So(c.Progress().Accepted, ShouldEqual, 0)
			})
		})

		Convey("When cancelled", func() {
			for i := range 5 {
				c.AddFrame(standing(i))
			}
			c.Cancel()

			p := c.AddFrame(standing(6))
			So(p.Status, ShouldEqual, calibration.StatusCancelled)
			So(p.Accepted, ShouldEqual, 0)
			_, ok := c.Profile()
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Defaults", t, func() {
		p := calibration.New().Progress()
		So(p.Target, ShouldEqual, calibration.DefaultTargetFrames)
		So(p.Complete, ShouldBeFalse)
	})
}
