package compensation_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kinetica/internal/domain/compensation"
	"github.com/okian/kinetica/internal/domain/model"
	"github.com/okian/kinetica/internal/simulator"
)

func types(list []model.CompensationPattern) []model.CompensationType {
	out := make([]model.CompensationType, 0, len(list))
	for _, p := range list {
		out = append(out, p.Type)
	}
	return out
}

func TestDetectCompensations(t *testing.T) {
	Convey("Given a detector", t, func() {
		d := compensation.New()

		Convey("A clean standing pose has no compensations", func() {
			So(d.DetectCompensations(simulator.Standing().Landmarks(), nil, model.CategoryGeneral), ShouldBeEmpty)
		})

		Convey("A clean squat has no compensations", func() {
			So(d.DetectCompensations(simulator.Squat(90).Landmarks(), nil, model.CategoryLegs), ShouldBeEmpty)
		})

		Convey("A lateral trunk lean is graded", func() {
			p := simulator.Standing()
			p.TrunkLean = 30
			list := d.DetectCompensations(p.Landmarks(), nil, model.CategoryGeneral)

			So(list, ShouldHaveLength, 1)
			So(list[0].Type, ShouldEqual, model.CompensationTrunkLean)
			So(list[0].Severity, ShouldEqual, model.SeverityModerate)
			So(list[0].Threshold, ShouldEqual, 25.0)
			So(list[0].Side, ShouldEqual, model.SideLeft)
			So(list[0].Value, ShouldAlmostEqual, 30, 1e-6)
			So(list[0].Correction, ShouldNotBeEmpty)
		})

		Convey("The smoothed trunk angle wins over the raw landmarks", func() {
			angles := model.JointAngles{model.JointTrunkLean: {Angle: 40}}
			list := d.DetectCompensations(simulator.Standing().Landmarks(), angles, model.CategoryGeneral)
			So(list, ShouldHaveLength, 1)
			So(list[0].Severity, ShouldEqual, model.SeveritySevere)
		})

		Convey("Knee valgus is reported per side", func() {
			p := simulator.Squat(120)
			p.ValgusRight = 0.05
			list := d.DetectCompensations(p.Landmarks(), nil, model.CategoryLegs)

			So(list, ShouldHaveLength, 1)
			So(list[0].Type, ShouldEqual, model.CompensationKneeValgus)
			So(list[0].Side, ShouldEqual, model.SideRight)
			So(list[0].Severity, ShouldEqual, model.SeverityModerate)

			Convey("but never for upper body exercises", func() {
				So(d.DetectCompensations(p.Landmarks(), nil, model.CategoryUpper), ShouldBeEmpty)
			})
		})

		Convey("A lateral weight shift is measured against hip width", func() {
			p := simulator.Standing()
			p.WeightShift = -0.05
			list := d.DetectCompensations(p.Landmarks(), nil, model.CategoryBalance)

			So(types(list), ShouldResemble, []model.CompensationType{model.CompensationWeightShift})
			So(list[0].Side, ShouldEqual, model.SideRight)
			So(list[0].Value, ShouldAlmostEqual, 0.3125, 1e-6)
			So(list[0].Severity, ShouldEqual, model.SeverityModerate)
		})

		Convey("A hiked shoulder is skipped for leg exercises", func() {
			p := simulator.Standing()
			p.ShoulderHike = 0.04
			list := d.DetectCompensations(p.Landmarks(), nil, model.CategoryUpper)

			So(types(list), ShouldResemble, []model.CompensationType{model.CompensationShoulderHike})
			So(list[0].Side, ShouldEqual, model.SideLeft)
			So(list[0].Severity, ShouldEqual, model.SeverityModerate)
			So(d.DetectCompensations(p.Landmarks(), nil, model.CategoryLegs), ShouldBeEmpty)
		})

		Convey("A dropped hip is skipped for upper body exercises", func() {
			p := simulator.Standing()
			p.HipDrop = 0.03
			list := d.DetectCompensations(p.Landmarks(), nil, model.CategoryCore)

			So(types(list), ShouldResemble, []model.CompensationType{model.CompensationHipDrop})
			So(list[0].Side, ShouldEqual, model.SideRight)
			So(d.DetectCompensations(p.Landmarks(), nil, model.CategoryUpper), ShouldBeEmpty)
		})

		Convey("Forward head carriage is graded by its tilt from the trunk", func() {
			p := simulator.Standing()
			p.HeadForward = 20
			list := d.DetectCompensations(p.Landmarks(), nil, model.CategoryUpper)

			So(types(list), ShouldResemble, []model.CompensationType{model.CompensationForwardHead})
			So(list[0].Value, ShouldAlmostEqual, 20, 1e-6)
			So(list[0].Severity, ShouldEqual, model.SeverityMild)
		})

		Convey("Findings are sorted severe first", func() {
			p := simulator.Squat(120)
			p.TrunkLean = 18
			p.ValgusLeft = 0.08
			list := d.DetectCompensations(p.Landmarks(), nil, model.CategoryLegs)

			So(types(list), ShouldResemble, []model.CompensationType{
				model.CompensationKneeValgus, model.CompensationTrunkLean,
			})
			So(list[0].Severity, ShouldEqual, model.SeveritySevere)
			So(list[1].Severity, ShouldEqual, model.SeverityMild)

			Convey("and can be truncated", func() {
				top := compensation.GetTopCompensations(list, 1)
				So(types(top), ShouldResemble, []model.CompensationType{model.CompensationKneeValgus})
				So(compensation.GetTopCompensations(list, 5), ShouldHaveLength, 2)
				So(compensation.GetTopCompensations(list, 0), ShouldBeEmpty)
			})
		})

		Convey("Occluded landmarks disable the affected detectors", func() {
			p := simulator.Standing()
			p.TrunkLean = 30
			lm := p.Landmarks()
			lm[model.LeftHip].Visibility = 0.2
			So(d.DetectCompensations(lm, nil, model.CategoryGeneral), ShouldBeEmpty)
		})

		Convey("Incomplete frames yield nothing", func() {
			So(d.DetectCompensations(simulator.Standing().Landmarks()[:30], nil, model.CategoryGeneral), ShouldBeNil)
		})
	})
}

func TestApplies(t *testing.T) {
	Convey("Category scoping", t, func() {
		So(compensation.Applies(model.CompensationKneeValgus, model.CategoryBalance), ShouldBeTrue)
		So(compensation.Applies(model.CompensationKneeValgus, model.CategoryCore), ShouldBeFalse)
		So(compensation.Applies(model.CompensationHipDrop, model.CategoryUpper), ShouldBeFalse)
		So(compensation.Applies(model.CompensationForwardHead, model.CategoryLegs), ShouldBeFalse)
		So(compensation.Applies(model.CompensationTrunkLean, model.CategoryUpper), ShouldBeTrue)
	})

	Convey("Every type has a correction", t, func() {
		for _, ct := range model.CompensationTypes {
			So(compensation.Correction(ct), ShouldNotBeEmpty)
		}
	})

	Convey("Exercise names are classified", t, func() {
		So(compensation.GetExerciseCategory("Bulgarian split squat"), ShouldEqual, model.CategoryLegs)
		So(compensation.GetExerciseCategory("single leg balance"), ShouldEqual, model.CategoryBalance)
	})
}
