package kinetic

import "github.com/okian/kinetica/internal/domain/model"

// related lists the hypotheses a compensation supports: primary, secondary,
// tertiary.
func related(t model.CompensationType) []model.Dysfunction {
	switch t {
	case model.CompensationKneeValgus:
		return []model.Dysfunction{model.DysfunctionKneeValgus, model.DysfunctionGluteWeakness, model.DysfunctionAnkleDorsiflexion}
	case model.CompensationTrunkLean:
		return []model.Dysfunction{model.DysfunctionCoreInstability, model.DysfunctionAnkleDorsiflexion, model.DysfunctionHipFlexorTightness}
	case model.CompensationWeightShift:
		return []model.Dysfunction{model.DysfunctionGluteWeakness, model.DysfunctionCoreInstability}
	case model.CompensationHipDrop:
		return []model.Dysfunction{model.DysfunctionGluteWeakness, model.DysfunctionCoreInstability}
	case model.CompensationShoulderHike:
		return []model.Dysfunction{model.DysfunctionScapularDyskinesis, model.DysfunctionThoracicHypomobility}
	case model.CompensationForwardHead:
		return []model.Dysfunction{model.DysfunctionForwardHeadPosture, model.DysfunctionThoracicHypomobility, model.DysfunctionScapularDyskinesis}
	default:
		return nil
	}
}

// compensationSegment is where a compensation shows up in the chain.
func compensationSegment(t model.CompensationType) model.ChainSegment {
	switch t {
	case model.CompensationKneeValgus, model.CompensationWeightShift, model.CompensationHipDrop:
		return model.ChainLower
	case model.CompensationTrunkLean:
		return model.ChainCore
	case model.CompensationShoulderHike, model.CompensationForwardHead:
		return model.ChainUpper
	default:
		return ""
	}
}

// dysfunctionSegment is the chain segment a dysfunction originates in.
func dysfunctionSegment(d model.Dysfunction) model.ChainSegment {
	switch d {
	case model.DysfunctionAnkleDorsiflexion, model.DysfunctionKneeValgus,
		model.DysfunctionHipFlexorTightness, model.DysfunctionGluteWeakness:
		return model.ChainLower
	case model.DysfunctionCoreInstability:
		return model.ChainCore
	case model.DysfunctionThoracicHypomobility, model.DysfunctionScapularDyskinesis,
		model.DysfunctionForwardHeadPosture:
		return model.ChainUpper
	default:
		return ""
	}
}

func explanation(t model.CompensationType) string {
	switch t {
	case model.CompensationKneeValgus:
		return "The knee collapses inward, loading the medial knee and shifting force away from the hip."
	case model.CompensationTrunkLean:
		return "The torso tips sideways, moving the center of mass off the base of support."
	case model.CompensationWeightShift:
		return "Weight drifts towards one leg, letting the stronger side carry the movement."
	case model.CompensationShoulderHike:
		return "One shoulder elevates, recruiting the upper trapezius instead of the shoulder blade stabilizers."
	case model.CompensationHipDrop:
		return "The pelvis drops on one side, a sign the hip abductors are not holding it level."
	case model.CompensationForwardHead:
		return "The head drifts forward of the shoulders, loading the neck extensors."
	default:
		return ""
	}
}

func corrections(t model.CompensationType) []model.JointCorrection {
	switch t {
	case model.CompensationKneeValgus:
		return []model.JointCorrection{
			{Joint: model.JointKnee, Correction: "Track the knees over the second toe"},
			{Joint: model.JointHip, Correction: "Drive the knees out by squeezing the glutes"},
			{Joint: model.JointAnkle, Correction: "Keep the arch of the foot lifted"},
		}
	case model.CompensationTrunkLean:
		return []model.JointCorrection{
			{Joint: model.JointTrunk, Correction: "Brace the core and keep the ribs stacked over the pelvis"},
			{Joint: model.JointHip, Correction: "Sit back into the hips rather than folding at the waist"},
		}
	case model.CompensationWeightShift:
		return []model.JointCorrection{
			{Joint: model.JointCenterOfMass, Correction: "Keep pressure even through both heels"},
			{Joint: model.JointPelvis, Correction: "Keep the belt line centered between the feet"},
		}
	case model.CompensationShoulderHike:
		return []model.JointCorrection{
			{Joint: model.JointShoulderGirdle, Correction: "Draw the shoulder blades down and back"},
			{Joint: model.JointScapula, Correction: "Lead the movement with the shoulder blade, not the neck"},
		}
	case model.CompensationHipDrop:
		return []model.JointCorrection{
			{Joint: model.JointPelvis, Correction: "Keep the hip bones level"},
			{Joint: model.JointHip, Correction: "Press the standing leg into the floor to fire the glute"},
		}
	case model.CompensationForwardHead:
		return []model.JointCorrection{
			{Joint: model.JointCervicalSpine, Correction: "Tuck the chin to stack the ears over the shoulders"},
			{Joint: model.JointThoracicSpine, Correction: "Lift the chest to open the upper back"},
		}
	default:
		return nil
	}
}

func source(d model.Dysfunction) string {
	switch d {
	case model.DysfunctionAnkleDorsiflexion:
		return "Limited ankle dorsiflexion"
	case model.DysfunctionKneeValgus:
		return "Dynamic knee valgus"
	case model.DysfunctionHipFlexorTightness:
		return "Hip flexor tightness"
	case model.DysfunctionGluteWeakness:
		return "Gluteal weakness"
	case model.DysfunctionCoreInstability:
		return "Core instability"
	case model.DysfunctionThoracicHypomobility:
		return "Thoracic hypomobility"
	case model.DysfunctionScapularDyskinesis:
		return "Scapular dyskinesis"
	case model.DysfunctionForwardHeadPosture:
		return "Forward head posture"
	default:
		return "No dominant dysfunction"
	}
}

func rootExplanation(d model.Dysfunction) string {
	switch d {
	case model.DysfunctionAnkleDorsiflexion:
		return "A stiff ankle stops the shin from travelling forward, so the knees, hips and trunk compensate."
	case model.DysfunctionKneeValgus:
		return "The knee is not held in line with the hip and foot under load."
	case model.DysfunctionHipFlexorTightness:
		return "Tight hip flexors keep the pelvis tilted and limit hip extension."
	case model.DysfunctionGluteWeakness:
		return "The gluteal muscles are not controlling hip position, so the knee and pelvis drift."
	case model.DysfunctionCoreInstability:
		return "The trunk is not held rigid, letting the spine and pelvis move under load."
	case model.DysfunctionThoracicHypomobility:
		return "A stiff upper back limits overhead and rotational range, pushing motion to the neck and lower back."
	case model.DysfunctionScapularDyskinesis:
		return "The shoulder blade is not moving in rhythm with the arm."
	case model.DysfunctionForwardHeadPosture:
		return "The head is carried forward of the trunk, loading the cervical spine."
	default:
		return "Observed compensations are minor or inconsistent; no single source explains them."
	}
}

func clinical(d model.Dysfunction) []string {
	switch d {
	case model.DysfunctionAnkleDorsiflexion:
		return []string{"Assess knee-to-wall dorsiflexion range", "Rule out prior ankle sprain or Achilles stiffness"}
	case model.DysfunctionKneeValgus:
		return []string{"Screen for patellofemoral pain", "Check foot pronation and hip abductor strength"}
	case model.DysfunctionHipFlexorTightness:
		return []string{"Perform a Thomas test", "Consider prolonged sitting as a contributor"}
	case model.DysfunctionGluteWeakness:
		return []string{"Test hip abduction and extension strength", "Observe single leg stance for Trendelenburg sign"}
	case model.DysfunctionCoreInstability:
		return []string{"Assess trunk endurance holds", "Screen for low back pain history"}
	case model.DysfunctionThoracicHypomobility:
		return []string{"Measure seated thoracic rotation", "Check overhead shoulder flexion range"}
	case model.DysfunctionScapularDyskinesis:
		return []string{"Observe scapular rhythm during arm elevation", "Screen for shoulder impingement"}
	case model.DysfunctionForwardHeadPosture:
		return []string{"Measure craniovertebral angle", "Screen for neck pain or tension headaches"}
	default:
		return nil
	}
}

func dysfunctionAdvice(d model.Dysfunction) []string {
	switch d {
	case model.DysfunctionAnkleDorsiflexion:
		return []string{"Add calf and ankle mobility drills before training", "Use a small heel lift while mobility improves"}
	case model.DysfunctionKneeValgus:
		return []string{"Practise banded squats to cue knee alignment", "Strengthen hip abductors with lateral band walks"}
	case model.DysfunctionHipFlexorTightness:
		return []string{"Stretch the hip flexors with half-kneeling lunges", "Strengthen glutes to restore hip extension"}
	case model.DysfunctionGluteWeakness:
		return []string{"Add glute bridges and hip thrusts", "Include single leg work to build hip control"}
	case model.DysfunctionCoreInstability:
		return []string{"Train anti-rotation and anti-extension holds", "Practise bracing before each rep"}
	case model.DysfunctionThoracicHypomobility:
		return []string{"Add thoracic extension and rotation mobility", "Use foam roller extensions for the upper back"}
	case model.DysfunctionScapularDyskinesis:
		return []string{"Strengthen the lower trapezius and serratus anterior", "Practise controlled scapular retraction"}
	case model.DysfunctionForwardHeadPosture:
		return []string{"Practise chin tucks throughout the day", "Strengthen the deep neck flexors"}
	default:
		return nil
	}
}

func chainAdvice(c model.ChainSegment) string {
	switch c {
	case model.ChainLower:
		return "Prioritize lower body alignment from the foot up before adding load"
	case model.ChainUpper:
		return "Prioritize shoulder and upper back control before adding load"
	case model.ChainCore:
		return "Build trunk stability before progressing the exercise"
	case model.ChainFullBody:
		return "Reduce load and rebuild the movement pattern as a whole"
	default:
		return ""
	}
}
