package model

// Dysfunction is a root-cause hypothesis scored by the kinetic chain analysis.
type Dysfunction string

const (
	DysfunctionNone                 Dysfunction = "none"
	DysfunctionAnkleDorsiflexion    Dysfunction = "ankle_dorsiflexion_limitation"
	DysfunctionKneeValgus           Dysfunction = "knee_valgus"
	DysfunctionHipFlexorTightness   Dysfunction = "hip_flexor_tightness"
	DysfunctionGluteWeakness        Dysfunction = "glute_weakness"
	DysfunctionCoreInstability      Dysfunction = "core_instability"
	DysfunctionThoracicHypomobility Dysfunction = "thoracic_hypomobility"
	DysfunctionScapularDyskinesis   Dysfunction = "scapular_dyskinesis"
	DysfunctionForwardHeadPosture   Dysfunction = "forward_head_posture"
)

// Dysfunctions lists the scored hypotheses in tie-break order.
var Dysfunctions = []Dysfunction{
	DysfunctionAnkleDorsiflexion,
	DysfunctionKneeValgus,
	DysfunctionHipFlexorTightness,
	DysfunctionGluteWeakness,
	DysfunctionCoreInstability,
	DysfunctionThoracicHypomobility,
	DysfunctionScapularDyskinesis,
	DysfunctionForwardHeadPosture,
}

// ChainSegment is the part of the kinetic chain a dysfunction affects.
type ChainSegment string

const (
	ChainLower    ChainSegment = "lower"
	ChainUpper    ChainSegment = "upper"
	ChainCore     ChainSegment = "core"
	ChainFullBody ChainSegment = "full_body"
)

// JointCorrection is a per-joint corrective cue.
type JointCorrection struct {
	Joint      JointName `json:"joint"`
	Correction string    `json:"correction"`
}

// CompensatoryPattern explains one observed compensation.
type CompensatoryPattern struct {
	Pattern     CompensationType  `json:"pattern"`
	Severity    Severity          `json:"severity"`
	Explanation string            `json:"explanation"`
	Corrections []JointCorrection `json:"corrections"`
}

// RootCause is the analysis' best explanation.
type RootCause struct {
	LikelySource           string   `json:"likelySource"`
	Confidence             float64  `json:"confidence"`
	Explanation            string   `json:"explanation"`
	ClinicalConsiderations []string `json:"clinicalConsiderations"`
}

// KineticChainAnalysis is computed on demand and never stored as mutable state.
type KineticChainAnalysis struct {
	PrimaryDysfunction   Dysfunction           `json:"primaryDysfunction"`
	AffectedChain        ChainSegment          `json:"affectedChain"`
	CompensatoryPatterns []CompensatoryPattern `json:"compensatoryPatterns"`
	RootCause            RootCause             `json:"rootCause"`
	Recommendations      []string              `json:"recommendations"`
	Scores               map[Dysfunction]int   `json:"scores,omitempty"`
}
