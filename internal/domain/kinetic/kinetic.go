// Package kinetic turns compensations and joint angles into a root-cause
// hypothesis for the kinetic chain.
package kinetic

import (
	"math"
	"slices"

	"github.com/okian/kinetica/internal/domain/model"
)

const (
	minWinningScore = 2
	chainVoteFloor  = 2
	winnerVote      = 2
	maxPatterns     = 4

	baseConfidence = 0.4
	confidenceStep = 0.1
	maxConfidence  = 0.9
)

// Angle thresholds in degrees.
const (
	limitedDorsiflexion = 15.0
	extendedKnee        = 165.0
	flexedHip           = 165.0
	excessiveLean       = 30.0
	forwardNeck         = 155.0
	valgusPseudoAngle   = 10.0
	lumbarRotation      = 20.0
	abductionLow        = 90.0
	abductionHigh       = 150.0
)

// Analyzer is stateless and safe for concurrent use.
type Analyzer struct{}

// New returns an Analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

type tally struct {
	score    map[model.Dysfunction]int
	evidence map[model.Dysfunction]int
}

func (t tally) add(d model.Dysfunction, points int) {
	if points <= 0 {
		return
	}
	t.score[d] += points
	t.evidence[d]++
}

// AnalyzeKineticChain scores every dysfunction hypothesis and explains the winner.
func (a *Analyzer) AnalyzeKineticChain(comps []model.CompensationPattern, angles model.JointAngles) model.KineticChainAnalysis {
	t := tally{
		score:    make(map[model.Dysfunction]int, len(model.Dysfunctions)),
		evidence: make(map[model.Dysfunction]int, len(model.Dysfunctions)),
	}
	for _, c := range comps {
		points := c.Severity.Rank()
		for i, d := range related(c.Type) {
			t.add(d, points-i)
		}
	}
	scoreAngles(t, angles)

	primary := model.DysfunctionNone
	best := 0
	for _, d := range model.Dysfunctions {
		if t.score[d] > best {
			primary, best = d, t.score[d]
		}
	}
	if best < minWinningScore {
		primary = model.DysfunctionNone
	}

	chain := affectedChain(comps, primary)
	scores := make(map[model.Dysfunction]int, len(model.Dysfunctions))
	for _, d := range model.Dysfunctions {
		scores[d] = t.score[d]
	}

	return model.KineticChainAnalysis{
		PrimaryDysfunction:   primary,
		AffectedChain:        chain,
		CompensatoryPatterns: patterns(comps),
		RootCause: model.RootCause{
			LikelySource:           source(primary),
			Confidence:             confidence(primary, t.evidence[primary]),
			Explanation:            rootExplanation(primary),
			ClinicalConsiderations: append([]string{}, clinical(primary)...),
		},
		Recommendations: recommendations(primary, chain, len(comps)),
		Scores:          scores,
	}
}

func scoreAngles(t tally, angles model.JointAngles) {
	if len(angles) == 0 {
		return
	}
	lk, lkOK := angles.Value(model.JointLeftKnee)
	rk, rkOK := angles.Value(model.JointRightKnee)
	kneesExtended := lkOK && rkOK && lk > extendedKnee && rk > extendedKnee

	if v, ok := minOf(angles, model.JointLeftAnkle, model.JointRightAnkle); ok && v < limitedDorsiflexion && !kneesExtended {
		t.add(model.DysfunctionAnkleDorsiflexion, 2)
	}

	hipFlexed := false
	for _, side := range [][2]model.JointName{
		{model.JointLeftHip, model.JointLeftKnee},
		{model.JointRightHip, model.JointRightKnee},
	} {
		hip, hipOK := angles.Value(side[0])
		knee, kneeOK := angles.Value(side[1])
		if hipOK && kneeOK && hip < flexedHip && knee > extendedKnee {
			hipFlexed = true
		}
	}
	if hipFlexed {
		t.add(model.DysfunctionHipFlexorTightness, 2)
	}

	if v, ok := angles.Value(model.JointTrunkLean); ok && v > excessiveLean {
		t.add(model.DysfunctionCoreInstability, 1)
	}
	if v, ok := angles.Value(model.JointNeck); ok && v < forwardNeck {
		t.add(model.DysfunctionForwardHeadPosture, 2)
	}
	for _, j := range []model.JointName{model.JointLeftKneeValgus, model.JointRightKneeValgus} {
		if v, ok := angles.Value(j); ok && math.Abs(v) > valgusPseudoAngle {
			t.add(model.DysfunctionKneeValgus, 1)
			break
		}
	}
	if v, ok := angles.Value(model.JointLumbarRotation); ok && v > lumbarRotation {
		t.add(model.DysfunctionCoreInstability, 1)
	}
	for _, j := range []model.JointName{model.JointLeftShoulder, model.JointRightShoulder} {
		if v, ok := angles.Value(j); ok && v > abductionLow && v < abductionHigh {
			t.add(model.DysfunctionThoracicHypomobility, 1)
			break
		}
	}
}

func minOf(angles model.JointAngles, joints ...model.JointName) (float64, bool) {
	out, found := 0.0, false
	for _, j := range joints {
		v, ok := angles.Value(j)
		if !ok {
			continue
		}
		if !found || v < out {
			out, found = v, true
		}
	}
	return out, found
}

func affectedChain(comps []model.CompensationPattern, primary model.Dysfunction) model.ChainSegment {
	votes := map[model.ChainSegment]int{}
	for _, c := range comps {
		if seg := compensationSegment(c.Type); seg != "" {
			votes[seg] += c.Severity.Rank()
		}
	}
	if seg := dysfunctionSegment(primary); seg != "" {
		votes[seg] += winnerVote
	}
	if votes[model.ChainLower] >= chainVoteFloor && votes[model.ChainUpper] >= chainVoteFloor {
		return model.ChainFullBody
	}
	chain, best := model.ChainFullBody, 0
	for _, seg := range []model.ChainSegment{model.ChainLower, model.ChainCore, model.ChainUpper} {
		if votes[seg] > best {
			chain, best = seg, votes[seg]
		}
	}
	return chain
}

// patterns keeps the worst instance of each compensation type, severe first.
func patterns(comps []model.CompensationPattern) []model.CompensatoryPattern {
	worst := make(map[model.CompensationType]model.Severity)
	var order []model.CompensationType
	for _, c := range comps {
		prev, seen := worst[c.Type]
		if !seen {
			order = append(order, c.Type)
		}
		if !seen || c.Severity.Rank() > prev.Rank() {
			worst[c.Type] = c.Severity
		}
	}
	slices.SortStableFunc(order, func(a, b model.CompensationType) int {
		return worst[b].Rank() - worst[a].Rank()
	})
	if len(order) > maxPatterns {
		order = order[:maxPatterns]
	}
	out := make([]model.CompensatoryPattern, 0, len(order))
	for _, ct := range order {
		out = append(out, model.CompensatoryPattern{
			Pattern:     ct,
			Severity:    worst[ct],
			Explanation: explanation(ct),
			Corrections: corrections(ct),
		})
	}
	return out
}

func confidence(primary model.Dysfunction, evidence int) float64 {
	if primary == model.DysfunctionNone || evidence == 0 {
		return 0
	}
	return math.Min(maxConfidence, baseConfidence+confidenceStep*float64(evidence))
}

func recommendations(primary model.Dysfunction, chain model.ChainSegment, observed int) []string {
	if primary == model.DysfunctionNone {
		if observed == 0 {
			return []string{"Movement quality looks good; progress load gradually"}
		}
		return []string{"Keep monitoring form; compensations were minor or inconsistent"}
	}
	out := append([]string{}, dysfunctionAdvice(primary)...)
	if advice := chainAdvice(chain); advice != "" {
		out = append(out, advice)
	}
	return out
}
