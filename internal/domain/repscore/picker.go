package repscore

import "math/rand"

// MessagePicker chooses one message from a non-empty list of alternatives.
type MessagePicker interface {
	Pick(options []string) string
}

// FirstPicker always returns the first option.
type FirstPicker struct{}

// Pick implements MessagePicker.
func (FirstPicker) Pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[0]
}

// RandomPicker picks uniformly with a seeded source. It is not safe for
// concurrent use, matching the single-session ownership of a Scorer.
type RandomPicker struct {
	rng *rand.Rand
}

// NewRandomPicker creates a picker whose choices are reproducible for a seed.
func NewRandomPicker(seed int64) *RandomPicker {
	return &RandomPicker{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // message variety, not security
}

// Pick implements MessagePicker.
func (p *RandomPicker) Pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[p.rng.Intn(len(options))]
}

var (
	praiseMessages = []string{
		"Excellent rep!",
		"Perfect form, keep it up!",
		"Great depth and control!",
	}
	encouragementMessages = []string{
		"Good rep, keep going!",
		"Nice work, stay controlled.",
		"Solid rep, focus on a smooth tempo.",
	}
	correctiveMessages = []string{
		"Let's clean that one up.",
		"Slow down and focus on form.",
		"Try to reach your full range of motion.",
	}
)
