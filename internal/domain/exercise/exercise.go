// Package exercise holds the static per-exercise scoring configuration.
package exercise

import (
	"strings"
	"time"

	"github.com/okian/kinetica/internal/domain/model"
)

// Config is the scoring and threshold configuration of one exercise.
type Config struct {
	Name           string
	Category       model.ExerciseCategory
	PrimaryJoints  []model.JointName
	StartAngle     float64
	BottomAngle    float64
	Tolerance      float64
	TargetROM      float64
	IdealTempo     time.Duration
	TempoTolerance time.Duration
	SymmetryWeight float64
	DepthWeight    float64
}

// Ascending reports whether the primary angle grows towards the bottom of the rep.
func (c Config) Ascending() bool {
	return c.BottomAngle > c.StartAngle
}

// DefaultConfig is used when an exercise cannot be resolved.
func DefaultConfig() Config {
	return Config{
		Name:           "default",
		Category:       model.CategoryGeneral,
		PrimaryJoints:  []model.JointName{model.JointLeftKnee, model.JointRightKnee},
		StartAngle:     170,
		BottomAngle:    90,
		Tolerance:      10,
		TargetROM:      80,
		IdealTempo:     3 * time.Second,
		TempoTolerance: time.Second,
		SymmetryWeight: 1,
		DepthWeight:    1,
	}
}

// Normalize canonicalizes an exercise name for lookup.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '/':
			return '_'
		}
		return r
	}, name)
}

var categoryKeywords = []struct {
	category model.ExerciseCategory
	keywords []string
}{
	{model.CategoryBalance, []string{"balance", "single_leg", "one_leg", "stork", "tree", "pistol"}},
	{model.CategoryCore, []string{"plank", "crunch", "sit_up", "situp", "dead_bug", "bird_dog", "hollow", "twist", "core", "bridge"}},
	{model.CategoryLegs, []string{"squat", "lunge", "deadlift", "step_up", "leg", "calf", "hinge", "wall_sit"}},
	{model.CategoryUpper, []string{"press", "raise", "curl", "row", "push", "pull", "fly", "shoulder", "bicep", "tricep", "dip"}},
}

// Classify assigns a free-text exercise name to a category by keyword.
// Balance is checked first, then core, legs and upper body.
func Classify(name string) model.ExerciseCategory {
	n := Normalize(name)
	if n == "" {
		return model.CategoryGeneral
	}
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(n, kw) {
				return c.category
			}
		}
	}
	return model.CategoryGeneral
}
