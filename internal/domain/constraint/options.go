package constraint

import "github.com/okian/kinetica/internal/domain/model"

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithRule appends a coupled-motion rule to the built-in set.
func WithRule(r Rule) Option {
	return func(v *Validator) {
		if r.Check != nil {
			v.rules = append(v.rules, r)
		}
	}
}

// WithRange overrides the static anatomical range of a joint.
func WithRange(joint model.JointName, lo, hi float64) Option {
	return func(v *Validator) {
		if lo <= hi {
			v.ranges[joint] = Range{Min: lo, Max: hi}
		}
	}
}
