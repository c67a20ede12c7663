package repscore

import "time"

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithHysteresisFrames sets how many consecutive frames must agree before a
// phase transition is committed.
func WithHysteresisFrames(k int) Option {
	return func(s *Scorer) {
		if k > 0 {
			s.hysteresis = k
		}
	}
}

// WithMessagePicker sets the feedback message picker.
func WithMessagePicker(p MessagePicker) Option {
	return func(s *Scorer) {
		if p != nil {
			s.picker = p
		}
	}
}

// WithClock sets the time source used for inputs without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}
