package calibration

import "time"

// Option applies a configuration option to the Calibrator.
type Option func(*Calibrator)

// WithTargetFrames sets how many accepted frames complete a calibration.
func WithTargetFrames(n int) Option {
	return func(c *Calibrator) {
		if n > 0 {
			c.targetFrames = n
		}
	}
}

// WithConsecutiveFrames sets how many valid frames in a row are required
// before frames start to be accepted.
func WithConsecutiveFrames(n int) Option {
	return func(c *Calibrator) {
		if n > 0 {
			c.consecutiveFrames = n
		}
	}
}

// WithMinVisibility sets the visibility every key landmark must reach.
func WithMinVisibility(v float64) Option {
	return func(c *Calibrator) {
		if v >= 0 && v <= 1 {
			c.minVisibility = v
		}
	}
}

// WithClock overrides the time source used to stamp captured profiles.
func WithClock(now func() time.Time) Option {
	return func(c *Calibrator) {
		if now != nil {
			c.now = now
		}
	}
}
