package compensation

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithMinVisibility sets the visibility every landmark a detector reads must reach.
func WithMinVisibility(v float64) Option {
	return func(d *Detector) {
		if v >= 0 && v <= 1 {
			d.minVisibility = v
		}
	}
}
