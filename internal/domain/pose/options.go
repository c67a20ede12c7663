package pose

// Option applies a configuration option to the Reconstructor.
type Option func(*Reconstructor)

// WithSmoothingWindow sets how many recent values the moving average spans.
func WithSmoothingWindow(n int) Option {
	return func(r *Reconstructor) {
		if n > 0 {
			r.window = n
		}
	}
}

// WithValgusScale sets the factor that turns the knee offset ratio into a
// pseudo-angle in degrees.
func WithValgusScale(k float64) Option {
	return func(r *Reconstructor) {
		if k > 0 {
			r.valgusScale = k
		}
	}
}

// WithMinVisibility sets the visibility below which a joint is omitted.
func WithMinVisibility(v float64) Option {
	return func(r *Reconstructor) {
		if v >= 0 && v <= 1 {
			r.minVisibility = v
		}
	}
}
