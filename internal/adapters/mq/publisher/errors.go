package publisher

import "errors"

// Sentinel kinds for publisher errors.
var (
	ErrNotConnected = errors.New("mqtt not connected")
	ErrTimeout      = errors.New("mqtt timeout")
)
