// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - External errors must be wrapped via this package's error kinds.
package config

import (
	"context"
	"fmt"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory frame queue across all partitions.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of frame workers, one per queue partition.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the frame id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// ExerciseCatalog is an optional TOML file replacing the built-in catalogue.
	ExerciseCatalog string `koanf:"exercise_catalog"`

	// Calibration tuning.
	CalibrationTargetFrames      int     `koanf:"calibration_target_frames"`
	CalibrationConsecutiveFrames int     `koanf:"calibration_consecutive_frames"`
	CalibrationMinVisibility     float64 `koanf:"calibration_min_visibility"`

	// HysteresisFrames is how many agreeing frames commit a phase change.
	HysteresisFrames int `koanf:"hysteresis_frames"`

	// SmoothingWindow is the moving average length for joint angles.
	SmoothingWindow int `koanf:"smoothing_window"`

	// ValgusScale turns the knee offset ratio into a pseudo-angle.
	ValgusScale float64 `koanf:"valgus_scale"`

	// CompensationHistory is the number of frames kept for analysis.
	CompensationHistory int `koanf:"compensation_history"`

	// TopCompensations caps the cues streamed per frame.
	TopCompensations int `koanf:"top_compensations"`

	// MessageSeed seeds feedback message selection; 0 seeds from the clock.
	MessageSeed int64 `koanf:"message_seed"`

	// MQTT publisher; disabled when MQTTBroker is empty.
	MQTTBroker      string `koanf:"mqtt_broker"`
	MQTTClientID    string `koanf:"mqtt_client_id"`
	MQTTTopicPrefix string `koanf:"mqtt_topic_prefix"`

	// StreamBuffer is the per-client buffer of the live stream.
	StreamBuffer int `koanf:"stream_buffer"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                     "info",
		LogFormat:                    "text",
		Addr:                         ":9080",
		QueueSize:                    10_000,
		WorkerCount:                  runtime.NumCPU(),
		DedupeSize:                   100_000,
		MaxLeaderboardLimit:          100,
		CalibrationTargetFrames:      30,
		CalibrationConsecutiveFrames: 5,
		CalibrationMinVisibility:     0.5,
		HysteresisFrames:             3,
		SmoothingWindow:              5,
		ValgusScale:                  300,
		CompensationHistory:          90,
		TopCompensations:             3,
		MQTTClientID:                 "kinetica",
		MQTTTopicPrefix:              "kinetica",
		StreamBuffer:                 64,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	positive := []struct {
		name string
		v    int
	}{
		{"queue_size", c.QueueSize},
		{"worker_count", c.WorkerCount},
		{"max_leaderboard_limit", c.MaxLeaderboardLimit},
		{"calibration_target_frames", c.CalibrationTargetFrames},
		{"calibration_consecutive_frames", c.CalibrationConsecutiveFrames},
		{"hysteresis_frames", c.HysteresisFrames},
		{"smoothing_window", c.SmoothingWindow},
		{"compensation_history", c.CompensationHistory},
		{"top_compensations", c.TopCompensations},
		{"stream_buffer", c.StreamBuffer},
	}
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.CalibrationMinVisibility < 0 || c.CalibrationMinVisibility > 1:
		return fmt.Errorf("%w: calibration_min_visibility must be within [0,1]", ErrInvalidConfig)
	case c.ValgusScale <= 0:
		return fmt.Errorf("%w: valgus_scale must be positive", ErrInvalidConfig)
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, p.name)
		}
	}
	return nil
}
