package service

import (
	"github.com/okian/kinetica/internal/adapters/mq/publisher"
	"github.com/okian/kinetica/internal/adapters/repository"
	"github.com/okian/kinetica/internal/config"
	"github.com/okian/kinetica/internal/domain/calibration"
	"github.com/okian/kinetica/internal/domain/exercise"
	"github.com/okian/kinetica/internal/domain/pose"
	"github.com/okian/kinetica/internal/domain/repscore"
	"github.com/okian/kinetica/internal/session"
	"github.com/okian/kinetica/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of queue partitions, one worker each.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the total capacity of the frame queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the frame deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithStreamBuffer sets the per-subscriber websocket buffer.
func WithStreamBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.streamBuffer = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSessionOptions appends options applied to every session.
func WithSessionOptions(opts ...session.Option) Option {
	return func(s *Service) {
		s.sessionOpts = append(s.sessionOpts, opts...)
	}
}

// WithPublisher sets where feedback and rep scores are published.
func WithPublisher(p publisher.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLeaderboard replaces the default treap-backed leaderboard.
func WithLeaderboard(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.leaderboard = store
		}
	}
}

// FromConfig translates the loaded configuration into service options.
// An exercise catalogue file that cannot be read is an error.
func FromConfig(cfg *config.Config) ([]Option, error) {
	sessOpts := []session.Option{
		session.WithCalibrationOptions(
			calibration.WithTargetFrames(cfg.CalibrationTargetFrames),
			calibration.WithConsecutiveFrames(cfg.CalibrationConsecutiveFrames),
			calibration.WithMinVisibility(cfg.CalibrationMinVisibility),
		),
		session.WithPoseOptions(
			pose.WithSmoothingWindow(cfg.SmoothingWindow),
			pose.WithValgusScale(cfg.ValgusScale),
		),
		session.WithScorerOptions(repscore.WithHysteresisFrames(cfg.HysteresisFrames)),
		session.WithHistorySize(cfg.CompensationHistory),
		session.WithTopCompensations(cfg.TopCompensations),
		session.WithMessageSeed(cfg.MessageSeed),
	}

	if cfg.ExerciseCatalog != "" {
		catalog, err := exercise.Load(cfg.ExerciseCatalog)
		if err != nil {
			return nil, err
		}
		sessOpts = append(sessOpts, session.WithCatalog(catalog))
	}

	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithStreamBuffer(cfg.StreamBuffer),
		WithSessionOptions(sessOpts...),
	}, nil
}
