// Package service wires sessions, the frame queue, workers, the leaderboard
// and the result fan-out into the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/kinetica/internal/adapters/http/stream"
	"github.com/okian/kinetica/internal/adapters/mq/publisher"
	"github.com/okian/kinetica/internal/adapters/mq/queue"
	"github.com/okian/kinetica/internal/adapters/mq/worker"
	"github.com/okian/kinetica/internal/adapters/repository"
	"github.com/okian/kinetica/internal/domain/dedupe"
	"github.com/okian/kinetica/internal/domain/types"
	"github.com/okian/kinetica/internal/session"
	"github.com/okian/kinetica/pkg/logger"
	"github.com/okian/kinetica/pkg/metrics"
)

// ErrNotStarted is returned by operations that need a running service.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the analysis pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	sessions    *session.Manager
	leaderboard repository.Store
	deduper     dedupe.Deduper
	frameQueue  *queue.InMemoryQueue
	workerPool  *worker.Pool
	hub         *stream.Hub
	publisher   publisher.Publisher

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	streamBuffer int
	sessionOpts  []session.Option

	framesProcessed atomic.Int64
	repsCompleted   atomic.Int64

	started bool
	logger  logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    10_000,
		dedupeSize:   dedupe.DefaultMaxSize,
		streamBuffer: 64,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = publisher.Nop{}
	}
	return s
}

// Start initializes the components and starts one worker per queue partition.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting analysis service...")

	s.sessions = session.NewManager(s.sessionOpts...)
	if s.leaderboard == nil {
		s.leaderboard = repository.NewTreapStore()
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.frameQueue = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithPartitions(s.workerCount),
	)
	s.hub = stream.NewHub(
		stream.WithBufferSize(s.streamBuffer),
		stream.WithLogger(s.logger.Named("stream")),
	)

	s.workerPool = worker.NewPool(s.frameQueue, s)
	s.workerPool.Start(ctx)

	s.started = true
	metrics.UpdateActiveSessions(0)
	s.logger.Info(ctx, "analysis service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("exercises", len(s.sessions.Exercises())),
	)
	return nil
}

// Stop drains the queue, disconnects stream clients and closes the publisher.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping analysis service...")

	err := s.workerPool.Shutdown(ctx)
	if err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.hub.Close()
	s.publisher.Close()

	s.started = false
	s.logger.Info(ctx, "analysis service stopped",
		logger.Int("framesProcessed", int(s.framesProcessed.Load())),
		logger.Int("repsCompleted", int(s.repsCompleted.Load())),
	)
	return err
}

// Process runs one queued frame through its session and fans the result out.
// It implements worker.Processor.
func (s *Service) Process(ctx context.Context, e queue.Event) error { //nolint:gocritic // hugeParam: Event is passed by value through the queue
	sess, err := s.sessions.Get(e.SessionID)
	if err != nil {
		// The session was deleted while its frames were queued.
		metrics.RecordFrameDropped("session_gone")
		return err
	}

	res := sess.Process(e.Frame)
	s.framesProcessed.Add(1)
	metrics.RecordFrameProcessed(string(res.Status))
	if !e.EnqueuedAt.IsZero() {
		metrics.RecordFrameLatency(float64(time.Since(e.EnqueuedAt).Microseconds()) / 1000)
	}

	s.observe(ctx, sess, res)
	s.hub.Publish(e.SessionID, stream.Messages(res)...)
	return nil
}

func (s *Service) observe(ctx context.Context, sess *session.Session, res session.FrameResult) { //nolint:gocritic // hugeParam: read-only view
	if res.Status == session.StatusCalibrated {
		metrics.RecordCalibrationCompleted()
		s.logger.Debug(ctx, "session calibrated", logger.String("session", res.SessionID))
	}
	for _, v := range res.Violations {
		metrics.RecordConstraintViolation(string(v.Severity))
	}
	for _, c := range res.Compensations {
		metrics.RecordCompensation(string(c.Type), string(c.Severity))
	}

	if len(res.Rep.Feedback) > 0 {
		for _, f := range res.Rep.Feedback {
			metrics.RecordFeedback(string(f.Priority))
		}
		s.publish(ctx, "feedback", func() error {
			return s.publisher.PublishFeedback(ctx, res.SessionID, res.Rep.Feedback)
		})
	}

	if res.Rep.Score == nil {
		return
	}
	rep := *res.Rep.Score
	snap := sess.Snapshot()
	log := s.logger.With(logger.String("session", res.SessionID))
	s.repsCompleted.Add(1)
	metrics.RecordRepCompleted(snap.Exercise, rep.Overall)

	if _, err := s.leaderboard.Upsert(ctx, repository.Entry{
		SessionID: res.SessionID,
		Exercise:  snap.Exercise,
		Score:     snap.AverageScore,
		Reps:      snap.RepCount,
	}); err != nil {
		log.Warn(ctx, "leaderboard update failed", logger.Error(err))
	}
	// DeleteSession may have run between Process and Upsert.
	if _, err := s.sessions.Get(res.SessionID); err != nil {
		s.leaderboard.Remove(ctx, res.SessionID)
	}
	s.publish(ctx, "reps", func() error {
		return s.publisher.PublishRep(ctx, res.SessionID, rep)
	})

	log.Debug(ctx, "rep completed",
		logger.Int("rep", snap.RepCount),
		logger.Float64("score", rep.Overall),
	)
}

// publish reports failures without failing the frame.
func (s *Service) publish(ctx context.Context, kind string, fn func() error) {
	if err := fn(); err != nil {
		metrics.RecordPublishError(kind)
		s.logger.Warn(ctx, "publish failed", logger.String("kind", kind), logger.Error(err))
		return
	}
	metrics.RecordPublish(kind)
}

// CreateSession opens a session for exercise.
func (s *Service) CreateSession(ctx context.Context, exercise string, skipCalibration bool) (session.Summary, error) {
	if !s.isStarted() {
		return session.Summary{}, ErrNotStarted
	}
	sess := s.sessions.Create(exercise, skipCalibration)
	metrics.UpdateActiveSessions(s.sessions.Count())

	snap := sess.Snapshot()
	s.logger.Info(ctx, "session created",
		logger.String("session", snap.ID),
		logger.String("exercise", snap.Exercise),
		logger.Bool("knownExercise", snap.KnownConfig),
		logger.Bool("calibrating", snap.Calibrating),
	)
	return snap, nil
}

// Session returns the live session with id.
func (s *Service) Session(_ context.Context, id string) (*session.Session, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	return s.sessions.Get(id)
}

// DeleteSession ends a session, drops it from the leaderboard and
// disconnects its stream subscribers.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if !s.isStarted() {
		return ErrNotStarted
	}
	if err := s.sessions.Delete(id); err != nil {
		return err
	}
	s.leaderboard.Remove(ctx, id)
	s.hub.CloseSession(id)
	metrics.UpdateActiveSessions(s.sessions.Count())
	s.logger.Info(ctx, "session deleted", logger.String("session", id))
	return nil
}

// ListSessions returns a summary of every live session.
func (s *Service) ListSessions(_ context.Context) []session.Summary {
	if !s.isStarted() {
		return nil
	}
	return s.sessions.List()
}

// Exercises returns the names in the exercise catalogue.
func (s *Service) Exercises() []string {
	if !s.isStarted() {
		return nil
	}
	return s.sessions.Exercises()
}

// SeenAndRecord atomically checks if a frame key was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	return s.deduper.SeenAndRecord(ctx, id)
}

// Unrecord removes a frame key so that the frame can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits a frame for asynchronous processing. It returns false when
// the session's partition is full or the service is stopped.
func (s *Service) Enqueue(ctx context.Context, e queue.Event) bool { //nolint:gocritic // hugeParam: Event is passed by value through the queue
	if !s.isStarted() {
		return false
	}
	return s.frameQueue.Enqueue(ctx, e)
}

// TopN returns the top N leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	return s.leaderboard.TopN(ctx, n)
}

// Rank returns the leaderboard entry for a session.
func (s *Service) Rank(ctx context.Context, sessionID string) (types.Entry, error) {
	return s.leaderboard.Rank(ctx, sessionID)
}

// ServeStream upgrades the request and streams the session's results.
func (s *Service) ServeStream(w http.ResponseWriter, r *http.Request, sessionID string) {
	s.hub.Serve(w, r, sessionID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"dedupeSize":      s.dedupeSize,
		"framesProcessed": s.framesProcessed.Load(),
		"repsCompleted":   s.repsCompleted.Load(),
	}

	if s.started {
		queueLen := s.frameQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["activeSessions"] = s.sessions.Count()
		stats["rankedSessions"] = s.leaderboard.Count(ctx)
		stats["streamClients"] = s.hub.Clients()
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerPool.Size())
	}

	return stats
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
