// Package posesim drives the analysis service with synthetic squats, either
// over HTTP or in-process, and reports what it scored.
package posesim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kinetica/internal/domain/model"
	"github.com/okian/kinetica/internal/domain/types"
	"github.com/okian/kinetica/internal/simulator"
	"github.com/okian/kinetica/pkg/logger"
)

const (
	backpressureRetries = 50
	backpressureDelay   = 20 * time.Millisecond
	pollInterval        = 100 * time.Millisecond
)

// ErrVerification is returned when the service's results are inconsistent.
var ErrVerification = errors.New("verification failed")

// Config configures a load run against a live service.
type Config struct {
	BaseURL  string
	Sessions int
	Workers  int
	Timeout  time.Duration // per HTTP request
	Wait     time.Duration // how long to wait for reps after submission
	Exercise string
	TopN     int

	// CalibrationFrames standing frames are sent first and the session
	// calibrates on them. Zero skips calibration.
	CalibrationFrames int

	Trajectory simulator.Trajectory
	// MixFaults cycles sessions through every fault instead of Trajectory.Fault.
	MixFaults bool
	// Cleanup deletes the sessions once the run is verified.
	Cleanup bool

	Logger logger.Logger
}

// SessionResult is the outcome for one simulated session.
type SessionResult struct {
	SessionID    string            `json:"session_id"`
	Fault        simulator.Fault   `json:"fault"`
	Reps         int               `json:"reps"`
	AverageScore float64           `json:"average_score"`
	Dysfunction  model.Dysfunction `json:"primary_dysfunction"`
}

// Stats summarizes a run.
type Stats struct {
	Sessions        int             `json:"sessions"`
	FramesSubmitted int64           `json:"frames_submitted"`
	Accepted        int64           `json:"accepted"`
	Duplicate       int64           `json:"duplicate"`
	Backpressure    int64           `json:"backpressure_retries"`
	Failed          int64           `json:"failed"`
	RepsExpected    int             `json:"reps_expected"`
	RepsScored      int             `json:"reps_scored"`
	Leaderboard     []types.Entry   `json:"leaderboard"`
	Results         []SessionResult `json:"results"`
	Duration        time.Duration   `json:"duration"`
}

type plan struct {
	id     string
	fault  simulator.Fault
	frames []model.Frame
}

// Run creates sessions, streams their frames, waits for scoring and verifies
// the leaderboard.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	started := time.Now()
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting pose simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("workers", cfg.Workers),
		logger.Int("reps", cfg.Trajectory.Reps),
		logger.Bool("mixFaults", cfg.MixFaults),
	)

	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	plans, err := buildPlans(ctx, client, cfg)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Sessions: len(plans), RepsExpected: len(plans) * cfg.Trajectory.Reps}
	submitAll(ctx, client, cfg, plans, stats, log)

	results, err := awaitReps(ctx, client, cfg, plans)
	if err != nil {
		return nil, err
	}
	stats.Results = results
	for _, r := range results {
		stats.RepsScored += r.Reps
	}

	top := cfg.TopN
	if top < 1 {
		top = len(plans)
	}
	stats.Leaderboard, err = awaitLeaderboard(ctx, client, top, cfg.Wait, results)
	if err != nil {
		return nil, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	if err := verify(stats); err != nil {
		return stats, err
	}

	if cfg.Cleanup {
		for _, p := range plans {
			if err := client.DeleteSession(ctx, p.id); err != nil {
				log.Warn(ctx, "failed to delete session", logger.String("session", p.id), logger.Error(err))
			}
		}
	}

	stats.Duration = time.Since(started)
	log.Info(ctx, "pose simulation completed",
		logger.Int("sessions", stats.Sessions),
		logger.Int("framesSubmitted", int(stats.FramesSubmitted)),
		logger.Int("failed", int(stats.Failed)),
		logger.Int("repsExpected", stats.RepsExpected),
		logger.Int("repsScored", stats.RepsScored),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// buildPlans creates one session per plan and renders its frames.
func buildPlans(ctx context.Context, client *Client, cfg Config) ([]plan, error) {
	plans := make([]plan, cfg.Sessions)
	for i := range plans {
		traj := cfg.Trajectory
		traj.Seed += uint64(i) //nolint:gosec // i is non-negative
		if cfg.MixFaults {
			traj.Fault = simulator.Faults[i%len(simulator.Faults)]
		}
		frames, err := traj.Generate()
		if err != nil {
			return nil, err
		}
		frames = append(calibrationFrames(traj, cfg.CalibrationFrames), frames...)

		summary, err := client.CreateSession(ctx, cfg.Exercise, cfg.CalibrationFrames == 0)
		if err != nil {
			return nil, fmt.Errorf("failed to create session %d: %w", i, err)
		}
		plans[i] = plan{id: summary.ID, fault: traj.Fault, frames: frames}
	}
	return plans, nil
}

// calibrationFrames returns n standing frames that precede the trajectory.
func calibrationFrames(t simulator.Trajectory, n int) []model.Frame {
	if n <= 0 {
		return nil
	}
	start := t.Start
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	step := time.Duration(float64(time.Second) / t.FPS)
	out := make([]model.Frame, n)
	for i := range out {
		out[i] = model.Frame{
			ID:        uuid.NewString(),
			Timestamp: start.Add(-time.Duration(n-i) * step),
			Landmarks: simulator.Standing().Landmarks(),
		}
	}
	return out
}

// submitAll streams every plan's frames in order. Workers take whole
// sessions so that a session's frames are never reordered.
func submitAll(ctx context.Context, client *Client, cfg Config, plans []plan, stats *Stats, log logger.Logger) {
	workers := max(1, min(cfg.Workers, len(plans)))
	work := make(chan plan)
	var wg sync.WaitGroup

	var submitted, accepted, duplicate, retries, failed atomic.Int64
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range work {
				for _, f := range p.frames {
					res := submitWithRetry(ctx, client, p.id, f, &retries)
					submitted.Add(1)
					switch res {
					case SubmitAccepted:
						accepted.Add(1)
					case SubmitDuplicate:
						duplicate.Add(1)
					default:
						failed.Add(1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(work)
		for _, p := range plans {
			select {
			case <-ctx.Done():
				return
			case work <- p:
			}
		}
	}()
	wg.Wait()

	stats.FramesSubmitted = submitted.Load()
	stats.Accepted = accepted.Load()
	stats.Duplicate = duplicate.Load()
	stats.Backpressure = retries.Load()
	stats.Failed = failed.Load()

	log.Info(ctx, "frame submission completed",
		logger.Int("accepted", int(stats.Accepted)),
		logger.Int("duplicate", int(stats.Duplicate)),
		logger.Int("backpressureRetries", int(stats.Backpressure)),
		logger.Int("failed", int(stats.Failed)),
	)
}

func submitWithRetry(ctx context.Context, client *Client, id string, f model.Frame, retries *atomic.Int64) SubmitResult {
	for range backpressureRetries {
		res, err := client.PostFrame(ctx, id, f)
		if err != nil || res != SubmitBackpressure {
			return res
		}
		retries.Add(1)
		select {
		case <-ctx.Done():
			return SubmitFailed
		case <-time.After(backpressureDelay):
		}
	}
	return SubmitBackpressure
}

// awaitReps polls each session until its reps are scored or cfg.Wait elapses.
func awaitReps(ctx context.Context, client *Client, cfg Config, plans []plan) ([]SessionResult, error) {
	deadline := time.Now().Add(cfg.Wait)
	results := make([]SessionResult, len(plans))
	for i, p := range plans {
		var reps RepsResult
		for {
			var err error
			reps, err = client.Reps(ctx, p.id)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch reps for %s: %w", p.id, err)
			}
			if reps.RepCount >= cfg.Trajectory.Reps || time.Now().After(deadline) {
				break
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(pollInterval):
			}
		}
		analysis, err := client.Analysis(ctx, p.id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch analysis for %s: %w", p.id, err)
		}
		results[i] = SessionResult{
			SessionID:    p.id,
			Fault:        p.fault,
			Reps:         reps.RepCount,
			AverageScore: reps.AverageScore,
			Dysfunction:  analysis.PrimaryDysfunction,
		}
	}
	return results, nil
}

// awaitLeaderboard polls the leaderboard until every listed session reflects
// the rep count its session reported, or wait elapses. Ranking trails scoring
// by one worker step.
func awaitLeaderboard(ctx context.Context, client *Client, top int, wait time.Duration, results []SessionResult) ([]types.Entry, error) {
	reps := make(map[string]int, len(results))
	for _, r := range results {
		reps[r.SessionID] = r.Reps
	}
	deadline := time.Now().Add(wait)
	for {
		lb, err := client.Leaderboard(ctx, top)
		if err != nil {
			return nil, err
		}
		if settled(lb, reps) || time.Now().After(deadline) {
			return lb, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func settled(lb []types.Entry, reps map[string]int) bool {
	for _, e := range lb {
		if n, ok := reps[e.SessionID]; ok && e.Reps < n {
			return false
		}
	}
	return true
}

// verify checks the leaderboard ordering against the per-session results.
func verify(stats *Stats) error {
	lb := stats.Leaderboard
	for i := 1; i < len(lb); i++ {
		if lb[i].Score > lb[i-1].Score {
			return fmt.Errorf("%w: leaderboard not sorted at entry %d", ErrVerification, i)
		}
		if lb[i].Rank < lb[i-1].Rank {
			return fmt.Errorf("%w: ranks decrease at entry %d", ErrVerification, i)
		}
	}

	best := -1.0
	var bestID string
	for _, r := range stats.Results {
		if r.Reps > 0 && r.AverageScore > best {
			best, bestID = r.AverageScore, r.SessionID
		}
	}
	if bestID == "" {
		return nil
	}
	if len(lb) == 0 {
		return fmt.Errorf("%w: empty leaderboard with scored sessions", ErrVerification)
	}
	if lb[0].Score < best-1e-6 {
		return fmt.Errorf("%w: top leaderboard score %.3f below best session %s (%.3f)",
			ErrVerification, lb[0].Score, bestID, best)
	}
	return nil
}
