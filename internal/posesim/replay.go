package posesim

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kinetica/internal/domain/model"
	"github.com/okian/kinetica/internal/session"
)

// Report summarizes a replayed frame sequence.
type Report struct {
	SessionID     string                         `json:"session_id"`
	Exercise      string                         `json:"exercise"`
	Frames        int                            `json:"frames"`
	Skipped       int                            `json:"skipped_frames"`
	Reps          []model.RepScore               `json:"reps"`
	AverageScore  float64                        `json:"average_score"`
	Compensations map[model.CompensationType]int `json:"compensations"`
	Feedback      []model.FeedbackItem           `json:"feedback"`
	Analysis      model.KineticChainAnalysis     `json:"analysis"`
	Elapsed       time.Duration                  `json:"elapsed"`
}

// Replay runs frames through a fresh in-process session, without the HTTP
// service or its queue.
func Replay(ctx context.Context, frames []model.Frame, exercise string, skipCalibration bool, opts ...session.Option) (Report, error) {
	started := time.Now()
	sess := session.New(uuid.NewString(), exercise, skipCalibration, opts...)
	rep := Report{
		SessionID:     sess.ID(),
		Compensations: map[model.CompensationType]int{},
	}

	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		res := sess.Process(f)
		for _, c := range res.Compensations {
			rep.Compensations[c.Type]++
		}
		rep.Feedback = append(rep.Feedback, res.Rep.Feedback...)
	}

	snap := sess.Snapshot()
	rep.Exercise = snap.Exercise
	rep.Frames = snap.Frames
	rep.Skipped = snap.Skipped
	rep.Reps = sess.Scores()
	rep.AverageScore = snap.AverageScore
	rep.Analysis = sess.Analyze()
	rep.Elapsed = time.Since(started)
	return rep, nil
}
