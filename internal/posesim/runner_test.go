package posesim

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kinetica/internal/adapters/http/api"
	service "github.com/okian/kinetica/internal/app"
	"github.com/okian/kinetica/internal/domain/types"
	"github.com/okian/kinetica/internal/simulator"
	"github.com/okian/kinetica/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newTestServer(ctx context.Context) (*service.Service, *httptest.Server) {
	svc := service.New(
		service.WithWorkerCount(2),
		service.WithQueueSize(1000),
		service.WithLogger(logger.Nop()),
		service.WithSessionOptions(unsmoothed()),
	)
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, 100).Register(ctx, mux)
	return svc, httptest.NewServer(mux)
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		svc, srv := newTestServer(ctx)
		defer srv.Close()
		defer func() { _ = svc.Stop(ctx) }()

		tr := simulator.DefaultTrajectory()
		tr.Reps = 2
		tr.FramesPerRep = 20
		cfg := Config{
			BaseURL:    srv.URL,
			Sessions:   3,
			Workers:    2,
			Timeout:    5 * time.Second,
			Wait:       10 * time.Second,
			Exercise:   "squat",
			TopN:       10,
			Trajectory: tr,
			Logger:     logger.Nop(),
		}

		Convey("Every session is streamed, scored and ranked", func() {
			stats, err := Run(ctx, cfg)
			So(err, ShouldBeNil)
			So(stats.Sessions, ShouldEqual, 3)
			So(stats.FramesSubmitted, ShouldEqual, int64(3*tr.Len()))
			So(stats.Accepted, ShouldEqual, stats.FramesSubmitted)
			So(stats.Failed, ShouldEqual, int64(0))
			So(stats.RepsExpected, ShouldEqual, 6)
			So(stats.RepsScored, ShouldEqual, 6)
			So(stats.Leaderboard, ShouldHaveLength, 3)
			So(stats.Results, ShouldHaveLength, 3)
		})

		Convey("Cleanup removes the sessions afterwards", func() {
			cfg.Cleanup = true
			_, err := Run(ctx, cfg)
			So(err, ShouldBeNil)
			So(svc.ListSessions(ctx), ShouldBeEmpty)
		})

		Convey("An unreachable service fails the health check", func() {
			cfg.BaseURL = "http://127.0.0.1:1"
			_, err := Run(ctx, cfg)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestClient(t *testing.T) {
	Convey("Given a client for a running service", t, func() {
		ctx := context.Background()
		svc, srv := newTestServer(ctx)
		defer srv.Close()
		defer func() { _ = svc.Stop(ctx) }()
		c := NewClient(srv.URL, 5*time.Second)

		Convey("Sessions can be created and deleted", func() {
			s, err := c.CreateSession(ctx, "squat", true)
			So(err, ShouldBeNil)
			So(s.ID, ShouldNotBeEmpty)
			So(s.Exercise, ShouldEqual, "squat")
			So(c.DeleteSession(ctx, s.ID), ShouldBeNil)
		})

		Convey("Deleting an unknown session reports the status", func() {
			err := c.DeleteSession(ctx, "missing")
			So(errors.Is(err, ErrUnexpectedStatus), ShouldBeTrue)
		})

		Convey("A repeated frame is reported as a duplicate", func() {
			s, err := c.CreateSession(ctx, "squat", true)
			So(err, ShouldBeNil)
			frames, _ := simulator.DefaultTrajectory().Generate()

			res, err := c.PostFrame(ctx, s.ID, frames[0])
			So(err, ShouldBeNil)
			So(res, ShouldEqual, SubmitAccepted)

			res, err = c.PostFrame(ctx, s.ID, frames[0])
			So(err, ShouldBeNil)
			So(res, ShouldEqual, SubmitDuplicate)
		})

		Convey("Frames for an unknown session fail", func() {
			frames, _ := simulator.DefaultTrajectory().Generate()
			res, err := c.PostFrame(ctx, "missing", frames[0])
			So(res, ShouldEqual, SubmitFailed)
			So(errors.Is(err, ErrUnexpectedStatus), ShouldBeTrue)
		})
	})
}

func TestCalibrationFrames(t *testing.T) {
	Convey("Given a trajectory starting at a known time", t, func() {
		tr := simulator.DefaultTrajectory()
		tr.Start = time.Unix(1_700_000_000, 0).UTC()

		Convey("Standing frames precede the start", func() {
			frames := calibrationFrames(tr, 4)
			So(frames, ShouldHaveLength, 4)
			So(frames[3].Timestamp.Before(tr.Start), ShouldBeTrue)
			So(frames[0].Timestamp.Before(frames[1].Timestamp), ShouldBeTrue)
			So(frames[0].ID, ShouldNotEqual, frames[1].ID)
		})

		Convey("Zero frames means none", func() {
			So(calibrationFrames(tr, 0), ShouldBeNil)
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given run statistics", t, func() {
		results := []SessionResult{
			{SessionID: "a", Reps: 2, AverageScore: 80},
			{SessionID: "b", Reps: 2, AverageScore: 60},
		}

		Convey("A consistent leaderboard passes", func() {
			stats := &Stats{Results: results, Leaderboard: []types.Entry{
				{Rank: 1, SessionID: "a", Score: 80},
				{Rank: 2, SessionID: "b", Score: 60},
			}}
			So(verify(stats), ShouldBeNil)
		})

		Convey("An unsorted leaderboard fails", func() {
			stats := &Stats{Results: results, Leaderboard: []types.Entry{
				{Rank: 1, SessionID: "b", Score: 60},
				{Rank: 2, SessionID: "a", Score: 80},
			}}
			So(errors.Is(verify(stats), ErrVerification), ShouldBeTrue)
		})

		Convey("A top score below the best session fails", func() {
			stats := &Stats{Results: results, Leaderboard: []types.Entry{{Rank: 1, SessionID: "b", Score: 60}}}
			So(errors.Is(verify(stats), ErrVerification), ShouldBeTrue)
		})

		Convey("Scored sessions require a leaderboard", func() {
			So(errors.Is(verify(&Stats{Results: results}), ErrVerification), ShouldBeTrue)
		})

		Convey("Nothing scored has nothing to verify", func() {
			So(verify(&Stats{}), ShouldBeNil)
		})
	})
}
