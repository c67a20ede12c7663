package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/kinetica/internal/adapters/http/api"
	"github.com/okian/kinetica/internal/adapters/mq/queue"
	repository "github.com/okian/kinetica/internal/adapters/repository"
	"github.com/okian/kinetica/internal/domain/model"
	"github.com/okian/kinetica/internal/domain/types"
	"github.com/okian/kinetica/internal/session"
	"github.com/okian/kinetica/internal/simulator"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *mockDeduper) SeenAndRecord(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDeduper) Unrecord(_ context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
}

func (m *mockDeduper) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.seen))
}

type mockLeaderboard struct {
	topN    []types.Entry
	rank    types.Entry
	rankErr error
	topNErr error
}

func (m *mockLeaderboard) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if m.topNErr != nil {
		return nil, m.topNErr
	}
	if n > len(m.topN) {
		return m.topN, nil
	}
	return m.topN[:n], nil
}

func (m *mockLeaderboard) Rank(_ context.Context, _ string) (types.Entry, error) {
	if m.rankErr != nil {
		return types.Entry{}, m.rankErr
	}
	return m.rank, nil
}

type mockDeps struct {
	*mockDeduper
	*mockLeaderboard

	manager        *session.Manager
	enqueueSuccess bool
	enqueued       []queue.Event
	streamed       []string
}

func newMockDeps() *mockDeps {
	return &mockDeps{
		mockDeduper:     &mockDeduper{},
		mockLeaderboard: &mockLeaderboard{},
		manager:         session.NewManager(),
		enqueueSuccess:  true,
	}
}

func (m *mockDeps) CreateSession(_ context.Context, exercise string, skip bool) (session.Summary, error) {
	return m.manager.Create(exercise, skip).Snapshot(), nil
}

func (m *mockDeps) Session(_ context.Context, id string) (*session.Session, error) {
	return m.manager.Get(id)
}

func (m *mockDeps) DeleteSession(_ context.Context, id string) error {
	return m.manager.Delete(id)
}

func (m *mockDeps) ListSessions(_ context.Context) []session.Summary {
	return m.manager.List()
}

func (m *mockDeps) Exercises() []string {
	return m.manager.Exercises()
}

func (m *mockDeps) Enqueue(_ context.Context, e queue.Event) bool {
	if m.enqueueSuccess {
		m.enqueued = append(m.enqueued, e)
		return true
	}
	return false
}

func (m *mockDeps) ServeStream(w http.ResponseWriter, _ *http.Request, id string) {
	m.streamed = append(m.streamed, id)
	w.WriteHeader(http.StatusOK)
}

type mockStats struct{}

func (mockStats) GetStats() map[string]any {
	return map[string]any{"sessions_active": 2}
}

func newMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{}, 50).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	return v
}

func frameBody(id string) map[string]any {
	return map[string]any{
		"frame_id":  id,
		"ts":        "2026-03-01T10:00:00.250Z",
		"landmarks": simulator.Standing().Landmarks(),
	}
}

func TestSessionsAPI(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When creating a session", func() {
			w := do(mux, http.MethodPost, "/sessions", map[string]any{"exercise": "Squat", "skip_calibration": true})
			created := decode[session.Summary](w)

			Convey("Then it returns 201 with the resolved exercise", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Header().Get("Location"), ShouldEqual, "/sessions/"+created.ID)
				So(created.Exercise, ShouldEqual, "squat")
				So(created.KnownConfig, ShouldBeTrue)
				So(created.Calibrating, ShouldBeFalse)
			})

			Convey("And it can be read back and listed", func() {
				got := do(mux, http.MethodGet, "/sessions/"+created.ID, nil)
				So(got.Code, ShouldEqual, http.StatusOK)
				So(decode[session.Summary](got).ID, ShouldEqual, created.ID)

				list := do(mux, http.MethodGet, "/sessions", nil)
				So(decode[[]session.Summary](list), ShouldHaveLength, 1)
			})

			Convey("And switching exercise reports whether it was known", func() {
				w := do(mux, http.MethodPut, "/sessions/"+created.ID+"/exercise", map[string]string{"exercise": "push-up"})
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode[map[string]any](w)
				So(body["name"], ShouldEqual, "push_up")
				So(body["known"], ShouldEqual, true)

				w = do(mux, http.MethodPut, "/sessions/"+created.ID+"/exercise", map[string]string{"exercise": "zumba"})
				So(decode[map[string]any](w)["known"], ShouldEqual, false)
			})

			Convey("And reps and analysis are empty before any frame", func() {
				reps := decode[map[string]any](do(mux, http.MethodGet, "/sessions/"+created.ID+"/reps", nil))
				So(reps["rep_count"], ShouldEqual, 0.0)
				So(reps["reps"], ShouldBeEmpty)

				analysis := decode[model.KineticChainAnalysis](do(mux, http.MethodGet, "/sessions/"+created.ID+"/analysis", nil))
				So(analysis.PrimaryDysfunction, ShouldEqual, model.DysfunctionNone)
			})

			Convey("And deleting it makes it unknown", func() {
				So(do(mux, http.MethodDelete, "/sessions/"+created.ID, nil).Code, ShouldEqual, http.StatusNoContent)
				So(do(mux, http.MethodGet, "/sessions/"+created.ID, nil).Code, ShouldEqual, http.StatusNotFound)
				So(do(mux, http.MethodDelete, "/sessions/"+created.ID, nil).Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the request is malformed", func() {
			So(do(mux, http.MethodPost, "/sessions", "{").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/sessions", map[string]any{"exercise": " "}).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the session does not exist", func() {
			for _, path := range []string{"/sessions/nope", "/sessions/nope/reps", "/sessions/nope/analysis", "/sessions/nope/calibration"} {
				w := do(mux, http.MethodGet, path, nil)
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decode[map[string]string](w)["code"], ShouldEqual, "not_found")
			}
		})

		Convey("When listing exercises", func() {
			names := decode[[]string](do(mux, http.MethodGet, "/exercises", nil))
			So(names, ShouldContain, "squat")
		})
	})
}

func TestCalibrationAPI(t *testing.T) {
	Convey("Given a calibrating session", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)
		s := deps.manager.Create("squat", false)
		base := "/sessions/" + s.ID() + "/calibration"

		Convey("Its calibration state reports progress", func() {
			st := decode[session.CalibrationState](do(mux, http.MethodGet, base, nil))
			So(st.Calibrating, ShouldBeTrue)
			So(st.Default, ShouldBeTrue)
		})

		Convey("Skipping installs the default profile and stops calibrating", func() {
			w := do(mux, http.MethodPost, base+"/skip", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			st := decode[session.CalibrationState](w)
			So(st.Calibrating, ShouldBeFalse)
			So(st.Default, ShouldBeTrue)
		})

		Convey("Cancelling stops calibrating", func() {
			st := decode[session.CalibrationState](do(mux, http.MethodPost, base+"/cancel", nil))
			So(st.Calibrating, ShouldBeFalse)
		})

		Convey("Resetting starts over", func() {
			do(mux, http.MethodPost, base+"/cancel", nil)
			st := decode[session.CalibrationState](do(mux, http.MethodPost, base+"/reset", nil))
			So(st.Calibrating, ShouldBeTrue)
			So(st.Progress.Accepted, ShouldEqual, 0)
		})
	})
}

func TestFramesAPI(t *testing.T) {
	Convey("Given a session", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)
		s := deps.manager.Create("squat", true)
		path := "/sessions/" + s.ID() + "/frames"

		Convey("When posting a valid frame", func() {
			w := do(mux, http.MethodPost, path, frameBody("f-1"))

			Convey("Then it is accepted and enqueued for the session", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(decode[map[string]any](w)["status"], ShouldEqual, "accepted")
				So(deps.enqueued, ShouldHaveLength, 1)
				So(deps.enqueued[0].SessionID, ShouldEqual, s.ID())
				So(deps.enqueued[0].Frame.ID, ShouldEqual, "f-1")
				So(deps.enqueued[0].Frame.Landmarks, ShouldHaveLength, model.MinLandmarks)
				So(deps.enqueued[0].Frame.Timestamp.Nanosecond(), ShouldEqual, 250_000_000)
			})

			Convey("And posting it again is reported as a duplicate", func() {
				w := do(mux, http.MethodPost, path, frameBody("f-1"))
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[map[string]any](w)["duplicate"], ShouldEqual, true)
				So(deps.enqueued, ShouldHaveLength, 1)
			})
		})

		Convey("When the queue is full", func() {
			deps.enqueueSuccess = false
			w := do(mux, http.MethodPost, path, frameBody("f-2"))

			Convey("Then it answers 429 and forgets the frame id", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode[map[string]string](w)["code"], ShouldEqual, "backpressure")
				So(deps.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the frame is short of landmarks", func() {
			body := frameBody("f-3")
			body["landmarks"] = simulator.Standing().Landmarks()[:20]
			w := do(mux, http.MethodPost, path, body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[map[string]string](w)["message"], ShouldContainSubstring, "expected 33 landmarks")
		})

		Convey("When the frame id or timestamp is invalid", func() {
			body := frameBody("")
			So(do(mux, http.MethodPost, path, body).Code, ShouldEqual, http.StatusBadRequest)
			body = frameBody("f-4")
			body["ts"] = "yesterday"
			So(do(mux, http.MethodPost, path, body).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the session is unknown", func() {
			So(do(mux, http.MethodPost, "/sessions/ghost/frames", frameBody("f-5")).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestLeaderboardAPI(t *testing.T) {
	Convey("Given a leaderboard", t, func() {
		deps := newMockDeps()
		for i := 1; i <= 20; i++ {
			deps.topN = append(deps.topN, types.Entry{Rank: i, SessionID: fmt.Sprintf("s%d", i), Score: float64(100 - i)})
		}
		mux := newMux(deps)

		Convey("The default limit applies without a query", func() {
			w := do(mux, http.MethodGet, "/leaderboard", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[[]types.Entry](w), ShouldHaveLength, 10)
		})

		Convey("An explicit limit is honoured", func() {
			So(decode[[]types.Entry](do(mux, http.MethodGet, "/leaderboard?limit=3", nil)), ShouldHaveLength, 3)
		})

		Convey("Invalid limits are rejected", func() {
			So(do(mux, http.MethodGet, "/leaderboard?limit=0", nil).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/leaderboard?limit=abc", nil).Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodGet, "/leaderboard?limit=51", nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[map[string]string](w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("Store failures are internal errors", func() {
			deps.topNErr = errors.New("boom")
			So(do(mux, http.MethodGet, "/leaderboard", nil).Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("A session's rank is served", func() {
			deps.rank = types.Entry{Rank: 2, SessionID: "s2", Score: 98}
			w := do(mux, http.MethodGet, "/leaderboard/s2", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[types.Entry](w).Rank, ShouldEqual, 2)
		})

		Convey("Unranked sessions are 404", func() {
			deps.rankErr = repository.ErrNotFound
			So(do(mux, http.MethodGet, "/leaderboard/zz", nil).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServiceEndpoints(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("Stats are served as JSON", func() {
			w := do(mux, http.MethodGet, "/stats", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(decode[map[string]any](w)["sessions_active"], ShouldEqual, 2.0)
		})

		Convey("Health serves the Prometheus exposition", func() {
			w := do(mux, http.MethodGet, "/healthz", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "kinetica_")
		})

		Convey("Stream requests are handed over for known sessions only", func() {
			s := deps.manager.Create("squat", true)
			So(do(mux, http.MethodGet, "/sessions/"+s.ID()+"/stream", nil).Code, ShouldEqual, http.StatusOK)
			So(deps.streamed, ShouldResemble, []string{s.ID()})
			So(do(mux, http.MethodGet, "/sessions/nope/stream", nil).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Unrouted methods are rejected", func() {
			w := do(mux, http.MethodPatch, "/leaderboard", nil)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(strings.Contains(w.Header().Get("Allow"), http.MethodGet), ShouldBeTrue)
		})
	})
}
