package stream_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/kinetica/internal/adapters/http/stream"
	"github.com/okian/kinetica/internal/domain/calibration"
	"github.com/okian/kinetica/internal/domain/model"
	"github.com/okian/kinetica/internal/domain/repscore"
	"github.com/okian/kinetica/internal/session"
	. "github.com/smartystreets/goconvey/convey"
)

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestMessages(t *testing.T) {
	Convey("Given frame results", t, func() {
		ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		Convey("A scored frame with a completed rep yields every message kind", func() {
			res := session.FrameResult{
				SessionID: "s1", FrameID: "f9", Timestamp: ts, Status: session.StatusScored,
				Compensations: []model.CompensationPattern{{Type: model.CompensationKneeValgus, Severity: model.SeverityMild}},
				Cues:          []model.CompensationPattern{{Type: model.CompensationKneeValgus, Severity: model.SeverityMild}},
				Rep: repscore.Update{
					Phase: model.PhaseStart, Previous: model.PhaseConcentric, Changed: true, Angle: 172,
					Score:    &model.RepScore{Overall: 91},
					Feedback: []model.FeedbackItem{{Text: "Great rep!"}, {Text: "Knees out"}},
				},
			}
			msgs := stream.Messages(res)

			So(msgs, ShouldHaveLength, 5)
			So(msgs[0].Type, ShouldEqual, stream.MessageCompensations)
			So(msgs[1].Type, ShouldEqual, stream.MessagePhase)
			So(msgs[2].Type, ShouldEqual, stream.MessageRep)
			So(msgs[3].Type, ShouldEqual, stream.MessageFeedback)
			So(msgs[4].Type, ShouldEqual, stream.MessageFeedback)
			for _, m := range msgs {
				So(m.SessionID, ShouldEqual, "s1")
				So(m.FrameID, ShouldEqual, "f9")
				So(m.Timestamp, ShouldEqual, ts)
			}
		})

		Convey("Only the capped cues are streamed", func() {
			valgus := model.CompensationPattern{Type: model.CompensationKneeValgus, Severity: model.SeveritySevere, Side: model.SideLeft}
			lean := model.CompensationPattern{Type: model.CompensationTrunkLean, Severity: model.SeverityMild}
			msgs := stream.Messages(session.FrameResult{
				SessionID:     "s1",
				Status:        session.StatusScored,
				Compensations: []model.CompensationPattern{valgus, lean},
				Cues:          []model.CompensationPattern{valgus},
			})
			So(msgs, ShouldHaveLength, 1)
			So(msgs[0].Data, ShouldResemble, []model.CompensationPattern{valgus})
		})

		Convey("A quiet scored frame still clears compensations", func() {
			msgs := stream.Messages(session.FrameResult{SessionID: "s1", Status: session.StatusScored})
			So(msgs, ShouldHaveLength, 1)
			So(msgs[0].Type, ShouldEqual, stream.MessageCompensations)
		})

		Convey("Calibration frames report progress", func() {
			p := calibration.Progress{Accepted: 3, Target: 30}
			msgs := stream.Messages(session.FrameResult{SessionID: "s1", Status: session.StatusCalibrating, Calibration: &p})
			So(msgs, ShouldHaveLength, 1)
			So(msgs[0].Type, ShouldEqual, stream.MessageCalibration)
		})

		Convey("Skipped frames produce nothing", func() {
			So(stream.Messages(session.FrameResult{Status: session.StatusInsufficientData}), ShouldBeEmpty)
		})
	})
}

func TestHub(t *testing.T) {
	Convey("Given a hub behind an HTTP server", t, func() {
		hub := stream.NewHub(stream.WithBufferSize(8))
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hub.Serve(w, r, strings.TrimPrefix(r.URL.Path, "/"))
		}))
		defer srv.Close()
		url := "ws" + strings.TrimPrefix(srv.URL, "http")

		conn, _, err := websocket.DefaultDialer.Dial(url+"/s1", nil)
		So(err, ShouldBeNil)
		defer conn.Close()
		So(waitFor(func() bool { return hub.Clients() == 1 }), ShouldBeTrue)

		Convey("Published messages reach the session's subscriber", func() {
			hub.Publish("other", stream.Message{Type: stream.MessageRep, SessionID: "other"})
			hub.Publish("s1", stream.Message{Type: stream.MessagePhase, SessionID: "s1", Data: "TURN"})

			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			var got stream.Message
			So(conn.ReadJSON(&got), ShouldBeNil)
			So(got.Type, ShouldEqual, stream.MessagePhase)
			So(got.SessionID, ShouldEqual, "s1")
			So(got.Data, ShouldEqual, "TURN")
		})

		Convey("Closing the session disconnects the subscriber", func() {
			hub.CloseSession("s1")
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, _, err := conn.ReadMessage()
			So(websocket.IsCloseError(err, websocket.CloseNormalClosure), ShouldBeTrue)
			So(waitFor(func() bool { return hub.Clients() == 0 }), ShouldBeTrue)
		})

		Convey("A client hanging up is unsubscribed", func() {
			_ = conn.Close()
			So(waitFor(func() bool { return hub.Clients() == 0 }), ShouldBeTrue)
		})

		Convey("A closed hub turns new subscribers away", func() {
			hub.Close()
			So(waitFor(func() bool { return hub.Clients() == 0 }), ShouldBeTrue)

			late, _, err := websocket.DefaultDialer.Dial(url+"/s2", nil)
			So(err, ShouldBeNil)
			defer late.Close()
			_ = late.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, _, err = late.ReadMessage()
			So(websocket.IsCloseError(err, websocket.CloseGoingAway), ShouldBeTrue)
		})
	})
}
