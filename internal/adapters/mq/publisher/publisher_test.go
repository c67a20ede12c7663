package publisher_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/okian/kinetica/internal/adapters/mq/publisher"
	"github.com/okian/kinetica/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type doneToken struct {
	err  error
	done chan struct{}
}

func newToken(err error, complete bool) *doneToken {
	t := &doneToken{err: err, done: make(chan struct{})}
	if complete {
		close(t.done)
	}
	return t
}

func (t *doneToken) Wait() bool                     { <-t.done; return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{}          { return t.done }
func (t *doneToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient implements the parts of mqtt.Client the publisher uses.
type fakeClient struct {
	mqtt.Client

	mu         sync.Mutex
	open       bool
	publishErr error
	hang       bool
	messages   []published
}

func (c *fakeClient) IsConnectionOpen() bool { return c.open }

func (c *fakeClient) Connect() mqtt.Token {
	c.open = true
	return newToken(nil, true)
}

func (c *fakeClient) Disconnect(uint) { c.open = false }

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hang {
		return newToken(nil, false)
	}
	c.messages = append(c.messages, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return newToken(c.publishErr, true)
}

func TestMQTTPublisher(t *testing.T) {
	Convey("Given a connected publisher", t, func() {
		ctx := context.Background()
		client := &fakeClient{}
		p := publisher.NewMQTT("tcp://broker:1883",
			publisher.WithClient(client),
			publisher.WithTopicPrefix("gym"),
			publisher.WithTimeout(50*time.Millisecond))
		So(p.Connect(ctx), ShouldBeNil)

		Convey("Feedback goes to the session feedback topic", func() {
			items := []model.FeedbackItem{{Text: "Keep your knees out", Priority: model.PriorityCorrective}}
			So(p.PublishFeedback(ctx, "s-1", items), ShouldBeNil)

			So(client.messages, ShouldHaveLength, 1)
			So(client.messages[0].topic, ShouldEqual, "gym/sessions/s-1/feedback")
			So(client.messages[0].qos, ShouldEqual, 1)

			var msg publisher.FeedbackMessage
			So(json.Unmarshal(client.messages[0].payload, &msg), ShouldBeNil)
			So(msg.SessionID, ShouldEqual, "s-1")
			So(msg.Items[0].Text, ShouldEqual, "Keep your knees out")
		})

		Convey("Empty feedback batches are not published", func() {
			So(p.PublishFeedback(ctx, "s-1", nil), ShouldBeNil)
			So(client.messages, ShouldBeEmpty)
		})

		Convey("Reps go to the session reps topic", func() {
			So(p.PublishRep(ctx, "s-2", model.RepScore{Overall: 88}), ShouldBeNil)
			So(client.messages[0].topic, ShouldEqual, "gym/sessions/s-2/reps")

			var msg publisher.RepMessage
			So(json.Unmarshal(client.messages[0].payload, &msg), ShouldBeNil)
			So(msg.Rep.Overall, ShouldEqual, 88)
		})

		Convey("Broker errors are returned", func() {
			client.publishErr = errors.New("not authorized")
			err := p.PublishRep(ctx, "s-3", model.RepScore{})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not authorized")
		})

		Convey("Unacknowledged publishes time out", func() {
			client.hang = true
			err := p.PublishRep(ctx, "s-4", model.RepScore{})
			So(errors.Is(err, publisher.ErrTimeout), ShouldBeTrue)
		})

		Convey("After Close nothing is published", func() {
			p.Close()
			err := p.PublishRep(ctx, "s-5", model.RepScore{})
			So(errors.Is(err, publisher.ErrNotConnected), ShouldBeTrue)
		})
	})
}

func TestNop(t *testing.T) {
	Convey("The no-op publisher accepts everything", t, func() {
		var p publisher.Publisher = publisher.Nop{}
		So(p.PublishRep(context.Background(), "s", model.RepScore{}), ShouldBeNil)
		So(p.PublishFeedback(context.Background(), "s", []model.FeedbackItem{{Text: "x"}}), ShouldBeNil)
		p.Close()
	})
}
