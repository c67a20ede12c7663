// Package publisher fans coaching feedback and completed reps out to an
// MQTT broker.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/okian/kinetica/internal/domain/model"
	"github.com/okian/kinetica/pkg/logger"
	"github.com/okian/kinetica/pkg/metrics"
)

const (
	defaultPrefix   = "kinetica"
	defaultClientID = "kinetica"
	defaultTimeout  = 2 * time.Second

	kindFeedback = "feedback"
	kindRep      = "reps"
)

// Publisher delivers session events to subscribers outside the process.
type Publisher interface {
	PublishFeedback(ctx context.Context, sessionID string, items []model.FeedbackItem) error
	PublishRep(ctx context.Context, sessionID string, rep model.RepScore) error
	Close()
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishFeedback(context.Context, string, []model.FeedbackItem) error { return nil }
func (Nop) PublishRep(context.Context, string, model.RepScore) error            { return nil }
func (Nop) Close()                                                               {}

// FeedbackMessage is the payload published on <prefix>/sessions/<id>/feedback.
type FeedbackMessage struct {
	SessionID string               `json:"session_id"`
	Items     []model.FeedbackItem `json:"items"`
}

// RepMessage is the payload published on <prefix>/sessions/<id>/reps.
type RepMessage struct {
	SessionID string         `json:"session_id"`
	Rep       model.RepScore `json:"rep"`
}

// MQTTPublisher publishes JSON payloads with paho.
type MQTTPublisher struct {
	client   mqtt.Client
	broker   string
	clientID string
	prefix   string
	qos      byte
	timeout  time.Duration
	logger   logger.Logger
}

// NewMQTT builds a publisher for broker (for example tcp://localhost:1883).
// Call Connect before publishing.
func NewMQTT(broker string, opts ...Option) *MQTTPublisher {
	p := &MQTTPublisher{
		broker:   broker,
		clientID: defaultClientID,
		prefix:   defaultPrefix,
		qos:      1,
		timeout:  defaultTimeout,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = mqtt.NewClient(p.clientOptions())
	}
	return p
}

func (p *MQTTPublisher) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.broker)
	opts.SetClientID(p.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		p.logger.Info(context.Background(), "mqtt connection established",
			logger.String("broker", p.broker),
			logger.String("client_id", p.clientID))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		metrics.RecordErrorByComponent("mqtt", "connection_lost")
		p.logger.Warn(context.Background(), "mqtt connection lost, will auto-reconnect",
			logger.String("broker", p.broker),
			logger.Error(err))
	}
	return opts
}

// Connect dials the broker and waits for the acknowledgement.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	p.logger.Info(ctx, "connecting to mqtt broker", logger.String("broker", p.broker))
	return p.wait(ctx, p.client.Connect(), "connect")
}

// Topic returns the topic events of kind are published on.
func (p *MQTTPublisher) Topic(sessionID, kind string) string {
	return fmt.Sprintf("%s/sessions/%s/%s", p.prefix, sessionID, kind)
}

// PublishFeedback publishes a batch of feedback items. Empty batches are skipped.
func (p *MQTTPublisher) PublishFeedback(ctx context.Context, sessionID string, items []model.FeedbackItem) error {
	if len(items) == 0 {
		return nil
	}
	return p.publish(ctx, sessionID, kindFeedback, FeedbackMessage{SessionID: sessionID, Items: items})
}

// PublishRep publishes a completed repetition.
func (p *MQTTPublisher) PublishRep(ctx context.Context, sessionID string, rep model.RepScore) error {
	return p.publish(ctx, sessionID, kindRep, RepMessage{SessionID: sessionID, Rep: rep})
}

func (p *MQTTPublisher) publish(ctx context.Context, sessionID, kind string, v any) error {
	if !p.client.IsConnectionOpen() {
		metrics.RecordPublishError(kind)
		return ErrNotConnected
	}
	payload, err := json.Marshal(v)
	if err != nil {
		metrics.RecordPublishError(kind)
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	topic := p.Topic(sessionID, kind)
	if err := p.wait(ctx, p.client.Publish(topic, p.qos, false, payload), "publish"); err != nil {
		metrics.RecordPublishError(kind)
		return err
	}
	metrics.RecordPublish(kind)
	p.logger.Debug(ctx, "event published",
		logger.String("topic", topic),
		logger.Int("size", len(payload)))
	return nil
}

func (p *MQTTPublisher) wait(ctx context.Context, token mqtt.Token, op string) error {
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close disconnects, allowing in-flight messages a short grace period.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
