// Package stream pushes live per-frame results to websocket subscribers.
package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/kinetica/internal/session"
	"github.com/okian/kinetica/pkg/logger"
	"github.com/okian/kinetica/pkg/metrics"
)

const (
	defaultBufferSize   = 64
	defaultWriteTimeout = 5 * time.Second
	defaultPingInterval = 30 * time.Second
)

// MessageType tags stream messages.
type MessageType string

const (
	MessageCompensations MessageType = "compensations"
	MessagePhase         MessageType = "phase"
	MessageRep           MessageType = "rep"
	MessageFeedback      MessageType = "feedback"
	MessageCalibration   MessageType = "calibration"
)

// Message is one JSON frame on the websocket.
type Message struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	FrameID   string      `json:"frame_id,omitempty"`
	Timestamp time.Time   `json:"ts"`
	Data      any         `json:"data"`
}

type phaseChange struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Angle float64 `json:"angle"`
}

// Messages converts a frame result into the stream messages it produces.
// The top compensation cues are sent for every scored frame, even when empty,
// so that clients can clear stale warnings.
func Messages(res session.FrameResult) []Message {
	base := Message{SessionID: res.SessionID, FrameID: res.FrameID, Timestamp: res.Timestamp}
	with := func(t MessageType, data any) Message {
		m := base
		m.Type = t
		m.Data = data
		return m
	}

	var out []Message
	switch res.Status {
	case session.StatusCalibrating, session.StatusCalibrated:
		if res.Calibration != nil {
			out = append(out, with(MessageCalibration, *res.Calibration))
		}
	case session.StatusScored:
		out = append(out, with(MessageCompensations, res.Cues))
		if res.Rep.Changed {
			out = append(out, with(MessagePhase, phaseChange{
				From:  string(res.Rep.Previous),
				To:    string(res.Rep.Phase),
				Angle: res.Rep.Angle,
			}))
		}
		if res.Rep.Score != nil {
			out = append(out, with(MessageRep, *res.Rep.Score))
		}
		for _, f := range res.Rep.Feedback {
			out = append(out, with(MessageFeedback, f))
		}
	}
	return out
}

type client struct {
	sessionID string
	send      chan Message
}

// Hub tracks websocket subscribers per session.
type Hub struct {
	upgrader     websocket.Upgrader
	bufferSize   int
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       logger.Logger

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	total   int
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		bufferSize:   defaultBufferSize,
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
		logger:       logger.Nop(),
		clients:      make(map[string]map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// Publish delivers msgs to every subscriber of sessionID without blocking.
// Subscribers whose buffer is full miss the message.
func (h *Hub) Publish(sessionID string, msgs ...Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[sessionID] {
		for _, m := range msgs {
			select {
			case c.send <- m:
			default:
				metrics.RecordStreamDropped()
			}
		}
	}
}

func (h *Hub) subscribe(sessionID string) (*client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &client{sessionID: sessionID, send: make(chan Message, h.bufferSize)}
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = make(map[*client]struct{})
	}
	h.clients[sessionID][c] = struct{}{}
	h.total++
	metrics.UpdateStreamClients(h.total)
	return c, true
}

func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.sessionID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.sessionID)
	}
	close(c.send)
	h.total--
	metrics.UpdateStreamClients(h.total)
}

// CloseSession disconnects every subscriber of sessionID.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.RLock()
	var victims []*client
	for c := range h.clients[sessionID] {
		victims = append(victims, c)
	}
	h.mu.RUnlock()
	for _, c := range victims {
		h.unsubscribe(c)
	}
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var victims []*client
	for _, set := range h.clients {
		for c := range set {
			victims = append(victims, c)
		}
	}
	h.mu.Unlock()
	for _, c := range victims {
		h.unsubscribe(c)
	}
}

// Serve upgrades the request and streams sessionID's messages until either
// side closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string) {
	ctx := r.Context()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.RecordErrorByComponent("stream", "upgrade")
		h.logger.Warn(ctx, "websocket upgrade error", logger.Error(err))
		return
	}
	defer conn.Close()

	c, ok := h.subscribe(sessionID)
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(h.writeTimeout))
		return
	}
	defer h.unsubscribe(c)

	go h.readPump(ctx, conn, c)
	h.writePump(ctx, conn, c)
}

// readPump discards client messages and unsubscribes when the peer goes away.
func (h *Hub) readPump(ctx context.Context, conn *websocket.Conn, c *client) {
	defer h.unsubscribe(c)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug(ctx, "websocket closed", logger.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(ctx context.Context, conn *websocket.Conn, c *client) {
	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()
	for {
		select {
		case m, ok := <-c.send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(h.writeTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteJSON(m); err != nil {
				metrics.RecordErrorByComponent("stream", "write")
				h.logger.Debug(ctx, "websocket write failed", logger.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
				return
			}
		}
	}
}
