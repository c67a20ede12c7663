package api

import (
	"context"
	"net/http"

	"github.com/okian/kinetica/internal/session"
)

// StreamDependencies defines the interface for live result streaming.
type StreamDependencies interface {
	Session(ctx context.Context, id string) (*session.Session, error)
	// ServeStream upgrades the request and streams the session's results.
	ServeStream(w http.ResponseWriter, r *http.Request, sessionID string)
}

// StreamHandler handles websocket subscriptions.
type StreamHandler struct {
	deps StreamDependencies
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps StreamDependencies) *StreamHandler {
	return &StreamHandler{deps: deps}
}

// HandleStream handles GET /sessions/{id}/stream requests.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream"
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if _, err := h.deps.Session(r.Context(), id); err != nil {
		writeLookupError(w, op, err)
		return
	}
	h.deps.ServeStream(w, r, id)
}
