package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/kinetica/internal/adapters/mq/queue"
	"github.com/okian/kinetica/internal/domain/dedupe"
	"github.com/okian/kinetica/internal/domain/model"
	"github.com/okian/kinetica/internal/session"
	"github.com/okian/kinetica/pkg/metrics"
)

// FrameDependencies defines the interface for frame ingestion.
type FrameDependencies interface {
	dedupe.Deduper
	Session(ctx context.Context, id string) (*session.Session, error)
	// Enqueue pushes a frame for async processing. Returns false on backpressure.
	Enqueue(ctx context.Context, e queue.Event) bool
}

// FramesHandler handles landmark frame submissions.
type FramesHandler struct {
	deps FrameDependencies
}

// NewFramesHandler creates a new frames handler.
func NewFramesHandler(deps FrameDependencies) *FramesHandler {
	return &FramesHandler{deps: deps}
}

// frameRequest mirrors the OpenAPI schema for POST /sessions/{id}/frames.
type frameRequest struct {
	FrameID   string           `json:"frame_id"`
	TS        string           `json:"ts"`
	Landmarks []model.Landmark `json:"landmarks"`
}

func (f frameRequest) validate() error {
	switch {
	case strings.TrimSpace(f.FrameID) == "":
		return errors.New("missing frame_id")
	case len(f.Landmarks) < model.MinLandmarks:
		return fmt.Errorf("expected %d landmarks, got %d", model.MinLandmarks, len(f.Landmarks))
	}
	if f.TS != "" {
		if _, err := time.Parse(time.RFC3339Nano, f.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

func (f frameRequest) frame() model.Frame {
	ts := time.Now()
	if f.TS != "" {
		ts, _ = time.Parse(time.RFC3339Nano, f.TS)
	}
	return model.Frame{ID: f.FrameID, Timestamp: ts, Landmarks: f.Landmarks}
}

// HandlePostFrame handles POST /sessions/{id}/frames requests.
func (h *FramesHandler) HandlePostFrame(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_frame"
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if _, err := h.deps.Session(r.Context(), id); err != nil {
		writeLookupError(w, op, err)
		return
	}

	var req frameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check - mark as seen first
	key := dedupe.Key(id, req.FrameID)
	if h.deps.SeenAndRecord(r.Context(), key) {
		metrics.RecordFrameDuplicate()
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	if ok := h.deps.Enqueue(r.Context(), queue.Event{SessionID: id, Frame: req.frame()}); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), key)
		metrics.RecordFrameDropped("backpressure")
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
