package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/kinetica/internal/domain/exercise"
	"github.com/okian/kinetica/internal/domain/model"
	"github.com/okian/kinetica/internal/session"
)

// SessionDependencies defines the interface for session lifecycle operations.
type SessionDependencies interface {
	CreateSession(ctx context.Context, exercise string, skipCalibration bool) (session.Summary, error)
	Session(ctx context.Context, id string) (*session.Session, error)
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) []session.Summary
	Exercises() []string
}

// SessionsHandler handles session, calibration and result requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

type createSessionRequest struct {
	Exercise        string `json:"exercise"`
	SkipCalibration bool   `json:"skip_calibration"`
}

type setExerciseRequest struct {
	Exercise string `json:"exercise"`
}

type exerciseResponse struct {
	Requested     string                 `json:"requested"`
	Name          string                 `json:"name"`
	Known         bool                   `json:"known"`
	Category      model.ExerciseCategory `json:"category"`
	PrimaryJoints []model.JointName      `json:"primary_joints"`
	StartAngle    float64                `json:"start_angle"`
	BottomAngle   float64                `json:"bottom_angle"`
	TargetROM     float64                `json:"target_rom"`
	IdealTempoMs  int64                  `json:"ideal_tempo_ms"`
}

func newExerciseResponse(requested string, cfg exercise.Config, known bool) exerciseResponse {
	return exerciseResponse{
		Requested:     requested,
		Name:          cfg.Name,
		Known:         known,
		Category:      cfg.Category,
		PrimaryJoints: cfg.PrimaryJoints,
		StartAngle:    cfg.StartAngle,
		BottomAngle:   cfg.BottomAngle,
		TargetROM:     cfg.TargetROM,
		IdealTempoMs:  cfg.IdealTempo.Milliseconds(),
	}
}

type repsResponse struct {
	SessionID    string           `json:"session_id"`
	RepCount     int              `json:"rep_count"`
	AverageScore float64          `json:"average_score"`
	Reps         []model.RepScore `json:"reps"`
}

// HandleListExercises handles GET /exercises requests.
func (h *SessionsHandler) HandleListExercises(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Exercises())
}

// HandleCreate handles POST /sessions requests.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Exercise) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing exercise")))
		return
	}
	summary, err := h.deps.CreateSession(r.Context(), req.Exercise, req.SkipCalibration)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/sessions/"+summary.ID)
	writeJSON(w, http.StatusCreated, summary)
}

// HandleList handles GET /sessions requests.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.ListSessions(r.Context()))
}

// lookup resolves the {id} wildcard or answers the request itself.
func (h *SessionsHandler) lookup(w http.ResponseWriter, r *http.Request, op string) (*session.Session, bool) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return nil, false
	}
	s, err := h.deps.Session(r.Context(), id)
	if err != nil {
		writeLookupError(w, op, err)
		return nil, false
	}
	return s, true
}

// HandleGet handles GET /sessions/{id} requests.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r, "api.get_session")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// HandleDelete handles DELETE /sessions/{id} requests.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_session"
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.DeleteSession(r.Context(), id); err != nil {
		writeLookupError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetExercise handles PUT /sessions/{id}/exercise requests.
func (h *SessionsHandler) HandleSetExercise(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_exercise"
	s, ok := h.lookup(w, r, op)
	if !ok {
		return
	}
	var req setExerciseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Exercise) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing exercise")))
		return
	}
	cfg, known := s.SetExercise(req.Exercise)
	writeJSON(w, http.StatusOK, newExerciseResponse(req.Exercise, cfg, known))
}

// HandleGetCalibration handles GET /sessions/{id}/calibration requests.
func (h *SessionsHandler) HandleGetCalibration(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r, "api.get_calibration")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Calibration())
}

// HandleResetCalibration handles POST /sessions/{id}/calibration/reset
// requests. Calibration restarts from zero frames.
func (h *SessionsHandler) HandleResetCalibration(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r, "api.reset_calibration")
	if !ok {
		return
	}
	s.ResetCalibration()
	writeJSON(w, http.StatusOK, s.Calibration())
}

// HandleCancelCalibration handles POST /sessions/{id}/calibration/cancel
// requests. The session keeps its current profile.
func (h *SessionsHandler) HandleCancelCalibration(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r, "api.cancel_calibration")
	if !ok {
		return
	}
	s.CancelCalibration()
	writeJSON(w, http.StatusOK, s.Calibration())
}

// HandleSkipCalibration handles POST /sessions/{id}/calibration/skip
// requests. The default profile is installed.
func (h *SessionsHandler) HandleSkipCalibration(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r, "api.skip_calibration")
	if !ok {
		return
	}
	s.SkipCalibration()
	writeJSON(w, http.StatusOK, s.Calibration())
}

// HandleReps handles GET /sessions/{id}/reps requests.
func (h *SessionsHandler) HandleReps(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r, "api.get_reps")
	if !ok {
		return
	}
	reps := s.Scores()
	if reps == nil {
		reps = []model.RepScore{}
	}
	writeJSON(w, http.StatusOK, repsResponse{
		SessionID:    s.ID(),
		RepCount:     len(reps),
		AverageScore: s.AverageScore(),
		Reps:         reps,
	})
}

// HandleAnalysis handles GET /sessions/{id}/analysis requests.
func (h *SessionsHandler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r, "api.get_analysis")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Analyze())
}
