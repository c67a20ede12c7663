// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/kinetica/internal/adapters/repository"
	"github.com/okian/kinetica/internal/domain/types"
	"github.com/okian/kinetica/internal/session"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionDependencies
	FrameDependencies
	LeaderboardDependencies
	RankDependencies
	StreamDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	sessionsHandler    *SessionsHandler
	framesHandler      *FramesHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	streamHandler      *StreamHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLeaderboardLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		sessionsHandler:    NewSessionsHandler(deps),
		framesHandler:      NewFramesHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLeaderboardLimit),
		rankHandler:        NewRankHandler(deps),
		streamHandler:      NewStreamHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("GET /exercises", "exercises", s.sessionsHandler.HandleListExercises)
	route("POST /sessions", "sessions", s.sessionsHandler.HandleCreate)
	route("GET /sessions", "sessions", s.sessionsHandler.HandleList)
	route("GET /sessions/{id}", "session", s.sessionsHandler.HandleGet)
	route("DELETE /sessions/{id}", "session", s.sessionsHandler.HandleDelete)
	route("PUT /sessions/{id}/exercise", "exercise", s.sessionsHandler.HandleSetExercise)
	route("GET /sessions/{id}/calibration", "calibration", s.sessionsHandler.HandleGetCalibration)
	route("POST /sessions/{id}/calibration/reset", "calibration", s.sessionsHandler.HandleResetCalibration)
	route("POST /sessions/{id}/calibration/cancel", "calibration", s.sessionsHandler.HandleCancelCalibration)
	route("POST /sessions/{id}/calibration/skip", "calibration", s.sessionsHandler.HandleSkipCalibration)
	route("GET /sessions/{id}/reps", "reps", s.sessionsHandler.HandleReps)
	route("GET /sessions/{id}/analysis", "analysis", s.sessionsHandler.HandleAnalysis)
	route("POST /sessions/{id}/frames", "frames", s.framesHandler.HandlePostFrame)
	route("GET /sessions/{id}/stream", "stream", s.streamHandler.HandleStream)

	route("GET /leaderboard", "leaderboard", s.leaderboardHandler.HandleGetLeaderboard)
	route("GET /leaderboard/{id}", "rank", s.rankHandler.HandleGetRank)
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, session.ErrSessionNotFound) ||
		errors.Is(err, repository.ErrNotFound)
}

// writeLookupError answers a failed session or rank lookup.
func writeLookupError(w http.ResponseWriter, op string, err error) {
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
}
