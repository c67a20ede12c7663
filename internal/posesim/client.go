package posesim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/kinetica/internal/domain/model"
	"github.com/okian/kinetica/internal/domain/types"
	"github.com/okian/kinetica/internal/session"
)

// SubmitResult classifies the response to a frame submission.
type SubmitResult string

const (
	SubmitAccepted     SubmitResult = "accepted"
	SubmitDuplicate    SubmitResult = "duplicate"
	SubmitBackpressure SubmitResult = "backpressure"
	SubmitFailed       SubmitResult = "failed"
)

// ErrUnexpectedStatus is returned when the service answers with an unexpected code.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client talks to the analysis service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// RepsResult mirrors GET /sessions/{id}/reps.
type RepsResult struct {
	SessionID    string           `json:"session_id"`
	RepCount     int              `json:"rep_count"`
	AverageScore float64          `json:"average_score"`
	Reps         []model.RepScore `json:"reps"`
}

type frameRequest struct {
	FrameID   string           `json:"frame_id"`
	TS        string           `json:"ts,omitempty"`
	Landmarks []model.Landmark `json:"landmarks"`
}

// Health checks that the service answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return expect(resp, http.StatusOK)
}

// CreateSession opens a session on the service.
func (c *Client) CreateSession(ctx context.Context, exercise string, skipCalibration bool) (session.Summary, error) {
	var out session.Summary
	err := c.call(ctx, http.MethodPost, "/sessions", map[string]any{
		"exercise":         exercise,
		"skip_calibration": skipCalibration,
	}, http.StatusCreated, &out)
	return out, err
}

// DeleteSession ends a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/sessions/"+id, nil, http.StatusNoContent, nil)
}

// PostFrame submits one frame. Transport errors are returned with SubmitFailed.
func (c *Client) PostFrame(ctx context.Context, sessionID string, f model.Frame) (SubmitResult, error) {
	req := frameRequest{FrameID: f.ID, Landmarks: f.Landmarks}
	if !f.Timestamp.IsZero() {
		req.TS = f.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	resp, err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/frames", req)
	if err != nil {
		return SubmitFailed, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return SubmitAccepted, nil
	case http.StatusOK:
		return SubmitDuplicate, nil
	case http.StatusTooManyRequests:
		return SubmitBackpressure, nil
	default:
		return SubmitFailed, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
}

// Reps fetches the completed repetitions of a session.
func (c *Client) Reps(ctx context.Context, sessionID string) (RepsResult, error) {
	var out RepsResult
	err := c.call(ctx, http.MethodGet, "/sessions/"+sessionID+"/reps", nil, http.StatusOK, &out)
	return out, err
}

// Analysis fetches the kinetic chain analysis of a session.
func (c *Client) Analysis(ctx context.Context, sessionID string) (model.KineticChainAnalysis, error) {
	var out model.KineticChainAnalysis
	err := c.call(ctx, http.MethodGet, "/sessions/"+sessionID+"/analysis", nil, http.StatusOK, &out)
	return out, err
}

// Leaderboard fetches the top n sessions.
func (c *Client) Leaderboard(ctx context.Context, n int) ([]types.Entry, error) {
	var out []types.Entry
	err := c.call(ctx, http.MethodGet, "/leaderboard?limit="+strconv.Itoa(n), nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) call(ctx context.Context, method, path string, body any, want int, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := expect(resp, want); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func expect(resp *http.Response, want int) error {
	if resp.StatusCode == want {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: %s %s returned %d: %s", ErrUnexpectedStatus,
		resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, bytes.TrimSpace(msg))
}
