package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/ginput/internal/domain/model"
	"github.com/okian/ginput/pkg/logger"
	"github.com/okian/ginput/pkg/metrics"
)

// eventRequest is the wire shape of a canvas event.
type eventRequest struct {
	EventID string  `json:"event_id"`
	Kind    string  `json:"kind"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Button  int     `json:"button,omitempty"`
	Key     string  `json:"key,omitempty"`
	TS      string  `json:"ts,omitempty"`
}

func (e eventRequest) validate() error {
	if strings.TrimSpace(e.EventID) == "" {
		return errors.New("missing event_id")
	}
	switch model.EventKind(e.Kind) {
	case model.KindButtonPress:
		if e.Button <= 0 {
			return errors.New("button_press_event needs a positive button")
		}
	case model.KindKeyPress:
		if e.Key == "" {
			return errors.New("key_press_event needs a key")
		}
	default:
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	if e.TS != "" {
		if _, err := time.Parse(time.RFC3339, e.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

// event converts a validated request.
func (e eventRequest) event() model.Event {
	ev := model.Event{
		ID:     e.EventID,
		Kind:   model.EventKind(e.Kind),
		X:      e.X,
		Y:      e.Y,
		Button: model.Button(e.Button),
		Key:    e.Key,
	}
	if e.TS != "" {
		ev.TS, _ = time.Parse(time.RFC3339, e.TS)
	}
	return ev
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// ingest validates req, drops replays and posts it to the canvas. It
// returns the HTTP status and response body for the outcome.
func (s *Server) ingest(ctx context.Context, req eventRequest) (int, any) {
	const op = "api.post_event"
	if err := req.validate(); err != nil {
		return http.StatusBadRequest, newErrorResponse(http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	}

	if s.deps.SeenAndRecord(ctx, req.EventID) {
		metrics.RecordEventDuplicate()
		return http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true}
	}

	if !s.deps.Enqueue(ctx, req.event()) {
		// allow the client to retry the same id
		s.deps.Unrecord(ctx, req.EventID)
		s.logger.Warn(ctx, "event rejected", logger.String("event_id", req.EventID))
		return http.StatusTooManyRequests, newErrorResponse(http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
	}
	return http.StatusAccepted, ackResponse{Status: "accepted"}
}

// handlePostEvent handles POST /events.
func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	status, body := s.ingest(r.Context(), req)
	writeJSON(w, status, body)
}
