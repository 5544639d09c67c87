package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/ginput/internal/domain/model"
	"github.com/okian/ginput/pkg/logger"
)

// Sessions starts interactions and reports their results.
type Sessions interface {
	// StartSession queues an interaction and returns its id.
	StartSession(ctx context.Context, req model.SessionRequest) (string, error)

	// Session returns the current state of an interaction.
	Session(id string) (any, bool)
}

// sessionRequest is the wire shape of POST /sessions.
type sessionRequest struct {
	Mode       string `json:"mode"`
	Count      int    `json:"count"`
	TimeoutMS  int    `json:"timeout_ms"`
	ShowClicks *bool  `json:"show_clicks,omitempty"`
	Inline     bool   `json:"inline"`
}

func (r sessionRequest) validate() error {
	if !model.ValidMode(r.Mode) {
		return fmt.Errorf("unknown mode %q", r.Mode)
	}
	return nil
}

func (r sessionRequest) session() model.SessionRequest {
	show := true
	if r.ShowClicks != nil {
		show = *r.ShowClicks
	}
	return model.SessionRequest{
		Mode:       r.Mode,
		Count:      r.Count,
		Timeout:    time.Duration(r.TimeoutMS) * time.Millisecond,
		ShowClicks: show,
		Inline:     r.Inline,
	}
}

type sessionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// handleStartSession handles POST /sessions.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_session"
	var req sessionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	id, err := s.sessions.StartSession(r.Context(), req.session())
	if err != nil {
		s.logger.Warn(r.Context(), "session refused", logger.String("mode", req.Mode), logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusAccepted, sessionResponse{ID: id, Status: "queued"})
}

// handleGetSession handles GET /sessions/{id}.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	id := r.PathValue("id")
	res, ok := s.sessions.Session(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, errors.New("unknown session "+id)))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
