package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/ginput/pkg/logger"
	"github.com/okian/ginput/pkg/metrics"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the feed is meant for local drivers such as browsers on another port
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsReply is one frame sent back per received event.
type wsReply struct {
	EventID string `json:"event_id,omitempty"`
	Status  int    `json:"status"`
	Body    any    `json:"body"`
}

// handleWebSocket handles GET /ws. Each text frame carries one event in the
// POST /events format and is answered with a wsReply.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	const op = "api.websocket"
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(WrapKind(op, ErrUpgrade, err)))
		metrics.RecordErrorByEndpoint("ws", r.Method, "upgrade")
		return
	}
	defer func() { _ = conn.Close() }()

	ctx := r.Context()
	s.logger.Info(ctx, "websocket connected", logger.String("remote", r.RemoteAddr))

	conn.SetReadLimit(s.maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(s.wsIdle))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.wsIdle))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn(ctx, "websocket read failed", logger.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.wsIdle))

		reply := s.handleFrame(r, data)
		metrics.RecordHTTPRequest("ws", "FRAME", strconv.Itoa(reply.Status))

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Warn(ctx, "websocket write failed", logger.Error(err))
			return
		}
	}
}

func (s *Server) handleFrame(r *http.Request, data []byte) wsReply {
	var req eventRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return wsReply{
			Status: http.StatusBadRequest,
			Body:   newErrorResponse(http.StatusBadRequest, "bad_request", WrapKind("api.websocket", ErrBadRequest, err)),
		}
	}
	status, body := s.ingest(r.Context(), req)
	return wsReply{EventID: req.EventID, Status: status, Body: body}
}
