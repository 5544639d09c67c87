package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Sender delivers events to the service.
type Sender interface {
	Send(ctx context.Context, p eventPayload) (Outcome, error)
	Close() error
}

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Get performs a GET request and decodes a JSON object response.
func (c *HTTPClient) Get(ctx context.Context, path string) (int, map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (int, map[string]any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) (int, map[string]any, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	var body map[string]any
	if len(bytes.TrimSpace(raw)) > 0 {
		// non-JSON bodies are reported by status only
		_ = json.Unmarshal(raw, &body)
	}
	return resp.StatusCode, body, nil
}

// outcome maps an ingest status code.
func outcome(status int) Outcome {
	switch status {
	case http.StatusAccepted:
		return OutcomeAccepted
	case http.StatusOK:
		return OutcomeDuplicate
	case http.StatusTooManyRequests:
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}

type httpSender struct {
	client *HTTPClient
}

func (s *httpSender) Send(ctx context.Context, p eventPayload) (Outcome, error) {
	status, _, err := s.client.Post(ctx, "/events", p)
	if err != nil {
		return OutcomeFailed, err
	}
	return outcome(status), nil
}

func (s *httpSender) Close() error { return nil }

// wsReply is the frame returned per event on /ws.
type wsReply struct {
	EventID string         `json:"event_id"`
	Status  int            `json:"status"`
	Body    map[string]any `json:"body"`
}

type wsSender struct {
	conn    *websocket.Conn
	timeout time.Duration
}

// dialWS opens the websocket feed under baseURL.
func dialWS(ctx context.Context, baseURL string, timeout time.Duration) (*wsSender, error) {
	u := strings.TrimRight(baseURL, "/") + "/ws"
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	return &wsSender{conn: conn, timeout: timeout}, nil
}

func (s *wsSender) Send(_ context.Context, p eventPayload) (Outcome, error) {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	if err := s.conn.WriteJSON(p); err != nil {
		return OutcomeFailed, err
	}
	_ = s.conn.SetReadDeadline(time.Now().Add(s.timeout))
	var reply wsReply
	if err := s.conn.ReadJSON(&reply); err != nil {
		return OutcomeFailed, err
	}
	return outcome(reply.Status), nil
}

func (s *wsSender) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.conn.Close()
}
