package replay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/ginput/internal/adapters/http/api"
	service "github.com/okian/ginput/internal/app"
	"github.com/okian/ginput/internal/domain/model"
	"github.com/okian/ginput/pkg/logger"
)

func newServer(t *testing.T, opts ...service.Option) (*service.Service, *httptest.Server) {
	t.Helper()
	opts = append([]service.Option{service.WithLogger(logger.NewNop())}, opts...)
	svc := service.New(opts...)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })

	mux := http.NewServeMux()
	api.NewServer(svc, svc, api.WithSessions(svc), api.WithLogger(logger.NewNop())).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return svc, srv
}

// clickScript clicks two data points in a ginput session.
func clickScript(svc *service.Service) *Script {
	screen := svc.Axes().ToScreen([]model.Point{{X: 0.25, Y: 0.5}, {X: 0.75, Y: 0.5}})
	return &Script{
		Session: &SessionSpec{Mode: model.ModeGinput, Count: 2, TimeoutMS: 5000},
		Events: []Step{
			{X: screen[0].X, Y: screen[0].Y},
			{X: screen[1].X, Y: screen[1].Y, DelayMS: 10},
		},
	}
}

func TestRun(t *testing.T) {
	for _, transport := range []string{TransportHTTP, TransportWS} {
		t.Run(transport, func(t *testing.T) {
			svc, srv := newServer(t)
			cfg := &Config{BaseURL: srv.URL, Transport: transport, Timeout: 2 * time.Second, Wait: 5 * time.Second}

			stats, err := Run(context.Background(), cfg, clickScript(svc), nil)
			require.NoError(t, err)

			assert.Equal(t, 2, stats.Sent)
			assert.Equal(t, 2, stats.Accepted)
			assert.Zero(t, stats.Failed)
			require.NotNil(t, stats.Session)
			assert.Equal(t, "done", stats.Session["status"])
			pts, ok := stats.Session["value"].([]any)
			require.True(t, ok)
			require.Len(t, pts, 2)
			assert.InDelta(t, 0.25, pts[0].(map[string]any)["x"], 1e-9)
			assert.InDelta(t, 0.75, pts[1].(map[string]any)["x"], 1e-9)
		})
	}
}

func TestRun_KeyPress(t *testing.T) {
	_, srv := newServer(t)
	cfg := &Config{BaseURL: srv.URL, Wait: 5 * time.Second}

	stats, err := Run(context.Background(), cfg, GenerateKeys(), nil)
	require.NoError(t, err)
	assert.Equal(t, "key", stats.Session["value"])
}

func TestRun_Duplicates(t *testing.T) {
	_, srv := newServer(t)
	cfg := &Config{BaseURL: srv.URL, Transport: TransportWS}
	script := &Script{Events: []Step{{ID: "same", Key: "a"}, {ID: "same", Key: "a"}}}

	stats, err := Run(context.Background(), cfg, script, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, 1, stats.Duplicate)
	assert.Nil(t, stats.Session)
}

func TestRun_Backpressure(t *testing.T) {
	_, srv := newServer(t, service.WithQueueSize(1))
	cfg := &Config{BaseURL: srv.URL, Retries: 1}
	script := &Script{Events: []Step{{Key: "a"}, {Key: "b"}}}

	stats, err := Run(context.Background(), cfg, script, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, 1, stats.Rejected)
}

func TestRun_WaitsForRunningSession(t *testing.T) {
	var (
		mu    sync.Mutex
		polls int
		log   []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/healthz":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/sessions":
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"id":"s1","status":"queued"}`))
		case r.URL.Path == "/sessions/s1":
			polls++
			state := "queued"
			switch {
			case polls >= 4:
				state = "done"
			case polls >= 3:
				state = "running"
			}
			log = append(log, state)
			_, _ = w.Write([]byte(`{"id":"s1","status":"` + state + `"}`))
		case r.URL.Path == "/events":
			log = append(log, "event")
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"status":"accepted"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	stats, err := Run(context.Background(), &Config{BaseURL: srv.URL, Wait: 5 * time.Second}, GenerateKeys(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Accepted)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"queued", "queued", "running", "event", "done"}, log)
}

func TestRun_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := Run(context.Background(), &Config{BaseURL: srv.URL}, GenerateKeys(), nil)
	assert.ErrorIs(t, err, ErrUnhealthy)
}

func TestRun_UnknownTransport(t *testing.T) {
	_, srv := newServer(t)
	_, err := Run(context.Background(), &Config{BaseURL: srv.URL, Transport: "carrier-pigeon"}, &Script{Events: []Step{{Key: "a"}}}, nil)
	assert.Error(t, err)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeAccepted, outcome(http.StatusAccepted))
	assert.Equal(t, OutcomeDuplicate, outcome(http.StatusOK))
	assert.Equal(t, OutcomeRejected, outcome(http.StatusTooManyRequests))
	assert.Equal(t, OutcomeFailed, outcome(http.StatusBadRequest))
}
