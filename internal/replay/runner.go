// Package replay drives a running service with scripted canvas events.
package replay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ginput/pkg/logger"
)

// Runner configuration constants.
const (
	defaultTimeout = 10 * time.Second
	defaultWait    = 30 * time.Second
	pollInterval   = 50 * time.Millisecond
	retryBackoff   = 50 * time.Millisecond
)

// ErrUnhealthy is returned when the service health check fails.
var ErrUnhealthy = errors.New("service unhealthy")

// Run replays script against the service and returns the statistics.
func Run(ctx context.Context, cfg *Config, script *Script, log logger.Logger) (*Stats, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Wait <= 0 {
		cfg.Wait = defaultWait
	}
	if log == nil {
		log = logger.NewNop()
	}
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting replay",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("transport", cfg.Transport),
		logger.Int("events", len(script.Events)),
	)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return nil, err
	}

	// Step 2: Start the session before feeding it
	var sessionID string
	if script.Session != nil {
		id, err := startSession(ctx, client, script.Session)
		if err != nil {
			return nil, err
		}
		sessionID = id
		if _, err := pollSession(ctx, client, id, cfg.Wait, "running", "done", "failed"); err != nil {
			return nil, err
		}
		log.Info(ctx, "session started", logger.String("id", id), logger.String("mode", script.Session.Mode))
	}

	// Step 3: Send the events
	payloads, err := script.payloads(uuid.NewString())
	if err != nil {
		return nil, err
	}
	sender, err := newSender(ctx, cfg, client)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sender.Close() }()

	for i, p := range payloads {
		if d := script.Events[i].DelayMS; d > 0 {
			if err := sleep(ctx, time.Duration(d)*time.Millisecond); err != nil {
				return stats, err
			}
		}
		o, err := send(ctx, sender, p, cfg.Retries)
		stats.record(o)
		if err != nil {
			log.Warn(ctx, "event failed", logger.String("event_id", p.EventID), logger.Error(err))
		} else if cfg.Verbose {
			log.Info(ctx, "event sent", logger.String("event_id", p.EventID), logger.String("outcome", string(o)))
		}
	}

	// Step 4: Wait for the session result
	if sessionID != "" {
		res, err := pollSession(ctx, client, sessionID, cfg.Wait, "done", "failed")
		if err != nil {
			return stats, err
		}
		stats.Session = res
	}

	stats.Duration = time.Since(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func newSender(ctx context.Context, cfg *Config, client *HTTPClient) (Sender, error) {
	switch cfg.Transport {
	case "", TransportHTTP:
		return &httpSender{client: client}, nil
	case TransportWS:
		return dialWS(ctx, cfg.BaseURL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// send posts p, retrying backpressure rejections.
func send(ctx context.Context, s Sender, p eventPayload, retries int) (Outcome, error) {
	for attempt := 0; ; attempt++ {
		o, err := s.Send(ctx, p)
		if err != nil || o != OutcomeRejected || attempt >= retries {
			return o, err
		}
		if err := sleep(ctx, retryBackoff*time.Duration(attempt+1)); err != nil {
			return o, err
		}
	}
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	status, _, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}
	return nil
}

func startSession(ctx context.Context, client *HTTPClient, spec *SessionSpec) (string, error) {
	status, body, err := client.Post(ctx, "/sessions", spec)
	if err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	id, _ := body["id"].(string)
	if status != http.StatusAccepted || id == "" {
		return "", fmt.Errorf("start session: status %d: %v", status, body["message"])
	}
	return id, nil
}

// pollSession reads the session until its status is one of want.
func pollSession(ctx context.Context, client *HTTPClient, id string, wait time.Duration, want ...string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	for {
		status, body, err := client.Get(ctx, "/sessions/"+id)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", id, err)
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("session %s: status %d", id, status)
		}
		if s, _ := body["status"].(string); slices.Contains(want, s) {
			return body, nil
		}
		if err := sleep(ctx, pollInterval); err != nil {
			return body, fmt.Errorf("session %s still %v: %w", id, body["status"], err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// displayFinalStats logs the replay summary.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	fields := []logger.Field{
		logger.Int("sent", stats.Sent),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Duration("took", stats.Duration),
	}
	if stats.Session != nil {
		fields = append(fields,
			logger.Any("session_status", stats.Session["status"]),
			logger.Any("session_value", stats.Session["value"]),
		)
	}
	log.Info(ctx, "replay finished", fields...)
}
