package replay

import "time"

// Transports for posting events.
const (
	TransportHTTP = "http"
	TransportWS   = "ws"
)

// Config holds configuration for a replay run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Transport string        // "http" posts to /events, "ws" streams over /ws
	Timeout   time.Duration // Per-request timeout
	Wait      time.Duration // How long to wait for the session result
	Retries   int           // Retries for an event refused with backpressure
	Verbose   bool          // Log every event outcome
}

// Outcome of posting one event.
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// Stats holds replay statistics.
type Stats struct {
	Sent      int
	Accepted  int
	Duplicate int
	Rejected  int
	Failed    int

	// Session is the final state reported by GET /sessions/{id}, nil when
	// the script starts no session.
	Session map[string]any

	StartTime time.Time
	Duration  time.Duration
}

func (s *Stats) record(o Outcome) {
	s.Sent++
	switch o {
	case OutcomeAccepted:
		s.Accepted++
	case OutcomeDuplicate:
		s.Duplicate++
	case OutcomeRejected:
		s.Rejected++
	default:
		s.Failed++
	}
}
