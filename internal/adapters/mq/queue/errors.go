package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errors.New("queue full")
)

// reason maps an enqueue failure to its metric label.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, ErrFull):
		return "queue_full"
	default:
		return "context_cancelled"
	}
}
