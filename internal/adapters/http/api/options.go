package api

import (
	"time"

	"github.com/okian/ginput/pkg/logger"
)

// Default server configuration constants.
const (
	defaultMaxBodyBytes = 1 << 16
	defaultWSIdle       = 60 * time.Second
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxBodyBytes bounds request bodies and websocket frames.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithWSIdleTimeout sets how long a websocket may stay silent before it is
// closed.
func WithWSIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.wsIdle = d
		}
	}
}

// WithSessions mounts the session routes backed by sessions.
func WithSessions(sessions Sessions) Option {
	return func(s *Server) {
		s.sessions = sessions
	}
}
