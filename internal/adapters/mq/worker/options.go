// Package worker runs interaction jobs one at a time off a queue.
package worker

import (
	"github.com/okian/ginput/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMaxResults bounds how many finished results are kept for lookup.
// The oldest finished result is forgotten first.
func WithMaxResults(n int) Option {
	return func(w *InMemoryWorker) {
		if n > 0 {
			w.maxResults = n
		}
	}
}

// WithOnFinish registers fn to receive every finished result.
func WithOnFinish(fn func(Result)) Option {
	return func(w *InMemoryWorker) {
		w.onFinish = fn
	}
}
