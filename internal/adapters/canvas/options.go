package canvas

import "github.com/okian/ginput/pkg/logger"

// Option applies a configuration option to the Canvas.
type Option func(*Canvas)

// WithCapacity sets the maximum number of queued events.
func WithCapacity(capacity int) Option {
	return func(c *Canvas) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithSize sets the figure size in pixels.
func WithSize(width, height float64) Option {
	return func(c *Canvas) {
		if width > 0 && height > 0 {
			c.width = width
			c.height = height
		}
	}
}

// WithLogger sets the canvas logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Canvas) {
		if l != nil {
			c.logger = l
		}
	}
}
