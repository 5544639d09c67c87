package blocking

import (
	"time"

	"github.com/okian/ginput/internal/domain/model"
	"github.com/okian/ginput/pkg/logger"
)

// Call defaults.
const (
	DefaultCount         = 1
	DefaultTimeout       = 30 * time.Second
	DefaultInlineSpacing = 5.0
)

// Option configures a collector at construction.
type Option func(*options)

type options struct {
	logger       logger.Logger
	finishButton model.Button
	undoButton   model.Button
}

func newOptions(opts []Option) options {
	o := options{
		logger:       logger.NewNop(),
		finishButton: model.ButtonMiddle,
		undoButton:   model.ButtonRight,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for per-event debug output.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFinishButton sets the button that ends click collection early.
func WithFinishButton(b model.Button) Option {
	return func(o *options) {
		o.finishButton = b
	}
}

// WithUndoButton sets the button that removes the last accepted click.
func WithUndoButton(b model.Button) Option {
	return func(o *options) {
		o.undoButton = b
	}
}

// CallOption configures a single blocking call.
type CallOption func(*callOptions)

type callOptions struct {
	count         int
	timeout       time.Duration
	showClicks    bool
	inlineSpacing float64
}

func newCallOptions(count int, timeout time.Duration, opts []CallOption) callOptions {
	co := callOptions{
		count:         count,
		timeout:       timeout,
		showClicks:    true,
		inlineSpacing: DefaultInlineSpacing,
	}
	for _, opt := range opts {
		opt(&co)
	}
	return co
}

// WithCount sets how many events end the call. n <= 0 collects until an
// explicit stop or the timeout.
func WithCount(n int) CallOption {
	return func(co *callOptions) {
		co.count = n
	}
}

// WithTimeout sets how long to wait without events. d <= 0 waits forever.
func WithTimeout(d time.Duration) CallOption {
	return func(co *callOptions) {
		co.timeout = d
	}
}

// WithShowClicks toggles a marker on every accepted click.
func WithShowClicks(show bool) CallOption {
	return func(co *callOptions) {
		co.showClicks = show
	}
}

// WithInlineSpacing sets the gap left on each side of an inline label.
func WithInlineSpacing(spacing float64) CallOption {
	return func(co *callOptions) {
		if spacing >= 0 {
			co.inlineSpacing = spacing
		}
	}
}
