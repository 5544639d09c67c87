// Package blocking turns callback-driven canvas events into blocking calls.
//
// A Collector subscribes to a set of event kinds, blocks in the canvas
// loop until enough events arrived (or the loop is stopped or times out)
// and always tears its subscriptions down before returning. ClickCollector,
// LabelPlacer and KeyOrClickDetector specialise it by filling in handler
// slots rather than by embedding.
package blocking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/ginput/internal/domain/model"
	"github.com/okian/ginput/pkg/logger"
	"github.com/okian/ginput/pkg/metrics"
)

// Session outcomes reported to metrics.
const (
	outcomeStopped = "stopped"
	outcomeTimeout = "timeout"
	outcomeError   = "error"
)

// Hooks are the replaceable slots of a Collector.
type Hooks struct {
	// PostEvent runs after each event has been appended to the log.
	PostEvent func(ctx context.Context) error
	// Cleanup runs before the subscriptions are torn down.
	Cleanup func(ctx context.Context) error
}

// Collector gathers raw canvas events in a blocking call.
type Collector struct {
	canvas model.Canvas
	kinds  []model.EventKind
	hooks  Hooks
	logger logger.Logger
	name   string

	// per-call state, reset by run
	count   int
	events  []model.Event
	subs    []model.SubscriptionID
	stopped bool
}

// NewCollector creates a Collector for the given event kinds.
func NewCollector(canvas model.Canvas, kinds []model.EventKind, opts ...Option) (*Collector, error) {
	return newCollector(canvas, kinds, "collect", newOptions(opts))
}

func newCollector(canvas model.Canvas, kinds []model.EventKind, name string, o options) (*Collector, error) {
	if canvas == nil {
		return nil, fmt.Errorf("%w: nil canvas", ErrInvalidArgument)
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("%w: requires a sequence of event kinds", ErrInvalidArgument)
	}
	for _, k := range kinds {
		if k == "" {
			return nil, fmt.Errorf("%w: empty event kind", ErrInvalidArgument)
		}
	}
	return &Collector{
		canvas: canvas,
		kinds:  append([]model.EventKind(nil), kinds...),
		logger: o.logger.Named(name),
		name:   name,
	}, nil
}

// SetHooks replaces the per-event and cleanup hooks.
func (c *Collector) SetHooks(h Hooks) { c.hooks = h }

// Collect blocks until the requested number of events arrived, the loop
// was stopped or the timeout elapsed, and returns the collected events.
func (c *Collector) Collect(ctx context.Context, opts ...CallOption) ([]model.Event, error) {
	co := newCallOptions(DefaultCount, DefaultTimeout, opts)
	err := c.run(ctx, co.count, co.timeout)
	return c.Events(), err
}

func (c *Collector) run(ctx context.Context, count int, timeout time.Duration) (err error) {
	c.count = count
	c.events = nil
	c.subs = nil
	c.stopped = false

	start := time.Now()
	defer func() {
		if cerr := c.Cleanup(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
		metrics.RecordSession(c.name, c.outcome(err), time.Since(start))
	}()

	if serr := c.canvas.Show(ctx); serr != nil {
		return collaboratorErr("show canvas", serr)
	}
	for _, kind := range c.kinds {
		c.subs = append(c.subs, c.canvas.Connect(kind, c.onEvent))
	}
	metrics.AddActiveSubscriptions(len(c.subs))

	return c.canvas.RunBlocking(ctx, timeout)
}

func (c *Collector) outcome(err error) string {
	switch {
	case err != nil:
		return outcomeError
	case c.stopped:
		return outcomeStopped
	default:
		return outcomeTimeout
	}
}

// onEvent is the handler connected for every subscribed kind.
func (c *Collector) onEvent(ctx context.Context, ev model.Event) error {
	if c.count > 0 && len(c.events) >= c.count {
		// the loop was already asked to stop
		return nil
	}
	c.events = append(c.events, ev)
	metrics.RecordEventReceived(string(ev.Kind))
	c.logger.Debug(ctx, "event", logger.Int("n", len(c.events)), logger.String("kind", string(ev.Kind)))

	if c.hooks.PostEvent != nil {
		if err := c.hooks.PostEvent(ctx); err != nil {
			return err
		}
	}

	if c.count > 0 && len(c.events) >= c.count {
		c.stop()
	}
	return nil
}

func (c *Collector) stop() {
	c.stopped = true
	c.canvas.Stop()
}

// Cleanup runs the cleanup hook and disconnects every subscription.
// It is safe to call when nothing is connected.
func (c *Collector) Cleanup(ctx context.Context) error {
	var err error
	if c.hooks.Cleanup != nil {
		err = c.hooks.Cleanup(ctx)
	}
	for _, id := range c.subs {
		c.canvas.Disconnect(id)
	}
	if n := len(c.subs); n > 0 {
		metrics.AddActiveSubscriptions(-n)
	}
	c.subs = nil
	return err
}

// PopEvent removes the event at index; -1 is the last one. Popping from an
// empty log is an error, callers check Len first.
func (c *Collector) PopEvent(index int) error {
	i, err := resolveIndex(index, len(c.events))
	if err != nil {
		return fmt.Errorf("pop event: %w", err)
	}
	c.events = append(c.events[:i], c.events[i+1:]...)
	return nil
}

func (c *Collector) last() (model.Event, error) {
	if len(c.events) == 0 {
		return model.Event{}, fmt.Errorf("%w: no events yet", ErrPrecondition)
	}
	return c.events[len(c.events)-1], nil
}

// Len returns the number of events currently held.
func (c *Collector) Len() int { return len(c.events) }

// Events returns a copy of the event log.
func (c *Collector) Events() []model.Event {
	return append([]model.Event(nil), c.events...)
}

// Subscriptions returns the number of live canvas registrations.
func (c *Collector) Subscriptions() int { return len(c.subs) }
