// Package canvas implements a headless, in-memory figure canvas.
//
// Events are posted from any goroutine into a bounded queue and dispatched
// to connected handlers on the goroutine blocked in RunBlocking, so
// handlers never run concurrently with each other.
package canvas

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ginput/internal/domain/model"
	"github.com/okian/ginput/pkg/logger"
	"github.com/okian/ginput/pkg/metrics"
)

// Default canvas configuration constants.
const (
	defaultCapacity = 1024
	defaultWidth    = 640
	defaultHeight   = 480
)

type subscription struct {
	id      model.SubscriptionID
	handler model.Handler
}

// Canvas is an in-memory model.Canvas with axes hit-testing.
type Canvas struct {
	events   chan model.Event
	capacity int
	width    float64
	height   float64
	stop     chan struct{}
	logger   logger.Logger

	mu       sync.RWMutex
	closed   bool
	visible  bool
	draws    int
	axes     []*Axes
	handlers map[model.EventKind][]subscription
	kinds    map[model.SubscriptionID]model.EventKind
}

var _ model.Canvas = (*Canvas)(nil)

// New creates a Canvas with configuration options.
func New(opts ...Option) *Canvas {
	c := &Canvas{
		capacity: defaultCapacity,
		width:    defaultWidth,
		height:   defaultHeight,
		stop:     make(chan struct{}, 1),
		logger:   logger.NewNop(),
		handlers: make(map[model.EventKind][]subscription),
		kinds:    make(map[model.SubscriptionID]model.EventKind),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.events = make(chan model.Event, c.capacity)
	metrics.UpdateCanvasQueueSize(0)
	return c
}

// Size returns the figure size in pixels.
func (c *Canvas) Size() (width, height float64) { return c.width, c.height }

// Connect registers h for events of kind.
func (c *Canvas) Connect(kind model.EventKind, h model.Handler) model.SubscriptionID {
	id := model.SubscriptionID(uuid.NewString())
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[kind] = append(c.handlers[kind], subscription{id: id, handler: h})
	c.kinds[id] = kind
	return id
}

// Disconnect removes a registration. Unknown ids are ignored.
func (c *Canvas) Disconnect(id model.SubscriptionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kind, ok := c.kinds[id]
	if !ok {
		return
	}
	delete(c.kinds, id)
	subs := c.handlers[kind]
	for i, s := range subs {
		if s.id == id {
			c.handlers[kind] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(c.handlers[kind]) == 0 {
		delete(c.handlers, kind)
	}
}

// Subscriptions returns the number of connected handlers.
func (c *Canvas) Subscriptions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.kinds)
}

func (c *Canvas) connected(id model.SubscriptionID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.kinds[id]
	return ok
}

// Post queues an event for dispatch. It returns false when the canvas is
// closed or the queue is full. Missing ids and timestamps are filled in,
// and events without axes are hit-tested against the figure.
func (c *Canvas) Post(ctx context.Context, ev model.Event) bool { //nolint:gocritic // hugeParam: Event is passed by value for channel semantics
	if ev.Axes == nil {
		c.locate(&ev)
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.TS.IsZero() {
		ev.TS = time.Now()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		metrics.RecordCanvasEnqueueError("closed")
		return false
	}

	select {
	case c.events <- ev:
		metrics.RecordCanvasEnqueue()
		metrics.UpdateCanvasQueueSize(len(c.events))
		return true
	case <-ctx.Done():
		metrics.RecordCanvasEnqueueError("context_cancelled")
		return false
	default:
		metrics.RecordCanvasEnqueueError("queue_full")
		return false
	}
}

// Press builds a mouse button event at screen position (x, y).
func (c *Canvas) Press(x, y float64, button model.Button) model.Event {
	return c.event(model.KindButtonPress, x, y, button, "")
}

// KeyPress builds a key event at screen position (x, y).
func (c *Canvas) KeyPress(x, y float64, key string) model.Event {
	return c.event(model.KindKeyPress, x, y, model.ButtonNone, key)
}

func (c *Canvas) event(kind model.EventKind, x, y float64, button model.Button, key string) model.Event {
	ev := model.Event{Kind: kind, X: x, Y: y, Button: button, Key: key}
	c.locate(&ev)
	return ev
}

func (c *Canvas) locate(ev *model.Event) {
	if ax := c.Locate(ev.X, ev.Y); ax != nil {
		d := ax.ToData(model.Point{X: ev.X, Y: ev.Y})
		ev.Axes = ax
		ev.XData, ev.YData = d.X, d.Y
	}
}

// QueueLen returns the number of events waiting for dispatch.
func (c *Canvas) QueueLen() int { return len(c.events) }

// RunBlocking dispatches queued events until Stop, a handler error, ctx
// cancellation, or timeout without a delivered event. Events still queued
// when it returns are discarded, so they never reach a later loop.
func (c *Canvas) RunBlocking(ctx context.Context, timeout time.Duration) error {
	// a stop left over from an earlier loop does not end this one
	select {
	case <-c.stop:
	default:
	}
	defer c.discard(ctx)

	var timeoutC <-chan time.Time
	var timer *time.Timer
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	for {
		// stop requests win over pending events
		select {
		case <-c.stop:
			return nil
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stop:
			return nil
		case <-timeoutC:
			c.logger.Debug(ctx, "event loop timed out", logger.Duration("timeout", timeout))
			return nil
		case ev, ok := <-c.events:
			if !ok {
				return ErrClosed
			}
			metrics.UpdateCanvasQueueSize(len(c.events))
			delivered, err := c.dispatch(ctx, ev)
			if err != nil {
				return err
			}
			// only events someone handled count as activity
			if delivered && timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(timeout)
			}
		}
	}
}

// dispatch hands ev to every handler connected for its kind and reports
// whether any of them saw it.
func (c *Canvas) dispatch(ctx context.Context, ev model.Event) (bool, error) { //nolint:gocritic // hugeParam
	c.mu.RLock()
	subs := append([]subscription(nil), c.handlers[ev.Kind]...)
	c.mu.RUnlock()

	delivered := false
	for _, s := range subs {
		if !c.connected(s.id) {
			continue
		}
		delivered = true
		if err := s.handler(ctx, ev); err != nil {
			return true, fmt.Errorf("handle %s: %w", ev.Kind, err)
		}
	}
	return delivered, nil
}

// discard drops whatever is still queued.
func (c *Canvas) discard(ctx context.Context) {
	n := 0
	defer func() {
		if n > 0 {
			c.logger.Debug(ctx, "discarded queued events", logger.Int("count", n))
		}
		metrics.UpdateCanvasQueueSize(len(c.events))
	}()
	for {
		select {
		case _, ok := <-c.events:
			if !ok {
				return
			}
			n++
		default:
			return
		}
	}
}

// Stop asks a running RunBlocking to return. It never blocks.
func (c *Canvas) Stop() {
	select {
	case c.stop <- struct{}{}:
	default:
	}
}

// Show marks the figure visible.
func (c *Canvas) Show(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.visible = true
	return nil
}

// Visible reports whether Show was called.
func (c *Canvas) Visible() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.visible
}

// Draw records a redraw.
func (c *Canvas) Draw(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draws++
	metrics.RecordCanvasDraw()
	return nil
}

// Draws returns the number of redraws so far.
func (c *Canvas) Draws() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.draws
}

// Close stops accepting events. Queued events are still dispatched.
func (c *Canvas) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	close(c.events)
	c.closed = true
	return nil
}

// IsClosed returns true if the canvas has been closed.
func (c *Canvas) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
