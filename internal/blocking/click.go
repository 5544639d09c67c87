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

// markerStyle is the style of the marker drawn on accepted clicks.
const markerStyle = "r+"

// ButtonHandler handles the button press that is last in the event log.
type ButtonHandler func(ctx context.Context, ev model.Event) error

// ButtonRoles maps the three button roles to their handlers. Variants
// replace single roles and keep the others.
type ButtonRoles struct {
	Add    ButtonHandler
	Finish ButtonHandler
	Undo   ButtonHandler
}

// ClickCollector collects data-space coordinates from mouse clicks.
//
// The finish button ends the call early, the undo button removes the last
// accepted click and every other button adds a click when it lands inside
// an axes.
type ClickCollector struct {
	base         *Collector
	roles        ButtonRoles
	finishButton model.Button
	undoButton   model.Button
	logger       logger.Logger

	showClicks bool
	clicks     []model.Point
	marks      []model.Artist
}

// NewClickCollector creates a ClickCollector bound to button presses on canvas.
func NewClickCollector(canvas model.Canvas, opts ...Option) (*ClickCollector, error) {
	return newClickCollector(canvas, "ginput", newOptions(opts))
}

func newClickCollector(canvas model.Canvas, name string, o options) (*ClickCollector, error) {
	if o.finishButton == o.undoButton {
		return nil, fmt.Errorf("%w: finish and undo share button %d", ErrInvalidArgument, o.finishButton)
	}
	base, err := newCollector(canvas, []model.EventKind{model.KindButtonPress}, name, o)
	if err != nil {
		return nil, err
	}
	c := &ClickCollector{
		base:         base,
		finishButton: o.finishButton,
		undoButton:   o.undoButton,
		logger:       base.logger,
	}
	c.roles = ButtonRoles{
		Add:    c.addOrReject,
		Finish: c.finish,
		Undo:   c.undo,
	}
	base.SetHooks(Hooks{PostEvent: c.postEvent, Cleanup: c.cleanup})
	return c, nil
}

// Collect blocks until count clicks were accepted, the finish button was
// pressed or the timeout elapsed, and returns the accepted clicks.
func (c *ClickCollector) Collect(ctx context.Context, opts ...CallOption) ([]model.Point, error) {
	co := newCallOptions(DefaultCount, DefaultTimeout, opts)
	return c.collect(ctx, co.count, co.timeout, co.showClicks)
}

func (c *ClickCollector) collect(ctx context.Context, count int, timeout time.Duration, show bool) ([]model.Point, error) {
	c.showClicks = show
	c.clicks = nil
	c.marks = nil
	err := c.base.run(ctx, count, timeout)
	return c.Clicks(), err
}

func (c *ClickCollector) postEvent(ctx context.Context) error {
	ev, err := c.base.last()
	if err != nil {
		return err
	}
	switch ev.Button {
	case c.undoButton:
		return c.roles.Undo(ctx, ev)
	case c.finishButton:
		return c.roles.Finish(ctx, ev)
	default:
		return c.roles.Add(ctx, ev)
	}
}

// addOrReject accepts a click inside an axes and drops the event otherwise.
func (c *ClickCollector) addOrReject(ctx context.Context, ev model.Event) error {
	if !ev.InAxes() {
		metrics.RecordClick(metrics.ClickRejected)
		return c.base.PopEvent(-1)
	}
	return c.addClick(ctx, ev)
}

// finish drops the triggering event and stops the loop whatever the count.
func (c *ClickCollector) finish(_ context.Context, _ model.Event) error {
	if err := c.base.PopEvent(-1); err != nil {
		return err
	}
	c.base.stop()
	return nil
}

// undo drops the triggering event and then the last accepted click, if any.
func (c *ClickCollector) undo(ctx context.Context, _ model.Event) error {
	if err := c.base.PopEvent(-1); err != nil {
		return err
	}
	if c.base.Len() > 0 {
		return c.Pop(ctx, -1)
	}
	return nil
}

func (c *ClickCollector) addClick(ctx context.Context, ev model.Event) error {
	pt := model.Point{X: ev.XData, Y: ev.YData}
	if c.showClicks {
		mark, err := ev.Axes.Plot(ctx, pt.X, pt.Y, markerStyle)
		if err != nil {
			_ = c.base.PopEvent(-1)
			return collaboratorErr("plot click marker", err)
		}
		c.marks = append(c.marks, mark)
	}
	c.clicks = append(c.clicks, pt)
	metrics.RecordClick(metrics.ClickAccepted)
	c.logger.Debug(ctx, "input",
		logger.Int("n", len(c.clicks)),
		logger.Float64("x", pt.X),
		logger.Float64("y", pt.Y),
	)

	if c.showClicks {
		return collaboratorErr("draw", c.base.canvas.Draw(ctx))
	}
	return nil
}

// PopClick removes the click at index and its marker, if one is shown.
func (c *ClickCollector) PopClick(ctx context.Context, index int) error {
	i, err := resolveIndex(index, len(c.clicks))
	if err != nil {
		return fmt.Errorf("pop click: %w", err)
	}
	c.clicks = append(c.clicks[:i], c.clicks[i+1:]...)
	metrics.RecordClick(metrics.ClickUndone)

	if !c.showClicks || i >= len(c.marks) {
		return nil
	}
	mark := c.marks[i]
	c.marks = append(c.marks[:i], c.marks[i+1:]...)
	if err := mark.Remove(); err != nil {
		return collaboratorErr("remove click marker", err)
	}
	return collaboratorErr("draw", c.base.canvas.Draw(ctx))
}

// Pop removes a click together with the event that produced it.
func (c *ClickCollector) Pop(ctx context.Context, index int) error {
	if err := c.PopClick(ctx, index); err != nil {
		return err
	}
	return c.base.PopEvent(index)
}

// cleanup takes every click marker off the display.
func (c *ClickCollector) cleanup(ctx context.Context) error {
	if !c.showClicks {
		return nil
	}
	var errs []error
	for _, mark := range c.marks {
		if err := mark.Remove(); err != nil {
			errs = append(errs, err)
		}
	}
	c.marks = nil
	if err := c.base.canvas.Draw(ctx); err != nil {
		errs = append(errs, err)
	}
	return collaboratorErr("cleanup markers", errors.Join(errs...))
}

// Cleanup removes markers and disconnects the canvas. Safe to repeat.
func (c *ClickCollector) Cleanup(ctx context.Context) error { return c.base.Cleanup(ctx) }

// Clicks returns a copy of the accepted clicks.
func (c *ClickCollector) Clicks() []model.Point {
	return append([]model.Point(nil), c.clicks...)
}

// Events returns a copy of the retained raw events.
func (c *ClickCollector) Events() []model.Event { return c.base.Events() }

// Markers returns the number of click markers on display.
func (c *ClickCollector) Markers() int { return len(c.marks) }

// Subscriptions returns the number of live canvas registrations.
func (c *ClickCollector) Subscriptions() int { return c.base.Subscriptions() }
