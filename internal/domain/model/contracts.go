package model

import (
	"context"
	"time"
)

// SubscriptionID identifies a handler registration on a Canvas.
type SubscriptionID string

// Handler receives canvas events. A returned error aborts the blocking loop.
type Handler func(ctx context.Context, ev Event) error

// Canvas is the event-driven surface input is captured from.
type Canvas interface {
	// Connect registers h for events of the given kind.
	Connect(kind EventKind, h Handler) SubscriptionID

	// Disconnect removes a registration. Unknown ids are ignored.
	Disconnect(id SubscriptionID)

	// RunBlocking dispatches events to registered handlers on the calling
	// goroutine until Stop is requested, a handler fails, ctx is done or
	// timeout elapses without an event. timeout <= 0 waits indefinitely.
	RunBlocking(ctx context.Context, timeout time.Duration) error

	// Stop asks a running RunBlocking to return. It never blocks.
	Stop()

	// Show makes the canvas visible.
	Show(ctx context.Context) error

	// Draw forces a redraw.
	Draw(ctx context.Context) error
}

// Axes is a plotting area on a canvas.
type Axes interface {
	// Plot draws a marker at data coordinates and returns its handle.
	Plot(ctx context.Context, x, y float64, style string) (Artist, error)

	// ToScreen transforms data coordinates to screen coordinates.
	ToScreen(pts []Point) []Point
}

// Artist is a drawn element that can be taken off the display.
type Artist interface {
	Remove() error
}
