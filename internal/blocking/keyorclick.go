package blocking

import (
	"context"

	"github.com/okian/ginput/internal/domain/model"
)

// Press classifies the event that ended a KeyOrClickDetector call.
type Press int

// Press values. PressUndetermined means the call timed out with no event.
const (
	PressUndetermined Press = iota
	PressMouse
	PressKey
)

func (p Press) String() string {
	switch p {
	case PressMouse:
		return "mouse"
	case PressKey:
		return "key"
	default:
		return "undetermined"
	}
}

// KeyOrClickDetector waits for a single key or mouse press.
type KeyOrClickDetector struct {
	base  *Collector
	press Press
}

// NewKeyOrClickDetector creates a detector for button and key presses on canvas.
func NewKeyOrClickDetector(canvas model.Canvas, opts ...Option) (*KeyOrClickDetector, error) {
	base, err := newCollector(canvas,
		[]model.EventKind{model.KindButtonPress, model.KindKeyPress},
		"waitforbuttonpress", newOptions(opts))
	if err != nil {
		return nil, err
	}
	d := &KeyOrClickDetector{base: base}
	base.SetHooks(Hooks{PostEvent: d.postEvent})
	return d, nil
}

// Wait blocks for one event and reports whether it was a key press.
// Only WithTimeout is honoured; the count is always one.
func (d *KeyOrClickDetector) Wait(ctx context.Context, opts ...CallOption) (Press, error) {
	co := newCallOptions(1, DefaultTimeout, opts)
	d.press = PressUndetermined
	err := d.base.run(ctx, 1, co.timeout)
	return d.press, err
}

func (d *KeyOrClickDetector) postEvent(_ context.Context) error {
	ev, err := d.base.last()
	if err != nil {
		return err
	}
	if ev.Kind == model.KindKeyPress {
		d.press = PressKey
	} else {
		d.press = PressMouse
	}
	return nil
}

// Cleanup disconnects the canvas. Safe to repeat.
func (d *KeyOrClickDetector) Cleanup(ctx context.Context) error { return d.base.Cleanup(ctx) }

// Subscriptions returns the number of live canvas registrations.
func (d *KeyOrClickDetector) Subscriptions() int { return d.base.Subscriptions() }
