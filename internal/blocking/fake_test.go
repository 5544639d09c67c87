package blocking_test

import (
	"context"
	"errors"
	"time"

	"github.com/okian/ginput/internal/domain/model"
)

var errBoom = errors.New("boom")

type fakeSub struct {
	kind model.EventKind
	h    model.Handler
}

// fakeCanvas delivers a fixed script of events, honouring stop requests
// between events, and "times out" when the script runs dry.
type fakeCanvas struct {
	script    []model.Event
	subs      map[model.SubscriptionID]fakeSub
	order     []model.SubscriptionID
	nextID    int
	stopped   bool
	delivered int
	shows     int
	draws     int
	timeouts  []time.Duration
	showErr   error
	drawErr   error
}

func newFakeCanvas(script ...model.Event) *fakeCanvas {
	return &fakeCanvas{script: script, subs: make(map[model.SubscriptionID]fakeSub)}
}

func (f *fakeCanvas) Connect(kind model.EventKind, h model.Handler) model.SubscriptionID {
	f.nextID++
	id := model.SubscriptionID(string(rune('a' + f.nextID)))
	f.subs[id] = fakeSub{kind: kind, h: h}
	f.order = append(f.order, id)
	return id
}

func (f *fakeCanvas) Disconnect(id model.SubscriptionID) { delete(f.subs, id) }

func (f *fakeCanvas) RunBlocking(ctx context.Context, timeout time.Duration) error {
	f.stopped = false
	f.timeouts = append(f.timeouts, timeout)
	for len(f.script) > 0 {
		if f.stopped {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		ev := f.script[0]
		f.script = f.script[1:]
		f.delivered++
		for _, id := range f.order {
			s, ok := f.subs[id]
			if !ok || s.kind != ev.Kind {
				continue
			}
			if err := s.h(ctx, ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *fakeCanvas) Stop()                      { f.stopped = true }
func (f *fakeCanvas) Show(context.Context) error { f.shows++; return f.showErr }
func (f *fakeCanvas) Draw(context.Context) error { f.draws++; return f.drawErr }
func (f *fakeCanvas) Subscriptions() int         { return len(f.subs) }
func (f *fakeCanvas) push(evs ...model.Event)    { f.script = append(f.script, evs...) }
func (f *fakeCanvas) remaining() int             { return len(f.script) }

// fakeAxes uses data coordinates as screen coordinates.
type fakeAxes struct {
	name    string
	markers []*fakeArtist
	plotErr error
}

func (a *fakeAxes) Plot(_ context.Context, x, y float64, _ string) (model.Artist, error) {
	if a.plotErr != nil {
		return nil, a.plotErr
	}
	m := &fakeArtist{axes: a, at: model.Point{X: x, Y: y}}
	a.markers = append(a.markers, m)
	return m, nil
}

func (a *fakeAxes) ToScreen(pts []model.Point) []model.Point {
	return append([]model.Point(nil), pts...)
}

type fakeArtist struct {
	axes    *fakeAxes
	at      model.Point
	removed bool
}

func (m *fakeArtist) Remove() error {
	if m.removed {
		return errors.New("already removed")
	}
	m.removed = true
	for i, other := range m.axes.markers {
		if other == m {
			m.axes.markers = append(m.axes.markers[:i], m.axes.markers[i+1:]...)
			break
		}
	}
	return nil
}

func press(ax model.Axes, x, y float64, b model.Button) model.Event {
	return model.Event{Kind: model.KindButtonPress, X: x, Y: y, XData: x, YData: y, Button: b, Axes: ax}
}

func outside(b model.Button) model.Event {
	return model.Event{Kind: model.KindButtonPress, X: -1, Y: -1, Button: b}
}

func key(k string) model.Event {
	return model.Event{Kind: model.KindKeyPress, Key: k}
}
