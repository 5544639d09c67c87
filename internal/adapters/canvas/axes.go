package canvas

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/ginput/internal/domain/model"
)

// Rect is a screen rectangle, origin at the bottom-left of the figure.
type Rect struct {
	X0, Y0        float64
	Width, Height float64
}

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X0+r.Width && y >= r.Y0 && y <= r.Y0+r.Height
}

// Axes is a rectangular plotting area mapping data limits onto screen bounds.
type Axes struct {
	canvas *Canvas
	bounds Rect
	xlim   [2]float64
	ylim   [2]float64

	mu      sync.Mutex
	markers []*Marker
}

var _ model.Axes = (*Axes)(nil)

// AddAxes places a new axes on the canvas. Later axes are hit first.
func (c *Canvas) AddAxes(bounds Rect, xlim, ylim [2]float64) (*Axes, error) {
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return nil, fmt.Errorf("%w: empty bounds %+v", ErrBadAxes, bounds)
	}
	if xlim[0] == xlim[1] || ylim[0] == ylim[1] {
		return nil, fmt.Errorf("%w: degenerate limits x=%v y=%v", ErrBadAxes, xlim, ylim)
	}
	ax := &Axes{canvas: c, bounds: bounds, xlim: xlim, ylim: ylim}
	c.mu.Lock()
	c.axes = append(c.axes, ax)
	c.mu.Unlock()
	return ax, nil
}

// Locate returns the topmost axes containing screen point (x, y), or nil.
func (c *Canvas) Locate(x, y float64) *Axes {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.axes) - 1; i >= 0; i-- {
		if c.axes[i].bounds.Contains(x, y) {
			return c.axes[i]
		}
	}
	return nil
}

// Bounds returns the screen rectangle of the axes.
func (a *Axes) Bounds() Rect { return a.bounds }

// ToScreen transforms data coordinates to screen coordinates.
func (a *Axes) ToScreen(pts []model.Point) []model.Point {
	out := make([]model.Point, len(pts))
	sx := a.bounds.Width / (a.xlim[1] - a.xlim[0])
	sy := a.bounds.Height / (a.ylim[1] - a.ylim[0])
	for i, p := range pts {
		out[i] = model.Point{
			X: a.bounds.X0 + (p.X-a.xlim[0])*sx,
			Y: a.bounds.Y0 + (p.Y-a.ylim[0])*sy,
		}
	}
	return out
}

// ToData transforms a screen point to data coordinates.
func (a *Axes) ToData(p model.Point) model.Point {
	return model.Point{
		X: a.xlim[0] + (p.X-a.bounds.X0)*(a.xlim[1]-a.xlim[0])/a.bounds.Width,
		Y: a.ylim[0] + (p.Y-a.bounds.Y0)*(a.ylim[1]-a.ylim[0])/a.bounds.Height,
	}
}

// Plot draws a single-point marker at data coordinates (x, y).
func (a *Axes) Plot(_ context.Context, x, y float64, style string) (model.Artist, error) {
	m := &Marker{axes: a, At: model.Point{X: x, Y: y}, Style: style}
	a.mu.Lock()
	a.markers = append(a.markers, m)
	a.mu.Unlock()
	return m, nil
}

// Markers returns the positions of the markers currently drawn.
func (a *Axes) Markers() []model.Point {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.Point, len(a.markers))
	for i, m := range a.markers {
		out[i] = m.At
	}
	return out
}

// Marker is a point drawn on an Axes.
type Marker struct {
	axes  *Axes
	At    model.Point
	Style string
}

// Remove takes the marker off its axes.
func (m *Marker) Remove() error {
	a := m.axes
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, other := range a.markers {
		if other == m {
			a.markers = append(a.markers[:i], a.markers[i+1:]...)
			return nil
		}
	}
	return ErrArtistRemoved
}
