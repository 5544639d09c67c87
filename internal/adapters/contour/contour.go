// Package contour provides an in-memory contour set that can be labelled
// interactively.
package contour

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/okian/ginput/internal/blocking"
	"github.com/okian/ginput/internal/domain/model"
)

type level struct {
	value     float64
	cvalue    float64
	paths     []model.Path
	labelable bool
}

// Set is a collection of contour lines, one entry per level.
type Set struct {
	canvas   model.Canvas
	axes     model.Axes
	format   string
	fontSize float64

	mu     sync.RWMutex
	levels []level
	labels []model.Label
}

var _ blocking.ContourSet = (*Set)(nil)

// New creates an empty contour set drawn on axes of canvas.
func New(canvas model.Canvas, axes model.Axes, opts ...Option) *Set {
	s := &Set{
		canvas:   canvas,
		axes:     axes,
		format:   defaultFormat,
		fontSize: defaultFontSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddLevel adds a contour line at value and returns its index. New levels
// are eligible for labels.
func (s *Set) AddLevel(value float64, paths ...model.Path) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels = append(s.levels, level{
		value:     value,
		cvalue:    value,
		paths:     clonePaths(paths),
		labelable: true,
	})
	return len(s.levels) - 1
}

// SetLabelable includes or excludes a level from labelling.
func (s *Set) SetLabelable(index int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= 0 && index < len(s.levels) {
		s.levels[index].labelable = ok
	}
}

// Canvas returns the canvas the set is drawn on.
func (s *Set) Canvas() model.Canvas { return s.canvas }

// Axes returns the axes the set is drawn in.
func (s *Set) Axes() model.Axes { return s.axes }

// LabelFormat returns the fmt verb for label text.
func (s *Set) LabelFormat() string { return s.format }

// LabelLevels lists the levels eligible for labels.
func (s *Set) LabelLevels() []blocking.LabelLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []blocking.LabelLevel
	for i, l := range s.levels {
		if l.labelable {
			out = append(out, blocking.LabelLevel{Index: i, Level: l.value, CValue: l.cvalue, FontSize: s.fontSize})
		}
	}
	return out
}

// Paths returns a copy of the paths of a contour.
func (s *Set) Paths(contour int) []model.Path {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if contour < 0 || contour >= len(s.levels) {
		return nil
	}
	return clonePaths(s.levels[contour].paths)
}

// SetPaths replaces the paths of a contour.
func (s *Set) SetPaths(contour int, paths []model.Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if contour >= 0 && contour < len(s.levels) {
		s.levels[contour].paths = clonePaths(paths)
	}
}

// FindNearestContour returns the point on the listed contours closest to
// screen position (x, y).
func (s *Set) FindNearestContour(x, y float64, indices []int) (blocking.Nearest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := blocking.Nearest{Dist: math.Inf(1)}
	q := model.Point{X: x, Y: y}
	for _, ci := range indices {
		if ci < 0 || ci >= len(s.levels) {
			continue
		}
		for si, p := range s.levels[ci].paths {
			if len(p) == 0 {
				continue
			}
			sp := s.axes.ToScreen(p)
			if len(sp) == 1 {
				if d := dist(q, sp[0]); d < best.Dist {
					best = blocking.Nearest{Contour: ci, Segment: si, Vertex: 0, X: p[0].X, Y: p[0].Y, Dist: d}
				}
				continue
			}
			for i := 0; i+1 < len(sp); i++ {
				t := project(q, sp[i], sp[i+1])
				c := lerp(sp[i], sp[i+1], t)
				d := dist(q, c)
				if d >= best.Dist {
					continue
				}
				vertex := i
				if t > 0.5 {
					vertex = i + 1
				}
				data := lerp(p[i], p[i+1], t)
				best = blocking.Nearest{Contour: ci, Segment: si, Vertex: vertex, X: data.X, Y: data.Y, Dist: d}
			}
		}
	}
	if math.IsInf(best.Dist, 1) {
		return blocking.Nearest{}, ErrNoContours
	}
	return best, nil
}

// LabelWidth estimates the on-screen width of the label for level.
func (s *Set) LabelWidth(value float64, format string, fontSize float64) (float64, error) {
	text := fmt.Sprintf(format, value)
	if strings.Contains(text, "%!") {
		return 0, fmt.Errorf("%w: %q", ErrBadFormat, format)
	}
	return float64(len(text)) * fontSize * charWidthRatio, nil
}

// LabelRotation returns the upright text angle, in degrees, along the
// screen path at vertex index. When orig is given it also returns the
// parts of orig outside width/2+spacing of the label centre, measured by
// arc length in screen space.
func (s *Set) LabelRotation(screen model.Path, index int, width float64, orig model.Path, spacing float64) (float64, []model.Path, error) {
	n := len(screen)
	if n == 0 || index < 0 || index >= n {
		return 0, nil, fmt.Errorf("%w: vertex %d of %d", ErrBadGeometry, index, n)
	}
	if orig != nil && len(orig) != n {
		return 0, nil, fmt.Errorf("%w: %d data vertices for %d screen vertices", ErrBadGeometry, len(orig), n)
	}

	prev, next := screen[max(index-1, 0)], screen[min(index+1, n-1)]
	rotation := 0.0
	if prev != next {
		rotation = math.Atan2(next.Y-prev.Y, next.X-prev.X) * 180 / math.Pi
		switch {
		case rotation > 90:
			rotation -= 180
		case rotation <= -90:
			rotation += 180
		}
	}

	if orig == nil {
		return rotation, nil, nil
	}

	arc := arcLengths(screen)
	half := width/2 + spacing
	lo, hi := arc[index]-half, arc[index]+half

	var before, after model.Path
	for i := range orig {
		if arc[i] < lo {
			before = append(before, orig[i])
		}
	}
	if len(before) > 0 {
		before = append(before, interpolate(orig, arc, lo))
	}
	if hi < arc[n-1] {
		after = append(after, interpolate(orig, arc, hi))
		for i := range orig {
			if arc[i] > hi {
				after = append(after, orig[i])
			}
		}
	}
	return rotation, []model.Path{before, after}, nil
}

// AddLabel records a placed label.
func (s *Set) AddLabel(_ context.Context, l model.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels = append(s.labels, l)
	return nil
}

// PopLabel removes the most recent label.
func (s *Set) PopLabel(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.labels) == 0 {
		return ErrNoLabels
	}
	s.labels = s.labels[:len(s.labels)-1]
	return nil
}

// Labels returns a copy of the placed labels.
func (s *Set) Labels() []model.Label {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Label(nil), s.labels...)
}

func clonePaths(paths []model.Path) []model.Path {
	out := make([]model.Path, len(paths))
	for i, p := range paths {
		out[i] = append(model.Path(nil), p...)
	}
	return out
}

func dist(a, b model.Point) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

func lerp(a, b model.Point, t float64) model.Point {
	return model.Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}
}

// project returns the clamped parameter of q's projection onto segment ab.
func project(q, a, b model.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return 0
	}
	t := ((q.X-a.X)*dx + (q.Y-a.Y)*dy) / l2
	return math.Max(0, math.Min(1, t))
}

func arcLengths(p model.Path) []float64 {
	arc := make([]float64, len(p))
	for i := 1; i < len(p); i++ {
		arc[i] = arc[i-1] + dist(p[i-1], p[i])
	}
	return arc
}

// interpolate returns the point of p at arc length at, where arc holds the
// cumulative lengths of the matching screen path.
func interpolate(p model.Path, arc []float64, at float64) model.Point {
	for i := 0; i+1 < len(p); i++ {
		if at > arc[i+1] {
			continue
		}
		seg := arc[i+1] - arc[i]
		if seg == 0 {
			return p[i]
		}
		return lerp(p[i], p[i+1], (at-arc[i])/seg)
	}
	return p[len(p)-1]
}
