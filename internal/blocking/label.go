package blocking

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/ginput/internal/domain/model"
	"github.com/okian/ginput/pkg/logger"
	"github.com/okian/ginput/pkg/metrics"
)

// Label placement defaults: unbounded count, no timeout.
const (
	DefaultLabelCount   = -1
	DefaultLabelTimeout = -1
)

// LabelLevel is a contour level eligible for labelling.
type LabelLevel struct {
	Index    int     // contour index in the set
	Level    float64 // level value shown in the label
	CValue   float64 // colour value
	FontSize float64
}

// Nearest is the result of a nearest-contour lookup.
type Nearest struct {
	Contour int     // contour index
	Segment int     // path index within the contour
	Vertex  int     // vertex index within the path
	X, Y    float64 // nearest point in data coordinates
	Dist    float64 // screen distance to the query point
}

// ContourSet is the labelled contour plot. Geometry decisions (nearest
// contour, rotation, path breaking) belong to it.
type ContourSet interface {
	Canvas() model.Canvas
	Axes() model.Axes

	// LabelLevels lists the levels labels may be placed on.
	LabelLevels() []LabelLevel
	LabelFormat() string

	// FindNearestContour searches contours in indices for the point
	// closest to the screen position (x, y).
	FindNearestContour(x, y float64, indices []int) (Nearest, error)

	Paths(contour int) []model.Path
	SetPaths(contour int, paths []model.Path)

	LabelWidth(level float64, format string, fontSize float64) (float64, error)

	// LabelRotation returns the label rotation at vertex index of the
	// screen-space path and, when orig is non-nil, the pieces of orig left
	// once the label footprint is cut out.
	LabelRotation(screen model.Path, index int, width float64, orig model.Path, spacing float64) (float64, []model.Path, error)

	AddLabel(ctx context.Context, l model.Label) error
	PopLabel(ctx context.Context) error
}

// LabelPlacer places contour labels where the user clicks.
//
// Clicks with the add role put a label on the nearest eligible contour;
// the undo role removes the last label unless labels are inline, in which
// case the contour was already broken and nothing is undone.
type LabelPlacer struct {
	cs     ContourSet
	clicks *ClickCollector
	logger logger.Logger

	inline        bool
	inlineSpacing float64
}

// NewLabelPlacer creates a LabelPlacer on the canvas of cs.
func NewLabelPlacer(cs ContourSet, opts ...Option) (*LabelPlacer, error) {
	if cs == nil {
		return nil, fmt.Errorf("%w: nil contour set", ErrInvalidArgument)
	}
	clicks, err := newClickCollector(cs.Canvas(), "clabel", newOptions(opts))
	if err != nil {
		return nil, err
	}
	p := &LabelPlacer{
		cs:            cs,
		clicks:        clicks,
		logger:        clicks.logger,
		inlineSpacing: DefaultInlineSpacing,
	}
	clicks.roles.Add = p.placeLabel
	clicks.roles.Undo = p.undoLabel
	return p, nil
}

// Place blocks while the user places labels. By default it runs until the
// finish button is pressed.
func (p *LabelPlacer) Place(ctx context.Context, inline bool, opts ...CallOption) error {
	co := newCallOptions(DefaultLabelCount, DefaultLabelTimeout, opts)
	p.inline = inline
	p.inlineSpacing = co.inlineSpacing
	_, err := p.clicks.collect(ctx, co.count, co.timeout, false)
	return err
}

func (p *LabelPlacer) placeLabel(ctx context.Context, ev model.Event) error {
	cs := p.cs
	if !ev.InAxes() || ev.Axes != cs.Axes() {
		metrics.RecordClick(metrics.ClickRejected)
		return p.clicks.base.PopEvent(-1)
	}

	levels := cs.LabelLevels()
	indices := make([]int, len(levels))
	for i, l := range levels {
		indices[i] = l.Index
	}
	near, err := cs.FindNearestContour(ev.X, ev.Y, indices)
	if err != nil {
		return collaboratorErr("find nearest contour", err)
	}

	lmin := slices.IndexFunc(levels, func(l LabelLevel) bool { return l.Index == near.Contour })
	if lmin < 0 {
		return collaboratorErr("find nearest contour", fmt.Errorf("contour %d is not labelable", near.Contour))
	}
	level := levels[lmin]

	paths := cs.Paths(near.Contour)
	if near.Segment < 0 || near.Segment >= len(paths) {
		return collaboratorErr("find nearest contour", fmt.Errorf("segment %d out of range", near.Segment))
	}
	lc := paths[near.Segment]
	slc := cs.Axes().ToScreen(lc)

	width, err := cs.LabelWidth(level.Level, cs.LabelFormat(), level.FontSize)
	if err != nil {
		return collaboratorErr("label width", err)
	}

	var orig model.Path
	if p.inline {
		orig = lc
	}
	rotation, pieces, err := cs.LabelRotation(slc, near.Vertex, width, orig, p.inlineSpacing)
	if err != nil {
		return collaboratorErr("label rotation", err)
	}

	label := model.Label{X: near.X, Y: near.Y, Rotation: rotation, Level: level.Level, CValue: level.CValue}
	if err := cs.AddLabel(ctx, label); err != nil {
		return collaboratorErr("add label", err)
	}
	metrics.RecordLabel(metrics.LabelPlaced)
	p.logger.Debug(ctx, "label placed",
		logger.Float64("level", level.Level),
		logger.Float64("rotation", rotation),
		logger.Bool("inline", p.inline),
	)

	if p.inline {
		kept := make([]model.Path, 0, len(paths)-1+len(pieces))
		kept = append(kept, paths[:near.Segment]...)
		kept = append(kept, paths[near.Segment+1:]...)
		for _, piece := range pieces {
			if len(piece) > 1 {
				kept = append(kept, piece)
			}
		}
		cs.SetPaths(near.Contour, kept)
	}

	return collaboratorErr("draw", p.clicks.base.canvas.Draw(ctx))
}

// undoLabel removes the last label. Inline labels cannot be undone since
// the contour path was already split around them.
func (p *LabelPlacer) undoLabel(ctx context.Context, _ model.Event) error {
	if err := p.clicks.base.PopEvent(-1); err != nil {
		return err
	}
	if p.inline {
		return nil
	}
	if err := p.cs.PopLabel(ctx); err != nil {
		return collaboratorErr("pop label", err)
	}
	metrics.RecordLabel(metrics.LabelRemoved)
	return collaboratorErr("draw", p.clicks.base.canvas.Draw(ctx))
}

// Events returns a copy of the retained raw events of the last call.
func (p *LabelPlacer) Events() []model.Event { return p.clicks.Events() }

// Cleanup disconnects the canvas. Safe to repeat.
func (p *LabelPlacer) Cleanup(ctx context.Context) error { return p.clicks.Cleanup(ctx) }

// Subscriptions returns the number of live canvas registrations.
func (p *LabelPlacer) Subscriptions() int { return p.clicks.Subscriptions() }
