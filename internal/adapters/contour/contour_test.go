package contour_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/ginput/internal/adapters/canvas"
	"github.com/okian/ginput/internal/adapters/contour"
	"github.com/okian/ginput/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func newSet(opts ...contour.Option) (*contour.Set, *canvas.Axes) {
	c := canvas.New()
	// ten screen pixels per data unit
	ax, err := c.AddAxes(canvas.Rect{Width: 100, Height: 100}, [2]float64{0, 10}, [2]float64{0, 10})
	So(err, ShouldBeNil)
	return contour.New(c, ax, opts...), ax
}

func TestFindNearestContour(t *testing.T) {
	Convey("Given a set with a horizontal and a vertical level", t, func() {
		s, _ := newSet()
		h := s.AddLevel(1, model.Path{{X: 0, Y: 2}, {X: 10, Y: 2}})
		v := s.AddLevel(2, model.Path{{X: 8, Y: 0}, {X: 8, Y: 10}})

		Convey("When searching near the horizontal line", func() {
			n, err := s.FindNearestContour(30, 25, []int{h, v})

			Convey("Then the projection onto it is returned in data units", func() {
				So(err, ShouldBeNil)
				So(n.Contour, ShouldEqual, h)
				So(n.Segment, ShouldEqual, 0)
				So(n.Vertex, ShouldEqual, 0)
				So(n.X, ShouldAlmostEqual, 3)
				So(n.Y, ShouldAlmostEqual, 2)
				So(n.Dist, ShouldAlmostEqual, 5)
			})
		})

		Convey("When the closer level is not searched", func() {
			n, err := s.FindNearestContour(30, 25, []int{v})

			Convey("Then the other level wins", func() {
				So(err, ShouldBeNil)
				So(n.Contour, ShouldEqual, v)
				So(n.Vertex, ShouldEqual, 0)
				So(n.X, ShouldAlmostEqual, 8)
				So(n.Y, ShouldAlmostEqual, 2.5)
			})
		})

		Convey("When no level is searched", func() {
			_, err := s.FindNearestContour(30, 25, nil)

			Convey("Then nothing is found", func() {
				So(errors.Is(err, contour.ErrNoContours), ShouldBeTrue)
			})
		})
	})
}

func TestLabelLevels(t *testing.T) {
	Convey("Given a set with three levels", t, func() {
		s, _ := newSet(contour.WithFontSize(12))
		s.AddLevel(1)
		mid := s.AddLevel(2)
		s.AddLevel(3)

		Convey("When one is excluded", func() {
			s.SetLabelable(mid, false)
			levels := s.LabelLevels()

			Convey("Then only the others are eligible", func() {
				So(levels, ShouldHaveLength, 2)
				So(levels[0].Index, ShouldEqual, 0)
				So(levels[1].Index, ShouldEqual, 2)
				So(levels[1].Level, ShouldEqual, 3)
				So(levels[1].FontSize, ShouldEqual, 12)
			})
		})
	})
}

func TestLabelWidth(t *testing.T) {
	Convey("Given the default label format", t, func() {
		s, _ := newSet()
		So(s.LabelFormat(), ShouldEqual, "%1.3f")

		Convey("When measuring a label", func() {
			w, err := s.LabelWidth(1.5, s.LabelFormat(), 10)

			Convey("Then the width grows with the text length", func() {
				So(err, ShouldBeNil)
				So(w, ShouldAlmostEqual, 5*10*0.6)
			})
		})

		Convey("When the format does not fit a number", func() {
			_, err := s.LabelWidth(1.5, "%s%d", 10)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, contour.ErrBadFormat), ShouldBeTrue)
			})
		})
	})
}

func TestLabelRotation(t *testing.T) {
	Convey("Given a contour set", t, func() {
		s, _ := newSet()

		Convey("When the path rises at 45 degrees", func() {
			p := model.Path{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 20, Y: 20}}
			rot, pieces, err := s.LabelRotation(p, 1, 4, nil, 0)

			Convey("Then the label follows it and nothing is cut", func() {
				So(err, ShouldBeNil)
				So(rot, ShouldAlmostEqual, 45)
				So(pieces, ShouldBeNil)
			})
		})

		Convey("When the path runs right to left", func() {
			p := model.Path{{X: 20, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 0}}
			rot, _, err := s.LabelRotation(p, 1, 4, nil, 0)

			Convey("Then the text stays upright", func() {
				So(err, ShouldBeNil)
				So(rot, ShouldAlmostEqual, 0)
			})
		})

		Convey("When cutting a gap for an inline label", func() {
			screen := model.Path{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}, {X: 30, Y: 0}, {X: 40, Y: 0}}
			orig := model.Path{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}, {X: 4, Y: 0}}
			_, pieces, err := s.LabelRotation(screen, 2, 8, orig, 1)

			Convey("Then the label footprint is removed from the data path", func() {
				So(err, ShouldBeNil)
				So(pieces, ShouldHaveLength, 2)
				So(pieces[0], ShouldHaveLength, 3)
				So(pieces[0][2].X, ShouldAlmostEqual, 1.5)
				So(pieces[1], ShouldHaveLength, 3)
				So(pieces[1][0].X, ShouldAlmostEqual, 2.5)
				So(pieces[1][2], ShouldResemble, model.Point{X: 4, Y: 0})
			})
		})

		Convey("When the vertex is out of range", func() {
			_, _, err := s.LabelRotation(model.Path{{X: 0, Y: 0}}, 3, 1, nil, 0)

			Convey("Then the geometry is rejected", func() {
				So(errors.Is(err, contour.ErrBadGeometry), ShouldBeTrue)
			})
		})

		Convey("When the data path does not match the screen path", func() {
			_, _, err := s.LabelRotation(model.Path{{X: 0, Y: 0}, {X: 1, Y: 0}}, 0, 1, model.Path{{X: 0, Y: 0}}, 0)

			Convey("Then the geometry is rejected", func() {
				So(errors.Is(err, contour.ErrBadGeometry), ShouldBeTrue)
			})
		})
	})
}

func TestLabels(t *testing.T) {
	Convey("Given a set with one label", t, func() {
		ctx := context.Background()
		s, _ := newSet()
		So(s.AddLabel(ctx, model.Label{X: 1, Y: 2, Level: 3}), ShouldBeNil)

		Convey("When popping twice", func() {
			first := s.PopLabel(ctx)
			second := s.PopLabel(ctx)

			Convey("Then the second pop finds nothing", func() {
				So(first, ShouldBeNil)
				So(errors.Is(second, contour.ErrNoLabels), ShouldBeTrue)
				So(s.Labels(), ShouldBeEmpty)
			})
		})

		Convey("When paths are replaced", func() {
			i := s.AddLevel(1, model.Path{{X: 0, Y: 0}, {X: 1, Y: 1}})
			s.SetPaths(i, []model.Path{{{X: 5, Y: 5}, {X: 6, Y: 6}}, {{X: 7, Y: 7}, {X: 8, Y: 8}}})
			got := s.Paths(i)
			got[0][0].X = 99

			Convey("Then readers get copies", func() {
				So(s.Paths(i), ShouldHaveLength, 2)
				So(s.Paths(i)[0][0].X, ShouldEqual, 5)
				So(s.Paths(42), ShouldBeNil)
			})
		})
	})
}
