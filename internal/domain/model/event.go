// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventKind names a category of canvas occurrence.
type EventKind string

// Event kinds delivered by the canvas.
const (
	KindButtonPress EventKind = "button_press_event"
	KindKeyPress    EventKind = "key_press_event"
)

// Button identifies a mouse button. Zero means no button (key events).
type Button int

// Conventional mouse button numbers.
const (
	ButtonNone   Button = 0
	ButtonLeft   Button = 1
	ButtonMiddle Button = 2
	ButtonRight  Button = 3
)

func (b Button) String() string {
	switch b {
	case ButtonNone:
		return "none"
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	default:
		return strconv.Itoa(int(b))
	}
}

// ParseButton accepts a button name or a positive button number.
func ParseButton(s string) (Button, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return ButtonLeft, nil
	case "middle":
		return ButtonMiddle, nil
	case "right":
		return ButtonRight, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return ButtonNone, fmt.Errorf("invalid mouse button %q", s)
	}
	return Button(n), nil
}

// Event is a single occurrence reported by the canvas.
type Event struct {
	ID     string    // unique id, used for idempotent ingest
	Kind   EventKind // originating event kind
	X, Y   float64   // screen (pixel) coordinates
	Button Button    // mouse button, ButtonNone for key events
	Key    string    // key name for key events

	// Axes is the plotting area under the pointer, nil when outside any.
	Axes Axes
	// XData and YData are the data-space coordinates within Axes.
	XData, YData float64

	TS time.Time
}

// InAxes reports whether the event happened inside a plotting area.
func (e Event) InAxes() bool { return e.Axes != nil }

// Point is an (x, y) pair.
type Point struct {
	X float64 `json:"x" koanf:"x"`
	Y float64 `json:"y" koanf:"y"`
}

// Path is an ordered polyline.
type Path []Point

// Label is a placed contour label.
type Label struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"` // degrees
	Level    float64 `json:"level"`
	CValue   float64 `json:"cvalue"`
}
