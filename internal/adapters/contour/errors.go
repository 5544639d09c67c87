package contour

import "errors"

// Sentinel kinds for contour set errors.
var (
	ErrNoContours  = errors.New("no contour to label")
	ErrNoLabels    = errors.New("no labels to remove")
	ErrBadFormat   = errors.New("invalid label format")
	ErrBadGeometry = errors.New("invalid path geometry")
)
