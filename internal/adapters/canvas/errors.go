package canvas

import "errors"

// Sentinel kinds for canvas errors.
var (
	ErrClosed        = errors.New("canvas closed")
	ErrArtistRemoved = errors.New("artist already removed")
	ErrBadAxes       = errors.New("invalid axes geometry")
)
