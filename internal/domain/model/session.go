package model

import "time"

// Interaction modes a session can run.
const (
	ModeGinput             = "ginput"
	ModeWaitForButtonPress = "waitforbuttonpress"
	ModeClabel             = "clabel"
)

// SessionRequest describes one interaction to run against the figure.
// Zero Count and Timeout fall back to the collector defaults; negative
// values mean unbounded.
type SessionRequest struct {
	Mode       string
	Count      int
	Timeout    time.Duration
	ShowClicks bool
	Inline     bool
}

// ValidMode reports whether mode names a known interaction.
func ValidMode(mode string) bool {
	switch mode {
	case ModeGinput, ModeWaitForButtonPress, ModeClabel:
		return true
	}
	return false
}
