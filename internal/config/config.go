// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/ginput/internal/domain/model"
)

// Interaction modes run by the service binary.
const (
	ModeGinput             = model.ModeGinput
	ModeWaitForButtonPress = model.ModeWaitForButtonPress
	ModeClabel             = model.ModeClabel
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Mode selects the interaction run at startup.
	Mode string `koanf:"mode"`
	// Count is the number of clicks to collect; non-positive means unbounded.
	Count int `koanf:"count"`
	// TimeoutMS bounds idle waiting; non-positive means no timeout.
	TimeoutMS int `koanf:"timeout_ms"`
	// ShowClicks marks accepted clicks on the figure.
	ShowClicks bool `koanf:"show_clicks"`

	// Inline breaks contour lines under placed labels.
	Inline bool `koanf:"inline"`
	// InlineSpacing is the extra gap, in pixels, either side of a label.
	InlineSpacing float64 `koanf:"inline_spacing"`

	// FinishButton and UndoButton are button names or numbers.
	FinishButton string `koanf:"finish_button"`
	UndoButton   string `koanf:"undo_button"`

	// EventQueueSize bounds the canvas event queue.
	EventQueueSize int `koanf:"queue_size"`
	// DedupeSize sets the size of the event id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// FigureWidth and FigureHeight set the figure size in pixels.
	FigureWidth  float64 `koanf:"figure_width"`
	FigureHeight float64 `koanf:"figure_height"`

	// ShutdownTimeoutMS bounds graceful HTTP shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		Mode:              ModeGinput,
		Count:             1,
		TimeoutMS:         30_000,
		ShowClicks:        true,
		InlineSpacing:     5,
		FinishButton:      "middle",
		UndoButton:        "right",
		EventQueueSize:    1024,
		DedupeSize:        10_000,
		FigureWidth:       640,
		FigureHeight:      480,
		ShutdownTimeoutMS: 10_000,
	}
}

// Timeout returns TimeoutMS as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Buttons parses the finish and undo buttons.
func (c *Config) Buttons() (finish, undo model.Button, err error) {
	if finish, err = model.ParseButton(c.FinishButton); err != nil {
		return 0, 0, fmt.Errorf("%w: finish_button: %w", ErrInvalidConfig, err)
	}
	if undo, err = model.ParseButton(c.UndoButton); err != nil {
		return 0, 0, fmt.Errorf("%w: undo_button: %w", ErrInvalidConfig, err)
	}
	return finish, undo, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if !model.ValidMode(c.Mode) {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.EventQueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.DedupeSize <= 0 {
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	}
	if c.InlineSpacing < 0 {
		return fmt.Errorf("%w: inline_spacing must not be negative", ErrInvalidConfig)
	}
	if c.FigureWidth <= 0 || c.FigureHeight <= 0 {
		return fmt.Errorf("%w: figure size must be positive", ErrInvalidConfig)
	}
	finish, undo, err := c.Buttons()
	if err != nil {
		return err
	}
	if finish == undo {
		return fmt.Errorf("%w: finish_button and undo_button are both %s", ErrInvalidConfig, finish)
	}
	return nil
}
