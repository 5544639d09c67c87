package replay

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/okian/ginput/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the global logger on stdout, and also on
// logFile when it is set. The returned function closes the file.
func SetupLogging(logFile string) (func() error, error) {
	format := logFormat(os.Stdout)
	if logFile == "" {
		return func() error { return nil }, logger.InitWithWriter(os.Stdout, format)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file), format); err != nil {
		_ = file.Close()
		return nil, err
	}
	return file.Close, nil
}

// logFormat picks text for an interactive terminal and json otherwise.
func logFormat(f *os.File) string {
	if term.IsTerminal(int(f.Fd())) {
		return "text"
	}
	return "json"
}

// ShowHelp prints usage information for the replay tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `ginput replay
=============

Feeds a running ginput service with scripted canvas events.

Usage:
  replay [options] [script.yaml]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -transport string
        http posts to /events, ws streams over /ws (default "http")
  -clicks int
        Generate this many random clicks instead of reading a script
  -seed uint
        Seed for generated clicks (default 1)
  -width, -height float
        Figure size used for generated clicks (default 640x480)
  -keys
        Generate a single key press for waitforbuttonpress
  -timeout duration
        HTTP request timeout (default 10s)
  -wait duration
        How long to wait for the session result (default 30s)
  -retries int
        Retries for events refused with backpressure (default 3)
  -log string
        Also write logs to this file
  -verbose
        Log every event outcome
  -help
        Show this help message

Script format:
  session:
    mode: ginput          # ginput | waitforbuttonpress | clabel
    count: 2
    timeout_ms: 5000
  events:
    - {x: 200, y: 240}    # left click
    - {x: 320, y: 100, button: right, delay_ms: 100}
    - {key: enter}
`)
}
