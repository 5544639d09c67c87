package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/ginput/internal/replay"
	"github.com/okian/ginput/pkg/logger"
)

// Default configuration constants.
const (
	defaultTimeout    = 10 * time.Second
	defaultWait       = 30 * time.Second
	defaultRetries    = 3
	defaultWidth      = 640
	defaultHeight     = 480
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		transport = flag.String("transport", replay.TransportHTTP, "Event transport: http or ws")
		clicks    = flag.Int("clicks", 0, "Generate this many random clicks instead of reading a script")
		seed      = flag.Uint64("seed", 1, "Seed for generated clicks")
		width     = flag.Float64("width", defaultWidth, "Figure width for generated clicks")
		height    = flag.Float64("height", defaultHeight, "Figure height for generated clicks")
		keys      = flag.Bool("keys", false, "Generate a single key press for waitforbuttonpress")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait      = flag.Duration("wait", defaultWait, "How long to wait for the session result")
		retries   = flag.Int("retries", defaultRetries, "Retries for events refused with backpressure")
		logFile   = flag.String("log", "", "Also write logs to this file")
		verbose   = flag.Bool("verbose", false, "Log every event outcome")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		replay.ShowHelp(os.Stdout)
		return
	}

	closeLog, err := replay.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	var script *replay.Script
	switch {
	case *clicks > 0:
		script = replay.GenerateClicks(*clicks, *width, *height, *seed)
	case *keys:
		script = replay.GenerateKeys()
	case flag.NArg() == 1:
		script, err = replay.LoadScript(flag.Arg(0))
		if err != nil {
			os.Stderr.WriteString(err.Error() + "\n")
			os.Exit(1)
		}
	default:
		replay.ShowHelp(os.Stderr)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &replay.Config{
		BaseURL:   *baseURL,
		Transport: *transport,
		Timeout:   *timeout,
		Wait:      *wait,
		Retries:   *retries,
		Verbose:   *verbose,
	}

	if _, err := replay.Run(ctx, cfg, script, logger.Named("replay")); err != nil {
		logger.Get().Error(ctx, "replay failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}
