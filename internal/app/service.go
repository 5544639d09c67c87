// Package service owns the figure and runs blocking interactions on it.
//
// Events arrive through Enqueue, usually from the HTTP and websocket feed,
// and are consumed by whichever interaction currently drives the canvas
// event loop. Interactions submitted with StartSession run one at a time.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/okian/ginput/internal/adapters/canvas"
	"github.com/okian/ginput/internal/adapters/contour"
	jobqueue "github.com/okian/ginput/internal/adapters/mq/queue"
	"github.com/okian/ginput/internal/adapters/mq/worker"
	"github.com/okian/ginput/internal/blocking"
	"github.com/okian/ginput/internal/domain/dedupe"
	"github.com/okian/ginput/internal/domain/model"
	"github.com/okian/ginput/pkg/logger"
)

// Default service configuration constants.
const (
	defaultQueueSize    = 1024
	defaultJobQueueSize = 16
	defaultDedupeSize   = 10_000
	defaultWidth        = 640
	defaultHeight       = 480

	// subplot margins as fractions of the figure
	axesLeft   = 0.125
	axesBottom = 0.11
	axesRight  = 0.9
	axesTop    = 0.88

	circleSegments = 64
)

// ErrNotStarted is returned by interactions issued before Start.
var ErrNotStarted = errors.New("service not started")

// demoLevels are the radii of the concentric contours labelled in clabel mode.
var demoLevels = []float64{0.1, 0.2, 0.3, 0.4}

// Service implements the API dependencies for the figure.
type Service struct {
	mu sync.RWMutex

	// Core components
	canvas   *canvas.Canvas
	axes     *canvas.Axes
	contours *contour.Set
	deduper  dedupe.Deduper
	jobs     *jobqueue.InMemoryQueue[worker.Job]
	runner   *worker.InMemoryWorker
	cancel   context.CancelFunc

	// Configuration
	queueSize     int
	jobQueueSize  int
	dedupeSize    int
	width         float64
	height        float64
	finishButton  model.Button
	undoButton    model.Button
	inlineSpacing float64

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the capacity of the canvas event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithJobQueueSize sets how many sessions may wait to run.
func WithJobQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.jobQueueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithFigureSize sets the figure size in pixels.
func WithFigureSize(width, height float64) Option {
	return func(s *Service) {
		if width > 0 && height > 0 {
			s.width = width
			s.height = height
		}
	}
}

// WithButtons sets the mouse buttons that finish and undo an interaction.
func WithButtons(finish, undo model.Button) Option {
	return func(s *Service) {
		s.finishButton = finish
		s.undoButton = undo
	}
}

// WithInlineSpacing sets the gap left around inline contour labels.
func WithInlineSpacing(spacing float64) Option {
	return func(s *Service) {
		if spacing >= 0 {
			s.inlineSpacing = spacing
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:     defaultQueueSize,
		jobQueueSize:  defaultJobQueueSize,
		dedupeSize:    defaultDedupeSize,
		width:         defaultWidth,
		height:        defaultHeight,
		finishButton:  model.ButtonMiddle,
		undoButton:    model.ButtonRight,
		inlineSpacing: blocking.DefaultInlineSpacing,
	}

	for _, opt := range opts {
		opt(s)
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	return s
}

// Start creates the figure and starts the session runner.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.canvas = canvas.New(
		canvas.WithCapacity(s.queueSize),
		canvas.WithSize(s.width, s.height),
		canvas.WithLogger(s.logger.Named("canvas")),
	)
	axes, err := s.canvas.AddAxes(canvas.Rect{
		X0:     s.width * axesLeft,
		Y0:     s.height * axesBottom,
		Width:  s.width * (axesRight - axesLeft),
		Height: s.height * (axesTop - axesBottom),
	}, [2]float64{0, 1}, [2]float64{0, 1})
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	s.axes = axes
	s.contours = newDemoContours(s.canvas, s.axes)

	s.jobs = jobqueue.NewInMemoryQueue[worker.Job](jobqueue.WithCapacity(s.jobQueueSize))
	s.runner = worker.NewInMemoryWorker(s.jobs,
		worker.WithName("sessions"),
		worker.WithLogger(s.logger.Named("worker")),
		worker.WithOnFinish(s.sessionFinished),
	)

	// the runner outlives the caller's ctx; Stop cancels it
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.runner.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "figure service started",
		logger.Float64("width", s.width),
		logger.Float64("height", s.height),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service. A running interaction is
// cancelled and its cleanup runs before Stop returns.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel, runner, jobs, c := s.cancel, s.runner, s.jobs, s.canvas
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping figure service...")

	// the running job may still read the figure, so no lock is held here
	cancel()
	var errs []error
	if err := runner.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := jobs.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Close(); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info(ctx, "figure service stopped")
	return errors.Join(errs...)
}

// Canvas returns the figure canvas, nil before Start.
func (s *Service) Canvas() *canvas.Canvas {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canvas
}

// Axes returns the figure's plotting area, nil before Start.
func (s *Service) Axes() *canvas.Axes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.axes
}

// Contours returns the contour set labelled by clabel sessions.
func (s *Service) Contours() *contour.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contours
}

func (s *Service) figure() (*canvas.Canvas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.canvas, nil
}

func (s *Service) collectorOptions() []blocking.Option {
	return []blocking.Option{
		blocking.WithLogger(s.logger.Named("blocking")),
		blocking.WithFinishButton(s.finishButton),
		blocking.WithUndoButton(s.undoButton),
	}
}

// Ginput collects clicks on the figure and returns them in data coordinates.
func (s *Service) Ginput(ctx context.Context, opts ...blocking.CallOption) ([]model.Point, error) {
	c, err := s.figure()
	if err != nil {
		return nil, err
	}
	cc, err := blocking.NewClickCollector(c, s.collectorOptions()...)
	if err != nil {
		return nil, err
	}
	return cc.Collect(ctx, opts...)
}

// WaitForButtonPress blocks until a key or mouse button is pressed.
func (s *Service) WaitForButtonPress(ctx context.Context, opts ...blocking.CallOption) (blocking.Press, error) {
	c, err := s.figure()
	if err != nil {
		return blocking.PressUndetermined, err
	}
	d, err := blocking.NewKeyOrClickDetector(c, blocking.WithLogger(s.logger.Named("blocking")))
	if err != nil {
		return blocking.PressUndetermined, err
	}
	return d.Wait(ctx, opts...)
}

// Clabel lets the user place labels on cs by clicking near its contours.
func (s *Service) Clabel(ctx context.Context, cs blocking.ContourSet, inline bool, opts ...blocking.CallOption) error {
	if _, err := s.figure(); err != nil {
		return err
	}
	p, err := blocking.NewLabelPlacer(cs, s.collectorOptions()...)
	if err != nil {
		return err
	}
	return p.Place(ctx, inline, opts...)
}

// StartSession queues an interaction on the figure and returns its id.
func (s *Service) StartSession(ctx context.Context, req model.SessionRequest) (string, error) {
	if _, err := s.figure(); err != nil {
		return "", err
	}
	if !model.ValidMode(req.Mode) {
		return "", fmt.Errorf("%w: unknown mode %q", blocking.ErrInvalidArgument, req.Mode)
	}
	return s.runner.Submit(ctx, req.Mode, func(ctx context.Context) (any, error) {
		return s.Run(ctx, req)
	})
}

func (s *Service) sessionFinished(r worker.Result) {
	ctx := context.Background()
	if r.Status == worker.StatusFailed {
		s.logger.Warn(ctx, "session failed",
			logger.String("id", r.ID),
			logger.String("mode", r.Mode),
			logger.String("error", r.Err),
		)
		return
	}
	s.logger.Info(ctx, "session result",
		logger.String("id", r.ID),
		logger.String("mode", r.Mode),
		logger.Any("value", r.Value),
	)
}

// Session returns the state of a session started with StartSession.
func (s *Service) Session(id string) (any, bool) {
	s.mu.RLock()
	runner := s.runner
	s.mu.RUnlock()
	if runner == nil {
		return nil, false
	}
	return runner.Result(id)
}

// Run performs req synchronously and returns its mode-specific result:
// the clicked points, the press kind, or the placed labels.
func (s *Service) Run(ctx context.Context, req model.SessionRequest) (any, error) {
	opts := callOptions(req)
	switch req.Mode {
	case model.ModeGinput:
		return s.Ginput(ctx, append(opts, blocking.WithShowClicks(req.ShowClicks))...)
	case model.ModeWaitForButtonPress:
		press, err := s.WaitForButtonPress(ctx, opts...)
		return press.String(), err
	case model.ModeClabel:
		cs := s.Contours()
		if err := s.Clabel(ctx, cs, req.Inline, append(opts, blocking.WithInlineSpacing(s.inlineSpacing))...); err != nil {
			return nil, err
		}
		return cs.Labels(), nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", blocking.ErrInvalidArgument, req.Mode)
	}
}

// callOptions keeps the collector defaults for zero count and timeout.
func callOptions(req model.SessionRequest) []blocking.CallOption {
	var opts []blocking.CallOption
	if req.Count != 0 {
		opts = append(opts, blocking.WithCount(req.Count))
	}
	if req.Timeout != 0 {
		opts = append(opts, blocking.WithTimeout(req.Timeout))
	}
	return opts
}

// SeenAndRecord atomically checks if an event id was seen and records it if not.
// Returns true if the event was already seen, false if it was newly recorded.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	return s.deduper.SeenAndRecord(ctx, id)
}

// Unrecord removes an event ID from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// Enqueue posts an event to the figure. It returns false when the canvas
// queue is full or the service is not running.
func (s *Service) Enqueue(ctx context.Context, ev model.Event) bool { //nolint:gocritic // hugeParam: Event is passed by value for channel semantics
	c, err := s.figure()
	if err != nil {
		return false
	}
	s.logger.Debug(ctx, "received event",
		logger.String("id", ev.ID),
		logger.String("kind", string(ev.Kind)),
		logger.Float64("x", ev.X),
		logger.Float64("y", ev.Y),
	)
	return c.Post(ctx, ev)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":    s.started,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
		"width":      s.width,
		"height":     s.height,
	}

	if s.started {
		stats["queueLength"] = s.canvas.QueueLen()
		stats["subscriptions"] = s.canvas.Subscriptions()
		stats["draws"] = s.canvas.Draws()
		stats["markers"] = len(s.axes.Markers())
		stats["labels"] = len(s.contours.Labels())
		stats["seenEvents"] = s.deduper.Size()
		stats["pendingSessions"] = s.jobs.Len()

		sessions := make(map[string]int)
		for status, n := range s.runner.Counts() {
			sessions[string(status)] = n
		}
		stats["sessions"] = sessions
	}

	return stats
}

// newDemoContours builds concentric circles around the centre of the axes.
func newDemoContours(c model.Canvas, ax model.Axes) *contour.Set {
	cs := contour.New(c, ax, contour.WithFormat("%1.1f"))
	for _, r := range demoLevels {
		cs.AddLevel(r, circle(0.5, 0.5, r, circleSegments))
	}
	return cs
}

// circle returns a closed polygon with n segments.
func circle(cx, cy, r float64, n int) model.Path {
	p := make(model.Path, 0, n+1)
	for i := 0; i <= n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		p = append(p, model.Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)})
	}
	return p
}
