// Package cycle runs the capture cycle: record a clip, take a photo, upload
// both, then show and speak the reply. The Host holds the observable state;
// the Controller drives it.
package cycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/teslashibe/go-vision-replica/pkg/camera"
	"github.com/teslashibe/go-vision-replica/pkg/capture"
	"github.com/teslashibe/go-vision-replica/pkg/formdata"
	"github.com/teslashibe/go-vision-replica/pkg/playback"
	"github.com/teslashibe/go-vision-replica/pkg/upload"
)

// maxBoundaryAttempts bounds how often a colliding boundary is replaced.
const maxBoundaryAttempts = 3

// Outcome is the result of a successful cycle.
type Outcome struct {
	Cycle     uint64
	Text      string
	BytesSent int
	Latency   time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithBoundary overrides the multipart boundary generator.
func WithBoundary(fn func() string) Option {
	return func(c *Controller) { c.newBoundary = fn }
}

// Controller is the cycle state machine. At most one cycle is in flight;
// Start while one is running returns ErrCycleInProgress.
type Controller struct {
	session     *capture.Session
	uploader    upload.Uploader
	playback    *playback.Controller
	host        *Host
	metrics     *Metrics
	logger      *slog.Logger
	newBoundary func() string

	baseCtx   context.Context
	baseClose context.CancelFunc

	mu         sync.Mutex
	cycleCtx   context.Context
	cancel     context.CancelFunc
	running    bool
	closed     bool
	stageStart time.Time
	stage      State
}

// NewController wires the cycle steps together.
func NewController(session *capture.Session, uploader upload.Uploader, pb *playback.Controller, host *Host, opts ...Option) *Controller {
	c := &Controller{
		session:     session,
		uploader:    uploader,
		playback:    pb,
		host:        host,
		logger:      slog.Default(),
		newBoundary: formdata.NewBoundary,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	c.logger = c.logger.With("component", "cycle")
	c.baseCtx, c.baseClose = context.WithCancel(context.Background())

	host.SetFacing(session.Camera().Facing())
	return c
}

// Host returns the state host.
func (c *Controller) Host() *Host {
	return c.host
}

// Camera returns the camera manager.
func (c *Controller) Camera() *camera.Manager {
	return c.session.Camera()
}

// Start begins a cycle by recording audio.
func (c *Controller) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	id, err := c.host.begin()
	if err != nil {
		return err
	}

	c.cycleCtx, c.cancel = context.WithCancel(c.baseCtx)
	c.stage, c.stageStart = StateRecording, time.Now()
	c.metrics.CyclesActive.Set(1)

	if err := c.session.StartRecording(c.cycleCtx); err != nil {
		return c.endLocked(c.fail(StateRecording, err))
	}
	c.logger.Info("cycle started", "cycle", id)
	return nil
}

// Stop ends the recording and runs the rest of the cycle: capture,
// encode, upload and playback. It returns once playback has started or
// the cycle failed; the state is Idle either way. Canceling ctx cancels
// the cycle.
func (c *Controller) Stop(ctx context.Context) (*Outcome, error) {
	c.mu.Lock()
	if c.running || c.host.State() != StateRecording {
		c.mu.Unlock()
		return nil, ErrNotRecording
	}
	c.running = true
	cycleCtx, cancel := c.cycleCtx, c.cancel
	c.mu.Unlock()

	release := context.AfterFunc(ctx, cancel)
	defer release()

	out, cerr := c.run(cycleCtx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	if cerr != nil {
		return nil, c.endLocked(cerr)
	}
	c.endLocked(nil)
	return out, nil
}

// Run records for d and then runs the rest of the cycle.
func (c *Controller) Run(ctx context.Context, d time.Duration) (*Outcome, error) {
	if err := c.Start(ctx); err != nil {
		return nil, err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return c.Stop(ctx)
	case <-ctx.Done():
		_ = c.Cancel()
		return nil, ctx.Err()
	}
}

func (c *Controller) run(ctx context.Context) (*Outcome, *Error) {
	id := c.host.Snapshot().Cycle

	c.enter(StateCapturing)
	result, err := c.session.StopRecording(ctx)
	if err != nil {
		return nil, c.fail(StateCapturing, err)
	}

	body, boundary, err := c.encode(result)
	if err != nil {
		return nil, c.fail(StateCapturing, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, c.fail(StateCapturing, err)
	}

	c.enter(StateUploading)
	c.metrics.UploadBytes.Observe(float64(len(body)))
	resp, err := c.uploader.Upload(ctx, body, boundary)
	if err != nil {
		return nil, c.fail(StateUploading, err)
	}
	c.metrics.ResponseBytes.Observe(float64(resp.BytesReceived))
	c.metrics.UploadLatency.Observe(float64(resp.LatencyMs) / 1000)

	c.enter(StatePlaying)
	if err := c.playback.Play(ctx, resp.Text, resp.SpeechMP3); err != nil {
		return nil, c.fail(StatePlaying, err)
	}

	c.logger.Info("cycle complete",
		"cycle", id,
		"sent", humanize.Bytes(uint64(len(body))),
		"latency_ms", resp.LatencyMs)

	return &Outcome{
		Cycle:     id,
		Text:      resp.Text,
		BytesSent: len(body),
		Latency:   time.Duration(resp.LatencyMs) * time.Millisecond,
	}, nil
}

func (c *Controller) encode(result *capture.Result) ([]byte, string, error) {
	var err error
	for i := 0; i < maxBoundaryAttempts; i++ {
		boundary := c.newBoundary()
		var body []byte
		body, err = formdata.Encode(result.Audio, result.Image, boundary)
		if err == nil {
			return body, boundary, nil
		}
		if !errors.Is(err, formdata.ErrBoundaryCollision) {
			break
		}
	}
	return nil, "", err
}

// Cancel aborts the cycle in flight. A recording is discarded immediately;
// later steps stop at their next suspension point.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.host.State().Busy() {
		return ErrNoCycle
	}
	c.cancel()
	if c.running {
		return nil
	}

	c.session.Abort()
	c.endLocked(c.fail(StateRecording, context.Canceled))
	return nil
}

// SwitchCamera toggles the camera. It is refused while a photo is being
// taken.
func (c *Controller) SwitchCamera(ctx context.Context) (camera.Facing, error) {
	st := c.host.State()
	if st == StateCapturing {
		c.metrics.CameraSwitches.WithLabelValues("busy").Inc()
		return c.session.Camera().Facing(), camera.ErrBusy
	}

	facing, err := c.session.SwitchCamera(ctx)
	if err != nil {
		c.metrics.CameraSwitches.WithLabelValues("error").Inc()
		c.logger.Warn("camera switch failed", "error", err)
		return facing, err
	}
	c.metrics.CameraSwitches.WithLabelValues("ok").Inc()
	c.host.SetFacing(facing)
	return facing, nil
}

// Close cancels any cycle and refuses new ones. Devices stay with their
// owner.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	_ = c.Cancel()
	c.baseClose()
	return nil
}

// enter records the time spent in the previous stage and publishes the new one.
func (c *Controller) enter(next State) {
	c.mu.Lock()
	c.observeStageLocked()
	c.stage, c.stageStart = next, time.Now()
	c.mu.Unlock()

	c.host.transition(next)
}

func (c *Controller) observeStageLocked() {
	if c.stage != "" {
		c.metrics.StageDuration.WithLabelValues(string(c.stage)).Observe(time.Since(c.stageStart).Seconds())
	}
}

func (c *Controller) fail(stage State, err error) *Error {
	return &Error{Kind: classify(stage, err), Stage: stage, Err: err}
}

// endLocked returns the host to Idle and releases the cycle context.
// Caller holds c.mu. It returns cerr as an error, or nil.
func (c *Controller) endLocked(cerr *Error) error {
	c.observeStageLocked()
	c.stage = ""
	if c.cancel != nil {
		c.cancel()
		c.cancel, c.cycleCtx = nil, nil
	}
	c.metrics.CyclesActive.Set(0)

	c.host.finish(cerr)
	if cerr == nil {
		c.metrics.CyclesTotal.WithLabelValues("success").Inc()
		return nil
	}

	c.metrics.CyclesTotal.WithLabelValues(string(cerr.Kind)).Inc()
	if cerr.Kind == KindCanceled {
		c.logger.Info("cycle canceled", "stage", cerr.Stage)
	} else {
		c.logger.Error("cycle failed", "kind", cerr.Kind, "stage", cerr.Stage, "error", cerr.Err)
	}
	return cerr
}
