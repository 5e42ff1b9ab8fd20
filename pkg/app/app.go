// Package app wires the capture cycle to real devices, the dashboard and
// the status line, and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-vision-replica/pkg/audioio"
	"github.com/teslashibe/go-vision-replica/pkg/camera"
	"github.com/teslashibe/go-vision-replica/pkg/camera/opencv"
	"github.com/teslashibe/go-vision-replica/pkg/capture"
	"github.com/teslashibe/go-vision-replica/pkg/cycle"
	"github.com/teslashibe/go-vision-replica/pkg/playback"
	"github.com/teslashibe/go-vision-replica/pkg/status"
	"github.com/teslashibe/go-vision-replica/pkg/tts"
	"github.com/teslashibe/go-vision-replica/pkg/upload"
	"github.com/teslashibe/go-vision-replica/pkg/web"
)

// App is the client application orchestrator.
type App struct {
	config Config
	logger *slog.Logger

	registry *prometheus.Registry

	recorder audioio.Recorder
	player   audioio.Player
	camera   *camera.Manager
	uploader *upload.Client
	speech   tts.Provider

	host *cycle.Host
	ctrl *cycle.Controller

	webServer *web.Server
	animator  *status.Animator
	announcer *status.Announcer
}

// New creates the application. Call Init before Run.
func New(cfg Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{config: cfg, logger: logger}, nil
}

// Init builds every component. Devices that fail to open are reported and
// retried when a cycle needs them.
func (a *App) Init(ctx context.Context) error {
	s := a.config.Settings
	fmt.Println("👁️  Vision Replica")
	fmt.Println("==================")
	fmt.Printf("Endpoint: %s\n", s.Endpoint)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	audioCfg := s.Audio
	if a.config.Mock {
		audioCfg.Backend = audioio.BackendMock
	}

	var err error
	fmt.Print("🎤 Opening microphone... ")
	if a.recorder, err = audioio.NewRecorder(audioCfg, a.logger); err != nil {
		fmt.Println("❌")
		return fmt.Errorf("recorder: %w", err)
	}
	fmt.Println("✅")

	if a.player, err = audioio.NewPlayer(audioCfg, a.logger); err != nil {
		return fmt.Errorf("player: %w", err)
	}

	var device camera.Device = opencv.New()
	if a.config.Mock {
		device = camera.NewMockDevice()
	}
	a.camera = camera.NewManager(device, s.Camera, a.logger)
	fmt.Printf("📷 Opening %s camera... ", a.camera.Facing())
	if err := a.camera.Start(ctx); err != nil {
		fmt.Printf("⚠️  %v\n", err)
	} else {
		fmt.Println("✅")
	}

	a.uploader, err = upload.NewClient(
		upload.WithEndpoint(s.Endpoint),
		upload.WithTimeout(s.UploadTimeout),
		upload.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("upload client: %w", err)
	}
	fmt.Print("🌐 Checking backend... ")
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := a.uploader.Health(healthCtx); err != nil {
		fmt.Printf("⚠️  %v\n", err)
	} else {
		fmt.Println("✅")
	}
	cancel()

	a.host = cycle.NewHost()
	a.ctrl = cycle.NewController(
		capture.NewSession(a.recorder, a.camera, s.RecordingDir, a.logger),
		a.uploader,
		playback.New(a.player, a.host, a.logger),
		a.host,
		cycle.WithLogger(a.logger),
		cycle.WithMetrics(cycle.NewMetrics(a.registry)),
	)

	if a.config.Headless {
		return nil
	}

	a.animator = status.NewAnimator(a.host, s.Status.Interval, a.logger)
	if a.config.announce() {
		if err := a.initSpeech(ctx); err != nil {
			fmt.Printf("⚠️  Status speech disabled: %v\n", err)
		}
	}

	a.webServer = web.NewServer(web.Config{
		Addr:      s.WebAddr(),
		Gatherer:  a.registry,
		AccessLog: s.Web.AccessLog,
		Logger:    a.logger,
	}, a.ctrl)
	return nil
}

// initSpeech prepares the spoken waiting phrase so the first cycle does not
// wait on synthesis.
func (a *App) initSpeech(ctx context.Context) error {
	provider, err := tts.NewOpenAI(
		tts.WithAPIKey(a.config.Settings.OpenAIKey),
		tts.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	cache := tts.NewCache(provider, 8)

	warmCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	fmt.Print("🗣️  Preparing status speech... ")
	if err := cache.Warm(warmCtx, status.WaitingPhrase); err != nil {
		fmt.Printf("⚠️  %v\n", err)
	} else {
		fmt.Println("✅")
	}

	a.speech = cache
	a.announcer = status.NewAnnouncer(a.host, cache, a.player, a.logger)
	return nil
}

// Controller returns the cycle controller.
func (a *App) Controller() *cycle.Controller {
	return a.ctrl
}

// Run serves the dashboard and status tasks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	fmt.Printf("\n🌐 Dashboard on http://localhost%s\n", a.config.Settings.WebAddr())
	fmt.Println("   (Ctrl+C to exit)")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.webServer.Run(ctx) })
	g.Go(func() error { return a.animator.Run(ctx) })
	if a.announcer != nil {
		g.Go(func() error { return a.announcer.Run(ctx) })
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Once records for d, runs one cycle and returns its outcome after the
// spoken reply has played out or ctx is done.
func (a *App) Once(ctx context.Context, d time.Duration) (*cycle.Outcome, error) {
	fmt.Printf("🎙️  Recording for %s...\n", d)
	out, err := a.ctrl.Run(ctx, d)
	if err != nil {
		return nil, err
	}
	if err := a.player.Wait(ctx); err != nil {
		a.logger.Warn("reply playback cut short", "error", err)
	}
	return out, nil
}

// Shutdown releases every component.
func (a *App) Shutdown() {
	fmt.Println("\n👋 Goodbye!")

	if a.ctrl != nil {
		if err := a.ctrl.Close(); err != nil {
			a.logger.Warn("close controller", "error", err)
		}
	}
	if a.camera != nil {
		_ = a.camera.Stop()
	}
	if a.recorder != nil {
		_ = a.recorder.Close()
	}
	if a.player != nil {
		_ = a.player.Close()
	}
	if a.speech != nil {
		_ = a.speech.Close()
	}
	if a.uploader != nil {
		_ = a.uploader.Close()
	}
}
