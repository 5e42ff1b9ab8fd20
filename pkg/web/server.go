// Package web serves the dashboard: cycle controls, camera controls, a
// live status websocket and Prometheus metrics.
package web

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-vision-replica/pkg/cycle"
	"github.com/teslashibe/go-vision-replica/pkg/hub"
)

//go:embed index.html
var indexHTML []byte

// Config holds server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Gatherer backs /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer

	// AccessLog enables per-request logging.
	AccessLog bool

	Logger *slog.Logger
}

// Server is the web dashboard server.
type Server struct {
	app    *fiber.App
	addr   string
	ctrl   *cycle.Controller
	host   *cycle.Host
	logger *slog.Logger

	// Hub for websocket broadcast
	statusHub *hub.Hub
}

// NewServer creates a new dashboard server around ctrl.
func NewServer(cfg Config, ctrl *cycle.Controller) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	log := cfg.Logger.With("component", "web")

	s := &Server{
		addr:      cfg.Addr,
		ctrl:      ctrl,
		host:      ctrl.Host(),
		logger:    log,
		statusHub: hub.New("status", cfg.Logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Vision Replica",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency}\n",
		}))
	}

	app.Get("/", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.Send(indexHTML)
	})

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/cycle/start", s.handleStart)
	api.Post("/cycle/stop", s.handleStop)
	api.Post("/cycle/cancel", s.handleCancel)
	api.Get("/camera", s.handleGetCamera)
	api.Patch("/camera", s.handleUpdateCamera)
	api.Post("/camera/switch", s.handleSwitchCamera)

	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is done, forwarding host snapshots to websocket
// clients.
func (s *Server) Run(ctx context.Context) error {
	go s.statusHub.Run(ctx)
	go s.forward(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", s.addr)
		errc <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil {
			s.logger.Warn("dashboard shutdown", "error", err)
		}
		return nil
	}
}

// forward pushes every host snapshot to the status hub.
func (s *Server) forward(ctx context.Context) {
	snaps, unsubscribe := s.host.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if err := s.statusHub.BroadcastJSON(snap); err != nil {
				s.logger.Warn("encode snapshot", "error", err)
			}
		}
	}
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	hub.NewClient(s.statusHub, c).Run()
}
