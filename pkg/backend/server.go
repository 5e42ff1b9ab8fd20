package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-vision-replica/pkg/formdata"
)

// bodyLimit leaves room for a full-size image plus the recording.
const bodyLimit = 32 * 1024 * 1024

// Welcome is the body of GET /.
var Welcome = fiber.Map{"Server Running": "Welcome to your favourite server!"}

// Reply is the wire response of POST /process.
type Reply struct {
	ResponseText string `json:"response_text"`
	SpeechMP3    string `json:"speech_mp3"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string

	// MaxImageBytes rejects larger images. Zero uses DefaultMaxImageBytes.
	MaxImageBytes int64

	// Registry receives request metrics and backs /metrics. Nil disables both.
	Registry *prometheus.Registry

	AccessLog bool
	Logger    *slog.Logger
}

// Server answers capture uploads.
type Server struct {
	app      *fiber.App
	addr     string
	maxImage int64
	inf      Inferencer
	logger   *slog.Logger

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewServer creates the HTTP service around inf.
func NewServer(cfg ServerConfig, inf Inferencer) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}

	var reg prometheus.Registerer
	if cfg.Registry != nil {
		reg = cfg.Registry
	}
	factory := promauto.With(reg)

	s := &Server{
		addr:     cfg.Addr,
		maxImage: cfg.MaxImageBytes,
		inf:      inf,
		logger:   cfg.Logger.With("component", "backend"),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vision_backend",
			Name:      "requests_total",
			Help:      "Process requests by result",
		}, []string{"result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vision_backend",
			Name:      "step_duration_seconds",
			Help:      "Model step latency",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"step"}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Vision Backend",
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
	})
	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(logger.New())
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(Welcome)
	})
	app.Post("/process", s.handleProcess)
	if cfg.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	s.app = app
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("backend listening", "addr", s.addr)
		errc <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.app.ShutdownWithTimeout(10 * time.Second)
	}
}

func (s *Server) handleProcess(c *fiber.Ctx) error {
	audioHdr, audioErr := c.FormFile(formdata.AudioField)
	imageHdr, imageErr := c.FormFile(formdata.ImageField)
	if audioErr != nil || imageErr != nil {
		return s.reject(c, fiber.StatusBadRequest, "missing_file", ErrMissingFile, "Audio or image file is missing")
	}
	if imageHdr.Size > s.maxImage {
		return s.reject(c, fiber.StatusBadRequest, "image_too_large", ErrImageTooLarge, "Image file size exceeds 10 MB")
	}

	audio, err := readPart(audioHdr)
	if err != nil {
		return s.reject(c, fiber.StatusBadRequest, "bad_part", err, err.Error())
	}
	image, err := readPart(imageHdr)
	if err != nil {
		return s.reject(c, fiber.StatusBadRequest, "bad_part", err, err.Error())
	}
	s.logger.Info("request received",
		"audio", humanize.Bytes(uint64(len(audio))),
		"image", humanize.Bytes(uint64(len(image))),
	)

	ctx := c.UserContext()

	var question string
	err = s.timed(stepTranscribe, func() (err error) {
		question, err = s.inf.Transcribe(ctx, audio, audioHdr.Filename)
		return err
	})
	if err != nil {
		return s.upstream(c, err)
	}
	s.logger.Info("transcript", "text", question)

	var answer string
	err = s.timed(stepDescribe, func() (err error) {
		answer, err = s.inf.Describe(ctx, question, image)
		return err
	})
	if err != nil {
		return s.upstream(c, err)
	}
	s.logger.Info("response", "text", answer)

	var speech []byte
	err = s.timed(stepSpeak, func() (err error) {
		speech, err = s.inf.Speak(ctx, answer)
		return err
	})
	if err != nil {
		return s.upstream(c, err)
	}

	s.requests.WithLabelValues("ok").Inc()
	return c.JSON(Reply{
		ResponseText: answer,
		SpeechMP3:    base64.StdEncoding.EncodeToString(speech),
	})
}

func (s *Server) timed(step string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.duration.WithLabelValues(step).Observe(time.Since(start).Seconds())
	return err
}

func (s *Server) reject(c *fiber.Ctx, code int, result string, err error, msg string) error {
	s.requests.WithLabelValues(result).Inc()
	s.logger.Warn("request rejected", "status", code, "error", err)
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

func (s *Server) upstream(c *fiber.Ctx, err error) error {
	s.requests.WithLabelValues("upstream_error").Inc()
	s.logger.Error("model request failed", "error", err)
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
