package upload

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-vision-replica/internal/httpc"
)

// DefaultEndpoint is the hosted inference backend.
const DefaultEndpoint = "https://chatgpt-vision-replica-production.up.railway.app/process"

// Config holds upload client configuration.
type Config struct {
	// Endpoint is the full URL the form is POSTed to.
	Endpoint string

	// Timeout bounds one upload, including reading the response.
	Timeout time.Duration

	// MaxResponseBytes caps the response body. The speech payload is base64
	// MP3, so a few megabytes is plenty.
	MaxResponseBytes int64

	// HTTPClient overrides the default client. Its Timeout is left alone.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithEndpoint sets the upload URL.
func WithEndpoint(url string) Option {
	return func(c *Config) { c.Endpoint = url }
}

// WithTimeout sets the per-upload timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithMaxResponseBytes sets the response size cap.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Config) { c.MaxResponseBytes = n }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the defaults for the hosted backend.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:         DefaultEndpoint,
		Timeout:          60 * time.Second,
		MaxResponseBytes: 16 << 20,
		Logger:           slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrNoEndpoint
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

func (c *Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	// Deadlines come from the per-request context.
	return httpc.NewClient(0)
}
