package backend

import (
	"log/slog"
	"time"
)

// Defaults matching the reference service.
const (
	DefaultTranscribeModel = "whisper-1"
	DefaultVisionModel     = "gpt-4o"
	DefaultSpeechModel     = "tts-1"
	DefaultVoice           = "alloy"
	DefaultMaxTokens       = 50
	DefaultMaxImageBytes   = 10 * 1024 * 1024
)

// Config holds the inference pipeline configuration.
type Config struct {
	// Connection
	BaseURL string // API base URL, empty for the OpenAI default
	APIKey  string

	// Models
	TranscribeModel string
	VisionModel     string
	SpeechModel     string
	Voice           string

	// MaxTokens caps the vision reply.
	MaxTokens int

	Timeout time.Duration

	Logger *slog.Logger
}

// Option is a functional option for configuring the pipeline.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithVisionModel sets the vision model.
func WithVisionModel(model string) Option {
	return func(c *Config) { c.VisionModel = model }
}

// WithVoice sets the speech voice.
func WithVoice(voice string) Option {
	return func(c *Config) { c.Voice = voice }
}

// WithMaxTokens sets the reply token cap.
func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the reference service settings.
func DefaultConfig() *Config {
	return &Config{
		TranscribeModel: DefaultTranscribeModel,
		VisionModel:     DefaultVisionModel,
		SpeechModel:     DefaultSpeechModel,
		Voice:           DefaultVoice,
		MaxTokens:       DefaultMaxTokens,
		Timeout:         60 * time.Second,
		Logger:          slog.Default(),
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
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	if c.TranscribeModel == "" || c.VisionModel == "" || c.SpeechModel == "" {
		return ErrNoModel
	}
	return nil
}
