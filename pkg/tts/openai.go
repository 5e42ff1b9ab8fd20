package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teslashibe/go-vision-replica/internal/httpc"
)

const providerOpenAI = "openai"

// OpenAI voice options
const (
	VoiceAlloy   = string(openai.VoiceAlloy)   // Neutral voice
	VoiceEcho    = string(openai.VoiceEcho)    // Male voice
	VoiceFable   = string(openai.VoiceFable)   // British accent
	VoiceOnyx    = string(openai.VoiceOnyx)    // Deep male voice
	VoiceNova    = string(openai.VoiceNova)    // Female voice
	VoiceShimmer = string(openai.VoiceShimmer) // Soft female voice
)

// OpenAI model options
const (
	ModelTTS1   = string(openai.TTSModel1)   // Standard quality, faster
	ModelTTS1HD = string(openai.TTSModel1HD) // Higher quality, slower
)

// OpenAI implements Provider with the OpenAI speech endpoint.
type OpenAI struct {
	config *Config
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAI creates a new OpenAI TTS provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = httpc.NewClient(cfg.Timeout)

	return &OpenAI{
		config: cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: cfg.Logger.With("component", "tts.openai"),
	}, nil
}

// Synthesize converts text to audio, returning the complete audio buffer.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	start := time.Now()

	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.config.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(o.config.Voice),
		ResponseFormat: openai.SpeechResponseFormat(o.config.Format),
		Speed:          o.config.Speed,
	}

	var (
		audio   []byte
		lastErr error
	)
	for attempt := 0; attempt <= o.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.config.RetryDelay * time.Duration(attempt)):
			}
			o.logger.Warn("retrying speech request", "attempt", attempt+1, "error", lastErr)
		}

		audio, lastErr = o.fetch(ctx, req)
		if lastErr == nil {
			break
		}
		var apiErr *APIError
		if errors.As(lastErr, &apiErr) && !apiErr.IsRetryable() {
			return nil, lastErr
		}
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	latency := time.Since(start).Milliseconds()
	o.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", o.config.Voice,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    o.config.Format,
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

func (o *OpenAI) fetch(ctx context.Context, req openai.CreateSpeechRequest) ([]byte, error) {
	resp, err := o.client.CreateSpeech(ctx, req)
	if err != nil {
		return nil, o.convertError(err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, WrapError(providerOpenAI, fmt.Errorf("read response: %w", err))
	}
	return audio, nil
}

// Health checks API connectivity.
func (o *OpenAI) Health(ctx context.Context) error {
	if _, err := o.client.ListModels(ctx); err != nil {
		return o.convertError(err)
	}
	return nil
}

// Close releases resources.
func (o *OpenAI) Close() error {
	return nil
}

// Voice returns the configured voice.
func (o *OpenAI) Voice() string {
	return o.config.Voice
}

func (o *OpenAI) convertError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Provider: providerOpenAI}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error(), Provider: providerOpenAI}
	}
	return WrapError(providerOpenAI, err)
}

// Verify OpenAI implements Provider at compile time.
var _ Provider = (*OpenAI)(nil)
