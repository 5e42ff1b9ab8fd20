package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	openai "github.com/sashabaranov/go-openai"

	"github.com/teslashibe/go-vision-replica/internal/httpc"
)

const (
	stepTranscribe = "transcribe"
	stepDescribe   = "describe"
	stepSpeak      = "speak"
)

// OpenAI implements Inferencer with the OpenAI audio and chat endpoints.
type OpenAI struct {
	config *Config
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAI creates the OpenAI-backed pipeline.
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
		logger: cfg.Logger.With("component", "backend.openai"),
	}, nil
}

// Transcribe sends the recording to the transcription model.
func (o *OpenAI) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	start := time.Now()
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.config.TranscribeModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", o.convertError(stepTranscribe, err)
	}

	o.logger.Debug("transcribed",
		"audio", humanize.Bytes(uint64(len(audio))),
		"chars", len(resp.Text),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return resp.Text, nil
}

// Describe asks the vision model about the image.
func (o *OpenAI) Describe(ctx context.Context, question string, image []byte) (string, error) {
	start := time.Now()
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.config.VisionModel,
		MaxTokens: o.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: Prompt(question)},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
			},
		}},
	})
	if err != nil {
		return "", o.convertError(stepDescribe, err)
	}
	if len(resp.Choices) == 0 {
		return "", WrapError(stepDescribe, ErrEmptyReply)
	}

	text := resp.Choices[0].Message.Content
	o.logger.Debug("described",
		"image", humanize.Bytes(uint64(len(image))),
		"tokens", resp.Usage.TotalTokens,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// Speak synthesizes text with the speech model.
func (o *OpenAI) Speak(ctx context.Context, text string) ([]byte, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.config.SpeechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(o.config.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, o.convertError(stepSpeak, err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, WrapError(stepSpeak, fmt.Errorf("read response: %w", err))
	}
	return audio, nil
}

// Health checks API connectivity.
func (o *OpenAI) Health(ctx context.Context) error {
	if _, err := o.client.ListModels(ctx); err != nil {
		return o.convertError("health", err)
	}
	return nil
}

func (o *OpenAI) convertError(step string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Step: step}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error(), Step: step}
	}
	return WrapError(step, err)
}

var _ Inferencer = (*OpenAI)(nil)
