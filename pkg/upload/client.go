// Package upload sends one captured form to the inference backend and
// parses its reply.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/teslashibe/go-vision-replica/pkg/formdata"
)

// Uploader is implemented by Client and Mock.
type Uploader interface {
	Upload(ctx context.Context, body []byte, boundary string) (*Response, error)
	Health(ctx context.Context) error
}

// Response is a parsed backend reply.
type Response struct {
	// Text is the assistant's answer.
	Text string

	// SpeechMP3 is the base64-encoded MP3 rendering of Text. Decoding is
	// left to playback so a bad payload is reported there.
	SpeechMP3 string

	BytesSent     int
	BytesReceived int
	LatencyMs     int64
}

// wireResponse uses pointers so a missing field and a null field are both
// distinguishable from an empty string.
type wireResponse struct {
	ResponseText *json.RawMessage `json:"response_text"`
	SpeechMP3    *json.RawMessage `json:"speech_mp3"`
}

// Client is the HTTP upload client.
type Client struct {
	endpoint string
	config   *Config
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a new upload client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("upload: invalid endpoint: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		endpoint: cfg.Endpoint,
		config:   cfg,
		http:     cfg.httpClient(),
		logger:   cfg.Logger.With("component", "upload.client"),
	}, nil
}

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Upload POSTs body with the multipart content type for boundary and
// returns the parsed reply. It never retries.
func (c *Client) Upload(ctx context.Context, body []byte, boundary string) (*Response, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upload: create request: %w", err)
	}
	req.Header.Set("Content-Type", formdata.ContentType(boundary))
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("uploading", "size", humanize.Bytes(uint64(len(body))))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, networkError(ctx, "send", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseBytes+1))
	if err != nil {
		return nil, networkError(ctx, "read", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, raw)
	}
	if int64(len(raw)) > c.config.MaxResponseBytes {
		return nil, &ParseError{Err: errTooLarge}
	}

	out, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}
	out.BytesSent = len(body)
	out.BytesReceived = len(raw)
	out.LatencyMs = time.Since(start).Milliseconds()

	c.logger.Info("upload complete",
		"sent", humanize.Bytes(uint64(out.BytesSent)),
		"received", humanize.Bytes(uint64(out.BytesReceived)),
		"latency_ms", out.LatencyMs)
	return out, nil
}

// Health GETs the endpoint's root, which the backend answers with a
// welcome message.
func (c *Client) Health(ctx context.Context) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("upload: invalid endpoint: %w", err)
	}
	u.Path, u.RawQuery = "/", ""

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("upload: create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return networkError(ctx, "health", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return parseAPIError(resp.StatusCode, raw)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func parseResponse(raw []byte) (*Response, error) {
	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &ParseError{Err: err}
	}

	text, err := stringField("response_text", wire.ResponseText)
	if err != nil {
		return nil, err
	}
	speech, err := stringField("speech_mp3", wire.SpeechMP3)
	if err != nil {
		return nil, err
	}
	return &Response{Text: text, SpeechMP3: speech}, nil
}

func stringField(name string, raw *json.RawMessage) (string, error) {
	if raw == nil || string(*raw) == "null" {
		return "", &ParseError{Field: name, Err: errMissing}
	}
	var s string
	if err := json.Unmarshal(*raw, &s); err != nil {
		return "", &ParseError{Field: name, Err: errNotText}
	}
	return s, nil
}

func parseAPIError(status int, body []byte) error {
	message := strings.TrimSpace(string(body))

	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		message = errResp.Error
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: message}
}

func networkError(ctx context.Context, op string, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		timeout = true
	}
	return &NetworkError{Op: op, Timeout: timeout, Err: err}
}

var _ Uploader = (*Client)(nil)
