// Package playback turns a backend reply into output: the response text is
// published to whoever renders it and the speech audio is decoded and played.
package playback

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/teslashibe/go-vision-replica/pkg/audioio"
)

// ErrEmptySpeech is wrapped by DecodeError when the payload is empty.
var ErrEmptySpeech = errors.New("playback: empty speech payload")

// TextPublisher receives the response text.
type TextPublisher interface {
	PublishResponse(text string)
}

// TextPublisherFunc adapts a function to TextPublisher.
type TextPublisherFunc func(text string)

// PublishResponse calls f(text).
func (f TextPublisherFunc) PublishResponse(text string) { f(text) }

// DecodeError means the speech payload was not valid base64.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("playback: decode speech: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// PlayerError means the audio output refused the decoded buffer.
type PlayerError struct {
	Player string
	Err    error
}

func (e *PlayerError) Error() string {
	return fmt.Sprintf("playback [%s]: %v", e.Player, e.Err)
}
func (e *PlayerError) Unwrap() error { return e.Err }

// Controller publishes response text and plays speech.
type Controller struct {
	player    audioio.Player
	publisher TextPublisher
	logger    *slog.Logger
}

// New creates a playback controller. publisher may be nil.
func New(player audioio.Player, publisher TextPublisher, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		player:    player,
		publisher: publisher,
		logger:    logger.With("component", "playback"),
	}
}

// Play publishes text, then decodes speechB64 and starts playback. It
// returns once playback has started.
//
// The text is visible before the audio starts. A reply whose audio fails to
// decode still shows its text.
func (c *Controller) Play(ctx context.Context, text, speechB64 string) error {
	if c.publisher != nil {
		c.publisher.PublishResponse(text)
	}

	audio, err := Decode(speechB64)
	if err != nil {
		c.logger.Warn("speech decode failed", "error", err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.player.Play(ctx, audio); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &PlayerError{Player: c.player.Name(), Err: err}
	}
	c.logger.Debug("playback started", "size", humanize.Bytes(uint64(len(audio))))
	return nil
}

// Stop interrupts playback.
func (c *Controller) Stop() error {
	return c.player.Stop()
}

// Decode decodes a base64 speech payload. Standard padding is expected;
// unpadded and URL-safe encodings are accepted since some backends emit them.
func Decode(speechB64 string) ([]byte, error) {
	s := strings.TrimSpace(speechB64)
	if s == "" {
		return nil, &DecodeError{Err: ErrEmptySpeech}
	}

	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		out, err := enc.DecodeString(s)
		if err == nil {
			return out, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, &DecodeError{Err: firstErr}
}
