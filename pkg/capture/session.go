// Package capture owns the microphone and camera for one cycle: it records
// a clip to a fixed file and then takes a still.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/teslashibe/go-vision-replica/pkg/audioio"
	"github.com/teslashibe/go-vision-replica/pkg/camera"
	"github.com/teslashibe/go-vision-replica/pkg/formdata"
)

var (
	// ErrAlreadyRecording is returned by StartRecording while a clip is being recorded.
	ErrAlreadyRecording = errors.New("capture: already recording")

	// ErrNotRecording is returned by StopRecording when nothing is being recorded.
	ErrNotRecording = errors.New("capture: not recording")

	// ErrEmptyRecording is returned when the finished clip has no bytes.
	ErrEmptyRecording = errors.New("capture: empty recording")
)

// Result holds one cycle's payloads.
type Result struct {
	Audio []byte
	Image []byte
}

// Session records audio and captures stills. A Session serves one cycle at
// a time; the cycle controller enforces that.
type Session struct {
	recorder audioio.Recorder
	camera   *camera.Manager
	path     string
	logger   *slog.Logger

	mu        sync.Mutex
	recording bool
}

// NewSession creates a capture session writing clips to
// dir/recording.m4a. An empty dir means the OS temp directory.
func NewSession(recorder audioio.Recorder, cam *camera.Manager, dir string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = os.TempDir()
	}
	return &Session{
		recorder: recorder,
		camera:   cam,
		path:     filepath.Join(dir, formdata.AudioFilename),
		logger:   logger.With("component", "capture"),
	}
}

// Path returns the recording file path.
func (s *Session) Path() string {
	return s.path
}

// StartRecording begins writing microphone input to the recording file.
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording {
		return ErrAlreadyRecording
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("capture: recording dir: %w", err)
	}
	if err := s.recorder.Start(ctx, s.path); err != nil {
		s.logger.Error("recording failed to start", "backend", s.recorder.Name(), "error", err)
		return err
	}
	s.recording = true

	settings := s.recorder.Settings()
	s.logger.Info("recording started",
		"path", s.path,
		"codec", settings.Codec,
		"sample_rate", settings.SampleRate,
		"channels", settings.Channels)
	return nil
}

// Recording reports whether a clip is being recorded.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// StopRecording halts the recorder, reads the finished clip and captures a
// still. Both payloads are populated on success.
func (s *Session) StopRecording(ctx context.Context) (*Result, error) {
	audio, err := s.finishRecording()
	if err != nil {
		return nil, err
	}

	image, err := s.CapturePhoto(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Audio: audio, Image: image}, nil
}

func (s *Session) finishRecording() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return nil, ErrNotRecording
	}
	s.recording = false

	if err := s.recorder.Stop(); err != nil {
		return nil, err
	}

	audio, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("capture: read recording: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyRecording
	}
	s.logger.Info("recording stopped", "size", humanize.Bytes(uint64(len(audio))))
	return audio, nil
}

// Abort stops an in-flight recording and discards it.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return
	}
	s.recording = false
	if err := s.recorder.Stop(); err != nil && !errors.Is(err, audioio.ErrNotRecording) {
		s.logger.Warn("abort recording", "error", err)
	}
	_ = os.Remove(s.path)
}

// CapturePhoto returns one JPEG still from the active camera.
// A camera that failed to open earlier is retried first.
func (s *Session) CapturePhoto(ctx context.Context) ([]byte, error) {
	if err := s.camera.Start(ctx); err != nil {
		s.logger.Error("camera unavailable", "facing", s.camera.Facing(), "error", err)
		return nil, err
	}
	image, err := s.camera.Capture(ctx)
	if err != nil {
		s.logger.Error("photo capture failed", "facing", s.camera.Facing(), "error", err)
		return nil, err
	}
	s.logger.Info("photo captured", "facing", s.camera.Facing(), "size", humanize.Bytes(uint64(len(image))))
	return image, nil
}

// SwitchCamera toggles between the back and front cameras.
func (s *Session) SwitchCamera(ctx context.Context) (camera.Facing, error) {
	return s.camera.Switch(ctx)
}

// Camera returns the camera manager.
func (s *Session) Camera() *camera.Manager {
	return s.camera
}

// Close stops any recording and releases the devices.
func (s *Session) Close() error {
	s.Abort()
	var errs []error
	if err := s.camera.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := s.recorder.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
