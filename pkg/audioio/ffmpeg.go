package audioio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// startupGrace is how long ffmpeg must stay alive before the device counts as open.
	startupGrace = 250 * time.Millisecond

	// stopTimeout bounds the wait for ffmpeg to finalize the m4a trailer.
	stopTimeout = 3 * time.Second
)

// FFmpegRecorder records the microphone with an ffmpeg subprocess.
// ffmpeg is stopped with "q" on stdin so the container trailer is written.
type FFmpegRecorder struct {
	cfg    Config
	binary string
	logger *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	done   chan error
	path   string
	closed bool
}

func newFFmpegRecorder(cfg Config, logger *slog.Logger) (*FFmpegRecorder, error) {
	name := cfg.FFmpegPath
	if name == "" {
		name = "ffmpeg"
	}
	binary, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", ErrDeviceUnavailable, name, err)
	}

	return &FFmpegRecorder{
		cfg:    cfg,
		binary: binary,
		logger: logger.With("component", "audioio.ffmpeg", "backend", cfg.Backend),
	}, nil
}

// captureArgs builds the ffmpeg command line for a recording to path.
func captureArgs(cfg Config, path string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostats", "-y"}

	device := cfg.Device
	switch cfg.Backend {
	case BackendALSA, BackendPulse:
		if device == "" {
			device = "default"
		}
		args = append(args, "-f", string(cfg.Backend), "-i", device)
	case BackendAVFoundation:
		if device == "" {
			device = "0"
		}
		args = append(args, "-f", "avfoundation", "-i", ":"+device)
	}

	s := cfg.Recording
	args = append(args,
		"-vn",
		"-ac", strconv.Itoa(s.Channels),
		"-ar", strconv.Itoa(s.SampleRate),
		"-c:a", strings.ToLower(s.Codec),
		"-b:a", fmt.Sprintf("%dk", s.Bitrate()/1000),
		path,
	)
	return args
}

// Start begins audio capture into path.
func (r *FFmpegRecorder) Start(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return io.ErrClosedPipe
	}
	if r.cmd != nil {
		return ErrDeviceBusy
	}
	if err := r.cfg.Recording.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrSettingsRejected, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create recording dir: %w", err)
	}

	cmd := exec.Command(r.binary, captureArgs(r.cfg, path)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffmpeg: %v", ErrDeviceUnavailable, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return classifyExit(err, stderr.String())
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	case <-time.After(startupGrace):
	}

	r.cmd, r.stdin, r.stderr, r.done, r.path = cmd, stdin, stderr, done, path
	r.logger.Info("recording started", "path", path)
	return nil
}

// classifyExit maps an early ffmpeg exit onto the package sentinels.
func classifyExit(err error, stderr string) error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "device or resource busy"):
		return fmt.Errorf("%w: %s", ErrDeviceBusy, msg)
	case strings.Contains(lower, "encoder"), strings.Contains(lower, "invalid argument"),
		strings.Contains(lower, "sample rate"):
		return fmt.Errorf("%w: %s", ErrSettingsRejected, msg)
	default:
		return fmt.Errorf("%w: ffmpeg exited (%v): %s", ErrDeviceUnavailable, err, msg)
	}
}

// Stop halts recording and waits for the file to be finalized.
func (r *FFmpegRecorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil {
		return ErrNotRecording
	}

	cmd, done, path := r.cmd, r.done, r.path
	r.cmd, r.done = nil, nil

	_, _ = io.WriteString(r.stdin, "q")
	_ = r.stdin.Close()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-time.After(stopTimeout):
		r.logger.Warn("ffmpeg did not exit, killing", "timeout", stopTimeout)
		_ = cmd.Process.Kill()
		waitErr = <-done
	}

	info, statErr := os.Stat(path)
	if statErr != nil || info.Size() == 0 {
		return fmt.Errorf("%w: no audio written (%v): %s", ErrDeviceUnavailable, waitErr,
			strings.TrimSpace(r.stderr.String()))
	}

	r.logger.Info("recording stopped", "path", path, "bytes", info.Size())
	return nil
}

// Settings returns the encoded clip profile.
func (r *FFmpegRecorder) Settings() RecordingSettings {
	return r.cfg.Recording
}

// Name returns the backend name.
func (r *FFmpegRecorder) Name() string {
	return string(r.cfg.Backend)
}

// Close stops any running recording.
func (r *FFmpegRecorder) Close() error {
	r.mu.Lock()
	r.closed = true
	running := r.cmd != nil
	r.mu.Unlock()

	if running {
		return r.Stop()
	}
	return nil
}

var _ Recorder = (*FFmpegRecorder)(nil)
