package audioio

import (
	"context"
	"errors"
	"io"
)

// Sentinel errors shared by all backends.
var (
	// ErrDeviceUnavailable is returned when the input or output device cannot be opened.
	ErrDeviceUnavailable = errors.New("audioio: device unavailable")

	// ErrDeviceBusy is returned when Start is called while a recording is running.
	ErrDeviceBusy = errors.New("audioio: device busy")

	// ErrSettingsRejected is returned when the encoder refuses the recording settings.
	ErrSettingsRejected = errors.New("audioio: recording settings rejected")

	// ErrNotRecording is returned by Stop when nothing is being recorded.
	ErrNotRecording = errors.New("audioio: not recording")

	// ErrUnsupportedPlatform is returned when BackendAuto finds no real
	// backend for the running OS.
	ErrUnsupportedPlatform = errors.New("audioio: unsupported platform")
)

// Recorder captures microphone input into an encoded file.
type Recorder interface {
	// Start begins writing microphone input to path, replacing any existing file.
	// It returns once the device is capturing.
	Start(ctx context.Context, path string) error

	// Stop halts recording and finalizes the file.
	Stop() error

	// Settings returns the encoded clip profile.
	Settings() RecordingSettings

	// Name returns the backend name (e.g., "alsa", "avfoundation", "mock").
	Name() string

	io.Closer
}

// Player plays a complete encoded buffer (mp3) on the speaker.
type Player interface {
	// Play starts playback and returns without waiting for it to finish.
	// A playback already running is stopped first.
	Play(ctx context.Context, audio []byte) error

	// PlayIfIdle starts playback only when nothing is playing. It reports
	// whether audio was started.
	PlayIfIdle(ctx context.Context, audio []byte) (bool, error)

	// Wait blocks until the current playback ends or ctx is done. It returns
	// nil at once when nothing is playing.
	Wait(ctx context.Context) error

	// Stop interrupts the current playback. It is safe to call when idle.
	Stop() error

	// Name returns the backend name.
	Name() string

	io.Closer
}
