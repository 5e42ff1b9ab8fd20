package audioio

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// MockRecorder is a mock recorder for testing.
// It writes Audio to the recording path when stopped.
type MockRecorder struct {
	// Audio is written to the recording path on Stop.
	Audio []byte

	// StartErr and StopErr, when set, are returned by Start and Stop.
	StartErr error
	StopErr  error

	settings RecordingSettings

	mu        sync.Mutex
	recording bool
	closed    bool
	path      string
	starts    int
	stops     int
}

// NewMockRecorder creates a mock recorder producing a short fake m4a payload.
func NewMockRecorder(settings RecordingSettings) *MockRecorder {
	return &MockRecorder{
		Audio:    []byte("\x00\x00\x00\x18ftypM4A mock-audio"),
		settings: settings,
	}
}

// Start begins a fake recording.
func (m *MockRecorder) Start(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.starts++
	if m.closed {
		return io.ErrClosedPipe
	}
	if m.StartErr != nil {
		return m.StartErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.recording {
		return ErrDeviceBusy
	}
	if err := m.settings.Validate(); err != nil {
		return ErrSettingsRejected
	}

	m.recording = true
	m.path = path
	return nil
}

// Stop writes Audio to the recording path.
func (m *MockRecorder) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stops++
	if !m.recording {
		return ErrNotRecording
	}
	m.recording = false
	if m.StopErr != nil {
		return m.StopErr
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.path, m.Audio, 0o644)
}

// Recording reports whether a fake recording is running.
func (m *MockRecorder) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording
}

// Counts returns how many times Start and Stop were called.
func (m *MockRecorder) Counts() (starts, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.stops
}

// Settings returns the recording profile.
func (m *MockRecorder) Settings() RecordingSettings {
	return m.settings
}

// Name returns "mock".
func (m *MockRecorder) Name() string {
	return "mock"
}

// Close releases resources.
func (m *MockRecorder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.recording = false
	return nil
}

var _ Recorder = (*MockRecorder)(nil)

// MockPlayer is a mock player for testing.
// It records every buffer it was asked to play. Playback ends as soon as
// Play returns unless Hold is set, in which case it runs until Finish or
// Stop.
type MockPlayer struct {
	// PlayErr, when set, is returned by Play.
	PlayErr error

	// OnPlay is called after a buffer is accepted.
	OnPlay func(audio []byte)

	// Hold keeps each playback running until Finish or Stop.
	Hold bool

	mu      sync.Mutex
	played  [][]byte
	stops   int
	skipped int
	done    chan struct{}
}

// NewMockPlayer creates a new mock player.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

// Play records audio, ending any held playback first.
func (m *MockPlayer) Play(ctx context.Context, audio []byte) error {
	_, err := m.play(ctx, audio, false)
	return err
}

// PlayIfIdle records audio unless a held playback is running.
func (m *MockPlayer) PlayIfIdle(ctx context.Context, audio []byte) (bool, error) {
	return m.play(ctx, audio, true)
}

func (m *MockPlayer) play(ctx context.Context, audio []byte, ifIdle bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	if m.PlayErr != nil {
		m.mu.Unlock()
		return false, m.PlayErr
	}
	if ifIdle && m.done != nil {
		m.skipped++
		m.mu.Unlock()
		return false, nil
	}
	m.finishLocked()
	buf := make([]byte, len(audio))
	copy(buf, audio)
	m.played = append(m.played, buf)
	if m.Hold {
		m.done = make(chan struct{})
	}
	onPlay := m.OnPlay
	m.mu.Unlock()

	if onPlay != nil {
		onPlay(buf)
	}
	return true, nil
}

// Wait blocks while a held playback is running.
func (m *MockPlayer) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish ends a held playback as if the clip had played out.
func (m *MockPlayer) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finishLocked()
}

func (m *MockPlayer) finishLocked() {
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
}

// Playing reports whether a held playback is running.
func (m *MockPlayer) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done != nil
}

// Skipped returns how many PlayIfIdle calls were declined.
func (m *MockPlayer) Skipped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skipped
}

// Played returns copies of all played buffers.
func (m *MockPlayer) Played() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([][]byte, len(m.played))
	copy(result, m.played)
	return result
}

// Stop ends any held playback and counts the call.
func (m *MockPlayer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.finishLocked()
	return nil
}

// Name returns "mock".
func (m *MockPlayer) Name() string {
	return "mock"
}

// Close releases resources.
func (m *MockPlayer) Close() error {
	return m.Stop()
}

var _ Player = (*MockPlayer)(nil)
