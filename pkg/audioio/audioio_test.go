package audioio

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRecordingSettings(t *testing.T) {
	s := DefaultRecordingSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, 8000, s.SampleRate)
	assert.Equal(t, 1, s.Channels)
	assert.Equal(t, QualityLow, s.Quality)
	assert.Equal(t, 16000, s.Bitrate())
}

func TestRecordingSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*RecordingSettings)
	}{
		{"codec", func(s *RecordingSettings) { s.Codec = "opus" }},
		{"sample rate", func(s *RecordingSettings) { s.SampleRate = 12345 }},
		{"channels", func(s *RecordingSettings) { s.Channels = 6 }},
		{"quality", func(s *RecordingSettings) { s.Quality = "lossless" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultRecordingSettings()
			tt.modify(&s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestConfigValidateWrapsSettingsError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Recording.Channels = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSettingsRejected))

	cfg = DefaultConfig()
	cfg.Backend = "jack"
	assert.Error(t, cfg.Validate())
}

func TestCaptureArgs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendALSA

	args := captureArgs(cfg, "/tmp/recording.m4a")
	assert.Subset(t, args, []string{"-f", "alsa", "-i", "default", "-ac", "1", "-ar", "8000", "-c:a", "aac", "-b:a", "16k"})
	assert.Equal(t, "/tmp/recording.m4a", args[len(args)-1])

	cfg.Backend = BackendAVFoundation
	cfg.Device = "2"
	args = captureArgs(cfg, "out.m4a")
	assert.Contains(t, args, ":2")
}

func TestClassifyExit(t *testing.T) {
	assert.ErrorIs(t, classifyExit(errors.New("exit 1"), "audio open failed: Device or resource busy"), ErrDeviceBusy)
	assert.ErrorIs(t, classifyExit(errors.New("exit 1"), "Error while opening encoder"), ErrSettingsRejected)
	assert.ErrorIs(t, classifyExit(errors.New("exit 1"), "No such file"), ErrDeviceUnavailable)
}

func TestMockRecorderWritesFile(t *testing.T) {
	rec := NewMockRecorder(DefaultRecordingSettings())
	rec.Audio = []byte("clip")
	path := filepath.Join(t.TempDir(), "nested", "recording.m4a")

	require.NoError(t, rec.Start(context.Background(), path))
	assert.True(t, rec.Recording())
	assert.ErrorIs(t, rec.Start(context.Background(), path), ErrDeviceBusy)

	require.NoError(t, rec.Stop())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("clip"), data)

	assert.ErrorIs(t, rec.Stop(), ErrNotRecording)
	starts, stops := rec.Counts()
	assert.Equal(t, 2, starts)
	assert.Equal(t, 2, stops)
}

func TestMockPlayerRecordsBuffers(t *testing.T) {
	player := NewMockPlayer()
	var seen []byte
	player.OnPlay = func(audio []byte) { seen = audio }

	require.NoError(t, player.Play(context.Background(), []byte{1, 2, 3}))
	assert.Equal(t, []byte{1, 2, 3}, seen)
	assert.Len(t, player.Played(), 1)

	player.PlayErr = ErrDeviceUnavailable
	assert.ErrorIs(t, player.Play(context.Background(), []byte{4}), ErrDeviceUnavailable)
}

func TestNewRecorderMockBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock
	rec, err := NewRecorder(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", rec.Name())

	player, err := NewPlayer(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", player.Name())
}

func TestDetectBestBackend(t *testing.T) {
	backend, err := detectBestBackend("linux")
	require.NoError(t, err)
	assert.Equal(t, BackendALSA, backend)

	backend, err = detectBestBackend("darwin")
	require.NoError(t, err)
	assert.Equal(t, BackendAVFoundation, backend)

	backend, err = detectBestBackend("windows")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
	assert.NotEqual(t, BackendMock, backend)
}

func TestMockPlayerHold(t *testing.T) {
	ctx := context.Background()
	player := NewMockPlayer()
	player.Hold = true

	require.NoError(t, player.Play(ctx, []byte("reply")))
	assert.True(t, player.Playing())

	started, err := player.PlayIfIdle(ctx, []byte("waiting"))
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, 1, player.Skipped())

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, player.Wait(waitCtx), context.DeadlineExceeded)

	waited := make(chan error, 1)
	go func() { waited <- player.Wait(ctx) }()
	player.Finish()
	require.NoError(t, <-waited)
	assert.False(t, player.Playing())

	started, err = player.PlayIfIdle(ctx, []byte("waiting"))
	require.NoError(t, err)
	assert.True(t, started)
	assert.Len(t, player.Played(), 2)
}

// fakeFFplay writes a stand-in ffplay that drains stdin and sleeps.
func fakeFFplay(t *testing.T, sleep string) *FFplayPlayer {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in")
	}
	path := filepath.Join(t.TempDir(), "ffplay")
	script := "#!/bin/sh\ncat >/dev/null\nsleep " + sleep + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	cfg := DefaultConfig()
	cfg.FFplayPath = path
	player, err := newFFplayPlayer(cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = player.Close() })
	return player
}

func TestFFplayWaitBlocksUntilPlaybackEnds(t *testing.T) {
	ctx := context.Background()
	player := fakeFFplay(t, "0.3")

	require.NoError(t, player.Wait(ctx))

	begin := time.Now()
	require.NoError(t, player.Play(ctx, []byte("ID3")))

	started, err := player.PlayIfIdle(ctx, []byte("ID3"))
	require.NoError(t, err)
	assert.False(t, started)

	require.NoError(t, player.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(begin), 250*time.Millisecond)

	started, err = player.PlayIfIdle(ctx, []byte("ID3"))
	require.NoError(t, err)
	assert.True(t, started)
}

func TestFFplayWaitHonorsContext(t *testing.T) {
	player := fakeFFplay(t, "5")
	require.NoError(t, player.Play(context.Background(), []byte("ID3")))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, player.Wait(ctx), context.DeadlineExceeded)
}
