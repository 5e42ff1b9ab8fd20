package app

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-vision-replica/internal/config"
	"github.com/teslashibe/go-vision-replica/pkg/audioio"
	"github.com/teslashibe/go-vision-replica/pkg/backend"
	"github.com/teslashibe/go-vision-replica/pkg/cycle"
)

func TestOnceAgainstBackend(t *testing.T) {
	inf := backend.NewMock()
	srv := httptest.NewServer(adaptor.FiberApp(backend.NewServer(backend.ServerConfig{}, inf).App()))
	defer srv.Close()

	settings := config.Default()
	settings.Endpoint = srv.URL + "/process"
	settings.RecordingDir = t.TempDir()

	a, err := New(Config{Settings: settings, Mock: true, Headless: true}, nil)
	require.NoError(t, err)
	require.NoError(t, a.Init(context.Background()))
	defer a.Shutdown()

	out, err := a.Once(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "A cat.", out.Text)
	assert.Greater(t, out.BytesSent, 0)
	assert.Equal(t, 1, inf.CallCount("Transcribe"))
	assert.Equal(t, cycle.StateIdle, a.Controller().Host().State())
}

func newBackendApp(t *testing.T) *App {
	t.Helper()
	srv := httptest.NewServer(adaptor.FiberApp(backend.NewServer(backend.ServerConfig{}, backend.NewMock()).App()))
	t.Cleanup(srv.Close)

	settings := config.Default()
	settings.Endpoint = srv.URL + "/process"
	settings.RecordingDir = t.TempDir()

	a, err := New(Config{Settings: settings, Mock: true, Headless: true}, nil)
	require.NoError(t, err)
	require.NoError(t, a.Init(context.Background()))
	t.Cleanup(a.Shutdown)
	return a
}

func TestOnceWaitsForReplyPlayback(t *testing.T) {
	a := newBackendApp(t)
	player := a.player.(*audioio.MockPlayer)
	player.Hold = true

	done := make(chan *cycle.Outcome, 1)
	go func() {
		out, err := a.Once(context.Background(), 10*time.Millisecond)
		assert.NoError(t, err)
		done <- out
	}()

	require.Eventually(t, player.Playing, time.Second, 5*time.Millisecond)
	select {
	case <-done:
		t.Fatal("Once returned while the reply was still playing")
	case <-time.After(50 * time.Millisecond):
	}

	player.Finish()
	select {
	case out := <-done:
		require.NotNil(t, out)
		assert.Equal(t, "A cat.", out.Text)
	case <-time.After(time.Second):
		t.Fatal("Once did not return after playback ended")
	}
}

func TestOnceStopsWaitingWhenCanceled(t *testing.T) {
	a := newBackendApp(t)
	player := a.player.(*audioio.MockPlayer)
	player.Hold = true

	ctx, cancel := context.WithCancel(context.Background())
	player.OnPlay = func([]byte) { cancel() }

	out, err := a.Once(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "A cat.", out.Text)
	assert.True(t, player.Playing())
}

func TestOnceBackendDown(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	settings := config.Default()
	settings.Endpoint = url + "/process"
	settings.RecordingDir = t.TempDir()

	a, err := New(Config{Settings: settings, Mock: true, Headless: true}, nil)
	require.NoError(t, err)
	require.NoError(t, a.Init(context.Background()))
	defer a.Shutdown()

	_, err = a.Once(context.Background(), 10*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, cycle.KindNetworkFailure, cycle.KindOf(err))

	snap := a.Controller().Host().Snapshot()
	assert.Equal(t, cycle.StateIdle, snap.State)
	require.NotNil(t, snap.LastError)
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	settings := config.Default()
	settings.Endpoint = ""
	_, err := New(Config{Settings: settings}, nil)
	assert.Error(t, err)
}

func TestAnnounceRequiresKey(t *testing.T) {
	cfg := Config{Settings: config.Default()}
	assert.False(t, cfg.announce())

	cfg.Settings.OpenAIKey = "sk-test"
	assert.True(t, cfg.announce())

	cfg.Settings.Status.Quiet = true
	assert.False(t, cfg.announce())
}
