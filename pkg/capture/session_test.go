package capture

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-vision-replica/pkg/audioio"
	"github.com/teslashibe/go-vision-replica/pkg/camera"
)

func newSession(t *testing.T) (*Session, *audioio.MockRecorder, *camera.MockDevice) {
	t.Helper()
	rec := audioio.NewMockRecorder(audioio.DefaultRecordingSettings())
	dev := camera.NewMockDevice()
	cam := camera.NewManager(dev, camera.DefaultConfig(), nil)
	require.NoError(t, cam.Start(context.Background()))
	return NewSession(rec, cam, t.TempDir(), nil), rec, dev
}

func TestSessionRecordAndCapture(t *testing.T) {
	s, rec, dev := newSession(t)
	ctx := context.Background()

	require.NoError(t, s.StartRecording(ctx))
	assert.True(t, s.Recording())
	assert.Equal(t, "recording.m4a", s.Path()[len(s.Path())-len("recording.m4a"):])

	res, err := s.StopRecording(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec.Audio, res.Audio)
	assert.Equal(t, dev.Frame, res.Image)
	assert.False(t, s.Recording())
}

func TestSessionStartTwice(t *testing.T) {
	s, _, _ := newSession(t)
	ctx := context.Background()

	require.NoError(t, s.StartRecording(ctx))
	assert.ErrorIs(t, s.StartRecording(ctx), ErrAlreadyRecording)
}

func TestSessionStopWithoutStart(t *testing.T) {
	s, _, _ := newSession(t)
	_, err := s.StopRecording(context.Background())
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestSessionDeviceUnavailable(t *testing.T) {
	s, rec, _ := newSession(t)
	rec.StartErr = audioio.ErrDeviceUnavailable

	err := s.StartRecording(context.Background())
	assert.ErrorIs(t, err, audioio.ErrDeviceUnavailable)
	assert.False(t, s.Recording())
}

func TestSessionPhotoFailure(t *testing.T) {
	s, _, dev := newSession(t)
	dev.CaptureFunc = func(ctx context.Context) ([]byte, error) {
		return nil, errors.New("sensor fault")
	}
	ctx := context.Background()

	require.NoError(t, s.StartRecording(ctx))
	_, err := s.StopRecording(ctx)
	assert.Error(t, err)
	assert.False(t, s.Recording())
}

func TestSessionEmptyRecording(t *testing.T) {
	s, rec, _ := newSession(t)
	rec.Audio = nil
	ctx := context.Background()

	require.NoError(t, s.StartRecording(ctx))
	_, err := s.StopRecording(ctx)
	assert.ErrorIs(t, err, ErrEmptyRecording)
}

func TestSessionAbortRemovesFile(t *testing.T) {
	s, rec, _ := newSession(t)
	ctx := context.Background()

	require.NoError(t, s.StartRecording(ctx))
	s.Abort()

	assert.False(t, rec.Recording())
	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestSessionSwitchCamera(t *testing.T) {
	s, _, _ := newSession(t)

	facing, err := s.SwitchCamera(context.Background())
	require.NoError(t, err)
	assert.Equal(t, camera.FacingFront, facing)
	assert.Equal(t, camera.FacingFront, s.Camera().Facing())
}
