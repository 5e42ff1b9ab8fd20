package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-vision-replica/pkg/camera"
	"github.com/teslashibe/go-vision-replica/pkg/upload"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vision.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, upload.DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, 60*time.Second, cfg.UploadTimeout)
	assert.Equal(t, ":8080", cfg.WebAddr())
	assert.Equal(t, camera.FacingBack, cfg.Camera.Facing)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeFile(t, `
endpoint: http://localhost:5000/process
upload_timeout: 15s
web:
  port: 9090
status:
  quiet: true
camera:
  quality: 60
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/process", cfg.Endpoint)
	assert.Equal(t, 15*time.Second, cfg.UploadTimeout)
	assert.Equal(t, 9090, cfg.Web.Port)
	assert.True(t, cfg.Status.Quiet)
	assert.Equal(t, 60, cfg.Camera.Quality)

	// Untouched fields keep their defaults.
	assert.Equal(t, 1280, cfg.Camera.Width)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, Default().Audio, cfg.Audio)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "endpoint: http://file/process\n")
	t.Setenv(EnvEndpoint, "http://env/process")
	t.Setenv(EnvWebPort, "7000")
	t.Setenv(EnvOpenAIKey, "sk-env")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvRecordingDir, "/var/tmp")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env/process", cfg.Endpoint)
	assert.Equal(t, 7000, cfg.Web.Port)
	assert.Equal(t, "sk-env", cfg.OpenAIKey)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/tmp", cfg.RecordingDir)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  string
	}{
		{"unknown field", "endpont: typo\n", ""},
		{"bad camera", "camera:\n  quality: 500\n", ""},
		{"bad port env", "", "eighty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv(EnvWebPort, tt.env)
			}
			_, err := Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
