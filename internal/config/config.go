// Package config loads runtime settings: built-in defaults, then an optional
// YAML file merged over them, then environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-vision-replica/pkg/audioio"
	"github.com/teslashibe/go-vision-replica/pkg/camera"
	"github.com/teslashibe/go-vision-replica/pkg/status"
	"github.com/teslashibe/go-vision-replica/pkg/upload"
)

// Environment variables read by Load.
const (
	EnvEndpoint     = "VISION_ENDPOINT"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvWebPort      = "WEB_PORT"
	EnvLogLevel     = "LOG_LEVEL"
	EnvRecordingDir = "RECORDING_DIR"
)

// Config is the client configuration.
type Config struct {
	// Endpoint is the upload URL.
	Endpoint string `yaml:"endpoint"`

	// UploadTimeout bounds one upload.
	UploadTimeout time.Duration `yaml:"upload_timeout"`

	// OpenAIKey enables the spoken status announcement.
	OpenAIKey string `yaml:"openai_api_key"`

	// RecordingDir holds the temporary recording file.
	RecordingDir string `yaml:"recording_dir"`

	LogLevel string `yaml:"log_level"`

	Web    WebConfig      `yaml:"web"`
	Status StatusConfig   `yaml:"status"`
	Audio  audioio.Config `yaml:"audio"`
	Camera camera.Config  `yaml:"camera"`
}

// WebConfig configures the dashboard.
type WebConfig struct {
	Port      int  `yaml:"port"`
	AccessLog bool `yaml:"access_log"`
}

// StatusConfig configures the status line.
type StatusConfig struct {
	Interval time.Duration `yaml:"interval"`

	// Quiet disables the spoken announcement even with an API key.
	Quiet bool `yaml:"quiet"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Endpoint:      upload.DefaultEndpoint,
		UploadTimeout: 60 * time.Second,
		RecordingDir:  os.TempDir(),
		LogLevel:      "info",
		Web:           WebConfig{Port: 8080},
		Status:        StatusConfig{Interval: status.DefaultInterval},
		Audio:         audioio.DefaultConfig(),
		Camera:        camera.DefaultConfig(),
	}
}

// Load builds the configuration. An empty path skips the file step; a
// missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		fileCfg, err := Parse(data)
		if err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
		// Zero values in the file keep the default.
		if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
			return cfg, fmt.Errorf("config: merge: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Parse decodes YAML without applying defaults.
func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvEndpoint); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		cfg.OpenAIKey = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvRecordingDir); v != "" {
		cfg.RecordingDir = v
	}
	if v := os.Getenv(EnvWebPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", EnvWebPort, v, err)
		}
		cfg.Web.Port = port
	}
	return nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("config: endpoint required")
	}
	if c.UploadTimeout <= 0 {
		return errors.New("config: upload_timeout must be positive")
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("config: web port %d out of range", c.Web.Port)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("config: audio: %w", err)
	}
	if errs := c.Camera.Validate(); len(errs) > 0 {
		return fmt.Errorf("config: camera: %s", strings.Join(errs, "; "))
	}
	return nil
}

// WebAddr returns the dashboard listen address.
func (c *Config) WebAddr() string {
	return ":" + strconv.Itoa(c.Web.Port)
}
