// Package audioio provides microphone recording and speaker playback.
//
// Recording writes a compressed clip to a file and playback consumes a
// complete encoded buffer, so both are driven through ffmpeg tools:
//   - ALSA or PulseAudio (Linux)
//   - AVFoundation (macOS)
//   - Mock - CI/Testing without hardware
//
// The backend is selected automatically from the platform or can be
// explicitly specified via configuration.
package audioio

import (
	"fmt"
	"strings"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto automatically selects the best available backend.
	BackendAuto Backend = "auto"
	// BackendALSA records from a Linux ALSA device.
	BackendALSA Backend = "alsa"
	// BackendPulse records from a PulseAudio source.
	BackendPulse Backend = "pulse"
	// BackendAVFoundation records from a macOS capture device.
	BackendAVFoundation Backend = "avfoundation"
	// BackendMock uses a mock implementation for testing.
	BackendMock Backend = "mock"
)

// Quality selects the encoder bitrate.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// RecordingSettings describes the encoded clip.
type RecordingSettings struct {
	// Codec is the audio codec. Only "aac" is accepted by the backend contract.
	Codec string `yaml:"codec" json:"codec"`

	// SampleRate is the audio sample rate in Hz.
	// Default: 8000, small payloads matter more than fidelity.
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `yaml:"channels" json:"channels"`

	// Quality selects the bitrate (low, medium, high).
	Quality Quality `yaml:"quality" json:"quality"`
}

// DefaultRecordingSettings returns the low-bitrate mono AAC profile.
func DefaultRecordingSettings() RecordingSettings {
	return RecordingSettings{
		Codec:      "aac",
		SampleRate: 8000,
		Channels:   1,
		Quality:    QualityLow,
	}
}

var supportedSampleRates = map[int]bool{
	8000: true, 11025: true, 16000: true, 22050: true, 24000: true, 44100: true, 48000: true,
}

// Validate checks that the settings can be encoded.
func (s RecordingSettings) Validate() error {
	if !strings.EqualFold(s.Codec, "aac") {
		return fmt.Errorf("codec must be aac, got %q", s.Codec)
	}
	if !supportedSampleRates[s.SampleRate] {
		return fmt.Errorf("unsupported sample_rate %d", s.SampleRate)
	}
	if s.Channels != 1 && s.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", s.Channels)
	}
	switch s.Quality {
	case QualityLow, QualityMedium, QualityHigh:
	default:
		return fmt.Errorf("quality must be low, medium, or high, got %q", s.Quality)
	}
	return nil
}

// Bitrate returns the encoder bitrate in bits per second.
func (s RecordingSettings) Bitrate() int {
	perChannel := 16000
	switch s.Quality {
	case QualityMedium:
		perChannel = 32000
	case QualityHigh:
		perChannel = 64000
	}
	return perChannel * s.Channels
}

// Config holds audio configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	// Default: "auto" (selects best available for platform)
	Backend Backend `yaml:"backend" json:"backend"`

	// Device is the platform-specific input identifier.
	// Examples:
	//   - ALSA: "default", "plughw:1,0"
	//   - PulseAudio: source name or "default"
	//   - AVFoundation: audio device index, e.g. "0"
	Device string `yaml:"device" json:"device"`

	// FFmpegPath and FFplayPath override binary lookup in PATH.
	FFmpegPath string `yaml:"ffmpeg_path" json:"ffmpeg_path"`
	FFplayPath string `yaml:"ffplay_path" json:"ffplay_path"`

	// Recording is the encoded clip profile.
	Recording RecordingSettings `yaml:"recording" json:"recording"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendAuto,
		FFmpegPath: "ffmpeg",
		FFplayPath: "ffplay",
		Recording:  DefaultRecordingSettings(),
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendALSA, BackendPulse, BackendAVFoundation, BackendMock:
	default:
		return fmt.Errorf("unsupported backend: %s", c.Backend)
	}
	if err := c.Recording.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrSettingsRejected, err)
	}
	return nil
}
