// Package camera owns the still-photo pipeline: which physical camera is
// active, how frames are encoded, and the guarded switch between facings.
package camera

import "fmt"

// Facing selects which physical camera is used.
type Facing string

const (
	FacingBack  Facing = "back"
	FacingFront Facing = "front"
)

// Opposite returns the other facing.
func (f Facing) Opposite() Facing {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

// Valid reports whether f names a known facing.
func (f Facing) Valid() bool {
	return f == FacingBack || f == FacingFront
}

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// === Resolution ===
	Width   int `yaml:"width" json:"width"`     // Frame width in pixels
	Height  int `yaml:"height" json:"height"`   // Frame height in pixels
	Quality int `yaml:"quality" json:"quality"` // JPEG quality 1-100

	// === Devices ===
	// Capture device index per facing (OpenCV numbering).
	BackDevice  int `yaml:"back_device" json:"back_device"`
	FrontDevice int `yaml:"front_device" json:"front_device"`

	// Facing is the camera opened at startup.
	Facing Facing `yaml:"facing" json:"facing"`

	// WarmupFrames are read and discarded after opening so auto exposure settles.
	WarmupFrames int `yaml:"warmup_frames" json:"warmup_frames"`
}

// Limits for validation.
const (
	MaxWidth        = 4096
	MaxHeight       = 2160
	MaxWarmupFrames = 30
)

// DefaultConfig returns the medium preset on the back camera.
func DefaultConfig() Config {
	return Config{
		Width:        1280,
		Height:       720,
		Quality:      80,
		BackDevice:   0,
		FrontDevice:  1,
		Facing:       FacingBack,
		WarmupFrames: 3,
	}
}

// DeviceFor returns the device index for a facing.
func (c *Config) DeviceFor(f Facing) int {
	if f == FacingFront {
		return c.FrontDevice
	}
	return c.BackDevice
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between 160 and %d", MaxWidth))
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between 120 and %d", MaxHeight))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.BackDevice < 0 || c.FrontDevice < 0 {
		errors = append(errors, "device indexes must not be negative")
	}
	if c.Facing != "" && !c.Facing.Valid() {
		errors = append(errors, "facing must be back or front")
	}
	if c.WarmupFrames < 0 || c.WarmupFrames > MaxWarmupFrames {
		errors = append(errors, fmt.Sprintf("warmup_frames must be between 0 and %d", MaxWarmupFrames))
	}

	return errors
}
