package app

import (
	"github.com/teslashibe/go-vision-replica/internal/config"
)

// Config holds application configuration.
type Config struct {
	// Settings is the loaded file and environment configuration.
	Settings config.Config

	// Mock replaces the microphone, speaker and camera with in-memory
	// devices. Useful for exercising the dashboard without hardware.
	Mock bool

	// Headless skips the dashboard and status tasks.
	Headless bool
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return c.Settings.Validate()
}

// announce reports whether the waiting phrase should be spoken.
func (c *Config) announce() bool {
	return c.Settings.OpenAIKey != "" && !c.Settings.Status.Quiet && !c.Headless
}
