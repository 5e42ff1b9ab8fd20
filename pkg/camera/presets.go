package camera

// Preset names for common configurations
const (
	PresetLow    = "low"
	PresetMedium = "medium"
	PresetHigh   = "high"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetLow:    LowConfig(),
		PresetMedium: DefaultConfig(),
		PresetHigh:   HighConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{PresetLow, PresetMedium, PresetHigh}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// LowConfig returns 640x480 with stronger compression.
// Smallest upload, still enough for a vision model to describe the scene.
func LowConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	cfg.Quality = 70
	return cfg
}

// HighConfig returns 1080p. Uploads grow to a few hundred kilobytes.
func HighConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	cfg.Quality = 90
	return cfg
}
