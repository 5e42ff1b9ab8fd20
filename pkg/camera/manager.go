package camera

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// State is the capture pipeline state.
type State string

const (
	StateStopped       State = "stopped"
	StateRunning       State = "running"
	StateCapturing     State = "capturing"
	StateReconfiguring State = "reconfiguring"
)

// Manager owns the camera device, its configuration and the active facing.
// Captures and reconfigurations are explicit state transitions; one never
// starts while the other is in flight. A capture requested during a
// reconfiguration waits for it to finish.
type Manager struct {
	device Device
	logger *slog.Logger

	mu     sync.Mutex
	config Config
	facing Facing
	state  State

	// reconfigured is closed when the running reconfiguration ends.
	reconfigured chan struct{}
}

// NewManager creates a camera manager. The device is not opened until Start.
func NewManager(device Device, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	facing := cfg.Facing
	if !facing.Valid() {
		facing = FacingBack
	}
	return &Manager{
		device: device,
		logger: logger.With("component", "camera.manager"),
		config: cfg,
		facing: facing,
		state:  StateStopped,
	}
}

// Start opens the device with the current facing.
func (m *Manager) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateStopped {
		return nil
	}
	if err := m.device.Open(m.facing, m.config); err != nil {
		return fmt.Errorf("%w: open %s camera: %v", ErrDeviceUnavailable, m.facing, err)
	}
	m.state = StateRunning
	m.logger.Info("camera started", "facing", m.facing, "width", m.config.Width, "height", m.config.Height)
	return nil
}

// Capture returns one JPEG still from the active camera. If the pipeline
// is being reconfigured, Capture waits for it or for ctx.
func (m *Manager) Capture(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	for m.state == StateReconfiguring {
		done := m.reconfigured
		m.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		m.mu.Lock()
	}
	switch m.state {
	case StateStopped:
		m.mu.Unlock()
		return nil, ErrNotRunning
	case StateCapturing:
		m.mu.Unlock()
		return nil, ErrBusy
	}
	m.state = StateCapturing
	m.mu.Unlock()

	data, err := m.device.Capture(ctx)

	m.mu.Lock()
	m.state = StateRunning
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNoFrame
	}
	return data, nil
}

// Switch tears down the pipeline and rebuilds it on the opposite facing.
// If the new camera cannot be opened, the previous one is restored.
func (m *Manager) Switch(ctx context.Context) (Facing, error) {
	m.mu.Lock()
	next := m.facing.Opposite()
	cfg := m.config
	m.mu.Unlock()

	if err := m.reconfigure(ctx, next, cfg); err != nil {
		return m.Facing(), err
	}
	return next, nil
}

// reconfigure closes the device and reopens it with facing and cfg.
func (m *Manager) reconfigure(ctx context.Context, facing Facing, cfg Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.state == StateCapturing || m.state == StateReconfiguring {
		m.mu.Unlock()
		return ErrBusy
	}
	prevState, prevFacing, prevConfig := m.state, m.facing, m.config
	m.state = StateReconfiguring
	m.reconfigured = make(chan struct{})
	m.mu.Unlock()

	if prevState == StateStopped {
		m.mu.Lock()
		m.facing, m.config = facing, cfg
		m.endReconfigureLocked(StateStopped)
		m.mu.Unlock()
		return nil
	}

	if err := m.device.Close(); err != nil {
		m.logger.Warn("camera close failed", "error", err)
	}

	if err := m.device.Open(facing, cfg); err != nil {
		m.logger.Error("camera reconfigure failed, restoring", "facing", facing, "error", err)
		next := StateStopped
		if rerr := m.device.Open(prevFacing, prevConfig); rerr == nil {
			next = StateRunning
		}
		m.mu.Lock()
		m.endReconfigureLocked(next)
		m.mu.Unlock()
		return fmt.Errorf("%w: open %s camera: %v", ErrDeviceUnavailable, facing, err)
	}

	m.mu.Lock()
	m.facing, m.config = facing, cfg
	m.endReconfigureLocked(StateRunning)
	m.mu.Unlock()

	m.logger.Info("camera reconfigured", "facing", facing, "width", cfg.Width, "height", cfg.Height)
	return nil
}

func (m *Manager) endReconfigureLocked(next State) {
	m.state = next
	close(m.reconfigured)
	m.reconfigured = nil
}

// Facing returns the active facing.
func (m *Manager) Facing() Facing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.facing
}

// State returns the pipeline state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// SetConfig validates cfg and rebuilds the pipeline with it.
func (m *Manager) SetConfig(ctx context.Context, cfg Config) error {
	if errors := cfg.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}
	return m.reconfigure(ctx, m.Facing(), cfg)
}

// UpdateConfig updates specific fields of the configuration.
// Accepts a map of field names to values.
func (m *Manager) UpdateConfig(ctx context.Context, params map[string]interface{}) error {
	cfg := m.GetConfig()

	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		// Device mapping is hardware, not a preset concern.
		preset.BackDevice, preset.FrontDevice, preset.Facing = cfg.BackDevice, cfg.FrontDevice, cfg.Facing
		cfg = *preset
		delete(params, "preset")
	}

	for key, value := range params {
		switch key {
		case "width":
			if v, ok := toInt(value); ok {
				cfg.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				cfg.Height = v
			}
		case "quality":
			if v, ok := toInt(value); ok {
				cfg.Quality = v
			}
		case "back_device":
			if v, ok := toInt(value); ok {
				cfg.BackDevice = v
			}
		case "front_device":
			if v, ok := toInt(value); ok {
				cfg.FrontDevice = v
			}
		case "warmup_frames":
			if v, ok := toInt(value); ok {
				cfg.WarmupFrames = v
			}
		}
	}

	return m.SetConfig(ctx, cfg)
}

// Stop closes the device.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateStopped {
		return nil
	}
	if m.state == StateCapturing || m.state == StateReconfiguring {
		return ErrBusy
	}
	m.state = StateStopped
	return m.device.Close()
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
