package audioio

import (
	"fmt"
	"log/slog"
	"runtime"
)

// NewRecorder creates a new recorder with the given configuration.
// If cfg.Backend is BackendAuto, the best available backend is selected.
func NewRecorder(cfg Config, logger *slog.Logger) (Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Backend == BackendAuto {
		backend, err := detectBestBackend(runtime.GOOS)
		if err != nil {
			return nil, err
		}
		cfg.Backend = backend
	}

	logger.Info("creating audio recorder",
		"backend", cfg.Backend,
		"sample_rate", cfg.Recording.SampleRate,
		"channels", cfg.Recording.Channels,
		"quality", cfg.Recording.Quality,
	)

	switch cfg.Backend {
	case BackendMock:
		return NewMockRecorder(cfg.Recording), nil
	case BackendALSA, BackendPulse, BackendAVFoundation:
		return newFFmpegRecorder(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}

// NewPlayer creates a new player with the given configuration.
func NewPlayer(cfg Config, logger *slog.Logger) (Player, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend := cfg.Backend
	if backend == BackendAuto {
		var err error
		if backend, err = detectBestBackend(runtime.GOOS); err != nil {
			return nil, err
		}
	}

	logger.Info("creating audio player", "backend", backend)

	if backend == BackendMock {
		return NewMockPlayer(), nil
	}
	return newFFplayPlayer(cfg, logger)
}

// detectBestBackend returns the real backend for goos. The mock is never
// chosen automatically; it has to be asked for.
func detectBestBackend(goos string) (Backend, error) {
	switch goos {
	case "linux":
		return BackendALSA, nil
	case "darwin":
		return BackendAVFoundation, nil
	default:
		return "", fmt.Errorf("%w: no audio backend for %s (available: %v)",
			ErrUnsupportedPlatform, goos, AvailableBackends())
	}
}

// AvailableBackends returns the list of backends available on this platform.
func AvailableBackends() []Backend {
	backends := []Backend{BackendMock}

	switch runtime.GOOS {
	case "linux":
		backends = append(backends, BackendALSA, BackendPulse)
	case "darwin":
		backends = append(backends, BackendAVFoundation)
	}

	return backends
}
