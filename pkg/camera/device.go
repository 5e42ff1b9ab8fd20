package camera

import (
	"context"
	"errors"
)

// Sentinel errors for camera operations.
var (
	// ErrDeviceUnavailable is returned when a camera cannot be opened.
	ErrDeviceUnavailable = errors.New("camera: device unavailable")

	// ErrBusy is returned when a capture or reconfiguration is already in flight.
	ErrBusy = errors.New("camera: capture pipeline busy")

	// ErrNotRunning is returned when capturing before Start.
	ErrNotRunning = errors.New("camera: pipeline not running")

	// ErrNoFrame is returned when the device produced no usable frame.
	ErrNoFrame = errors.New("camera: no frame captured")
)

// Device is a physical camera. Implementations need not be goroutine-safe;
// Manager serializes every call.
type Device interface {
	// Open starts the camera for a facing with the given settings.
	Open(facing Facing, cfg Config) error

	// Capture returns one JPEG-encoded still.
	Capture(ctx context.Context) ([]byte, error)

	// Close releases the camera. Closing a closed device is a no-op.
	Close() error
}
