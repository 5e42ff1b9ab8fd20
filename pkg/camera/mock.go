package camera

import (
	"context"
	"sync"
)

// MockDevice implements Device for testing.
type MockDevice struct {
	// Frame is returned by Capture.
	Frame []byte

	// OpenFunc and CaptureFunc override the default behavior when set.
	OpenFunc    func(facing Facing, cfg Config) error
	CaptureFunc func(ctx context.Context) ([]byte, error)

	mu     sync.Mutex
	open   bool
	facing Facing
	opens  []Facing
	closes int
}

// NewMockDevice creates a mock camera returning a tiny JPEG-like frame.
func NewMockDevice() *MockDevice {
	return &MockDevice{Frame: []byte{0xFF, 0xD8, 0xFF, 0xE0, 'm', 'o', 'c', 'k', 0xFF, 0xD9}}
}

// Open records the facing.
func (d *MockDevice) Open(facing Facing, cfg Config) error {
	d.mu.Lock()
	fn := d.OpenFunc
	d.opens = append(d.opens, facing)
	d.mu.Unlock()

	if fn != nil {
		if err := fn(facing, cfg); err != nil {
			return err
		}
	}

	d.mu.Lock()
	d.open, d.facing = true, facing
	d.mu.Unlock()
	return nil
}

// Capture returns Frame or calls CaptureFunc.
func (d *MockDevice) Capture(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	fn, frame, open := d.CaptureFunc, d.Frame, d.open
	d.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	if !open {
		return nil, ErrNotRunning
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return frame, nil
}

// Close marks the device closed.
func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	d.closes++
	return nil
}

// Opens returns the facings passed to Open, in order.
func (d *MockDevice) Opens() []Facing {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Facing, len(d.opens))
	copy(out, d.opens)
	return out
}

// Closes returns how many times Close was called.
func (d *MockDevice) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

var _ Device = (*MockDevice)(nil)
