// Package opencv implements camera.Device with OpenCV through gocv.
package opencv

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-vision-replica/pkg/camera"
)

// Device captures stills from a local video device.
type Device struct {
	capture *gocv.VideoCapture
	quality int
	warmup  int
}

// New returns a closed device.
func New() *Device {
	return &Device{}
}

// Open opens the device index mapped to facing and applies the resolution.
func (d *Device) Open(facing camera.Facing, cfg camera.Config) error {
	if d.capture != nil {
		_ = d.Close()
	}

	index := cfg.DeviceFor(facing)
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return fmt.Errorf("open device %d: %w", index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("device %d did not open", index)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))

	d.capture = vc
	d.quality = cfg.Quality
	d.warmup = cfg.WarmupFrames
	return nil
}

// Capture reads one frame and encodes it as JPEG.
func (d *Device) Capture(ctx context.Context) ([]byte, error) {
	if d.capture == nil {
		return nil, camera.ErrNotRunning
	}

	img := gocv.NewMat()
	defer img.Close()

	// Discard stale buffered frames so the still reflects the moment of capture.
	for i := 0; i <= d.warmup; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ok := d.capture.Read(&img); !ok {
			return nil, camera.ErrNoFrame
		}
	}
	if img.Empty() {
		return nil, camera.ErrNoFrame
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{int(gocv.IMWriteJpegQuality), d.quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	raw := buf.GetBytes()
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// Close releases the video device.
func (d *Device) Close() error {
	if d.capture == nil {
		return nil
	}
	err := d.capture.Close()
	d.capture = nil
	return err
}

var _ camera.Device = (*Device)(nil)
