//go:build gocv

package camera

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// DeviceSource opens a local video device through OpenCV.
type DeviceSource struct {
	DeviceID int
	Width    int
	Height   int
}

// NewDeviceSource returns a Source for deviceID with 720p frames.
func NewDeviceSource(deviceID int) Source {
	return &DeviceSource{DeviceID: deviceID, Width: 1280, Height: 720}
}

func (s *DeviceSource) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	webcam, err := gocv.OpenVideoCapture(s.DeviceID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "permission") {
			return nil, fmt.Errorf("%w: device %d", ErrPermissionDenied, s.DeviceID)
		}
		return nil, fmt.Errorf("%w: device %d: %v", ErrNoDevice, s.DeviceID, err)
	}
	if !webcam.IsOpened() {
		_ = webcam.Close()
		return nil, fmt.Errorf("%w: device %d", ErrNoDevice, s.DeviceID)
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(s.Width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(s.Height))

	return &deviceStream{webcam: webcam, deviceID: s.DeviceID}, nil
}

type deviceStream struct {
	webcam   *gocv.VideoCapture
	deviceID int
	mu       sync.Mutex
}

func (d *deviceStream) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.webcam == nil {
		return nil, ErrStreamStopped
	}

	frame := gocv.NewMat()
	defer frame.Close()

	if ok := d.webcam.Read(&frame); !ok || frame.Empty() {
		return nil, fmt.Errorf("read frame from camera %d", d.deviceID)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("encode still: %w", err)
	}
	defer buf.Close()

	still := make([]byte, buf.Len())
	copy(still, buf.GetBytes())
	return still, nil
}

func (d *deviceStream) ActiveTracks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.webcam == nil {
		return 0
	}
	return 1
}

func (d *deviceStream) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.webcam != nil {
		_ = d.webcam.Close()
		d.webcam = nil
	}
}
