// Package camera provides live camera streams from which single stills are
// captured for analysis.
package camera

import (
	"context"
	"errors"
)

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoDevice         = errors.New("no camera device available")
	ErrStreamStopped    = errors.New("camera stream stopped")
)

// Source opens live camera streams.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open camera. Stop releases every track and is safe to call
// more than once; Capture after Stop returns ErrStreamStopped.
type Stream interface {
	// Capture grabs the current frame as a JPEG still.
	Capture(ctx context.Context) ([]byte, error)
	ActiveTracks() int
	Stop()
}

// Unavailable is the Source used when the binary is built without camera
// support or no device is configured.
type Unavailable struct{}

func (Unavailable) Open(context.Context) (Stream, error) {
	return nil, ErrNoDevice
}
