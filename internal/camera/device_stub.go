//go:build !gocv

package camera

// NewDeviceSource returns Unavailable: this build has no OpenCV support.
func NewDeviceSource(deviceID int) Source {
	return Unavailable{}
}
