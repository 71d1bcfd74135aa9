// Package overlay builds the drawing instructions a renderer overlays on the
// analysed image.
package overlay

import (
	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/landmark"
)

const (
	LabelFaceHeight = "face height"
	LabelFaceWidth  = "face width"
)

// Build returns the jaw polyline and the two face-shape segments in source
// image pixels.
func Build(p landmark.Points) domain.Overlay {
	jaw := make([]domain.Point, len(p.JawContour))
	copy(jaw, p.JawContour[:])

	return domain.Overlay{
		JawContour: jaw,
		FaceHeight: domain.Segment{Label: LabelFaceHeight, From: p.Chin, To: p.NoseBridge},
		FaceWidth:  domain.Segment{Label: LabelFaceWidth, From: p.JawLeft, To: p.JawRight},
	}
}
