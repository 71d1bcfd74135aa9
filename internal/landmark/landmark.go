// Package landmark names the anatomical points of the 68-point landmark
// scheme that facial proportion measurements are anchored on.
package landmark

import (
	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/provider"
)

// Indices into the 68-point scheme. They are a fixed external contract of the
// landmark predictor.
const (
	JawStart       = 0  // widest jaw point, image left
	Chin           = 8  // bottom of the chin
	JawEnd         = 16 // widest jaw point, image right
	NoseBridge     = 27 // nasion, between the brows
	NoseTip        = 30
	NoseWingLeft   = 31
	NoseBase       = 33 // subnasale
	NoseWingRight  = 35
	UpperLipTop    = 51
	LowerLipBottom = 57

	JawContourLength = 17
	PointCount       = provider.LandmarkCount
)

// Points are the named anchors one measurement pass needs.
type Points struct {
	JawContour [JawContourLength]domain.Point

	JawLeft  domain.Point
	JawRight domain.Point
	Chin     domain.Point

	NoseBridge    domain.Point
	NoseTip       domain.Point
	NoseWingLeft  domain.Point
	NoseWingRight domain.Point
	NoseBase      domain.Point

	UpperLipTop    domain.Point
	LowerLipBottom domain.Point
}

// Extract picks the named anchors out of a landmark set. It is total: the
// caller guarantees the landmark pass succeeded.
func Extract(lm provider.Landmarks68) Points {
	var p Points
	copy(p.JawContour[:], lm[JawStart:JawEnd+1])

	p.JawLeft = lm[JawStart]
	p.JawRight = lm[JawEnd]
	p.Chin = lm[Chin]

	p.NoseBridge = lm[NoseBridge]
	p.NoseTip = lm[NoseTip]
	p.NoseWingLeft = lm[NoseWingLeft]
	p.NoseWingRight = lm[NoseWingRight]
	p.NoseBase = lm[NoseBase]

	p.UpperLipTop = lm[UpperLipTop]
	p.LowerLipBottom = lm[LowerLipBottom]
	return p
}
