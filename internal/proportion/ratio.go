// Package proportion computes facial ratios from landmark anchors and scores
// them against the golden ratio.
package proportion

import (
	"errors"
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/landmark"
)

// ErrDegenerateAnchors means an anchor pair collapsed to zero (or non-finite)
// length, so at least one ratio is undefined.
var ErrDegenerateAnchors = errors.New("degenerate landmark anchors")

type anchorPair struct {
	name     string
	from, to domain.Point
}

// ComputeRatios returns the three measurements in fixed order. Closeness is
// left zero; see Scorer.Annotate.
func ComputeRatios(p landmark.Points) ([domain.RatioCount]domain.RatioMeasurement, error) {
	var out [domain.RatioCount]domain.RatioMeasurement

	pairs := [...]anchorPair{
		{"face height", p.Chin, p.NoseBridge},
		{"face width", p.JawLeft, p.JawRight},
		{"nose length", p.NoseBridge, p.NoseTip},
		{"nose width", p.NoseWingLeft, p.NoseWingRight},
		{"lip to chin", p.LowerLipBottom, p.Chin},
		{"nose to lip", p.NoseBase, p.UpperLipTop},
	}

	var d [len(pairs)]float64
	for i, pair := range pairs {
		d[i] = domain.Distance(pair.from, pair.to)
		if d[i] == 0 || math.IsNaN(d[i]) || math.IsInf(d[i], 0) {
			return out, fmt.Errorf("%w: %s is %v", ErrDegenerateAnchors, pair.name, d[i])
		}
	}

	values := [domain.RatioCount]float64{d[0] / d[1], d[2] / d[3], d[4] / d[5]}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return out, fmt.Errorf("%w: %s = %v", ErrDegenerateAnchors, domain.RatioNames[i], v)
		}
		out[i] = domain.RatioMeasurement{Name: domain.RatioNames[i], Value: v}
	}
	return out, nil
}
