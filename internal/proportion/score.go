package proportion

import (
	"math"

	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
)

// GoldenRatio is the reference value every ratio is scored against. It is
// the conventional rounded constant, not (1+√5)/2.
const GoldenRatio = 1.618

// Closeness is 1 - |v-phi|/phi. It is not clamped: a value of 0 or 2*phi
// scores 0 and anything beyond 2*phi scores below 0.
func Closeness(v, phi float64) float64 {
	return 1 - math.Abs(v-phi)/phi
}

// Scorer aggregates closeness values against Phi.
type Scorer struct {
	Phi float64
}

// NewScorer returns a Scorer for phi, falling back to GoldenRatio when phi is
// not positive.
func NewScorer(phi float64) Scorer {
	if phi <= 0 || math.IsNaN(phi) || math.IsInf(phi, 0) {
		phi = GoldenRatio
	}
	return Scorer{Phi: phi}
}

// Annotate fills the Closeness of each measurement.
func (s Scorer) Annotate(ratios [domain.RatioCount]domain.RatioMeasurement) [domain.RatioCount]domain.RatioMeasurement {
	for i := range ratios {
		ratios[i].Closeness = Closeness(ratios[i].Value, s.Phi)
	}
	return ratios
}

// Score is the arithmetic mean of the per-ratio closeness values.
func (s Scorer) Score(ratios [domain.RatioCount]domain.RatioMeasurement) float64 {
	var sum float64
	for _, r := range ratios {
		sum += Closeness(r.Value, s.Phi)
	}
	return sum / float64(len(ratios))
}
