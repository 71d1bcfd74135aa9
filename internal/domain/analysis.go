package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type RatioName string

const (
	RatioFaceShape RatioName = "Face Shape (H/W)"
	RatioNose      RatioName = "Nose Proportions (L/W)"
	RatioLipChin   RatioName = "Lip-Chin / Nose-Lip"
)

// RatioCount is the number of ratios every result carries.
const RatioCount = 3

// RatioNames lists the measured ratios in their fixed presentation order.
var RatioNames = [RatioCount]RatioName{RatioFaceShape, RatioNose, RatioLipChin}

// RatioMeasurement representa uma razão geométrica nomeada
type RatioMeasurement struct {
	Name      RatioName `json:"name"`
	Value     float64   `json:"value"`
	Closeness float64   `json:"closeness"`
}

// Segment is a labelled line between two pixel coordinates.
type Segment struct {
	Label string `json:"label"`
	From  Point  `json:"from"`
	To    Point  `json:"to"`
}

// Overlay is what a renderer draws over the source image. Coordinates are in
// source pixels; scaling to the displayed size is the renderer's job.
type Overlay struct {
	JawContour []Point `json:"jaw_contour"`
	FaceHeight Segment `json:"face_height"`
	FaceWidth  Segment `json:"face_width"`
}

// AnalysisResult representa o resultado de uma análise bem sucedida
type AnalysisResult struct {
	ID          uuid.UUID                    `json:"id"`
	Ratios      [RatioCount]RatioMeasurement `json:"ratios"`
	Score       float64                      `json:"score"`
	Overlay     Overlay                      `json:"overlay"`
	ImageWidth  int                          `json:"image_width"`
	ImageHeight int                          `json:"image_height"`
	Duration    time.Duration                `json:"-"`
	CreatedAt   time.Time                    `json:"created_at"`
}

// DisplayPercent converts a closeness or score into a percentage clamped to
// [0, 100]. Stored values stay unclamped.
func DisplayPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	p := v * 100
	return math.Max(0, math.Min(100, p))
}

// RatioView is a RatioMeasurement with its display percentage.
type RatioView struct {
	RatioMeasurement
	ClosenessPercent float64 `json:"closeness_percent"`
}

// ResultView is the rendering contract of a successful analysis.
type ResultView struct {
	ID           uuid.UUID             `json:"id"`
	Ratios       [RatioCount]RatioView `json:"ratios"`
	Score        float64               `json:"score"`
	ScorePercent float64               `json:"score_percent"`
	Overlay      Overlay               `json:"overlay"`
	ImageWidth   int                   `json:"image_width"`
	ImageHeight  int                   `json:"image_height"`
	DurationMs   int64                 `json:"duration_ms"`
	CreatedAt    time.Time             `json:"created_at"`
}

func (r *AnalysisResult) View() ResultView {
	v := ResultView{
		ID:           r.ID,
		Score:        r.Score,
		ScorePercent: DisplayPercent(r.Score),
		Overlay:      r.Overlay,
		ImageWidth:   r.ImageWidth,
		ImageHeight:  r.ImageHeight,
		DurationMs:   r.Duration.Milliseconds(),
		CreatedAt:    r.CreatedAt,
	}
	for i, m := range r.Ratios {
		v.Ratios[i] = RatioView{RatioMeasurement: m, ClosenessPercent: DisplayPercent(m.Closeness)}
	}
	return v
}
