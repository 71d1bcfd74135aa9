package provider

import (
	"context"
	"errors"

	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
)

// LandmarkCount is the size of the 68-point landmark scheme every backend
// produces.
const LandmarkCount = 68

// ErrModelsNotLoaded is returned when a detector is used before LoadModels
// completed successfully.
var ErrModelsNotLoaded = errors.New("detector models not loaded")

// FaceDetector define a interface para detectores de face com landmarks
type FaceDetector interface {
	// LoadModels carrega os modelos do detector, deve ser chamado antes de qualquer detecção
	LoadModels(ctx context.Context) error

	// FindAllFaces executa a passada rápida e retorna todas as faces encontradas
	FindAllFaces(ctx context.Context, img *imagesrc.Image, opts Options) ([]BoundingBox, error)

	// FindSingleFaceWithLandmarks retorna a face com seus 68 landmarks, ou nil se ausente
	FindSingleFaceWithLandmarks(ctx context.Context, img *imagesrc.Image, opts Options) (*LandmarkedFace, error)
}

// Options are the detector tunables shared by both passes.
type Options struct {
	MinConfidence float64 `json:"min_confidence"`
	InputSize     int     `json:"input_size"`
}

// BoundingBox represents the face area in the image, in pixels
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Landmarks68 is indexed by the fixed anatomical positions of the 68-point
// scheme. Coordinates are in source image pixels.
type Landmarks68 [LandmarkCount]domain.Point

// LandmarkedFace is the outcome of a successful landmark pass.
type LandmarkedFace struct {
	Box       BoundingBox `json:"box"`
	Landmarks Landmarks68 `json:"landmarks"`
	Score     float64     `json:"score"`
}

// FaceDetection is the transient value handed from the orchestrator to the
// geometry extractor. It is discarded once ratios are computed.
type FaceDetection struct {
	BoundingBoxes []BoundingBox
	// Landmarks is set only when the landmark pass succeeded for exactly one face.
	Landmarks *Landmarks68
	Score     float64
}
