package faceapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/saturnino-fabrica-de-software/phiface/internal/audit"
	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
	"github.com/saturnino-fabrica-de-software/phiface/internal/provider"
)

const providerName = "faceapi"

// Detector implements provider.FaceDetector against the faceapi sidecar
type Detector struct {
	client      *Client
	auditLogger audit.Logger
	loaded      atomic.Bool
}

// NewDetector creates a new faceapi detector
func NewDetector(config Config, auditLogger audit.Logger) *Detector {
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	return &Detector{
		client:      NewClient(config),
		auditLogger: auditLogger,
	}
}

func (d *Detector) logAudit(ctx context.Context, eventType audit.EventType, success bool, err error, metadata map[string]string) {
	event := audit.Event{
		EventType: eventType,
		Provider:  providerName,
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = d.auditLogger.Log(ctx, event)
}

// LoadModels asks the sidecar to load its detector and landmark weights
func (d *Detector) LoadModels(ctx context.Context) error {
	resp, err := d.client.LoadModels(ctx)
	if err == nil && !resp.Loaded {
		err = fmt.Errorf("%w: %s", ErrModelLoad, resp.Error)
	}
	if err != nil {
		d.logAudit(ctx, audit.EventModelsLoaded, false, err, nil)
		if errors.Is(err, ErrModelLoad) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	d.loaded.Store(true)
	d.logAudit(ctx, audit.EventModelsLoaded, true, nil, map[string]string{
		"models": strconv.Itoa(len(resp.Models)),
	})
	return nil
}

func newDetectRequest(img *imagesrc.Image, opts provider.Options) DetectRequest {
	return DetectRequest{
		Img:           base64.StdEncoding.EncodeToString(img.Data),
		MinConfidence: opts.MinConfidence,
		InputSize:     opts.InputSize,
	}
}

// FindAllFaces runs the coarse detector
func (d *Detector) FindAllFaces(ctx context.Context, img *imagesrc.Image, opts provider.Options) ([]provider.BoundingBox, error) {
	if !d.loaded.Load() {
		return nil, provider.ErrModelsNotLoaded
	}

	resp, err := d.client.Detect(ctx, newDetectRequest(img, opts))
	if err != nil {
		d.logAudit(ctx, audit.EventFacesFound, false, err, nil)
		return nil, fmt.Errorf("find all faces: %w", err)
	}

	boxes := make([]provider.BoundingBox, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		if f.Score < opts.MinConfidence {
			continue
		}
		boxes = append(boxes, provider.BoundingBox(f.Box))
	}

	d.logAudit(ctx, audit.EventFacesFound, true, nil, map[string]string{
		"faces_count": strconv.Itoa(len(boxes)),
	})
	return boxes, nil
}

// FindSingleFaceWithLandmarks runs the landmark predictor. A nil face with a
// nil error means the pass settled without a usable face.
func (d *Detector) FindSingleFaceWithLandmarks(ctx context.Context, img *imagesrc.Image, opts provider.Options) (*provider.LandmarkedFace, error) {
	if !d.loaded.Load() {
		return nil, provider.ErrModelsNotLoaded
	}

	resp, err := d.client.Landmarks(ctx, newDetectRequest(img, opts))
	if err != nil {
		d.logAudit(ctx, audit.EventLandmarksDetected, false, err, nil)
		return nil, fmt.Errorf("find landmarks: %w", err)
	}

	if resp.Face == nil {
		d.logAudit(ctx, audit.EventLandmarksDetected, true, nil, map[string]string{"found": "false"})
		return nil, nil
	}
	if len(resp.Face.Landmarks) != provider.LandmarkCount {
		err := fmt.Errorf("%w: %d landmarks, want %d", ErrInvalidResponse, len(resp.Face.Landmarks), provider.LandmarkCount)
		d.logAudit(ctx, audit.EventLandmarksDetected, false, err, nil)
		return nil, err
	}

	face := &provider.LandmarkedFace{
		Box:   provider.BoundingBox(resp.Face.Box),
		Score: resp.Face.Score,
	}
	for i, pt := range resp.Face.Landmarks {
		face.Landmarks[i] = domain.Point{X: pt[0], Y: pt[1]}
	}

	d.logAudit(ctx, audit.EventLandmarksDetected, true, nil, map[string]string{
		"found": "true",
		"score": strconv.FormatFloat(face.Score, 'f', 3, 64),
	})
	return face, nil
}
