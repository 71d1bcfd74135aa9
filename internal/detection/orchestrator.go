// Package detection validates that an image holds exactly one analysable face
// and obtains its landmarks within a bounded time budget.
package detection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/phiface/internal/audit"
	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
	"github.com/saturnino-fabrica-de-software/phiface/internal/provider"
)

// Config holds the detector tunables and the landmark time budget.
type Config struct {
	MinConfidence float64
	InputSize     int
	Timeout       time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.5,
		InputSize:     416,
		Timeout:       15 * time.Second,
	}
}

// Readiness gates detector use on model load completion.
type Readiness interface {
	Ready(ctx context.Context) error
}

// Orchestrator runs the coarse pass, the single-face check and the landmark
// pass, and classifies every outcome into a *domain.Failure.
type Orchestrator struct {
	detector provider.FaceDetector
	models   Readiness
	config   Config
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator. Zero config fields fall back to
// DefaultConfig.
func NewOrchestrator(detector provider.FaceDetector, models Readiness, cfg Config, logger *slog.Logger) *Orchestrator {
	def := DefaultConfig()
	if cfg.InputSize <= 0 {
		cfg.InputSize = def.InputSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Orchestrator{
		detector: detector,
		models:   models,
		config:   cfg,
		logger:   logger.With("component", "detection"),
	}
}

type landmarkResult struct {
	face *provider.LandmarkedFace
	err  error
}

// Detect returns the face detection for img or a *domain.Failure. It never
// retries. The landmark pass is raced against the configured timeout; when the
// timer wins the detector call is left running and its eventual result is
// dropped.
func (o *Orchestrator) Detect(ctx context.Context, img *imagesrc.Image) (*provider.FaceDetection, error) {
	log := o.logger.With("session_id", audit.SessionIDFromContext(ctx), "image_id", img.ID)

	if err := o.models.Ready(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, o.fail(log, domain.NewFailure(domain.FailureAnalysisUnexpected, err))
		}
		return nil, o.fail(log, domain.NewFailure(domain.FailureModelLoad, err))
	}

	opts := provider.Options{MinConfidence: o.config.MinConfidence, InputSize: o.config.InputSize}

	boxes, err := o.detector.FindAllFaces(ctx, img, opts)
	if err != nil {
		return nil, o.fail(log, classifyDetectorError(err))
	}
	switch n := len(boxes); {
	case n == 0:
		return nil, o.fail(log, domain.NewFailure(domain.FailureNoFace, nil))
	case n > 1:
		return nil, o.fail(log, domain.MultipleFaces(n))
	}

	// buffered so a late landmark pass never blocks after the timer won
	results := make(chan landmarkResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- landmarkResult{err: fmt.Errorf("landmark pass panicked: %v", r)}
			}
		}()
		face, err := o.detector.FindSingleFaceWithLandmarks(ctx, img, opts)
		results <- landmarkResult{face: face, err: err}
	}()

	timer := time.NewTimer(o.config.Timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil, o.fail(log, domain.NewFailure(domain.FailureDetectionTimeout,
			fmt.Errorf("landmark pass exceeded %s", o.config.Timeout)))
	case <-ctx.Done():
		return nil, o.fail(log, domain.NewFailure(domain.FailureAnalysisUnexpected, ctx.Err()))
	case res := <-results:
		if res.err != nil {
			return nil, o.fail(log, classifyDetectorError(res.err))
		}
		if res.face == nil {
			return nil, o.fail(log, domain.NewFailure(domain.FailureLandmarksNotFound, nil))
		}

		lm := res.face.Landmarks
		log.Debug("face detected", "score", res.face.Score)
		return &provider.FaceDetection{
			BoundingBoxes: boxes,
			Landmarks:     &lm,
			Score:         res.face.Score,
		}, nil
	}
}

func classifyDetectorError(err error) *domain.Failure {
	if errors.Is(err, provider.ErrModelsNotLoaded) {
		return domain.NewFailure(domain.FailureModelLoad, err)
	}
	return domain.NewFailure(domain.FailureAnalysisUnexpected, err)
}

func (o *Orchestrator) fail(log *slog.Logger, f *domain.Failure) *domain.Failure {
	attrs := []any{"kind", f.Kind}
	if f.Kind == domain.FailureMultipleFaces {
		attrs = append(attrs, "faces", f.FaceCount)
	}
	if f.Err != nil {
		attrs = append(attrs, "error", f.Err)
	}

	switch f.Kind {
	case domain.FailureAnalysisUnexpected, domain.FailureModelLoad:
		log.Error("detection failed", attrs...)
	default:
		log.Info("detection rejected", attrs...)
	}
	return f
}
