package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/phiface/internal/audit"
	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
	"github.com/saturnino-fabrica-de-software/phiface/internal/landmark"
	"github.com/saturnino-fabrica-de-software/phiface/internal/metrics"
	"github.com/saturnino-fabrica-de-software/phiface/internal/overlay"
	"github.com/saturnino-fabrica-de-software/phiface/internal/proportion"
	"github.com/saturnino-fabrica-de-software/phiface/internal/provider"
	"github.com/saturnino-fabrica-de-software/phiface/internal/usage"
)

// FaceFinder is the detection step. *detection.Orchestrator implements it.
type FaceFinder interface {
	Detect(ctx context.Context, img *imagesrc.Image) (*provider.FaceDetection, error)
}

type AnalysisService struct {
	finder  FaceFinder
	scorer  proportion.Scorer
	metrics *metrics.PipelineMetrics
	tracker usage.Tracker
	logger  *slog.Logger
	now     func() time.Time
}

func NewAnalysisService(finder FaceFinder, scorer proportion.Scorer, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		finder:  finder,
		scorer:  scorer,
		tracker: usage.NoOpTracker{},
		logger:  logger.With("component", "analysis"),
		now:     time.Now,
	}
}

func (s *AnalysisService) WithMetrics(m *metrics.PipelineMetrics) *AnalysisService {
	s.metrics = m
	return s
}

func (s *AnalysisService) WithUsageTracker(t usage.Tracker) *AnalysisService {
	if t != nil {
		s.tracker = t
	}
	return s
}

// Analyze runs one image through detection, geometry extraction, ratio
// calculation, scoring and overlay construction. Any error returned is a
// *domain.Failure.
func (s *AnalysisService) Analyze(ctx context.Context, img *imagesrc.Image) (*domain.AnalysisResult, error) {
	start := s.now()
	log := s.logger.With("session_id", audit.SessionIDFromContext(ctx), "image_id", img.ID)

	det, err := s.finder.Detect(ctx, img)
	if err != nil {
		return nil, s.fail(ctx, log, start, domain.AsFailure(err))
	}
	if det == nil || det.Landmarks == nil {
		return nil, s.fail(ctx, log, start, domain.NewFailure(domain.FailureLandmarksNotFound, nil))
	}

	points := landmark.Extract(*det.Landmarks)

	ratios, err := proportion.ComputeRatios(points)
	if err != nil {
		return nil, s.fail(ctx, log, start,
			domain.NewFailure(domain.FailureLandmarksNotFound, fmt.Errorf("compute ratios: %w", err)))
	}
	ratios = s.scorer.Annotate(ratios)

	result := &domain.AnalysisResult{
		ID:          uuid.New(),
		Ratios:      ratios,
		Score:       s.scorer.Score(ratios),
		Overlay:     overlay.Build(points),
		ImageWidth:  img.Width,
		ImageHeight: img.Height,
		CreatedAt:   s.now().UTC(),
	}
	result.Duration = s.now().Sub(start)

	s.metrics.RecordAnalysis(metrics.OutcomeSuccess, result.Duration)
	s.metrics.ObserveScore(result.Score)
	s.tracker.Track(ctx, true)

	log.Info("analysis completed",
		"result_id", result.ID,
		"score", result.Score,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *AnalysisService) fail(ctx context.Context, log *slog.Logger, start time.Time, f *domain.Failure) *domain.Failure {
	d := s.now().Sub(start)
	s.metrics.RecordAnalysis(string(f.Kind), d)
	s.tracker.Track(ctx, false)

	if f.Kind == domain.FailureAnalysisUnexpected {
		log.Error("analysis failed", "kind", f.Kind, "error", f.Err, "duration", d)
	} else {
		log.Info("analysis rejected", "kind", f.Kind, "duration", d)
	}
	return f
}
