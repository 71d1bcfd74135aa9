package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
)

// Analyzer runs the full proportion pipeline on one image.
type Analyzer interface {
	Analyze(ctx context.Context, img *imagesrc.Image) (*domain.AnalysisResult, error)
}

// AnalysisHandler serves one-shot analyses that do not need a session.
type AnalysisHandler struct {
	analyzer Analyzer
	limits   imagesrc.Limits
	logger   *slog.Logger
}

func NewAnalysisHandler(analyzer Analyzer, limits imagesrc.Limits, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		limits:   limits,
		logger:   logger.With("component", "analysis_handler"),
	}
}

// Create POST /v1/analyses
func (h *AnalysisHandler) Create(c *fiber.Ctx) error {
	img, err := readImage(c.UserContext(), c, h.limits)
	if err != nil {
		return err
	}

	result, err := h.analyzer.Analyze(c.UserContext(), img)
	if err != nil {
		return domain.AsFailure(err)
	}

	h.logger.Debug("analysis served",
		"image_id", img.ID,
		"score", result.Score,
	)

	return c.JSON(result.View())
}
