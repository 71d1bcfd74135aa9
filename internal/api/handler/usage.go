package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/phiface/internal/usage"
)

type UsageService interface {
	GetUsage(ctx context.Context, from, to string) (*usage.Summary, error)
}

type UsageHandler struct {
	service UsageService
}

func NewUsageHandler(service UsageService) *UsageHandler {
	return &UsageHandler{service: service}
}

// GetUsage GET /v1/usage?from=YYYY-MM-DD&to=YYYY-MM-DD
// Both bounds are optional; the service defaults to the last 30 days.
func (h *UsageHandler) GetUsage(c *fiber.Ctx) error {
	from := strings.TrimSpace(c.Query("from"))
	to := strings.TrimSpace(c.Query("to"))

	summary, err := h.service.GetUsage(c.UserContext(), from, to)
	if err != nil {
		return err
	}

	// summaries are cached server side for a minute as well
	c.Set(fiber.HeaderCacheControl, "private, max-age=60")
	return c.JSON(summary)
}
