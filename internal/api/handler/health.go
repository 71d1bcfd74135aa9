package handler

import (
	"github.com/gofiber/fiber/v2"
)

// ModelStatus reports whether the detector models are loaded.
type ModelStatus interface {
	Status() (bool, error)
}

type HealthHandler struct {
	models  ModelStatus
	version string
}

func NewHealthHandler(models ModelStatus, version string) *HealthHandler {
	return &HealthHandler{models: models, version: version}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Models  string `json:"models,omitempty"`
}

const (
	modelsLoading = "loading"
	modelsReady   = "ready"
	modelsFailed  = "failed"
)

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready answers 200 only once the models are loaded. A failed load stays
// failed until the process reloads them.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.models == nil {
		return c.JSON(HealthResponse{Status: "ready"})
	}

	ready, err := h.models.Status()
	switch {
	case ready:
		return c.JSON(HealthResponse{Status: "ready", Models: modelsReady})
	case err != nil:
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{Status: "unavailable", Models: modelsFailed})
	default:
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{Status: "unavailable", Models: modelsLoading})
	}
}
