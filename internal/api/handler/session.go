package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
	"github.com/saturnino-fabrica-de-software/phiface/internal/session"
)

// SessionManager is the session surface the HTTP API drives.
type SessionManager interface {
	Create(ctx context.Context) (session.Session, error)
	Get(ctx context.Context, id uuid.UUID) (session.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	StartCamera(ctx context.Context, id uuid.UUID) (session.Session, error)
	Capture(ctx context.Context, id uuid.UUID) (session.Session, error)
	CancelCamera(ctx context.Context, id uuid.UUID) (session.Session, error)
	LoadImage(ctx context.Context, id uuid.UUID, img *imagesrc.Image) (session.Session, error)
	Reset(ctx context.Context, id uuid.UUID) (session.Session, error)
}

// SessionHandler exposes the interactive analysis flow. Every action answers
// with the session snapshot after the transition; detection results arrive
// later through GET or the websocket.
type SessionHandler struct {
	sessions SessionManager
	limits   imagesrc.Limits
}

func NewSessionHandler(sessions SessionManager, limits imagesrc.Limits) *SessionHandler {
	return &SessionHandler{sessions: sessions, limits: limits}
}

// Create POST /v1/sessions
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	s, err := h.sessions.Create(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(s.Snapshot())
}

// Get GET /v1/sessions/:id
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	return h.act(c, h.sessions.Get)
}

// Delete DELETE /v1/sessions/:id
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	if err := h.sessions.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StartCamera POST /v1/sessions/:id/camera
func (h *SessionHandler) StartCamera(c *fiber.Ctx) error {
	return h.act(c, h.sessions.StartCamera)
}

// Capture POST /v1/sessions/:id/camera/capture
func (h *SessionHandler) Capture(c *fiber.Ctx) error {
	return h.act(c, h.sessions.Capture)
}

// CancelCamera DELETE /v1/sessions/:id/camera
func (h *SessionHandler) CancelCamera(c *fiber.Ctx) error {
	return h.act(c, h.sessions.CancelCamera)
}

// Reset POST /v1/sessions/:id/reset
func (h *SessionHandler) Reset(c *fiber.Ctx) error {
	return h.act(c, h.sessions.Reset)
}

// LoadImage POST /v1/sessions/:id/image
func (h *SessionHandler) LoadImage(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	// fail fast on unknown sessions before decoding the upload
	if _, err := h.sessions.Get(c.UserContext(), id); err != nil {
		return err
	}

	img, err := readImage(c.UserContext(), c, h.limits)
	if err != nil {
		return err
	}

	s, err := h.sessions.LoadImage(c.UserContext(), id, img)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(s.Snapshot())
}

func (h *SessionHandler) act(c *fiber.Ctx, fn func(context.Context, uuid.UUID) (session.Session, error)) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	s, err := fn(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(s.Snapshot())
}

func sessionID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, domain.ErrSessionNotFound.WithError(errors.New("malformed session id"))
	}
	return id, nil
}
