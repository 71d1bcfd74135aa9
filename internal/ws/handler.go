package ws

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/phiface/internal/session"
)

// SessionGetter looks up the session a client subscribes to.
type SessionGetter interface {
	Get(ctx context.Context, id uuid.UUID) (session.Session, error)
}

// Handler upgrades /v1/sessions/:id/ws. The client first receives the current
// snapshot and then every update of the session.
func Handler(hub *Hub, sessions SessionGetter) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		sessionID, ok := c.Locals("session_id").(uuid.UUID)
		if !ok {
			_ = c.Close()
			return
		}

		client := newClient(hub, c, sessionID)
		if err := subscribe(context.Background(), hub, sessions, client); err != nil {
			_ = c.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
			_ = c.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}

var (
	errHubStopped      = errors.New("server shutting down")
	errSessionNotFound = errors.New("session not found")
)

// subscribe registers client before reading the session, so an update
// committed while the snapshot is read is still delivered after it.
func subscribe(ctx context.Context, hub *Hub, sessions SessionGetter, client *Client) error {
	if !hub.Register(client) {
		return errHubStopped
	}

	s, err := sessions.Get(ctx, client.sessionID)
	if err != nil {
		hub.Unregister(client)
		return errSessionNotFound
	}

	hub.SendSnapshot(client, s.Snapshot())
	return nil
}

// UpgradeMiddleware rejects non-websocket requests and stores the parsed
// session id for Handler.
func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.ErrBadRequest
		}
		c.Locals("session_id", id)
		return c.Next()
	}
}
