package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
)

// Recover turns a handler panic into a generic 500 so no stack or panic value
// reaches the client.
func Recover(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				requestID, _ := c.Locals(LocalRequestID).(string)
				logger.Error("panic in handler",
					slog.Any("panic", r),
					slog.String("method", c.Method()),
					slog.String("route", c.Route().Path),
					slog.String("request_id", requestID),
					slog.String("stack", string(debug.Stack())),
				)
				err = domain.ErrInternal
			}
		}()
		return c.Next()
	}
}
