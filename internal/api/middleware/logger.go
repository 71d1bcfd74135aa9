package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LocalRequestID is where the requestid middleware stores the request ID.
const LocalRequestID = "requestid"

// Logger writes one structured line per request. The level follows the
// response status.
func Logger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()
		if err != nil {
			// render through the app error handler so the logged status is final
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}

		status := c.Response().StatusCode()

		logLevel := slog.LevelInfo
		if status >= 500 {
			logLevel = slog.LevelError
		} else if status >= 400 {
			logLevel = slog.LevelWarn
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
		}
		if id, ok := c.Locals(LocalRequestID).(string); ok && id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if sessionID := c.Params("id"); sessionID != "" {
			attrs = append(attrs, slog.String("session_id", sessionID))
		}

		logger.Log(c.UserContext(), logLevel, "http request", attrs...)

		return err
	}
}
