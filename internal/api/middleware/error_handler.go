package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/phiface/internal/camera"
	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
	"github.com/saturnino-fabrica-de-software/phiface/internal/session"
	"github.com/saturnino-fabrica-de-software/phiface/internal/usage"
)

func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// Check if it's a Fiber error
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "HTTP_ERROR",
					"message": fiberErr.Message,
				},
			})
		}

		// Analysis failures carry their own user-facing message
		var failure *domain.Failure
		if errors.As(err, &failure) {
			if failure.Kind == domain.FailureAnalysisUnexpected || failure.Kind == domain.FailureModelLoad {
				logger.Error("analysis failed",
					slog.String("code", string(failure.Kind)),
					slog.Any("error", failure.Err),
					slog.String("path", c.Path()),
				)
			}
			return c.Status(failure.StatusCode()).JSON(fiber.Map{
				"error": failure.View(),
			})
		}

		appErr := toAppError(err)
		if appErr == nil {
			// Unknown error - log and return generic message
			logger.Error("unhandled error",
				slog.Any("error", err),
				slog.String("path", c.Path()),
			)
			appErr = domain.ErrInternal
		} else if appErr.StatusCode >= 500 {
			logger.Error("internal error",
				slog.String("code", appErr.Code),
				slog.String("message", appErr.Message),
				slog.Any("error", appErr.Err),
			)
		}

		return c.Status(appErr.StatusCode).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
	}
}

// toAppError maps package sentinel errors onto the API error catalogue. It
// returns nil for errors it does not know.
func toAppError(err error) *domain.AppError {
	var appErr *domain.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, session.ErrNotFound):
		return domain.ErrSessionNotFound.WithError(err)
	case errors.Is(err, session.ErrInvalidTransition):
		return domain.ErrInvalidTransition.WithError(err)
	case errors.Is(err, session.ErrClosed):
		return domain.ErrShuttingDown.WithError(err)
	case errors.Is(err, camera.ErrNoDevice):
		return domain.ErrCameraUnavailable.WithError(err)
	case errors.Is(err, imagesrc.ErrImageTooLarge):
		return domain.ErrImageTooLarge.WithError(err)
	case errors.Is(err, imagesrc.ErrEmptyImage),
		errors.Is(err, imagesrc.ErrUnsupportedFormat),
		errors.Is(err, imagesrc.ErrCorruptImage),
		errors.Is(err, imagesrc.ErrInvalidDataURL):
		return domain.ErrInvalidImage.WithError(err)
	case errors.Is(err, usage.ErrInvalidRange):
		return &domain.AppError{
			Code:       domain.ErrValidationFailed.Code,
			Message:    err.Error(),
			StatusCode: domain.ErrValidationFailed.StatusCode,
			Err:        err,
		}
	}
	return nil
}
