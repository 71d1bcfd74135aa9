package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
)

const imageField = "image"

// ImageRequest is the JSON alternative to a multipart upload.
type ImageRequest struct {
	DataURL string `json:"data_url"`
}

// readImage decodes the request image, either the multipart field "image" or
// a JSON body with a data URL.
func readImage(ctx context.Context, c *fiber.Ctx, limits imagesrc.Limits) (*imagesrc.Image, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		data, err := readFormImage(c, limits.MaxBytes)
		if err != nil {
			return nil, err
		}
		return imagesrc.Decode(ctx, data, limits)
	}

	var req ImageRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, domain.ErrBadRequest.WithError(err)
	}
	if strings.TrimSpace(req.DataURL) == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("image or data_url is required"))
	}
	return imagesrc.DecodeDataURL(ctx, req.DataURL, limits)
}

func readFormImage(c *fiber.Ctx, maxBytes int64) ([]byte, error) {
	fileHeader, err := c.FormFile(imageField)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(errors.New("image field is required"))
	}
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return nil, imagesrc.ErrImageTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}
