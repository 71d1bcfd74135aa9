// Package imagesrc turns uploaded bytes and camera frames into decoded,
// immutable image handles the analysis pipeline can consume.
package imagesrc

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxBytes = 10 << 20
	// DefaultMaxPixels caps width*height at roughly 40 MP. A few hundred KB of
	// compressed PNG can otherwise expand to gigabytes once decoded.
	DefaultMaxPixels = 40_000_000
	stillQuality     = 90
)

var (
	ErrEmptyImage        = errors.New("image is empty")
	ErrImageTooLarge     = errors.New("image exceeds maximum size")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrCorruptImage      = errors.New("image could not be decoded")
	ErrInvalidDataURL    = errors.New("invalid image data URL")
)

var supportedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"webp": true,
}

// Image is a fully decoded still. A handle is never mutated; every new upload
// or capture produces a new one with a new ID.
type Image struct {
	ID     uuid.UUID
	Data   []byte
	Format string
	Width  int
	Height int
	Pixels image.Image
}

// Limits bounds what Decode accepts. Zero fields fall back to the defaults.
type Limits struct {
	MaxBytes  int64
	MaxPixels int64
}

func DefaultLimits() Limits {
	return Limits{MaxBytes: DefaultMaxBytes, MaxPixels: DefaultMaxPixels}
}

func (l Limits) normalized() Limits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxBytes
	}
	if l.MaxPixels <= 0 {
		l.MaxPixels = DefaultMaxPixels
	}
	return l
}

type decodeResult struct {
	img    image.Image
	format string
	err    error
}

// Decode validates data and blocks until it is fully decoded, or ctx is done.
// Both the encoded size and the pixel count from the image header are checked
// before any pixel data is decoded.
func Decode(ctx context.Context, data []byte, limits Limits) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	limits = limits.normalized()
	if int64(len(data)) > limits.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes, maximum %d", ErrImageTooLarge, len(data), limits.MaxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}
	if !supportedFormats[format] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: zero-area image", ErrCorruptImage)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > limits.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d pixels, maximum %d", ErrImageTooLarge, cfg.Width, cfg.Height, limits.MaxPixels)
	}

	// buffered so the decoder goroutine never blocks if ctx wins
	done := make(chan decodeResult, 1)
	go func() {
		img, f, err := image.Decode(bytes.NewReader(data))
		done <- decodeResult{img: img, format: f, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptImage, res.err)
		}
		b := res.img.Bounds()
		return &Image{
			ID:     uuid.New(),
			Data:   data,
			Format: res.format,
			Width:  b.Dx(),
			Height: b.Dy(),
			Pixels: res.img,
		}, nil
	}
}

// DecodeDataURL decodes a "data:image/<format>;base64,<payload>" string.
func DecodeDataURL(ctx context.Context, s string, limits Limits) (*Image, error) {
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, ErrInvalidDataURL
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return Decode(ctx, data, limits)
}

// EncodeStill draws frame into a JPEG still, the way a camera capture is
// turned into an uploadable image.
func EncodeStill(frame image.Image) ([]byte, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: stillQuality}); err != nil {
		return nil, fmt.Errorf("encode still: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL renders img back into a data URL for clients that display it.
func (img *Image) DataURL() string {
	return "data:image/" + img.Format + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
