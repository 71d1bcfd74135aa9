package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/phiface/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
)

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestApp wires the production error handler so responses match the API.
func createTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(testLogger())})
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	data, err := imagesrc.EncodeStill(image.NewGray(image.Rect(0, 0, 16, 12)))
	require.NoError(t, err)
	return data
}

func testDataURL(t *testing.T) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(testJPEG(t))
}

// createMultipartRequest builds a multipart body with the image under field.
func createMultipartRequest(t *testing.T, method, target, field string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if content != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="face.jpg"`)
		h.Set("Content-Type", "image/jpeg")

		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write(content)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func createJSONRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()

	b, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		FaceCount int    `json:"face_count"`
	} `json:"error"`
}

func decode[T any](t *testing.T, r io.Reader) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(r).Decode(&v))
	return v
}
