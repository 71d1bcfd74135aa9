package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// PointData is a pixel coordinate in the analysed image
type PointData struct {
	X float64 `json:"x" example:"200"`
	Y float64 `json:"y" example:"110"`
}

// SegmentData is a labelled measurement line
type SegmentData struct {
	Label string    `json:"label" example:"Face height"`
	From  PointData `json:"from"`
	To    PointData `json:"to"`
}

// OverlayData is what clients draw over the image
type OverlayData struct {
	JawContour []PointData  `json:"jaw_contour"`
	FaceHeight SegmentData `json:"face_height"`
	FaceWidth  SegmentData `json:"face_width"`
}

// RatioData is one measured ratio
type RatioData struct {
	Name             string  `json:"name" example:"Face Shape (H/W)"`
	Value            float64 `json:"value" example:"1.05"`
	Closeness        float64 `json:"closeness" example:"0.649"`
	ClosenessPercent float64 `json:"closeness_percent" example:"64.9"`
}

// AnalysisResponse is a successful proportion analysis
type AnalysisResponse struct {
	ID           string      `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Ratios       []RatioData `json:"ratios"`
	Score        float64     `json:"score" example:"0.716"`
	ScorePercent float64     `json:"score_percent" example:"71.6"`
	Overlay      OverlayData `json:"overlay"`
	ImageWidth   int         `json:"image_width" example:"640"`
	ImageHeight  int         `json:"image_height" example:"480"`
	DurationMs   int64       `json:"duration_ms" example:"180"`
	CreatedAt    string      `json:"created_at" example:"2026-01-01T00:00:00Z"`
}

// FailureData is the user-facing description of a failed analysis
type FailureData struct {
	Code      string `json:"code" example:"MULTIPLE_FACES_DETECTED"`
	Message   string `json:"message" example:"2 faces were detected. Please use a photo with only one face."`
	FaceCount int    `json:"face_count,omitempty" example:"2"`
}

// SessionResponse is the snapshot of an analysis session
type SessionResponse struct {
	ID          string            `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Mode        string            `json:"mode" example:"image_loaded"`
	Status      string            `json:"status" example:"succeeded"`
	Origin      string            `json:"origin,omitempty" example:"upload"`
	Generation  uint64            `json:"generation" example:"1"`
	Revision    uint64            `json:"revision" example:"3"`
	ImageID     string            `json:"image_id,omitempty" example:"9b2f6c1e-0f61-4c0a-8d4e-3c1f5f0b7a21"`
	ImageWidth  int               `json:"image_width,omitempty" example:"640"`
	ImageHeight int               `json:"image_height,omitempty" example:"480"`
	Result      *AnalysisResponse `json:"result,omitempty"`
	Failure     *FailureData      `json:"failure,omitempty"`
	UpdatedAt   string            `json:"updated_at" example:"2026-01-01T00:00:00Z"`
}

// DataURLRequest is the JSON alternative to a multipart upload
type DataURLRequest struct {
	DataURL string `json:"data_url" example:"data:image/jpeg;base64,/9j/4AAQSkZJRg..."`
}

// UsageTotals are summed counters of a period
type UsageTotals struct {
	Analyses    int     `json:"analyses" example:"120"`
	Succeeded   int     `json:"succeeded" example:"97"`
	Failed      int     `json:"failed" example:"23"`
	SuccessRate float64 `json:"success_rate" example:"80.83"`
}

// UsageDay is one day of counters
type UsageDay struct {
	Date      string `json:"date" example:"2026-01-01T00:00:00Z"`
	Analyses  int    `json:"analyses" example:"12"`
	Succeeded int    `json:"succeeded" example:"10"`
	Failed    int    `json:"failed" example:"2"`
}

// UsageResponse summarises daily analysis counters
type UsageResponse struct {
	From   string      `json:"from" example:"2026-01-01"`
	To     string      `json:"to" example:"2026-01-30"`
	Totals UsageTotals `json:"totals"`
	Days   []UsageDay  `json:"days"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

var (
	errInternal        = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
	errSessionNotFound = response.New(ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "Analysis session not found or expired"}, "404", "Not Found")
	errTransition      = response.New(ErrorResponse{Code: "INVALID_TRANSITION", Message: "Action not allowed in the current session state"}, "409", "Conflict")
	errInvalidImage    = response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity")
	errImageTooLarge   = response.New(ErrorResponse{Code: "IMAGE_TOO_LARGE", Message: "Image exceeds the maximum allowed size"}, "413", "Payload Too Large")
)

var sessionIDParam = parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session UUID"))

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "phiface API",
		Version:     "v1.0.0",
		Description: "Measures three facial proportions against the golden ratio and returns a score with a drawable overlay",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/analyses - One-shot analysis
		endpoint.New(
			endpoint.POST,
			"/analyses",
			endpoint.WithTags("Analyses"),
			endpoint.WithSummary("Analyse one photo"),
			endpoint.WithDescription("Runs detection and proportion scoring on a multipart field named image, or on a JSON body with a data_url. Accepts JPEG, PNG and WebP."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data"), mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AnalysisResponse{}, "200", "Analysis completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "image or data_url is required"}, "422", "Unprocessable Entity"),
				errInvalidImage,
				errImageTooLarge,
				response.New(FailureData{Code: "NO_FACE_DETECTED", Message: "No face was detected. Make sure your face is clearly visible, well lit and facing the camera."}, "422", "No face"),
				response.New(FailureData{Code: "LANDMARKS_NOT_FOUND", Message: "Facial features could not be located precisely."}, "422", "Landmarks not found"),
				response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Rate limit exceeded, please try again later"}, "429", "Too Many Requests"),
				response.New(FailureData{Code: "MODEL_LOAD_FAILED", Message: "The face analysis models could not be loaded."}, "503", "Models unavailable"),
				response.New(FailureData{Code: "DETECTION_TIMEOUT", Message: "Face analysis took too long."}, "504", "Detection timeout"),
				errInternal,
			}),
		),

		// POST /v1/sessions - Create session
		endpoint.New(
			endpoint.POST,
			"/sessions",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Create an analysis session"),
			endpoint.WithDescription("Creates a session in source selection. Sessions expire after a period without activity."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "201", "Session created"),
			}),
			endpoint.WithErrors([]response.Response{errInternal}),
		),

		// GET /v1/sessions/{id} - Get session
		endpoint.New(
			endpoint.GET,
			"/sessions/{id}",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Get session snapshot"),
			endpoint.WithDescription("Returns the current mode, status and, once detection has finished, the result or failure."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(sessionIDParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Session snapshot"),
			}),
			endpoint.WithErrors([]response.Response{errSessionNotFound, errInternal}),
		),

		// DELETE /v1/sessions/{id} - Delete session
		endpoint.New(
			endpoint.DELETE,
			"/sessions/{id}",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Delete a session"),
			endpoint.WithDescription("Releases the camera, abandons any detection in flight and removes the session."),
			endpoint.WithParams(sessionIDParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Session deleted"),
			}),
			endpoint.WithErrors([]response.Response{errSessionNotFound}),
		),

		// POST /v1/sessions/{id}/camera - Start camera
		endpoint.New(
			endpoint.POST,
			"/sessions/{id}/camera",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Start the camera"),
			endpoint.WithDescription("Opens the host camera. A denied permission is reported inside the snapshot as CAMERA_PERMISSION_DENIED and the session returns to source selection."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(sessionIDParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Camera live, or permission denied"),
			}),
			endpoint.WithErrors([]response.Response{
				errSessionNotFound,
				errTransition,
				response.New(ErrorResponse{Code: "CAMERA_UNAVAILABLE", Message: "No camera is available on this host, please upload a photo instead"}, "503", "Service Unavailable"),
			}),
		),

		// POST /v1/sessions/{id}/camera/capture - Capture still
		endpoint.New(
			endpoint.POST,
			"/sessions/{id}/camera/capture",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Capture a still"),
			endpoint.WithDescription("Captures one frame, stops the camera and starts detection on the still."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(sessionIDParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Detection started"),
			}),
			endpoint.WithErrors([]response.Response{errSessionNotFound, errTransition, errInvalidImage, errInternal}),
		),

		// DELETE /v1/sessions/{id}/camera - Cancel camera
		endpoint.New(
			endpoint.DELETE,
			"/sessions/{id}/camera",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Cancel the camera"),
			endpoint.WithDescription("Stops the camera and returns to source selection."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(sessionIDParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Camera stopped"),
			}),
			endpoint.WithErrors([]response.Response{errSessionNotFound, errTransition}),
		),

		// POST /v1/sessions/{id}/image - Upload image
		endpoint.New(
			endpoint.POST,
			"/sessions/{id}/image",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Load an image"),
			endpoint.WithDescription("Replaces the session image and starts detection. A result for a previous image is discarded."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data"), mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(sessionIDParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "202", "Detection started"),
			}),
			endpoint.WithErrors([]response.Response{errSessionNotFound, errInvalidImage, errImageTooLarge}),
		),

		// POST /v1/sessions/{id}/reset - Reset
		endpoint.New(
			endpoint.POST,
			"/sessions/{id}/reset",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Reset the session"),
			endpoint.WithDescription("Clears image, result and failure and returns to source selection."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(sessionIDParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Session reset"),
			}),
			endpoint.WithErrors([]response.Response{errSessionNotFound}),
		),

		// GET /v1/usage - Usage counters
		endpoint.New(
			endpoint.GET,
			"/usage",
			endpoint.WithTags("Usage"),
			endpoint.WithSummary("Get daily analysis counters"),
			endpoint.WithDescription("Returns analysis counts per day. Only available when a database is configured."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("from", parameter.Query, parameter.WithDescription("Start date (YYYY-MM-DD, default: 29 days before to)")),
				parameter.StrParam("to", parameter.Query, parameter.WithDescription("End date (YYYY-MM-DD, default: today)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(UsageResponse{}, "200", "Usage retrieved"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "USAGE_DISABLED", Message: "Usage counters are not enabled on this server"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "invalid usage range: from is after to"}, "422", "Unprocessable Entity"),
				errInternal,
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
