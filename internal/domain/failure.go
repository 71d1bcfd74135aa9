package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// FailureKind identifica o motivo pelo qual uma tentativa de análise terminou.
type FailureKind string

const (
	FailureModelLoad          FailureKind = "MODEL_LOAD_FAILED"
	FailureCameraPermission   FailureKind = "CAMERA_PERMISSION_DENIED"
	FailureNoFace             FailureKind = "NO_FACE_DETECTED"
	FailureMultipleFaces      FailureKind = "MULTIPLE_FACES_DETECTED"
	FailureDetectionTimeout   FailureKind = "DETECTION_TIMEOUT"
	FailureLandmarksNotFound  FailureKind = "LANDMARKS_NOT_FOUND"
	FailureAnalysisUnexpected FailureKind = "ANALYSIS_UNEXPECTED_ERROR"
)

// Failure is the terminal outcome of one analysis attempt. It carries no retry
// state: a retry re-enters the pipeline with a new image.
type Failure struct {
	Kind FailureKind `json:"kind"`
	// FaceCount is only set for FailureMultipleFaces.
	FaceCount int `json:"face_count,omitempty"`
	// Err is the internal cause. It is logged, never shown to the user.
	Err error `json:"-"`
}

func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

func MultipleFaces(count int) *Failure {
	return &Failure{Kind: FailureMultipleFaces, FaceCount: count}
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	if f.Kind == FailureMultipleFaces {
		return fmt.Sprintf("%s: %d faces", f.Kind, f.FaceCount)
	}
	return string(f.Kind)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches failures by kind, so errors.Is(err, &Failure{Kind: FailureNoFace}) works.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind
}

// Message returns the user-facing, actionable explanation for the failure.
func (f *Failure) Message() string {
	switch f.Kind {
	case FailureModelLoad:
		return "The face analysis models could not be loaded. Please reload and try again."
	case FailureCameraPermission:
		return "Camera access was denied. Allow camera access in your browser or upload a photo instead."
	case FailureNoFace:
		return "No face was detected. Make sure your face is clearly visible, well lit and facing the camera."
	case FailureMultipleFaces:
		return fmt.Sprintf("%d faces were detected. Please use a photo with only one face.", f.FaceCount)
	case FailureDetectionTimeout:
		return "Face analysis took too long. Please try again with a clearer or smaller photo."
	case FailureLandmarksNotFound:
		return "Facial features could not be located precisely. Face the camera directly and avoid covering your face."
	default:
		return "Something went wrong while analyzing the photo. Please try again with another image."
	}
}

// StatusCode maps the failure onto the HTTP status used by the API.
func (f *Failure) StatusCode() int {
	switch f.Kind {
	case FailureModelLoad:
		return http.StatusServiceUnavailable
	case FailureCameraPermission:
		return http.StatusForbidden
	case FailureNoFace, FailureMultipleFaces, FailureLandmarksNotFound:
		return http.StatusUnprocessableEntity
	case FailureDetectionTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// AsFailure returns the *Failure in err's chain, wrapping anything else as an
// unexpected analysis error.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return NewFailure(FailureAnalysisUnexpected, err)
}

// AppError renders the failure in the API error shape. Err stays attached for
// logging but Message only ever carries the user-facing text.
func (f *Failure) AppError() *AppError {
	return &AppError{
		Code:       string(f.Kind),
		Message:    f.Message(),
		StatusCode: f.StatusCode(),
		Err:        f,
	}
}

// FailureView is the rendering contract of a failure.
type FailureView struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	FaceCount int    `json:"face_count,omitempty"`
}

func (f *Failure) View() FailureView {
	return FailureView{
		Code:      string(f.Kind),
		Message:   f.Message(),
		FaceCount: f.FaceCount,
	}
}
