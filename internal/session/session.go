// Package session holds the analysis session state machine. Session is a
// value: every transition returns a new Session and leaves its receiver
// untouched, so the Manager can keep the previous value when a transition is
// rejected.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
)

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrInvalidState      = errors.New("invalid session state")
)

type Mode string

const (
	ModeSelectingSource Mode = "selecting_source"
	ModeCameraLive      Mode = "camera_live"
	ModeImageLoaded     Mode = "image_loaded"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusDetecting Status = "detecting"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Origin records where the loaded image came from.
type Origin string

const (
	OriginNone   Origin = ""
	OriginUpload Origin = "upload"
	OriginCamera Origin = "camera"
)

type Session struct {
	ID     uuid.UUID
	Mode   Mode
	Status Status
	Origin Origin
	Image  *imagesrc.Image
	// Generation changes whenever the image is replaced or the session is
	// reset. A detection result is applied only under the generation it
	// started with.
	Generation uint64
	Result     *domain.AnalysisResult
	Failure    *domain.Failure
	// Revision increases by one with every committed change, so observers can
	// tell an older snapshot from a newer one.
	Revision  uint64
	UpdatedAt time.Time
}

func New(id uuid.UUID) Session {
	return Session{
		ID:     id,
		Mode:   ModeSelectingSource,
		Status: StatusIdle,
	}
}

func (s Session) StartCamera() (Session, error) {
	if s.Mode != ModeSelectingSource {
		return s, invalid("start camera", s)
	}
	next := s.clear()
	next.Mode = ModeCameraLive
	return next, nil
}

func (s Session) CancelCamera() (Session, error) {
	if s.Mode != ModeCameraLive {
		return s, invalid("cancel camera", s)
	}
	next := s.clear()
	next.Mode = ModeSelectingSource
	return next, nil
}

// CameraDenied records a rejected stream request. The session goes back to
// source selection carrying the failure.
func (s Session) CameraDenied(err error) (Session, error) {
	if s.Mode != ModeSelectingSource && s.Mode != ModeCameraLive {
		return s, invalid("deny camera", s)
	}
	next := s.clear()
	next.Mode = ModeSelectingSource
	next.Status = StatusFailed
	next.Failure = domain.NewFailure(domain.FailureCameraPermission, err)
	return next, nil
}

// LoadImage replaces the image from any state. The result and failure are
// cleared and the generation advances, which invalidates any detection still
// in flight.
func (s Session) LoadImage(img *imagesrc.Image, origin Origin) (Session, error) {
	if img == nil {
		return s, fmt.Errorf("%w: load image without image", ErrInvalidTransition)
	}
	next := s.clear()
	next.Mode = ModeImageLoaded
	next.Origin = origin
	next.Image = img
	next.Generation = s.Generation + 1
	return next, nil
}

// BeginDetection moves ImageLoaded(Idle) to ImageLoaded(Detecting).
func (s Session) BeginDetection() (Session, error) {
	if s.Mode != ModeImageLoaded || s.Status != StatusIdle || s.Image == nil {
		return s, invalid("begin detection", s)
	}
	next := s
	next.Status = StatusDetecting
	return next, nil
}

// CompleteDetection applies the outcome of the detection started under
// generation gen. A stale generation, or a session that is no longer
// detecting, is returned unchanged with applied=false.
func (s Session) CompleteDetection(gen uint64, result *domain.AnalysisResult, err error) (next Session, applied bool) {
	if gen != s.Generation || s.Mode != ModeImageLoaded || s.Status != StatusDetecting {
		return s, false
	}

	next = s
	switch {
	case err != nil:
		next.Status = StatusFailed
		next.Failure = domain.AsFailure(err)
	case result == nil:
		next.Status = StatusFailed
		next.Failure = domain.NewFailure(domain.FailureAnalysisUnexpected, errors.New("detection returned no result"))
	default:
		next.Status = StatusSucceeded
		next.Result = result
	}
	return next, true
}

// Reset returns any state to source selection and drops the image.
func (s Session) Reset() Session {
	next := s.clear()
	next.Mode = ModeSelectingSource
	next.Origin = OriginNone
	next.Image = nil
	next.Generation = s.Generation + 1
	return next
}

// Validate reports whether s satisfies the session invariants.
func (s Session) Validate() error {
	switch s.Status {
	case StatusIdle, StatusDetecting:
		if s.Result != nil || s.Failure != nil {
			return fmt.Errorf("%w: %s session carries an outcome", ErrInvalidState, s.Status)
		}
	case StatusSucceeded:
		if s.Result == nil || s.Failure != nil {
			return fmt.Errorf("%w: succeeded session needs exactly a result", ErrInvalidState)
		}
	case StatusFailed:
		if s.Failure == nil || s.Result != nil {
			return fmt.Errorf("%w: failed session needs exactly a failure", ErrInvalidState)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidState, s.Status)
	}

	switch s.Mode {
	case ModeSelectingSource:
		if s.Image != nil {
			return fmt.Errorf("%w: image held while selecting source", ErrInvalidState)
		}
		if s.Status == StatusFailed && s.Failure.Kind != domain.FailureCameraPermission {
			return fmt.Errorf("%w: %s while selecting source", ErrInvalidState, s.Failure.Kind)
		}
		if s.Status == StatusDetecting || s.Status == StatusSucceeded {
			return fmt.Errorf("%w: %s while selecting source", ErrInvalidState, s.Status)
		}
	case ModeCameraLive:
		if s.Status != StatusIdle {
			return fmt.Errorf("%w: camera live must be idle", ErrInvalidState)
		}
	case ModeImageLoaded:
		if s.Image == nil {
			return fmt.Errorf("%w: image loaded without image", ErrInvalidState)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidState, s.Mode)
	}
	return nil
}

func (s Session) clear() Session {
	next := s
	next.Status = StatusIdle
	next.Result = nil
	next.Failure = nil
	return next
}

func invalid(action string, s Session) error {
	return fmt.Errorf("%w: %s from %s/%s", ErrInvalidTransition, action, s.Mode, s.Status)
}
