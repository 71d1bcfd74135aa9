package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
)

// Snapshot is the JSON view of a Session pushed to clients.
type Snapshot struct {
	ID          uuid.UUID           `json:"id"`
	Mode        Mode                `json:"mode"`
	Status      Status              `json:"status"`
	Origin      Origin              `json:"origin,omitempty"`
	Generation  uint64              `json:"generation"`
	Revision    uint64              `json:"revision"`
	ImageID     *uuid.UUID          `json:"image_id,omitempty"`
	ImageWidth  int                 `json:"image_width,omitempty"`
	ImageHeight int                 `json:"image_height,omitempty"`
	Result      *domain.ResultView  `json:"result,omitempty"`
	Failure     *domain.FailureView `json:"failure,omitempty"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (s Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:         s.ID,
		Mode:       s.Mode,
		Status:     s.Status,
		Origin:     s.Origin,
		Generation: s.Generation,
		Revision:   s.Revision,
		UpdatedAt:  s.UpdatedAt,
	}
	if s.Image != nil {
		id := s.Image.ID
		snap.ImageID = &id
		snap.ImageWidth = s.Image.Width
		snap.ImageHeight = s.Image.Height
	}
	if s.Result != nil {
		v := s.Result.View()
		snap.Result = &v
	}
	if s.Failure != nil {
		v := s.Failure.View()
		snap.Failure = &v
	}
	return snap
}
