package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/phiface/internal/session"
)

type EventType string

const (
	// EventSessionSnapshot is sent once when a client connects.
	EventSessionSnapshot EventType = "session.snapshot"
	EventSessionUpdated  EventType = "session.updated"
)

// Event is the only frame the server writes. Data is always the full session
// snapshot, so a client that missed an update only needs the next one.
type Event struct {
	SessionID uuid.UUID        `json:"session_id"`
	Type      EventType        `json:"type"`
	Data      session.Snapshot `json:"data"`
	Timestamp time.Time        `json:"timestamp"`
}

func newEvent(typ EventType, sessionID uuid.UUID, snapshot session.Snapshot) Event {
	return Event{
		SessionID: sessionID,
		Type:      typ,
		Data:      snapshot,
		Timestamp: time.Now().UTC(),
	}
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}
