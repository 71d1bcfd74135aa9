package ws

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/phiface/internal/session"
)

// Hub fans session updates out to the websocket clients watching each session.
//
// A client is registered before its initial snapshot is read, so no update
// can fall between the two. Until that snapshot is delivered the hub keeps
// only the newest update for the client; afterwards it forwards updates whose
// revision is newer than anything the client has already seen.
type Hub struct {
	clients    map[*Client]bool
	sessions   map[uuid.UUID]map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	initial    chan initialSnapshot
	done       chan struct{}
	logger     *slog.Logger
	mu         sync.RWMutex
}

type initialSnapshot struct {
	client *Client
	event  Event
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		sessions:   make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		initial:    make(chan initialSnapshot),
		done:       make(chan struct{}),
		logger:     logger.With("component", "ws_hub"),
	}
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every client. Run must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case req := <-h.initial:
			h.deliverInitial(req)
		case event := <-h.broadcast:
			h.broadcastToSession(event)
		}
	}
}

// Register subscribes client to its session. It reports false once the hub
// has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister never blocks past the hub's shutdown.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendSnapshot queues the first event of a registered client. Updates the
// client missed while the snapshot was being read follow it.
func (h *Hub) SendSnapshot(client *Client, snapshot session.Snapshot) {
	req := initialSnapshot{
		client: client,
		event:  newEvent(EventSessionSnapshot, client.sessionID, snapshot),
	}
	select {
	case h.initial <- req:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(client)
}

func (h *Hub) dropLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	delete(h.sessions[client.sessionID], client)

	if len(h.sessions[client.sessionID]) == 0 {
		delete(h.sessions, client.sessionID)
	}

	close(client.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.dropLocked(client)
	}
}

func (h *Hub) deliverInitial(req initialSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client := req.client
	if !h.clients[client] || client.ready {
		return
	}
	if !h.sendLocked(client, req.event) {
		return
	}
	client.ready = true

	if pending := client.pending; pending != nil {
		client.pending = nil
		if pending.Data.Revision > client.revision {
			h.sendLocked(client, *pending)
		}
	}
}

func (h *Hub) broadcastToSession(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.sessions[event.SessionID] {
		if !client.ready {
			if client.pending == nil || event.Data.Revision > client.pending.Data.Revision {
				pending := event
				client.pending = &pending
			}
			continue
		}
		if event.Data.Revision <= client.revision {
			continue
		}
		h.sendLocked(client, event)
	}
}

// sendLocked queues event for client, dropping the client when its buffer is
// full rather than stalling every other session. Callers hold h.mu.
func (h *Hub) sendLocked(client *Client, event Event) bool {
	message, err := event.encode()
	if err != nil {
		h.logger.Error("failed to marshal event", "error", err, "session_id", event.SessionID)
		return false
	}

	select {
	case client.send <- message:
		client.revision = event.Data.Revision
		return true
	default:
		h.dropLocked(client)
		return false
	}
}

// Publish queues a session update. It never blocks: when the queue is full
// the update is dropped and clients catch up on the next one.
func (h *Hub) Publish(sessionID uuid.UUID, snapshot session.Snapshot) {
	event := newEvent(EventSessionUpdated, sessionID, snapshot)

	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("session update dropped", "session_id", sessionID)
	}
}

func (h *Hub) GetConnectedClients(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions[sessionID])
}
