package web

import (
	"encoding/json"
	"sync"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"

	"rnotes/diff"
)

const sseStdMsgType = "message" // note that JS EventSource only pickup on "message" event type

// SSEEvent represents a server-sent event
type SSEEvent struct {
	Type   string      `json:"type"`
	NoteID string      `json:"noteId,omitempty"`
	Data   interface{} `json:"data"`
}

// SSEHub manages SSE connections
type SSEHub struct {
	mu      sync.RWMutex
	clients map[chan any]bool
}

// NewSSEHub creates an empty hub
func NewSSEHub() *SSEHub {
	return &SSEHub{clients: make(map[chan any]bool)}
}

// Global SSE hub
var sseHub = NewSSEHub()

// Register adds a new SSE client
func (h *SSEHub) Register(client chan any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// Unregister removes an SSE client
func (h *SSEHub) Unregister(client chan any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client)
	}
}

// CloseAll ends every SSE stream and forgets the clients
func (h *SSEHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client)
	}
}

// ClientCount returns the number of connected clients
func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to all connected clients.
// A client whose buffer is still full is taken as disconnected and dropped:
// rweb stops draining the channel once the connection's write fails.
func (h *SSEHub) Broadcast(event SSEEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	logger.F("Broadcasting SSE event: type=%s, noteID=%s, nbrOfClients=%d", event.Type, event.NoteID, len(h.clients))

	bytPayload, err := json.Marshal(event)
	if err != nil {
		logger.LogErr(err, "On broadcast, failed to marshal SSE event")
		return
	}

	rEvent := rweb.SSEvent{
		Type: sseStdMsgType, // EventSource listens on "message"; the real type is in the payload
		Data: string(bytPayload),
	}

	for client := range h.clients {
		select {
		case client <- rEvent:
		default:
			delete(h.clients, client)
			close(client)
			logger.Warn("SSE client channel full, dropping client", "type", event.Type, "remaining", len(h.clients))
		}
	}
}

// BroadcastReview implements diff.EventBroadcaster
func (h *SSEHub) BroadcastReview(eventType string, state diff.ReviewState) {
	h.Broadcast(SSEEvent{
		Type:   eventType,
		NoteID: state.NoteID,
		Data: map[string]interface{}{
			"state":             state.State,
			"changedLines":      state.ChangedLines,
			"hasPendingChanges": state.HasPendingChanges,
			"lineCount":         state.LineCount,
		},
	})
}

// BroadcastNoteList broadcasts when notes are created or deleted
func BroadcastNoteList() {
	sseHub.Broadcast(SSEEvent{
		Type: "note_list_updated",
		Data: nil,
	})
}

// BroadcastTransformStatus tells clients a transform started or finished for a note
func BroadcastTransformStatus(noteID string, status string) {
	sseHub.Broadcast(SSEEvent{
		Type:   "transform_status",
		NoteID: noteID,
		Data: map[string]interface{}{
			"status": status, // "started", "done", "failed"
		},
	})
}
