package diff

// Review event types sent to the broadcaster.
const (
	EventReviewChanged  = "review_changed"
	EventReviewAccepted = "review_accepted"
	EventReviewRejected = "review_rejected"
)

// EventBroadcaster receives review events, typically to fan them out to SSE clients.
type EventBroadcaster interface {
	BroadcastReview(eventType string, state ReviewState)
}

// SetEventBroadcaster installs the broadcaster used by the manager.
func (m *SessionManager) SetEventBroadcaster(broadcaster EventBroadcaster) {
	m.mu.Lock()
	m.broadcaster = broadcaster
	m.mu.Unlock()
}

func (m *SessionManager) broadcast(eventType string, state ReviewState) {
	if m.broadcaster != nil {
		m.broadcaster.BroadcastReview(eventType, state)
	}
}
