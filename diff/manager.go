package diff

import (
	"sort"
	"sync"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// SessionManager owns one review Session per open note and serializes access to them.
type SessionManager struct {
	engine      *Engine
	sessions    map[string]*Session
	updated     map[string]time.Time
	broadcaster EventBroadcaster
	mu          sync.RWMutex
}

// ReviewState is a point-in-time view of a note's review session.
type ReviewState struct {
	NoteID            string    `json:"noteId"`
	State             State     `json:"state"`
	OriginalText      string    `json:"originalText"`
	ModifiedText      string    `json:"modifiedText"`
	ChangedLines      []int     `json:"changedLines"`
	HasPendingChanges bool      `json:"hasPendingChanges"`
	LineCount         int       `json:"lineCount"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// NewSessionManager creates a manager whose sessions share engine.
func NewSessionManager(engine *Engine) *SessionManager {
	if engine == nil {
		engine = defaultEngine
	}
	return &SessionManager{
		engine:   engine,
		sessions: make(map[string]*Session),
		updated:  make(map[string]time.Time),
	}
}

// Open starts a review round for a note, reusing its session if one exists.
func (m *SessionManager) Open(noteID, content string) ReviewState {
	m.mu.Lock()
	sess, ok := m.sessions[noteID]
	if !ok {
		sess = NewSession(m.engine)
		m.sessions[noteID] = sess
	}
	sess.Start(content)
	m.updated[noteID] = time.Now()
	state := m.snapshot(noteID, sess)
	m.mu.Unlock()

	logger.Debug("Opened review session",
		"noteId", noteID,
		"reused", ok,
		"lines", state.LineCount,
	)
	return state
}

// Get returns the current state of a note's session.
func (m *SessionManager) Get(noteID string) (ReviewState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[noteID]
	if !ok {
		return ReviewState{}, false
	}
	return m.snapshot(noteID, sess), true
}

// SetModifiedText feeds a new candidate text into the note's session.
func (m *SessionManager) SetModifiedText(noteID, text string) (ReviewState, error) {
	m.mu.Lock()
	sess, ok := m.sessions[noteID]
	if !ok {
		m.mu.Unlock()
		return ReviewState{}, errNoSession(noteID)
	}
	sess.SetModifiedText(text)
	m.updated[noteID] = time.Now()
	state := m.snapshot(noteID, sess)
	m.broadcast(EventReviewChanged, state)
	m.mu.Unlock()

	logger.Debug("Recomputed changed lines",
		"noteId", noteID,
		"changed", len(state.ChangedLines),
		"lines", state.LineCount,
		"state", string(state.State),
	)
	return state, nil
}

// Accept commits the note's candidate text and returns it.
func (m *SessionManager) Accept(noteID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[noteID]
	if !ok {
		return "", errNoSession(noteID)
	}
	committed := sess.Accept()
	m.updated[noteID] = time.Now()
	m.broadcast(EventReviewAccepted, m.snapshot(noteID, sess))
	return committed, nil
}

// Reject discards the note's candidate text and returns the restored original.
func (m *SessionManager) Reject(noteID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[noteID]
	if !ok {
		return "", errNoSession(noteID)
	}
	reverted := sess.Reject()
	m.updated[noteID] = time.Now()
	m.broadcast(EventReviewRejected, m.snapshot(noteID, sess))
	return reverted, nil
}

// Close drops a note's session.
// Called when the note is closed or deleted.
func (m *SessionManager) Close(noteID string) {
	m.mu.Lock()
	delete(m.sessions, noteID)
	delete(m.updated, noteID)
	m.mu.Unlock()
}

// OpenNotes returns the ids of notes with a session, sorted.
func (m *SessionManager) OpenNotes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// snapshot must be called with m.mu held.
func (m *SessionManager) snapshot(noteID string, sess *Session) ReviewState {
	return ReviewState{
		NoteID:            noteID,
		State:             sess.State(),
		OriginalText:      sess.OriginalText(),
		ModifiedText:      sess.ModifiedText(),
		ChangedLines:      sess.ChangedLines(),
		HasPendingChanges: sess.HasPendingChanges(),
		LineCount:         len(SplitLines(sess.ModifiedText())),
		UpdatedAt:         m.updated[noteID],
	}
}

func errNoSession(noteID string) error {
	return serr.New("no review session for note", "noteId", noteID)
}
