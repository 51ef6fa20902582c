// Package notes coordinates note storage, AI transformation and the per-note
// review sessions that decide which edits get committed.
package notes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"

	"rnotes/db"
	"rnotes/diff"
	"rnotes/providers"
)

// Store persists notes and their revisions.
type Store interface {
	CreateNote(note *db.Note) error
	GetNote(id string) (*db.Note, error)
	ListNotes() ([]*db.Note, error)
	DeleteNote(id string) error
	// CommitRevision writes the note's new content and rev together, or neither.
	CommitRevision(title string, rev *db.Revision) error
	GetRevision(id int64) (*db.Revision, error)
	ListRevisions(noteID string) ([]*db.Revision, error)
}

// Transformer rewrites note text, e.g. an AI backend.
type Transformer interface {
	Transform(ctx context.Context, req providers.TransformRequest) (*providers.TransformResult, error)
}

// NotFoundError reports a missing note or review session.
type NotFoundError struct {
	Kind string // "note", "review" or "revision"
	ID   string
}

func (e *NotFoundError) Error() string {
	return e.Kind + " not found: " + e.ID
}

// TransformError wraps a failure of the transformation backend.
type TransformError struct {
	Err error
}

func (e *TransformError) Error() string { return "transform failed: " + e.Err.Error() }

func (e *TransformError) Unwrap() error { return e.Err }

// ReviewView is a review state plus what the surrounding editor needs alongside it.
type ReviewView struct {
	diff.ReviewState
	Suggestions []string `json:"suggestions"`
	Source      string   `json:"source"`
}

// round tracks where the pending text of a note came from.
type round struct {
	source      string
	instruction string
	suggestions []string
}

// Service is the note editor's backend.
type Service struct {
	store       Store
	transformer Transformer
	sessions    *diff.SessionManager

	mu     sync.Mutex
	rounds map[string]*round
}

// NewService wires a service. transformer may be nil when no backend is configured.
func NewService(store Store, transformer Transformer, sessions *diff.SessionManager) *Service {
	if sessions == nil {
		sessions = diff.NewSessionManager(nil)
	}
	return &Service{
		store:       store,
		transformer: transformer,
		sessions:    sessions,
		rounds:      make(map[string]*round),
	}
}

// Sessions exposes the session manager, e.g. to install an event broadcaster.
func (s *Service) Sessions() *diff.SessionManager {
	return s.sessions
}

// Create stores a new note. A blank title is derived from the content.
func (s *Service) Create(title, content string) (*db.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = Title(content)
	}

	note := &db.Note{
		ID:      uuid.NewString(),
		Title:   title,
		Content: content,
	}
	if err := s.store.CreateNote(note); err != nil {
		return nil, serr.Wrap(err, "failed to create note")
	}

	logger.Info("Note created", "noteId", note.ID, "title", note.Title)
	return note, nil
}

func (s *Service) Get(noteID string) (*db.Note, error) {
	return s.loadNote(noteID)
}

func (s *Service) List() ([]*db.Note, error) {
	return s.store.ListNotes()
}

// Delete removes a note, its revisions and any open review.
func (s *Service) Delete(noteID string) error {
	if _, err := s.loadNote(noteID); err != nil {
		return err
	}
	if err := s.store.DeleteNote(noteID); err != nil {
		return serr.Wrap(err, "failed to delete note", "noteId", noteID)
	}

	s.mu.Lock()
	delete(s.rounds, noteID)
	s.mu.Unlock()
	s.sessions.Close(noteID)

	logger.Info("Note deleted", "noteId", noteID)
	return nil
}

// Revisions lists a note's accepted rounds, newest first.
func (s *Service) Revisions(noteID string) ([]*db.Revision, error) {
	if _, err := s.loadNote(noteID); err != nil {
		return nil, err
	}
	return s.store.ListRevisions(noteID)
}

// Revision returns one revision of a note.
func (s *Service) Revision(noteID string, revisionID int64) (*db.Revision, error) {
	rev, err := s.store.GetRevision(revisionID)
	if err != nil {
		return nil, serr.Wrap(err, "failed to load revision", "noteId", noteID)
	}
	if rev == nil || rev.NoteID != noteID {
		return nil, &NotFoundError{Kind: "revision", ID: strconv.FormatInt(revisionID, 10)}
	}
	return rev, nil
}

// StartReview opens a fresh review round on the note's stored content.
func (s *Service) StartReview(noteID string) (ReviewView, error) {
	note, err := s.loadNote(noteID)
	if err != nil {
		return ReviewView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rounds, noteID)
	return s.view(s.sessions.Open(noteID, note.Content)), nil
}

// Review returns the note's current review state.
func (s *Service) Review(noteID string) (ReviewView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions.Get(noteID)
	if !ok {
		return ReviewView{}, &NotFoundError{Kind: "review", ID: noteID}
	}
	return s.view(state), nil
}

// Edit applies typed text to the note's review, opening one if needed.
func (s *Service) Edit(noteID, text string) (ReviewView, error) {
	if err := s.ensureSession(noteID); err != nil {
		return ReviewView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.sessions.SetModifiedText(noteID, text)
	if err != nil {
		return ReviewView{}, serr.Wrap(err, "failed to apply edit", "noteId", noteID)
	}
	s.roundFor(noteID).source = db.SourceEdit
	return s.view(state), nil
}

// Transform asks the transformer to rewrite the pending text and loads the
// result into the review. Transformer failures leave the review untouched.
func (s *Service) Transform(ctx context.Context, noteID, instruction string) (ReviewView, error) {
	if s.transformer == nil {
		return ReviewView{}, &TransformError{Err: serr.New("no transformer configured")}
	}
	if err := s.ensureSession(noteID); err != nil {
		return ReviewView{}, err
	}

	before, ok := s.sessions.Get(noteID)
	if !ok {
		return ReviewView{}, &NotFoundError{Kind: "review", ID: noteID}
	}

	result, err := s.transformer.Transform(ctx, providers.TransformRequest{
		Text:        before.ModifiedText,
		Instruction: instruction,
	})
	if err != nil {
		logger.LogErr(err, "note transform failed", "noteId", noteID)
		return ReviewView{}, &TransformError{Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.sessions.Get(noteID); ok && current.ModifiedText != before.ModifiedText {
		logger.Warn("Note changed during transform; replacing with transformed text", "noteId", noteID)
	}

	state, err := s.sessions.SetModifiedText(noteID, result.FormattedText)
	if err != nil {
		return ReviewView{}, serr.Wrap(err, "failed to apply transform", "noteId", noteID)
	}

	r := s.roundFor(noteID)
	r.source = db.SourceTransform
	r.instruction = instruction
	r.suggestions = result.Suggestions

	return s.view(state), nil
}

// Accept commits the pending text: the note and a revision are written first,
// then the session takes the text as its new baseline.
func (s *Service) Accept(noteID string) (ReviewView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions.Get(noteID)
	if !ok {
		return ReviewView{}, &NotFoundError{Kind: "review", ID: noteID}
	}

	if state.ModifiedText != state.OriginalText {
		if err := s.persist(noteID, state); err != nil {
			return ReviewView{}, err
		}
	}

	if _, err := s.sessions.Accept(noteID); err != nil {
		return ReviewView{}, serr.Wrap(err, "failed to accept review", "noteId", noteID)
	}
	delete(s.rounds, noteID)

	accepted, _ := s.sessions.Get(noteID)
	logger.Info("Review accepted", "noteId", noteID, "changedLines", len(state.ChangedLines))
	return s.view(accepted), nil
}

// Reject restores the note's committed text in the review. Nothing is written.
func (s *Service) Reject(noteID string) (ReviewView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.sessions.Reject(noteID); err != nil {
		return ReviewView{}, &NotFoundError{Kind: "review", ID: noteID}
	}
	delete(s.rounds, noteID)

	state, _ := s.sessions.Get(noteID)
	logger.Info("Review rejected", "noteId", noteID)
	return s.view(state), nil
}

// persist must be called with s.mu held.
func (s *Service) persist(noteID string, state diff.ReviewState) error {
	text := state.ModifiedText

	preview, err := json.Marshal(diff.Preview(state.OriginalText, text, diff.DefaultContextLines))
	if err != nil {
		return serr.Wrap(err, "failed to serialize preview")
	}

	rev := &db.Revision{
		NoteID:  noteID,
		Content: text,
		Hash:    contentHash(text),
		Source:  db.SourceEdit,
		Preview: preview,
	}
	if r, ok := s.rounds[noteID]; ok && r.source != "" {
		rev.Source = r.source
		rev.Instruction = r.instruction
	}

	if err := s.store.CommitRevision(Title(text), rev); err != nil {
		return serr.Wrap(err, "failed to commit revision", "noteId", noteID)
	}
	return nil
}

// ensureSession opens a review on the stored note if none is open yet.
func (s *Service) ensureSession(noteID string) error {
	if _, ok := s.sessions.Get(noteID); ok {
		return nil
	}
	note, err := s.loadNote(noteID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions.Get(noteID); !ok {
		s.sessions.Open(noteID, note.Content)
	}
	return nil
}

func (s *Service) loadNote(noteID string) (*db.Note, error) {
	note, err := s.store.GetNote(noteID)
	if err != nil {
		return nil, serr.Wrap(err, "failed to load note", "noteId", noteID)
	}
	if note == nil {
		return nil, &NotFoundError{Kind: "note", ID: noteID}
	}
	return note, nil
}

// roundFor must be called with s.mu held.
func (s *Service) roundFor(noteID string) *round {
	r, ok := s.rounds[noteID]
	if !ok {
		r = &round{}
		s.rounds[noteID] = r
	}
	return r
}

// view must be called with s.mu held.
func (s *Service) view(state diff.ReviewState) ReviewView {
	v := ReviewView{ReviewState: state, Suggestions: []string{}}
	if r, ok := s.rounds[state.NoteID]; ok {
		if r.suggestions != nil {
			v.Suggestions = r.suggestions
		}
		v.Source = r.source
	}
	return v
}

func contentHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
