package diff

// State is the review state of a Session.
type State string

const (
	// StateClean means there is nothing to accept or reject.
	StateClean State = "clean"
	// StateReviewing means the modified text has changed lines pending a decision.
	StateReviewing State = "reviewing"
)

// Session holds one note's original/modified text pair for a review round.
// It is not safe for concurrent use; callers serialize access (see SessionManager).
type Session struct {
	engine       *Engine
	originalText string
	modifiedText string
	changedLines LineSet
	state        State
}

// NewSession creates a clean session. A nil engine uses the default engine.
func NewSession(engine *Engine) *Session {
	if engine == nil {
		engine = defaultEngine
	}
	return &Session{
		engine:       engine,
		changedLines: make(LineSet),
		state:        StateClean,
	}
}

// Start begins a new round with original as both baseline and candidate.
func (s *Session) Start(original string) {
	s.originalText = original
	s.modifiedText = original
	s.reset()
}

// SetModifiedText replaces the candidate text and recomputes the changed lines in full.
func (s *Session) SetModifiedText(text string) {
	s.modifiedText = text
	s.changedLines = s.engine.ComputeChangedLines(SplitLines(s.originalText), SplitLines(text))
	if s.changedLines.Len() > 0 {
		s.state = StateReviewing
	} else {
		s.state = StateClean
	}
}

// Accept commits the candidate as the new baseline and returns it.
func (s *Session) Accept() string {
	s.originalText = s.modifiedText
	s.reset()
	return s.originalText
}

// Reject discards the candidate and returns the restored baseline.
func (s *Session) Reject() string {
	s.modifiedText = s.originalText
	s.reset()
	return s.modifiedText
}

func (s *Session) reset() {
	s.changedLines = make(LineSet)
	s.state = StateClean
}

func (s *Session) OriginalText() string { return s.originalText }

func (s *Session) ModifiedText() string { return s.modifiedText }

// ChangedLines returns the changed indices of the current modified text, ascending.
func (s *Session) ChangedLines() []int { return s.changedLines.Sorted() }

// IsLineChanged reports whether line idx of the modified text is marked.
func (s *Session) IsLineChanged(idx int) bool { return s.changedLines.Has(idx) }

func (s *Session) HasPendingChanges() bool { return s.changedLines.Len() > 0 }

func (s *Session) State() State { return s.state }
