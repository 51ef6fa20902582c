package diff

import (
	"fmt"
	"sync"
	"testing"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingBroadcaster) BroadcastReview(eventType string, state ReviewState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType+":"+state.NoteID)
}

func TestSessionManager_Lifecycle(t *testing.T) {
	m := NewSessionManager(nil)
	rec := &recordingBroadcaster{}
	m.SetEventBroadcaster(rec)

	state := m.Open("n1", "A")
	if state.State != StateClean || state.HasPendingChanges {
		t.Fatalf("open state = %+v, want clean", state)
	}

	state, err := m.SetModifiedText("n1", "B")
	if err != nil {
		t.Fatalf("SetModifiedText: %v", err)
	}
	if !state.HasPendingChanges || state.State != StateReviewing {
		t.Errorf("state after edit = %+v, want reviewing", state)
	}
	if state.LineCount != 1 {
		t.Errorf("LineCount = %d, want 1", state.LineCount)
	}

	committed, err := m.Accept("n1")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if committed != "B" {
		t.Errorf("Accept() = %q, want B", committed)
	}

	got, ok := m.Get("n1")
	if !ok {
		t.Fatalf("session disappeared after accept")
	}
	if got.OriginalText != "B" || got.HasPendingChanges {
		t.Errorf("state after accept = %+v", got)
	}

	if _, err := m.SetModifiedText("n1", "C"); err != nil {
		t.Fatalf("SetModifiedText: %v", err)
	}
	reverted, err := m.Reject("n1")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if reverted != "B" {
		t.Errorf("Reject() = %q, want B", reverted)
	}

	want := []string{
		EventReviewChanged + ":n1",
		EventReviewAccepted + ":n1",
		EventReviewChanged + ":n1",
		EventReviewRejected + ":n1",
	}
	if fmt.Sprint(rec.events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestSessionManager_UnknownNote(t *testing.T) {
	m := NewSessionManager(nil)

	if _, ok := m.Get("missing"); ok {
		t.Errorf("Get on unknown note reported ok")
	}
	if _, err := m.SetModifiedText("missing", "x"); err == nil {
		t.Errorf("expected error from SetModifiedText")
	}
	if _, err := m.Accept("missing"); err == nil {
		t.Errorf("expected error from Accept")
	}
	if _, err := m.Reject("missing"); err == nil {
		t.Errorf("expected error from Reject")
	}
}

func TestSessionManager_SessionsAreIsolated(t *testing.T) {
	m := NewSessionManager(nil)
	m.Open("a", "one")
	m.Open("b", "two")

	if _, err := m.SetModifiedText("a", "changed"); err != nil {
		t.Fatalf("SetModifiedText: %v", err)
	}

	b, _ := m.Get("b")
	if b.HasPendingChanges || b.ModifiedText != "two" {
		t.Errorf("note b affected by edit to a: %+v", b)
	}

	if ids := m.OpenNotes(); fmt.Sprint(ids) != "[a b]" {
		t.Errorf("OpenNotes() = %v", ids)
	}

	m.Close("a")
	if _, ok := m.Get("a"); ok {
		t.Errorf("session a still present after Close")
	}
}

func TestSessionManager_ReopenRestartsRound(t *testing.T) {
	m := NewSessionManager(nil)
	m.Open("n", "v1")
	_, _ = m.SetModifiedText("n", "v2")

	state := m.Open("n", "v3")
	if state.OriginalText != "v3" || state.ModifiedText != "v3" || state.HasPendingChanges {
		t.Errorf("reopen state = %+v", state)
	}
}

func TestSessionManager_ConcurrentEdits(t *testing.T) {
	m := NewSessionManager(nil)
	for i := 0; i < 4; i++ {
		m.Open(fmt.Sprintf("n%d", i), "base\ntext")
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("n%d", n)
			for k := 0; k < 50; k++ {
				_, _ = m.SetModifiedText(id, fmt.Sprintf("base\ntext %d", k))
				_, _ = m.Get(id)
			}
			_, _ = m.Accept(id)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		state, ok := m.Get(fmt.Sprintf("n%d", i))
		if !ok || state.OriginalText != "base\ntext 49" {
			t.Errorf("n%d final state = %+v", i, state)
		}
	}
}
