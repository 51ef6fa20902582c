package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnotes/db"
	"rnotes/diff"
	"rnotes/notes"
)

func decodeEvent(t *testing.T, raw any) SSEEvent {
	t.Helper()
	ev, ok := raw.(rweb.SSEvent)
	require.True(t, ok, "unexpected event type %T", raw)
	assert.Equal(t, sseStdMsgType, ev.Type)

	var out SSEEvent
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprint(ev.Data)), &out))
	return out
}

func TestSSEHub_BroadcastReview(t *testing.T) {
	hub := NewSSEHub()
	client := make(chan any, 1)
	hub.Register(client)
	assert.Equal(t, 1, hub.ClientCount())

	hub.BroadcastReview(diff.EventReviewChanged, diff.ReviewState{
		NoteID:            "n1",
		State:             diff.StateReviewing,
		ChangedLines:      []int{0, 2},
		HasPendingChanges: true,
		LineCount:         3,
	})

	select {
	case raw := <-client:
		ev := decodeEvent(t, raw)
		assert.Equal(t, diff.EventReviewChanged, ev.Type)
		assert.Equal(t, "n1", ev.NoteID)

		data, ok := ev.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "reviewing", data["state"])
		assert.Equal(t, []interface{}{float64(0), float64(2)}, data["changedLines"])
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	hub.Unregister(client)
	assert.Equal(t, 0, hub.ClientCount())
	hub.Unregister(client) // second unregister is a no-op
}

func TestSSEHub_DropsStalledClient(t *testing.T) {
	hub := NewSSEHub()
	stalled := make(chan any) // unbuffered, never read
	live := make(chan any, 1)
	hub.Register(stalled)
	hub.Register(live)

	hub.Broadcast(SSEEvent{Type: "note_list_updated"})

	select {
	case raw := <-live:
		assert.Equal(t, "note_list_updated", decodeEvent(t, raw).Type)
	case <-time.After(time.Second):
		t.Fatal("live client starved by stalled client")
	}

	assert.Equal(t, 1, hub.ClientCount())
	_, open := <-stalled
	assert.False(t, open, "stalled client channel should be closed")

	hub.Unregister(stalled) // already dropped, no double close
	hub.Broadcast(SSEEvent{Type: "note_list_updated"})
	assert.Equal(t, 1, hub.ClientCount())
	decodeEvent(t, <-live)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing note", &notes.NotFoundError{Kind: "note", ID: "x"}, http.StatusNotFound},
		{"transformer", &notes.TransformError{Err: serr.New("overloaded")}, http.StatusBadGateway},
		{"store", serr.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}

func TestGenerateReviewUI_MarksChangedLines(t *testing.T) {
	note := &db.Note{ID: "n1", Title: "Plan <draft>"}
	view := notes.ReviewView{
		ReviewState: diff.ReviewState{
			NoteID:            "n1",
			State:             diff.StateReviewing,
			ModifiedText:      "a\n<b>\nc",
			ChangedLines:      []int{1},
			HasPendingChanges: true,
		},
		Suggestions: []string{"Add a date"},
	}

	page := generateReviewUI(note, view)

	assert.Equal(t, 1, strings.Count(page, `class="line changed"`))
	assert.Equal(t, 2, strings.Count(page, `class="line"`))
	assert.Contains(t, page, `data-line="1"`)
	assert.Contains(t, page, "&lt;b&gt;")
	assert.NotContains(t, page, "<b>")
	assert.Contains(t, page, "Plan &lt;draft&gt;")
	assert.Contains(t, page, "Add a date")
	assert.NotContains(t, page, `disabled="disabled"`)
}

func TestGenerateReviewUI_CleanDisablesButtons(t *testing.T) {
	note := &db.Note{ID: "n1", Title: "T"}
	view := notes.ReviewView{ReviewState: diff.ReviewState{
		NoteID:       "n1",
		State:        diff.StateClean,
		ModifiedText: "a\nb",
		ChangedLines: []int{},
	}}

	page := generateReviewUI(note, view)
	assert.Equal(t, 2, strings.Count(page, `disabled="disabled"`))
	assert.NotContains(t, page, `class="line changed"`)
}

func TestGenerateIndexUI(t *testing.T) {
	assert.Contains(t, generateIndexUI(nil), "No notes yet")

	page := generateIndexUI([]*db.Note{
		{ID: "a1", Title: "First", UpdatedAt: time.Now()},
		{ID: "b2", Title: "Second", UpdatedAt: time.Now()},
	})
	assert.Contains(t, page, "/notes/a1/review")
	assert.Contains(t, page, "Second")
	assert.NotContains(t, page, "No notes yet")
}
