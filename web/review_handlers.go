package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"

	"rnotes/platform/shutdown"
)

const transformTimeout = 2 * time.Minute

// getReviewHandler returns the current review state of a note.
// GET /api/notes/:id/review
func getReviewHandler(c rweb.Context) error {
	view, err := noteService.Review(c.Request().Param("id"))
	if err != nil {
		return writeServiceError(c, err, "failed to get review")
	}
	return c.WriteJSON(view)
}

// startReviewHandler starts a review round on the stored note.
// POST /api/notes/:id/review
func startReviewHandler(c rweb.Context) error {
	view, err := noteService.StartReview(c.Request().Param("id"))
	if err != nil {
		return writeServiceError(c, err, "failed to start review")
	}
	return c.WriteJSON(view)
}

// editReviewHandler feeds the editor's current text into the review.
// PUT /api/notes/:id/review
func editReviewHandler(c rweb.Context) error {
	var req struct {
		Text *string `json:"text"`
	}

	body := c.Request().Body()
	if err := json.Unmarshal(body, &req); err != nil {
		return c.WriteError(serr.Wrap(err, "invalid request body"), http.StatusBadRequest)
	}
	if req.Text == nil {
		return c.WriteError(serr.New("text is required"), http.StatusBadRequest)
	}

	view, err := noteService.Edit(c.Request().Param("id"), *req.Text)
	if err != nil {
		return writeServiceError(c, err, "failed to apply edit")
	}
	return c.WriteJSON(view)
}

// transformReviewHandler runs the AI transform over the pending text.
// POST /api/notes/:id/review/transform
func transformReviewHandler(c rweb.Context) error {
	noteID := c.Request().Param("id")

	if shutdown.CheckShutdown() {
		return c.WriteError(serr.New("server is shutting down"), http.StatusServiceUnavailable)
	}

	var req struct {
		Instruction string `json:"instruction"`
	}
	if body := c.Request().Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return c.WriteError(serr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), transformTimeout)
	defer cancel()

	BroadcastTransformStatus(noteID, "started")
	view, err := noteService.Transform(ctx, noteID, req.Instruction)
	if err != nil {
		BroadcastTransformStatus(noteID, "failed")
		return writeServiceError(c, err, "failed to transform note")
	}
	BroadcastTransformStatus(noteID, "done")

	return c.WriteJSON(view)
}

// acceptReviewHandler commits the pending text.
// POST /api/notes/:id/review/accept
func acceptReviewHandler(c rweb.Context) error {
	view, err := noteService.Accept(c.Request().Param("id"))
	if err != nil {
		return writeServiceError(c, err, "failed to accept review")
	}
	BroadcastNoteList()
	return c.WriteJSON(view)
}

// rejectReviewHandler discards the pending text.
// POST /api/notes/:id/review/reject
func rejectReviewHandler(c rweb.Context) error {
	view, err := noteService.Reject(c.Request().Param("id"))
	if err != nil {
		return writeServiceError(c, err, "failed to reject review")
	}
	return c.WriteJSON(view)
}
