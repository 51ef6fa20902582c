package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"

	"rnotes/notes"
)

// Global note service instance
var noteService *notes.Service

// InitNoteService installs the note service and routes its review events to the SSE hub.
// Should be called during server startup.
func InitNoteService(svc *notes.Service) {
	noteService = svc
	svc.Sessions().SetEventBroadcaster(sseHub)
	logger.Info("Note service initialized")
}

// errorStatus maps a service error to an HTTP status.
func errorStatus(err error) int {
	var nf *notes.NotFoundError
	if errors.As(err, &nf) {
		return http.StatusNotFound
	}
	var te *notes.TransformError
	if errors.As(err, &te) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeServiceError(c rweb.Context, err error, msg string) error {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.LogErr(err, msg)
	}
	return c.WriteError(serr.Wrap(err, msg), status)
}

// listNotesHandler lists all notes, most recently updated first.
// GET /api/notes
func listNotesHandler(c rweb.Context) error {
	list, err := noteService.List()
	if err != nil {
		return writeServiceError(c, err, "failed to list notes")
	}

	return c.WriteJSON(map[string]interface{}{
		"notes": list,
		"total": len(list),
	})
}

// createNoteHandler creates a note.
// POST /api/notes
func createNoteHandler(c rweb.Context) error {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}

	body := c.Request().Body()
	if err := json.Unmarshal(body, &req); err != nil {
		return c.WriteError(serr.Wrap(err, "invalid request body"), http.StatusBadRequest)
	}

	note, err := noteService.Create(req.Title, req.Content)
	if err != nil {
		return writeServiceError(c, err, "failed to create note")
	}

	BroadcastNoteList()
	return c.WriteJSON(note)
}

// getNoteHandler returns a single note.
// GET /api/notes/:id
func getNoteHandler(c rweb.Context) error {
	noteID := c.Request().Param("id")
	if noteID == "" {
		return c.WriteError(serr.New("note id is required"), http.StatusBadRequest)
	}

	note, err := noteService.Get(noteID)
	if err != nil {
		return writeServiceError(c, err, "failed to get note")
	}
	return c.WriteJSON(note)
}

// deleteNoteHandler deletes a note with its revisions and open review.
// DELETE /api/notes/:id
func deleteNoteHandler(c rweb.Context) error {
	noteID := c.Request().Param("id")
	if noteID == "" {
		return c.WriteError(serr.New("note id is required"), http.StatusBadRequest)
	}

	if err := noteService.Delete(noteID); err != nil {
		return writeServiceError(c, err, "failed to delete note")
	}

	BroadcastNoteList()
	return c.WriteJSON(map[string]interface{}{
		"deleted": noteID,
	})
}

// listRevisionsHandler lists the accepted revisions of a note.
// GET /api/notes/:id/revisions
func listRevisionsHandler(c rweb.Context) error {
	noteID := c.Request().Param("id")
	if noteID == "" {
		return c.WriteError(serr.New("note id is required"), http.StatusBadRequest)
	}

	revs, err := noteService.Revisions(noteID)
	if err != nil {
		return writeServiceError(c, err, "failed to list revisions")
	}

	return c.WriteJSON(map[string]interface{}{
		"revisions": revs,
		"total":     len(revs),
	})
}

// getRevisionHandler returns one revision of a note, including its preview.
// GET /api/notes/:id/revisions/:rev
func getRevisionHandler(c rweb.Context) error {
	revID, err := strconv.ParseInt(c.Request().Param("rev"), 10, 64)
	if err != nil {
		return c.WriteError(serr.Wrap(err, "invalid revision id"), http.StatusBadRequest)
	}

	rev, err := noteService.Revision(c.Request().Param("id"), revID)
	if err != nil {
		return writeServiceError(c, err, "failed to get revision")
	}
	return c.WriteJSON(rev)
}
