package web

import (
	"github.com/rohanthewiz/rweb"

	"rnotes/config"
)

// SetupRoutes configures all HTTP routes for the server
func SetupRoutes(s *rweb.Server) {
	// Pages
	s.Get("/", rootHandler)
	s.Get("/notes/:id/review", reviewPageHandler)

	s.Get("/api/app", appInfoHandler)

	// Notes
	s.Get("/api/notes", listNotesHandler)
	s.Post("/api/notes", createNoteHandler)
	s.Get("/api/notes/:id", getNoteHandler)
	s.Delete("/api/notes/:id", deleteNoteHandler)
	s.Get("/api/notes/:id/revisions", listRevisionsHandler)
	s.Get("/api/notes/:id/revisions/:rev", getRevisionHandler)

	// Review rounds
	s.Get("/api/notes/:id/review", getReviewHandler)
	s.Post("/api/notes/:id/review", startReviewHandler)
	s.Put("/api/notes/:id/review", editReviewHandler)
	s.Post("/api/notes/:id/review/transform", transformReviewHandler)
	s.Post("/api/notes/:id/review/accept", acceptReviewHandler)
	s.Post("/api/notes/:id/review/reject", rejectReviewHandler)

	// SSE endpoint for review events
	s.Get("/events",
		func(c rweb.Context) error {
			clientChan := make(chan any, 10)
			sseHub.Register(clientChan)

			// The conn outlives this handler; Broadcast drops the client once it stops draining
			s.SetupSSE(c, clientChan, "")

			return nil
		},
	)
}

// appInfoHandler returns application information
func appInfoHandler(c rweb.Context) error {
	cfg := config.Get()
	return c.WriteJSON(map[string]interface{}{
		"version":     "0.1.0",
		"status":      "ok",
		"provider":    "anthropic",
		"model":       cfg.Model,
		"lookahead":   cfg.DiffLookahead,
		"openReviews": len(noteService.Sessions().OpenNotes()),
		"sseClients":  sseHub.ClientCount(),
	})
}
