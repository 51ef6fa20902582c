package db

import (
	"database/sql"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// Note is a stored note with its committed content
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateNote inserts a new note. The caller supplies the id.
func (db *DB) CreateNote(note *Note) error {
	now := time.Now()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = note.CreatedAt

	_, err := db.Exec(`
		INSERT INTO notes (id, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, note.ID, note.Title, note.Content, note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return serr.Wrap(err, "failed to create note", "noteId", note.ID)
	}

	logger.Debug("Created note", "noteId", note.ID, "title", note.Title)
	return nil
}

// GetNote retrieves a note by ID. Returns nil, nil when it does not exist.
func (db *DB) GetNote(id string) (*Note, error) {
	var note Note
	err := db.QueryRow(`
		SELECT id, title, content, created_at, updated_at
		FROM notes
		WHERE id = ?
	`, id).Scan(&note.ID, &note.Title, &note.Content, &note.CreatedAt, &note.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, serr.Wrap(err, "failed to get note", "noteId", id)
	}
	return &note, nil
}

// ListNotes returns all notes, most recently updated first.
func (db *DB) ListNotes() ([]*Note, error) {
	rows, err := db.Query(`
		SELECT id, title, content, created_at, updated_at
		FROM notes
		ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, serr.Wrap(err, "failed to list notes")
	}
	defer rows.Close()

	notes := make([]*Note, 0)
	for rows.Next() {
		var note Note
		if err := rows.Scan(&note.ID, &note.Title, &note.Content, &note.CreatedAt, &note.UpdatedAt); err != nil {
			return nil, serr.Wrap(err, "failed to scan note")
		}
		notes = append(notes, &note)
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "failed to iterate notes")
	}

	return notes, nil
}

func updateNoteContent(tx *sql.Tx, id, title, content string, at time.Time) error {
	result, err := tx.Exec(`
		UPDATE notes
		SET title = ?, content = ?, updated_at = ?
		WHERE id = ?
	`, title, content, at, id)
	if err != nil {
		return serr.Wrap(err, "failed to update note", "noteId", id)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return serr.New("note not found", "noteId", id)
	}
	return nil
}

// DeleteNote removes a note and its revisions.
func (db *DB) DeleteNote(id string) error {
	return db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM note_revisions WHERE note_id = ?", id); err != nil {
			return serr.Wrap(err, "failed to delete note revisions", "noteId", id)
		}
		if _, err := tx.Exec("DELETE FROM notes WHERE id = ?", id); err != nil {
			return serr.Wrap(err, "failed to delete note", "noteId", id)
		}
		return nil
	})
}
