package db

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// Revision sources
const (
	SourceEdit      = "edit"
	SourceTransform = "transform"
)

// Revision is one accepted review round of a note
type Revision struct {
	ID          int64           `json:"id"`
	NoteID      string          `json:"noteId"`
	Content     string          `json:"content"`
	Hash        string          `json:"hash"` // SHA256 hash of content
	Source      string          `json:"source"`
	Preview     json.RawMessage `json:"preview,omitempty"`
	Instruction string          `json:"instruction,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

const revisionColumns = "id, note_id, content, hash, source, preview, instruction, created_at"

// CommitRevision replaces the note's content with rev.Content and records rev,
// both in one transaction. Nothing is written when either step fails.
func (db *DB) CommitRevision(title string, rev *Revision) error {
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = time.Now()
	}

	err := db.Transaction(func(tx *sql.Tx) error {
		if err := updateNoteContent(tx, rev.NoteID, title, rev.Content, rev.CreatedAt); err != nil {
			return err
		}

		id, err := insertRevision(tx, rev)
		if err != nil {
			return err
		}
		rev.ID = id
		return nil
	})
	if err != nil {
		return err
	}

	logger.Debug("Committed revision",
		"id", rev.ID,
		"noteId", rev.NoteID,
		"source", rev.Source,
		"hash", shortHash(rev.Hash),
	)
	return nil
}

func insertRevision(tx *sql.Tx, rev *Revision) (int64, error) {
	var id int64
	err := tx.QueryRow(`
		INSERT INTO note_revisions (note_id, content, hash, source, preview, instruction, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`,
		rev.NoteID,
		rev.Content,
		rev.Hash,
		rev.Source,
		nullableJSON(rev.Preview),
		nullableString(rev.Instruction),
		rev.CreatedAt,
	).Scan(&id)

	if err != nil {
		return 0, serr.Wrap(err, "failed to save revision", "noteId", rev.NoteID)
	}
	return id, nil
}

// GetRevision retrieves a revision by ID. Returns nil, nil when it does not exist.
func (db *DB) GetRevision(id int64) (*Revision, error) {
	row := db.QueryRow("SELECT "+revisionColumns+" FROM note_revisions WHERE id = ?", id)

	rev, err := scanRevision(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, serr.Wrap(err, "failed to get revision", "id", strconv.FormatInt(id, 10))
	}
	return rev, nil
}

// ListRevisions returns a note's revisions, newest first.
func (db *DB) ListRevisions(noteID string) ([]*Revision, error) {
	rows, err := db.Query(
		"SELECT "+revisionColumns+" FROM note_revisions WHERE note_id = ? ORDER BY created_at DESC, id DESC",
		noteID,
	)
	if err != nil {
		return nil, serr.Wrap(err, "failed to list revisions", "noteId", noteID)
	}
	defer rows.Close()

	revisions := make([]*Revision, 0)
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, serr.Wrap(err, "failed to scan revision")
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "failed to iterate revisions")
	}

	return revisions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRevision(row rowScanner) (*Revision, error) {
	var rev Revision
	var preview, instruction sql.NullString

	err := row.Scan(
		&rev.ID,
		&rev.NoteID,
		&rev.Content,
		&rev.Hash,
		&rev.Source,
		&preview,
		&instruction,
		&rev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if preview.Valid {
		rev.Preview = json.RawMessage(preview.String)
	}
	rev.Instruction = instruction.String
	return &rev, nil
}

// nullableString converts an empty string to sql.NullString.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableJSON stores JSON as text; empty means no preview.
func nullableJSON(data json.RawMessage) sql.NullString {
	return nullableString(string(data))
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
