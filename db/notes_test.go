package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNotes_CRUD(t *testing.T) {
	db := openTestDB(t)

	note := &Note{ID: "n1", Title: "Groceries", Content: "## Groceries\n- milk"}
	require.NoError(t, db.CreateNote(note))
	assert.False(t, note.CreatedAt.IsZero())

	got, err := db.GetNote("n1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Groceries", got.Title)
	assert.Equal(t, note.Content, got.Content)

	rev := &Revision{NoteID: "n1", Content: "## Shopping\n- milk\n- eggs", Hash: "h1", Source: SourceEdit}
	require.NoError(t, db.CommitRevision("Shopping", rev))
	assert.NotZero(t, rev.ID)
	got, err = db.GetNote("n1")
	require.NoError(t, err)
	assert.Equal(t, "Shopping", got.Title)
	assert.Equal(t, "## Shopping\n- milk\n- eggs", got.Content)

	require.NoError(t, db.DeleteNote("n1"))
	got, err = db.GetNote("n1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCommitRevision_MissingNote(t *testing.T) {
	db := openTestDB(t)
	assert.Error(t, db.CommitRevision("t", &Revision{NoteID: "nope", Content: "c", Hash: "h", Source: SourceEdit}))

	revs, err := db.ListRevisions("nope")
	require.NoError(t, err)
	assert.Empty(t, revs)
}

func TestCommitRevision_RollsBackNoteOnRevisionFailure(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateNote(&Note{ID: "n1", Title: "A", Content: "a"}))

	err := db.CommitRevision("B", &Revision{NoteID: "n1", Content: "a\nb", Hash: "h", Source: "paste"})
	require.Error(t, err)

	got, err := db.GetNote("n1")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)
	assert.Equal(t, "a", got.Content)

	revs, err := db.ListRevisions("n1")
	require.NoError(t, err)
	assert.Empty(t, revs)
}

func TestNotes_ListOrder(t *testing.T) {
	db := openTestDB(t)

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.CreateNote(&Note{ID: "old", Title: "Old", Content: "a", CreatedAt: base}))
	require.NoError(t, db.CreateNote(&Note{ID: "new", Title: "New", Content: "b", CreatedAt: base.Add(time.Hour)}))

	notes, err := db.ListNotes()
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "new", notes[0].ID)
	assert.Equal(t, "old", notes[1].ID)
}

func TestRevisions(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateNote(&Note{ID: "n1", Title: "T", Content: "v1"}))

	first := &Revision{
		NoteID:    "n1",
		Content:   "v2",
		Hash:      "abcdef0123456789",
		Source:    SourceEdit,
		CreatedAt: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.CommitRevision("T", first))
	id1 := first.ID

	preview := json.RawMessage(`{"hunks":[],"stats":{"added":1,"deleted":0}}`)
	second := &Revision{
		NoteID:      "n1",
		Content:     "v3",
		Hash:        "0123456789abcdef",
		Source:      SourceTransform,
		Preview:     preview,
		Instruction: "tidy up",
		CreatedAt:   time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.CommitRevision("T", second))
	id2 := second.ID

	note, err := db.GetNote("n1")
	require.NoError(t, err)
	assert.Equal(t, "v3", note.Content)

	revs, err := db.ListRevisions("n1")
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, id2, revs[0].ID)
	assert.Equal(t, "tidy up", revs[0].Instruction)
	assert.JSONEq(t, string(preview), string(revs[0].Preview))
	assert.Equal(t, id1, revs[1].ID)
	assert.Empty(t, revs[1].Preview)

	got, err := db.GetRevision(id1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "v2", got.Content)
	assert.Equal(t, SourceEdit, got.Source)

	missing, err := db.GetRevision(9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, db.DeleteNote("n1"))
	revs, err = db.ListRevisions("n1")
	require.NoError(t, err)
	assert.Empty(t, revs)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate())

	var version int
	require.NoError(t, db.QueryRow("SELECT MAX(version) FROM migrations").Scan(&version))
	assert.Equal(t, migrations[len(migrations)-1].Version, version)
}
