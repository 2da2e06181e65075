package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViniZap4/notes-server/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite3", filepath.Join(t.TempDir(), "notes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	version, err := s.Migrate()
	require.NoError(t, err)
	require.Equal(t, uint(5), version)
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	version, err := s.Migrate()
	require.NoError(t, err)
	assert.Equal(t, uint(5), version)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	q := "UPDATE note SET title = ? WHERE id IN (?, ?)"
	assert.Equal(t, q, sqliteDialect.rebind(q))
	assert.Equal(t, q, mysqlDialect.rebind(q))
	assert.Equal(t, "UPDATE note SET title = $1 WHERE id IN ($2, $3)", postgresDialect.rebind(q))
}

func TestFolderRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rootID, err := s.InsertFolder(ctx, domain.Folder{Name: "Root", CreatedAt: created})
	require.NoError(t, err)
	childID, err := s.InsertFolder(ctx, domain.Folder{Name: "Child", CreatedAt: created, ParentID: &rootID})
	require.NoError(t, err)

	root, err := s.GetFolder(ctx, rootID)
	require.NoError(t, err)
	assert.Equal(t, "Root", root.Name)
	assert.Nil(t, root.ParentID)
	assert.True(t, created.Equal(root.CreatedAt))

	child, err := s.GetFolder(ctx, childID)
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, rootID, *child.ParentID)

	subs, err := s.ListSubfolders(ctx, &rootID, false)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, childID, subs[0].ID)

	roots, err := s.ListSubfolders(ctx, nil, false)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, rootID, roots[0].ID)

	child.Name = "Renamed"
	child.ParentID = nil
	require.NoError(t, s.UpdateFolder(ctx, child))
	child, err = s.GetFolder(ctx, childID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", child.Name)
	assert.Nil(t, child.ParentID)
}

func TestGetMissingRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetFolder(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetNote(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	err = s.UpdateNote(ctx, domain.Note{ID: 42, Title: "ghost"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	err = s.UpdateFolder(ctx, domain.Folder{ID: 42, Name: "ghost"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNoteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	id, err := s.InsertNote(ctx, domain.Note{
		Title:       "Groceries",
		Description: "- [ ] milk",
		CreatedAt:   now,
		ModifiedAt:  now.Add(time.Minute),
		FolderID:    7,
		Pinned:      true,
		ImageURIs:   []string{"content://media/1"},
	})
	require.NoError(t, err)

	n, err := s.GetNote(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", n.Title)
	assert.Equal(t, "- [ ] milk", n.Description)
	assert.Equal(t, int64(7), n.FolderID)
	assert.True(t, n.Pinned)
	assert.False(t, n.Deleted)
	assert.Equal(t, []string{"content://media/1"}, n.ImageURIs)
	assert.True(t, now.Add(time.Minute).Equal(n.ModifiedAt))

	empty, err := s.InsertNote(ctx, domain.Note{Title: "Empty", CreatedAt: now, ModifiedAt: now})
	require.NoError(t, err)
	n, err = s.GetNote(ctx, empty)
	require.NoError(t, err)
	assert.Equal(t, "", n.Description)
	assert.Empty(t, n.ImageURIs)
}

func TestSoftAndHardDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	a, err := s.InsertNote(ctx, domain.Note{Title: "a", CreatedAt: now, ModifiedAt: now, FolderID: 1})
	require.NoError(t, err)
	b, err := s.InsertNote(ctx, domain.Note{Title: "b", CreatedAt: now, ModifiedAt: now, FolderID: 1})
	require.NoError(t, err)

	require.NoError(t, s.SetNotesDeleted(ctx, []int64{a}, true))
	active, err := s.ListNotes(ctx, 1, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b, active[0].ID)

	trashed, err := s.ListNotesByState(ctx, true)
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, a, trashed[0].ID)

	require.NoError(t, s.DeleteNotes(ctx, []int64{a}))
	_, err = s.GetNote(ctx, a)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSearchEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	_, err := s.InsertNote(ctx, domain.Note{Title: "100% done", CreatedAt: now, ModifiedAt: now})
	require.NoError(t, err)
	_, err = s.InsertNote(ctx, domain.Note{Title: "1000 things", CreatedAt: now, ModifiedAt: now})
	require.NoError(t, err)
	_, err = s.InsertNote(ctx, domain.Note{Title: "other", Description: "Mentions DONE here", CreatedAt: now, ModifiedAt: now})
	require.NoError(t, err)

	got, err := s.SearchNotes(ctx, LikePattern("0%"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100% done", got[0].Title)

	got, err = s.SearchNotes(ctx, LikePattern("Done"))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFolderSummaryCounts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	parent, err := s.InsertFolder(ctx, domain.Folder{Name: "Work", CreatedAt: now})
	require.NoError(t, err)
	_, err = s.InsertFolder(ctx, domain.Folder{Name: "Sub", CreatedAt: now, ParentID: &parent})
	require.NoError(t, err)
	_, err = s.InsertFolder(ctx, domain.Folder{Name: "Gone", CreatedAt: now, ParentID: &parent, Deleted: true})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = s.InsertNote(ctx, domain.Note{Title: "n", CreatedAt: now, ModifiedAt: now, FolderID: parent})
		require.NoError(t, err)
	}
	_, err = s.InsertNote(ctx, domain.Note{Title: "trashed", CreatedAt: now, ModifiedAt: now, FolderID: parent, Deleted: true})
	require.NoError(t, err)

	sum, err := s.FolderSummary(ctx, parent)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.SubfolderCount)
	assert.Equal(t, 2, sum.NoteCount)

	found, err := s.SearchFolderSummaries(ctx, LikePattern("WOR"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, parent, found[0].ID)
	assert.Equal(t, 2, found[0].NoteCount)
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, ok, err := s.GetPreference(ctx, PrefSortKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetPreference(ctx, PrefSortKey, "title"))
	require.NoError(t, s.SetPreference(ctx, PrefSortKey, "modified"))
	v, ok, err := s.GetPreference(ctx, PrefSortKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "modified", v)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.InsertFolder(ctx, domain.Folder{Name: "tmp", CreatedAt: time.Now()}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	folders, notes, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, folders)
	assert.Zero(t, notes)
}
