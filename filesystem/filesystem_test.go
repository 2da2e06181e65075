package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViniZap4/notes-server/domain"
	"github.com/ViniZap4/notes-server/repository"
	"github.com/ViniZap4/notes-server/store"
)

func newRepo(t *testing.T) *repository.Repository {
	t.Helper()
	s, err := store.Open("sqlite3", filepath.Join(t.TempDir(), "notes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	_, err = s.Migrate()
	require.NoError(t, err)
	return repository.New(s)
}

func TestSlug(t *testing.T) {
	for in, want := range map[string]string{
		"Hello World":      "hello-world",
		"Café crème":       "cafe-creme",
		"  --Q3 / plans!":  "q3-plans",
		"???":              "",
		"Ünïcödé_folder 2": "unicode-folder-2",
	} {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestNoteFrontmatterRoundTrip(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	n := domain.Note{
		ID:          7,
		Title:       "Groceries",
		Description: "- milk\n\n---\n- eggs",
		CreatedAt:   created,
		ModifiedAt:  created.Add(time.Hour),
		Pinned:      true,
		Edited:      true,
		ImageURIs:   []string{"img/1.png"},
		FolderID:    3,
		Deleted:     true,
	}
	path := filepath.Join(t.TempDir(), "groceries.md")
	require.NoError(t, WriteNote(path, n))

	got, err := ReadNote(path)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, n.Title, got.Title)
	assert.Equal(t, n.Description, got.Description)
	assert.True(t, n.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, n.ModifiedAt.Equal(got.ModifiedAt))
	assert.True(t, got.Pinned)
	assert.True(t, got.Edited)
	assert.Equal(t, n.ImageURIs, got.ImageURIs)
	// storage-only fields stay out of the file
	assert.Zero(t, got.FolderID)
	assert.False(t, got.Deleted)

	_, err = ParseNote([]byte("# just markdown"))
	assert.ErrorIs(t, err, errNoFrontmatter)
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newRepo(t)

	work, err := src.CreateFolder(ctx, "Work", nil)
	require.NoError(t, err)
	q3, err := src.CreateFolder(ctx, "Q3 plans", &work.ID)
	require.NoError(t, err)
	_, err = src.CreateFolder(ctx, "Q3 plans", &work.ID)
	require.NoError(t, err)
	_, err = src.CreateNote(ctx, domain.NoteInput{Title: "Budget", Description: "numbers", FolderID: q3.ID, Pinned: true})
	require.NoError(t, err)
	_, err = src.CreateNote(ctx, domain.NoteInput{Title: "Inbox", Description: "loose"})
	require.NoError(t, err)

	dir := t.TempDir()
	st, err := Export(ctx, src, domain.RootFolderID, dir)
	require.NoError(t, err)
	assert.Equal(t, Stats{Folders: 3, Notes: 2}, st)

	assert.FileExists(t, filepath.Join(dir, "inbox.md"))
	assert.FileExists(t, filepath.Join(dir, "work", FolderMetaFile))
	assert.FileExists(t, filepath.Join(dir, "work", "q3-plans", "budget.md"))
	entries, err := os.ReadDir(filepath.Join(dir, "work"))
	require.NoError(t, err)
	assert.Len(t, entries, 3) // meta file plus two distinct folder dirs

	dst := newRepo(t)
	st, err = Import(ctx, dst, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Folders: 3, Notes: 2}, st)

	root, err := dst.Tree(ctx, domain.RootFolderID)
	require.NoError(t, err)
	require.Len(t, root.Notes, 1)
	assert.Equal(t, "Inbox", root.Notes[0].Title)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "Work", root.Children[0].Folder.Name)
	require.Len(t, root.Children[0].Children, 2)

	var budget *domain.Note
	root.Walk(func(n *domain.TreeNode) {
		for i := range n.Notes {
			if n.Notes[i].Title == "Budget" {
				budget = &n.Notes[i]
				assert.Equal(t, "Q3 plans", n.Folder.Name)
			}
		}
	})
	require.NotNil(t, budget)
	assert.True(t, budget.Pinned)
	assert.Equal(t, "numbers", budget.Description)
}

func TestExportSingleFolder(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	f, err := repo.CreateFolder(ctx, "Recipes", nil)
	require.NoError(t, err)
	_, err = repo.CreateNote(ctx, domain.NoteInput{Title: "Soup", FolderID: f.ID})
	require.NoError(t, err)

	dir := t.TempDir()
	st, err := Export(ctx, repo, f.ID, dir)
	require.NoError(t, err)
	assert.Equal(t, Stats{Folders: 1, Notes: 1}, st)
	assert.FileExists(t, filepath.Join(dir, "recipes", "soup.md"))

	_, err = Export(ctx, repo, 404, dir)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestImportSkipsForeignFiles(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.md"), []byte("# no frontmatter"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Journal"), 0o755))
	require.NoError(t, WriteNote(filepath.Join(dir, "Journal", "day.md"), domain.Note{Description: "sunny"}))

	st, err := Import(ctx, repo, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Folders: 1, Notes: 1}, st)

	root, err := repo.Tree(ctx, domain.RootFolderID)
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "Journal", root.Children[0].Folder.Name)
	require.Len(t, root.Children[0].Notes, 1)
	assert.Equal(t, "day", root.Children[0].Notes[0].Title)
}
