// filesystem/tree.go
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ViniZap4/notes-server/domain"
)

// FolderMetaFile keeps the real folder name next to its slugged directory.
const FolderMetaFile = ".folder.yaml"

// Repository is what export and import need from the note store.
type Repository interface {
	Tree(ctx context.Context, folderID int64) (*domain.TreeNode, error)
	CreateFolder(ctx context.Context, name string, parentID *int64) (domain.Folder, error)
	CreateNote(ctx context.Context, in domain.NoteInput) (domain.Note, error)
}

type Stats struct {
	Folders int `json:"folders"`
	Notes   int `json:"notes"`
}

type folderMeta struct {
	ID        int64     `yaml:"id,omitempty"`
	Name      string    `yaml:"name"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Export writes the active subtree of folderID below dir: one directory per
// folder and one markdown file per note. domain.RootFolderID exports
// everything, with unfiled notes directly in dir.
func Export(ctx context.Context, repo Repository, folderID int64, dir string) (Stats, error) {
	tree, err := repo.Tree(ctx, folderID)
	if err != nil {
		return Stats{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Stats{}, fmt.Errorf("create export dir: %w", err)
	}

	var st Stats
	if folderID == domain.RootFolderID {
		err = exportContents(ctx, tree, dir, &st)
	} else {
		err = exportFolder(ctx, tree, dir, map[string]bool{}, &st)
	}
	return st, err
}

func exportFolder(ctx context.Context, node *domain.TreeNode, parentDir string, taken map[string]bool, st *Stats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := uniqueName(Slug(node.Folder.Name), "folder", node.Folder.ID, "", taken)
	dir := filepath.Join(parentDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create folder dir: %w", err)
	}

	meta, err := yaml.Marshal(folderMeta{ID: node.Folder.ID, Name: node.Folder.Name, CreatedAt: node.Folder.CreatedAt})
	if err != nil {
		return fmt.Errorf("encode folder %d: %w", node.Folder.ID, err)
	}
	if err := os.WriteFile(filepath.Join(dir, FolderMetaFile), meta, 0o644); err != nil {
		return err
	}
	st.Folders++
	return exportContents(ctx, node, dir, st)
}

func exportContents(ctx context.Context, node *domain.TreeNode, dir string, st *Stats) error {
	taken := map[string]bool{}
	for _, n := range node.Notes {
		name := uniqueName(Slug(n.Title), "note", n.ID, ".md", taken)
		if err := WriteNote(filepath.Join(dir, name), n); err != nil {
			return fmt.Errorf("export note %d: %w", n.ID, err)
		}
		st.Notes++
	}
	for _, child := range node.Children {
		if err := exportFolder(ctx, child, dir, taken, st); err != nil {
			return err
		}
	}
	return nil
}

// uniqueName picks stem+ext, falling back to stem-id+ext when a sibling
// already took it. taken is shared between notes and folders of one
// directory.
func uniqueName(stem, kind string, id int64, ext string, taken map[string]bool) string {
	if stem == "" {
		stem = kind
	}
	name := stem + ext
	if taken[name] {
		name = stem + "-" + strconv.FormatInt(id, 10) + ext
	}
	taken[name] = true
	return name
}

// Import recreates the folders and notes found below dir under parentID
// (nil for root). Files that are not markdown with frontmatter are skipped.
// Imported rows get new ids and timestamps.
func Import(ctx context.Context, repo Repository, dir string, parentID *int64) (Stats, error) {
	var st Stats
	err := importDir(ctx, repo, dir, parentID, &st)
	return st, err
}

func importDir(ctx context.Context, repo Repository, dir string, parentID *int64, st *Stats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	folderID := domain.RootFolderID
	if parentID != nil {
		folderID = *parentID
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)

		if entry.IsDir() {
			f, err := repo.CreateFolder(ctx, folderName(path, name), parentID)
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}
			st.Folders++
			if err := importDir(ctx, repo, path, &f.ID, st); err != nil {
				return err
			}
			continue
		}

		if !strings.HasSuffix(name, ".md") {
			continue
		}
		n, err := ReadNote(path)
		if errors.Is(err, errNoFrontmatter) {
			continue
		}
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		if n.Title == "" {
			n.Title = strings.TrimSuffix(name, ".md")
		}
		_, err = repo.CreateNote(ctx, domain.NoteInput{
			Title:       n.Title,
			Description: n.Description,
			FolderID:    folderID,
			Pinned:      n.Pinned,
			ImageURIs:   n.ImageURIs,
		})
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		st.Notes++
	}
	return nil
}

func folderName(dir, fallback string) string {
	data, err := os.ReadFile(filepath.Join(dir, FolderMetaFile))
	if err != nil {
		return fallback
	}
	var meta folderMeta
	if yaml.Unmarshal(data, &meta) != nil || strings.TrimSpace(meta.Name) == "" {
		return fallback
	}
	return meta.Name
}
