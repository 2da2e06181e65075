// repository/folders.go
package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ViniZap4/notes-server/domain"
	"github.com/ViniZap4/notes-server/store"
)

// CreateFolder inserts an active folder under parentID (nil for root).
// Sibling names need not be unique.
func (r *Repository) CreateFolder(ctx context.Context, name string, parentID *int64) (domain.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Folder{}, fmt.Errorf("create folder: name is required: %w", domain.ErrInvalidInput)
	}

	f := domain.Folder{Name: name, CreatedAt: r.now(), ParentID: parentID}
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		if parentID != nil {
			if _, err := activeFolder(ctx, tx, *parentID); err != nil {
				return err
			}
		}
		id, err := tx.InsertFolder(ctx, f)
		f.ID = id
		return err
	})
	if err != nil {
		return domain.Folder{}, fmt.Errorf("create folder: %w", err)
	}

	r.log.Debug().Int64("folder", f.ID).Str("name", f.Name).Msg("folder created")
	r.publish(domain.Event{Type: domain.FolderCreated, FolderIDs: []int64{f.ID}, Folder: &f})
	return f, nil
}

// Folder returns a folder whether or not it is deleted.
func (r *Repository) Folder(ctx context.Context, id int64) (domain.Folder, error) {
	return r.store.GetFolder(ctx, id)
}

// UpdateFolder replaces the stored row with f. A changed parent is validated
// like MoveFolder. The deleted flag cannot change here; use DeleteFolder and
// RecoverFolder so the change cascades.
func (r *Repository) UpdateFolder(ctx context.Context, f domain.Folder) (domain.Folder, error) {
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return domain.Folder{}, fmt.Errorf("update folder %d: name is required: %w", f.ID, domain.ErrInvalidInput)
	}

	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		old, err := tx.GetFolder(ctx, f.ID)
		if err != nil {
			return err
		}
		if old.Deleted != f.Deleted {
			return fmt.Errorf("deleted flag is managed by delete and recover: %w", domain.ErrInvalidInput)
		}
		if !domain.SameParent(old.ParentID, f.ParentID) {
			if err := validateParent(ctx, tx, f.ID, f.ParentID); err != nil {
				return err
			}
		}
		if f.CreatedAt.IsZero() {
			f.CreatedAt = old.CreatedAt
		}
		return tx.UpdateFolder(ctx, f)
	})
	if err != nil {
		return domain.Folder{}, fmt.Errorf("update folder %d: %w", f.ID, err)
	}

	r.publish(domain.Event{Type: domain.FolderUpdated, FolderIDs: []int64{f.ID}, Folder: &f})
	return f, nil
}

// RenameFolder changes only the folder name.
func (r *Repository) RenameFolder(ctx context.Context, id int64, name string) (domain.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Folder{}, fmt.Errorf("rename folder %d: name is required: %w", id, domain.ErrInvalidInput)
	}

	var f domain.Folder
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		if f, err = tx.GetFolder(ctx, id); err != nil {
			return err
		}
		f.Name = name
		return tx.UpdateFolder(ctx, f)
	})
	if err != nil {
		return domain.Folder{}, fmt.Errorf("rename folder %d: %w", id, err)
	}

	r.log.Debug().Int64("folder", id).Str("name", name).Msg("folder renamed")
	r.publish(domain.Event{Type: domain.FolderUpdated, FolderIDs: []int64{id}, Folder: &f})
	return f, nil
}

// MoveFolder re-parents folder id under targetParentID (nil for root). The
// target must be an active folder outside the moved subtree.
func (r *Repository) MoveFolder(ctx context.Context, id int64, targetParentID *int64) (domain.Folder, error) {
	var f domain.Folder
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		if f, err = tx.GetFolder(ctx, id); err != nil {
			return err
		}
		if f.Deleted {
			return fmt.Errorf("folder is deleted: %w", domain.ErrInvalidState)
		}
		if err := validateParent(ctx, tx, id, targetParentID); err != nil {
			return err
		}
		if domain.SameParent(f.ParentID, targetParentID) {
			return nil
		}
		f.ParentID = targetParentID
		return tx.UpdateFolder(ctx, f)
	})
	if err != nil {
		return domain.Folder{}, fmt.Errorf("move folder %d: %w", id, err)
	}

	r.log.Debug().Int64("folder", id).Int64("parent", f.Parent()).Msg("folder moved")
	r.publish(domain.Event{Type: domain.FolderMoved, FolderIDs: []int64{id}, Folder: &f})
	return f, nil
}

// MoveTargets lists the active folders folder id may be moved under: every
// active folder except the folder itself and its descendants.
func (r *Repository) MoveTargets(ctx context.Context, id int64) ([]domain.Folder, error) {
	var targets []domain.Folder
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		if _, err := tx.GetFolder(ctx, id); err != nil {
			return err
		}
		excluded, err := subtree(ctx, tx, id)
		if err != nil {
			return err
		}
		active, err := tx.ListFolders(ctx, false)
		if err != nil {
			return err
		}
		for _, f := range active {
			if !slices.Contains(excluded, f.ID) {
				targets = append(targets, f)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("move targets for folder %d: %w", id, err)
	}
	return targets, nil
}

// DeleteFolder soft-deletes the folder, every folder below it and every note
// filed in any of them, in one transaction.
func (r *Repository) DeleteFolder(ctx context.Context, id int64) (Affected, error) {
	var aff Affected
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		f, err := tx.GetFolder(ctx, id)
		if err != nil {
			return err
		}
		if f.Deleted {
			return fmt.Errorf("folder is already deleted: %w", domain.ErrInvalidState)
		}
		if aff.FolderIDs, err = subtree(ctx, tx, id); err != nil {
			return err
		}
		if aff.NoteIDs, err = tx.NoteIDsInFolders(ctx, aff.FolderIDs); err != nil {
			return err
		}
		if err := tx.SetFoldersDeleted(ctx, aff.FolderIDs, true); err != nil {
			return err
		}
		return tx.SetNotesDeleted(ctx, aff.NoteIDs, true)
	})
	if err != nil {
		return Affected{}, fmt.Errorf("delete folder %d: %w", id, err)
	}

	r.log.Debug().Int64("folder", id).Int("folders", len(aff.FolderIDs)).Int("notes", len(aff.NoteIDs)).Msg("folder deleted")
	r.publish(domain.Event{Type: domain.FolderDeleted, FolderIDs: aff.FolderIDs, NoteIDs: aff.NoteIDs})
	return aff, nil
}

// RecoverFolder restores a soft-deleted folder with its subtree and notes.
// A folder whose parent is gone or still deleted is recovered at the root.
func (r *Repository) RecoverFolder(ctx context.Context, id int64) (Affected, error) {
	var aff Affected
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		f, err := tx.GetFolder(ctx, id)
		if err != nil {
			return err
		}
		if !f.Deleted {
			return fmt.Errorf("folder is not deleted: %w", domain.ErrInvalidState)
		}
		if aff.FolderIDs, err = subtree(ctx, tx, id); err != nil {
			return err
		}
		if aff.NoteIDs, err = tx.NoteIDsInFolders(ctx, aff.FolderIDs); err != nil {
			return err
		}
		if err := tx.SetFoldersDeleted(ctx, aff.FolderIDs, false); err != nil {
			return err
		}
		if err := tx.SetNotesDeleted(ctx, aff.NoteIDs, false); err != nil {
			return err
		}

		if f.ParentID == nil {
			return nil
		}
		parent, err := tx.GetFolder(ctx, *f.ParentID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err == nil && !parent.Deleted {
			return nil
		}
		f.ParentID = nil
		f.Deleted = false
		return tx.UpdateFolder(ctx, f)
	})
	if err != nil {
		return Affected{}, fmt.Errorf("recover folder %d: %w", id, err)
	}

	r.publish(domain.Event{Type: domain.FolderRecovered, FolderIDs: aff.FolderIDs, NoteIDs: aff.NoteIDs})
	return aff, nil
}

// PurgeFolder permanently removes a soft-deleted folder, its subtree and
// their notes. Active folders must be deleted first.
func (r *Repository) PurgeFolder(ctx context.Context, id int64) (Affected, error) {
	var aff Affected
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		f, err := tx.GetFolder(ctx, id)
		if err != nil {
			return err
		}
		if !f.Deleted {
			return fmt.Errorf("folder is active: %w", domain.ErrInvalidState)
		}
		if aff.FolderIDs, err = subtree(ctx, tx, id); err != nil {
			return err
		}
		if aff.NoteIDs, err = tx.NoteIDsInFolders(ctx, aff.FolderIDs); err != nil {
			return err
		}
		if err := tx.DeleteNotes(ctx, aff.NoteIDs); err != nil {
			return err
		}
		return tx.DeleteFolders(ctx, aff.FolderIDs)
	})
	if err != nil {
		return Affected{}, fmt.Errorf("purge folder %d: %w", id, err)
	}

	r.log.Info().Int64("folder", id).Int("folders", len(aff.FolderIDs)).Int("notes", len(aff.NoteIDs)).Msg("folder purged")
	r.publish(domain.Event{Type: domain.FolderPurged, FolderIDs: aff.FolderIDs, NoteIDs: aff.NoteIDs})
	return aff, nil
}

// Subfolders returns the active children of parentID (nil for root folders),
// newest first.
func (r *Repository) Subfolders(ctx context.Context, parentID *int64) ([]domain.Folder, error) {
	if parentID != nil {
		if _, err := r.store.GetFolder(ctx, *parentID); err != nil {
			return nil, fmt.Errorf("subfolders: %w", err)
		}
	}
	folders, err := r.store.ListSubfolders(ctx, parentID, false)
	if err != nil {
		return nil, fmt.Errorf("subfolders: %w", err)
	}
	slices.SortStableFunc(folders, func(a, b domain.Folder) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return folders, nil
}

// ActiveFolders returns every active folder, newest first.
func (r *Repository) ActiveFolders(ctx context.Context) ([]domain.Folder, error) {
	return r.store.ListFolders(ctx, false)
}

// DeletedFolders returns every soft-deleted folder, newest first.
func (r *Repository) DeletedFolders(ctx context.Context) ([]domain.Folder, error) {
	return r.store.ListFolders(ctx, true)
}

// FolderSummary returns the folder with its active subfolder and note counts.
func (r *Repository) FolderSummary(ctx context.Context, id int64) (domain.FolderSummary, error) {
	return r.store.FolderSummary(ctx, id)
}

// FolderInfo renders FolderSummary as "N subfolders · M notes".
func (r *Repository) FolderInfo(ctx context.Context, id int64) (string, error) {
	sum, err := r.store.FolderSummary(ctx, id)
	if err != nil {
		return "", fmt.Errorf("folder info: %w", err)
	}
	return sum.Info(), nil
}

// Tree returns the active subtree rooted at folder id. Passing
// domain.RootFolderID returns a synthetic root holding the unfiled notes and
// the root folders.
func (r *Repository) Tree(ctx context.Context, id int64) (*domain.TreeNode, error) {
	var root *domain.TreeNode
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		var f domain.Folder
		if id != domain.RootFolderID {
			var err error
			if f, err = tx.GetFolder(ctx, id); err != nil {
				return err
			}
		}
		var err error
		root, err = buildTree(ctx, tx, f, map[int64]bool{})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("folder tree %d: %w", id, err)
	}
	return root, nil
}

func buildTree(ctx context.Context, s *store.Store, f domain.Folder, seen map[int64]bool) (*domain.TreeNode, error) {
	seen[f.ID] = true
	node := &domain.TreeNode{Folder: f}

	notes, err := s.ListNotes(ctx, f.ID, false)
	if err != nil {
		return nil, err
	}
	node.Notes = notes

	children, err := s.ListSubfolders(ctx, domain.ParentRef(f.ID), false)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		if seen[c.ID] {
			continue
		}
		child, err := buildTree(ctx, s, c, seen)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}
