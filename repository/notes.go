// repository/notes.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ViniZap4/notes-server/domain"
	"github.com/ViniZap4/notes-server/store"
)

// CreateNote files a new active note in in.FolderID, which must be
// domain.RootFolderID or an active folder.
func (r *Repository) CreateNote(ctx context.Context, in domain.NoteInput) (domain.Note, error) {
	now := r.now()
	n := domain.Note{
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   now,
		ModifiedAt:  now,
		FolderID:    in.FolderID,
		Pinned:      in.Pinned,
		ImageURIs:   slices.Clone(in.ImageURIs),
	}
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		if n.FolderID != domain.RootFolderID {
			if _, err := activeFolder(ctx, tx, n.FolderID); err != nil {
				return err
			}
		}
		id, err := tx.InsertNote(ctx, n)
		n.ID = id
		return err
	})
	if err != nil {
		return domain.Note{}, fmt.Errorf("create note: %w", err)
	}

	r.log.Debug().Int64("note", n.ID).Int64("folder", n.FolderID).Msg("note created")
	r.publish(domain.Event{Type: domain.NoteCreated, NoteIDs: []int64{n.ID}, Note: &n})
	return n, nil
}

// Note returns a note whether or not it is deleted.
func (r *Repository) Note(ctx context.Context, id int64) (domain.Note, error) {
	return r.store.GetNote(ctx, id)
}

// UpdateNote replaces the stored note with n and stamps the modification
// time. Once a note is edited it stays edited. A zero CreatedAt keeps the
// stored value. The deleted flag cannot change here.
func (r *Repository) UpdateNote(ctx context.Context, n domain.Note) (domain.Note, error) {
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		old, err := tx.GetNote(ctx, n.ID)
		if err != nil {
			return err
		}
		if old.Deleted != n.Deleted {
			return fmt.Errorf("deleted flag is managed by delete and recover: %w", domain.ErrInvalidInput)
		}
		if n.FolderID != old.FolderID && n.FolderID != domain.RootFolderID {
			if _, err := activeFolder(ctx, tx, n.FolderID); err != nil {
				return err
			}
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = old.CreatedAt
		}
		n.Edited = old.Edited || n.Edited || contentChanged(old, n)
		n.ModifiedAt = r.now()
		return tx.UpdateNote(ctx, n)
	})
	if err != nil {
		return domain.Note{}, fmt.Errorf("update note %d: %w", n.ID, err)
	}

	r.publish(domain.Event{Type: domain.NoteUpdated, NoteIDs: []int64{n.ID}, Note: &n})
	return n, nil
}

func contentChanged(a, b domain.Note) bool {
	return a.Title != b.Title || a.Description != b.Description || !slices.Equal(a.ImageURIs, b.ImageURIs)
}

// TogglePin flips the pinned flag without touching the modification time.
func (r *Repository) TogglePin(ctx context.Context, id int64) (domain.Note, error) {
	return r.mutateNote(ctx, id, domain.NoteUpdated, func(tx *store.Store, n *domain.Note) error {
		n.Pinned = !n.Pinned
		return nil
	})
}

// MoveNote re-files a note into folderID, which must be domain.RootFolderID
// or an active folder.
func (r *Repository) MoveNote(ctx context.Context, id, folderID int64) (domain.Note, error) {
	return r.mutateNote(ctx, id, domain.NoteUpdated, func(tx *store.Store, n *domain.Note) error {
		if n.Deleted {
			return fmt.Errorf("note is deleted: %w", domain.ErrInvalidState)
		}
		if folderID != domain.RootFolderID {
			if _, err := activeFolder(ctx, tx, folderID); err != nil {
				return err
			}
		}
		n.FolderID = folderID
		return nil
	})
}

// DeleteNote moves a note to the trash.
func (r *Repository) DeleteNote(ctx context.Context, id int64) (domain.Note, error) {
	return r.mutateNote(ctx, id, domain.NoteDeleted, func(_ *store.Store, n *domain.Note) error {
		if n.Deleted {
			return fmt.Errorf("note is already deleted: %w", domain.ErrInvalidState)
		}
		n.Deleted = true
		return nil
	})
}

// RecoverNote restores a trashed note. A note whose folder is gone or still
// deleted is re-filed at the top level.
func (r *Repository) RecoverNote(ctx context.Context, id int64) (domain.Note, error) {
	return r.mutateNote(ctx, id, domain.NoteRecovered, func(tx *store.Store, n *domain.Note) error {
		if !n.Deleted {
			return fmt.Errorf("note is not deleted: %w", domain.ErrInvalidState)
		}
		n.Deleted = false
		if n.FolderID == domain.RootFolderID {
			return nil
		}
		f, err := tx.GetFolder(ctx, n.FolderID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err != nil || f.Deleted {
			n.FolderID = domain.RootFolderID
		}
		return nil
	})
}

func (r *Repository) mutateNote(ctx context.Context, id int64, evt domain.EventType, fn func(tx *store.Store, n *domain.Note) error) (domain.Note, error) {
	var n domain.Note
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		if n, err = tx.GetNote(ctx, id); err != nil {
			return err
		}
		if err := fn(tx, &n); err != nil {
			return err
		}
		return tx.UpdateNote(ctx, n)
	})
	if err != nil {
		return domain.Note{}, fmt.Errorf("note %d: %w", id, err)
	}

	r.publish(domain.Event{Type: evt, NoteIDs: []int64{id}, Note: &n})
	return n, nil
}

// PurgeNote permanently removes a trashed note.
func (r *Repository) PurgeNote(ctx context.Context, id int64) error {
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		n, err := tx.GetNote(ctx, id)
		if err != nil {
			return err
		}
		if !n.Deleted {
			return fmt.Errorf("note is active: %w", domain.ErrInvalidState)
		}
		return tx.DeleteNotes(ctx, []int64{id})
	})
	if err != nil {
		return fmt.Errorf("purge note %d: %w", id, err)
	}

	r.publish(domain.Event{Type: domain.NotePurged, NoteIDs: []int64{id}})
	return nil
}

// Notes returns the active notes of folderID, pinned first, then ordered by
// key and order.
func (r *Repository) Notes(ctx context.Context, folderID int64, key domain.SortKey, order domain.SortOrder) ([]domain.Note, error) {
	if folderID != domain.RootFolderID {
		if _, err := r.store.GetFolder(ctx, folderID); err != nil {
			return nil, fmt.Errorf("list notes: %w", err)
		}
	}
	notes, err := r.store.ListNotes(ctx, folderID, false)
	if err != nil {
		return nil, err
	}
	domain.SortNotes(notes, key, order)
	return notes, nil
}

// DeletedNotes returns the trashed notes, most recently modified first.
func (r *Repository) DeletedNotes(ctx context.Context) ([]domain.Note, error) {
	return r.store.ListNotesByState(ctx, true)
}

// EmptyTrash purges every soft-deleted folder and note.
func (r *Repository) EmptyTrash(ctx context.Context) (Affected, error) {
	var aff Affected
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		folders, err := tx.ListFolders(ctx, true)
		if err != nil {
			return err
		}
		seen := map[int64]bool{}
		for _, f := range folders {
			ids, err := subtree(ctx, tx, f.ID)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if !seen[id] {
					seen[id] = true
					aff.FolderIDs = append(aff.FolderIDs, id)
				}
			}
		}

		notes, err := tx.ListNotesByState(ctx, true)
		if err != nil {
			return err
		}
		for _, n := range notes {
			aff.NoteIDs = append(aff.NoteIDs, n.ID)
		}
		inFolders, err := tx.NoteIDsInFolders(ctx, aff.FolderIDs)
		if err != nil {
			return err
		}
		for _, id := range inFolders {
			if !slices.Contains(aff.NoteIDs, id) {
				aff.NoteIDs = append(aff.NoteIDs, id)
			}
		}

		if err := tx.DeleteNotes(ctx, aff.NoteIDs); err != nil {
			return err
		}
		return tx.DeleteFolders(ctx, aff.FolderIDs)
	})
	if err != nil {
		return Affected{}, fmt.Errorf("empty trash: %w", err)
	}

	r.log.Info().Int("folders", len(aff.FolderIDs)).Int("notes", len(aff.NoteIDs)).Msg("trash emptied")
	r.publish(domain.Event{Type: domain.TrashEmptied, FolderIDs: aff.FolderIDs, NoteIDs: aff.NoteIDs})
	return aff, nil
}
