// repository/copy.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/ViniZap4/notes-server/domain"
	"github.com/ViniZap4/notes-server/store"
)

type copyOptions struct {
	atomic bool
}

type CopyOption func(*copyOptions)

// WithinTransaction runs the whole copy in one transaction so a failure
// leaves nothing behind. Without it every insert commits on its own and a
// failure returns a *domain.PartialCopyError.
func WithinTransaction() CopyOption {
	return func(o *copyOptions) { o.atomic = true }
}

// CopyFolder duplicates folder sourceID, its active notes and its active
// subfolders, recursively, under targetParentID (nil for root). Copies get new
// ids and keep every other field. The source is never modified.
//
// The target must not be the source or one of its descendants.
func (r *Repository) CopyFolder(ctx context.Context, sourceID int64, targetParentID *int64, opts ...CopyOption) (domain.CopyResult, error) {
	var o copyOptions
	for _, opt := range opts {
		opt(&o)
	}

	log := r.log.With().
		Str("op", uuid.NewString()).
		Int64("source", sourceID).
		Int64("target", derefParent(targetParentID)).
		Logger()

	source, err := r.store.GetFolder(ctx, sourceID)
	if err != nil {
		return domain.CopyResult{}, fmt.Errorf("copy folder %d: %w", sourceID, err)
	}
	if source.Deleted {
		return domain.CopyResult{}, fmt.Errorf("copy folder %d: folder is deleted: %w", sourceID, domain.ErrInvalidState)
	}
	if err := validateParent(ctx, r.store, sourceID, targetParentID); err != nil {
		return domain.CopyResult{}, fmt.Errorf("copy folder %d: %w", sourceID, err)
	}

	var result domain.CopyResult
	if o.atomic {
		err = r.store.WithTx(ctx, func(tx *store.Store) error {
			return copyTree(ctx, tx, source, targetParentID, &result)
		})
		if err != nil {
			log.Warn().Err(err).Msg("folder copy rolled back")
			return domain.CopyResult{}, fmt.Errorf("copy folder %d: %w", sourceID, err)
		}
	} else if err = copyTree(ctx, r.store, source, targetParentID, &result); err != nil {
		if result.Empty() {
			return domain.CopyResult{}, fmt.Errorf("copy folder %d: %w", sourceID, err)
		}
		log.Warn().Err(err).
			Int("folders", len(result.FolderIDs)).
			Int("notes", len(result.NoteIDs)).
			Msg("folder copy stopped part way")
		r.publish(domain.Event{Type: domain.FolderCopied, FolderIDs: result.FolderIDs, NoteIDs: result.NoteIDs})
		return result, &domain.PartialCopyError{SourceID: sourceID, Partial: result, Err: err}
	}

	log.Info().Int64("root", result.RootID).
		Int("folders", len(result.FolderIDs)).
		Int("notes", len(result.NoteIDs)).
		Msg("folder copied")
	r.publish(domain.Event{Type: domain.FolderCopied, FolderIDs: result.FolderIDs, NoteIDs: result.NoteIDs})
	return result, nil
}

// copyTree inserts a copy of src under parent, then its notes, then recurses
// into its subfolders. Every created id is appended to res as soon as the
// insert succeeds.
func copyTree(ctx context.Context, s *store.Store, src domain.Folder, parent *int64, res *domain.CopyResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	clone := src
	clone.ID = 0
	clone.ParentID = parent
	clone.Deleted = false
	newID, err := s.InsertFolder(ctx, clone)
	if err != nil {
		return err
	}
	if res.RootID == 0 {
		res.RootID = newID
	}
	res.FolderIDs = append(res.FolderIDs, newID)

	notes, err := s.ListNotes(ctx, src.ID, false)
	if err != nil {
		return err
	}
	for _, n := range notes {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := n.Clone()
		c.ID = 0
		c.FolderID = newID
		id, err := s.InsertNote(ctx, c)
		if err != nil {
			return fmt.Errorf("copy note %d: %w", n.ID, err)
		}
		res.NoteIDs = append(res.NoteIDs, id)
	}

	subs, err := s.ListSubfolders(ctx, &src.ID, false)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		// copies made by this run are never copied again
		if slices.Contains(res.FolderIDs, sub.ID) {
			continue
		}
		if err := copyTree(ctx, s, sub, &newID, res); err != nil {
			return err
		}
	}
	return nil
}

// DiscardCopy permanently removes the rows a copy created, typically the
// Partial result of a *domain.PartialCopyError. res must describe the whole
// subtree under res.RootID, folders and notes alike, or nothing is removed.
func (r *Repository) DiscardCopy(ctx context.Context, res domain.CopyResult) error {
	if res.Empty() {
		return nil
	}
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		if !slices.Contains(res.FolderIDs, res.RootID) {
			return fmt.Errorf("root is not among the copied folders: %w", domain.ErrInvalidInput)
		}
		if _, err := tx.GetFolder(ctx, res.RootID); err != nil {
			return err
		}
		folders, err := subtree(ctx, tx, res.RootID)
		if err != nil {
			return err
		}
		notes, err := tx.NoteIDsInFolders(ctx, folders)
		if err != nil {
			return err
		}
		if !sameIDs(folders, res.FolderIDs) || !sameIDs(notes, res.NoteIDs) {
			return fmt.Errorf("rows do not match the folder subtree: %w", domain.ErrInvalidInput)
		}
		if err := tx.DeleteNotes(ctx, notes); err != nil {
			return err
		}
		return tx.DeleteFolders(ctx, folders)
	})
	if err != nil {
		return fmt.Errorf("discard copy %d: %w", res.RootID, err)
	}

	r.log.Info().Int64("root", res.RootID).Msg("partial copy discarded")
	r.publish(domain.Event{Type: domain.FolderPurged, FolderIDs: res.FolderIDs, NoteIDs: res.NoteIDs})
	return nil
}

// sameIDs compares two id lists as sets.
func sameIDs(a, b []int64) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(slices.Compact(a), slices.Compact(b))
}

// CopyNote duplicates an active note into folderID.
func (r *Repository) CopyNote(ctx context.Context, id, folderID int64) (domain.Note, error) {
	var n domain.Note
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		src, err := tx.GetNote(ctx, id)
		if err != nil {
			return err
		}
		if src.Deleted {
			return fmt.Errorf("note is deleted: %w", domain.ErrInvalidState)
		}
		if folderID != domain.RootFolderID {
			if _, err := activeFolder(ctx, tx, folderID); err != nil {
				return err
			}
		}
		n = src.Clone()
		n.FolderID = folderID
		n.ID, err = tx.InsertNote(ctx, n)
		return err
	})
	if err != nil {
		return domain.Note{}, fmt.Errorf("copy note %d: %w", id, err)
	}

	r.publish(domain.Event{Type: domain.NoteCreated, NoteIDs: []int64{n.ID}, Note: &n})
	return n, nil
}

func derefParent(p *int64) int64 {
	if p == nil {
		return domain.RootFolderID
	}
	return *p
}

// IsPartialCopy reports whether err carries a partial copy and returns it.
func IsPartialCopy(err error) (*domain.PartialCopyError, bool) {
	var pe *domain.PartialCopyError
	ok := errors.As(err, &pe)
	return pe, ok
}
