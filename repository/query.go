// repository/query.go
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/ViniZap4/notes-server/domain"
	"github.com/ViniZap4/notes-server/store"
)

// SearchNotes returns active notes whose title or description contains q,
// ignoring case. A blank query matches nothing.
func (r *Repository) SearchNotes(ctx context.Context, q string) ([]domain.Note, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	return r.store.SearchNotes(ctx, store.LikePattern(q))
}

// SearchFolderSummaries returns active folders whose name contains q,
// ignoring case, with their child counts.
func (r *Repository) SearchFolderSummaries(ctx context.Context, q string) ([]domain.FolderSummary, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	return r.store.SearchFolderSummaries(ctx, store.LikePattern(q))
}

// Preferences returns the stored listing settings, defaulting missing keys.
func (r *Repository) Preferences(ctx context.Context) (domain.Preferences, error) {
	p := domain.DefaultPreferences()
	for _, pref := range []struct {
		key   string
		apply func(string)
	}{
		{store.PrefSortKey, func(v string) { p.SortKey = domain.ParseSortKey(v) }},
		{store.PrefSortOrder, func(v string) { p.SortOrder = domain.ParseSortOrder(v) }},
		{store.PrefViewMode, func(v string) { p.ViewMode = domain.ParseViewMode(v) }},
	} {
		v, ok, err := r.store.GetPreference(ctx, pref.key)
		if err != nil {
			return domain.Preferences{}, err
		}
		if ok {
			pref.apply(v)
		}
	}
	return p, nil
}

// SavePreferences normalizes and stores p.
func (r *Repository) SavePreferences(ctx context.Context, p domain.Preferences) (domain.Preferences, error) {
	p = domain.Preferences{
		SortKey:   domain.ParseSortKey(string(p.SortKey)),
		SortOrder: domain.ParseSortOrder(string(p.SortOrder)),
		ViewMode:  domain.ParseViewMode(string(p.ViewMode)),
	}
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.SetPreference(ctx, store.PrefSortKey, string(p.SortKey)); err != nil {
			return err
		}
		if err := tx.SetPreference(ctx, store.PrefSortOrder, string(p.SortOrder)); err != nil {
			return err
		}
		return tx.SetPreference(ctx, store.PrefViewMode, string(p.ViewMode))
	})
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("save preferences: %w", err)
	}

	r.publish(domain.Event{Type: domain.PrefsUpdated})
	return p, nil
}

// Seed fills an empty store with sample folders, each holding sample notes.
func (r *Repository) Seed(ctx context.Context, folders, notesPerFolder int) (Affected, error) {
	if folders < 0 || notesPerFolder < 0 {
		return Affected{}, fmt.Errorf("seed: negative counts: %w", domain.ErrInvalidInput)
	}

	var aff Affected
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		nf, nn, err := tx.Counts(ctx)
		if err != nil {
			return err
		}
		if nf+nn > 0 {
			return fmt.Errorf("store already holds %d folders and %d notes: %w", nf, nn, domain.ErrInvalidState)
		}

		now := r.now()
		for i := 1; i <= folders; i++ {
			fid, err := tx.InsertFolder(ctx, domain.Folder{Name: fmt.Sprintf("Folder %d", i), CreatedAt: now})
			if err != nil {
				return err
			}
			aff.FolderIDs = append(aff.FolderIDs, fid)
			for j := 1; j <= notesPerFolder; j++ {
				title := fmt.Sprintf("Note %d.%d", i, j)
				nid, err := tx.InsertNote(ctx, domain.Note{
					Title:       title,
					Description: "This is the description of " + title,
					CreatedAt:   now,
					ModifiedAt:  now,
					FolderID:    fid,
				})
				if err != nil {
					return err
				}
				aff.NoteIDs = append(aff.NoteIDs, nid)
			}
		}
		return nil
	})
	if err != nil {
		return Affected{}, fmt.Errorf("seed: %w", err)
	}

	r.log.Info().Int("folders", len(aff.FolderIDs)).Int("notes", len(aff.NoteIDs)).Msg("store seeded")
	r.publish(domain.Event{Type: domain.FolderCreated, FolderIDs: aff.FolderIDs, NoteIDs: aff.NoteIDs})
	return aff, nil
}
