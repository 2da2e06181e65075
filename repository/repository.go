// repository/repository.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ViniZap4/notes-server/domain"
	"github.com/ViniZap4/notes-server/store"
)

// Notifier receives an event after every committed change.
type Notifier interface {
	Notify(evt domain.Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(domain.Event) {}

// Repository mediates between callers and the store and owns the tree
// invariants: no folder becomes its own ancestor, active folders only hang
// under active folders, and deletes cascade through whole subtrees.
type Repository struct {
	store  *store.Store
	notify Notifier
	log    zerolog.Logger
	now    func() time.Time
}

type Option func(*Repository)

func WithNotifier(n Notifier) Option {
	return func(r *Repository) {
		if n != nil {
			r.notify = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Repository) { r.log = l }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// New creates a Repository over s. The caller owns s and closes it.
func New(s *store.Store, opts ...Option) *Repository {
	r := &Repository{
		store:  s,
		notify: nopNotifier{},
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Affected lists the rows touched by a cascading operation.
type Affected struct {
	FolderIDs []int64 `json:"folder_ids"`
	NoteIDs   []int64 `json:"note_ids"`
}

func (r *Repository) publish(evt domain.Event) {
	r.notify.Notify(evt)
}

// activeFolder loads id and rejects it as a target when it is missing or
// soft-deleted.
func activeFolder(ctx context.Context, s *store.Store, id int64) (domain.Folder, error) {
	f, err := s.GetFolder(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Folder{}, fmt.Errorf("folder %d does not exist: %w", id, domain.ErrInvalidTarget)
	}
	if err != nil {
		return domain.Folder{}, err
	}
	if f.Deleted {
		return domain.Folder{}, fmt.Errorf("folder %d is deleted: %w", id, domain.ErrInvalidTarget)
	}
	return f, nil
}

// validateParent checks that target may become the parent of folderID:
// it must be nil (root) or an active folder that is neither folderID nor one
// of its descendants.
func validateParent(ctx context.Context, s *store.Store, folderID int64, target *int64) error {
	if target == nil {
		return nil
	}
	if *target == folderID {
		return fmt.Errorf("folder %d cannot contain itself: %w", folderID, domain.ErrInvalidTarget)
	}

	parent, err := activeFolder(ctx, s, *target)
	if err != nil {
		return err
	}

	seen := map[int64]bool{parent.ID: true}
	for next := parent.ParentID; next != nil; {
		if *next == folderID {
			return fmt.Errorf("folder %d is a descendant of folder %d: %w", *target, folderID, domain.ErrInvalidTarget)
		}
		if seen[*next] {
			return fmt.Errorf("ancestors of folder %d loop at %d: %w", *target, *next, domain.ErrInvalidTarget)
		}
		seen[*next] = true

		anc, err := s.GetFolder(ctx, *next)
		if errors.Is(err, domain.ErrNotFound) {
			// A dangling parent reference ends the chain like a root.
			break
		}
		if err != nil {
			return err
		}
		next = anc.ParentID
	}
	return nil
}

// subtree returns rootID followed by every descendant folder id, deleted or
// not, breadth first.
func subtree(ctx context.Context, s *store.Store, rootID int64) ([]int64, error) {
	ids := []int64{rootID}
	seen := map[int64]bool{rootID: true}
	level := []int64{rootID}
	for len(level) > 0 {
		children, err := s.ListChildFolders(ctx, level)
		if err != nil {
			return nil, err
		}
		level = level[:0:0]
		for _, c := range children {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			ids = append(ids, c.ID)
			level = append(level, c.ID)
		}
	}
	return ids, nil
}
