// domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the entity vanished or never existed.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTarget rejects a parent or folder that would break the tree:
	// the entity itself, one of its descendants, or a missing/deleted folder.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrInvalidState rejects a lifecycle transition, e.g. purging an active row.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidInput rejects malformed caller data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPartialFailure marks a multi-step operation that stopped midway.
	ErrPartialFailure = errors.New("partial failure")
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidTarget
	KindInvalidState
	KindInvalidInput
	KindPartialFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidTarget:
		return "invalid_target"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidInput:
		return "invalid_input"
	case KindPartialFailure:
		return "partial_failure"
	default:
		return "internal"
	}
}

// KindOf classifies err by the sentinel it wraps.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrPartialFailure):
		return KindPartialFailure
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidTarget):
		return KindInvalidTarget
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}

// CopyResult lists the rows created by a folder copy.
type CopyResult struct {
	// RootID is the id of the copied top folder, zero if it was never created.
	RootID    int64   `json:"root_id"`
	FolderIDs []int64 `json:"folder_ids"`
	NoteIDs   []int64 `json:"note_ids"`
}

// Empty reports whether nothing was created.
func (r *CopyResult) Empty() bool {
	return r == nil || (len(r.FolderIDs) == 0 && len(r.NoteIDs) == 0)
}

// PartialCopyError is returned when a recursive copy fails after it started
// writing. Partial holds everything created before the failure so callers can
// keep it, retry, or discard it.
type PartialCopyError struct {
	SourceID int64
	Partial  CopyResult
	Err      error
}

func (e *PartialCopyError) Error() string {
	return fmt.Sprintf("copy folder %d: %d folders and %d notes created before failure: %v",
		e.SourceID, len(e.Partial.FolderIDs), len(e.Partial.NoteIDs), e.Err)
}

func (e *PartialCopyError) Unwrap() []error {
	return []error{ErrPartialFailure, e.Err}
}
