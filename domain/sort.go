// domain/sort.go
package domain

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

type SortKey string

const (
	SortByTitle    SortKey = "title"
	SortByCreated  SortKey = "created"
	SortByModified SortKey = "modified"
)

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

type ViewMode string

const (
	ViewList ViewMode = "list"
	ViewGrid ViewMode = "grid"
)

// Preferences are the persisted listing settings.
type Preferences struct {
	SortKey   SortKey   `json:"sort_key"`
	SortOrder SortOrder `json:"sort_order"`
	ViewMode  ViewMode  `json:"view_mode"`
}

// DefaultPreferences matches a fresh install.
func DefaultPreferences() Preferences {
	return Preferences{SortKey: SortByCreated, SortOrder: Ascending, ViewMode: ViewList}
}

// ParseSortKey accepts the API names plus the legacy upper-case ones.
// Anything unknown falls back to SortByCreated.
func ParseSortKey(s string) SortKey {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "title":
		return SortByTitle
	case "modified", "date_edited", "date_modified":
		return SortByModified
	default:
		return SortByCreated
	}
}

// ParseSortOrder falls back to Ascending for unknown input.
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending", "z - a":
		return Descending
	default:
		return Ascending
	}
}

// ParseViewMode falls back to ViewList for unknown input.
func ParseViewMode(s string) ViewMode {
	if strings.EqualFold(strings.TrimSpace(s), string(ViewGrid)) {
		return ViewGrid
	}
	return ViewList
}

// SortNotes orders notes in place: pinned notes first, then by key in the
// given order. The sort is stable so equal keys keep their input order.
func SortNotes(notes []Note, key SortKey, order SortOrder) {
	type entry struct {
		note  Note
		title string
	}
	entries := make([]entry, len(notes))
	caser := cases.Fold()
	for i, n := range notes {
		entries[i].note = n
		if key == SortByTitle {
			entries[i].title = caser.String(n.Title)
		}
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		if a.note.Pinned != b.note.Pinned {
			if a.note.Pinned {
				return -1
			}
			return 1
		}
		var c int
		switch key {
		case SortByTitle:
			c = strings.Compare(a.title, b.title)
		case SortByModified:
			c = a.note.ModifiedAt.Compare(b.note.ModifiedAt)
		default:
			c = a.note.CreatedAt.Compare(b.note.CreatedAt)
		}
		if order == Descending {
			c = -c
		}
		return c
	})

	for i := range entries {
		notes[i] = entries[i].note
	}
}
