// domain/note.go
package domain

import "time"

// RootFolderID is the folder id of notes that live outside any folder.
const RootFolderID int64 = 0

type Note struct {
	ID          int64     `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"-"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	ModifiedAt  time.Time `json:"modified_at" yaml:"updated_at"`
	FolderID    int64     `json:"folder_id" yaml:"-"`
	Edited      bool      `json:"edited" yaml:"edited"`
	Deleted     bool      `json:"deleted" yaml:"-"`
	Pinned      bool      `json:"pinned" yaml:"pinned"`
	ImageURIs   []string  `json:"image_uris" yaml:"images,omitempty"`
}

// Clone returns a deep copy of n.
func (n Note) Clone() Note {
	c := n
	if n.ImageURIs != nil {
		c.ImageURIs = append([]string(nil), n.ImageURIs...)
	}
	return c
}

// Unfiled reports whether the note sits at the top level.
func (n Note) Unfiled() bool {
	return n.FolderID == RootFolderID
}

// NoteInput carries the caller-supplied fields of a new note.
type NoteInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	FolderID    int64    `json:"folder_id"`
	Pinned      bool     `json:"pinned"`
	ImageURIs   []string `json:"image_uris"`
}

type Folder struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Deleted   bool      `json:"deleted"`
	ParentID  *int64    `json:"parent_id"`
}

// IsRoot reports whether the folder has no parent.
func (f Folder) IsRoot() bool {
	return f.ParentID == nil
}

// Parent returns the parent id or RootFolderID for root folders.
func (f Folder) Parent() int64 {
	if f.ParentID == nil {
		return RootFolderID
	}
	return *f.ParentID
}

// ParentRef converts a folder id into a parent reference, mapping
// RootFolderID to nil.
func ParentRef(id int64) *int64 {
	if id == RootFolderID {
		return nil
	}
	return &id
}

// SameParent compares two parent references.
func SameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
