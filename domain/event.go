// domain/event.go
package domain

type EventType string

const (
	FolderCreated   EventType = "folder_created"
	FolderUpdated   EventType = "folder_updated"
	FolderMoved     EventType = "folder_moved"
	FolderCopied    EventType = "folder_copied"
	FolderDeleted   EventType = "folder_deleted"
	FolderRecovered EventType = "folder_recovered"
	FolderPurged    EventType = "folder_purged"
	NoteCreated     EventType = "note_created"
	NoteUpdated     EventType = "note_updated"
	NoteDeleted     EventType = "note_deleted"
	NoteRecovered   EventType = "note_recovered"
	NotePurged      EventType = "note_purged"
	TrashEmptied    EventType = "trash_emptied"
	PrefsUpdated    EventType = "preferences_updated"
)

// Event describes a committed change. Observers re-query what they display
// instead of relying on the payload being complete.
type Event struct {
	Type      EventType `json:"type"`
	FolderIDs []int64   `json:"folder_ids,omitempty"`
	NoteIDs   []int64   `json:"note_ids,omitempty"`
	Folder    *Folder   `json:"folder,omitempty"`
	Note      *Note     `json:"note,omitempty"`
}
