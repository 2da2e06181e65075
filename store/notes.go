// store/notes.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ViniZap4/notes-server/domain"
)

const noteColumns = "id, title, description, created_date, modified_date, folder_id, is_edited, is_deleted, is_pinned, image_uris"

func scanNote(row scanner) (domain.Note, error) {
	var (
		n                 domain.Note
		desc              sql.NullString
		created, modified int64
		images            string
	)
	err := row.Scan(&n.ID, &n.Title, &desc, &created, &modified, &n.FolderID,
		&n.Edited, &n.Deleted, &n.Pinned, &images)
	if err != nil {
		return domain.Note{}, err
	}
	n.Description = desc.String
	n.CreatedAt = time.UnixMilli(created).UTC()
	n.ModifiedAt = time.UnixMilli(modified).UTC()
	if images != "" {
		if err := json.Unmarshal([]byte(images), &n.ImageURIs); err != nil {
			return domain.Note{}, fmt.Errorf("decode image uris of note %d: %w", n.ID, err)
		}
	}
	return n, nil
}

func noteArgs(n domain.Note) ([]any, error) {
	images := n.ImageURIs
	if images == nil {
		images = []string{}
	}
	encoded, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("encode image uris: %w", err)
	}
	var desc sql.NullString
	if n.Description != "" {
		desc = sql.NullString{String: n.Description, Valid: true}
	}
	return []any{
		n.Title, desc, n.CreatedAt.UnixMilli(), n.ModifiedAt.UnixMilli(), n.FolderID,
		n.Edited, n.Deleted, n.Pinned, string(encoded),
	}, nil
}

// InsertNote creates a note row and returns its id. n.ID is ignored.
func (s *Store) InsertNote(ctx context.Context, n domain.Note) (int64, error) {
	args, err := noteArgs(n)
	if err != nil {
		return 0, err
	}
	id, err := s.insert(ctx,
		`INSERT INTO note (title, description, created_date, modified_date, folder_id,
			is_edited, is_deleted, is_pinned, image_uris) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...)
	if err != nil {
		return 0, fmt.Errorf("insert note: %w", err)
	}
	return id, nil
}

// GetNote retrieves a note by id regardless of its deleted flag.
func (s *Store) GetNote(ctx context.Context, id int64) (domain.Note, error) {
	n, err := scanNote(s.queryRow(ctx, "SELECT "+noteColumns+" FROM note WHERE id = ?", id))
	if err != nil {
		if mapErr(err) == domain.ErrNotFound {
			return domain.Note{}, notFound("note", id)
		}
		return domain.Note{}, fmt.Errorf("get note %d: %w", id, mapErr(err))
	}
	return n, nil
}

// UpdateNote replaces every column of the note row.
func (s *Store) UpdateNote(ctx context.Context, n domain.Note) error {
	args, err := noteArgs(n)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx,
		`UPDATE note SET title = ?, description = ?, created_date = ?, modified_date = ?, folder_id = ?,
			is_edited = ?, is_deleted = ?, is_pinned = ?, image_uris = ? WHERE id = ?`,
		append(args, n.ID)...)
	if err != nil {
		return fmt.Errorf("update note %d: %w", n.ID, err)
	}
	return affected(res, "note", n.ID)
}

// ListNotes returns a snapshot of the notes filed in folderID with the given
// deleted flag, in insertion order.
func (s *Store) ListNotes(ctx context.Context, folderID int64, deleted bool) ([]domain.Note, error) {
	rows, err := s.query(ctx,
		"SELECT "+noteColumns+" FROM note WHERE folder_id = ? AND is_deleted = ? ORDER BY id",
		folderID, deleted)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return collectNotes(rows)
}

// ListNotesByState returns every note with the given deleted flag, most
// recently modified first.
func (s *Store) ListNotesByState(ctx context.Context, deleted bool) ([]domain.Note, error) {
	rows, err := s.query(ctx,
		"SELECT "+noteColumns+" FROM note WHERE is_deleted = ? ORDER BY modified_date DESC, id DESC",
		deleted)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return collectNotes(rows)
}

// NoteIDsInFolders returns the ids of every note filed in the given folders.
func (s *Store) NoteIDsInFolders(ctx context.Context, folderIDs []int64) ([]int64, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}
	rows, err := s.query(ctx,
		"SELECT id FROM note WHERE folder_id IN "+inClause(len(folderIDs))+" ORDER BY id",
		int64Args(folderIDs)...)
	if err != nil {
		return nil, fmt.Errorf("list note ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan note id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate note ids: %w", mapErr(err))
	}
	return ids, nil
}

// SearchNotes matches active note titles and descriptions against a LIKE
// pattern built by LikePattern.
func (s *Store) SearchNotes(ctx context.Context, pattern string) ([]domain.Note, error) {
	rows, err := s.query(ctx,
		"SELECT "+noteColumns+` FROM note WHERE is_deleted = ?
			AND (LOWER(title) LIKE LOWER(?) ESCAPE '!' OR LOWER(COALESCE(description, '')) LIKE LOWER(?) ESCAPE '!')
			ORDER BY modified_date DESC, id DESC`,
		false, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	return collectNotes(rows)
}

func collectNotes(rows *sql.Rows) ([]domain.Note, error) {
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", mapErr(err))
	}
	return notes, nil
}

// SetNotesDeleted flips the soft-delete flag on the given notes.
func (s *Store) SetNotesDeleted(ctx context.Context, ids []int64, deleted bool) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.exec(ctx,
		"UPDATE note SET is_deleted = ? WHERE id IN "+inClause(len(ids)),
		int64Args(ids, deleted)...)
	if err != nil {
		return fmt.Errorf("set notes deleted: %w", err)
	}
	return nil
}

// DeleteNotes removes note rows permanently.
func (s *Store) DeleteNotes(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.exec(ctx, "DELETE FROM note WHERE id IN "+inClause(len(ids)), int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("delete notes: %w", err)
	}
	return nil
}

// LikePattern wraps q for a substring LIKE match, escaping the wildcard
// characters with '!'. Queries fold it with LOWER on the database side so
// both operands go through the same folding.
func LikePattern(q string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(q) + "%"
}
