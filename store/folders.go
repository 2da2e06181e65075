// store/folders.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ViniZap4/notes-server/domain"
)

const folderColumns = "id, name, created_date, is_deleted, parent_folder_id"

// summaryColumns appends the correlated child counts to folderColumns.
const summaryColumns = `f.id, f.name, f.created_date, f.is_deleted, f.parent_folder_id,
	(SELECT COUNT(*) FROM folders sf WHERE sf.parent_folder_id = f.id AND sf.is_deleted = ?) AS subfolder_count,
	(SELECT COUNT(*) FROM note n WHERE n.folder_id = f.id AND n.is_deleted = ?) AS note_count`

type scanner interface {
	Scan(dest ...any) error
}

func scanFolder(row scanner, extra ...any) (domain.Folder, error) {
	var (
		f       domain.Folder
		created int64
		parent  sql.NullInt64
	)
	dest := append([]any{&f.ID, &f.Name, &created, &f.Deleted, &parent}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Folder{}, err
	}
	f.CreatedAt = time.UnixMilli(created).UTC()
	if parent.Valid {
		p := parent.Int64
		f.ParentID = &p
	}
	return f, nil
}

func parentArg(parentID *int64) any {
	if parentID == nil {
		return nil
	}
	return *parentID
}

// InsertFolder creates a folder row and returns its id. f.ID is ignored.
func (s *Store) InsertFolder(ctx context.Context, f domain.Folder) (int64, error) {
	id, err := s.insert(ctx,
		"INSERT INTO folders (name, created_date, is_deleted, parent_folder_id) VALUES (?, ?, ?, ?)",
		f.Name, f.CreatedAt.UnixMilli(), f.Deleted, parentArg(f.ParentID),
	)
	if err != nil {
		return 0, fmt.Errorf("insert folder: %w", err)
	}
	return id, nil
}

// GetFolder retrieves a folder by id regardless of its deleted flag.
func (s *Store) GetFolder(ctx context.Context, id int64) (domain.Folder, error) {
	f, err := scanFolder(s.queryRow(ctx, "SELECT "+folderColumns+" FROM folders WHERE id = ?", id))
	if err != nil {
		if mapErr(err) == domain.ErrNotFound {
			return domain.Folder{}, notFound("folder", id)
		}
		return domain.Folder{}, fmt.Errorf("get folder %d: %w", id, mapErr(err))
	}
	return f, nil
}

// UpdateFolder replaces every column of the folder row.
func (s *Store) UpdateFolder(ctx context.Context, f domain.Folder) error {
	res, err := s.exec(ctx,
		"UPDATE folders SET name = ?, created_date = ?, is_deleted = ?, parent_folder_id = ? WHERE id = ?",
		f.Name, f.CreatedAt.UnixMilli(), f.Deleted, parentArg(f.ParentID), f.ID,
	)
	if err != nil {
		return fmt.Errorf("update folder %d: %w", f.ID, err)
	}
	return affected(res, "folder", f.ID)
}

// ListSubfolders returns a point-in-time snapshot of the direct children of
// parentID (nil for root folders) with the given deleted flag, in insertion
// order.
func (s *Store) ListSubfolders(ctx context.Context, parentID *int64, deleted bool) ([]domain.Folder, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if parentID == nil {
		rows, err = s.query(ctx,
			"SELECT "+folderColumns+" FROM folders WHERE parent_folder_id IS NULL AND is_deleted = ? ORDER BY id",
			deleted)
	} else {
		rows, err = s.query(ctx,
			"SELECT "+folderColumns+" FROM folders WHERE parent_folder_id = ? AND is_deleted = ? ORDER BY id",
			*parentID, deleted)
	}
	if err != nil {
		return nil, fmt.Errorf("list subfolders: %w", err)
	}
	return collectFolders(rows)
}

// ListFolders returns every folder with the given deleted flag, newest first.
func (s *Store) ListFolders(ctx context.Context, deleted bool) ([]domain.Folder, error) {
	rows, err := s.query(ctx,
		"SELECT "+folderColumns+" FROM folders WHERE is_deleted = ? ORDER BY created_date DESC, id DESC",
		deleted)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return collectFolders(rows)
}

// ListChildFolders returns every child of the given folders, deleted or not.
func (s *Store) ListChildFolders(ctx context.Context, parentIDs []int64) ([]domain.Folder, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	rows, err := s.query(ctx,
		"SELECT "+folderColumns+" FROM folders WHERE parent_folder_id IN "+inClause(len(parentIDs))+" ORDER BY id",
		int64Args(parentIDs)...)
	if err != nil {
		return nil, fmt.Errorf("list child folders: %w", err)
	}
	return collectFolders(rows)
}

func collectFolders(rows *sql.Rows) ([]domain.Folder, error) {
	defer rows.Close()

	var folders []domain.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", mapErr(err))
	}
	return folders, nil
}

// SetFoldersDeleted flips the soft-delete flag on the given folders.
func (s *Store) SetFoldersDeleted(ctx context.Context, ids []int64, deleted bool) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.exec(ctx,
		"UPDATE folders SET is_deleted = ? WHERE id IN "+inClause(len(ids)),
		int64Args(ids, deleted)...)
	if err != nil {
		return fmt.Errorf("set folders deleted: %w", err)
	}
	return nil
}

// DeleteFolders removes folder rows permanently.
func (s *Store) DeleteFolders(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.exec(ctx, "DELETE FROM folders WHERE id IN "+inClause(len(ids)), int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("delete folders: %w", err)
	}
	return nil
}

// FolderSummary returns the folder with its active subfolder and note counts.
func (s *Store) FolderSummary(ctx context.Context, id int64) (domain.FolderSummary, error) {
	var sum domain.FolderSummary
	row := s.queryRow(ctx, "SELECT "+summaryColumns+" FROM folders f WHERE f.id = ?", false, false, id)
	f, err := scanFolder(row, &sum.SubfolderCount, &sum.NoteCount)
	if err != nil {
		if mapErr(err) == domain.ErrNotFound {
			return sum, notFound("folder", id)
		}
		return sum, fmt.Errorf("folder summary %d: %w", id, mapErr(err))
	}
	sum.Folder = f
	return sum, nil
}

// SearchFolderSummaries matches active folder names against a LIKE pattern
// built by LikePattern.
func (s *Store) SearchFolderSummaries(ctx context.Context, pattern string) ([]domain.FolderSummary, error) {
	rows, err := s.query(ctx,
		"SELECT "+summaryColumns+" FROM folders f WHERE f.is_deleted = ? AND LOWER(f.name) LIKE LOWER(?) ESCAPE '!' ORDER BY f.name, f.id",
		false, false, false, pattern)
	if err != nil {
		return nil, fmt.Errorf("search folders: %w", err)
	}
	defer rows.Close()

	var out []domain.FolderSummary
	for rows.Next() {
		var sum domain.FolderSummary
		f, err := scanFolder(rows, &sum.SubfolderCount, &sum.NoteCount)
		if err != nil {
			return nil, fmt.Errorf("scan folder summary: %w", err)
		}
		sum.Folder = f
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folder summaries: %w", mapErr(err))
	}
	return out, nil
}

// Counts returns the total number of folder and note rows, deleted included.
func (s *Store) Counts(ctx context.Context) (folders, notes int, err error) {
	err = s.queryRow(ctx, "SELECT (SELECT COUNT(*) FROM folders), (SELECT COUNT(*) FROM note)").Scan(&folders, &notes)
	if err != nil {
		return 0, 0, fmt.Errorf("count rows: %w", mapErr(err))
	}
	return folders, notes, nil
}
