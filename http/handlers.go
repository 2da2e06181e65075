// http/handlers.go
package http

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ViniZap4/notes-server/auth"
	"github.com/ViniZap4/notes-server/domain"
	"github.com/ViniZap4/notes-server/repository"
)

func idParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id %q: %w", c.Params("id"), domain.ErrInvalidInput)
	}
	return id, nil
}

func int64Query(c *fiber.Ctx, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s %q: %w", name, raw, domain.ErrInvalidInput)
	}
	return v, nil
}

// parseBody decodes a JSON body into out. An empty body leaves out as is.
func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, domain.ErrInvalidInput)
	}
	return nil
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "clients": s.hub.Clients()})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	token, expires, err := s.auth.Login(req.Password)
	if errors.Is(err, auth.ErrUnauthorized) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid password")
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"token": token, "expires_at": expires.UTC().Format(time.RFC3339)})
}

// Folders

type folderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

type targetRequest struct {
	ParentID *int64 `json:"parent_id"`
	FolderID int64  `json:"folder_id"`
	Atomic   bool   `json:"atomic"`
}

// parentRef maps an absent parent_id and parent_id 0 to the root.
func parentRef(p *int64) *int64 {
	if p == nil {
		return nil
	}
	return domain.ParentRef(*p)
}

func (s *Server) handleListFolders(c *fiber.Ctx) error {
	parent, err := int64Query(c, "parent")
	if err != nil {
		return err
	}
	folders, err := s.repo.Subfolders(c.UserContext(), domain.ParentRef(parent))
	if err != nil {
		return err
	}
	return c.JSON(nonNil(folders))
}

func (s *Server) handleAllFolders(c *fiber.Ctx) error {
	folders, err := s.repo.ActiveFolders(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(nonNil(folders))
}

func (s *Server) handleCreateFolder(c *fiber.Ctx) error {
	var req folderRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	f, err := s.repo.CreateFolder(c.UserContext(), req.Name, parentRef(req.ParentID))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(f)
}

func (s *Server) handleGetFolder(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	sum, err := s.repo.FolderSummary(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"folder": sum, "info": sum.Info()})
}

func (s *Server) handleUpdateFolder(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var f domain.Folder
	if err := parseBody(c, &f); err != nil {
		return err
	}
	f.ID = id
	updated, err := s.repo.UpdateFolder(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func (s *Server) handleRenameFolder(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req folderRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	f, err := s.repo.RenameFolder(c.UserContext(), id, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(f)
}

func (s *Server) handleMoveFolder(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req targetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	f, err := s.repo.MoveFolder(c.UserContext(), id, parentRef(req.ParentID))
	if err != nil {
		return err
	}
	return c.JSON(f)
}

func (s *Server) handleMoveTargets(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	targets, err := s.repo.MoveTargets(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(nonNil(targets))
}

func (s *Server) handleCopyFolder(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req targetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	var opts []repository.CopyOption
	if req.Atomic {
		opts = append(opts, repository.WithinTransaction())
	}
	res, err := s.repo.CopyFolder(c.UserContext(), id, parentRef(req.ParentID), opts...)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (s *Server) handleDiscardCopy(c *fiber.Ctx) error {
	var res domain.CopyResult
	if err := parseBody(c, &res); err != nil {
		return err
	}
	if err := s.repo.DiscardCopy(c.UserContext(), res); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleDeleteFolder(c *fiber.Ctx) error {
	return s.cascade(c, s.repo.DeleteFolder)
}

func (s *Server) handleRecoverFolder(c *fiber.Ctx) error {
	return s.cascade(c, s.repo.RecoverFolder)
}

func (s *Server) handlePurgeFolder(c *fiber.Ctx) error {
	return s.cascade(c, s.repo.PurgeFolder)
}

func (s *Server) cascade(c *fiber.Ctx, op func(ctx context.Context, id int64) (repository.Affected, error)) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	aff, err := op(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(aff)
}

func (s *Server) handleFolderTree(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	tree, err := s.repo.Tree(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(tree)
}

func (s *Server) handleRootTree(c *fiber.Ctx) error {
	tree, err := s.repo.Tree(c.UserContext(), domain.RootFolderID)
	if err != nil {
		return err
	}
	return c.JSON(tree)
}

// Notes

func (s *Server) handleFolderNotes(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	return s.listNotes(c, id)
}

func (s *Server) handleListNotes(c *fiber.Ctx) error {
	folderID, err := int64Query(c, "folder_id")
	if err != nil {
		return err
	}
	return s.listNotes(c, folderID)
}

// listNotes sorts by the sort and order query parameters, falling back to
// the saved preferences.
func (s *Server) listNotes(c *fiber.Ctx, folderID int64) error {
	ctx := c.UserContext()
	prefs, err := s.repo.Preferences(ctx)
	if err != nil {
		return err
	}
	key, order := prefs.SortKey, prefs.SortOrder
	if v := c.Query("sort"); v != "" {
		key = domain.ParseSortKey(v)
	}
	if v := c.Query("order"); v != "" {
		order = domain.ParseSortOrder(v)
	}

	notes, err := s.repo.Notes(ctx, folderID, key, order)
	if err != nil {
		return err
	}
	return c.JSON(nonNil(notes))
}

func (s *Server) handleCreateNote(c *fiber.Ctx) error {
	var in domain.NoteInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	n, err := s.repo.CreateNote(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

func (s *Server) handleGetNote(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	n, err := s.repo.Note(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(n)
}

func (s *Server) handleUpdateNote(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var n domain.Note
	if err := parseBody(c, &n); err != nil {
		return err
	}
	n.ID = id
	updated, err := s.repo.UpdateNote(c.UserContext(), n)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func (s *Server) handleDeleteNote(c *fiber.Ctx) error {
	return s.noteOp(c, s.repo.DeleteNote)
}

func (s *Server) handleRecoverNote(c *fiber.Ctx) error {
	return s.noteOp(c, s.repo.RecoverNote)
}

func (s *Server) handleTogglePin(c *fiber.Ctx) error {
	return s.noteOp(c, s.repo.TogglePin)
}

func (s *Server) noteOp(c *fiber.Ctx, op func(ctx context.Context, id int64) (domain.Note, error)) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	n, err := op(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(n)
}

func (s *Server) handleMoveNote(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req targetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	n, err := s.repo.MoveNote(c.UserContext(), id, req.FolderID)
	if err != nil {
		return err
	}
	return c.JSON(n)
}

func (s *Server) handleCopyNote(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req targetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	n, err := s.repo.CopyNote(c.UserContext(), id, req.FolderID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

func (s *Server) handlePurgeNote(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := s.repo.PurgeNote(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Trash, search, preferences

func (s *Server) handleTrash(c *fiber.Ctx) error {
	ctx := c.UserContext()
	folders, err := s.repo.DeletedFolders(ctx)
	if err != nil {
		return err
	}
	notes, err := s.repo.DeletedNotes(ctx)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"folders": nonNil(folders), "notes": nonNil(notes)})
}

func (s *Server) handleEmptyTrash(c *fiber.Ctx) error {
	aff, err := s.repo.EmptyTrash(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(aff)
}

func (s *Server) handleSearch(c *fiber.Ctx) error {
	ctx := c.UserContext()
	q := c.Query("q")
	notes, err := s.repo.SearchNotes(ctx, q)
	if err != nil {
		return err
	}
	folders, err := s.repo.SearchFolderSummaries(ctx, q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"notes": nonNil(notes), "folders": nonNil(folders)})
}

func (s *Server) handleGetPreferences(c *fiber.Ctx) error {
	p, err := s.repo.Preferences(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (s *Server) handlePutPreferences(c *fiber.Ctx) error {
	var p domain.Preferences
	if err := parseBody(c, &p); err != nil {
		return err
	}
	saved, err := s.repo.SavePreferences(c.UserContext(), p)
	if err != nil {
		return err
	}
	return c.JSON(saved)
}

// nonNil keeps empty lists as [] rather than null in responses.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
