// commands.go
package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ViniZap4/notes-server/auth"
	"github.com/ViniZap4/notes-server/domain"
	"github.com/ViniZap4/notes-server/filesystem"
	"github.com/ViniZap4/notes-server/repository"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid folder id %q", s)
	}
	return id, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			version, err := a.store.Migrate()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var folders, notes int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty database with sample folders and notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			aff, err := a.repo().Seed(cmd.Context(), folders, notes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d folders and %d notes\n", len(aff.FolderIDs), len(aff.NoteIDs))
			return nil
		},
	}

	cmd.Flags().IntVar(&folders, "folders", 5, "number of folders")
	cmd.Flags().IntVar(&notes, "notes", 3, "notes per folder")
	return cmd
}

func treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree [folder-id]",
		Short: "Print the folder tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.RootFolderID
			if len(args) == 1 {
				var err error
				if id, err = parseID(args[0]); err != nil {
					return err
				}
			}

			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			tree, err := a.repo().Tree(cmd.Context(), id)
			if err != nil {
				return err
			}
			printTree(cmd, tree, 0)
			return nil
		},
	}
}

func printTree(cmd *cobra.Command, node *domain.TreeNode, depth int) {
	out := cmd.OutOrStdout()
	indent := strings.Repeat("  ", depth)
	if node.Folder.ID != domain.RootFolderID {
		fmt.Fprintf(out, "%s%s/ [%d]\n", indent, node.Folder.Name, node.Folder.ID)
		indent += "  "
		depth++
	}
	for _, n := range node.Notes {
		pin := ""
		if n.Pinned {
			pin = " *"
		}
		fmt.Fprintf(out, "%s- %s [%d]%s\n", indent, n.Title, n.ID, pin)
	}
	for _, child := range node.Children {
		printTree(cmd, child, depth)
	}
}

func exportCmd() *cobra.Command {
	var folderID int64

	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Write folders and notes as markdown files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := filesystem.Export(cmd.Context(), a.repo(), folderID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d folders and %d notes to %s\n", st.Folders, st.Notes, args[0])
			return nil
		},
	}

	cmd.Flags().Int64Var(&folderID, "folder", domain.RootFolderID, "export only this folder")
	return cmd
}

func importCmd() *cobra.Command {
	var parentID int64

	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Create folders and notes from a markdown directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := filesystem.Import(cmd.Context(), a.repo(), args[0], domain.ParentRef(parentID))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d folders and %d notes\n", st.Folders, st.Notes)
			return nil
		},
	}

	cmd.Flags().Int64Var(&parentID, "parent", domain.RootFolderID, "import below this folder")
	return cmd
}

func copyCmd() *cobra.Command {
	var (
		to      int64
		atomic  bool
		discard bool
	)

	cmd := &cobra.Command{
		Use:   "copy <folder-id>",
		Short: "Copy a folder with its notes and subfolders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			var opts []repository.CopyOption
			if atomic {
				opts = append(opts, repository.WithinTransaction())
			}
			repo := a.repo()
			res, err := repo.CopyFolder(cmd.Context(), source, domain.ParentRef(to), opts...)
			if pe, ok := repository.IsPartialCopy(err); ok && discard {
				if derr := repo.DiscardCopy(cmd.Context(), pe.Partial); derr != nil {
					return errors.Join(err, derr)
				}
				return fmt.Errorf("%w (partial copy discarded)", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied into folder %d: %d folders, %d notes\n",
				res.RootID, len(res.FolderIDs), len(res.NoteIDs))
			return nil
		},
	}

	cmd.Flags().Int64Var(&to, "to", domain.RootFolderID, "target parent folder (0 for root)")
	cmd.Flags().BoolVar(&atomic, "atomic", false, "copy in a single transaction")
	cmd.Flags().BoolVar(&discard, "discard-on-failure", false, "remove partially copied rows on failure")
	return cmd
}

func moveCmd() *cobra.Command {
	var to int64

	cmd := &cobra.Command{
		Use:   "move <folder-id>",
		Short: "Move a folder under another folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := a.repo().MoveFolder(cmd.Context(), id, domain.ParentRef(to))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "moved %q under %d\n", f.Name, f.Parent())
			return nil
		},
	}

	cmd.Flags().Int64Var(&to, "to", domain.RootFolderID, "target parent folder (0 for root)")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for NOTES_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
