// domain/summary.go
package domain

import "fmt"

// FolderSummary is a folder together with its active child counts.
type FolderSummary struct {
	Folder
	SubfolderCount int `json:"subfolder_count"`
	NoteCount      int `json:"note_count"`
}

// Info renders the counts the way folder headers show them,
// e.g. "1 subfolder · 3 notes".
func (s FolderSummary) Info() string {
	return fmt.Sprintf("%d %s · %d %s",
		s.SubfolderCount, plural(s.SubfolderCount, "subfolder"),
		s.NoteCount, plural(s.NoteCount, "note"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// TreeNode is a folder with its active notes and subfolders.
type TreeNode struct {
	Folder   Folder      `json:"folder"`
	Notes    []Note      `json:"notes"`
	Children []*TreeNode `json:"children"`
}

// Depth is the number of folder levels in the subtree, the node included.
func (t *TreeNode) Depth() int {
	deepest := 0
	for _, c := range t.Children {
		if d := c.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Walk visits every node depth first, parents before children.
func (t *TreeNode) Walk(fn func(*TreeNode)) {
	fn(t)
	for _, c := range t.Children {
		c.Walk(fn)
	}
}
