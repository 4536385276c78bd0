package models

// NodeKind distinguishes folder and file nodes in a tree.
type NodeKind string

const (
	KindFolder NodeKind = "folder"
	KindFile   NodeKind = "file"
)

// TreeNode is one node of a bucket tree. Nodes are rebuilt from the folder and file
// indexes on demand and never mutated in place.
type TreeNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Kind     NodeKind    `json:"kind"`
	Children []*TreeNode `json:"children,omitempty"`
	File     *File       `json:"file,omitempty"`

	// Orphan marks a node placed at its nearest known ancestor because the folder it
	// references does not exist.
	Orphan bool `json:"orphan,omitempty"`

	// Lazy marks a folder whose children were not materialized.
	Lazy bool `json:"lazy,omitempty"`
}

// Tree is the result of building the full hierarchy of a bucket.
type Tree struct {
	Root      *TreeNode `json:"root"`
	Truncated bool      `json:"truncated"`
	Orphans   int       `json:"orphans"`
	Folders   int       `json:"folders"`
	Files     int       `json:"files"`
}
