// Package tree assembles flat folder and file records into a nested hierarchy.
// It has no storage dependency; callers pass the records they loaded.
package tree

import (
	"slices"

	"bucketfs/pkg/models"
	"bucketfs/pkg/paths"
)

// Build assembles the full tree of a bucket in one pass over a path-keyed node map.
//
// Missing parents are never invented. A folder whose parent is absent hangs under
// its nearest existing ancestor, and a file whose folder is absent goes to the
// nearest existing ancestor of its folder_path. Both are flagged Orphan.
func Build(rootName string, folders []models.Folder, files []models.File) *models.Tree {
	root := &models.TreeNode{Name: rootName, Path: paths.Root, Kind: models.KindFolder}
	nodes := make(map[string]*models.TreeNode, len(folders)+1)
	nodes[paths.Root] = root

	result := &models.Tree{Root: root}

	ordered := make([]*models.TreeNode, 0, len(folders))
	for i := range folders {
		p := folders[i].Path
		if p == paths.Root {
			continue
		}
		if _, dup := nodes[p]; dup {
			continue
		}
		node := &models.TreeNode{Name: paths.Base(p), Path: p, Kind: models.KindFolder}
		nodes[p] = node
		ordered = append(ordered, node)
	}

	for _, node := range ordered {
		parent, exact := nearest(nodes, paths.Parent(node.Path))
		if !exact {
			node.Orphan = true
			result.Orphans++
		}
		parent.Children = append(parent.Children, node)
	}
	result.Folders = len(ordered)

	for i := range files {
		file := &files[i]
		parent, exact := nearest(nodes, file.FolderPath)
		node := fileNode(file)
		if !exact {
			node.Orphan = true
			result.Orphans++
		}
		parent.Children = append(parent.Children, node)
	}
	result.Files = len(files)

	sortRecursive(root)
	return result
}

// Level builds the node for path with only its direct children. Child folders are
// marked Lazy since their content was not loaded.
func Level(name, path string, folders []models.Folder, files []models.File) *models.TreeNode {
	node := &models.TreeNode{Name: name, Path: path, Kind: models.KindFolder}
	node.Children = make([]*models.TreeNode, 0, len(folders)+len(files))

	for i := range folders {
		node.Children = append(node.Children, &models.TreeNode{
			Name: folders[i].Name,
			Path: folders[i].Path,
			Kind: models.KindFolder,
			Lazy: true,
		})
	}
	for i := range files {
		node.Children = append(node.Children, fileNode(&files[i]))
	}

	Sort(node.Children)
	return node
}

// nearest returns the node at path or at its closest existing ancestor. exact is
// false when the walk had to climb.
func nearest(nodes map[string]*models.TreeNode, path string) (*models.TreeNode, bool) {
	if node, ok := nodes[path]; ok {
		return node, true
	}
	for cur := paths.Parent(path); ; cur = paths.Parent(cur) {
		if node, ok := nodes[cur]; ok {
			return node, false
		}
	}
}

func fileNode(file *models.File) *models.TreeNode {
	return &models.TreeNode{
		Name: file.OriginalName,
		Path: paths.Join(file.FolderPath, file.OriginalName),
		Kind: models.KindFile,
		File: file,
	}
}

func sortRecursive(node *models.TreeNode) {
	Sort(node.Children)
	for _, child := range node.Children {
		if child.Kind == models.KindFolder {
			sortRecursive(child)
		}
	}
}

// Sort orders siblings: folders before files, then case-insensitive name, then path
// for folders and id for files.
func Sort(nodes []*models.TreeNode) {
	slices.SortStableFunc(nodes, compare)
}

func compare(a, b *models.TreeNode) int {
	if a.Kind != b.Kind {
		if a.Kind == models.KindFolder {
			return -1
		}
		return 1
	}
	if c := paths.CompareNames(a.Name, b.Name); c != 0 {
		return c
	}
	if a.Kind == models.KindFile && a.File != nil && b.File != nil {
		if a.File.ID < b.File.ID {
			return -1
		}
		if a.File.ID > b.File.ID {
			return 1
		}
		return 0
	}
	if a.Path < b.Path {
		return -1
	}
	if a.Path > b.Path {
		return 1
	}
	return 0
}

// Walk visits every node depth-first in display order.
func Walk(node *models.TreeNode, fn func(node *models.TreeNode, depth int)) {
	walk(node, 0, fn)
}

func walk(node *models.TreeNode, depth int, fn func(*models.TreeNode, int)) {
	fn(node, depth)
	for _, child := range node.Children {
		walk(child, depth+1, fn)
	}
}
