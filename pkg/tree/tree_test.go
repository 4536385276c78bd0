package tree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bucketfs/pkg/models"
)

func folder(path, name string) models.Folder {
	return models.Folder{Path: path, Name: name}
}

func file(id, folderPath, name string) models.File {
	return models.File{ID: id, FolderPath: folderPath, OriginalName: name}
}

func names(node *models.TreeNode) []string {
	out := make([]string, 0, len(node.Children))
	for _, c := range node.Children {
		out = append(out, c.Name)
	}
	return out
}

func TestBuildSortContract(t *testing.T) {
	tree := Build("media",
		[]models.Folder{folder("b", "b"), folder("a", "a")},
		[]models.File{file("2", "", "z.txt"), file("1", "", "a.txt")},
	)

	assert.Equal(t, []string{"a", "b", "a.txt", "z.txt"}, names(tree.Root))
	assert.Equal(t, 2, tree.Folders)
	assert.Equal(t, 2, tree.Files)
	assert.Zero(t, tree.Orphans)
	assert.False(t, tree.Truncated)
}

func TestBuildCaseInsensitiveOrder(t *testing.T) {
	tree := Build("media",
		[]models.Folder{folder("beta", "beta"), folder("Alpha", "Alpha"), folder("gamma", "gamma")},
		[]models.File{file("1", "", "Zeta.md"), file("2", "", "apple.md")},
	)

	assert.Equal(t, []string{"Alpha", "beta", "gamma", "apple.md", "Zeta.md"}, names(tree.Root))
}

func TestBuildSameNameFilesTieBreakOnID(t *testing.T) {
	tree := Build("media", nil, []models.File{
		file("c", "", "dup.txt"),
		file("a", "", "dup.txt"),
		file("b", "", "dup.txt"),
	})

	ids := []string{}
	for _, c := range tree.Root.Children {
		ids = append(ids, c.File.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestBuildNested(t *testing.T) {
	tree := Build("media",
		[]models.Folder{
			folder("docs/reports/2024", "2024"),
			folder("docs", "docs"),
			folder("docs/reports", "reports"),
		},
		[]models.File{
			file("1", "docs/reports/2024", "q1.pdf"),
			file("2", "docs", "readme.md"),
		},
	)

	require.Len(t, tree.Root.Children, 1)
	docs := tree.Root.Children[0]
	assert.Equal(t, "docs", docs.Path)
	assert.Equal(t, []string{"reports", "readme.md"}, names(docs))

	reports := docs.Children[0]
	require.Len(t, reports.Children, 1)
	y2024 := reports.Children[0]
	assert.Equal(t, "docs/reports/2024", y2024.Path)
	require.Len(t, y2024.Children, 1)
	assert.Equal(t, models.KindFile, y2024.Children[0].Kind)
	assert.Equal(t, "docs/reports/2024/q1.pdf", y2024.Children[0].Path)
	assert.Zero(t, tree.Orphans)
}

func TestBuildOrphanFileGoesToNearestAncestor(t *testing.T) {
	tree := Build("media",
		[]models.Folder{folder("docs", "docs")},
		[]models.File{
			file("1", "docs/missing/deeper", "lost.txt"),
			file("2", "nowhere", "stray.txt"),
		},
	)

	assert.Equal(t, 2, tree.Orphans)
	assert.Equal(t, []string{"docs", "stray.txt"}, names(tree.Root))
	assert.True(t, tree.Root.Children[1].Orphan)

	docs := tree.Root.Children[0]
	require.Len(t, docs.Children, 1)
	assert.Equal(t, "lost.txt", docs.Children[0].Name)
	assert.True(t, docs.Children[0].Orphan)
}

func TestBuildOrphanFolder(t *testing.T) {
	tree := Build("media", []models.Folder{folder("a/b/c", "c")}, nil)

	require.Len(t, tree.Root.Children, 1)
	c := tree.Root.Children[0]
	assert.Equal(t, "a/b/c", c.Path)
	assert.True(t, c.Orphan)
	assert.Equal(t, 1, tree.Orphans)
}

func TestBuildIgnoresDuplicateFolders(t *testing.T) {
	tree := Build("media", []models.Folder{folder("a", "a"), folder("a", "a")}, nil)
	assert.Len(t, tree.Root.Children, 1)
	assert.Equal(t, 1, tree.Folders)
}

func TestBuildLargeFlatInputIsLinear(t *testing.T) {
	const n = 20000
	folders := make([]models.Folder, 0, n)
	files := make([]models.File, 0, n)
	parent := ""
	for i := range n {
		p := fmt.Sprintf("f%d", i)
		if i%100 != 0 {
			p = parent + "/" + p
		}
		if i%100 == 0 {
			parent = p
		}
		folders = append(folders, folder(p, fmt.Sprintf("f%d", i)))
		files = append(files, file(fmt.Sprintf("%06d", i), p, "x.bin"))
	}

	tree := Build("big", folders, files)
	assert.Equal(t, n, tree.Folders)
	assert.Equal(t, n, tree.Files)
	assert.Zero(t, tree.Orphans)

	count := 0
	Walk(tree.Root, func(*models.TreeNode, int) { count++ })
	assert.Equal(t, 2*n+1, count)
}

func TestLevel(t *testing.T) {
	node := Level("reports", "docs/reports",
		[]models.Folder{folder("docs/reports/b", "b"), folder("docs/reports/a", "a")},
		[]models.File{file("1", "docs/reports", "z.csv"), file("2", "docs/reports", "a.csv")},
	)

	assert.Equal(t, "docs/reports", node.Path)
	assert.Equal(t, []string{"a", "b", "a.csv", "z.csv"}, names(node))
	assert.True(t, node.Children[0].Lazy)
	assert.False(t, node.Children[2].Lazy)
}

func TestWalkDepth(t *testing.T) {
	tree := Build("m", []models.Folder{folder("a", "a"), folder("a/b", "b")}, []models.File{file("1", "a/b", "f")})

	depths := map[string]int{}
	Walk(tree.Root, func(n *models.TreeNode, d int) { depths[n.Path] = d })
	assert.Equal(t, map[string]int{"": 0, "a": 1, "a/b": 2, "a/b/f": 3}, depths)
}
