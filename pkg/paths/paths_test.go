package paths

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bucketfs/pkg/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"docs", "docs"},
		{"/docs/", "docs"},
		{"docs//reports///2024", "docs/reports/2024"},
		{"./docs/./a", "docs/a"},
		{"Ünïcode/ファイル", "Ünïcode/ファイル"},
		{"with space/x", "with space/x"},
	}

	for _, tt := range tests {
		got, err := Normalize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizeRejects(t *testing.T) {
	bad := []string{
		"..",
		"docs/../etc",
		"docs/..",
		"a\x00b",
		"tab\there",
		"line\nbreak",
		strings.Repeat("x", MaxSegmentLength+1),
		"bad\xffutf8",
	}

	for _, in := range bad {
		_, err := Normalize(in)
		require.Error(t, err, "%q", in)
		assert.ErrorIs(t, err, models.ErrInvalidPath)
		assert.ErrorIs(t, err, models.ErrValidation)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, in := range []string{"/a//b/", "x/./y", "", "deep/er/path/"} {
		once, err := Normalize(in)
		require.NoError(t, err)
		twice, err := Normalize(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestValidateSegment(t *testing.T) {
	assert.NoError(t, ValidateSegment("reports"))
	assert.NoError(t, ValidateSegment(strings.Repeat("y", MaxSegmentLength)))
	assert.ErrorIs(t, ValidateSegment(""), models.ErrInvalidPath)
	assert.ErrorIs(t, ValidateSegment("."), models.ErrInvalidPath)
	assert.ErrorIs(t, ValidateSegment("a/b"), models.ErrInvalidPath)
}

func TestParentBaseJoin(t *testing.T) {
	assert.Equal(t, "", Parent("docs"))
	assert.Equal(t, "docs", Parent("docs/a"))
	assert.Equal(t, "docs/a", Parent("docs/a/b"))
	assert.Equal(t, "", Parent(""))

	assert.Equal(t, "b", Base("docs/a/b"))
	assert.Equal(t, "docs", Base("docs"))

	assert.Equal(t, "docs", Join("", "docs"))
	assert.Equal(t, "docs/a", Join("docs", "a"))
	assert.Equal(t, "docs", Join("docs", ""))
}

func TestIsDescendant(t *testing.T) {
	assert.True(t, IsDescendant("docs/a", "docs"))
	assert.True(t, IsDescendant("docs/a/b", "docs"))
	assert.True(t, IsDescendant("docs", ""))
	assert.False(t, IsDescendant("docs", "docs"))
	assert.False(t, IsDescendant("docsx/a", "docs"))
	assert.False(t, IsDescendant("", ""))
}

func TestAncestors(t *testing.T) {
	assert.Nil(t, Ancestors(""))
	assert.Nil(t, Ancestors("docs"))
	assert.Equal(t, []string{"a", "a/b"}, Ancestors("a/b/c"))
}

func TestParentChainReachesRootWithinDepth(t *testing.T) {
	for _, p := range []string{"a", "a/b", "a/b/c/d/e", "x/y z/ü"} {
		steps := 0
		for cur := p; cur != Root; cur = Parent(cur) {
			steps++
			require.LessOrEqual(t, steps, Depth(p), p)
		}
		assert.Equal(t, Depth(p), steps, p)
	}
}

func TestBreadcrumbs(t *testing.T) {
	crumbs := Breadcrumbs("media", "docs/reports/2024")
	assert.Equal(t, []models.Breadcrumb{
		{Name: "media", Path: ""},
		{Name: "docs", Path: "docs"},
		{Name: "reports", Path: "docs/reports"},
		{Name: "2024", Path: "docs/reports/2024"},
	}, crumbs)

	root := Breadcrumbs("media", "")
	assert.Equal(t, []models.Breadcrumb{{Name: "media", Path: ""}}, root)
}

func TestBreadcrumbsCountAndPrefixes(t *testing.T) {
	for _, p := range []string{"", "a", "a/b", "a/b/c/d"} {
		crumbs := Breadcrumbs("bucket", p)
		require.Len(t, crumbs, Depth(p)+1, p)
		assert.Equal(t, p, crumbs[len(crumbs)-1].Path)
		for _, c := range crumbs[1:] {
			assert.True(t, strings.HasPrefix(p, c.Path), "%q is not a prefix of %q", c.Path, p)
		}
	}
}

func TestCompareNames(t *testing.T) {
	assert.Negative(t, CompareNames("alpha", "Beta"))
	assert.Positive(t, CompareNames("beta", "Alpha"))
	assert.Equal(t, FoldKey("STRASSE"), FoldKey("strasse"))
	assert.NotZero(t, CompareNames("A", "a"))
	assert.Zero(t, CompareNames("same", "same"))
}
