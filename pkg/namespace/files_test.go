package namespace

import (
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bucketfs/pkg/models"
)

func TestMimeAllowed(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		mime    string
		want    bool
	}{
		{"empty list accepts all", nil, "text/plain", true},
		{"exact", []string{"image/png"}, "image/png", true},
		{"exact miss", []string{"image/png"}, "image/jpeg", false},
		{"major wildcard", []string{"image/*"}, "image/jpeg", true},
		{"major wildcard miss", []string{"image/*"}, "video/mp4", false},
		{"wildcard needs the slash", []string{"image/*"}, "imagex/png", false},
		{"any", []string{"*/*"}, "application/zip", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mimeAllowed(tt.allowed, tt.mime))
		})
	}
}

func TestNormalizeMimeType(t *testing.T) {
	assert.Equal(t, "text/plain", normalizeMimeType(" Text/Plain; charset=utf-8"))
	assert.Equal(t, "image/png", normalizeMimeType("image/png"))
	assert.Equal(t, "", normalizeMimeType(""))
}

func TestNormalizeMimeTypes(t *testing.T) {
	got, err := normalizeMimeTypes([]string{"Image/PNG", "image/png", "video/*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"image/png", "video/*"}, got)

	for _, bad := range []string{"png", "/png", "image/", "a/b/c"} {
		_, err := normalizeMimeTypes([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "my_report_v1.pdf", sanitizeFileName("my report/v1.pdf"))
	assert.Equal(t, "a_b", sanitizeFileName(`a\b`))
	assert.Equal(t, "hidden", sanitizeFileName("..hidden"))
	assert.Equal(t, "tab", sanitizeFileName("t\tab"))
	assert.Len(t, sanitizeFileName(strings.Repeat("x", 300)), maxStoredNameLen)

	long := sanitizeFileName(strings.Repeat("é", 150) + "x")
	assert.True(t, utf8.ValidString(long))
	assert.LessOrEqual(t, len(long), maxStoredNameLen)
	assert.True(t, strings.HasSuffix(long, "éx"))
}

func TestSortFilesTieBreak(t *testing.T) {
	files := []models.File{
		{ID: "c", OriginalName: "Same.txt", Size: 1},
		{ID: "a", OriginalName: "same.txt", Size: 1},
		{ID: "b", OriginalName: "same.txt", Size: 1},
	}

	sortFiles(files, SortSize, OrderDesc)
	assert.Equal(t, []string{"a", "b", "c"}, fileIDs(files))

	sortFiles(files, SortName, OrderAsc)
	assert.Equal(t, []string{"c", "a", "b"}, fileIDs(files))
}

func fileIDs(files []models.File) []string {
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	return ids
}

func TestPaginate(t *testing.T) {
	files := []models.File{{ID: "1"}, {ID: "2"}, {ID: "3"}}

	assert.Equal(t, []string{"1", "2", "3"}, fileIDs(paginate(files, 0, 0)))
	assert.Equal(t, []string{"2"}, fileIDs(paginate(files, 1, 1)))
	assert.Equal(t, []string{"3"}, fileIDs(paginate(files, 5, 2)))
	assert.Empty(t, paginate(files, 0, 3))
}

func TestLockTableReleasesEntries(t *testing.T) {
	locks := newLockTable()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%5 == 0 {
				unlock := locks.writeBucket("p\x00b")
				unlock()
				return
			}
			unlockBucket := locks.readBucket("p\x00b")
			unlockFile := locks.lockFile("p\x00b\x00f")
			unlockFile()
			unlockBucket()
		}()
	}
	wg.Wait()

	buckets, files := locks.size()
	assert.Zero(t, buckets)
	assert.Zero(t, files)
}
