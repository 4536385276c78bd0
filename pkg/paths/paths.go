// Package paths implements the slash-delimited path rules used for folders and files
// inside a bucket. The bucket root is the empty string.
package paths

import (
	"fmt"
	"strings"
	"unicode"

	"bucketfs/pkg/models"
)

const (
	// Separator joins path segments.
	Separator = "/"

	// MaxSegmentLength is the longest accepted segment in bytes.
	MaxSegmentLength = 255

	// Root is the normalized path of a bucket root.
	Root = ""
)

// Normalize trims leading and trailing slashes, collapses empty and "." segments and
// rejects traversal, control characters and oversized segments.
func Normalize(path string) (string, error) {
	if path == Root {
		return Root, nil
	}

	raw := strings.Split(path, Separator)
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		if segment == "" || segment == "." {
			continue
		}
		if err := ValidateSegment(segment); err != nil {
			return "", err
		}
		segments = append(segments, segment)
	}

	return strings.Join(segments, Separator), nil
}

// ValidateSegment checks a single path segment (a folder name).
func ValidateSegment(segment string) error {
	switch {
	case segment == "" || segment == ".":
		return fmt.Errorf("%w: empty segment", models.ErrInvalidPath)
	case segment == "..":
		return fmt.Errorf("%w: traversal segment", models.ErrInvalidPath)
	case len(segment) > MaxSegmentLength:
		return fmt.Errorf("%w: segment longer than %d bytes", models.ErrInvalidPath, MaxSegmentLength)
	case strings.Contains(segment, Separator):
		return fmt.Errorf("%w: segment contains separator", models.ErrInvalidPath)
	}

	for _, r := range segment {
		if r == unicode.ReplacementChar || unicode.IsControl(r) {
			return fmt.Errorf("%w: control character %U", models.ErrInvalidPath, r)
		}
	}
	return nil
}

// Parent returns the path minus its last segment, or Root for root-level paths.
func Parent(path string) string {
	idx := strings.LastIndex(path, Separator)
	if idx < 0 {
		return Root
	}
	return path[:idx]
}

// Base returns the last segment of path.
func Base(path string) string {
	return path[strings.LastIndex(path, Separator)+1:]
}

// Join appends name to parent. Both are expected to be normalized.
func Join(parent, name string) string {
	if parent == Root {
		return name
	}
	if name == Root {
		return parent
	}
	return parent + Separator + name
}

// Depth is the number of segments in path; the root has depth 0.
func Depth(path string) int {
	if path == Root {
		return 0
	}
	return strings.Count(path, Separator) + 1
}

// IsDescendant reports whether path lies strictly below ancestor.
func IsDescendant(path, ancestor string) bool {
	if path == ancestor {
		return false
	}
	if ancestor == Root {
		return true
	}
	return strings.HasPrefix(path, ancestor+Separator)
}

// Ancestors lists the proper ancestors of path from the outermost folder inward,
// excluding the root.
func Ancestors(path string) []string {
	depth := Depth(path)
	if depth <= 1 {
		return nil
	}

	out := make([]string, 0, depth-1)
	for i, c := range path {
		if c == '/' {
			out = append(out, path[:i])
		}
	}
	return out
}

// Breadcrumbs decomposes path into navigation entries. The first entry is the bucket
// root, the last one is path itself.
func Breadcrumbs(bucketName, path string) []models.Breadcrumb {
	crumbs := make([]models.Breadcrumb, 0, Depth(path)+1)
	crumbs = append(crumbs, models.Breadcrumb{Name: bucketName, Path: Root})
	if path == Root {
		return crumbs
	}

	for _, ancestor := range Ancestors(path) {
		crumbs = append(crumbs, models.Breadcrumb{Name: Base(ancestor), Path: ancestor})
	}
	return append(crumbs, models.Breadcrumb{Name: Base(path), Path: path})
}
