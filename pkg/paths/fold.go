package paths

import (
	"golang.org/x/text/cases"
)

// FoldKey returns the Unicode case-folded form of name for case-insensitive ordering.
// A Caser keeps state, so one is created per call.
func FoldKey(name string) string {
	return cases.Fold().String(name)
}

// CompareNames orders names case-insensitively, falling back to a byte comparison so
// the result is total.
func CompareNames(a, b string) int {
	fa, fb := FoldKey(a), FoldKey(b)
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
