// Package diff renders human-readable line diffs between two text blobs.
//
// Lines is a positional diff: line i of the old text is compared with line i
// of the new text. It does not look for moved or inserted lines, so a single
// inserted line shows every following line as changed. It is meant for human
// review. Unified wraps github.com/pmezard/go-difflib for a classic
// LCS-based unified patch when a reviewer wants hunks instead.
package diff

import (
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

const (
	prefixRemoved   = "- "
	prefixAdded     = "+ "
	prefixUnchanged = "  "
)

// Lines walks both texts line by line up to the longer length. A differing
// pair renders as a removed line followed by an added line; an empty side is
// omitted. Unchanged lines keep a two-space prefix.
func Lines(old, new string) string {
	oldLines := strings.Split(old, "\n")
	newLines := strings.Split(new, "\n")

	n := max(len(oldLines), len(newLines))
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		o := lineAt(oldLines, i)
		w := lineAt(newLines, i)

		if o == w {
			out = append(out, prefixUnchanged+o)
			continue
		}
		if o != "" {
			out = append(out, prefixRemoved+o)
		}
		if w != "" {
			out = append(out, prefixAdded+w)
		}
	}
	return strings.Join(out, "\n")
}

// HasChanges reports whether a Lines rendering contains any added or removed line.
func HasChanges(rendered string) bool {
	for _, l := range strings.Split(rendered, "\n") {
		if strings.HasPrefix(l, prefixRemoved) || strings.HasPrefix(l, prefixAdded) {
			return true
		}
	}
	return false
}

// Unified produces a unified patch with the given number of context lines
// (3 when ctx <= 0). Identical inputs yield an empty string.
func Unified(fromName, toName, old, new string, ctx int) string {
	if old == new {
		return ""
	}
	if ctx <= 0 {
		ctx = 3
	}
	u := difflib.UnifiedDiff{
		A:        difflib.SplitLines(old),
		B:        difflib.SplitLines(new),
		FromFile: fromName,
		ToFile:   toName,
		Context:  ctx,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return ""
	}
	return s
}

func lineAt(lines []string, i int) string {
	if i < len(lines) {
		return lines[i]
	}
	return ""
}
