// Package diff renders unified diffs for dry-run output.
package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of context lines around each hunk.
const DefaultContext = 3

// Options controls patch generation.
type Options struct {
	// MaxBytes caps old+new input size. 0 means no limit.
	MaxBytes int
	// Context lines per hunk; 0 selects DefaultContext.
	Context int
}

// Unified produces a unified patch turning a into b. The returned flag
// reports that the body was replaced by a placeholder because of MaxBytes.
// Identical inputs yield an empty string.
func Unified(path string, a, b []byte, opt Options) (string, bool) {
	if opt.MaxBytes > 0 && len(a)+len(b) > opt.MaxBytes {
		return omitted(path), true
	}
	ctx := opt.Context
	if ctx <= 0 {
		ctx = DefaultContext
	}
	u := difflib.UnifiedDiff{
		A:        splitLines(string(a)),
		B:        splitLines(string(b)),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  ctx,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return omitted(path), false
	}
	return s, false
}

// splitLines keeps the newline on every line so hunks print verbatim.
func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func omitted(path string) string {
	return fmt.Sprintf("--- a/%s\n+++ b/%s\n@@\n# diff omitted (oversize)\n", path, path)
}
