package diag

import (
	"suppressible/internal/source"
)

// TextEdit replaces Span with NewText. OldText, when set, must match the
// current content of Span.
type TextEdit struct {
	Span    source.Span
	NewText string
	OldText string
}

// Fix is a suggested change made of one or more edits, applied atomically.
// ID names the fix for single-fix runs; the fix engine derives one when it
// is empty.
type Fix struct {
	ID    string
	Title string
	Edits []TextEdit
}

// Finding is one issue reported by a check.
type Finding struct {
	Check    string
	Severity Severity
	Message  string
	Primary  source.Span
	Fixes    []Fix
}

// NoFinding is the sentinel for "nothing matched".
var NoFinding = Finding{}

// IsNone reports whether f is the NoFinding sentinel.
func (f Finding) IsNone() bool {
	return f.Check == "" && f.Message == "" && len(f.Fixes) == 0
}

// WithFix returns a copy of f with fix appended.
func (f Finding) WithFix(fix Fix) Finding {
	fixes := make([]Fix, 0, len(f.Fixes)+1)
	fixes = append(fixes, f.Fixes...)
	f.Fixes = append(fixes, fix)
	return f
}
