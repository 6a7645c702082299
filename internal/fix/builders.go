package fix

import (
	"suppressible/internal/diag"
	"suppressible/internal/source"
)

// Option mutates fix during construction.
type Option func(*diag.Fix)

// WithID sets stable identifier for fix.
func WithID(id string) Option {
	return func(f *diag.Fix) {
		f.ID = id
	}
}

func applyOptions(f diag.Fix, opts []Option) diag.Fix {
	for _, opt := range opts {
		if opt != nil {
			opt(&f)
		}
	}
	return f
}

// InsertText creates fix that inserts text at span (Span.Start == Span.End).
func InsertText(title string, at source.Span, text string, guard string, opts ...Option) diag.Fix {
	edit := diag.TextEdit{
		Span:    source.Span{File: at.File, Start: at.Start, End: at.Start},
		NewText: text,
		OldText: guard,
	}
	return applyOptions(diag.Fix{Title: title, Edits: []diag.TextEdit{edit}}, opts)
}

// DeleteSpan removes text covered by span.
func DeleteSpan(title string, span source.Span, expect string, opts ...Option) diag.Fix {
	return ReplaceSpan(title, span, "", expect, opts...)
}

// ReplaceSpan replaces text covered by span with newText.
func ReplaceSpan(title string, span source.Span, newText, expect string, opts ...Option) diag.Fix {
	edit := diag.TextEdit{
		Span:    span,
		NewText: newText,
		OldText: expect,
	}
	return applyOptions(diag.Fix{Title: title, Edits: []diag.TextEdit{edit}}, opts)
}

// Combine merges the edits of parts into one fix that is applied
// atomically. The parts' titles and IDs are dropped.
func Combine(title string, parts []diag.Fix, opts ...Option) diag.Fix {
	var edits []diag.TextEdit
	for _, p := range parts {
		edits = append(edits, p.Edits...)
	}
	return applyOptions(diag.Fix{Title: title, Edits: edits}, opts)
}
