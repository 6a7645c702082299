// Package coalesce implements the Stage 2 check that folds marker
// annotations into a single @SuppressWarnings list.
package coalesce

import (
	"fmt"
	"sort"
	"strings"

	"suppressible/internal/diag"
	"suppressible/internal/fix"
	"suppressible/internal/intercept"
	"suppressible/internal/javasyntax"
	"suppressible/internal/source"
)

// CheckName is the name the check reports under.
const CheckName = "SuppressWarningsCoalesce"

const suppressWarnings = "java.lang.SuppressWarnings"

// Checker finds declarations carrying marker annotations.
type Checker struct {
	Marker string
}

// New returns a Checker for the default marker annotation.
func New() *Checker {
	return &Checker{Marker: intercept.DefaultMarker}
}

// Check returns the findings Report would emit for u.
func (c *Checker) Check(u *javasyntax.Unit) []diag.Finding {
	bag := diag.NewBag(0)
	c.Report(u, diag.BagReporter{Bag: bag})
	return bag.Items()
}

// Report emits one finding per declaration that carries at least one
// marker. Each finding has a single fix that rewrites the declaration's
// suppressions; a unit without markers emits nothing.
func (c *Checker) Report(u *javasyntax.Unit, r diag.Reporter) {
	seen := make(map[*javasyntax.Modifiers]struct{})
	u.Walk(func(n *javasyntax.Node) bool {
		if !n.Kind.IsDeclaration() || n.Mods == nil {
			return true
		}
		if _, dup := seen[n.Mods]; dup {
			return true
		}
		seen[n.Mods] = struct{}{}
		c.coalesce(u, n, r)
		return true
	})
}

func (c *Checker) coalesce(u *javasyntax.Unit, n *javasyntax.Node, r diag.Reporter) {
	var markers []*javasyntax.Node
	var manual *javasyntax.Node
	for _, a := range n.Annotations() {
		switch {
		case a.Ann.Matches(c.Marker):
			markers = append(markers, a)
		case manual == nil && a.Ann.Matches(suppressWarnings):
			manual = a
		}
	}
	if len(markers) == 0 {
		return
	}

	primary := markers[0].Span
	if manual != nil && manual.Ann.Complex {
		msg := "@SuppressWarnings on " + n.Name + " is not a list of string literals; merge the markers by hand"
		diag.NewReportBuilder(r, diag.SevWarning, CheckName, primary, msg).Emit()
		return
	}

	var entries []string
	if manual != nil {
		entries = append(entries, manual.Ann.Values...)
	}
	var added []string
	for _, m := range markers {
		added = append(added, m.Ann.Values...)
	}
	sort.Strings(added)
	entries = dedup(append(entries, added...))

	name := "SuppressWarnings"
	if manual != nil {
		name = manual.Ann.Name
	}
	text := render(name, entries)

	// the first edit rewrites the kept annotation, the rest delete markers
	keep, rest := markers[0], markers[1:]
	if manual != nil {
		keep, rest = manual, markers
	}
	parts := []diag.Fix{fix.ReplaceSpan("", keep.Span, text, u.Text(keep.Span))}
	for _, m := range rest {
		span := withTrailingSpace(u, m.Span)
		parts = append(parts, fix.DeleteSpan("", span, u.Text(span)))
	}
	pos := u.File.Position(primary.Start)
	id := fmt.Sprintf("%s@%s:%d:%d", CheckName, u.File.Path, pos.Line, pos.Col)
	diag.NewReportBuilder(r, diag.SevWarning, CheckName, primary, "Coalesce suppression markers on "+n.Name).
		WithFix(fix.Combine("Coalesce @SuppressWarnings", parts, fix.WithID(id))).
		Emit()
}

// render writes the normalised annotation: a single literal for one entry,
// an array otherwise.
func render(name string, entries []string) string {
	quoted := make([]string, len(entries))
	for i, e := range entries {
		quoted[i] = javasyntax.Quote(e)
	}
	if len(quoted) == 1 {
		return "@" + name + "(" + quoted[0] + ")"
	}
	return "@" + name + "({" + strings.Join(quoted, ", ") + "})"
}

func dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// withTrailingSpace extends span over the whitespace that follows it, so
// a removed annotation does not leave a blank line behind.
func withTrailingSpace(u *javasyntax.Unit, span source.Span) source.Span {
	src := u.File.Content
	end := int(span.End)
	for end < len(src) && (src[end] == ' ' || src[end] == '\t' || src[end] == '\n' || src[end] == '\r') {
		end++
	}
	span.End = uint32(end)
	return span
}
