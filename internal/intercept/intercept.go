// Package intercept turns each reported finding into a suggestion that
// suppresses it on the nearest declaration.
package intercept

import (
	"errors"
	"fmt"
	"strings"

	"suppressible/internal/diag"
	"suppressible/internal/fix"
	"suppressible/internal/javasyntax"
)

// ErrUnsuppressible is returned when no enclosing class, method or variable
// exists for a finding. It signals a contract violation by the reporting
// check and must not be swallowed.
var ErrUnsuppressible = errors.New("can't find anything we can suppress")

const (
	// DefaultMarker is the repeatable annotation written in Stage 1.
	DefaultMarker = "com.palantir.suppressibleerrorprone.RepeatableSuppressWarnings"
	// DefaultPrefix marks suppressions added by the tool.
	DefaultPrefix = "for-rollout:"
	// DefaultIndent is used when the indentation cannot be determined.
	DefaultIndent = "    "
)

// State is what the engine knows when a check reports a finding.
type State struct {
	Unit *javasyntax.Unit
	// Path is where the visitor currently is. Checks may report on nodes
	// far from it, so Intercept never uses it.
	Path []*javasyntax.Node
	// Source is the unit's text; nil when the engine has none.
	Source []byte
}

// NewState returns a state for unit with its source attached.
func NewState(unit *javasyntax.Unit) *State {
	st := &State{Unit: unit}
	if unit != nil && unit.File != nil {
		st.Source = unit.File.Content
	}
	return st
}

// Interceptor rewrites findings.
type Interceptor struct {
	Marker        string
	Prefix        string
	DefaultIndent string
}

// New returns an Interceptor with the default marker, prefix and indent.
func New() *Interceptor {
	return &Interceptor{
		Marker:        DefaultMarker,
		Prefix:        DefaultPrefix,
		DefaultIndent: DefaultIndent,
	}
}

// Intercept replaces the fixes of f with a single zero-width insertion of
// the marker annotation at the start of the nearest suppressible ancestor
// of the node f points at. NoFinding passes through unchanged.
func (ic *Interceptor) Intercept(st *State, f diag.Finding) (diag.Finding, error) {
	if f.IsNone() {
		return diag.NoFinding, nil
	}
	if st == nil || st.Unit == nil {
		return f, fmt.Errorf("%w: %s: no compilation unit", ErrUnsuppressible, f.Check)
	}

	target := Target(st.Unit, st.Unit.NodeAt(f.Primary))
	if target == nil {
		return f, fmt.Errorf("%w: %s at %s", ErrUnsuppressible, f.Check, f.Primary)
	}

	indent := ic.indentAt(st.Source, target.Span.Start)
	text := fmt.Sprintf("@%s(%s)\n%s", ic.Marker, javasyntax.Quote(ic.Prefix+f.Check), indent)
	at := target.Span
	at.End = at.Start

	var opts []fix.Option
	if file := st.Unit.File; file != nil {
		pos := file.Position(f.Primary.Start)
		opts = append(opts, fix.WithID(fmt.Sprintf("%s@%s:%d:%d", f.Check, file.Path, pos.Line, pos.Col)))
	}
	out := f
	out.Fixes = []diag.Fix{fix.InsertText("Suppress "+f.Check+" for rollout", at, text, "", opts...)}
	return out, nil
}

// Target returns the first ancestor of n, n included, that can carry an
// annotation. The path is derived from the unit root by node identity.
func Target(unit *javasyntax.Unit, n *javasyntax.Node) *javasyntax.Node {
	if n == nil {
		return nil
	}
	path := unit.PathTo(n)
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].Kind.IsDeclaration() {
			return path[i]
		}
	}
	return nil
}

// indentAt returns the whitespace between the last line break before off and
// off. Without source, a line break, or with non-blank text in between, it
// falls back to the configured default.
func (ic *Interceptor) indentAt(src []byte, off uint32) string {
	fallback := ic.DefaultIndent
	if src == nil || int(off) > len(src) {
		return fallback
	}
	before := string(src[:off])
	nl := strings.LastIndexByte(before, '\n')
	if nl < 0 {
		return fallback
	}
	gap := before[nl+1:]
	if strings.TrimLeft(gap, " \t\f\r") != "" {
		return fallback
	}
	return gap
}
