package javasyntax

import (
	"fmt"
	"strings"

	"suppressible/internal/source"
)

// Kind classifies syntax tree nodes.
type Kind uint8

const (
	KindUnit Kind = iota
	KindClass
	KindMethod
	KindVariable
	KindBlock
	KindStatement
	KindExpression
	KindAnonymousClass
	KindLambda
	KindAnnotation
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "Unit"
	case KindClass:
		return "Class"
	case KindMethod:
		return "Method"
	case KindVariable:
		return "Variable"
	case KindBlock:
		return "Block"
	case KindStatement:
		return "Statement"
	case KindExpression:
		return "Expression"
	case KindAnonymousClass:
		return "AnonymousClass"
	case KindLambda:
		return "Lambda"
	case KindAnnotation:
		return "Annotation"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsDeclaration reports whether nodes of kind k can carry annotations
// in source.
func (k Kind) IsDeclaration() bool {
	return k == KindClass || k == KindMethod || k == KindVariable
}

// Modifiers is the modifier list of a declaration. Declarators of a single
// field or local declaration share one Modifiers.
type Modifiers struct {
	Span        source.Span
	Annotations []*Node
}

// Annotation is the decoded form of an annotation node.
type Annotation struct {
	// Name as written, possibly qualified.
	Name string
	// Args spans the parenthesised argument list; empty when absent.
	Args source.Span
	// Values holds the string literals given for the value element.
	Values []string
	// Complex is set when some argument is not a string literal or an
	// array of them, or when elements other than value are present.
	Complex bool
}

// SimpleName returns the last segment of the annotation name.
func (a *Annotation) SimpleName() string {
	if i := strings.LastIndexByte(a.Name, '.'); i >= 0 {
		return a.Name[i+1:]
	}
	return a.Name
}

// Matches reports whether a refers to the annotation type qualified, given
// either by its simple or its fully qualified name.
func (a *Annotation) Matches(qualified string) bool {
	if a.Name == qualified {
		return true
	}
	simple := qualified
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		simple = qualified[i+1:]
	}
	return a.Name == simple
}

// Node is one syntax tree node. Spans of declarations start at their first
// modifier or annotation.
type Node struct {
	Kind     Kind
	Span     source.Span
	Name     string
	Children []*Node
	// Mods is set on Class, Method and Variable nodes.
	Mods *Modifiers
	// Ann is set on Annotation nodes.
	Ann *Annotation
}

func (n *Node) add(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// Annotations returns the annotations written on a declaration.
func (n *Node) Annotations() []*Node {
	if n.Mods == nil {
		return nil
	}
	return n.Mods.Annotations
}

func (n *Node) String() string {
	if n.Name != "" {
		return fmt.Sprintf("%s %s@%d", n.Kind, n.Name, n.Span.Start)
	}
	return fmt.Sprintf("%s@%d", n.Kind, n.Span.Start)
}

// Unit is a parsed compilation unit.
type Unit struct {
	File *source.File
	Root *Node
}

// Walk visits nodes in pre-order. Returning false from fn skips the
// children of that node.
func (u *Unit) Walk(fn func(*Node) bool) {
	var walk func(*Node)
	walk = func(n *Node) {
		if !fn(n) {
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(u.Root)
}

// NodeAt returns the deepest node whose span equals span, or the deepest
// node enclosing it when none matches exactly. Declarators sharing modifiers
// overlap, so among enclosing nodes at the same depth the narrowest wins.
func (u *Unit) NodeAt(span source.Span) *Node {
	var exact, enclosing *Node
	exactDepth, enclosingDepth := -1, -1
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if n.Span.Start > span.Start || span.End > n.Span.End {
			return
		}
		if depth > enclosingDepth || (depth == enclosingDepth && n.Span.Len() < enclosing.Span.Len()) {
			enclosing, enclosingDepth = n, depth
		}
		if n.Span.Start == span.Start && n.Span.End == span.End && depth > exactDepth {
			exact, exactDepth = n, depth
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(u.Root, 0)
	if exact != nil {
		return exact
	}
	return enclosing
}

// PathTo returns the nodes from the root down to target, both included.
// It returns nil when target is not part of the tree.
func (u *Unit) PathTo(target *Node) []*Node {
	var path []*Node
	var find func(*Node) bool
	find = func(n *Node) bool {
		path = append(path, n)
		if n == target {
			return true
		}
		for _, c := range n.Children {
			if find(c) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	if find(u.Root) {
		return path
	}
	return nil
}

// Text returns the source text covered by span.
func (u *Unit) Text(span source.Span) string {
	return string(u.File.Content[span.Start:span.End])
}
