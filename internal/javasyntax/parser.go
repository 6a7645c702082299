package javasyntax

import (
	"fmt"

	"suppressible/internal/source"
)

// Parse lexes and parses file into a declaration-level syntax tree.
//
// Statements and expressions are parsed only far enough to find nested
// declarations, blocks, lambdas and anonymous classes. Malformed member
// declarations are skipped rather than reported; lexing errors and
// unbalanced braces fail the parse.
func Parse(file *source.File) (*Unit, error) {
	toks, err := NewLexer(file).All()
	if err != nil {
		return nil, err
	}
	p := &parser{file: file, toks: toks}
	end := uint32(len(file.Content))
	root := &Node{Kind: KindUnit, Span: source.Span{File: file.ID, Start: 0, End: end}}
	p.parseUnit(root)
	if p.err != nil {
		return nil, p.err
	}
	return &Unit{File: file, Root: root}, nil
}

type parser struct {
	file *source.File
	toks []Token
	pos  int
	err  error
}

func (p *parser) peek() Token {
	return p.toks[p.pos]
}

func (p *parser) peekN(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Kind != TokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) eof() bool {
	return p.peek().Kind == TokenEOF
}

func (p *parser) at(text string) bool {
	return p.peek().Is(text)
}

func (p *parser) accept(text string) bool {
	if p.at(text) {
		p.pos++
		return true
	}
	return false
}

// prevEnd is the end offset of the last consumed token.
func (p *parser) prevEnd() uint32 {
	if p.pos == 0 {
		return 0
	}
	return p.toks[p.pos-1].Span.End
}

func (p *parser) span(start uint32) source.Span {
	return source.Span{File: p.file.ID, Start: start, End: p.prevEnd()}
}

func (p *parser) fail(t Token, format string, args ...any) {
	if p.err != nil {
		return
	}
	lc := p.file.Position(t.Span.Start)
	p.err = fmt.Errorf("%w: %s:%d:%d: %s", ErrSyntax, p.file.Path, lc.Line, lc.Col, fmt.Sprintf(format, args...))
}

func (p *parser) parseUnit(root *Node) {
	for !p.eof() && p.err == nil {
		before := p.pos
		switch t := p.peek(); {
		case t.Is(";"):
			p.next()
		case t.Is("package"), t.Is("import"):
			p.skipPast(";")
		case t.IsIdent("module"), t.IsIdent("open") && p.peekN(1).IsIdent("module"):
			// module-info.java has no suppressible declarations.
			p.pos = len(p.toks) - 1
		default:
			mods := p.parseModifiers()
			switch {
			case p.at("package"):
				p.skipPast(";")
			case p.isTypeDeclStart():
				p.parseTypeDecl(root, mods)
			default:
				p.recoverMember()
			}
		}
		if p.pos == before {
			p.next()
		}
	}
}

// skipPast consumes tokens up to and including text at nesting depth 0.
func (p *parser) skipPast(text string) {
	depth := 0
	for !p.eof() {
		t := p.next()
		switch {
		case depth == 0 && t.Is(text):
			return
		case t.Is("("), t.Is("["), t.Is("{"):
			depth++
		case t.Is(")"), t.Is("]"), t.Is("}"):
			depth--
		}
	}
}

// skipBalanced consumes a bracketed group starting at the current token.
func (p *parser) skipBalanced() {
	depth := 0
	for !p.eof() {
		t := p.next()
		switch {
		case t.Is("("), t.Is("["), t.Is("{"):
			depth++
		case t.Is(")"), t.Is("]"), t.Is("}"):
			depth--
		}
		if depth <= 0 {
			return
		}
	}
}

// recoverMember skips a member the parser does not understand: up to the
// next ';', over the next braced group, or up to the closing brace of the
// enclosing body.
func (p *parser) recoverMember() {
	for !p.eof() {
		switch t := p.peek(); {
		case t.Is(";"):
			p.next()
			return
		case t.Is("{"):
			p.skipBalanced()
			return
		case t.Is("}"):
			return
		case t.Is("("), t.Is("["):
			p.skipBalanced()
		default:
			p.next()
		}
	}
}

func (p *parser) parseModifiers() *Modifiers {
	start := p.peek().Span.Start
	mods := &Modifiers{}
	for !p.eof() {
		t := p.peek()
		switch {
		case t.Is("@") && !p.peekN(1).Is("interface"):
			mods.Annotations = append(mods.Annotations, p.parseAnnotation())
			continue
		case t.Kind == TokenKeyword:
			if _, ok := modifierKeywords[t.Text]; ok {
				p.next()
				continue
			}
		case t.IsIdent("sealed"):
			p.next()
			continue
		case t.IsIdent("non") && p.peekN(1).Is("-") && p.peekN(2).IsIdent("sealed"):
			p.pos += 3
			continue
		}
		break
	}
	mods.Span = p.span(start)
	if mods.Span.End < start {
		mods.Span.End = start
	}
	return mods
}

func (p *parser) isTypeDeclStart() bool {
	t := p.peek()
	switch {
	case t.Is("class"), t.Is("interface"), t.Is("enum"):
		return true
	case t.Is("@"):
		return p.peekN(1).Is("interface")
	case t.IsIdent("record"):
		n := p.peekN(2)
		return p.peekN(1).Kind == TokenIdent && (n.Is("(") || n.Is("<"))
	}
	return false
}

func (p *parser) parseTypeDecl(parent *Node, mods *Modifiers) *Node {
	start := mods.Span.Start
	n := &Node{Kind: KindClass, Mods: mods}
	n.Children = append(n.Children, mods.Annotations...)

	kw := p.next()
	if kw.Is("@") {
		p.next() // interface
	}
	if name := p.peek(); name.Kind == TokenIdent {
		n.Name = name.Text
		p.next()
	}
	if p.at("<") {
		p.skipTypeArgs()
	}
	if kw.IsIdent("record") && p.at("(") {
		p.parseParams(n)
	}
	for !p.eof() && !p.at("{") && !p.at(";") && !p.at("}") {
		if p.at("(") {
			p.skipBalanced()
			continue
		}
		p.next()
	}
	if !p.at("{") {
		p.fail(p.peek(), "expected class body for %s", n.Name)
		n.Span = p.span(start)
		return parent.add(n)
	}
	p.parseClassBody(n, kw.Is("enum"), n.Name)
	n.Span = p.span(start)
	return parent.add(n)
}

// parseClassBody parses `{ members }` into n.
func (p *parser) parseClassBody(n *Node, isEnum bool, className string) {
	open := p.next()
	if isEnum {
		p.parseEnumConstants(n)
	}
	for !p.eof() && !p.at("}") {
		before := p.pos
		p.parseMember(n, className)
		if p.pos == before {
			p.next()
		}
	}
	if !p.accept("}") {
		p.fail(open, "unclosed class body")
	}
}

func (p *parser) parseEnumConstants(n *Node) {
	for !p.eof() {
		if p.accept(";") || p.at("}") {
			return
		}
		mods := p.parseModifiers()
		name := p.peek()
		if name.Kind != TokenIdent {
			p.recoverMember()
			return
		}
		p.next()
		v := &Node{Kind: KindVariable, Name: name.Text, Mods: mods}
		v.Children = append(v.Children, mods.Annotations...)
		if p.at("(") {
			p.parseParenExpr(v)
		}
		if p.at("{") {
			p.parseAnonymousBody(v, mods.Span.Start)
		}
		v.Span = p.span(mods.Span.Start)
		n.add(v)
		if !p.accept(",") {
			p.accept(";")
			return
		}
	}
}

func (p *parser) parseMember(parent *Node, className string) {
	switch {
	case p.accept(";"):
		return
	case p.at("{"):
		p.parseBlock(parent)
		return
	case p.at("static") && p.peekN(1).Is("{"):
		start := p.next().Span.Start
		b := p.parseBlock(parent)
		b.Span.Start = start
		return
	}

	mods := p.parseModifiers()
	if p.isTypeDeclStart() {
		p.parseTypeDecl(parent, mods)
		return
	}
	if p.at("<") && !p.skipTypeArgs() {
		p.recoverMember()
		return
	}
	if t := p.peek(); t.Kind == TokenIdent && t.Text == className {
		switch next := p.peekN(1); {
		case next.Is("("):
			p.next()
			p.parseMethod(parent, mods, t.Text)
			return
		case next.Is("{"):
			// compact canonical record constructor
			p.next()
			m := &Node{Kind: KindMethod, Name: t.Text, Mods: mods}
			m.Children = append(m.Children, mods.Annotations...)
			p.parseBlock(m)
			m.Span = p.span(mods.Span.Start)
			parent.add(m)
			return
		}
	}
	if !p.skipType() {
		p.recoverMember()
		return
	}
	name := p.peek()
	if name.Kind != TokenIdent {
		p.recoverMember()
		return
	}
	if p.peekN(1).Is("(") {
		p.next()
		p.parseMethod(parent, mods, name.Text)
		return
	}
	p.parseDeclarators(parent, mods)
}

func (p *parser) parseMethod(parent *Node, mods *Modifiers, name string) {
	m := &Node{Kind: KindMethod, Name: name, Mods: mods}
	m.Children = append(m.Children, mods.Annotations...)
	p.parseParams(m)
	p.skipDims()
	if p.accept("throws") {
		for !p.eof() && !p.at("{") && !p.at(";") && !p.at("}") && !p.at("default") {
			p.next()
		}
	}
	if p.accept("default") {
		e := &Node{Kind: KindExpression}
		start := p.peek().Span.Start
		p.scanExpr(e, false)
		e.Span = p.span(start)
		m.add(e)
	}
	switch {
	case p.at("{"):
		p.parseBlock(m)
	default:
		p.accept(";")
	}
	m.Span = p.span(mods.Span.Start)
	parent.add(m)
}

// parseParams parses a parenthesised formal parameter list; each
// parameter becomes a Variable child of owner.
func (p *parser) parseParams(owner *Node) {
	p.next() // (
	for !p.eof() && !p.at(")") {
		before := p.pos
		mods := p.parseModifiers()
		if p.skipType() {
			for p.at("@") {
				p.parseAnnotation()
			}
			p.accept("...")
			if t := p.peek(); t.Kind == TokenIdent || t.Is("this") {
				p.next()
				p.skipDims()
				v := &Node{Kind: KindVariable, Name: t.Text, Mods: mods}
				v.Children = append(v.Children, mods.Annotations...)
				v.Span = p.span(mods.Span.Start)
				owner.add(v)
			}
		}
		for !p.eof() && !p.at(",") && !p.at(")") {
			if p.at("(") || p.at("{") || p.at("[") {
				p.skipBalanced()
				continue
			}
			p.next()
		}
		p.accept(",")
		if p.pos == before {
			p.next()
		}
	}
	p.accept(")")
}

// parseDeclarators parses `name [dims] [= init] {, name ...} ;` for a field
// or local declaration whose modifiers and type were already consumed.
// Every declarator starts at the shared modifiers.
func (p *parser) parseDeclarators(parent *Node, mods *Modifiers) {
	first := true
	for !p.eof() {
		name := p.peek()
		if name.Kind != TokenIdent {
			p.recoverMember()
			return
		}
		p.next()
		p.skipDims()
		v := &Node{Kind: KindVariable, Name: name.Text, Mods: mods}
		if first {
			v.Children = append(v.Children, mods.Annotations...)
			first = false
		}
		if p.accept("=") {
			p.parseInitializer(v)
		}
		parent.add(v)
		if p.accept(",") {
			v.Span = p.span(mods.Span.Start)
			v.Span.End = p.toks[p.pos-2].Span.End
			continue
		}
		p.accept(";")
		v.Span = p.span(mods.Span.Start)
		return
	}
}

func (p *parser) parseInitializer(v *Node) {
	e := &Node{Kind: KindExpression}
	start := p.peek().Span.Start
	p.scanExpr(e, false, ",")
	e.Span = p.span(start)
	v.add(e)
}

// skipType consumes a type: annotations, a primitive or a qualified name
// with type arguments, then array dimensions. It restores the position and
// returns false when no type is present.
func (p *parser) skipType() bool {
	save := p.pos
	for p.at("@") && !p.peekN(1).Is("interface") {
		p.parseAnnotation()
	}
	t := p.peek()
	if t.Kind == TokenKeyword {
		if _, ok := primitives[t.Text]; !ok {
			p.pos = save
			return false
		}
		p.next()
	} else {
		if t.Kind != TokenIdent {
			p.pos = save
			return false
		}
		p.next()
		for {
			if p.at("<") && !p.skipTypeArgs() {
				p.pos = save
				return false
			}
			if p.at(".") && (p.peekN(1).Kind == TokenIdent || p.peekN(1).Is("@")) {
				p.next()
				for p.at("@") {
					p.parseAnnotation()
				}
				if p.peek().Kind != TokenIdent {
					p.pos = save
					return false
				}
				p.next()
				continue
			}
			break
		}
	}
	p.skipDims()
	return true
}

// skipDims consumes `[]` pairs, each optionally preceded by annotations.
func (p *parser) skipDims() {
	for {
		save := p.pos
		for p.at("@") {
			p.parseAnnotation()
		}
		if p.at("[") && p.peekN(1).Is("]") {
			p.pos += 2
			continue
		}
		p.pos = save
		return
	}
}

// skipTypeArgs consumes a `<...>` group. Only tokens that can appear in
// type arguments are accepted; anything else restores the position.
func (p *parser) skipTypeArgs() bool {
	save := p.pos
	depth := 0
	for !p.eof() {
		t := p.next()
		switch {
		case t.Is("<"):
			depth++
		case t.Is(">"):
			depth--
			if depth == 0 {
				return true
			}
		case t.Kind == TokenIdent, t.Is("."), t.Is(","), t.Is("?"), t.Is("&"),
			t.Is("["), t.Is("]"), t.Is("@"), t.Is("extends"), t.Is("super"):
		case t.Kind == TokenKeyword:
			if _, ok := primitives[t.Text]; !ok {
				p.pos = save
				return false
			}
		default:
			p.pos = save
			return false
		}
	}
	p.pos = save
	return false
}
