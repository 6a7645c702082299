package javasyntax

// parseBlock parses `{ statements }` as a Block child of parent.
func (p *parser) parseBlock(parent *Node) *Node {
	open := p.next()
	b := &Node{Kind: KindBlock}
	for !p.eof() && !p.at("}") && p.err == nil {
		before := p.pos
		p.parseStatement(b)
		if p.pos == before {
			p.next()
		}
	}
	if !p.accept("}") {
		p.fail(open, "unclosed block")
	}
	b.Span = p.span(open.Span.Start)
	return parent.add(b)
}

func (p *parser) parseStatement(parent *Node) {
	t := p.peek()
	switch {
	case t.Is("{"):
		p.parseBlock(parent)
		return
	case t.Is(";"):
		p.next()
		return
	case t.Is("case"), t.Is("default") && (p.peekN(1).Is(":") || p.peekN(1).Is("->")):
		p.skipSwitchLabel()
		return
	case t.Kind == TokenIdent && p.peekN(1).Is(":") && !p.peekN(2).Is(":"):
		// labelled statement
		p.pos += 2
		p.parseStatement(parent)
		return
	case t.Is("if"), t.Is("while"), t.Is("for"), t.Is("do"), t.Is("try"),
		t.Is("switch"), t.Is("return"), t.Is("throw"), t.Is("break"),
		t.Is("continue"), t.Is("assert"):
		p.parseControl(parent)
		return
	case t.Is("synchronized") && p.peekN(1).Is("("):
		p.parseControl(parent)
		return
	case t.IsIdent("yield") && !p.peekN(1).Is("=") && !p.peekN(1).Is(".") &&
		!p.peekN(1).Is("(") && !p.peekN(1).Is("["):
		p.parseControl(parent)
		return
	}

	if p.parseLocalDecl(parent, false) {
		return
	}
	p.parseExprStatement(parent)
}

// parseLocalDecl parses a local class or variable declaration when one
// starts at the current token. inHeader selects the for-header form, which
// also accepts `Type name :`.
func (p *parser) parseLocalDecl(parent *Node, inHeader bool) bool {
	save := p.pos
	mods := p.parseModifiers()
	if !inHeader && p.isTypeDeclStart() {
		p.parseTypeDecl(parent, mods)
		return true
	}
	if p.skipType() && p.peek().Kind == TokenIdent {
		switch n := p.peekN(1); {
		case n.Is("="), n.Is(","), n.Is(";"), n.Is("["), inHeader && n.Is(":"):
			if inHeader && n.Is(":") {
				name := p.next()
				v := &Node{Kind: KindVariable, Name: name.Text, Mods: mods}
				v.Children = append(v.Children, mods.Annotations...)
				v.Span = p.span(mods.Span.Start)
				parent.add(v)
				return true
			}
			p.parseDeclarators(parent, mods)
			return true
		}
	}
	p.pos = save
	return false
}

func (p *parser) parseExprStatement(parent *Node) {
	start := p.peek().Span.Start
	s := &Node{Kind: KindStatement}
	e := &Node{Kind: KindExpression}
	p.scanExpr(e, false)
	e.Span = p.span(start)
	s.add(e)
	p.accept(";")
	s.Span = p.span(start)
	parent.add(s)
}

// skipSwitchLabel consumes `case ... :`, `case ... ->` or the default forms.
func (p *parser) skipSwitchLabel() {
	depth := 0
	for !p.eof() {
		t := p.peek()
		switch {
		case depth == 0 && (t.Is(":") || t.Is("->")):
			p.next()
			return
		case depth == 0 && (t.Is(";") || t.Is("}")):
			return
		case t.Is("("), t.Is("["), t.Is("{"):
			depth++
		case t.Is(")"), t.Is("]"), t.Is("}"):
			depth--
		}
		p.next()
	}
}

func (p *parser) parseControl(parent *Node) {
	kw := p.next()
	s := &Node{Kind: KindStatement, Name: kw.Text}
	switch kw.Text {
	case "if", "while":
		p.parseCondition(s)
		p.parseStatement(s)
		if kw.Text == "if" && p.accept("else") {
			p.parseStatement(s)
		}
	case "switch", "synchronized":
		p.parseCondition(s)
		if p.at("{") {
			p.parseBlock(s)
		}
	case "do":
		p.parseStatement(s)
		if p.accept("while") {
			p.parseCondition(s)
		}
		p.accept(";")
	case "for":
		p.parseForHeader(s)
		p.parseStatement(s)
	case "try":
		if p.at("(") {
			p.parseResources(s)
		}
		if p.at("{") {
			p.parseBlock(s)
		}
		for p.accept("catch") {
			p.parseCatchParam(s)
			if p.at("{") {
				p.parseBlock(s)
			}
		}
		if p.accept("finally") && p.at("{") {
			p.parseBlock(s)
		}
	default:
		// return, throw, break, continue, assert, yield
		if !p.at(";") {
			start := p.peek().Span.Start
			e := &Node{Kind: KindExpression}
			p.scanExpr(e, false)
			e.Span = p.span(start)
			s.add(e)
		}
		p.accept(";")
	}
	s.Span = p.span(kw.Span.Start)
	parent.add(s)
}

func (p *parser) parseCondition(s *Node) {
	if p.at("(") {
		p.parseParenExpr(s)
	}
}

func (p *parser) parseForHeader(s *Node) {
	if !p.accept("(") {
		return
	}
	p.parseLocalDecl(s, true)
	if !p.at(")") {
		start := p.peek().Span.Start
		e := &Node{Kind: KindExpression}
		p.scanExpr(e, true)
		e.Span = p.span(start)
		s.add(e)
	}
	p.accept(")")
}

func (p *parser) parseResources(s *Node) {
	p.next() // (
	for !p.eof() && !p.at(")") {
		before := p.pos
		save := p.pos
		mods := p.parseModifiers()
		if p.skipType() && p.peek().Kind == TokenIdent && p.peekN(1).Is("=") {
			name := p.next()
			p.next() // =
			v := &Node{Kind: KindVariable, Name: name.Text, Mods: mods}
			v.Children = append(v.Children, mods.Annotations...)
			p.parseInitializer(v)
			v.Span = p.span(mods.Span.Start)
			s.add(v)
		} else {
			p.pos = save
			start := p.peek().Span.Start
			e := &Node{Kind: KindExpression}
			p.scanExpr(e, false)
			e.Span = p.span(start)
			s.add(e)
		}
		p.accept(";")
		if p.pos == before {
			p.next()
		}
	}
	p.accept(")")
}

func (p *parser) parseCatchParam(s *Node) {
	if !p.accept("(") {
		return
	}
	mods := p.parseModifiers()
	for p.skipType() && p.accept("|") {
	}
	if t := p.peek(); t.Kind == TokenIdent {
		p.next()
		v := &Node{Kind: KindVariable, Name: t.Text, Mods: mods}
		v.Children = append(v.Children, mods.Annotations...)
		v.Span = p.span(mods.Span.Start)
		s.add(v)
	}
	for !p.eof() && !p.at(")") {
		p.next()
	}
	p.accept(")")
}
