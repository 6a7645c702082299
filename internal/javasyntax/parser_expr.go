package javasyntax

// scanExpr consumes an expression, adding the lambdas, anonymous classes
// and switch bodies it contains to e. It stops before an unmatched closing
// bracket, before ';' unless allowSemi, and before any of stops at depth 0.
func (p *parser) scanExpr(e *Node, allowSemi bool, stops ...string) {
	for !p.eof() && p.err == nil {
		t := p.peek()
		if t.Is(")") || t.Is("]") || t.Is("}") || (!allowSemi && t.Is(";")) {
			return
		}
		for _, s := range stops {
			if t.Is(s) {
				return
			}
		}
		switch {
		case t.Is("(") && p.lambdaAfterParen():
			p.parseLambda(e)
		case t.Kind == TokenIdent && p.peekN(1).Is("->"):
			p.parseLambda(e)
		case t.Is("("), t.Is("["), t.Is("{"):
			p.scanGroup(e)
		case t.Is("new"):
			p.scanNew(e)
		case t.Is("switch"):
			p.next()
			if p.at("(") {
				p.scanGroup(e)
			}
			if p.at("{") {
				p.parseBlock(e)
			}
		default:
			p.next()
		}
	}
}

// scanGroup consumes a bracketed group whose contents are expressions.
func (p *parser) scanGroup(e *Node) {
	open := p.next()
	closer := map[string]string{"(": ")", "[": "]", "{": "}"}[open.Text]
	for !p.eof() && !p.at(closer) && p.err == nil {
		before := p.pos
		p.scanExpr(e, true)
		if p.pos == before {
			// a mismatched closer
			p.next()
		}
	}
	if !p.accept(closer) {
		p.fail(open, "unclosed %q", open.Text)
	}
}

// parseParenExpr parses `( expr )` as an Expression child of parent.
func (p *parser) parseParenExpr(parent *Node) {
	start := p.peek().Span.Start
	e := &Node{Kind: KindExpression}
	p.scanGroup(e)
	e.Span = p.span(start)
	parent.add(e)
}

// lambdaAfterParen reports whether the parenthesised group at the current
// token is followed by "->".
func (p *parser) lambdaAfterParen() bool {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		t := p.toks[i]
		switch {
		case t.Is("("):
			depth++
		case t.Is(")"):
			depth--
			if depth == 0 {
				return i+1 < len(p.toks) && p.toks[i+1].Is("->")
			}
		case t.Is(";"), t.Is("{"), t.Is("}"), t.Kind == TokenEOF:
			return false
		}
	}
	return false
}

func (p *parser) parseLambda(parent *Node) {
	start := p.peek().Span.Start
	l := &Node{Kind: KindLambda}
	if p.at("(") {
		p.skipBalanced()
	} else {
		p.next()
	}
	p.accept("->")
	if p.at("{") {
		p.parseBlock(l)
	} else {
		bodyStart := p.peek().Span.Start
		e := &Node{Kind: KindExpression}
		p.scanExpr(e, false, ",")
		e.Span = p.span(bodyStart)
		l.add(e)
	}
	l.Span = p.span(start)
	parent.add(l)
}

// scanNew consumes an instance or array creation. A class body after the
// arguments becomes an AnonymousClass child of e.
func (p *parser) scanNew(e *Node) {
	start := p.next().Span.Start
	if !p.skipType() {
		return
	}
	if p.at("(") {
		p.scanGroup(e)
		if p.at("{") {
			p.parseAnonymousBody(e, start)
		}
	}
}

func (p *parser) parseAnonymousBody(parent *Node, start uint32) {
	a := &Node{Kind: KindAnonymousClass}
	p.parseClassBody(a, false, "")
	a.Span = p.span(start)
	parent.add(a)
}
