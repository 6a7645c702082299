package javasyntax

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// parseAnnotation parses `@Name[(args)]` at the current '@'.
func (p *parser) parseAnnotation() *Node {
	start := p.next().Span.Start
	var name strings.Builder
	if t := p.peek(); t.Kind == TokenIdent {
		name.WriteString(t.Text)
		p.next()
	}
	for p.at(".") && p.peekN(1).Kind == TokenIdent {
		p.next()
		name.WriteByte('.')
		name.WriteString(p.next().Text)
	}
	ann := &Annotation{Name: name.String()}
	if p.at("(") {
		p.parseAnnotationArgs(ann)
	}
	return &Node{Kind: KindAnnotation, Name: ann.Name, Ann: ann, Span: p.span(start)}
}

func (p *parser) parseAnnotationArgs(ann *Annotation) {
	start := p.next().Span.Start
	defer func() { ann.Args = p.span(start) }()
	if p.accept(")") {
		return
	}
	if p.peek().Kind == TokenIdent && p.peekN(1).Is("=") {
		for !p.eof() && !p.at(")") {
			before := p.pos
			elem := p.next().Text
			p.accept("=")
			p.parseElementValue(ann, elem == "value")
			p.accept(",")
			if p.pos == before {
				break
			}
		}
	} else {
		p.parseElementValue(ann, true)
	}
	for !p.eof() && !p.at(")") {
		ann.Complex = true
		p.next()
	}
	p.accept(")")
}

func (p *parser) parseElementValue(ann *Annotation, isValue bool) {
	if p.accept("{") {
		for !p.eof() && !p.at("}") {
			before := p.pos
			p.parseElementValue(ann, isValue)
			p.accept(",")
			if p.pos == before {
				p.next()
			}
		}
		p.accept("}")
		return
	}
	first := p.pos
	depth := 0
loop:
	for !p.eof() {
		t := p.peek()
		switch {
		case depth == 0 && (t.Is(",") || t.Is(")") || t.Is("}")):
			break loop
		case t.Is("("), t.Is("["), t.Is("{"):
			depth++
		case t.Is(")"), t.Is("]"), t.Is("}"):
			depth--
		}
		p.next()
	}
	if isValue && p.pos-first == 1 && p.toks[first].Kind == TokenString {
		if s, ok := unquote(p.toks[first].Text); ok {
			ann.Values = append(ann.Values, s)
			return
		}
	}
	ann.Complex = true
}

// unquote decodes a Java string literal including its quotes.
func unquote(lit string) (string, bool) {
	if len(lit) < 2 || lit[0] != '"' || lit[len(lit)-1] != '"' {
		return "", false
	}
	body := lit[1 : len(lit)-1]
	if !strings.ContainsRune(body, '\\') {
		return body, true
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", false
		}
		switch c = body[i]; c {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 's':
			b.WriteByte(' ')
		case '"', '\'', '\\':
			b.WriteByte(c)
		case 'u':
			for i < len(body) && body[i] == 'u' {
				i++
			}
			if i+4 > len(body) {
				return "", false
			}
			r, err := strconv.ParseUint(body[i:i+4], 16, 32)
			if err != nil {
				return "", false
			}
			b.WriteRune(rune(r))
			i += 3
		default:
			if c < '0' || c > '7' {
				return "", false
			}
			// octal escape, up to three digits and at most \377
			v := int(c - '0')
			limit := 2
			if c > '3' {
				limit = 1
			}
			for ; limit > 0 && i+1 < len(body) && body[i+1] >= '0' && body[i+1] <= '7'; limit-- {
				i++
				v = v*8 + int(body[i]-'0')
			}
			b.WriteRune(rune(v))
		}
	}
	if !utf8.ValidString(b.String()) {
		return "", false
	}
	return b.String(), true
}

// Quote renders s as a Java string literal.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
