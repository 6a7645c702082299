package javasyntax

import (
	"errors"
	"fmt"

	"suppressible/internal/source"
)

// ErrSyntax reports source text the lexer or parser cannot make sense of.
var ErrSyntax = errors.New("syntax error")

// Lexer turns Java source into significant tokens.
type Lexer struct {
	file   *source.File
	cursor cursor
	err    error
}

// NewLexer creates a lexer over file.
func NewLexer(file *source.File) *Lexer {
	return &Lexer{file: file, cursor: newCursor(file)}
}

// Err returns the first lexing error, if any.
func (lx *Lexer) Err() error {
	return lx.err
}

// Next returns the next significant token. After EOF or an error it keeps
// returning EOF.
func (lx *Lexer) Next() Token {
	if lx.err != nil {
		return lx.eofToken()
	}
	lx.skipTrivia()
	if lx.err != nil || lx.cursor.eof() {
		return lx.eofToken()
	}

	start := lx.cursor.off
	ch := lx.cursor.peek()
	switch {
	case isIdentStart(ch):
		return lx.scanIdent(start)
	case isDigit(ch), ch == '.' && isDigit(lx.cursor.peekAt(1)):
		return lx.scanNumber(start)
	case ch == '"':
		if lx.cursor.peekAt(1) == '"' && lx.cursor.peekAt(2) == '"' {
			return lx.scanTextBlock(start)
		}
		return lx.scanQuoted(start, '"', TokenString)
	case ch == '\'':
		return lx.scanQuoted(start, '\'', TokenChar)
	}
	return lx.scanPunct(start)
}

// All lexes the whole file. The returned slice always ends with EOF.
func (lx *Lexer) All() ([]Token, error) {
	toks := make([]Token, 0, len(lx.file.Content)/4)
	for {
		t := lx.Next()
		toks = append(toks, t)
		if t.Kind == TokenEOF {
			break
		}
	}
	return toks, lx.err
}

func (lx *Lexer) eofToken() Token {
	off := lx.cursor.off
	return Token{Kind: TokenEOF, Span: source.Span{File: lx.file.ID, Start: off, End: off}}
}

func (lx *Lexer) fail(at uint32, format string, args ...any) {
	if lx.err != nil {
		return
	}
	lc := lx.file.Position(at)
	lx.err = fmt.Errorf("%w: %s:%d:%d: %s", ErrSyntax, lx.file.Path, lc.Line, lc.Col, fmt.Sprintf(format, args...))
}

func (lx *Lexer) skipTrivia() {
	for !lx.cursor.eof() {
		switch ch := lx.cursor.peek(); {
		case ch == ' ', ch == '\t', ch == '\n', ch == '\r', ch == '\f':
			lx.cursor.bump()
		case ch == '/' && lx.cursor.peekAt(1) == '/':
			for !lx.cursor.eof() && lx.cursor.peek() != '\n' {
				lx.cursor.bump()
			}
		case ch == '/' && lx.cursor.peekAt(1) == '*':
			start := lx.cursor.off
			lx.cursor.bump()
			lx.cursor.bump()
			for {
				if lx.cursor.eof() {
					lx.fail(start, "unterminated block comment")
					return
				}
				if lx.cursor.peek() == '*' && lx.cursor.peekAt(1) == '/' {
					lx.cursor.bump()
					lx.cursor.bump()
					break
				}
				lx.cursor.bump()
			}
		default:
			return
		}
	}
}

func (lx *Lexer) token(kind TokenKind, start uint32) Token {
	sp := lx.cursor.spanFrom(start)
	return Token{Kind: kind, Span: sp, Text: string(lx.file.Content[sp.Start:sp.End])}
}

func (lx *Lexer) scanIdent(start uint32) Token {
	for isIdentPart(lx.cursor.peek()) {
		lx.cursor.bump()
	}
	tok := lx.token(TokenIdent, start)
	if _, ok := keywords[tok.Text]; ok {
		tok.Kind = TokenKeyword
	}
	return tok
}

func (lx *Lexer) scanNumber(start uint32) Token {
	for {
		ch := lx.cursor.peek()
		switch {
		case isIdentPart(ch), ch == '.':
			lx.cursor.bump()
		case (ch == '+' || ch == '-') && isExponent(lx.file.Content[lx.cursor.off-1]):
			lx.cursor.bump()
		default:
			return lx.token(TokenNumber, start)
		}
	}
}

func (lx *Lexer) scanQuoted(start uint32, quote byte, kind TokenKind) Token {
	lx.cursor.bump()
	for {
		if lx.cursor.eof() || lx.cursor.peek() == '\n' {
			lx.fail(start, "unterminated literal")
			return lx.token(kind, start)
		}
		ch := lx.cursor.bump()
		if ch == '\\' {
			lx.cursor.bump()
			continue
		}
		if ch == quote {
			return lx.token(kind, start)
		}
	}
}

func (lx *Lexer) scanTextBlock(start uint32) Token {
	lx.cursor.off += 3
	for {
		if lx.cursor.eof() {
			lx.fail(start, "unterminated text block")
			return lx.token(TokenTextBlock, start)
		}
		ch := lx.cursor.bump()
		if ch == '\\' {
			lx.cursor.bump()
			continue
		}
		if ch == '"' && lx.cursor.peek() == '"' && lx.cursor.peekAt(1) == '"' {
			lx.cursor.off += 2
			return lx.token(TokenTextBlock, start)
		}
	}
}

func (lx *Lexer) scanPunct(start uint32) Token {
	ch := lx.cursor.bump()
	switch {
	case ch == '-' && lx.cursor.eat('>'):
	case ch == ':' && lx.cursor.eat(':'):
	case ch == '.' && lx.cursor.peek() == '.' && lx.cursor.peekAt(1) == '.':
		lx.cursor.off += 2
	}
	return lx.token(TokenPunct, start)
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || (ch|0x20 >= 'a' && ch|0x20 <= 'z') || ch >= 0x80
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isExponent(ch byte) bool {
	return ch == 'e' || ch == 'E' || ch == 'p' || ch == 'P'
}
