package javasyntax

import (
	"fmt"

	"suppressible/internal/source"
)

// TokenKind classifies a lexed token.
type TokenKind uint8

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenKeyword
	TokenNumber
	TokenString
	TokenTextBlock
	TokenChar
	// TokenPunct covers operators and separators. Everything is a single
	// byte except "->", "::" and "...", so ">>" arrives as two '>' tokens.
	TokenPunct
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return "Ident"
	case TokenKeyword:
		return "Keyword"
	case TokenNumber:
		return "Number"
	case TokenString:
		return "String"
	case TokenTextBlock:
		return "TextBlock"
	case TokenChar:
		return "Char"
	case TokenPunct:
		return "Punct"
	}
	return fmt.Sprintf("TokenKind(%d)", uint8(k))
}

// Token is one significant lexeme; comments and whitespace are dropped.
type Token struct {
	Kind TokenKind
	Span source.Span
	Text string
}

// Is reports whether t is a keyword or punctuation spelled text.
func (t Token) Is(text string) bool {
	return (t.Kind == TokenKeyword || t.Kind == TokenPunct) && t.Text == text
}

// IsIdent reports whether t is the identifier text. Contextual keywords
// such as record, var and yield lex as identifiers.
func (t Token) IsIdent(text string) bool {
	return t.Kind == TokenIdent && t.Text == text
}

var keywords = map[string]struct{}{
	"abstract": {}, "assert": {}, "boolean": {}, "break": {}, "byte": {},
	"case": {}, "catch": {}, "char": {}, "class": {}, "const": {},
	"continue": {}, "default": {}, "do": {}, "double": {}, "else": {},
	"enum": {}, "extends": {}, "final": {}, "finally": {}, "float": {},
	"for": {}, "goto": {}, "if": {}, "implements": {}, "import": {},
	"instanceof": {}, "int": {}, "interface": {}, "long": {}, "native": {},
	"new": {}, "package": {}, "private": {}, "protected": {}, "public": {},
	"return": {}, "short": {}, "static": {}, "strictfp": {}, "super": {},
	"switch": {}, "synchronized": {}, "this": {}, "throw": {}, "throws": {},
	"transient": {}, "try": {}, "void": {}, "volatile": {}, "while": {},
	"true": {}, "false": {}, "null": {},
}

var primitives = map[string]struct{}{
	"boolean": {}, "byte": {}, "char": {}, "short": {}, "int": {},
	"long": {}, "float": {}, "double": {}, "void": {},
}

var modifierKeywords = map[string]struct{}{
	"public": {}, "protected": {}, "private": {}, "static": {}, "abstract": {},
	"final": {}, "native": {}, "synchronized": {}, "transient": {},
	"volatile": {}, "strictfp": {}, "default": {},
}
