// Package lexer tokenizes Thrift IDL source text, per spec.md §4.1.
package lexer

import (
	"fmt"
	"strings"

	"github.com/ritksm/thriftpy/idl/token"
)

// LexError is returned for unterminated strings/comments or stray
// characters. Offset is the byte offset into the source where the
// problem was detected.
type LexError struct {
	Offset  int
	Line    int
	Column  int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// Lexer tokenizes a single IDL source buffer.
type Lexer struct {
	src  string
	name string // filename, for error messages only

	offset int // current byte offset
	line   int
	col    int
}

// New creates a Lexer over src. name is used only for diagnostics.
func New(name, src string) *Lexer {
	return &Lexer{src: src, name: name, line: 1, col: 1}
}

func (l *Lexer) pos() token.Position {
	return token.Position{Offset: l.offset, Line: l.line, Column: l.col}
}

func (l *Lexer) errorf(format string, args ...interface{}) *LexError {
	return &LexError{Offset: l.offset, Line: l.line, Column: l.col, Message: fmt.Sprintf(format, args...)}
}

func (l *Lexer) peek() byte {
	if l.offset >= len(l.src) {
		return 0
	}
	return l.src[l.offset]
}

func (l *Lexer) peekAt(n int) byte {
	if l.offset+n >= len(l.src) {
		return 0
	}
	return l.src[l.offset+n]
}

func (l *Lexer) advance() byte {
	c := l.src[l.offset]
	l.offset++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '.'
}

// skipSpaceAndComments consumes whitespace and all recognized comment
// forms (//, #, /* ... */), returning an error on an unterminated
// block comment.
func (l *Lexer) skipSpaceAndComments() error {
	for {
		c := l.peek()
		switch {
		case c == 0:
			return nil
		case isSpace(c):
			l.advance()
		case c == '/' && l.peekAt(1) == '/':
			l.skipLineComment()
		case c == '#':
			l.skipLineComment()
		case c == '/' && l.peekAt(1) == '*':
			if err := l.skipBlockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (l *Lexer) skipLineComment() {
	for l.peek() != 0 && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) skipBlockComment() error {
	startLine, startCol := l.line, l.col
	l.advance() // '/'
	l.advance() // '*'
	for {
		if l.peek() == 0 {
			return &LexError{Offset: l.offset, Line: startLine, Column: startCol, Message: "unterminated block comment"}
		}
		if l.peek() == '*' && l.peekAt(1) == '/' {
			l.advance()
			l.advance()
			return nil
		}
		l.advance()
	}
}

// Next returns the next token in the stream, or an EOF token once the
// source is exhausted. It returns a *LexError on malformed input.
func (l *Lexer) Next() (token.Token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token.Token{}, err
	}

	startPos := l.pos()
	c := l.peek()

	if c == 0 {
		return token.Token{Kind: token.EOF, Pos: startPos}, nil
	}

	switch {
	case isIdentStart(c):
		return l.lexIdent(startPos), nil
	case isDigit(c), c == '-' || c == '+':
		if (c == '-' || c == '+') && !isDigit(l.peekAt(1)) {
			// A lone sign is not a number; fall through to punctuation.
			break
		}
		return l.lexNumber(startPos)
	case c == '"' || c == '\'':
		return l.lexString(startPos, c)
	}

	switch c {
	case '{':
		l.advance()
		return token.Token{Kind: token.LBrace, Text: "{", Pos: startPos}, nil
	case '}':
		l.advance()
		return token.Token{Kind: token.RBrace, Text: "}", Pos: startPos}, nil
	case '(':
		l.advance()
		return token.Token{Kind: token.LParen, Text: "(", Pos: startPos}, nil
	case ')':
		l.advance()
		return token.Token{Kind: token.RParen, Text: ")", Pos: startPos}, nil
	case '<':
		l.advance()
		return token.Token{Kind: token.LAngle, Text: "<", Pos: startPos}, nil
	case '>':
		l.advance()
		return token.Token{Kind: token.RAngle, Text: ">", Pos: startPos}, nil
	case '[':
		l.advance()
		return token.Token{Kind: token.LBracket, Text: "[", Pos: startPos}, nil
	case ']':
		l.advance()
		return token.Token{Kind: token.RBracket, Text: "]", Pos: startPos}, nil
	case ',':
		l.advance()
		return token.Token{Kind: token.Comma, Text: ",", Pos: startPos}, nil
	case ';':
		l.advance()
		return token.Token{Kind: token.Semicolon, Text: ";", Pos: startPos}, nil
	case ':':
		l.advance()
		return token.Token{Kind: token.Colon, Text: ":", Pos: startPos}, nil
	case '=':
		l.advance()
		return token.Token{Kind: token.Equals, Text: "=", Pos: startPos}, nil
	}

	l.advance()
	return token.Token{}, l.errorf("unexpected character %q", string(c))
}

func (l *Lexer) lexIdent(startPos token.Position) token.Token {
	var sb strings.Builder
	for isIdentPart(l.peek()) {
		sb.WriteByte(l.advance())
	}
	text := sb.String()
	return token.Token{Kind: token.LookupIdent(text), Text: text, Pos: startPos}
}

func (l *Lexer) lexNumber(startPos token.Position) (token.Token, error) {
	var sb strings.Builder
	if l.peek() == '-' || l.peek() == '+' {
		sb.WriteByte(l.advance())
	}

	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		sb.WriteByte(l.advance())
		sb.WriteByte(l.advance())
		if !isHexDigit(l.peek()) {
			return token.Token{}, l.errorf("malformed hex literal")
		}
		for isHexDigit(l.peek()) {
			sb.WriteByte(l.advance())
		}
		return token.Token{Kind: token.Int, Text: sb.String(), Pos: startPos}, nil
	}

	for isDigit(l.peek()) {
		sb.WriteByte(l.advance())
	}

	isFloat := false
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		sb.WriteByte(l.advance())
		for isDigit(l.peek()) {
			sb.WriteByte(l.advance())
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		la := l.peekAt(1)
		if isDigit(la) || ((la == '+' || la == '-') && isDigit(l.peekAt(2))) {
			isFloat = true
			sb.WriteByte(l.advance())
			if l.peek() == '+' || l.peek() == '-' {
				sb.WriteByte(l.advance())
			}
			for isDigit(l.peek()) {
				sb.WriteByte(l.advance())
			}
		}
	}

	kind := token.Int
	if isFloat {
		kind = token.Double
	}
	return token.Token{Kind: kind, Text: sb.String(), Pos: startPos}, nil
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (l *Lexer) lexString(startPos token.Position, quote byte) (token.Token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		c := l.peek()
		if c == 0 {
			return token.Token{}, &LexError{Offset: l.offset, Line: startPos.Line, Column: startPos.Column, Message: "unterminated string literal"}
		}
		if c == quote {
			l.advance()
			return token.Token{Kind: token.String, Text: sb.String(), Pos: startPos}, nil
		}
		if c == '\\' {
			l.advance()
			esc := l.peek()
			if esc == 0 {
				return token.Token{}, &LexError{Offset: l.offset, Line: startPos.Line, Column: startPos.Column, Message: "unterminated string literal"}
			}
			l.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '\'', '"':
				sb.WriteByte(esc)
			default:
				sb.WriteByte(esc)
			}
			continue
		}
		sb.WriteByte(l.advance())
	}
}

// Tokenize lexes the entire source and returns the resulting token
// slice, always terminated by a single EOF token.
func Tokenize(name, src string) ([]token.Token, error) {
	l := New(name, src)
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}
