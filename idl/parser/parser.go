// Package parser implements the top-down IDL grammar of spec.md §4.2,
// turning a token stream into an *ast.Document.
package parser

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ritksm/thriftpy/idl/ast"
	"github.com/ritksm/thriftpy/idl/lexer"
	"github.com/ritksm/thriftpy/idl/token"
)

// ParseError reports a syntax error with the position it occurred at
// and what was expected versus what was actually found.
type ParseError struct {
	Position token.Position
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: expected %s, found %s", e.Position, e.Expected, e.Found)
}

// Parser consumes a token stream with one token of lookahead.
type Parser struct {
	name string
	lex  *lexer.Lexer
	tok  token.Token
}

// ParseString parses IDL source held in memory. name is used only for
// diagnostics and becomes Document.Name (minus any directory/suffix).
func ParseString(name, src string) (*ast.Document, error) {
	p := &Parser{name: name, lex: lexer.New(name, src)}
	if err := p.next(); err != nil {
		return nil, err
	}
	return p.parseDocument()
}

func (p *Parser) next() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *Parser) errorf(expected string) *ParseError {
	found := p.tok.Kind.String()
	if p.tok.Kind == token.Ident || p.tok.Kind == token.Int || p.tok.Kind == token.Double || p.tok.Kind == token.String {
		found = fmt.Sprintf("%s %q", p.tok.Kind, p.tok.Text)
	}
	return &ParseError{Position: p.tok.Pos, Expected: expected, Found: found}
}

func (p *Parser) expect(k token.Kind, desc string) (token.Token, error) {
	if p.tok.Kind != k {
		return token.Token{}, p.errorf(desc)
	}
	t := p.tok
	if err := p.next(); err != nil {
		return token.Token{}, err
	}
	return t, nil
}

func (p *Parser) at(k token.Kind) bool { return p.tok.Kind == k }

// skipOptional consumes a token of kind k if present, a no-op
// otherwise. Used for the trailing commas/semicolons Thrift IDL
// tolerates between list members.
func (p *Parser) skipOptional(k token.Kind) error {
	if p.at(k) {
		return p.next()
	}
	return nil
}

func (p *Parser) parseDocument() (*ast.Document, error) {
	base := filepath.Base(p.name)
	doc := &ast.Document{Name: strings.TrimSuffix(base, filepath.Ext(base)), Path: p.name}

	for !p.at(token.EOF) {
		switch p.tok.Kind {
		case token.Namespace:
			ns, err := p.parseNamespace()
			if err != nil {
				return nil, err
			}
			doc.Namespaces = append(doc.Namespaces, ns)
		case token.Include:
			inc, err := p.parseInclude(false)
			if err != nil {
				return nil, err
			}
			doc.Includes = append(doc.Includes, inc)
		case token.CppInclude:
			inc, err := p.parseInclude(true)
			if err != nil {
				return nil, err
			}
			doc.Includes = append(doc.Includes, inc)
		case token.Typedef:
			td, err := p.parseTypedef()
			if err != nil {
				return nil, err
			}
			doc.Typedefs = append(doc.Typedefs, td)
		case token.Const:
			c, err := p.parseConst()
			if err != nil {
				return nil, err
			}
			doc.Consts = append(doc.Consts, c)
		case token.Enum:
			e, err := p.parseEnum()
			if err != nil {
				return nil, err
			}
			doc.Enums = append(doc.Enums, e)
		case token.Struct:
			s, err := p.parseStructLike("struct")
			if err != nil {
				return nil, err
			}
			doc.Structs = append(doc.Structs, s)
		case token.Union:
			s, err := p.parseStructLike("union")
			if err != nil {
				return nil, err
			}
			doc.Unions = append(doc.Unions, s)
		case token.Exception:
			s, err := p.parseStructLike("exception")
			if err != nil {
				return nil, err
			}
			doc.Exceptions = append(doc.Exceptions, s)
		case token.Service:
			s, err := p.parseService()
			if err != nil {
				return nil, err
			}
			doc.Services = append(doc.Services, s)
		default:
			return nil, p.errorf("a top-level declaration")
		}

		if err := p.skipOptional(token.Semicolon); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

func (p *Parser) parseNamespace() (ast.Namespace, error) {
	if err := p.next(); err != nil { // consume 'namespace'
		return ast.Namespace{}, err
	}
	scope, err := p.parseIdentLike("a namespace scope")
	if err != nil {
		return ast.Namespace{}, err
	}
	name, err := p.parseIdentLike("a namespace name")
	if err != nil {
		return ast.Namespace{}, err
	}
	return ast.Namespace{Scope: scope, Name: name}, nil
}

// parseIdentLike accepts an identifier or a type keyword used as a
// plain name (namespace scopes like "go" collide with no keyword, but
// being lenient here matches real-world IDL).
func (p *Parser) parseIdentLike(desc string) (string, error) {
	if p.tok.Kind != token.Ident && token.LookupIdent(p.tok.Text) == token.Ident {
		return p.expectIdentText(desc)
	}
	if p.tok.Kind == token.Ident {
		return p.expectIdentText(desc)
	}
	// Allow keywords to double as bare words here (e.g. namespace "go").
	text := p.tok.Text
	if text == "" {
		return "", p.errorf(desc)
	}
	if err := p.next(); err != nil {
		return "", err
	}
	return text, nil
}

func (p *Parser) expectIdentText(desc string) (string, error) {
	t, err := p.expect(token.Ident, desc)
	if err != nil {
		return "", err
	}
	return t.Text, nil
}

func (p *Parser) parseInclude(cppOnly bool) (ast.Include, error) {
	pos := p.tok.Pos
	if err := p.next(); err != nil { // consume 'include'/'cpp_include'
		return ast.Include{}, err
	}
	str, err := p.expect(token.String, "an include path string")
	if err != nil {
		return ast.Include{}, err
	}
	return ast.Include{Path: str.Text, CppOnly: cppOnly, Pos: pos}, nil
}

func (p *Parser) parseType() (*ast.Type, error) {
	pos := p.tok.Pos

	if token.IsPrimitiveType(p.tok.Kind) {
		k := p.tok.Kind
		if err := p.next(); err != nil {
			return nil, err
		}
		return &ast.Type{Kind: k, Pos: pos}, nil
	}

	if p.tok.Kind == token.Ident {
		switch p.tok.Text {
		case "list", "set":
			return p.parseListOrSetType(pos, p.tok.Text)
		case "map":
			return p.parseMapType(pos)
		}
		name := p.tok.Text
		if err := p.next(); err != nil {
			return nil, err
		}
		return &ast.Type{Name: name, Pos: pos}, nil
	}

	return nil, p.errorf("a type")
}

func (p *Parser) parseListOrSetType(pos token.Position, container string) (*ast.Type, error) {
	if err := p.next(); err != nil { // consume 'list'/'set'
		return nil, err
	}
	if _, err := p.expect(token.LAngle, "'<'"); err != nil {
		return nil, err
	}
	elem, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RAngle, "'>'"); err != nil {
		return nil, err
	}
	return &ast.Type{Container: container, Elem: elem, Pos: pos}, nil
}

func (p *Parser) parseMapType(pos token.Position) (*ast.Type, error) {
	if err := p.next(); err != nil { // consume 'map'
		return nil, err
	}
	if _, err := p.expect(token.LAngle, "'<'"); err != nil {
		return nil, err
	}
	key, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Comma, "','"); err != nil {
		return nil, err
	}
	val, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RAngle, "'>'"); err != nil {
		return nil, err
	}
	return &ast.Type{Key: key, Value: val, Pos: pos}, nil
}

func (p *Parser) parseTypedef() (ast.Typedef, error) {
	pos := p.tok.Pos
	if err := p.next(); err != nil { // consume 'typedef'
		return ast.Typedef{}, err
	}
	typ, err := p.parseType()
	if err != nil {
		return ast.Typedef{}, err
	}
	alias, err := p.expectIdentText("a typedef alias")
	if err != nil {
		return ast.Typedef{}, err
	}
	return ast.Typedef{Type: typ, Alias: alias, Pos: pos}, nil
}

func (p *Parser) parseConst() (ast.Const, error) {
	pos := p.tok.Pos
	if err := p.next(); err != nil { // consume 'const'
		return ast.Const{}, err
	}
	typ, err := p.parseType()
	if err != nil {
		return ast.Const{}, err
	}
	name, err := p.expectIdentText("a constant name")
	if err != nil {
		return ast.Const{}, err
	}
	if _, err := p.expect(token.Equals, "'='"); err != nil {
		return ast.Const{}, err
	}
	val, err := p.parseLiteral()
	if err != nil {
		return ast.Const{}, err
	}
	return ast.Const{Type: typ, Name: name, Value: val, Pos: pos}, nil
}

func (p *Parser) parseLiteral() (*ast.Literal, error) {
	pos := p.tok.Pos
	switch p.tok.Kind {
	case token.Int:
		n, err := parseIntLiteral(p.tok.Text)
		if err != nil {
			return nil, &ParseError{Position: pos, Expected: "a valid integer literal", Found: p.tok.Text}
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: ast.LitInt, Int: n, Pos: pos}, nil

	case token.Double:
		f, err := parseFloatLiteral(p.tok.Text)
		if err != nil {
			return nil, &ParseError{Position: pos, Expected: "a valid floating literal", Found: p.tok.Text}
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: ast.LitDouble, Double: f, Pos: pos}, nil

	case token.String:
		s := p.tok.Text
		if err := p.next(); err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: ast.LitString, Str: s, Pos: pos}, nil

	case token.Ident:
		s := p.tok.Text
		if err := p.next(); err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: ast.LitIdent, Ident: s, Pos: pos}, nil

	case token.LBracket:
		return p.parseListLiteral(pos)

	case token.LBrace:
		return p.parseMapLiteral(pos)
	}

	return nil, p.errorf("a constant value")
}

func (p *Parser) parseListLiteral(pos token.Position) (*ast.Literal, error) {
	if err := p.next(); err != nil { // consume '['
		return nil, err
	}
	var items []*ast.Literal
	for !p.at(token.RBracket) {
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		if p.at(token.Comma) {
			if err := p.next(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	if _, err := p.expect(token.RBracket, "']'"); err != nil {
		return nil, err
	}
	return &ast.Literal{Kind: ast.LitList, List: items, Pos: pos}, nil
}

func (p *Parser) parseMapLiteral(pos token.Position) (*ast.Literal, error) {
	if err := p.next(); err != nil { // consume '{'
		return nil, err
	}
	lit := &ast.Literal{Kind: ast.LitMap, Pos: pos}
	for !p.at(token.RBrace) {
		k, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon, "':'"); err != nil {
			return nil, err
		}
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		lit.MapKeys = append(lit.MapKeys, k)
		lit.MapValues = append(lit.MapValues, v)
		if p.at(token.Comma) {
			if err := p.next(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	if _, err := p.expect(token.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *Parser) parseEnum() (ast.Enum, error) {
	pos := p.tok.Pos
	if err := p.next(); err != nil { // consume 'enum'
		return ast.Enum{}, err
	}
	name, err := p.expectIdentText("an enum name")
	if err != nil {
		return ast.Enum{}, err
	}
	if _, err := p.expect(token.LBrace, "'{'"); err != nil {
		return ast.Enum{}, err
	}

	e := ast.Enum{Name: name, Pos: pos}
	next := int64(0)
	for !p.at(token.RBrace) {
		vpos := p.tok.Pos
		vname, err := p.expectIdentText("an enum member name")
		if err != nil {
			return ast.Enum{}, err
		}
		ev := ast.EnumValue{Name: vname, Pos: vpos}
		if p.at(token.Equals) {
			if err := p.next(); err != nil {
				return ast.Enum{}, err
			}
			n, err := parseIntLiteral(p.tok.Text)
			if err != nil {
				return ast.Enum{}, p.errorf("an enum value")
			}
			if err := p.next(); err != nil {
				return ast.Enum{}, err
			}
			ev.Value = n
			ev.HasValue = true
			next = n + 1
		} else {
			ev.Value = next
			next++
		}
		e.Values = append(e.Values, ev)

		if p.at(token.Comma) || p.at(token.Semicolon) {
			if err := p.next(); err != nil {
				return ast.Enum{}, err
			}
		}
	}
	if _, err := p.expect(token.RBrace, "'}'"); err != nil {
		return ast.Enum{}, err
	}
	return e, nil
}

func (p *Parser) parseStructLike(kind string) (ast.StructLike, error) {
	pos := p.tok.Pos
	if err := p.next(); err != nil { // consume 'struct'/'union'/'exception'
		return ast.StructLike{}, err
	}
	name, err := p.expectIdentText("a " + kind + " name")
	if err != nil {
		return ast.StructLike{}, err
	}
	fields, err := p.parseFieldList()
	if err != nil {
		return ast.StructLike{}, err
	}
	return ast.StructLike{Kind: kind, Name: name, Fields: fields, Pos: pos}, nil
}

// parseFieldList parses `{ [N:] [required|optional] Type name [= default] , ... }`,
// the field-list grammar used by struct/union/exception bodies.
func (p *Parser) parseFieldList() ([]ast.Field, error) {
	return p.parseFieldListDelim(token.LBrace, token.RBrace, "'{'", "'}'")
}

// parseParenFieldList parses the same field grammar delimited by
// parentheses, as used by a method's argument list and `throws (...)`.
func (p *Parser) parseParenFieldList() ([]ast.Field, error) {
	return p.parseFieldListDelim(token.LParen, token.RParen, "'('", "')'")
}

func (p *Parser) parseFieldListDelim(open, close token.Kind, openDesc, closeDesc string) ([]ast.Field, error) {
	if _, err := p.expect(open, openDesc); err != nil {
		return nil, err
	}
	var fields []ast.Field
	for !p.at(close) {
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		if p.at(token.Comma) || p.at(token.Semicolon) {
			if err := p.next(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(close, closeDesc); err != nil {
		return nil, err
	}
	return fields, nil
}

func (p *Parser) parseField() (ast.Field, error) {
	pos := p.tok.Pos
	f := ast.Field{Pos: pos}

	if p.tok.Kind == token.Int {
		n, err := parseIntLiteral(p.tok.Text)
		if err != nil {
			return ast.Field{}, p.errorf("a field id")
		}
		if err := p.next(); err != nil {
			return ast.Field{}, err
		}
		if _, err := p.expect(token.Colon, "':'"); err != nil {
			return ast.Field{}, err
		}
		f.ID = int32(n)
		f.HasID = true
	}

	switch p.tok.Kind {
	case token.Required:
		f.Requiredness = ast.Required
		if err := p.next(); err != nil {
			return ast.Field{}, err
		}
	case token.Optional:
		f.Requiredness = ast.Optional
		if err := p.next(); err != nil {
			return ast.Field{}, err
		}
	default:
		f.Requiredness = ast.Default
	}

	typ, err := p.parseType()
	if err != nil {
		return ast.Field{}, err
	}
	f.Type = typ

	name, err := p.expectIdentText("a field name")
	if err != nil {
		return ast.Field{}, err
	}
	f.Name = name

	if p.at(token.Equals) {
		if err := p.next(); err != nil {
			return ast.Field{}, err
		}
		def, err := p.parseLiteral()
		if err != nil {
			return ast.Field{}, err
		}
		f.Default = def
	}

	return f, nil
}

func (p *Parser) parseService() (ast.Service, error) {
	pos := p.tok.Pos
	if err := p.next(); err != nil { // consume 'service'
		return ast.Service{}, err
	}
	name, err := p.expectIdentText("a service name")
	if err != nil {
		return ast.Service{}, err
	}
	svc := ast.Service{Name: name, Pos: pos}

	if p.at(token.Extends) {
		if err := p.next(); err != nil {
			return ast.Service{}, err
		}
		parent, err := p.parseQualifiedName()
		if err != nil {
			return ast.Service{}, err
		}
		svc.Extends = parent
	}

	if _, err := p.expect(token.LBrace, "'{'"); err != nil {
		return ast.Service{}, err
	}
	for !p.at(token.RBrace) {
		fn, err := p.parseFunction()
		if err != nil {
			return ast.Service{}, err
		}
		svc.Functions = append(svc.Functions, fn)
		if err := p.skipOptional(token.Comma); err != nil {
			return ast.Service{}, err
		}
		if err := p.skipOptional(token.Semicolon); err != nil {
			return ast.Service{}, err
		}
	}
	if _, err := p.expect(token.RBrace, "'}'"); err != nil {
		return ast.Service{}, err
	}
	return svc, nil
}

func (p *Parser) parseQualifiedName() (string, error) {
	t, err := p.expect(token.Ident, "a name")
	if err != nil {
		return "", err
	}
	return t.Text, nil
}

func (p *Parser) parseFunction() (ast.Function, error) {
	pos := p.tok.Pos
	fn := ast.Function{Pos: pos}

	if p.at(token.Oneway) {
		fn.Oneway = true
		if err := p.next(); err != nil {
			return ast.Function{}, err
		}
	}

	if p.at(token.Void) {
		fn.Void = true
		if err := p.next(); err != nil {
			return ast.Function{}, err
		}
	} else {
		rt, err := p.parseType()
		if err != nil {
			return ast.Function{}, err
		}
		fn.ReturnType = rt
	}

	name, err := p.expectIdentText("a method name")
	if err != nil {
		return ast.Function{}, err
	}
	fn.Name = name

	args, err := p.parseParenFieldList()
	if err != nil {
		return ast.Function{}, err
	}
	fn.Args = args

	if p.at(token.Throws) {
		if err := p.next(); err != nil {
			return ast.Function{}, err
		}
		throws, err := p.parseParenFieldList()
		if err != nil {
			return ast.Function{}, err
		}
		fn.Throws = throws
	}

	return fn, nil
}

func parseIntLiteral(text string) (int64, error) {
	// Base 0 lets strconv infer decimal vs 0x/0X hex from the text
	// itself, including a leading sign, rather than guessing with a
	// cascade of Sscanf formats that silently short-read on hex input.
	n, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer literal %q", text)
	}
	return n, nil
}

func parseFloatLiteral(text string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(text, "%g", &f)
	if err != nil {
		return 0, fmt.Errorf("invalid floating literal %q", text)
	}
	return f, nil
}
