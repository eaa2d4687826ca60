// Package token defines the lexical tokens produced by idl/lexer.
package token

import "fmt"

// Kind identifies the lexical class of a Token.
type Kind int

const (
	EOF Kind = iota
	Ident
	Int
	Double
	String

	// Punctuation
	LBrace    // {
	RBrace    // }
	LParen    // (
	RParen    // )
	LAngle    // <
	RAngle    // >
	LBracket  // [
	RBracket  // ]
	Comma     // ,
	Semicolon // ;
	Colon     // :
	Equals    // =

	// Keywords
	Namespace
	Include
	CppInclude
	Typedef
	Const
	Enum
	Struct
	Union
	Exception
	Service
	Extends
	Required
	Optional
	Throws
	Void
	Oneway

	// Primitive type keywords
	Bool
	Byte
	I16
	I32
	I64
	Double_
	StringType
	Binary
)

var keywords = map[string]Kind{
	"namespace":   Namespace,
	"include":     Include,
	"cpp_include": CppInclude,
	"typedef":     Typedef,
	"const":       Const,
	"enum":        Enum,
	"struct":      Struct,
	"union":       Union,
	"exception":   Exception,
	"service":     Service,
	"extends":     Extends,
	"required":    Required,
	"optional":    Optional,
	"throws":      Throws,
	"void":        Void,
	"oneway":      Oneway,
	"bool":        Bool,
	"byte":        Byte,
	"i16":         I16,
	"i32":         I32,
	"i64":         I64,
	"double":      Double_,
	"string":      StringType,
	"binary":      Binary,
}

// LookupIdent classifies s as a keyword Kind, or Ident if it is not one.
func LookupIdent(s string) Kind {
	if k, ok := keywords[s]; ok {
		return k
	}
	return Ident
}

// IsPrimitiveType reports whether k is one of the primitive type keywords.
func IsPrimitiveType(k Kind) bool {
	switch k {
	case Bool, Byte, I16, I32, I64, Double_, StringType, Binary:
		return true
	}
	return false
}

// Position is a 1-based line/column location within a source file.
type Position struct {
	Offset int // byte offset from start of file
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a single lexeme with its source position.
type Token struct {
	Kind Kind
	Text string
	Pos  Position
}

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Ident:
		return "identifier"
	case Int:
		return "integer literal"
	case Double:
		return "floating literal"
	case String:
		return "string literal"
	case LBrace:
		return "'{'"
	case RBrace:
		return "'}'"
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case LAngle:
		return "'<'"
	case RAngle:
		return "'>'"
	case LBracket:
		return "'['"
	case RBracket:
		return "']'"
	case Comma:
		return "','"
	case Semicolon:
		return "';'"
	case Colon:
		return "':'"
	case Equals:
		return "'='"
	default:
		for text, kind := range keywords {
			if kind == k {
				return fmt.Sprintf("%q", text)
			}
		}
		return "unknown token"
	}
}
