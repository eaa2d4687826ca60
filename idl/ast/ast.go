// Package ast defines the syntactic tree produced by idl/parser, per
// spec.md §4.2. Nodes carry only syntax; name resolution and type
// checking happen later in the schema package's Resolver.
package ast

import "github.com/ritksm/thriftpy/idl/token"

// Document is the parsed form of a single .thrift file.
type Document struct {
	Name       string // base filename, without extension
	Path       string // source path as given to the parser
	Namespaces []Namespace
	Includes   []Include
	Typedefs   []Typedef
	Consts     []Const
	Enums      []Enum
	Structs    []StructLike // kind == "struct"
	Unions     []StructLike // kind == "union"
	Exceptions []StructLike // kind == "exception"
	Services   []Service
}

// Namespace is `namespace <scope> <name>` — parsed and stored, but
// without runtime effect in this core (spec.md §6).
type Namespace struct {
	Scope string
	Name  string
}

// Include is `include "path"` or `cpp_include "path"` (the latter is
// parsed and discarded per spec.md §6).
type Include struct {
	Path      string
	CppOnly   bool
	Pos       token.Position
}

// Type is a syntactic type reference: either a primitive keyword, a
// (possibly dotted) name referring to an enum/struct/typedef/service,
// or a parameterized list/set/map.
type Type struct {
	Kind  token.Kind // token.Bool .. token.Binary for primitives, 0 otherwise
	Name      string // set when this is a named reference (possibly "module.Name")
	Container string // "list" or "set" when Elem is set; "" otherwise
	Elem      *Type  // list<Elem>, set<Elem>
	Key       *Type  // map<Key,Value>
	Value     *Type  // map<Key,Value>
	Pos       token.Position
}

// IsContainer reports whether t is list/set/map.
func (t *Type) IsContainer() bool {
	return t != nil && (t.Elem != nil || t.Key != nil)
}

// Literal is a constant expression: integer, double, string,
// identifier (enum member reference), list literal, or map literal.
type Literal struct {
	Kind   LiteralKind
	Int    int64
	Double float64
	Str    string
	Ident  string
	List   []*Literal
	// MapKeys/MapValues are parallel slices (order-preserving) for map
	// literals `{ k: v, ... }`.
	MapKeys   []*Literal
	MapValues []*Literal
	Pos       token.Position
}

type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitDouble
	LitString
	LitIdent
	LitList
	LitMap
)

// Typedef is `typedef <Type> <Alias>`.
type Typedef struct {
	Type  *Type
	Alias string
	Pos   token.Position
}

// Const is `const <Type> <Name> = <Literal>`.
type Const struct {
	Type  *Type
	Name  string
	Value *Literal
	Pos   token.Position
}

// EnumValue is one `<Symbol> [= <N>]` member of an enum.
type EnumValue struct {
	Name       string
	Value      int64
	HasValue   bool // explicit value given in source
	Pos        token.Position
}

// Enum is `enum <Name> { <EnumValue>, ... }`.
type Enum struct {
	Name   string
	Values []EnumValue
	Pos    token.Position
}

// Field is one member of a struct/union/exception, or one argument/
// throws entry of a method.
type Field struct {
	ID          int32
	HasID       bool // false when the `N:` prefix was omitted in source
	Requiredness Requiredness
	Type        *Type
	Name        string
	Default     *Literal // nil when absent
	Pos         token.Position
}

type Requiredness int

const (
	Default Requiredness = iota
	Required
	Optional
)

// StructLike is a struct, union, or exception declaration — they share
// grammar and field-list semantics (spec.md §3 StructDef).
type StructLike struct {
	Kind   string // "struct", "union", "exception"
	Name   string
	Fields []Field
	Pos    token.Position
}

// Function is one method of a service.
type Function struct {
	Name       string
	Oneway     bool
	Void       bool
	ReturnType *Type // nil when Void
	Args       []Field
	Throws     []Field
	Pos        token.Position
}

// Service is `service <Name> [extends <QName>] { <Function> ... }`.
type Service struct {
	Name     string
	Extends  string // qualified name of parent service, or ""
	Functions []Function
	Pos      token.Position
}
