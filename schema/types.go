// Package schema implements the immutable runtime type model of
// spec.md §3 and the Resolver/Loader of spec.md §4.3: it turns a tree
// of parsed .thrift documents into a closed, read-only Schema that the
// value, protocol, and rpc packages consult by reference.
package schema

import "fmt"

// Category tags the shape of a TypeRef, per spec.md §3.
type Category int

const (
	Bool Category = iota
	Byte
	I16
	I32
	I64
	Double
	String
	Binary
	List
	Set
	Map
	Enum
	Struct
	Union
	Exception
	Typedef
)

func (c Category) String() string {
	switch c {
	case Bool:
		return "bool"
	case Byte:
		return "byte"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case Double:
		return "double"
	case String:
		return "string"
	case Binary:
		return "binary"
	case List:
		return "list"
	case Set:
		return "set"
	case Map:
		return "map"
	case Enum:
		return "enum"
	case Struct:
		return "struct"
	case Union:
		return "union"
	case Exception:
		return "exception"
	case Typedef:
		return "typedef"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// IsPrimitive reports whether c is one of the scalar wire types.
func (c Category) IsPrimitive() bool {
	switch c {
	case Bool, Byte, I16, I32, I64, Double, String, Binary:
		return true
	}
	return false
}

// IsStructLike reports whether c is struct, union, or exception.
func (c Category) IsStructLike() bool {
	return c == Struct || c == Union || c == Exception
}

// TypeRef is a reference to a concrete or named type, per spec.md §3's
// TypeRef entity. Named references (struct/enum/typedef) are
// non-owning: they point at nodes held by the Schema's type registry.
type TypeRef struct {
	Category Category

	// Elem is set for List and Set.
	Elem *TypeRef
	// Key/Value are set for Map.
	Key   *TypeRef
	Value *TypeRef

	// Name is the fully-qualified name backing Struct/Union/Exception/
	// Enum/Typedef references.
	Name string

	structDef *StructDef
	enumDef   *EnumDef
	typedef   *TypedefDef
}

// StructDef returns the referenced struct/union/exception definition,
// or nil if this TypeRef does not refer to one (chasing typedefs).
func (t *TypeRef) StructDef() *StructDef {
	u := t.Underlying()
	return u.structDef
}

// EnumDef returns the referenced enum definition, or nil.
func (t *TypeRef) EnumDef() *EnumDef {
	u := t.Underlying()
	return u.enumDef
}

// Underlying chases a Typedef category to the aliased TypeRef,
// transparently, per spec.md §4.3 point 3 and §9. Non-typedef
// TypeRefs return themselves.
func (t *TypeRef) Underlying() *TypeRef {
	for t != nil && t.Category == Typedef && t.typedef != nil {
		t = t.typedef.Type
	}
	return t
}

// Requiredness is a FieldDef's presence contract, per spec.md §3.
type Requiredness int

const (
	DefaultRequiredness Requiredness = iota
	Required
	Optional
)

func (r Requiredness) String() string {
	switch r {
	case Required:
		return "required"
	case Optional:
		return "optional"
	default:
		return "default"
	}
}

// ConstKind tags the shape of an evaluated constant expression.
type ConstKind int

const (
	ConstBool ConstKind = iota
	ConstInt
	ConstDouble
	ConstString
	ConstBinary
	ConstList
	ConstMap
	ConstEnum
)

// ConstValue is a fully resolved constant expression: a literal
// checked and, where necessary (enum identifiers), looked up against
// its declared TypeRef. Used for FieldDef defaults and ConstDef
// values.
type ConstValue struct {
	Kind ConstKind

	Bool   bool
	Int    int64
	Double float64
	Str    string
	Binary []byte

	List      []ConstValue
	MapKeys   []ConstValue
	MapValues []ConstValue

	// EnumType/EnumSymbol/EnumValue are set when Kind == ConstEnum.
	EnumType   string
	EnumSymbol string
	EnumValue  int32
}

// FieldDef is one member of a StructDef, or one entry of a method's
// synthesized args/throws struct, per spec.md §3.
type FieldDef struct {
	ID           int16
	Name         string
	Requiredness Requiredness
	Type         *TypeRef
	Default      *ConstValue // nil when absent
}

// StructKind distinguishes struct/union/exception StructDefs.
type StructKind int

const (
	KindStruct StructKind = iota
	KindUnion
	KindException
)

func (k StructKind) String() string {
	switch k {
	case KindUnion:
		return "union"
	case KindException:
		return "exception"
	default:
		return "struct"
	}
}

// StructDef is a struct, union, or exception declaration, per
// spec.md §3. Name is fully qualified as "<module>.<Name>".
type StructDef struct {
	Name   string
	Kind   StructKind
	Fields []*FieldDef

	byID map[int16]*FieldDef
}

// FieldByID looks up a field by its wire id.
func (s *StructDef) FieldByID(id int16) (*FieldDef, bool) {
	f, ok := s.byID[id]
	return f, ok
}

// NewStructDef builds a StructDef from an explicit field list. Used
// outside the Resolver to synthesize envelope structs that never
// appear in IDL source, e.g. the rpc package's per-method reply
// envelope (success field id 0 plus the method's declared throws
// fields).
func NewStructDef(name string, kind StructKind, fields []*FieldDef) *StructDef {
	sd := &StructDef{Name: name, Kind: kind, Fields: fields}
	sd.byID = make(map[int16]*FieldDef, len(fields))
	for _, f := range fields {
		sd.byID[f.ID] = f
	}
	return sd
}

// FieldByName looks up a field by its declared name.
func (s *StructDef) FieldByName(name string) (*FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// EnumValuePair is one (symbol, value) member of an EnumDef.
type EnumValuePair struct {
	Symbol string
	Value  int32
}

// EnumDef is an enumeration declaration, per spec.md §3. Values are
// unique; Values[0] is the default symbol.
type EnumDef struct {
	Name   string
	Values []EnumValuePair

	byName  map[string]int32
	byValue map[int32]string
}

// ValueOf resolves a symbol to its numeric value.
func (e *EnumDef) ValueOf(symbol string) (int32, bool) {
	v, ok := e.byName[symbol]
	return v, ok
}

// SymbolOf resolves a numeric value back to its symbol, if any enum
// member declares it.
func (e *EnumDef) SymbolOf(value int32) (string, bool) {
	s, ok := e.byValue[value]
	return s, ok
}

// Default returns the default member: the first declared symbol, per
// spec.md §3.
func (e *EnumDef) Default() EnumValuePair {
	if len(e.Values) == 0 {
		return EnumValuePair{}
	}
	return e.Values[0]
}

// TypedefDef is a transparent type alias, per spec.md §3.
type TypedefDef struct {
	Name string
	Type *TypeRef
}

// ConstDef is a named constant, per spec.md §3.
type ConstDef struct {
	Name  string
	Type  *TypeRef
	Value ConstValue
}

// MethodDef is one RPC method of a ServiceDef, per spec.md §3. Args
// and Throws are synthesized StructDefs carrying field ids, as called
// for in spec.md §3's FieldDef row and §9.
type MethodDef struct {
	Name       string
	ReturnType *TypeRef // nil when Void
	Void       bool
	Oneway     bool
	Args       *StructDef
	Throws     *StructDef
}

// ServiceDef is a service declaration, per spec.md §3. Parent is the
// single-inheritance chain's immediate ancestor, or nil.
type ServiceDef struct {
	Name    string
	Parent  *ServiceDef
	Methods []*MethodDef
}

// AllMethods returns this service's own methods plus all inherited
// ones, own methods first, closest ancestor next.
func (s *ServiceDef) AllMethods() []*MethodDef {
	var out []*MethodDef
	for svc := s; svc != nil; svc = svc.Parent {
		out = append(out, svc.Methods...)
	}
	return out
}

// Method looks up a method by name across the inheritance chain.
func (s *ServiceDef) Method(name string) (*MethodDef, bool) {
	for svc := s; svc != nil; svc = svc.Parent {
		for _, m := range svc.Methods {
			if m.Name == name {
				return m, true
			}
		}
	}
	return nil, false
}

// Module is one parsed .thrift file, per spec.md §3.
type Module struct {
	Name     string // base filename without extension
	Path     string // resolved absolute path, or an opaque name for in-memory sources
	Includes []*Module
}
