// Package value implements the dynamic runtime record described in
// spec.md §4.4: a tagged-union Value plus a StructDef-driven field
// map, independent of any host language binding.
package value

import (
	"fmt"

	"github.com/ritksm/thriftpy/schema"
)

// Kind tags the shape of a Value.
type Kind int

const (
	Bool Kind = iota
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
	Struct
)

func (k Kind) String() string {
	switch k {
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
	case Struct:
		return "struct"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is one instance of the dynamic runtime record: a tagged union
// over the primitive/container/struct shapes a Schema can describe.
// Zero value is an unset Bool; callers should always go through the
// New* constructors.
type Value struct {
	kind Kind

	boolVal   bool
	intVal    int64
	floatVal  float64
	strVal    string
	binVal    []byte

	elems []Value // List, Set

	mapKeys   []Value // Map
	mapValues []Value

	structDef *schema.StructDef
	fields    map[int16]Value // Struct: field id -> Value
}

func (v Value) Kind() Kind { return v.kind }

func NewBool(b bool) Value     { return Value{kind: Bool, boolVal: b} }
func NewByte(n int8) Value     { return Value{kind: Byte, intVal: int64(n)} }
func NewI16(n int16) Value     { return Value{kind: I16, intVal: int64(n)} }
func NewI32(n int32) Value     { return Value{kind: I32, intVal: int64(n)} }
func NewI64(n int64) Value     { return Value{kind: I64, intVal: n} }
func NewDouble(f float64) Value { return Value{kind: Double, floatVal: f} }
func NewString(s string) Value { return Value{kind: String, strVal: s} }
func NewBinary(b []byte) Value { return Value{kind: Binary, binVal: b} }

func NewList(elems []Value) Value { return Value{kind: List, elems: elems} }
func NewSet(elems []Value) Value  { return Value{kind: Set, elems: elems} }

// NewMap builds a Map value from parallel key/value slices, preserving
// insertion order (Thrift maps have no canonical ordering requirement,
// but encoders need a stable iteration order within one encode call).
func NewMap(keys, values []Value) Value {
	return Value{kind: Map, mapKeys: keys, mapValues: values}
}

// NewStruct builds a struct/union/exception Value against def. fields
// holds only the present field ids; unset optional fields are simply
// absent from the map, per spec.md §4.4.
func NewStruct(def *schema.StructDef, fields map[int16]Value) Value {
	if fields == nil {
		fields = map[int16]Value{}
	}
	return Value{kind: Struct, structDef: def, fields: fields}
}

func (v Value) Bool() bool       { return v.boolVal }
func (v Value) Byte() int8       { return int8(v.intVal) }
func (v Value) I16() int16       { return int16(v.intVal) }
func (v Value) I32() int32       { return int32(v.intVal) }
func (v Value) I64() int64       { return v.intVal }
func (v Value) Double() float64  { return v.floatVal }
func (v Value) String() string  { return v.strVal }
func (v Value) Binary() []byte   { return v.binVal }
func (v Value) Elems() []Value   { return v.elems }
func (v Value) MapKeys() []Value   { return v.mapKeys }
func (v Value) MapValues() []Value { return v.mapValues }
func (v Value) StructDef() *schema.StructDef { return v.structDef }

// Field looks up a struct field by wire id.
func (v Value) Field(id int16) (Value, bool) {
	fv, ok := v.fields[id]
	return fv, ok
}

// Fields returns the full present-field map. Callers must not mutate
// the returned map; it is shared with the Value.
func (v Value) Fields() map[int16]Value { return v.fields }

// SetField attaches/overwrites a present field on a struct Value.
func (v *Value) SetField(id int16, fv Value) {
	if v.fields == nil {
		v.fields = map[int16]Value{}
	}
	v.fields[id] = fv
}

// Equal reports deep structural equality, used by the round-trip
// testable property in spec.md §8: decode(encode(v)) == v.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Bool:
		return a.boolVal == b.boolVal
	case Byte, I16, I32, I64:
		return a.intVal == b.intVal
	case Double:
		return a.floatVal == b.floatVal
	case String:
		return a.strVal == b.strVal
	case Binary:
		if len(a.binVal) != len(b.binVal) {
			return false
		}
		for i := range a.binVal {
			if a.binVal[i] != b.binVal[i] {
				return false
			}
		}
		return true
	case List, Set:
		if len(a.elems) != len(b.elems) {
			return false
		}
		for i := range a.elems {
			if !Equal(a.elems[i], b.elems[i]) {
				return false
			}
		}
		return true
	case Map:
		if len(a.mapKeys) != len(b.mapKeys) {
			return false
		}
		for i := range a.mapKeys {
			if !Equal(a.mapKeys[i], b.mapKeys[i]) || !Equal(a.mapValues[i], b.mapValues[i]) {
				return false
			}
		}
		return true
	case Struct:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for id, fv := range a.fields {
			ov, ok := b.fields[id]
			if !ok || !Equal(fv, ov) {
				return false
			}
		}
		return true
	}
	return false
}

// Adapter lets a statically-typed host project Values onto its own
// record types and back, per spec.md §4.4/§9: "the protocol layer
// interacts only with the abstract Value surface plus the StructDef —
// it never depends on a specific host binding."
type Adapter interface {
	// ToValue projects a host record into a dynamic Value against def.
	ToValue(def *schema.StructDef, host any) (Value, error)
	// FromValue projects a dynamic Value back into a host record of
	// the kind the adapter was constructed for.
	FromValue(def *schema.StructDef, v Value) (any, error)
}
