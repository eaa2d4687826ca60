package schema

import (
	"fmt"

	"github.com/ritksm/thriftpy/idl/ast"
)

// evalLiteral checks a parsed literal against its declared TypeRef and
// produces a ConstValue, per spec.md §3/§4.3. Enum identifiers are
// looked up against the EnumDef; list/map/struct literals recurse
// element-wise.
func (r *resolution) evalLiteral(mod *Module, typ *TypeRef, lit *ast.Literal) (ConstValue, error) {
	target := typ.Underlying()

	switch target.Category {
	case Bool:
		switch lit.Kind {
		case ast.LitInt:
			return ConstValue{Kind: ConstBool, Bool: lit.Int != 0}, nil
		case ast.LitIdent:
			switch lit.Ident {
			case "true":
				return ConstValue{Kind: ConstBool, Bool: true}, nil
			case "false":
				return ConstValue{Kind: ConstBool, Bool: false}, nil
			}
		}
		return ConstValue{}, constMismatch(mod, lit, "bool")

	case Byte, I16, I32, I64:
		if lit.Kind != ast.LitInt {
			return ConstValue{}, constMismatch(mod, lit, target.Category.String())
		}
		return ConstValue{Kind: ConstInt, Int: lit.Int}, nil

	case Double:
		switch lit.Kind {
		case ast.LitDouble:
			return ConstValue{Kind: ConstDouble, Double: lit.Double}, nil
		case ast.LitInt:
			return ConstValue{Kind: ConstDouble, Double: float64(lit.Int)}, nil
		}
		return ConstValue{}, constMismatch(mod, lit, "double")

	case String:
		if lit.Kind != ast.LitString {
			return ConstValue{}, constMismatch(mod, lit, "string")
		}
		return ConstValue{Kind: ConstString, Str: lit.Str}, nil

	case Binary:
		if lit.Kind != ast.LitString {
			return ConstValue{}, constMismatch(mod, lit, "binary")
		}
		return ConstValue{Kind: ConstBinary, Binary: []byte(lit.Str)}, nil

	case Enum:
		if lit.Kind != ast.LitIdent {
			return ConstValue{}, constMismatch(mod, lit, "enum "+target.Name)
		}
		ed := target.EnumDef()
		symbol := lit.Ident
		if idx := lastDot(symbol); idx >= 0 {
			symbol = symbol[idx+1:]
		}
		v, ok := ed.ValueOf(symbol)
		if !ok {
			return ConstValue{}, &ResolveError{Kind: ErrUnknownEnumValue, Module: mod.Name, Pos: lit.Pos, Message: fmt.Sprintf("%q is not a member of enum %s", symbol, target.Name)}
		}
		return ConstValue{Kind: ConstEnum, EnumType: target.Name, EnumSymbol: symbol, EnumValue: v}, nil

	case List, Set:
		if lit.Kind != ast.LitList {
			return ConstValue{}, constMismatch(mod, lit, target.Category.String())
		}
		out := make([]ConstValue, 0, len(lit.List))
		for _, item := range lit.List {
			cv, err := r.evalLiteral(mod, target.Elem, item)
			if err != nil {
				return ConstValue{}, err
			}
			out = append(out, cv)
		}
		return ConstValue{Kind: ConstList, List: out}, nil

	case Map:
		if lit.Kind != ast.LitMap {
			return ConstValue{}, constMismatch(mod, lit, "map")
		}
		keys := make([]ConstValue, 0, len(lit.MapKeys))
		values := make([]ConstValue, 0, len(lit.MapValues))
		for i, k := range lit.MapKeys {
			kv, err := r.evalLiteral(mod, target.Key, k)
			if err != nil {
				return ConstValue{}, err
			}
			vv, err := r.evalLiteral(mod, target.Value, lit.MapValues[i])
			if err != nil {
				return ConstValue{}, err
			}
			keys = append(keys, kv)
			values = append(values, vv)
		}
		return ConstValue{Kind: ConstMap, MapKeys: keys, MapValues: values}, nil

	case Struct, Union, Exception:
		// Struct-shaped constants are written as map literals keyed by
		// field name, per the Apache Thrift const grammar.
		if lit.Kind != ast.LitMap {
			return ConstValue{}, constMismatch(mod, lit, target.Category.String())
		}
		sd := target.StructDef()
		keys := make([]ConstValue, 0, len(lit.MapKeys))
		values := make([]ConstValue, 0, len(lit.MapValues))
		for i, k := range lit.MapKeys {
			if k.Kind != ast.LitString && k.Kind != ast.LitIdent {
				return ConstValue{}, constMismatch(mod, k, "field name")
			}
			fieldName := k.Str
			if k.Kind == ast.LitIdent {
				fieldName = k.Ident
			}
			fd, ok := sd.FieldByName(fieldName)
			if !ok {
				return ConstValue{}, &ResolveError{Kind: ErrConstMismatch, Module: mod.Name, Pos: k.Pos, Message: fmt.Sprintf("%s has no field %q", sd.Name, fieldName)}
			}
			vv, err := r.evalLiteral(mod, fd.Type, lit.MapValues[i])
			if err != nil {
				return ConstValue{}, err
			}
			keys = append(keys, ConstValue{Kind: ConstString, Str: fieldName})
			values = append(values, vv)
		}
		return ConstValue{Kind: ConstMap, MapKeys: keys, MapValues: values}, nil
	}

	return ConstValue{}, constMismatch(mod, lit, target.Category.String())
}

func constMismatch(mod *Module, lit *ast.Literal, wantType string) error {
	return &ResolveError{Kind: ErrConstMismatch, Module: mod.Name, Pos: lit.Pos, Message: fmt.Sprintf("literal does not match declared type %s", wantType)}
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}
