package value

import "github.com/ritksm/thriftpy/schema"

// FromConst projects a resolved schema.ConstValue into a dynamic
// Value, typed by typ. Used to materialize FieldDef.Default and
// ConstDef.Value for host constructors.
func FromConst(typ *schema.TypeRef, cv schema.ConstValue) Value {
	u := typ.Underlying()

	switch cv.Kind {
	case schema.ConstBool:
		return NewBool(cv.Bool)
	case schema.ConstInt:
		switch u.Category {
		case schema.Byte:
			return NewByte(int8(cv.Int))
		case schema.I16:
			return NewI16(int16(cv.Int))
		case schema.I32:
			return NewI32(int32(cv.Int))
		default:
			return NewI64(cv.Int)
		}
	case schema.ConstDouble:
		return NewDouble(cv.Double)
	case schema.ConstString:
		return NewString(cv.Str)
	case schema.ConstBinary:
		return NewBinary(cv.Binary)
	case schema.ConstEnum:
		return NewI32(cv.EnumValue)
	case schema.ConstList:
		elems := make([]Value, len(cv.List))
		for i, item := range cv.List {
			elems[i] = FromConst(u.Elem, item)
		}
		if u.Category == schema.Set {
			return NewSet(elems)
		}
		return NewList(elems)
	case schema.ConstMap:
		keys := make([]Value, len(cv.MapKeys))
		values := make([]Value, len(cv.MapValues))
		for i := range cv.MapKeys {
			keys[i] = FromConst(u.Key, cv.MapKeys[i])
			values[i] = FromConst(u.Value, cv.MapValues[i])
		}
		return NewMap(keys, values)
	}
	return Value{}
}
