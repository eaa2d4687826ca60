package protocol

import (
	"fmt"

	"github.com/ritksm/thriftpy/schema"
	"github.com/ritksm/thriftpy/value"
)

// wireType maps a resolved TypeRef to the wire type tag used to frame
// it, chasing typedefs and projecting enums onto I32, per spec.md §3's
// Category table and §4.6's wire type set.
func wireType(typ *schema.TypeRef) TType {
	switch typ.Underlying().Category {
	case schema.Bool:
		return Bool
	case schema.Byte:
		return Byte
	case schema.I16:
		return I16
	case schema.I32:
		return I32
	case schema.I64:
		return I64
	case schema.Double:
		return Double
	case schema.String, schema.Binary:
		return String
	case schema.Enum:
		return I32
	case schema.List:
		return List
	case schema.Set:
		return Set
	case schema.Map:
		return Map
	case schema.Struct, schema.Union, schema.Exception:
		return Struct
	}
	return Stop
}

// WriteValue encodes v, typed by typ, as a sequence of primitive Write
// calls against p.
func WriteValue(p Protocol, typ *schema.TypeRef, v value.Value) error {
	u := typ.Underlying()
	switch u.Category {
	case schema.Bool:
		return p.WriteBool(v.Bool())
	case schema.Byte:
		return p.WriteByte(v.Byte())
	case schema.I16:
		return p.WriteI16(v.I16())
	case schema.I32:
		return p.WriteI32(v.I32())
	case schema.I64:
		return p.WriteI64(v.I64())
	case schema.Double:
		return p.WriteDouble(v.Double())
	case schema.String:
		return p.WriteString(v.String())
	case schema.Binary:
		return p.WriteBinary(v.Binary())
	case schema.Enum:
		return p.WriteI32(v.I32())
	case schema.List:
		elems := v.Elems()
		if err := p.WriteListBegin(wireType(u.Elem), len(elems)); err != nil {
			return err
		}
		for _, e := range elems {
			if err := WriteValue(p, u.Elem, e); err != nil {
				return err
			}
		}
		return p.WriteListEnd()
	case schema.Set:
		elems := v.Elems()
		if err := p.WriteSetBegin(wireType(u.Elem), len(elems)); err != nil {
			return err
		}
		for _, e := range elems {
			if err := WriteValue(p, u.Elem, e); err != nil {
				return err
			}
		}
		return p.WriteSetEnd()
	case schema.Map:
		keys, vals := v.MapKeys(), v.MapValues()
		if err := p.WriteMapBegin(wireType(u.Key), wireType(u.Value), len(keys)); err != nil {
			return err
		}
		for i := range keys {
			if err := WriteValue(p, u.Key, keys[i]); err != nil {
				return err
			}
			if err := WriteValue(p, u.Value, vals[i]); err != nil {
				return err
			}
		}
		return p.WriteMapEnd()
	case schema.Struct, schema.Union, schema.Exception:
		return WriteStruct(p, u.StructDef(), v)
	}
	return fmt.Errorf("protocol: cannot encode category %v", u.Category)
}

// ReadValue decodes one value of typ from p.
func ReadValue(p Protocol, typ *schema.TypeRef) (value.Value, error) {
	u := typ.Underlying()
	switch u.Category {
	case schema.Bool:
		b, err := p.ReadBool()
		return value.NewBool(b), err
	case schema.Byte:
		b, err := p.ReadByte()
		return value.NewByte(b), err
	case schema.I16:
		n, err := p.ReadI16()
		return value.NewI16(n), err
	case schema.I32:
		n, err := p.ReadI32()
		return value.NewI32(n), err
	case schema.I64:
		n, err := p.ReadI64()
		return value.NewI64(n), err
	case schema.Double:
		f, err := p.ReadDouble()
		return value.NewDouble(f), err
	case schema.String:
		s, err := p.ReadString()
		return value.NewString(s), err
	case schema.Binary:
		b, err := p.ReadBinary()
		return value.NewBinary(b), err
	case schema.Enum:
		n, err := p.ReadI32()
		return value.NewI32(n), err
	case schema.List:
		et, size, err := p.ReadListBegin()
		if err != nil {
			return value.Value{}, err
		}
		elems := make([]value.Value, 0, size)
		for i := 0; i < size; i++ {
			ev, err := readOrSkipElem(p, u.Elem, et)
			if err != nil {
				return value.Value{}, err
			}
			elems = append(elems, ev)
		}
		if err := p.ReadListEnd(); err != nil {
			return value.Value{}, err
		}
		return value.NewList(elems), nil
	case schema.Set:
		et, size, err := p.ReadSetBegin()
		if err != nil {
			return value.Value{}, err
		}
		elems := make([]value.Value, 0, size)
		for i := 0; i < size; i++ {
			ev, err := readOrSkipElem(p, u.Elem, et)
			if err != nil {
				return value.Value{}, err
			}
			elems = append(elems, ev)
		}
		if err := p.ReadSetEnd(); err != nil {
			return value.Value{}, err
		}
		return value.NewSet(elems), nil
	case schema.Map:
		kt, vt, size, err := p.ReadMapBegin()
		if err != nil {
			return value.Value{}, err
		}
		keys := make([]value.Value, 0, size)
		vals := make([]value.Value, 0, size)
		for i := 0; i < size; i++ {
			kv, err := readOrSkipElem(p, u.Key, kt)
			if err != nil {
				return value.Value{}, err
			}
			vv, err := readOrSkipElem(p, u.Value, vt)
			if err != nil {
				return value.Value{}, err
			}
			keys = append(keys, kv)
			vals = append(vals, vv)
		}
		if err := p.ReadMapEnd(); err != nil {
			return value.Value{}, err
		}
		return value.NewMap(keys, vals), nil
	case schema.Struct, schema.Union, schema.Exception:
		return ReadStruct(p, u.StructDef())
	}
	return value.Value{}, fmt.Errorf("protocol: cannot decode category %v", u.Category)
}

// readOrSkipElem reads one container element against its declared
// schema type. If the wire carries a different shape than expected
// (only possible with a stale/forged payload), the element is skipped
// and an unset value.Value{} is substituted, whatever the declared
// kind, rather than desynchronizing the stream.
func readOrSkipElem(p Protocol, typ *schema.TypeRef, wt TType) (value.Value, error) {
	if wireType(typ) != wt {
		if err := p.Skip(wt); err != nil {
			return value.Value{}, err
		}
		return value.Value{}, nil
	}
	return ReadValue(p, typ)
}

// WriteStruct encodes v's present fields against def's field order,
// enforcing that every required field is present.
func WriteStruct(p Protocol, def *schema.StructDef, v value.Value) error {
	if err := p.WriteStructBegin(def.Name); err != nil {
		return err
	}
	for _, f := range def.Fields {
		fv, ok := v.Field(f.ID)
		if !ok {
			if f.Requiredness == schema.Required {
				return requiredFieldMissing(def.Name, f.ID)
			}
			continue
		}
		wt := wireType(f.Type)
		if err := p.WriteFieldBegin(f.Name, wt, f.ID); err != nil {
			return err
		}
		if err := WriteValue(p, f.Type, fv); err != nil {
			return err
		}
		if err := p.WriteFieldEnd(); err != nil {
			return err
		}
	}
	if err := p.WriteFieldStop(); err != nil {
		return err
	}
	return p.WriteStructEnd()
}

// ReadStruct decodes one instance of def from p. Fields absent from
// the wire that the schema declares optional remain absent on the
// returned Value, per spec.md §8's round-trip property; fields the
// wire carries under an id def does not declare are skipped.
func ReadStruct(p Protocol, def *schema.StructDef) (value.Value, error) {
	if _, err := p.ReadStructBegin(); err != nil {
		return value.Value{}, err
	}
	fields := map[int16]value.Value{}
	for {
		_, wt, id, err := p.ReadFieldBegin()
		if err != nil {
			return value.Value{}, err
		}
		if wt == Stop {
			break
		}
		fd, ok := def.FieldByID(id)
		if !ok {
			if err := p.Skip(wt); err != nil {
				return value.Value{}, err
			}
			if err := p.ReadFieldEnd(); err != nil {
				return value.Value{}, err
			}
			continue
		}
		if wireType(fd.Type) != wt {
			if err := p.Skip(wt); err != nil {
				return value.Value{}, err
			}
			if err := p.ReadFieldEnd(); err != nil {
				return value.Value{}, err
			}
			continue
		}
		fv, err := ReadValue(p, fd.Type)
		if err != nil {
			return value.Value{}, err
		}
		fields[id] = fv
		if err := p.ReadFieldEnd(); err != nil {
			return value.Value{}, err
		}
	}
	if err := p.ReadStructEnd(); err != nil {
		return value.Value{}, err
	}
	for _, fd := range def.Fields {
		if fd.Requiredness == schema.Required {
			if _, ok := fields[fd.ID]; !ok {
				return value.Value{}, requiredFieldMissing(def.Name, fd.ID)
			}
		}
	}
	return value.NewStruct(def, fields), nil
}
