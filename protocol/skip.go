package protocol

// skip consumes and discards exactly one value of wtype from p,
// recursing into structs/containers, per spec.md §4.6's unknown-field
// skip invariant. Shared by all three wire protocols since the
// recursive shape is identical; only the primitive Read* calls differ
// per protocol.
func skip(p Protocol, wtype TType, depth, maxDepth int) error {
	if depth > maxDepth {
		return newError(SizeLimit, "recursion depth exceeds configured limit")
	}

	switch wtype {
	case Bool:
		_, err := p.ReadBool()
		return err
	case Byte:
		_, err := p.ReadByte()
		return err
	case I16:
		_, err := p.ReadI16()
		return err
	case I32:
		_, err := p.ReadI32()
		return err
	case I64:
		_, err := p.ReadI64()
		return err
	case Double:
		_, err := p.ReadDouble()
		return err
	case String:
		_, err := p.ReadString()
		return err
	case Struct:
		if _, err := p.ReadStructBegin(); err != nil {
			return err
		}
		for {
			_, ft, _, err := p.ReadFieldBegin()
			if err != nil {
				return err
			}
			if ft == Stop {
				break
			}
			if err := skip(p, ft, depth+1, maxDepth); err != nil {
				return err
			}
			if err := p.ReadFieldEnd(); err != nil {
				return err
			}
		}
		return p.ReadStructEnd()
	case Map:
		kt, vt, size, err := p.ReadMapBegin()
		if err != nil {
			return err
		}
		for i := 0; i < size; i++ {
			if err := skip(p, kt, depth+1, maxDepth); err != nil {
				return err
			}
			if err := skip(p, vt, depth+1, maxDepth); err != nil {
				return err
			}
		}
		return p.ReadMapEnd()
	case List:
		et, size, err := p.ReadListBegin()
		if err != nil {
			return err
		}
		for i := 0; i < size; i++ {
			if err := skip(p, et, depth+1, maxDepth); err != nil {
				return err
			}
		}
		return p.ReadListEnd()
	case Set:
		et, size, err := p.ReadSetBegin()
		if err != nil {
			return err
		}
		for i := 0; i < size; i++ {
			if err := skip(p, et, depth+1, maxDepth); err != nil {
				return err
			}
		}
		return p.ReadSetEnd()
	}

	return newError(UnexpectedType, "cannot skip unknown wire type")
}
