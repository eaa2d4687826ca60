package protocol

import (
	"encoding/binary"
	"math"

	"github.com/ritksm/thriftpy/transport"
)

const (
	binaryVersion1  = 0x80010000
	binaryVersionMask = 0xffff0000
	binaryTypeMask  = 0x000000ff
)

// Binary implements the spec.md §4.6 binary protocol: big-endian
// fixed-width integers, a version-1 message header, and
// length-prefixed strings/binary/containers.
type Binary struct {
	t      transport.Transport
	cfg    Config
}

// NewBinary wraps t with the default Config.
func NewBinary(t transport.Transport) *Binary {
	return NewBinaryConfig(t, DefaultConfig())
}

// NewBinaryConfig wraps t with an explicit Config.
func NewBinaryConfig(t transport.Transport, cfg Config) *Binary {
	return &Binary{t: t, cfg: cfg}
}

func (p *Binary) WriteMessageBegin(name string, mtype MessageType, seqid int32) error {
	if p.cfg.StrictWrite {
		if err := p.writeI32(int32(binaryVersion1 | uint32(mtype))); err != nil {
			return err
		}
		if err := p.WriteString(name); err != nil {
			return err
		}
		return p.writeI32(seqid)
	}
	if err := p.WriteString(name); err != nil {
		return err
	}
	if err := p.WriteByte(int8(mtype)); err != nil {
		return err
	}
	return p.writeI32(seqid)
}

func (p *Binary) WriteMessageEnd() error { return nil }

func (p *Binary) WriteStructBegin(name string) error { return nil }
func (p *Binary) WriteStructEnd() error               { return nil }

func (p *Binary) WriteFieldBegin(name string, wtype TType, id int16) error {
	if err := p.WriteByte(int8(wtype)); err != nil {
		return err
	}
	return p.WriteI16(id)
}

func (p *Binary) WriteFieldEnd() error { return nil }

func (p *Binary) WriteFieldStop() error { return p.WriteByte(int8(Stop)) }

func (p *Binary) WriteMapBegin(keyType, valType TType, size int) error {
	if err := p.WriteByte(int8(keyType)); err != nil {
		return err
	}
	if err := p.WriteByte(int8(valType)); err != nil {
		return err
	}
	return p.writeI32(int32(size))
}
func (p *Binary) WriteMapEnd() error { return nil }

func (p *Binary) WriteListBegin(elemType TType, size int) error {
	if err := p.WriteByte(int8(elemType)); err != nil {
		return err
	}
	return p.writeI32(int32(size))
}
func (p *Binary) WriteListEnd() error { return nil }

func (p *Binary) WriteSetBegin(elemType TType, size int) error {
	return p.WriteListBegin(elemType, size)
}
func (p *Binary) WriteSetEnd() error { return nil }

func (p *Binary) WriteBool(v bool) error {
	if v {
		return p.WriteByte(1)
	}
	return p.WriteByte(0)
}

func (p *Binary) WriteByte(v int8) error {
	return p.checkWrite(p.t.Write([]byte{byte(v)}))
}

func (p *Binary) WriteI16(v int16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(v))
	return p.checkWrite(p.t.Write(buf[:]))
}

func (p *Binary) writeI32(v int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	return p.checkWrite(p.t.Write(buf[:]))
}

func (p *Binary) WriteI32(v int32) error { return p.writeI32(v) }

func (p *Binary) WriteI64(v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return p.checkWrite(p.t.Write(buf[:]))
}

func (p *Binary) WriteDouble(v float64) error {
	return p.WriteI64(int64(math.Float64bits(v)))
}

func (p *Binary) WriteString(v string) error {
	if len(v) > p.cfg.StringLengthLimit {
		return newError(SizeLimit, "string length exceeds configured limit")
	}
	if err := p.writeI32(int32(len(v))); err != nil {
		return err
	}
	return p.checkWrite(p.t.Write([]byte(v)))
}

func (p *Binary) WriteBinary(v []byte) error {
	if len(v) > p.cfg.StringLengthLimit {
		return newError(SizeLimit, "binary length exceeds configured limit")
	}
	if err := p.writeI32(int32(len(v))); err != nil {
		return err
	}
	return p.checkWrite(p.t.Write(v))
}

func (p *Binary) checkWrite(err error) error {
	if err != nil {
		return wrapTransportError(err)
	}
	return nil
}

func (p *Binary) ReadMessageBegin() (string, MessageType, int32, error) {
	first, err := p.readI32()
	if err != nil {
		return "", 0, 0, err
	}
	u := uint32(first)
	if u&0x80000000 != 0 {
		if u&binaryVersionMask != binaryVersion1 {
			return "", 0, 0, newError(BadVersion, "unexpected binary protocol version")
		}
		mtype := MessageType(u & binaryTypeMask)
		name, err := p.ReadString()
		if err != nil {
			return "", 0, 0, err
		}
		seqid, err := p.readI32()
		if err != nil {
			return "", 0, 0, err
		}
		return name, mtype, seqid, nil
	}

	if p.cfg.StrictRead {
		return "", 0, 0, newError(BadVersion, "missing required version prefix")
	}
	// Old-style unversioned header: `first` was actually the name length.
	if first < 0 || int(first) > p.cfg.StringLengthLimit {
		return "", 0, 0, newError(SizeLimit, "message name length exceeds configured limit")
	}
	nameBytes := make([]byte, first)
	if err := p.checkRead(p.t.Read(nameBytes)); err != nil {
		return "", 0, 0, err
	}
	mb, err := p.ReadByte()
	if err != nil {
		return "", 0, 0, err
	}
	seqid, err := p.readI32()
	if err != nil {
		return "", 0, 0, err
	}
	return string(nameBytes), MessageType(mb), seqid, nil
}

func (p *Binary) ReadMessageEnd() error { return nil }

func (p *Binary) ReadStructBegin() (string, error) { return "", nil }
func (p *Binary) ReadStructEnd() error              { return nil }

func (p *Binary) ReadFieldBegin() (string, TType, int16, error) {
	wt, err := p.ReadByte()
	if err != nil {
		return "", 0, 0, err
	}
	if TType(wt) == Stop {
		return "", Stop, 0, nil
	}
	id, err := p.ReadI16()
	if err != nil {
		return "", 0, 0, err
	}
	return "", TType(wt), id, nil
}

func (p *Binary) ReadFieldEnd() error { return nil }

func (p *Binary) ReadMapBegin() (TType, TType, int, error) {
	kt, err := p.ReadByte()
	if err != nil {
		return 0, 0, 0, err
	}
	vt, err := p.ReadByte()
	if err != nil {
		return 0, 0, 0, err
	}
	size, err := p.readSize()
	if err != nil {
		return 0, 0, 0, err
	}
	return TType(kt), TType(vt), size, nil
}
func (p *Binary) ReadMapEnd() error { return nil }

func (p *Binary) ReadListBegin() (TType, int, error) {
	et, err := p.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	size, err := p.readSize()
	if err != nil {
		return 0, 0, err
	}
	return TType(et), size, nil
}
func (p *Binary) ReadListEnd() error { return nil }

func (p *Binary) ReadSetBegin() (TType, int, error) { return p.ReadListBegin() }
func (p *Binary) ReadSetEnd() error                  { return nil }

func (p *Binary) ReadBool() (bool, error) {
	b, err := p.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (p *Binary) ReadByte() (int8, error) {
	var buf [1]byte
	if err := p.checkRead(p.t.Read(buf[:])); err != nil {
		return 0, err
	}
	return int8(buf[0]), nil
}

func (p *Binary) ReadI16() (int16, error) {
	var buf [2]byte
	if err := p.checkRead(p.t.Read(buf[:])); err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(buf[:])), nil
}

func (p *Binary) readI32() (int32, error) {
	var buf [4]byte
	if err := p.checkRead(p.t.Read(buf[:])); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

func (p *Binary) ReadI32() (int32, error) { return p.readI32() }

func (p *Binary) ReadI64() (int64, error) {
	var buf [8]byte
	if err := p.checkRead(p.t.Read(buf[:])); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

func (p *Binary) ReadDouble() (float64, error) {
	v, err := p.ReadI64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(uint64(v)), nil
}

func (p *Binary) ReadString() (string, error) {
	b, err := p.readLengthPrefixed()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (p *Binary) ReadBinary() ([]byte, error) {
	return p.readLengthPrefixed()
}

func (p *Binary) readLengthPrefixed() ([]byte, error) {
	n, err := p.readI32()
	if err != nil {
		return nil, err
	}
	if n < 0 || int(n) > p.cfg.StringLengthLimit {
		return nil, newError(SizeLimit, "string/binary length exceeds configured limit")
	}
	buf := make([]byte, n)
	if n > 0 {
		if err := p.checkRead(p.t.Read(buf)); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (p *Binary) readSize() (int, error) {
	n, err := p.readI32()
	if err != nil {
		return 0, err
	}
	if n < 0 || int(n) > p.cfg.ContainerLengthLimit {
		return 0, newError(SizeLimit, "container size exceeds configured limit")
	}
	return int(n), nil
}

func (p *Binary) checkRead(err error) error {
	if err != nil {
		if te, ok := err.(*transport.Error); ok {
			return wrapTransportError(te)
		}
		return wrapTransportError(err)
	}
	return nil
}

func (p *Binary) Skip(wtype TType) error {
	return skip(p, wtype, 0, p.cfg.RecursionDepthLimit)
}
