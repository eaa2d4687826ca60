package protocol

import (
	"math"

	"github.com/ritksm/thriftpy/transport"
)

// Compact type nibble values, per the Thrift compact protocol spec
// referenced in spec.md §4.6.
type compactType byte

const (
	cBooleanTrue  compactType = 0x01
	cBooleanFalse compactType = 0x02
	cByte         compactType = 0x03
	cI16          compactType = 0x04
	cI32          compactType = 0x05
	cI64          compactType = 0x06
	cDouble       compactType = 0x07
	cBinary       compactType = 0x08
	cList         compactType = 0x09
	cSet          compactType = 0x0A
	cMap          compactType = 0x0B
	cStruct       compactType = 0x0C
)

const (
	compactProtocolID      = 0x82
	compactVersion         = 1
	compactVersionMask     = 0x1f
	compactTypeShiftAmount = 5
	compactTypeMask        = 0xE0
)

func ttypeToCompact(t TType, boolValue bool) compactType {
	switch t {
	case Bool:
		if boolValue {
			return cBooleanTrue
		}
		return cBooleanFalse
	case Byte:
		return cByte
	case I16:
		return cI16
	case I32:
		return cI32
	case I64:
		return cI64
	case Double:
		return cDouble
	case String:
		return cBinary
	case List:
		return cList
	case Set:
		return cSet
	case Map:
		return cMap
	case Struct:
		return cStruct
	}
	return 0
}

func compactToTType(c compactType) TType {
	switch c {
	case cBooleanTrue, cBooleanFalse:
		return Bool
	case cByte:
		return Byte
	case cI16:
		return I16
	case cI32:
		return I32
	case cI64:
		return I64
	case cDouble:
		return Double
	case cBinary:
		return String
	case cList:
		return List
	case cSet:
		return Set
	case cMap:
		return Map
	case cStruct:
		return Struct
	}
	return Stop
}

// Compact implements the Thrift compact protocol referenced in
// spec.md §4.6: varint integers, field-id delta encoding, and
// booleans inlined into the field-type nibble.
type Compact struct {
	t   transport.Transport
	cfg Config

	fieldIDStack []int16
	lastFieldID  int16

	// writePendingBool holds the field id awaiting WriteBool to emit
	// the deferred boolean field header, per the compact spec's
	// "booleans are inlined into the field-type nibble" rule.
	writePendingBool   bool
	writePendingFieldID int16
	writePendingDelta   int16

	// readPendingBool holds the value decoded by ReadFieldBegin when
	// the field's compact type was BOOLEAN_TRUE/FALSE, so the matching
	// ReadBool call returns it without consuming further bytes.
	readPendingBool      bool
	readPendingBoolValue bool
}

func NewCompact(t transport.Transport) *Compact {
	return NewCompactConfig(t, DefaultConfig())
}

func NewCompactConfig(t transport.Transport, cfg Config) *Compact {
	return &Compact{t: t, cfg: cfg}
}

func (p *Compact) writeByteRaw(b byte) error {
	return p.checkErr(p.t.Write([]byte{b}))
}

func (p *Compact) writeVarint(n uint64) error {
	var buf []byte
	for {
		if n&^0x7f == 0 {
			buf = append(buf, byte(n))
			break
		}
		buf = append(buf, byte(n&0x7f)|0x80)
		n >>= 7
	}
	return p.checkErr(p.t.Write(buf))
}

func (p *Compact) readVarint() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := p.readByteRaw()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 64 {
			return 0, newError(Truncated, "varint too long")
		}
	}
	return result, nil
}

func (p *Compact) readByteRaw() (byte, error) {
	var buf [1]byte
	if err := p.checkErr(p.t.Read(buf[:])); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func zigzag32(n int32) uint32 { return uint32((n << 1) ^ (n >> 31)) }
func unzigzag32(n uint32) int32 {
	return int32(n>>1) ^ -int32(n&1)
}
func zigzag64(n int64) uint64 { return uint64((n << 1) ^ (n >> 63)) }
func unzigzag64(n uint64) int64 {
	return int64(n>>1) ^ -int64(n&1)
}

func (p *Compact) checkErr(err error) error {
	if err != nil {
		return wrapTransportError(err)
	}
	return nil
}

func (p *Compact) WriteMessageBegin(name string, mtype MessageType, seqid int32) error {
	if err := p.writeByteRaw(compactProtocolID); err != nil {
		return err
	}
	header := byte(compactVersion&compactVersionMask) | byte((byte(mtype)<<compactTypeShiftAmount)&compactTypeMask)
	if err := p.writeByteRaw(header); err != nil {
		return err
	}
	// seqid is a varint of its zigzag-encoded value per the compact spec.
	if err := p.writeVarint(zigzag64(int64(seqid))); err != nil {
		return err
	}
	return p.WriteString(name)
}

func (p *Compact) WriteMessageEnd() error { return nil }

func (p *Compact) WriteStructBegin(name string) error {
	p.fieldIDStack = append(p.fieldIDStack, p.lastFieldID)
	p.lastFieldID = 0
	return nil
}

func (p *Compact) WriteStructEnd() error {
	n := len(p.fieldIDStack)
	p.lastFieldID = p.fieldIDStack[n-1]
	p.fieldIDStack = p.fieldIDStack[:n-1]
	return nil
}

func (p *Compact) WriteFieldBegin(name string, wtype TType, id int16) error {
	if wtype == Bool {
		p.writePendingBool = true
		p.writePendingFieldID = id
		p.writePendingDelta = id - p.lastFieldID
		return nil
	}
	return p.writeFieldHeader(ttypeToCompact(wtype, false), id)
}

func (p *Compact) writeFieldHeader(ct compactType, id int16) error {
	delta := id - p.lastFieldID
	if delta > 0 && delta <= 15 {
		if err := p.writeByteRaw(byte(delta)<<4 | byte(ct)); err != nil {
			return err
		}
	} else {
		if err := p.writeByteRaw(byte(ct)); err != nil {
			return err
		}
		if err := p.writeVarint(zigzag64(int64(id))); err != nil {
			return err
		}
	}
	p.lastFieldID = id
	return nil
}

func (p *Compact) WriteFieldEnd() error { return nil }

func (p *Compact) WriteFieldStop() error { return p.writeByteRaw(0) }

func (p *Compact) WriteMapBegin(keyType, valType TType, size int) error {
	if size == 0 {
		return p.writeByteRaw(0)
	}
	if err := p.writeVarint(uint64(size)); err != nil {
		return err
	}
	kt := ttypeToCompact(keyType, false)
	vt := ttypeToCompact(valType, false)
	return p.writeByteRaw(byte(kt)<<4 | byte(vt))
}
func (p *Compact) WriteMapEnd() error { return nil }

func (p *Compact) writeCollectionBegin(elemType TType, size int) error {
	ct := ttypeToCompact(elemType, false)
	if size <= 14 {
		return p.writeByteRaw(byte(size)<<4 | byte(ct))
	}
	if err := p.writeByteRaw(0xF0 | byte(ct)); err != nil {
		return err
	}
	return p.writeVarint(uint64(size))
}

func (p *Compact) WriteListBegin(elemType TType, size int) error {
	return p.writeCollectionBegin(elemType, size)
}
func (p *Compact) WriteListEnd() error { return nil }

func (p *Compact) WriteSetBegin(elemType TType, size int) error {
	return p.writeCollectionBegin(elemType, size)
}
func (p *Compact) WriteSetEnd() error { return nil }

func (p *Compact) WriteBool(v bool) error {
	if p.writePendingBool {
		p.writePendingBool = false
		ct := cBooleanFalse
		if v {
			ct = cBooleanTrue
		}
		delta := p.writePendingDelta
		if delta > 0 && delta <= 15 {
			p.lastFieldID = p.writePendingFieldID
			return p.writeByteRaw(byte(delta)<<4 | byte(ct))
		}
		if err := p.writeByteRaw(byte(ct)); err != nil {
			return err
		}
		p.lastFieldID = p.writePendingFieldID
		return p.writeVarint(zigzag64(int64(p.writePendingFieldID)))
	}
	if v {
		return p.writeByteRaw(1)
	}
	return p.writeByteRaw(0)
}

func (p *Compact) WriteByte(v int8) error { return p.writeByteRaw(byte(v)) }

func (p *Compact) WriteI16(v int16) error { return p.writeVarint(uint64(zigzag32(int32(v)))) }
func (p *Compact) WriteI32(v int32) error { return p.writeVarint(uint64(zigzag32(v))) }
func (p *Compact) WriteI64(v int64) error { return p.writeVarint(zigzag64(v)) }

func (p *Compact) WriteDouble(v float64) error {
	bits := math.Float64bits(v)
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(bits >> (8 * uint(i)))
	}
	return p.checkErr(p.t.Write(buf))
}

func (p *Compact) writeBinaryRaw(v []byte) error {
	if len(v) > p.cfg.StringLengthLimit {
		return newError(SizeLimit, "binary length exceeds configured limit")
	}
	if err := p.writeVarint(uint64(len(v))); err != nil {
		return err
	}
	if len(v) == 0 {
		return nil
	}
	return p.checkErr(p.t.Write(v))
}

func (p *Compact) WriteString(v string) error { return p.writeBinaryRaw([]byte(v)) }
func (p *Compact) WriteBinary(v []byte) error { return p.writeBinaryRaw(v) }

func (p *Compact) ReadMessageBegin() (string, MessageType, int32, error) {
	protoID, err := p.readByteRaw()
	if err != nil {
		return "", 0, 0, err
	}
	if protoID != compactProtocolID {
		return "", 0, 0, newError(BadVersion, "bad compact protocol id")
	}
	header, err := p.readByteRaw()
	if err != nil {
		return "", 0, 0, err
	}
	version := header & compactVersionMask
	if version != compactVersion {
		return "", 0, 0, newError(BadVersion, "unsupported compact protocol version")
	}
	mtype := MessageType((header & compactTypeMask) >> compactTypeShiftAmount)
	seqidU, err := p.readVarint()
	if err != nil {
		return "", 0, 0, err
	}
	seqid := int32(unzigzag64(seqidU))
	name, err := p.ReadString()
	if err != nil {
		return "", 0, 0, err
	}
	return name, mtype, seqid, nil
}

func (p *Compact) ReadMessageEnd() error { return nil }

func (p *Compact) ReadStructBegin() (string, error) {
	p.fieldIDStack = append(p.fieldIDStack, p.lastFieldID)
	p.lastFieldID = 0
	return "", nil
}

func (p *Compact) ReadStructEnd() error {
	n := len(p.fieldIDStack)
	p.lastFieldID = p.fieldIDStack[n-1]
	p.fieldIDStack = p.fieldIDStack[:n-1]
	return nil
}

func (p *Compact) ReadFieldBegin() (string, TType, int16, error) {
	b, err := p.readByteRaw()
	if err != nil {
		return "", 0, 0, err
	}
	if b == 0 {
		return "", Stop, 0, nil
	}
	delta := int16(b >> 4)
	ct := compactType(b & 0x0f)

	var id int16
	if delta == 0 {
		u, err := p.readVarint()
		if err != nil {
			return "", 0, 0, err
		}
		id = int16(unzigzag64(u))
	} else {
		id = p.lastFieldID + delta
	}
	p.lastFieldID = id

	if ct == cBooleanTrue || ct == cBooleanFalse {
		p.readPendingBool = true
		p.readPendingBoolValue = ct == cBooleanTrue
	}

	return "", compactToTType(ct), id, nil
}

func (p *Compact) ReadFieldEnd() error { return nil }

func (p *Compact) ReadMapBegin() (TType, TType, int, error) {
	size, err := p.readVarint()
	if err != nil {
		return 0, 0, 0, err
	}
	if size == 0 {
		return Stop, Stop, 0, nil
	}
	if int(size) > p.cfg.ContainerLengthLimit {
		return 0, 0, 0, newError(SizeLimit, "map size exceeds configured limit")
	}
	b, err := p.readByteRaw()
	if err != nil {
		return 0, 0, 0, err
	}
	kt := compactToTType(compactType(b >> 4))
	vt := compactToTType(compactType(b & 0x0f))
	return kt, vt, int(size), nil
}
func (p *Compact) ReadMapEnd() error { return nil }

func (p *Compact) readCollectionBegin() (TType, int, error) {
	b, err := p.readByteRaw()
	if err != nil {
		return 0, 0, err
	}
	size := int(b >> 4)
	ct := compactType(b & 0x0f)
	if size == 15 {
		u, err := p.readVarint()
		if err != nil {
			return 0, 0, err
		}
		size = int(u)
	}
	if size > p.cfg.ContainerLengthLimit {
		return 0, 0, newError(SizeLimit, "container size exceeds configured limit")
	}
	return compactToTType(ct), size, nil
}

func (p *Compact) ReadListBegin() (TType, int, error) { return p.readCollectionBegin() }
func (p *Compact) ReadListEnd() error                  { return nil }

func (p *Compact) ReadSetBegin() (TType, int, error) { return p.readCollectionBegin() }
func (p *Compact) ReadSetEnd() error                  { return nil }

func (p *Compact) ReadBool() (bool, error) {
	if p.readPendingBool {
		p.readPendingBool = false
		return p.readPendingBoolValue, nil
	}
	b, err := p.readByteRaw()
	if err != nil {
		return false, err
	}
	return compactType(b) == cBooleanTrue, nil
}

func (p *Compact) ReadByte() (int8, error) {
	b, err := p.readByteRaw()
	return int8(b), err
}

func (p *Compact) ReadI16() (int16, error) {
	u, err := p.readVarint()
	if err != nil {
		return 0, err
	}
	return int16(unzigzag32(uint32(u))), nil
}

func (p *Compact) ReadI32() (int32, error) {
	u, err := p.readVarint()
	if err != nil {
		return 0, err
	}
	return unzigzag32(uint32(u)), nil
}

func (p *Compact) ReadI64() (int64, error) {
	u, err := p.readVarint()
	if err != nil {
		return 0, err
	}
	return unzigzag64(u), nil
}

func (p *Compact) ReadDouble() (float64, error) {
	buf := make([]byte, 8)
	if err := p.checkErr(p.t.Read(buf)); err != nil {
		return 0, err
	}
	var bits uint64
	for i := 0; i < 8; i++ {
		bits |= uint64(buf[i]) << (8 * uint(i))
	}
	return math.Float64frombits(bits), nil
}

func (p *Compact) readBinaryRaw() ([]byte, error) {
	u, err := p.readVarint()
	if err != nil {
		return nil, err
	}
	if int(u) > p.cfg.StringLengthLimit {
		return nil, newError(SizeLimit, "string/binary length exceeds configured limit")
	}
	buf := make([]byte, u)
	if u > 0 {
		if err := p.checkErr(p.t.Read(buf)); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (p *Compact) ReadString() (string, error) {
	b, err := p.readBinaryRaw()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (p *Compact) ReadBinary() ([]byte, error) { return p.readBinaryRaw() }

func (p *Compact) Skip(wtype TType) error {
	return skip(p, wtype, 0, p.cfg.RecursionDepthLimit)
}
