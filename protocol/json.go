package protocol

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"strconv"

	"github.com/ritksm/thriftpy/transport"
)

type jsonCtxKind int

const (
	jsonArray jsonCtxKind = iota
	jsonObject
)

// jsonFrame tracks one open array/object while writing or reading so
// that commas and colons land in the right places, per spec.md §4.6's
// JSON protocol description.
type jsonFrame struct {
	kind  jsonCtxKind
	count int
}

// Json implements the JSON wire protocol of spec.md §4.6: a message
// is `[version, name, type, seqid, payload]`; a struct is
// `{"<fieldID>": {"<typeTag>": value}}`; maps and lists carry their
// element type tags and size ahead of their elements.
type Json struct {
	t   transport.Transport
	cfg Config

	stack []jsonFrame

	hasPeek bool
	peeked  byte
}

func NewJson(t transport.Transport) *Json {
	return NewJsonConfig(t, DefaultConfig())
}

func NewJsonConfig(t transport.Transport, cfg Config) *Json {
	return &Json{t: t, cfg: cfg}
}

func (p *Json) checkErr(err error) error {
	if err != nil {
		return wrapTransportError(err)
	}
	return nil
}

func (p *Json) writeRaw(b []byte) error { return p.checkErr(p.t.Write(b)) }

// beforeValue emits the separator (comma or colon) required before the
// next value in the current context, and advances its slot counter.
func (p *Json) beforeValue() error {
	if len(p.stack) == 0 {
		return nil
	}
	f := &p.stack[len(p.stack)-1]
	switch f.kind {
	case jsonArray:
		if f.count > 0 {
			if err := p.writeRaw([]byte{','}); err != nil {
				return err
			}
		}
	case jsonObject:
		switch {
		case f.count%2 == 1:
			if err := p.writeRaw([]byte{':'}); err != nil {
				return err
			}
		case f.count > 0:
			if err := p.writeRaw([]byte{','}); err != nil {
				return err
			}
		}
	}
	f.count++
	return nil
}

func (p *Json) writeJSONStringRaw(s string) error {
	b, _ := json.Marshal(s)
	return p.writeRaw(b)
}

func (p *Json) writeJSONIntRaw(n int64) error {
	return p.writeRaw([]byte(strconv.FormatInt(n, 10)))
}

func (p *Json) pushArray() error {
	if err := p.beforeValue(); err != nil {
		return err
	}
	if err := p.writeRaw([]byte{'['}); err != nil {
		return err
	}
	p.stack = append(p.stack, jsonFrame{kind: jsonArray})
	return nil
}

func (p *Json) popArray() error {
	if err := p.writeRaw([]byte{']'}); err != nil {
		return err
	}
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

func (p *Json) pushObject() error {
	if err := p.beforeValue(); err != nil {
		return err
	}
	if err := p.writeRaw([]byte{'{'}); err != nil {
		return err
	}
	p.stack = append(p.stack, jsonFrame{kind: jsonObject})
	return nil
}

func (p *Json) popObject() error {
	if err := p.writeRaw([]byte{'}'}); err != nil {
		return err
	}
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

func tagOf(t TType) string {
	switch t {
	case Bool:
		return "tf"
	case Byte:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case Double:
		return "dbl"
	case String:
		return "str"
	case Struct:
		return "rec"
	case Map:
		return "map"
	case List:
		return "lst"
	case Set:
		return "set"
	}
	return ""
}

func tagToTType(tag string) TType {
	switch tag {
	case "tf":
		return Bool
	case "i8":
		return Byte
	case "i16":
		return I16
	case "i32":
		return I32
	case "i64":
		return I64
	case "dbl":
		return Double
	case "str":
		return String
	case "rec":
		return Struct
	case "map":
		return Map
	case "lst":
		return List
	case "set":
		return Set
	}
	return Stop
}

func (p *Json) WriteMessageBegin(name string, mtype MessageType, seqid int32) error {
	if err := p.pushArray(); err != nil {
		return err
	}
	if err := p.WriteI32(1); err != nil {
		return err
	}
	if err := p.WriteString(name); err != nil {
		return err
	}
	if err := p.WriteI32(int32(mtype)); err != nil {
		return err
	}
	return p.WriteI32(seqid)
}

func (p *Json) WriteMessageEnd() error { return p.popArray() }

func (p *Json) WriteStructBegin(name string) error { return p.pushObject() }
func (p *Json) WriteStructEnd() error               { return p.popObject() }

func (p *Json) WriteFieldBegin(name string, wtype TType, id int16) error {
	if err := p.beforeValue(); err != nil {
		return err
	}
	if err := p.writeJSONStringRaw(strconv.Itoa(int(id))); err != nil {
		return err
	}
	if err := p.pushObject(); err != nil {
		return err
	}
	if err := p.beforeValue(); err != nil {
		return err
	}
	return p.writeJSONStringRaw(tagOf(wtype))
}

func (p *Json) WriteFieldEnd() error  { return p.popObject() }
func (p *Json) WriteFieldStop() error { return nil }

func (p *Json) WriteMapBegin(keyType, valType TType, size int) error {
	if err := p.pushArray(); err != nil {
		return err
	}
	if err := p.WriteString(tagOf(keyType)); err != nil {
		return err
	}
	if err := p.WriteString(tagOf(valType)); err != nil {
		return err
	}
	return p.WriteI32(int32(size))
}
func (p *Json) WriteMapEnd() error { return p.popArray() }

func (p *Json) writeCollectionBegin(elemType TType, size int) error {
	if err := p.pushArray(); err != nil {
		return err
	}
	if err := p.WriteString(tagOf(elemType)); err != nil {
		return err
	}
	return p.WriteI32(int32(size))
}

func (p *Json) WriteListBegin(elemType TType, size int) error {
	return p.writeCollectionBegin(elemType, size)
}
func (p *Json) WriteListEnd() error { return p.popArray() }

func (p *Json) WriteSetBegin(elemType TType, size int) error {
	return p.writeCollectionBegin(elemType, size)
}
func (p *Json) WriteSetEnd() error { return p.popArray() }

func (p *Json) WriteBool(v bool) error {
	if err := p.beforeValue(); err != nil {
		return err
	}
	if v {
		return p.writeJSONIntRaw(1)
	}
	return p.writeJSONIntRaw(0)
}

func (p *Json) WriteByte(v int8) error {
	if err := p.beforeValue(); err != nil {
		return err
	}
	return p.writeJSONIntRaw(int64(v))
}

func (p *Json) WriteI16(v int16) error {
	if err := p.beforeValue(); err != nil {
		return err
	}
	return p.writeJSONIntRaw(int64(v))
}

func (p *Json) WriteI32(v int32) error {
	if err := p.beforeValue(); err != nil {
		return err
	}
	return p.writeJSONIntRaw(int64(v))
}

func (p *Json) WriteI64(v int64) error {
	if err := p.beforeValue(); err != nil {
		return err
	}
	return p.writeJSONIntRaw(v)
}

func (p *Json) WriteDouble(v float64) error {
	if err := p.beforeValue(); err != nil {
		return err
	}
	switch {
	case math.IsNaN(v):
		return p.writeJSONStringRaw("NaN")
	case math.IsInf(v, 1):
		return p.writeJSONStringRaw("Infinity")
	case math.IsInf(v, -1):
		return p.writeJSONStringRaw("-Infinity")
	}
	return p.writeRaw([]byte(strconv.FormatFloat(v, 'g', -1, 64)))
}

func (p *Json) WriteString(v string) error {
	if err := p.beforeValue(); err != nil {
		return err
	}
	return p.writeJSONStringRaw(v)
}

func (p *Json) WriteBinary(v []byte) error {
	if err := p.beforeValue(); err != nil {
		return err
	}
	return p.writeJSONStringRaw(base64.StdEncoding.EncodeToString(v))
}

// --- reading ---

func (p *Json) readByteRaw() (byte, error) {
	var buf [1]byte
	if err := p.checkErr(p.t.Read(buf[:])); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (p *Json) peekByte() (byte, error) {
	if !p.hasPeek {
		b, err := p.readByteRaw()
		if err != nil {
			return 0, err
		}
		p.peeked = b
		p.hasPeek = true
	}
	return p.peeked, nil
}

func (p *Json) nextByte() (byte, error) {
	b, err := p.peekByte()
	if err != nil {
		return 0, err
	}
	p.hasPeek = false
	return b, nil
}

func isJSONSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func (p *Json) skipWS() error {
	for {
		b, err := p.peekByte()
		if err != nil {
			return err
		}
		if !isJSONSpace(b) {
			return nil
		}
		if _, err := p.nextByte(); err != nil {
			return err
		}
	}
}

func (p *Json) expectByte(want byte) error {
	if err := p.skipWS(); err != nil {
		return err
	}
	b, err := p.nextByte()
	if err != nil {
		return err
	}
	if b != want {
		return newError(Truncated, "unexpected json token")
	}
	return nil
}

func (p *Json) beforeRead() error {
	if len(p.stack) == 0 {
		return nil
	}
	f := &p.stack[len(p.stack)-1]
	switch f.kind {
	case jsonArray:
		if f.count > 0 {
			if err := p.expectByte(','); err != nil {
				return err
			}
		}
	case jsonObject:
		switch {
		case f.count%2 == 1:
			if err := p.expectByte(':'); err != nil {
				return err
			}
		case f.count > 0:
			if err := p.expectByte(','); err != nil {
				return err
			}
		}
	}
	f.count++
	return nil
}

func (p *Json) pushArrayRead() error {
	if err := p.beforeRead(); err != nil {
		return err
	}
	if err := p.expectByte('['); err != nil {
		return err
	}
	p.stack = append(p.stack, jsonFrame{kind: jsonArray})
	return nil
}

func (p *Json) popArrayRead() error {
	if err := p.skipWS(); err != nil {
		return err
	}
	if err := p.expectByte(']'); err != nil {
		return err
	}
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

func (p *Json) pushObjectRead() error {
	if err := p.beforeRead(); err != nil {
		return err
	}
	if err := p.expectByte('{'); err != nil {
		return err
	}
	p.stack = append(p.stack, jsonFrame{kind: jsonObject})
	return nil
}

func (p *Json) popObjectRead() error {
	if err := p.skipWS(); err != nil {
		return err
	}
	if err := p.expectByte('}'); err != nil {
		return err
	}
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

func (p *Json) readJSONStringRaw() (string, error) {
	if err := p.skipWS(); err != nil {
		return "", err
	}
	if err := p.expectByte('"'); err != nil {
		return "", err
	}
	var out []byte
	for {
		b, err := p.nextByte()
		if err != nil {
			return "", err
		}
		if b == '"' {
			break
		}
		if b != '\\' {
			out = append(out, b)
			continue
		}
		esc, err := p.nextByte()
		if err != nil {
			return "", err
		}
		switch esc {
		case '"', '\\', '/':
			out = append(out, esc)
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'u':
			var hex [4]byte
			for i := 0; i < 4; i++ {
				h, err := p.nextByte()
				if err != nil {
					return "", err
				}
				hex[i] = h
			}
			cp, err := strconv.ParseUint(string(hex[:]), 16, 32)
			if err != nil {
				return "", newError(Truncated, "bad unicode escape")
			}
			out = append(out, []byte(string(rune(cp)))...)
		default:
			return "", newError(Truncated, "bad escape sequence")
		}
	}
	return string(out), nil
}

func isJSONNumberByte(b byte) bool {
	return (b >= '0' && b <= '9') || b == '-' || b == '+' || b == '.' || b == 'e' || b == 'E'
}

func (p *Json) readJSONNumberRaw() (string, error) {
	if err := p.skipWS(); err != nil {
		return "", err
	}
	var out []byte
	for {
		b, err := p.peekByte()
		if err != nil {
			if len(out) > 0 {
				break
			}
			return "", err
		}
		if !isJSONNumberByte(b) {
			break
		}
		if _, err := p.nextByte(); err != nil {
			return "", err
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return "", newError(Truncated, "expected a number")
	}
	return string(out), nil
}

func (p *Json) ReadMessageBegin() (string, MessageType, int32, error) {
	if err := p.pushArrayRead(); err != nil {
		return "", 0, 0, err
	}
	if _, err := p.ReadI32(); err != nil {
		return "", 0, 0, err
	}
	name, err := p.ReadString()
	if err != nil {
		return "", 0, 0, err
	}
	mtype, err := p.ReadI32()
	if err != nil {
		return "", 0, 0, err
	}
	seqid, err := p.ReadI32()
	if err != nil {
		return "", 0, 0, err
	}
	return name, MessageType(mtype), seqid, nil
}

func (p *Json) ReadMessageEnd() error { return p.popArrayRead() }

func (p *Json) ReadStructBegin() (string, error) {
	if err := p.pushObjectRead(); err != nil {
		return "", err
	}
	return "", nil
}
func (p *Json) ReadStructEnd() error { return p.popObjectRead() }

func (p *Json) ReadFieldBegin() (string, TType, int16, error) {
	if err := p.skipWS(); err != nil {
		return "", 0, 0, err
	}
	b, err := p.peekByte()
	if err != nil {
		return "", 0, 0, err
	}
	if b == '}' {
		return "", Stop, 0, nil
	}
	if err := p.beforeRead(); err != nil {
		return "", 0, 0, err
	}
	idStr, err := p.readJSONStringRaw()
	if err != nil {
		return "", 0, 0, err
	}
	id64, err := strconv.ParseInt(idStr, 10, 16)
	if err != nil {
		return "", 0, 0, newError(Truncated, "bad field id")
	}
	if err := p.pushObjectRead(); err != nil {
		return "", 0, 0, err
	}
	if err := p.beforeRead(); err != nil {
		return "", 0, 0, err
	}
	tag, err := p.readJSONStringRaw()
	if err != nil {
		return "", 0, 0, err
	}
	return "", tagToTType(tag), int16(id64), nil
}

func (p *Json) ReadFieldEnd() error { return p.popObjectRead() }

func (p *Json) ReadMapBegin() (TType, TType, int, error) {
	if err := p.pushArrayRead(); err != nil {
		return 0, 0, 0, err
	}
	kTag, err := p.ReadString()
	if err != nil {
		return 0, 0, 0, err
	}
	vTag, err := p.ReadString()
	if err != nil {
		return 0, 0, 0, err
	}
	size, err := p.ReadI32()
	if err != nil {
		return 0, 0, 0, err
	}
	if int(size) > p.cfg.ContainerLengthLimit {
		return 0, 0, 0, newError(SizeLimit, "map size exceeds configured limit")
	}
	return tagToTType(kTag), tagToTType(vTag), int(size), nil
}
func (p *Json) ReadMapEnd() error { return p.popArrayRead() }

func (p *Json) readCollectionBegin() (TType, int, error) {
	if err := p.pushArrayRead(); err != nil {
		return 0, 0, err
	}
	eTag, err := p.ReadString()
	if err != nil {
		return 0, 0, err
	}
	size, err := p.ReadI32()
	if err != nil {
		return 0, 0, err
	}
	if int(size) > p.cfg.ContainerLengthLimit {
		return 0, 0, newError(SizeLimit, "container size exceeds configured limit")
	}
	return tagToTType(eTag), int(size), nil
}

func (p *Json) ReadListBegin() (TType, int, error) { return p.readCollectionBegin() }
func (p *Json) ReadListEnd() error                  { return p.popArrayRead() }

func (p *Json) ReadSetBegin() (TType, int, error) { return p.readCollectionBegin() }
func (p *Json) ReadSetEnd() error                  { return p.popArrayRead() }

func (p *Json) ReadBool() (bool, error) {
	if err := p.beforeRead(); err != nil {
		return false, err
	}
	s, err := p.readJSONNumberRaw()
	if err != nil {
		return false, err
	}
	return s != "0", nil
}

func (p *Json) ReadByte() (int8, error) {
	if err := p.beforeRead(); err != nil {
		return 0, err
	}
	s, err := p.readJSONNumberRaw()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 8)
	if err != nil {
		return 0, newError(Truncated, "bad byte literal")
	}
	return int8(n), nil
}

func (p *Json) ReadI16() (int16, error) {
	if err := p.beforeRead(); err != nil {
		return 0, err
	}
	s, err := p.readJSONNumberRaw()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 16)
	if err != nil {
		return 0, newError(Truncated, "bad i16 literal")
	}
	return int16(n), nil
}

func (p *Json) ReadI32() (int32, error) {
	if err := p.beforeRead(); err != nil {
		return 0, err
	}
	s, err := p.readJSONNumberRaw()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, newError(Truncated, "bad i32 literal")
	}
	return int32(n), nil
}

func (p *Json) ReadI64() (int64, error) {
	if err := p.beforeRead(); err != nil {
		return 0, err
	}
	s, err := p.readJSONNumberRaw()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, newError(Truncated, "bad i64 literal")
	}
	return n, nil
}

func (p *Json) ReadDouble() (float64, error) {
	if err := p.beforeRead(); err != nil {
		return 0, err
	}
	if err := p.skipWS(); err != nil {
		return 0, err
	}
	b, err := p.peekByte()
	if err != nil {
		return 0, err
	}
	if b == '"' {
		s, err := p.readJSONStringRaw()
		if err != nil {
			return 0, err
		}
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return 0, newError(Truncated, "bad double literal")
	}
	s, err := p.readJSONNumberRaw()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, newError(Truncated, "bad double literal")
	}
	return v, nil
}

func (p *Json) ReadString() (string, error) {
	if err := p.beforeRead(); err != nil {
		return "", err
	}
	s, err := p.readJSONStringRaw()
	if err != nil {
		return "", err
	}
	if len(s) > p.cfg.StringLengthLimit {
		return "", newError(SizeLimit, "string length exceeds configured limit")
	}
	return s, nil
}

func (p *Json) ReadBinary() ([]byte, error) {
	s, err := p.ReadString()
	if err != nil {
		return nil, err
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, newError(Truncated, "bad base64 binary literal")
	}
	return b, nil
}

func (p *Json) Skip(wtype TType) error {
	return skip(p, wtype, 0, p.cfg.RecursionDepthLimit)
}
