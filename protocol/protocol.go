// Package protocol implements the binary, compact, and JSON wire
// protocols of spec.md §4.6: each writes/reads the same abstract
// operation set against a transport.Transport.
package protocol

// TType is the wire type tag distinguishing a value's shape on the
// wire, independent of the logical schema.Category (spec.md GLOSSARY:
// "Wire type").
type TType byte

const (
	Stop   TType = 0
	Void   TType = 1
	Bool   TType = 2
	Byte   TType = 3
	Double TType = 4
	I16    TType = 6
	I32    TType = 8
	I64    TType = 10
	String TType = 11
	Struct TType = 12
	Map    TType = 13
	Set    TType = 14
	List   TType = 15
)

func (t TType) String() string {
	switch t {
	case Stop:
		return "STOP"
	case Void:
		return "VOID"
	case Bool:
		return "BOOL"
	case Byte:
		return "BYTE"
	case Double:
		return "DOUBLE"
	case I16:
		return "I16"
	case I32:
		return "I32"
	case I64:
		return "I64"
	case String:
		return "STRING"
	case Struct:
		return "STRUCT"
	case Map:
		return "MAP"
	case Set:
		return "SET"
	case List:
		return "LIST"
	default:
		return "UNKNOWN"
	}
}

// MessageType tags a request/reply envelope, per spec.md §6.
type MessageType byte

const (
	Call      MessageType = 1
	Reply     MessageType = 2
	Exception MessageType = 3
	Oneway    MessageType = 4
)

func (t MessageType) String() string {
	switch t {
	case Call:
		return "CALL"
	case Reply:
		return "REPLY"
	case Exception:
		return "EXCEPTION"
	case Oneway:
		return "ONEWAY"
	default:
		return "UNKNOWN"
	}
}

// Config holds the protocol-layer limits of spec.md §6.
type Config struct {
	StringLengthLimit    int  // default 64 MiB
	ContainerLengthLimit int  // default 1<<24
	RecursionDepthLimit  int  // default 64
	StrictRead           bool // default true
	StrictWrite          bool // default true
}

// DefaultConfig returns the spec.md §6 defaults.
func DefaultConfig() Config {
	return Config{
		StringLengthLimit:    64 * 1024 * 1024,
		ContainerLengthLimit: 1 << 24,
		RecursionDepthLimit:  64,
		StrictRead:           true,
		StrictWrite:          true,
	}
}

// Protocol is the shared operation set all three wire protocols
// implement, per spec.md §4.6.
type Protocol interface {
	WriteMessageBegin(name string, mtype MessageType, seqid int32) error
	WriteMessageEnd() error
	WriteStructBegin(name string) error
	WriteStructEnd() error
	WriteFieldBegin(name string, wtype TType, id int16) error
	WriteFieldEnd() error
	WriteFieldStop() error
	WriteMapBegin(keyType, valType TType, size int) error
	WriteMapEnd() error
	WriteListBegin(elemType TType, size int) error
	WriteListEnd() error
	WriteSetBegin(elemType TType, size int) error
	WriteSetEnd() error
	WriteBool(v bool) error
	WriteByte(v int8) error
	WriteI16(v int16) error
	WriteI32(v int32) error
	WriteI64(v int64) error
	WriteDouble(v float64) error
	WriteString(v string) error
	WriteBinary(v []byte) error

	ReadMessageBegin() (name string, mtype MessageType, seqid int32, err error)
	ReadMessageEnd() error
	ReadStructBegin() (name string, err error)
	ReadStructEnd() error
	ReadFieldBegin() (name string, wtype TType, id int16, err error)
	ReadFieldEnd() error
	ReadMapBegin() (keyType, valType TType, size int, err error)
	ReadMapEnd() error
	ReadListBegin() (elemType TType, size int, err error)
	ReadListEnd() error
	ReadSetBegin() (elemType TType, size int, err error)
	ReadSetEnd() error
	ReadBool() (bool, error)
	ReadByte() (int8, error)
	ReadI16() (int16, error)
	ReadI32() (int32, error)
	ReadI64() (int64, error)
	ReadDouble() (float64, error)
	ReadString() (string, error)
	ReadBinary() ([]byte, error)

	// Skip consumes and discards one value of the given wire type,
	// recursing through containers/structs, per spec.md §4.6's
	// unknown-field-skip invariant.
	Skip(wtype TType) error
}
