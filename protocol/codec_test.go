package protocol_test

import (
	"testing"

	"github.com/ritksm/thriftpy/protocol"
	"github.com/ritksm/thriftpy/schema"
	"github.com/ritksm/thriftpy/transport"
	"github.com/ritksm/thriftpy/value"
)

const addressBookIDL = `
enum PhoneType {
  MOBILE = 0,
  HOME = 1,
  WORK = 2
}

struct PhoneNumber {
  1: required string number,
  2: optional PhoneType type
}

struct Person {
  1: required string name,
  2: optional list<PhoneNumber> phones,
  3: optional i64 created_at
}
`

func loadAddressBook(t *testing.T) *schema.Schema {
	t.Helper()
	src := schema.MapSourceProvider{"addressbook.thrift": addressBookIDL}
	s, err := schema.LoadSchema("addressbook.thrift", schema.LoadOptions{Source: src})
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	return s
}

func personValue(personDef, phoneDef *schema.StructDef) value.Value {
	phone := value.NewStruct(phoneDef, map[int16]value.Value{
		1: value.NewString("555"),
		2: value.NewI32(2), // WORK
	})
	return value.NewStruct(personDef, map[int16]value.Value{
		1: value.NewString("Alice"),
		2: value.NewList([]value.Value{phone}),
		3: value.NewI64(1700000000),
	})
}

func newProtocol(t *testing.T, name string, tr transport.Transport) protocol.Protocol {
	t.Helper()
	switch name {
	case "binary":
		return protocol.NewBinary(tr)
	case "compact":
		return protocol.NewCompact(tr)
	case "json":
		return protocol.NewJson(tr)
	}
	t.Fatalf("unknown protocol %q", name)
	return nil
}

func TestStructRoundTripAcrossProtocols(t *testing.T) {
	s := loadAddressBook(t)
	personDef, ok := s.Struct("Person")
	if !ok {
		t.Fatal("Person struct not found")
	}
	phoneDef, ok := s.Struct("PhoneNumber")
	if !ok {
		t.Fatal("PhoneNumber struct not found")
	}
	want := personValue(personDef, phoneDef)

	for _, name := range []string{"binary", "compact", "json"} {
		t.Run(name, func(t *testing.T) {
			mem := transport.NewMemory()
			p := newProtocol(t, name, mem)
			if err := protocol.WriteStruct(p, personDef, want); err != nil {
				t.Fatalf("WriteStruct: %v", err)
			}

			p2 := newProtocol(t, name, mem)
			got, err := protocol.ReadStruct(p2, personDef)
			if err != nil {
				t.Fatalf("ReadStruct: %v", err)
			}
			if !value.Equal(want, got) {
				t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
			}
		})
	}
}

func TestBinaryRoundTripByteSequence(t *testing.T) {
	s := loadAddressBook(t)
	personDef, _ := s.Struct("Person")
	phoneDef, _ := s.Struct("PhoneNumber")
	want := personValue(personDef, phoneDef)

	mem := transport.NewMemory()
	p := protocol.NewBinary(mem)
	if err := protocol.WriteStruct(p, personDef, want); err != nil {
		t.Fatalf("WriteStruct: %v", err)
	}

	encoded := mem.Bytes()
	prefix := []byte{0x0B, 0x00, 0x01, 0x00, 0x00, 0x00, 0x05, 'A', 'l', 'i', 'c', 'e'}
	if len(encoded) < len(prefix) {
		t.Fatalf("encoded too short: %d bytes", len(encoded))
	}
	for i, b := range prefix {
		if encoded[i] != b {
			t.Fatalf("byte %d: got %#x, want %#x (full: % x)", i, encoded[i], b, encoded)
		}
	}
}

func TestSkipsUnknownFields(t *testing.T) {
	s := loadAddressBook(t)
	phoneDef, _ := s.Struct("PhoneNumber")

	mem := transport.NewMemory()
	w := protocol.NewBinary(mem)
	if err := w.WriteStructBegin("PhoneNumber"); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFieldBegin("number", protocol.String, 1); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteString("555"); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFieldEnd(); err != nil {
		t.Fatal(err)
	}
	// Unknown field 99, wire type i64.
	if err := w.WriteFieldBegin("mystery", protocol.I64, 99); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteI64(42); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFieldEnd(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFieldStop(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteStructEnd(); err != nil {
		t.Fatal(err)
	}

	r := protocol.NewBinary(mem)
	got, err := protocol.ReadStruct(r, phoneDef)
	if err != nil {
		t.Fatalf("ReadStruct: %v", err)
	}
	want := value.NewStruct(phoneDef, map[int16]value.Value{1: value.NewString("555")})
	if !value.Equal(want, got) {
		t.Fatalf("mismatch: got %+v, want %+v", got, want)
	}
}

func TestRequiredFieldMissing(t *testing.T) {
	src := schema.MapSourceProvider{"x.thrift": `struct X { 1: required i32 x }`}
	s, err := schema.LoadSchema("x.thrift", schema.LoadOptions{Source: src})
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	def, _ := s.Struct("X")

	mem := transport.NewMemory()
	w := protocol.NewBinary(mem)
	if err := w.WriteStructBegin("X"); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFieldStop(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteStructEnd(); err != nil {
		t.Fatal(err)
	}

	r := protocol.NewBinary(mem)
	_, err = protocol.ReadStruct(r, def)
	if err == nil {
		t.Fatal("expected RequiredFieldMissing error")
	}
	perr, ok := err.(*protocol.Error)
	if !ok {
		t.Fatalf("expected *protocol.Error, got %T", err)
	}
	if perr.Kind != protocol.RequiredFieldMissing {
		t.Fatalf("expected RequiredFieldMissing, got %v", perr.Kind)
	}
	if perr.FieldID != 1 {
		t.Fatalf("expected field id 1, got %d", perr.FieldID)
	}
}
