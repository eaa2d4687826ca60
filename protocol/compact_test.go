package protocol_test

import (
	"testing"

	"github.com/ritksm/thriftpy/protocol"
	"github.com/ritksm/thriftpy/transport"
)

func TestCompactMessageRoundTrip(t *testing.T) {
	mem := transport.NewMemory()
	w := protocol.NewCompact(mem)
	if err := w.WriteMessageBegin("ping", protocol.Call, 7); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteMessageEnd(); err != nil {
		t.Fatal(err)
	}

	r := protocol.NewCompact(mem)
	name, mtype, seqid, err := r.ReadMessageBegin()
	if err != nil {
		t.Fatalf("ReadMessageBegin: %v", err)
	}
	if name != "ping" || mtype != protocol.Call || seqid != 7 {
		t.Fatalf("got (%q, %v, %d), want (\"ping\", Call, 7)", name, mtype, seqid)
	}
	if err := r.ReadMessageEnd(); err != nil {
		t.Fatal(err)
	}
}

func TestCompactNegativeIntegersRoundTrip(t *testing.T) {
	mem := transport.NewMemory()
	w := protocol.NewCompact(mem)
	values := []int64{0, -1, 1, -128, 127, -32768, 32767, -1 << 40, 1<<40 + 17}
	for _, v := range values {
		if err := w.WriteI64(v); err != nil {
			t.Fatal(err)
		}
	}

	r := protocol.NewCompact(mem)
	for _, want := range values {
		got, err := r.ReadI64()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("got %d, want %d", got, want)
		}
	}
}

func TestCompactFieldDeltaAndExplicitID(t *testing.T) {
	mem := transport.NewMemory()
	w := protocol.NewCompact(mem)
	if err := w.WriteStructBegin("S"); err != nil {
		t.Fatal(err)
	}
	// Small forward delta: id 1.
	if err := w.WriteFieldBegin("a", protocol.I32, 1); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteI32(10); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFieldEnd(); err != nil {
		t.Fatal(err)
	}
	// Delta > 15 forces the explicit zigzag id form.
	if err := w.WriteFieldBegin("b", protocol.I32, 40); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteI32(20); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFieldEnd(); err != nil {
		t.Fatal(err)
	}
	// Boolean field, inlined into the type nibble.
	if err := w.WriteFieldBegin("c", protocol.Bool, 41); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBool(true); err != nil {
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

	r := protocol.NewCompact(mem)
	if _, err := r.ReadStructBegin(); err != nil {
		t.Fatal(err)
	}

	_, wt, id, err := r.ReadFieldBegin()
	if err != nil || wt != protocol.I32 || id != 1 {
		t.Fatalf("field 1: got (wt=%v id=%d err=%v)", wt, id, err)
	}
	v, err := r.ReadI32()
	if err != nil || v != 10 {
		t.Fatalf("field 1 value: got (%d, %v)", v, err)
	}
	if err := r.ReadFieldEnd(); err != nil {
		t.Fatal(err)
	}

	_, wt, id, err = r.ReadFieldBegin()
	if err != nil || wt != protocol.I32 || id != 40 {
		t.Fatalf("field 2: got (wt=%v id=%d err=%v)", wt, id, err)
	}
	v, err = r.ReadI32()
	if err != nil || v != 20 {
		t.Fatalf("field 2 value: got (%d, %v)", v, err)
	}
	if err := r.ReadFieldEnd(); err != nil {
		t.Fatal(err)
	}

	_, wt, id, err = r.ReadFieldBegin()
	if err != nil || wt != protocol.Bool || id != 41 {
		t.Fatalf("field 3: got (wt=%v id=%d err=%v)", wt, id, err)
	}
	b, err := r.ReadBool()
	if err != nil || !b {
		t.Fatalf("field 3 value: got (%v, %v)", b, err)
	}
	if err := r.ReadFieldEnd(); err != nil {
		t.Fatal(err)
	}

	_, wt, _, err = r.ReadFieldBegin()
	if err != nil || wt != protocol.Stop {
		t.Fatalf("expected Stop, got (wt=%v err=%v)", wt, err)
	}
	if err := r.ReadStructEnd(); err != nil {
		t.Fatal(err)
	}
}

func TestCompactListOverflowSize(t *testing.T) {
	mem := transport.NewMemory()
	w := protocol.NewCompact(mem)
	const n = 20 // forces the varint-size overflow form (>= 15)
	if err := w.WriteListBegin(protocol.I32, n); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if err := w.WriteI32(int32(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.WriteListEnd(); err != nil {
		t.Fatal(err)
	}

	r := protocol.NewCompact(mem)
	et, size, err := r.ReadListBegin()
	if err != nil {
		t.Fatal(err)
	}
	if et != protocol.I32 || size != n {
		t.Fatalf("got (et=%v size=%d), want (I32, %d)", et, size, n)
	}
	for i := 0; i < n; i++ {
		v, err := r.ReadI32()
		if err != nil || v != int32(i) {
			t.Fatalf("element %d: got (%d, %v)", i, v, err)
		}
	}
	if err := r.ReadListEnd(); err != nil {
		t.Fatal(err)
	}
}
