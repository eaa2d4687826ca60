package protocol_test

import (
	"math"
	"testing"

	"github.com/ritksm/thriftpy/protocol"
	"github.com/ritksm/thriftpy/transport"
)

func TestJsonMessageEnvelopeShape(t *testing.T) {
	mem := transport.NewMemory()
	w := protocol.NewJson(mem)
	if err := w.WriteMessageBegin("ping", protocol.Call, 7); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteStructBegin("ping_args"); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFieldStop(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteStructEnd(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteMessageEnd(); err != nil {
		t.Fatal(err)
	}

	want := `[1,"ping",1,7,{}]`
	got := string(mem.Bytes())
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestJsonStructFieldShape(t *testing.T) {
	mem := transport.NewMemory()
	w := protocol.NewJson(mem)
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
	if err := w.WriteFieldStop(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteStructEnd(); err != nil {
		t.Fatal(err)
	}

	want := `{"1":{"str":"555"}}`
	got := string(mem.Bytes())
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	r := protocol.NewJson(mem)
	if _, err := r.ReadStructBegin(); err != nil {
		t.Fatal(err)
	}
	_, wt, id, err := r.ReadFieldBegin()
	if err != nil || wt != protocol.String || id != 1 {
		t.Fatalf("got (wt=%v id=%d err=%v)", wt, id, err)
	}
	s, err := r.ReadString()
	if err != nil || s != "555" {
		t.Fatalf("got (%q, %v)", s, err)
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

func TestJsonListRoundTrip(t *testing.T) {
	mem := transport.NewMemory()
	w := protocol.NewJson(mem)
	if err := w.WriteListBegin(protocol.I32, 3); err != nil {
		t.Fatal(err)
	}
	for _, v := range []int32{1, 2, 3} {
		if err := w.WriteI32(v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.WriteListEnd(); err != nil {
		t.Fatal(err)
	}

	want := `["i32",3,1,2,3]`
	if got := string(mem.Bytes()); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	r := protocol.NewJson(mem)
	et, size, err := r.ReadListBegin()
	if err != nil || et != protocol.I32 || size != 3 {
		t.Fatalf("got (et=%v size=%d err=%v)", et, size, err)
	}
	for i := 0; i < 3; i++ {
		v, err := r.ReadI32()
		if err != nil || v != int32(i+1) {
			t.Fatalf("element %d: got (%d, %v)", i, v, err)
		}
	}
	if err := r.ReadListEnd(); err != nil {
		t.Fatal(err)
	}
}

func TestJsonBinaryIsBase64(t *testing.T) {
	mem := transport.NewMemory()
	w := protocol.NewJson(mem)
	if err := w.WriteBinary([]byte("hi")); err != nil {
		t.Fatal(err)
	}
	want := `"aGk="`
	if got := string(mem.Bytes()); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	r := protocol.NewJson(mem)
	got, err := r.ReadBinary()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hi" {
		t.Fatalf("got %q, want %q", got, "hi")
	}
}

func TestJsonDoubleSpecialValues(t *testing.T) {
	mem := transport.NewMemory()
	w := protocol.NewJson(mem)
	values := []float64{0, -1.5, 3.14159, math.Inf(1), math.Inf(-1), math.NaN()}
	if err := w.WriteListBegin(protocol.Double, len(values)); err != nil {
		t.Fatal(err)
	}
	for _, v := range values {
		if err := w.WriteDouble(v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.WriteListEnd(); err != nil {
		t.Fatal(err)
	}

	r := protocol.NewJson(mem)
	if _, _, err := r.ReadListBegin(); err != nil {
		t.Fatal(err)
	}
	for _, want := range values {
		got, err := r.ReadDouble()
		if math.IsNaN(want) {
			if err != nil || !math.IsNaN(got) {
				t.Fatalf("got (%v, %v), want NaN", got, err)
			}
			continue
		}
		if err != nil || got != want {
			t.Fatalf("got (%v, %v), want %v", got, err, want)
		}
	}
}
