package transport

import (
	"bytes"
	"testing"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	if err := m.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := m.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	got := make([]byte, 5)
	if err := m.Read(got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestMemoryEofOnExhaustion(t *testing.T) {
	m := NewMemoryWithBytes([]byte("ab"))
	buf := make([]byte, 4)
	err := m.Read(buf)
	te, ok := err.(*Error)
	if !ok || te.Kind != Eof {
		t.Fatalf("expected Eof error, got %v", err)
	}
}

func TestMemoryClosedRejectsReadWrite(t *testing.T) {
	m := NewMemory()
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if m.IsOpen() {
		t.Fatalf("expected closed transport")
	}
	if err := m.Write([]byte("x")); err == nil {
		t.Fatalf("expected error writing to closed transport")
	}
}

func TestBufferedRoundTripAcrossFill(t *testing.T) {
	inner := NewMemory()
	bw := NewBufferedSize(inner, 4)
	payload := []byte("0123456789")
	if err := bw.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := bw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	br := NewBufferedSize(NewMemoryWithBytes(inner.Bytes()), 3)
	got := make([]byte, len(payload))
	if err := br.Read(got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestFramedRoundTrip(t *testing.T) {
	mem := NewMemory()
	fw := NewFramed(mem)
	payload := []byte("framed payload")
	if err := fw.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	fr := NewFramed(NewMemoryWithBytes(mem.Bytes()))
	got := make([]byte, len(payload))
	if err := fr.Read(got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestFramedIdempotentFlush(t *testing.T) {
	mem := NewMemory()
	fw := NewFramed(mem)
	if err := fw.Write([]byte("payload")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fw.Flush(); err != nil {
		t.Fatalf("first flush: %v", err)
	}
	afterFirst := append([]byte(nil), mem.Bytes()...)

	if err := fw.Flush(); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if !bytes.Equal(mem.Bytes(), afterFirst) {
		t.Fatalf("second flush on an empty write buffer emitted more bytes: got %v, want %v", mem.Bytes(), afterFirst)
	}
}

func TestFramedTooLargeOnWrite(t *testing.T) {
	fw := NewFramedMax(NewMemory(), 4)
	_ = fw.Write([]byte("12345"))
	err := fw.Flush()
	te, ok := err.(*Error)
	if !ok || te.Kind != FrameTooLarge {
		t.Fatalf("expected FrameTooLarge, got %v", err)
	}
}

func TestFramedTooLargeOnRead(t *testing.T) {
	mem := NewMemory()
	fw := NewFramed(mem)
	_ = fw.Write([]byte("12345"))
	_ = fw.Flush()

	fr := NewFramedMax(NewMemoryWithBytes(mem.Bytes()), 4)
	err := fr.Read(make([]byte, 1))
	te, ok := err.(*Error)
	if !ok || te.Kind != FrameTooLarge {
		t.Fatalf("expected FrameTooLarge, got %v", err)
	}
}

func TestFramedTruncatedPayload(t *testing.T) {
	// Hand-craft a frame header claiming more bytes than follow.
	mem := NewMemoryWithBytes([]byte{0, 0, 0, 10, 'a', 'b'})
	fr := NewFramed(mem)
	err := fr.Read(make([]byte, 1))
	te, ok := err.(*Error)
	if !ok || te.Kind != FrameTruncated {
		t.Fatalf("expected FrameTruncated, got %v", err)
	}
}

func TestIdempotentFlush(t *testing.T) {
	mem := NewMemory()
	if err := mem.Write([]byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := mem.Flush(); err != nil {
		t.Fatalf("flush 1: %v", err)
	}
	before := append([]byte(nil), mem.Bytes()...)
	if err := mem.Flush(); err != nil {
		t.Fatalf("flush 2: %v", err)
	}
	if !bytes.Equal(before, mem.Bytes()) {
		t.Errorf("flush was not idempotent: %q vs %q", before, mem.Bytes())
	}
}
