package schemacache_test

import (
	"errors"
	"testing"

	"github.com/ritksm/thriftpy/schema"
	"github.com/ritksm/thriftpy/schemacache"
)

func loadStub(t *testing.T, body string) *schema.Schema {
	t.Helper()
	src := schema.MapSourceProvider{"x.thrift": body}
	s, err := schema.LoadSchema("x.thrift", schema.LoadOptions{Source: src})
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	return s
}

func TestGetOrLoadCachesAcrossCalls(t *testing.T) {
	c, err := schemacache.New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := loadStub(t, `struct X { 1: required i32 x }`)

	loads := 0
	load := func() (*schema.Schema, error) {
		loads++
		return want, nil
	}

	got1, err := c.GetOrLoad("x.thrift", load)
	if err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	got2, err := c.GetOrLoad("x.thrift", load)
	if err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if got1 != want || got2 != want {
		t.Fatal("expected the same cached Schema instance both times")
	}
	if loads != 1 {
		t.Fatalf("expected load to run once, ran %d times", loads)
	}

	stats := c.Stats()
	if stats.Misses != 1 || stats.Size != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestGetOrLoadPropagatesLoadError(t *testing.T) {
	c, err := schemacache.New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	wantErr := errors.New("boom")
	_, err = c.GetOrLoad("broken.thrift", func() (*schema.Schema, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if _, ok := c.Get("broken.thrift"); ok {
		t.Fatal("a failed load must not be cached")
	}
}

func TestInvalidateEvictsEntry(t *testing.T) {
	c, err := schemacache.New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := loadStub(t, `struct X { 1: required i32 x }`)
	c.Put("x.thrift", s)
	if _, ok := c.Get("x.thrift"); !ok {
		t.Fatal("expected entry present before invalidate")
	}
	c.Invalidate("x.thrift")
	if _, ok := c.Get("x.thrift"); ok {
		t.Fatal("expected entry gone after invalidate")
	}
}

func TestLRUEviction(t *testing.T) {
	c, err := schemacache.New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s1 := loadStub(t, `struct A { 1: required i32 a }`)
	s2 := loadStub(t, `struct B { 1: required i32 b }`)
	c.Put("a.thrift", s1)
	c.Put("b.thrift", s2)

	if _, ok := c.Get("a.thrift"); ok {
		t.Fatal("expected a.thrift evicted once capacity 1 is exceeded")
	}
	if _, ok := c.Get("b.thrift"); !ok {
		t.Fatal("expected b.thrift still cached")
	}
	if stats := c.Stats(); stats.Evictions != 1 {
		t.Fatalf("expected 1 eviction, got %d", stats.Evictions)
	}
}
