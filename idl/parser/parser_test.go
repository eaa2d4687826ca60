package parser_test

import (
	"testing"

	"github.com/ritksm/thriftpy/idl/ast"
	"github.com/ritksm/thriftpy/idl/parser"
	"github.com/ritksm/thriftpy/idl/token"
)

func TestParseStructWithFieldsAndDefault(t *testing.T) {
	doc, err := parser.ParseString("test", `
enum Color { RED, GREEN, BLUE }

struct Widget {
  1: required string name,
  2: optional Color color = Color.GREEN,
  3: i32 count = 0
}
`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if len(doc.Enums) != 1 || doc.Enums[0].Name != "Color" {
		t.Fatalf("got enums %+v", doc.Enums)
	}
	if len(doc.Enums[0].Values) != 3 || doc.Enums[0].Values[1].Name != "GREEN" {
		t.Fatalf("got enum values %+v", doc.Enums[0].Values)
	}

	if len(doc.Structs) != 1 {
		t.Fatalf("got %d structs, want 1", len(doc.Structs))
	}
	s := doc.Structs[0]
	if s.Name != "Widget" || len(s.Fields) != 3 {
		t.Fatalf("got struct %+v", s)
	}

	f0 := s.Fields[0]
	if f0.ID != 1 || !f0.HasID || f0.Requiredness != ast.Required || f0.Name != "name" {
		t.Fatalf("field 0 = %+v", f0)
	}

	f1 := s.Fields[1]
	if f1.Requiredness != ast.Optional || f1.Default == nil || f1.Default.Kind != ast.LitIdent || f1.Default.Ident != "Color.GREEN" {
		t.Fatalf("field 1 = %+v", f1)
	}

	f2 := s.Fields[2]
	if f2.Requiredness != ast.Default || f2.Default == nil || f2.Default.Kind != ast.LitInt || f2.Default.Int != 0 {
		t.Fatalf("field 2 = %+v", f2)
	}
}

func TestParseServiceWithThrowsAndOneway(t *testing.T) {
	doc, err := parser.ParseString("test", `
exception NotFound { 1: string message }

service Store {
  void put(1: string key, 2: string value),
  string get(1: string key) throws (1: NotFound e),
  oneway void notify(1: string key)
}
`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if len(doc.Services) != 1 {
		t.Fatalf("got %d services, want 1", len(doc.Services))
	}
	svc := doc.Services[0]
	if len(svc.Functions) != 3 {
		t.Fatalf("got %d functions, want 3", len(svc.Functions))
	}

	put := svc.Functions[0]
	if !put.Void || len(put.Args) != 2 {
		t.Fatalf("put = %+v", put)
	}

	get := svc.Functions[1]
	if get.Void || get.ReturnType == nil || get.ReturnType.Kind != token.StringType {
		t.Fatalf("get = %+v", get)
	}
	if len(get.Throws) != 1 || get.Throws[0].Type.Name != "NotFound" {
		t.Fatalf("get.Throws = %+v", get.Throws)
	}

	notify := svc.Functions[2]
	if !notify.Oneway || !notify.Void {
		t.Fatalf("notify = %+v", notify)
	}
}

func TestParseContainerTypes(t *testing.T) {
	doc, err := parser.ParseString("test", `
struct Bag {
  1: list<string> tags,
  2: set<i32> ids,
  3: map<string, i32> counts
}
`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	fields := doc.Structs[0].Fields

	tags := fields[0].Type
	if tags.Container != "list" || tags.Elem == nil || tags.Elem.Kind != token.StringType {
		t.Fatalf("tags type = %+v", tags)
	}

	ids := fields[1].Type
	if ids.Container != "set" || ids.Elem == nil || ids.Elem.Kind != token.I32 {
		t.Fatalf("ids type = %+v", ids)
	}

	counts := fields[2].Type
	if counts.Key == nil || counts.Key.Kind != token.StringType || counts.Value == nil || counts.Value.Kind != token.I32 {
		t.Fatalf("counts type = %+v", counts)
	}
}

func TestParseIncludeAndNamespace(t *testing.T) {
	doc, err := parser.ParseString("test", `
namespace go example.thing
include "shared.thrift"
cpp_include "shared.h"
`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if len(doc.Namespaces) != 1 || doc.Namespaces[0].Scope != "go" || doc.Namespaces[0].Name != "example.thing" {
		t.Fatalf("got namespaces %+v", doc.Namespaces)
	}
	if len(doc.Includes) != 2 {
		t.Fatalf("got %d includes, want 2", len(doc.Includes))
	}
	if doc.Includes[0].Path != "shared.thrift" || doc.Includes[0].CppOnly {
		t.Fatalf("got include[0] %+v", doc.Includes[0])
	}
	if doc.Includes[1].Path != "shared.h" || !doc.Includes[1].CppOnly {
		t.Fatalf("got include[1] %+v", doc.Includes[1])
	}
}

func TestParseHexIntegerLiterals(t *testing.T) {
	doc, err := parser.ParseString("test", `
const i32 FLAGS = 0xFF
const i32 NEG_FLAGS = -0x10
`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if len(doc.Consts) != 2 {
		t.Fatalf("got %d consts, want 2", len(doc.Consts))
	}
	if doc.Consts[0].Value.Kind != ast.LitInt || doc.Consts[0].Value.Int != 0xFF {
		t.Fatalf("FLAGS = %+v, want 255", doc.Consts[0].Value)
	}
	if doc.Consts[1].Value.Kind != ast.LitInt || doc.Consts[1].Value.Int != -0x10 {
		t.Fatalf("NEG_FLAGS = %+v, want -16", doc.Consts[1].Value)
	}
}

func TestParseConstListAndMapLiterals(t *testing.T) {
	doc, err := parser.ParseString("test", `
const list<string> NAMES = ["a", "b", "c"]
const map<string, i32> SCORES = {"x": 1, "y": 2}
`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if len(doc.Consts) != 2 {
		t.Fatalf("got %d consts, want 2", len(doc.Consts))
	}

	names := doc.Consts[0]
	if names.Value.Kind != ast.LitList || len(names.Value.List) != 3 {
		t.Fatalf("NAMES = %+v", names.Value)
	}

	scores := doc.Consts[1]
	if scores.Value.Kind != ast.LitMap || len(scores.Value.MapKeys) != 2 {
		t.Fatalf("SCORES = %+v", scores.Value)
	}
}

func TestParseSyntaxErrorReportsPosition(t *testing.T) {
	_, err := parser.ParseString("test", `struct Foo { 1 required string name }`)
	if err == nil {
		t.Fatal("expected a parse error for a missing colon after the field id")
	}
	perr, ok := err.(*parser.ParseError)
	if !ok {
		t.Fatalf("expected *parser.ParseError, got %T: %v", err, err)
	}
	if perr.Position.Line != 1 || perr.Position.Column != 16 {
		t.Fatalf("got position %s, want line 1 column 16 (the token after the field id)", perr.Position)
	}
}

func TestParseMissingFieldIDIsAllowed(t *testing.T) {
	doc, err := parser.ParseString("test", `struct Foo { string name, string email }`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if doc.Structs[0].Fields[0].HasID {
		t.Fatal("expected HasID=false when the source omits an explicit field id")
	}
}
