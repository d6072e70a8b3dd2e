package codegen_test

import (
	"bytes"
	"testing"

	"github.com/roblox-rs/bindgen/codegen"
	"github.com/roblox-rs/bindgen/metadata"
)

var testIntrinsics = []metadata.Intrinsic{
	{Name: "alloc", ExportName: "__alloc"},
	{Name: "free", ExportName: "__free"},
}

func newTestEmitter() (*codegen.Emitter, *bytes.Buffer) {
	var buf bytes.Buffer
	return codegen.NewEmitter(&buf, testIntrinsics), &buf
}

func TestEmitterStack(t *testing.T) {
	e, _ := newTestEmitter()

	e.Push("a")
	e.Push("b")
	e.Push("c")
	if e.Depth() != 3 {
		t.Fatalf("Depth = %d", e.Depth())
	}

	if got := e.Pop(); got != "c" {
		t.Errorf("Pop = %q", got)
	}
	got := e.PopN(2)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("PopN = %v", got)
	}
	if e.Depth() != 0 {
		t.Errorf("Depth = %d", e.Depth())
	}
}

func TestPopComplexIdentifierPassesThrough(t *testing.T) {
	e, buf := newTestEmitter()

	e.Push("value_7")
	got, err := e.PopComplex()
	if err != nil {
		t.Fatalf("PopComplex: %v", err)
	}
	if got != "value_7" {
		t.Errorf("PopComplex = %q", got)
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestPopComplexHoistsExpressions(t *testing.T) {
	e, buf := newTestEmitter()

	e.Push("f(x)")
	got, err := e.PopComplex()
	if err != nil {
		t.Fatalf("PopComplex: %v", err)
	}
	if got != "prereq_0" {
		t.Errorf("PopComplex = %q", got)
	}
	if want := "local prereq_0 = f(x)\n"; buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestIntrinsicsTracking(t *testing.T) {
	e, _ := newTestEmitter()

	if e.Intrinsics.IsUsed("alloc") {
		t.Error("alloc used before any request")
	}

	name, err := e.Intrinsics.Get("alloc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if name != "__alloc" {
		t.Errorf("Get = %q", name)
	}
	if !e.Intrinsics.IsUsed("alloc") {
		t.Error("alloc not marked used")
	}
	if e.Intrinsics.IsUsed("free") {
		t.Error("free marked used")
	}

	if _, err := e.Intrinsics.Get("realloc"); err == nil {
		t.Error("unknown intrinsic accepted")
	}
}

func TestRenderAssertsStackEffect(t *testing.T) {
	e, _ := newTestEmitter()

	// PushConst declares 0 -> 1 and behaves accordingly.
	if err := e.Render(codegen.PushConst{Value: "nil"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if e.Depth() != 1 {
		t.Errorf("Depth = %d", e.Depth())
	}
}
