package wasm_test

import (
	"bytes"
	"testing"

	"github.com/roblox-rs/bindgen/wasm"
)

// One imported function, three local functions where the first is dead:
//
//	0: import
//	1: dead (no references)
//	2: exported "run", calls 3
//	3: helper
func gcModule() *wasm.Module {
	return &wasm.Module{
		Types: []wasm.FuncType{
			{},
		},
		Imports: []wasm.Import{
			{Module: "env", Name: "host", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 0}},
		},
		Funcs: []uint32{0, 0, 0},
		Code: []wasm.FuncBody{
			{Code: []byte{wasm.OpEnd}},
			{Code: []byte{wasm.OpCall, 0x03, wasm.OpEnd}},
			{Code: []byte{wasm.OpCall, 0x00, wasm.OpEnd}},
		},
		Exports: []wasm.Export{
			{Name: "run", Kind: wasm.KindFunc, Idx: 2},
		},
	}
}

func TestGCFunctionsRemovesDeadAndRemaps(t *testing.T) {
	m := gcModule()

	if err := m.GCFunctions(); err != nil {
		t.Fatalf("GCFunctions: %v", err)
	}

	if len(m.Funcs) != 2 || len(m.Code) != 2 {
		t.Fatalf("funcs/code = %d/%d, want 2/2", len(m.Funcs), len(m.Code))
	}

	// "run" was function 2, now function 1.
	if m.Exports[0].Idx != 1 {
		t.Errorf("export idx = %d, want 1", m.Exports[0].Idx)
	}

	// run's call to the helper (was 3) must now target 2.
	if !bytes.Equal(m.Code[0].Code, []byte{wasm.OpCall, 0x02, wasm.OpEnd}) {
		t.Errorf("run body = %v", m.Code[0].Code)
	}
	// The helper's call to the import is unchanged.
	if !bytes.Equal(m.Code[1].Code, []byte{wasm.OpCall, 0x00, wasm.OpEnd}) {
		t.Errorf("helper body = %v", m.Code[1].Code)
	}
}

func TestGCFunctionsKeepsElementRoots(t *testing.T) {
	m := gcModule()
	m.Elements = []wasm.Element{
		{
			Flags:    0,
			Offset:   []byte{wasm.OpI32Const, 0x00, wasm.OpEnd},
			FuncIdxs: []uint32{1},
		},
	}

	if err := m.GCFunctions(); err != nil {
		t.Fatalf("GCFunctions: %v", err)
	}

	// Function 1 is rooted by the element segment, nothing is removed.
	if len(m.Funcs) != 3 {
		t.Fatalf("funcs = %d, want 3", len(m.Funcs))
	}
	if m.Elements[0].FuncIdxs[0] != 1 {
		t.Errorf("element idx = %d, want 1", m.Elements[0].FuncIdxs[0])
	}
}

func TestGCFunctionsStartRoot(t *testing.T) {
	m := gcModule()
	start := uint32(1)
	m.Start = &start

	if err := m.GCFunctions(); err != nil {
		t.Fatalf("GCFunctions: %v", err)
	}

	if len(m.Funcs) != 3 {
		t.Errorf("funcs = %d, want 3", len(m.Funcs))
	}
}

func TestGCFunctionsNoChange(t *testing.T) {
	m := gcModule()
	m.Exports = append(m.Exports, wasm.Export{Name: "dead", Kind: wasm.KindFunc, Idx: 1})

	before := m.Encode()
	if err := m.GCFunctions(); err != nil {
		t.Fatalf("GCFunctions: %v", err)
	}
	if !bytes.Equal(m.Encode(), before) {
		t.Error("fully reachable module was modified")
	}
}
