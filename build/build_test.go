package build_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roblox-rs/bindgen/build"
	"github.com/roblox-rs/bindgen/describe"
	"github.com/roblox-rs/bindgen/metadata"
	"github.com/roblox-rs/bindgen/wasm"
)

// captureTranspiler records the rewritten module bytes and writes a marker
// in place of real transpiler output.
type captureTranspiler struct {
	rewritten *[]byte
}

func (c captureTranspiler) Transpile(_ context.Context, wasmBytes []byte, w io.Writer) error {
	*c.rewritten = append([]byte(nil), wasmBytes...)
	_, err := io.WriteString(w, "return function(imports) end\n")
	return err
}

func describeBody(describeIdx uint32, tags ...int32) []byte {
	var buf bytes.Buffer
	for _, tag := range tags {
		buf.WriteByte(wasm.OpI32Const)
		wasm.WriteLEB128s(&buf, tag)
		buf.WriteByte(wasm.OpCall)
		wasm.WriteLEB128u(&buf, describeIdx)
	}
	buf.WriteByte(wasm.OpEnd)
	return buf.Bytes()
}

func nameSection(globals map[uint32]string) []byte {
	var entries bytes.Buffer
	wasm.WriteLEB128u(&entries, uint32(len(globals)))
	for idx, name := range globals {
		wasm.WriteLEB128u(&entries, idx)
		wasm.WriteLEB128u(&entries, uint32(len(name)))
		entries.WriteString(name)
	}

	var payload bytes.Buffer
	payload.WriteByte(7)
	wasm.WriteLEB128u(&payload, uint32(entries.Len()))
	payload.Write(entries.Bytes())
	return payload.Bytes()
}

// testWasm assembles a complete module: an echo export, a print import, the
// allocator intrinsics, and the describe machinery for all of them.
func testWasm(t *testing.T) []byte {
	t.Helper()

	meta := metadata.Encode(&metadata.Context{
		Imports: []metadata.Function{
			{RustName: "print", LuauName: "print", DescribeName: "__describe_print", ExportName: "__import_print"},
		},
		Exports: []metadata.Function{
			{RustName: "echo", LuauName: "echo", DescribeName: "__describe_echo", ExportName: "__export_echo"},
		},
		MainFns: []string{"main"},
		Intrinsics: []metadata.Intrinsic{
			{Name: "alloc", ExportName: "__alloc"},
			{Name: "free", ExportName: "__free"},
		},
	})

	m := &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{wasm.ValI32}},
			{},
			{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}},
			{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}},
			{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32, wasm.ValI32}},
		},
		Imports: []wasm.Import{
			{Module: "roblox-rs", Name: "describe", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 0}},
			{Module: "env", Name: "__import_print", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 0}},
		},
		Funcs: []uint32{1, 2, 3, 4, 1},
		Code: []wasm.FuncBody{
			// 2: __describe_echo: fn(u32) -> u32
			{Code: describeBody(0, int32(describe.TagFunction), 1, int32(describe.TagU32), int32(describe.TagU32))},
			// 3: __export_echo
			{Code: []byte{wasm.OpLocalGet, 0x00, wasm.OpEnd}},
			// 4: __alloc
			{Code: []byte{wasm.OpI32Const, 0x00, wasm.OpEnd}},
			// 5: __free
			{Code: []byte{wasm.OpEnd}},
			// 6: __describe_print: fn(option<externref>) -> void
			{Code: describeBody(0,
				int32(describe.TagFunction), 1,
				int32(describe.TagOption), int32(describe.TagExternRef),
				int32(describe.TagVoid))},
		},
		Tables: []wasm.TableType{
			{ElemType: byte(wasm.ValFuncRef), Limits: wasm.Limits{Min: 1}},
		},
		Memories: []wasm.MemoryType{
			{Limits: wasm.Limits{Min: 1}},
		},
		Globals: []wasm.Global{
			{
				Type: wasm.GlobalType{ValType: wasm.ValI32, Mutable: true},
				Init: []byte{wasm.OpI32Const, 0x00, wasm.OpEnd},
			},
		},
		Exports: []wasm.Export{
			{Name: "memory", Kind: wasm.KindMemory, Idx: 0},
			{Name: "__describe_echo", Kind: wasm.KindFunc, Idx: 2},
			{Name: "__export_echo", Kind: wasm.KindFunc, Idx: 3},
			{Name: "__alloc", Kind: wasm.KindFunc, Idx: 4},
			{Name: "__free", Kind: wasm.KindFunc, Idx: 5},
			{Name: "__describe_print", Kind: wasm.KindFunc, Idx: 6},
		},
		CustomSections: []wasm.CustomSection{
			{Name: metadata.SectionName, Data: meta},
			{Name: wasm.NameSection, Data: nameSection(map[uint32]string{0: "__stack_pointer"})},
		},
	}

	return m.Encode()
}

func TestBuildEndToEnd(t *testing.T) {
	outDir := t.TempDir()
	var rewritten []byte

	err := build.Build(context.Background(), testWasm(t), build.Options{
		OutDir:     outDir,
		Transpiler: captureTranspiler{rewritten: &rewritten},
		Verify:     true,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, name := range []string{
		"default.project.json",
		filepath.Join("server", "runner.server.luau"),
		filepath.Join("server", "wasm.luau"),
		filepath.Join("server", "runtime.luau"),
	} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing artefact %s: %v", name, err)
		}
	}

	runtime, err := os.ReadFile(filepath.Join(outDir, "server", "runtime.luau"))
	if err != nil {
		t.Fatalf("read runtime: %v", err)
	}
	script := string(runtime)

	if !strings.HasPrefix(script, "--!native\n") {
		t.Error("runtime does not start with the header")
	}
	for _, fragment := range []string{
		"WASM_FUNCS['__import_print'] = function(",
		`WASM_EXPORTS["echo"] = function(`,
		"WASM.func_list.main()",
		"return WASM_EXPORTS",
	} {
		if !strings.Contains(script, fragment) {
			t.Errorf("runtime missing %q", fragment)
		}
	}

	// Imports render before exports, mains run last.
	importPos := strings.Index(script, "__import_print")
	exportPos := strings.Index(script, `WASM_EXPORTS["echo"]`)
	mainPos := strings.Index(script, "WASM.func_list.main()")
	if !(importPos < exportPos && exportPos < mainPos) {
		t.Errorf("runtime sections out of order: import=%d export=%d main=%d",
			importPos, exportPos, mainPos)
	}

	wasmLuau, err := os.ReadFile(filepath.Join(outDir, "server", "wasm.luau"))
	if err != nil {
		t.Fatalf("read wasm.luau: %v", err)
	}
	if !strings.HasPrefix(string(wasmLuau), "--!optimize 2\n") {
		t.Error("wasm.luau missing optimize header")
	}

	module, err := wasm.ParseModule(rewritten)
	if err != nil {
		t.Fatalf("parse rewritten module: %v", err)
	}

	// The metadata and name sections were consumed.
	if len(module.CustomSections) != 0 {
		t.Errorf("custom sections remain: %+v", module.CustomSections)
	}

	// Consumed describe machinery and unused intrinsics are gone; the
	// canonical artefacts are exported.
	for _, name := range []string{"__describe_echo", "__describe_print", "__alloc", "__free"} {
		if module.FindExport(name) != nil {
			t.Errorf("export %s still present", name)
		}
	}
	for _, name := range []string{"__export_echo", "memory", "__stack_pointer", "__func_table"} {
		if module.FindExport(name) == nil {
			t.Errorf("export %s missing", name)
		}
	}

	// Dead-code elimination removed everything but the echo trampoline.
	if len(module.Funcs) != 1 {
		t.Errorf("local funcs = %d, want 1", len(module.Funcs))
	}
}

// Intrinsics the generator never references must exist so their exports can
// be deleted; a missing one is a build-time invariant violation.
func TestBuildMissingIntrinsicExport(t *testing.T) {
	data := testWasm(t)
	module, err := wasm.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	module.RemoveExports(map[string]bool{"__alloc": true})

	var rewritten []byte
	err = build.Build(context.Background(), module.Encode(), build.Options{
		OutDir:     t.TempDir(),
		Transpiler: captureTranspiler{rewritten: &rewritten},
	})
	if err == nil {
		t.Error("Build succeeded with a missing intrinsic export")
	}
}

func TestBuildRejectsGarbage(t *testing.T) {
	err := build.Build(context.Background(), []byte("not a wasm module"), build.Options{
		OutDir: t.TempDir(),
	})
	if err == nil {
		t.Error("Build accepted garbage input")
	}
}
