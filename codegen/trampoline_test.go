package codegen_test

import (
	"strings"
	"testing"

	"github.com/roblox-rs/bindgen/codegen"
	"github.com/roblox-rs/bindgen/describe"
)

func renderBinding(t *testing.T, instr codegen.Instruction) string {
	t.Helper()
	e, buf := newTestEmitter()
	if err := e.Render(instr); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if e.Depth() != 0 {
		t.Fatalf("emitter stack depth %d after binding", e.Depth())
	}
	return buf.String()
}

// Export with a spilled two-slot return: the trampoline allocates the
// aligned return size on the shadow stack, passes the spill pointer first,
// reads each primitive back at its aligned offset, and restores the stack
// pointer.
func TestExportTrampolineSpilledOption(t *testing.T) {
	output := nested(describe.KindOption, simple(describe.KindU32))
	params := []describe.Desc{*simple(describe.KindU32)}

	got := renderBinding(t, codegen.CreateExport{
		LuauName: "echo_non_zero",
		Params:   params,
		Body: codegen.ExportBlock{
			Params: params,
			Output: output,
			Body: codegen.InvokeGuestFunction{
				FunctionName: "__export_echo_non_zero",
				Params:       params,
				Output:       output,
			},
		},
	})

	want := strings.Join([]string{
		`WASM_EXPORTS["echo_non_zero"] = function(param_0)`,
		"\tlocal spill_0 = WASM_STACK.value - 8",
		"\tWASM_STACK.value = spill_0",
		"\tWASM.func_list.__export_echo_non_zero(spill_0, param_0)",
		"\tlocal output_0 = buffer.readu8(MEMORY.data, spill_0 + 0)",
		"\tlocal output_1 = buffer.readu32(MEMORY.data, spill_0 + 4)",
		"\tWASM_STACK.value = spill_0 + 8",
		"\tlocal optional_0",
		"\tif output_0 == 1 then",
		"\t\toptional_0 = output_1",
		"\tend",
		"\treturn optional_0",
		"end",
	}, "\n") + "\n"

	if got != want {
		t.Errorf("rendered:\n%s\nwant:\n%s", got, want)
	}
}

// Export with a single return slot receives the value directly.
func TestExportTrampolineSingleSlot(t *testing.T) {
	output := simple(describe.KindU32)
	params := []describe.Desc{*simple(describe.KindU32)}

	got := renderBinding(t, codegen.CreateExport{
		LuauName: "double",
		Params:   params,
		Body: codegen.ExportBlock{
			Params: params,
			Output: output,
			Body: codegen.InvokeGuestFunction{
				FunctionName: "__export_double",
				Params:       params,
				Output:       output,
			},
		},
	})

	want := strings.Join([]string{
		`WASM_EXPORTS["double"] = function(param_0)`,
		"\tlocal output_0 = WASM.func_list.__export_double(param_0)",
		"\treturn output_0",
		"end",
	}, "\n") + "\n"

	if got != want {
		t.Errorf("rendered:\n%s\nwant:\n%s", got, want)
	}
}

// Import with a two-slot scripted return: the guest supplies an out
// pointer; the discriminant byte lands at offset 0 and the f64 payload at
// its aligned offset 8, and the function returns nothing.
func TestImportTrampolineSpilledOption(t *testing.T) {
	output := nested(describe.KindOption, simple(describe.KindF64))
	params := []describe.Desc{*simple(describe.KindU32)}

	got := renderBinding(t, codegen.CreateImport{
		ExportName: "__import_rand",
		Params:     params,
		Output:     output,
		Body: codegen.ImportBlock{
			Params: params,
			Output: output,
			Body: codegen.InvokeLuauFunction{
				FunctionName:   "rand",
				ParameterCount: 1,
				ResultCount:    1,
			},
		},
	})

	want := strings.Join([]string{
		"WASM_FUNCS['__import_rand'] = function(ret_0, arg0_0)",
		"\tlocal result_0 = rand(arg0_0)",
		"\tlocal option_0 = 0",
		"\tlocal option_1 = 0",
		"\tif result_0 ~= nil then",
		"\t\toption_0 = 1",
		"\t\toption_1 = result_0",
		"\tend",
		"\tbuffer.writeu8(MEMORY.data, ret_0 + 0, option_0)",
		"\tbuffer.writef64(MEMORY.data, ret_0 + 8, option_1)",
		"end",
	}, "\n") + "\n"

	if got != want {
		t.Errorf("rendered:\n%s\nwant:\n%s", got, want)
	}
}

// Import taking option<externref> and returning nothing: the trampoline
// reads the discriminant, takes the heap entry when set, and calls the
// script function with nil otherwise.
func TestImportTrampolineOptionExternRef(t *testing.T) {
	output := simple(describe.KindVoid)
	params := []describe.Desc{*nested(describe.KindOption, simple(describe.KindExternRef))}

	got := renderBinding(t, codegen.CreateImport{
		ExportName: "__import_print",
		Params:     params,
		Output:     output,
		Body: codegen.ImportBlock{
			Params: params,
			Output: output,
			Body: codegen.InvokeLuauFunction{
				FunctionName:   "print",
				ParameterCount: 1,
				ResultCount:    0,
			},
		},
	})

	want := strings.Join([]string{
		"WASM_FUNCS['__import_print'] = function(arg0_0, arg0_1)",
		"\tlocal optional_0",
		"\tif arg0_0 == 1 then",
		"\t\tlocal value_0 = HEAP[arg0_1]",
		"\t\tHEAP[arg0_1] = nil",
		"\t\toptional_0 = value_0",
		"\tend",
		"\tprint(optional_0)",
		"end",
	}, "\n") + "\n"

	if got != want {
		t.Errorf("rendered:\n%s\nwant:\n%s", got, want)
	}
}

// Import with a single-slot return: a plain multi-value return, no spill.
func TestImportTrampolineSingleReturn(t *testing.T) {
	output := simple(describe.KindU32)
	params := []describe.Desc{*simple(describe.KindU32)}

	got := renderBinding(t, codegen.CreateImport{
		ExportName: "__import_next",
		Params:     params,
		Output:     output,
		Body: codegen.ImportBlock{
			Params: params,
			Output: output,
			Body: codegen.InvokeLuauFunction{
				FunctionName:   "next_value",
				ParameterCount: 1,
				ResultCount:    1,
			},
		},
	})

	want := strings.Join([]string{
		"WASM_FUNCS['__import_next'] = function(arg0_0)",
		"\tlocal result_0 = next_value(arg0_0)",
		"\treturn result_0",
		"end",
	}, "\n") + "\n"

	if got != want {
		t.Errorf("rendered:\n%s\nwant:\n%s", got, want)
	}
}

// Export returning an owned vector: read each element at its stride, then
// free the allocation with the same byte size and alignment.
func TestExportTrampolineVectorReturn(t *testing.T) {
	output := nested(describe.KindVector, simple(describe.KindU32))

	got := renderBinding(t, codegen.CreateExport{
		LuauName: "get_values",
		Params:   nil,
		Body: codegen.ExportBlock{
			Params: nil,
			Output: output,
			Body: codegen.InvokeGuestFunction{
				FunctionName: "__export_get_values",
				Params:       nil,
				Output:       output,
			},
		},
	})

	for _, fragment := range []string{
		`WASM_EXPORTS["get_values"] = function()`,
		"local spill_0 = WASM_STACK.value - 8",
		"WASM.func_list.__export_get_values(spill_0)",
		"local vector_0 = table.create(output_1)",
		"for i = 1, output_1 do",
		"table.insert(vector_0, buffer.readu32(MEMORY.data, output_0 + (i - 1) * 4 + 0))",
		"WASM.func_list.__free(output_0, output_1 * 4, 4)",
		"return vector_0",
	} {
		if !strings.Contains(got, fragment) {
			t.Errorf("rendered output missing %q:\n%s", fragment, got)
		}
	}
}

// Void-returning exports emit no return statement.
func TestExportTrampolineVoid(t *testing.T) {
	output := simple(describe.KindVoid)

	got := renderBinding(t, codegen.CreateExport{
		LuauName: "tick",
		Params:   nil,
		Body: codegen.ExportBlock{
			Params: nil,
			Output: output,
			Body: codegen.InvokeGuestFunction{
				FunctionName: "__export_tick",
				Params:       nil,
				Output:       output,
			},
		},
	})

	want := strings.Join([]string{
		`WASM_EXPORTS["tick"] = function()`,
		"\tWASM.func_list.__export_tick()",
		"end",
	}, "\n") + "\n"

	if got != want {
		t.Errorf("rendered:\n%s\nwant:\n%s", got, want)
	}
}

func TestRuntimeHeaderAndTail(t *testing.T) {
	e, buf := newTestEmitter()

	if err := e.Render(codegen.RuntimeHeader{}); err != nil {
		t.Fatalf("Render header: %v", err)
	}
	if err := e.Render(codegen.RuntimeTail{MainNames: []string{"main"}}); err != nil {
		t.Fatalf("Render tail: %v", err)
	}

	got := buf.String()
	for _, fragment := range []string{
		"local WASM_CTOR = require(script.Parent.wasm)",
		"local WASM_FUNCS = {}",
		"local WASM_EXPORTS = {}",
		"local HEAP, HEAP_ID = {}, 0",
		"WASM = WASM_CTOR({ luau = { func_list = WASM_FUNCS } })",
		"MEMORY = WASM.memory_list.memory",
		"WASM_STACK = WASM.global_list.__stack_pointer",
		"WASM.func_list.main()",
		"return WASM_EXPORTS",
	} {
		if !strings.Contains(got, fragment) {
			t.Errorf("runtime missing %q", fragment)
		}
	}

	// Mains run after instantiation and before the exports table return.
	ctor := strings.Index(got, "WASM_CTOR({")
	main := strings.Index(got, "WASM.func_list.main()")
	ret := strings.Index(got, "return WASM_EXPORTS")
	if !(ctor < main && main < ret) {
		t.Errorf("runtime tail out of order: ctor=%d main=%d return=%d", ctor, main, ret)
	}
}
