package codegen

// runtimeHead opens the generated runtime script: the transpiled module
// constructor, the guest-visible function table, the exports table, and the
// script-side heap with its monotonically increasing id counter.
const runtimeHead = `--!native
--!optimize 2
local WASM_CTOR = require(script.Parent.wasm)
local WASM_FUNCS = {}
local WASM_EXPORTS = {}
local HEAP, HEAP_ID = {}, 0
local WASM, MEMORY, WASM_STACK`

// runtimeTail instantiates the module once the function table is fully
// populated, then binds the memory and shadow stack references.
const runtimeTail = `WASM = WASM_CTOR({ luau = { func_list = WASM_FUNCS } })
MEMORY = WASM.memory_list.memory
WASM_STACK = WASM.global_list.__stack_pointer`

// RuntimeHeader renders the fixed preamble of the runtime script.
type RuntimeHeader struct{}

func (RuntimeHeader) Render(e *Emitter) error {
	return e.Linef("%s", runtimeHead)
}

func (RuntimeHeader) Inputs() int  { return 0 }
func (RuntimeHeader) Outputs() int { return 0 }

// RuntimeTail renders module instantiation, the main-function invocations,
// and the exports table return.
type RuntimeTail struct {
	MainNames []string
}

func (t RuntimeTail) Render(e *Emitter) error {
	if err := e.Linef("%s", runtimeTail); err != nil {
		return err
	}

	for _, name := range t.MainNames {
		if err := e.Linef("WASM.func_list.%s()", name); err != nil {
			return err
		}
	}

	return e.Linef("return WASM_EXPORTS")
}

func (t RuntimeTail) Inputs() int  { return 0 }
func (t RuntimeTail) Outputs() int { return 0 }
