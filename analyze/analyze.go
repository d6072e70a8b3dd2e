package analyze

import (
	"github.com/roblox-rs/bindgen/describe"
	"github.com/roblox-rs/bindgen/errors"
	"github.com/roblox-rs/bindgen/metadata"
	"github.com/roblox-rs/bindgen/wasm"
)

// BindingKind distinguishes the direction of a binding.
type BindingKind uint8

const (
	KindExport BindingKind = iota // script-visible function backed by the guest
	KindImport                    // guest-visible function backed by script code
	KindMain                      // entry point invoked after instantiation
)

// Binding is one resolved boundary function with its full signature.
type Binding struct {
	RustName   string
	LuauName   string
	ExportName string
	Params     []describe.Desc
	Result     *describe.Desc
	Kind       BindingKind
}

// Analysis is the result of reading a module's binding metadata: the
// bindings to generate, the consumed symbols to strip, and the module-level
// artefacts the generated script reaches into.
type Analysis struct {
	Meta    *metadata.Context
	Imports []Binding
	Exports []Binding
	Mains   []string

	// Consumed describe machinery, deleted after generation.
	RemovedExports map[string]bool
	RemovedFuncs   map[uint32]bool

	// Module-level artefacts, re-exported under canonical names.
	StackPointer *uint32 // global index
	FuncTable    *uint32 // table index
}

// Analyze decodes the metadata section, interprets every describe function,
// and classifies the declared bindings. The metadata and debug-name custom
// sections are consumed from the module.
func Analyze(m *wasm.Module) (*Analysis, error) {
	payload, ok := m.TakeCustomSection(metadata.SectionName)
	if !ok {
		payload = nil
	}
	meta, err := metadata.Decode(payload)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Meta:           meta,
		Mains:          meta.MainFns,
		RemovedExports: make(map[string]bool),
		RemovedFuncs:   make(map[uint32]bool),
	}

	describeIdx, hasDescribe := m.FindImportFunc(metadata.DescribeModule, metadata.DescribeImport)

	for _, export := range meta.Exports {
		desc, ok, err := a.interpretDescribe(m, describeIdx, hasDescribe, export.DescribeName)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		binding, err := makeBinding(export, desc, KindExport)
		if err != nil {
			return nil, err
		}
		a.Exports = append(a.Exports, binding)
	}

	for _, imp := range meta.Imports {
		desc, ok, err := a.interpretDescribe(m, describeIdx, hasDescribe, imp.DescribeName)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		// A valid declaration the guest never references: generate nothing.
		if !hasImportNamed(m, imp.ExportName) {
			continue
		}
		binding, err := makeBinding(imp, desc, KindImport)
		if err != nil {
			return nil, err
		}
		a.Imports = append(a.Imports, binding)
	}

	a.resolveArtefacts(m)

	return a, nil
}

func hasImportNamed(m *wasm.Module, name string) bool {
	for i := range m.Imports {
		if m.Imports[i].Desc.Kind == wasm.KindFunc && m.Imports[i].Name == name {
			return true
		}
	}
	return false
}

func makeBinding(fn metadata.Function, desc *describe.Desc, kind BindingKind) (Binding, error) {
	if desc.Kind != describe.KindFunction {
		return Binding{}, errors.BadDescribe(fn.DescribeName, "descriptor is not a function")
	}
	for i := range desc.Args {
		if err := desc.Args[i].Validate(fn.RustName); err != nil {
			return Binding{}, err
		}
	}
	if err := desc.Return.Validate(fn.RustName); err != nil {
		return Binding{}, err
	}
	return Binding{
		RustName:   fn.RustName,
		LuauName:   fn.LuauName,
		ExportName: fn.ExportName,
		Params:     desc.Args,
		Result:     desc.Return,
		Kind:       kind,
	}, nil
}

// interpretDescribe locates a describe function by its export symbol and
// interprets its body as a tiny constant-pushing program: every i32.const
// updates a single value register, every call to the describe import emits
// the register as the next tag. Any other instruction aborts the build.
func (a *Analysis) interpretDescribe(m *wasm.Module, describeIdx uint32, hasDescribe bool, symbol string) (*describe.Desc, bool, error) {
	export := m.FindExport(symbol)
	if export == nil || export.Kind != wasm.KindFunc {
		return nil, false, nil
	}
	body := m.LocalFuncBody(export.Idx)
	if body == nil {
		return nil, false, nil
	}
	if !hasDescribe {
		return nil, false, errors.BadDescribe(symbol, "module has no describe import")
	}

	a.RemovedExports[symbol] = true
	a.RemovedFuncs[export.Idx] = true

	instrs, err := wasm.DecodeInstructions(body.Code)
	if err != nil {
		return nil, false, errors.New(errors.PhaseAnalyze, errors.KindBadDescribe).
			Symbol(symbol).
			Cause(err).
			Build()
	}

	var tags []uint32
	var register uint32
	for _, instr := range instrs {
		switch imm := instr.Imm.(type) {
		case wasm.I32Imm:
			register = uint32(imm.Value)
		case wasm.CallImm:
			if imm.Func != describeIdx {
				return nil, false, errors.BadDescribe(symbol, "call to a function other than describe")
			}
			tags = append(tags, register)
		default:
			if instr.Opcode == wasm.OpEnd {
				continue
			}
			return nil, false, errors.BadDescribe(symbol, "unexpected instruction in description function")
		}
	}

	desc, err := describe.Parse(tags)
	if err != nil {
		return nil, false, err
	}
	return desc, true, nil
}

// resolveArtefacts locates the shadow stack pointer global (via the debug
// name section) and the main function table, so the driver can re-export
// them under their canonical names.
func (a *Analysis) resolveArtefacts(m *wasm.Module) {
	if data, ok := m.TakeCustomSection(wasm.NameSection); ok {
		if names, err := wasm.ParseNames(data); err == nil {
			if idx, ok := names.GlobalIndex("__stack_pointer"); ok {
				a.StackPointer = &idx
			}
		}
	}

	tableIdx := uint32(0)
	for i := range m.Imports {
		if m.Imports[i].Desc.Kind == wasm.KindTable {
			if m.Imports[i].Desc.Table.ElemType == byte(wasm.ValFuncRef) {
				a.FuncTable = &tableIdx
				return
			}
			tableIdx++
		}
	}
	for i := range m.Tables {
		if m.Tables[i].ElemType == byte(wasm.ValFuncRef) {
			idx := tableIdx + uint32(i)
			a.FuncTable = &idx
			return
		}
	}
}
