package wasm

import (
	"bytes"
	"fmt"
)

// GCFunctions removes local functions that are unreachable from the module's
// roots (exports, start function, element segments, constant expressions)
// and remaps every function-index reference to the compacted index space.
// Imported functions are never removed.
func (m *Module) GCFunctions() error {
	numImported := uint32(m.NumImportedFuncs())
	numFuncs := numImported + uint32(len(m.Funcs))

	reachable := make([]bool, numFuncs)
	var worklist []uint32

	mark := func(idx uint32) {
		if idx < numFuncs && !reachable[idx] {
			reachable[idx] = true
			worklist = append(worklist, idx)
		}
	}

	for _, exp := range m.Exports {
		if exp.Kind == KindFunc {
			mark(exp.Idx)
		}
	}
	if m.Start != nil {
		mark(*m.Start)
	}
	for i := range m.Elements {
		for _, idx := range m.Elements[i].FuncIdxs {
			mark(idx)
		}
		for _, expr := range m.Elements[i].Exprs {
			if err := markExprFuncs(expr, mark); err != nil {
				return err
			}
		}
	}
	for i := range m.Globals {
		if err := markExprFuncs(m.Globals[i].Init, mark); err != nil {
			return err
		}
	}

	for len(worklist) > 0 {
		idx := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		body := m.LocalFuncBody(idx)
		if body == nil {
			continue // imported
		}
		instrs, err := DecodeInstructions(body.Code)
		if err != nil {
			return fmt.Errorf("function %d: %w", idx, err)
		}
		for _, instr := range instrs {
			if target, ok := instr.GetCallTarget(); ok {
				mark(target)
			}
		}
	}

	// Imported functions keep their indices; local functions compact.
	remap := make([]uint32, numFuncs)
	next := numImported
	removed := false
	for i := uint32(0); i < numFuncs; i++ {
		if i < numImported {
			remap[i] = i
			continue
		}
		if reachable[i] {
			remap[i] = next
			next++
		} else {
			removed = true
		}
	}
	if !removed {
		return nil
	}

	// Compact the function and code sections.
	var keptFuncs []uint32
	var keptCode []FuncBody
	for i := uint32(0); i < uint32(len(m.Funcs)); i++ {
		if reachable[numImported+i] {
			keptFuncs = append(keptFuncs, m.Funcs[i])
			keptCode = append(keptCode, m.Code[i])
		}
	}
	m.Funcs = keptFuncs
	m.Code = keptCode

	// Patch every function-index reference.
	for i := range m.Code {
		patched, err := remapCode(m.Code[i].Code, remap)
		if err != nil {
			return err
		}
		m.Code[i].Code = patched
	}
	for i := range m.Exports {
		if m.Exports[i].Kind == KindFunc {
			m.Exports[i].Idx = remap[m.Exports[i].Idx]
		}
	}
	if m.Start != nil {
		idx := remap[*m.Start]
		m.Start = &idx
	}
	for i := range m.Elements {
		for j, idx := range m.Elements[i].FuncIdxs {
			m.Elements[i].FuncIdxs[j] = remap[idx]
		}
		for j, expr := range m.Elements[i].Exprs {
			patched, err := remapCode(expr, remap)
			if err != nil {
				return err
			}
			m.Elements[i].Exprs[j] = patched
		}
	}
	for i := range m.Globals {
		patched, err := remapCode(m.Globals[i].Init, remap)
		if err != nil {
			return err
		}
		m.Globals[i].Init = patched
	}

	return nil
}

func markExprFuncs(expr []byte, mark func(uint32)) error {
	instrs, err := DecodeInstructions(expr)
	if err != nil {
		return err
	}
	for _, instr := range instrs {
		if target, ok := instr.GetCallTarget(); ok {
			mark(target)
		}
	}
	return nil
}

func remapCode(code []byte, remap []uint32) ([]byte, error) {
	instrs, err := DecodeInstructions(code)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for i := range instrs {
		switch imm := instrs[i].Imm.(type) {
		case CallImm:
			instrs[i].Imm = CallImm{Func: remap[imm.Func]}
		case RefFuncImm:
			instrs[i].Imm = RefFuncImm{Func: remap[imm.Func]}
		}
		EncodeInstructionTo(&buf, &instrs[i])
	}
	return buf.Bytes(), nil
}
