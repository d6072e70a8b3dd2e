package codegen

import (
	"strings"

	"github.com/roblox-rs/bindgen/describe"
)

// CreateExport renders a script-visible function that dispatches into the
// guest: one script parameter per declared argument, body instruction in
// between, single converted return value.
type CreateExport struct {
	LuauName string
	Params   []describe.Desc
	Body     Instruction
}

func (c CreateExport) Render(e *Emitter) error {
	e.Vars.Scope()
	defer e.Vars.Unscope()

	params := e.Vars.Many(len(c.Params), "param")

	if err := e.Textf("WASM_EXPORTS[%q] = function(", c.LuauName); err != nil {
		return err
	}
	if err := e.List(params); err != nil {
		return err
	}
	if err := e.Openf(")"); err != nil {
		return err
	}

	e.PushAll(params)

	if err := c.Body.Render(e); err != nil {
		return err
	}

	if c.Body.Outputs() > 0 {
		value := e.Pop()
		if err := e.Linef("return %s", value); err != nil {
			return err
		}
	}
	return e.Closef("end")
}

func (c CreateExport) Inputs() int  { return 0 }
func (c CreateExport) Outputs() int { return 0 }

// ExportBlock converts its inputs from script values to guest slots, runs
// the body, and converts the body's outputs back to a script value.
type ExportBlock struct {
	Params []describe.Desc
	Output *describe.Desc
	Body   Instruction
}

func (b ExportBlock) Render(e *Emitter) error {
	inputs := e.PopN(len(b.Params))

	for i := range b.Params {
		e.Push(inputs[i])
		if err := (LuauToGuest{Type: &b.Params[i]}).Render(e); err != nil {
			return err
		}
	}

	if err := b.Body.Render(e); err != nil {
		return err
	}

	// Void-returning exports produce no value at all.
	if b.Output.Kind != describe.KindVoid {
		if err := (GuestToLuau{Type: b.Output}).Render(e); err != nil {
			return err
		}
	}

	return nil
}

func (b ExportBlock) Inputs() int { return len(b.Params) }

func (b ExportBlock) Outputs() int {
	if b.Output.Kind == describe.KindVoid {
		return 0
	}
	return 1
}

// InvokeGuestFunction calls a guest export with the slot expressions on the
// stack. Returns with more than one slot are spilled through the guest
// shadow stack: the stack pointer is decremented by the aligned return
// size, the spill pointer is passed as a leading argument, and each
// primitive is read back at its aligned offset before the pointer is
// restored.
type InvokeGuestFunction struct {
	FunctionName string
	Params       []describe.Desc
	Output       *describe.Desc
}

func (c InvokeGuestFunction) Render(e *Emitter) error {
	outputSize := c.Output.MemorySize()
	outputCount := c.Output.ValueCount()

	var inputs []string
	var spillPtr string
	if outputCount > 1 {
		spillPtr = e.Vars.Next("spill")
		inputs = append(inputs, spillPtr)
	}

	var parameterInputs [][]string
	for i := len(c.Params) - 1; i >= 0; i-- {
		parameterInputs = append(parameterInputs, e.PopN(c.Params[i].ValueCount()))
	}
	for i := len(parameterInputs) - 1; i >= 0; i-- {
		inputs = append(inputs, parameterInputs[i]...)
	}

	outputNames := e.Vars.Many(outputCount, "output")
	if outputCount != 0 {
		e.PushAll(outputNames)

		if spillPtr != "" {
			if err := e.Linef("local %s = WASM_STACK.value - %d", spillPtr, outputSize); err != nil {
				return err
			}
			if err := e.Linef("WASM_STACK.value = %s", spillPtr); err != nil {
				return err
			}
		} else {
			if err := e.Textf("local %s = ", strings.Join(outputNames, ", ")); err != nil {
				return err
			}
		}
	}

	if err := e.Linef("WASM.func_list.%s(%s)", c.FunctionName, strings.Join(inputs, ", ")); err != nil {
		return err
	}

	if spillPtr != "" {
		e.Push(spillPtr)
		if err := (PullMemory{Primitives: c.Output.Primitives()}).Render(e); err != nil {
			return err
		}

		exprs := e.PopN(outputCount)
		for i, name := range outputNames {
			if err := e.Linef("local %s = %s", name, exprs[i]); err != nil {
				return err
			}
		}

		if err := e.Linef("WASM_STACK.value = %s + %d", spillPtr, outputSize); err != nil {
			return err
		}
	}

	return nil
}

func (c InvokeGuestFunction) Inputs() int {
	sum := 0
	for i := range c.Params {
		sum += c.Params[i].ValueCount()
	}
	return sum
}

func (c InvokeGuestFunction) Outputs() int { return c.Output.ValueCount() }
