package codegen

import (
	"fmt"

	"github.com/roblox-rs/bindgen/describe"
)

// CreateImport renders a guest-facing function in the WASM_FUNCS table: one
// script parameter per guest ABI slot, plus a leading out-pointer parameter
// when the scripted return has more than one slot.
type CreateImport struct {
	ExportName string
	Params     []describe.Desc
	Output     *describe.Desc
	Body       Instruction
}

func (c CreateImport) Render(e *Emitter) error {
	e.Vars.Scope()
	defer e.Vars.Unscope()

	needsSpill := c.Body.Outputs() > 1

	var parameterDefs []string
	var outParam string
	if needsSpill {
		outParam = e.Vars.Next("ret")
		parameterDefs = append(parameterDefs, outParam)
	}

	i := 0
	for p := range c.Params {
		if c.Params[p].ValueCount() == 0 {
			continue
		}
		names := splat(&c.Params[p], e, fmt.Sprintf("arg%d", i))
		parameterDefs = append(parameterDefs, names...)
		e.PushAll(names)
		i++
	}

	if err := e.Textf("WASM_FUNCS['%s'] = function(", c.ExportName); err != nil {
		return err
	}
	if err := e.List(parameterDefs); err != nil {
		return err
	}
	if err := e.Openf(")"); err != nil {
		return err
	}

	if err := c.Body.Render(e); err != nil {
		return err
	}

	if needsSpill {
		e.Push(outParam)
		if err := (WriteMemory{Primitives: c.Output.Primitives()}).Render(e); err != nil {
			return err
		}
	} else if outputs := c.Body.Outputs(); outputs > 0 {
		if err := e.Textf("return "); err != nil {
			return err
		}
		if err := e.List(e.PopN(outputs)); err != nil {
			return err
		}
		if err := e.Linef(""); err != nil {
			return err
		}
	}

	return e.Closef("end")
}

func (c CreateImport) Inputs() int  { return 0 }
func (c CreateImport) Outputs() int { return 0 }

// splat allocates one parameter name per ABI slot of the type.
func splat(d *describe.Desc, e *Emitter, stem string) []string {
	count := d.ValueCount()
	if count == 1 {
		return []string{e.Vars.Next(stem)}
	}
	return e.Vars.Many(count, stem)
}

// InvokeLuauFunction calls the user-provided script function with the
// converted values on the stack, capturing its return values.
type InvokeLuauFunction struct {
	FunctionName   string
	ParameterCount int
	ResultCount    int
}

func (c InvokeLuauFunction) Render(e *Emitter) error {
	var outputs []string

	if c.ResultCount > 0 {
		names := e.Vars.Many(c.ResultCount, "result")
		if err := e.Textf("local "); err != nil {
			return err
		}
		if err := e.List(names); err != nil {
			return err
		}
		if err := e.Textf(" = "); err != nil {
			return err
		}
		outputs = names
	}

	if err := e.Textf("%s(", c.FunctionName); err != nil {
		return err
	}
	if err := e.List(e.PopN(c.ParameterCount)); err != nil {
		return err
	}
	if err := e.Linef(")"); err != nil {
		return err
	}

	e.PushAll(outputs)
	return nil
}

func (c InvokeLuauFunction) Inputs() int  { return c.ParameterCount }
func (c InvokeLuauFunction) Outputs() int { return c.ResultCount }

// ImportBlock converts its inputs from guest slots to script values, runs
// the body, and converts the body's output back to guest slots.
type ImportBlock struct {
	Params []describe.Desc
	Output *describe.Desc
	Body   Instruction
}

func (b ImportBlock) Render(e *Emitter) error {
	type paramSlots struct {
		ty    *describe.Desc
		names []string
	}

	var inputs []paramSlots
	for i := len(b.Params) - 1; i >= 0; i-- {
		names := e.PopN(b.Params[i].ValueCount())
		inputs = append(inputs, paramSlots{ty: &b.Params[i], names: names})
	}

	for i := len(inputs) - 1; i >= 0; i-- {
		e.PushAll(inputs[i].names)
		if err := (GuestToLuau{Type: inputs[i].ty}).Render(e); err != nil {
			return err
		}
	}

	if err := b.Body.Render(e); err != nil {
		return err
	}

	if b.Body.Outputs() != 0 {
		if err := (LuauToGuest{Type: b.Output}).Render(e); err != nil {
			return err
		}
	}

	return nil
}

func (b ImportBlock) Inputs() int {
	sum := 0
	for i := range b.Params {
		sum += b.Params[i].ValueCount()
	}
	return sum
}

func (b ImportBlock) Outputs() int { return b.Output.ValueCount() }
