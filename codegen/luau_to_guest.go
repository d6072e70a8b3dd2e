package codegen

import (
	"fmt"

	"github.com/roblox-rs/bindgen/describe"
	"github.com/roblox-rs/bindgen/errors"
)

// LuauToGuest converts one script value on the stack into the guest ABI
// slots of the given type. It dispatches on the descriptor.
type LuauToGuest struct {
	Type *describe.Desc
}

func (c LuauToGuest) Render(e *Emitter) error {
	switch c.Type.Kind {
	// These don't require conversion, so just pass the inputs along.
	case describe.KindF32, describe.KindF64,
		describe.KindU8, describe.KindU16, describe.KindU32,
		describe.KindI8, describe.KindI16, describe.KindI32:
		return nil
	case describe.KindExternRef:
		return LuauExternRefToGuest{}.Render(e)
	case describe.KindBool:
		return LuauBooleanToGuest{}.Render(e)
	case describe.KindString:
		return LuauStringToGuest{}.Render(e)
	case describe.KindOption:
		return LuauOptionToGuest{Type: c.Type.Elem}.Render(e)
	case describe.KindVector:
		return LuauVectorToGuest{Type: c.Type.Elem}.Render(e)
	case describe.KindVoid:
		e.Pop()
		return nil
	default:
		return errors.Unsupported(errors.PhaseCodegen, "", c.Type.String())
	}
}

func (c LuauToGuest) Inputs() int  { return 1 }
func (c LuauToGuest) Outputs() int { return c.Type.ValueCount() }

// LuauBooleanToGuest lowers a boolean to its u32 carrier.
type LuauBooleanToGuest struct{}

func (LuauBooleanToGuest) Render(e *Emitter) error {
	value := e.Pop()
	e.Push(fmt.Sprintf("if %s then 1 else 0", value))
	return nil
}

func (LuauBooleanToGuest) Inputs() int  { return 1 }
func (LuauBooleanToGuest) Outputs() int { return 1 }

// LuauStringToGuest copies a script string into freshly allocated guest
// memory and produces (ptr, len).
type LuauStringToGuest struct{}

func (LuauStringToGuest) Render(e *Emitter) error {
	value, err := e.PopComplex()
	if err != nil {
		return err
	}
	result := e.Vars.Next("string")
	alloc, err := e.Intrinsics.Get("alloc")
	if err != nil {
		return err
	}

	if err := e.Linef("local %s = WASM.func_list.%s(#%s, 1)", result, alloc, value); err != nil {
		return err
	}
	if err := e.Linef("buffer.writestring(MEMORY.data, %s, %s)", result, value); err != nil {
		return err
	}

	e.Push(result)
	e.Push("#" + value)
	return nil
}

func (LuauStringToGuest) Inputs() int  { return 1 }
func (LuauStringToGuest) Outputs() int { return 2 }

// LuauVectorToGuest copies a script array into freshly allocated guest
// memory, converting each element, and produces (ptr, len).
type LuauVectorToGuest struct {
	Type *describe.Desc
}

func (c LuauVectorToGuest) Render(e *Emitter) error {
	vec, err := e.PopComplex()
	if err != nil {
		return err
	}
	target := e.Vars.Next("vec")
	alloc, err := e.Intrinsics.Get("alloc")
	if err != nil {
		return err
	}
	size := c.Type.MemorySize()

	if err := e.Linef("local %s = WASM.func_list.%s(#%s * %d, 4)", target, alloc, vec, size); err != nil {
		return err
	}
	if err := e.Openf("for i, v in ipairs(%s) do", vec); err != nil {
		return err
	}

	e.Push("v")
	if err := (LuauToGuest{Type: c.Type}).Render(e); err != nil {
		return err
	}

	e.Push(fmt.Sprintf("%s + (i - 1) * %d", target, size))
	if err := (WriteMemory{Primitives: c.Type.Primitives()}).Render(e); err != nil {
		return err
	}

	if err := e.Closef("end"); err != nil {
		return err
	}

	e.Push(target)
	e.Push("#" + vec)
	return nil
}

func (c LuauVectorToGuest) Inputs() int  { return 1 }
func (c LuauVectorToGuest) Outputs() int { return 2 }

// LuauOptionToGuest lowers an optional value: a discriminant slot followed
// by the payload slots, all zero when the value is nil.
type LuauOptionToGuest struct {
	Type *describe.Desc
}

func (c LuauOptionToGuest) Render(e *Emitter) error {
	value, err := e.PopComplex()
	if err != nil {
		return err
	}
	existence := e.Vars.Next("option")
	outputNames := e.Vars.Many(c.Type.ValueCount(), "option")

	if err := e.Linef("local %s = 0", existence); err != nil {
		return err
	}
	for _, name := range outputNames {
		if err := e.Linef("local %s = 0", name); err != nil {
			return err
		}
	}

	if err := e.Openf("if %s ~= nil then", value); err != nil {
		return err
	}
	if err := e.Linef("%s = 1", existence); err != nil {
		return err
	}

	e.Push(value)
	if err := (LuauToGuest{Type: c.Type}).Render(e); err != nil {
		return err
	}

	outputExprs := e.PopN(c.Type.ValueCount())
	for i, name := range outputNames {
		if err := e.Linef("%s = %s", name, outputExprs[i]); err != nil {
			return err
		}
	}

	if err := e.Closef("end"); err != nil {
		return err
	}

	e.Push(existence)
	e.PushAll(outputNames)
	return nil
}

func (c LuauOptionToGuest) Inputs() int  { return 1 }
func (c LuauOptionToGuest) Outputs() int { return 1 + c.Type.ValueCount() }

// LuauExternRefToGuest stores a script value in the heap table and produces
// the new handle id.
type LuauExternRefToGuest struct{}

func (LuauExternRefToGuest) Render(e *Emitter) error {
	heap := e.Vars.Next("heap")
	value := e.Pop()

	if err := e.Linef("HEAP_ID += 1"); err != nil {
		return err
	}
	if err := e.Linef("local %s = HEAP_ID", heap); err != nil {
		return err
	}
	if err := e.Linef("HEAP[HEAP_ID] = %s", value); err != nil {
		return err
	}

	e.Push(heap)
	return nil
}

func (LuauExternRefToGuest) Inputs() int  { return 1 }
func (LuauExternRefToGuest) Outputs() int { return 1 }
