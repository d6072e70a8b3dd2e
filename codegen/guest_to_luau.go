package codegen

import (
	"fmt"

	"github.com/roblox-rs/bindgen/describe"
	"github.com/roblox-rs/bindgen/errors"
)

// GuestToLuau converts the guest ABI slots of the given type on the stack
// into one script value. It dispatches on the descriptor.
type GuestToLuau struct {
	Type *describe.Desc
}

func (c GuestToLuau) Render(e *Emitter) error {
	switch c.Type.Kind {
	// These don't require conversion, so just pass the inputs along.
	case describe.KindF32, describe.KindF64,
		describe.KindU8, describe.KindU16, describe.KindU32,
		describe.KindI8, describe.KindI16, describe.KindI32:
		return nil
	case describe.KindExternRef:
		return GuestOwnedExternRefToLuau{}.Render(e)
	case describe.KindBool:
		return GuestBooleanToLuau{}.Render(e)
	case describe.KindOption:
		return GuestOptionToLuau{Type: c.Type.Elem}.Render(e)
	case describe.KindVector:
		return GuestVectorToLuau{Type: c.Type.Elem}.Render(e)
	case describe.KindVoid:
		return PushConst{Value: "nil"}.Render(e)
	case describe.KindString:
		return GuestOwnedStringToLuau{}.Render(e)
	case describe.KindRef, describe.KindRefMut:
		return GuestRefToLuau{Type: c.Type.Elem}.Render(e)
	default:
		return errors.Unsupported(errors.PhaseCodegen, "", c.Type.String())
	}
}

func (c GuestToLuau) Inputs() int  { return c.Type.ValueCount() }
func (c GuestToLuau) Outputs() int { return 1 }

// GuestRefToLuau dispatches a borrowed value to the non-owning conversion
// of its referent; the script side must not free guest-owned memory.
type GuestRefToLuau struct {
	Type *describe.Desc
}

func (c GuestRefToLuau) Render(e *Emitter) error {
	switch c.Type.Kind {
	case describe.KindString:
		return GuestRefStringToLuau{}.Render(e)
	case describe.KindSlice:
		return GuestSliceToLuau{Type: c.Type.Elem}.Render(e)
	case describe.KindExternRef:
		return GuestRefExternRefToLuau{}.Render(e)
	default:
		return errors.Unsupported(errors.PhaseCodegen, "", "&"+c.Type.String())
	}
}

func (c GuestRefToLuau) Inputs() int  { return c.Type.ValueCount() }
func (c GuestRefToLuau) Outputs() int { return 1 }

// GuestSliceToLuau reads a borrowed primitive slice into a fresh array.
type GuestSliceToLuau struct {
	Type *describe.Desc
}

func (c GuestSliceToLuau) Render(e *Emitter) error {
	slots := e.PopN(2)
	addr := slots[0]
	result := e.Vars.Next("slice")
	primitive := c.Type.Primitives()[0]
	length, err := e.HoistComplex(slots[1])
	if err != nil {
		return err
	}

	if err := e.Linef("local %s = table.create(%s)", result, length); err != nil {
		return err
	}
	if err := e.Openf("for i = 1, %s do", length); err != nil {
		return err
	}
	err = e.Linef("table.insert(%s, buffer.read%s(MEMORY.data, %s + (i - 1) * %d))",
		result, primitive.BufferName(), addr, primitive.ByteSize())
	if err != nil {
		return err
	}
	if err := e.Closef("end"); err != nil {
		return err
	}

	e.Push(result)
	return nil
}

func (c GuestSliceToLuau) Inputs() int  { return 2 }
func (c GuestSliceToLuau) Outputs() int { return 1 }

// GuestVectorToLuau reads an owned vector into a fresh array, converting
// each element, then frees the guest allocation.
type GuestVectorToLuau struct {
	Type *describe.Desc
}

func (c GuestVectorToLuau) Render(e *Emitter) error {
	slots := e.PopN(2)
	addr, err := e.HoistComplex(slots[0])
	if err != nil {
		return err
	}
	length, err := e.HoistComplex(slots[1])
	if err != nil {
		return err
	}
	result := e.Vars.Next("vector")
	free, err := e.Intrinsics.Get("free")
	if err != nil {
		return err
	}
	size := c.Type.MemorySize()

	if err := e.Linef("local %s = table.create(%s)", result, length); err != nil {
		return err
	}
	if err := e.Openf("for i = 1, %s do", length); err != nil {
		return err
	}

	e.Push(fmt.Sprintf("%s + (i - 1) * %d", addr, size))
	if err := (PullMemory{Primitives: c.Type.Primitives()}).Render(e); err != nil {
		return err
	}
	if err := (GuestToLuau{Type: c.Type}).Render(e); err != nil {
		return err
	}

	value := e.Pop()
	if err := e.Linef("table.insert(%s, %s)", result, value); err != nil {
		return err
	}
	if err := e.Closef("end"); err != nil {
		return err
	}

	if err := e.Linef("WASM.func_list.%s(%s, %s * %d, 4)", free, addr, length, size); err != nil {
		return err
	}

	e.Push(result)
	return nil
}

func (c GuestVectorToLuau) Inputs() int  { return 2 }
func (c GuestVectorToLuau) Outputs() int { return 1 }

// GuestRefStringToLuau reads a borrowed string without freeing it.
type GuestRefStringToLuau struct{}

func (GuestRefStringToLuau) Render(e *Emitter) error {
	slots := e.PopN(2)
	e.Push(fmt.Sprintf("buffer.readstring(MEMORY.data, %s, %s)", slots[0], slots[1]))
	return nil
}

func (GuestRefStringToLuau) Inputs() int  { return 2 }
func (GuestRefStringToLuau) Outputs() int { return 1 }

// GuestOwnedStringToLuau reads an owned string and frees the guest bytes
// with the same (ptr, len, align) triple used at allocation.
type GuestOwnedStringToLuau struct{}

func (GuestOwnedStringToLuau) Render(e *Emitter) error {
	slots := e.PopN(2)
	addr, err := e.HoistComplex(slots[0])
	if err != nil {
		return err
	}
	length, err := e.HoistComplex(slots[1])
	if err != nil {
		return err
	}
	result := e.Vars.Next("string")
	free, err := e.Intrinsics.Get("free")
	if err != nil {
		return err
	}

	e.Push(addr)
	e.Push(length)
	if err := (GuestRefStringToLuau{}).Render(e); err != nil {
		return err
	}

	readExpr := e.Pop()
	if err := e.Linef("local %s = %s", result, readExpr); err != nil {
		return err
	}
	if err := e.Linef("WASM.func_list.%s(%s, %s, 1)", free, addr, length); err != nil {
		return err
	}

	e.Push(result)
	return nil
}

func (GuestOwnedStringToLuau) Inputs() int  { return 2 }
func (GuestOwnedStringToLuau) Outputs() int { return 1 }

// GuestBooleanToLuau lifts a u32 carrier to a boolean.
type GuestBooleanToLuau struct{}

func (GuestBooleanToLuau) Render(e *Emitter) error {
	value := e.Pop()
	e.Push(fmt.Sprintf("%s ~= 0", value))
	return nil
}

func (GuestBooleanToLuau) Inputs() int  { return 1 }
func (GuestBooleanToLuau) Outputs() int { return 1 }

// GuestOptionToLuau reads the discriminant slot and converts the payload
// only when it is set, producing nil otherwise.
type GuestOptionToLuau struct {
	Type *describe.Desc
}

func (c GuestOptionToLuau) Render(e *Emitter) error {
	existence := e.Peek(c.Inputs())
	output := e.Vars.Next("optional")

	if err := e.Linef("local %s", output); err != nil {
		return err
	}
	if err := e.Openf("if %s == 1 then", existence); err != nil {
		return err
	}

	if err := (GuestToLuau{Type: c.Type}).Render(e); err != nil {
		return err
	}

	value := e.Pop()
	if err := e.Linef("%s = %s", output, value); err != nil {
		return err
	}
	if err := e.Closef("end"); err != nil {
		return err
	}

	// Pop the existence flag off, since we couldn't pop it earlier.
	e.Pop()
	e.Push(output)
	return nil
}

func (c GuestOptionToLuau) Inputs() int  { return 1 + c.Type.ValueCount() }
func (c GuestOptionToLuau) Outputs() int { return 1 }

// GuestOwnedExternRefToLuau takes the heap entry for the handle, clearing it.
type GuestOwnedExternRefToLuau struct{}

func (GuestOwnedExternRefToLuau) Render(e *Emitter) error {
	value, err := e.PopComplex()
	if err != nil {
		return err
	}
	result := e.Vars.Next("value")

	if err := e.Linef("local %s = HEAP[%s]", result, value); err != nil {
		return err
	}
	if err := e.Linef("HEAP[%s] = nil", value); err != nil {
		return err
	}

	e.Push(result)
	return nil
}

func (GuestOwnedExternRefToLuau) Inputs() int  { return 1 }
func (GuestOwnedExternRefToLuau) Outputs() int { return 1 }

// GuestRefExternRefToLuau reads the heap entry without clearing it.
type GuestRefExternRefToLuau struct{}

func (GuestRefExternRefToLuau) Render(e *Emitter) error {
	value := e.Pop()
	e.Push(fmt.Sprintf("HEAP[%s]", value))
	return nil
}

func (GuestRefExternRefToLuau) Inputs() int  { return 1 }
func (GuestRefExternRefToLuau) Outputs() int { return 1 }
