package codegen

import (
	"fmt"

	"github.com/roblox-rs/bindgen/describe"
)

// PullMemory pops a base pointer and pushes one read expression per
// primitive, each at its self-aligned offset.
type PullMemory struct {
	Primitives []describe.Primitive
}

func (p PullMemory) Render(e *Emitter) error {
	ptr := e.Pop()

	if len(p.Primitives) > 1 {
		var err error
		ptr, err = e.HoistComplex(ptr)
		if err != nil {
			return err
		}
	}

	offset := uint32(0)
	for _, prim := range p.Primitives {
		alignedOffset := prim.NextAlign(offset)
		e.Push(fmt.Sprintf("buffer.read%s(MEMORY.data, %s + %d)", prim.BufferName(), ptr, alignedOffset))
		offset = alignedOffset + prim.ByteSize()
	}

	return nil
}

func (p PullMemory) Inputs() int  { return 1 }
func (p PullMemory) Outputs() int { return len(p.Primitives) }

// WriteMemory pops a base pointer and one value per primitive, and writes
// each value at its self-aligned offset.
type WriteMemory struct {
	Primitives []describe.Primitive
}

func (w WriteMemory) Render(e *Emitter) error {
	ptr := e.Pop()
	values := e.PopN(len(w.Primitives))

	if len(w.Primitives) > 1 {
		var err error
		ptr, err = e.HoistComplex(ptr)
		if err != nil {
			return err
		}
	}

	offset := uint32(0)
	for i, prim := range w.Primitives {
		alignedOffset := prim.NextAlign(offset)
		err := e.Linef("buffer.write%s(MEMORY.data, %s + %d, %s)",
			prim.BufferName(), ptr, alignedOffset, values[i])
		if err != nil {
			return err
		}
		offset = alignedOffset + prim.ByteSize()
	}

	return nil
}

func (w WriteMemory) Inputs() int  { return 1 + len(w.Primitives) }
func (w WriteMemory) Outputs() int { return 0 }
