package codegen

import (
	"fmt"
	"io"
	"strings"

	"github.com/roblox-rs/bindgen/errors"
	"github.com/roblox-rs/bindgen/metadata"
)

// Instruction is one composable unit of code generation. Render may consume
// Inputs entries from the emitter's stack and leave Outputs entries behind;
// the balance is a checkable invariant the driver asserts per binding.
type Instruction interface {
	Render(e *Emitter) error
	Inputs() int
	Outputs() int
}

// Emitter is the shared rendering context: the indented output sink, the
// instruction stack of ABI slot expressions, the variable-name allocator,
// and the intrinsic registry.
type Emitter struct {
	out        *IndentedWriter
	inputs     []string
	Vars       *Vars
	Intrinsics *Intrinsics
}

// NewEmitter creates an emitter writing to w with the given intrinsic table.
func NewEmitter(w io.Writer, intrinsics []metadata.Intrinsic) *Emitter {
	return &Emitter{
		out:        NewIndentedWriter(w),
		Vars:       NewVars(),
		Intrinsics: &Intrinsics{table: intrinsics},
	}
}

// Depth returns the current instruction stack depth.
func (e *Emitter) Depth() int {
	return len(e.inputs)
}

// Push places an expression representing one ABI slot on the stack.
func (e *Emitter) Push(expr string) {
	e.inputs = append(e.inputs, expr)
}

// PushAll places expressions on the stack in order.
func (e *Emitter) PushAll(exprs []string) {
	e.inputs = append(e.inputs, exprs...)
}

// Pop removes and returns the top expression.
func (e *Emitter) Pop() string {
	if len(e.inputs) == 0 {
		panic("emitter: inputs is empty")
	}
	top := e.inputs[len(e.inputs)-1]
	e.inputs = e.inputs[:len(e.inputs)-1]
	return top
}

// PopN removes and returns the top count expressions in stack order.
func (e *Emitter) PopN(count int) []string {
	if count > len(e.inputs) {
		panic("emitter: inputs underflow")
	}
	split := len(e.inputs) - count
	out := append([]string(nil), e.inputs[split:]...)
	e.inputs = e.inputs[:split]
	return out
}

// Peek returns the expression depth positions down from the top (Peek(1) is
// the top) without popping.
func (e *Emitter) Peek(depth int) string {
	return e.inputs[len(e.inputs)-depth]
}

// PopComplex pops the top expression, hoisting it into a fresh local first
// when it is not a plain identifier, so it is evaluated exactly once.
func (e *Emitter) PopComplex() (string, error) {
	return e.HoistComplex(e.Pop())
}

// HoistComplex returns expr unchanged when it is a plain identifier, and
// otherwise emits a local binding and returns the local's name.
func (e *Emitter) HoistComplex(expr string) (string, error) {
	if isIdentifier(expr) {
		return expr, nil
	}
	name := e.Vars.Next("prereq")
	if err := e.Linef("local %s = %s", name, expr); err != nil {
		return "", err
	}
	return name, nil
}

func isIdentifier(expr string) bool {
	for _, r := range expr {
		alnum := r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !alnum {
			return false
		}
	}
	return true
}

// Textf writes formatted text with no trailing newline.
func (e *Emitter) Textf(format string, args ...any) error {
	_, err := fmt.Fprintf(e.out, format, args...)
	return err
}

// Linef writes a formatted line.
func (e *Emitter) Linef(format string, args ...any) error {
	_, err := fmt.Fprintf(e.out, format+"\n", args...)
	return err
}

// Openf writes a formatted line and increments indentation.
func (e *Emitter) Openf(format string, args ...any) error {
	_, err := fmt.Fprintf(e.out, format+"\n\x0E", args...)
	return err
}

// Closef decrements indentation and writes a formatted line.
func (e *Emitter) Closef(format string, args ...any) error {
	_, err := fmt.Fprintf(e.out, "\x0F"+format+"\n", args...)
	return err
}

// List writes expressions separated by commas.
func (e *Emitter) List(exprs []string) error {
	return e.Textf("%s", strings.Join(exprs, ", "))
}

// Render runs an instruction and asserts its declared stack effect.
func (e *Emitter) Render(instr Instruction) error {
	before := e.Depth()
	if err := instr.Render(e); err != nil {
		return err
	}
	want := before - instr.Inputs() + instr.Outputs()
	if e.Depth() != want {
		return errors.New(errors.PhaseCodegen, errors.KindStackImbalance).
			Detail("instruction %T: depth %d, want %d", instr, e.Depth(), want).
			Build()
	}
	return nil
}

// Intrinsics tracks which guest allocator entry points the generated code
// references. Unused intrinsics have their module exports removed after
// generation.
type Intrinsics struct {
	table []metadata.Intrinsic
	used  []string
}

// Get resolves a logical intrinsic name to its export symbol, marking it used.
func (in *Intrinsics) Get(name string) (string, error) {
	for _, candidate := range in.table {
		if candidate.Name == name {
			if !in.IsUsed(name) {
				in.used = append(in.used, name)
			}
			return candidate.ExportName, nil
		}
	}
	return "", errors.New(errors.PhaseCodegen, errors.KindMissingExport).
		Symbol(name).
		Detail("unknown intrinsic").
		Build()
}

// IsUsed reports whether the logical intrinsic name was requested.
func (in *Intrinsics) IsUsed(name string) bool {
	for _, used := range in.used {
		if used == name {
			return true
		}
	}
	return false
}

// PushConst pushes a constant expression.
type PushConst struct {
	Value string
}

func (p PushConst) Render(e *Emitter) error {
	e.Push(p.Value)
	return nil
}

func (p PushConst) Inputs() int  { return 0 }
func (p PushConst) Outputs() int { return 1 }
