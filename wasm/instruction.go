package wasm

import (
	"bytes"
	"fmt"
	"io"
)

// Instruction is a decoded instruction with its immediate operands.
// Sub carries the sub-opcode for 0xFC/0xFD prefixed instructions.
type Instruction struct {
	Imm    any
	Sub    uint32
	Opcode byte
}

// BlockImm holds the block type for block, loop, and if instructions.
type BlockImm struct {
	Type int64 // Encoded as s33: negative for value types, >=0 for type indices
}

// LabelImm holds a branch label depth.
type LabelImm struct {
	Label uint32
}

// BrTableImm holds branch table targets and default.
type BrTableImm struct {
	Labels  []uint32
	Default uint32
}

// CallImm holds the function index for call and return_call.
type CallImm struct {
	Func uint32
}

// CallIndirectImm holds type and table indices for call_indirect.
type CallIndirectImm struct {
	Type  uint32
	Table uint32
}

// VarImm holds a local, global, table, or memory index.
type VarImm struct {
	Idx uint32
}

// MemArg holds alignment and offset for memory access instructions.
type MemArg struct {
	Align  uint32
	Offset uint32
}

// I32Imm holds an i32.const value.
type I32Imm struct {
	Value int32
}

// I64Imm holds an i64.const value.
type I64Imm struct {
	Value int64
}

// F32Imm holds the raw little-endian bytes of an f32.const value.
type F32Imm struct {
	Bits [4]byte
}

// F64Imm holds the raw little-endian bytes of an f64.const value.
type F64Imm struct {
	Bits [8]byte
}

// RefNullImm holds the heap type for ref.null.
type RefNullImm struct {
	HeapType int64
}

// RefFuncImm holds the function index for ref.func.
type RefFuncImm struct {
	Func uint32
}

// SelectTypeImm holds the value types of a typed select.
type SelectTypeImm struct {
	Types []ValType
}

// MiscImm holds the index immediates of a 0xFC-prefixed instruction.
type MiscImm struct {
	Args []uint32
}

// SIMDMemImm is the memarg of a vector load/store.
type SIMDMemImm struct {
	Mem MemArg
}

// SIMDLaneImm is the lane index of a vector lane access.
type SIMDLaneImm struct {
	Lane byte
}

// SIMDMemLaneImm is the memarg plus lane of a vector load/store lane.
type SIMDMemLaneImm struct {
	Mem  MemArg
	Lane byte
}

// SIMDBytesImm is the 16-byte immediate of v128.const and i8x16.shuffle.
type SIMDBytesImm struct {
	Bytes [16]byte
}

// GetCallTarget returns the function index referenced by this instruction
// (call, return_call, ref.func), or false when it references none.
func (i Instruction) GetCallTarget() (uint32, bool) {
	switch imm := i.Imm.(type) {
	case CallImm:
		return imm.Func, true
	case RefFuncImm:
		return imm.Func, true
	}
	return 0, false
}

// DecodeInstructions decodes a function body or constant expression into
// instructions, including the terminating end opcode.
func DecodeInstructions(code []byte) ([]Instruction, error) {
	r := bytes.NewReader(code)
	var out []Instruction

	for r.Len() > 0 {
		op, err := r.ReadByte()
		if err != nil {
			return nil, err
		}

		instr := Instruction{Opcode: op}

		switch {
		case op == OpBlock || op == OpLoop || op == OpIf:
			t, err := ReadLEB128s64(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = BlockImm{Type: t}

		case op == OpBr || op == OpBrIf:
			label, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = LabelImm{Label: label}

		case op == OpBrTable:
			count, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			labels := make([]uint32, count)
			for i := range labels {
				labels[i], err = ReadLEB128u(r)
				if err != nil {
					return nil, err
				}
			}
			def, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = BrTableImm{Labels: labels, Default: def}

		case op == OpCall || op == OpReturnCall:
			f, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = CallImm{Func: f}

		case op == OpCallIndirect || op == OpReturnCallIndirect:
			typeIdx, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			tableIdx, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = CallIndirectImm{Type: typeIdx, Table: tableIdx}

		case op == OpSelectType:
			count, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			types := make([]ValType, count)
			for i := range types {
				b, err := r.ReadByte()
				if err != nil {
					return nil, err
				}
				types[i] = ValType(b)
			}
			instr.Imm = SelectTypeImm{Types: types}

		case op >= OpLocalGet && op <= OpTableSet:
			idx, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = VarImm{Idx: idx}

		case op >= OpI32Load && op <= OpI64Store32:
			align, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			offset, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = MemArg{Align: align, Offset: offset}

		case op == OpMemorySize || op == OpMemoryGrow:
			idx, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = VarImm{Idx: idx}

		case op == OpI32Const:
			v, err := ReadLEB128s(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = I32Imm{Value: v}

		case op == OpI64Const:
			v, err := ReadLEB128s64(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = I64Imm{Value: v}

		case op == OpF32Const:
			var b [4]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, err
			}
			instr.Imm = F32Imm{Bits: b}

		case op == OpF64Const:
			var b [8]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, err
			}
			instr.Imm = F64Imm{Bits: b}

		case op == OpRefNull:
			t, err := ReadLEB128s64(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = RefNullImm{HeapType: t}

		case op == OpRefFunc:
			f, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = RefFuncImm{Func: f}

		case op == OpPrefixMisc:
			sub, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Sub = sub
			argc, err := miscArgCount(sub)
			if err != nil {
				return nil, err
			}
			args := make([]uint32, argc)
			for i := range args {
				args[i], err = ReadLEB128u(r)
				if err != nil {
					return nil, err
				}
			}
			instr.Imm = MiscImm{Args: args}

		case op == OpPrefixSIMD:
			sub, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Sub = sub
			imm, err := readSIMDImm(r, sub)
			if err != nil {
				return nil, err
			}
			instr.Imm = imm

		default:
			if !opcodeHasNoImm(op) {
				return nil, fmt.Errorf("unknown opcode 0x%02x", op)
			}
		}

		out = append(out, instr)
	}

	return out, nil
}

func opcodeHasNoImm(op byte) bool {
	switch op {
	case OpUnreachable, OpNop, OpElse, OpEnd, OpReturn, OpDrop, OpSelect, OpRefIsNull:
		return true
	}
	return op >= OpNumericFirst && op <= OpNumericLast
}

func miscArgCount(sub uint32) (int, error) {
	switch sub {
	case MiscDataDrop, MiscElemDrop, MiscMemoryFill,
		MiscTableGrow, MiscTableSize, MiscTableFill:
		return 1, nil
	case MiscMemoryInit, MiscMemoryCopy, MiscTableInit, MiscTableCopy:
		return 2, nil
	default:
		if sub >= MiscI32TruncSatF32S && sub <= MiscI64TruncSatF64U {
			return 0, nil
		}
		return 0, fmt.Errorf("unknown misc opcode 0xFC %d", sub)
	}
}

func readSIMDImm(r *bytes.Reader, sub uint32) (any, error) {
	readMemArg := func() (MemArg, error) {
		align, err := ReadLEB128u(r)
		if err != nil {
			return MemArg{}, err
		}
		offset, err := ReadLEB128u(r)
		if err != nil {
			return MemArg{}, err
		}
		return MemArg{Align: align, Offset: offset}, nil
	}

	switch {
	case sub <= SimdV128Store || sub == SimdV128Load32Zero || sub == SimdV128Load64Zero:
		mem, err := readMemArg()
		if err != nil {
			return nil, err
		}
		return SIMDMemImm{Mem: mem}, nil

	case sub == SimdV128Const || sub == SimdI8x16Shuffle:
		var b [16]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		return SIMDBytesImm{Bytes: b}, nil

	case sub >= SimdExtractFirst && sub <= SimdReplaceLast:
		lane, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return SIMDLaneImm{Lane: lane}, nil

	case sub >= SimdLoadLaneFirst && sub <= SimdStoreLaneLast:
		mem, err := readMemArg()
		if err != nil {
			return nil, err
		}
		lane, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return SIMDMemLaneImm{Mem: mem, Lane: lane}, nil

	default:
		return nil, nil
	}
}

// EncodeInstructionTo appends the binary encoding of a single instruction.
func EncodeInstructionTo(buf *bytes.Buffer, instr *Instruction) {
	buf.WriteByte(instr.Opcode)

	if instr.Opcode == OpPrefixMisc || instr.Opcode == OpPrefixSIMD {
		WriteLEB128u(buf, instr.Sub)
	}

	switch imm := instr.Imm.(type) {
	case BlockImm:
		WriteLEB128s64(buf, imm.Type)
	case LabelImm:
		WriteLEB128u(buf, imm.Label)
	case BrTableImm:
		WriteLEB128u(buf, uint32(len(imm.Labels)))
		for _, l := range imm.Labels {
			WriteLEB128u(buf, l)
		}
		WriteLEB128u(buf, imm.Default)
	case CallImm:
		WriteLEB128u(buf, imm.Func)
	case CallIndirectImm:
		WriteLEB128u(buf, imm.Type)
		WriteLEB128u(buf, imm.Table)
	case VarImm:
		WriteLEB128u(buf, imm.Idx)
	case MemArg:
		WriteLEB128u(buf, imm.Align)
		WriteLEB128u(buf, imm.Offset)
	case I32Imm:
		WriteLEB128s(buf, imm.Value)
	case I64Imm:
		WriteLEB128s64(buf, imm.Value)
	case F32Imm:
		buf.Write(imm.Bits[:])
	case F64Imm:
		buf.Write(imm.Bits[:])
	case RefNullImm:
		WriteLEB128s64(buf, imm.HeapType)
	case RefFuncImm:
		WriteLEB128u(buf, imm.Func)
	case SelectTypeImm:
		WriteLEB128u(buf, uint32(len(imm.Types)))
		for _, t := range imm.Types {
			buf.WriteByte(byte(t))
		}
	case MiscImm:
		for _, a := range imm.Args {
			WriteLEB128u(buf, a)
		}
	case SIMDMemImm:
		WriteLEB128u(buf, imm.Mem.Align)
		WriteLEB128u(buf, imm.Mem.Offset)
	case SIMDLaneImm:
		buf.WriteByte(imm.Lane)
	case SIMDMemLaneImm:
		WriteLEB128u(buf, imm.Mem.Align)
		WriteLEB128u(buf, imm.Mem.Offset)
		buf.WriteByte(imm.Lane)
	case SIMDBytesImm:
		buf.Write(imm.Bytes[:])
	}
}

// EncodeInstructions encodes instructions back to bytecode.
func EncodeInstructions(instrs []Instruction) []byte {
	var buf bytes.Buffer
	for i := range instrs {
		EncodeInstructionTo(&buf, &instrs[i])
	}
	return buf.Bytes()
}
