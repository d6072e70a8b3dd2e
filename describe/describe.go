package describe

import (
	"fmt"
	"strings"

	"github.com/roblox-rs/bindgen/errors"
)

// Kind discriminates the variants of a boundary type descriptor.
type Kind uint8

const (
	KindU8 Kind = iota
	KindU16
	KindU32
	KindI8
	KindI16
	KindI32
	KindBool
	KindVoid
	KindF32
	KindF64
	KindExternRef
	KindString
	KindSlice
	KindVector
	KindRef
	KindRefMut
	KindOption
	KindFunction
)

var kindNames = [...]string{
	KindU8:        "u8",
	KindU16:       "u16",
	KindU32:       "u32",
	KindI8:        "i8",
	KindI16:       "i16",
	KindI32:       "i32",
	KindBool:      "bool",
	KindVoid:      "void",
	KindF32:       "f32",
	KindF64:       "f64",
	KindExternRef: "externref",
	KindString:    "string",
	KindSlice:     "slice",
	KindVector:    "vector",
	KindRef:       "ref",
	KindRefMut:    "refmut",
	KindOption:    "option",
	KindFunction:  "function",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Wire tag codes, as emitted by the describe calling convention.
const (
	TagU8        uint32 = 0
	TagU16       uint32 = 1
	TagU32       uint32 = 2
	TagI8        uint32 = 3
	TagI16       uint32 = 4
	TagI32       uint32 = 5
	TagBool      uint32 = 6
	TagRef       uint32 = 7
	TagRefMut    uint32 = 8
	TagFunction  uint32 = 9
	TagVoid      uint32 = 10
	TagF32       uint32 = 11
	TagF64       uint32 = 12
	TagOption    uint32 = 13
	TagExternRef uint32 = 14
	TagString    uint32 = 15
	TagSlice     uint32 = 16
	TagVector    uint32 = 17
)

// Desc is a recursive boundary type descriptor. Elem is set for the
// single-child variants (Slice, Vector, Ref, RefMut, Option); Args and
// Return are set for Function.
type Desc struct {
	Elem   *Desc
	Return *Desc
	Args   []Desc
	Kind   Kind
}

func (d *Desc) String() string {
	switch d.Kind {
	case KindSlice, KindVector, KindOption:
		return fmt.Sprintf("%s<%s>", d.Kind, d.Elem)
	case KindRef:
		return "&" + d.Elem.String()
	case KindRefMut:
		return "&mut " + d.Elem.String()
	case KindFunction:
		args := make([]string, len(d.Args))
		for i := range d.Args {
			args[i] = d.Args[i].String()
		}
		return fmt.Sprintf("fn(%s) -> %s", strings.Join(args, ", "), d.Return)
	default:
		return d.Kind.String()
	}
}

// ValueCount returns the number of ABI slots the type occupies.
func (d *Desc) ValueCount() int {
	switch d.Kind {
	case KindVoid:
		return 0
	case KindU8, KindU16, KindU32, KindI8, KindI16, KindI32,
		KindF32, KindF64, KindBool, KindExternRef:
		return 1
	case KindString, KindSlice, KindVector:
		return 2
	case KindRef, KindRefMut:
		return d.Elem.ValueCount()
	case KindOption:
		return 1 + d.Elem.ValueCount()
	default:
		panic(fmt.Sprintf("value count of %s", d.Kind))
	}
}

// Primitives returns the flattened carrier list in declaration order.
func (d *Desc) Primitives() []Primitive {
	var out []Primitive
	d.appendPrimitives(&out)
	return out
}

func (d *Desc) appendPrimitives(out *[]Primitive) {
	switch d.Kind {
	case KindU8:
		*out = append(*out, PrimU8)
	case KindU16:
		*out = append(*out, PrimU16)
	case KindU32, KindBool, KindExternRef:
		*out = append(*out, PrimU32)
	case KindI8:
		*out = append(*out, PrimI8)
	case KindI16:
		*out = append(*out, PrimI16)
	case KindI32:
		*out = append(*out, PrimI32)
	case KindF32:
		*out = append(*out, PrimF32)
	case KindF64:
		*out = append(*out, PrimF64)
	case KindString, KindSlice, KindVector:
		*out = append(*out, PrimU32, PrimU32)
	case KindRef, KindRefMut:
		d.Elem.appendPrimitives(out)
	case KindOption:
		*out = append(*out, PrimU8)
		d.Elem.appendPrimitives(out)
	case KindVoid:
	default:
		panic(fmt.Sprintf("primitives of %s", d.Kind))
	}
}

// MemorySize returns the aligned in-memory size of the type: each primitive
// is placed at an offset rounded up to its own alignment, and the total is
// padded to the largest alignment encountered.
func (d *Desc) MemorySize() uint32 {
	var size, maxAlign uint32
	for _, prim := range d.Primitives() {
		byteSize := prim.ByteSize()
		size = prim.NextAlign(size) + byteSize
		if byteSize-1 > maxAlign {
			maxAlign = byteSize - 1
		}
	}
	return (size + maxAlign) &^ maxAlign
}

// Validate rejects descriptors that cannot legally cross the boundary:
// function-valued slots, references around anything but strings, slices and
// externrefs, and options whose payload exceeds the packing limit.
func (d *Desc) Validate(symbol string) error {
	switch d.Kind {
	case KindFunction:
		return errors.Unsupported(errors.PhaseAnalyze, symbol, d.String())
	case KindRef, KindRefMut:
		switch d.Elem.Kind {
		case KindString, KindSlice, KindExternRef:
		default:
			return errors.Unsupported(errors.PhaseAnalyze, symbol, d.String())
		}
		return d.Elem.Validate(symbol)
	case KindOption:
		if d.Elem.ValueCount() > 3 {
			return errors.Unsupported(errors.PhaseAnalyze, symbol, d.String())
		}
		return d.Elem.Validate(symbol)
	case KindSlice:
		// Slice elements are read directly as buffer primitives.
		switch d.Elem.Kind {
		case KindU8, KindU16, KindU32, KindI8, KindI16, KindI32, KindF32, KindF64:
		default:
			return errors.Unsupported(errors.PhaseAnalyze, symbol, d.String())
		}
		return d.Elem.Validate(symbol)
	case KindVector:
		return d.Elem.Validate(symbol)
	}
	return nil
}

// Parse reads a descriptor from a stream of wire tags, consuming exactly
// one construct.
func Parse(tags []uint32) (*Desc, error) {
	d, rest, err := parse(tags)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errors.New(errors.PhaseAnalyze, errors.KindInvalidData).
			Detail("%d trailing tag words", len(rest)).
			Build()
	}
	return d, nil
}

func parse(tags []uint32) (*Desc, []uint32, error) {
	if len(tags) == 0 {
		return nil, nil, errors.New(errors.PhaseAnalyze, errors.KindInvalidData).
			Detail("tag stream exhausted mid-construct").
			Build()
	}
	tag := tags[0]
	rest := tags[1:]

	simple := func(k Kind) (*Desc, []uint32, error) {
		return &Desc{Kind: k}, rest, nil
	}
	nested := func(k Kind) (*Desc, []uint32, error) {
		elem, rem, err := parse(rest)
		if err != nil {
			return nil, nil, err
		}
		return &Desc{Kind: k, Elem: elem}, rem, nil
	}

	switch tag {
	case TagU8:
		return simple(KindU8)
	case TagU16:
		return simple(KindU16)
	case TagU32:
		return simple(KindU32)
	case TagI8:
		return simple(KindI8)
	case TagI16:
		return simple(KindI16)
	case TagI32:
		return simple(KindI32)
	case TagBool:
		return simple(KindBool)
	case TagVoid:
		return simple(KindVoid)
	case TagF32:
		return simple(KindF32)
	case TagF64:
		return simple(KindF64)
	case TagExternRef:
		return simple(KindExternRef)
	case TagString:
		return simple(KindString)
	case TagSlice:
		return nested(KindSlice)
	case TagVector:
		return nested(KindVector)
	case TagRef:
		return nested(KindRef)
	case TagRefMut:
		return nested(KindRefMut)
	case TagOption:
		return nested(KindOption)
	case TagFunction:
		if len(rest) == 0 {
			return nil, nil, errors.New(errors.PhaseAnalyze, errors.KindInvalidData).
				Detail("tag stream exhausted mid-construct").
				Build()
		}
		argCount := rest[0]
		rest = rest[1:]
		args := make([]Desc, 0, argCount)
		for i := uint32(0); i < argCount; i++ {
			arg, rem, err := parse(rest)
			if err != nil {
				return nil, nil, err
			}
			args = append(args, *arg)
			rest = rem
		}
		ret, rem, err := parse(rest)
		if err != nil {
			return nil, nil, err
		}
		return &Desc{Kind: KindFunction, Args: args, Return: ret}, rem, nil
	default:
		return nil, nil, errors.UnknownTag("", tag)
	}
}
