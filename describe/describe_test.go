package describe_test

import (
	"testing"

	"github.com/roblox-rs/bindgen/describe"
)

func simple(k describe.Kind) *describe.Desc {
	return &describe.Desc{Kind: k}
}

func nested(k describe.Kind, elem *describe.Desc) *describe.Desc {
	return &describe.Desc{Kind: k, Elem: elem}
}

func TestValueCount(t *testing.T) {
	tests := []struct {
		desc *describe.Desc
		want int
	}{
		{simple(describe.KindVoid), 0},
		{simple(describe.KindU8), 1},
		{simple(describe.KindI32), 1},
		{simple(describe.KindF64), 1},
		{simple(describe.KindBool), 1},
		{simple(describe.KindExternRef), 1},
		{simple(describe.KindString), 2},
		{nested(describe.KindSlice, simple(describe.KindU32)), 2},
		{nested(describe.KindVector, simple(describe.KindF64)), 2},
		{nested(describe.KindOption, simple(describe.KindU32)), 2},
		{nested(describe.KindOption, simple(describe.KindString)), 3},
		{nested(describe.KindOption, simple(describe.KindVoid)), 1},
		{nested(describe.KindRef, simple(describe.KindString)), 2},
		{nested(describe.KindRefMut, simple(describe.KindExternRef)), 1},
	}

	for _, tt := range tests {
		t.Run(tt.desc.String(), func(t *testing.T) {
			if got := tt.desc.ValueCount(); got != tt.want {
				t.Errorf("ValueCount() = %d, want %d", got, tt.want)
			}
			// The slot count must always agree with the carrier list.
			if got := len(tt.desc.Primitives()); got != tt.want {
				t.Errorf("len(Primitives()) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPrimitives(t *testing.T) {
	tests := []struct {
		desc *describe.Desc
		want []describe.Primitive
	}{
		{simple(describe.KindU8), []describe.Primitive{describe.PrimU8}},
		{simple(describe.KindI16), []describe.Primitive{describe.PrimI16}},
		{simple(describe.KindBool), []describe.Primitive{describe.PrimU32}},
		{simple(describe.KindExternRef), []describe.Primitive{describe.PrimU32}},
		{simple(describe.KindString), []describe.Primitive{describe.PrimU32, describe.PrimU32}},
		{
			nested(describe.KindOption, simple(describe.KindF64)),
			[]describe.Primitive{describe.PrimU8, describe.PrimF64},
		},
		{
			nested(describe.KindRef, simple(describe.KindString)),
			[]describe.Primitive{describe.PrimU32, describe.PrimU32},
		},
		{simple(describe.KindVoid), nil},
	}

	for _, tt := range tests {
		t.Run(tt.desc.String(), func(t *testing.T) {
			got := tt.desc.Primitives()
			if len(got) != len(tt.want) {
				t.Fatalf("Primitives() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Primitives()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMemorySize(t *testing.T) {
	tests := []struct {
		desc *describe.Desc
		want uint32
	}{
		{simple(describe.KindU8), 1},
		{simple(describe.KindU16), 2},
		{simple(describe.KindU32), 4},
		{simple(describe.KindF64), 8},
		{simple(describe.KindString), 8},
		{simple(describe.KindVoid), 0},
		// Aligned payload: discriminant byte, padding, then the payload.
		{nested(describe.KindOption, simple(describe.KindU32)), 8},
		{nested(describe.KindOption, simple(describe.KindF64)), 16},
		// Small payloads: a u8 payload follows the discriminant directly; a
		// u16 payload is padded to offset 2.
		{nested(describe.KindOption, simple(describe.KindU8)), 2},
		{nested(describe.KindOption, simple(describe.KindU16)), 4},
	}

	for _, tt := range tests {
		t.Run(tt.desc.String(), func(t *testing.T) {
			if got := tt.desc.MemorySize(); got != tt.want {
				t.Errorf("MemorySize() = %d, want %d", got, tt.want)
			}
		})
	}
}

// Each primitive must land on an offset that is a multiple of its byte
// size, and the total must cover the packed primitives.
func TestMemoryLayoutInvariants(t *testing.T) {
	descs := []*describe.Desc{
		simple(describe.KindString),
		nested(describe.KindOption, simple(describe.KindU32)),
		nested(describe.KindOption, simple(describe.KindF64)),
		nested(describe.KindOption, simple(describe.KindString)),
		nested(describe.KindVector, simple(describe.KindU16)),
	}

	for _, desc := range descs {
		t.Run(desc.String(), func(t *testing.T) {
			var offset, sum uint32
			for _, prim := range desc.Primitives() {
				aligned := prim.NextAlign(offset)
				if aligned%prim.ByteSize() != 0 {
					t.Errorf("primitive %v at offset %d, not a multiple of %d",
						prim, aligned, prim.ByteSize())
				}
				offset = aligned + prim.ByteSize()
				sum += prim.ByteSize()
			}
			if size := desc.MemorySize(); size < sum {
				t.Errorf("MemorySize() = %d, smaller than packed size %d", size, sum)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		tags []uint32
		want string
	}{
		{"u32", []uint32{describe.TagU32}, "u32"},
		{"string", []uint32{describe.TagString}, "string"},
		{"option u32", []uint32{describe.TagOption, describe.TagU32}, "option<u32>"},
		{"ref string", []uint32{describe.TagRef, describe.TagString}, "&string"},
		{
			"vector of option f64",
			[]uint32{describe.TagVector, describe.TagOption, describe.TagF64},
			"vector<option<f64>>",
		},
		{
			"function",
			[]uint32{describe.TagFunction, 2, describe.TagU32, describe.TagBool, describe.TagVoid},
			"fn(u32, bool) -> void",
		},
		{
			"function with nested arg",
			[]uint32{describe.TagFunction, 1, describe.TagOption, describe.TagExternRef, describe.TagOption, describe.TagF64},
			"fn(option<externref>) -> option<f64>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := describe.Parse(tt.tags)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := desc.String(); got != tt.want {
				t.Errorf("Parse() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		tags []uint32
	}{
		{"unknown tag", []uint32{99}},
		{"exhausted mid-construct", []uint32{describe.TagOption}},
		{"exhausted function", []uint32{describe.TagFunction, 2, describe.TagU32}},
		{"trailing tags", []uint32{describe.TagU32, describe.TagU32}},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := describe.Parse(tt.tags); err == nil {
				t.Error("Parse succeeded, want error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    *describe.Desc
		wantErr bool
	}{
		{"u32", simple(describe.KindU32), false},
		{"ref string", nested(describe.KindRef, simple(describe.KindString)), false},
		{"refmut externref", nested(describe.KindRefMut, simple(describe.KindExternRef)), false},
		{"ref slice u8", nested(describe.KindRef, nested(describe.KindSlice, simple(describe.KindU8))), false},
		{"option string", nested(describe.KindOption, simple(describe.KindString)), false},
		{"ref u32", nested(describe.KindRef, simple(describe.KindU32)), true},
		{"refmut bool", nested(describe.KindRefMut, simple(describe.KindBool)), true},
		{"function value", &describe.Desc{Kind: describe.KindFunction, Return: simple(describe.KindVoid)}, true},
		{"slice of string", nested(describe.KindSlice, simple(describe.KindString)), true},
		{
			"option payload too wide",
			nested(describe.KindOption, nested(describe.KindOption, nested(describe.KindOption, simple(describe.KindString)))),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate("test_symbol")
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
