package wasm

import (
	"bytes"

	"github.com/roblox-rs/bindgen/wasm/internal/binary"
)

// NameSection is the conventional name of the debug-names custom section.
const NameSection = "name"

// Name section subsection IDs.
const (
	nameSubModule byte = 0
	nameSubFuncs  byte = 1
	nameSubLocals byte = 2
	nameSubGlobal byte = 7
)

// Names holds the debug names decoded from the "name" custom section.
// Only the subsections the build pipeline consumes are retained.
type Names struct {
	Module  string
	Funcs   map[uint32]string
	Globals map[uint32]string
}

// ParseNames decodes a "name" custom section payload. Unknown subsections
// are skipped; a truncated subsection is an error.
func ParseNames(data []byte) (*Names, error) {
	r := binary.NewReader(bytes.NewReader(data))
	names := &Names{
		Funcs:   make(map[uint32]string),
		Globals: make(map[uint32]string),
	}

	for {
		id, err := r.ReadByte()
		if err != nil {
			break // end of payload
		}
		size, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("name subsection size", err)
		}
		body, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, r.WrapError("name subsection data", err)
		}

		sr := binary.NewReader(bytes.NewReader(body))
		switch id {
		case nameSubModule:
			names.Module, err = sr.ReadName()
			if err != nil {
				return nil, sr.WrapError("module name", err)
			}
		case nameSubFuncs:
			if err := readNameMap(sr, names.Funcs); err != nil {
				return nil, sr.WrapError("function names", err)
			}
		case nameSubGlobal:
			if err := readNameMap(sr, names.Globals); err != nil {
				return nil, sr.WrapError("global names", err)
			}
		}
	}

	return names, nil
}

// GlobalIndex returns the index of the global with the given debug name.
func (n *Names) GlobalIndex(name string) (uint32, bool) {
	for idx, candidate := range n.Globals {
		if candidate == name {
			return idx, true
		}
	}
	return 0, false
}

func readNameMap(r *binary.Reader, out map[uint32]string) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		out[idx] = name
	}
	return nil
}
