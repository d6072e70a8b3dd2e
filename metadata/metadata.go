package metadata

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/roblox-rs/bindgen/errors"
)

// SectionName is the custom section carrying binding metadata.
const SectionName = ".roblox-rs"

// DescribeModule and DescribeImport identify the describe import the macro
// front-end adds to every annotated module.
const (
	DescribeModule = "roblox-rs"
	DescribeImport = "describe"
)

// Function describes one declared boundary function: the Rust-side item,
// its script-visible name, and the two generated symbols.
type Function struct {
	RustName     string
	LuauName     string
	DescribeName string
	ExportName   string
}

// Intrinsic maps a logical allocator entry point to its export symbol.
type Intrinsic struct {
	Name       string
	ExportName string
}

// Context is the decoded content of the metadata section.
type Context struct {
	Imports    []Function
	Exports    []Function
	MainFns    []string
	Intrinsics []Intrinsic
}

// FindIntrinsic returns the intrinsic with the given logical name.
func (c *Context) FindIntrinsic(name string) (Intrinsic, bool) {
	for _, in := range c.Intrinsics {
		if in.Name == name {
			return in, true
		}
	}
	return Intrinsic{}, false
}

// Decode reads a section payload. The payload is a concatenation of
// self-describing records, one per translation unit; their lists are
// catenated. Every list and string is prefixed by a little-endian u64
// length, matching the producer's fixed-int encoding. A trailing fragment
// shorter than a record header is tolerated and ignored.
func Decode(data []byte) (*Context, error) {
	ctx := &Context{}
	r := bytes.NewReader(data)

	for r.Len() > 0 {
		var rec Context
		if err := decodeRecord(r, &rec); err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				break
			}
			return nil, errors.New(errors.PhaseMetadata, errors.KindInvalidData).
				Cause(err).
				Build()
		}
		ctx.Imports = append(ctx.Imports, rec.Imports...)
		ctx.Exports = append(ctx.Exports, rec.Exports...)
		ctx.MainFns = append(ctx.MainFns, rec.MainFns...)
		ctx.Intrinsics = append(ctx.Intrinsics, rec.Intrinsics...)
	}

	return ctx, nil
}

func decodeRecord(r *bytes.Reader, rec *Context) error {
	var err error
	if rec.Imports, err = decodeFunctions(r); err != nil {
		return err
	}
	if rec.Exports, err = decodeFunctions(r); err != nil {
		return err
	}
	if rec.MainFns, err = decodeStrings(r); err != nil {
		return err
	}
	if rec.Intrinsics, err = decodeIntrinsics(r); err != nil {
		return err
	}
	return nil
}

func decodeFunctions(r *bytes.Reader) ([]Function, error) {
	count, err := decodeLen(r)
	if err != nil {
		return nil, err
	}
	fns := make([]Function, 0, count)
	for i := 0; i < count; i++ {
		var fn Function
		if fn.RustName, err = decodeString(r); err != nil {
			return nil, err
		}
		if fn.LuauName, err = decodeString(r); err != nil {
			return nil, err
		}
		if fn.DescribeName, err = decodeString(r); err != nil {
			return nil, err
		}
		if fn.ExportName, err = decodeString(r); err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

func decodeStrings(r *bytes.Reader) ([]string, error) {
	count, err := decodeLen(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		s, err := decodeString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeIntrinsics(r *bytes.Reader) ([]Intrinsic, error) {
	count, err := decodeLen(r)
	if err != nil {
		return nil, err
	}
	out := make([]Intrinsic, 0, count)
	for i := 0; i < count; i++ {
		var in Intrinsic
		if in.Name, err = decodeString(r); err != nil {
			return nil, err
		}
		if in.ExportName, err = decodeString(r); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

func decodeLen(r *bytes.Reader) (int, error) {
	var v uint64
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, err
	}
	const sanityLimit = 1 << 24
	if v > sanityLimit {
		return 0, io.ErrUnexpectedEOF
	}
	return int(v), nil
}

func decodeString(r *bytes.Reader) (string, error) {
	n, err := decodeLen(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// Encode writes a context as a single record. The macro front-end emits one
// record per translation unit; tests and tooling use this to assemble
// synthetic modules.
func Encode(ctx *Context) []byte {
	var buf bytes.Buffer

	encodeLen(&buf, len(ctx.Imports))
	for _, fn := range ctx.Imports {
		encodeFunction(&buf, fn)
	}
	encodeLen(&buf, len(ctx.Exports))
	for _, fn := range ctx.Exports {
		encodeFunction(&buf, fn)
	}
	encodeLen(&buf, len(ctx.MainFns))
	for _, s := range ctx.MainFns {
		encodeString(&buf, s)
	}
	encodeLen(&buf, len(ctx.Intrinsics))
	for _, in := range ctx.Intrinsics {
		encodeString(&buf, in.Name)
		encodeString(&buf, in.ExportName)
	}

	return buf.Bytes()
}

func encodeFunction(buf *bytes.Buffer, fn Function) {
	encodeString(buf, fn.RustName)
	encodeString(buf, fn.LuauName)
	encodeString(buf, fn.DescribeName)
	encodeString(buf, fn.ExportName)
}

func encodeLen(buf *bytes.Buffer, n int) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(n))
	buf.Write(b[:])
}

func encodeString(buf *bytes.Buffer, s string) {
	encodeLen(buf, len(s))
	buf.WriteString(s)
}
