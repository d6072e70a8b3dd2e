// Package wasm provides WebAssembly binary format parsing and encoding for
// the module profile produced by LLVM-based toolchains targeting
// wasm32-unknown-unknown.
//
// The supported feature set covers the WebAssembly core specification plus
// the proposals such toolchains enable by default: reference types, bulk
// memory, sign extension, non-trapping conversions, tail calls, and the
// SIMD immediate forms. GC, exception handling, atomics, and memory64 are
// out of profile and abort decoding.
//
// # Parsing and encoding
//
//	data, _ := os.ReadFile("module.wasm")
//	module, err := wasm.ParseModule(data)
//	...
//	rewritten := module.Encode()
//
// # Instructions
//
// Function bodies and constant expressions decode into []Instruction, a
// representation that re-encodes byte-for-byte except where an immediate
// was rewritten; LEB128 immediates are always re-encoded in their shortest
// form, so padded encodings do not survive. This is the substrate for
// dead-function
// elimination:
//
//	if err := module.GCFunctions(); err != nil { ... }
//
// GCFunctions removes local functions unreachable from exports, the start
// function, element segments, and constant expressions, then remaps every
// call and ref.func immediate to the compacted index space.
//
// # Debug names
//
// ParseNames decodes the "name" custom section (module, function, and
// global subsections), which is how the linker-assigned __stack_pointer
// global is located.
package wasm
