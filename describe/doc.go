// Package describe models boundary type descriptors and their ABI
// projections.
//
// A Desc is the recursive description of one value crossing the guest/script
// boundary. Three projections drive code generation:
//
//	ValueCount   number of ABI slots the type occupies
//	Primitives   flattened carrier list in declaration order
//	MemorySize   self-aligned in-memory layout size
//
// Descriptors arrive as a stream of 32-bit wire tags produced by the
// describe calling convention; Parse performs one-pass recursive descent
// over the stream. The stream is produced by a trusted build-time protocol,
// so malformed input aborts the build rather than being recovered.
package describe
