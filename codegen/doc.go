// Package codegen renders Luau binding trampolines from type descriptors.
//
// The emitter is a small stack machine over strings: every Instruction
// consumes a declared number of expressions from the stack and leaves a
// declared number behind, so conversions compose without knowing what
// produced their inputs. The driver asserts the declared stack effect after
// each top-level binding, which catches mis-composed conversions early.
//
// Output flows through an IndentedWriter whose indentation is controlled by
// in-band bytes (ShiftOut/ShiftIn), letting an instruction open and close a
// block atomically with the text it emits. Expressions that are not plain
// identifiers are hoisted into fresh locals before being interpolated twice,
// preserving single-evaluation semantics.
//
// Two symmetric conversion trees cover the boundary: LuauToGuest lowers one
// script value into guest ABI slots, GuestToLuau lifts guest slots into one
// script value. CreateExport and CreateImport compose them into full
// trampolines, spilling multi-slot returns through the guest shadow stack.
package codegen
