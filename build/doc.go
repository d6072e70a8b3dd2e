// Package build orchestrates the binding-generation pipeline.
//
// The sequence matters for correctness:
//
//  1. Parse the module and analyse its binding metadata.
//  2. Render the runtime script: header, import trampolines, export
//     trampolines, then the tail invoking mains and returning the exports
//     table. The emitter stack is asserted empty after every binding.
//  3. Strip consumed describe exports and unused intrinsic exports,
//     re-export __stack_pointer and __func_table, and eliminate dead
//     functions.
//  4. Optionally verify the rewritten module by compiling it with wazero.
//  5. Write the project scaffold: the fixed project descriptor, the runner
//     stub, wasm.luau (interpreter runtime plus the transpiled module),
//     and runtime.luau.
//
// The wasm-to-Luau transpiler is an external collaborator invoked through
// the Transpiler interface; its diagnostics surface unchanged.
package build
