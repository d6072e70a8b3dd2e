// Package analyze reads a module's binding metadata and resolves every
// declared boundary function to a full signature.
//
// Signatures travel from compile time to build time as describe functions:
// zero-argument guest functions whose bodies are linear sequences of
// (i32.const, call describe) pairs, one tag per call. The analyser
// interprets each body, parses the tag stream into a type descriptor, and
// records the describe machinery for deletion once the bindings are
// generated.
//
// Declared imports with no matching function import in the module are dead
// foreign declarations and are skipped silently; exports whose describe
// function is absent are skipped likewise.
package analyze
