// Package errors provides structured error types for the bindgen pipeline.
//
// Errors are categorized by Phase (where in the build the error occurred)
// and Kind (error category), and carry the offending binding symbol when one
// is known. All errors implement the standard error interface and support
// errors.Is/As; two errors match when Phase and Kind agree.
//
// Use the Builder for structured construction:
//
//	err := errors.New(errors.PhaseAnalyze, errors.KindBadDescribe).
//		Symbol("__describe_print").
//		Detail("unexpected opcode 0x%02x", op).
//		Build()
//
// Or the convenience constructors for common cases:
//
//	err := errors.UnknownTag("__describe_print", 42)
//	err := errors.MissingExport(errors.PhaseRewrite, "__alloc")
package errors
