package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the build pipeline the error occurred
type Phase string

const (
	PhaseDecode   Phase = "decode"   // wasm binary parsing
	PhaseMetadata Phase = "metadata" // .roblox-rs section decoding
	PhaseAnalyze  Phase = "analyze"  // describe-function interpretation
	PhaseCodegen  Phase = "codegen"  // trampoline rendering
	PhaseRewrite  Phase = "rewrite"  // module stripping and DCE
	PhaseEmit     Phase = "emit"     // artefact writing and transpiling
)

// Kind categorizes the error
type Kind string

const (
	KindUnknownTag      Kind = "unknown_tag"
	KindInvalidData     Kind = "invalid_data"
	KindUnsupported     Kind = "unsupported"
	KindBadDescribe     Kind = "bad_describe"
	KindMissingExport   Kind = "missing_export"
	KindMissingImport   Kind = "missing_import"
	KindMissingGlobal   Kind = "missing_global"
	KindMissingTable    Kind = "missing_table"
	KindStackImbalance  Kind = "stack_imbalance"
	KindUnknownOpcode   Kind = "unknown_opcode"
	KindTranspileFailed Kind = "transpile_failed"
	KindIO              Kind = "io"
)

// Error is the structured error type used throughout the build tool
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Symbol string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Symbol != "" {
		b.WriteString(" at '")
		b.WriteString(e.Symbol)
		b.WriteByte('\'')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err *Error
}

// New starts building an error with the given phase and kind
func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: &Error{Phase: phase, Kind: kind}}
}

// Symbol records the binding or export symbol the error refers to
func (b *Builder) Symbol(name string) *Builder {
	b.err.Symbol = name
	return b
}

// Detail adds a human-readable explanation
func (b *Builder) Detail(format string, args ...any) *Builder {
	b.err.Detail = fmt.Sprintf(format, args...)
	return b
}

// Cause attaches an underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return b.err
}

// UnknownTag reports an unrecognized type tag in a describe stream.
func UnknownTag(symbol string, tag uint32) *Error {
	return New(PhaseAnalyze, KindUnknownTag).
		Symbol(symbol).
		Detail("unknown type tag %d", tag).
		Build()
}

// Unsupported reports a descriptor that cannot cross the boundary.
func Unsupported(phase Phase, symbol, desc string) *Error {
	return New(phase, KindUnsupported).
		Symbol(symbol).
		Detail("unsupported boundary type %s", desc).
		Build()
}

// MissingExport reports an export the module was expected to carry.
func MissingExport(phase Phase, name string) *Error {
	return New(phase, KindMissingExport).Symbol(name).Build()
}

// BadDescribe reports an ill-formed describe function body.
func BadDescribe(symbol, detail string) *Error {
	return New(PhaseAnalyze, KindBadDescribe).
		Symbol(symbol).
		Detail("%s", detail).
		Build()
}
