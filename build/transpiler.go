package build

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/roblox-rs/bindgen/errors"
)

// Transpiler turns rewritten module bytes into Luau source: the interpreter
// runtime followed by the transpiled module constructor. The constructor
// must evaluate to a function the runtime script can require.
type Transpiler interface {
	Transpile(ctx context.Context, wasm []byte, w io.Writer) error
}

// ExecTranspiler invokes an external wasm-to-Luau transpiler binary,
// passing the module on stdin and streaming the generated source from
// stdout. When RuntimePath is set, that file's contents (the interpreter
// runtime the transpiled code targets) are emitted first.
type ExecTranspiler struct {
	Command     string
	RuntimePath string
}

// DefaultTranspiler resolves the conventional wasm2luau binary from PATH.
func DefaultTranspiler() ExecTranspiler {
	return ExecTranspiler{Command: "wasm2luau"}
}

func (t ExecTranspiler) Transpile(ctx context.Context, wasm []byte, w io.Writer) error {
	if t.RuntimePath != "" {
		runtime, err := os.ReadFile(t.RuntimePath)
		if err != nil {
			return errors.New(errors.PhaseEmit, errors.KindIO).Cause(err).Build()
		}
		if _, err := w.Write(runtime); err != nil {
			return errors.New(errors.PhaseEmit, errors.KindIO).Cause(err).Build()
		}
	}

	cmd := exec.CommandContext(ctx, t.Command)
	cmd.Stdin = bytes.NewReader(wasm)
	cmd.Stdout = w

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		// Transpiler diagnostics surface unchanged.
		return errors.New(errors.PhaseEmit, errors.KindTranspileFailed).
			Detail("%s", detail).
			Cause(err).
			Build()
	}

	return nil
}
