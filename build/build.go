package build

import (
	"bytes"
	"context"
	_ "embed"
	"os"
	"path/filepath"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/roblox-rs/bindgen/analyze"
	"github.com/roblox-rs/bindgen/codegen"
	"github.com/roblox-rs/bindgen/errors"
	"github.com/roblox-rs/bindgen/wasm"
)

//go:embed templates/default.project.json
var projectTemplate string

//go:embed templates/runner.server.luau
var runnerTemplate string

// Canonical re-export names for module-level artefacts the generated script
// reaches into.
const (
	StackPointerExport = "__stack_pointer"
	FuncTableExport    = "__func_table"
)

// Options configure a build.
type Options struct {
	// OutDir is the project directory to scaffold.
	OutDir string

	// Transpiler produces the wasm.luau body. Defaults to the external
	// wasm2luau binary resolved from PATH.
	Transpiler Transpiler

	// Verify compiles the rewritten module with wazero before handing it
	// to the transpiler, catching rewrite corruption early.
	Verify bool

	Logger *zap.Logger
}

// Build runs the whole pipeline: analyse the module, render the binding
// trampolines, strip the consumed describe machinery and unused intrinsics,
// eliminate dead functions, and write the project scaffold.
func Build(ctx context.Context, wasmBytes []byte, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	transpiler := opts.Transpiler
	if transpiler == nil {
		transpiler = DefaultTranspiler()
	}

	module, err := wasm.ParseModule(wasmBytes)
	if err != nil {
		return errors.New(errors.PhaseDecode, errors.KindInvalidData).Cause(err).Build()
	}

	analysis, err := analyze.Analyze(module)
	if err != nil {
		return err
	}
	logger.Info("analysed module",
		zap.Int("imports", len(analysis.Imports)),
		zap.Int("exports", len(analysis.Exports)),
		zap.Int("mains", len(analysis.Mains)))

	runtime, emitter, err := renderRuntime(analysis)
	if err != nil {
		return err
	}

	if err := rewriteModule(module, analysis, emitter); err != nil {
		return err
	}

	rewritten := module.Encode()

	if opts.Verify {
		if err := verifyModule(ctx, rewritten); err != nil {
			return err
		}
	}

	return writeProject(ctx, opts.OutDir, transpiler, rewritten, runtime, logger)
}

// renderRuntime renders the runtime script in canonical order: header, all
// imports, all exports, then the tail invoking mains and returning the
// exports table. The emitter stack must be empty after every binding.
func renderRuntime(analysis *analyze.Analysis) ([]byte, *codegen.Emitter, error) {
	var buf bytes.Buffer
	emitter := codegen.NewEmitter(&buf, analysis.Meta.Intrinsics)

	if err := emitter.Render(codegen.RuntimeHeader{}); err != nil {
		return nil, nil, err
	}

	for i := range analysis.Imports {
		binding := &analysis.Imports[i]

		resultCount := binding.Result.ValueCount()
		if resultCount > 1 {
			resultCount = 1
		}

		instr := codegen.CreateImport{
			ExportName: binding.ExportName,
			Params:     binding.Params,
			Output:     binding.Result,
			Body: codegen.ImportBlock{
				Params: binding.Params,
				Output: binding.Result,
				Body: codegen.InvokeLuauFunction{
					FunctionName:   binding.LuauName,
					ParameterCount: len(binding.Params),
					ResultCount:    resultCount,
				},
			},
		}
		if err := renderBinding(emitter, binding.RustName, instr); err != nil {
			return nil, nil, err
		}
	}

	for i := range analysis.Exports {
		binding := &analysis.Exports[i]

		instr := codegen.CreateExport{
			LuauName: binding.LuauName,
			Params:   binding.Params,
			Body: codegen.ExportBlock{
				Params: binding.Params,
				Output: binding.Result,
				Body: codegen.InvokeGuestFunction{
					FunctionName: binding.ExportName,
					Params:       binding.Params,
					Output:       binding.Result,
				},
			},
		}
		if err := renderBinding(emitter, binding.RustName, instr); err != nil {
			return nil, nil, err
		}
	}

	if err := emitter.Render(codegen.RuntimeTail{MainNames: analysis.Mains}); err != nil {
		return nil, nil, err
	}

	return buf.Bytes(), emitter, nil
}

func renderBinding(emitter *codegen.Emitter, symbol string, instr codegen.Instruction) error {
	if err := emitter.Render(instr); err != nil {
		return err
	}
	if depth := emitter.Depth(); depth != 0 {
		return errors.New(errors.PhaseCodegen, errors.KindStackImbalance).
			Symbol(symbol).
			Detail("emitter stack depth %d after binding", depth).
			Build()
	}
	return nil
}

// rewriteModule strips the consumed describe exports and the exports of
// intrinsics the generator never requested, re-exports the stack pointer
// and function table under canonical names, and runs dead-code elimination.
func rewriteModule(module *wasm.Module, analysis *analyze.Analysis, emitter *codegen.Emitter) error {
	removed := make(map[string]bool, len(analysis.RemovedExports))
	for name := range analysis.RemovedExports {
		removed[name] = true
	}

	for _, intrinsic := range analysis.Meta.Intrinsics {
		if emitter.Intrinsics.IsUsed(intrinsic.Name) {
			continue
		}
		if module.FindExport(intrinsic.ExportName) == nil {
			return errors.MissingExport(errors.PhaseRewrite, intrinsic.ExportName)
		}
		removed[intrinsic.ExportName] = true
	}

	module.RemoveExports(removed)

	if analysis.StackPointer != nil {
		module.Exports = append(module.Exports, wasm.Export{
			Name: StackPointerExport,
			Kind: wasm.KindGlobal,
			Idx:  *analysis.StackPointer,
		})
	}
	if analysis.FuncTable != nil {
		module.Exports = append(module.Exports, wasm.Export{
			Name: FuncTableExport,
			Kind: wasm.KindTable,
			Idx:  *analysis.FuncTable,
		})
	}

	if err := module.GCFunctions(); err != nil {
		return errors.New(errors.PhaseRewrite, errors.KindInvalidData).Cause(err).Build()
	}

	return nil
}

// verifyModule compiles the rewritten module with wazero's interpreter,
// a cheap well-formedness check before the transpiler sees the bytes.
func verifyModule(ctx context.Context, rewritten []byte) error {
	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer runtime.Close(ctx)

	compiled, err := runtime.CompileModule(ctx, rewritten)
	if err != nil {
		return errors.New(errors.PhaseRewrite, errors.KindInvalidData).
			Detail("rewritten module failed verification").
			Cause(err).
			Build()
	}
	return compiled.Close(ctx)
}

func writeProject(ctx context.Context, outDir string, transpiler Transpiler, rewritten, runtime []byte, logger *zap.Logger) error {
	serverDir := filepath.Join(outDir, "server")
	if err := os.MkdirAll(serverDir, 0o755); err != nil {
		return errors.New(errors.PhaseEmit, errors.KindIO).Cause(err).Build()
	}

	writeFile := func(path string, content []byte) error {
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return errors.New(errors.PhaseEmit, errors.KindIO).Cause(err).Build()
		}
		return nil
	}

	if err := writeFile(filepath.Join(outDir, "default.project.json"), []byte(projectTemplate)); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(serverDir, "runner.server.luau"), []byte(runnerTemplate)); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(serverDir, "runtime.luau"), runtime); err != nil {
		return err
	}

	var wasmLuau bytes.Buffer
	wasmLuau.WriteString("--!optimize 2\n")
	if err := transpiler.Transpile(ctx, rewritten, &wasmLuau); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(serverDir, "wasm.luau"), wasmLuau.Bytes()); err != nil {
		return err
	}

	logger.Info("wrote project", zap.String("dir", outDir))
	return nil
}
