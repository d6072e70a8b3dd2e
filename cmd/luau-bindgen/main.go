package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roblox-rs/bindgen/build"
)

func main() {
	root := &cobra.Command{
		Use:           "luau-bindgen",
		Short:         "Generate Luau bindings for a roblox-rs wasm module",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(buildCommand())
	root.AddCommand(inspectCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildCommand() *cobra.Command {
	var (
		out        string
		transpiler string
		runtime    string
		noVerify   bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "build <wasm_path>",
		Short: "Consume a wasm module and emit a Rojo project with binding glue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zap.NewNop()
			if verbose {
				var err error
				logger, err = zap.NewDevelopment()
				if err != nil {
					return err
				}
				defer logger.Sync() //nolint:errcheck
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			return build.Build(context.Background(), data, build.Options{
				OutDir: out,
				Transpiler: build.ExecTranspiler{
					Command:     transpiler,
					RuntimePath: runtime,
				},
				Verify: !noVerify,
				Logger: logger,
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output project directory")
	cmd.Flags().StringVar(&transpiler, "transpiler", "wasm2luau", "wasm-to-Luau transpiler binary")
	cmd.Flags().StringVar(&runtime, "runtime", "", "Interpreter runtime file prepended to the transpiled module")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip compiling the rewritten module before transpiling")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable development logging")
	cobra.CheckErr(cmd.MarkFlagRequired("out"))

	return cmd
}
