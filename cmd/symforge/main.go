// Copyright 2026 symforge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command symforge turns symbolic math expressions into compiled native
// routines.
//
// Usage:
//
//	symforge gen --name poly --expr "x*x + 2*x + 1"
//	symforge gen --name saxpy --expr "a*x + y" --out z --shape "x=n" --shape "y=n" --shape "z=n"
//	symforge build --name poly --expr "sin(x)/x" --cache-dir ./cache
//	symforge targets
//
// Expressions use Go syntax with calls to the built-in math functions.
// A YAML file given with --config overrides the target's function map,
// include lines and toolchain command.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/symforge/symforge/autowrap"
	"github.com/symforge/symforge/codegen"
	"github.com/symforge/symforge/expr"
	"github.com/symforge/symforge/pipeline"
)

var (
	flagTarget string
	flagConfig string

	flagName   string
	flagExpr   string
	flagOut    string
	flagShapes []string
	flagNoOpt  bool
	flagNoCSE  bool
	flagOutput string

	flagCacheDir string
	flagTimeout  time.Duration
	flagVerify   bool
)

func main() {
	root := &cobra.Command{
		Use:           "symforge",
		Short:         "compile symbolic math expressions into native routines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagTarget, "target", "c99", "output target (c99, f95)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML target override file")

	root.AddCommand(newGenCmd(), newBuildCmd(), newTargetsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "symforge: %v\n", err)
		os.Exit(1)
	}
}

func addExprFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagName, "name", "", "routine name (required)")
	cmd.Flags().StringVar(&flagExpr, "expr", "", "expression in Go syntax (required)")
	cmd.Flags().StringVar(&flagOut, "out", "", "output variable; empty means return value")
	cmd.Flags().StringArrayVar(&flagShapes, "shape", nil, "argument shape, e.g. \"x=n\" or \"m=3,3\" (repeatable)")
	cmd.Flags().BoolVar(&flagNoOpt, "no-opt", false, "skip expression rewriting")
	cmd.Flags().BoolVar(&flagNoCSE, "no-cse", false, "skip common subexpression elimination")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("expr")
}

func buildRequest() (*pipeline.Request, *codegen.TargetConfig, error) {
	target, err := resolveTarget(flagTarget, flagConfig)
	if err != nil {
		return nil, nil, err
	}

	b := expr.NewBuilder()
	root, err := expr.ParseExpr(b, flagExpr)
	if err != nil {
		return nil, nil, err
	}

	var opts []codegen.RoutineOption
	for _, s := range flagShapes {
		name, shape, err := parseShape(s)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, codegen.WithShape(name, codegen.TypeFloat, shape))
	}

	req := &pipeline.Request{
		Name:       flagName,
		Builder:    b,
		Results:    []codegen.Result{{Var: flagOut, Expr: root}},
		Options:    opts,
		Target:     target,
		NoOptimize: flagNoOpt,
		NoCSE:      flagNoCSE,
	}
	return req, target, nil
}

func newGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "generate source without building it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, _, err := buildRequest()
			if err != nil {
				return err
			}
			req.DryRun = true

			c, err := pipeline.New()
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Compile(cmd.Context(), req)
			if err != nil {
				return err
			}
			if flagOutput != "" {
				return os.WriteFile(flagOutput, []byte(res.Source), 0o644)
			}
			fmt.Print(res.Source)
			return nil
		},
	}
	addExprFlags(cmd)
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write source to file instead of stdout")
	return cmd
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "generate, compile and report the artifact",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, _, err := buildRequest()
			if err != nil {
				return err
			}
			req.NoBind = true

			var buildOpts []autowrap.Option
			if flagCacheDir != "" {
				buildOpts = append(buildOpts, autowrap.WithCacheDir(flagCacheDir))
			}
			if flagTimeout > 0 {
				buildOpts = append(buildOpts, autowrap.WithTimeout(flagTimeout))
			}
			if flagVerify {
				buildOpts = append(buildOpts, autowrap.WithVerify())
			}

			c, err := pipeline.New(pipeline.WithBuildOptions(buildOpts...))
			if err != nil {
				return err
			}
			if flagCacheDir == "" {
				// Keep the artifact around only when the user chose a
				// cache directory; otherwise Close would delete it.
				defer c.Close()
			}

			res, err := c.Compile(context.Background(), req)
			if err != nil {
				return err
			}
			fmt.Printf("artifact: %s\n", res.Artifact.Path)
			if log := strings.TrimSpace(res.Artifact.BuildLog); log != "" {
				fmt.Printf("build log:\n%s\n", log)
			}
			return nil
		},
	}
	addExprFlags(cmd)
	cmd.Flags().StringVar(&flagCacheDir, "cache-dir", "", "persistent artifact cache directory")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "toolchain timeout")
	cmd.Flags().BoolVar(&flagVerify, "verify", false, "parse generated C before compiling")
	return cmd
}

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "list built-in targets",
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, t := range builtinTargets() {
				bind := "source only"
				if t.NativeEntry {
					bind = "native binding"
				}
				fmt.Printf("%-6s %s %s (%s)\n",
					t.Name, t.Toolchain.Command, strings.Join(t.Toolchain.Args, " "), bind)
			}
			return nil
		},
	}
}

func parseShape(s string) (string, codegen.Shape, error) {
	name, dims, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid --shape %q, expected name=dims", s)
	}
	var shape codegen.Shape
	for _, d := range strings.Split(dims, ",") {
		d = strings.TrimSpace(d)
		if n, err := strconv.Atoi(d); err == nil {
			if n <= 0 {
				return "", nil, fmt.Errorf("invalid --shape %q: extents must be positive", s)
			}
			shape = append(shape, codegen.FixedDim(n))
			continue
		}
		shape = append(shape, codegen.SymDim(d))
	}
	return name, shape, nil
}
