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

// Package pipeline composes the full path from symbolic expressions to
// a bound native callable: adapt, optimize, eliminate common
// subexpressions, assemble a routine, generate source, build it with
// the external toolchain and load the result. Each stage failure is
// wrapped in a StageError naming the stage, so a caller can tell a
// shape problem from a broken compiler.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/symforge/symforge/autowrap"
	"github.com/symforge/symforge/codegen"
	"github.com/symforge/symforge/expr"
	"github.com/symforge/symforge/workerpool"
)

// Stage names one pipeline phase for error reporting.
type Stage string

const (
	StageAdapt    Stage = "adapt"
	StageOptimize Stage = "optimize"
	StageCSE      Stage = "cse"
	StageRoutine  Stage = "routine"
	StageGenerate Stage = "generate"
	StageBuild    Stage = "build"
	StageBind     Stage = "bind"
)

// StageError wraps a failure with the stage and routine it came from.
type StageError struct {
	Stage   Stage
	Routine string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: stage %s: %v", e.Routine, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ExternalResult pairs a foreign expression with its output variable
// (empty for the return value).
type ExternalResult struct {
	Var  string
	Expr expr.ExternalExpr
}

// Request describes one routine to compile.
type Request struct {
	// Name is the routine (and symbol) name.
	Name string

	// Builder is the interning builder the expressions live in.
	Builder *expr.Builder

	// Results are the routine's outgoing expressions. Leave empty and
	// fill External to have the pipeline adapt a foreign tree first.
	Results []codegen.Result

	// External holds foreign expressions to adapt when Results is
	// empty.
	External []ExternalResult

	// Options are passed to routine assembly (shapes, explicit
	// argument order).
	Options []codegen.RoutineOption

	// Target selects the output language; nil means C.
	Target *codegen.TargetConfig

	// NoOptimize skips the rewrite pipeline; NoCSE skips subexpression
	// elimination. Generated code is still correct, just slower.
	NoOptimize bool
	NoCSE      bool

	// DryRun stops after generation, leaving Source populated but
	// building nothing.
	DryRun bool

	// NoBind builds without loading the artifact.
	NoBind bool
}

// Result is the outcome of one compiled request.
type Result struct {
	Routine *codegen.Routine
	Source  string

	// RewriteStats reports what the optimizer did, aggregated over the
	// request's expressions.
	RewriteStats expr.Stats

	// Artifact and Callable are nil for dry runs; Callable is also nil
	// for targets without a native entry point or when NoBind is set.
	Artifact *autowrap.Artifact
	Callable *autowrap.Callable
}

// Compiler runs requests through the pipeline. It owns an autowrap
// builder (artifact cache included) and a worker pool for batches.
type Compiler struct {
	build   *autowrap.Builder
	pool    *workerpool.Pool
	ownPool bool
	rewrite *expr.Pipeline
}

// CompilerOption configures New.
type CompilerOption func(*compilerConfig)

type compilerConfig struct {
	buildOpts []autowrap.Option
	pool      *workerpool.Pool
	rewrite   *expr.Pipeline
}

// WithBuildOptions forwards options to the autowrap builder.
func WithBuildOptions(opts ...autowrap.Option) CompilerOption {
	return func(c *compilerConfig) { c.buildOpts = append(c.buildOpts, opts...) }
}

// WithPool substitutes a shared worker pool for batch compilation. The
// compiler does not close pools it did not create.
func WithPool(p *workerpool.Pool) CompilerOption {
	return func(c *compilerConfig) { c.pool = p }
}

// WithRewrite substitutes the rewrite pipeline applied to every
// request.
func WithRewrite(p *expr.Pipeline) CompilerOption {
	return func(c *compilerConfig) { c.rewrite = p }
}

// New returns a ready Compiler.
func New(opts ...CompilerOption) (*Compiler, error) {
	var cfg compilerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	b, err := autowrap.NewBuilder(cfg.buildOpts...)
	if err != nil {
		return nil, err
	}
	c := &Compiler{build: b, rewrite: cfg.rewrite}
	if c.rewrite == nil {
		c.rewrite = expr.NewPipeline()
	}
	c.pool = cfg.pool
	if c.pool == nil {
		c.pool = workerpool.New(0)
		c.ownPool = true
	}
	return c, nil
}

// Close releases the artifact cache and, when owned, the worker pool.
func (c *Compiler) Close() error {
	if c.ownPool {
		c.pool.Close()
	}
	return c.build.Close()
}

// Compile runs one request through every stage.
func (c *Compiler) Compile(ctx context.Context, req *Request) (*Result, error) {
	target := req.Target
	if target == nil {
		target = codegen.CTarget()
	}
	b := req.Builder
	if b == nil {
		return nil, &StageError{Stage: StageAdapt, Routine: req.Name,
			Err: errors.New("request has no expression builder")}
	}

	// Copied so the optimize and CSE loops below never write through
	// the caller's Request.
	results := append([]codegen.Result(nil), req.Results...)
	if len(results) == 0 {
		for _, ext := range req.External {
			n, err := b.Adapt(ext.Expr)
			if err != nil {
				return nil, &StageError{Stage: StageAdapt, Routine: req.Name, Err: err}
			}
			results = append(results, codegen.Result{Var: ext.Var, Expr: n})
		}
	}
	if len(results) == 0 {
		return nil, &StageError{Stage: StageAdapt, Routine: req.Name,
			Err: errors.New("request has no expressions")}
	}

	res := &Result{}

	if !req.NoOptimize {
		for i := range results {
			n, stats := c.rewrite.Optimize(b, results[i].Expr)
			results[i].Expr = n
			if stats.Iterations > res.RewriteStats.Iterations {
				res.RewriteStats.Iterations = stats.Iterations
			}
			res.RewriteStats.ReachedCap = res.RewriteStats.ReachedCap || stats.ReachedCap
		}
		debugf("%s: optimizer ran %d iteration(s)", req.Name, res.RewriteStats.Iterations)
	}

	opts := req.Options
	if !req.NoCSE {
		roots := make([]*expr.Node, len(results))
		for i, r := range results {
			roots[i] = r.Expr
		}
		temps, rewritten := expr.Eliminate(b, roots)
		for i := range results {
			results[i].Expr = rewritten[i]
		}
		if len(temps) > 0 {
			debugf("%s: hoisted %d common subexpression(s)", req.Name, len(temps))
			opts = append(append([]codegen.RoutineOption(nil), opts...), codegen.WithTemps(temps))
		}
	}

	routine, err := codegen.NewRoutine(req.Name, results, opts...)
	if err != nil {
		return nil, &StageError{Stage: StageRoutine, Routine: req.Name, Err: err}
	}
	res.Routine = routine

	source, err := codegen.Generate(routine, target)
	if err != nil {
		return nil, &StageError{Stage: StageGenerate, Routine: req.Name, Err: err}
	}
	res.Source = source
	if req.DryRun {
		return res, nil
	}

	artifact, err := c.build.Build(ctx, source, target)
	if err != nil {
		return nil, &StageError{Stage: StageBuild, Routine: req.Name, Err: err}
	}
	res.Artifact = artifact

	if !req.NoBind && target.NativeEntry {
		callable, err := artifact.Bind(routine, target)
		if err != nil {
			return nil, &StageError{Stage: StageBind, Routine: req.Name, Err: err}
		}
		res.Callable = callable
	}
	return res, nil
}

// CompileAll compiles requests in parallel over the worker pool.
// results[i] corresponds to reqs[i] and is nil when that request
// failed; the returned error joins every per-request failure.
func (c *Compiler) CompileAll(ctx context.Context, reqs []*Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	errs := make([]error, len(reqs))
	c.pool.Each(len(reqs), func(i int) {
		results[i], errs[i] = c.Compile(ctx, reqs[i])
	})
	return results, errors.Join(errs...)
}

var debugEnabled = os.Getenv("SYMFORGE_DEBUG") != ""

func debugf(format string, args ...any) {
	if debugEnabled {
		fmt.Fprintf(os.Stderr, "pipeline: "+format+"\n", args...)
	}
}
