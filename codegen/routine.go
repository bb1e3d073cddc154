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

// Package codegen turns expression trees into complete target-language
// routines. Target specifics live in TargetConfig data tables; the
// printer and generator dispatch on node kind only, so new targets are
// added by supplying new tables rather than new code paths.
package codegen

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/symforge/symforge/expr"
)

// DataType is the element type of an argument or result.
type DataType int

const (
	// TypeFloat is a double-precision floating point element.
	TypeFloat DataType = iota

	// TypeInt is a native integer element.
	TypeInt
)

// String returns a human-readable name for the DataType.
func (t DataType) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	default:
		return fmt.Sprintf("DataType(%d)", t)
	}
}

// Dim is one axis extent: fixed when Extent > 0, symbolic otherwise.
type Dim struct {
	Extent int
	Sym    string
}

// FixedDim returns a fixed extent.
func FixedDim(n int) Dim { return Dim{Extent: n} }

// SymDim returns a symbolic extent named after an integer argument.
func SymDim(name string) Dim { return Dim{Sym: name} }

// IsFixed reports whether the extent is a compile-time constant.
func (d Dim) IsFixed() bool { return d.Extent > 0 }

// String renders the extent for diagnostics.
func (d Dim) String() string {
	if d.IsFixed() {
		return fmt.Sprintf("%d", d.Extent)
	}
	return d.Sym
}

// Shape is an ordered list of axis extents. A nil or empty shape is a
// scalar.
type Shape []Dim

// ScalarShape is the shape of a scalar value.
var ScalarShape = Shape(nil)

// Rank returns the number of axes.
func (s Shape) Rank() int { return len(s) }

// IsScalar reports whether the shape has no axes.
func (s Shape) IsScalar() bool { return len(s) == 0 }

// String renders the shape for diagnostics.
func (s Shape) String() string {
	if s.IsScalar() {
		return "scalar"
	}
	parts := lo.Map(s, func(d Dim, _ int) string { return d.String() })
	return "[" + joinComma(parts) + "]"
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

func dimEqual(a, b Dim) bool {
	if a.IsFixed() != b.IsFixed() {
		return false
	}
	if a.IsFixed() {
		return a.Extent == b.Extent
	}
	return a.Sym == b.Sym
}

// Broadcast aligns two shapes right-justified and returns the combined
// shape. The lower-rank operand is treated as constant along the missing
// leading axes; aligned extents must match exactly, there is no implicit
// reshaping beyond rank extension.
func Broadcast(a, b Shape) (Shape, error) {
	if a.Rank() < b.Rank() {
		a, b = b, a
	}
	offset := a.Rank() - b.Rank()
	for i, dim := range b {
		if !dimEqual(a[offset+i], dim) {
			return nil, fmt.Errorf("axis %d: extent %s vs %s", offset+i, a[offset+i], dim)
		}
	}
	return a, nil
}

// Direction classifies how an argument crosses the routine boundary.
type Direction int

const (
	// DirIn is a read-only input.
	DirIn Direction = iota

	// DirOut is written by the routine and never read before writing.
	DirOut

	// DirInOut is both read and written.
	DirInOut
)

// String returns a human-readable name for the Direction.
func (d Direction) String() string {
	switch d {
	case DirIn:
		return "in"
	case DirOut:
		return "out"
	case DirInOut:
		return "inout"
	default:
		return fmt.Sprintf("Direction(%d)", d)
	}
}

// Argument is one formal parameter of a routine.
type Argument struct {
	Name      string
	Type      DataType
	Shape     Shape
	Direction Direction
}

// Result is one outgoing value: an output write when Var names an
// output argument, or the routine's return value when Var is empty.
type Result struct {
	Var  string
	Expr *expr.Node
}

// Routine is a complete callable unit: name, ordered argument list,
// CSE temporaries in topological order, and the outgoing results.
type Routine struct {
	Name    string
	Args    []Argument
	Temps   []expr.TempAssignment
	Results []Result
}

// RoutineOption configures NewRoutine.
type RoutineOption func(*routineConfig)

type routineConfig struct {
	explicit []Argument
	declared map[string]Argument
	temps    []expr.TempAssignment
}

// WithArguments supplies the full argument sequence in a preferred
// order. Every free symbol of the routine's expressions must appear;
// extra (redundant) arguments are permitted, matching callers that want
// a uniform signature across several routines.
func WithArguments(args ...Argument) RoutineOption {
	return func(c *routineConfig) { c.explicit = args }
}

// WithShape attaches a type and shape to an inferred argument name.
func WithShape(name string, t DataType, shape Shape) RoutineOption {
	return func(c *routineConfig) {
		c.declared[name] = Argument{Name: name, Type: t, Shape: shape}
	}
}

// WithTemps attaches common-subexpression temporaries, in topological
// order. Temp names are locals: they are excluded from argument
// inference, and the symbols their expressions reference count as
// inputs instead.
func WithTemps(temps []expr.TempAssignment) RoutineOption {
	return func(c *routineConfig) { c.temps = temps }
}

// NewRoutine builds a Routine for the given results. When no explicit
// argument sequence is supplied, arguments are inferred from the free
// symbols: inputs first in alphabetical order, then output arguments
// sorted by name. An output whose expression references the output
// symbol itself becomes an in-out argument.
func NewRoutine(name string, results []Result, opts ...RoutineOption) (*Routine, error) {
	if name == "" {
		return nil, fmt.Errorf("routine: name must not be empty")
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("routine %s: no expression given", name)
	}

	cfg := &routineConfig{declared: make(map[string]Argument)}
	for _, opt := range opts {
		opt(cfg)
	}

	returns := lo.Filter(results, func(r Result, _ int) bool { return r.Var == "" })
	if len(returns) > 1 {
		return nil, fmt.Errorf("routine %s: only a single return value is supported", name)
	}

	outVars := make(map[string]bool)
	for _, r := range results {
		if r.Var != "" {
			outVars[r.Var] = true
		}
	}

	tempNames := make(map[string]bool, len(cfg.temps))
	roots := lo.Map(results, func(r Result, _ int) *expr.Node { return r.Expr })
	for _, tmp := range cfg.temps {
		tempNames[tmp.Name] = true
		roots = append(roots, tmp.Expr)
	}
	free := expr.FreeSymbols(roots...)

	r := &Routine{Name: name, Temps: cfg.temps, Results: results}

	if cfg.explicit != nil {
		byName := lo.KeyBy(cfg.explicit, func(a Argument) string { return a.Name })
		for _, sym := range free {
			if _, ok := byName[sym]; !ok && !outVars[sym] && !tempNames[sym] {
				return nil, fmt.Errorf("routine %s: argument list didn't specify: %s", name, sym)
			}
		}
		r.Args = cfg.explicit
		return r, r.Validate()
	}

	var inputs, outputs []Argument
	for _, sym := range free {
		if outVars[sym] || tempNames[sym] {
			continue
		}
		arg, ok := cfg.declared[sym]
		if !ok {
			arg = Argument{Name: sym, Type: TypeFloat}
		}
		arg.Direction = DirIn
		inputs = append(inputs, arg)
	}
	for _, r := range results {
		if r.Var == "" {
			continue
		}
		arg, ok := cfg.declared[r.Var]
		if !ok {
			arg = Argument{Name: r.Var, Type: TypeFloat}
		}
		arg.Direction = DirOut
		reads := referencesSymbol(r.Expr, r.Var) || lo.SomeBy(cfg.temps, func(tmp expr.TempAssignment) bool {
			return referencesSymbol(tmp.Expr, r.Var)
		})
		if reads {
			arg.Direction = DirInOut
		}
		outputs = append(outputs, arg)
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Name < outputs[j].Name })

	r.Args = append(inputs, outputs...)
	return r, r.Validate()
}

func referencesSymbol(n *expr.Node, name string) bool {
	found := false
	expr.Walk(n, func(n *expr.Node) {
		if n.Kind == expr.KindSymbol && n.Name == name {
			found = true
		}
	})
	return found
}

// Validate checks the no-forward-reference invariant: every temp's
// expression references only arguments or earlier temps, and every
// result references only arguments or temps. Called before printing.
func (r *Routine) Validate() error {
	known := make(map[string]bool, len(r.Args))
	for _, a := range r.Args {
		known[a.Name] = true
	}
	for i, t := range r.Temps {
		if known[t.Name] {
			return fmt.Errorf("routine %s: duplicate name %q", r.Name, t.Name)
		}
		for _, sym := range expr.FreeSymbols(t.Expr) {
			if !known[sym] {
				return fmt.Errorf("routine %s: temp %s (index %d) references %q before its definition",
					r.Name, t.Name, i, sym)
			}
		}
		known[t.Name] = true
	}
	for _, res := range r.Results {
		if res.Expr == nil {
			return fmt.Errorf("routine %s: result without expression", r.Name)
		}
		for _, sym := range expr.FreeSymbols(res.Expr) {
			if !known[sym] {
				return fmt.Errorf("routine %s: result references undeclared symbol %q", r.Name, sym)
			}
		}
		if res.Var != "" && !known[res.Var] {
			return fmt.Errorf("routine %s: output %q is not an argument", r.Name, res.Var)
		}
	}
	return nil
}

// Arg returns the named argument, if declared.
func (r *Routine) Arg(name string) (Argument, bool) {
	return lo.Find(r.Args, func(a Argument) bool { return a.Name == name })
}
