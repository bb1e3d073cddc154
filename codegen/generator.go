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

package codegen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/symforge/symforge/expr"
)

// Signature is the flattened native calling convention of a generated
// routine, derived from its argument list. The wrapper uses it to
// marshal Go values into the uniform entry shim: scalar inputs in
// argument order, array pointers in argument order, symbolic extents in
// first-use order, then scalar outputs (and the return value last) in
// the out buffer.
type Signature struct {
	ScalarIn  []string
	Arrays    []string
	Extents   []string
	ScalarOut []string
	HasReturn bool
}

// NativeSignature computes the flattened calling convention for r.
func NativeSignature(r *Routine) Signature {
	var sig Signature
	for _, a := range r.Args {
		if a.Shape.IsScalar() {
			if a.Direction == DirIn {
				sig.ScalarIn = append(sig.ScalarIn, a.Name)
			} else {
				sig.ScalarOut = append(sig.ScalarOut, a.Name)
			}
		} else {
			sig.Arrays = append(sig.Arrays, a.Name)
		}
	}
	sig.Extents = symbolicExtents(r)
	for _, res := range r.Results {
		if res.Var == "" {
			sig.HasReturn = true
		}
	}
	return sig
}

// symbolicExtents lists the symbolic extent names appearing in the
// argument shapes, in first-use order, skipping names that are already
// declared arguments.
func symbolicExtents(r *Routine) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range r.Args {
		for _, d := range a.Shape {
			if d.IsFixed() || seen[d.Sym] {
				continue
			}
			seen[d.Sym] = true
			if _, declared := r.Arg(d.Sym); declared {
				continue
			}
			out = append(out, d.Sym)
		}
	}
	return out
}

// Generate renders r as complete source text for the target. All shape
// checking happens before any text is emitted, so a non-nil error means
// no partial output. The output is byte-for-byte deterministic for a
// given routine and target.
func Generate(r *Routine, t *TargetConfig) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	g := &generator{r: r, t: t, shapes: make(map[string]Shape)}
	if err := g.analyze(); err != nil {
		return "", err
	}
	return g.emit()
}

type generator struct {
	r *Routine
	t *TargetConfig

	// shapes maps argument and temp names to their shapes.
	shapes map[string]Shape

	extents   []string
	hasReturn bool

	// resShapes[i] is the iteration shape of r.Results[i]: the output
	// argument's shape, or scalar for the return value.
	resShapes []Shape

	// loopShape is the broadcast of all result shapes; the emitted
	// loop nest iterates over it.
	loopShape Shape
	loopVars  []string

	scalarTemps []expr.TempAssignment
	arrayTemps  []expr.TempAssignment

	buf   bytes.Buffer
	depth int
}

func shapeEqual(a, b Shape) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !dimEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// exprShape broadcasts the shapes of every symbol referenced by n.
// Unknown symbols (none after Validate) count as scalar.
func (g *generator) exprShape(n *expr.Node) (Shape, error) {
	var acc Shape
	for _, sym := range expr.FreeSymbols(n) {
		s, err := Broadcast(acc, g.shapes[sym])
		if err != nil {
			return nil, &ShapeMismatchError{Routine: g.r.Name, Var: sym, Reason: err.Error()}
		}
		acc = s
	}
	return acc, nil
}

func (g *generator) analyze() error {
	r := g.r
	for _, a := range r.Args {
		g.shapes[a.Name] = a.Shape
	}
	g.extents = symbolicExtents(r)

	for _, tmp := range r.Temps {
		s, err := g.exprShape(tmp.Expr)
		if err != nil {
			return err
		}
		g.shapes[tmp.Name] = s
		if s.IsScalar() {
			g.scalarTemps = append(g.scalarTemps, tmp)
		} else {
			g.arrayTemps = append(g.arrayTemps, tmp)
		}
	}

	for _, res := range r.Results {
		es, err := g.exprShape(res.Expr)
		if err != nil {
			return err
		}
		if res.Var == "" {
			g.hasReturn = true
			if !es.IsScalar() {
				return &ShapeMismatchError{Routine: r.Name,
					Reason: fmt.Sprintf("return value has shape %s, expected scalar", es)}
			}
			g.resShapes = append(g.resShapes, ScalarShape)
			continue
		}
		arg, ok := r.Arg(res.Var)
		if !ok {
			return fmt.Errorf("codegen: routine %s: output %q is not an argument", r.Name, res.Var)
		}
		comb, err := Broadcast(es, arg.Shape)
		if err != nil {
			return &ShapeMismatchError{Routine: r.Name, Var: res.Var, Reason: err.Error()}
		}
		if !shapeEqual(comb, arg.Shape) {
			return &ShapeMismatchError{Routine: r.Name, Var: res.Var,
				Reason: fmt.Sprintf("expression shape %s exceeds output shape %s", es, arg.Shape)}
		}
		g.resShapes = append(g.resShapes, arg.Shape)
	}

	for _, s := range g.resShapes {
		comb, err := Broadcast(g.loopShape, s)
		if err != nil {
			return &ShapeMismatchError{Routine: r.Name, Reason: err.Error()}
		}
		g.loopShape = comb
	}

	taken := make(map[string]bool, len(g.shapes))
	for name := range g.shapes {
		taken[name] = true
	}
	for _, e := range g.extents {
		taken[e] = true
	}
	for i := range g.loopShape {
		v := fmt.Sprintf("i%d", i)
		for taken[v] {
			v += "_"
		}
		taken[v] = true
		g.loopVars = append(g.loopVars, v)
	}
	return nil
}

func (g *generator) line(s string) {
	for i := 0; i < g.depth; i++ {
		g.buf.WriteString("    ")
	}
	g.buf.WriteString(s)
	g.buf.WriteByte('\n')
}

func (g *generator) extentText(d Dim) string {
	if d.IsFixed() {
		return strconv.Itoa(d.Extent)
	}
	return g.t.EscapeIdent(d.Sym)
}

// indexRef renders an array reference right-aligned against the loop
// nest: a rank-m array in a rank-k nest is indexed by the innermost m
// loop variables.
func (g *generator) indexRef(name string, shape Shape) string {
	t := g.t
	vars := g.loopVars[len(g.loopShape)-shape.Rank():]
	var idx string
	if t.Forms.FlatIndex {
		idx = vars[0]
		for j := 1; j < len(vars); j++ {
			idx = "(" + idx + ") * " + g.extentText(shape[j]) + " + " + vars[j]
		}
	} else {
		idx = strings.Join(vars, t.Forms.IndexSep)
	}
	return expand(t.Forms.Index, "{name}", t.EscapeIdent(name), "{indices}", idx)
}

// baseSubs rewrites reads of by-pointer scalar outputs; loop bodies add
// indexed array accesses on top.
func (g *generator) baseSubs() map[string]string {
	subs := make(map[string]string)
	for _, a := range g.r.Args {
		if a.Shape.IsScalar() && a.Direction != DirIn {
			subs[a.Name] = expand(g.t.Forms.ScalarOutRef, "{name}", g.t.EscapeIdent(a.Name))
		}
	}
	return subs
}

func (g *generator) param(a Argument) string {
	f := g.t.Forms
	tmpl := f.ParamScalar
	switch {
	case !a.Shape.IsScalar() && a.Direction == DirIn:
		tmpl = f.ParamArrayIn
	case !a.Shape.IsScalar():
		tmpl = f.ParamArrayOut
	case a.Direction != DirIn:
		tmpl = f.ParamOutScalar
	}
	return expand(tmpl, "{type}", g.t.MapType(a.Type), "{name}", g.t.EscapeIdent(a.Name))
}

func (g *generator) emitTemp(tmp expr.TempAssignment, subs map[string]string) error {
	t := g.t
	body, err := printExprSubst(tmp.Expr, t, subs)
	if err != nil {
		return err
	}
	if t.Forms.HoistDecls {
		g.line(expand(t.Forms.Assign, "{lhs}", tmp.Name, "{expr}", body))
		return nil
	}
	g.line(expand(t.Forms.Declare,
		"{type}", t.MapType(TypeFloat), "{name}", tmp.Name, "{expr}", body))
	return nil
}

func (g *generator) emit() (string, error) {
	r, t := g.r, g.t
	f := t.Forms

	if f.Comment != "" {
		g.line(expand(f.Comment, "{text}", "Generated by symforge. Do not edit."))
	}
	for _, inc := range t.Includes {
		g.line(inc)
	}
	if f.Comment != "" || len(t.Includes) > 0 {
		g.buf.WriteByte('\n')
	}

	params := make([]string, 0, len(r.Args)+len(g.extents))
	for _, a := range r.Args {
		params = append(params, g.param(a))
	}
	for _, e := range g.extents {
		params = append(params, expand(f.ParamScalar, "{type}", t.IndexType, "{name}", t.EscapeIdent(e)))
	}

	open, closing := f.RoutineOpenSub, f.RoutineCloseSub
	if g.hasReturn {
		open, closing = f.RoutineOpenFunc, f.RoutineCloseFunc
	}
	g.line(expand(open,
		"{rtype}", t.MapType(TypeFloat),
		"{name}", r.Name,
		"{params}", strings.Join(params, ", ")))
	g.depth++

	for _, p := range f.BodyPrologue {
		g.line(p)
	}
	if f.ArgDecl != "" {
		for _, a := range r.Args {
			dims := ""
			if !a.Shape.IsScalar() {
				parts := make([]string, len(a.Shape))
				for i, d := range a.Shape {
					parts[i] = g.extentText(d)
				}
				dims = expand(f.DimsFmt, "{dims}", strings.Join(parts, ", "))
			}
			g.line(expand(f.ArgDecl,
				"{type}", t.MapType(a.Type),
				"{intent}", a.Direction.String(),
				"{dims}", dims,
				"{name}", t.EscapeIdent(a.Name)))
		}
		for _, e := range g.extents {
			g.line(expand(f.ArgDecl,
				"{type}", t.IndexType, "{intent}", "in", "{dims}", "", "{name}", t.EscapeIdent(e)))
		}
	}
	if f.HoistDecls {
		for _, tmp := range r.Temps {
			g.line(expand(f.DeclareOnly, "{type}", t.MapType(TypeFloat), "{name}", tmp.Name))
		}
		for _, v := range g.loopVars {
			g.line(expand(f.DeclareOnly, "{type}", t.IndexType, "{name}", v))
		}
	}

	subs := g.baseSubs()
	for _, tmp := range g.scalarTemps {
		if err := g.emitTemp(tmp, subs); err != nil {
			return "", err
		}
	}

	if !g.loopShape.IsScalar() {
		loopSubs := make(map[string]string, len(subs))
		for k, v := range subs {
			loopSubs[k] = v
		}
		for _, a := range r.Args {
			if !a.Shape.IsScalar() {
				loopSubs[a.Name] = g.indexRef(a.Name, a.Shape)
			}
		}

		for i, d := range g.loopShape {
			g.line(expand(f.LoopOpen,
				"{itype}", t.IndexType,
				"{var}", g.loopVars[i],
				"{start}", strconv.Itoa(f.IndexBase),
				"{end}", g.extentText(d)))
			g.depth++
		}
		for _, tmp := range g.arrayTemps {
			if err := g.emitTemp(tmp, loopSubs); err != nil {
				return "", err
			}
		}
		for i, res := range r.Results {
			if res.Var == "" || g.resShapes[i].IsScalar() {
				continue
			}
			body, err := printExprSubst(res.Expr, t, loopSubs)
			if err != nil {
				return "", err
			}
			g.line(expand(f.Assign,
				"{lhs}", g.indexRef(res.Var, g.resShapes[i]), "{expr}", body))
		}
		for range g.loopShape {
			g.depth--
			g.line(f.LoopClose)
		}
	}

	for i, res := range r.Results {
		if res.Var == "" || !g.resShapes[i].IsScalar() {
			continue
		}
		body, err := printExprSubst(res.Expr, t, subs)
		if err != nil {
			return "", err
		}
		g.line(expand(f.Assign,
			"{lhs}", expand(f.ScalarOutLHS, "{name}", t.EscapeIdent(res.Var)), "{expr}", body))
	}
	for _, res := range r.Results {
		if res.Var != "" {
			continue
		}
		body, err := printExprSubst(res.Expr, t, subs)
		if err != nil {
			return "", err
		}
		g.line(expand(f.Return, "{expr}", body, "{routine}", r.Name))
	}

	g.depth--
	g.line(expand(closing, "{name}", r.Name))

	if t.NativeEntry {
		g.buf.WriteByte('\n')
		g.emitEntryShim()
	}
	return g.buf.String(), nil
}

// EntrySuffix is appended to the routine name to form the exported
// entry shim symbol.
const EntrySuffix = "_entry"

// emitEntryShim writes the uniform C-ABI entry point the wrapper binds:
// scalar inputs arrive as doubles, arrays as untyped pointers, symbolic
// extents as 64-bit integers, and scalar outputs plus the return value
// land in the out buffer.
func (g *generator) emitEntryShim() {
	r, t := g.r, g.t
	g.line(fmt.Sprintf(
		"void %s%s(const double *scalars, void **arrays, const long long *extents, double *out) {",
		r.Name, EntrySuffix))
	g.depth++

	var args []string
	si, ai, oi := 0, 0, 0
	for _, a := range r.Args {
		switch {
		case !a.Shape.IsScalar():
			c := ""
			if a.Direction == DirIn {
				c = "const "
			}
			args = append(args, fmt.Sprintf("(%s%s *)arrays[%d]", c, t.MapType(a.Type), ai))
			ai++
		case a.Direction != DirIn:
			args = append(args, fmt.Sprintf("&out[%d]", oi))
			oi++
		case a.Type == TypeInt:
			args = append(args, fmt.Sprintf("(%s)scalars[%d]", t.MapType(TypeInt), si))
			si++
		default:
			args = append(args, fmt.Sprintf("scalars[%d]", si))
			si++
		}
	}
	for i := range g.extents {
		args = append(args, fmt.Sprintf("extents[%d]", i))
	}

	call := fmt.Sprintf("%s(%s);", r.Name, strings.Join(args, ", "))
	if g.hasReturn {
		call = fmt.Sprintf("out[%d] = %s", oi, call)
	}
	g.line(call)
	g.depth--
	g.line("}")
}
