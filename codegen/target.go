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
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/symforge/symforge/expr"
)

// OpSyntax describes how one operator kind renders in a target language.
type OpSyntax struct {
	// Symbol is the infix (or prefix, for Neg) operator text.
	Symbol string

	// Prec is the operator precedence; children with lower precedence
	// are parenthesized.
	Prec int

	// RightAssoc marks right-associative operators (exponentiation).
	RightAssoc bool

	// Func, when non-empty, renders the operator as a call to the named
	// function instead of infix syntax (pow in C).
	Func string
}

// Operand precedence assigned to leaves and calls; never parenthesized.
const atomPrec = 100

// LiteralFormat is the numeric-literal formatting rule for a target.
type LiteralFormat struct {
	// Precision is the significant-digit count passed to formatting;
	// -1 selects the shortest round-trip representation.
	Precision int

	// ExpChar replaces "e" in exponent notation ("d" for Fortran).
	ExpChar string

	// Suffix is appended to literals without an exponent ("d0").
	Suffix string
}

// Format renders v under the rule. Literals always carry a decimal
// point or exponent so integer-division semantics can never sneak in.
func (f LiteralFormat) Format(v float64) string {
	s := strconv.FormatFloat(v, 'g', f.Precision, 64)
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		if f.ExpChar != "" {
			s = s[:i] + f.ExpChar + s[i+1:]
		}
		return s
	}
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + f.Suffix
}

// Forms holds the statement templates for a target. Placeholders in
// braces are substituted verbatim; the generator never branches on the
// target language, only on which templates are present.
type Forms struct {
	// RoutineOpenFunc opens a routine with a return value.
	// Placeholders: {rtype} {name} {params}.
	RoutineOpenFunc string

	// RoutineOpenSub opens a routine with output arguments only.
	RoutineOpenSub string

	// RoutineCloseFunc / RoutineCloseSub close the routine body.
	// Placeholder: {name}.
	RoutineCloseFunc string
	RoutineCloseSub  string

	// ParamScalar, ParamOutScalar, ParamArrayIn and ParamArrayOut
	// render one formal parameter; in-out arguments use the out form.
	// Placeholders: {type} {name}.
	ParamScalar    string
	ParamOutScalar string
	ParamArrayIn   string
	ParamArrayOut  string

	// BodyPrologue lines open every routine body ("implicit none").
	BodyPrologue []string

	// ArgDecl renders a body-level argument declaration (Fortran).
	// Empty when arguments are fully declared in the signature.
	// Placeholders: {type} {intent} {dims} {name}.
	ArgDecl string

	// DimsFmt renders the dimension attribute for ArgDecl.
	// Placeholder: {dims}.
	DimsFmt string

	// Declare declares-and-initializes a local. Placeholders:
	// {type} {name} {expr}.
	Declare string

	// DeclareOnly declares a local without initialization; used when
	// HoistDecls is set. Placeholders: {type} {name}.
	DeclareOnly string

	// HoistDecls moves local declarations to the top of the body and
	// turns initializations into plain assignments (Fortran).
	HoistDecls bool

	// ScalarOutRef and ScalarOutLHS render reads and writes of a
	// scalar output argument inside the body ("(*{name})" and
	// "*{name}" for by-pointer targets). Placeholder: {name}.
	ScalarOutRef string
	ScalarOutLHS string

	// Assign / Return render statements. Placeholders: {lhs} {expr},
	// and {routine} for targets that return by assigning to the
	// routine name.
	Assign string
	Return string

	// LoopOpen / LoopClose render one counted loop level. The template
	// itself fixes whether {end} is inclusive or exclusive; {start} is
	// filled with IndexBase. Placeholders: {itype} {var} {start} {end}.
	LoopOpen  string
	LoopClose string

	// Index renders an array reference; {indices} is the joined index
	// list. When FlatIndex is set the generator linearizes multi-axis
	// references into a single row-major offset expression first.
	Index     string
	IndexSep  string
	FlatIndex bool

	// IndexBase is the first valid index (0 or 1); it is also the loop
	// start value.
	IndexBase int

	// Comment renders a one-line comment. Placeholder: {text}.
	Comment string
}

func expand(template string, repl ...string) string {
	return strings.NewReplacer(repl...).Replace(template)
}

// Toolchain describes the external build command for a target.
type Toolchain struct {
	// Command is the compiler executable.
	Command string

	// Args are the command arguments; {src} and {out} are substituted
	// with the source and artifact paths.
	Args []string

	// SourceExt and ArtifactExt are the file extensions used in the
	// scratch directory.
	SourceExt   string
	ArtifactExt string
}

// TargetConfig carries every target-specific table needed to print,
// assemble and build a routine for one output language. It is immutable
// once constructed; callers that need overrides copy it first.
type TargetConfig struct {
	// Name identifies the target ("c99", "f95"); part of the artifact
	// fingerprint.
	Name string

	// Types maps element types to target type names.
	Types map[DataType]string

	// IndexType is the loop-counter / extent type name.
	IndexType string

	// Functions maps symbolic function names to target callables.
	// Callers may add override entries for unmapped functions.
	Functions map[string]string

	// Operators maps operator kinds to target syntax, including the
	// fixed per-target precedence table.
	Operators map[expr.Kind]OpSyntax

	// Literal is the numeric-literal formatting rule.
	Literal LiteralFormat

	// Reserved lists identifiers that collide with target keywords;
	// the printer escapes them with EscapeSuffix.
	Reserved     map[string]bool
	EscapeSuffix string

	// Includes are verbatim preprocessor/use lines for the prologue.
	Includes []string

	// Forms are the statement templates.
	Forms Forms

	// Toolchain is the external build configuration.
	Toolchain Toolchain

	// NativeEntry enables the uniform C-ABI entry shim used by the
	// wrapper to bind a native callable. Targets without it can still
	// be built, but not bound.
	NativeEntry bool
}

// Clone returns a deep-enough copy for per-request overrides (function
// table and toolchain args are copied; the rest is immutable data).
func (t *TargetConfig) Clone() *TargetConfig {
	c := *t
	c.Functions = make(map[string]string, len(t.Functions))
	for k, v := range t.Functions {
		c.Functions[k] = v
	}
	c.Toolchain.Args = append([]string(nil), t.Toolchain.Args...)
	return &c
}

// MapType returns the target type name for an element type.
func (t *TargetConfig) MapType(dt DataType) string {
	if name, ok := t.Types[dt]; ok {
		return name
	}
	return t.Types[TypeFloat]
}

// EscapeIdent escapes identifiers that collide with target reserved
// words.
func (t *TargetConfig) EscapeIdent(name string) string {
	if t.Reserved[strings.ToLower(name)] {
		return name + t.EscapeSuffix
	}
	return name
}

// Identity returns a stable description of everything that affects
// generated text and the build, for fingerprinting. Map contents are
// emitted in sorted order so the identity is deterministic.
func (t *TargetConfig) Identity() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "target=%s;toolchain=%s %s;includes=%s;",
		t.Name, t.Toolchain.Command, strings.Join(t.Toolchain.Args, " "),
		strings.Join(t.Includes, " "))
	keys := make([]string, 0, len(t.Functions))
	for k := range t.Functions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "fn:%s=%s;", k, t.Functions[k])
	}
	return sb.String()
}
