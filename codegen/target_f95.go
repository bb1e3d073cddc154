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

import "github.com/symforge/symforge/expr"

// Fortran95Target returns the built-in Fortran 95 target: free-form
// source, intent-annotated arguments, 1-based indexing and d0 double
// literals. The target builds shared objects but emits no C-ABI entry
// shim, so its artifacts cannot be bound in-process.
func Fortran95Target() *TargetConfig {
	return &TargetConfig{
		Name: "f95",
		Types: map[DataType]string{
			TypeFloat: "real(kind=8)",
			TypeInt:   "integer",
		},
		IndexType: "integer",
		Functions: map[string]string{
			"sin":   "sin",
			"cos":   "cos",
			"tan":   "tan",
			"asin":  "asin",
			"acos":  "acos",
			"atan":  "atan",
			"atan2": "atan2",
			"sinh":  "sinh",
			"cosh":  "cosh",
			"tanh":  "tanh",
			"exp":   "exp",
			"log":   "log",
			"sqrt":  "sqrt",
			"abs":   "abs",
			"floor": "floor",
			"ceil":  "ceiling",
		},
		Operators: map[expr.Kind]OpSyntax{
			expr.KindAdd: {Symbol: " + ", Prec: 10},
			expr.KindSub: {Symbol: " - ", Prec: 10},
			expr.KindMul: {Symbol: " * ", Prec: 20},
			expr.KindDiv: {Symbol: " / ", Prec: 20},
			expr.KindNeg: {Symbol: "-", Prec: 25},
			expr.KindPow: {Symbol: " ** ", Prec: 40, RightAssoc: true},
		},
		Literal: LiteralFormat{Precision: -1, ExpChar: "d", Suffix: "d0"},
		Reserved: map[string]bool{
			"call": true, "case": true, "common": true, "contains": true,
			"continue": true, "cycle": true, "data": true, "do": true,
			"else": true, "end": true, "exit": true, "function": true,
			"goto": true, "if": true, "implicit": true, "integer": true,
			"intent": true, "interface": true, "logical": true,
			"module": true, "none": true, "parameter": true, "program": true,
			"real": true, "return": true, "select": true, "stop": true,
			"subroutine": true, "then": true, "type": true, "use": true,
			"where": true, "while": true,
		},
		EscapeSuffix: "_v",
		Forms: Forms{
			RoutineOpenFunc:  "real(kind=8) function {name}({params})",
			RoutineOpenSub:   "subroutine {name}({params})",
			RoutineCloseFunc: "end function {name}",
			RoutineCloseSub:  "end subroutine {name}",
			ParamScalar:      "{name}",
			ParamOutScalar:   "{name}",
			ParamArrayIn:     "{name}",
			ParamArrayOut:    "{name}",
			BodyPrologue:     []string{"implicit none"},
			ArgDecl:          "{type}, intent({intent}){dims} :: {name}",
			DimsFmt:          ", dimension({dims})",
			ScalarOutRef:     "{name}",
			ScalarOutLHS:     "{name}",
			Declare:          "{type} :: {name}",
			DeclareOnly:      "{type} :: {name}",
			HoistDecls:       true,
			Assign:           "{lhs} = {expr}",
			Return:           "{routine} = {expr}",
			LoopOpen:         "do {var} = {start}, {end}",
			LoopClose:        "end do",
			Index:            "{name}({indices})",
			IndexSep:         ", ",
			IndexBase:        1,
			Comment:          "! {text}",
		},
		Toolchain: Toolchain{
			Command:     "gfortran",
			Args:        []string{"-shared", "-fPIC", "-O2", "-o", "{out}", "{src}"},
			SourceExt:   ".f90",
			ArtifactExt: ".so",
		},
		NativeEntry: false,
	}
}
