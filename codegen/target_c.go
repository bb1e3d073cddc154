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

// CTarget returns the built-in C99 target: math.h functions, 0-based
// row-major indexing, and a shared-object toolchain suitable for
// in-process binding.
func CTarget() *TargetConfig {
	return &TargetConfig{
		Name: "c99",
		Types: map[DataType]string{
			TypeFloat: "double",
			TypeInt:   "long long",
		},
		IndexType: "long long",
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
			"abs":   "fabs",
			"floor": "floor",
			"ceil":  "ceil",
			"pow":   "pow",
		},
		Operators: map[expr.Kind]OpSyntax{
			expr.KindAdd: {Symbol: " + ", Prec: 10},
			expr.KindSub: {Symbol: " - ", Prec: 10},
			expr.KindMul: {Symbol: " * ", Prec: 20},
			expr.KindDiv: {Symbol: " / ", Prec: 20},
			expr.KindNeg: {Symbol: "-", Prec: 30},
			// C has no power operator.
			expr.KindPow: {Func: "pow"},
		},
		Literal: LiteralFormat{Precision: -1, ExpChar: "e"},
		Reserved: map[string]bool{
			"auto": true, "break": true, "case": true, "char": true,
			"const": true, "continue": true, "default": true, "do": true,
			"double": true, "else": true, "enum": true, "extern": true,
			"float": true, "for": true, "goto": true, "if": true,
			"inline": true, "int": true, "long": true, "register": true,
			"restrict": true, "return": true, "short": true, "signed": true,
			"sizeof": true, "static": true, "struct": true, "switch": true,
			"typedef": true, "union": true, "unsigned": true, "void": true,
			"volatile": true, "while": true,
		},
		EscapeSuffix: "_",
		Includes:     []string{"#include <math.h>"},
		Forms: Forms{
			RoutineOpenFunc:  "{rtype} {name}({params}) {",
			RoutineOpenSub:   "void {name}({params}) {",
			RoutineCloseFunc: "}",
			RoutineCloseSub:  "}",
			ParamScalar:      "{type} {name}",
			ParamOutScalar:   "{type} *{name}",
			ParamArrayIn:     "const {type} *{name}",
			ParamArrayOut:    "{type} *{name}",
			ScalarOutRef:     "(*{name})",
			ScalarOutLHS:     "*{name}",
			Declare:          "{type} {name} = {expr};",
			DeclareOnly:      "{type} {name};",
			Assign:           "{lhs} = {expr};",
			Return:           "return {expr};",
			LoopOpen:         "for ({itype} {var} = {start}; {var} < {end}; {var}++) {",
			LoopClose:        "}",
			Index:            "{name}[{indices}]",
			FlatIndex:        true,
			IndexBase:        0,
			Comment:          "/* {text} */",
		},
		Toolchain: Toolchain{
			Command:     "cc",
			Args:        []string{"-shared", "-fPIC", "-O2", "-o", "{out}", "{src}", "-lm"},
			SourceExt:   ".c",
			ArtifactExt: ".so",
		},
		NativeEntry: true,
	}
}
