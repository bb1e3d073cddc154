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

package expr

import (
	"fmt"
	"math"
)

// EvalFunc implements a named function for numeric evaluation.
type EvalFunc func(args []float64) (float64, error)

func unary(name string, fn func(float64) float64) EvalFunc {
	return func(args []float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("eval: %s expects 1 argument, got %d", name, len(args))
		}
		return fn(args[0]), nil
	}
}

// DefaultFuncs returns the built-in function table for Eval. Callers may
// copy and extend it.
func DefaultFuncs() map[string]EvalFunc {
	return map[string]EvalFunc{
		"sin":   unary("sin", math.Sin),
		"cos":   unary("cos", math.Cos),
		"tan":   unary("tan", math.Tan),
		"asin":  unary("asin", math.Asin),
		"acos":  unary("acos", math.Acos),
		"atan":  unary("atan", math.Atan),
		"sinh":  unary("sinh", math.Sinh),
		"cosh":  unary("cosh", math.Cosh),
		"tanh":  unary("tanh", math.Tanh),
		"exp":   unary("exp", math.Exp),
		"log":   unary("log", math.Log),
		"sqrt":  unary("sqrt", math.Sqrt),
		"abs":   unary("abs", math.Abs),
		"floor": unary("floor", math.Floor),
		"ceil":  unary("ceil", math.Ceil),
	}
}

// Eval numerically evaluates n under the given symbol environment with
// the default function table. Used by constant folding callers and by
// the CSE correctness tests; generated routines must agree with it
// within floating-point tolerance.
func Eval(n *Node, env map[string]float64) (float64, error) {
	return EvalWith(n, env, DefaultFuncs())
}

// EvalWith evaluates n with an explicit function table.
func EvalWith(n *Node, env map[string]float64, funcs map[string]EvalFunc) (float64, error) {
	switch n.Kind {
	case KindLiteral:
		return n.Value, nil
	case KindSymbol:
		v, ok := env[n.Name]
		if !ok {
			return 0, fmt.Errorf("eval: unbound symbol %q", n.Name)
		}
		return v, nil
	}

	args := make([]float64, len(n.Children))
	for i, c := range n.Children {
		v, err := EvalWith(c, env, funcs)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}

	switch n.Kind {
	case KindAdd:
		acc := 0.0
		for _, v := range args {
			acc += v
		}
		return acc, nil
	case KindMul:
		acc := 1.0
		for _, v := range args {
			acc *= v
		}
		return acc, nil
	case KindSub:
		return args[0] - args[1], nil
	case KindDiv:
		return args[0] / args[1], nil
	case KindNeg:
		return -args[0], nil
	case KindPow:
		return math.Pow(args[0], args[1]), nil
	case KindCall:
		fn, ok := funcs[n.Name]
		if !ok {
			return 0, fmt.Errorf("eval: unknown function %q", n.Name)
		}
		return fn(args)
	default:
		return 0, fmt.Errorf("eval: unhandled kind %s", n.Kind)
	}
}
