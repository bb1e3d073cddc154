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
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
)

// ParseExpr parses a Go-syntax arithmetic formula ("x*x + 2*x*x + 1",
// "sin(a)/b") and adapts it into the Builder. It is a convenience front
// end for callers without a symbolic engine; the result goes through the
// same Adapt path as engine-supplied trees. The ^ operator is not
// exponentiation in Go syntax; use pow(base, exponent).
func ParseExpr(b *Builder, src string) (*Node, error) {
	parsed, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	wrapped, err := wrapGoExpr(parsed)
	if err != nil {
		return nil, err
	}
	return b.Adapt(wrapped)
}

// goExpr adapts a go/ast expression to the ExternalExpr interface.
type goExpr struct {
	op       string
	name     string
	value    float64
	operands []ExternalExpr
}

func (g *goExpr) Op() string               { return g.op }
func (g *goExpr) Name() string             { return g.name }
func (g *goExpr) Value() float64           { return g.value }
func (g *goExpr) Operands() []ExternalExpr { return g.operands }

func wrapGoExpr(e ast.Expr) (*goExpr, error) {
	switch e := e.(type) {
	case *ast.ParenExpr:
		return wrapGoExpr(e.X)
	case *ast.BasicLit:
		if e.Kind != token.INT && e.Kind != token.FLOAT {
			return nil, &UnsupportedNodeError{Op: e.Kind.String()}
		}
		v, err := strconv.ParseFloat(e.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("literal %q: %w", e.Value, err)
		}
		return &goExpr{op: OpLit, value: v}, nil
	case *ast.Ident:
		return &goExpr{op: OpSym, name: e.Name}, nil
	case *ast.UnaryExpr:
		if e.Op != token.SUB {
			return nil, &UnsupportedNodeError{Op: e.Op.String()}
		}
		x, err := wrapGoExpr(e.X)
		if err != nil {
			return nil, err
		}
		return &goExpr{op: OpNeg, operands: []ExternalExpr{x}}, nil
	case *ast.BinaryExpr:
		var op string
		switch e.Op {
		case token.ADD:
			op = OpAdd
		case token.SUB:
			op = OpSub
		case token.MUL:
			op = OpMul
		case token.QUO:
			op = OpDiv
		default:
			return nil, &UnsupportedNodeError{Op: e.Op.String()}
		}
		x, err := wrapGoExpr(e.X)
		if err != nil {
			return nil, err
		}
		y, err := wrapGoExpr(e.Y)
		if err != nil {
			return nil, err
		}
		return &goExpr{op: op, operands: []ExternalExpr{x, y}}, nil
	case *ast.CallExpr:
		fn, ok := e.Fun.(*ast.Ident)
		if !ok {
			return nil, &UnsupportedNodeError{Op: "call", Context: "non-identifier callee"}
		}
		args := make([]ExternalExpr, len(e.Args))
		for i, a := range e.Args {
			w, err := wrapGoExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = w
		}
		return &goExpr{op: OpCall, name: fn.Name, operands: args}, nil
	default:
		return nil, &UnsupportedNodeError{Op: fmt.Sprintf("%T", e)}
	}
}
