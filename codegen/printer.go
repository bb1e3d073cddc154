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
	"strings"

	"github.com/symforge/symforge/expr"
)

// PrintExpr renders n as a target-language expression. Parentheses are
// inserted only where the target's precedence table requires them to
// preserve the tree's evaluation order.
func PrintExpr(n *expr.Node, t *TargetConfig) (string, error) {
	s, _, err := printNode(n, t, nil)
	return s, err
}

// printExprSubst renders n with symbol references replaced per subs;
// the generator uses it to turn array symbols into indexed accesses
// inside loop bodies.
func printExprSubst(n *expr.Node, t *TargetConfig, subs map[string]string) (string, error) {
	s, _, err := printNode(n, t, subs)
	return s, err
}

// printNode returns the rendered text together with the precedence of
// its outermost operator, so the caller can decide on parentheses.
func printNode(n *expr.Node, t *TargetConfig, subs map[string]string) (string, int, error) {
	switch n.Kind {
	case expr.KindLiteral:
		s := t.Literal.Format(n.Value)
		prec := atomPrec
		if n.Value < 0 {
			// A leading minus binds like unary negation.
			prec = t.Operators[expr.KindNeg].Prec
		}
		return s, prec, nil
	case expr.KindSymbol:
		if s, ok := subs[n.Name]; ok {
			return s, atomPrec, nil
		}
		return t.EscapeIdent(n.Name), atomPrec, nil
	case expr.KindCall:
		mapped, ok := t.Functions[n.Name]
		if !ok {
			return "", 0, &UnmappedFunctionError{Function: n.Name, Target: t.Name}
		}
		args, err := printArgs(n.Children, t, subs)
		if err != nil {
			return "", 0, err
		}
		return mapped + "(" + args + ")", atomPrec, nil
	}

	op, ok := t.Operators[n.Kind]
	if !ok {
		return "", 0, fmt.Errorf("codegen: target %s has no syntax for %s", t.Name, n.Kind)
	}

	if op.Func != "" {
		args, err := printArgs(n.Children, t, subs)
		if err != nil {
			return "", 0, err
		}
		return op.Func + "(" + args + ")", atomPrec, nil
	}

	if n.Kind == expr.KindNeg {
		s, prec, err := printNode(n.Children[0], t, subs)
		if err != nil {
			return "", 0, err
		}
		// Equal precedence still needs parentheses: "--x" would be a
		// different token in C.
		if prec <= op.Prec {
			s = "(" + s + ")"
		}
		return op.Symbol + s, op.Prec, nil
	}

	negSym := t.Operators[expr.KindNeg].Symbol
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		s, prec, err := printNode(c, t, subs)
		if err != nil {
			return "", 0, err
		}
		need := prec < op.Prec
		if prec == op.Prec {
			// A child on the non-associating side keeps its grouping
			// only with explicit parentheses: a - (b - c), a ** (b ** c).
			if op.RightAssoc {
				need = i < len(n.Children)-1
			} else {
				need = i > 0
			}
		}
		// A minus-headed operand after an infix operator would place
		// two operators back to back, which Fortran rejects.
		if !need && i > 0 && negSym != "" && strings.HasPrefix(s, negSym) {
			need = true
		}
		if need {
			s = "(" + s + ")"
		}
		parts[i] = s
	}
	return strings.Join(parts, op.Symbol), op.Prec, nil
}

func printArgs(children []*expr.Node, t *TargetConfig, subs map[string]string) (string, error) {
	parts := make([]string, len(children))
	for i, c := range children {
		s, _, err := printNode(c, t, subs)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}
