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

import "fmt"

// External operator kind names understood by Adapt.
const (
	OpLit  = "lit"
	OpSym  = "sym"
	OpAdd  = "add"
	OpSub  = "sub"
	OpMul  = "mul"
	OpDiv  = "div"
	OpNeg  = "neg"
	OpPow  = "pow"
	OpCall = "call"
)

// ExternalExpr is the read-only traversal capability a symbolic engine
// must provide for its formula trees. It is the adapter's only consumed
// interface: operator kind, ordered children, and the leaf payloads.
type ExternalExpr interface {
	// Op reports the operator kind: one of OpLit, OpSym, OpAdd, OpSub,
	// OpMul, OpDiv, OpNeg, OpPow, or OpCall.
	Op() string

	// Name reports the symbol name (OpSym) or callee name (OpCall).
	Name() string

	// Value reports the numeric value for OpLit nodes.
	Value() float64

	// Operands returns the ordered children.
	Operands() []ExternalExpr
}

// UnsupportedNodeError reports an external operator with no internal
// representation.
type UnsupportedNodeError struct {
	// Op is the unrecognized operator kind name.
	Op string

	// Context describes where in the tree the operator appeared.
	Context string
}

func (e *UnsupportedNodeError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("adapt: unsupported operator %q", e.Op)
	}
	return fmt.Sprintf("adapt: unsupported operator %q in %s", e.Op, e.Context)
}

// Adapt normalizes an externally constructed formula tree into the
// Builder's interned node model. Structurally equal inputs yield the
// same *Node; commutative operators are canonicalized by the Builder's
// fixed child-ordering rule. Calls named "pow" with two arguments adapt
// to KindPow so the strength-reduction rules see them.
func (b *Builder) Adapt(e ExternalExpr) (*Node, error) {
	switch op := e.Op(); op {
	case OpLit:
		return b.Literal(e.Value()), nil
	case OpSym:
		return b.Symbol(e.Name()), nil
	case OpAdd, OpMul:
		operands, err := b.adaptOperands(e, 1, -1)
		if err != nil {
			return nil, err
		}
		if op == OpAdd {
			return b.Add(operands...), nil
		}
		return b.Mul(operands...), nil
	case OpSub, OpDiv, OpPow:
		operands, err := b.adaptOperands(e, 2, 2)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpSub:
			return b.Sub(operands[0], operands[1]), nil
		case OpDiv:
			return b.Div(operands[0], operands[1]), nil
		default:
			return b.Pow(operands[0], operands[1]), nil
		}
	case OpNeg:
		operands, err := b.adaptOperands(e, 1, 1)
		if err != nil {
			return nil, err
		}
		return b.Neg(operands[0]), nil
	case OpCall:
		operands, err := b.adaptOperands(e, 1, -1)
		if err != nil {
			return nil, err
		}
		if e.Name() == "pow" && len(operands) == 2 {
			return b.Pow(operands[0], operands[1]), nil
		}
		return b.Call(e.Name(), operands...), nil
	default:
		return nil, &UnsupportedNodeError{Op: op}
	}
}

func (b *Builder) adaptOperands(e ExternalExpr, minArity, maxArity int) ([]*Node, error) {
	ext := e.Operands()
	if len(ext) < minArity || (maxArity >= 0 && len(ext) > maxArity) {
		return nil, &UnsupportedNodeError{
			Op:      e.Op(),
			Context: fmt.Sprintf("arity %d", len(ext)),
		}
	}
	operands := make([]*Node, len(ext))
	for i, child := range ext {
		n, err := b.Adapt(child)
		if err != nil {
			return nil, err
		}
		operands[i] = n
	}
	return operands, nil
}
