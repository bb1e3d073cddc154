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

// RewriteRule is a pure tree-rewrite applied bottom-up at every node.
// Apply receives a node whose children have already been rewritten and
// returns the replacement, or the input unchanged when the rule does not
// fire. Rules must not mutate their input; replacements are built through
// the Builder so unchanged subtrees keep their identity.
type RewriteRule struct {
	// Name identifies this rule for diagnostics.
	Name string

	// Apply performs the rewrite.
	Apply func(b *Builder, n *Node) *Node
}

// DefaultMaxIterations bounds pipeline iteration when the caller does
// not configure a cap.
const DefaultMaxIterations = 16

// Stats reports what an Optimize run did.
type Stats struct {
	// Iterations is the number of full passes over the rule list.
	Iterations int

	// ReachedCap is true when the iteration cap stopped the pipeline
	// before a fixpoint. Not an error; surfaced for diagnostics.
	ReachedCap bool
}

// Pipeline applies an ordered rule list bottom-up until fixpoint or an
// iteration cap, whichever comes first.
type Pipeline struct {
	Rules         []RewriteRule
	MaxIterations int
}

// NewPipeline returns a Pipeline over the default rule set.
func NewPipeline() *Pipeline {
	return &Pipeline{Rules: DefaultRules(), MaxIterations: DefaultMaxIterations}
}

// Optimize rewrites n under the pipeline's rules. Because nodes are
// interned, an iteration that changes nothing returns the identical
// pointer, which is the fixpoint test. Output is deterministic for a
// given input tree and rule list.
func (p *Pipeline) Optimize(b *Builder, n *Node) (*Node, Stats) {
	maxIter := p.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	var stats Stats
	cur := n
	for iter := 0; iter < maxIter; iter++ {
		stats.Iterations++
		next := cur
		for i := range p.Rules {
			next = applyBottomUp(b, &p.Rules[i], next, make(map[*Node]*Node))
		}
		if next == cur {
			return cur, stats
		}
		cur = next
	}
	stats.ReachedCap = true
	return cur, stats
}

// applyBottomUp rewrites children first, then offers the rebuilt node to
// the rule. memo makes shared subtrees rewrite once per pass.
func applyBottomUp(b *Builder, rule *RewriteRule, n *Node, memo map[*Node]*Node) *Node {
	if out, ok := memo[n]; ok {
		return out
	}
	out := n
	if !n.Kind.IsLeaf() {
		changed := false
		ch := make([]*Node, len(n.Children))
		for i, c := range n.Children {
			ch[i] = applyBottomUp(b, rule, c, memo)
			if ch[i] != c {
				changed = true
			}
		}
		if changed {
			out = b.rebuildWith(n, ch)
		}
	}
	out = rule.Apply(b, out)
	memo[n] = out
	return out
}
