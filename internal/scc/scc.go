// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package scc splits a directed graph into strongly-connected components
// using Tarjan's algorithm.
//
// Components come out in reverse topological order: every component is
// emitted after all components it can reach. For an import graph, that is
// the order in which files can be added to a registry.
package scc

import (
	"iter"
	"slices"

	"github.com/nyuiela/sub0cre-sub000/internal/debug"
)

// Graph yields the outgoing edges of a node.
type Graph[N any] func(N) iter.Seq[N]

// Component is a maximal set of nodes that can all reach each other.
type Component[N comparable] struct {
	// Members in the order Tarjan's algorithm popped them.
	Members []N
	// Cyclic is set if the component contains a cycle: it has more than one
	// member, or its only member has an edge to itself.
	Cyclic bool
}

// Sort returns the components reachable from roots. Each component comes
// after every component it has an edge into.
//
// Roots that were already reached from an earlier root are skipped.
func Sort[N comparable](roots []N, graph Graph[N]) []Component[N] {
	s := &sorter[N]{graph: graph, seen: make(map[N]*mark)}
	for _, root := range roots {
		if s.seen[root] == nil {
			s.visit(root)
		}
	}
	return s.out
}

type mark struct {
	index, low int
	open       bool // Still on the stack.
}

type sorter[N comparable] struct {
	graph Graph[N]
	seen  map[N]*mark
	stack []N
	out   []Component[N]
}

func (s *sorter[N]) visit(node N) *mark {
	m := &mark{index: len(s.seen), low: len(s.seen), open: true}
	s.seen[node] = m
	base := len(s.stack)
	s.stack = append(s.stack, node)
	debug.Log(nil, "visit", "%v, index: %d", node, m.index)

	self := false
	for next := range s.graph(node) {
		self = self || next == node
		switch n := s.seen[next]; {
		case n == nil:
			m.low = min(m.low, s.visit(next).low)
		case n.open:
			m.low = min(m.low, n.index)
		}
	}
	if m.low != m.index {
		return m
	}

	// node is the root of a component: everything above it on the stack
	// belongs to it.
	members := slices.Clone(s.stack[base:])
	s.stack = s.stack[:base]
	for _, n := range members {
		s.seen[n].open = false
	}
	debug.Log(nil, "component", "%v", members)
	s.out = append(s.out, Component[N]{
		Members: members,
		Cyclic:  len(members) > 1 || self,
	})
	return m
}
