// Package check implements the three built-in property checkers
// (deadlock-free, divergence-free, deterministic) and the entry-selection
// rule used to prepare a module for a property check.
package check

import (
	"sort"

	"github.com/cspx/cspx/internal/lts"
	"github.com/cspx/cspx/internal/statecodec"
)

// StateNode is one state discovered by Graph's BFS, with its canonically
// ordered outgoing transitions.
type StateNode struct {
	State *lts.State
	Key   string
	Out   []lts.Transition
}

// Graph is the full reachable-state graph from an initial state, built by a
// plain BFS over a provider. Parent/ParentLabel record one shortest
// discovery path per state for counterexample reconstruction.
type Graph struct {
	Nodes       map[string]*StateNode
	Order       []string // BFS discovery order
	Parent      map[string]string
	ParentLabel map[string]string
}

func key(s *lts.State) string { return string(lts.Encode(s)) }

// BuildGraph explores every state reachable from initial via prov.
func BuildGraph(prov *lts.Provider, initial *lts.State) *Graph {
	g := &Graph{
		Nodes:       map[string]*StateNode{},
		Parent:      map[string]string{},
		ParentLabel: map[string]string{},
	}
	k0 := key(initial)
	g.Nodes[k0] = &StateNode{State: initial, Key: k0}
	g.Order = append(g.Order, k0)

	queue := []string{k0}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		n := g.Nodes[k]
		n.Out = prov.Transitions(n.State)
		for _, t := range n.Out {
			nk := key(t.Next)
			if _, seen := g.Nodes[nk]; seen {
				continue
			}
			g.Nodes[nk] = &StateNode{State: t.Next, Key: nk}
			g.Parent[nk] = k
			g.ParentLabel[nk] = t.Label
			g.Order = append(g.Order, nk)
			queue = append(queue, nk)
		}
	}
	return g
}

// TraceTo reconstructs the visible-label path from the graph's root to k,
// with all τ labels removed.
func (g *Graph) TraceTo(k string) []string {
	var labels []string
	for cur := k; ; {
		parent, ok := g.Parent[cur]
		if !ok {
			break
		}
		if label := g.ParentLabel[cur]; label != lts.Tau {
			labels = append(labels, label)
		}
		cur = parent
	}
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return labels
}

// TauClosure returns the τ-reachable closure of a single state, sorted by
// canonical encoding.
func (g *Graph) TauClosure(s *lts.State) []*lts.State {
	return g.TauClosureOfSet([]*lts.State{s})
}

// TauClosureOfSet returns the τ-reachable closure of a set of seed states.
func (g *Graph) TauClosureOfSet(seeds []*lts.State) []*lts.State {
	seen := map[string]bool{}
	var out []*lts.State
	queue := append([]*lts.State(nil), seeds...)
	for _, s := range seeds {
		seen[key(s)] = true
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		out = append(out, s)
		for _, t := range g.Nodes[key(s)].Out {
			if t.Label != lts.Tau {
				continue
			}
			nk := key(t.Next)
			if seen[nk] {
				continue
			}
			seen[nk] = true
			queue = append(queue, t.Next)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return statecodec.Compare(lts.Encode(out[i]), lts.Encode(out[j])) < 0
	})
	return out
}

// ClosureSignature is the canonical identity of a set of states: their
// sorted canonical encodings concatenated, each preceded by its length as a
// 2-byte big-endian prefix.
func ClosureSignature(states []*lts.State) string {
	var sig []byte
	for _, s := range states {
		enc := lts.Encode(s)
		sig = append(sig, byte(len(enc)>>8), byte(len(enc)))
		sig = append(sig, enc...)
	}
	return string(sig)
}
