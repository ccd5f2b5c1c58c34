package check

import (
	"fmt"
	"sort"

	"github.com/cspx/cspx/internal/lts"
	"github.com/cspx/cspx/internal/result"
)

// Deterministic checks, for every reachable state s, whether some visible
// label ℓ leads its τ-closure into two semantically different futures:
// two states in closure(s) that both offer ℓ but whose post-τ-closure
// under ℓ differ.
func Deterministic(prov *lts.Provider, initial *lts.State) result.CheckResult {
	g := BuildGraph(prov, initial)

	for _, k := range g.Order {
		n := g.Nodes[k]
		closure := g.TauClosure(n.State)

		labels := visibleLabels(g, closure)
		for _, label := range labels {
			sigs := map[string]bool{}
			for _, u := range closure {
				succs := labelSuccessors(g, u, label)
				if len(succs) == 0 {
					continue
				}
				post := g.TauClosureOfSet(succs)
				sigs[ClosureSignature(post)] = true
				if len(sigs) > 1 {
					trace := append(g.TraceTo(k), label)
					ce := result.NewCounterexample(trace)
					ce.AddTag("nondeterminism")
					ce.AddTag("kind:nondeterminism")
					ce.AddTag(fmt.Sprintf("label:%s", label))
					ce.AddTag("explained")
					return result.CheckResult{Name: "deterministic", Status: result.Fail, Counterexample: ce}
				}
			}
		}
	}
	return result.CheckResult{Name: "deterministic", Status: result.Pass}
}

func visibleLabels(g *Graph, closure []*lts.State) []string {
	seen := map[string]bool{}
	for _, u := range closure {
		for _, t := range g.Nodes[key(u)].Out {
			if t.Label != lts.Tau {
				seen[t.Label] = true
			}
		}
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

func labelSuccessors(g *Graph, u *lts.State, label string) []*lts.State {
	var out []*lts.State
	for _, t := range g.Nodes[key(u)].Out {
		if t.Label == label {
			out = append(out, t.Next)
		}
	}
	return out
}
