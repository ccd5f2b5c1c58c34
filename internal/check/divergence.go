package check

import (
	"github.com/cspx/cspx/internal/lts"
	"github.com/cspx/cspx/internal/result"
)

// tarjan computes strongly connected components of the τ-only subgraph of
// g, plus which nodes have a τ self-loop. Recursive: reachable-state graphs
// produced by this verifier's bounded test/example modules do not approach
// a depth that would overflow the goroutine stack; the refinement engine's
// hotter divergence check (run once per BFS node, not once per property
// query) uses the iterative three-color form instead, per spec.md §4.H.
type tarjan struct {
	g            *Graph
	indexCounter int
	index        map[string]int
	lowlink      map[string]int
	onStack      map[string]bool
	stack        []string
	sccOf        map[string]int
	sccSize      map[int]int
	sccCounter   int
	selfLoop     map[string]bool
}

func newTarjan(g *Graph) *tarjan {
	return &tarjan{
		g: g, index: map[string]int{}, lowlink: map[string]int{}, onStack: map[string]bool{},
		sccOf: map[string]int{}, sccSize: map[int]int{}, selfLoop: map[string]bool{},
	}
}

func (tj *tarjan) run() {
	for _, k := range tj.g.Order {
		if _, visited := tj.index[k]; !visited {
			tj.strongconnect(k)
		}
	}
}

func (tj *tarjan) strongconnect(v string) {
	tj.index[v] = tj.indexCounter
	tj.lowlink[v] = tj.indexCounter
	tj.indexCounter++
	tj.stack = append(tj.stack, v)
	tj.onStack[v] = true

	for _, t := range tj.g.Nodes[v].Out {
		if t.Label != lts.Tau {
			continue
		}
		w := key(t.Next)
		if w == v {
			tj.selfLoop[v] = true
		}
		if _, visited := tj.index[w]; !visited {
			tj.strongconnect(w)
			if tj.lowlink[w] < tj.lowlink[v] {
				tj.lowlink[v] = tj.lowlink[w]
			}
		} else if tj.onStack[w] {
			if tj.index[w] < tj.lowlink[v] {
				tj.lowlink[v] = tj.index[w]
			}
		}
	}

	if tj.lowlink[v] != tj.index[v] {
		return
	}
	sccID := tj.sccCounter
	tj.sccCounter++
	for {
		w := tj.stack[len(tj.stack)-1]
		tj.stack = tj.stack[:len(tj.stack)-1]
		tj.onStack[w] = false
		tj.sccOf[w] = sccID
		tj.sccSize[sccID]++
		if w == v {
			break
		}
	}
}

func (tj *tarjan) diverges(k string) bool {
	return tj.sccSize[tj.sccOf[k]] > 1 || tj.selfLoop[k]
}

// DivergenceFree BFS-records all τ-edges, runs Tarjan's SCC on the τ-only
// subgraph, and fails on the first (in BFS order) state belonging to an SCC
// of size > 1 or carrying a τ self-loop.
func DivergenceFree(prov *lts.Provider, initial *lts.State) result.CheckResult {
	g := BuildGraph(prov, initial)
	tj := newTarjan(g)
	tj.run()

	for _, k := range g.Order {
		if !tj.diverges(k) {
			continue
		}
		trace := g.TraceTo(k)
		trace = append(trace, lts.Tau)
		ce := result.NewCounterexample(trace)
		ce.AddTag("divergence")
		ce.AddTag("kind:divergence")
		ce.AddTag("explained")
		return result.CheckResult{Name: "divergence_free", Status: result.Fail, Counterexample: ce}
	}
	return result.CheckResult{Name: "divergence_free", Status: result.Pass}
}
