package check

import (
	"github.com/cspx/cspx/internal/lts"
	"github.com/cspx/cspx/internal/result"
)

// DeadlockFree runs a BFS from initial; the first state with no outgoing
// transitions is a deadlock. Passes if BFS finishes with no dead-end.
func DeadlockFree(prov *lts.Provider, initial *lts.State) result.CheckResult {
	g := BuildGraph(prov, initial)
	for _, k := range g.Order {
		n := g.Nodes[k]
		if len(n.Out) > 0 {
			continue
		}
		ce := result.NewCounterexample(g.TraceTo(k))
		ce.AddTag("deadlock")
		ce.AddTag("kind:deadlock")
		ce.AddTag("explained")
		return result.CheckResult{Name: "deadlock_free", Status: result.Fail, Counterexample: ce}
	}
	return result.CheckResult{Name: "deadlock_free", Status: result.Pass}
}
