// Package refine implements the refinement engine (component H): given spec
// and impl LTS providers and a model T/F/FD, decides whether impl refines
// spec and, on failure, returns a classified counterexample trace.
package refine

import (
	"fmt"
	"sort"

	"github.com/cspx/cspx/internal/ast"
	"github.com/cspx/cspx/internal/ir"
	"github.com/cspx/cspx/internal/lts"
	"github.com/cspx/cspx/internal/result"
	"github.com/cspx/cspx/internal/statecodec"
)

func key(s *lts.State) string { return string(lts.Encode(s)) }

// Closure is the reflexive-transitive τ-closure of a seed set: States are
// ordered by encoded bytes, Sig is the closure's canonical identity.
type Closure struct {
	States []*lts.State
	Sig    string
}

func closureOf(prov *lts.Provider, seeds []*lts.State) Closure {
	seen := map[string]bool{}
	var states []*lts.State
	queue := append([]*lts.State(nil), seeds...)
	for _, s := range seeds {
		seen[key(s)] = true
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		states = append(states, s)
		for _, t := range prov.Transitions(s) {
			if t.Label != lts.Tau {
				continue
			}
			k := key(t.Next)
			if seen[k] {
				continue
			}
			seen[k] = true
			queue = append(queue, t.Next)
		}
	}
	sort.Slice(states, func(i, j int) bool {
		return statecodec.Compare(lts.Encode(states[i]), lts.Encode(states[j])) < 0
	})
	var sig []byte
	for _, s := range states {
		enc := lts.Encode(s)
		sig = append(sig, byte(len(enc)>>8), byte(len(enc)))
		sig = append(sig, enc...)
	}
	return Closure{States: states, Sig: string(sig)}
}

// NodeKey identifies a product-automaton node by its two closures' sigs.
type NodeKey struct {
	ImplSig, SpecSig string
}

func enabledVisible(prov *lts.Provider, c Closure) []string {
	seen := map[string]bool{}
	for _, s := range c.States {
		for _, t := range prov.Transitions(s) {
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

func labelSuccessors(prov *lts.Provider, c Closure, label string) []*lts.State {
	var out []*lts.State
	for _, s := range c.States {
		for _, t := range prov.Transitions(s) {
			if t.Label == label {
				out = append(out, t.Next)
			}
		}
	}
	return out
}

func stableStates(prov *lts.Provider, c Closure) []*lts.State {
	var out []*lts.State
	for _, s := range c.States {
		stable := true
		for _, t := range prov.Transitions(s) {
			if t.Label == lts.Tau {
				stable = false
				break
			}
		}
		if stable {
			out = append(out, s)
		}
	}
	return out
}

func offerSet(prov *lts.Provider, s *lts.State) map[string]bool {
	offer := map[string]bool{}
	for _, t := range prov.Transitions(s) {
		if t.Label != lts.Tau {
			offer[t.Label] = true
		}
	}
	return offer
}

func isSubset(a, b map[string]bool) bool {
	for l := range a {
		if !b[l] {
			return false
		}
	}
	return true
}

// diverges reports whether the τ-induced subgraph restricted to c's own
// states contains a cycle, via an iterative three-color DFS (bounds stack
// depth on large closures, per spec.md §4.H).
func diverges(prov *lts.Provider, c Closure) bool {
	inClosure := map[string]bool{}
	for _, s := range c.States {
		inClosure[key(s)] = true
	}
	const (
		white = iota
		gray
		black
	)
	color := map[string]int{}

	type frame struct {
		k     string
		state *lts.State
		succs []lts.Transition
		i     int
	}
	tauSuccessors := func(s *lts.State) []lts.Transition {
		var out []lts.Transition
		for _, t := range prov.Transitions(s) {
			if t.Label == lts.Tau {
				out = append(out, t)
			}
		}
		return out
	}

	for _, s0 := range c.States {
		k0 := key(s0)
		if color[k0] != white {
			continue
		}
		color[k0] = gray
		stack := []*frame{{k: k0, state: s0, succs: tauSuccessors(s0)}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.i >= len(top.succs) {
				color[top.k] = black
				stack = stack[:len(stack)-1]
				continue
			}
			t := top.succs[top.i]
			top.i++
			nk := key(t.Next)
			if !inClosure[nk] {
				continue
			}
			switch color[nk] {
			case gray:
				return true
			case white:
				color[nk] = gray
				stack = append(stack, &frame{k: nk, state: t.Next, succs: tauSuccessors(t.Next)})
			}
		}
	}
	return false
}

// engine holds the per-invocation caches spec.md §4.H mandates for FD.
type engine struct {
	specProv, implProv *lts.Provider
	model              ast.Model

	closureCache map[string]Closure // "impl|sig|label" or "spec|sig|label" -> Closure
	divergeCache map[string]bool    // "impl|sig" or "spec|sig" -> bool
	cacheHits    int
	cacheMisses  int
}

func (e *engine) nextClosure(side string, prov *lts.Provider, c Closure, label string) Closure {
	ck := side + "|" + c.Sig + "|" + label
	if v, ok := e.closureCache[ck]; ok {
		e.cacheHits++
		return v
	}
	e.cacheMisses++
	succs := labelSuccessors(prov, c, label)
	next := closureOf(prov, succs)
	e.closureCache[ck] = next
	return next
}

func (e *engine) divergesCached(side string, prov *lts.Provider, c Closure) bool {
	dk := side + "|" + c.Sig
	if v, ok := e.divergeCache[dk]; ok {
		e.cacheHits++
		return v
	}
	e.cacheMisses++
	v := diverges(prov, c)
	e.divergeCache[dk] = v
	return v
}

// verdict is a node predicate's outcome.
type verdict struct {
	kind string // "continue", "prune", "fail"
	tags []string
	// trailing is appended to the trace-so-far when kind == "fail" and the
	// failure is not a trace_mismatch (which appends its own label).
	trailing []string
}

func (e *engine) nodePredicate(node nodeState) verdict {
	switch e.model {
	case ast.ModelT:
		return verdict{kind: "continue"}
	case ast.ModelF:
		return e.fPredicate(node)
	case ast.ModelFD:
		implDiv := e.divergesCached("impl", e.implProv, node.impl)
		specDiv := e.divergesCached("spec", e.specProv, node.spec)
		if implDiv && !specDiv {
			return verdict{kind: "fail", tags: []string{"divergence_mismatch", "divergence"}, trailing: []string{lts.Tau}}
		}
		if specDiv {
			return verdict{kind: "prune"}
		}
		return e.fPredicate(node)
	default:
		return verdict{kind: "continue"}
	}
}

func (e *engine) fPredicate(node nodeState) verdict {
	implStable := stableStates(e.implProv, node.impl)
	specStable := stableStates(e.specProv, node.spec)
	for _, is := range implStable {
		implOffer := offerSet(e.implProv, is)
		ok := false
		for _, ss := range specStable {
			if isSubset(offerSet(e.specProv, ss), implOffer) {
				ok = true
				break
			}
		}
		if ok {
			continue
		}
		witness := ""
		for _, ss := range specStable {
			for l := range offerSet(e.specProv, ss) {
				if !implOffer[l] {
					witness = l
					break
				}
			}
			if witness != "" {
				break
			}
		}
		tags := []string{"refusal_mismatch"}
		if witness != "" {
			tags = append(tags, fmt.Sprintf("refuse:%s", witness))
		}
		return verdict{kind: "fail", tags: tags}
	}
	return verdict{kind: "continue"}
}

type nodeState struct {
	impl, spec Closure
}

type pathEntry struct {
	parent NodeKey
	label  string
}

// Check decides whether impl refines spec under model, returning a
// CheckResult with a classified counterexample trace on failure. spec and
// impl are both process expressions of the same compiled program — a
// refinement assertion names two declarations of one CSPM file.
func Check(prog *ir.Program, specEntry ir.ExprId, implEntry ir.ExprId, model ast.Model) result.CheckResult {
	prov := lts.New(prog)
	return checkProviders(prov, prov.InitialState(specEntry), prov, prov.InitialState(implEntry), model)
}

// CheckCross is Check generalized to a spec process and an impl process
// compiled from two independently typechecked CSPM files (the CLI's
// `refine <spec-file> <impl-file>` surface, spec.md §6, as opposed to the
// two-declarations-in-one-module surface `assert Spec [op= Impl` compiles
// through Check). Each side keeps its own Provider since the two files may
// declare distinct channel sets.
func CheckCross(specProv *lts.Provider, specInit *lts.State, implProv *lts.Provider, implInit *lts.State, model ast.Model) result.CheckResult {
	return checkProviders(specProv, specInit, implProv, implInit, model)
}

func checkProviders(specProv *lts.Provider, specInit *lts.State, implProv *lts.Provider, implInit *lts.State, model ast.Model) result.CheckResult {
	e := &engine{
		specProv: specProv, implProv: implProv, model: model,
		closureCache: map[string]Closure{}, divergeCache: map[string]bool{},
	}

	implClosure := closureOf(implProv, []*lts.State{implInit})
	specClosure := closureOf(specProv, []*lts.State{specInit})
	startKey := NodeKey{ImplSig: implClosure.Sig, SpecSig: specClosure.Sig}

	nodes := map[NodeKey]nodeState{startKey: {impl: implClosure, spec: specClosure}}
	predecessor := map[NodeKey]pathEntry{}
	visited := map[NodeKey]bool{startKey: true}
	queue := []NodeKey{startKey}

	reconstruct := func(k NodeKey) []string {
		var labels []string
		for {
			p, ok := predecessor[k]
			if !ok {
				break
			}
			labels = append(labels, p.label)
			k = p.parent
		}
		for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
			labels[i], labels[j] = labels[j], labels[i]
		}
		return labels
	}

	modelName := map[ast.Model]string{ast.ModelT: "T", ast.ModelF: "F", ast.ModelFD: "FD"}[model]

	fail := func(k NodeKey, tags []string, trailing []string) result.CheckResult {
		trace := append(reconstruct(k), trailing...)
		ce := result.NewCounterexample(trace)
		ce.AddTag("refinement")
		ce.AddTag("model:" + modelName)
		for _, t := range tags {
			ce.AddTag(t)
		}
		if model == ast.ModelFD {
			ce.AddTag(fmt.Sprintf("fd_closure_cache_hits:%d", e.cacheHits))
			ce.AddTag(fmt.Sprintf("fd_closure_cache_misses:%d", e.cacheMisses))
		}
		return result.CheckResult{Name: "refine", Status: result.Fail, Counterexample: ce}
	}

	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		node := nodes[k]

		v := e.nodePredicate(node)
		switch v.kind {
		case "fail":
			return fail(k, v.tags, v.trailing)
		case "prune":
			continue
		}

		for _, label := range enabledVisible(implProv, node.impl) {
			implNext := e.nextClosure("impl", implProv, node.impl, label)
			specNext := e.nextClosure("spec", specProv, node.spec, label)
			if len(specNext.States) == 0 {
				return fail(k, []string{"trace_mismatch"}, []string{label})
			}
			nk := NodeKey{ImplSig: implNext.Sig, SpecSig: specNext.Sig}
			if visited[nk] {
				continue
			}
			visited[nk] = true
			nodes[nk] = nodeState{impl: implNext, spec: specNext}
			predecessor[nk] = pathEntry{parent: k, label: label}
			queue = append(queue, nk)
		}
	}

	return result.CheckResult{Name: "refine", Status: result.Pass}
}

// ReplayOracle builds the minimizer oracle spec.md §4.I describes for
// refinement: replay candidate through the same τ-closure machinery Check
// uses and accept iff it reproduces a failure of the same class. For FD, a
// candidate with no τ is rejected when the original failure was
// divergence_mismatch, so the minimizer can't shrink away the very event
// that proved the divergence.
func ReplayOracle(prog *ir.Program, specEntry, implEntry ir.ExprId, model ast.Model, originalClass string) func(candidate []string) bool {
	prov := lts.New(prog)
	return ReplayOracleCross(prov, prov.InitialState(specEntry), prov, prov.InitialState(implEntry), model, originalClass)
}

// ReplayOracleCross is ReplayOracle generalized to independent spec/impl
// providers, for the CLI's two-file refinement surface (see CheckCross).
func ReplayOracleCross(specProv *lts.Provider, specInit *lts.State, implProv *lts.Provider, implInit *lts.State, model ast.Model, originalClass string) func(candidate []string) bool {
	return func(candidate []string) bool {
		if originalClass == "divergence_mismatch" {
			hasTau := false
			for _, l := range candidate {
				if l == lts.Tau {
					hasTau = true
					break
				}
			}
			if !hasTau {
				return false
			}
		}

		e := &engine{
			specProv: specProv, implProv: implProv, model: model,
			closureCache: map[string]Closure{}, divergeCache: map[string]bool{},
		}
		impl := closureOf(implProv, []*lts.State{implInit})
		spec := closureOf(specProv, []*lts.State{specInit})

		classOf := func(v verdict) string {
			for _, t := range v.tags {
				switch t {
				case "divergence_mismatch", "refusal_mismatch", "trace_mismatch":
					return t
				}
			}
			return ""
		}

		v := e.nodePredicate(nodeState{impl: impl, spec: spec})
		if v.kind == "fail" && classOf(v) == originalClass {
			return true
		}

		for _, label := range candidate {
			if label == lts.Tau {
				continue
			}
			implNext := e.nextClosure("impl", implProv, impl, label)
			if len(implNext.States) == 0 {
				// Not a trace the implementation can even perform from here:
				// an ill-formed candidate, not a reproduction of the failure.
				return false
			}
			specNext := e.nextClosure("spec", specProv, spec, label)
			if len(specNext.States) == 0 {
				return originalClass == "trace_mismatch"
			}
			impl, spec = implNext, specNext
			v := e.nodePredicate(nodeState{impl: impl, spec: spec})
			if v.kind == "fail" && classOf(v) == originalClass {
				return true
			}
		}
		return false
	}
}
