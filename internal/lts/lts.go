// Package lts builds the labeled transition system over a compiled
// ir.Program: the runtime state shapes (Expr/Parallel/Hide), initial-state
// construction, and the transition function.
package lts

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cspx/cspx/internal/ir"
	"github.com/cspx/cspx/internal/statecodec"
)

// Tau is the internal, unobservable label.
const Tau = "τ"

// Kind tags the three canonical runtime-state shapes.
type Kind uint8

const (
	KindExpr Kind = iota
	KindParallel
	KindHide
)

// Binding is one (name, value) env entry.
type Binding struct {
	Name  string
	Value int
}

// State is a canonical runtime state: no empty hide set, no nested hides,
// env entries sorted by name.
type State struct {
	Kind Kind

	// KindExpr
	ExprId ir.ExprId
	Env    []Binding

	// KindParallel
	Sync        []string
	Left, Right *State

	// KindHide
	Hide  []string
	Inner *State
}

// Transition is one outgoing edge: a label and the state it leads to.
type Transition struct {
	Label string
	Next  *State
}

// Provider builds runtime states and transitions over a compiled Program.
type Provider struct {
	prog *ir.Program

	freeVarsMu   sync.Mutex
	freeVarsMemo map[ir.ExprId]map[string]bool
}

func New(prog *ir.Program) *Provider {
	return &Provider{prog: prog, freeVarsMemo: map[ir.ExprId]map[string]bool{}}
}

// InitialState constructs the runtime state for the module's entry
// expression.
func (p *Provider) InitialState(entryId ir.ExprId) *State {
	return p.stateFromExpr(entryId, nil)
}

// stateFromExpr unfolds Parallel/Hide nodes structurally so reductions can
// reach each leaf; Ref nodes never appear here because prog.Node already
// resolves through them.
func (p *Provider) stateFromExpr(id ir.ExprId, env []Binding) *State {
	node := p.prog.Node(id)
	switch node.Kind {
	case ir.OpParallel:
		left := p.stateFromExpr(node.Left, env)
		right := p.stateFromExpr(node.Right, env)
		return &State{Kind: KindParallel, Sync: node.Sync, Left: left, Right: right}
	case ir.OpHide:
		inner := p.stateFromExpr(node.Inner, env)
		return makeHide(node.Hide, inner)
	default:
		resolvedId := p.prog.Resolved(id)
		return &State{Kind: KindExpr, ExprId: resolvedId, Env: pruneEnv(env, p.freeVars(resolvedId))}
	}
}

// pruneEnv keeps only the bindings free still references, preserving env's
// existing sort order. Required by spec.md §3 Runtime-state invariant (ii):
// an Expr state's env only contains variables its sub-expression can
// reference.
func pruneEnv(env []Binding, free map[string]bool) []Binding {
	if len(free) == 0 {
		return nil
	}
	var out []Binding
	for _, b := range env {
		if free[b.Name] {
			out = append(out, b)
		}
	}
	return out
}

// freeVars returns the set of variable names id's subtree can still
// reference: Out-segments not yet shadowed by an enclosing In-binding along
// the way to id. Memoized per Provider and safe for the explorer's parallel
// worker pool to call concurrently. Ref nodes are never recursed into: cspx
// has no parametric processes (spec.md §1 Non-goals), so a referenced
// declaration's body can only use names it binds itself, never names from
// the calling site's env.
func (p *Provider) freeVars(id ir.ExprId) map[string]bool {
	p.freeVarsMu.Lock()
	defer p.freeVarsMu.Unlock()
	return p.freeVarsLocked(id)
}

func (p *Provider) freeVarsLocked(id ir.ExprId) map[string]bool {
	if v, ok := p.freeVarsMemo[id]; ok {
		return v
	}
	node := p.prog.Arena[id]
	var out map[string]bool
	switch node.Kind {
	case ir.OpStop, ir.OpRef:
		out = nil
	case ir.OpPrefix:
		next := p.freeVarsLocked(node.Next)
		fv := map[string]bool{}
		bound := ""
		if seg := node.Event.Segment; seg != nil {
			switch {
			case seg.Kind == ir.SegOut && !seg.IsLit:
				fv[seg.Name] = true
			case seg.Kind == ir.SegIn && !seg.IsLit:
				bound = seg.Name
			}
		}
		for v := range next {
			if v == bound {
				continue
			}
			fv[v] = true
		}
		if len(fv) > 0 {
			out = fv
		}
	case ir.OpChoiceExternal, ir.OpChoiceInternal, ir.OpParallel:
		out = unionFreeVars(p.freeVarsLocked(node.Left), p.freeVarsLocked(node.Right))
	case ir.OpHide:
		out = p.freeVarsLocked(node.Inner)
	}
	p.freeVarsMemo[id] = out
	return out
}

func unionFreeVars(a, b map[string]bool) map[string]bool {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]bool, len(a)+len(b))
	for v := range a {
		out[v] = true
	}
	for v := range b {
		out[v] = true
	}
	return out
}

// makeHide canonicalizes a Hide construction: an empty hide set collapses to
// inner, and a Hide-of-Hide flattens by unioning the hide sets.
func makeHide(hide []string, inner *State) *State {
	if len(hide) == 0 {
		return inner
	}
	if inner.Kind == KindHide {
		return makeHide(unionSorted(hide, inner.Hide), inner.Inner)
	}
	return &State{Kind: KindHide, Hide: sortedCopy(hide), Inner: inner}
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func unionSorted(a, b []string) []string {
	set := map[string]bool{}
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		set[s] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Transitions returns the canonically ordered outgoing edges of s: sorted by
// (label, canonical encoding of next state).
func (p *Provider) Transitions(s *State) []Transition {
	var trans []Transition
	switch s.Kind {
	case KindExpr:
		trans = p.exprTransitions(s)
	case KindParallel:
		trans = p.parallelTransitions(s)
	case KindHide:
		trans = p.hideTransitions(s)
	}
	sort.SliceStable(trans, func(i, j int) bool {
		if trans[i].Label != trans[j].Label {
			return trans[i].Label < trans[j].Label
		}
		return statecodec.Compare(Encode(trans[i].Next), Encode(trans[j].Next)) < 0
	})
	return trans
}

func (p *Provider) exprTransitions(s *State) []Transition {
	node := p.prog.Node(s.ExprId)
	switch node.Kind {
	case ir.OpStop:
		return nil
	case ir.OpPrefix:
		return p.eventTransitions(node.Event, node.Next, s.Env)
	case ir.OpChoiceExternal:
		left := p.stateFromExpr(node.Left, s.Env)
		right := p.stateFromExpr(node.Right, s.Env)
		return append(p.Transitions(left), p.Transitions(right)...)
	case ir.OpChoiceInternal:
		left := p.stateFromExpr(node.Left, s.Env)
		right := p.stateFromExpr(node.Right, s.Env)
		return []Transition{{Label: Tau, Next: left}, {Label: Tau, Next: right}}
	default:
		panic(fmt.Sprintf("lts: unreachable op kind %d in Expr state", node.Kind))
	}
}

func (p *Provider) eventTransitions(event ir.Event, nextId ir.ExprId, env []Binding) []Transition {
	info, ok := p.prog.Module.ChannelInfo[event.Channel]
	if !ok {
		return nil
	}
	switch d := info.Domain.(type) {
	case ir.UnitDomain:
		return []Transition{{Label: event.Channel, Next: p.stateFromExpr(nextId, env)}}
	case ir.IntRangeDomain:
		seg := event.Segment
		if seg == nil {
			return nil
		}
		switch seg.Kind {
		case ir.SegDot, ir.SegOut:
			if seg.IsLit {
				label := fmt.Sprintf("%s.%d", event.Channel, seg.Lit)
				return []Transition{{Label: label, Next: p.stateFromExpr(nextId, env)}}
			}
			if seg.Kind == ir.SegOut {
				v, bound := lookupEnv(env, seg.Name)
				if !bound {
					return nil
				}
				label := fmt.Sprintf("%s.%d", event.Channel, v)
				return []Transition{{Label: label, Next: p.stateFromExpr(nextId, env)}}
			}
			return nil
		case ir.SegIn:
			if seg.IsLit {
				label := fmt.Sprintf("%s.%d", event.Channel, seg.Lit)
				return []Transition{{Label: label, Next: p.stateFromExpr(nextId, env)}}
			}
			var out []Transition
			for v := d.Min; v <= d.Max; v++ {
				label := fmt.Sprintf("%s.%d", event.Channel, v)
				nextEnv := setEnv(env, seg.Name, v)
				out = append(out, Transition{Label: label, Next: p.stateFromExpr(nextId, nextEnv)})
			}
			return out
		}
	}
	return nil
}

func lookupEnv(env []Binding, name string) (int, bool) {
	for _, b := range env {
		if b.Name == name {
			return b.Value, true
		}
	}
	return 0, false
}

func setEnv(env []Binding, name string, value int) []Binding {
	out := make([]Binding, 0, len(env)+1)
	inserted := false
	for _, b := range env {
		if !inserted && name < b.Name {
			out = append(out, Binding{Name: name, Value: value})
			inserted = true
		}
		if b.Name == name {
			continue
		}
		out = append(out, b)
	}
	if !inserted {
		out = append(out, Binding{Name: name, Value: value})
	}
	return out
}

// channelPrefix is the substring before the first '.', or the whole label if
// there is none: the channel a label's event belongs to.
func channelPrefix(label string) string {
	for i, r := range label {
		if r == '.' {
			return label[:i]
		}
	}
	return label
}

func inSet(set []string, name string) bool {
	for _, s := range set {
		if s == name {
			return true
		}
	}
	return false
}

func (p *Provider) parallelTransitions(s *State) []Transition {
	leftT := p.Transitions(s.Left)
	rightT := p.Transitions(s.Right)

	isSync := func(label string) bool {
		return label != Tau && inSet(s.Sync, channelPrefix(label))
	}

	var out []Transition
	for _, lt := range leftT {
		if isSync(lt.Label) {
			for _, rt := range rightT {
				if rt.Label == lt.Label {
					out = append(out, Transition{Label: lt.Label, Next: &State{Kind: KindParallel, Sync: s.Sync, Left: lt.Next, Right: rt.Next}})
				}
			}
			continue
		}
		out = append(out, Transition{Label: lt.Label, Next: &State{Kind: KindParallel, Sync: s.Sync, Left: lt.Next, Right: s.Right}})
	}
	for _, rt := range rightT {
		if isSync(rt.Label) {
			continue
		}
		out = append(out, Transition{Label: rt.Label, Next: &State{Kind: KindParallel, Sync: s.Sync, Left: s.Left, Right: rt.Next}})
	}
	return out
}

func (p *Provider) hideTransitions(s *State) []Transition {
	inner := p.Transitions(s.Inner)
	out := make([]Transition, 0, len(inner))
	for _, t := range inner {
		label := t.Label
		if label != Tau && inSet(s.Hide, channelPrefix(label)) {
			label = Tau
		}
		out = append(out, Transition{Label: label, Next: makeHide(s.Hide, t.Next)})
	}
	return out
}

// Encode renders a State as its canonical byte form via statecodec,
// converting between lts's recursive State and statecodec's wire shape.
func Encode(s *State) []byte {
	return statecodec.Encode(toWire(s))
}

func toWire(s *State) *statecodec.State {
	switch s.Kind {
	case KindExpr:
		env := make([]statecodec.Binding, len(s.Env))
		for i, b := range s.Env {
			env[i] = statecodec.Binding{Name: b.Name, Value: int64(b.Value)}
		}
		return &statecodec.State{Tag: statecodec.TagExpr, ExprId: int32(s.ExprId), Env: statecodec.SortBindings(env)}
	case KindParallel:
		return &statecodec.State{Tag: statecodec.TagParallel, Sync: s.Sync, Left: toWire(s.Left), Right: toWire(s.Right)}
	case KindHide:
		return &statecodec.State{Tag: statecodec.TagHide, Hide: s.Hide, Inner: toWire(s.Inner)}
	default:
		panic(fmt.Sprintf("lts: unknown state kind %d", s.Kind))
	}
}

// Decode reconstructs a lts.State from its canonical byte form.
func Decode(data []byte) (*State, error) {
	w, err := statecodec.Decode(data)
	if err != nil {
		return nil, err
	}
	return fromWire(w), nil
}

func fromWire(w *statecodec.State) *State {
	switch w.Tag {
	case statecodec.TagExpr:
		env := make([]Binding, len(w.Env))
		for i, b := range w.Env {
			env[i] = Binding{Name: b.Name, Value: int(b.Value)}
		}
		return &State{Kind: KindExpr, ExprId: ir.ExprId(w.ExprId), Env: env}
	case statecodec.TagParallel:
		return &State{Kind: KindParallel, Sync: w.Sync, Left: fromWire(w.Left), Right: fromWire(w.Right)}
	case statecodec.TagHide:
		return &State{Kind: KindHide, Hide: w.Hide, Inner: fromWire(w.Inner)}
	default:
		panic(fmt.Sprintf("lts: unknown wire tag %d", w.Tag))
	}
}
