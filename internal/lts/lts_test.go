package lts

import (
	"testing"

	"github.com/cspx/cspx/internal/ir"
)

func compileSingle(t *testing.T, body ir.ProcessExpr, channels map[string]ir.ChannelInfo) (*Provider, ir.ExprId) {
	t.Helper()
	m := &ir.Module{
		ChannelInfo:  channels,
		DeclIndex:    map[string]int{"P": 0},
		Declarations: []ir.ProcessDecl{{Name: "P", Body: body}},
	}
	prog, err := ir.Compile(m)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	entry, ok := m.EntryExpr()
	if !ok {
		t.Fatalf("no entry")
	}
	return New(prog), prog.EntryId(entry)
}

func TestTransitions_PrefixChain(t *testing.T) {
	channels := map[string]ir.ChannelInfo{"a": {Name: "a", Domain: ir.UnitDomain{}}, "b": {Name: "b", Domain: ir.UnitDomain{}}}
	body := ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.PrefixExpr{Event: ir.Event{Channel: "b"}, Next: ir.StopExpr{}}}
	p, entry := compileSingle(t, body, channels)

	s0 := p.InitialState(entry)
	t1 := p.Transitions(s0)
	if len(t1) != 1 || t1[0].Label != "a" {
		t.Fatalf("expected single 'a' transition, got %+v", t1)
	}
	t2 := p.Transitions(t1[0].Next)
	if len(t2) != 1 || t2[0].Label != "b" {
		t.Fatalf("expected single 'b' transition, got %+v", t2)
	}
	t3 := p.Transitions(t2[0].Next)
	if len(t3) != 0 {
		t.Fatalf("expected STOP to have no transitions, got %+v", t3)
	}
}

func TestTransitions_ExternalChoice(t *testing.T) {
	channels := map[string]ir.ChannelInfo{"a": {Domain: ir.UnitDomain{}}, "b": {Domain: ir.UnitDomain{}}}
	body := ir.ChoiceExpr{
		Kind:  ir.External,
		Left:  ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.StopExpr{}},
		Right: ir.PrefixExpr{Event: ir.Event{Channel: "b"}, Next: ir.StopExpr{}},
	}
	p, entry := compileSingle(t, body, channels)
	trans := p.Transitions(p.InitialState(entry))
	if len(trans) != 2 || trans[0].Label != "a" || trans[1].Label != "b" {
		t.Fatalf("expected sorted [a b], got %+v", trans)
	}
}

func TestTransitions_InternalChoiceIsTau(t *testing.T) {
	channels := map[string]ir.ChannelInfo{"a": {Domain: ir.UnitDomain{}}}
	body := ir.ChoiceExpr{Kind: ir.Internal, Left: ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.StopExpr{}}, Right: ir.StopExpr{}}
	p, entry := compileSingle(t, body, channels)
	trans := p.Transitions(p.InitialState(entry))
	if len(trans) != 2 || trans[0].Label != Tau || trans[1].Label != Tau {
		t.Fatalf("expected two tau transitions, got %+v", trans)
	}
}

func TestTransitions_IntRangeInBind(t *testing.T) {
	channels := map[string]ir.ChannelInfo{"c": {Domain: ir.IntRangeDomain{Min: 0, Max: 2}}}
	body := ir.PrefixExpr{Event: ir.Event{Channel: "c", Segment: &ir.EventSegment{Kind: ir.SegIn, Name: "x"}}, Next: ir.StopExpr{}}
	p, entry := compileSingle(t, body, channels)
	trans := p.Transitions(p.InitialState(entry))
	if len(trans) != 3 {
		t.Fatalf("expected 3 transitions for {0..2}, got %d", len(trans))
	}
	for i, want := range []string{"c.0", "c.1", "c.2"} {
		if trans[i].Label != want {
			t.Fatalf("transition %d: got %q want %q", i, trans[i].Label, want)
		}
	}
}

func TestTransitions_HideRewritesLabelToTau(t *testing.T) {
	channels := map[string]ir.ChannelInfo{"a": {Domain: ir.UnitDomain{}}}
	inner := ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.StopExpr{}}
	body := ir.HideExpr{Inner: inner, Hide: []string{"a"}}
	p, entry := compileSingle(t, body, channels)
	trans := p.Transitions(p.InitialState(entry))
	if len(trans) != 1 || trans[0].Label != Tau {
		t.Fatalf("expected single tau transition, got %+v", trans)
	}
}

func TestTransitions_ParallelSync(t *testing.T) {
	channels := map[string]ir.ChannelInfo{"a": {Domain: ir.UnitDomain{}}, "b": {Domain: ir.UnitDomain{}}}
	left := ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.StopExpr{}}
	right := ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.PrefixExpr{Event: ir.Event{Channel: "b"}, Next: ir.StopExpr{}}}
	body := ir.ParallelExpr{Kind: ir.Interface, Sync: []string{"a"}, Left: left, Right: right}
	p, entry := compileSingle(t, body, channels)
	trans := p.Transitions(p.InitialState(entry))
	if len(trans) != 1 || trans[0].Label != "a" {
		t.Fatalf("expected a single synchronized 'a' transition, got %+v", trans)
	}
	// "b" is outside the sync alphabet, so the right side can still offer it
	// independently even though the left side is now STOP.
	next := p.Transitions(trans[0].Next)
	if len(next) != 1 || next[0].Label != "b" {
		t.Fatalf("expected a lone 'b' transition from the right side, got %+v", next)
	}
}

// TestStateFromExpr_PrunesUnusedBinding checks spec.md §3 invariant (ii):
// an Expr state's env only contains variables its sub-expression can still
// reference. `c?x -> d` never uses x after the c step, so the resulting
// state's env must drop it rather than carry it along unused.
func TestStateFromExpr_PrunesUnusedBinding(t *testing.T) {
	channels := map[string]ir.ChannelInfo{
		"c": {Domain: ir.IntRangeDomain{Min: 0, Max: 1}},
		"d": {Domain: ir.UnitDomain{}},
	}
	body := ir.PrefixExpr{
		Event: ir.Event{Channel: "c", Segment: &ir.EventSegment{Kind: ir.SegIn, Name: "x"}},
		Next:  ir.PrefixExpr{Event: ir.Event{Channel: "d"}, Next: ir.StopExpr{}},
	}
	p, entry := compileSingle(t, body, channels)
	trans := p.Transitions(p.InitialState(entry))
	if len(trans) != 2 {
		t.Fatalf("expected 2 transitions for {0..1}, got %d", len(trans))
	}
	for _, tr := range trans {
		next := tr.Next
		if next.Kind != KindExpr {
			t.Fatalf("expected an Expr state after c?x, got kind %v", next.Kind)
		}
		if len(next.Env) != 0 {
			t.Fatalf("expected x pruned from env once unreachable, got %+v", next.Env)
		}
	}
}

// TestStateFromExpr_KeepsReferencedBinding is the converse: c?x -> c!x keeps
// x live in env because the second step's Out(x) still reads it.
func TestStateFromExpr_KeepsReferencedBinding(t *testing.T) {
	channels := map[string]ir.ChannelInfo{"c": {Domain: ir.IntRangeDomain{Min: 0, Max: 1}}}
	body := ir.PrefixExpr{
		Event: ir.Event{Channel: "c", Segment: &ir.EventSegment{Kind: ir.SegIn, Name: "x"}},
		Next: ir.PrefixExpr{
			Event: ir.Event{Channel: "c", Segment: &ir.EventSegment{Kind: ir.SegOut, Name: "x"}},
			Next:  ir.StopExpr{},
		},
	}
	p, entry := compileSingle(t, body, channels)
	trans := p.Transitions(p.InitialState(entry))
	if len(trans) != 2 {
		t.Fatalf("expected 2 transitions for {0..1}, got %d", len(trans))
	}
	for _, tr := range trans {
		next := tr.Next
		if len(next.Env) != 1 || next.Env[0].Name != "x" {
			t.Fatalf("expected x to remain live in env, got %+v", next.Env)
		}
	}
}

func TestTransitions_ParallelInterleaving(t *testing.T) {
	channels := map[string]ir.ChannelInfo{"a": {Domain: ir.UnitDomain{}}, "b": {Domain: ir.UnitDomain{}}}
	left := ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.StopExpr{}}
	right := ir.PrefixExpr{Event: ir.Event{Channel: "b"}, Next: ir.StopExpr{}}
	body := ir.ParallelExpr{Kind: ir.Interleaving, Left: left, Right: right}
	p, entry := compileSingle(t, body, channels)
	trans := p.Transitions(p.InitialState(entry))
	if len(trans) != 2 || trans[0].Label != "a" || trans[1].Label != "b" {
		t.Fatalf("expected independent [a b], got %+v", trans)
	}
}
