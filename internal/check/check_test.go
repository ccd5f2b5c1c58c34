package check

import (
	"testing"

	"github.com/cspx/cspx/internal/ir"
	"github.com/cspx/cspx/internal/lts"
)

func compileSingle(t *testing.T, body ir.ProcessExpr, channels map[string]ir.ChannelInfo) (*lts.Provider, *lts.State) {
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
	prov := lts.New(prog)
	return prov, prov.InitialState(prog.ProcRoot[0])
}

func TestDeadlockFree_PassesOnInfiniteLoop(t *testing.T) {
	channels := map[string]ir.ChannelInfo{"a": {Name: "a", Domain: ir.UnitDomain{}}}
	body := ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.RefExpr{Name: "P"}}
	prov, s0 := compileSingle(t, body, channels)

	res := DeadlockFree(prov, s0)
	if res.Status != "pass" {
		t.Fatalf("expected pass, got %+v", res)
	}
}

func TestDeadlockFree_FailsOnStop(t *testing.T) {
	channels := map[string]ir.ChannelInfo{"a": {Name: "a", Domain: ir.UnitDomain{}}}
	body := ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.StopExpr{}}
	prov, s0 := compileSingle(t, body, channels)

	res := DeadlockFree(prov, s0)
	if res.Status != "fail" {
		t.Fatalf("expected fail, got %+v", res)
	}
	if len(res.Counterexample.Events) != 1 || res.Counterexample.Events[0].Label != "a" {
		t.Fatalf("expected trace [a], got %+v", res.Counterexample)
	}
}

func TestDivergenceFree_FailsOnHiddenLoop(t *testing.T) {
	channels := map[string]ir.ChannelInfo{"a": {Name: "a", Domain: ir.UnitDomain{}}}
	body := ir.HideExpr{
		Hide:  []string{"a"},
		Inner: ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.RefExpr{Name: "P"}},
	}
	prov, s0 := compileSingle(t, body, channels)

	res := DivergenceFree(prov, s0)
	if res.Status != "fail" {
		t.Fatalf("expected fail, got %+v", res)
	}
	if len(res.Counterexample.Events) != 1 || res.Counterexample.Events[0].Label != lts.Tau {
		t.Fatalf("expected trace [τ], got %+v", res.Counterexample)
	}
}

func TestDivergenceFree_PassesWithoutHiding(t *testing.T) {
	channels := map[string]ir.ChannelInfo{"a": {Name: "a", Domain: ir.UnitDomain{}}}
	body := ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.RefExpr{Name: "P"}}
	prov, s0 := compileSingle(t, body, channels)

	res := DivergenceFree(prov, s0)
	if res.Status != "pass" {
		t.Fatalf("expected pass, got %+v", res)
	}
}

func TestDeterministic_FailsOnInternalChoiceDivergentBranches(t *testing.T) {
	channels := map[string]ir.ChannelInfo{
		"a": {Name: "a", Domain: ir.UnitDomain{}},
		"b": {Name: "b", Domain: ir.UnitDomain{}},
	}
	body := ir.ChoiceExpr{
		Kind: ir.Internal,
		Left: ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.StopExpr{}},
		Right: ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.PrefixExpr{
			Event: ir.Event{Channel: "b"}, Next: ir.StopExpr{},
		}},
	}
	prov, s0 := compileSingle(t, body, channels)

	res := Deterministic(prov, s0)
	if res.Status != "fail" {
		t.Fatalf("expected fail, got %+v", res)
	}
	if len(res.Counterexample.Events) != 1 || res.Counterexample.Events[0].Label != "a" {
		t.Fatalf("expected trace [a], got %+v", res.Counterexample)
	}
}

func TestDeterministic_PassesOnExternalChoice(t *testing.T) {
	channels := map[string]ir.ChannelInfo{
		"a": {Name: "a", Domain: ir.UnitDomain{}},
		"b": {Name: "b", Domain: ir.UnitDomain{}},
	}
	body := ir.ChoiceExpr{
		Kind:  ir.External,
		Left:  ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.StopExpr{}},
		Right: ir.PrefixExpr{Event: ir.Event{Channel: "b"}, Next: ir.StopExpr{}},
	}
	prov, s0 := compileSingle(t, body, channels)

	res := Deterministic(prov, s0)
	if res.Status != "pass" {
		t.Fatalf("expected pass, got %+v", res)
	}
}
