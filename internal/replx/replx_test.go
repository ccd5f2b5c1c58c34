package replx

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

func abChannels() map[string]ir.ChannelInfo {
	return map[string]ir.ChannelInfo{
		"a": {Name: "a", Domain: ir.UnitDomain{}},
		"b": {Name: "b", Domain: ir.UnitDomain{}},
	}
}

func TestDebugger_StepAndBack(t *testing.T) {
	body := ir.PrefixExpr{Event: ir.Event{Channel: "a"},
		Next: ir.PrefixExpr{Event: ir.Event{Channel: "b"}, Next: ir.StopExpr{}}}
	prov, s0 := compileSingle(t, body, abChannels())
	dbg := New(prov, s0)

	if dbg.Depth() != 0 {
		t.Fatalf("expected depth 0 at root, got %d", dbg.Depth())
	}
	trans := dbg.Transitions()
	if len(trans) != 1 || trans[0].Label != "a" {
		t.Fatalf("expected single transition on a, got %+v", trans)
	}

	if !dbg.Step("a") {
		t.Fatalf("expected Step(a) to succeed")
	}
	if dbg.Depth() != 1 {
		t.Fatalf("expected depth 1 after one step, got %d", dbg.Depth())
	}
	if got := dbg.Trace(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected trace [a], got %v", got)
	}

	if dbg.Step("b") == false {
		t.Fatalf("expected Step(b) to succeed")
	}
	if dbg.Depth() != 2 {
		t.Fatalf("expected depth 2, got %d", dbg.Depth())
	}
	if len(dbg.Transitions()) != 0 {
		t.Fatalf("expected STOP to have no transitions, got %+v", dbg.Transitions())
	}

	if !dbg.Back() {
		t.Fatalf("expected Back to succeed")
	}
	if dbg.Depth() != 1 {
		t.Fatalf("expected depth 1 after back, got %d", dbg.Depth())
	}
	if got := dbg.Trace(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected trace [a] after back, got %v", got)
	}
}

func TestDebugger_StepRejectsUnenabledLabel(t *testing.T) {
	body := ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.StopExpr{}}
	prov, s0 := compileSingle(t, body, abChannels())
	dbg := New(prov, s0)

	if dbg.Step("b") {
		t.Fatalf("expected Step(b) to fail when only a is enabled")
	}
	if dbg.Depth() != 0 {
		t.Fatalf("expected depth unchanged after a rejected step, got %d", dbg.Depth())
	}
}

func TestDebugger_BackAtRootFails(t *testing.T) {
	body := ir.StopExpr{}
	prov, s0 := compileSingle(t, body, abChannels())
	dbg := New(prov, s0)

	if dbg.Back() {
		t.Fatalf("expected Back to fail at the root")
	}
}

func TestDebugger_StateKeyChangesAcrossSteps(t *testing.T) {
	body := ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.StopExpr{}}
	prov, s0 := compileSingle(t, body, abChannels())
	dbg := New(prov, s0)

	root := dbg.StateKey()
	dbg.Step("a")
	after := dbg.StateKey()
	if string(root) == string(after) {
		t.Fatalf("expected StateKey to change after stepping")
	}
}
