package explore

import (
	"testing"

	"github.com/cspx/cspx/internal/ir"
	"github.com/cspx/cspx/internal/lts"
	"github.com/cspx/cspx/internal/store"
)

func twoStateProgram(t *testing.T) (*lts.Provider, ir.ExprId) {
	t.Helper()
	channels := map[string]ir.ChannelInfo{"a": {Domain: ir.UnitDomain{}}, "b": {Domain: ir.UnitDomain{}}}
	body := ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.PrefixExpr{Event: ir.Event{Channel: "b"}, Next: ir.StopExpr{}}}
	m := &ir.Module{ChannelInfo: channels, DeclIndex: map[string]int{"P": 0}, Declarations: []ir.ProcessDecl{{Name: "P", Body: body}}}
	prog, err := ir.Compile(m)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	entry, _ := m.EntryExpr()
	return lts.New(prog), prog.EntryId(entry)
}

func TestSerial_CountsStatesAndTransitions(t *testing.T) {
	p, entry := twoStateProgram(t)
	e := New(p, store.NewMem())
	stats, err := e.Serial(p.InitialState(entry))
	if err != nil {
		t.Fatalf("Serial: %v", err)
	}
	if stats.States != 3 {
		t.Fatalf("expected 3 states (a->b->STOP chain), got %d", stats.States)
	}
	if stats.Transitions != 2 {
		t.Fatalf("expected 2 transitions, got %d", stats.Transitions)
	}
}

func TestSerialVsParallelDeterministic_Equivalence(t *testing.T) {
	p, entry := twoStateProgram(t)

	serialStats, err := New(p, store.NewMem()).Serial(p.InitialState(entry))
	if err != nil {
		t.Fatalf("Serial: %v", err)
	}
	detStats, err := New(p, store.NewMem()).ParallelDeterministic(p.InitialState(entry), 4)
	if err != nil {
		t.Fatalf("ParallelDeterministic: %v", err)
	}
	if serialStats != detStats {
		t.Fatalf("expected equal stats, got serial=%+v deterministic=%+v", serialStats, detStats)
	}
}

func TestParallelND_MatchesStateCount(t *testing.T) {
	p, entry := twoStateProgram(t)
	stats, err := New(p, store.NewMem()).ParallelND(p.InitialState(entry), 4)
	if err != nil {
		t.Fatalf("ParallelND: %v", err)
	}
	if stats.States != 3 {
		t.Fatalf("expected 3 states, got %d", stats.States)
	}
}
