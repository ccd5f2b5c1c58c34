package minimize

import (
	"testing"

	"github.com/cspx/cspx/internal/ast"
	"github.com/cspx/cspx/internal/ir"
	"github.com/cspx/cspx/internal/refine"
	"github.com/cspx/cspx/internal/result"
)

func compileTwo(t *testing.T, specBody, implBody ir.ProcessExpr, channels map[string]ir.ChannelInfo) (*ir.Program, ir.ExprId, ir.ExprId) {
	t.Helper()
	m := &ir.Module{
		ChannelInfo: channels,
		DeclIndex:   map[string]int{"SPEC": 0, "IMPL": 1},
		Declarations: []ir.ProcessDecl{
			{Name: "SPEC", Body: specBody},
			{Name: "IMPL", Body: implBody},
		},
	}
	prog, err := ir.Compile(m)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return prog, prog.ProcRoot[0], prog.ProcRoot[1]
}

func TestMinimize_TraceMismatchAlreadyMinimal(t *testing.T) {
	channels := map[string]ir.ChannelInfo{
		"a": {Name: "a", Domain: ir.UnitDomain{}},
		"b": {Name: "b", Domain: ir.UnitDomain{}},
	}
	specBody := ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.StopExpr{}}
	implBody := ir.ChoiceExpr{
		Kind:  ir.External,
		Left:  ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.StopExpr{}},
		Right: ir.PrefixExpr{Event: ir.Event{Channel: "b"}, Next: ir.StopExpr{}},
	}
	prog, spec, impl := compileTwo(t, specBody, implBody, channels)

	res := refine.Check(prog, spec, impl, ast.ModelT)
	if res.Status != "fail" {
		t.Fatalf("expected fail, got %+v", res)
	}

	oracle := refine.ReplayOracle(prog, spec, impl, ast.ModelT, "trace_mismatch")
	ce := minimizeResult(t, res, Oracle(oracle))

	if !ce.IsMinimized {
		t.Fatalf("expected is_minimized=true")
	}
	if len(ce.Events) != 1 || ce.Events[0].Label != "b" {
		t.Fatalf("expected minimal trace [b], got %+v", ce.Events)
	}
}

func TestMinimize_RejectsIllFormedLongerCandidate(t *testing.T) {
	// SPEC = a -> b -> STOP, IMPL = a -> (b -> STOP [] b -> STOP): these are
	// trace-equivalent, so a fabricated ["a","b","a"] counterexample isn't a
	// genuine failure witness — the oracle must reject the whole candidate
	// (impl can't even perform a second "a"), leaving it unminimized.
	channels := map[string]ir.ChannelInfo{
		"a": {Name: "a", Domain: ir.UnitDomain{}},
		"b": {Name: "b", Domain: ir.UnitDomain{}},
	}
	specBody := ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.PrefixExpr{
		Event: ir.Event{Channel: "b"}, Next: ir.StopExpr{},
	}}
	implBody := ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.ChoiceExpr{
		Kind:  ir.External,
		Left:  ir.PrefixExpr{Event: ir.Event{Channel: "b"}, Next: ir.StopExpr{}},
		Right: ir.PrefixExpr{Event: ir.Event{Channel: "b"}, Next: ir.StopExpr{}},
	}}
	prog, spec, impl := compileTwo(t, specBody, implBody, channels)

	ce := result.NewCounterexample([]string{"a", "b", "a"})
	ce.AddTag("refinement")
	ce.AddTag("model:T")
	ce.AddTag("trace_mismatch")

	oracle := refine.ReplayOracle(prog, spec, impl, ast.ModelT, "trace_mismatch")
	Minimize(ce, Oracle(oracle))

	if ce.IsMinimized {
		t.Fatalf("expected is_minimized=false for a fabricated, non-reproducing candidate")
	}
	if len(ce.Events) != 3 {
		t.Fatalf("expected the original trace left untouched, got %+v", ce.Events)
	}
}

func TestMinimize_NilOracleLeavesUnminimized(t *testing.T) {
	ce := result.NewCounterexample([]string{"a"})
	Minimize(ce, nil)
	if ce.IsMinimized {
		t.Fatalf("expected is_minimized=false with a nil oracle")
	}
}

func minimizeResult(t *testing.T, res result.CheckResult, oracle Oracle) *result.Counterexample {
	t.Helper()
	if res.Counterexample == nil {
		t.Fatalf("expected a counterexample")
	}
	return Minimize(res.Counterexample, oracle)
}
