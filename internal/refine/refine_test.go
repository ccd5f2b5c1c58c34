package refine

import (
	"testing"

	"github.com/cspx/cspx/internal/ast"
	"github.com/cspx/cspx/internal/ir"
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

func TestCheck_FDPassesBothStop(t *testing.T) {
	channels := map[string]ir.ChannelInfo{}
	prog, spec, impl := compileTwo(t, ir.StopExpr{}, ir.StopExpr{}, channels)

	res := Check(prog, spec, impl, ast.ModelFD)
	if res.Status != "pass" {
		t.Fatalf("expected pass, got %+v", res)
	}
}

func TestCheck_FDFailsOnImplDivergence(t *testing.T) {
	channels := map[string]ir.ChannelInfo{"a": {Name: "a", Domain: ir.UnitDomain{}}}
	specBody := ir.StopExpr{}
	// IMPL = (a -> IMPL) \ {|a|}; the Ref resolves to IMPL's own Hide node,
	// and the nested hide flattens back into the initial state, producing a
	// τ self-loop.
	implBody := ir.HideExpr{
		Hide:  []string{"a"},
		Inner: ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.RefExpr{Name: "IMPL"}},
	}
	prog, spec, impl := compileTwo(t, specBody, implBody, channels)

	res := Check(prog, spec, impl, ast.ModelFD)
	if res.Status != "fail" {
		t.Fatalf("expected fail, got %+v", res)
	}
	if res.Counterexample == nil || len(res.Counterexample.Events) != 1 || res.Counterexample.Events[0].Label != "τ" {
		t.Fatalf("expected trace [τ], got %+v", res.Counterexample)
	}
	wantTags := []string{"refinement", "model:FD", "divergence_mismatch", "divergence"}
	for _, want := range wantTags {
		found := false
		for _, got := range res.Counterexample.Tags {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected tag %q in %v", want, res.Counterexample.Tags)
		}
	}
}

func TestCheck_TFailsOnExtraLabel(t *testing.T) {
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

	res := Check(prog, spec, impl, ast.ModelT)
	if res.Status != "fail" {
		t.Fatalf("expected fail, got %+v", res)
	}
	if len(res.Counterexample.Events) != 1 || res.Counterexample.Events[0].Label != "b" {
		t.Fatalf("expected trace [b], got %+v", res.Counterexample)
	}
}

func TestCheck_FPassesOnMatchingRefusals(t *testing.T) {
	channels := map[string]ir.ChannelInfo{"a": {Name: "a", Domain: ir.UnitDomain{}}}
	body := ir.PrefixExpr{Event: ir.Event{Channel: "a"}, Next: ir.StopExpr{}}
	prog, spec, impl := compileTwo(t, body, body, channels)

	res := Check(prog, spec, impl, ast.ModelF)
	if res.Status != "pass" {
		t.Fatalf("expected pass, got %+v", res)
	}
}
