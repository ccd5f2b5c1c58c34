package scenario

import (
	"os"
	"path/filepath"
	"testing"
)

func runSingle(t *testing.T, source string) (result struct {
	Status string
	Events []string
	Tags   []string
	Min    bool
}) {
	t.Helper()
	results, errs := RunSource(source, "e.csp")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly one assertion result, got %d: %+v", len(results), results)
	}
	r := results[0]
	result.Status = string(r.Status)
	if r.Counterexample != nil {
		result.Events = r.Counterexample.Labels()
		result.Tags = r.Counterexample.Tags
		result.Min = r.Counterexample.IsMinimized
	}
	return result
}

func containsAll(got []string, want []string) bool {
	set := map[string]bool{}
	for _, g := range got {
		set[g] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func TestE1_DeadlockComposition(t *testing.T) {
	src := `channel a, b
P = a -> P
Q = b -> Q
System = P [|{|a,b|}|] Q
assert System :[deadlock free [F]]
`
	res := runSingle(t, src)
	if res.Status != "fail" {
		t.Fatalf("E1: expected fail, got %+v", res)
	}
	if !containsAll(res.Tags, []string{"deadlock", "kind:deadlock", "explained"}) {
		t.Fatalf("E1: missing expected tags, got %v", res.Tags)
	}
	if len(res.Events) > 1 {
		t.Fatalf("E1: expected trace empty or a single step, got %v", res.Events)
	}
}

func TestE2_HiddenTauLoopDivergence(t *testing.T) {
	src := `channel a
Loop = a -> Loop
Div = Loop \ {|a|}
assert Div :[divergence free [FD]]
`
	res := runSingle(t, src)
	if res.Status != "fail" {
		t.Fatalf("E2: expected fail, got %+v", res)
	}
	if len(res.Events) != 1 || res.Events[0] != "τ" {
		t.Fatalf("E2: expected events [τ], got %v", res.Events)
	}
	if !containsAll(res.Tags, []string{"divergence", "kind:divergence", "explained"}) {
		t.Fatalf("E2: missing expected tags, got %v", res.Tags)
	}
}

func TestE3_DeterminismViaInternalChoice(t *testing.T) {
	src := `channel a, b
P = (a -> STOP) |~| (a -> b -> STOP)
assert P :[deterministic [FD]]
`
	res := runSingle(t, src)
	if res.Status != "fail" {
		t.Fatalf("E3: expected fail, got %+v", res)
	}
	if len(res.Events) != 1 || res.Events[0] != "a" {
		t.Fatalf("E3: expected events [a], got %v", res.Events)
	}
	if !containsAll(res.Tags, []string{"nondeterminism", "label:a"}) {
		t.Fatalf("E3: missing expected tags, got %v", res.Tags)
	}
}

func TestE4_FDRefinementPassesBothStop(t *testing.T) {
	src := `SPEC = STOP
IMPL = STOP
assert SPEC [FD= IMPL
`
	res := runSingle(t, src)
	if res.Status != "pass" {
		t.Fatalf("E4: expected pass, got %+v", res)
	}
}

func TestE5_FDRefinementFailsOnImplDivergence(t *testing.T) {
	src := `channel a
SPEC = STOP
IMPL = (a -> IMPL) \ {|a|}
assert SPEC [FD= IMPL
`
	res := runSingle(t, src)
	if res.Status != "fail" {
		t.Fatalf("E5: expected fail, got %+v", res)
	}
	found := false
	for _, e := range res.Events {
		if e == "τ" {
			found = true
		}
	}
	if !found {
		t.Fatalf("E5: expected trace to contain τ, got %v", res.Events)
	}
	if !containsAll(res.Tags, []string{"refinement", "model:FD", "divergence_mismatch", "divergence"}) {
		t.Fatalf("E5: missing expected tags, got %v", res.Tags)
	}
}

func TestE6_TracesRefinementFailsOnExtraLabel(t *testing.T) {
	src := `channel a, b
SPEC = a -> STOP
IMPL = a -> STOP [] b -> STOP
assert SPEC [T= IMPL
`
	res := runSingle(t, src)
	if res.Status != "fail" {
		t.Fatalf("E6: expected fail, got %+v", res)
	}
	if len(res.Events) != 1 || res.Events[0] != "b" {
		t.Fatalf("E6: expected events [b], got %v", res.Events)
	}
	if !containsAll(res.Tags, []string{"trace_mismatch"}) {
		t.Fatalf("E6: missing trace_mismatch tag, got %v", res.Tags)
	}
	if !res.Min {
		t.Fatalf("E6: expected is_minimized=true")
	}
}

func TestLoadCases_RunsFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cases.yaml")
	contents := `scenarios:
  - id: e4-fd-both-stop
    description: FD refinement passes when both refine to STOP
    source: |
      SPEC = STOP
      IMPL = STOP
      assert SPEC [FD= IMPL
    expect:
      status: pass
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cases, err := LoadCases(path)
	if err != nil {
		t.Fatalf("LoadCases: %v", err)
	}
	if len(cases) != 1 {
		t.Fatalf("expected 1 case, got %d", len(cases))
	}
	c := cases[0]

	results, errs := RunSource(c.Source, c.ID+".csp")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	ok, msg := Matches(results[0], c.Expect)
	if !ok {
		t.Fatalf("case %s mismatch: %s", c.ID, msg)
	}
}
