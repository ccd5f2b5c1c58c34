package main

import (
	"fmt"
	"os"

	"github.com/cspx/cspx/internal/ast"
	"github.com/cspx/cspx/internal/check"
	"github.com/cspx/cspx/internal/errors"
	"github.com/cspx/cspx/internal/ir"
	"github.com/cspx/cspx/internal/lts"
	"github.com/cspx/cspx/internal/minimize"
	"github.com/cspx/cspx/internal/result"
	"github.com/cspx/cspx/internal/scenario"
)

// runCheck implements `cspx check --assert "<text>" <file>` and
// `cspx check --all-assertions <file>` (spec.md §6).
func runCheck(args []string) int {
	fs, g := newFlagSet("check")
	assertText := fs.String("assert", "", `run a single property: "deadlock free", "divergence free", or "deterministic"`)
	allAssertions := fs.Bool("all-assertions", false, "run every assertion declared in the module")
	fs.Parse(args)
	if rep := g.finalizeSeed(fs); rep != nil {
		return emitEarlyError(g, rep)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: cspx check --assert \"<text>\" <file>  |  cspx check --all-assertions <file>")
		return result.ExitCode(result.Error)
	}
	file := fs.Arg(0)

	inputs, err := buildInputs(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		return result.ExitCode(result.Error)
	}

	var checks []result.CheckResult
	switch {
	case *allAssertions:
		checks = runAllAssertions(file)
	case *assertText != "":
		checks = []result.CheckResult{runSingleAssertion(file, *assertText)}
	default:
		fmt.Fprintln(os.Stderr, "usage: cspx check --assert \"<text>\" <file>  |  cspx check --all-assertions <file>")
		return result.ExitCode(result.Error)
	}

	doc := newDocument("check", args, g, inputs, checks)
	return emit(doc, g, file, "check")
}

func runAllAssertions(file string) []result.CheckResult {
	data, err := os.ReadFile(file)
	if err != nil {
		return []result.CheckResult{{Name: "check", Status: result.Error,
			Reason: &result.Reason{Kind: string(errors.InvalidInput), Message: err.Error()}}}
	}
	checks, errs := scenario.RunSource(string(data), file)
	if len(errs) > 0 {
		rep := firstUnsupportedOrFirst(errs)
		return []result.CheckResult{{Name: "check", Status: statusForKind(rep.Kind), Reason: reasonFromReport(rep)}}
	}
	if len(checks) == 0 {
		rep := errors.New(errors.InvalidInput, errors.TYP008, "cli", "module declares no assertions", nil)
		return []result.CheckResult{{Name: "check", Status: result.Error, Reason: reasonFromReport(rep)}}
	}
	return checks
}

// parseAssertText maps the CLI's recognized single-assertion strings to
// their ast.PropertyKind, per spec.md §6.
func parseAssertText(text string) (ast.PropertyKind, bool) {
	switch text {
	case "deadlock free":
		return ast.DeadlockFree, true
	case "divergence free":
		return ast.DivergenceFree, true
	case "deterministic":
		return ast.Deterministic, true
	default:
		return 0, false
	}
}

// checkName is the CheckResult.Name every path for kind uses, matching the
// name check.DeadlockFree/DivergenceFree/Deterministic stamp on success.
func checkName(kind ast.PropertyKind) string {
	switch kind {
	case ast.DeadlockFree:
		return "deadlock_free"
	case ast.DivergenceFree:
		return "divergence_free"
	case ast.Deterministic:
		return "deterministic"
	default:
		return "check"
	}
}

func runSingleAssertion(file, text string) result.CheckResult {
	kind, ok := parseAssertText(text)
	if !ok {
		rep := errors.New(errors.InvalidInput, errors.CLI002, "cli", fmt.Sprintf("unrecognized --assert text %q", text), nil)
		return result.CheckResult{Name: "check", Status: statusForKind(rep.Kind), Reason: reasonFromReport(rep)}
	}

	m, rep := loadModule(file)
	if rep != nil {
		return result.CheckResult{Name: checkName(kind), Status: statusForKind(rep.Kind), Reason: reasonFromReport(rep)}
	}

	entry, target, rep := check.ResolveEntry(m, kind)
	if rep != nil {
		return result.CheckResult{Name: checkName(kind), Status: statusForKind(rep.Kind), Reason: reasonFromReport(rep)}
	}

	prog, err := ir.Compile(m)
	if err != nil {
		if r, ok := errors.AsReport(err); ok {
			return result.CheckResult{Name: checkName(kind), Status: statusForKind(r.Kind), Reason: reasonFromReport(r)}
		}
		return result.CheckResult{Name: checkName(kind), Status: result.Error,
			Reason: &result.Reason{Kind: string(errors.InternalError), Message: err.Error()}}
	}
	entryId := prog.EntryId(entry)
	prov := lts.New(prog)
	s0 := prov.InitialState(entryId)

	var res result.CheckResult
	switch kind {
	case ast.DeadlockFree:
		res = check.DeadlockFree(prov, s0)
	case ast.DivergenceFree:
		res = check.DivergenceFree(prov, s0)
	case ast.Deterministic:
		res = check.Deterministic(prov, s0)
	}
	if target != "" {
		res.Target = &target
	}
	if res.Counterexample != nil {
		// No oracle exists for the built-in property checkers (spec.md §9's
		// second Open Question); pass through unminimized rather than
		// inventing one.
		minimize.Minimize(res.Counterexample, nil)
	}
	return res
}
