package main

import (
	"fmt"
	"os"

	"github.com/cspx/cspx/internal/ast"
	"github.com/cspx/cspx/internal/errors"
	"github.com/cspx/cspx/internal/ir"
	"github.com/cspx/cspx/internal/lts"
	"github.com/cspx/cspx/internal/minimize"
	"github.com/cspx/cspx/internal/refine"
	"github.com/cspx/cspx/internal/result"
)

// runRefine implements `cspx refine --model {T|F|FD} <spec> <impl>`
// (spec.md §6): spec and impl are two independently typechecked CSPM files,
// each supplying its entry or its single declaration (no assertion
// fallback), refined against each other under the chosen model.
func runRefine(args []string) int {
	fs, g := newFlagSet("refine")
	modelFlag := fs.String("model", "", "refinement model: T, F, or FD")
	fs.Parse(args)
	if rep := g.finalizeSeed(fs); rep != nil {
		return emitEarlyError(g, rep)
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: cspx refine --model {T|F|FD} <spec-file> <impl-file>")
		return result.ExitCode(result.Error)
	}
	specFile, implFile := fs.Arg(0), fs.Arg(1)

	model, ok := parseModel(*modelFlag)
	if !ok {
		rep := errors.New(errors.InvalidInput, errors.CLI001, "cli", fmt.Sprintf("unrecognized --model %q (want T, F, or FD)", *modelFlag), nil)
		doc := newDocument("refine", args, g, nil, []result.CheckResult{
			{Name: "refine", Status: statusForKind(rep.Kind), Reason: reasonFromReport(rep)},
		})
		return emit(doc, g, specFile, "refine")
	}

	inputs, err := buildInputs(specFile, implFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		return result.ExitCode(result.Error)
	}

	check := runRefinement(specFile, implFile, model)
	doc := newDocument("refine", args, g, inputs, []result.CheckResult{check})
	return emit(doc, g, specFile, "refine")
}

func parseModel(s string) (ast.Model, bool) {
	switch s {
	case "T":
		return ast.ModelT, true
	case "F":
		return ast.ModelF, true
	case "FD":
		return ast.ModelFD, true
	default:
		return 0, false
	}
}

func runRefinement(specFile, implFile string, model ast.Model) result.CheckResult {
	modelName := model.String()

	specM, rep := loadModule(specFile)
	if rep != nil {
		return result.CheckResult{Name: "refine", Model: &modelName, Status: statusForKind(rep.Kind), Reason: reasonFromReport(rep)}
	}
	implM, rep := loadModule(implFile)
	if rep != nil {
		return result.CheckResult{Name: "refine", Model: &modelName, Status: statusForKind(rep.Kind), Reason: reasonFromReport(rep)}
	}

	specEntry, _, rep := resolveRefinementEntry(specM)
	if rep != nil {
		return result.CheckResult{Name: "refine", Model: &modelName, Status: statusForKind(rep.Kind), Reason: reasonFromReport(rep)}
	}
	implTarget := implFile
	implEntry, implName, rep := resolveRefinementEntry(implM)
	if rep != nil {
		return result.CheckResult{Name: "refine", Model: &modelName, Status: statusForKind(rep.Kind), Reason: reasonFromReport(rep)}
	}
	if implName != "" {
		implTarget = implName
	}

	specProg, err := ir.Compile(specM)
	if err != nil {
		return refineCompileError(err, modelName)
	}
	implProg, err := ir.Compile(implM)
	if err != nil {
		return refineCompileError(err, modelName)
	}

	specProv := lts.New(specProg)
	implProv := lts.New(implProg)
	specInit := specProv.InitialState(specProg.EntryId(specEntry))
	implInit := implProv.InitialState(implProg.EntryId(implEntry))

	res := refine.CheckCross(specProv, specInit, implProv, implInit, model)
	res.Model = &modelName
	res.Target = &implTarget

	if res.Counterexample != nil {
		class := failureClass(res.Counterexample.Tags)
		oracle := refine.ReplayOracleCross(specProv, specInit, implProv, implInit, model, class)
		minimize.Minimize(res.Counterexample, minimize.Oracle(oracle))
	}
	return res
}

func refineCompileError(err error, modelName string) result.CheckResult {
	if r, ok := errors.AsReport(err); ok {
		return result.CheckResult{Name: "refine", Model: &modelName, Status: statusForKind(r.Kind), Reason: reasonFromReport(r)}
	}
	return result.CheckResult{Name: "refine", Model: &modelName, Status: result.Error,
		Reason: &result.Reason{Kind: string(errors.InternalError), Message: err.Error()}}
}

func failureClass(tags []string) string {
	for _, t := range tags {
		switch t {
		case "trace_mismatch", "refusal_mismatch", "divergence_mismatch":
			return t
		}
	}
	return ""
}

// resolveRefinementEntry applies the module's entry or exactly-one-decl
// rule directly (spec.md §3's "An initial state exists iff entry is set OR
// exactly one declaration exists"). Refinement's spec/impl files aren't
// themselves naming a property kind to synthesize an entry from, so unlike
// check.ResolveEntry this never falls back to an assertion's target.
func resolveRefinementEntry(m *ir.Module) (ir.ProcessExpr, string, *errors.Report) {
	if entry, ok := m.EntryExpr(); ok {
		name := ""
		if m.Entry == nil && len(m.Declarations) == 1 {
			name = m.Declarations[0].Name
		}
		return entry, name, nil
	}
	return nil, "", errors.New(errors.InvalidInput, errors.TYP008, "cli",
		"no entry process and no single declaration to use as one", nil)
}
