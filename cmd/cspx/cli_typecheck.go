package main

import (
	"fmt"
	"os"

	"github.com/cspx/cspx/internal/result"
)

// runTypecheck implements `cspx typecheck <file>`: parse and typecheck only,
// reporting Pass on a well-typed IR or the first diagnostic otherwise.
func runTypecheck(args []string) int {
	fs, g := newFlagSet("typecheck")
	fs.Parse(args)
	if rep := g.finalizeSeed(fs); rep != nil {
		return emitEarlyError(g, rep)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: cspx typecheck <file>")
		return result.ExitCode(result.Error)
	}
	file := fs.Arg(0)

	inputs, err := buildInputs(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		return result.ExitCode(result.Error)
	}

	check := result.CheckResult{Name: "typecheck", Status: result.Pass}
	if _, rep := loadModule(file); rep != nil {
		check.Status = statusForKind(rep.Kind)
		check.Reason = reasonFromReport(rep)
	}

	doc := newDocument("typecheck", args, g, inputs, []result.CheckResult{check})
	return emit(doc, g, file, "typecheck")
}
