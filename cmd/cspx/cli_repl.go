package main

import (
	"fmt"
	"os"

	"github.com/cspx/cspx/internal/ir"
	"github.com/cspx/cspx/internal/lts"
	"github.com/cspx/cspx/internal/replx"
)

// runRepl implements `cspx repl <file> [process-name]`: loads a module,
// picks its entry (or a named declaration), and drops into the interactive
// step debugger (internal/replx).
func runRepl(args []string) int {
	fs, _ := newFlagSet("repl")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: cspx repl <file> [process-name]")
		return 2
	}
	file := fs.Arg(0)

	m, rep := loadModule(file)
	if rep != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", red("error"), rep.Message)
		return 1
	}

	prog, err := ir.Compile(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		return 1
	}

	var entryId ir.ExprId
	var name string
	if fs.NArg() >= 2 {
		name = fs.Arg(1)
		idx, ok := m.DeclIndex[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "%s: no such process %q\n", red("error"), name)
			return 1
		}
		entryId = prog.ProcRoot[idx]
	} else {
		entry, entryName, ok := m.EntryExpr()
		if !ok {
			fmt.Fprintln(os.Stderr, red("error")+": module has no entry process and no single declaration")
			return 1
		}
		name = entryName
		if name == "" {
			name = "entry"
		}
		entryId = prog.EntryId(entry)
	}

	prov := lts.New(prog)
	initial := prov.InitialState(entryId)
	dbg := replx.New(prov, initial)
	session := replx.NewSession(dbg, name)
	session.Run(os.Stdout)
	return 0
}
