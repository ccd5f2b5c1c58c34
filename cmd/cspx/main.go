// Command cspx is the CLI front end for the verifier: typecheck, check,
// refine, and an interactive step debugger (repl), emitting the schema v0.1
// Result JSON document or a colorized text summary.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	// Version info, set by ldflags during release builds.
	Version = "dev"
	Commit  = "unknown"

	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "typecheck":
		os.Exit(runTypecheck(os.Args[2:]))
	case "check":
		os.Exit(runCheck(os.Args[2:]))
	case "refine":
		os.Exit(runRefine(os.Args[2:]))
	case "repl":
		os.Exit(runRepl(os.Args[2:]))
	case "-h", "--help", "help":
		printHelp()
	case "-v", "--version", "version":
		fmt.Printf("cspx %s (%s)\n", Version, Commit)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", red("error"), os.Args[1])
		printHelp()
		os.Exit(2)
	}
}

func printHelp() {
	fmt.Println(bold("cspx") + " — CSPM process algebra verifier")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cspx typecheck <file>")
	fmt.Println("  cspx check --assert \"<text>\" <file>")
	fmt.Println("  cspx check --all-assertions <file>")
	fmt.Println("  cspx refine --model {T|F|FD} <spec-file> <impl-file>")
	fmt.Println("  cspx repl <file> [process-name]")
	fmt.Println()
	fmt.Println("Global flags:")
	fmt.Println("  --format {json|text}   output format (default text)")
	fmt.Println("  --output <file>        write the result document here (atomic)")
	fmt.Println("  --summary-json <file>  also write the compressed CI summary here")
	fmt.Println("  --timeout-ms <n>       recorded in the invocation, not enforced")
	fmt.Println("  --memory-mb <n>        recorded in the invocation, not enforced")
	fmt.Println("  --parallel <n>         explorer worker count (default 1)")
	fmt.Println("  --deterministic        deterministic parallel exploration (requires --seed)")
	fmt.Println("  --seed <u64>           seed for deterministic exploration")
}
