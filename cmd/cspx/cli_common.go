package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cspx/cspx/internal/errors"
	"github.com/cspx/cspx/internal/ir"
	"github.com/cspx/cspx/internal/parser"
	"github.com/cspx/cspx/internal/result"
	"github.com/cspx/cspx/internal/schema"
)

// globalFlags holds the flags shared by every subcommand (spec.md §6).
type globalFlags struct {
	format        string
	output        string
	summaryJSON   string
	timeoutMs     int
	memoryMB      int
	parallel      int
	deterministic bool
	seed          uint64
	seedSet       bool
	compact       bool
}

func newFlagSet(name string) (*flag.FlagSet, *globalFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	g := &globalFlags{}
	fs.StringVar(&g.format, "format", "text", "output format: json or text")
	fs.StringVar(&g.output, "output", "", "write the result document here (atomic)")
	fs.StringVar(&g.summaryJSON, "summary-json", "", "also write the compressed CI summary here")
	fs.IntVar(&g.timeoutMs, "timeout-ms", 0, "recorded in the invocation, not enforced by the core")
	fs.IntVar(&g.memoryMB, "memory-mb", 0, "recorded in the invocation, not enforced by the core")
	fs.IntVar(&g.parallel, "parallel", 1, "explorer worker count")
	fs.BoolVar(&g.deterministic, "deterministic", false, "deterministic parallel exploration (requires --seed)")
	fs.Uint64Var(&g.seed, "seed", 0, "seed for deterministic exploration")
	fs.BoolVar(&g.compact, "compact", false, "emit single-line JSON instead of indented")
	return fs, g
}

// emitEarlyError reports a *errors.Report surfaced before any CheckResult
// could be built (flag validation): the Report's own
// JSON when --format json, else the colorized one-liner every subcommand's
// preflight checks print.
func emitEarlyError(g *globalFlags, rep *errors.Report) int {
	if g.format == "json" {
		schema.SetCompactMode(g.compact)
		if text, err := rep.ToJSON(g.compact); err == nil {
			fmt.Fprintln(os.Stderr, text)
			return result.ExitCode(statusForKind(rep.Kind))
		}
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", red("error"), rep.Message)
	return result.ExitCode(statusForKind(rep.Kind))
}

// finalizeSeed must be called after fs.Parse: flag.Visit only reports flags
// actually passed on the command line, which is how --deterministic's
// "requires --seed" rule (spec.md §6) is enforced rather than just
// defaulting seed to zero silently.
func (g *globalFlags) finalizeSeed(fs *flag.FlagSet) *errors.Report {
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			g.seedSet = true
		}
	})
	if g.deterministic && !g.seedSet {
		return errors.New(errors.InvalidInput, errors.CLI003, "cli", "--deterministic requires --seed", nil)
	}
	return nil
}

func sha256Hex(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// atomicWrite writes data to path via a temp file in the same directory
// followed by a rename, per spec.md §6's atomic-write requirement.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, ".cspx-tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func buildTool() result.Tool {
	return result.Tool{Name: "cspx", Version: Version, GitSHA: Commit}
}

func buildInvocation(command string, args []string, g *globalFlags) result.Invocation {
	inv := result.Invocation{
		Command:       command,
		Args:          args,
		Format:        g.format,
		TimeoutMs:     g.timeoutMs,
		MemoryMB:      g.memoryMB,
		Parallel:      g.parallel,
		Deterministic: g.deterministic,
	}
	if g.seedSet {
		s := g.seed
		inv.Seed = &s
	}
	return inv
}

func buildInputs(paths ...string) ([]result.Input, error) {
	var inputs []result.Input
	for _, p := range paths {
		sum, err := sha256Hex(p)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, result.Input{Path: p, SHA256: sum})
	}
	return inputs, nil
}

// loadModule reads, lexes, parses, and typechecks path, returning a
// compiled Module or the most informative *errors.Report to surface as a
// CheckResult (preferring UnsupportedSyntax over InvalidInput when a run
// produced both, since they map to different result statuses).
func loadModule(path string) (*ir.Module, *errors.Report) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.InvalidInput, errors.CLI001, "cli",
			fmt.Sprintf("cannot read %s: %v", path, err), nil)
	}
	file, errs := parser.ParseFile(data, path)
	if len(errs) > 0 {
		return nil, firstUnsupportedOrFirst(errs)
	}
	m, errs := parser.Typecheck(file)
	if len(errs) > 0 {
		return nil, firstUnsupportedOrFirst(errs)
	}
	return m, nil
}

func firstUnsupportedOrFirst(errs []*errors.Report) *errors.Report {
	for _, e := range errs {
		if e.Kind == errors.UnsupportedSyntax {
			return e
		}
	}
	return errs[0]
}

// statusForKind maps an errors.Kind to the CheckResult status it produces.
func statusForKind(k errors.Kind) result.Status {
	switch k {
	case errors.UnsupportedSyntax, errors.NotImplemented:
		return result.Unsupported
	case errors.Timeout:
		return result.Timeout
	case errors.OutOfMemory:
		return result.OutOfMemory
	default:
		return result.Error
	}
}

func reasonFromReport(r *errors.Report) *result.Reason {
	return &result.Reason{Kind: string(r.Kind), Message: r.Message}
}

// validateDocument guards an emit path against writing out a document
// stamped with the wrong schema-version constant: decode the already
// deterministically-marshaled bytes back to a generic object and run them
// through schema.MustValidate before anything touches disk or stdout.
func validateDocument(schemaName string, data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	return schema.MustValidate(schemaName, m)
}

// emit writes the document as JSON or a colorized text summary to stdout
// (or --output), plus an optional --summary-json digest, and returns the
// process exit code.
func emit(doc *result.Document, g *globalFlags, inputFile, backend string) int {
	schema.SetCompactMode(g.compact)

	switch g.format {
	case "json":
		data, err := doc.ToJSON()
		if err == nil {
			err = validateDocument(schema.ResultV1, data)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: encoding result: %v\n", red("error"), err)
			return result.ExitCode(result.Error)
		}
		if g.output != "" {
			if err := atomicWrite(g.output, data); err != nil {
				fmt.Fprintf(os.Stderr, "%s: writing %s: %v\n", red("error"), g.output, err)
				return result.ExitCode(result.Error)
			}
		} else {
			fmt.Println(string(data))
		}
	default:
		printText(doc)
		if g.output != "" {
			if data, err := doc.ToJSON(); err == nil && validateDocument(schema.ResultV1, data) == nil {
				_ = atomicWrite(g.output, data)
			}
		}
	}

	if g.summaryJSON != "" {
		summary := result.NewSummary("cspx", inputFile, backend, doc, g.output)
		data, err := summary.ToJSON()
		if err == nil && validateDocument(schema.SummaryV1, data) == nil {
			_ = atomicWrite(g.summaryJSON, data)
		}
	}

	return doc.ExitCode
}

func printText(doc *result.Document) {
	statusColor := statusPrinter(doc.Status)
	fmt.Printf("%s %s\n", bold("status:"), statusColor(string(doc.Status)))
	for _, c := range doc.Checks {
		name := c.Name
		if c.Target != nil {
			name = fmt.Sprintf("%s(%s)", c.Name, *c.Target)
		}
		if c.Model != nil {
			name = fmt.Sprintf("%s [%s]", name, *c.Model)
		}
		fmt.Printf("  %s %s\n", statusPrinter(c.Status)(string(c.Status)), name)
		if c.Reason != nil {
			fmt.Printf("    %s: %s\n", c.Reason.Kind, c.Reason.Message)
		}
		if c.Counterexample != nil {
			labels := make([]string, len(c.Counterexample.Events))
			for i, e := range c.Counterexample.Events {
				labels[i] = e.Label
			}
			fmt.Printf("    trace: %v\n", labels)
			fmt.Printf("    tags: %v\n", c.Counterexample.Tags)
			if c.Counterexample.IsMinimized {
				fmt.Println("    (minimized)")
			}
		}
		if c.Stats != nil {
			if c.Stats.States != nil {
				fmt.Printf("    states: %d\n", *c.Stats.States)
			}
			if c.Stats.Transitions != nil {
				fmt.Printf("    transitions: %d\n", *c.Stats.Transitions)
			}
		}
	}
}

func statusPrinter(s result.Status) func(a ...interface{}) string {
	switch s {
	case result.Pass:
		return green
	case result.Unsupported, result.Timeout, result.OutOfMemory:
		return yellow
	default:
		return red
	}
}

// newDocument wraps a set of CheckResults into a full schema v0.1 Document.
func newDocument(command string, args []string, g *globalFlags, inputs []result.Input, checks []result.CheckResult) *result.Document {
	return result.NewDocument(buildTool(), buildInvocation(command, args, g), inputs, checks)
}
