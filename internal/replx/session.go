package replx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

// Session wraps a Debugger with the liner-backed read loop.
type Session struct {
	dbg  *Debugger
	name string
}

// NewSession names the debugged process (for the prompt and history file).
func NewSession(dbg *Debugger, name string) *Session {
	return &Session{dbg: dbg, name: name}
}

func (s *Session) prompt() string {
	return fmt.Sprintf("cspx[%s]%s> ", s.name, strings.Repeat("*", 0))
}

// Run drives the interactive loop until :quit or EOF.
func (s *Session) Run(out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(false)

	historyFile := filepath.Join(os.TempDir(), ".cspx_replx_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	line.SetCompleter(func(in string) (c []string) {
		if !strings.HasPrefix(in, ":") {
			return nil
		}
		for _, cmd := range []string{":help", ":quit", ":trans", ":step", ":back", ":trace", ":state"} {
			if strings.HasPrefix(cmd, in) {
				c = append(c, cmd)
			}
		}
		return c
	})

	fmt.Fprintf(out, "%s %s\n", cyan("cspx step debugger —"), s.name)
	fmt.Fprintln(out, dim("Type :help for commands, :quit to exit"))

	for {
		input, err := line.Prompt(s.prompt())
		if err == io.EOF {
			fmt.Fprintln(out, green("\nGoodbye!"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == ":quit" || input == ":q" {
			fmt.Fprintln(out, green("Goodbye!"))
			break
		}
		s.handle(input, out)
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

func (s *Session) handle(input string, out io.Writer) {
	parts := strings.Fields(input)
	switch parts[0] {
	case ":help", ":h":
		fmt.Fprintln(out, "  :trans           list enabled transitions from the current state")
		fmt.Fprintln(out, "  :step <label>    take the transition labeled <label>")
		fmt.Fprintln(out, "  :back            undo the last step")
		fmt.Fprintln(out, "  :trace           print the label sequence taken so far")
		fmt.Fprintln(out, "  :state           print the current state's canonical key")
		fmt.Fprintln(out, "  :quit            exit")

	case ":trans", ":t":
		trans := s.dbg.Transitions()
		if len(trans) == 0 {
			fmt.Fprintln(out, yellow("(no enabled transitions — deadlocked)"))
			return
		}
		for _, t := range trans {
			fmt.Fprintf(out, "  %s\n", t.Label)
		}

	case ":step", ":s":
		if len(parts) < 2 {
			fmt.Fprintln(out, "usage: :step <label>")
			return
		}
		if !s.dbg.Step(parts[1]) {
			fmt.Fprintf(out, "%s: %q is not enabled here\n", red("error"), parts[1])
			return
		}
		fmt.Fprintf(out, "%s %s (depth %d)\n", green("->"), parts[1], s.dbg.Depth())

	case ":back", ":b":
		if !s.dbg.Back() {
			fmt.Fprintln(out, yellow("already at the root"))
			return
		}
		fmt.Fprintf(out, "%s (depth %d)\n", green("<-"), s.dbg.Depth())

	case ":trace":
		trace := s.dbg.Trace()
		if len(trace) == 0 {
			fmt.Fprintln(out, dim("(empty)"))
			return
		}
		fmt.Fprintln(out, strings.Join(trace, ", "))

	case ":state":
		fmt.Fprintf(out, "%x\n", s.dbg.StateKey())

	default:
		fmt.Fprintf(out, "%s: unknown command %q (:help for a list)\n", red("error"), parts[0])
	}
}
