package ir

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cspx/cspx/internal/errors"
)

// ExprId addresses a node in the interned operator arena.
type ExprId int32

// OpKind tags the closed set of operator node shapes.
type OpKind uint8

const (
	OpStop OpKind = iota
	OpRef
	OpPrefix
	OpChoiceExternal
	OpChoiceInternal
	OpParallel
	OpHide
)

// OpNode is one interned operator graph node. Only the fields relevant to
// Kind are meaningful.
type OpNode struct {
	Kind OpKind

	// OpRef
	ProcID int

	// OpPrefix
	Event Event
	Next  ExprId

	// OpChoiceExternal / OpChoiceInternal / OpParallel
	Left, Right ExprId

	// OpParallel
	ParKind ParallelKind
	Sync    []string

	// OpHide
	Hide  []string
	Inner ExprId
}

// Program is the compiled form of a Module: the interned arena, the
// per-process root table, and the Ref-chased resolution table.
type Program struct {
	Module   *Module
	Arena    []OpNode
	ProcRoot map[int]ExprId    // procId -> body ExprId
	ProcName []string          // procId -> name, index-compatible with ProcRoot
	procIdx  map[string]int    // name -> procId
	resolved map[ExprId]ExprId // Ref chased to first non-Ref target
}

type compiler struct {
	prog  *Program
	index map[string]ExprId // structural signature -> ExprId, for interning
}

// Compile lowers a typechecked Module to a Program: an interned operator
// arena plus the tables the LTS provider needs.
func Compile(m *Module) (*Program, error) {
	prog := &Program{
		Module:   m,
		ProcRoot: map[int]ExprId{},
		procIdx:  map[string]int{},
		resolved: map[ExprId]ExprId{},
	}
	c := &compiler{prog: prog, index: map[string]ExprId{}}

	for i, decl := range m.Declarations {
		prog.procIdx[decl.Name] = i
		prog.ProcName = append(prog.ProcName, decl.Name)
	}
	for i, decl := range m.Declarations {
		prog.ProcRoot[i] = c.lower(decl.Body)
	}

	if err := c.resolveAll(); err != nil {
		return nil, err
	}
	return prog, nil
}

// EntryId lowers and returns the ExprId for the module's entry expression,
// for use by a caller that already validated EntryExpr() succeeds.
func (p *Program) EntryId(entry ProcessExpr) ExprId {
	c := &compiler{prog: p, index: map[string]ExprId{}}
	// Re-seed the interning index from the existing arena so the entry
	// expression shares structure with already-compiled declarations.
	for id, node := range p.Arena {
		c.index[c.signature(node)] = ExprId(id)
	}
	id := c.lower(entry)
	// Resolve any Ref nodes the entry introduced; every process root is
	// already resolved, so this cannot report a new cycle.
	_ = c.resolveAll()
	return id
}

func (c *compiler) intern(node OpNode) ExprId {
	sig := c.signature(node)
	if id, ok := c.index[sig]; ok {
		return id
	}
	id := ExprId(len(c.prog.Arena))
	c.prog.Arena = append(c.prog.Arena, node)
	c.index[sig] = id
	return id
}

// signature computes a structural-equality key so that equal sub-expressions
// share one ExprId, as required by the refinement engine's closure
// signatures.
func (c *compiler) signature(n OpNode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|", n.Kind)
	switch n.Kind {
	case OpStop:
	case OpRef:
		fmt.Fprintf(&b, "%d", n.ProcID)
	case OpPrefix:
		fmt.Fprintf(&b, "%s|%s|%d", n.Event.Channel, segKey(n.Event.Segment), n.Next)
	case OpChoiceExternal, OpChoiceInternal:
		fmt.Fprintf(&b, "%d|%d", n.Left, n.Right)
	case OpParallel:
		fmt.Fprintf(&b, "%d|%s|%d|%d", n.ParKind, strings.Join(n.Sync, ","), n.Left, n.Right)
	case OpHide:
		fmt.Fprintf(&b, "%s|%d", strings.Join(n.Hide, ","), n.Inner)
	}
	return b.String()
}

func segKey(s *EventSegment) string {
	if s == nil {
		return "-"
	}
	if s.IsLit {
		return fmt.Sprintf("%d:%d", s.Kind, s.Lit)
	}
	return fmt.Sprintf("%d:#%s", s.Kind, s.Name)
}

func (c *compiler) lower(e ProcessExpr) ExprId {
	switch n := e.(type) {
	case StopExpr:
		return c.intern(OpNode{Kind: OpStop})
	case RefExpr:
		procID := c.prog.procIdx[n.Name]
		return c.intern(OpNode{Kind: OpRef, ProcID: procID})
	case PrefixExpr:
		next := c.lower(n.Next)
		return c.intern(OpNode{Kind: OpPrefix, Event: n.Event, Next: next})
	case ChoiceExpr:
		l := c.lower(n.Left)
		r := c.lower(n.Right)
		kind := OpChoiceExternal
		if n.Kind == Internal {
			kind = OpChoiceInternal
		}
		return c.intern(OpNode{Kind: kind, Left: l, Right: r})
	case ParallelExpr:
		l := c.lower(n.Left)
		r := c.lower(n.Right)
		sync := append([]string(nil), n.Sync...)
		sort.Strings(sync)
		return c.intern(OpNode{Kind: OpParallel, ParKind: n.Kind, Sync: sync, Left: l, Right: r})
	case HideExpr:
		inner := c.lower(n.Inner)
		hide := append([]string(nil), n.Hide...)
		sort.Strings(hide)
		return c.intern(OpNode{Kind: OpHide, Hide: hide, Inner: inner})
	default:
		panic(fmt.Sprintf("ir: unhandled ProcessExpr %T", e))
	}
}

// resolveAll computes resolved[id] for every Ref-rooted node reachable from
// a process root, via a memoized DFS that chases Ref->Ref chains to their
// first non-Ref target. Re-entering a node already on the current DFS stack
// is a cyclic unguarded reference (nothing consumed an event before looping
// back), reported as COMP001.
func (c *compiler) resolveAll() error {
	const (
		white = iota
		gray
		black
	)
	color := make(map[ExprId]int)

	var visit func(id ExprId) (ExprId, error)
	visit = func(id ExprId) (ExprId, error) {
		if r, ok := c.prog.resolved[id]; ok {
			return r, nil
		}
		node := c.prog.Arena[id]
		if node.Kind != OpRef {
			c.prog.resolved[id] = id
			return id, nil
		}
		switch color[id] {
		case gray:
			return 0, errors.Wrap(errors.New(errors.InvalidInput, errors.COMP001, "compile",
				fmt.Sprintf("cyclic unguarded reference through process %q", c.prog.ProcName[node.ProcID]), nil))
		case black:
			return c.prog.resolved[id], nil
		}
		color[id] = gray
		target, ok := c.prog.ProcRoot[node.ProcID]
		if !ok {
			return 0, errors.Wrap(errors.Internal("compile", fmt.Errorf("missing process root for procId %d", node.ProcID)))
		}
		res, err := visit(target)
		if err != nil {
			return 0, err
		}
		color[id] = black
		c.prog.resolved[id] = res
		return res, nil
	}

	for i := 0; i < len(c.prog.Arena); i++ {
		if _, err := visit(ExprId(i)); err != nil {
			return err
		}
	}
	return nil
}

// Resolved chases id through any Ref chain to its first non-Ref node.
func (p *Program) Resolved(id ExprId) ExprId {
	if r, ok := p.resolved[id]; ok {
		return r
	}
	return id
}

// Node returns the (already Ref-resolved) operator node for id.
func (p *Program) Node(id ExprId) OpNode {
	return p.Arena[p.Resolved(id)]
}
