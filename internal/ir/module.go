// Package ir defines the compiled, typechecked program: the Module (channel
// declarations, process declarations, assertions, optional entry), the
// tagged-variant ProcessExpr tree, and the interned operator arena the LTS
// provider walks.
package ir

import "github.com/cspx/cspx/internal/ast"

// Domain mirrors ast.Domain after typecheck; named-type domains never reach
// here (they are rejected as UnsupportedSyntax during typecheck).
type Domain interface{ domain() }

type UnitDomain struct{}

func (UnitDomain) domain() {}

type IntRangeDomain struct{ Min, Max int }

func (IntRangeDomain) domain() {}

// ChannelDecl is a validated channel declaration.
type ChannelDecl struct {
	Names  []string
	Domain Domain
	Span   ast.Span
}

// ChannelInfo resolves one channel name to its owning declaration's domain.
type ChannelInfo struct {
	Name   string
	Domain Domain
}

// ProcessDecl is a validated process declaration.
type ProcessDecl struct {
	Name string
	Body ProcessExpr
	Span ast.Span
}

// PropertyAssertion and RefinementAssertion mirror their ast counterparts
// after target-existence validation.
type PropertyAssertion struct {
	Target string
	Kind   ast.PropertyKind
	Model  ast.Model
	Span   ast.Span
}

type RefinementAssertion struct {
	Spec string
	Op   ast.Model
	Impl string
	Span ast.Span
}

// Assertion is either a PropertyAssertion or a RefinementAssertion.
type Assertion interface{ assertion() }

func (PropertyAssertion) assertion()   {}
func (RefinementAssertion) assertion() {}

// Module is the compiled program: the unit the LTS provider and checkers
// operate over.
type Module struct {
	Channels    []ChannelDecl
	ChannelInfo map[string]ChannelInfo
	Declarations []ProcessDecl
	DeclIndex   map[string]int // name -> index into Declarations
	Assertions  []Assertion
	// Entry is the top-level process expression, if any. An initial state
	// exists iff Entry is set, or exactly one declaration exists (in which
	// case its Body is used as Entry by the caller).
	Entry ProcessExpr
}

// EntryExpr returns the module's entry expression per the spec's rule:
// Entry if set, else the sole declaration's body if exactly one exists.
func (m *Module) EntryExpr() (ProcessExpr, bool) {
	if m.Entry != nil {
		return m.Entry, true
	}
	if len(m.Declarations) == 1 {
		return m.Declarations[0].Body, true
	}
	return nil, false
}

// ProcessExpr is the typed, tagged-variant process expression tree.
type ProcessExpr interface {
	procExpr()
	SpanOf() ast.Span
}

type StopExpr struct{ Span ast.Span }

func (StopExpr) procExpr()          {}
func (e StopExpr) SpanOf() ast.Span { return e.Span }

type RefExpr struct {
	Name string
	Span ast.Span
}

func (RefExpr) procExpr()          {}
func (e RefExpr) SpanOf() ast.Span { return e.Span }

// EventSegmentKind mirrors ast.EventSegmentKind.
type EventSegmentKind = ast.EventSegmentKind

const (
	SegDot = ast.SegDot
	SegOut = ast.SegOut
	SegIn  = ast.SegIn
)

type EventSegment struct {
	Kind  EventSegmentKind
	IsLit bool
	Lit   int
	Name  string
}

type Event struct {
	Channel string
	Segment *EventSegment
}

type PrefixExpr struct {
	Event Event
	Next  ProcessExpr
	Span  ast.Span
}

func (PrefixExpr) procExpr()          {}
func (e PrefixExpr) SpanOf() ast.Span { return e.Span }

type ChoiceKind = ast.ChoiceKind

const (
	External = ast.External
	Internal = ast.Internal
)

type ChoiceExpr struct {
	Kind        ChoiceKind
	Left, Right ProcessExpr
	Span        ast.Span
}

func (ChoiceExpr) procExpr()          {}
func (e ChoiceExpr) SpanOf() ast.Span { return e.Span }

type ParallelKind = ast.ParallelKind

const (
	Interleaving = ast.Interleaving
	Interface    = ast.Interface
)

type ParallelExpr struct {
	Kind        ParallelKind
	Left, Right ProcessExpr
	Sync        []string // sorted, only meaningful for Interface
	Span        ast.Span
}

func (ParallelExpr) procExpr()          {}
func (e ParallelExpr) SpanOf() ast.Span { return e.Span }

type HideExpr struct {
	Inner ProcessExpr
	Hide  []string // sorted
	Span  ast.Span
}

func (HideExpr) procExpr()          {}
func (e HideExpr) SpanOf() ast.Span { return e.Span }
