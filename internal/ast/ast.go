// Package ast defines source positions and the surface syntax tree produced
// by the parser, before typechecking resolves channels and references.
package ast

import "fmt"

// Pos is a 1-based source position.
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Span is an inclusive range between two positions, attached to every node
// and to diagnostics.
type Span struct {
	Start Pos
	End   Pos
}

func (s Span) String() string {
	return fmt.Sprintf("%s-%d:%d", s.Start, s.End.Line, s.End.Column)
}

// Domain is a channel's payload domain.
type Domain interface{ domain() }

// UnitDomain means the channel carries no payload.
type UnitDomain struct{}

func (UnitDomain) domain() {}

// IntRangeDomain means the channel carries an integer in [Min, Max].
type IntRangeDomain struct {
	Min, Max int
}

func (IntRangeDomain) domain() {}

// NamedDomain is a named-type channel payload; recognized lexically but
// unsupported by the typechecker.
type NamedDomain struct {
	Name string
}

func (NamedDomain) domain() {}

// ChannelDecl declares one or more channel names sharing a domain.
type ChannelDecl struct {
	Names  []string
	Domain Domain // nil means UnitDomain
	Span   Span
}

// ProcessDecl is a top-level process definition `Name = Expr`.
type ProcessDecl struct {
	Name string
	Body Expr
	Span Span
}

// DatatypeDecl records a lexically recognized but unsupported `datatype`
// declaration.
type DatatypeDecl struct {
	Span Span
}

// PropertyKind enumerates the property-check kinds.
type PropertyKind int

const (
	DeadlockFree PropertyKind = iota
	DivergenceFree
	Deterministic
)

func (k PropertyKind) String() string {
	switch k {
	case DeadlockFree:
		return "deadlock free"
	case DivergenceFree:
		return "divergence free"
	case Deterministic:
		return "deterministic"
	default:
		return "unknown"
	}
}

// Model is the refinement/property model (stable-failures grade).
type Model int

const (
	ModelT Model = iota
	ModelF
	ModelFD
)

func (m Model) String() string {
	switch m {
	case ModelT:
		return "T"
	case ModelF:
		return "F"
	case ModelFD:
		return "FD"
	default:
		return "?"
	}
}

// Assertion is either a Property or a Refinement assertion.
type Assertion interface {
	assertion()
	SpanOf() Span
}

// PropertyAssertion asserts a structural property of Target under Model.
type PropertyAssertion struct {
	Target string
	Kind   PropertyKind
	Model  Model
	Span   Span
}

func (PropertyAssertion) assertion()     {}
func (a PropertyAssertion) SpanOf() Span { return a.Span }

// RefinementAssertion asserts Spec refines(Op) Impl.
type RefinementAssertion struct {
	Spec string
	Op   Model
	Impl string
	Span Span
}

func (RefinementAssertion) assertion()     {}
func (a RefinementAssertion) SpanOf() Span { return a.Span }

// File is the parsed, pre-typecheck surface syntax of a source file.
type File struct {
	Path       string
	Channels   []ChannelDecl
	Datatypes  []DatatypeDecl
	Decls      []ProcessDecl
	Assertions []Assertion
	// Orphans are top-level expressions not bound to a name. At most one is
	// permitted; more than one is an InvalidInput error.
	Orphans []Expr
}

// EventSegmentKind distinguishes the three payload-segment forms.
type EventSegmentKind int

const (
	SegDot EventSegmentKind = iota // c.v      fully specified
	SegOut                        // c!v or c!x
	SegIn                         // c?v or c?x
)

// EventSegment is the optional payload segment of an event.
type EventSegment struct {
	Kind EventSegmentKind
	// Exactly one of Lit/Name is meaningful, depending on whether the
	// surface token was an integer literal or an identifier.
	IsLit bool
	Lit   int
	Name  string
	Span  Span
}

// Event is `channel` or `channel.segment` / `channel!segment` / `channel?segment`.
type Event struct {
	Channel string
	Segment *EventSegment // nil => Unit event
	Span    Span
}

// Expr is a tagged-variant process expression.
type Expr interface {
	expr()
	SpanOf() Span
}

type StopExpr struct{ Span Span }

func (StopExpr) expr()          {}
func (e StopExpr) SpanOf() Span { return e.Span }

type RefExpr struct {
	Name string
	Span Span
}

func (RefExpr) expr()          {}
func (e RefExpr) SpanOf() Span { return e.Span }

type PrefixExpr struct {
	Event Event
	Next  Expr
	Span  Span
}

func (PrefixExpr) expr()          {}
func (e PrefixExpr) SpanOf() Span { return e.Span }

type ChoiceKind int

const (
	External ChoiceKind = iota
	Internal
)

type ChoiceExpr struct {
	Kind        ChoiceKind
	Left, Right Expr
	Span        Span
}

func (ChoiceExpr) expr()          {}
func (e ChoiceExpr) SpanOf() Span { return e.Span }

type ParallelKind int

const (
	Interleaving ParallelKind = iota
	Interface
)

type ParallelExpr struct {
	Kind ParallelKind
	Left, Right Expr
	// Sync holds the synchronization alphabet for Interface parallel;
	// nil/empty for Interleaving.
	Sync []string
	Span Span
}

func (ParallelExpr) expr()          {}
func (e ParallelExpr) SpanOf() Span { return e.Span }

type HideExpr struct {
	Inner Expr
	Hide  []string
	Span  Span
}

func (HideExpr) expr()          {}
func (e HideExpr) SpanOf() Span { return e.Span }
