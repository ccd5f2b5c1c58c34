package parser

import (
	"fmt"
	"sort"

	"github.com/cspx/cspx/internal/ast"
	"github.com/cspx/cspx/internal/errors"
	"github.com/cspx/cspx/internal/ir"
)

// Typecheck validates a parsed ast.File and lowers it to an ir.Module.
// Errors are accumulated and returned alongside whatever partial Module
// could be built; callers should treat a non-empty error slice as failure
// regardless of whether a Module was returned.
func Typecheck(file *ast.File) (*ir.Module, []*errors.Report) {
	tc := &typechecker{file: file, channels: map[string]ir.ChannelInfo{}, procIdx: map[string]int{}}
	return tc.run()
}

type typechecker struct {
	file     *ast.File
	errs     []*errors.Report
	channels map[string]ir.ChannelInfo
	procIdx  map[string]int
}

func (t *typechecker) errorf(kind errors.Kind, code string, span ast.Span, format string, args ...any) {
	t.errs = append(t.errs, errors.New(kind, code, "typecheck", fmt.Sprintf(format, args...), &span))
}

func (t *typechecker) run() (*ir.Module, []*errors.Report) {
	m := &ir.Module{ChannelInfo: map[string]ir.ChannelInfo{}, DeclIndex: map[string]int{}}

	// (i) Channel declarations: unique names, domain validity.
	seenChan := map[string]bool{}
	for _, cd := range t.file.Channels {
		var domain ir.Domain = ir.UnitDomain{}
		switch d := cd.Domain.(type) {
		case nil:
			domain = ir.UnitDomain{}
		case ast.UnitDomain:
			domain = ir.UnitDomain{}
		case ast.IntRangeDomain:
			if d.Min > d.Max {
				t.errorf(errors.InvalidInput, errors.TYP002, cd.Span, "channel domain {%d..%d} has min > max", d.Min, d.Max)
				continue
			}
			domain = ir.IntRangeDomain{Min: d.Min, Max: d.Max}
		case ast.NamedDomain:
			t.errorf(errors.UnsupportedSyntax, errors.PAR008, cd.Span, "named-type channel domain %q is unsupported", d.Name)
			continue
		}
		for _, name := range cd.Names {
			if seenChan[name] {
				t.errorf(errors.InvalidInput, errors.TYP001, cd.Span, "duplicate channel name %q", name)
				continue
			}
			seenChan[name] = true
			t.channels[name] = ir.ChannelInfo{Name: name, Domain: domain}
		}
		m.Channels = append(m.Channels, ir.ChannelDecl{Names: cd.Names, Domain: domain, Span: cd.Span})
	}
	m.ChannelInfo = t.channels

	for _, dt := range t.file.Datatypes {
		t.errorf(errors.UnsupportedSyntax, errors.PAR007, dt.Span, "datatype declarations are unsupported")
	}

	// (ii) Process names unique.
	seenProc := map[string]bool{}
	for _, decl := range t.file.Decls {
		if seenProc[decl.Name] {
			t.errorf(errors.InvalidInput, errors.TYP003, decl.Span, "duplicate process declaration %q", decl.Name)
			continue
		}
		seenProc[decl.Name] = true
		t.procIdx[decl.Name] = len(m.Declarations)
		m.DeclIndex[decl.Name] = len(m.Declarations)
		m.Declarations = append(m.Declarations, ir.ProcessDecl{Name: decl.Name, Span: decl.Span})
	}

	// Lower bodies now that every name is known (so forward references
	// resolve), checking (iii) and (iv) along the way.
	for i, decl := range t.file.Decls {
		if _, ok := seenProc2(m, decl.Name, i); !ok {
			continue
		}
		body := t.lowerExpr(decl.Body, map[string]ir.Domain{})
		m.Declarations[t.procIdx[decl.Name]].Body = body
	}

	if len(t.file.Orphans) >= 1 {
		m.Entry = t.lowerExpr(t.file.Orphans[0], map[string]ir.Domain{})
	}

	// (v) Assertion targets must be declared processes.
	for _, a := range t.file.Assertions {
		switch av := a.(type) {
		case ast.PropertyAssertion:
			if !seenProc[av.Target] {
				t.errorf(errors.InvalidInput, errors.TYP007, av.Span, "assertion target %q is not a declared process", av.Target)
				continue
			}
			m.Assertions = append(m.Assertions, ir.PropertyAssertion{Target: av.Target, Kind: av.Kind, Model: av.Model, Span: av.Span})
		case ast.RefinementAssertion:
			ok := true
			if !seenProc[av.Spec] {
				t.errorf(errors.InvalidInput, errors.TYP007, av.Span, "refinement spec %q is not a declared process", av.Spec)
				ok = false
			}
			if !seenProc[av.Impl] {
				t.errorf(errors.InvalidInput, errors.TYP007, av.Span, "refinement impl %q is not a declared process", av.Impl)
				ok = false
			}
			if ok {
				m.Assertions = append(m.Assertions, ir.RefinementAssertion{Spec: av.Spec, Op: av.Op, Impl: av.Impl, Span: av.Span})
			}
		}
	}

	if len(t.errs) > 0 {
		return m, t.errs
	}
	return m, nil
}

// seenProc2 is a tiny helper so duplicate-name declarations (already
// reported above) don't get lowered twice under the same index.
func seenProc2(m *ir.Module, name string, _ int) (int, bool) {
	idx, ok := m.DeclIndex[name]
	return idx, ok
}

// lowerExpr lowers a surface ast.Expr to an ir.ProcessExpr, validating
// channel references, Ref resolution, and event/domain compatibility. env
// tracks variable bindings in scope (from enclosing In(bind) segments),
// each mapped to the domain of the channel that introduced it.
func (t *typechecker) lowerExpr(e ast.Expr, env map[string]ir.Domain) ir.ProcessExpr {
	switch n := e.(type) {
	case ast.StopExpr:
		return ir.StopExpr{Span: n.Span}
	case ast.RefExpr:
		if _, ok := t.procIdx[n.Name]; !ok {
			t.errorf(errors.InvalidInput, errors.TYP004, n.Span, "undefined process reference %q", n.Name)
		}
		return ir.RefExpr{Name: n.Name, Span: n.Span}
	case ast.PrefixExpr:
		event, nextEnv := t.checkEvent(n.Event, env)
		next := t.lowerExpr(n.Next, nextEnv)
		return ir.PrefixExpr{Event: event, Next: next, Span: n.Span}
	case ast.ChoiceExpr:
		l := t.lowerExpr(n.Left, env)
		r := t.lowerExpr(n.Right, env)
		return ir.ChoiceExpr{Kind: n.Kind, Left: l, Right: r, Span: n.Span}
	case ast.ParallelExpr:
		l := t.lowerExpr(n.Left, env)
		r := t.lowerExpr(n.Right, env)
		sync := append([]string(nil), n.Sync...)
		sort.Strings(sync)
		return ir.ParallelExpr{Kind: n.Kind, Left: l, Right: r, Sync: sync, Span: n.Span}
	case ast.HideExpr:
		inner := t.lowerExpr(n.Inner, env)
		hide := append([]string(nil), n.Hide...)
		sort.Strings(hide)
		return ir.HideExpr{Inner: inner, Hide: hide, Span: n.Span}
	default:
		t.errorf(errors.InternalError, errors.INV001, ast.Span{}, "unhandled surface expr %T", e)
		return ir.StopExpr{}
	}
}

// checkEvent validates an event against its channel's declared domain and
// returns the lowered ir.Event plus the environment visible to the
// continuation (extended by a fresh In(bind) binding, if any).
func (t *typechecker) checkEvent(ev ast.Event, env map[string]ir.Domain) (ir.Event, map[string]ir.Domain) {
	info, known := t.channels[ev.Channel]
	if !known {
		t.errorf(errors.InvalidInput, errors.TYP004, ev.Span, "undefined channel %q", ev.Channel)
		return ir.Event{Channel: ev.Channel}, env
	}

	switch d := info.Domain.(type) {
	case ir.UnitDomain:
		if ev.Segment != nil {
			t.errorf(errors.InvalidInput, errors.TYP005, ev.Span, "channel %q carries no payload but was given a segment", ev.Channel)
		}
		return ir.Event{Channel: ev.Channel}, env
	case ir.IntRangeDomain:
		if ev.Segment == nil {
			t.errorf(errors.InvalidInput, errors.TYP005, ev.Span, "channel %q requires a payload segment", ev.Channel)
			return ir.Event{Channel: ev.Channel}, env
		}
		seg := ev.Segment
		switch seg.Kind {
		case ast.SegDot, ast.SegIn:
			if seg.IsLit {
				if seg.Lit < d.Min || seg.Lit > d.Max {
					t.errorf(errors.InvalidInput, errors.TYP005, seg.Span, "literal %d out of domain [%d..%d] for channel %q", seg.Lit, d.Min, d.Max, ev.Channel)
				}
				return ir.Event{Channel: ev.Channel, Segment: &ir.EventSegment{Kind: ir.EventSegmentKind(seg.Kind), IsLit: true, Lit: seg.Lit}}, env
			}
			if seg.Kind == ast.SegDot {
				// Dot with a bare name only makes sense as a literal in
				// this subset; treat an identifier after '.' as invalid.
				t.errorf(errors.InvalidInput, errors.TYP005, seg.Span, "expected integer literal after '.', found %q", seg.Name)
				return ir.Event{Channel: ev.Channel}, env
			}
			// In(bind): fresh binding, shadowing forbidden.
			if _, shadow := env[seg.Name]; shadow {
				t.errorf(errors.InvalidInput, errors.TYP006, seg.Span, "binding %q shadows an already-bound name", seg.Name)
			}
			nextEnv := cloneEnv(env)
			nextEnv[seg.Name] = d
			return ir.Event{Channel: ev.Channel, Segment: &ir.EventSegment{Kind: ir.EventSegmentKind(seg.Kind), Name: seg.Name}}, nextEnv
		case ast.SegOut:
			if seg.IsLit {
				if seg.Lit < d.Min || seg.Lit > d.Max {
					t.errorf(errors.InvalidInput, errors.TYP005, seg.Span, "literal %d out of domain [%d..%d] for channel %q", seg.Lit, d.Min, d.Max, ev.Channel)
				}
				return ir.Event{Channel: ev.Channel, Segment: &ir.EventSegment{Kind: ir.EventSegmentKind(seg.Kind), IsLit: true, Lit: seg.Lit}}, env
			}
			bound, ok := env[seg.Name]
			if !ok {
				t.errorf(errors.InvalidInput, errors.TYP005, seg.Span, "variable %q is not bound in the enclosing scope", seg.Name)
				return ir.Event{Channel: ev.Channel}, env
			}
			if !sameDomain(bound, d) {
				t.errorf(errors.InvalidInput, errors.TYP005, seg.Span, "variable %q domain does not match channel %q", seg.Name, ev.Channel)
			}
			return ir.Event{Channel: ev.Channel, Segment: &ir.EventSegment{Kind: ir.EventSegmentKind(seg.Kind), Name: seg.Name}}, env
		}
	}
	return ir.Event{Channel: ev.Channel}, env
}

func sameDomain(a, b ir.Domain) bool {
	ar, aok := a.(ir.IntRangeDomain)
	br, bok := b.(ir.IntRangeDomain)
	if aok && bok {
		return ar.Min == br.Min && ar.Max == br.Max
	}
	_, aUnit := a.(ir.UnitDomain)
	_, bUnit := b.(ir.UnitDomain)
	return aUnit && bUnit
}

func cloneEnv(env map[string]ir.Domain) map[string]ir.Domain {
	out := make(map[string]ir.Domain, len(env)+1)
	for k, v := range env {
		out[k] = v
	}
	return out
}
