package check

import (
	"fmt"

	"github.com/cspx/cspx/internal/ast"
	"github.com/cspx/cspx/internal/errors"
	"github.com/cspx/cspx/internal/ir"
)

// ResolveEntry implements the preparation step for a property check: the
// module has an entry or exactly one declaration; otherwise, if some
// Property assertion of the matching kind exists, the last such assertion's
// target supplies the entry. Refinement does not use it; cmd/cspx applies
// only the entry-or-single-declaration rule to each refinement input.
//
// Open question (spec.md §9): when the same target has multiple property
// assertions of the same kind, "the last one" is used, matching the spec's
// literal wording; whether all matching assertions should instead be
// evaluated under --all-assertions is left to the caller (internal/check's
// per-assertion callers already iterate every assertion directly and only
// fall into this synthesis path when no entry exists at all).
func ResolveEntry(m *ir.Module, kind ast.PropertyKind) (ir.ProcessExpr, string, *errors.Report) {
	if entry, ok := m.EntryExpr(); ok {
		name := ""
		if m.Entry == nil && len(m.Declarations) == 1 {
			name = m.Declarations[0].Name
		}
		return entry, name, nil
	}

	var lastTarget string
	found := false
	var available []string
	for _, a := range m.Assertions {
		pa, ok := a.(ir.PropertyAssertion)
		if !ok {
			continue
		}
		available = append(available, fmt.Sprintf("%s :[%s]", pa.Target, pa.Kind))
		if pa.Kind == kind {
			lastTarget = pa.Target
			found = true
		}
	}
	if found {
		idx := m.DeclIndex[lastTarget]
		return m.Declarations[idx].Body, lastTarget, nil
	}

	rep := errors.New(errors.InvalidInput, errors.TYP008, "check",
		"no entry process and no matching property assertion to synthesize one from", nil)
	rep.WithData(map[string]any{"available_assertions": available})
	return nil, "", rep
}
