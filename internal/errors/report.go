package errors

import (
	"errors"

	"github.com/cspx/cspx/internal/ast"
	"github.com/cspx/cspx/internal/schema"
)

// Fix is a suggested remediation attached to a Report.
type Fix struct {
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

// Report is the canonical structured diagnostic. Every phase of the
// verifier (lexer, parser, typechecker, compiler, store, explorer,
// refinement engine) builds and returns *Report values on failure rather
// than bare strings, so a caller can inspect Kind/Code/Span programmatically.
type Report struct {
	Schema  string         `json:"schema"`         // always SchemaErrorV1
	Kind    Kind           `json:"kind"`           // six-member taxonomy
	Code    string         `json:"code"`           // stable code, e.g. "TYP004"
	Phase   string         `json:"phase"`          // "lexer", "parser", "typecheck", ...
	Message string         `json:"message"`        // human-readable message
	Span    *ast.Span      `json:"span,omitempty"` // source location
	Data    map[string]any `json:"data,omitempty"` // structured extras, sorted on encode
	Fix     *Fix           `json:"fix,omitempty"`
}

// SchemaErrorV1 is the schema tag stamped onto every Report.
const SchemaErrorV1 = schema.ErrorV1

// ReportError wraps a Report as a Go error so it survives errors.As
// unwrapping through ordinary error-handling code.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return string(e.Rep.Kind) + " " + e.Rep.Code + ": " + e.Rep.Message
}

// AsReport extracts a *Report from an error chain, if present.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// Wrap wraps a Report as an error.
func Wrap(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// ToJSON renders the Report as deterministic (sorted-key) JSON, formatted
// per the compact flag, the same schema.MarshalDeterministic +
// schema.FormatJSON pipeline Document/Summary use.
func (r *Report) ToJSON(compact bool) (string, error) {
	schema.SetCompactMode(compact)
	data, err := schema.MarshalDeterministic(r)
	if err != nil {
		return "", err
	}
	data, err = schema.FormatJSON(data)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// New builds a Report with the given kind/code/phase/message, optionally
// pointing at a source span.
func New(kind Kind, code, phase, message string, span *ast.Span) *Report {
	return &Report{
		Schema:  SchemaErrorV1,
		Kind:    kind,
		Code:    code,
		Phase:   phase,
		Message: message,
		Span:    span,
	}
}

// WithData attaches structured extras and returns the same Report for
// chaining at a call site.
func (r *Report) WithData(data map[string]any) *Report {
	r.Data = data
	return r
}

// Internal builds an InternalError Report for invariant violations.
func Internal(phase string, err error) *Report {
	return &Report{
		Schema:  SchemaErrorV1,
		Kind:    InternalError,
		Code:    INV001,
		Phase:   phase,
		Message: err.Error(),
	}
}
