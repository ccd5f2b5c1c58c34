// Package errors provides the structured diagnostic type shared by every
// phase of the verifier, and the stable error code taxonomy.
package errors

// Kind is the six-member error taxonomy from the error handling design.
type Kind string

const (
	// NotImplemented is a recognized but unsupported query or model.
	NotImplemented Kind = "not_implemented"
	// UnsupportedSyntax is parsed but the core refuses to compile it.
	UnsupportedSyntax Kind = "unsupported_syntax"
	// InvalidInput covers syntax errors, type/domain violations, missing
	// entry process, undefined reference, unknown assertion target.
	InvalidInput Kind = "invalid_input"
	// InternalError is an invariant violation.
	InternalError Kind = "internal_error"
	// Timeout is reserved for the external harness.
	Timeout Kind = "timeout"
	// OutOfMemory is reserved for the external harness.
	OutOfMemory Kind = "out_of_memory"
)

// Error code constants, organized by phase. Each constant names a specific
// diagnostic condition, referenced from report-builders in the owning
// package rather than spelled out ad hoc at call sites.
const (
	// ============================================================
	// Lexer errors (LEX###)
	// ============================================================

	// LEX001 indicates an illegal character was encountered.
	LEX001 = "LEX001"
	// LEX002 indicates an unterminated token (e.g. a malformed operator).
	LEX002 = "LEX002"

	// ============================================================
	// Parser errors (PAR###)
	// ============================================================

	// PAR001 indicates an unexpected token.
	PAR001 = "PAR001"
	// PAR002 indicates a missing closing delimiter.
	PAR002 = "PAR002"
	// PAR003 indicates invalid channel declaration syntax.
	PAR003 = "PAR003"
	// PAR004 indicates invalid process declaration syntax.
	PAR004 = "PAR004"
	// PAR005 indicates invalid assertion syntax.
	PAR005 = "PAR005"
	// PAR006 indicates more than one top-level orphan expression.
	PAR006 = "PAR006"
	// PAR007 indicates a `datatype` declaration (lexically recognized,
	// never compiled).
	PAR007 = "PAR007"
	// PAR008 indicates a named-type channel domain (lexically recognized,
	// never compiled).
	PAR008 = "PAR008"

	// ============================================================
	// Typecheck errors (TYP###)
	// ============================================================

	// TYP001 indicates a duplicate channel name.
	TYP001 = "TYP001"
	// TYP002 indicates an IntRange domain with min > max.
	TYP002 = "TYP002"
	// TYP003 indicates a duplicate process declaration name.
	TYP003 = "TYP003"
	// TYP004 indicates a reference to an undeclared process or channel.
	TYP004 = "TYP004"
	// TYP005 indicates an event segment mismatched against its channel's
	// domain (Unit channel given a segment, IntRange channel missing one,
	// literal out of range, unbound variable reference).
	TYP005 = "TYP005"
	// TYP006 indicates a variable binding that shadows an already-bound
	// name in the same event scope.
	TYP006 = "TYP006"
	// TYP007 indicates an assertion target that is not a declared process.
	TYP007 = "TYP007"
	// TYP008 indicates neither an entry process nor exactly one
	// declaration exists, and no matching property assertion to
	// synthesize one from.
	TYP008 = "TYP008"

	// ============================================================
	// Compiler / LTS errors (COMP###)
	// ============================================================

	// COMP001 indicates a cyclic unguarded process reference.
	COMP001 = "COMP001"

	// ============================================================
	// Store errors (STORE###)
	// ============================================================

	// STORE001 indicates a disk store lock could not be acquired.
	STORE001 = "STORE001"
	// STORE002 indicates a corrupt or unreadable index side-car.
	STORE002 = "STORE002"
	// STORE003 indicates a log record that fails to decode.
	STORE003 = "STORE003"
	// STORE004 indicates a path collision opening a hybrid store's spill
	// target.
	STORE004 = "STORE004"

	// ============================================================
	// Invariant violations (INV###)
	// ============================================================

	// INV001 marks an internal invariant violation (should never surface
	// to a user; indicates a bug in the verifier itself).
	INV001 = "INV001"

	// ============================================================
	// CLI errors (CLI###)
	// ============================================================

	// CLI001 indicates a missing or malformed command-line argument.
	CLI001 = "CLI001"
	// CLI002 indicates an unrecognized --assert text.
	CLI002 = "CLI002"
	// CLI003 indicates --deterministic was given without --seed.
	CLI003 = "CLI003"
)
