package result

import "github.com/cspx/cspx/internal/schema"

// Tool identifies the verifier binary that produced a Result document.
type Tool struct {
	Name   string `json:"name"`
	Version string `json:"version"`
	GitSHA string `json:"git_sha"`
}

// Invocation records the CLI arguments that produced this run, for
// reproducibility.
type Invocation struct {
	Command       string   `json:"command"`
	Args          []string `json:"args"`
	Format        string   `json:"format"`
	TimeoutMs     int      `json:"timeout_ms,omitempty"`
	MemoryMB      int      `json:"memory_mb,omitempty"`
	Parallel      int      `json:"parallel"`
	Deterministic bool     `json:"deterministic"`
	Seed          *uint64  `json:"seed,omitempty"`
}

// Input is one input file's path and content hash.
type Input struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// Parallelism reports the explorer's concurrency configuration.
type Parallelism struct {
	Threads       int    `json:"threads"`
	Deterministic bool   `json:"deterministic"`
	Seed          *uint64 `json:"seed,omitempty"`
}

// Metrics carries optional run-wide counters.
type Metrics struct {
	States      *int         `json:"states,omitempty"`
	Transitions *int         `json:"transitions,omitempty"`
	WallTimeMs  int64        `json:"wall_time_ms"`
	Parallelism *Parallelism `json:"parallelism,omitempty"`
}

// Document is the schema v0.1 Result JSON document.
type Document struct {
	SchemaVersion string        `json:"schema_version"`
	Tool          Tool          `json:"tool"`
	Invocation    Invocation    `json:"invocation"`
	Inputs        []Input       `json:"inputs"`
	Status        Status        `json:"status"`
	ExitCode      int           `json:"exit_code"`
	StartedAt     string        `json:"started_at"`
	FinishedAt    string        `json:"finished_at"`
	DurationMs    int64         `json:"duration_ms"`
	Checks        []CheckResult `json:"checks"`
	Metrics       *Metrics      `json:"metrics,omitempty"`
}

// NewDocument aggregates checks' statuses and derives the exit code.
func NewDocument(tool Tool, inv Invocation, inputs []Input, checks []CheckResult) *Document {
	status := Aggregate(checks)
	return &Document{
		SchemaVersion: schema.ResultV1,
		Tool:          tool,
		Invocation:    inv,
		Inputs:        inputs,
		Status:        status,
		ExitCode:      ExitCode(status),
		Checks:        checks,
	}
}

// ToJSON deterministically marshals the document (sorted object keys),
// then formats it per schema.CompactMode (compact for CI pipes, indented
// for interactive --format json by default).
func (d *Document) ToJSON() ([]byte, error) {
	data, err := schema.MarshalDeterministic(d)
	if err != nil {
		return nil, err
	}
	return schema.FormatJSON(data)
}

// Summary is the compressed CI-facing digest (camelCase per spec.md §6).
type Summary struct {
	SchemaVersion string  `json:"schemaVersion"`
	Tool          string  `json:"tool"`
	File          string  `json:"file"`
	Backend       string  `json:"backend"`
	DetailsFile   string  `json:"detailsFile,omitempty"`
	ResultStatus  string  `json:"resultStatus,omitempty"`
	Ran           bool    `json:"ran"`
	Status        Status  `json:"status"`
	ExitCode      int     `json:"exitCode"`
	Timestamp     string  `json:"timestamp"`
	Output        string  `json:"output"`
}

func NewSummary(tool, file, backend string, d *Document, output string) *Summary {
	return &Summary{
		SchemaVersion: schema.SummaryV1,
		Tool:          tool,
		File:          file,
		Backend:       backend,
		Ran:           d != nil,
		Status:        statusOrDefault(d),
		ExitCode:      exitCodeOrDefault(d),
		Output:        output,
	}
}

func statusOrDefault(d *Document) Status {
	if d == nil {
		return Error
	}
	return d.Status
}

func exitCodeOrDefault(d *Document) int {
	if d == nil {
		return ExitCode(Error)
	}
	return d.ExitCode
}

func (s *Summary) ToJSON() ([]byte, error) {
	data, err := schema.MarshalDeterministic(s)
	if err != nil {
		return nil, err
	}
	return schema.FormatJSON(data)
}
