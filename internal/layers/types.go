// Package layers defines the uniform Layer contract and the concrete
// numbered transformation stages that implement it,
// including the cross-session Adaptive Layer (id 7).
package layers

import (
	"context"

	"neurolint/internal/source"
)

// ID identifies a layer. Ordering is total and meaningful: later layers
// may depend on earlier layers' accepted output within a single run.
type ID int

const (
	IDConfig             ID = 1
	IDPatternFix         ID = 2
	IDComponentHygiene   ID = 3
	IDSSRHydrationGuard  ID = 4
	IDFrameworkMigration ID = 5
	IDTestScaffolding    ID = 6
	IDAdaptive           ID = 7
	IDSignatureScanner   ID = 8
)

// Severity grades a Finding produced by a read-only scanner layer.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns a total order over severities for max-aggregation.
func (s Severity) Rank() int { return severityRank[s] }

// Finding is a non-mutating observation produced by a scanner layer.
type Finding struct {
	SignatureID string
	Name        string
	Category    string
	Severity    Severity
	File        string
	Line        int
	Column      int
	Snippet     string
	Remediation string
}

// DiagnosticKind classifies a Diagnostic emitted alongside a LayerResult.
type DiagnosticKind string

const (
	DiagNoop             DiagnosticKind = "noop"
	DiagAccepted         DiagnosticKind = "accepted"
	DiagFallbackAccepted DiagnosticKind = "fallback_accepted"
	DiagRejected         DiagnosticKind = "rejected"
	DiagRuleApplied      DiagnosticKind = "rule_applied"
)

// Diagnostic is a human-readable annotation attached to a LayerResult,
// distinct from a Finding (which is scanner output, not a pipeline note).
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
}

// Result is the single tagged variant every layer invocation produces,
// whether it mutated code, merely observed (scanner), or did nothing.
type Result struct {
	LayerID      ID
	Success      bool
	ChangeCount  int
	OriginalCode []byte
	Code         []byte
	Findings     []Finding
	Diagnostics  []Diagnostic
	Error        error
}

// Changed reports whether Code differs from OriginalCode.
func (r Result) Changed() bool {
	return string(r.Code) != string(r.OriginalCode)
}

// PriorResultsView is a read-only view of this run's earlier LayerResults
// for the current file, threaded through Context instead of letting
// layers stash fields on one another.
type PriorResultsView struct {
	results []Result
}

// NewPriorResultsView wraps a slice of prior results for read-only access.
func NewPriorResultsView(results []Result) PriorResultsView {
	return PriorResultsView{results: append([]Result(nil), results...)}
}

// For returns the prior result for layerID, if this file already passed
// through it in this run.
func (v PriorResultsView) For(layerID ID) (Result, bool) {
	for _, r := range v.results {
		if r.LayerID == layerID {
			return r, true
		}
	}
	return Result{}, false
}

// All returns every prior result, in run order.
func (v PriorResultsView) All() []Result {
	return v.results
}

// Context carries per-invocation, read-only state into a layer.
type Context struct {
	ProjectRoot string
	FilePath    string
	Language    source.Language
	Verbose     bool
	DryRun      bool
	Prior       PriorResultsView
	// Options holds layer-specific recognized options (e.g. the scanner's
	// mode/fail_on/include/exclude), keyed by layer-defined names.
	Options map[string]any
}

// Transformer is the function signature shared by transform and
// regex_fallback: both take the same (source, context) shape.
type Transformer func(ctx context.Context, content []byte, lctx Context) (Result, error)

// Layer is the uniform contract every numbered stage implements.
type Layer interface {
	ID() ID
	Name() string
	Transform(ctx context.Context, content []byte, lctx Context) (Result, error)
	// RegexFallback is nil for layers that provide no fallback path.
	RegexFallback(ctx context.Context, content []byte, lctx Context) (Result, error)
	// HasFallback reports whether RegexFallback is meaningful to call.
	HasFallback() bool
}

// noop builds a Result carrying no change, used by layers whose
// transform or fallback legitimately has nothing to do for this input.
func noop(id ID, content []byte) Result {
	return Result{LayerID: id, Success: true, Code: content, OriginalCode: content}
}
