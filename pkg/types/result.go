// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DiagKind categorizes a diagnostic raised during extraction.
// Per prd005-diagnostics R1.1.
type DiagKind string

const (
	// DiagPattern reports a malformed template or placeholder, detected at
	// compile time and localized to one rule.
	DiagPattern DiagKind = "pattern_error"

	// DiagDocumentRule reports a malformed document-local rule. Fatal to the
	// run: the input itself cannot be trusted.
	DiagDocumentRule DiagKind = "document_rule_error"

	// DiagTimeout reports a rule whose matching exceeded the configured
	// timeout (suspected catastrophic backtracking). Rule-local, non-fatal.
	DiagTimeout DiagKind = "timeout_error"

	// DiagMissingFile reports an insertion command whose target file could
	// not be resolved. The insertion becomes a no-op.
	DiagMissingFile DiagKind = "missing_file_warning"

	// DiagScan reports a macro or environment declaration whose argument
	// signature could not be parsed. The declaration is skipped.
	DiagScan DiagKind = "scan_warning"

	// DiagRuleRuntime reports a failure while applying a rule (for example a
	// replacement referencing a group the pattern does not define). The rule
	// is skipped.
	DiagRuleRuntime DiagKind = "rule_runtime_error"
)

// Location identifies a position in an input file. File is "<string>" for
// documents supplied in memory.
type Location struct {
	File string `json:"file" yaml:"file"`
	Line int    `json:"line" yaml:"line"`
}

func (l Location) IsZero() bool { return l.File == "" && l.Line == 0 }

// Diagnostic is one entry in the extraction error/warning list.
// Per prd005-diagnostics R1.2.
type Diagnostic struct {
	// Kind classifies the diagnostic.
	Kind DiagKind `json:"kind" yaml:"kind"`

	// Message is the human-readable description.
	Message string `json:"message" yaml:"message"`

	// Location is the defining location of the rule or declaration involved,
	// when known.
	Location Location `json:"location,omitempty" yaml:"location,omitempty"`

	// Rule is the compact representation of the rule involved, when any.
	Rule string `json:"rule,omitempty" yaml:"rule,omitempty"`
}

// Fatal reports whether the diagnostic aborts the run.
func (d Diagnostic) Fatal() bool { return d.Kind == DiagDocumentRule }

// RuleMatches is one row of the per-rule match-count table.
type RuleMatches struct {
	// Rule is the compact pattern/replacement representation.
	Rule string `json:"rule" yaml:"rule"`

	// Provenance is the rule's precedence tier.
	Provenance string `json:"provenance" yaml:"provenance"`

	// Phase names the phase the rule ran in.
	Phase string `json:"phase" yaml:"phase"`

	// Location is where the rule was defined (built-in table, document
	// file/line, or the declaration that generated it).
	Location Location `json:"location" yaml:"location"`

	// Matches counts successful matches over the whole run.
	Matches int `json:"matches" yaml:"matches"`

	// Elapsed is the total matching time spent in this rule.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// CommandCount tallies one command name left in the output after cleanup.
// Per prd005-diagnostics R3.1.
type CommandCount struct {
	Command string `json:"command" yaml:"command"`
	Count   int    `json:"count" yaml:"count"`
}

// ExtractionResult holds the output of one extraction run. It is immutable
// after return. Per prd004-engine R5.1-R5.4.
type ExtractionResult struct {
	// Text is the linearized plain-text approximation of the document.
	Text string `json:"text" yaml:"text"`

	// Matches is the per-rule match-count table, in rule execution order.
	Matches []RuleMatches `json:"matches" yaml:"matches"`

	// Remaining lists unhandled command names with occurrence counts, sorted
	// by descending count then name, so operators can prioritize new rules.
	Remaining []CommandCount `json:"remaining,omitempty" yaml:"remaining,omitempty"`

	// Diagnostics is the ordered error/warning list.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`

	// Patterns holds the expanded-pattern listing when requested.
	Patterns []string `json:"patterns,omitempty" yaml:"patterns,omitempty"`

	// Trace holds the indented execution trace when requested.
	Trace []string `json:"trace,omitempty" yaml:"trace,omitempty"`

	// Elapsed is the wall time of the run.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`

	// TimeoutMode reports whether the per-rule timeout was enforced
	// mid-match or only measured after the fact.
	TimeoutMode TimeoutMode `json:"timeout_mode" yaml:"timeout_mode"`

	// Aborted is set when the run ended early on a fatal diagnostic; Text
	// then holds the partial buffer.
	Aborted bool `json:"aborted,omitempty" yaml:"aborted,omitempty"`
}

// HasErrors reports whether any diagnostics were recorded.
func (r *ExtractionResult) HasErrors() bool { return len(r.Diagnostics) > 0 }

// Timeouts counts DiagTimeout entries.
func (r *ExtractionResult) Timeouts() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Kind == DiagTimeout {
			n++
		}
	}
	return n
}
