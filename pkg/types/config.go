// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DefaultTimeout is the per-rule match timeout used when none is configured.
// It guards against catastrophic backtracking. Per prd004-engine R4.1.
const DefaultTimeout = 5 * time.Second

// DefaultMaxIterations caps fixpoint loops for iterative rules and for the
// main-phase outer loop.
const DefaultMaxIterations = 1000

// ExtractOptions holds settings for one extraction run.
// Per prd004-engine R1.1-R1.6.
type ExtractOptions struct {
	// Timeout is the per-rule match timeout (default 5s). A rule exceeding
	// it is aborted and reported; the run continues.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxIterations caps the number of passes for iterative rules and for
	// the main-phase fixpoint loop (default 1000).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// Auto controls whether rules are synthesized for commands and
	// environments defined in the document.
	Auto bool `json:"auto" yaml:"auto"`

	// Builtin controls whether the built-in rule catalog is applied.
	Builtin bool `json:"builtin" yaml:"builtin"`

	// DocumentRules controls whether document-local "% Rule(...)" lines are
	// parsed and applied.
	DocumentRules bool `json:"document_rules" yaml:"document_rules"`

	// AutoPhases overrides the phase assigned to auto-generated rules, keyed
	// by declaration kind ("command", "environment", "counter"), value a
	// phase name. Unset kinds use the built-in policy.
	AutoPhases map[string]string `json:"auto_phases,omitempty" yaml:"auto_phases,omitempty"`

	// LocalRulesDir is a directory of *.rules files appended to the built-in
	// tier. Empty disables local rules; a missing directory is not an error.
	LocalRulesDir string `json:"local_rules_dir,omitempty" yaml:"local_rules_dir,omitempty"`

	// RootDir is the directory against which inserted files (\input,
	// \include, \bibliography) are resolved. Defaults to the source
	// document's directory.
	RootDir string `json:"root_dir,omitempty" yaml:"root_dir,omitempty"`

	// Patterns requests the expanded-pattern listing in the result.
	Patterns bool `json:"patterns" yaml:"patterns"`

	// Trace requests the indented execution trace in the result.
	Trace bool `json:"trace" yaml:"trace"`
}

// DefaultExtractOptions returns the options used when the caller supplies
// none: all rule tiers active, default timeout and iteration cap.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		Timeout:       DefaultTimeout,
		MaxIterations: DefaultMaxIterations,
		Auto:          true,
		Builtin:       true,
		DocumentRules: true,
	}
}

// HistoryConfig holds settings for the run-history store.
// Per prd006-history R1.1.
type HistoryConfig struct {
	// Enabled controls whether extraction runs are recorded.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir is the base directory for the history database (contains
	// index/texplain.db). Default ".texplain".
	Dir string `json:"dir" yaml:"dir"`

	// MaxResults is the default maximum number of rows returned by history
	// queries (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// Config groups all texplain configuration for the CLI layer.
type Config struct {
	Extract ExtractOptions `json:"extract" yaml:"extract"`
	History HistoryConfig  `json:"history" yaml:"history"`
}
