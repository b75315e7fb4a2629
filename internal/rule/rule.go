// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rule pairs compiled patterns with replacements and composes them
// into the phase-ordered lists the extraction engine runs.
//
// Implements: prd002-rules (R1-R4); docs/ARCHITECTURE § Rule Layer.
package rule

import (
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/texplain/internal/pattern"
	"github.com/pdiddy/texplain/pkg/types"
)

// Spec declares one rule before compilation. Catalog tables, the macro
// scanner, and the document-rule parser all produce Specs; Compile turns
// them into runnable Rules.
type Spec struct {
	// Pattern is the match template in the placeholder language.
	Pattern string

	// Replace is the replacement template, used when Func is nil.
	Replace string

	// Func computes the replacement programmatically. Rules that need more
	// than text-and-groups (accent folding, counter formatting) set Func
	// instead of Replace.
	Func pattern.Evaluator

	// Flags select the comment and escape guards.
	Flags pattern.Flags

	// Phase is the extraction phase the rule runs in.
	Phase types.Phase

	// Iterative re-applies the rule until a pass makes no effective
	// substitution, which is how one-nesting-level patterns handle
	// arbitrarily nested brackets.
	Iterative bool

	// SubMatches restricts effective-substitution counting to matches where
	// one of the named groups participated. Catch-all rules that rewrite
	// the whole text use this so the fixpoint loop stops when the group of
	// interest no longer occurs.
	SubMatches []string

	// Provenance is the precedence tier.
	Provenance types.Provenance

	// Location is where the rule was declared.
	Location types.Location
}

// Rule is a compiled pattern/replacement pair.
type Rule struct {
	Pattern    *pattern.Pattern
	Phase      types.Phase
	Iterative  bool
	Provenance types.Provenance

	repl       *Replacement
	fn         pattern.Evaluator
	subMatches []string
	display    string
}

// RuntimeError reports a failure while preparing or applying an otherwise
// well-formed rule, for example a replacement naming a group the pattern
// does not capture. The rule is skipped; extraction continues.
type RuntimeError struct {
	Rule     string
	Location types.Location
	Err      error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.Rule, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Compile expands and compiles the spec's pattern, parses its replacement,
// and cross-checks every group reference against the compiled pattern.
// timeout bounds each match operation; zero disables the limit.
func Compile(s Spec, timeout time.Duration) (*Rule, error) {
	p, err := pattern.Compile(s.Pattern, s.Flags, timeout, s.Location)
	if err != nil {
		return nil, err
	}

	r := &Rule{
		Pattern:    p,
		Phase:      s.Phase,
		Iterative:  s.Iterative,
		Provenance: s.Provenance,
		fn:         s.Func,
		subMatches: s.SubMatches,
	}
	if s.Func != nil {
		r.display = fmt.Sprintf("%q => <func>", s.Pattern)
		return r, nil
	}

	repl, err := ParseReplacement(s.Replace)
	if err != nil {
		return nil, &pattern.CompileError{Template: s.Pattern, Location: s.Location, Err: err}
	}
	r.repl = repl
	r.display = fmt.Sprintf("%q => %q", s.Pattern, s.Replace)

	defined := make(map[string]bool, len(p.GroupNames()))
	for _, name := range p.GroupNames() {
		defined[name] = true
	}
	for _, name := range repl.Groups() {
		if !defined[name] {
			return nil, &RuntimeError{
				Rule:     r.display,
				Location: s.Location,
				Err:      fmt.Errorf("replacement references group %q, which the pattern does not capture", name),
			}
		}
	}
	return r, nil
}

// String returns the compact pattern/replacement form used in match tables
// and diagnostics.
func (r *Rule) String() string { return r.display }

// Apply runs the rule over text once, or to fixpoint when the rule is
// iterative. maxPasses bounds the fixpoint loop; exhausting it returns what
// was substituted so far plus a RuntimeError. It returns the rewritten text
// and the number of effective substitutions.
func (r *Rule) Apply(text string, maxPasses int) (string, int, error) {
	eval := r.fn
	if eval == nil {
		eval = r.repl.Eval
	}

	total := 0
	for pass := 0; ; pass++ {
		counted := 0
		wrapped := eval
		if r.subMatches != nil {
			wrapped = func(m *pattern.Match) string {
				for _, g := range r.subMatches {
					if m.Present(g) {
						counted++
						break
					}
				}
				return eval(m)
			}
		}
		out, n, err := r.Pattern.ReplaceAll(text, wrapped)
		if err != nil {
			return text, total, r.wrap(err)
		}
		if r.subMatches != nil {
			n = counted
		}
		text = out
		total += n
		if !r.Iterative || n == 0 {
			return text, total, nil
		}
		if maxPasses > 0 && pass+1 >= maxPasses {
			return text, total, &RuntimeError{
				Rule:     r.display,
				Location: r.Pattern.Location,
				Err:      fmt.Errorf("no fixpoint after %d passes", maxPasses),
			}
		}
	}
}

func (r *Rule) wrap(err error) error {
	var timeout *pattern.TimeoutError
	if errors.As(err, &timeout) {
		return err
	}
	return &RuntimeError{Rule: r.display, Location: r.Pattern.Location, Err: err}
}
