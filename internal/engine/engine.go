// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine drives a full extraction run: insert referenced files,
// scan declarations, assemble the rule program, and apply it phase by
// phase until the document is plain text.
//
// Implements: prd004-engine; docs/ARCHITECTURE § Extraction Engine.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/texplain/internal/catalog"
	"github.com/pdiddy/texplain/internal/document"
	"github.com/pdiddy/texplain/internal/localrules"
	"github.com/pdiddy/texplain/internal/logging"
	"github.com/pdiddy/texplain/internal/pattern"
	"github.com/pdiddy/texplain/internal/rule"
	"github.com/pdiddy/texplain/internal/scan"
	"github.com/pdiddy/texplain/pkg/types"
)

// Source identifies the document to extract. Exactly one of Path and Text
// is used; Path wins when both are set. Log optionally names a LaTeX
// compile log, which improves class and package detection.
type Source struct {
	Path string
	Text string
	Log  string
}

// Engine owns the built-in rule catalog and runs extractions against it.
// One Engine serves any number of runs.
type Engine struct {
	catalog *catalog.Catalog
	log     zerolog.Logger
}

// New builds an engine, compiling the helper patterns of the built-in
// catalog once.
func New() (*Engine, error) {
	cat, err := catalog.New()
	if err != nil {
		return nil, err
	}
	return &Engine{catalog: cat, log: logging.Component("engine")}, nil
}

// Catalog exposes the built-in rule sets, for listing commands.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// run carries the mutable state of one extraction.
type run struct {
	engine *Engine
	opts   types.ExtractOptions
	result *types.ExtractionResult
	trace  []string
	depth  int
}

// Extract performs one extraction run. Rule-level failures (bad patterns,
// timeouts, missing inserted files) become diagnostics in the result; the
// returned error is reserved for invalid configuration, unreadable root
// input, and context cancellation. A fatal document-rule diagnostic sets
// result.Aborted and returns the partial text.
func (e *Engine) Extract(ctx context.Context, src Source, opts types.ExtractOptions) (*types.ExtractionResult, error) {
	start := time.Now()
	if opts.Timeout <= 0 {
		opts.Timeout = types.DefaultTimeout
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = types.DefaultMaxIterations
	}

	r := &run{
		engine: e,
		opts:   opts,
		result: &types.ExtractionResult{TimeoutMode: types.TimeoutEnforced},
	}
	defer func() {
		r.result.Elapsed = time.Since(start)
		r.result.Trace = r.trace
	}()

	buf, rootFile, err := loadSource(src, opts)
	if err != nil {
		return nil, err
	}

	// Insertion phase.
	r.tracef("phase %s", types.PhaseInsertion)
	ins, err := document.NewInserter(rootFile, opts.Timeout)
	if err != nil {
		return nil, err
	}
	diags, err := ins.Run(buf, opts.MaxIterations)
	r.diagnose(diags...)
	if err != nil {
		r.fail(err, "")
	}
	if err := ctx.Err(); err != nil {
		return r.result, err
	}

	// Declaration scan.
	policy, err := phasePolicy(opts.AutoPhases)
	if err != nil {
		return nil, err
	}
	scanner, err := scan.New(policy, opts.Timeout)
	if err != nil {
		return nil, err
	}
	rep, err := scanner.Scan(buf)
	if err != nil {
		return r.abort(buf.Text(), ins, nil, err)
	}
	r.diagnose(rep.Diagnostics...)
	if src.Log != "" {
		if log, err := os.ReadFile(src.Log); err != nil {
			r.diagnose(types.Diagnostic{
				Kind:     types.DiagMissingFile,
				Message:  fmt.Sprintf("cannot read compile log: %v", err),
				Location: types.Location{File: src.Log},
			})
		} else {
			scanner.ScanLog(string(log), rep)
		}
	}
	e.log.Debug().
		Int("definitions", len(rep.Definitions)).
		Strs("classes", rep.Classes).
		Strs("packages", rep.Packages).
		Strs("styles", rep.Styles).
		Msg("document scanned")

	// Rule program.
	program, peel := r.compileProgram(rep)
	if err := ctx.Err(); err != nil {
		return r.result, err
	}

	// Substitution phases. Insertion-phase rules run here, after the file
	// inserter that shares their phase: they are only known once the spliced
	// document has been scanned.
	text := buf.Text()
	text = r.phase(types.PhaseInsertion, program, text)
	text = r.phase(types.PhaseRemoval, program, text)
	text = r.phase(types.PhaseSetup, program, text)
	text = r.mainLoop(ctx, program, peel, text)
	text = r.phase(types.PhaseCleanup, program, text)
	r.result.Text = text
	if err := ctx.Err(); err != nil {
		return r.result, err
	}

	r.finish(text, ins, program, peel)
	return r.result, nil
}

// loadSource reads the root document and determines the file insertions
// resolve against.
func loadSource(src Source, opts types.ExtractOptions) (*document.Buffer, string, error) {
	if src.Path != "" {
		buf, err := document.FromFile(src.Path)
		if err != nil {
			return nil, "", err
		}
		root := src.Path
		if opts.RootDir != "" {
			root = filepath.Join(opts.RootDir, filepath.Base(src.Path))
		}
		return buf, root, nil
	}
	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}
	return document.FromString(src.Text), filepath.Join(rootDir, "texplain.tex"), nil
}

// phasePolicy translates the configured phase overrides for auto-generated
// rules.
func phasePolicy(overrides map[string]string) (scan.PhasePolicy, error) {
	policy := scan.DefaultPhasePolicy()
	for kind, name := range overrides {
		phase, err := types.ParsePhase(name)
		if err != nil {
			return nil, fmt.Errorf("auto-phase override for %q: %w", kind, err)
		}
		switch scan.DefKind(kind) {
		case scan.DefCommand, scan.DefEnvironment, scan.DefCounter:
			policy[scan.DefKind(kind)] = phase
		default:
			return nil, fmt.Errorf("auto-phase override for unknown declaration kind %q", kind)
		}
	}
	return policy, nil
}

// compileProgram compiles the three rule tiers and the brace-peel list.
// Rules that fail to compile are reported and dropped.
func (r *run) compileProgram(rep *scan.Report) (*rule.Program, []*rule.Rule) {
	var docRules, autoRules, builtinRules []*rule.Rule
	if r.opts.DocumentRules {
		docRules = r.compileTier(rep.DocumentRules)
	}
	if r.opts.Auto {
		autoRules = r.compileTier(rep.AutoRules)
	}
	var peel []*rule.Rule
	if r.opts.Builtin {
		// Within a phase the selected class/package/style rules run before
		// the core rules, since they rewrite commands the core rules would
		// otherwise mangle. Local rules sit between the two for the same
		// reason.
		specs := r.engine.catalog.Select(rep.Classes, rep.Packages, rep.Styles)
		if r.opts.LocalRulesDir != "" {
			local, diags, err := localrules.Load(r.opts.LocalRulesDir)
			r.diagnose(diags...)
			if err != nil {
				r.fail(err, "")
			} else {
				specs = append(specs, local...)
			}
		}
		specs = append(specs, r.engine.catalog.Core()...)
		builtinRules = r.compileTier(specs)
		peel = r.compileTier(r.engine.catalog.BracePeel())
	}
	return rule.Compose(docRules, autoRules, builtinRules), peel
}

func (r *run) compileTier(specs []rule.Spec) []*rule.Rule {
	rules := make([]*rule.Rule, 0, len(specs))
	for _, s := range specs {
		compiled, err := rule.Compile(s, r.opts.Timeout)
		if err != nil {
			r.fail(err, s.Pattern)
			continue
		}
		rules = append(rules, compiled)
	}
	return rules
}

// phase applies every rule of one phase in order, once each (iterative
// rules loop internally).
func (r *run) phase(p types.Phase, program *rule.Program, text string) string {
	rules := program.Phase(p)
	r.tracef("phase %s (%d rules)", p, len(rules))
	r.depth++
	for _, ru := range rules {
		text = r.apply(ru, text)
	}
	r.depth--
	return text
}

// mainLoop alternates the main-phase rules with the brace-peel rules until
// a full pass makes no substitution. Peeling exposes nested commands that
// the next pass then rewrites.
func (r *run) mainLoop(ctx context.Context, program *rule.Program, peel []*rule.Rule, text string) string {
	rules := program.Phase(types.PhaseMain)
	for pass := 1; pass <= r.opts.MaxIterations; pass++ {
		if ctx.Err() != nil {
			return text
		}
		r.tracef("phase %s, pass %d", types.PhaseMain, pass)
		r.depth++
		total := 0
		for _, ru := range rules {
			var n int
			text, n = r.applyCount(ru, text)
			total += n
		}
		for _, ru := range peel {
			var n int
			text, n = r.applyCount(ru, text)
			total += n
		}
		r.depth--
		if total == 0 {
			return text
		}
	}
	r.diagnose(types.Diagnostic{
		Kind:    types.DiagRuleRuntime,
		Message: fmt.Sprintf("main phase did not settle after %d passes", r.opts.MaxIterations),
	})
	return text
}

func (r *run) apply(ru *rule.Rule, text string) string {
	out, _ := r.applyCount(ru, text)
	return out
}

// applyCount runs one rule and folds failures into diagnostics. On error
// the text is left as the rule found it.
func (r *run) applyCount(ru *rule.Rule, text string) (string, int) {
	out, n, err := ru.Apply(text, r.opts.MaxIterations)
	if err != nil {
		r.fail(err, ru.String())
		return text, 0
	}
	if n > 0 {
		r.tracef("%d  %s", n, ru)
	}
	return out, n
}

// abort ends the run on a fatal diagnostic, keeping the partial text and
// whatever bookkeeping exists so far.
func (r *run) abort(text string, ins *document.Inserter, program *rule.Program, err error) (*types.ExtractionResult, error) {
	r.fail(err, "")
	r.result.Aborted = true
	r.result.Text = text
	r.finish(text, ins, program, nil)
	return r.result, nil
}

// finish fills the bookkeeping sections of the result: the per-rule match
// table, the remaining-command tally, and the optional pattern listing.
func (r *run) finish(text string, ins *document.Inserter, program *rule.Program, peel []*rule.Rule) {
	if ins != nil {
		for _, p := range ins.Patterns() {
			r.result.Matches = append(r.result.Matches, types.RuleMatches{
				Rule:       fmt.Sprintf("%q => file contents", p.Template),
				Provenance: types.ProvenanceBuiltin.String(),
				Phase:      types.PhaseInsertion.String(),
				Location:   p.Location,
				Matches:    p.Matches(),
				Elapsed:    p.Elapsed(),
			})
			if r.opts.Patterns {
				r.result.Patterns = append(r.result.Patterns, patternListing(p))
			}
		}
	}
	var rules []*rule.Rule
	if program != nil {
		rules = program.All()
	}
	rules = append(rules, peel...)
	for _, ru := range rules {
		r.result.Matches = append(r.result.Matches, types.RuleMatches{
			Rule:       ru.String(),
			Provenance: ru.Provenance.String(),
			Phase:      ru.Phase.String(),
			Location:   ru.Pattern.Location,
			Matches:    ru.Pattern.Matches(),
			Elapsed:    ru.Pattern.Elapsed(),
		})
		if r.opts.Patterns {
			r.result.Patterns = append(r.result.Patterns, patternListing(ru.Pattern))
		}
	}
	r.result.Remaining = remainingCommands(text, r.opts.Timeout, r)
}

func patternListing(p *pattern.Pattern) string {
	return fmt.Sprintf("%s\n    %s", p.Template, p.Expanded)
}

// remainingCommands tallies the command names still present after cleanup,
// sorted by descending count then name. The list tells operators which
// rules to write next.
func remainingCommands(text string, timeout time.Duration, r *run) []types.CommandCount {
	p, err := pattern.Compile(`%m`, pattern.Flags{}, timeout, types.Location{File: "core"})
	if err != nil {
		r.fail(err, "%m")
		return nil
	}
	found, err := p.FindAll(text)
	if err != nil {
		r.fail(err, "%m")
		return nil
	}
	counts := make(map[string]int)
	for _, name := range found {
		counts[name]++
	}
	tally := make([]types.CommandCount, 0, len(counts))
	for name, n := range counts {
		tally = append(tally, types.CommandCount{Command: name, Count: n})
	}
	sort.Slice(tally, func(i, j int) bool {
		if tally[i].Count != tally[j].Count {
			return tally[i].Count > tally[j].Count
		}
		return tally[i].Command < tally[j].Command
	})
	return tally
}

// fail converts an error raised by the pattern or rule layer into the
// corresponding diagnostic.
func (r *run) fail(err error, ruleText string) {
	d := types.Diagnostic{Message: err.Error(), Rule: ruleText}
	switch e := err.(type) {
	case *pattern.CompileError:
		d.Kind = types.DiagPattern
		d.Location = e.Location
		d.Rule = e.Template
	case *pattern.TimeoutError:
		d.Kind = types.DiagTimeout
		d.Location = e.Location
		d.Rule = e.Template
	case *scan.DocRuleError:
		d.Kind = types.DiagDocumentRule
		d.Location = e.Location
	case *rule.RuntimeError:
		d.Kind = types.DiagRuleRuntime
		d.Location = e.Location
		d.Rule = e.Rule
	default:
		d.Kind = types.DiagRuleRuntime
	}
	r.diagnose(d)
}

func (r *run) diagnose(diags ...types.Diagnostic) {
	for _, d := range diags {
		r.engine.log.Warn().
			Str("kind", string(d.Kind)).
			Str("file", d.Location.File).
			Int("line", d.Location.Line).
			Msg(d.Message)
		r.result.Diagnostics = append(r.result.Diagnostics, d)
	}
}

func (r *run) tracef(format string, args ...any) {
	if !r.opts.Trace {
		return
	}
	r.trace = append(r.trace, strings.Repeat("  ", r.depth)+fmt.Sprintf(format, args...))
}
