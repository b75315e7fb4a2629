// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scan reads a spliced document before any rewriting and reports
// what it defines: macros, environments and counters (which become
// auto-generated rules), document-local rule comments, and the classes,
// packages and styles the document loads (which select built-in rule sets).
//
// Implements: prd003-scanner (R1-R5); docs/ARCHITECTURE § Scanner.
package scan

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/texplain/internal/document"
	"github.com/pdiddy/texplain/internal/pattern"
	"github.com/pdiddy/texplain/internal/rule"
	"github.com/pdiddy/texplain/pkg/types"
)

// DefKind classifies a declaration.
type DefKind string

const (
	DefCommand     DefKind = "command"
	DefEnvironment DefKind = "environment"
	DefCounter     DefKind = "counter"
)

// Definition is one parsed declaration. Kept verbatim enough to synthesize
// rules from and to explain in diagnostics where a rule came from.
type Definition struct {
	Kind DefKind

	// Name without the leading backslash (commands) or braces
	// (environments, counters).
	Name string

	// Arity is the declared argument count, optional argument included.
	Arity int

	// HasOpt marks commands and environments whose first argument is
	// optional; Default is its declared default value.
	HasOpt  bool
	Default string

	// Body is the replacement text; environments use Body for \begin and
	// EndBody for \end.
	Body    string
	EndBody string

	Location types.Location
}

// PhasePolicy maps declaration kinds to the extraction phase their
// synthesized rules run in.
type PhasePolicy map[DefKind]types.Phase

// defaultGuards are the guard flags for scanner-owned patterns and the rules
// it synthesizes: commented-out declarations and escaped command characters
// never count.
var defaultGuards = pattern.Flags{NotCommented: true, NotEscaped: true}

// DefaultPhasePolicy assigns command and environment rules to the main phase
// and counter rules to setup, where counter formatting must resolve before
// the commands that print counters are rewritten.
func DefaultPhasePolicy() PhasePolicy {
	return PhasePolicy{
		DefCommand:     types.PhaseMain,
		DefEnvironment: types.PhaseMain,
		DefCounter:     types.PhaseSetup,
	}
}

// Declaration templates. The name of a new command may be braced or bare;
// the optional [argcount] and [default] brackets are captured separately
// from the body. \def parameter text is captured loosely and validated
// afterwards so delimited-parameter definitions produce a warning instead of
// being silently ignored.
const (
	newCommandTemplate = `\\(?:new|renew|provide)command\*?%n(?:%c|(?<name>\\[a-zA-Z]+))%n(?:%s%n)?(?:%s%n)?%c`
	defTemplate        = `\\[egx]?def%n(?<name>\\(?:[a-zA-Z]+|.))(?<params>[^{\n]*)%c`
	newEnvTemplate     = `\\(?:re)?newenvironment\*?%n%c%n(?:%s%n)?(?:%s%n)?%c%n%c`
	newCounterTemplate = `\\newcounter%n%c(?:%n%s)?`
)

// Report is everything one scan pass discovered.
type Report struct {
	Definitions   []Definition
	AutoRules     []rule.Spec
	DocumentRules []rule.Spec

	// Classes, Packages and Styles name the rule sets the document asks
	// for, in order of appearance, deduplicated.
	Classes  []string
	Packages []string
	Styles   []string

	// Diagnostics holds the scan warnings (skipped declarations).
	Diagnostics []types.Diagnostic
}

// Scanner compiles the declaration patterns once and applies them to
// documents.
type Scanner struct {
	policy   PhasePolicy
	timeout  time.Duration
	commands *pattern.Pattern
	defs     *pattern.Pattern
	envs     *pattern.Pattern
	counters *pattern.Pattern
	detect   *detector
}

// New builds a scanner. policy may be nil for the default phase policy.
func New(policy PhasePolicy, timeout time.Duration) (*Scanner, error) {
	if policy == nil {
		policy = DefaultPhasePolicy()
	}
	s := &Scanner{policy: policy, timeout: timeout}

	for _, c := range []struct {
		dst      **pattern.Pattern
		template string
	}{
		{&s.commands, newCommandTemplate},
		{&s.defs, defTemplate},
		{&s.envs, newEnvTemplate},
		{&s.counters, newCounterTemplate},
	} {
		p, err := pattern.Compile(c.template, defaultGuards, timeout, types.Location{})
		if err != nil {
			return nil, err
		}
		*c.dst = p
	}

	det, err := newDetector(timeout)
	if err != nil {
		return nil, err
	}
	s.detect = det
	return s, nil
}

// Scan reads the buffer and returns everything it declares. A malformed
// document-local rule aborts with an error; malformed macro declarations
// only warn.
func (s *Scanner) Scan(b *document.Buffer) (*Report, error) {
	rep := &Report{}
	text := b.Text()

	s.scanCommands(b, text, rep)
	s.scanDefs(b, text, rep)
	s.scanEnvironments(b, text, rep)
	s.scanCounters(b, text, rep)
	s.synthesize(rep)

	if err := s.scanDocumentRules(b, text, rep); err != nil {
		return rep, err
	}
	s.detect.fromSource(text, rep)
	return rep, nil
}

// ScanLog folds rule-set requests found in a compiler log into the report.
func (s *Scanner) ScanLog(log string, rep *Report) {
	s.detect.fromLog(log, rep)
}

func (s *Scanner) scanCommands(b *document.Buffer, text string, rep *Report) {
	forEach(s.commands, text, func(m *pattern.Match) {
		loc := b.Locate(m.Index())
		name := m.Group("c1")
		if !m.Present("c1") {
			name = m.Group("name")
		}
		name = strings.TrimPrefix(name, `\`)
		if name == "" || !alphabetic(name) {
			rep.warn(loc, "skipping command definition with unusable name %q", name)
			return
		}

		def := Definition{
			Kind:     DefCommand,
			Name:     name,
			Body:     m.Group("c2"),
			Location: loc,
		}
		if m.Present("s1") {
			n, err := strconv.Atoi(strings.TrimSpace(m.Group("s1")))
			if err != nil || n < 0 || n > 9 {
				rep.warn(loc, `skipping \%s: argument count %q is not a number between 0 and 9`, name, m.Group("s1"))
				return
			}
			def.Arity = n
		}
		if m.Present("s2") {
			def.HasOpt = true
			def.Default = m.Group("s2")
			if def.Arity == 0 {
				rep.warn(loc, `skipping \%s: optional default given but argument count is 0`, name)
				return
			}
		}
		rep.Definitions = append(rep.Definitions, def)
	})
}

func (s *Scanner) scanDefs(b *document.Buffer, text string, rep *Report) {
	forEach(s.defs, text, func(m *pattern.Match) {
		loc := b.Locate(m.Index())
		name := strings.TrimPrefix(m.Group("name"), `\`)
		params := strings.TrimSpace(m.Group("params"))

		if !alphabetic(name) {
			rep.warn(loc, `skipping \def of non-alphabetic name %q`, name)
			return
		}
		arity, ok := simpleParams(params)
		if !ok {
			rep.warn(loc, `skipping \def\%s: delimited parameter text %q is not supported`, name, params)
			return
		}
		rep.Definitions = append(rep.Definitions, Definition{
			Kind:     DefCommand,
			Name:     name,
			Arity:    arity,
			Body:     m.Group("c1"),
			Location: loc,
		})
	})
}

func (s *Scanner) scanEnvironments(b *document.Buffer, text string, rep *Report) {
	forEach(s.envs, text, func(m *pattern.Match) {
		loc := b.Locate(m.Index())
		def := Definition{
			Kind:     DefEnvironment,
			Name:     m.Group("c1"),
			Body:     m.Group("c2"),
			EndBody:  m.Group("c3"),
			Location: loc,
		}
		if def.Name == "" {
			rep.warn(loc, "skipping environment definition with empty name")
			return
		}
		if m.Present("s1") {
			n, err := strconv.Atoi(strings.TrimSpace(m.Group("s1")))
			if err != nil || n < 0 || n > 9 {
				rep.warn(loc, "skipping environment %q: argument count %q is not a number between 0 and 9", def.Name, m.Group("s1"))
				return
			}
			def.Arity = n
		}
		if m.Present("s2") {
			def.HasOpt = true
			def.Default = m.Group("s2")
			if def.Arity == 0 {
				rep.warn(loc, "skipping environment %q: optional default given but argument count is 0", def.Name)
				return
			}
		}
		rep.Definitions = append(rep.Definitions, def)
	})
}

func (s *Scanner) scanCounters(b *document.Buffer, text string, rep *Report) {
	forEach(s.counters, text, func(m *pattern.Match) {
		loc := b.Locate(m.Index())
		name := m.Group("c1")
		if !alphabetic(name) {
			rep.warn(loc, "skipping counter with non-alphabetic name %q", name)
			return
		}
		rep.Definitions = append(rep.Definitions, Definition{
			Kind:     DefCounter,
			Name:     name,
			Location: loc,
		})
	})
}

// forEach runs fn over every match. Pattern errors during scanning are
// impossible for the fixed declaration patterns short of a timeout, in which
// case the remaining declarations of that kind are skipped.
func forEach(p *pattern.Pattern, text string, fn func(*pattern.Match)) {
	limit := len([]rune(text))
	at := 0
	for at <= limit {
		m, err := p.Find(text, at)
		if err != nil || m == nil {
			return
		}
		fn(m)
		next := m.End()
		if next <= at {
			next = at + 1
		}
		at = next
	}
}

func (r *Report) warn(loc types.Location, format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, types.Diagnostic{
		Kind:     types.DiagScan,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	})
}

func alphabetic(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return len(s) > 0
}

// simpleParams accepts parameter text of the form #1#2...#n (possibly empty)
// and returns n. Anything else is delimited parameter text.
func simpleParams(params string) (int, bool) {
	n := 0
	for i := 0; i < len(params); {
		if params[i] != '#' || i+1 >= len(params) {
			return 0, false
		}
		d := params[i+1]
		if d < '1' || d > '9' || int(d-'0') != n+1 {
			return 0, false
		}
		n++
		i += 2
	}
	return n, true
}
