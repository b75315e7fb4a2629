// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pattern

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/pdiddy/texplain/pkg/types"
)

// Guard assertions wrapped around compiled matchers. They are exported so
// rule tables can also place them mid-pattern, ahead of the character they
// protect, when the whole-pattern prefix applied by Flags is too early.
//
// NotCommented rejects matches that begin inside an unescaped-comment span: a
// comment starts at an odd-count-escaped % and runs to end of line, so a
// match may begin only where everything between start of line and the match
// is an escaped % or a non-% character.
//
// NotEscaped rejects matches immediately preceded by an odd number of escape
// characters, while still allowing matches directly after a \\ newline
// command (an even count).
const (
	NotCommented = `(?<=^(?:\\%|[^%\n])*)`
	NotEscaped   = `(?<!(?<!(?<!\\)\\)\\)`
)

// Flags select the guard assertions for a compiled pattern.
type Flags struct {
	// NotCommented prevents a match from starting inside a comment span.
	NotCommented bool

	// NotEscaped rejects matches whose first character would be read as
	// escaped.
	NotEscaped bool
}

// CompileError reports a template that could not be expanded or compiled. It
// carries the offending template and its declared source location (built-in
// rule set, or document file/line).
type CompileError struct {
	Template string
	Location types.Location
	Err      error
}

func (e *CompileError) Error() string {
	if e.Location.IsZero() {
		return fmt.Sprintf("pattern %q: %v", e.Template, e.Err)
	}
	return fmt.Sprintf("pattern %q (%s, line %d): %v",
		e.Template, e.Location.File, e.Location.Line, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// TimeoutError reports a match operation aborted by the per-pattern timeout,
// the guard against catastrophic backtracking.
type TimeoutError struct {
	Template string
	Location types.Location
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("pattern %q exceeded the match timeout of %v (suspected catastrophic backtracking)",
		e.Template, e.Timeout)
}

// Pattern is a compiled matcher with provenance metadata and run counters.
type Pattern struct {
	// Template is the pre-expansion template, used in diagnostics.
	Template string

	// Expanded is the matcher source after placeholder expansion and guard
	// insertion.
	Expanded string

	// Groups lists the capture groups allocated by placeholder expansion.
	Groups []Group

	// Location is where the pattern was declared.
	Location types.Location

	re      *regexp2.Regexp
	timeout time.Duration
	matches int
	runs    int
	elapsed time.Duration
}

// Compile expands template and builds an executable matcher. timeout bounds
// every match operation on the returned pattern; zero means no limit.
func Compile(template string, flags Flags, timeout time.Duration, loc types.Location) (*Pattern, error) {
	exp, err := Expand(template)
	if err != nil {
		return nil, &CompileError{Template: template, Location: loc, Err: err}
	}

	source := exp.Expanded
	if flags.NotEscaped {
		source = NotEscaped + source
	}
	if flags.NotCommented {
		source = NotCommented + source
	}
	source = normalizeGroupSyntax(source)

	re, err := regexp2.Compile(source, regexp2.Multiline)
	if err != nil {
		return nil, &CompileError{Template: template, Location: loc, Err: err}
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}

	return &Pattern{
		Template: template,
		Expanded: source,
		Groups:   exp.Groups,
		Location: loc,
		re:       re,
		timeout:  timeout,
	}, nil
}

// normalizeGroupSyntax rewrites Python-style named groups, accepted in the
// document-rule language, into the engine's native form.
func normalizeGroupSyntax(s string) string {
	s = strings.ReplaceAll(s, "(?P<", "(?<")
	for {
		i := strings.Index(s, "(?P=")
		if i < 0 {
			return s
		}
		j := strings.Index(s[i:], ")")
		if j < 0 {
			return s
		}
		name := s[i+4 : i+j]
		s = s[:i] + `\k<` + name + ">" + s[i+j+1:]
	}
}

// Match wraps one pattern match for replacement evaluators.
type Match struct {
	m *regexp2.Match
}

// Text returns the full matched text.
func (m *Match) Text() string { return m.m.String() }

// Index returns the rune offset of the match in the searched text. The
// matcher works in runes, not bytes; callers that slice the input must
// convert it with []rune first.
func (m *Match) Index() int { return m.m.Index }

// End returns the rune offset just past the match.
func (m *Match) End() int { return m.m.Index + m.m.Length }

// Group returns the text captured by the named group, or "" when the group
// did not participate in the match.
func (m *Match) Group(name string) string {
	g := m.m.GroupByName(name)
	if g == nil || len(g.Captures) == 0 {
		return ""
	}
	return g.String()
}

// Present reports whether the named group participated in the match. An
// optional bracket argument that was absent is distinguishable from one that
// matched empty content.
func (m *Match) Present(name string) bool {
	g := m.m.GroupByName(name)
	return g != nil && len(g.Captures) > 0
}

// Evaluator produces the replacement text for one match.
type Evaluator func(*Match) string

// ReplaceAll substitutes every non-overlapping match using eval and returns
// the new text plus the number of effective substitutions. Substitutions
// that return the matched text unchanged count as matches but not as
// substitutions, so iterative rules can reach fixpoint.
func (p *Pattern) ReplaceAll(input string, eval Evaluator) (string, int, error) {
	matched, void := 0, 0
	start := time.Now()
	out, err := p.re.ReplaceFunc(input, func(m regexp2.Match) string {
		matched++
		repl := eval(&Match{m: &m})
		if repl == m.String() {
			void++
		}
		return repl
	}, -1, -1)
	p.record(start, matched)
	if err != nil {
		return input, 0, p.classify(start, err)
	}
	return out, matched - void, nil
}

// Find returns the first match at or after startAt, or nil when the rest of
// the input has none.
func (p *Pattern) Find(input string, startAt int) (*Match, error) {
	start := time.Now()
	m, err := p.re.FindStringMatchStartingAt(input, startAt)
	if err != nil {
		p.record(start, 0)
		return nil, p.classify(start, err)
	}
	if m == nil {
		p.record(start, 0)
		return nil, nil
	}
	p.record(start, 1)
	return &Match{m: m}, nil
}

// FindAll returns the text of every match, for the remaining-command scan.
func (p *Pattern) FindAll(input string) ([]string, error) {
	var found []string
	start := time.Now()
	m, err := p.re.FindStringMatch(input)
	for err == nil && m != nil {
		found = append(found, m.String())
		m, err = p.re.FindNextMatch(m)
	}
	p.record(start, len(found))
	if err != nil {
		return nil, p.classify(start, err)
	}
	return found, nil
}

// Search reports whether the pattern matches anywhere in input.
func (p *Pattern) Search(input string) (bool, error) {
	start := time.Now()
	ok, err := p.re.MatchString(input)
	n := 0
	if ok {
		n = 1
	}
	p.record(start, n)
	if err != nil {
		return false, p.classify(start, err)
	}
	return ok, nil
}

func (p *Pattern) record(start time.Time, matches int) {
	p.runs++
	p.elapsed += time.Since(start)
	p.matches += matches
}

// classify maps an engine error to a TimeoutError when the elapsed time
// reached the configured budget; other failures pass through.
func (p *Pattern) classify(start time.Time, err error) error {
	if p.timeout > 0 && time.Since(start) >= p.timeout {
		return &TimeoutError{Template: p.Template, Location: p.Location, Timeout: p.timeout}
	}
	return err
}

// GroupNames returns the names of all capture groups, including groups
// written explicitly in the template alongside the placeholder-allocated
// ones.
func (p *Pattern) GroupNames() []string { return p.re.GetGroupNames() }

// Matches returns the number of successful matches over the pattern's life.
func (p *Pattern) Matches() int { return p.matches }

// Runs returns how many times the pattern was applied.
func (p *Pattern) Runs() int { return p.runs }

// Elapsed returns the total time spent matching.
func (p *Pattern) Elapsed() time.Duration { return p.elapsed }
