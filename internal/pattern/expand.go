// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pattern turns rule templates written in the placeholder language
// (%c, %C, %r, %s, %h, %n, %w, %m) into compiled matchers.
// Implements: prd001-patterns; docs/ARCHITECTURE § Pattern Layer.
//
// Placeholders stand for recurring LaTeX structure: bracket pairs, runs of
// white space, and command names. Bracket placeholders expand to patterns
// that match one extra nesting level per application; rules that must resolve
// arbitrary nesting are applied iteratively until fixpoint (see prd002-rules
// R3.2). Expansion is purely syntactic and idempotent: expanded text contains
// no placeholder tokens.
package pattern

import (
	"fmt"
	"strings"
)

// Expansions of the white-space and command-name placeholders.
//
// horizontalWS (%h) matches horizontal white space, including none.
// lineWS (%n) is %h plus at most one newline and any number of comment-only
// lines, so comments do not block adjacency matches.
// verticalWS (%w) is %n with unboundedly many newlines.
// macroName (%m) matches a command name: escape character followed by a run
// of letters, a single space, or any single character.
const (
	horizontalWS = `[ \t]*`
	lineWS       = `[ \t]*\n?[ \t]*(?:%[^\n]*\n[ \t]*)*`
	verticalWS   = `[ \t\n]*`
	macroName    = `\\(?>[a-zA-Z]+|\s|.)`
)

// bracketSet holds the sub-patterns for one bracket family. ob and cb match
// unescaped opening and closing brackets; nb matches any character that is
// neither.
type bracketSet struct {
	family byte
	ob     string
	cb     string
	nb     string
}

func newBracketSet(family byte, open, close string) bracketSet {
	ob := `(?<!\\)` + open
	cb := `(?<!\\)` + close
	return bracketSet{
		family: family,
		ob:     ob,
		cb:     cb,
		nb:     `(?>(?!` + ob + `)(?!` + cb + `)(?s:.))`,
	}
}

var (
	curly  = newBracketSet('c', `\{`, `\}`)
	round  = newBracketSet('r', `\(`, `\)`)
	square = newBracketSet('s', `\[`, `\]`)
)

// Group is a named capture group allocated during expansion.
type Group struct {
	// Name is the capture-group name, unique within the pattern.
	Name string

	// Family is the placeholder family that produced the group ('c', 'r' or
	// 's'), or 0 for helper groups and explicit overrides.
	Family byte
}

// Expansion is the result of expanding a template.
type Expansion struct {
	// Template is the pre-expansion text, kept for diagnostics.
	Template string

	// Expanded is the matcher source handed to the regexp engine.
	Expanded string

	// Groups lists the capture groups allocated by bracket placeholders, in
	// left-to-right order.
	Groups []Group
}

// expander carries the per-expansion group counters. %c and %C share the 'c'
// numbering sequence.
type expander struct {
	indices map[byte]int
	used    map[string]bool
	groups  []Group
}

// Expand rewrites every placeholder in template into its concrete
// sub-pattern, allocating capture-group names deterministically by
// left-to-right occurrence. An empty named group written directly after a
// bracket placeholder, such as %C(?P<myname>), overrides the default name
// for that occurrence without advancing the family counter. Expanding an
// already-expanded template is a no-op.
func Expand(template string) (Expansion, error) {
	e := &expander{
		indices: map[byte]int{'c': 0, 'r': 0, 's': 0},
		used:    map[string]bool{},
	}

	guarded, err := insertCommandGuards(template)
	if err != nil {
		return Expansion{}, err
	}

	var out strings.Builder
	src := guarded
	for i := 0; i < len(src); {
		if src[i] != '%' || i+1 >= len(src) {
			out.WriteByte(src[i])
			i++
			continue
		}
		p := src[i+1]
		switch p {
		case 'h':
			out.WriteString(horizontalWS)
			i += 2
		case 'n':
			out.WriteString(lineWS)
			i += 2
		case 'w':
			out.WriteString(verticalWS)
			i += 2
		case 'm':
			out.WriteString(macroName)
			i += 2
		case 'c', 'C', 'r', 's':
			rest := src[i+2:]
			name, consumed, err := e.groupName(p, rest)
			if err != nil {
				return Expansion{}, fmt.Errorf("template %q: %w", template, err)
			}
			var expanded string
			if p == 'C' {
				expanded, err = e.expandImplicitArg(name)
			} else {
				expanded, err = e.expandBrackets(bracketFor(p), name)
			}
			if err != nil {
				return Expansion{}, fmt.Errorf("template %q: %w", template, err)
			}
			out.WriteString(expanded)
			i += 2 + consumed
		default:
			// Literal percent sign (LaTeX comment character in patterns).
			out.WriteByte(src[i])
			i++
		}
	}

	return Expansion{
		Template: template,
		Expanded: out.String(),
		Groups:   e.groups,
	}, nil
}

func bracketFor(p byte) bracketSet {
	switch p {
	case 'r':
		return round
	case 's':
		return square
	}
	return curly
}

// groupName resolves the capture-group name for a bracket placeholder and
// reports how many bytes of an explicit override were consumed.
func (e *expander) groupName(placeholder byte, rest string) (string, int, error) {
	family := placeholder
	if family == 'C' {
		family = 'c'
	}
	if strings.HasPrefix(rest, "(?P<") {
		end := strings.Index(rest, ">)")
		if end < 0 {
			return "", 0, fmt.Errorf("mismatched group-name override after %%%c", placeholder)
		}
		name := rest[len("(?P<"):end]
		if name == "" || !isIdentifier(name) {
			return "", 0, fmt.Errorf("invalid group-name override %q after %%%c", rest[:end+2], placeholder)
		}
		return name, end + 2, nil
	}
	e.indices[family]++
	return fmt.Sprintf("%c%d", family, e.indices[family]), 0, nil
}

func (e *expander) claim(name string, family byte) error {
	if e.used[name] {
		return fmt.Errorf("duplicate capture group %q", name)
	}
	e.used[name] = true
	if family != 0 {
		e.groups = append(e.groups, Group{Name: name, Family: family})
	}
	return nil
}

// expandBrackets produces the matcher for %c, %r and %s: an unescaped
// bracket pair whose content may itself contain one balanced pair of the
// same family. Deeper nesting is resolved by iterative rule application.
func (e *expander) expandBrackets(b bracketSet, name string) (string, error) {
	if err := e.claim(name, b.family); err != nil {
		return "", err
	}
	content := `(?>(?:(?>` + b.nb + `+)|(?:` + b.ob + `(?>` + b.nb + `*)` + b.cb + `))*)`
	return `(?>` + lineWS + b.ob +
		`(?<` + name + `>` + content + `)` +
		b.cb + `)`, nil
}

// expandImplicitArg produces the matcher for %C: a curly-bracket pair, or an
// unbracketed command token, or an unbracketed single non-space character,
// mirroring the implicit one-token argument convention of LaTeX. A helper
// group records whether the opening bracket was present so the closing
// bracket is required only in the bracketed case.
func (e *expander) expandImplicitArg(name string) (string, error) {
	if err := e.claim(name, 'c'); err != nil {
		return "", err
	}
	helper := name + "_ob"
	if err := e.claim(helper, 0); err != nil {
		return "", err
	}
	b := curly
	content := `(?>(?:(?>` + b.nb + `+)|(?:` + b.ob + `(?>` + b.nb + `*)` + b.cb + `))*)`
	return `(?>` + lineWS +
		`(?<` + helper + `>` + b.ob + `)?` +
		`(?<` + name + `>` +
		`(?<=` + b.ob + `)` + content +
		`|(?<!` + b.ob + `)` + macroName +
		`|(?<!` + b.ob + `)(?![ \t\n])` + b.nb +
		`)` +
		`(?(` + helper + `)` + b.cb + `)` +
		`)`, nil
}

func isIdentifier(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return len(s) > 0
}
