// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rule

import (
	"fmt"
	"strings"

	"github.com/pdiddy/texplain/internal/pattern"
)

// Replacement is a parsed replacement template. The template language is
// deliberately small: literal text, \g<name> group references, and the
// escapes \n, \t and \\. Everything else, including $ and group digits,
// is literal, so LaTeX-flavored replacements never collide with matcher
// metacharacters. Per prd002-rules R3.1-R3.3.
type Replacement struct {
	source string
	parts  []replPart
}

type replPart struct {
	literal string
	group   string // set for a \g<name> reference
}

// ParseReplacement parses a replacement template. Numeric group references
// are rejected: replacements must name the group they read so that rules
// stay valid when their patterns gain or lose groups.
func ParseReplacement(template string) (*Replacement, error) {
	r := &Replacement{source: template}
	var lit strings.Builder
	i := 0
	for i < len(template) {
		c := template[i]
		if c != '\\' {
			lit.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(template) {
			return nil, fmt.Errorf("replacement %q: trailing backslash", template)
		}
		switch template[i+1] {
		case '\\':
			lit.WriteByte('\\')
			i += 2
		case 'n':
			lit.WriteByte('\n')
			i += 2
		case 't':
			lit.WriteByte('\t')
			i += 2
		case 'g':
			if i+2 >= len(template) || template[i+2] != '<' {
				return nil, fmt.Errorf("replacement %q: \\g must be followed by <name>", template)
			}
			end := strings.IndexByte(template[i+3:], '>')
			if end < 0 {
				return nil, fmt.Errorf("replacement %q: unterminated group reference", template)
			}
			name := template[i+3 : i+3+end]
			if name == "" {
				return nil, fmt.Errorf("replacement %q: empty group reference", template)
			}
			if isDigits(name) {
				return nil, fmt.Errorf("replacement %q: numeric group reference \\g<%s>; references must be named", template, name)
			}
			if lit.Len() > 0 {
				r.parts = append(r.parts, replPart{literal: lit.String()})
				lit.Reset()
			}
			r.parts = append(r.parts, replPart{group: name})
			i += 3 + end + 1
		default:
			if template[i+1] >= '0' && template[i+1] <= '9' {
				return nil, fmt.Errorf("replacement %q: numeric group reference \\%c; references must be named", template, template[i+1])
			}
			// Unknown escapes pass through verbatim so rule authors can
			// write \alpha without doubling the backslash.
			lit.WriteByte('\\')
			lit.WriteByte(template[i+1])
			i += 2
		}
	}
	if lit.Len() > 0 {
		r.parts = append(r.parts, replPart{literal: lit.String()})
	}
	return r, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Groups lists the group names the replacement reads.
func (r *Replacement) Groups() []string {
	var names []string
	for _, p := range r.parts {
		if p.group != "" {
			names = append(names, p.group)
		}
	}
	return names
}

// Source returns the unparsed template.
func (r *Replacement) Source() string { return r.source }

// Eval renders the replacement for one match. Groups that did not
// participate render as "".
func (r *Replacement) Eval(m *pattern.Match) string {
	var b strings.Builder
	for _, p := range r.parts {
		if p.group != "" {
			b.WriteString(m.Group(p.group))
		} else {
			b.WriteString(p.literal)
		}
	}
	return b.String()
}
