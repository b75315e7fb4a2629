// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scan

import (
	"fmt"
	"strings"

	"github.com/pdiddy/texplain/internal/rule"
	"github.com/pdiddy/texplain/pkg/types"
)

// synthesize turns the collected definitions into auto-generated rule specs.
// Definitions whose bodies cannot be rendered as replacements warn and are
// skipped; the document is still processed with the remaining rules.
func (s *Scanner) synthesize(rep *Report) {
	for _, def := range rep.Definitions {
		var specs []rule.Spec
		var err error
		switch def.Kind {
		case DefCommand:
			specs, err = s.commandRules(def)
		case DefEnvironment:
			specs, err = s.environmentRules(def)
		case DefCounter:
			specs = s.counterRules(def)
		}
		if err != nil {
			rep.warn(def.Location, "skipping %s %q: %v", def.Kind, def.Name, err)
			continue
		}
		rep.AutoRules = append(rep.AutoRules, specs...)
	}
}

// commandRules builds the substitution rules for one defined command.
//
// Without an optional argument the pattern is the command name followed by
// one %C per argument. With an optional argument whose default is empty, a
// single rule with %s? covers both call forms. A non-empty default needs two
// rules: one for calls that pass the bracket, one substituting the default,
// in that order so the more specific pattern wins.
func (s *Scanner) commandRules(def Definition) ([]rule.Spec, error) {
	name := `\\` + def.Name
	phase := s.policy[DefCommand]

	if !def.HasOpt {
		repl, err := interpolate(def.Body, def.Arity, func(k int) string {
			return fmt.Sprintf(`\g<c%d>`, k)
		})
		if err != nil {
			return nil, err
		}
		return []rule.Spec{s.autoSpec(name+strings.Repeat("%C", def.Arity), repl, phase, def.Location)}, nil
	}

	groupFor := func(k int) string {
		if k == 1 {
			return `\g<s1>`
		}
		return fmt.Sprintf(`\g<c%d>`, k-1)
	}

	if def.Default == "" {
		repl, err := interpolate(def.Body, def.Arity, groupFor)
		if err != nil {
			return nil, err
		}
		return []rule.Spec{s.autoSpec(name+"%s?"+strings.Repeat("%C", def.Arity-1), repl, phase, def.Location)}, nil
	}

	withOpt, err := interpolate(def.Body, def.Arity, groupFor)
	if err != nil {
		return nil, err
	}
	defaulted, err := interpolate(def.Body, def.Arity, func(k int) string {
		if k == 1 {
			return escapeReplacement(def.Default)
		}
		return fmt.Sprintf(`\g<c%d>`, k-1)
	})
	if err != nil {
		return nil, err
	}
	return []rule.Spec{
		s.autoSpec(name+"%s"+strings.Repeat("%C", def.Arity-1), withOpt, phase, def.Location),
		s.autoSpec(name+strings.Repeat("%C", def.Arity-1), defaulted, phase, def.Location),
	}, nil
}

// environmentRules builds the \begin and \end rules for one defined
// environment. Arguments attach to \begin; the end body takes none.
func (s *Scanner) environmentRules(def Definition) ([]rule.Spec, error) {
	phase := s.policy[DefEnvironment]
	begin := `\\begin%n\{` + quoteName(def.Name) + `\}`
	end := `\\end%n\{` + quoteName(def.Name) + `\}`

	var specs []rule.Spec
	switch {
	case !def.HasOpt:
		repl, err := interpolate(def.Body, def.Arity, func(k int) string {
			return fmt.Sprintf(`\g<c%d>`, k)
		})
		if err != nil {
			return nil, err
		}
		specs = append(specs, s.autoSpec(begin+strings.Repeat("%C", def.Arity), repl, phase, def.Location))
	case def.Default == "":
		repl, err := interpolate(def.Body, def.Arity, func(k int) string {
			if k == 1 {
				return `\g<s1>`
			}
			return fmt.Sprintf(`\g<c%d>`, k-1)
		})
		if err != nil {
			return nil, err
		}
		specs = append(specs, s.autoSpec(begin+"%s?"+strings.Repeat("%C", def.Arity-1), repl, phase, def.Location))
	default:
		withOpt, err := interpolate(def.Body, def.Arity, func(k int) string {
			if k == 1 {
				return `\g<s1>`
			}
			return fmt.Sprintf(`\g<c%d>`, k-1)
		})
		if err != nil {
			return nil, err
		}
		defaulted, err := interpolate(def.Body, def.Arity, func(k int) string {
			if k == 1 {
				return escapeReplacement(def.Default)
			}
			return fmt.Sprintf(`\g<c%d>`, k-1)
		})
		if err != nil {
			return nil, err
		}
		specs = append(specs,
			s.autoSpec(begin+"%s"+strings.Repeat("%C", def.Arity-1), withOpt, phase, def.Location),
			s.autoSpec(begin+strings.Repeat("%C", def.Arity-1), defaulted, phase, def.Location),
		)
	}

	endRepl, err := interpolate(def.EndBody, 0, nil)
	if err != nil {
		return nil, err
	}
	specs = append(specs, s.autoSpec(end, endRepl, phase, def.Location))
	return specs, nil
}

// counterRules replaces \the<name> with a plausible number so sentences that
// print counters still read as sentences.
func (s *Scanner) counterRules(def Definition) []rule.Spec {
	return []rule.Spec{
		s.autoSpec(`\\the`+def.Name, "X", s.policy[DefCounter], def.Location),
	}
}

func (s *Scanner) autoSpec(pat, repl string, phase types.Phase, loc types.Location) rule.Spec {
	return rule.Spec{
		Pattern:    pat,
		Replace:    repl,
		Flags:      defaultGuards,
		Phase:      phase,
		Provenance: types.ProvenanceAuto,
		Location:   loc,
	}
}

// interpolate renders a definition body as a replacement template:
// backslashes are escaped so the body text passes through verbatim, then
// every #k parameter marker is replaced by sub(k). ## collapses to a
// literal #. Parameters beyond arity are an error.
func interpolate(body string, arity int, sub func(k int) string) (string, error) {
	escaped := escapeReplacement(body)
	var out strings.Builder
	for i := 0; i < len(escaped); {
		c := escaped[i]
		if c != '#' {
			out.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(escaped) && escaped[i+1] == '#' {
			out.WriteByte('#')
			i += 2
			continue
		}
		if i+1 < len(escaped) && escaped[i+1] >= '1' && escaped[i+1] <= '9' {
			k := int(escaped[i+1] - '0')
			if k > arity || sub == nil {
				return "", fmt.Errorf("body references argument #%d but only %d are declared", k, arity)
			}
			out.WriteString(sub(k))
			i += 2
			continue
		}
		out.WriteByte(c)
		i++
	}
	return out.String(), nil
}

func escapeReplacement(s string) string {
	return strings.ReplaceAll(s, `\`, `\\`)
}

// quoteName escapes regex metacharacters in an environment name, which may
// carry a starred variant like equation*.
func quoteName(name string) string {
	var out strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			out.WriteByte(c)
			continue
		}
		out.WriteByte('\\')
		out.WriteByte(c)
	}
	return out.String()
}
