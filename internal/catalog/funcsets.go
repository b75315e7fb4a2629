// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"fmt"
	"strings"

	"github.com/pdiddy/texplain/internal/pattern"
	"github.com/pdiddy/texplain/internal/rule"
	"github.com/pdiddy/texplain/pkg/types"
)

// functionSets returns the rule sets that need replacement functions and so
// cannot live in the embedded YAML files.
func functionSets() ([]Set, error) {
	hyperref, err := hyperrefSet()
	if err != nil {
		return nil, err
	}
	url, err := urlSet()
	if err != nil {
		return nil, err
	}
	drdc, err := drdcSet("drdc")
	if err != nil {
		return nil, err
	}
	drdcPlain, err := drdcSet("drdc-plain")
	if err != nil {
		return nil, err
	}
	return []Set{hyperref, cleverefSet(), url, drdc, drdcPlain}, nil
}

// balancedValue returns the content of the leading balanced-brace group of
// raw, or "" when the braces never close.
func balancedValue(raw string) string {
	levels := 0
	for i, r := range raw {
		switch r {
		case '{':
			levels++
		case '}':
			levels--
		}
		if levels == 0 {
			return raw[1:i]
		}
	}
	return ""
}

// keyValue compiles a rule that reduces a key-value list to the value of one
// key, or to "" when the key is absent. Brace-balanced values of any depth
// are handled by a scan over the bracketed tail.
func keyValue(key string) (*rule.Rule, error) {
	pat := fmt.Sprintf(
		`(?s)\A(?>(?:(?!(?<![a-zA-Z])%[1]s%%n=).)*)`+
			`(?:%[1]s%%n=%%n`+
			`(?:%%c`+
			`|(?<unbracketed>(?!\{)(?>(?:(?![ \t\n]*(?:,|\z)).)*))`+
			`|(?<bracketed>(?=\{)(?>.*))))?`+
			`(?>.*)`, key)
	return rule.Compile(rule.Spec{
		Pattern: pat,
		Func: func(m *pattern.Match) string {
			if v := m.Group("c1"); v != "" {
				return v
			}
			if v := m.Group("unbracketed"); v != "" {
				return v
			}
			return balancedValue(m.Group("bracketed"))
		},
		Phase:      types.PhaseMain,
		Provenance: types.ProvenanceBuiltin,
		Location:   types.Location{File: "package/hyperref"},
	}, types.DefaultTimeout)
}

func hyperrefSet() (Set, error) {
	b := specBuilder{file: "package/hyperref"}

	// \hypersetup metadata values are proofread too: each known key becomes
	// its own paragraph.
	keys := []string{
		"pdftitle", "pdfauthor", "pdfsubject", "pdfkeywords",
		"pdfproducer", "pdfcopyright", "pdflicenseurl",
	}
	valueRules := make([]*rule.Rule, 0, len(keys))
	for _, key := range keys {
		r, err := keyValue(key)
		if err != nil {
			return Set{}, err
		}
		valueRules = append(valueRules, r)
	}

	hypersetup := b.fn(types.PhaseMain, `\\hypersetup%C`, func(m *pattern.Match) string {
		var values []string
		for _, r := range valueRules {
			v, _, err := r.Apply(m.Group("c1"), 1)
			if err == nil && v != "" {
				values = append(values, v)
			}
		}
		return "\n" + strings.Join(values, "\n\n") + "\n"
	})

	return Set{
		Name: "hyperref",
		Kind: KindPackage,
		Specs: []rule.Spec{
			b.tmpl(types.PhaseMain, `\\pdfbookmark%s?%c%c`, `\g<c1>`),
			hypersetup,
			b.tmpl(types.PhaseMain, `\\texorpdfstring%C%C`, `\n\g<c1>\n\n\g<c2>\n`),
			b.tmpl(types.PhaseMain, `\\ref\*%C`, `\\ref{\g<c1>}`),
			b.tmpl(types.PhaseMain, `\\pageref\*%C`, `\\pageref{\g<c1>}`),
			b.tmpl(types.PhaseMain, `\\href%s?%c%c`, `\g<c2>`),
			b.tmpl(types.PhaseMain, `\\autoref\*?%C`, `X`),
			b.tmpl(types.PhaseMain, `\\autopageref\*?%C`, `X`),
		},
	}, nil
}

// crossRef returns an evaluator rewriting a cross-reference command to plain
// words plus \ref or \pageref commands resolved by later passes. A comma in
// the argument means a multi-reference.
func crossRef(singular, plural, cmd string) pattern.Evaluator {
	return func(m *pattern.Match) string {
		c1 := m.Group("c1")
		if strings.Contains(c1, ",") {
			return fmt.Sprintf(`%s \%s{%s} and \%s{%s}`, plural, cmd, c1, cmd, c1)
		}
		return fmt.Sprintf(`%s \%s{%s}`, singular, cmd, c1)
	}
}

func cleverefSet() Set {
	b := specBuilder{file: "package/cleveref"}

	labelRef := b.fn(types.PhaseMain, `\\labelc(?<kind>page|)ref\*?%C`,
		func(m *pattern.Match) string {
			kind, c1 := m.Group("kind"), m.Group("c1")
			if strings.Contains(c1, ",") {
				return fmt.Sprintf(`\%[1]sref{%[2]s} and \%[1]sref{%[2]s}`, kind, c1)
			}
			return fmt.Sprintf(`\%sref{%s}`, kind, c1)
		})

	return Set{
		Name: "cleveref",
		Kind: KindPackage,
		Specs: []rule.Spec{
			b.fn(types.PhaseMain, `\\cref\*?%C`, crossRef("reference", "references", "ref")),
			b.fn(types.PhaseMain, `\\Cref\*?%C`, crossRef("Reference", "References", "ref")),
			b.tmpl(types.PhaseMain, `\\crefrange\*?%C%C`,
				`references \\ref{\g<c1>} to \\ref{\g<c2>}`),
			b.tmpl(types.PhaseMain, `\\Crefrange\*?%C%C`,
				`References \\ref{\g<c1>} to \\ref{\g<c2>}`),
			b.fn(types.PhaseMain, `\\cpageref\*?%C`, crossRef("page", "pages", "pageref")),
			b.fn(types.PhaseMain, `\\Cpageref\*?%C`, crossRef("Page", "Pages", "pageref")),
			b.tmpl(types.PhaseMain, `\\cpagerefrange\*?%C%C`,
				`pages \\pageref{\g<c1>} to \\pageref{\g<c2>}`),
			b.tmpl(types.PhaseMain, `\\Cpagerefrange\*?%C%C`,
				`Pages \\pageref{\g<c1>} to \\pageref{\g<c2>}`),
			b.tmpl(types.PhaseMain, `\\(?:lc)?namecref%C`, `reference`),
			b.tmpl(types.PhaseMain, `\\nameCref%C`, `Reference`),
			b.tmpl(types.PhaseMain, `\\(?:lc)?namecrefs%C`, `references`),
			b.tmpl(types.PhaseMain, `\\nameCrefs%C`, `References`),
			labelRef,
			b.tmpl(types.PhaseMain, `\\crefalias%C%C`, ``),
			b.tmpl(types.PhaseMain, `\\crefname%C%C%C`, ``),
			b.tmpl(types.PhaseMain, `\\label%s%c`, `\\label{\g<c1>}`),
		},
	}
}

// urlSet rewrites \url commands in the removal phase, before comments are
// stripped, because URLs routinely contain % characters. The percents are
// escaped so the comment rules leave them alone.
func urlSet() (Set, error) {
	b := specBuilder{file: "package/url"}

	escape, err := rule.Compile(rule.Spec{
		Pattern:    pattern.NotEscaped + `%`,
		Replace:    `\\%`,
		Phase:      types.PhaseRemoval,
		Provenance: types.ProvenanceBuiltin,
		Location:   types.Location{File: "package/url"},
	}, types.DefaultTimeout)
	if err != nil {
		return Set{}, err
	}
	escaped := func(s string) string {
		out, _, err := escape.Apply(s, 1)
		if err != nil {
			return s
		}
		return out
	}

	return Set{
		Name: "url",
		Kind: KindPackage,
		Specs: []rule.Spec{
			b.fn(types.PhaseRemoval, `\\url%c`, func(m *pattern.Match) string {
				return escaped(m.Group("c1"))
			}),
			b.fn(types.PhaseRemoval,
				`\\url(?![a-zA-Z])(?>\s*)(?<delim>.)(?<url>(?s:.*?))\k<delim>`,
				func(m *pattern.Match) string {
					return escaped(m.Group("url"))
				}),
			b.tmpl(types.PhaseMain, `\\urlstyle%C`, ``),
		},
	}, nil
}

// drdcSet covers the drdc bibliography styles, which define a handful of
// words as commands. The \url rules are repeated because the style provides
// the command when the package is absent.
func drdcSet(name string) (Set, error) {
	b := specBuilder{file: "style/" + name}

	url, err := urlSet()
	if err != nil {
		return Set{}, err
	}

	months := []string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	}
	numToMonth := b.fn(types.PhaseMain, `\\numtomonth%C`, func(m *pattern.Match) string {
		var n int
		if _, err := fmt.Sscanf(m.Group("c1"), "%d", &n); err != nil || n < 1 || n > 12 {
			return m.Group("c1")
		}
		return months[n-1]
	})

	specs := []rule.Spec{
		b.tmpl(types.PhaseMain, `\\in`, `in`),
		b.tmpl(types.PhaseMain, `\\In`, `In`),
		b.tmpl(types.PhaseMain, `\\of`, `of`),
		b.tmpl(types.PhaseMain, `\\and`, `and`),
		b.tmpl(types.PhaseMain, `\\online`, `online`),
		b.tmpl(types.PhaseMain, `\\accessdate`, `Access Date`),
		b.tmpl(types.PhaseMain, `\\masters`, `Master's thesis`),
		b.tmpl(types.PhaseMain, `\\phd`, `Ph.D. thesis`),
		b.tmpl(types.PhaseMain, `\\U`, ``),
		numToMonth,
	}
	specs = append(specs, url.Specs...)

	return Set{Name: name, Kind: KindStyle, Specs: specs}, nil
}
