// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/texplain/internal/pattern"
	"github.com/pdiddy/texplain/internal/rule"
	"github.com/pdiddy/texplain/pkg/types"
)

// specBuilder stamps specs with their defining rule-set name, which shows up
// in the per-rule match table.
type specBuilder struct{ file string }

func (b specBuilder) tmpl(phase types.Phase, pat, repl string) rule.Spec {
	return rule.Spec{
		Pattern:    pat,
		Replace:    repl,
		Phase:      phase,
		Provenance: types.ProvenanceBuiltin,
		Location:   types.Location{File: b.file},
	}
}

func (b specBuilder) iter(phase types.Phase, pat, repl string) rule.Spec {
	s := b.tmpl(phase, pat, repl)
	s.Iterative = true
	return s
}

func (b specBuilder) fn(phase types.Phase, pat string, f pattern.Evaluator) rule.Spec {
	return rule.Spec{
		Pattern:    pat,
		Func:       f,
		Phase:      phase,
		Provenance: types.ProvenanceBuiltin,
		Location:   types.Location{File: b.file},
	}
}

// addDiacritic composes the combining mark with the first character of s and
// drops the rest, NFKC-normalized so the result is the precomposed letter
// when one exists.
func addDiacritic(s string, mark rune) string {
	r := []rune(s)
	if len(r) == 0 {
		return ""
	}
	return norm.NFKC.String(string(r[0]) + string(mark))
}

// addDiacriticKeep is addDiacritic for accents that apply to the first
// character while keeping the following ones.
func addDiacriticKeep(s string, mark rune) string {
	r := []rune(s)
	if len(r) == 0 {
		return ""
	}
	return norm.NFKC.String(string(r[0])+string(mark)) + string(r[1:])
}

// accent returns an evaluator adding mark to the first character of the c1
// argument.
func accent(mark rune) pattern.Evaluator {
	return func(m *pattern.Match) string {
		return addDiacritic(m.Group("c1"), mark)
	}
}

func accentKeep(mark rune) pattern.Evaluator {
	return func(m *pattern.Match) string {
		return addDiacriticKeep(m.Group("c1"), mark)
	}
}

// compileAll compiles helper rules used inside replacement functions.
func compileAll(specs []rule.Spec) ([]*rule.Rule, error) {
	rules := make([]*rule.Rule, 0, len(specs))
	for _, s := range specs {
		r, err := rule.Compile(s, types.DefaultTimeout)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// applyAll runs helper rules over a fragment in order. Helper rules operate
// on already-matched text, so failures only leave the fragment unchanged.
func applyAll(rules []*rule.Rule, text string) string {
	for _, r := range rules {
		out, _, err := r.Apply(text, types.DefaultMaxIterations)
		if err == nil {
			text = out
		}
	}
	return text
}

// coreSpecs builds the core rule program: removal, setup, main and cleanup
// phase rules, plus the brace-peel list the main loop alternates with.
func coreSpecs() (core []rule.Spec, peel []rule.Spec, err error) {
	b := specBuilder{file: "core"}

	removal, err := coreRemoval(b)
	if err != nil {
		return nil, nil, err
	}
	setup, err := coreSetup(b)
	if err != nil {
		return nil, nil, err
	}
	main := coreMain(b)
	cleanup := coreCleanup(b)

	core = append(core, removal...)
	core = append(core, setup...)
	core = append(core, main...)
	core = append(core, cleanup...)
	return core, bracePeel(b), nil
}

// coreRemoval returns the rules that strip verbatim text, comments and math
// before anything else runs. Math becomes $$ placeholders so later rules
// cannot inject text into formulas; a trailing number keeps sentences with
// inline math grammatical.
func coreRemoval(b specBuilder) ([]rule.Spec, error) {
	// \verb commands and verbatim environments collapse to ||. Environments
	// from other packages are first renamed to \begin[name]{verbatim} so one
	// rule handles them all. Comments are matched and kept so a % inside
	// verbatim text is not read as a comment, and vice versa.
	verbatim := b.fn(types.PhaseRemoval,
		`(?:(?<comment>%(?>[^\n]*))`+
			`|(?<verb>\\verb(?![a-zA-Z])%h(?<delim>.)(?>(?:(?!\k<delim>).)*)\k<delim>)`+
			`|(?<verbatim>\\begin%s\{verbatim\}(?s:(?>(?:(?!\\end\{\k<s1>\}).)*))\\end\{\k<s1>\}))`,
		func(m *pattern.Match) string {
			switch {
			case m.Present("comment"):
				return m.Group("comment")
			case m.Present("verb"):
				return "||"
			}
			return ""
		})
	verbatim.Flags = pattern.Flags{NotEscaped: true}

	// Displayed equations collapse to $$, keeping any final punctuation so
	// the surrounding sentence still parses.
	equation := b.fn(types.PhaseRemoval,
		`(?s)\\begin\{(?<env>equation\*?)\}`+
			`(?:(?!\\end\{\k<env>\})(?:\}|\\end%C|\\label%C|\\[,.:;!?]|%w|(?<last>.)))*`+
			`\\end\{\k<env>\}`,
		func(m *pattern.Match) string {
			if last := m.Group("last"); strings.ContainsAny(last, ",.:;!?") {
				return "$$" + last
			}
			return "$$"
		})

	return []rule.Spec{
		b.tmpl(types.PhaseRemoval, `\\begin\{verbatim\}`, `\\begin[verbatim]{verbatim}`),
		verbatim,
		// Comment-only lines disappear; an end-of-line comment followed by a
		// blank line keeps the paragraph break; other end-of-line comments
		// wrap the line up.
		b.tmpl(types.PhaseRemoval, `^%h`+pattern.NotEscaped+`%[^\n]*\n`, ``),
		b.tmpl(types.PhaseRemoval, pattern.NotEscaped+`%[^\n]*\n%h\n`, `\n\n`),
		b.tmpl(types.PhaseRemoval, pattern.NotEscaped+`%[^\n]*%n`, ``),
		b.tmpl(types.PhaseRemoval, `(?s)\\makeatletter.*?\\makeatother`, ``),
		// Normalize the math delimiters to $...$ pairs, then collapse.
		b.tmpl(types.PhaseRemoval, `\$\$`, `$`),
		b.tmpl(types.PhaseRemoval, `\\[()]`, `$`),
		b.tmpl(types.PhaseRemoval, `\\(?:begin|end)\{math\}`, `$`),
		b.tmpl(types.PhaseRemoval, `\\\[`, `\\begin{equation}`),
		b.tmpl(types.PhaseRemoval, `\\\]`, `\\end{equation}`),
		b.tmpl(types.PhaseRemoval, `\\begin\{eqnarray\}`, `\\begin{equation}`),
		b.tmpl(types.PhaseRemoval, `\\end\{eqnarray\}`, `\\end{equation}`),
		b.tmpl(types.PhaseRemoval,
			pattern.NotEscaped+`(?<!\$)\$(?>(?:\\\$|[^$])+)`+pattern.NotEscaped+`\$`, `$$`),
		equation,
		b.tmpl(types.PhaseRemoval, `\\ensuremath%C`, `$$`),
		// A formula right before letters reads as a number.
		b.tmpl(types.PhaseRemoval, `\$\$(?=\\?[^\W\d])`, `124`),
	}, nil
}

// coreSetup returns accent, symbol and spacing normalization plus the
// declaration cleanup that runs once the scanner has read the definitions.
func coreSetup(b specBuilder) ([]rule.Spec, error) {
	// The tabbing environment has its own command set; its content is
	// rewritten with a dedicated sub-rule list.
	tabRules, err := compileAll([]rule.Spec{
		b.tmpl(0, `(?s)(?:\A|(?<!\\\\))(?>(?:(?!\\kill).)*)\\kill`, ``),
		b.tmpl(0, `\\\\`, `\n\n`),
		b.tmpl(0, `\\=`, ``),
		b.tmpl(0, `\\>`, `\n\n`),
		b.tmpl(0, `\\<`, ``),
		b.tmpl(0, `\\\+`, ``),
		b.tmpl(0, `\\-`, ``),
		b.tmpl(0, `\\'`, `\n\n`),
		b.tmpl(0, "\\\\`", `\n\n`),
		b.tmpl(0, `\\(?:push|pop)tabs`, ``),
	})
	if err != nil {
		return nil, err
	}

	tabbing := b.fn(types.PhaseSetup,
		`(?s)\\begin\{tabbing\}(?<body>(?>(?:(?!\\end\{tabbing\}).)*))\\end\{tabbing\}`,
		func(m *pattern.Match) string {
			return "\n" + applyAll(tabRules, m.Group("body")) + "\n"
		})

	return []rule.Spec{
		tabbing,
		// Accents. \a produces a regular accent command now that tabbing is
		// out of the way; the special-letter commands compose directly.
		b.tmpl(types.PhaseSetup, `\\a%C%C`, `\\\g<c1>{\g<c2>}`),
		b.tmpl(types.PhaseSetup, `\\o`, `ø`),
		b.tmpl(types.PhaseSetup, `\\i`, `i`),
		b.tmpl(types.PhaseSetup, `\\l`, `ł`),
		b.fn(types.PhaseSetup, "\\\\`%C", accent('\u0300')),
		b.fn(types.PhaseSetup, `\\'%C`, accent('\u0301')),
		b.fn(types.PhaseSetup, `\\"%C`, accent('\u0308')),
		b.fn(types.PhaseSetup, `\\H%C`, accent('\u030B')),
		b.fn(types.PhaseSetup, `\\c%C`, accent('\u0327')),
		b.fn(types.PhaseSetup, `\\k%C`, accent('\u0328')),
		b.fn(types.PhaseSetup, `\\v%C`, accent('\u030C')),
		b.fn(types.PhaseSetup, `\\r%C`, accent('\u030A')),
		b.fn(types.PhaseSetup, `\\aa`, func(*pattern.Match) string {
			return addDiacritic("a", '\u030A')
		}),
		b.fn(types.PhaseSetup, `\\=%C`, accentKeep('\u0304')),
		b.fn(types.PhaseSetup, `\\\.%C`, accentKeep('\u0307')),
		b.fn(types.PhaseSetup, `\\u%C`, accentKeep('\u0306')),
		b.fn(types.PhaseSetup, `\\d%C`, accentKeep('\u0323')),
		// Line breaks and spacing.
		b.tmpl(types.PhaseSetup, `\\\\`, `\n`),
		b.tmpl(types.PhaseSetup, `\\tabularnewline`, `\n`),
		b.tmpl(types.PhaseSetup, "\t", ` `),
		b.tmpl(types.PhaseSetup, `\\newblock`, ` `),
		// Symbols and punctuation.
		b.tmpl(types.PhaseSetup, `\\LaTeX`, `LaTeX`),
		b.tmpl(types.PhaseSetup, `\\ldots`, `…`),
		b.tmpl(types.PhaseSetup, "``", `"`),
		b.tmpl(types.PhaseSetup, `''`, `"`),
		b.tmpl(types.PhaseSetup, "`", `'`),
		b.tmpl(types.PhaseSetup, `---`, `—`),
		b.tmpl(types.PhaseSetup, `--`, `–`),
		b.tmpl(types.PhaseSetup, `\\textemdash`, `—`),
		b.tmpl(types.PhaseSetup, `\\textendash`, `–`),
		b.tmpl(types.PhaseSetup, `\\textcopyright`, `©`),
		b.tmpl(types.PhaseSetup, `\\textregistered`, `®`),
		b.tmpl(types.PhaseSetup, `\\texttrademark`, `™`),
		b.tmpl(types.PhaseSetup, `\\-`, ``),
		// Explicit spaces; negative spaces vanish.
		b.tmpl(types.PhaseSetup, `\\[,>:;]`, `\\ `),
		b.tmpl(types.PhaseSetup, `\\(?:thin|med|thick)space`, `\\ `),
		b.tmpl(types.PhaseSetup, `\\q?quad`, `\\ `),
		b.tmpl(types.PhaseSetup, `\\!`, ``),
		b.tmpl(types.PhaseSetup, `\\neg(?:thin|med|thick)space`, ``),
		// Font and alignment switches carry no text.
		b.tmpl(types.PhaseSetup, `\\(?:Huge|huge|LARGE|Large|large|normalsize)`, ``),
		b.tmpl(types.PhaseSetup, `\\(?:small|footnotesize|scriptsize|tiny)`, ``),
		b.tmpl(types.PhaseSetup, `\\centering`, ``),
		b.tmpl(types.PhaseSetup, `\\ragged(?:left|right)`, ``),
		b.tmpl(types.PhaseSetup, `\\(?:no)?indent`, ``),
		// Standard counters.
		b.tmpl(types.PhaseSetup, `\\the(?:part|chapter|section|subsection|subsubsection)`, `X`),
		b.tmpl(types.PhaseSetup, `\\the(?:paragraph|subparagraph|figure|table)`, `X`),
		b.tmpl(types.PhaseSetup, `\\the(?:footnote|mpfootnote|enumi|enumii|enumiii|enumiv)`, `X`),
		b.tmpl(types.PhaseSetup, `\\the(?:page|equation)`, `X`),
		// Ligatures.
		b.tmpl(types.PhaseSetup, `ﬀ`, `ff`),
		b.tmpl(types.PhaseSetup, `ﬁ`, `fi`),
		b.tmpl(types.PhaseSetup, `ﬂ`, `fl`),
		b.tmpl(types.PhaseSetup, `ﬃ`, `ffi`),
		b.tmpl(types.PhaseSetup, `ﬄ`, `ffl`),
		// Drop macro declarations once the scanner has read them. This runs
		// after the accent rules so accented defaults survive, and before
		// main so auto-generated rules never match inside a definition body.
		b.tmpl(types.PhaseSetup, `\\(?:new|renew|provide)command\*?%n(?:%c|\\[a-zA-Z]+)%n(?:%s%n)?(?:%s%n)?%c`, ``),
		b.tmpl(types.PhaseSetup, `\\[egx]?def%n\\(?:[a-zA-Z]+|.)[^{\n]*%c`, ``),
		b.tmpl(types.PhaseSetup, `\\(?:re)?newenvironment\*?%n%c%n(?:%s%n)?(?:%s%n)?%c%n%c`, ``),
		b.tmpl(types.PhaseSetup, `\\newcounter%n%c(?:%n%s)?`, ``),
	}, nil
}

// coreMain returns the main document-structure rules.
func coreMain(b specBuilder) []rule.Spec {
	item := b.fn(types.PhaseMain, `\\item%s`, func(m *pattern.Match) string {
		s := "-" + m.Group("s1") + ":"
		if n := len(s); n >= 2 && strings.ContainsAny(s[n-2:n-1], ".,:;!?") {
			s = s[:n-1]
		}
		return s + " "
	})

	footnote := b.fn(types.PhaseMain,
		`(?s)\\footnote(?:text)?%s?%c(?<rest_of_para>.*?)\n%h\n`,
		func(m *pattern.Match) string {
			return fmt.Sprintf("%s (%s)\n\n", m.Group("rest_of_para"), strings.TrimSpace(m.Group("c1")))
		})
	footnote.Iterative = true

	return []rule.Spec{
		// Preamble.
		b.tmpl(types.PhaseMain, `\\documentclass%s?%c`, ``),
		b.tmpl(types.PhaseMain, `\\usepackage%s?%c%s?`, ``),
		b.tmpl(types.PhaseMain, `\\RequirePackage%s?%c%s?`, ``),
		b.tmpl(types.PhaseMain, `\\PassOptionsToPackage%C%C`, ``),
		b.tmpl(types.PhaseMain, `\\title%C`, `\n\g<c1>\n`),
		b.tmpl(types.PhaseMain, `\\author%C`, `\n\g<c1>\n`),
		b.tmpl(types.PhaseMain, `\\hyphenation%C`, ``),
		// Sections.
		b.tmpl(types.PhaseMain,
			`\\(?:part|chapter|section|subsection|subsubsection|paragraph|subparagraph)\*?%s?%c`,
			`\n\g<s1>\n\n\g<c1>\n`),
		b.tmpl(types.PhaseMain, `\\addtocontents%C%C`, `\n\g<c2>\n`),
		// Floats move to their own paragraph, one at a time from the end of
		// the paragraph.
		b.iter(types.PhaseMain,
			`(?s)\\begin\{(?<env>figure|table)\}%s?`+
				`(?<float>(?>(?:(?!\\end\{\k<env>\}).)*))`+
				`\\end\{\k<env>\}%h\n?`+
				`(?<para>(?>(?:(?!(?<=\n)%h\n)(?!\\begin\{(?:figure|table)\}).)*))`+
				`(?<=\n)%h\n`,
			`\g<para>\n\g<float>\n\n`),
		b.tmpl(types.PhaseMain, `\\caption%s?%c`, `\n\g<s1>\n\n\g<c1>\n`),
		// Footnotes and friends end up in parentheses at the end of the
		// paragraph.
		b.tmpl(types.PhaseMain, `(?s)\\marginpar%s%C`, `\\marginpar{\g<s1>}\\marginpar{\g<c1>}`),
		b.tmpl(types.PhaseMain, `(?s)\\marginpar%C`, `\\footnote{\g<c1>}`),
		b.tmpl(types.PhaseMain, `(?s)\\thanks%C`, `\\footnote{\g<c1>}`),
		footnote,
		b.tmpl(types.PhaseMain, `\\footnotemark%s?`, ``),
		// Lists. An optional argument becomes a dash heading with a colon,
		// unless it already ends in punctuation or is empty.
		b.tmpl(types.PhaseMain, `\\item\[\]%w`, `-`),
		item,
		b.tmpl(types.PhaseMain, `\\item%w `, `-`),
		// Tabular.
		b.tmpl(types.PhaseMain, `\\multicolumn%C%C%C`, `\g<c3>`),
		// References.
		b.tmpl(types.PhaseMain, `\\bibliographystyle%C`, ``),
		b.tmpl(types.PhaseMain, `\\bibitem%s?%c`, `\n[X]: `),
		b.tmpl(types.PhaseMain, `\\cite%s%C`, `[X, \g<s1>]`),
		b.tmpl(types.PhaseMain, `\\cite%C`, `[X]`),
		b.tmpl(types.PhaseMain, `\\label%C`, ``),
		b.tmpl(types.PhaseMain, `\\ref%C`, `X`),
		b.tmpl(types.PhaseMain, `\\pageref%C`, `X`),
		// Boxes.
		b.tmpl(types.PhaseMain, `\\newsavebox%C`, ``),
		b.tmpl(types.PhaseMain, `\\usebox%C`, ``),
		b.tmpl(types.PhaseMain, `\\rule%s?%c%c`, ``),
		b.tmpl(types.PhaseMain, `\\mbox%C`, `\g<c1>`),
		b.tmpl(types.PhaseMain, `\\makebox%s?%s?%c`, `\g<c1>`),
		b.tmpl(types.PhaseMain, `\\parbox%s?%s?%s?%c%c`, `\g<c2>`),
		b.tmpl(types.PhaseMain, `\\raisebox%C%s?%s?%c`, `\g<c2>`),
		// Lengths and spaces.
		b.tmpl(types.PhaseMain, `\\setlength%C%C`, ``),
		b.tmpl(types.PhaseMain, `\\addtolength%C%C`, ``),
		b.tmpl(types.PhaseMain, `\\settoheight%C%C`, ``),
		b.tmpl(types.PhaseMain, `\\settodepth%C%C`, ``),
		b.tmpl(types.PhaseMain, `\\settowidth%C%C`, ``),
		b.tmpl(types.PhaseMain, `\\hspace\*?%C`, ``),
		b.tmpl(types.PhaseMain, `\\vspace\*?%C`, ``),
		// Counters.
		b.tmpl(types.PhaseMain, `\\refstepcounter%C`, ``),
		b.tmpl(types.PhaseMain, `\\stepcounter%C`, ``),
		b.tmpl(types.PhaseMain, `\\value%C`, `X`),
		b.tmpl(types.PhaseMain, `\\setcounter%C%C`, ``),
		b.tmpl(types.PhaseMain, `\\addtocounter%C%C`, ``),
		b.tmpl(types.PhaseMain, `\\alph%C`, `x`),
		b.tmpl(types.PhaseMain, `\\arabic%C`, `X`),
		b.tmpl(types.PhaseMain, `\\roman%C`, `X`),
		b.tmpl(types.PhaseMain, `\\fnsymbol%C`, `X`),
		b.tmpl(types.PhaseMain, `\\numberwithin%C%C`, ``),
		b.tmpl(types.PhaseMain, `\\newtheorem%C%s?%c(?(s1)|%s?)`, `\n\g<c2>\n`),
		// Page breaks.
		b.tmpl(types.PhaseMain, `\\(?:clearpage|cleardoublepage|newpage)`, `\n\n`),
		b.tmpl(types.PhaseMain, `\\enlargethispage\*?%C`, ``),
		b.tmpl(types.PhaseMain, `\\(?:pagebreak|nopagebreak)%s?`, ``),
		// Font and alignment.
		b.tmpl(types.PhaseMain, `\\(?:textnormal|emph|lowercase|uppercase|underline)%C`, `\g<c1>`),
		b.tmpl(types.PhaseMain, `\\(?:MakeLowercase|MakeUppercase)%C`, `\g<c1>`),
		b.tmpl(types.PhaseMain, `\\text(?:up|it|sl|sc)%C`, `\g<c1>`),
		b.tmpl(types.PhaseMain, `\\text(?:rm|sf|tt)%C`, `\g<c1>`),
		b.tmpl(types.PhaseMain, `\\text(?:bf|md)%C`, `\g<c1>`),
		b.tmpl(types.PhaseMain, `\\shortstack%s?%c`, `\g<c1>`),
		// Headers and footers.
		b.tmpl(types.PhaseMain, `\\pagestyle%C`, ``),
		b.tmpl(types.PhaseMain, `\\thispagestyle%C`, ``),
		// Plain TeX.
		b.tmpl(types.PhaseMain, `\\noalign%C`, ``),
	}
}

// bracePeel returns the rules the main loop alternates with: unwrap
// one-argument commands and remove one level of loose braces per pass.
func bracePeel(b specBuilder) []rule.Spec {
	unwrap := b.iter(types.PhaseMain,
		`\\(?!begin|end)(?>[a-zA-Z]+)\*?%c(?!%n[{\[\(])`, `\g<c1>`)

	strip := b.iter(types.PhaseMain,
		`(?s)(?<command>\\(?:(?>[a-zA-Z]+)\*?|\S)(?>(?:%c|%r|%s)*))`+
			`|(?<space>(?>[ \t\n]+))`+
			`|%c`+
			`|(?<other>.(?>[^\\{]*))`,
		`\g<command>\g<space>\g<c2>\g<other>`)
	strip.SubMatches = []string{"c2"}

	return []rule.Spec{unwrap, strip}
}

// coreCleanup returns the final pass: remove leftover argument-less
// commands, resolve reserved characters and normalize white space.
func coreCleanup(b specBuilder) []rule.Spec {
	return []rule.Spec{
		b.tmpl(types.PhaseCleanup, `\\(?>[a-zA-Z]+)\*?%h(?![{\[\(])%h`, ``),
		b.tmpl(types.PhaseCleanup, `\\begin%C(?>(?:%c|%r|%s)*)%n`, ``),
		b.tmpl(types.PhaseCleanup, `\\end%C%n`, ``),
		// Explicit space characters.
		b.tmpl(types.PhaseCleanup, `(?<!\\)~`, ` `),
		b.tmpl(types.PhaseCleanup, `\\[ \n]`, ` `),
		// Reserved characters.
		b.tmpl(types.PhaseCleanup, `\\#`, `#`),
		b.tmpl(types.PhaseCleanup, `\\\$`, `$`),
		b.tmpl(types.PhaseCleanup, `\\%`, `%`),
		b.tmpl(types.PhaseCleanup, `\\&`, `&`),
		b.tmpl(types.PhaseCleanup, `\\\{`, `{`),
		b.tmpl(types.PhaseCleanup, `\\\}`, `}`),
		b.tmpl(types.PhaseCleanup, `\\_`, `_`),
		b.fn(types.PhaseCleanup, `\\~%C`, accent('\u0303')),
		b.fn(types.PhaseCleanup, `\\\^%C`, accent('\u0302')),
		// White space normalization and line wrapping.
		b.tmpl(types.PhaseCleanup, `[ ]{2,}`, ` `),
		b.tmpl(types.PhaseCleanup, `^[ ]`, ``),
		b.tmpl(types.PhaseCleanup, `[ ]$`, ``),
		b.tmpl(types.PhaseCleanup, `\A\n+`, ``),
		b.tmpl(types.PhaseCleanup, `\n\n+\z`, `\n`),
		b.tmpl(types.PhaseCleanup, `\n{3,}`, `\n\n`),
		b.tmpl(types.PhaseCleanup, `(?<=.)\n(?=.)`, ` `),
	}
}
