// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/texplain/internal/pattern"
	"github.com/pdiddy/texplain/pkg/types"
)

func compileTest(t *testing.T, s Spec) *Rule {
	t.Helper()
	r, err := Compile(s, types.DefaultTimeout)
	require.NoError(t, err)
	return r
}

func TestParseReplacement(t *testing.T) {
	tests := []struct {
		name     string
		template string
		groups   []string
		errMsg   string
	}{
		{name: "literal", template: "plain text"},
		{name: "group reference", template: `\g<c1> and \g<s1>`, groups: []string{"c1", "s1"}},
		{name: "escapes", template: `line\nbreak\ttab\\slash`},
		{name: "unknown escape passes through", template: `\alpha`},
		{name: "trailing backslash", template: `oops\`, errMsg: "trailing backslash"},
		{name: "numeric backreference", template: `\1`, errMsg: "references must be named"},
		{name: "numeric group reference", template: `\g<2>`, errMsg: "references must be named"},
		{name: "empty group reference", template: `\g<>`, errMsg: "empty group reference"},
		{name: "unterminated group reference", template: `\g<c1`, errMsg: "unterminated group reference"},
		{name: "g without bracket", template: `\gx`, errMsg: `\g must be followed by <name>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repl, err := ParseReplacement(tt.template)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.groups, repl.Groups())
			assert.Equal(t, tt.template, repl.Source())
		})
	}
}

func TestReplacementEscapes(t *testing.T) {
	r := compileTest(t, Spec{Pattern: `\\par`, Replace: `\n\n`})
	got, n, err := r.Apply(`one\par two`, 1)
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo", got)
	assert.Equal(t, 1, n)
}

func TestReplacementUnknownEscapeIsVerbatim(t *testing.T) {
	// \% in a replacement is a literal backslash-percent, so rules can
	// produce escaped LaTeX text without doubling.
	r := compileTest(t, Spec{Pattern: `%`, Replace: `\\%`, Flags: pattern.Flags{NotEscaped: true}})
	got, _, err := r.Apply(`100% done`, 1)
	require.NoError(t, err)
	assert.Equal(t, `100\% done`, got)
}

func TestCompileRejectsUndefinedGroupReference(t *testing.T) {
	_, err := Compile(Spec{Pattern: `\\emph%C`, Replace: `\g<c2>`}, 0)
	require.Error(t, err)

	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, err.Error(), `"c2"`)
}

func TestCompileRejectsBadPattern(t *testing.T) {
	_, err := Compile(Spec{Pattern: `(?<`, Replace: ``}, 0)
	require.Error(t, err)

	var ce *pattern.CompileError
	require.True(t, errors.As(err, &ce))
}

func TestApplyOnce(t *testing.T) {
	r := compileTest(t, Spec{Pattern: `\\textbf%c`, Replace: `\g<c1>`})
	got, n, err := r.Apply(`\textbf{a} and \textbf{b}`, 10)
	require.NoError(t, err)
	assert.Equal(t, "a and b", got)
	assert.Equal(t, 2, n)
}

func TestApplyIterativeReachesFixpoint(t *testing.T) {
	r := compileTest(t, Spec{Pattern: `\\un%c`, Replace: `\g<c1>`, Iterative: true})
	got, n, err := r.Apply(`\un{a\un{b}c}`, 10)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
	assert.Equal(t, 2, n)
}

func TestApplyIterativePassBudget(t *testing.T) {
	// A rule that grows its own match never settles; the pass budget turns
	// that into an error instead of a hang.
	r := compileTest(t, Spec{Pattern: `a`, Replace: `aa`, Iterative: true})
	_, _, err := r.Apply("a", 3)
	require.Error(t, err)

	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, err.Error(), "no fixpoint after 3 passes")
}

func TestApplySubMatches(t *testing.T) {
	r := compileTest(t, Spec{
		Pattern:    `(?:(?<x>a)|b)`,
		Replace:    ``,
		SubMatches: []string{"x"},
	})
	got, n, err := r.Apply("bab", 1)
	require.NoError(t, err)
	assert.Equal(t, "", got)
	// Three matches, but only the one capturing x counts.
	assert.Equal(t, 1, n)
}

func TestApplyFuncRule(t *testing.T) {
	r := compileTest(t, Spec{
		Pattern: `\\upper%c`,
		Func: func(m *pattern.Match) string {
			return "<" + m.Group("c1") + ">"
		},
	})
	got, n, err := r.Apply(`\upper{x}`, 1)
	require.NoError(t, err)
	assert.Equal(t, "<x>", got)
	assert.Equal(t, 1, n)
	assert.Contains(t, r.String(), "<func>")
}

func TestComposeOrdersByPhaseThenTier(t *testing.T) {
	mk := func(pat string, phase types.Phase, prov types.Provenance) *Rule {
		r := compileTest(t, Spec{Pattern: pat, Replace: ``, Phase: phase, Provenance: prov})
		return r
	}

	docMain := mk("d1", types.PhaseMain, types.ProvenanceDocument)
	autoSetup := mk("a1", types.PhaseSetup, types.ProvenanceAuto)
	autoMain := mk("a2", types.PhaseMain, types.ProvenanceAuto)
	builtinSetup := mk("b1", types.PhaseSetup, types.ProvenanceBuiltin)
	builtinMain := mk("b2", types.PhaseMain, types.ProvenanceBuiltin)
	builtinMain2 := mk("b3", types.PhaseMain, types.ProvenanceBuiltin)

	p := Compose(
		[]*Rule{docMain},
		[]*Rule{autoMain, autoSetup},
		[]*Rule{builtinMain, builtinSetup, builtinMain2},
	)

	assert.Equal(t, 6, p.Len())
	assert.Equal(t, []*Rule{autoSetup, builtinSetup}, p.Phase(types.PhaseSetup))
	// Document before auto before built-in; in-tier order preserved.
	assert.Equal(t, []*Rule{docMain, autoMain, builtinMain, builtinMain2}, p.Phase(types.PhaseMain))
	assert.Equal(t,
		[]*Rule{autoSetup, builtinSetup, docMain, autoMain, builtinMain, builtinMain2},
		p.All())
	assert.Empty(t, p.Phase(types.PhaseCleanup))
}
