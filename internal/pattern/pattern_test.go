// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pattern

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/texplain/pkg/types"
)

func compileTest(t *testing.T, template string, flags Flags) *Pattern {
	t.Helper()
	p, err := Compile(template, flags, types.DefaultTimeout, types.Location{})
	require.NoError(t, err)
	return p
}

func groupEval(name string) Evaluator {
	return func(m *Match) string { return m.Group(name) }
}

func TestCompileRejectsBadTemplate(t *testing.T) {
	_, err := Compile(`(?<unclosed`, Flags{}, 0, types.Location{File: "core", Line: 3})
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, `(?<unclosed`, ce.Template)
	assert.Equal(t, "core", ce.Location.File)
	assert.Contains(t, ce.Error(), "line 3")
}

func TestReplaceAllBracketArgument(t *testing.T) {
	tests := []struct {
		name     string
		template string
		input    string
		want     string
		wantN    int
	}{
		{
			name:     "simple curly argument",
			template: `\\textbf%c`,
			input:    `before \textbf{bold} after`,
			want:     `before bold after`,
			wantN:    1,
		},
		{
			name:     "one nesting level per application",
			template: `\\textbf%c`,
			input:    `\textbf{a{b}c}`,
			want:     `a{b}c`,
			wantN:    1,
		},
		{
			name:     "square argument",
			template: `\\item%s`,
			input:    `\item[label] text`,
			want:     `label text`,
			wantN:    1,
		},
		{
			name:     "escaped bracket does not open an argument",
			template: `\\textbf%c`,
			input:    `\textbf\{x\}`,
			want:     `\textbf\{x\}`,
			wantN:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := compileTest(t, tt.template, Flags{})
			got, n, err := p.ReplaceAll(tt.input, func(m *Match) string {
				if m.Present("c1") {
					return m.Group("c1")
				}
				return m.Group("s1")
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantN, n)
		})
	}
}

func TestReplaceAllImplicitArgument(t *testing.T) {
	p := compileTest(t, `\\emph%C`, Flags{})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"braced", `\emph{hello} world`, `hello world`},
		{"single character", `\emph xy`, `xy`},
		{"command token", `\emph\foo rest`, `\foo rest`},
		{"partial name never matches", `\emphatic`, `\emphatic`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := p.ReplaceAll(tt.input, groupEval("c1"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplaceAllAbsorbsTrailingSpace(t *testing.T) {
	// A control word gobbles the space after it, as in TeX itself.
	p := compileTest(t, `\\LaTeX`, Flags{})
	got, n, err := p.ReplaceAll(`use \LaTeX now`, func(*Match) string { return "LaTeX" })
	require.NoError(t, err)
	assert.Equal(t, "use LaTeXnow", got)
	assert.Equal(t, 1, n)
}

func TestReplaceAllCountsEffectiveSubstitutions(t *testing.T) {
	p := compileTest(t, `a+`, Flags{})
	// Matches that reproduce the matched text do not count, so iterative
	// rules can reach fixpoint.
	got, n, err := p.ReplaceAll("aa b aa", func(m *Match) string { return m.Text() })
	require.NoError(t, err)
	assert.Equal(t, "aa b aa", got)
	assert.Equal(t, 0, n)
}

func TestNotEscapedGuard(t *testing.T) {
	p := compileTest(t, `~`, Flags{NotEscaped: true})

	tests := []struct {
		input string
		want  string
	}{
		{`a~b`, `a b`},
		{`a\~b`, `a\~b`},    // escaped tilde
		{`a\\~b`, `a\\ b`},  // backslash pair, tilde itself unescaped
		{`a\\\~b`, `a\\\~b`},
	}
	for _, tt := range tests {
		got, _, err := p.ReplaceAll(tt.input, func(*Match) string { return " " })
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestNotCommentedGuard(t *testing.T) {
	p := compileTest(t, `abc`, Flags{NotCommented: true})
	found, err := p.FindAll("abc x % abc\nabc")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestInlineGuardConstants(t *testing.T) {
	// Guards are usable mid-pattern, ahead of the character they protect.
	p := compileTest(t, NotEscaped+`%`, Flags{})
	found, err := p.FindAll(`50\% of % comment`)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestPythonGroupSyntaxAccepted(t *testing.T) {
	p := compileTest(t, `(?P<q>['"]).*?(?P=q)`, Flags{})
	m, err := p.Find(`say "hi" there`, 0)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, `"hi"`, m.Text())
	assert.Equal(t, `"`, m.Group("q"))
}

func TestMatchPresentDistinguishesAbsentGroup(t *testing.T) {
	p := compileTest(t, `\\cite%s?%C`, Flags{})

	m, err := p.Find(`\cite[p. 3]{key}`, 0)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.Present("s1"))
	assert.Equal(t, "p. 3", m.Group("s1"))
	assert.Equal(t, "key", m.Group("c1"))

	m, err = p.Find(`\cite{key}`, 0)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.False(t, m.Present("s1"))
	assert.Equal(t, "", m.Group("s1"))
}

func TestMatchOffsetsAreRunes(t *testing.T) {
	p := compileTest(t, `\\textbf%c`, Flags{})
	m, err := p.Find("éé \\textbf{x}", 0)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 3, m.Index())
	assert.Equal(t, 13, m.End())
}

func TestSearchAndCounters(t *testing.T) {
	p := compileTest(t, `\\ref%c`, Flags{})

	ok, err := p.Search(`see \ref{fig:a}`)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Search(`nothing here`)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 2, p.Runs())
	assert.Equal(t, 1, p.Matches())
	assert.Greater(t, p.Elapsed(), time.Duration(0))
}

func TestTimeoutBecomesTimeoutError(t *testing.T) {
	if testing.Short() {
		t.Skip("deliberate catastrophic backtracking")
	}
	p, err := Compile(`(x+x+)+y`, Flags{}, 5*time.Millisecond, types.Location{File: "core"})
	require.NoError(t, err)

	input := strings.Repeat("x", 200)
	_, err = p.Search(input)
	require.Error(t, err)

	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 5*time.Millisecond, te.Timeout)
	assert.Contains(t, te.Error(), "catastrophic backtracking")
}
