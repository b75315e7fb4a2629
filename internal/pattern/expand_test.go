// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pattern

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandWhitespacePlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"horizontal", "a%hb", "a" + horizontalWS + "b"},
		{"line", "a%nb", "a" + lineWS + "b"},
		{"vertical", "a%wb", "a" + verticalWS + "b"},
		{"macro name", "x%m", "x" + macroName},
		{"literal percent", `100%`, `100%`},
		{"unknown specifier stays literal", `%[^\n]*`, `%[^\n]*`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := Expand(tt.template)
			require.NoError(t, err)
			assert.Equal(t, tt.want, exp.Expanded)
			assert.Empty(t, exp.Groups)
		})
	}
}

func TestExpandGroupAllocation(t *testing.T) {
	exp, err := Expand("%c%s%C%r%c")
	require.NoError(t, err)

	var names []string
	for _, g := range exp.Groups {
		names = append(names, g.Name)
	}
	// %c and %C share the curly numbering sequence.
	assert.Equal(t, []string{"c1", "s1", "c2", "r1", "c3"}, names)
	assert.Equal(t, byte('c'), exp.Groups[0].Family)
	assert.Equal(t, byte('s'), exp.Groups[1].Family)
	assert.Equal(t, byte('r'), exp.Groups[3].Family)
}

func TestExpandGroupNameOverride(t *testing.T) {
	exp, err := Expand("%C(?P<arg>)%c")
	require.NoError(t, err)

	var names []string
	for _, g := range exp.Groups {
		names = append(names, g.Name)
	}
	// The override does not advance the family counter.
	assert.Equal(t, []string{"arg", "c1"}, names)
	assert.Contains(t, exp.Expanded, "(?<arg>")
}

func TestExpandErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		errMsg   string
	}{
		{"duplicate group", "%c%C(?P<c1>)", "duplicate capture group"},
		{"bad override name", "%C(?P<1bad>)", "invalid group-name override"},
		{"unterminated override", "%C(?P<arg", "mismatched group-name override"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Expand(tt.template)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestExpandIsIdempotent(t *testing.T) {
	exp, err := Expand(`\\section%c`)
	require.NoError(t, err)
	again, err := Expand(exp.Expanded)
	require.NoError(t, err)
	assert.Equal(t, exp.Expanded, again.Expanded)
}

func TestInsertCommandGuards(t *testing.T) {
	tests := []struct {
		name     string
		template string
		check    func(t *testing.T, out string)
	}{
		{
			name:     "leading command gets lookbehind",
			template: `\\section%c`,
			check: func(t *testing.T, out string) {
				assert.True(t, strings.HasPrefix(out, commandLookbehind))
			},
		},
		{
			name:     "bare command gets whitespace-absorbing suffix",
			template: `\\noindent`,
			check: func(t *testing.T, out string) {
				assert.True(t, strings.HasSuffix(out, noArgSuffix))
			},
		},
		{
			name:     "implicit argument gets name boundary",
			template: `\\emph%C`,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, `emph`+nameBoundary)
			},
		},
		{
			name:     "optional argument before implicit gets boundary",
			template: `\\cite%s?%C`,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, `cite`+nameBoundary)
			},
		},
		{
			name:     "trailing solely-optional arguments get boundary",
			template: `\\newcounter%s?`,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, `newcounter`+nameBoundary)
			},
		},
		{
			name:     "mandatory curly argument needs no boundary",
			template: `\\textbf%c`,
			check: func(t *testing.T, out string) {
				assert.NotContains(t, out, `textbf`+nameBoundary)
				assert.NotContains(t, out, noArgSuffix)
			},
		},
		{
			name:     "non-alphabetic command is untouched",
			template: `a\\\\`,
			check: func(t *testing.T, out string) {
				assert.Equal(t, `a\\\\`, out)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := insertCommandGuards(tt.template)
			require.NoError(t, err)
			tt.check(t, out)
		})
	}
}

func TestScanNameRun(t *testing.T) {
	tests := []struct {
		src  string
		want int
		ok   bool
	}{
		{"section", 7, true},
		{"section%c", 7, true},
		{"[hv]space", 9, true},
		{"(?:usepackage|RequirePackage)", 29, true},
		{"(?:re)?newcommand", 17, true},
		{"{no}", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		end, ok := scanNameRun(tt.src, 0)
		assert.Equal(t, tt.ok, ok, tt.src)
		if tt.ok {
			assert.Equal(t, tt.want, end, tt.src)
		}
	}
}

func TestNormalizeGroupSyntax(t *testing.T) {
	in := `(?P<name>\w+) and (?P=name)`
	assert.Equal(t, `(?<name>\w+) and \k<name>`, normalizeGroupSyntax(in))
}
