// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/texplain/internal/rule"
	"github.com/pdiddy/texplain/pkg/types"
)

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New()
	require.NoError(t, err)
	return c
}

// findSetRule compiles one rule of a set, found by its pattern template.
func findSetRule(t *testing.T, c *Catalog, kind Kind, name, pat string) *rule.Rule {
	t.Helper()
	s, ok := c.Set(kind, name)
	require.True(t, ok, "set %s/%s", kind, name)
	for _, spec := range s.Specs {
		if spec.Pattern == pat {
			r, err := rule.Compile(spec, types.DefaultTimeout)
			require.NoError(t, err)
			return r
		}
	}
	t.Fatalf("no rule %q in set %s/%s", pat, kind, name)
	return nil
}

func apply(t *testing.T, r *rule.Rule, text string) string {
	t.Helper()
	out, _, err := r.Apply(text, types.DefaultMaxIterations)
	require.NoError(t, err)
	return out
}

func TestNewCatalog(t *testing.T) {
	c := newCatalog(t)

	assert.NotEmpty(t, c.Core())
	assert.NotEmpty(t, c.BracePeel())

	names := c.Sets()
	for _, want := range []string{
		"package/amsmath", "package/babel", "package/booktabs",
		"package/caption", "package/cleveref", "package/fancyvrb",
		"package/graphics", "package/graphicx", "package/hyperref",
		"package/listings", "package/natbib", "package/url",
		"package/xcolor", "style/drdc", "style/drdc-plain",
	} {
		assert.Contains(t, names, want)
	}
}

func TestEverySpecCompiles(t *testing.T) {
	c := newCatalog(t)

	check := func(origin string, specs []rule.Spec) {
		for _, s := range specs {
			_, err := rule.Compile(s, types.DefaultTimeout)
			assert.NoError(t, err, "%s: %q", origin, s.Pattern)
		}
	}
	check("core", c.Core())
	check("brace-peel", c.BracePeel())
	for _, qualified := range c.Sets() {
		kind, name, ok := strings.Cut(qualified, "/")
		require.True(t, ok)
		s, ok := c.Set(Kind(kind), name)
		require.True(t, ok)
		check(qualified, s.Specs)
	}
}

func TestGraphicxAlias(t *testing.T) {
	c := newCatalog(t)
	graphics, ok := c.Set(KindPackage, "graphics")
	require.True(t, ok)
	graphicx, ok := c.Set(KindPackage, "graphicx")
	require.True(t, ok)
	assert.Equal(t, len(graphics.Specs), len(graphicx.Specs))
}

func TestSelect(t *testing.T) {
	c := newCatalog(t)
	hyperref, _ := c.Set(KindPackage, "hyperref")
	drdc, _ := c.Set(KindStyle, "drdc")

	specs := c.Select(nil, []string{"hyperref", "nosuchpackage"}, []string{"drdc"})
	assert.Len(t, specs, len(hyperref.Specs)+len(drdc.Specs))
	// Package sets come before style sets, in detection order.
	assert.Equal(t, hyperref.Specs[0].Pattern, specs[0].Pattern)

	assert.Empty(t, c.Select([]string{"article"}, nil, nil))
}

func TestAccentFolding(t *testing.T) {
	assert.Equal(t, "é", addDiacritic("e", 0x0301))
	assert.Equal(t, "ü", addDiacritic("u", 0x0308))
	assert.Equal(t, "é", addDiacritic("ex", 0x0301))
	assert.Equal(t, "ābc", addDiacriticKeep("abc", 0x0304))
	assert.Equal(t, "", addDiacritic("", 0x0301))
}

func TestKeyValueExtraction(t *testing.T) {
	r, err := keyValue("pdftitle")
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"braced value", `pdfauthor={A},pdftitle={My Title},x=1`, "My Title"},
		{"nested braces", `pdftitle={My {nested} Title}`, "My {nested} Title"},
		{"unbracketed value", `pdftitle=Plain Title, next=2`, "Plain Title"},
		{"absent key", `pdfauthor={A}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := r.Apply(tt.input, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHypersetupKeepsMetadata(t *testing.T) {
	c := newCatalog(t)
	r := findSetRule(t, c, KindPackage, "hyperref", `\\hypersetup%C`)

	got := apply(t, r, `\hypersetup{pdftitle={My Title},pdfauthor={Ann B}}`)
	assert.Equal(t, "\nMy Title\n\nAnn B\n", got)
}

func TestCleverefCrossReferences(t *testing.T) {
	c := newCatalog(t)
	cref := findSetRule(t, c, KindPackage, "cleveref", `\\cref\*?%C`)

	assert.Equal(t, `see reference \ref{fig:a}`, apply(t, cref, `see \cref{fig:a}`))
	assert.Equal(t,
		`references \ref{fig:a,fig:b} and \ref{fig:a,fig:b}`,
		apply(t, cref, `\cref{fig:a,fig:b}`))
}

func TestUrlEscapesPercents(t *testing.T) {
	c := newCatalog(t)
	url := findSetRule(t, c, KindPackage, "url", `\\url%c`)

	got := apply(t, url, `\url{http://x.com/a%b}`)
	assert.Equal(t, `http://x.com/a\%b`, got)
}

func TestDrdcNumToMonth(t *testing.T) {
	c := newCatalog(t)
	r := findSetRule(t, c, KindStyle, "drdc", `\\numtomonth%C`)

	assert.Equal(t, "March", apply(t, r, `\numtomonth{3}`))
	assert.Equal(t, "13", apply(t, r, `\numtomonth{13}`))
}

func TestNatbibCitations(t *testing.T) {
	c := newCatalog(t)
	s, ok := c.Set(KindPackage, "natbib")
	require.True(t, ok)
	assert.NotEmpty(t, s.Specs)
}
