// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package localrules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/texplain/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "site.rules", `# site-wide fixes
Rule(r'\\projectname', 'Atlas')

Rule(r'\\internal%c', '', phase='removal')
`)
	writeFile(t, dir, "notes.txt", `Rule('ignored: wrong extension')`)

	specs, diags, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, specs, 2)

	assert.Equal(t, `\\projectname`, specs[0].Pattern)
	assert.Equal(t, "Atlas", specs[0].Replace)
	assert.Equal(t, types.PhaseMain, specs[0].Phase)
	assert.Equal(t, types.ProvenanceBuiltin, specs[0].Provenance)
	assert.True(t, specs[0].Flags.NotCommented)
	assert.True(t, specs[0].Flags.NotEscaped)
	assert.Equal(t, filepath.Join(dir, "site.rules"), specs[0].Location.File)
	assert.Equal(t, 2, specs[0].Location.Line)

	assert.Equal(t, types.PhaseRemoval, specs[1].Phase)
	assert.Equal(t, 4, specs[1].Location.Line)
}

func TestLoadMissingDirectory(t *testing.T) {
	specs, diags, err := Load(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, specs)
	assert.Empty(t, diags)
}

func TestLoadFilesInLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.rules", `Rule('second')`)
	writeFile(t, dir, "a.rules", `Rule('first')`)

	specs, _, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "first", specs[0].Pattern)
	assert.Equal(t, "second", specs[1].Pattern)
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mixed.rules", `Rule('good')
Rule('broken'
not a rule at all
`)

	specs, diags, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "good", specs[0].Pattern)

	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, types.DiagScan, d.Kind)
		assert.Contains(t, d.Message, "skipping local rule")
	}
	assert.Equal(t, 2, diags[0].Location.Line)
	assert.Equal(t, 3, diags[1].Location.Line)
}
