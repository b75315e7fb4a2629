// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"os"
	"path/filepath"
	"strings"
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

func TestFromStringLocate(t *testing.T) {
	b := FromString("first\nsecond\nthird")

	tests := []struct {
		offset int
		line   int
	}{
		{0, 1},
		{4, 1},
		{6, 2},
		{13, 3},
	}
	for _, tt := range tests {
		loc := b.Locate(tt.offset)
		assert.Equal(t, StringName, loc.File)
		assert.Equal(t, tt.line, loc.Line, "offset %d", tt.offset)
	}
}

func TestLocateClampsOutOfRange(t *testing.T) {
	b := FromString("ab")
	assert.Equal(t, 1, b.Locate(-5).Line)
	assert.Equal(t, 1, b.Locate(100).Line)
}

func TestInserterSplicesInput(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.tex", "before\n\\input{sub}\nafter\n")
	writeFile(t, dir, "sub.tex", "INSERTED\n")

	b, err := FromFile(root)
	require.NoError(t, err)

	ins, err := NewInserter(root, types.DefaultTimeout)
	require.NoError(t, err)
	diags, err := ins.Run(b, 10)
	require.NoError(t, err)
	assert.Empty(t, diags)

	assert.Equal(t, "before\nINSERTED\n\nafter\n", b.Text())

	// Offsets inside the spliced region map to the inserted file.
	idx := strings.Index(b.Text(), "INSERTED")
	loc := b.Locate(idx)
	assert.Equal(t, filepath.Join(dir, "sub.tex"), loc.File)
	assert.Equal(t, 1, loc.Line)

	// Offsets after the splice still map to the root.
	loc = b.Locate(strings.Index(b.Text(), "after"))
	assert.Equal(t, root, loc.File)
	assert.Equal(t, 3, loc.Line)
}

func TestInserterResolvesNestedInputs(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.tex", "\\input{mid}\n")
	writeFile(t, dir, "mid.tex", "a \\input{leaf} b")
	writeFile(t, dir, "leaf.tex", "LEAF")

	b, err := FromFile(root)
	require.NoError(t, err)
	ins, err := NewInserter(root, types.DefaultTimeout)
	require.NoError(t, err)
	_, err = ins.Run(b, 10)
	require.NoError(t, err)

	assert.Contains(t, b.Text(), "a LEAF b")
}

func TestInserterBareInputForm(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.tex", "\\input sub\nrest")
	writeFile(t, dir, "sub.tex", "X")

	b, err := FromFile(root)
	require.NoError(t, err)
	ins, err := NewInserter(root, types.DefaultTimeout)
	require.NoError(t, err)
	_, err = ins.Run(b, 10)
	require.NoError(t, err)

	assert.Contains(t, b.Text(), "X")
	assert.NotContains(t, b.Text(), `\input`)
}

func TestInserterMissingFileWarns(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.tex", "a \\include{ghost} b")

	b, err := FromFile(root)
	require.NoError(t, err)
	ins, err := NewInserter(root, types.DefaultTimeout)
	require.NoError(t, err)
	diags, err := ins.Run(b, 10)
	require.NoError(t, err)

	require.Len(t, diags, 1)
	assert.Equal(t, types.DiagMissingFile, diags[0].Kind)
	assert.Contains(t, diags[0].Message, "ghost")
	assert.Equal(t, root, diags[0].Location.File)

	// The command is dropped so later phases never see it.
	assert.Equal(t, "a  b", b.Text())
}

func TestInserterBibliographyUsesCompiledBbl(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "paper.tex", "text\n\\bibliography{refs,more}\n")
	writeFile(t, dir, "paper.bbl", "[1] A reference.\n")

	b, err := FromFile(root)
	require.NoError(t, err)
	ins, err := NewInserter(root, types.DefaultTimeout)
	require.NoError(t, err)
	_, err = ins.Run(b, 10)
	require.NoError(t, err)

	assert.Contains(t, b.Text(), "[1] A reference.")
}

func TestInserterSkipsCommentedCommands(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.tex", "% \\input{ghost}\nok")

	b, err := FromFile(root)
	require.NoError(t, err)
	ins, err := NewInserter(root, types.DefaultTimeout)
	require.NoError(t, err)
	diags, err := ins.Run(b, 10)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Contains(t, b.Text(), `\input{ghost}`)
}

func TestInserterPatterns(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.tex", "x")
	ins, err := NewInserter(root, types.DefaultTimeout)
	require.NoError(t, err)
	assert.Len(t, ins.Patterns(), 3)
}

func TestSpliceSegmentIntegrity(t *testing.T) {
	b := FromString("0123456789")
	b.splice(2, 5, []rune("AB"), "other")

	assert.Equal(t, "01AB56789", b.Text())
	assert.Equal(t, StringName, b.Locate(0).File)
	assert.Equal(t, "other", b.Locate(2).File)
	assert.Equal(t, StringName, b.Locate(4).File)

	// Dropping a span entirely.
	b.splice(0, b.Len(), nil, "")
	assert.Equal(t, "", b.Text())
	assert.Equal(t, 1, b.Locate(0).Line)
}
