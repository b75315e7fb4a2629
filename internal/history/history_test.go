// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/texplain/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.HistoryConfig{Dir: t.TempDir(), MaxResults: 20})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult() *types.ExtractionResult {
	return &types.ExtractionResult{
		Text: "Hello world.\n",
		Matches: []types.RuleMatches{
			{
				Rule:       `"\\textbf%c" => "\g<c1>"`,
				Provenance: "built-in",
				Phase:      "main",
				Location:   types.Location{File: "core"},
				Matches:    3,
				Elapsed:    420 * time.Microsecond,
			},
			{
				Rule:       `"\\proj" => "Atlas"`,
				Provenance: "auto",
				Phase:      "main",
				Location:   types.Location{File: "<string>", Line: 2},
				Matches:    0,
			},
		},
		Remaining: []types.CommandCount{
			{Command: `\unknowncmd`, Count: 2},
		},
		Diagnostics: []types.Diagnostic{
			{Kind: types.DiagScan, Message: "skipped something", Location: types.Location{File: "<string>", Line: 7}},
		},
		Elapsed:     150 * time.Millisecond,
		TimeoutMode: types.TimeoutEnforced,
	}
}

func TestRecordAndRun(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.Record(ctx, "paper.tex", sampleResult())
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	detail, err := s.Run(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "paper.tex", detail.Run.Source)
	assert.Equal(t, int64(150), detail.Run.ElapsedMS)
	assert.Equal(t, len("Hello world.\n"), detail.Run.TextLength)
	assert.False(t, detail.Run.Aborted)

	// The aggregate counters live on the run listing.
	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Rules)
	assert.Equal(t, 3, runs[0].Matched)
	assert.Equal(t, 1, runs[0].Diagnostics)

	// Zero-match rules are stored too.
	require.Len(t, detail.Matches, 2)
	assert.Equal(t, `"\\proj" => "Atlas"`, detail.Matches[1].Rule)
	assert.Equal(t, 0, detail.Matches[1].Matches)
	assert.Equal(t, 420*time.Microsecond, detail.Matches[0].Elapsed)
	assert.Equal(t, "core", detail.Matches[0].Location.File)

	require.Len(t, detail.Remaining, 1)
	assert.Equal(t, `\unknowncmd`, detail.Remaining[0].Command)
	assert.Equal(t, 2, detail.Remaining[0].Count)

	require.Len(t, detail.Diagnostics, 1)
	assert.Equal(t, types.DiagScan, detail.Diagnostics[0].Kind)
	assert.Equal(t, 7, detail.Diagnostics[0].Location.Line)
}

func TestRunsNewestFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first, err := s.Record(ctx, "one.tex", sampleResult())
	require.NoError(t, err)
	second, err := s.Record(ctx, "two.tex", sampleResult())
	require.NoError(t, err)

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
	assert.Equal(t, "two.tex", runs[0].Source)

	runs, err = s.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second, runs[0].ID)
}

func TestRunNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Run(context.Background(), 999)
	require.Error(t, err)
}

func TestRecordAbortedRun(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	res := sampleResult()
	res.Aborted = true
	id, err := s.Record(ctx, "broken.tex", res)
	require.NoError(t, err)

	detail, err := s.Run(ctx, id)
	require.NoError(t, err)
	assert.True(t, detail.Run.Aborted)
}

func TestExport(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	id, err := s.Record(ctx, "paper.tex", sampleResult())
	require.NoError(t, err)

	yamlPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, s.ExportYAML(ctx, id, yamlPath))
	data, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	var fromYAML RunDetail
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Equal(t, "paper.tex", fromYAML.Run.Source)
	assert.Len(t, fromYAML.Matches, 2)

	jsonPath := filepath.Join(dir, "run.json")
	require.NoError(t, s.ExportJSON(ctx, id, jsonPath))
	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	var fromJSON RunDetail
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, "paper.tex", fromJSON.Run.Source)
	require.Len(t, fromJSON.Diagnostics, 1)
	assert.Equal(t, "skipped something", fromJSON.Diagnostics[0].Message)
}

func TestStoreCreatesIndexDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", ".texplain")
	s, err := NewStore(types.HistoryConfig{Dir: dir})
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "index", "texplain.db"))
	assert.NoError(t, err)
}
