// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package localrules loads site-specific rules from a directory of *.rules
// files. Each file holds one "Rule(...)" declaration per line, with blank
// lines and lines starting with # ignored. Loaded rules join the built-in
// tier, after the catalog rules.
package localrules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/texplain/internal/pattern"
	"github.com/pdiddy/texplain/internal/rule"
	"github.com/pdiddy/texplain/internal/scan"
	"github.com/pdiddy/texplain/pkg/types"
)

// Load reads every *.rules file in dir, in lexical order. A missing
// directory is not an error; it simply yields no rules. Unreadable files
// and malformed declarations produce warnings and are skipped, so a bad
// local rule never blocks extraction.
func Load(dir string) ([]rule.Spec, []types.Diagnostic, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("reading local rules directory %s: %w", dir, err)
	}

	var specs []rule.Spec
	var diags []types.Diagnostic
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".rules") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			diags = append(diags, types.Diagnostic{
				Kind:     types.DiagScan,
				Message:  fmt.Sprintf("cannot read local rules file: %v", err),
				Location: types.Location{File: path},
			})
			continue
		}
		fileSpecs, fileDiags := parse(path, string(data))
		specs = append(specs, fileSpecs...)
		diags = append(diags, fileDiags...)
	}
	return specs, diags, nil
}

func parse(path, text string) ([]rule.Spec, []types.Diagnostic) {
	var specs []rule.Spec
	var diags []types.Diagnostic
	for i, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		loc := types.Location{File: path, Line: i + 1}
		spec, err := scan.ParseRule(t)
		if err != nil {
			diags = append(diags, types.Diagnostic{
				Kind:     types.DiagScan,
				Message:  fmt.Sprintf("skipping local rule: %v", err),
				Location: loc,
			})
			continue
		}
		spec.Flags = pattern.Flags{NotCommented: true, NotEscaped: true}
		spec.Provenance = types.ProvenanceBuiltin
		spec.Location = loc
		specs = append(specs, spec)
	}
	return specs, diags
}
