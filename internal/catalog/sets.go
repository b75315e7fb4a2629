// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"embed"
	"fmt"
	"io/fs"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/texplain/internal/rule"
	"github.com/pdiddy/texplain/pkg/types"
)

//go:embed sets/*.yaml
var setFiles embed.FS

// setFile is the on-disk form of a rule set. Sets whose rules are pure
// pattern/replacement templates live in sets/*.yaml; sets that need
// replacement functions are built in funcsets.go instead.
type setFile struct {
	Name    string    `yaml:"name"`
	Kind    string    `yaml:"kind"`
	Aliases []string  `yaml:"aliases,omitempty"`
	Rules   []setRule `yaml:"rules"`
}

type setRule struct {
	Pattern   string `yaml:"pattern"`
	Replace   string `yaml:"replace"`
	Phase     string `yaml:"phase,omitempty"`
	Iterative bool   `yaml:"iterative,omitempty"`
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "class":
		return KindClass, nil
	case "package":
		return KindPackage, nil
	case "style":
		return KindStyle, nil
	}
	return "", fmt.Errorf("unknown set kind %q", s)
}

// loadEmbeddedSets parses the template-only rule sets compiled into the
// binary. An alias registers the same rules under a second name, for
// packages that are supersets of one another.
func loadEmbeddedSets() ([]Set, error) {
	paths, err := fs.Glob(setFiles, "sets/*.yaml")
	if err != nil {
		return nil, err
	}

	var sets []Set
	for _, path := range paths {
		raw, err := setFiles.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var file setFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		kind, err := parseKind(file.Kind)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		loc := types.Location{File: file.Kind + "/" + file.Name}
		specs := make([]rule.Spec, 0, len(file.Rules))
		for i, r := range file.Rules {
			phase := types.PhaseMain
			if r.Phase != "" {
				phase, err = types.ParsePhase(r.Phase)
				if err != nil {
					return nil, fmt.Errorf("%s rule %d: %w", path, i+1, err)
				}
			}
			specs = append(specs, rule.Spec{
				Pattern:    r.Pattern,
				Replace:    r.Replace,
				Phase:      phase,
				Iterative:  r.Iterative,
				Provenance: types.ProvenanceBuiltin,
				Location:   loc,
			})
		}

		sets = append(sets, Set{Name: file.Name, Kind: kind, Specs: specs})
		for _, alias := range file.Aliases {
			sets = append(sets, Set{Name: alias, Kind: kind, Specs: specs})
		}
	}
	return sets, nil
}
