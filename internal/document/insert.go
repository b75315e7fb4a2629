// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/texplain/internal/pattern"
	"github.com/pdiddy/texplain/pkg/types"
)

// Insertion command templates. \input accepts both the braced and the bare
// plain-TeX argument form; \bibliography names the database files but the
// spliced content is the compiled <jobname>.bbl.
const (
	inputTemplate        = `\\input(?:%c|[ \t]+(?<path>[^ \t\n{}\\%]+))`
	includeTemplate      = `\\include%c`
	bibliographyTemplate = `\\bibliography%c`
)

// Inserter resolves file insertion commands against the root document's
// directory and splices the contents in place. Missing files become
// MissingFileWarning diagnostics and the command is dropped.
type Inserter struct {
	rootDir string
	bblPath string
	cmds    []inserterCmd
}

type inserterCmd struct {
	pat     *pattern.Pattern
	resolve func(arg string) string
}

// NewInserter builds the inserter for a root document at rootFile. The
// compiled bibliography is looked up as <jobname>.bbl next to the root.
func NewInserter(rootFile string, timeout time.Duration) (*Inserter, error) {
	rootDir := filepath.Dir(rootFile)
	ins := &Inserter{
		rootDir: rootDir,
		bblPath: trimJobname(rootFile) + ".bbl",
	}

	flags := pattern.Flags{NotCommented: true, NotEscaped: true}
	for _, c := range []struct {
		template string
		resolve  func(arg string) string
	}{
		{inputTemplate, func(arg string) string { return resolveInput(rootDir, arg, ".tex") }},
		{includeTemplate, func(arg string) string { return resolveInput(rootDir, arg, ".tex") }},
		{bibliographyTemplate, func(string) string { return ins.bblPath }},
	} {
		p, err := pattern.Compile(c.template, flags, timeout, types.Location{})
		if err != nil {
			return nil, err
		}
		ins.cmds = append(ins.cmds, inserterCmd{pat: p, resolve: c.resolve})
	}
	return ins, nil
}

// Run splices insertion commands until none remain or the pass budget runs
// out. Inserted files are rescanned, so an \input inside an \include is
// resolved on a later pass. It returns the diagnostics raised along the way.
func (ins *Inserter) Run(b *Buffer, maxPasses int) ([]types.Diagnostic, error) {
	var diags []types.Diagnostic
	for pass := 0; maxPasses <= 0 || pass < maxPasses; pass++ {
		m, cmd, err := ins.next(b)
		if err != nil {
			return diags, err
		}
		if m == nil {
			return diags, nil
		}

		arg := m.Group("c1")
		if !m.Present("c1") {
			arg = m.Group("path")
		}
		path := cmd.resolve(arg)
		data, err := os.ReadFile(path)
		if err != nil {
			diags = append(diags, types.Diagnostic{
				Kind:     types.DiagMissingFile,
				Message:  fmt.Sprintf("cannot insert %q: %v", path, err),
				Location: b.Locate(m.Index()),
			})
			b.splice(m.Index(), m.End(), nil, "")
			continue
		}
		b.splice(m.Index(), m.End(), []rune(string(data)), path)
	}
	return diags, nil
}

// next finds the first pending insertion command, trying command kinds in
// declaration order.
func (ins *Inserter) next(b *Buffer) (*pattern.Match, *inserterCmd, error) {
	text := b.Text()
	for i := range ins.cmds {
		m, err := ins.cmds[i].pat.Find(text, 0)
		if err != nil {
			return nil, nil, err
		}
		if m != nil {
			return m, &ins.cmds[i], nil
		}
	}
	return nil, nil, nil
}

// Patterns exposes the insertion matchers so the engine can fold their match
// counts into the per-rule table.
func (ins *Inserter) Patterns() []*pattern.Pattern {
	out := make([]*pattern.Pattern, len(ins.cmds))
	for i := range ins.cmds {
		out[i] = ins.cmds[i].pat
	}
	return out
}
