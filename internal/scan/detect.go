// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scan

import (
	"strings"
	"time"

	"github.com/pdiddy/texplain/internal/pattern"
	"github.com/pdiddy/texplain/pkg/types"
)

// Detection templates. Source detection reads the document itself; log
// detection reads the compiler transcript, which also names classes and
// packages loaded indirectly.
const (
	docClassTemplate = `\\documentclass%s?%C`
	usePckgTemplate  = `\\(?:usepackage|RequirePackage)%s?%C`
	bibStyleTemplate = `\\bibliographystyle%C`
	logClassTemplate = `^Document Class: (?<class>[a-zA-Z0-9_.\-]+)`
	logPckgTemplate  = `^Package: (?<pckg>[a-zA-Z0-9_.\-]+)`
)

type detector struct {
	docClass *pattern.Pattern
	usePckg  *pattern.Pattern
	bibStyle *pattern.Pattern
	logClass *pattern.Pattern
	logPckg  *pattern.Pattern
}

func newDetector(timeout time.Duration) (*detector, error) {
	d := &detector{}
	for _, c := range []struct {
		dst      **pattern.Pattern
		template string
		flags    pattern.Flags
	}{
		{&d.docClass, docClassTemplate, defaultGuards},
		{&d.usePckg, usePckgTemplate, defaultGuards},
		{&d.bibStyle, bibStyleTemplate, defaultGuards},
		{&d.logClass, logClassTemplate, pattern.Flags{}},
		{&d.logPckg, logPckgTemplate, pattern.Flags{}},
	} {
		p, err := pattern.Compile(c.template, c.flags, timeout, types.Location{})
		if err != nil {
			return nil, err
		}
		*c.dst = p
	}
	return d, nil
}

// fromSource records the classes, packages and styles the document loads
// directly. \usepackage takes a comma-separated list.
func (d *detector) fromSource(text string, rep *Report) {
	forEach(d.docClass, text, func(m *pattern.Match) {
		rep.Classes = appendUnique(rep.Classes, strings.TrimSpace(m.Group("c1")))
	})
	forEach(d.usePckg, text, func(m *pattern.Match) {
		for _, name := range strings.Split(m.Group("c1"), ",") {
			rep.Packages = appendUnique(rep.Packages, strings.TrimSpace(name))
		}
	})
	forEach(d.bibStyle, text, func(m *pattern.Match) {
		rep.Styles = appendUnique(rep.Styles, strings.TrimSpace(m.Group("c1")))
	})
}

// fromLog records classes and packages named in a compiler transcript,
// catching sets loaded through other packages or the class.
func (d *detector) fromLog(log string, rep *Report) {
	forEach(d.logClass, log, func(m *pattern.Match) {
		rep.Classes = appendUnique(rep.Classes, m.Group("class"))
	})
	forEach(d.logPckg, log, func(m *pattern.Match) {
		rep.Packages = appendUnique(rep.Packages, m.Group("pckg"))
	})
}

func appendUnique(list []string, name string) []string {
	if name == "" {
		return list
	}
	for _, have := range list {
		if have == name {
			return list
		}
	}
	return append(list, name)
}
