// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog holds the built-in rule sets: the core rules every
// document gets, and the class, package and style sets selected by what the
// document loads. Pure pattern/replacement sets live in embedded YAML files;
// sets that need replacement functions are Go tables.
//
// Implements: prd002-rules (R5), docs/ARCHITECTURE § Rule Catalog.
package catalog

import (
	"fmt"
	"sort"

	"github.com/pdiddy/texplain/internal/rule"
)

// Kind classifies a rule set by what selects it.
type Kind string

const (
	KindClass   Kind = "class"
	KindPackage Kind = "package"
	KindStyle   Kind = "style"
)

// Set is one selectable rule set.
type Set struct {
	Name  string
	Kind  Kind
	Specs []rule.Spec
}

// Catalog is the assembled built-in rule collection. Build one with New and
// share it; it is read-only after construction.
type Catalog struct {
	core      []rule.Spec
	bracePeel []rule.Spec
	sets      map[string]Set
}

func key(kind Kind, name string) string { return string(kind) + "/" + name }

// New builds the catalog: compiles the helper patterns the replacement
// functions need and parses the embedded rule sets.
func New() (*Catalog, error) {
	c := &Catalog{sets: make(map[string]Set)}

	core, peel, err := coreSpecs()
	if err != nil {
		return nil, fmt.Errorf("building core rules: %w", err)
	}
	c.core = core
	c.bracePeel = peel

	funcSets, err := functionSets()
	if err != nil {
		return nil, fmt.Errorf("building function rule sets: %w", err)
	}
	for _, s := range funcSets {
		c.sets[key(s.Kind, s.Name)] = s
	}

	embedded, err := loadEmbeddedSets()
	if err != nil {
		return nil, fmt.Errorf("loading embedded rule sets: %w", err)
	}
	for _, s := range embedded {
		if _, dup := c.sets[key(s.Kind, s.Name)]; dup {
			return nil, fmt.Errorf("rule set %s/%s defined twice", s.Kind, s.Name)
		}
		c.sets[key(s.Kind, s.Name)] = s
	}
	return c, nil
}

// Core returns the rules applied to every document, across all phases.
func (c *Catalog) Core() []rule.Spec { return c.core }

// BracePeel returns the rules the main loop alternates with the main phase
// to unwrap one bracket nesting level per pass.
func (c *Catalog) BracePeel() []rule.Spec { return c.bracePeel }

// Sets lists the selectable rule sets as kind/name, sorted.
func (c *Catalog) Sets() []string {
	names := make([]string, 0, len(c.sets))
	for k := range c.sets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Set returns one rule set by kind and name.
func (c *Catalog) Set(kind Kind, name string) (Set, bool) {
	s, ok := c.sets[key(kind, name)]
	return s, ok
}

// Select returns the specs of every set matching the detected classes,
// packages and styles, in detection order. Unknown names select nothing.
func (c *Catalog) Select(classes, packages, styles []string) []rule.Spec {
	var specs []rule.Spec
	for _, group := range []struct {
		kind  Kind
		names []string
	}{
		{KindClass, classes},
		{KindPackage, packages},
		{KindStyle, styles},
	} {
		for _, name := range group.names {
			if s, ok := c.sets[key(group.kind, name)]; ok {
				specs = append(specs, s.Specs...)
			}
		}
	}
	return specs
}
