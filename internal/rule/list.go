// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rule

import (
	"github.com/pdiddy/texplain/pkg/types"
)

// Program is the fully composed, phase-ordered rule schedule for one
// extraction run. Within each phase, document rules precede auto-generated
// rules, which precede built-in rules; within a tier, declaration order is
// preserved. Per prd002-rules R2.1-R2.3.
type Program struct {
	phases map[types.Phase][]*Rule
}

// Compose merges the three provenance tiers into a Program. The tier slices
// may hold rules of any phase in any order; composition sorts by phase and
// tier only, never reordering rules inside a tier.
func Compose(document, auto, builtin []*Rule) *Program {
	p := &Program{phases: make(map[types.Phase][]*Rule, len(types.Phases))}
	for _, phase := range types.Phases {
		var merged []*Rule
		for _, tier := range [][]*Rule{document, auto, builtin} {
			for _, r := range tier {
				if r.Phase == phase {
					merged = append(merged, r)
				}
			}
		}
		p.phases[phase] = merged
	}
	return p
}

// Phase returns the rules scheduled for one phase, in execution order.
func (p *Program) Phase(phase types.Phase) []*Rule {
	return p.phases[phase]
}

// Len returns the total number of scheduled rules.
func (p *Program) Len() int {
	n := 0
	for _, rules := range p.phases {
		n += len(rules)
	}
	return n
}

// All returns every scheduled rule in execution order across phases.
func (p *Program) All() []*Rule {
	out := make([]*Rule, 0, p.Len())
	for _, phase := range types.Phases {
		out = append(out, p.phases[phase]...)
	}
	return out
}
