// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Phase is one of the five fixed extraction stages. Rules execute in phase
// order, and within a phase in rule-list order. Per prd002-rules R1.1.
type Phase int

const (
	PhaseInsertion Phase = iota
	PhaseRemoval
	PhaseSetup
	PhaseMain
	PhaseCleanup
)

// Phases lists all phases in execution order.
var Phases = []Phase{PhaseInsertion, PhaseRemoval, PhaseSetup, PhaseMain, PhaseCleanup}

var phaseNames = map[Phase]string{
	PhaseInsertion: "insertion",
	PhaseRemoval:   "removal",
	PhaseSetup:     "setup",
	PhaseMain:      "main",
	PhaseCleanup:   "cleanup",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ParsePhase converts a phase name as it appears in rule declarations
// ("insertion", "removal", "setup", "main", "cleanup") into a Phase.
func ParsePhase(name string) (Phase, error) {
	for p, n := range phaseNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown extraction phase %q", name)
}

// Provenance is the precedence class of a rule. Within a phase, document
// rules run before auto-generated rules, which run before built-in rules.
// Per prd002-rules R2.1.
type Provenance int

const (
	ProvenanceDocument Provenance = iota
	ProvenanceAuto
	ProvenanceBuiltin
)

func (p Provenance) String() string {
	switch p {
	case ProvenanceDocument:
		return "document"
	case ProvenanceAuto:
		return "auto"
	case ProvenanceBuiltin:
		return "built-in"
	}
	return fmt.Sprintf("provenance(%d)", int(p))
}

// TimeoutMode reports how the per-rule timeout is applied. The regexp2
// engine enforces timeouts mid-match, so extraction normally reports
// TimeoutEnforced; TimeoutAdvisory is reserved for matchers that can only
// report elapsed time after the fact. Per prd004-engine R4.4.
type TimeoutMode string

const (
	TimeoutEnforced TimeoutMode = "enforced"
	TimeoutAdvisory TimeoutMode = "advisory"
)
