// Package agents provides the per-person model: antibiotic tiers, the
// resistance vector a strain carries, and the Person state machine the
// simulation engine drives every timestep.
package agents

import "fmt"

// PersonID is a stable identifier for a population slot.
type PersonID uint64

// State is the compartment a person occupies. Isolation is an overlay on
// StateInfected, not a state of its own.
type State uint8

const (
	StateUninfected State = iota
	StateInfected
	StateImmune
	StateDead
)

func (s State) String() string {
	switch s {
	case StateUninfected:
		return "uninfected"
	case StateInfected:
		return "infected"
	case StateImmune:
		return "immune"
	case StateDead:
		return "dead"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == StateImmune || s == StateDead
}

// Tier is an antibiotic tier, 1 (first-line) through N (last resort). The
// zero Tier means "none": no treatment, or no resistance.
type Tier int

// TierNone is the zero Tier.
const TierNone Tier = 0

// Treatment is the drug course a person is on.
type Treatment struct {
	DrugTier    Tier `json:"drug_tier"`
	TimeTreated int  `json:"time_treated"` // Timesteps at the current tier
}
