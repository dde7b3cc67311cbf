package agents

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is wrapped by every TransitionError.
var ErrInvalidTransition = errors.New("invalid transition")

// TransitionError reports an operation invoked against a person whose
// state does not allow it. It signals an engine bug, not a model outcome.
type TransitionError struct {
	Op     string
	Person PersonID
	State  State
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: person %d is %s", e.Op, e.Person, e.State)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg + ": " + ErrInvalidTransition.Error()
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// infection is the payload of StateInfected.
type infection struct {
	resistance   ResistanceVector
	treatment    *Treatment
	isolated     bool
	timeInfected int
}

// Person is one population slot. Its fields are only changed through the
// transition methods below, each of which checks its precondition.
//
// A dead person keeps the infection it died with, frozen. An immune person
// carries no infection, treatment or isolation.
type Person struct {
	ID PersonID

	state     State
	infection *infection
}

// NewPerson returns an uninfected person.
func NewPerson(id PersonID) *Person {
	return &Person{ID: id}
}

// State returns the person's compartment.
func (p *Person) State() State { return p.state }

// Alive reports whether the person has not died.
func (p *Person) Alive() bool { return p.state != StateDead }

// Infected reports whether the person currently carries a live infection.
func (p *Person) Infected() bool { return p.state == StateInfected }

// Immune reports whether the person has recovered.
func (p *Person) Immune() bool { return p.state == StateImmune }

// Isolated reports whether the person's infection is isolated.
func (p *Person) Isolated() bool {
	return p.infection != nil && p.infection.isolated
}

// Resistance returns a copy of the carried strain's resistance vector, or
// nil when there is no infection.
func (p *Person) Resistance() ResistanceVector {
	if p.infection == nil {
		return nil
	}
	return p.infection.resistance.Clone()
}

// Treatment returns the current treatment and whether there is one.
func (p *Person) Treatment() (Treatment, bool) {
	if p.infection == nil || p.infection.treatment == nil {
		return Treatment{}, false
	}
	return *p.infection.treatment, true
}

// TimeInfected returns how many timesteps the current infection has lasted.
func (p *Person) TimeInfected() int {
	if p.infection == nil {
		return 0
	}
	return p.infection.timeInfected
}

func (p *Person) reject(op, reason string) error {
	return &TransitionError{Op: op, Person: p.ID, State: p.state, Reason: reason}
}

// Infect gives an uninfected person a copy of the source strain.
func (p *Person) Infect(source ResistanceVector) error {
	if p.state != StateUninfected {
		return p.reject("infect", "")
	}
	if len(source) == 0 {
		return p.reject("infect", "empty resistance vector")
	}
	p.state = StateInfected
	p.infection = &infection{resistance: source.Clone()}
	return nil
}

// MutateInfection makes the strain resistant to the tier currently being
// administered. It reports whether the vector changed; a strain already
// resistant at that tier is left alone.
func (p *Person) MutateInfection() (bool, error) {
	if p.state != StateInfected || p.infection.treatment == nil {
		return false, p.reject("mutate infection", "requires an active treatment")
	}
	return p.infection.resistance.mark(p.infection.treatment.DrugTier), nil
}

// AssignTreatment starts an untreated infected person on tier 1.
func (p *Person) AssignTreatment() error {
	if p.state != StateInfected {
		return p.reject("assign treatment", "")
	}
	if p.infection.treatment != nil {
		return p.reject("assign treatment", "already treated")
	}
	p.infection.treatment = &Treatment{DrugTier: 1}
	return nil
}

// IncreaseTreatment moves the treatment up one tier, capped at the last
// tier, and restarts the time-on-tier counter.
func (p *Person) IncreaseTreatment() error {
	if p.state != StateInfected || p.infection.treatment == nil {
		return p.reject("increase treatment", "requires an active treatment")
	}
	tr := p.infection.treatment
	if int(tr.DrugTier) < p.infection.resistance.Tiers() {
		tr.DrugTier++
	}
	tr.TimeTreated = 0
	return nil
}

// EscalateTreatment jumps the treatment straight to tier to, as when a
// diagnostic reveals resistance. Tiers never regress.
func (p *Person) EscalateTreatment(to Tier) error {
	if p.state != StateInfected || p.infection.treatment == nil {
		return p.reject("escalate treatment", "requires an active treatment")
	}
	tr := p.infection.treatment
	if to <= tr.DrugTier || int(to) > p.infection.resistance.Tiers() {
		return p.reject("escalate treatment", fmt.Sprintf("cannot move from tier %d to %d", tr.DrugTier, to))
	}
	tr.DrugTier = to
	tr.TimeTreated = 0
	return nil
}

// AdvanceTreatment counts one more timestep on the current tier.
func (p *Person) AdvanceTreatment() error {
	if p.state != StateInfected || p.infection.treatment == nil {
		return p.reject("advance treatment", "requires an active treatment")
	}
	p.infection.treatment.TimeTreated++
	return nil
}

// AdvanceInfection counts one more timestep of infection.
func (p *Person) AdvanceInfection() error {
	if p.state != StateInfected {
		return p.reject("advance infection", "")
	}
	p.infection.timeInfected++
	return nil
}

// Isolate isolates an infected person. Isolating twice is harmless.
func (p *Person) Isolate() error {
	if p.state != StateInfected {
		return p.reject("isolate", "")
	}
	p.infection.isolated = true
	return nil
}

// RecoverFromInfection clears the infection and makes the person immune.
func (p *Person) RecoverFromInfection() error {
	if p.state != StateInfected {
		return p.reject("recover", "")
	}
	p.state = StateImmune
	p.infection = nil
	return nil
}

// Die kills a living, non-immune person. Whatever infection they carried is
// kept as it was.
func (p *Person) Die() error {
	if p.state.Terminal() {
		return p.reject("die", "")
	}
	p.state = StateDead
	return nil
}

// CorrectTreatment reports whether the administered antibiotic works
// against the carried strain.
func (p *Person) CorrectTreatment() bool {
	if p.state != StateInfected || p.infection.treatment == nil {
		return false
	}
	return !p.infection.resistance.Resistant(p.infection.treatment.DrugTier)
}

// ResistanceTier is the true resistance tier of a live infection: the
// highest tier its strain resists, TierNone when susceptible or uninfected.
// A diagnostic reads it; treatment alone never sees it.
func (p *Person) ResistanceTier() Tier {
	if p.state != StateInfected {
		return TierNone
	}
	return p.infection.resistance.Highest()
}

// Snapshot is a read-only copy of a person's state at one instant.
type Snapshot struct {
	ID           PersonID         `json:"id"`
	State        State            `json:"state"`
	Resistance   ResistanceVector `json:"resistance,omitempty"`
	Treated      bool             `json:"treated"`
	DrugTier     Tier             `json:"drug_tier"`
	TimeTreated  int              `json:"time_treated"`
	TimeInfected int              `json:"time_infected"`
	Isolated     bool             `json:"isolated"`
}

// Snapshot captures the person's current state.
func (p *Person) Snapshot() Snapshot {
	s := Snapshot{ID: p.ID, State: p.state}
	if p.infection != nil {
		s.Resistance = p.infection.resistance.Clone()
		s.TimeInfected = p.infection.timeInfected
		s.Isolated = p.infection.isolated
		if tr := p.infection.treatment; tr != nil {
			s.Treated = true
			s.DrugTier = tr.DrugTier
			s.TimeTreated = tr.TimeTreated
		}
	}
	return s
}

// Alive reports whether the snapshot was taken of a living person.
func (s Snapshot) Alive() bool { return s.State != StateDead }

// Infected reports whether the snapshot was taken during a live infection.
func (s Snapshot) Infected() bool { return s.State == StateInfected }

// Immune reports whether the snapshot was taken after recovery.
func (s Snapshot) Immune() bool { return s.State == StateImmune }

// HighestResistance returns the highest resistant tier of the carried strain.
func (s Snapshot) HighestResistance() Tier {
	return s.Resistance.Highest()
}
