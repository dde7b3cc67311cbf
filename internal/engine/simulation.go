// Simulation ties the population, the parameters and the random stream
// together and advances them one timestep at a time.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/resistance-sim/internal/agents"
	"github.com/talgya/resistance-sim/internal/config"
	"github.com/talgya/resistance-sim/internal/entropy"
)

// Event categories.
const (
	CategoryTreatment    = "treatment"
	CategoryEscalation   = "escalation"
	CategoryDetection    = "detection"
	CategoryIsolation    = "isolation"
	CategoryTransmission = "transmission"
	CategoryMutation     = "mutation"
	CategoryRecovery     = "recovery"
	CategoryDeath        = "death"
)

// Event is a notable transition in one person's state.
type Event struct {
	Timestep    int             `json:"timestep" db:"timestep"`
	Person      agents.PersonID `json:"person_id" db:"person_id"`
	Description string          `json:"description" db:"description"`
	Category    string          `json:"category" db:"category"`
}

// Simulation owns a run's mutable state. It is single-threaded: one
// goroutine drives Step for the lifetime of the run.
type Simulation struct {
	Label      string // Names the run in logs
	Config     config.Config
	Population *Population
	RNG        entropy.Decider
	Recorder   Recorder // Optional

	Events       []Event // Events of the most recent timestep
	LastTimestep int
	Stats        Census

	// RecorderErrors counts failed Record/EndTimestep calls.
	RecorderErrors int
}

// NewSimulation validates cfg and checks that people match it: exactly
// PopulationSize slots, every strain covering NumResistanceTypes tiers.
func NewSimulation(cfg config.Config, people []*agents.Person, rng entropy.Decider, rec Recorder) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new simulation: %w", err)
	}
	if rng == nil {
		return nil, fmt.Errorf("new simulation: nil random source")
	}
	if len(people) != cfg.PopulationSize {
		return nil, fmt.Errorf("new simulation: %d people for population_size %d", len(people), cfg.PopulationSize)
	}
	pop, err := NewPopulation(people)
	if err != nil {
		return nil, err
	}
	for _, p := range people {
		if v := p.Resistance(); v != nil && v.Tiers() != cfg.NumResistanceTypes {
			return nil, fmt.Errorf("new simulation: person %d carries %d tiers, want %d", p.ID, v.Tiers(), cfg.NumResistanceTypes)
		}
	}

	sim := &Simulation{
		Config:     cfg,
		Population: pop,
		RNG:        rng,
		Recorder:   rec,
	}
	sim.updateStats()
	return sim, nil
}

// Step runs timestep t: the treatment and isolation sweep, then the spread
// sweep, then the recovery and death sweep. Each sweep finishes before the
// next begins. An error means a transition was attempted against a person
// who could not take it; the run cannot continue.
func (s *Simulation) Step(t int) error {
	s.Events = s.Events[:0]
	s.LastTimestep = t
	failed := s.RecorderErrors

	if err := s.sweepTreatment(t); err != nil {
		return fmt.Errorf("treatment sweep: %w", err)
	}
	if err := s.sweepSpread(t); err != nil {
		return fmt.Errorf("spread sweep: %w", err)
	}
	if err := s.sweepRecovery(t); err != nil {
		return fmt.Errorf("recovery sweep: %w", err)
	}

	if tr, ok := s.Recorder.(TimestepRecorder); ok {
		if err := tr.EndTimestep(t, s.Events); err != nil {
			s.RecorderErrors++
			slog.Warn("recorder failed to close timestep", "run", s.Label, "timestep", t, "error", err)
		}
	}
	if n := s.RecorderErrors - failed; n > 0 {
		slog.Warn("recorder errors", "run", s.Label, "timestep", t, "count", n)
	}

	s.updateStats()
	return nil
}

func (s *Simulation) record(p *agents.Person, t int) {
	if s.Recorder == nil {
		return
	}
	if err := s.Recorder.Record(p.Snapshot(), t); err != nil {
		s.RecorderErrors++
		slog.Debug("record failed", "run", s.Label, "timestep", t, "person", p.ID, "error", err)
	}
}

func (s *Simulation) emit(t int, p *agents.Person, category, format string, args ...any) {
	s.Events = append(s.Events, Event{
		Timestep:    t,
		Person:      p.ID,
		Description: fmt.Sprintf(format, args...),
		Category:    category,
	})
}

func (s *Simulation) updateStats() {
	s.Stats = s.Population.Census(s.Config.NumResistanceTypes)
}
