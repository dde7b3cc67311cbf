// Recovery, mutation and death: the last sweep of every timestep.
package engine

import (
	"math"

	"github.com/talgya/resistance-sim/internal/agents"
)

func (s *Simulation) sweepRecovery(t int) error {
	cfg := s.Config
	for i := 0; i < s.Population.Len(); i++ {
		p := s.Population.At(i)
		if !p.Alive() || !p.Infected() {
			continue
		}

		// Recovery comes first; a recovered person cannot die this timestep.
		general := s.RNG.Decide(cfg.ProbabilityGeneralRecovery)
		treated := p.CorrectTreatment() && s.RNG.Decide(cfg.ProbabilityTreatmentRecovery)
		if general || treated {
			if err := p.RecoverFromInfection(); err != nil {
				return err
			}
			if treated {
				s.emit(t, p, CategoryRecovery, "recovered under treatment")
			} else {
				s.emit(t, p, CategoryRecovery, "recovered")
			}
			continue
		}

		// Only strains under treatment mutate, toward the tier being given.
		if tr, ok := p.Treatment(); ok && s.RNG.Decide(cfg.ProbabilityMutation) {
			changed, err := p.MutateInfection()
			if err != nil {
				return err
			}
			if changed {
				s.emit(t, p, CategoryMutation, "gained resistance to tier %d", tr.DrugTier)
			}
		}

		if s.RNG.Decide(s.deathProbability(p)) {
			if err := p.Die(); err != nil {
				return err
			}
			s.emit(t, p, CategoryDeath, "died after %d timesteps infected", p.TimeInfected())
			continue
		}

		if err := p.AdvanceInfection(); err != nil {
			return err
		}
	}
	return nil
}

// deathProbability grows with time infected when DeathProbabilityGrowth is set.
func (s *Simulation) deathProbability(p *agents.Person) float64 {
	cfg := s.Config
	return math.Min(cfg.ProbabilityDeath+cfg.DeathProbabilityGrowth*float64(p.TimeInfected()), 1)
}
