// Spread is the second sweep. Every transmission is decided against the
// population as it stood when the sweep began, then applied together, so
// nobody infected during the sweep can pass the infection on within it.
package engine

import (
	"github.com/talgya/resistance-sim/internal/agents"
)

// transmission is a pending infection decided during the read pass.
type transmission struct {
	source   agents.PersonID
	receiver int
	strain   agents.ResistanceVector
}

func (s *Simulation) sweepSpread(t int) error {
	cfg := s.Config
	n := s.Population.Len()

	// Read pass: nothing is mutated here.
	var pending []transmission
	for i := 0; i < n; i++ {
		p := s.Population.At(i)
		// Isolated people do not transmit.
		if !p.Alive() || !p.Infected() || p.Isolated() {
			continue
		}
		if !s.RNG.Decide(cfg.ProbabilitySpread) {
			continue
		}
		strain := p.Resistance()
		for _, r := range s.RNG.Sample(n, cfg.NumSpreadTo) {
			pending = append(pending, transmission{source: p.ID, receiver: r, strain: strain})
		}
	}

	// Write pass: only people still uninfected take the strain; the first
	// transmission to reach someone wins.
	for _, tx := range pending {
		r := s.Population.At(tx.receiver)
		if r.State() != agents.StateUninfected {
			continue
		}
		if err := r.Infect(tx.strain); err != nil {
			return err
		}
		s.emit(t, r, CategoryTransmission, "infected by person %d (%s)", tx.source, tx.strain)
	}
	return nil
}
