// Treatment and isolation: the first sweep of every timestep.
package engine

import (
	"github.com/talgya/resistance-sim/internal/agents"
)

// sweepTreatment updates treatment and isolation for every living infected
// person, and hands every living person to the recorder.
func (s *Simulation) sweepTreatment(t int) error {
	for i := 0; i < s.Population.Len(); i++ {
		p := s.Population.At(i)
		if !p.Alive() {
			continue
		}
		if p.Infected() {
			if err := s.treat(t, p); err != nil {
				return err
			}
		}
		s.record(p, t)
	}
	return nil
}

// treat applies the tier rules, then the isolation triggers. The product's
// test is drawn once per person per timestep; the same result drives both
// the escalation and the isolation it can cause.
func (s *Simulation) treat(t int, p *agents.Person) error {
	cfg := s.Config

	// A symptomatic infection is always noticed, but without the product
	// nobody knows its resistance, so treatment starts at tier 1.
	tr, treated := p.Treatment()
	if !treated {
		if err := p.AssignTreatment(); err != nil {
			return err
		}
		s.emit(t, p, CategoryTreatment, "started on tier 1")
	} else if tr.TimeTreated > cfg.TimestepsMoveUpLagTime && s.RNG.Decide(cfg.ProbabilityMoveUpTreatment) {
		if err := p.IncreaseTreatment(); err != nil {
			return err
		}
		if now, _ := p.Treatment(); now.DrugTier != tr.DrugTier {
			s.emit(t, p, CategoryEscalation, "moved up from tier %d to %d", tr.DrugTier, now.DrugTier)
		}
	}

	// The product reads the true resistance tier. It escalates straight to
	// its detection level when the strain outranks the current drug, and
	// isolates whenever the strain resists the level or anything above it.
	level := agents.Tier(cfg.ProductDetectionLevel)
	detected := false
	if cfg.ProductInUse && s.RNG.Decide(cfg.ProbabilityProductDetect) {
		trueTier := p.ResistanceTier()
		cur, _ := p.Treatment()
		if trueTier > cur.DrugTier && level > cur.DrugTier {
			if err := p.EscalateTreatment(level); err != nil {
				return err
			}
			s.emit(t, p, CategoryDetection, "resistance up to tier %d detected, moved from tier %d to %d", trueTier, cur.DrugTier, level)
		}
		detected = trueTier >= level
	}

	if err := p.AdvanceTreatment(); err != nil {
		return err
	}

	cur, _ := p.Treatment()
	isolate := detected || int(cur.DrugTier) >= cfg.IsolationThreshold
	if isolate && !p.Isolated() {
		if err := p.Isolate(); err != nil {
			return err
		}
		if detected {
			s.emit(t, p, CategoryIsolation, "isolated after product detection")
		} else {
			s.emit(t, p, CategoryIsolation, "isolated on reaching tier %d", cur.DrugTier)
		}
	}
	return nil
}
