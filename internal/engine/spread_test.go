package engine

import (
	"testing"

	"github.com/talgya/resistance-sim/internal/agents"
)

func TestSpreadDoesNotChainWithinATimestep(t *testing.T) {
	cfg := quietConfig(3)
	cfg.ProbabilitySpread = 1
	// Person 1 reaches slot 1. Were slot 1 allowed to transmit in the same
	// sweep it would draw the second sample and reach slot 2.
	rng := &scripted{decide: always, samples: [][]int{{1}, {2}}}
	sim := newSim(t, cfg, []*agents.Person{
		infected(t, 1, agents.NewResistanceVector(3)),
		agents.NewPerson(2),
		agents.NewPerson(3),
	}, rng, nil)

	step(t, sim, 1)
	if !sim.Population.At(1).Infected() {
		t.Fatal("expected slot 1 infected")
	}
	if sim.Population.At(2).Infected() {
		t.Fatal("slot 2 infected through a same-timestep chain")
	}
	if rng.sampled != 1 {
		t.Fatalf("expected exactly one spread attempt, got %d", rng.sampled)
	}

	step(t, sim, 2)
	if !sim.Population.At(2).Infected() {
		t.Fatal("expected slot 2 to be reachable on the following timestep")
	}
}

func TestSpreadFirstTransmissionWins(t *testing.T) {
	cfg := quietConfig(3)
	cfg.ProbabilitySpread = 1
	rng := &scripted{decide: always, samples: [][]int{{2}, {2}}}
	sim := newSim(t, cfg, []*agents.Person{
		infected(t, 1, agents.ResistanceVector{true, false, false}),
		infected(t, 2, agents.ResistanceVector{false, true, false}),
		agents.NewPerson(3),
	}, rng, nil)

	step(t, sim, 1)
	got := sim.Population.At(2).Resistance()
	if !got.Equal(agents.ResistanceVector{true, false, false}) {
		t.Fatalf("expected the first source's strain, got %v", got)
	}
	n := 0
	for _, e := range sim.Events {
		if e.Category == CategoryTransmission {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("expected one transmission event, got %d", n)
	}
}

func TestSpreadSkipsIneligibleReceivers(t *testing.T) {
	cfg := quietConfig(4)
	cfg.ProbabilitySpread = 1
	cfg.NumSpreadTo = 4

	immune := infected(t, 2, agents.NewResistanceVector(3))
	_ = immune.RecoverFromInfection()
	dead := infected(t, 3, agents.ResistanceVector{false, false, true})
	_ = dead.Die()
	other := infected(t, 4, agents.ResistanceVector{false, true, false})

	sim := newSim(t, cfg, []*agents.Person{
		infected(t, 1, agents.ResistanceVector{true, false, false}),
		immune, dead, other,
	}, &scripted{decide: always}, nil)

	step(t, sim, 1)
	if !sim.Population.At(1).Immune() {
		t.Fatal("immune receiver changed")
	}
	if sim.Population.At(2).Alive() {
		t.Fatal("dead receiver changed")
	}
	if got := sim.Population.At(3).Resistance(); !got.Equal(agents.ResistanceVector{false, true, false}) {
		t.Fatalf("infected receiver's strain was replaced: %v", got)
	}
}

func TestIsolatedPeopleDoNotSpread(t *testing.T) {
	cfg := quietConfig(2)
	cfg.ProbabilitySpread = 1
	cfg.IsolationThreshold = 1
	rng := &scripted{decide: always, samples: [][]int{{1}}}
	sim := newSim(t, cfg, []*agents.Person{
		infected(t, 1, agents.NewResistanceVector(3)),
		agents.NewPerson(2),
	}, rng, nil)

	step(t, sim, 1)
	if !sim.Population.At(0).Isolated() {
		t.Fatal("expected threshold isolation at tier 1")
	}
	if sim.Population.At(1).Infected() {
		t.Fatal("isolated person transmitted")
	}
	if rng.sampled != 0 {
		t.Fatalf("expected no spread attempt, got %d", rng.sampled)
	}
}
