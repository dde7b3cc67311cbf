package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/talgya/resistance-sim/internal/agents"
	"github.com/talgya/resistance-sim/internal/config"
	"github.com/talgya/resistance-sim/internal/entropy"
)

// quietConfig has every probability at zero, so nothing happens unless a
// test turns it on.
func quietConfig(size int) config.Config {
	return config.Config{
		NumTimesteps:           5,
		PopulationSize:         size,
		NumResistanceTypes:     3,
		TimestepsMoveUpLagTime: 0,
		IsolationThreshold:     3,
		NumSpreadTo:            1,
		ProductDetectionLevel:  2,
	}
}

func infected(t *testing.T, id agents.PersonID, v agents.ResistanceVector) *agents.Person {
	t.Helper()
	p := agents.NewPerson(id)
	if err := p.Infect(v); err != nil {
		t.Fatalf("infect %d: %v", id, err)
	}
	return p
}

func people(n int) []*agents.Person {
	out := make([]*agents.Person, n)
	for i := range out {
		out[i] = agents.NewPerson(agents.PersonID(i + 1))
	}
	return out
}

func newSim(t *testing.T, cfg config.Config, ps []*agents.Person, rng entropy.Decider, rec Recorder) *Simulation {
	t.Helper()
	sim, err := NewSimulation(cfg, ps, rng, rec)
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	return sim
}

func step(t *testing.T, sim *Simulation, ts int) {
	t.Helper()
	if err := sim.Step(ts); err != nil {
		t.Fatalf("step %d: %v", ts, err)
	}
}

// scripted decides with a function and hands out queued samples.
type scripted struct {
	decide  func(p float64) bool
	samples [][]int
	asked   []float64
	sampled int
}

func (s *scripted) Decide(p float64) bool {
	s.asked = append(s.asked, p)
	return s.decide(p)
}

func (s *scripted) Sample(n, k int) []int {
	s.sampled++
	if len(s.samples) == 0 {
		return entropy.Fixed(0).Sample(n, k)
	}
	out := s.samples[0]
	s.samples = s.samples[1:]
	return out
}

// always succeeds every trial with a positive probability.
func always(p float64) bool { return p > 0 }

// capture keeps every snapshot it is handed.
type capture struct {
	byTimestep map[int][]agents.Snapshot
	ended      []int
	events     int
	fail       bool
}

func newCapture() *capture {
	return &capture{byTimestep: make(map[int][]agents.Snapshot)}
}

func (c *capture) Record(snap agents.Snapshot, timestep int) error {
	if c.fail {
		return errors.New("disk full")
	}
	c.byTimestep[timestep] = append(c.byTimestep[timestep], snap)
	return nil
}

func (c *capture) EndTimestep(timestep int, events []Event) error {
	c.ended = append(c.ended, timestep)
	c.events += len(events)
	if c.fail {
		return errors.New("disk full")
	}
	return nil
}

func hasEvent(events []Event, category string) bool {
	for _, e := range events {
		if e.Category == category {
			return true
		}
	}
	return false
}

// testContext returns a context that is canceled when the test finishes,
// like testing.T.Context in newer Go releases.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
