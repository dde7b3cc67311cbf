// Population: the fixed set of people a run simulates, and the census
// taken over it.
package engine

import (
	"fmt"

	"github.com/talgya/resistance-sim/internal/agents"
)

// Population is an ordered, fixed-size collection of people. Death and
// recovery change a slot's state; slots are never added or removed.
type Population struct {
	people []*agents.Person
	index  map[agents.PersonID]int
}

// NewPopulation wraps people, which must have distinct IDs.
func NewPopulation(people []*agents.Person) (*Population, error) {
	index := make(map[agents.PersonID]int, len(people))
	for i, p := range people {
		if p == nil {
			return nil, fmt.Errorf("new population: nil person at slot %d", i)
		}
		if _, dup := index[p.ID]; dup {
			return nil, fmt.Errorf("new population: duplicate person id %d", p.ID)
		}
		index[p.ID] = i
	}
	return &Population{people: people, index: index}, nil
}

// Len returns the number of slots.
func (p *Population) Len() int {
	return len(p.people)
}

// At returns the person in slot i.
func (p *Population) At(i int) *agents.Person {
	return p.people[i]
}

// Get looks a person up by ID.
func (p *Population) Get(id agents.PersonID) (*agents.Person, bool) {
	i, ok := p.index[id]
	if !ok {
		return nil, false
	}
	return p.people[i], true
}

// Snapshot copies every slot's state, in slot order.
func (p *Population) Snapshot() []agents.Snapshot {
	out := make([]agents.Snapshot, len(p.people))
	for i, person := range p.people {
		out[i] = person.Snapshot()
	}
	return out
}

// Census counts people by compartment. Infected people are also bucketed
// by the highest tier their strain resists; Isolated overlaps Infected and
// Dead.
type Census struct {
	Uninfected     int   `json:"uninfected"`
	Infected       int   `json:"infected"`
	InfectedByTier []int `json:"infected_by_tier"` // index 0: no resistance
	Treated        int   `json:"treated"`
	Isolated       int   `json:"isolated"`
	Immune         int   `json:"immune"`
	Dead           int   `json:"dead"`
}

// Total returns the number of people counted.
func (c Census) Total() int {
	return c.Uninfected + c.Infected + c.Immune + c.Dead
}

// Census counts the population; tiers is the number of antibiotic tiers.
func (p *Population) Census(tiers int) Census {
	c := Census{InfectedByTier: make([]int, tiers+1)}
	for _, person := range p.people {
		switch person.State() {
		case agents.StateUninfected:
			c.Uninfected++
		case agents.StateImmune:
			c.Immune++
		case agents.StateDead:
			c.Dead++
		case agents.StateInfected:
			c.Infected++
			c.InfectedByTier[person.Resistance().Highest()]++
			if _, ok := person.Treatment(); ok {
				c.Treated++
			}
		}
		if person.Isolated() {
			c.Isolated++
		}
	}
	return c
}
