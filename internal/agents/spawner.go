// Population spawning: builds the initial population for a run.
package agents

import "fmt"

// Spawner issues person IDs and builds populations.
type Spawner struct {
	nextID PersonID
}

// NewSpawner creates a spawner whose first ID is 1.
func NewSpawner() *Spawner {
	return &Spawner{nextID: 1}
}

// SpawnPopulation creates size people, the last infected of whom carry a
// fully susceptible strain covering tiers antibiotic tiers.
func (s *Spawner) SpawnPopulation(size, infected, tiers int) ([]*Person, error) {
	if infected < 0 || infected > size {
		return nil, fmt.Errorf("spawn population: %d infected out of %d", infected, size)
	}
	people := make([]*Person, 0, size)
	for i := 0; i < size-infected; i++ {
		people = append(people, s.spawnOne())
	}
	for i := 0; i < infected; i++ {
		p := s.spawnOne()
		if err := p.Infect(NewResistanceVector(tiers)); err != nil {
			return nil, fmt.Errorf("spawn population: %w", err)
		}
		people = append(people, p)
	}
	return people, nil
}

func (s *Spawner) spawnOne() *Person {
	p := NewPerson(s.nextID)
	s.nextID++
	return p
}
