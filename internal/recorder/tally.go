// Package recorder provides the sinks a run reports into: per-timestep
// compartment tallies, fan-out to several recorders, progress logging and
// chart rendering.
package recorder

import (
	"fmt"

	"github.com/talgya/resistance-sim/internal/agents"
	"github.com/talgya/resistance-sim/internal/engine"
)

// Row is one timestep of tallied counts, taken as people are recorded
// during the treatment sweep.
type Row struct {
	Timestep       int   `json:"timestep"`
	InfectedByTier []int `json:"infected_by_tier"` // index 0: no resistance
	Uninfected     int   `json:"uninfected"`
	Immune         int   `json:"immune"`
	Dead           int   `json:"dead"`
	Isolated       int   `json:"isolated"` // Overlaps the infected buckets
}

// Infected returns the number of infected people across all tiers.
func (r Row) Infected() int {
	n := 0
	for _, c := range r.InfectedByTier {
		n += c
	}
	return n
}

// ResistantFrom returns the number infected with a strain whose highest
// resistance is tier or above.
func (r Row) ResistantFrom(tier int) int {
	n := 0
	for i := tier; i < len(r.InfectedByTier); i++ {
		n += r.InfectedByTier[i]
	}
	return n
}

// Tally counts recorded snapshots into one Row per timestep. Only living
// people are recorded, so the dead are whatever the population is missing.
type Tally struct {
	size  int
	tiers int

	cur      Row
	recorded int
	rows     []Row
}

// NewTally creates a tally for a population of size people and tiers
// antibiotic tiers.
func NewTally(size, tiers int) *Tally {
	t := &Tally{size: size, tiers: tiers}
	t.reset()
	return t
}

func (t *Tally) reset() {
	t.cur = Row{InfectedByTier: make([]int, t.tiers+1)}
	t.recorded = 0
}

// Record counts one living person.
func (t *Tally) Record(snap agents.Snapshot, timestep int) error {
	if !snap.Alive() {
		return fmt.Errorf("tally: person %d recorded dead at timestep %d", snap.ID, timestep)
	}
	tier := int(snap.HighestResistance())
	if tier > t.tiers {
		return fmt.Errorf("tally: person %d resists tier %d of %d", snap.ID, tier, t.tiers)
	}
	t.recorded++
	switch snap.State {
	case agents.StateUninfected:
		t.cur.Uninfected++
	case agents.StateImmune:
		t.cur.Immune++
	case agents.StateInfected:
		t.cur.InfectedByTier[tier]++
	}
	if snap.Isolated {
		t.cur.Isolated++
	}
	return nil
}

// EndTimestep closes the current row.
func (t *Tally) EndTimestep(timestep int, _ []engine.Event) error {
	t.cur.Timestep = timestep
	t.cur.Dead = t.size - t.recorded
	t.rows = append(t.rows, t.cur)
	t.reset()
	if t.rows[len(t.rows)-1].Dead < 0 {
		return fmt.Errorf("tally: %d people recorded for a population of %d at timestep %d", t.recorded, t.size, timestep)
	}
	return nil
}

// Rows returns every closed row in timestep order.
func (t *Tally) Rows() []Row {
	return t.rows
}

// Last returns the most recent closed row.
func (t *Tally) Last() (Row, bool) {
	if len(t.rows) == 0 {
		return Row{}, false
	}
	return t.rows[len(t.rows)-1], true
}

// Series is one named line of values, one per row.
type Series struct {
	Name   string
	Values []float64
}

// Timesteps returns the x values for the tally's series.
func (t *Tally) Timesteps() []float64 {
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = float64(r.Timestep)
	}
	return out
}

// Lines returns overlapping series suited to a line graph: all infected,
// then for each tier everyone resistant at or above it, then the dead,
// immune, uninfected and isolated.
func (t *Tally) Lines(label func(tier int) string) []Series {
	out := []Series{t.series("Infected", Row.Infected)}
	for tier := 1; tier <= t.tiers; tier++ {
		tier := tier
		out = append(out, t.series("Resistance to "+label(tier), func(r Row) int { return r.ResistantFrom(tier) }))
	}
	return append(out,
		t.series("Dead", func(r Row) int { return r.Dead }),
		t.series("Immune", func(r Row) int { return r.Immune }),
		t.series("Uninfected", func(r Row) int { return r.Uninfected }),
		t.series("Isolated", func(r Row) int { return r.Isolated }),
	)
}

// Stack returns disjoint series that sum to the population each timestep,
// suited to a stacked plot. Isolation overlaps and is left out.
func (t *Tally) Stack(label func(tier int) string) []Series {
	out := []Series{t.series("Infected", func(r Row) int { return r.InfectedByTier[0] })}
	for tier := 1; tier <= t.tiers; tier++ {
		tier := tier
		out = append(out, t.series("Resistant up to "+label(tier), func(r Row) int { return r.InfectedByTier[tier] }))
	}
	return append(out,
		t.series("Dead", func(r Row) int { return r.Dead }),
		t.series("Immune", func(r Row) int { return r.Immune }),
		t.series("Uninfected", func(r Row) int { return r.Uninfected }),
	)
}

func (t *Tally) series(name string, value func(Row) int) Series {
	s := Series{Name: name, Values: make([]float64, len(t.rows))}
	for i, r := range t.rows {
		s.Values[i] = float64(value(r))
	}
	return s
}
