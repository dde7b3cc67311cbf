// Package engine provides the timestep loop and the per-timestep sweeps
// that move a population through infection, treatment, spread, recovery
// and death.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Engine drives a Simulation through its configured number of timesteps.
// There is no early exit: a run with no infections left still runs to the end.
type Engine struct {
	Sim      *Simulation
	Timestep int // Last completed timestep; 0 before the first

	// Progress callbacks, populated during setup.
	ReportEvery int                                  // Timesteps between OnReport calls; 0 disables
	OnTimestep  func(timestep int)                   // After every timestep
	OnReport    func(timestep int, progress float64) // Every ReportEvery timesteps
}

// NewEngine creates an engine for sim.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{Sim: sim}
}

// Run steps the simulation until NumTimesteps have completed. The context
// is checked between timesteps only; a timestep, once begun, always
// finishes.
func (e *Engine) Run(ctx context.Context) error {
	total := e.Sim.Config.NumTimesteps
	start := time.Now()
	slog.Info("simulation engine started", "run", e.Sim.Label, "timestep", e.Timestep, "timesteps", total)

	for e.Timestep < total {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run %s stopped after timestep %d: %w", e.Sim.Label, e.Timestep, err)
		}
		t := e.Timestep + 1
		if err := e.Sim.Step(t); err != nil {
			return fmt.Errorf("timestep %d: %w", t, err)
		}
		e.Timestep = t

		if e.OnTimestep != nil {
			e.OnTimestep(t)
		}
		if e.ReportEvery > 0 && t%e.ReportEvery == 0 && e.OnReport != nil {
			e.OnReport(t, e.Progress())
		}
	}

	slog.Info("simulation engine stopped",
		"run", e.Sim.Label,
		"timestep", e.Timestep,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// Progress returns the completed fraction of the run, from 0 to 1.
func (e *Engine) Progress() float64 {
	total := e.Sim.Config.NumTimesteps
	if total == 0 {
		return 1
	}
	return float64(e.Timestep) / float64(total)
}
