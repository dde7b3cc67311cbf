package recorder

import (
	"errors"

	"github.com/talgya/resistance-sim/internal/agents"
	"github.com/talgya/resistance-sim/internal/engine"
)

// Multi hands every snapshot to each of its recorders in order. A failing
// recorder does not stop the others; their errors are joined.
type Multi []engine.Recorder

// Record forwards snap to every recorder.
func (m Multi) Record(snap agents.Snapshot, timestep int) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(snap, timestep); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EndTimestep forwards to every recorder that wants timestep boundaries.
func (m Multi) EndTimestep(timestep int, events []engine.Event) error {
	var errs []error
	for _, r := range m {
		tr, ok := r.(engine.TimestepRecorder)
		if !ok {
			continue
		}
		if err := tr.EndTimestep(timestep, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
