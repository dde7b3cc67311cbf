package engine

import "github.com/talgya/resistance-sim/internal/agents"

// Recorder receives a read-only snapshot of every living person once per
// timestep. Errors are logged and counted; they never stop a run.
type Recorder interface {
	Record(snap agents.Snapshot, timestep int) error
}

// TimestepRecorder is a Recorder that also wants to know when a timestep
// is complete, along with the events it produced. The events slice is
// reused by the next timestep; copy it to keep it.
type TimestepRecorder interface {
	Recorder
	EndTimestep(timestep int, events []Event) error
}
