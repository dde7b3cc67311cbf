package persistence

import (
	"fmt"

	"github.com/talgya/resistance-sim/internal/agents"
	"github.com/talgya/resistance-sim/internal/engine"
)

// RunRecorder buffers each timestep's snapshots and writes them, along with
// the timestep's events, in one transaction when the timestep ends.
type RunRecorder struct {
	db    *DB
	runID string
	snaps []agents.Snapshot
}

// Recorder returns a recorder writing into the given run.
func (db *DB) Recorder(runID string) *RunRecorder {
	return &RunRecorder{db: db, runID: runID}
}

// Record buffers one snapshot.
func (r *RunRecorder) Record(snap agents.Snapshot, timestep int) error {
	r.snaps = append(r.snaps, snap)
	return nil
}

// EndTimestep flushes the buffered snapshots and the timestep's events.
func (r *RunRecorder) EndTimestep(timestep int, events []engine.Event) error {
	snaps := r.snaps
	r.snaps = r.snaps[:0]

	tx, err := r.db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO snapshots
		(run_id, timestep, person_id, state, resistance, treated, drug_tier,
		 time_treated, time_infected, isolated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range snaps {
		_, err := stmt.Exec(
			r.runID, timestep, s.ID, s.State, s.Resistance.Bits(),
			s.Treated, s.DrugTier, s.TimeTreated, s.TimeInfected, s.Isolated,
		)
		if err != nil {
			return fmt.Errorf("insert snapshot %d at timestep %d: %w", s.ID, timestep, err)
		}
	}
	if err := insertEvents(tx, r.runID, events); err != nil {
		return fmt.Errorf("insert events at timestep %d: %w", timestep, err)
	}

	return tx.Commit()
}

type snapshotRow struct {
	PersonID     agents.PersonID `db:"person_id"`
	State        agents.State    `db:"state"`
	Resistance   string          `db:"resistance"`
	Treated      bool            `db:"treated"`
	DrugTier     agents.Tier     `db:"drug_tier"`
	TimeTreated  int             `db:"time_treated"`
	TimeInfected int             `db:"time_infected"`
	Isolated     bool            `db:"isolated"`
}

// LoadSnapshots returns the people recorded at one timestep of a run, in
// ID order.
func (db *DB) LoadSnapshots(runID string, timestep int) ([]agents.Snapshot, error) {
	var rows []snapshotRow
	err := db.conn.Select(&rows, `SELECT person_id, state, resistance, treated, drug_tier,
		time_treated, time_infected, isolated
		FROM snapshots WHERE run_id = ? AND timestep = ? ORDER BY person_id`, runID, timestep)
	if err != nil {
		return nil, err
	}
	out := make([]agents.Snapshot, len(rows))
	for i, row := range rows {
		s := agents.Snapshot{
			ID:           row.PersonID,
			State:        row.State,
			Treated:      row.Treated,
			DrugTier:     row.DrugTier,
			TimeTreated:  row.TimeTreated,
			TimeInfected: row.TimeInfected,
			Isolated:     row.Isolated,
		}
		if row.Resistance != "" {
			if s.Resistance, err = agents.ParseBits(row.Resistance); err != nil {
				return nil, fmt.Errorf("decode snapshot %d: %w", row.PersonID, err)
			}
		}
		out[i] = s
	}
	return out, nil
}
