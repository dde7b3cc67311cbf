// Package persistence provides SQLite-based storage for simulation runs.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/talgya/resistance-sim/internal/config"
	"github.com/talgya/resistance-sim/internal/engine"
	"github.com/talgya/resistance-sim/internal/recorder"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Concurrent runs share the file; one connection serializes their writes.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		seed INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		config_yaml TEXT NOT NULL,
		last_timestep INTEGER NOT NULL DEFAULT 0,
		finished INTEGER NOT NULL DEFAULT 0,
		census_json TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		run_id TEXT NOT NULL,
		timestep INTEGER NOT NULL,
		person_id INTEGER NOT NULL,
		state INTEGER NOT NULL,
		resistance TEXT NOT NULL,
		treated INTEGER NOT NULL,
		drug_tier INTEGER NOT NULL,
		time_treated INTEGER NOT NULL,
		time_infected INTEGER NOT NULL,
		isolated INTEGER NOT NULL,
		PRIMARY KEY (run_id, timestep, person_id)
	);

	CREATE TABLE IF NOT EXISTS tallies (
		run_id TEXT NOT NULL,
		timestep INTEGER NOT NULL,
		uninfected INTEGER NOT NULL,
		immune INTEGER NOT NULL,
		dead INTEGER NOT NULL,
		isolated INTEGER NOT NULL,
		infected_json TEXT NOT NULL,
		PRIMARY KEY (run_id, timestep)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestep INTEGER NOT NULL,
		person_id INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, timestep);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is one stored simulation run.
type Run struct {
	ID           string `db:"id"`
	Label        string `db:"label"`
	Seed         int64  `db:"seed"`
	CreatedAt    int64  `db:"created_at"`
	ConfigYAML   string `db:"config_yaml"`
	LastTimestep int    `db:"last_timestep"`
	Finished     bool   `db:"finished"`
	CensusJSON   string `db:"census_json"`
}

// Config decodes the model configuration the run was started with.
func (r Run) Config() (config.Config, error) {
	var cfg config.Config
	if err := yaml.Unmarshal([]byte(r.ConfigYAML), &cfg); err != nil {
		return cfg, fmt.Errorf("decode run %s config: %w", r.ID, err)
	}
	return cfg, nil
}

// Census decodes the final census of a finished run.
func (r Run) Census() (engine.Census, error) {
	var c engine.Census
	if !r.Finished {
		return c, fmt.Errorf("run %s has not finished", r.ID)
	}
	if err := json.Unmarshal([]byte(r.CensusJSON), &c); err != nil {
		return c, fmt.Errorf("decode run %s census: %w", r.ID, err)
	}
	return c, nil
}

// CreateRun registers a new run and returns it with a fresh ID.
func (db *DB) CreateRun(label string, seed int64, cfg config.Config) (Run, error) {
	cfgYAML, err := yaml.Marshal(cfg)
	if err != nil {
		return Run{}, fmt.Errorf("encode config: %w", err)
	}
	run := Run{
		ID:         uuid.NewString(),
		Label:      label,
		Seed:       seed,
		CreatedAt:  time.Now().Unix(),
		ConfigYAML: string(cfgYAML),
	}
	_, err = db.conn.NamedExec(`INSERT INTO runs (id, label, seed, created_at, config_yaml)
		VALUES (:id, :label, :seed, :created_at, :config_yaml)`, run)
	if err != nil {
		return Run{}, fmt.Errorf("insert run %s: %w", label, err)
	}
	return run, nil
}

// FinishRun stores the final timestep and census of a run.
func (db *DB) FinishRun(runID string, lastTimestep int, census engine.Census) error {
	censusJSON, err := json.Marshal(census)
	if err != nil {
		return fmt.Errorf("encode census: %w", err)
	}
	res, err := db.conn.Exec(
		"UPDATE runs SET last_timestep = ?, finished = 1, census_json = ? WHERE id = ?",
		lastTimestep, string(censusJSON), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetRun loads one run by ID.
func (db *DB) GetRun(runID string) (Run, error) {
	var run Run
	err := db.conn.Get(&run, "SELECT * FROM runs WHERE id = ?", runID)
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	return run, err
}

// ListRuns returns every stored run, newest first.
func (db *DB) ListRuns() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, "SELECT * FROM runs ORDER BY created_at DESC, rowid DESC")
	return runs, err
}

// SaveTallies writes a run's per-timestep rows, replacing any already stored.
func (db *DB) SaveTallies(runID string, rows []recorder.Row) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM tallies WHERE run_id = ?", runID); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO tallies
		(run_id, timestep, uninfected, immune, dead, isolated, infected_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		infectedJSON, _ := json.Marshal(r.InfectedByTier)
		_, err := stmt.Exec(runID, r.Timestep, r.Uninfected, r.Immune, r.Dead, r.Isolated, string(infectedJSON))
		if err != nil {
			return fmt.Errorf("insert tally %d: %w", r.Timestep, err)
		}
	}

	return tx.Commit()
}

type tallyRow struct {
	Timestep     int    `db:"timestep"`
	Uninfected   int    `db:"uninfected"`
	Immune       int    `db:"immune"`
	Dead         int    `db:"dead"`
	Isolated     int    `db:"isolated"`
	InfectedJSON string `db:"infected_json"`
}

// LoadTallies reads a run's per-timestep rows in timestep order.
func (db *DB) LoadTallies(runID string) ([]recorder.Row, error) {
	var stored []tallyRow
	err := db.conn.Select(&stored, `SELECT timestep, uninfected, immune, dead, isolated, infected_json
		FROM tallies WHERE run_id = ? ORDER BY timestep`, runID)
	if err != nil {
		return nil, err
	}
	rows := make([]recorder.Row, len(stored))
	for i, s := range stored {
		rows[i] = recorder.Row{
			Timestep:   s.Timestep,
			Uninfected: s.Uninfected,
			Immune:     s.Immune,
			Dead:       s.Dead,
			Isolated:   s.Isolated,
		}
		if err := json.Unmarshal([]byte(s.InfectedJSON), &rows[i].InfectedByTier); err != nil {
			return nil, fmt.Errorf("decode tally %d: %w", s.Timestep, err)
		}
	}
	return rows, nil
}

// SaveEvents appends events for a run.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertEvents(tx, runID, events); err != nil {
		return err
	}
	return tx.Commit()
}

func insertEvents(tx *sqlx.Tx, runID string, events []engine.Event) error {
	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, timestep, person_id, description, category) VALUES (?, ?, ?, ?, ?)",
			runID, e.Timestep, e.Person, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// RecentEvents returns the most recent N events of a run.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT timestep, person_id, description, category FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	return events, err
}

// CountEvents returns the number of events of each category in a run.
func (db *DB) CountEvents(runID string) (map[string]int, error) {
	var rows []struct {
		Category string `db:"category"`
		N        int    `db:"n"`
	}
	err := db.conn.Select(&rows,
		"SELECT category, COUNT(*) AS n FROM events WHERE run_id = ? GROUP BY category", runID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Category] = r.N
	}
	return counts, nil
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// SaveResult stores everything a finished run produced beyond what its
// recorder already wrote.
func (db *DB) SaveResult(runID string, sim *engine.Simulation, tally *recorder.Tally) error {
	slog.Info("saving run", "run", sim.Label, "id", runID, "timesteps", sim.LastTimestep)

	if err := db.SaveTallies(runID, tally.Rows()); err != nil {
		return fmt.Errorf("save tallies: %w", err)
	}
	if err := db.FinishRun(runID, sim.LastTimestep, sim.Stats); err != nil {
		return fmt.Errorf("save census: %w", err)
	}
	if err := db.SaveMeta("last_run", runID); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("run saved", "run", sim.Label)
	return nil
}
