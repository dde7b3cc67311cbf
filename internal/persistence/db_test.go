package persistence

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/talgya/resistance-sim/internal/agents"
	"github.com/talgya/resistance-sim/internal/config"
	"github.com/talgya/resistance-sim/internal/engine"
	"github.com/talgya/resistance-sim/internal/entropy"
	"github.com/talgya/resistance-sim/internal/recorder"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunLifecycle(t *testing.T) {
	db := openTemp(t)
	cfg := config.Default()

	run, err := db.CreateRun("product", 42, cfg)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected a run ID")
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Label != "product" || got.Seed != 42 || got.Finished {
		t.Fatalf("unexpected run: %+v", got)
	}
	stored, err := got.Config()
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if stored != cfg {
		t.Fatalf("config round trip: got %+v, want %+v", stored, cfg)
	}
	if _, err := got.Census(); err == nil {
		t.Fatal("expected census of an unfinished run to fail")
	}

	census := engine.Census{Uninfected: 1, Infected: 2, InfectedByTier: []int{1, 1, 0, 0}, Dead: 3}
	if err := db.FinishRun(run.ID, 100, census); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	got, err = db.GetRun(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	c, err := got.Census()
	if err != nil {
		t.Fatalf("decode census: %v", err)
	}
	if !got.Finished || got.LastTimestep != 100 || c.Dead != 3 || c.InfectedByTier[1] != 1 {
		t.Fatalf("finished run wrong: %+v census %+v", got, c)
	}

	runs, err := db.ListRuns()
	if err != nil || len(runs) != 1 {
		t.Fatalf("list runs: %v %v", runs, err)
	}
}

func TestMissingRun(t *testing.T) {
	db := openTemp(t)
	if _, err := db.GetRun("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("get: err = %v, want ErrRunNotFound", err)
	}
	if err := db.FinishRun("nope", 1, engine.Census{}); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("finish: err = %v, want ErrRunNotFound", err)
	}
}

func TestMeta(t *testing.T) {
	db := openTemp(t)
	if err := db.SaveMeta("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta("k", "v2"); err != nil {
		t.Fatal(err)
	}
	v, err := db.GetMeta("k")
	if err != nil || v != "v2" {
		t.Fatalf("GetMeta = %q, %v", v, err)
	}
}

func TestTallies(t *testing.T) {
	db := openTemp(t)
	rows := []recorder.Row{
		{Timestep: 1, InfectedByTier: []int{3, 0}, Uninfected: 7},
		{Timestep: 2, InfectedByTier: []int{2, 1}, Uninfected: 5, Dead: 1, Isolated: 1, Immune: 1},
	}
	if err := db.SaveTallies("r", rows); err != nil {
		t.Fatal(err)
	}
	// Saving again replaces rather than duplicates.
	if err := db.SaveTallies("r", rows); err != nil {
		t.Fatal(err)
	}
	got, err := db.LoadTallies("r")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].Dead != 1 || got[1].InfectedByTier[1] != 1 || got[1].Isolated != 1 {
		t.Fatalf("tallies = %+v", got)
	}
}

func TestRunRecorderPersistsTimesteps(t *testing.T) {
	db := openTemp(t)
	cfg := config.Default()
	cfg.PopulationSize = 30
	cfg.NumTimesteps = 5
	cfg.NumSpreadTo = 2

	run, err := db.CreateRun("test", 7, cfg)
	if err != nil {
		t.Fatal(err)
	}
	people, err := agents.NewSpawner().SpawnPopulation(cfg.PopulationSize, 5, cfg.NumResistanceTypes)
	if err != nil {
		t.Fatal(err)
	}
	tally := recorder.NewTally(cfg.PopulationSize, cfg.NumResistanceTypes)
	sim, err := engine.NewSimulation(cfg, people, entropy.New(7), recorder.Multi{tally, db.Recorder(run.ID)})
	if err != nil {
		t.Fatal(err)
	}
	var events int
	for step := 1; step <= cfg.NumTimesteps; step++ {
		if err := sim.Step(step); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
		events += len(sim.Events)
	}
	if sim.RecorderErrors != 0 {
		t.Fatalf("recorder errors: %d", sim.RecorderErrors)
	}
	if err := db.SaveResult(run.ID, sim, tally); err != nil {
		t.Fatal(err)
	}

	for step, row := range tally.Rows() {
		snaps, err := db.LoadSnapshots(run.ID, step+1)
		if err != nil {
			t.Fatal(err)
		}
		if len(snaps) != cfg.PopulationSize-row.Dead {
			t.Fatalf("timestep %d: %d snapshots, want %d", step+1, len(snaps), cfg.PopulationSize-row.Dead)
		}
		for _, s := range snaps {
			if s.Infected() && s.Resistance.Tiers() != cfg.NumResistanceTypes {
				t.Fatalf("snapshot %d resistance %q", s.ID, s.Resistance.Bits())
			}
		}
	}

	counts, err := db.CountEvents(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	var stored int
	for _, n := range counts {
		stored += n
	}
	if stored != events {
		t.Fatalf("stored %d events, simulation emitted %d", stored, events)
	}
	if events > 0 {
		recent, err := db.RecentEvents(run.ID, 1)
		if err != nil || len(recent) != 1 {
			t.Fatalf("recent events: %v %v", recent, err)
		}
	}

	last, err := db.GetMeta("last_run")
	if err != nil || last != run.ID {
		t.Fatalf("last_run = %q, %v", last, err)
	}
}
