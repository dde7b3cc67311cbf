package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/talgya/resistance-sim/internal/config"
	"github.com/talgya/resistance-sim/internal/engine"
	"github.com/talgya/resistance-sim/internal/persistence"
)

func storedRun(t *testing.T) (*persistence.DB, *scenario) {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	settings := config.DefaultSettings()
	settings.Model.PopulationSize = 40
	settings.Model.NumTimesteps = 8
	settings.Run.InitiallyInfected = 6

	sc, err := newScenario(db, settings, settings.Model, 11)
	if err != nil {
		t.Fatalf("new scenario: %v", err)
	}
	for step := 1; step <= settings.Model.NumTimesteps; step++ {
		if err := sc.sim.Step(step); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
	}
	if err := db.SaveResult(sc.run.ID, sc.sim, sc.tally); err != nil {
		t.Fatalf("save: %v", err)
	}
	return db, sc
}

func TestListRuns(t *testing.T) {
	db, sc := storedRun(t)
	var buf bytes.Buffer
	if err := listRuns(&buf, db); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, sc.run.ID) || !strings.Contains(out, "finished at timestep 8") {
		t.Fatalf("listing missing run: %q", out)
	}
}

func TestShowLastRun(t *testing.T) {
	db, sc := storedRun(t)
	var buf bytes.Buffer
	if err := showRun(&buf, db, lastRun, 3); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		sc.run.ID,
		"40 people, 8 timesteps",
		"timestep 8 tally",
		"alive at timestep 8",
		engine.CategoryTreatment,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "] person "); got != 3 {
		t.Errorf("expected 3 recent events, got %d:\n%s", got, out)
	}
}

func TestShowMissingRun(t *testing.T) {
	db, _ := storedRun(t)
	var buf bytes.Buffer
	if err := showRun(&buf, db, "missing", 0); !errors.Is(err, persistence.ErrRunNotFound) {
		t.Fatalf("err = %v, want ErrRunNotFound", err)
	}
}
