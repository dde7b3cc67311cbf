package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/resistance-sim/internal/agents"
	"github.com/talgya/resistance-sim/internal/persistence"
)

// lastRun names the most recently saved run for -show.
const lastRun = "last"

// listRuns writes one line per stored run, newest first.
func listRuns(w io.Writer, db *persistence.DB) error {
	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no stored runs")
		return nil
	}
	for _, r := range runs {
		status := "unfinished"
		if r.Finished {
			status = fmt.Sprintf("finished at timestep %d", r.LastTimestep)
		}
		fmt.Fprintf(w, "%s  %-10s seed %d  %s  (%s)\n",
			r.ID, r.Label, r.Seed, status, humanize.Time(time.Unix(r.CreatedAt, 0)))
	}
	return nil
}

// showRun writes what was stored for one run: its model settings, final
// census, last tallied row, the people alive at its last timestep and its
// events. id may be "last" for the most recently saved run.
func showRun(w io.Writer, db *persistence.DB, id string, recent int) error {
	if id == lastRun {
		last, err := db.GetMeta("last_run")
		if err != nil {
			return fmt.Errorf("no saved run to show: %w", err)
		}
		id = last
	}
	run, err := db.GetRun(id)
	if err != nil {
		return err
	}
	cfg, err := run.Config()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Run %s (%s), seed %d\n", run.ID, run.Label, run.Seed)
	fmt.Fprintf(w, "  %s people, %d timesteps, %d tiers, product in use: %t\n",
		humanize.Comma(int64(cfg.PopulationSize)), cfg.NumTimesteps, cfg.NumResistanceTypes, cfg.ProductInUse)

	if run.Finished {
		c, err := run.Census()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  final: %s uninfected, %s infected, %s immune, %s dead, %s isolated\n",
			humanize.Comma(int64(c.Uninfected)), humanize.Comma(int64(c.Infected)),
			humanize.Comma(int64(c.Immune)), humanize.Comma(int64(c.Dead)),
			humanize.Comma(int64(c.Isolated)))
	} else {
		fmt.Fprintln(w, "  run did not finish")
	}

	rows, err := db.LoadTallies(run.ID)
	if err != nil {
		return fmt.Errorf("load tallies: %w", err)
	}
	if n := len(rows); n > 0 {
		r := rows[n-1]
		fmt.Fprintf(w, "  timestep %d tally: %d infected by tier %v, %d isolated\n",
			r.Timestep, r.Infected(), r.InfectedByTier, r.Isolated)
	}

	if run.LastTimestep > 0 {
		snaps, err := db.LoadSnapshots(run.ID, run.LastTimestep)
		if err != nil {
			return fmt.Errorf("load snapshots: %w", err)
		}
		byState := map[agents.State]int{}
		treated := 0
		for _, s := range snaps {
			byState[s.State]++
			if s.Treated {
				treated++
			}
		}
		fmt.Fprintf(w, "  alive at timestep %d: %d uninfected, %d infected (%d treated), %d immune\n",
			run.LastTimestep, byState[agents.StateUninfected], byState[agents.StateInfected], treated, byState[agents.StateImmune])
	}

	counts, err := db.CountEvents(run.ID)
	if err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		fmt.Fprintf(w, "  %-12s %s events\n", c, humanize.Comma(int64(counts[c])))
	}

	if recent > 0 {
		events, err := db.RecentEvents(run.ID, recent)
		if err != nil {
			return fmt.Errorf("recent events: %w", err)
		}
		for _, e := range events {
			fmt.Fprintf(w, "  [%d] person %d: %s\n", e.Timestep, e.Person, e.Description)
		}
	}
	return nil
}
