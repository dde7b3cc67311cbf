// Command resistsim runs the antibiotic resistance simulation, optionally
// side by side with and without the resistance-detection product.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/resistance-sim/internal/agents"
	"github.com/talgya/resistance-sim/internal/config"
	"github.com/talgya/resistance-sim/internal/engine"
	"github.com/talgya/resistance-sim/internal/entropy"
	"github.com/talgya/resistance-sim/internal/persistence"
	"github.com/talgya/resistance-sim/internal/recorder"
)

// scenario is one independent run sharing the seed of its siblings.
type scenario struct {
	label string
	sim   *engine.Simulation
	tally *recorder.Tally
	run   persistence.Run
}

func main() {
	configPath := flag.String("config", "", "YAML settings file (defaults apply when empty)")
	seed := flag.Int64("seed", 0, "random seed; overrides the configured seed when non-zero")
	list := flag.Bool("list", false, "list stored runs and exit")
	show := flag.String("show", "", `print a stored run ("last" for the most recent) and exit`)
	events := flag.Int("events", 10, "recent events printed by -show")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load settings", "error", err)
		os.Exit(1)
	}
	if *seed != 0 {
		settings.Run.Seed = *seed
	}
	setupLogging(settings.Run.LogLevel)

	if *list || *show != "" {
		if err := inspect(settings.Run.DBPath, *list, *show, *events); err != nil {
			slog.Error("inspect failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(settings); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

// inspect reads back stored runs without simulating anything.
func inspect(dbPath string, list bool, show string, events int) error {
	db, err := persistence.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if list {
		if err := listRuns(os.Stdout, db); err != nil {
			return err
		}
	}
	if show != "" {
		return showRun(os.Stdout, db, show, events)
	}
	return nil
}

// setupLogging writes text to a terminal and JSON everywhere else.
func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func run(settings config.Settings) error {
	if settings.Run.Seed == 0 {
		s, err := entropy.NewSeed()
		if err != nil {
			return err
		}
		settings.Run.Seed = s
	}
	seed := settings.Run.Seed
	model := settings.Model

	slog.Info("antibiotic resistance simulation",
		"seed", seed,
		"population", humanize.Comma(int64(model.PopulationSize)),
		"timesteps", model.NumTimesteps,
		"tiers", model.NumResistanceTypes,
		"initially_infected", settings.Run.InitiallyInfected,
	)

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(settings.Run.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(settings.Run.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "path", settings.Run.DBPath)

	// ── Scenarios ─────────────────────────────────────────────────────
	variants := []bool{model.ProductInUse}
	if settings.Run.CompareProduct {
		variants = append(variants, !model.ProductInUse)
	}

	var scenarios []*scenario
	for _, product := range variants {
		cfg := model
		cfg.ProductInUse = product
		sc, err := newScenario(db, settings, cfg, seed)
		if err != nil {
			return err
		}
		scenarios = append(scenarios, sc)
	}

	// ── Run ───────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\nSimulating %s people over %d timesteps (seed %d, %d run(s)). Ctrl+C to stop.\n",
		humanize.Comma(int64(model.PopulationSize)), model.NumTimesteps, seed, len(scenarios))

	g, gctx := errgroup.WithContext(ctx)
	for _, sc := range scenarios {
		sc := sc
		g.Go(func() error {
			return runScenario(gctx, db, settings, sc)
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("received signal, shutting down")
		}
		return err
	}

	// ── Summary ───────────────────────────────────────────────────────
	var with, without *scenario
	for _, sc := range scenarios {
		(&recorder.Reporter{Label: sc.label, Tally: sc.tally}).Summary(sc.sim)
		fmt.Printf("%-10s dead %s, immune %s, still infected %s (run %s)\n",
			sc.label,
			humanize.Comma(int64(sc.sim.Stats.Dead)),
			humanize.Comma(int64(sc.sim.Stats.Immune)),
			humanize.Comma(int64(sc.sim.Stats.Infected)),
			sc.run.ID,
		)
		if sc.sim.Config.ProductInUse {
			with = sc
		} else {
			without = sc
		}
	}
	if with != nil && without != nil {
		recorder.Compare(nil, with.sim.Stats, without.sim.Stats)
	}
	return nil
}

func scenarioLabel(product bool) string {
	if product {
		return "product"
	}
	return "no-product"
}

// newScenario spawns a population and wires its recorders. Siblings built
// from the same seed start from the same population and draw sequence.
func newScenario(db *persistence.DB, settings config.Settings, cfg config.Config, seed int64) (*scenario, error) {
	label := scenarioLabel(cfg.ProductInUse)

	people, err := agents.NewSpawner().SpawnPopulation(cfg.PopulationSize, settings.Run.InitiallyInfected, cfg.NumResistanceTypes)
	if err != nil {
		return nil, fmt.Errorf("spawn %s population: %w", label, err)
	}
	stored, err := db.CreateRun(label, seed, cfg)
	if err != nil {
		return nil, err
	}

	tally := recorder.NewTally(cfg.PopulationSize, cfg.NumResistanceTypes)
	sim, err := engine.NewSimulation(cfg, people, entropy.New(seed), recorder.Multi{tally, db.Recorder(stored.ID)})
	if err != nil {
		return nil, fmt.Errorf("create %s simulation: %w", label, err)
	}
	sim.Label = label

	return &scenario{label: label, sim: sim, tally: tally, run: stored}, nil
}

func runScenario(ctx context.Context, db *persistence.DB, settings config.Settings, sc *scenario) error {
	reporter := &recorder.Reporter{Label: sc.label, Tally: sc.tally}

	eng := engine.NewEngine(sc.sim)
	eng.ReportEvery = settings.Run.ReportEvery(sc.sim.Config.NumTimesteps)
	eng.OnReport = reporter.Progress

	if err := eng.Run(ctx); err != nil {
		return err
	}
	if err := db.SaveResult(sc.run.ID, sc.sim, sc.tally); err != nil {
		return fmt.Errorf("save %s: %w", sc.label, err)
	}

	if settings.Run.ChartDir == "" {
		return nil
	}
	if err := os.MkdirAll(settings.Run.ChartDir, 0755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	title := fmt.Sprintf("Antibiotic resistance (%s)", sc.label)
	path := filepath.Join(settings.Run.ChartDir, fmt.Sprintf("%s-%s.png", sc.label, sc.run.ID[:8]))
	chart := recorder.TallyChart(title, settings.Run.GraphType, sc.tally, settings.Run.TierLabel)
	if err := chart.RenderFile(path); err != nil {
		slog.Warn("chart not rendered", "run", sc.label, "error", err)
		return nil
	}
	slog.Info("chart written", "run", sc.label, "path", path)
	return nil
}
