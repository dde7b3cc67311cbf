package recorder

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/resistance-sim/internal/engine"
)

// Reporter logs a run's progress and its final outcome.
type Reporter struct {
	Label  string
	Tally  *Tally
	Logger *slog.Logger // Defaults to slog.Default()
}

func (r *Reporter) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Progress logs the latest tallied row. It fits engine.Engine.OnReport.
func (r *Reporter) Progress(timestep int, progress float64) {
	row, ok := r.Tally.Last()
	if !ok {
		return
	}
	r.logger().Info("progress",
		"run", r.Label,
		"timestep", timestep,
		"complete", fmt.Sprintf("%d%%", int(progress*100)),
		"uninfected", humanize.Comma(int64(row.Uninfected)),
		"immune", humanize.Comma(int64(row.Immune)),
		"dead", humanize.Comma(int64(row.Dead)),
		"infected", formatBuckets(row.InfectedByTier),
		"isolated", humanize.Comma(int64(row.Isolated)),
	)
}

// Summary logs the final census of a finished simulation.
func (r *Reporter) Summary(sim *engine.Simulation) {
	c := sim.Stats
	total := c.Total()
	r.logger().Info("run complete",
		"run", r.Label,
		"timesteps", sim.LastTimestep,
		"population", humanize.Comma(int64(total)),
		"dead", humanize.Comma(int64(c.Dead)),
		"mortality", percent(c.Dead, total),
		"immune", humanize.Comma(int64(c.Immune)),
		"still_infected", humanize.Comma(int64(c.Infected)),
		"isolated", humanize.Comma(int64(c.Isolated)),
		"recorder_errors", sim.RecorderErrors,
	)
}

// Compare logs how a run with the product differs from one without.
func Compare(logger *slog.Logger, with, without engine.Census) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("product comparison",
		"deaths_with", humanize.Comma(int64(with.Dead)),
		"deaths_without", humanize.Comma(int64(without.Dead)),
		"deaths_avoided", humanize.Comma(int64(without.Dead-with.Dead)),
		"immune_with", humanize.Comma(int64(with.Immune)),
		"immune_without", humanize.Comma(int64(without.Immune)),
		"isolated_with", humanize.Comma(int64(with.Isolated)),
		"isolated_without", humanize.Comma(int64(without.Isolated)),
	)
}

func formatBuckets(counts []int) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = humanize.Comma(int64(c))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func percent(n, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(n)/float64(total))
}
