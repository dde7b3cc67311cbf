package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. RESISTSIM_SEED.
const EnvPrefix = "RESISTSIM_"

// Graph styles understood by the chart renderer.
const (
	GraphLine      = "line"
	GraphStackplot = "stackplot"
)

// Run holds the orchestration settings that surround the model: how the
// initial population is seeded and where results go.
type Run struct {
	Seed              int64    `yaml:"seed" env:"SEED"` // 0 picks a fresh seed
	InitiallyInfected int      `yaml:"initially_infected" env:"INITIALLY_INFECTED"`
	DrugNames         []string `yaml:"drug_names" env:"DRUG_NAMES" envSeparator:","`
	ReportPercentage  int      `yaml:"report_percentage" env:"REPORT_PERCENTAGE"`
	CompareProduct    bool     `yaml:"compare_product" env:"COMPARE_PRODUCT"`

	DBPath    string `yaml:"db_path" env:"DB_PATH"`
	ChartDir  string `yaml:"chart_dir" env:"CHART_DIR"` // empty disables charts
	GraphType string `yaml:"graph_type" env:"GRAPH_TYPE"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
}

// Settings is everything a run needs.
type Settings struct {
	Model Config `yaml:"model"`
	Run   Run    `yaml:"run"`
}

// DefaultSettings returns the default model with its usual run settings.
func DefaultSettings() Settings {
	return Settings{
		Model: Default(),
		Run: Run{
			InitiallyInfected: 10,
			DrugNames:         []string{"Penicillin", "Carbapenem", "Colistin"},
			ReportPercentage:  5,
			CompareProduct:    true,
			DBPath:            "data/resistance.db",
			ChartDir:          "data/charts",
			GraphType:         GraphLine,
			LogLevel:          "info",
		},
	}
}

// Load builds Settings from defaults, then the YAML file at path (if path
// is not empty), then RESISTSIM_* environment variables, and validates the
// result.
func Load(path string) (Settings, error) {
	s := DefaultSettings()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &s); err != nil {
			return Settings{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&s, env.Options{Prefix: EnvPrefix}); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the model, then the run settings against it.
func (s Settings) Validate() error {
	if err := s.Model.Validate(); err != nil {
		return err
	}
	return s.Run.Validate(s.Model)
}

// Validate checks run settings that depend on the model they surround.
func (r Run) Validate(model Config) error {
	if r.InitiallyInfected < 0 || r.InitiallyInfected > model.PopulationSize {
		return &FieldError{
			Field:  "initially_infected",
			Value:  r.InitiallyInfected,
			Reason: fmt.Sprintf("must be within [0, %d]", model.PopulationSize),
		}
	}
	if len(r.DrugNames) != 0 && len(r.DrugNames) != model.NumResistanceTypes {
		return &FieldError{
			Field:  "drug_names",
			Value:  r.DrugNames,
			Reason: fmt.Sprintf("must name all %d tiers", model.NumResistanceTypes),
		}
	}
	if r.ReportPercentage < 0 || r.ReportPercentage > 100 {
		return &FieldError{Field: "report_percentage", Value: r.ReportPercentage, Reason: "must be within [0, 100]"}
	}
	switch r.GraphType {
	case GraphLine, GraphStackplot:
	default:
		return &FieldError{Field: "graph_type", Value: r.GraphType, Reason: "must be line or stackplot"}
	}
	return nil
}

// TierLabel names antibiotic tier t (1-based).
func (r Run) TierLabel(t int) string {
	if t >= 1 && t <= len(r.DrugNames) {
		return r.DrugNames[t-1]
	}
	return fmt.Sprintf("tier %d", t)
}

// ReportEvery converts ReportPercentage into a timestep interval, never
// less than one. Zero means progress reports are off.
func (r Run) ReportEvery(numTimesteps int) int {
	if r.ReportPercentage == 0 {
		return 0
	}
	every := numTimesteps * r.ReportPercentage / 100
	if every < 1 {
		every = 1
	}
	return every
}
