// Package config holds the immutable parameters of a run: the model
// parameters the engine consumes and the orchestration settings around it.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is wrapped by every validation failure.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrSampling means more receivers are requested per spread than the
// population holds.
var ErrSampling = fmt.Errorf("%w: spread sample exceeds population", ErrInvalidConfiguration)

// FieldError names the parameter that failed validation.
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s = %v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfiguration.
func (e *FieldError) Unwrap() error {
	return ErrInvalidConfiguration
}

// Config is the model's parameter set. It is built once, validated, and
// passed by value; nothing mutates it during a run.
type Config struct {
	NumTimesteps       int `yaml:"num_timesteps" env:"NUM_TIMESTEPS"`
	PopulationSize     int `yaml:"population_size" env:"POPULATION_SIZE"`
	NumResistanceTypes int `yaml:"num_resistance_types" env:"NUM_RESISTANCE_TYPES"`

	ProbabilityGeneralRecovery   float64 `yaml:"probability_general_recovery" env:"PROBABILITY_GENERAL_RECOVERY"`
	ProbabilityTreatmentRecovery float64 `yaml:"probability_treatment_recovery" env:"PROBABILITY_TREATMENT_RECOVERY"`
	ProbabilityMutation          float64 `yaml:"probability_mutation" env:"PROBABILITY_MUTATION"`
	ProbabilityMoveUpTreatment   float64 `yaml:"probability_move_up_treatment" env:"PROBABILITY_MOVE_UP_TREATMENT"`
	TimestepsMoveUpLagTime       int     `yaml:"timesteps_move_up_lag_time" env:"TIMESTEPS_MOVE_UP_LAG_TIME"`
	IsolationThreshold           int     `yaml:"isolation_threshold" env:"ISOLATION_THRESHOLD"`
	ProbabilityDeath             float64 `yaml:"probability_death" env:"PROBABILITY_DEATH"`
	// Added to ProbabilityDeath per timestep infected; 0 keeps death flat.
	DeathProbabilityGrowth float64 `yaml:"death_probability_growth" env:"DEATH_PROBABILITY_GROWTH"`
	ProbabilitySpread      float64 `yaml:"probability_spread" env:"PROBABILITY_SPREAD"`
	NumSpreadTo            int     `yaml:"num_spread_to" env:"NUM_SPREAD_TO"`

	ProductInUse             bool    `yaml:"product_in_use" env:"PRODUCT_IN_USE"`
	ProbabilityProductDetect float64 `yaml:"probability_product_detect" env:"PROBABILITY_PRODUCT_DETECT"`
	ProductDetectionLevel    int     `yaml:"product_detection_level" env:"PRODUCT_DETECTION_LEVEL"`
}

// Default returns the parameters of the stable hospital model: three drug
// tiers, the product testing for tier 2 resistance, isolation on tier 3.
func Default() Config {
	return Config{
		NumTimesteps:       100,
		PopulationSize:     500,
		NumResistanceTypes: 3,

		ProbabilityGeneralRecovery:   0,
		ProbabilityTreatmentRecovery: 0.3,
		ProbabilityMutation:          0.25,
		ProbabilityMoveUpTreatment:   0.2,
		TimestepsMoveUpLagTime:       5,
		IsolationThreshold:           3,
		ProbabilityDeath:             0.015,
		DeathProbabilityGrowth:       0,
		ProbabilitySpread:            0.25,
		NumSpreadTo:                  1,

		ProductInUse:             true,
		ProbabilityProductDetect: 1,
		ProductDetectionLevel:    2,
	}
}

// Validate checks every parameter and returns the first failure. Failures
// wrap ErrInvalidConfiguration; an oversized spread sample wraps ErrSampling.
func (c Config) Validate() error {
	counts := []struct {
		name string
		v    int
	}{
		{"num_timesteps", c.NumTimesteps},
		{"population_size", c.PopulationSize},
		{"num_resistance_types", c.NumResistanceTypes},
		{"num_spread_to", c.NumSpreadTo},
	}
	for _, f := range counts {
		if f.v <= 0 {
			return &FieldError{Field: f.name, Value: f.v, Reason: "must be positive"}
		}
	}

	probs := []struct {
		name string
		v    float64
	}{
		{"probability_general_recovery", c.ProbabilityGeneralRecovery},
		{"probability_treatment_recovery", c.ProbabilityTreatmentRecovery},
		{"probability_mutation", c.ProbabilityMutation},
		{"probability_move_up_treatment", c.ProbabilityMoveUpTreatment},
		{"probability_death", c.ProbabilityDeath},
		{"death_probability_growth", c.DeathProbabilityGrowth},
		{"probability_spread", c.ProbabilitySpread},
		{"probability_product_detect", c.ProbabilityProductDetect},
	}
	for _, f := range probs {
		// Written this way so NaN fails too.
		if !(f.v >= 0 && f.v <= 1) {
			return &FieldError{Field: f.name, Value: f.v, Reason: "must be within [0, 1]"}
		}
	}

	if c.TimestepsMoveUpLagTime < 0 {
		return &FieldError{Field: "timesteps_move_up_lag_time", Value: c.TimestepsMoveUpLagTime, Reason: "must not be negative"}
	}

	tiers := []struct {
		name string
		v    int
	}{
		{"isolation_threshold", c.IsolationThreshold},
		{"product_detection_level", c.ProductDetectionLevel},
	}
	for _, f := range tiers {
		if f.v < 1 || f.v > c.NumResistanceTypes {
			return &FieldError{
				Field:  f.name,
				Value:  f.v,
				Reason: fmt.Sprintf("must be a tier within [1, %d]", c.NumResistanceTypes),
			}
		}
	}

	if c.NumSpreadTo > c.PopulationSize {
		return fmt.Errorf("%w: num_spread_to %d > population_size %d", ErrSampling, c.NumSpreadTo, c.PopulationSize)
	}
	return nil
}
