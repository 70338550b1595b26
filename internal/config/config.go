// Package config provides unified configuration loading for tcg.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/tcg/internal/dynamics"
	"github.com/nvandessel/tcg/internal/workmem"
)

// TCGConfig contains all tcg configuration settings.
type TCGConfig struct {
	// Dynamics holds the activation process parameters every new instance
	// is given.
	Dynamics dynamics.Params `json:"dynamics" yaml:"dynamics"`

	// WorkingMemory contains link, pruning and scheduling settings.
	WorkingMemory WorkingMemoryConfig `json:"working_memory" yaml:"working_memory"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// WorkingMemoryConfig mirrors workmem.Config without the dynamics section.
type WorkingMemoryConfig struct {
	InitialActivation float64            `json:"initial_activation" yaml:"initial_activation"`
	PruneThreshold    float64            `json:"prune_threshold" yaml:"prune_threshold"`
	CooperationWeight float64            `json:"cooperation_weight" yaml:"cooperation_weight"`
	CompetitionWeight float64            `json:"competition_weight" yaml:"competition_weight"`
	PCooperation      float64            `json:"p_cooperation" yaml:"p_cooperation"`
	PCompetition      float64            `json:"p_competition" yaml:"p_competition"`
	Suitability       workmem.Aggregator `json:"suitability" yaml:"suitability"`
	Workers           int                `json:"workers" yaml:"workers"`
	Seed              uint64             `json:"seed" yaml:"seed"`
}

// LoggingConfig configures tcg's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to <dir>/decisions.jsonl.
	// "trace" additionally logs every link delivery.
	Level string `json:"level" yaml:"level"`

	// Dir is where the decision log is written. Default: .tcg
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Default returns a TCGConfig with the working memory defaults.
func Default() *TCGConfig {
	wm := workmem.DefaultConfig()
	return &TCGConfig{
		Dynamics: wm.Dynamics,
		WorkingMemory: WorkingMemoryConfig{
			InitialActivation: wm.InitialActivation,
			PruneThreshold:    wm.PruneThreshold,
			CooperationWeight: wm.CooperationWeight,
			CompetitionWeight: wm.CompetitionWeight,
			PCooperation:      wm.PCooperation,
			PCompetition:      wm.PCompetition,
			Suitability:       wm.Suitability,
			Workers:           wm.Workers,
			Seed:              wm.Seed,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   ".tcg",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.tcg/config.yaml -> environment variables
func Load() (*TCGConfig, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".tcg", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Keys missing
// from the file keep their defaults.
func LoadFromFile(path string) (*TCGConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

// WorkMem assembles the working memory configuration.
func (c *TCGConfig) WorkMem() workmem.Config {
	w := c.WorkingMemory
	return workmem.Config{
		Dynamics:          c.Dynamics,
		InitialActivation: w.InitialActivation,
		PruneThreshold:    w.PruneThreshold,
		CooperationWeight: w.CooperationWeight,
		CompetitionWeight: w.CompetitionWeight,
		PCooperation:      w.PCooperation,
		PCompetition:      w.PCompetition,
		Suitability:       w.Suitability,
		Workers:           w.Workers,
		Seed:              w.Seed,
	}
}

// Validate checks that the configuration is valid.
func (c *TCGConfig) Validate() error {
	if err := c.WorkMem().Validate(); err != nil {
		return err
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Unparseable numbers are ignored.
func applyEnvOverrides(config *TCGConfig) {
	floats := map[string]*float64{
		"TCG_TAU":                &config.Dynamics.Tau,
		"TCG_ACT_REST":           &config.Dynamics.ActRest,
		"TCG_NOISE_MEAN":         &config.Dynamics.NoiseMean,
		"TCG_NOISE_STD":          &config.Dynamics.NoiseStd,
		"TCG_PRUNE_THRESHOLD":    &config.WorkingMemory.PruneThreshold,
		"TCG_COOPERATION_WEIGHT": &config.WorkingMemory.CooperationWeight,
		"TCG_COMPETITION_WEIGHT": &config.WorkingMemory.CompetitionWeight,
		"TCG_P_COOPERATION":      &config.WorkingMemory.PCooperation,
		"TCG_P_COMPETITION":      &config.WorkingMemory.PCompetition,
	}
	for name, dst := range floats {
		if v := os.Getenv(name); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}

	if v := os.Getenv("TCG_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.WorkingMemory.Workers = n
		}
	}

	if v := os.Getenv("TCG_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.WorkingMemory.Seed = n
		}
	}

	if v := os.Getenv("TCG_SUITABILITY"); v != "" {
		config.WorkingMemory.Suitability = workmem.Aggregator(v)
	}

	if v := os.Getenv("TCG_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}
