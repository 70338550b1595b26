package workmem

import (
	"math"

	"github.com/nvandessel/tcg/internal/dynamics"
	"github.com/nvandessel/tcg/internal/modelerr"
)

// Aggregator names the suitability aggregate over assemblage members.
type Aggregator string

const (
	// AggregateSum sums member activations. Larger trees score higher.
	AggregateSum Aggregator = "sum"
	// AggregateMean averages member activations.
	AggregateMean Aggregator = "mean"
)

// Config holds the dynamics and bookkeeping parameters of a working memory.
// Dynamics is snapshotted into each instance when it is added; later
// SetConfig calls do not affect instances already present.
type Config struct {
	Dynamics dynamics.Params `json:"dynamics" yaml:"dynamics"`

	// InitialActivation is the starting activation retrieval assigns to new
	// instances. Default: 0.5.
	InitialActivation float64 `json:"initial_activation" yaml:"initial_activation"`

	// PruneThreshold flags an instance not-alive when its activation drops
	// below it. Default: 0.01.
	PruneThreshold float64 `json:"prune_threshold" yaml:"prune_threshold"`

	// CooperationWeight is the default weight for new cooperation links. Default: 1.0.
	CooperationWeight float64 `json:"cooperation_weight" yaml:"cooperation_weight"`

	// CompetitionWeight is the default weight for new competition links. Default: -1.0.
	CompetitionWeight float64 `json:"competition_weight" yaml:"competition_weight"`

	// PCooperation and PCompetition gate each link per tick. Default: 1.0.
	PCooperation float64 `json:"p_cooperation" yaml:"p_cooperation"`
	PCompetition float64 `json:"p_competition" yaml:"p_competition"`

	// Suitability selects the assemblage score aggregate. Default: sum.
	Suitability Aggregator `json:"suitability" yaml:"suitability"`

	// Workers bounds the integration pool. 0 or 1 integrates serially.
	Workers int `json:"workers" yaml:"workers"`

	// Seed feeds the working memory's random source. Applied at New and Reset.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// DefaultConfig returns the default working memory configuration.
func DefaultConfig() Config {
	return Config{
		Dynamics:          dynamics.DefaultParams(),
		InitialActivation: 0.5,
		PruneThreshold:    0.01,
		CooperationWeight: 1.0,
		CompetitionWeight: -1.0,
		PCooperation:      1.0,
		PCompetition:      1.0,
		Suitability:       AggregateSum,
		Workers:           1,
		Seed:              1,
	}
}

// Validate checks the configuration. Errors are *modelerr.ConfigError.
func (c Config) Validate() error {
	if err := c.Dynamics.Validate(); err != nil {
		return err
	}
	finite := []struct {
		name string
		v    float64
	}{
		{"initial_activation", c.InitialActivation},
		{"prune_threshold", c.PruneThreshold},
		{"cooperation_weight", c.CooperationWeight},
		{"competition_weight", c.CompetitionWeight},
	}
	for _, f := range finite {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &modelerr.ConfigError{Field: f.name, Value: f.v, Reason: "must be finite"}
		}
	}
	if c.PCooperation < 0 || c.PCooperation > 1 {
		return &modelerr.ConfigError{Field: "p_cooperation", Value: c.PCooperation, Reason: "must be in [0, 1]"}
	}
	if c.PCompetition < 0 || c.PCompetition > 1 {
		return &modelerr.ConfigError{Field: "p_competition", Value: c.PCompetition, Reason: "must be in [0, 1]"}
	}
	switch c.Suitability {
	case AggregateSum, AggregateMean:
	default:
		return &modelerr.ConfigError{Field: "suitability", Value: c.Suitability, Reason: "must be sum or mean"}
	}
	if c.Workers < 0 {
		return &modelerr.ConfigError{Field: "workers", Value: c.Workers, Reason: "must be >= 0"}
	}
	return nil
}
