// Package dynamics implements the per-instance activation process: a noisy
// leaky integrator whose input is squashed by a logistic function.
//
//	logistic(x) = 1 / (1 + exp(-k*(x-x0)))
//	drive(x)    = (logistic(x) - logistic(0)) / (1 - logistic(0))
//	da          = (dt/tau) * (-a + drive(input) + actRest) + noise
//
// The drive is continuous and increasing with drive(0) = 0. Without input the
// activation relaxes toward actRest and strong positive input pulls it toward
// actRest + 1. Negative input always lowers the drive below the no-input case.
package dynamics

import (
	"math"

	"github.com/nvandessel/tcg/internal/modelerr"
)

// DT is the integration step. The model runs on unit ticks.
const DT = 1.0

// Params holds the dynamics parameters of one process.
type Params struct {
	// Tau is the time constant. Larger values integrate more slowly. Must be > 0.
	Tau float64 `json:"tau" yaml:"tau"`

	// ActRest is the resting offset added to the squashed input.
	ActRest float64 `json:"act_rest" yaml:"act_rest"`

	// K is the logistic gain. Must be > 0.
	K float64 `json:"k" yaml:"k"`

	// X0 is the logistic midpoint.
	X0 float64 `json:"x0" yaml:"x0"`

	// NoiseMean and NoiseStd parameterize the Gaussian noise added each tick.
	NoiseMean float64 `json:"noise_mean" yaml:"noise_mean"`
	NoiseStd  float64 `json:"noise_std" yaml:"noise_std"`
}

// DefaultParams returns the standard parameter set.
func DefaultParams() Params {
	return Params{
		Tau:       10,
		ActRest:   0.001,
		K:         10,
		X0:        0.5,
		NoiseMean: 0,
		NoiseStd:  0,
	}
}

// Validate checks the parameters once, at setup.
func (p Params) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"tau", p.Tau}, {"act_rest", p.ActRest}, {"k", p.K},
		{"x0", p.X0}, {"noise_mean", p.NoiseMean}, {"noise_std", p.NoiseStd},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &modelerr.ConfigError{Field: f.name, Value: f.v, Reason: "must be finite"}
		}
	}
	if p.Tau <= 0 {
		return &modelerr.ConfigError{Field: "tau", Value: p.Tau, Reason: "must be > 0"}
	}
	if p.K <= 0 {
		return &modelerr.ConfigError{Field: "k", Value: p.K, Reason: "must be > 0"}
	}
	if p.NoiseStd < 0 {
		return &modelerr.ConfigError{Field: "noise_std", Value: p.NoiseStd, Reason: "must be >= 0"}
	}
	if p.Logistic(0) >= 1 {
		return &modelerr.ConfigError{Field: "x0", Value: p.X0, Reason: "logistic saturates at zero input"}
	}
	return nil
}

// Logistic squashes x with gain K and midpoint X0.
func (p Params) Logistic(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-p.K*(x-p.X0)))
}

// Noisy reports whether the process draws noise.
func (p Params) Noisy() bool {
	return p.NoiseStd > 0 || p.NoiseMean != 0
}

// Process is the activation state of one schema instance.
type Process struct {
	params Params
	t      int
	a      float64
	input  float64
}

// New creates a process with initial activation a0. Invalid parameters are
// rejected here so that no tick can fail on configuration.
func New(params Params, a0 float64) (*Process, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(a0) || math.IsInf(a0, 0) {
		return nil, &modelerr.ConfigError{Field: "initial_activation", Value: a0, Reason: "must be finite"}
	}
	return &Process{params: params, a: a0}, nil
}

// Params returns the parameters snapshot of the process.
func (p *Process) Params() Params { return p.params }

// Activation returns the published activation.
func (p *Process) Activation() float64 { return p.a }

// Time returns the number of updates applied.
func (p *Process) Time() int { return p.t }

// Input returns the pending input accumulator.
func (p *Process) Input() float64 { return p.input }

// AddInput accumulates input for the next update.
func (p *Process) AddInput(x float64) {
	p.input += x
}

// SetActivation overrides the activation, e.g. to clamp an externally
// driven instance.
func (p *Process) SetActivation(a float64) {
	p.a = a
}

// Drive returns the squashed input term, rescaled so that zero input yields
// zero drive and saturating input yields one.
func (p Params) Drive(input float64) float64 {
	base := p.Logistic(0)
	return (p.Logistic(input) - base) / (1 - base)
}

// Next computes the activation that Update would publish for the given input
// and noise sample, without changing state.
func (p *Process) Next(input, noise float64) float64 {
	da := (DT/p.params.Tau)*(-p.a+p.params.Drive(input)+p.params.ActRest) + noise
	return p.a + da
}

// Update integrates one tick with the given input and noise sample, publishes
// the new activation and clears the accumulator.
func (p *Process) Update(input, noise float64) float64 {
	p.a = p.Next(input, noise)
	p.t++
	p.input = 0
	return p.a
}

// Step integrates one tick using the accumulated input.
func (p *Process) Step(noise float64) float64 {
	return p.Update(p.input, noise)
}

// Commit publishes an activation computed elsewhere with Next, advances the
// clock and clears the accumulator.
func (p *Process) Commit(a float64) {
	p.a = a
	p.t++
	p.input = 0
}

// ClearInput drops any pending input.
func (p *Process) ClearInput() {
	p.input = 0
}
