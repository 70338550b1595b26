package dynamics

import "math/rand/v2"

// NewSource returns the seedable random source used for noise and stochastic
// gating. One source is owned by each working memory.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Noise draws one noise sample. Noise-free parameters consume no randomness,
// so deterministic runs stay aligned regardless of how many instances exist.
func (p Params) Noise(r *rand.Rand) float64 {
	if !p.Noisy() || r == nil {
		return 0
	}
	return p.NoiseMean + p.NoiseStd*r.NormFloat64()
}
