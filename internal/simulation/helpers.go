package simulation

import (
	"testing"

	"github.com/nvandessel/tcg/internal/grammar"
)

// Seeds returns the seeds 1..n.
func Seeds(n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = uint64(i + 1)
	}
	return out
}

// MustParse parses an inline YAML grammar or fails the test.
func MustParse(t *testing.T, src string) *grammar.File {
	t.Helper()
	g, err := grammar.Parse([]byte(src))
	if err != nil {
		t.Fatalf("MustParse: %v", err)
	}
	return g
}

// Activation returns id's activation in a snapshot. Pruned instances read 0.
func Activation(snapshot map[string]float64, id string) float64 {
	return snapshot[id]
}

// Winner returns whichever of a and b ends more active, and whether the
// gap between them reaches margin.
func Winner(r RunResult, a, b string, margin float64) (string, bool) {
	va, vb := Activation(r.Final, a), Activation(r.Final, b)
	if va >= vb {
		return a, va-vb >= margin
	}
	return b, vb-va >= margin
}

// Wins counts the decisive wins of a and b across all runs.
func Wins(result SimulationResult, a, b string, margin float64) (aWins, bWins int) {
	for _, r := range result.Runs {
		w, decisive := Winner(r, a, b, margin)
		if !decisive {
			continue
		}
		if w == a {
			aWins++
		} else {
			bWins++
		}
	}
	return aWins, bWins
}
