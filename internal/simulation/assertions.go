package simulation

import (
	"math"
	"testing"
)

// AssertSymmetryBroken asserts that in at least minFraction of runs one of a
// and b ends ahead of the other by at least margin.
func AssertSymmetryBroken(t *testing.T, result SimulationResult, a, b string, margin, minFraction float64) {
	t.Helper()
	if len(result.Runs) == 0 {
		t.Errorf("AssertSymmetryBroken: no runs")
		return
	}
	aWins, bWins := Wins(result, a, b, margin)
	frac := float64(aWins+bWins) / float64(len(result.Runs))
	if frac < minFraction {
		t.Errorf("AssertSymmetryBroken: %s/%s decisive in %.2f of %d runs (need %.2f); %s won %d, %s won %d",
			a, b, frac, len(result.Runs), minFraction, a, aWins, b, bWins)
	}
}

// AssertBothWin asserts that each of a and b wins decisively in at least
// minEach runs, i.e. neither side is favored by construction.
func AssertBothWin(t *testing.T, result SimulationResult, a, b string, margin float64, minEach int) {
	t.Helper()
	aWins, bWins := Wins(result, a, b, margin)
	if aWins < minEach || bWins < minEach {
		t.Errorf("AssertBothWin: %s won %d, %s won %d (need %d each)", a, aWins, b, bWins, minEach)
	}
}

// AssertDominates asserts that winner ends more active than loser in every
// run.
func AssertDominates(t *testing.T, result SimulationResult, winner, loser string) {
	t.Helper()
	for _, r := range result.Runs {
		w, l := Activation(r.Final, winner), Activation(r.Final, loser)
		if w <= l {
			t.Errorf("AssertDominates: run %d (seed %d): %s %.4f <= %s %.4f", r.Index, r.Seed, winner, w, loser, l)
		}
	}
}

// AssertReadOut asserts that every run reads out an assemblage topped by top
// with no unfilled slots.
func AssertReadOut(t *testing.T, result SimulationResult, top string) {
	t.Helper()
	for _, r := range result.Runs {
		if r.ReadOut == nil {
			t.Errorf("AssertReadOut: run %d: nothing to read out", r.Index)
			continue
		}
		if r.ReadOut.Top != top {
			t.Errorf("AssertReadOut: run %d: top %s, want %s", r.Index, r.ReadOut.Top, top)
		}
		if r.ReadOut.Unfilled != 0 {
			t.Errorf("AssertReadOut: run %d: %d unfilled slots", r.Index, r.ReadOut.Unfilled)
		}
	}
}

// AssertUtterance asserts that at least minFraction of runs say want.
func AssertUtterance(t *testing.T, result SimulationResult, want string, minFraction float64) {
	t.Helper()
	if len(result.Runs) == 0 {
		t.Errorf("AssertUtterance: no runs")
		return
	}
	count := 0
	var other string
	for _, r := range result.Runs {
		if r.Spoke && r.Utterance.Text() == want {
			count++
		} else if other == "" {
			other = r.Utterance.Text()
		}
	}
	frac := float64(count) / float64(len(result.Runs))
	if frac < minFraction {
		t.Errorf("AssertUtterance: %q in %.2f of runs (need %.2f); e.g. got %q", want, frac, minFraction, other)
	}
}

// AssertActivationBounded asserts that every traced activation is finite and
// within [lo, hi].
func AssertActivationBounded(t *testing.T, result SimulationResult, lo, hi float64) {
	t.Helper()
	for _, r := range result.Runs {
		for tick, snap := range r.Trace {
			for id, a := range snap {
				if math.IsNaN(a) || a < lo || a > hi {
					t.Errorf("AssertActivationBounded: run %d tick %d: %s = %.6f not in [%.2f, %.2f]", r.Index, tick+1, id, a, lo, hi)
					return
				}
			}
		}
	}
}

// AssertActivationConverges asserts that id's activation stays within tol of
// target from tick afterTick on, in every run.
func AssertActivationConverges(t *testing.T, result SimulationResult, id string, target, tol float64, afterTick int) {
	t.Helper()
	for _, r := range result.Runs {
		for tick := afterTick; tick < len(r.Trace); tick++ {
			a, ok := r.Trace[tick][id]
			if !ok {
				t.Errorf("AssertActivationConverges: run %d tick %d: %s not present", r.Index, tick+1, id)
				break
			}
			if math.Abs(a-target) > tol {
				t.Errorf("AssertActivationConverges: run %d tick %d: %s = %.6f, want %.4f±%.4f", r.Index, tick+1, id, a, target, tol)
				break
			}
		}
	}
}
