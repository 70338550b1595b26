package simulation

import (
	"context"
	"testing"

	"github.com/nvandessel/tcg/internal/fragment"
	"github.com/nvandessel/tcg/internal/production"
	"github.com/nvandessel/tcg/internal/retrieval"
	"github.com/nvandessel/tcg/internal/store"
	"github.com/nvandessel/tcg/internal/unify"
	"github.com/nvandessel/tcg/internal/workmem"
)

// DefaultTicks is the run length used when a scenario leaves Ticks unset.
const DefaultTicks = 50

// Runner orchestrates seeded simulation runs against a real grammar store
// and working memory.
type Runner struct {
	t     *testing.T
	store *store.SQLiteGrammarStore
}

// NewRunner creates a simulation runner with an isolated SQLite store
// and sandboxed HOME directory.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	s, err := store.NewSQLiteGrammarStore(tmpDir)
	if err != nil {
		t.Fatalf("NewRunner: failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Runner{t: t, store: s}
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) SimulationResult {
	r.t.Helper()
	ctx := context.Background()

	// Phase 1: Install the grammar.
	if scenario.Grammar == nil {
		r.t.Fatalf("%s: scenario has no grammar", scenario.Name)
	}
	if err := scenario.Grammar.Install(ctx, r.store); err != nil {
		r.t.Fatalf("%s: Install: %v", scenario.Name, err)
	}
	ontology, err := r.store.Ontology(ctx)
	if err != nil {
		r.t.Fatalf("%s: Ontology: %v", scenario.Name, err)
	}

	// Phase 2: Retrieve once; every run starts from the same candidates.
	candidates, err := retrieval.New(r.store, ontology).RetrieveCandidates(ctx, scenario.Scene)
	if err != nil {
		r.t.Fatalf("%s: RetrieveCandidates: %v", scenario.Name, err)
	}

	cfg := workmem.DefaultConfig()
	if scenario.Config != nil {
		cfg = *scenario.Config
	}
	seeds := scenario.Seeds
	if len(seeds) == 0 {
		seeds = []uint64{cfg.Seed}
	}

	// Phase 3: Run each seed.
	runs := make([]RunResult, len(seeds))
	for i, seed := range seeds {
		cfg.Seed = seed
		runs[i] = r.runOnce(ctx, i, cfg, ontology, candidates, scenario)
	}

	return SimulationResult{
		Candidates: candidates,
		Runs:       runs,
		Store:      r.store,
	}
}

// runOnce drives a fresh working memory through the scenario's ticks and
// attempts one production at the end.
func (r *Runner) runOnce(
	ctx context.Context,
	index int,
	cfg workmem.Config,
	ontology *fragment.Ontology,
	candidates []retrieval.Candidate,
	scenario Scenario,
) RunResult {
	r.t.Helper()

	wm, err := workmem.New(cfg, workmem.WithConceptRelation(ontology))
	if err != nil {
		r.t.Fatalf("run %d: workmem.New: %v", index, err)
	}
	pop, err := retrieval.Populate(wm, candidates)
	if err != nil {
		r.t.Fatalf("run %d: Populate: %v", index, err)
	}

	ticks := scenario.Ticks
	if ticks <= 0 {
		ticks = DefaultTicks
	}

	rr := RunResult{Index: index, Seed: cfg.Seed, Population: pop, Trace: make([]map[string]float64, 0, ticks)}
	for tick := 0; tick < ticks; tick++ {
		pop.Excite(wm)
		if scenario.BeforeTick != nil {
			scenario.BeforeTick(index, tick, wm)
		}
		if _, err := wm.UpdateActivations(ctx); err != nil {
			r.t.Fatalf("run %d tick %d: UpdateActivations: %v", index, tick, err)
		}
		if scenario.PruneEvery > 0 && (tick+1)%scenario.PruneEvery == 0 {
			rr.Pruned = append(rr.Pruned, wm.Prune()...)
		}
		rr.Trace = append(rr.Trace, wm.Snapshot())
	}
	rr.Final = wm.Snapshot()

	// Phase 4: Read out and speak.
	rr.ReadOut = wm.ReadOut()
	u, ok, err := production.Produce(wm, unify.NewEngine(fragment.NewAllocator("sim")))
	if err != nil {
		r.t.Fatalf("run %d: Produce: %v", index, err)
	}
	rr.Utterance, rr.Spoke = u, ok
	return rr
}
