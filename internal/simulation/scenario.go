package simulation

import (
	"github.com/nvandessel/tcg/internal/fragment"
	"github.com/nvandessel/tcg/internal/grammar"
	"github.com/nvandessel/tcg/internal/production"
	"github.com/nvandessel/tcg/internal/retrieval"
	"github.com/nvandessel/tcg/internal/store"
	"github.com/nvandessel/tcg/internal/workmem"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name string

	// Grammar is installed into the runner's store before retrieval.
	Grammar *grammar.File

	// Scene is the perceived frame candidates are retrieved for.
	Scene fragment.SemFrame

	// Config overrides workmem.DefaultConfig(). Its Seed is replaced per run.
	Config *workmem.Config

	Ticks int // 0 = 50

	// Seeds lists one working-memory seed per run. Empty means a single run
	// with the configured seed.
	Seeds []uint64

	// PruneEvery prunes after every n-th tick. 0 never prunes.
	PruneEvery int

	// BeforeTick, when non-nil, is called before each tick of each run,
	// after scene support has been applied. Use it to clamp or inject input.
	BeforeTick func(run, tick int, wm *workmem.WorkingMemory)
}

// RunResult captures the outcome of one seeded run.
type RunResult struct {
	Index int
	Seed  uint64

	// Trace holds the published activations after every tick.
	Trace []map[string]float64

	// Final is the last snapshot, taken before production.
	Final map[string]float64

	// Pruned lists instances removed by pruning, in removal order.
	Pruned []string

	Population *retrieval.Population
	ReadOut    *workmem.Assemblage
	Utterance  production.Utterance
	Spoke      bool
}

// SimulationResult captures all runs and the store the grammar was read from.
type SimulationResult struct {
	Candidates []retrieval.Candidate
	Runs       []RunResult
	Store      *store.SQLiteGrammarStore
}
