// Package simulation provides a multi-run test harness for validating the
// emergent dynamics of the working memory.
//
// The simulation exercises the real grammar loader, SQLiteGrammarStore,
// retrieval, working memory and production pipeline with no mocks. A
// scenario names a grammar and a scene; the runner retrieves candidates once
// and then drives one working memory per seed for a configurable number of
// ticks, capturing activation traces for property-based assertions.
//
// Each test gets an isolated SQLite database via t.TempDir() and a sandboxed
// HOME to prevent touching user data.
//
// Usage:
//
//	func TestWinnerTakesAll(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:    "winner-takes-all",
//	        Grammar: g,
//	        Scene:   scene,
//	        Ticks:   200,
//	        Seeds:   simulation.Seeds(100),
//	    })
//	    simulation.AssertSymmetryBroken(t, result, "dog#1", "hound#1", 0.5, 0.95)
//	}
package simulation
