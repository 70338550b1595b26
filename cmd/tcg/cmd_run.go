package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/tcg/internal/config"
	"github.com/nvandessel/tcg/internal/fragment"
	"github.com/nvandessel/tcg/internal/grammar"
	"github.com/nvandessel/tcg/internal/logging"
	"github.com/nvandessel/tcg/internal/production"
	"github.com/nvandessel/tcg/internal/retrieval"
	"github.com/nvandessel/tcg/internal/store"
	"github.com/nvandessel/tcg/internal/unify"
	"github.com/nvandessel/tcg/internal/workmem"
)

// runOutput is the JSON shape of a run.
type runOutput struct {
	Grammar     string             `json:"grammar"`
	Scene       string             `json:"scene"`
	Seed        uint64             `json:"seed"`
	Ticks       int                `json:"ticks"`
	Spoke       bool               `json:"spoke"`
	Utterance   string             `json:"utterance"`
	Top         string             `json:"top,omitempty"`
	Suitability float64            `json:"suitability,omitempty"`
	Members     []string           `json:"members,omitempty"`
	Pruned      []string           `json:"pruned,omitempty"`
	Activations map[string]float64 `json:"activations"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Describe a scene with a grammar",
		Long: `Retrieve the constructions that fit a scene, run the working memory for a
number of ticks and print the utterance read out from the winning assemblage.

Examples:
  tcg run --grammar kick.yaml --scene woman-kicks-ball
  tcg run --grammar kick.yaml --ticks 100 --seed 7 --json
  tcg run --grammar kick.yaml --from-store --root ./project`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			grammarPath, _ := cmd.Flags().GetString("grammar")
			sceneName, _ := cmd.Flags().GetString("scene")
			ticks, _ := cmd.Flags().GetInt("ticks")
			pruneEvery, _ := cmd.Flags().GetInt("prune-every")
			configPath, _ := cmd.Flags().GetString("config")
			fromStore, _ := cmd.Flags().GetBool("from-store")

			if grammarPath == "" {
				return fmt.Errorf("--grammar is required")
			}
			if ticks < 0 {
				return fmt.Errorf("--ticks must be >= 0")
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.WorkingMemory.Seed, _ = cmd.Flags().GetUint64("seed")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
			dl := logging.NewDecisionLogger(filepath.Join(root, cfg.Logging.Dir), cfg.Logging.Level)
			defer dl.Close()

			g, err := grammar.LoadFile(grammarPath)
			if err != nil {
				return err
			}
			if sceneName == "" {
				names := g.SceneNames()
				if len(names) == 0 {
					return fmt.Errorf("grammar %s has no scenes", g.Name)
				}
				sceneName = names[0]
			}
			scene, err := g.Scene(sceneName)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			var gs store.GrammarStore
			if fromStore {
				s, err := store.NewSQLiteGrammarStore(root)
				if err != nil {
					return fmt.Errorf("failed to open grammar store: %w", err)
				}
				defer s.Close()
				gs = s
			} else {
				s, err := g.Memory(ctx)
				if err != nil {
					return fmt.Errorf("failed to load grammar: %w", err)
				}
				gs = s
			}
			ontology, err := gs.Ontology(ctx)
			if err != nil {
				return fmt.Errorf("failed to load concepts: %w", err)
			}

			candidates, err := retrieval.New(gs, ontology, retrieval.WithLogger(logger)).RetrieveCandidates(ctx, scene)
			if err != nil {
				return fmt.Errorf("retrieval failed: %w", err)
			}
			logger.Info("retrieved candidates", "scene", sceneName, "count", len(candidates))

			wm, err := workmem.New(cfg.WorkMem(),
				workmem.WithConceptRelation(ontology),
				workmem.WithLogger(logger),
				workmem.WithDecisionLogger(dl),
			)
			if err != nil {
				return err
			}
			pop, err := retrieval.Populate(wm, candidates)
			if err != nil {
				return err
			}

			var pruned []string
			for tick := 0; tick < ticks; tick++ {
				pop.Excite(wm)
				if _, err := wm.UpdateActivations(ctx); err != nil {
					return fmt.Errorf("tick %d: %w", tick+1, err)
				}
				if pruneEvery > 0 && (tick+1)%pruneEvery == 0 {
					pruned = append(pruned, wm.Prune()...)
				}
			}
			activations := wm.Snapshot()

			u, ok, err := production.Produce(wm, unify.NewEngine(fragment.NewAllocator("u")))
			if err != nil {
				return fmt.Errorf("production failed: %w", err)
			}

			if jsonOut {
				out := runOutput{
					Grammar:     g.Name,
					Scene:       sceneName,
					Seed:        cfg.WorkingMemory.Seed,
					Ticks:       ticks,
					Spoke:       ok,
					Utterance:   u.Text(),
					Pruned:      pruned,
					Activations: activations,
				}
				if u.Assemblage != nil {
					out.Top = u.Assemblage.Top
					out.Suitability = u.Assemblage.Suitability
					out.Members = u.Assemblage.Members
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "(nothing to say)")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), u.Text())
			return nil
		},
	}

	cmd.Flags().String("grammar", "", "Grammar YAML file (required)")
	cmd.Flags().String("scene", "", "Scene name (default: first scene in the grammar)")
	cmd.Flags().Int("ticks", 50, "Number of ticks to run before read-out")
	cmd.Flags().Uint64("seed", 0, "Random seed (overrides configuration)")
	cmd.Flags().Int("prune-every", 0, "Prune not-alive instances every N ticks (0 = never)")
	cmd.Flags().String("config", "", "Configuration file (default: ~/.tcg/config.yaml)")
	cmd.Flags().Bool("from-store", false, "Retrieve constructions from the project grammar store")

	return cmd
}

func loadConfig(path string) (*config.TCGConfig, error) {
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// signalContext returns a context canceled on interrupt, so a long run stops
// at the next tick boundary.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	notifySignals(ch)
	go func() {
		defer signal.Stop(ch)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
