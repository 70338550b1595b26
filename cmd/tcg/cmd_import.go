package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/tcg/internal/grammar"
	"github.com/nvandessel/tcg/internal/store"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a grammar into the project grammar store",
		Long: `Validate a grammar YAML file and write its concepts and constructions
into .tcg/grammar.db under the project root. Constructions with an existing
id are replaced. The store is exported to .tcg/fragments.jsonl afterwards.

Examples:
  tcg import --grammar kick.yaml
  tcg import --grammar kick.yaml --root ./project --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			grammarPath, _ := cmd.Flags().GetString("grammar")

			if grammarPath == "" {
				return fmt.Errorf("--grammar is required")
			}

			g, err := grammar.LoadFile(grammarPath)
			if err != nil {
				return err
			}

			s, err := store.NewSQLiteGrammarStore(root)
			if err != nil {
				return fmt.Errorf("failed to open grammar store: %w", err)
			}
			defer s.Close()

			if err := g.Install(cmd.Context(), s); err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"grammar":       g.Name,
					"concepts":      len(g.Concepts),
					"constructions": len(g.Constructions),
					"path":          s.Path(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d constructions and %d concepts from %s into %s\n",
				len(g.Constructions), len(g.Concepts), g.Name, s.Path())
			return nil
		},
	}

	cmd.Flags().String("grammar", "", "Grammar YAML file (required)")

	return cmd
}
