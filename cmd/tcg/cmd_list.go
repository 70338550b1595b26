package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/tcg/internal/fragment"
	"github.com/nvandessel/tcg/internal/production"
	"github.com/nvandessel/tcg/internal/store"
)

// listEntry is the JSON shape of one stored construction.
type listEntry struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Class      string  `json:"class"`
	Preference float64 `json:"preference,omitempty"`
	Form       string  `json:"form"`
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the constructions in the project grammar store",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			class, _ := cmd.Flags().GetString("class")

			if _, err := os.Stat(store.LocalPath(root)); os.IsNotExist(err) {
				if jsonOut {
					json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"error": "grammar store not initialized",
					})
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No grammar store found. Run 'tcg import' first.")
				}
				return nil
			}

			s, err := store.NewSQLiteGrammarStore(root)
			if err != nil {
				return fmt.Errorf("failed to open grammar store: %w", err)
			}
			defer s.Close()

			frags, err := s.ListFragments(cmd.Context(), fragment.Class(class))
			if err != nil {
				return fmt.Errorf("failed to list constructions: %w", err)
			}

			entries := make([]listEntry, len(frags))
			for i, f := range frags {
				entries[i] = listEntry{
					ID:         f.ID,
					Name:       f.Name,
					Class:      string(f.Class),
					Preference: f.Preference,
					Form:       strings.Join(production.Utter(f), " "),
				}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"constructions": entries,
					"count":         len(entries),
				})
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No constructions found.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Constructions (%d):\n\n", len(entries))
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-14s %-4s %s\n", e.ID, e.Class, e.Form)
			}
			return nil
		},
	}

	cmd.Flags().String("class", "", "Only list constructions of this class")

	return cmd
}
