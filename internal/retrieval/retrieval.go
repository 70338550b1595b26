// Package retrieval turns a perceived scene into working-memory candidates.
//
// Every construction whose semantic frame embeds into the scene yields one
// candidate per embedding. Populate then inserts the candidates into a
// working memory and wires them: a candidate whose head covers the scene
// node a parent's slot stands for cooperates with that parent, and
// candidates claiming a common scene node without cooperating compete.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nvandessel/tcg/internal/fragment"
	"github.com/nvandessel/tcg/internal/logging"
	"github.com/nvandessel/tcg/internal/store"
)

// DefaultMaxMatches caps the embeddings considered per construction.
const DefaultMaxMatches = 16

// Candidate is one placement of a construction onto the scene.
type Candidate struct {
	// ID is the working-memory instance id: the fragment id plus a match
	// ordinal.
	ID       string
	Fragment *fragment.Fragment
	// Covers maps fragment node ids to scene node ids.
	Covers map[string]string
	// Support is the fraction of scene nodes covered, scaled by the
	// construction's preference.
	Support float64
}

// Retriever matches grammar constructions against scenes.
type Retriever struct {
	grammar    store.GrammarStore
	rel        fragment.ConceptRelation
	logger     *slog.Logger
	maxMatches int
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// WithMaxMatches caps the embeddings per construction. 0 means no cap.
func WithMaxMatches(n int) Option {
	return func(r *Retriever) { r.maxMatches = n }
}

// New creates a retriever over a grammar store. A nil relation matches
// concepts exactly.
func New(grammar store.GrammarStore, rel fragment.ConceptRelation, opts ...Option) *Retriever {
	if rel == nil {
		rel = fragment.ExactConcepts{}
	}
	r := &Retriever{
		grammar:    grammar,
		rel:        rel,
		logger:     logging.Discard(),
		maxMatches: DefaultMaxMatches,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RetrieveCandidates returns the candidates for scene in grammar order, each
// construction's matches in match order.
func (r *Retriever) RetrieveCandidates(ctx context.Context, scene fragment.SemFrame) ([]Candidate, error) {
	fragments, err := r.grammar.ListFragments(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing grammar: %w", err)
	}

	var out []Candidate
	for _, f := range fragments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matches, err := fragment.MatchFrame(f.Frame, scene, r.rel, r.maxMatches)
		if err != nil {
			r.logger.Warn("skipping construction", "fragment", f.ID, "error", err)
			continue
		}
		for i, m := range matches {
			c := Candidate{
				ID:       fmt.Sprintf("%s#%d", f.ID, i+1),
				Fragment: f,
				Covers:   map[string]string(m),
			}
			c.Support = support(c, len(scene.Nodes))
			out = append(out, c)
		}
		r.logger.Debug("matched construction", "fragment", f.ID, "matches", len(matches))
	}
	r.logger.Info("retrieved candidates", "constructions", len(fragments), "candidates", len(out))
	return out, nil
}

func support(c Candidate, sceneSize int) float64 {
	if sceneSize == 0 {
		return 0
	}
	covered := make(map[string]bool, len(c.Covers))
	for _, x := range c.Covers {
		covered[x] = true
	}
	return float64(len(covered)) / float64(sceneSize) * (1 + c.Fragment.Preference)
}
