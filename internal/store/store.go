// Package store defines the GrammarStore interface for persisting
// construction fragments and the concept hierarchy they refer to.
package store

import (
	"context"
	"path/filepath"

	"github.com/nvandessel/tcg/internal/fragment"
)

// DirName is the per-project directory holding the grammar database.
const DirName = ".tcg"

// ConceptEdge places a concept under its parent in the is-a hierarchy.
// An empty Parent marks a root concept.
type ConceptEdge struct {
	Concept string `json:"concept"`
	Parent  string `json:"parent,omitempty"`
}

// GrammarStore stores the constructions of a grammar.
//
// Stores never persist unification results on their own; callers decide
// what enters the grammar.
type GrammarStore interface {
	// AddFragment validates and stores f, replacing any fragment with the
	// same ID. It returns the stored ID.
	AddFragment(ctx context.Context, f *fragment.Fragment) (string, error)

	// GetFragment returns the fragment with the given ID, or nil if absent.
	GetFragment(ctx context.Context, id string) (*fragment.Fragment, error)

	// ListFragments returns fragments in insertion order. A non-empty class
	// restricts the result to fragments of that class.
	ListFragments(ctx context.Context, class fragment.Class) ([]*fragment.Fragment, error)

	DeleteFragment(ctx context.Context, id string) error

	// Concept hierarchy
	AddConcept(ctx context.Context, edge ConceptEdge) error
	Ontology(ctx context.Context) (*fragment.Ontology, error)

	// Persistence
	Sync(ctx context.Context) error
	Close() error
}

// LocalPath returns the grammar directory for the given project root.
func LocalPath(projectRoot string) string {
	return filepath.Join(projectRoot, DirName)
}

// Import copies a grammar's concepts and fragments into s. Concepts go first
// so the hierarchy is complete before any fragment refers to it.
func Import(ctx context.Context, s GrammarStore, concepts []ConceptEdge, fragments []*fragment.Fragment) error {
	for _, c := range concepts {
		if err := s.AddConcept(ctx, c); err != nil {
			return err
		}
	}
	for _, f := range fragments {
		if _, err := s.AddFragment(ctx, f); err != nil {
			return err
		}
	}
	return s.Sync(ctx)
}

func cloneFragment(f *fragment.Fragment) *fragment.Fragment {
	out := *f
	out.Frame.Nodes = append([]fragment.SemNode(nil), f.Frame.Nodes...)
	out.Frame.Edges = append([]fragment.SemEdge(nil), f.Frame.Edges...)
	out.Form = make([]fragment.FormElement, len(f.Form))
	for i, el := range f.Form {
		el.Accepts = append([]fragment.Class(nil), el.Accepts...)
		out.Form[i] = el
	}
	out.Links = append([]fragment.SymLink(nil), f.Links...)
	return &out
}

// buildOntology replays concept edges in order.
func buildOntology(edges []ConceptEdge) (*fragment.Ontology, error) {
	o := fragment.NewOntology()
	for _, e := range edges {
		if err := o.Add(e.Concept, e.Parent); err != nil {
			return nil, err
		}
	}
	return o, nil
}
