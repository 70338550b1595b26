package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/nvandessel/tcg/internal/fragment"
)

// InMemoryGrammarStore implements GrammarStore for tests and one-shot runs.
type InMemoryGrammarStore struct {
	mu        sync.RWMutex
	fragments map[string]*fragment.Fragment
	order     []string
	concepts  []ConceptEdge
}

// NewInMemoryGrammarStore creates a new in-memory store.
func NewInMemoryGrammarStore() *InMemoryGrammarStore {
	return &InMemoryGrammarStore{
		fragments: make(map[string]*fragment.Fragment),
	}
}

// AddFragment adds or replaces a fragment.
func (s *InMemoryGrammarStore) AddFragment(ctx context.Context, f *fragment.Fragment) (string, error) {
	if f == nil || f.ID == "" {
		return "", fmt.Errorf("fragment ID is required")
	}
	if err := f.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.fragments[f.ID]; !exists {
		s.order = append(s.order, f.ID)
	}
	s.fragments[f.ID] = cloneFragment(f)
	return f.ID, nil
}

// GetFragment retrieves a fragment by ID. Returns nil if not found.
func (s *InMemoryGrammarStore) GetFragment(ctx context.Context, id string) (*fragment.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, exists := s.fragments[id]
	if !exists {
		return nil, nil
	}
	return cloneFragment(f), nil
}

// ListFragments returns fragments in insertion order.
func (s *InMemoryGrammarStore) ListFragments(ctx context.Context, class fragment.Class) ([]*fragment.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*fragment.Fragment
	for _, id := range s.order {
		f := s.fragments[id]
		if class != "" && f.Class != class {
			continue
		}
		out = append(out, cloneFragment(f))
	}
	return out, nil
}

// DeleteFragment removes a fragment. Deleting an absent ID is a no-op.
func (s *InMemoryGrammarStore) DeleteFragment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.fragments[id]; !exists {
		return nil
	}
	delete(s.fragments, id)
	filtered := s.order[:0]
	for _, o := range s.order {
		if o != id {
			filtered = append(filtered, o)
		}
	}
	s.order = filtered
	return nil
}

// AddConcept records a concept edge. A repeated concept moves to the new parent.
func (s *InMemoryGrammarStore) AddConcept(ctx context.Context, edge ConceptEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(append([]ConceptEdge(nil), s.concepts...), edge)
	if _, err := buildOntology(next); err != nil {
		return err
	}
	s.concepts = next
	return nil
}

// Ontology builds the concept hierarchy from the recorded edges.
func (s *InMemoryGrammarStore) Ontology(ctx context.Context) (*fragment.Ontology, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return buildOntology(s.concepts)
}

// Sync is a no-op for the in-memory store.
func (s *InMemoryGrammarStore) Sync(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryGrammarStore) Close() error {
	return nil
}
