package fragment

import (
	"fmt"
	"sort"
)

// ConceptRelation decides whether concept a may stand where concept b is
// expected. Implementations must be reflexive.
type ConceptRelation interface {
	IsA(a, b string) bool
}

// ExactConcepts matches concepts by equality only.
type ExactConcepts struct{}

// IsA implements ConceptRelation.
func (ExactConcepts) IsA(a, b string) bool { return a == b }

// Ontology is a single-inheritance concept hierarchy.
type Ontology struct {
	parent map[string]string
}

// NewOntology creates an empty ontology.
func NewOntology() *Ontology {
	return &Ontology{parent: make(map[string]string)}
}

// Add registers concept under parent. An empty parent makes it a root.
// Adding a concept that would create a cycle is an error.
func (o *Ontology) Add(concept, parent string) error {
	if concept == "" {
		return fmt.Errorf("concept name is required")
	}
	if parent != "" {
		for p := parent; p != ""; p = o.parent[p] {
			if p == concept {
				return fmt.Errorf("concept %s: parent %s would create a cycle", concept, parent)
			}
		}
		if _, ok := o.parent[parent]; !ok {
			o.parent[parent] = ""
		}
	}
	o.parent[concept] = parent
	return nil
}

// IsA reports whether a equals b or b is an ancestor of a.
func (o *Ontology) IsA(a, b string) bool {
	if a == b {
		return true
	}
	if o == nil {
		return false
	}
	seen := 0
	for p := o.parent[a]; p != ""; p = o.parent[p] {
		if p == b {
			return true
		}
		// Add prevents cycles; the bound is only a guard against a
		// hand-built map.
		seen++
		if seen > len(o.parent) {
			return false
		}
	}
	return false
}

// Parent returns the direct parent of concept, or "" for roots and unknown
// concepts.
func (o *Ontology) Parent(concept string) string {
	if o == nil {
		return ""
	}
	return o.parent[concept]
}

// Concepts returns every registered concept, sorted.
func (o *Ontology) Concepts() []string {
	out := make([]string, 0, len(o.parent))
	for c := range o.parent {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
