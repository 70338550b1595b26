// Package fragment defines construction fragments: reusable grammar templates
// pairing a semantic frame graph with an ordered syntactic form, plus the
// symbolic links between the two.
//
// Fragments are treated as immutable once built. Operations that derive new
// structure (copying, unification) always produce new fragments with fresh
// identities drawn from an Allocator.
package fragment

import (
	"fmt"

	"github.com/nvandessel/tcg/internal/modelerr"
)

// Class is a syntactic class label such as "NP" or "S".
type Class string

// WildcardClass is accepted by every slot.
const WildcardClass Class = "*"

// ElementKind distinguishes open slots from fixed terminals in a form.
type ElementKind string

const (
	ElementSlot     ElementKind = "slot"
	ElementTerminal ElementKind = "terminal"
)

// SemNode is a node of a semantic frame.
type SemNode struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Concept string `json:"concept" yaml:"concept"`
	Head    bool   `json:"head,omitempty" yaml:"head,omitempty"`
	Focus   bool   `json:"focus,omitempty" yaml:"focus,omitempty"`
}

// SemEdge is a directed, concept-labelled relation between two nodes.
type SemEdge struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Concept string `json:"concept" yaml:"concept"`
	From    string `json:"from" yaml:"from"`
	To      string `json:"to" yaml:"to"`
}

// SemFrame is the semantic graph of a fragment.
type SemFrame struct {
	Nodes []SemNode `json:"nodes" yaml:"nodes"`
	Edges []SemEdge `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// Node returns the node with the given id.
func (f SemFrame) Node(id string) (SemNode, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return SemNode{}, false
}

// Heads returns every node flagged as head.
func (f SemFrame) Heads() []SemNode {
	var heads []SemNode
	for _, n := range f.Nodes {
		if n.Head {
			heads = append(heads, n)
		}
	}
	return heads
}

// FormElement is one position of a syntactic form: either a slot waiting
// for a filler of an accepted class, or a terminal word.
type FormElement struct {
	ID      string      `json:"id" yaml:"id"`
	Kind    ElementKind `json:"kind" yaml:"kind"`
	Word    string      `json:"word,omitempty" yaml:"word,omitempty"`
	Accepts []Class     `json:"accepts,omitempty" yaml:"accepts,omitempty"`
}

// IsSlot reports whether the element is an open slot.
func (e FormElement) IsSlot() bool {
	return e.Kind == ElementSlot
}

// AcceptsClass reports whether a filler of class c may occupy the slot.
func (e FormElement) AcceptsClass(c Class) bool {
	if c == WildcardClass {
		return true
	}
	for _, a := range e.Accepts {
		if a == c || a == WildcardClass {
			return true
		}
	}
	return false
}

// SymLink ties a semantic node to a form element.
type SymLink struct {
	Sem  string `json:"sem" yaml:"sem"`
	Form string `json:"form" yaml:"form"`
}

// Fragment is a construction template.
type Fragment struct {
	ID         string        `json:"id" yaml:"id"`
	Name       string        `json:"name" yaml:"name"`
	Class      Class         `json:"class" yaml:"class"`
	Frame      SemFrame      `json:"frame" yaml:"frame"`
	Form       []FormElement `json:"form" yaml:"form"`
	Links      []SymLink     `json:"links,omitempty" yaml:"links,omitempty"`
	Preference float64       `json:"preference,omitempty" yaml:"preference,omitempty"`
}

// Kind implements Content.
func (f *Fragment) Kind() ContentKind { return KindConstruction }

// SemanticFrame implements Content.
func (f *Fragment) SemanticFrame() SemFrame { return f.Frame }

// SyntacticForm implements Content.
func (f *Fragment) SyntacticForm() []FormElement { return f.Form }

// SymbolicLinks implements Content.
func (f *Fragment) SymbolicLinks() []SymLink { return f.Links }

// Head returns the single head node of the fragment.
// It fails with ErrNoHead or ErrMultipleHeads otherwise.
func (f *Fragment) Head() (SemNode, error) {
	heads := f.Frame.Heads()
	switch len(heads) {
	case 0:
		return SemNode{}, modelerr.Structural(modelerr.ErrNoHead, f.ID, f.Name)
	case 1:
		return heads[0], nil
	default:
		return SemNode{}, modelerr.Structural(modelerr.ErrMultipleHeads, f.ID, fmt.Sprintf("%d heads", len(heads)))
	}
}

// ElementIndex returns the position of a form element, or -1.
func (f *Fragment) ElementIndex(id string) int {
	for i, e := range f.Form {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Slot returns the slot element with the given id.
func (f *Fragment) Slot(id string) (FormElement, bool) {
	i := f.ElementIndex(id)
	if i < 0 || !f.Form[i].IsSlot() {
		return FormElement{}, false
	}
	return f.Form[i], true
}

// Slots returns the slot elements in form order.
func (f *Fragment) Slots() []FormElement {
	var slots []FormElement
	for _, e := range f.Form {
		if e.IsSlot() {
			slots = append(slots, e)
		}
	}
	return slots
}

// SlotNode returns the semantic node symbolically linked to a slot.
func (f *Fragment) SlotNode(slotID string) (SemNode, bool) {
	for _, l := range f.Links {
		if l.Form == slotID {
			return f.Frame.Node(l.Sem)
		}
	}
	return SemNode{}, false
}

// Validate checks referential integrity: unique ids, every edge endpoint and
// every symbolic link refers to an existing element, at most one head.
func (f *Fragment) Validate() error {
	seen := make(map[string]bool)
	claim := func(id, what string) error {
		if id == "" {
			return fmt.Errorf("fragment %s: %s with empty id", f.ID, what)
		}
		if seen[id] {
			return modelerr.Structural(modelerr.ErrDuplicateID, id, "fragment "+f.ID)
		}
		seen[id] = true
		return nil
	}

	nodes := make(map[string]bool, len(f.Frame.Nodes))
	for _, n := range f.Frame.Nodes {
		if err := claim(n.ID, "node"); err != nil {
			return err
		}
		nodes[n.ID] = true
	}
	for _, e := range f.Frame.Edges {
		if err := claim(e.ID, "edge"); err != nil {
			return err
		}
		if !nodes[e.From] || !nodes[e.To] {
			return fmt.Errorf("fragment %s: edge %s references missing node (%s -> %s)", f.ID, e.ID, e.From, e.To)
		}
	}
	elements := make(map[string]bool, len(f.Form))
	for _, el := range f.Form {
		if err := claim(el.ID, "form element"); err != nil {
			return err
		}
		if el.Kind != ElementSlot && el.Kind != ElementTerminal {
			return fmt.Errorf("fragment %s: element %s has unknown kind %q", f.ID, el.ID, el.Kind)
		}
		elements[el.ID] = true
	}
	for _, l := range f.Links {
		if !nodes[l.Sem] || !elements[l.Form] {
			return fmt.Errorf("fragment %s: symbolic link %s<->%s references missing element", f.ID, l.Sem, l.Form)
		}
	}
	if len(f.Frame.Heads()) > 1 {
		_, err := f.Head()
		return err
	}
	return nil
}
