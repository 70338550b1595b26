package workmem

import (
	"testing"

	"github.com/nvandessel/tcg/internal/fragment"
)

// clause builds "[NP] kicks [NP]" with agent slot s1 and patient slot s2.
func clause(id string) *fragment.Fragment {
	return &fragment.Fragment{
		ID:    id,
		Name:  "TRANSITIVE",
		Class: "S",
		Frame: fragment.SemFrame{
			Nodes: []fragment.SemNode{
				{ID: id + ".act", Name: "act", Concept: "KICK", Head: true},
				{ID: id + ".agt", Name: "agt", Concept: "ENTITY"},
				{ID: id + ".pat", Name: "pat", Concept: "ENTITY"},
			},
			Edges: []fragment.SemEdge{
				{ID: id + ".e1", Concept: "AGENT", From: id + ".act", To: id + ".agt"},
				{ID: id + ".e2", Concept: "PATIENT", From: id + ".act", To: id + ".pat"},
			},
		},
		Form: []fragment.FormElement{
			{ID: "s1", Kind: fragment.ElementSlot, Accepts: []fragment.Class{"NP"}},
			{ID: id + ".w", Kind: fragment.ElementTerminal, Word: "kicks"},
			{ID: "s2", Kind: fragment.ElementSlot, Accepts: []fragment.Class{"NP"}},
		},
		Links: []fragment.SymLink{
			{Sem: id + ".agt", Form: "s1"},
			{Sem: id + ".act", Form: id + ".w"},
			{Sem: id + ".pat", Form: "s2"},
		},
	}
}

func np(id, concept, word string) *fragment.Fragment {
	return &fragment.Fragment{
		ID:    id,
		Name:  word,
		Class: "NP",
		Frame: fragment.SemFrame{Nodes: []fragment.SemNode{{ID: id + ".n", Name: word, Concept: concept, Head: true}}},
		Form:  []fragment.FormElement{{ID: id + ".w", Kind: fragment.ElementTerminal, Word: word}},
		Links: []fragment.SymLink{{Sem: id + ".n", Form: id + ".w"}},
	}
}

func ontology(t *testing.T) *fragment.Ontology {
	t.Helper()
	o := fragment.NewOntology()
	for _, p := range [][2]string{
		{"ENTITY", ""}, {"HUMAN", "ENTITY"}, {"WOMAN", "HUMAN"}, {"MAN", "HUMAN"},
		{"BALL", "ENTITY"}, {"ACTION", ""}, {"KICK", "ACTION"},
	} {
		if err := o.Add(p[0], p[1]); err != nil {
			t.Fatalf("ontology: %v", err)
		}
	}
	return o
}

func newMemory(t *testing.T, cfg Config) *WorkingMemory {
	t.Helper()
	wm, err := New(cfg, WithConceptRelation(ontology(t)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return wm
}

func mustAdd(t *testing.T, wm *WorkingMemory, id string, f *fragment.Fragment, a0 float64) {
	t.Helper()
	if err := wm.AddInstance(NewInstance(id, f, a0)); err != nil {
		t.Fatalf("AddInstance(%s) error = %v", id, err)
	}
}
