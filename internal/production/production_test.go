package production

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nvandessel/tcg/internal/fragment"
	"github.com/nvandessel/tcg/internal/grammar"
	"github.com/nvandessel/tcg/internal/retrieval"
	"github.com/nvandessel/tcg/internal/unify"
	"github.com/nvandessel/tcg/internal/workmem"
)

func np(id, concept string, words ...string) *fragment.Fragment {
	f := &fragment.Fragment{
		ID:    id,
		Name:  id,
		Class: "NP",
		Frame: fragment.SemFrame{Nodes: []fragment.SemNode{{ID: id + ".n", Concept: concept, Head: true}}},
	}
	for i, w := range words {
		f.Form = append(f.Form, fragment.FormElement{ID: id + ".w" + string(rune('0'+i)), Kind: fragment.ElementTerminal, Word: w})
	}
	return f
}

// clause is "[NP] sees [NP]".
func clause(id string) *fragment.Fragment {
	return &fragment.Fragment{
		ID:    id,
		Name:  "SEE",
		Class: "S",
		Frame: fragment.SemFrame{
			Nodes: []fragment.SemNode{
				{ID: "v", Concept: "SEE", Head: true},
				{ID: "a", Concept: "THING"},
				{ID: "p", Concept: "THING"},
			},
			Edges: []fragment.SemEdge{
				{ID: "ea", Concept: "AGENT", From: "v", To: "a"},
				{ID: "ep", Concept: "PATIENT", From: "v", To: "p"},
			},
		},
		Form: []fragment.FormElement{
			{ID: "sa", Kind: fragment.ElementSlot, Accepts: []fragment.Class{"NP"}},
			{ID: "t", Kind: fragment.ElementTerminal, Word: "sees"},
			{ID: "sp", Kind: fragment.ElementSlot, Accepts: []fragment.Class{"NP", "PRO"}},
		},
		Links: []fragment.SymLink{{Sem: "a", Form: "sa"}, {Sem: "v", Form: "t"}, {Sem: "p", Form: "sp"}},
	}
}

func memory(t *testing.T) *workmem.WorkingMemory {
	t.Helper()
	o := fragment.NewOntology()
	o.Add("DOG", "THING")
	o.Add("CAT", "THING")
	wm, err := workmem.New(workmem.DefaultConfig(), workmem.WithConceptRelation(o))
	if err != nil {
		t.Fatal(err)
	}
	return wm
}

func add(t *testing.T, wm *workmem.WorkingMemory, f *fragment.Fragment, a0 float64) {
	t.Helper()
	if err := wm.AddInstance(workmem.NewInstance(f.ID, f, a0)); err != nil {
		t.Fatal(err)
	}
}

func link(t *testing.T, wm *workmem.WorkingMemory, from, to, slot string) {
	t.Helper()
	if _, err := wm.AddCooperationLink(from, "", to, slot, 1); err != nil {
		t.Fatal(err)
	}
}

func TestCompose_FullTree(t *testing.T) {
	wm := memory(t)
	add(t, wm, clause("s"), 0.8)
	add(t, wm, np("dog", "DOG", "the", "dog"), 0.6)
	add(t, wm, np("cat", "CAT", "a", "cat"), 0.6)
	link(t, wm, "dog", "s", "sa")
	link(t, wm, "cat", "s", "sp")

	a, err := wm.ExtractAssemblage("s")
	if err != nil {
		t.Fatal(err)
	}
	f, err := Compose(wm, a, unify.NewEngine(nil))
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if diff := cmp.Diff([]string{"the", "dog", "sees", "a", "cat"}, Utter(f)); diff != "" {
		t.Errorf("Utter() mismatch (-want +got):\n%s", diff)
	}
	if err := f.Validate(); err != nil {
		t.Errorf("composite does not validate: %v", err)
	}
	head, err := f.Head()
	if err != nil || head.Concept != "SEE" {
		t.Errorf("composite head = %+v, %v; want SEE", head, err)
	}
	if len(f.Frame.Nodes) != 3 {
		t.Errorf("composite nodes = %d, want 3", len(f.Frame.Nodes))
	}
}

func TestCompose_PartialTree(t *testing.T) {
	wm := memory(t)
	add(t, wm, clause("s"), 0.8)
	add(t, wm, np("dog", "DOG", "the", "dog"), 0.6)
	link(t, wm, "dog", "s", "sa")

	a, _ := wm.ExtractAssemblage("s")
	f, err := Compose(wm, a, unify.NewEngine(nil))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"the", "dog", "sees", "[NP|PRO]"}, Utter(f)); diff != "" {
		t.Errorf("Utter() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_Errors(t *testing.T) {
	wm := memory(t)
	if _, err := Compose(wm, nil, unify.NewEngine(nil)); err == nil {
		t.Error("Compose(nil) should fail")
	}

	add(t, wm, np("dog", "DOG", "dog"), 0.5)
	a, _ := wm.ExtractAssemblage("dog")
	wm.RemoveInstance("dog")
	if _, err := Compose(wm, a, unify.NewEngine(nil)); err == nil {
		t.Error("Compose() with a removed member should fail")
	}
}

func TestUtter(t *testing.T) {
	tests := []struct {
		name string
		f    *fragment.Fragment
		want []string
	}{
		{"nil", nil, nil},
		{"terminals", np("x", "DOG", "the", "dog"), []string{"the", "dog"}},
		{"wildcard slot", &fragment.Fragment{Form: []fragment.FormElement{{ID: "s", Kind: fragment.ElementSlot}}}, []string{"[*]"}},
		{"empty terminal skipped", &fragment.Fragment{Form: []fragment.FormElement{{ID: "t", Kind: fragment.ElementTerminal}}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Utter(tt.f)); diff != "" {
				t.Errorf("Utter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProduce_Scene(t *testing.T) {
	g, err := grammar.LoadFile(filepath.Join("..", "grammar", "testdata", "kick.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	s, err := g.Memory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	o, _ := s.Ontology(ctx)
	scene, _ := g.Scene("woman-kicks-ball")

	cands, err := retrieval.New(s, o).RetrieveCandidates(ctx, scene)
	if err != nil {
		t.Fatal(err)
	}
	wm, err := workmem.New(workmem.DefaultConfig(), workmem.WithConceptRelation(o))
	if err != nil {
		t.Fatal(err)
	}
	pop, err := retrieval.Populate(wm, cands)
	if err != nil {
		t.Fatal(err)
	}
	for range 50 {
		pop.Excite(wm)
		if _, err := wm.UpdateActivations(ctx); err != nil {
			t.Fatal(err)
		}
	}

	u, ok, err := Produce(wm, unify.NewEngine(fragment.NewAllocator("p")))
	if err != nil || !ok {
		t.Fatalf("Produce() = %v, %v", ok, err)
	}
	if got := u.Text(); got != "the woman kicks the ball" {
		t.Errorf("Text() = %q, want %q", got, "the woman kicks the ball")
	}
	// The clause head was the verb slot's node; the verb took its place.
	if head, err := u.Fragment.Head(); err != nil || head.Concept != "KICK" {
		t.Errorf("composite head = %+v, %v; want KICK", head, err)
	}
	for _, id := range u.Assemblage.Members {
		inst, _ := wm.Instance(id)
		if !inst.Old() {
			t.Errorf("%s not marked consumed", id)
		}
	}
	if person, _ := wm.Instance("the-person#1"); person.Old() {
		t.Error("losing competitor marked consumed")
	}
}

func TestProduce_Empty(t *testing.T) {
	_, ok, err := Produce(memory(t), unify.NewEngine(nil))
	if ok || err != nil {
		t.Errorf("Produce() on empty memory = %v, %v; want false, nil", ok, err)
	}
}
