package grammar

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadFile(t *testing.T) {
	f, err := LoadFile(filepath.Join("testdata", "kick.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if f.Name != "kick" {
		t.Errorf("Name = %s, want kick", f.Name)
	}
	var ids []string
	for _, frag := range f.Fragments() {
		ids = append(ids, frag.ID)
	}
	want := []string{"transitive", "kicks", "the-woman", "the-person", "the-ball"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("Fragments() mismatch (-want +got):\n%s", diff)
	}

	o, err := f.Ontology()
	if err != nil {
		t.Fatal(err)
	}
	if !o.IsA("WOMAN", "ENTITY") || o.IsA("BALL", "HUMAN") {
		t.Error("ontology relations wrong")
	}

	scene, err := f.Scene("woman-kicks-ball")
	if err != nil {
		t.Fatal(err)
	}
	if len(scene.Nodes) != 3 || len(scene.Edges) != 2 {
		t.Errorf("scene has %d nodes, %d edges; want 3, 2", len(scene.Nodes), len(scene.Edges))
	}
	if !scene.Nodes[0].Focus {
		t.Error("focus flag not decoded")
	}
	if _, err := f.Scene("missing"); err == nil {
		t.Error("Scene(missing) should fail")
	}
	if diff := cmp.Diff([]string{"woman-kicks-ball", "lone-ball"}, f.SceneNames()); diff != "" {
		t.Errorf("SceneNames() mismatch (-want +got):\n%s", diff)
	}

	clause := f.Fragments()[0]
	if slots := clause.Slots(); len(slots) != 3 || slots[0].Accepts[0] != "NP" {
		t.Errorf("transitive slots decoded wrong: %+v", slots)
	}
	if f.Fragments()[2].Preference != 0.1 {
		t.Error("preference not decoded")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			yaml:    "constructions: [",
			wantErr: "parsing YAML",
		},
		{
			name: "concept cycle",
			yaml: `
concepts:
  - {name: A, parent: B}
  - {name: B, parent: A}
`,
			wantErr: "cycle",
		},
		{
			name: "duplicate construction",
			yaml: `
constructions:
  - {id: x, class: NP, frame: {nodes: [{id: n, concept: C, head: true}]}}
  - {id: x, class: NP, frame: {nodes: [{id: n, concept: C, head: true}]}}
`,
			wantErr: "duplicate id",
		},
		{
			name: "dangling link",
			yaml: `
constructions:
  - id: x
    class: NP
    frame: {nodes: [{id: n, concept: C, head: true}]}
    form: [{id: w, kind: terminal, word: hi}]
    links: [{sem: ghost, form: w}]
`,
			wantErr: "missing element",
		},
		{
			name: "scene edge to missing node",
			yaml: `
scenes:
  - name: s
    nodes: [{id: a, concept: C}]
    edges: [{id: r, concept: R, from: a, to: b}]
`,
			wantErr: "missing node",
		},
		{
			name: "unnamed scene",
			yaml: `
scenes:
  - nodes: [{id: a, concept: C}]
`,
			wantErr: "scene name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestInstall(t *testing.T) {
	f, err := LoadFile(filepath.Join("testdata", "kick.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	s, err := f.Memory(ctx)
	if err != nil {
		t.Fatalf("Memory() error = %v", err)
	}

	nps, err := s.ListFragments(ctx, "NP")
	if err != nil {
		t.Fatal(err)
	}
	if len(nps) != 3 {
		t.Errorf("NP constructions = %d, want 3", len(nps))
	}
	o, err := s.Ontology(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !o.IsA("KICK", "ACTION") {
		t.Error("installed ontology incomplete")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join("testdata", "nope.yaml")); err == nil {
		t.Error("LoadFile() on a missing file should fail")
	}
}
