// Package grammar loads grammar files: a concept hierarchy, a list of
// constructions and named scenes, written in YAML.
package grammar

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/tcg/internal/fragment"
	"github.com/nvandessel/tcg/internal/store"
)

// Concept places a concept under its parent. An empty parent marks a root.
type Concept struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent,omitempty"`
}

// Scene is a named perceived situation.
type Scene struct {
	Name  string            `yaml:"name"`
	Frame fragment.SemFrame `yaml:",inline"`
}

// File is a parsed grammar file.
type File struct {
	Name          string              `yaml:"name"`
	Concepts      []Concept           `yaml:"concepts"`
	Constructions []fragment.Fragment `yaml:"constructions"`
	Scenes        []Scene             `yaml:"scenes"`
}

// LoadFile reads and validates a grammar file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading grammar %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("grammar %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates grammar YAML.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that the concepts form a hierarchy, every construction is
// well formed and has a unique id, and every scene is named uniquely.
func (f *File) Validate() error {
	if _, err := f.Ontology(); err != nil {
		return err
	}

	ids := make(map[string]bool, len(f.Constructions))
	for i := range f.Constructions {
		c := &f.Constructions[i]
		if c.ID == "" {
			return fmt.Errorf("construction %d: id is required", i)
		}
		if ids[c.ID] {
			return fmt.Errorf("construction %s: duplicate id", c.ID)
		}
		ids[c.ID] = true
		if err := c.Validate(); err != nil {
			return err
		}
	}

	names := make(map[string]bool, len(f.Scenes))
	for _, s := range f.Scenes {
		if s.Name == "" {
			return fmt.Errorf("scene name is required")
		}
		if names[s.Name] {
			return fmt.Errorf("scene %s: duplicate name", s.Name)
		}
		names[s.Name] = true
		seen := make(map[string]bool, len(s.Frame.Nodes))
		for _, n := range s.Frame.Nodes {
			if n.ID == "" || seen[n.ID] {
				return fmt.Errorf("scene %s: node ids must be unique and non-empty", s.Name)
			}
			seen[n.ID] = true
		}
		for _, e := range s.Frame.Edges {
			if !seen[e.From] || !seen[e.To] {
				return fmt.Errorf("scene %s: edge %s references missing node", s.Name, e.ID)
			}
		}
	}
	return nil
}

// Fragments returns the constructions in file order.
func (f *File) Fragments() []*fragment.Fragment {
	out := make([]*fragment.Fragment, len(f.Constructions))
	for i := range f.Constructions {
		out[i] = &f.Constructions[i]
	}
	return out
}

// Ontology builds the concept hierarchy.
func (f *File) Ontology() (*fragment.Ontology, error) {
	o := fragment.NewOntology()
	for _, c := range f.Concepts {
		if err := o.Add(c.Name, c.Parent); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Scene returns the frame of the named scene.
func (f *File) Scene(name string) (fragment.SemFrame, error) {
	for _, s := range f.Scenes {
		if s.Name == name {
			return s.Frame, nil
		}
	}
	return fragment.SemFrame{}, fmt.Errorf("scene %q not found", name)
}

// SceneNames lists the scenes in file order.
func (f *File) SceneNames() []string {
	out := make([]string, len(f.Scenes))
	for i, s := range f.Scenes {
		out[i] = s.Name
	}
	return out
}

// Install writes the concepts and constructions into a grammar store.
func (f *File) Install(ctx context.Context, s store.GrammarStore) error {
	edges := make([]store.ConceptEdge, len(f.Concepts))
	for i, c := range f.Concepts {
		edges[i] = store.ConceptEdge{Concept: c.Name, Parent: c.Parent}
	}
	return store.Import(ctx, s, edges, f.Fragments())
}

// Memory loads the grammar into a fresh in-memory store.
func (f *File) Memory(ctx context.Context) (*store.InMemoryGrammarStore, error) {
	s := store.NewInMemoryGrammarStore()
	if err := f.Install(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}
