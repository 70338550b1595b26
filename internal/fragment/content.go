package fragment

// ContentKind tags the variant behind a Content value.
type ContentKind string

const (
	KindConstruction ContentKind = "construction"
	KindPercept      ContentKind = "percept"
	KindConcept      ContentKind = "concept"
)

// Content is the capability shared by everything a schema instance can carry.
type Content interface {
	Kind() ContentKind
	SemanticFrame() SemFrame
	SyntacticForm() []FormElement
	SymbolicLinks() []SymLink
}

// Percept is a perceived scene fragment. It has meaning but no form.
type Percept struct {
	ID    string
	Frame SemFrame
}

func (p Percept) Kind() ContentKind            { return KindPercept }
func (p Percept) SemanticFrame() SemFrame      { return p.Frame }
func (p Percept) SyntacticForm() []FormElement { return nil }
func (p Percept) SymbolicLinks() []SymLink     { return nil }

// ConceptContent is a bare concept activated in conceptual memory.
type ConceptContent struct {
	Concept string
}

func (c ConceptContent) Kind() ContentKind { return KindConcept }

// SemanticFrame returns a single head node labelled with the concept.
func (c ConceptContent) SemanticFrame() SemFrame {
	return SemFrame{Nodes: []SemNode{{ID: c.Concept, Name: c.Concept, Concept: c.Concept, Head: true}}}
}

func (c ConceptContent) SyntacticForm() []FormElement { return nil }
func (c ConceptContent) SymbolicLinks() []SymLink     { return nil }

// AsFragment returns the construction behind c, if any.
func AsFragment(c Content) (*Fragment, bool) {
	f, ok := c.(*Fragment)
	return f, ok && f != nil
}
