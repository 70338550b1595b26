package fragment

import "fmt"

// MaxPatternNodes bounds the pattern size accepted by MatchFrame. Fragment
// frames are small, so a plain backtracking search is enough.
const MaxPatternNodes = 20

// Match maps pattern node ids to target node ids.
type Match map[string]string

// MatchFrame finds injective embeddings of pattern into target. A pattern
// node maps onto a target node whose concept is-a the pattern concept; every
// pattern edge must map onto a target edge between the mapped endpoints with
// a compatible concept.
//
// Matches are produced in a deterministic order (pattern nodes in frame order,
// candidates in target order). limit caps the number of matches; 0 means no cap.
func MatchFrame(pattern, target SemFrame, rel ConceptRelation, limit int) ([]Match, error) {
	if len(pattern.Nodes) > MaxPatternNodes {
		return nil, fmt.Errorf("pattern has %d nodes, max %d", len(pattern.Nodes), MaxPatternNodes)
	}
	if len(pattern.Nodes) == 0 {
		return nil, nil
	}
	if rel == nil {
		rel = ExactConcepts{}
	}

	m := &matcher{
		pattern: pattern,
		target:  target,
		rel:     rel,
		limit:   limit,
		assign:  make(map[string]string, len(pattern.Nodes)),
		used:    make(map[string]bool, len(pattern.Nodes)),
	}
	m.search(0)
	return m.found, nil
}

type matcher struct {
	pattern SemFrame
	target  SemFrame
	rel     ConceptRelation
	limit   int
	assign  map[string]string
	used    map[string]bool
	found   []Match
}

func (m *matcher) done() bool {
	return m.limit > 0 && len(m.found) >= m.limit
}

func (m *matcher) search(i int) {
	if m.done() {
		return
	}
	if i == len(m.pattern.Nodes) {
		out := make(Match, len(m.assign))
		for k, v := range m.assign {
			out[k] = v
		}
		m.found = append(m.found, out)
		return
	}

	pn := m.pattern.Nodes[i]
	for _, tn := range m.target.Nodes {
		if m.used[tn.ID] || !m.rel.IsA(tn.Concept, pn.Concept) {
			continue
		}
		m.assign[pn.ID] = tn.ID
		m.used[tn.ID] = true
		if m.edgesConsistent(pn.ID) {
			m.search(i + 1)
		}
		delete(m.assign, pn.ID)
		delete(m.used, tn.ID)
		if m.done() {
			return
		}
	}
}

// edgesConsistent checks the pattern edges touching id whose other endpoint
// is already assigned.
func (m *matcher) edgesConsistent(id string) bool {
	for _, pe := range m.pattern.Edges {
		if pe.From != id && pe.To != id {
			continue
		}
		from, okFrom := m.assign[pe.From]
		to, okTo := m.assign[pe.To]
		if !okFrom || !okTo {
			continue
		}
		if !m.hasTargetEdge(from, to, pe.Concept) {
			return false
		}
	}
	return true
}

func (m *matcher) hasTargetEdge(from, to, concept string) bool {
	for _, te := range m.target.Edges {
		if te.From == from && te.To == to && m.rel.IsA(te.Concept, concept) {
			return true
		}
	}
	return false
}
