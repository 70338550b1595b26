// Package unify merges a parent fragment's open slot with a child fragment.
//
// Unification is structural only: it assumes the caller already checked
// fragment.Compatible. It is not commutative, never mutates its inputs and
// gives every element of the result a fresh identity drawn from the
// engine's allocator.
package unify

import (
	"fmt"

	"github.com/nvandessel/tcg/internal/fragment"
	"github.com/nvandessel/tcg/internal/modelerr"
)

// Engine performs unifications with identities from one allocator.
type Engine struct {
	alloc *fragment.Allocator
}

// NewEngine creates an engine. A nil allocator gets a private one.
func NewEngine(alloc *fragment.Allocator) *Engine {
	if alloc == nil {
		alloc = fragment.NewAllocator("u")
	}
	return &Engine{alloc: alloc}
}

// Copy is a fresh-identity duplicate of a fragment and its rename map
// (source id -> copy id) covering the fragment, every node, edge and form
// element.
type Copy struct {
	Fragment *fragment.Fragment
	Rename   map[string]string
}

// Result is the outcome of one unification.
type Result struct {
	Fragment *fragment.Fragment

	// ParentRename and ChildRename map source ids to ids in the result (or,
	// for the removed slot and node, to their ids in the discarded copy).
	ParentRename map[string]string
	ChildRename  map[string]string

	// IdentityMap is the flat union of both rename maps. Where parent and
	// child share a source id the parent entry is kept; the per-side maps
	// are authoritative.
	IdentityMap map[string]string

	// Origin maps every id in the result back to its source id.
	Origin map[string]string

	// Substitution records one-to-many replacements keyed by source id:
	// the parent slot -> the child's form element ids, and the node linked
	// to the slot -> the child's head node id.
	Substitution map[string][]string
}

// CopyFragment duplicates f with fresh identities.
func (e *Engine) CopyFragment(f *fragment.Fragment) Copy {
	rename := make(map[string]string, 1+len(f.Frame.Nodes)+len(f.Frame.Edges)+len(f.Form))
	fresh := func(id string) string {
		n := e.alloc.Fresh()
		rename[id] = n
		return n
	}

	out := &fragment.Fragment{
		ID:         fresh(f.ID),
		Name:       f.Name,
		Class:      f.Class,
		Preference: f.Preference,
	}
	out.Frame.Nodes = make([]fragment.SemNode, len(f.Frame.Nodes))
	for i, n := range f.Frame.Nodes {
		n.ID = fresh(n.ID)
		out.Frame.Nodes[i] = n
	}
	out.Frame.Edges = make([]fragment.SemEdge, len(f.Frame.Edges))
	for i, ed := range f.Frame.Edges {
		ed.ID = fresh(ed.ID)
		ed.From = rename[ed.From]
		ed.To = rename[ed.To]
		out.Frame.Edges[i] = ed
	}
	out.Form = make([]fragment.FormElement, len(f.Form))
	for i, el := range f.Form {
		el.ID = fresh(el.ID)
		el.Accepts = append([]fragment.Class(nil), el.Accepts...)
		out.Form[i] = el
	}
	out.Links = make([]fragment.SymLink, len(f.Links))
	for i, l := range f.Links {
		out.Links[i] = fragment.SymLink{Sem: rename[l.Sem], Form: rename[l.Form]}
	}
	return Copy{Fragment: out, Rename: rename}
}

// Unify replaces slotID of parent with child:
//   - the parent node linked to the slot is removed and the child's frame is
//     spliced in; parent edges and links that referenced the removed node are
//     redirected to the child's head
//   - the head flag moves to the child's head, which also takes over the
//     removed node's focus; the result keeps exactly one head, so it can be
//     embedded again
//   - the slot is replaced in place by the child's whole form
//   - the slot's symbolic link is dropped and the child's links are added
//
// It fails with ErrSlotNotFound when slotID is not a slot of parent, and
// with ErrNoHead or ErrMultipleHeads when child has not exactly one head.
func (e *Engine) Unify(parent *fragment.Fragment, slotID string, child *fragment.Fragment) (Result, error) {
	if parent == nil || child == nil {
		return Result{}, fmt.Errorf("unify: parent and child are required")
	}
	if _, ok := parent.Slot(slotID); !ok {
		return Result{}, modelerr.Structural(modelerr.ErrSlotNotFound, slotID, "fragment "+parent.ID)
	}
	childHead, err := child.Head()
	if err != nil {
		return Result{}, fmt.Errorf("unify %s into %s: %w", child.ID, parent.ID, err)
	}
	slotNode, hasSlotNode := parent.SlotNode(slotID)

	pc := e.CopyFragment(parent)
	cc := e.CopyFragment(child)
	p, c := pc.Fragment, cc.Fragment

	newSlot := pc.Rename[slotID]
	newHead := cc.Rename[childHead.ID]
	removed := ""
	if hasSlotNode {
		removed = pc.Rename[slotNode.ID]
	}

	merged := &fragment.Fragment{
		ID:         e.alloc.Fresh(),
		Name:       fmt.Sprintf("%s[%s]", parent.Name, child.Name),
		Class:      parent.Class,
		Preference: parent.Preference,
	}

	// Semantic merge.
	for _, n := range p.Frame.Nodes {
		if n.ID != removed {
			n.Head = false
			merged.Frame.Nodes = append(merged.Frame.Nodes, n)
		}
	}
	for _, n := range c.Frame.Nodes {
		n.Head = n.ID == newHead
		if n.Head && hasSlotNode {
			n.Focus = n.Focus || slotNode.Focus
		}
		merged.Frame.Nodes = append(merged.Frame.Nodes, n)
	}
	redirect := func(id string) string {
		if removed != "" && id == removed {
			return newHead
		}
		return id
	}
	for _, ed := range p.Frame.Edges {
		ed.From = redirect(ed.From)
		ed.To = redirect(ed.To)
		merged.Frame.Edges = append(merged.Frame.Edges, ed)
	}
	merged.Frame.Edges = append(merged.Frame.Edges, c.Frame.Edges...)

	// Syntactic merge.
	idx := p.ElementIndex(newSlot)
	merged.Form = make([]fragment.FormElement, 0, len(p.Form)-1+len(c.Form))
	merged.Form = append(merged.Form, p.Form[:idx]...)
	merged.Form = append(merged.Form, c.Form...)
	merged.Form = append(merged.Form, p.Form[idx+1:]...)

	// Symbolic-link merge.
	for _, l := range p.Links {
		if l.Form == newSlot {
			continue
		}
		merged.Links = append(merged.Links, fragment.SymLink{Sem: redirect(l.Sem), Form: l.Form})
	}
	merged.Links = append(merged.Links, c.Links...)

	res := Result{
		Fragment:     merged,
		ParentRename: pc.Rename,
		ChildRename:  cc.Rename,
		IdentityMap:  make(map[string]string, len(pc.Rename)+len(cc.Rename)),
		Origin:       make(map[string]string, len(pc.Rename)+len(cc.Rename)),
		Substitution: make(map[string][]string, 2),
	}
	for old, id := range cc.Rename {
		res.IdentityMap[old] = id
		res.Origin[id] = old
	}
	for old, id := range pc.Rename {
		res.IdentityMap[old] = id
		res.Origin[id] = old
	}

	formIDs := make([]string, len(c.Form))
	for i, el := range c.Form {
		formIDs[i] = el.ID
	}
	res.Substitution[slotID] = formIDs
	if hasSlotNode {
		res.Substitution[slotNode.ID] = []string{newHead}
	}
	return res, nil
}
