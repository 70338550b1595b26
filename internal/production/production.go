// Package production turns a read-out assemblage into an utterance by
// unifying every parent with its slot fillers and walking the resulting form.
package production

import (
	"fmt"
	"strings"

	"github.com/nvandessel/tcg/internal/fragment"
	"github.com/nvandessel/tcg/internal/unify"
	"github.com/nvandessel/tcg/internal/workmem"
)

// Utterance is the result of one production cycle.
type Utterance struct {
	Words      []string
	Fragment   *fragment.Fragment
	Assemblage *workmem.Assemblage
}

// Text joins the words with single spaces.
func (u Utterance) Text() string {
	return strings.Join(u.Words, " ")
}

// Compose unifies the assemblage bottom-up: each filler is composed first,
// then unified into its parent's slot, slots in form order. Unfilled slots
// stay open in the result. Unification hands the head to the last filler;
// the composite is re-headed on the construction's own head so that it
// embeds by what it denotes.
func Compose(wm *workmem.WorkingMemory, a *workmem.Assemblage, engine *unify.Engine) (*fragment.Fragment, error) {
	if a == nil {
		return nil, fmt.Errorf("compose: no assemblage")
	}
	return compose(wm, a, engine, a.Top)
}

func compose(wm *workmem.WorkingMemory, a *workmem.Assemblage, engine *unify.Engine, id string) (*fragment.Fragment, error) {
	inst, ok := wm.Instance(id)
	if !ok {
		return nil, fmt.Errorf("compose: instance %s is gone", id)
	}
	base, ok := inst.Fragment()
	if !ok {
		return nil, fmt.Errorf("compose: instance %s carries no construction", id)
	}

	cur := engine.CopyFragment(base)
	result := cur.Fragment
	// slots tracks where each original slot lives in the current composite.
	slots := make(map[string]string, len(cur.Rename))
	for _, s := range base.Slots() {
		slots[s.ID] = cur.Rename[s.ID]
	}
	head := ""
	if h, err := base.Head(); err == nil {
		head = cur.Rename[h.ID]
	}

	for _, s := range base.Slots() {
		filler, ok := a.Filler(id, s.ID)
		if !ok {
			continue
		}
		child, err := compose(wm, a, engine, filler)
		if err != nil {
			return nil, err
		}
		res, err := engine.Unify(result, slots[s.ID], child)
		if err != nil {
			return nil, fmt.Errorf("compose %s:%s <- %s: %w", id, s.ID, filler, err)
		}
		result = res.Fragment
		for orig, now := range slots {
			slots[orig] = res.ParentRename[now]
		}
		if head != "" {
			prev := head
			head = res.ParentRename[prev]
			if _, ok := result.Frame.Node(head); !ok {
				// The head node stood for this slot; the filler's head replaced it.
				head = ""
				if sub := res.Substitution[prev]; len(sub) == 1 {
					head = sub[0]
				}
			}
		}
	}
	if head == "" {
		return result, nil
	}
	return withHead(result, head), nil
}

// withHead returns a copy of f whose only head node is id.
func withHead(f *fragment.Fragment, id string) *fragment.Fragment {
	out := *f
	out.Frame.Nodes = make([]fragment.SemNode, len(f.Frame.Nodes))
	for i, n := range f.Frame.Nodes {
		n.Head = n.ID == id
		out.Frame.Nodes[i] = n
	}
	return &out
}

// Utter walks the form and emits terminal words. An unfilled slot is
// rendered as its accepted classes in brackets, e.g. "[NP]".
func Utter(f *fragment.Fragment) []string {
	if f == nil {
		return nil
	}
	words := make([]string, 0, len(f.Form))
	for _, el := range f.Form {
		if el.IsSlot() {
			words = append(words, "["+slotLabel(el)+"]")
			continue
		}
		if el.Word != "" {
			words = append(words, el.Word)
		}
	}
	return words
}

func slotLabel(el fragment.FormElement) string {
	if len(el.Accepts) == 0 {
		return string(fragment.WildcardClass)
	}
	parts := make([]string, len(el.Accepts))
	for i, c := range el.Accepts {
		parts[i] = string(c)
	}
	return strings.Join(parts, "|")
}

// MarkConsumed flags every member of the assemblage as old.
func MarkConsumed(wm *workmem.WorkingMemory, a *workmem.Assemblage) {
	if a == nil {
		return
	}
	wm.MarkConsumed(a.Members...)
}

// Produce reads out the winning assemblage, composes and utters it, then
// marks its members consumed. It returns ok=false when nothing can be said.
func Produce(wm *workmem.WorkingMemory, engine *unify.Engine) (Utterance, bool, error) {
	a := wm.ReadOut()
	if a == nil {
		return Utterance{}, false, nil
	}
	f, err := Compose(wm, a, engine)
	if err != nil {
		return Utterance{}, false, err
	}
	MarkConsumed(wm, a)
	return Utterance{Words: Utter(f), Fragment: f, Assemblage: a}, true, nil
}
