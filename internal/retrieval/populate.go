package retrieval

import (
	"errors"
	"fmt"

	"github.com/nvandessel/tcg/internal/modelerr"
	"github.com/nvandessel/tcg/internal/workmem"
)

// Population records what Populate inserted.
type Population struct {
	Instances   []string
	Cooperation []workmem.Link
	Competition []workmem.Link

	support map[string]float64
}

// Populate inserts candidates into wm at the configured initial activation
// and wires them with the configured link weights:
//   - child cooperates with parent's slot s when the child's head covers the
//     scene node covered by the node linked to s, and the feasibility
//     predicate holds
//   - two candidates covering a common scene node compete (symmetrically)
//     unless a cooperation link joins them
func Populate(wm *workmem.WorkingMemory, candidates []Candidate) (*Population, error) {
	cfg := wm.Config()
	pop := &Population{support: make(map[string]float64, len(candidates))}

	for _, c := range candidates {
		inst := workmem.NewInstance(c.ID, c.Fragment, cfg.InitialActivation).WithCovers(c.Covers)
		if err := wm.AddInstance(inst); err != nil {
			return nil, fmt.Errorf("adding candidate %s: %w", c.ID, err)
		}
		pop.Instances = append(pop.Instances, c.ID)
		pop.support[c.ID] = c.Support
	}

	cooperating := make(map[[2]string]bool)
	for _, parent := range candidates {
		for _, slot := range parent.Fragment.Slots() {
			node, ok := parent.Fragment.SlotNode(slot.ID)
			if !ok {
				continue
			}
			target, ok := parent.Covers[node.ID]
			if !ok {
				continue
			}
			for _, child := range candidates {
				if child.ID == parent.ID {
					continue
				}
				head, err := child.Fragment.Head()
				if err != nil || child.Covers[head.ID] != target {
					continue
				}
				// The feasibility predicate is applied by the working memory.
				link, err := wm.AddCooperationLink(child.ID, "", parent.ID, slot.ID, cfg.CooperationWeight)
				if errors.Is(err, modelerr.ErrIncompatible) {
					continue
				}
				if err != nil {
					return nil, fmt.Errorf("cooperation %s->%s:%s: %w", child.ID, parent.ID, slot.ID, err)
				}
				pop.Cooperation = append(pop.Cooperation, link)
				cooperating[[2]string{child.ID, parent.ID}] = true
				cooperating[[2]string{parent.ID, child.ID}] = true
			}
		}
	}

	for i, a := range candidates {
		for _, b := range candidates[i+1:] {
			if cooperating[[2]string{a.ID, b.ID}] || !overlap(a, b) {
				continue
			}
			pair, err := wm.AddCompetitionPair(a.ID, b.ID, cfg.CompetitionWeight)
			if err != nil {
				return nil, fmt.Errorf("competition %s/%s: %w", a.ID, b.ID, err)
			}
			pop.Competition = append(pop.Competition, pair[0], pair[1])
		}
	}
	return pop, nil
}

func overlap(a, b Candidate) bool {
	covered := make(map[string]bool, len(a.Covers))
	for _, x := range a.Covers {
		covered[x] = true
	}
	for _, x := range b.Covers {
		if covered[x] {
			return true
		}
	}
	return false
}

// Support returns the scene support recorded for an instance.
func (p *Population) Support(id string) float64 {
	return p.support[id]
}

// Excite feeds each populated instance still present its scene support as
// external input for the next tick.
func (p *Population) Excite(wm *workmem.WorkingMemory) {
	for _, id := range p.Instances {
		inst, ok := wm.Instance(id)
		if !ok || !inst.Alive() {
			continue
		}
		_ = wm.AddExternalInput(id, p.support[id])
	}
}
