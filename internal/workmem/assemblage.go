package workmem

import (
	"sort"

	"github.com/nvandessel/tcg/internal/modelerr"
)

// Assemblage is a tree of cooperating instances rooted at a top instance.
// It is derived on demand and never stored.
type Assemblage struct {
	Top string
	// Members lists instance ids in pre-order, top first.
	Members []string
	// Links are the cooperation links forming the tree.
	Links []Link
	// Fillers maps parent id -> slot id -> filler id.
	Fillers     map[string]map[string]string
	Suitability float64
	// Unfilled counts member slots with no live filler.
	Unfilled int

	topSeq int
}

// Filler returns the instance filling slot of parent, if any.
func (a *Assemblage) Filler(parent, slot string) (string, bool) {
	id, ok := a.Fillers[parent][slot]
	return id, ok
}

// Better reports whether a ranks before b at read-out: higher suitability,
// then fewer unfilled slots, then the earlier-created top.
func (a *Assemblage) Better(b *Assemblage) bool {
	if a.Suitability != b.Suitability {
		return a.Suitability > b.Suitability
	}
	if a.Unfilled != b.Unfilled {
		return a.Unfilled < b.Unfilled
	}
	return a.topSeq < b.topSeq
}

// ExtractAssemblage walks cooperation links from top down to the slot
// fillers. When several live instances compete for one slot, the most
// active filler is taken (earliest link on ties), so the result is a tree.
func (wm *WorkingMemory) ExtractAssemblage(top string) (*Assemblage, error) {
	root, ok := wm.instances[top]
	if !ok {
		return nil, modelerr.Structural(modelerr.ErrUnknownInstance, top, "assemblage top")
	}

	a := &Assemblage{
		Top:     top,
		Fillers: make(map[string]map[string]string),
		topSeq:  root.seq,
	}
	visited := make(map[string]bool)
	wm.collect(root, a, visited)

	var total float64
	for _, id := range a.Members {
		total += wm.instances[id].Activation()
	}
	switch wm.cfg.Suitability {
	case AggregateMean:
		a.Suitability = total / float64(len(a.Members))
	default:
		a.Suitability = total
	}
	return a, nil
}

func (wm *WorkingMemory) collect(inst *Instance, a *Assemblage, visited map[string]bool) {
	visited[inst.ID] = true
	a.Members = append(a.Members, inst.ID)

	for _, slot := range inst.Ports() {
		var best *Link
		var bestAct float64
		for i := range wm.coop {
			l := &wm.coop[i]
			if l.To != inst.ID || l.ToPort != slot || visited[l.From] {
				continue
			}
			filler, ok := wm.instances[l.From]
			if !ok || !filler.alive {
				continue
			}
			if best == nil || filler.Activation() > bestAct {
				best, bestAct = l, filler.Activation()
			}
		}
		if best == nil {
			a.Unfilled++
			continue
		}
		if a.Fillers[inst.ID] == nil {
			a.Fillers[inst.ID] = make(map[string]string)
		}
		a.Fillers[inst.ID][slot] = best.From
		a.Links = append(a.Links, *best)
		wm.collect(wm.instances[best.From], a, visited)
	}
}

// Tops returns the live construction instances that fill no live parent's
// slot, in creation order.
func (wm *WorkingMemory) Tops() []string {
	fills := make(map[string]bool)
	for _, l := range wm.coop {
		if parent, ok := wm.instances[l.To]; ok && parent.alive {
			fills[l.From] = true
		}
	}
	var tops []string
	for _, inst := range wm.order {
		if !inst.alive || fills[inst.ID] {
			continue
		}
		if _, ok := inst.Fragment(); !ok {
			continue
		}
		tops = append(tops, inst.ID)
	}
	return tops
}

// Assemblages extracts one assemblage per top, best first.
func (wm *WorkingMemory) Assemblages() []*Assemblage {
	var out []*Assemblage
	for _, top := range wm.Tops() {
		a, err := wm.ExtractAssemblage(top)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Better(out[j]) })
	return out
}

// ReadOut returns the winning assemblage, or nil when no candidate exists.
func (wm *WorkingMemory) ReadOut() *Assemblage {
	all := wm.Assemblages()
	if len(all) == 0 {
		return nil
	}
	best := all[0]
	wm.logger.Info("read-out", "tick", wm.tick, "top", best.Top, "members", len(best.Members), "suitability", best.Suitability, "unfilled", best.Unfilled)
	wm.decisions.Log(map[string]any{
		"event":       "readout",
		"tick":        wm.tick,
		"top":         best.Top,
		"members":     best.Members,
		"suitability": best.Suitability,
		"unfilled":    best.Unfilled,
		"candidates":  len(all),
	})
	return best
}
