package workmem

import (
	"github.com/nvandessel/tcg/internal/dynamics"
	"github.com/nvandessel/tcg/internal/fragment"
)

// OutPort is the port a filler offers to the slot it fills.
const OutPort = "out"

// Instance is a live occurrence of a fragment (or another content variant)
// inside a working memory.
type Instance struct {
	ID      string
	Content fragment.Content

	// Covers maps content elements to the external elements (scene nodes,
	// words) this instance represents.
	Covers map[string]string

	// Initial is the activation the process starts from.
	Initial float64

	seq     int
	fresh   bool
	alive   bool
	old     bool
	clamped bool
	proc    *dynamics.Process
}

// NewInstance builds an instance ready for AddInstance.
func NewInstance(id string, content fragment.Content, initial float64) *Instance {
	return &Instance{ID: id, Content: content, Initial: initial}
}

// WithCovers sets the covers map and returns the instance.
func (i *Instance) WithCovers(covers map[string]string) *Instance {
	i.Covers = covers
	return i
}

// Fragment returns the construction behind the instance, if any.
func (i *Instance) Fragment() (*fragment.Fragment, bool) {
	return fragment.AsFragment(i.Content)
}

// Activation returns the published activation.
func (i *Instance) Activation() float64 {
	if i.proc == nil {
		return i.Initial
	}
	return i.proc.Activation()
}

// Params returns the dynamics snapshot taken when the instance was added.
func (i *Instance) Params() dynamics.Params {
	if i.proc == nil {
		return dynamics.Params{}
	}
	return i.proc.Params()
}

// Seq is the creation order inside the owning working memory.
func (i *Instance) Seq() int { return i.seq }

// Fresh reports whether the instance has not yet been through a tick.
func (i *Instance) Fresh() bool { return i.fresh }

// Alive reports whether the instance is still above the prune threshold.
func (i *Instance) Alive() bool { return i.alive }

// Old reports whether the instance was consumed into a read-out.
func (i *Instance) Old() bool { return i.old }

// Clamped reports whether the activation is held fixed.
func (i *Instance) Clamped() bool { return i.clamped }

// Ports returns the input ports of the instance: the slot ids of its form.
func (i *Instance) Ports() []string {
	var ports []string
	for _, e := range i.Content.SyntacticForm() {
		if e.IsSlot() {
			ports = append(ports, e.ID)
		}
	}
	return ports
}

// Covered returns the external elements covered by the instance.
func (i *Instance) Covered() []string {
	out := make([]string, 0, len(i.Covers))
	seen := make(map[string]bool, len(i.Covers))
	for _, n := range i.Content.SemanticFrame().Nodes {
		if ext, ok := i.Covers[n.ID]; ok && !seen[ext] {
			out = append(out, ext)
			seen[ext] = true
		}
	}
	return out
}
