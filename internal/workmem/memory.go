// Package workmem implements the working memory in which schema instances
// compete and cooperate. Instances are connected by cooperation links (a
// filler supports the slot it fills) and competition links (mutually
// exclusive candidates inhibit each other). Each tick propagates activation
// along the links, integrates every live instance's activation process and
// flags instances that fell below the prune threshold.
//
// A working memory is driven by a single goroutine. The integration phase may
// fan out over a bounded worker pool, but propagation, integration and
// flagging are separated by barriers and all randomness is drawn serially
// from one seeded source, so a run is reproducible for a given seed.
package workmem

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/nvandessel/tcg/internal/dynamics"
	"github.com/nvandessel/tcg/internal/fragment"
	"github.com/nvandessel/tcg/internal/logging"
	"github.com/nvandessel/tcg/internal/modelerr"
)

// WorkingMemory owns a set of instances and the links between them.
type WorkingMemory struct {
	cfg       Config
	rel       fragment.ConceptRelation
	logger    *slog.Logger
	decisions *logging.DecisionLogger
	rng       *rand.Rand

	instances map[string]*Instance
	order     []*Instance
	coop      []Link
	comp      []Link

	tick     int
	nextSeq  int
	nextLink int
}

// Option configures a WorkingMemory.
type Option func(*WorkingMemory)

// WithConceptRelation sets the is-a relation used by the feasibility
// predicate when cooperation links are created.
func WithConceptRelation(rel fragment.ConceptRelation) Option {
	return func(wm *WorkingMemory) { wm.rel = rel }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(wm *WorkingMemory) { wm.logger = l }
}

// WithDecisionLogger sets the JSONL decision trace.
func WithDecisionLogger(dl *logging.DecisionLogger) Option {
	return func(wm *WorkingMemory) { wm.decisions = dl }
}

// New creates a working memory. An invalid configuration is reported here.
func New(cfg Config, opts ...Option) (*WorkingMemory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	wm := &WorkingMemory{
		cfg:       cfg,
		rel:       fragment.ExactConcepts{},
		logger:    logging.Discard(),
		instances: make(map[string]*Instance),
	}
	for _, opt := range opts {
		opt(wm)
	}
	wm.rng = dynamics.NewSource(cfg.Seed)
	return wm, nil
}

// Config returns the current configuration.
func (wm *WorkingMemory) Config() Config { return wm.cfg }

// SetConfig replaces the configuration. Instances already present keep the
// dynamics snapshot taken when they were added. The seed takes effect on the
// next Reset.
func (wm *WorkingMemory) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	wm.cfg = cfg
	return nil
}

// ConceptRelation returns the is-a relation in use.
func (wm *WorkingMemory) ConceptRelation() fragment.ConceptRelation { return wm.rel }

// Tick returns the number of completed ticks.
func (wm *WorkingMemory) Tick() int { return wm.tick }

// Len returns the number of instances present.
func (wm *WorkingMemory) Len() int { return len(wm.order) }

// Reset removes every instance and link, zeroes the clock and reseeds the
// random source.
func (wm *WorkingMemory) Reset() {
	wm.instances = make(map[string]*Instance)
	wm.order = nil
	wm.coop = nil
	wm.comp = nil
	wm.tick = 0
	wm.nextSeq = 0
	wm.nextLink = 0
	wm.rng = dynamics.NewSource(wm.cfg.Seed)
}

// AddInstance inserts inst, snapshotting the current dynamics parameters.
func (wm *WorkingMemory) AddInstance(inst *Instance) error {
	if inst == nil || inst.ID == "" {
		return fmt.Errorf("instance id is required")
	}
	if inst.Content == nil {
		return fmt.Errorf("instance %s: content is required", inst.ID)
	}
	if _, exists := wm.instances[inst.ID]; exists {
		return modelerr.Structural(modelerr.ErrDuplicateID, inst.ID, "instance")
	}
	proc, err := dynamics.New(wm.cfg.Dynamics, inst.Initial)
	if err != nil {
		return fmt.Errorf("instance %s: %w", inst.ID, err)
	}

	wm.nextSeq++
	inst.seq = wm.nextSeq
	inst.proc = proc
	inst.fresh = true
	inst.alive = true
	inst.old = false
	inst.clamped = false

	wm.instances[inst.ID] = inst
	wm.order = append(wm.order, inst)
	wm.logger.Debug("instance added", "id", inst.ID, "kind", inst.Content.Kind(), "a0", inst.Initial)
	return nil
}

// RemoveInstance removes an instance. Links touching it are left in place;
// the next tick reports them as dangling unless the caller removes them.
// Prune is the cascading alternative.
func (wm *WorkingMemory) RemoveInstance(id string) error {
	if _, ok := wm.instances[id]; !ok {
		return modelerr.Structural(modelerr.ErrUnknownInstance, id, "remove")
	}
	delete(wm.instances, id)
	wm.order = filterInstances(wm.order, func(i *Instance) bool { return i.ID != id })
	return nil
}

// Instance returns the instance with the given id.
func (wm *WorkingMemory) Instance(id string) (*Instance, bool) {
	inst, ok := wm.instances[id]
	return inst, ok
}

// Instances returns the instances in creation order.
func (wm *WorkingMemory) Instances() []*Instance {
	out := make([]*Instance, len(wm.order))
	copy(out, wm.order)
	return out
}

// Clamp holds an instance's activation at a. A clamped instance still
// propagates but is not integrated, flagged or pruned.
func (wm *WorkingMemory) Clamp(id string, a float64) error {
	inst, ok := wm.instances[id]
	if !ok {
		return modelerr.Structural(modelerr.ErrUnknownInstance, id, "clamp")
	}
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return &modelerr.ConfigError{Field: "clamp", Value: a, Reason: "must be finite"}
	}
	inst.proc.SetActivation(a)
	inst.clamped = true
	return nil
}

// Unclamp releases a clamped instance.
func (wm *WorkingMemory) Unclamp(id string) error {
	inst, ok := wm.instances[id]
	if !ok {
		return modelerr.Structural(modelerr.ErrUnknownInstance, id, "unclamp")
	}
	inst.clamped = false
	return nil
}

// AddExternalInput adds x to the instance's accumulator for the next tick.
func (wm *WorkingMemory) AddExternalInput(id string, x float64) error {
	inst, ok := wm.instances[id]
	if !ok {
		return modelerr.Structural(modelerr.ErrUnknownInstance, id, "external input")
	}
	inst.proc.AddInput(x)
	return nil
}

// MarkConsumed flags instances as old after they were read out.
func (wm *WorkingMemory) MarkConsumed(ids ...string) {
	for _, id := range ids {
		if inst, ok := wm.instances[id]; ok {
			inst.old = true
		}
	}
}

// AddCooperationLink records that from fills slot toPort of to. The
// feasibility predicate is checked once, here.
func (wm *WorkingMemory) AddCooperationLink(from, fromPort, to, toPort string, weight float64) (Link, error) {
	src, dst, err := wm.endpoints(from, to, weight)
	if err != nil {
		return Link{}, err
	}
	if fromPort == "" {
		fromPort = OutPort
	}

	parent, ok := dst.Fragment()
	if !ok {
		return Link{}, modelerr.Structural(modelerr.ErrSlotNotFound, toPort, "instance "+to+" has no form")
	}
	if _, ok := parent.Slot(toPort); !ok {
		return Link{}, modelerr.Structural(modelerr.ErrSlotNotFound, toPort, "instance "+to)
	}
	child, ok := src.Fragment()
	if !ok || !fragment.Compatible(child, parent, toPort, wm.rel) {
		return Link{}, modelerr.Structural(modelerr.ErrIncompatible, from, to+":"+toPort)
	}

	for _, l := range wm.coop {
		if l.From == from && l.To == to && l.ToPort == toPort {
			return Link{}, modelerr.Structural(modelerr.ErrDuplicateLink, l.ID, l.String())
		}
	}

	link := Link{
		ID:       wm.newLinkID(),
		Kind:     Cooperation,
		From:     from,
		To:       to,
		Weight:   weight,
		FromPort: fromPort,
		ToPort:   toPort,
	}
	wm.coop = append(wm.coop, link)
	wm.logger.Debug("cooperation link added", "link", link.String())
	return link, nil
}

// AddCompetitionLink adds a one-way inhibitory link.
func (wm *WorkingMemory) AddCompetitionLink(from, to string, weight float64) (Link, error) {
	if _, _, err := wm.endpoints(from, to, weight); err != nil {
		return Link{}, err
	}
	for _, l := range wm.comp {
		if l.From == from && l.To == to {
			return Link{}, modelerr.Structural(modelerr.ErrDuplicateLink, l.ID, l.String())
		}
	}
	link := Link{
		ID:     wm.newLinkID(),
		Kind:   Competition,
		From:   from,
		To:     to,
		Weight: weight,
	}
	wm.comp = append(wm.comp, link)
	wm.logger.Debug("competition link added", "link", link.String())
	return link, nil
}

// AddCompetitionPair adds competition links in both directions with the
// same weight, so inhibition between a and b is symmetric.
func (wm *WorkingMemory) AddCompetitionPair(a, b string, weight float64) ([2]Link, error) {
	var out [2]Link
	ab, err := wm.AddCompetitionLink(a, b, weight)
	if err != nil {
		return out, err
	}
	ba, err := wm.AddCompetitionLink(b, a, weight)
	if err != nil {
		// Keep the pair all-or-nothing.
		wm.comp = wm.comp[:len(wm.comp)-1]
		return out, err
	}
	out[0], out[1] = ab, ba
	return out, nil
}

// RemoveLink removes a single link by id.
func (wm *WorkingMemory) RemoveLink(id string) error {
	before := len(wm.coop) + len(wm.comp)
	keep := func(l Link) bool { return l.ID != id }
	wm.coop = filterLinks(wm.coop, keep)
	wm.comp = filterLinks(wm.comp, keep)
	if len(wm.coop)+len(wm.comp) == before {
		return fmt.Errorf("link not found: %s", id)
	}
	return nil
}

// RemoveLinksTouching removes every link with id at either end and returns
// how many were removed.
func (wm *WorkingMemory) RemoveLinksTouching(id string) int {
	before := len(wm.coop) + len(wm.comp)
	keep := func(l Link) bool { return !l.Touches(id) }
	wm.coop = filterLinks(wm.coop, keep)
	wm.comp = filterLinks(wm.comp, keep)
	return before - len(wm.coop) - len(wm.comp)
}

// FindLinks returns the links matching q, cooperation links first, each
// kind in creation order.
func (wm *WorkingMemory) FindLinks(q LinkQuery) []Link {
	var out []Link
	for _, group := range [][]Link{wm.coop, wm.comp} {
		for _, l := range group {
			if q.matches(l) {
				out = append(out, l)
			}
		}
	}
	return out
}

func (wm *WorkingMemory) endpoints(from, to string, weight float64) (*Instance, *Instance, error) {
	src, ok := wm.instances[from]
	if !ok {
		return nil, nil, modelerr.Structural(modelerr.ErrUnknownInstance, from, "link source")
	}
	dst, ok := wm.instances[to]
	if !ok {
		return nil, nil, modelerr.Structural(modelerr.ErrUnknownInstance, to, "link target")
	}
	if from == to {
		return nil, nil, fmt.Errorf("self link on %s", from)
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return nil, nil, fmt.Errorf("link %s -> %s: weight must be finite, got %v", from, to, weight)
	}
	return src, dst, nil
}

func (wm *WorkingMemory) newLinkID() string {
	wm.nextLink++
	return fmt.Sprintf("L%d", wm.nextLink)
}

func filterInstances(in []*Instance, keep func(*Instance) bool) []*Instance {
	out := in[:0]
	for _, i := range in {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}

func filterLinks(in []Link, keep func(Link) bool) []Link {
	out := make([]Link, 0, len(in))
	for _, l := range in {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}
