package workmem

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/tcg/internal/logging"
	"github.com/nvandessel/tcg/internal/modelerr"
)

// TickReport summarizes one tick.
type TickReport struct {
	Tick int
	// Inputs is the net input each instance received, including external input.
	Inputs map[string]float64
	// Delivered counts the links whose gate passed.
	Delivered int
	// Flagged lists instances that became not-alive this tick.
	Flagged []string
}

// pending is one instance's integration work for the current tick.
type pending struct {
	inst  *Instance
	input float64
	noise float64
	next  float64
}

// UpdateActivations runs one tick:
//  1. cooperation links, in creation order, each gated with PCooperation
//  2. competition links, in creation order, each gated with PCompetition
//  3. integration of every alive, unclamped instance
//  4. flagging of instances below the prune threshold
//
// Not-alive instances still propagate until Prune removes them, but are not
// integrated. A dangling link is reported before anything is mutated; a
// non-finite integration result is reported before any activation is
// published.
func (wm *WorkingMemory) UpdateActivations(ctx context.Context) (TickReport, error) {
	if err := ctx.Err(); err != nil {
		return TickReport{}, err
	}
	if err := wm.checkDangling(); err != nil {
		return TickReport{}, err
	}

	report := TickReport{Tick: wm.tick + 1}

	// Steps 1-2: propagation reads published activations only.
	report.Delivered += wm.propagate(ctx, wm.coop, wm.cfg.PCooperation)
	report.Delivered += wm.propagate(ctx, wm.comp, wm.cfg.PCompetition)

	report.Inputs = make(map[string]float64, len(wm.order))
	for _, inst := range wm.order {
		report.Inputs[inst.ID] = inst.proc.Input()
	}

	// Step 3: noise is drawn serially in creation order, integration may run
	// on the worker pool.
	work := make([]pending, 0, len(wm.order))
	for _, inst := range wm.order {
		if !inst.alive || inst.clamped {
			continue
		}
		work = append(work, pending{
			inst:  inst,
			input: inst.proc.Input(),
			noise: inst.Params().Noise(wm.rng),
		})
	}
	if err := wm.integrate(ctx, work); err != nil {
		for _, inst := range wm.order {
			inst.proc.ClearInput()
		}
		return report, err
	}

	for _, w := range work {
		if math.IsNaN(w.next) || math.IsInf(w.next, 0) {
			for _, inst := range wm.order {
				inst.proc.ClearInput()
			}
			err := &modelerr.NumericAnomaly{InstanceID: w.inst.ID, Tick: report.Tick, Value: w.next}
			wm.logger.Error("numeric anomaly", "instance", w.inst.ID, "tick", report.Tick, "value", w.next)
			return report, err
		}
	}
	for _, w := range work {
		w.inst.proc.Commit(w.next)
	}
	for _, inst := range wm.order {
		if !inst.alive || inst.clamped {
			inst.proc.ClearInput()
		}
	}

	// Step 4: flag only; removal waits for Prune.
	for _, inst := range wm.order {
		inst.fresh = false
		if inst.alive && !inst.clamped && inst.Activation() < wm.cfg.PruneThreshold {
			inst.alive = false
			report.Flagged = append(report.Flagged, inst.ID)
		}
	}

	wm.tick = report.Tick
	wm.logger.Debug("tick", "tick", wm.tick, "instances", len(wm.order), "delivered", report.Delivered, "flagged", len(report.Flagged))
	if len(report.Flagged) > 0 {
		wm.decisions.Log(map[string]any{
			"event":   "flag",
			"tick":    wm.tick,
			"flagged": report.Flagged,
		})
	}
	return report, nil
}

// propagate delivers a_from * weight to each link's target accumulator when
// the link's gate passes. A gate probability of 1 consumes no randomness.
func (wm *WorkingMemory) propagate(ctx context.Context, links []Link, p float64) int {
	delivered := 0
	for _, l := range links {
		if p < 1 && wm.rng.Float64() >= p {
			continue
		}
		from := wm.instances[l.From]
		to := wm.instances[l.To]
		x := from.Activation() * l.Weight
		to.proc.AddInput(x)
		delivered++
		wm.logger.Log(ctx, logging.LevelTrace, "propagate", "link", l.ID, "kind", l.Kind, "input", x)
	}
	return delivered
}

// integrate computes each instance's next activation. The computation only
// reads the instance's own state, so chunks can run concurrently; Wait is
// the barrier before results are checked and committed. A canceled context
// stops the remaining chunks and nothing is committed.
func (wm *WorkingMemory) integrate(ctx context.Context, work []pending) error {
	compute := func(i int) {
		w := &work[i]
		w.next = w.inst.proc.Next(w.input, w.noise)
	}

	workers := wm.cfg.Workers
	if workers <= 1 || len(work) < 2 {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range work {
			compute(i)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	chunk := (len(work) + workers - 1) / workers
	for start := 0; start < len(work); start += chunk {
		end := min(start+chunk, len(work))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				compute(i)
			}
			return nil
		})
	}
	return g.Wait()
}

func (wm *WorkingMemory) checkDangling() error {
	for _, group := range [][]Link{wm.coop, wm.comp} {
		for _, l := range group {
			if _, ok := wm.instances[l.From]; !ok {
				return modelerr.Structural(modelerr.ErrDanglingLink, l.ID, "source "+l.From)
			}
			if _, ok := wm.instances[l.To]; !ok {
				return modelerr.Structural(modelerr.ErrDanglingLink, l.ID, "target "+l.To)
			}
		}
	}
	return nil
}

// Prune removes every not-alive instance together with all links touching
// it, or touching any instance no longer present. It returns the removed
// instance ids in creation order.
func (wm *WorkingMemory) Prune() []string {
	var removed []string
	for _, inst := range wm.order {
		if !inst.alive {
			removed = append(removed, inst.ID)
			delete(wm.instances, inst.ID)
		}
	}
	wm.order = filterInstances(wm.order, func(i *Instance) bool { return i.alive })

	keep := func(l Link) bool {
		_, okFrom := wm.instances[l.From]
		_, okTo := wm.instances[l.To]
		return okFrom && okTo
	}
	before := len(wm.coop) + len(wm.comp)
	wm.coop = filterLinks(wm.coop, keep)
	wm.comp = filterLinks(wm.comp, keep)
	droppedLinks := before - len(wm.coop) - len(wm.comp)

	if len(removed) > 0 || droppedLinks > 0 {
		wm.logger.Debug("prune", "tick", wm.tick, "instances", len(removed), "links", droppedLinks)
		wm.decisions.Log(map[string]any{
			"event":   "prune",
			"tick":    wm.tick,
			"removed": removed,
			"links":   droppedLinks,
		})
	}
	return removed
}

// Run advances n ticks, pruning after each one when prune is set.
func (wm *WorkingMemory) Run(ctx context.Context, n int, prune bool) error {
	for i := 0; i < n; i++ {
		if _, err := wm.UpdateActivations(ctx); err != nil {
			return err
		}
		if prune {
			wm.Prune()
		}
	}
	return nil
}

// Snapshot returns the published activations keyed by instance id.
func (wm *WorkingMemory) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(wm.order))
	for _, inst := range wm.order {
		out[inst.ID] = inst.Activation()
	}
	return out
}

// Ranked returns the instance ids sorted by activation descending, ties by
// creation order.
func (wm *WorkingMemory) Ranked() []string {
	insts := wm.Instances()
	sort.SliceStable(insts, func(i, j int) bool {
		return insts[i].Activation() > insts[j].Activation()
	})
	ids := make([]string, len(insts))
	for i, inst := range insts {
		ids[i] = inst.ID
	}
	return ids
}
