package capture

import (
	"ctxc/internal/callgraph"
	"ctxc/internal/fir"
)

// Captures holds the computed capture set per function, indexed by FuncID.
type Captures []Set

// Propagate computes capture sets over the condensation in callees-first
// order. Cyclic components are solved by a worklist fixpoint: every update
// is a monotone union over a finite item universe, so the loop terminates.
func Propagate(g *callgraph.Graph, scc *callgraph.SCC, facts []Facts) Captures {
	captures := make(Captures, len(facts))
	for _, batch := range scc.Batches {
		for _, comp := range batch {
			SolveComponent(g, scc, facts, captures, comp)
		}
	}
	return captures
}

// SolveComponent computes the capture sets of one condensation component.
// Callee components must already be settled. Distinct components touch
// disjoint capture slots, so independent components may be solved
// concurrently over the same captures slice.
func SolveComponent(g *callgraph.Graph, scc *callgraph.SCC, facts []Facts, captures Captures, comp int) {
	members := scc.Comps[comp]
	for _, m := range members {
		captures[m] = facts[m].Direct.Clone()
	}

	// worklist fixpoint within the component; single-function components
	// without self-edges settle in one sweep. Any growth re-arms the loop:
	// an out-of-component contribution picked up late must still reach the
	// member's in-component callers on the next sweep.
	dirty := true
	for dirty {
		dirty = false
		for _, m := range members {
			fn := fir.FuncID(m)
			for _, callee := range g.PropagatingCallees(fn) {
				contribution := captures[callee]
				if contribution == nil {
					continue
				}
				residual := contribution.Subtract(facts[callee].Absorbed)
				if captures[fn].Union(residual) {
					dirty = true
				}
			}
		}
	}
}

// Residual returns what fn still demands from its callers: its capture set
// minus everything it absorbs locally.
func Residual(captures Captures, facts []Facts, fn fir.FuncID) Set {
	return captures[fn].Subtract(facts[fn].Absorbed)
}
